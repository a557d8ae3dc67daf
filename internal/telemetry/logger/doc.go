// Package logger provides structured logging for respkv.
//
// It wraps log/slog:
//
//   - logger.go: handler construction, level control, package default
//   - context.go: per-connection logger and connection id propagation
//
// The level is held in a shared slog.LevelVar so it can be changed while
// the server runs (see SetLevel).
package logger
