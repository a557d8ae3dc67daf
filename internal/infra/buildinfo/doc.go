// Package buildinfo exposes build-time version information.
//
// Version, Commit and BuildTime are injected via ldflags:
//
//	go build -ldflags "-X github.com/yndnr/respkv/internal/infra/buildinfo.Version=v1.0.0"
//
// GoVersion and, when not injected, Commit fall back to what the Go
// toolchain records in the binary.
package buildinfo
