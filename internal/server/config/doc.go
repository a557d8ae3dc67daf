// Package config provides server configuration for respkv.
//
//   - spec.go: ServerConfig struct definition
//   - default.go: Default configuration values
//   - verify.go: validation of ports, durations and log settings
//   - replicaof.go: parsing of the "--replicaof" address
//
// Configuration is loaded via internal/infra/confloader and supports
// multiple sources: files, environment variables, and flags.
package config
