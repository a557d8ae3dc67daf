package config

import "time"

// Default configuration values.
const (
	DefaultBind         = "127.0.0.1"
	DefaultPort         = 6379
	DefaultReadTimeout  = 30 * time.Second
	DefaultWriteTimeout = 30 * time.Second
	DefaultMaxBulkLen   = 512 * 1024 * 1024
	DefaultMaxArrayLen  = 1024 * 1024

	DefaultMasterPort       = 6379
	DefaultDialTimeout      = 5 * time.Second
	DefaultHandshakeTimeout = 10 * time.Second

	DefaultMetricsAddr = "127.0.0.1:9121"

	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"
)

// Default returns the default server configuration.
func Default() *ServerConfig {
	return &ServerConfig{
		Server: ServerSection{
			Bind:         DefaultBind,
			Port:         DefaultPort,
			ReadTimeout:  DefaultReadTimeout,
			WriteTimeout: DefaultWriteTimeout,
			MaxBulkLen:   DefaultMaxBulkLen,
			MaxArrayLen:  DefaultMaxArrayLen,
		},
		Replication: ReplicationSection{
			MasterPort:       DefaultMasterPort,
			DialTimeout:      DefaultDialTimeout,
			HandshakeTimeout: DefaultHandshakeTimeout,
		},
		Metrics: MetricsSection{
			Addr: DefaultMetricsAddr,
		},
		Log: LogSection{
			Level:  DefaultLogLevel,
			Format: DefaultLogFormat,
		},
	}
}
