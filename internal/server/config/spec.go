package config

import (
	"net"
	"strconv"
	"time"
)

// ServerConfig is the root configuration for respkv-server.
type ServerConfig struct {
	Server      ServerSection      `koanf:"server"`
	Replication ReplicationSection `koanf:"replication"`
	Storage     StorageSection     `koanf:"storage"`
	Metrics     MetricsSection     `koanf:"metrics"`
	Log         LogSection         `koanf:"log"`
}

// ServerSection configures the RESP listener and its sessions.
type ServerSection struct {
	Bind string `koanf:"bind"`
	Port int    `koanf:"port"`

	// ReadTimeout bounds reading the rest of a command once its first byte arrived.
	ReadTimeout time.Duration `koanf:"read_timeout"`
	// WriteTimeout bounds writing one reply.
	WriteTimeout time.Duration `koanf:"write_timeout"`
	// IdleTimeout closes connections idle between commands. 0 disables it.
	IdleTimeout time.Duration `koanf:"idle_timeout"`

	// RateLimit is the commands per second allowed per client IP. 0 disables it.
	RateLimit int `koanf:"rate_limit"`

	MaxBulkLen  int `koanf:"max_bulk_len"`
	MaxArrayLen int `koanf:"max_array_len"`
}

// Addr returns the listen address.
func (s ServerSection) Addr() string {
	return net.JoinHostPort(s.Bind, strconv.Itoa(s.Port))
}

// ReplicationSection configures replica mode. An empty MasterHost means this
// node is a master.
type ReplicationSection struct {
	MasterHost string `koanf:"master_host"`
	MasterPort int    `koanf:"master_port"`

	DialTimeout      time.Duration `koanf:"dial_timeout"`
	HandshakeTimeout time.Duration `koanf:"handshake_timeout"`
}

// Enabled reports whether a master is configured.
func (r ReplicationSection) Enabled() bool {
	return r.MasterHost != ""
}

// MasterAddr returns host:port of the master.
func (r ReplicationSection) MasterAddr() string {
	return net.JoinHostPort(r.MasterHost, strconv.Itoa(r.MasterPort))
}

// StorageSection configures the in-memory store.
type StorageSection struct {
	// SweepInterval runs the expired-key janitor. 0 keeps eviction lazy.
	SweepInterval time.Duration `koanf:"sweep_interval"`
}

// MetricsSection configures the Prometheus endpoint.
type MetricsSection struct {
	Enabled bool   `koanf:"enabled"`
	Addr    string `koanf:"addr"`
}

// LogSection configures logging.
type LogSection struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}
