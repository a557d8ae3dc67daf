package confloader

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

type testConfig struct {
	Server struct {
		Port        int           `koanf:"port"`
		Bind        string        `koanf:"bind"`
		ReadTimeout time.Duration `koanf:"read_timeout"`
	} `koanf:"server"`
	Log struct {
		Level string `koanf:"level"`
	} `koanf:"log"`
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "respkv.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}
	return path
}

func TestNewLoader(t *testing.T) {
	l := NewLoader(WithConfigFile("/path/to/config.yaml"), WithFlags(map[string]any{"log.level": "warn"}))
	if l.filePath != "/path/to/config.yaml" {
		t.Errorf("filePath = %q", l.filePath)
	}
	if l.flags["log.level"] != "warn" {
		t.Errorf("flags = %v", l.flags)
	}
}

func TestLoader_LoadFile(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 7000
  read_timeout: 2s
log:
  level: debug
`)

	var cfg testConfig
	if err := NewLoader(WithConfigFile(path)).Load(&cfg); err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Port != 7000 {
		t.Errorf("Server.Port = %d, want 7000", cfg.Server.Port)
	}
	if cfg.Server.ReadTimeout != 2*time.Second {
		t.Errorf("Server.ReadTimeout = %v, want 2s", cfg.Server.ReadTimeout)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("Log.Level = %q, want debug", cfg.Log.Level)
	}
}

func TestLoader_LoadFile_NotFound(t *testing.T) {
	var cfg testConfig
	if err := NewLoader(WithConfigFile("/nonexistent/respkv.yaml")).Load(&cfg); err == nil {
		t.Error("Load() expected error for missing file")
	}
}

func TestLoader_KeepsDefaults(t *testing.T) {
	path := writeConfig(t, "server:\n  port: 7001\n")

	var cfg testConfig
	cfg.Server.Bind = "127.0.0.1"
	cfg.Log.Level = "info"

	if err := NewLoader(WithConfigFile(path)).Load(&cfg); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server.Bind != "127.0.0.1" || cfg.Log.Level != "info" {
		t.Errorf("defaults overwritten: %+v", cfg)
	}
	if cfg.Server.Port != 7001 {
		t.Errorf("Server.Port = %d, want 7001", cfg.Server.Port)
	}
}

func TestLoader_EnvOverridesFile(t *testing.T) {
	path := writeConfig(t, "server:\n  port: 7000\n  read_timeout: 2s\n")
	t.Setenv("RESPKV_SERVER_PORT", "7100")
	t.Setenv("RESPKV_SERVER_READ_TIMEOUT", "5s")

	var cfg testConfig
	if err := NewLoader(WithConfigFile(path)).Load(&cfg); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server.Port != 7100 {
		t.Errorf("Server.Port = %d, want 7100 from env", cfg.Server.Port)
	}
	if cfg.Server.ReadTimeout != 5*time.Second {
		t.Errorf("Server.ReadTimeout = %v, want 5s from env", cfg.Server.ReadTimeout)
	}
}

func TestLoader_FlagsOverrideEnv(t *testing.T) {
	t.Setenv("RESPKV_SERVER_PORT", "7100")
	t.Setenv("RESPKV_LOG_LEVEL", "warn")

	var cfg testConfig
	l := NewLoader(WithFlags(map[string]any{"server.port": 7200}))
	if err := l.Load(&cfg); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server.Port != 7200 {
		t.Errorf("Server.Port = %d, want 7200 from flags", cfg.Server.Port)
	}
	if cfg.Log.Level != "warn" {
		t.Errorf("Log.Level = %q, want warn from env", cfg.Log.Level)
	}
	if l.k.String("log.level") != "warn" {
		t.Errorf("log.level = %q", l.k.String("log.level"))
	}
}

func TestMapProvider(t *testing.T) {
	p := mapProvider{"server.port": 1, "log.level": "debug"}

	if _, err := p.ReadBytes(); err != ErrReadBytesNotSupported {
		t.Errorf("ReadBytes() error = %v", err)
	}

	m, err := p.Read()
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	server, ok := m["server"].(map[string]any)
	if !ok || server["port"] != 1 {
		t.Errorf("Read() = %v, want nested server.port", m)
	}
}
