package config

import (
	"errors"
	"fmt"
	"strings"
)

// Verify validates the configuration.
func Verify(cfg *ServerConfig) error {
	return errors.Join(
		verifyServer(&cfg.Server),
		verifyReplication(&cfg.Replication),
		verifyStorage(&cfg.Storage),
		verifyMetrics(&cfg.Metrics),
		verifyLog(&cfg.Log),
	)
}

func verifyServer(s *ServerSection) error {
	var errs []error
	if err := checkPort("server.port", s.Port); err != nil {
		errs = append(errs, err)
	}
	if s.ReadTimeout < 0 || s.WriteTimeout < 0 || s.IdleTimeout < 0 {
		errs = append(errs, errors.New("server timeouts must not be negative"))
	}
	if s.RateLimit < 0 {
		errs = append(errs, errors.New("server.rate_limit must not be negative"))
	}
	if s.MaxBulkLen <= 0 {
		errs = append(errs, errors.New("server.max_bulk_len must be positive"))
	}
	if s.MaxArrayLen <= 0 {
		errs = append(errs, errors.New("server.max_array_len must be positive"))
	}
	return errors.Join(errs...)
}

func verifyReplication(r *ReplicationSection) error {
	if !r.Enabled() {
		return nil
	}
	if err := checkPort("replication.master_port", r.MasterPort); err != nil {
		return err
	}
	if r.DialTimeout < 0 || r.HandshakeTimeout < 0 {
		return errors.New("replication timeouts must not be negative")
	}
	return nil
}

func verifyStorage(s *StorageSection) error {
	if s.SweepInterval < 0 {
		return errors.New("storage.sweep_interval must not be negative")
	}
	return nil
}

func verifyMetrics(m *MetricsSection) error {
	if m.Enabled && m.Addr == "" {
		return errors.New("metrics.addr is required when metrics are enabled")
	}
	return nil
}

func verifyLog(l *LogSection) error {
	switch strings.ToLower(l.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("log.level %q is not one of debug, info, warn, error", l.Level)
	}
	switch strings.ToLower(l.Format) {
	case "json", "text", "console":
	default:
		return fmt.Errorf("log.format %q is not one of json, text", l.Format)
	}
	return nil
}

func checkPort(name string, port int) error {
	if port < 1 || port > 65535 {
		return fmt.Errorf("%s %d is out of range 1-65535", name, port)
	}
	return nil
}
