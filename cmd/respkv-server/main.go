// Package main provides the entry point for respkv-server.
//
// respkv-server is an in-memory key-value server speaking the Redis wire
// protocol. Started with --replicaof it first performs the replica
// handshake against the given master, then serves clients either way.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/respkv/internal/infra/buildinfo"
	"github.com/yndnr/respkv/internal/infra/confloader"
	"github.com/yndnr/respkv/internal/infra/shutdown"
	"github.com/yndnr/respkv/internal/server/config"
	"github.com/yndnr/respkv/internal/server/redisserver"
	"github.com/yndnr/respkv/internal/server/replica"
	"github.com/yndnr/respkv/internal/storage/memory"
	"github.com/yndnr/respkv/internal/telemetry/logger"
	"github.com/yndnr/respkv/internal/telemetry/metric"
)

const (
	shutdownTimeout   = 30 * time.Second
	limiterPruneEvery = time.Minute
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:    "respkv-server",
		Usage:   "in-memory key-value server speaking RESP",
		Version: buildinfo.String(),
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Usage: "path to a YAML configuration file", EnvVars: []string{"RESPKV_CONFIG"}},
			&cli.StringFlag{Name: "bind", Usage: "listen address"},
			&cli.IntFlag{Name: "port", Usage: "listen port (default 6379)"},
			&cli.StringFlag{Name: "replicaof", Usage: `run as a replica of "host port"`},
			&cli.IntFlag{Name: "rate-limit", Usage: "commands per second per client IP, 0 disables"},
			&cli.DurationFlag{Name: "sweep-interval", Usage: "expired key sweep interval, 0 keeps eviction lazy"},
			&cli.StringFlag{Name: "log-level", Usage: "debug, info, warn or error"},
			&cli.StringFlag{Name: "log-format", Usage: "json or text"},
			&cli.BoolFlag{Name: "metrics", Usage: "serve Prometheus metrics"},
			&cli.StringFlag{Name: "metrics-addr", Usage: "metrics listen address"},
		},
		Action: run,
	}
}

// flagOverrides maps explicitly set flags onto configuration keys.
func flagOverrides(c *cli.Context) (map[string]any, error) {
	out := make(map[string]any)
	if c.IsSet("bind") {
		out["server.bind"] = c.String("bind")
	}
	if c.IsSet("port") {
		out["server.port"] = c.Int("port")
	}
	if c.IsSet("rate-limit") {
		out["server.rate_limit"] = c.Int("rate-limit")
	}
	if c.IsSet("replicaof") {
		host, port, err := config.ParseReplicaOf(c.String("replicaof"))
		if err != nil {
			return nil, err
		}
		out["replication.master_host"] = host
		out["replication.master_port"] = port
	}
	if c.IsSet("sweep-interval") {
		out["storage.sweep_interval"] = c.Duration("sweep-interval")
	}
	if c.IsSet("log-level") {
		out["log.level"] = c.String("log-level")
	}
	if c.IsSet("log-format") {
		out["log.format"] = c.String("log-format")
	}
	if c.IsSet("metrics") {
		out["metrics.enabled"] = c.Bool("metrics")
	}
	if c.IsSet("metrics-addr") {
		out["metrics.addr"] = c.String("metrics-addr")
	}
	return out, nil
}

// loadConfig layers defaults, file, env and flags, then validates.
func loadConfig(configFile string, overrides map[string]any) (*config.ServerConfig, error) {
	cfg := config.Default()

	opts := []confloader.Option{confloader.WithFlags(overrides)}
	if configFile != "" {
		opts = append(opts, confloader.WithConfigFile(configFile))
	}
	if err := confloader.NewLoader(opts...).Load(cfg); err != nil {
		return nil, err
	}

	if err := config.Verify(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func initLogger(cfg *config.ServerConfig) (logger.Logger, error) {
	log, err := logger.New(logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: os.Stdout,
	})
	if err != nil {
		return nil, err
	}
	logger.SetDefault(log)
	return log, nil
}

func run(c *cli.Context) error {
	overrides, err := flagOverrides(c)
	if err != nil {
		return err
	}
	configFile := c.String("config")

	cfg, err := loadConfig(configFile, overrides)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log, err := initLogger(cfg)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	slogLogger := log.Slog()

	info := buildinfo.Get()
	log.Info("starting respkv-server",
		"version", info.Version,
		"commit", info.Commit,
		"go", info.GoVersion,
		"config", configFile)

	ctx, cancel := context.WithCancel(c.Context)
	defer cancel()

	shutdownHandler := shutdown.NewHandler(shutdownTimeout)
	// Registered first so it runs last, after every listener is closed.
	shutdownHandler.OnShutdown(func(context.Context) error {
		cancel()
		return nil
	})

	reg := metric.NewRegistry()
	store := memory.New(
		memory.WithPort(cfg.Server.Port),
		memory.WithMasterHost(cfg.Replication.MasterHost),
	)
	reg.MustRegister(metric.NewKeyspaceCollector(store))
	log.Info("store ready", "role", store.HostInfo(), "sweep_interval", cfg.Storage.SweepInterval)
	go store.RunJanitor(ctx, cfg.Storage.SweepInterval, slogLogger)

	if cfg.Replication.Enabled() {
		link := replica.NewLink(
			replica.ConfigFromSection(cfg.Replication, cfg.Server.Port),
			replica.WithLogger(slogLogger),
			replica.WithMetrics(reg),
		)
		// A failed handshake is logged by the link; the node keeps serving.
		_ = link.Handshake(ctx)
		shutdownHandler.OnShutdown(func(context.Context) error {
			return link.Close()
		})
	}

	handler := redisserver.NewCommandHandler(store,
		redisserver.WithMetrics(reg),
		redisserver.WithLogger(slogLogger),
		redisserver.WithRateLimit(cfg.Server.RateLimit),
	)
	srv := redisserver.New(redisserver.ConfigFromSection(cfg.Server), handler, slogLogger, reg)
	if err := srv.Start(ctx); err != nil {
		return fmt.Errorf("start redis server: %w", err)
	}
	shutdownHandler.OnShutdown(func(ctx context.Context) error {
		log.Info("shutting down redis server")
		return srv.Shutdown(ctx)
	})
	if cfg.Server.RateLimit > 0 {
		go pruneLimiters(ctx, handler)
	}

	if cfg.Metrics.Enabled {
		metricsServer := reg.NewServer(cfg.Metrics.Addr)
		go func() {
			log.Info("metrics server listening", "addr", cfg.Metrics.Addr)
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error("metrics server error", "error", err)
			}
		}()
		shutdownHandler.OnShutdown(func(ctx context.Context) error {
			log.Info("shutting down metrics server")
			return metricsServer.Shutdown(ctx)
		})
	}

	if configFile != "" {
		watcher, err := confloader.NewWatcher(configFile, confloader.WithWatcherLogger(slogLogger))
		if err != nil {
			log.Warn("config watcher disabled", "error", err)
		} else {
			watcher.OnChange(func(path string) { reloadLogLevel(log, path, overrides) })
			watcher.StartAsync()
			shutdownHandler.OnShutdown(func(context.Context) error {
				return watcher.Stop()
			})
		}
	}

	log.Info("server started, press Ctrl+C to stop", "addr", cfg.Server.Addr())
	if err := shutdownHandler.Wait(); err != nil {
		log.Error("shutdown error", "error", err)
		return err
	}

	log.Info("server stopped gracefully")
	return nil
}

// reloadLogLevel applies log.level from a changed configuration file and
// reports whether the level moved. Other settings need a restart.
func reloadLogLevel(log logger.Logger, path string, overrides map[string]any) bool {
	cfg, err := loadConfig(path, overrides)
	if err != nil {
		log.Warn("config reload failed", "file", path, "error", err)
		return false
	}
	want, err := logger.ParseLevel(cfg.Log.Level)
	if err != nil {
		log.Warn("config reload failed", "file", path, "error", err)
		return false
	}
	if cur, _ := logger.ParseLevel(logger.GetLevel()); want == cur {
		return false
	}
	if err := logger.SetLevel(cfg.Log.Level); err != nil {
		log.Warn("config reload failed", "file", path, "error", err)
		return false
	}
	log.Info("log level changed", "level", logger.GetLevel())
	return true
}

func pruneLimiters(ctx context.Context, h *redisserver.CommandHandler) {
	ticker := time.NewTicker(limiterPruneEvery)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			h.PruneLimiters()
		}
	}
}
