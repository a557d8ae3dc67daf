package redisserver

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/yndnr/respkv/internal/server/config"
	"github.com/yndnr/respkv/internal/telemetry/logger"
	"github.com/yndnr/respkv/internal/telemetry/metric"
	"github.com/yndnr/respkv/pkg/cmap"
	"github.com/yndnr/respkv/pkg/resp"
)

// Config holds the listener and session settings.
type Config struct {
	// Address is the TCP address to listen on.
	Address string
	// ReadTimeout bounds reading the rest of a command once its first byte
	// has arrived. 0 disables it.
	ReadTimeout time.Duration
	// WriteTimeout bounds writing one reply. 0 disables it.
	WriteTimeout time.Duration
	// IdleTimeout closes a connection idle between commands. 0 disables it.
	IdleTimeout time.Duration
	// Limits caps incoming frame sizes.
	Limits resp.Limits
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Address:      "127.0.0.1:6379",
		ReadTimeout:  config.DefaultReadTimeout,
		WriteTimeout: config.DefaultWriteTimeout,
		Limits:       resp.DefaultLimits,
	}
}

// ConfigFromSection maps the server section of the configuration file.
func ConfigFromSection(sec config.ServerSection) *Config {
	limits := resp.DefaultLimits
	if sec.MaxBulkLen > 0 {
		limits.MaxBulkLen = sec.MaxBulkLen
	}
	if sec.MaxArrayLen > 0 {
		limits.MaxArrayLen = sec.MaxArrayLen
	}
	return &Config{
		Address:      sec.Addr(),
		ReadTimeout:  sec.ReadTimeout,
		WriteTimeout: sec.WriteTimeout,
		IdleTimeout:  sec.IdleTimeout,
		Limits:       limits,
	}
}

// Server accepts RESP connections and runs one session per connection.
type Server struct {
	cfg     *Config
	handler *CommandHandler
	logger  *slog.Logger
	metrics *metric.Registry

	mu      sync.Mutex
	ln      net.Listener
	conns   *cmap.Map[string, net.Conn]
	running atomic.Bool
	wg      sync.WaitGroup
}

// New creates a server dispatching to handler. metrics may be nil.
func New(cfg *Config, handler *CommandHandler, log *slog.Logger, metrics *metric.Registry) *Server {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if log == nil {
		log = slog.Default()
	}
	return &Server{
		cfg:     cfg,
		handler: handler,
		logger:  log,
		metrics: metrics,
		conns:   cmap.New[string, net.Conn](),
	}
}

// Start listens on the configured address and serves in the background.
// A listen failure is returned synchronously.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Address)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.ln = ln
	s.mu.Unlock()
	s.running.Store(true)
	s.logger.Info("redis server listening", "address", ln.Addr().String())

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := s.Serve(ctx, ln); err != nil {
			s.logger.Error("redis server error", "error", err)
		}
	}()
	return nil
}

// Serve accepts connections on ln until Shutdown is called or ctx is done.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.mu.Lock()
	s.ln = ln
	s.mu.Unlock()
	s.running.Store(true)

	stop := context.AfterFunc(ctx, func() { _ = ln.Close() })
	defer stop()

	for {
		c, err := ln.Accept()
		if err != nil {
			if !s.running.Load() || errors.Is(err, net.ErrClosed) || ctx.Err() != nil {
				return nil
			}
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				time.Sleep(5 * time.Millisecond)
				continue
			}
			return err
		}

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.serveConn(ctx, c)
		}()
	}
}

// Addr returns the listener address once serving, else nil.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ln == nil {
		return nil
	}
	return s.ln.Addr()
}

// ActiveConnections returns the number of open client connections.
func (s *Server) ActiveConnections() int {
	return s.conns.Count()
}

// Shutdown closes the listener and every open connection, then waits for
// sessions to return or ctx to expire.
func (s *Server) Shutdown(ctx context.Context) error {
	s.running.Store(false)

	var firstErr error
	s.mu.Lock()
	if s.ln != nil {
		if err := s.ln.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
			firstErr = err
		}
	}
	s.mu.Unlock()

	for _, c := range s.conns.Values() {
		_ = c.Close()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}
	s.logger.Info("redis server stopped")
	return firstErr
}

func (s *Server) serveConn(ctx context.Context, nc net.Conn) {
	id := ulid.Make().String()
	ctx = logger.WithLogger(ctx, s.logger.With("remote", nc.RemoteAddr().String()))
	ctx = logger.WithConnID(ctx, id)
	ctx = WithClientIP(ctx, hostOf(nc.RemoteAddr()))
	log := logger.L(ctx)

	s.conns.Set(id, nc)
	s.metrics.ConnOpened()
	log.Debug("connection opened")
	defer func() {
		s.conns.Delete(id)
		_ = nc.Close()
		s.metrics.ConnClosed()
		log.Debug("connection closed")
	}()
	// Shutdown may have swept the registry before this connection joined it.
	if !s.running.Load() {
		return
	}

	r := resp.NewReaderLimits(nc, s.cfg.Limits)
	w := resp.NewWriter(nc)

	for {
		// The first byte may take up to the idle timeout.
		if r.Buffered() == 0 {
			if err := nc.SetReadDeadline(deadline(s.cfg.IdleTimeout)); err != nil {
				return
			}
			if _, err := r.Peek(); err != nil {
				s.logReadError(log, err)
				return
			}
		}

		// The rest of the command gets the tighter read timeout.
		if err := nc.SetReadDeadline(deadline(s.cfg.ReadTimeout)); err != nil {
			return
		}
		msg, err := r.ReadMessage()
		if err != nil {
			if errors.Is(err, resp.ErrProtocol) || errors.Is(err, resp.ErrLimitExceeded) {
				s.metrics.ProtocolError()
				log.Warn("protocol error, closing connection", "error", err)
				_ = s.write(nc, w, protocolErrorReply(err))
				return
			}
			s.logReadError(log, err)
			return
		}

		reply, err := s.handler.Dispatch(ctx, msg)
		if werr := s.write(nc, w, reply); werr != nil {
			log.Debug("write failed", "error", werr)
			return
		}
		if err != nil {
			s.metrics.ProtocolError()
			log.Warn("malformed command, closing connection", "error", err)
			return
		}
	}
}

func (s *Server) write(nc net.Conn, w *resp.Writer, m resp.Message) error {
	if err := nc.SetWriteDeadline(deadline(s.cfg.WriteTimeout)); err != nil {
		return err
	}
	if err := w.WriteMessage(m); err != nil {
		return err
	}
	return w.Flush()
}

func (s *Server) logReadError(log *slog.Logger, err error) {
	var ne net.Error
	switch {
	case errors.Is(err, io.EOF), errors.Is(err, net.ErrClosed):
	case errors.As(err, &ne) && ne.Timeout():
		log.Debug("connection timed out")
	default:
		log.Debug("connection read error", "error", err)
	}
}

// deadline returns the zero time, meaning no deadline, for d <= 0.
func deadline(d time.Duration) time.Time {
	if d <= 0 {
		return time.Time{}
	}
	return time.Now().Add(d)
}
