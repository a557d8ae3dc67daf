package replica

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/yndnr/respkv/internal/server/config"
	"github.com/yndnr/respkv/internal/telemetry/metric"
	"github.com/yndnr/respkv/pkg/resp"
)

// ErrHandshake is returned when the master cannot be reached or answers
// out of sequence.
var ErrHandshake = errors.New("replica handshake failed")

// State is a step of the handshake.
type State int

const (
	StateFailed             State = -1
	StateDisconnected       State = 0
	StateAwaitingPong       State = 1
	StateAwaitingFullResync State = 2
	StateSynchronized       State = 3
)

func (s State) String() string {
	switch s {
	case StateFailed:
		return "failed"
	case StateDisconnected:
		return "disconnected"
	case StateAwaitingPong:
		return "awaiting_pong"
	case StateAwaitingFullResync:
		return "awaiting_fullresync"
	case StateSynchronized:
		return "synchronized"
	default:
		return "state(" + strconv.Itoa(int(s)) + ")"
	}
}

// Config describes the master to follow.
type Config struct {
	MasterAddr string
	// ListeningPort is announced to the master with REPLCONF.
	ListeningPort int
	// DialTimeout bounds connecting. 0 means no bound beyond ctx.
	DialTimeout time.Duration
	// HandshakeTimeout bounds the exchange after connecting. 0 means no bound.
	HandshakeTimeout time.Duration
}

// ConfigFromSection maps the replication section for a node listening on port.
func ConfigFromSection(sec config.ReplicationSection, port int) Config {
	return Config{
		MasterAddr:       sec.MasterAddr(),
		ListeningPort:    port,
		DialTimeout:      sec.DialTimeout,
		HandshakeTimeout: sec.HandshakeTimeout,
	}
}

// Link is the connection from a replica to its master.
type Link struct {
	cfg     Config
	logger  *slog.Logger
	metrics *metric.Registry

	mu    sync.Mutex
	state State
	conn  *resp.Conn
}

// Option configures a Link.
type Option func(*Link)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(k *Link) {
		k.logger = l
	}
}

// WithMetrics publishes state changes to reg.
func WithMetrics(reg *metric.Registry) Option {
	return func(k *Link) {
		k.metrics = reg
	}
}

// NewLink creates a link in the Disconnected state.
func NewLink(cfg Config, opts ...Option) *Link {
	l := &Link{
		cfg:    cfg,
		logger: slog.Default(),
		state:  StateDisconnected,
	}
	for _, opt := range opts {
		opt(l)
	}
	l.logger = l.logger.With("master", cfg.MasterAddr)
	return l
}

// State returns the current handshake state.
func (l *Link) State() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

func (l *Link) setState(s State) {
	l.mu.Lock()
	l.state = s
	l.mu.Unlock()
	l.metrics.SetHandshakeState(int(s))
	l.logger.Debug("handshake state changed", "state", s.String())
}

// Handshake connects to the master and runs the exchange once. On success
// the link is Synchronized and the connection stays open. On failure the
// connection is closed, the state is Failed and the error wraps
// ErrHandshake.
func (l *Link) Handshake(ctx context.Context) error {
	l.setState(StateDisconnected)

	dialCtx := ctx
	if l.cfg.DialTimeout > 0 {
		var cancel context.CancelFunc
		dialCtx, cancel = context.WithTimeout(ctx, l.cfg.DialTimeout)
		defer cancel()
	}
	conn, err := resp.Dial(dialCtx, l.cfg.MasterAddr)
	if err != nil {
		return l.fail(nil, fmt.Errorf("dial: %w", err))
	}

	if l.cfg.HandshakeTimeout > 0 {
		_ = conn.SetDeadline(time.Now().Add(l.cfg.HandshakeTimeout))
	}
	// Unblock reads and writes if ctx ends mid-exchange.
	stop := context.AfterFunc(ctx, func() { _ = conn.SetDeadline(time.Now()) })
	defer stop()

	if err := l.exchange(conn); err != nil {
		if ctx.Err() != nil {
			err = ctx.Err()
		}
		return l.fail(conn, err)
	}

	_ = conn.SetDeadline(time.Time{})
	l.mu.Lock()
	l.conn = conn
	l.mu.Unlock()
	l.setState(StateSynchronized)
	l.logger.Info("replica handshake complete", "remote", conn.RemoteAddr().String())
	return nil
}

func (l *Link) exchange(conn *resp.Conn) error {
	l.setState(StateAwaitingPong)
	if err := conn.Send(resp.BulkArray("PING")); err != nil {
		return fmt.Errorf("send PING: %w", err)
	}
	reply, err := conn.Receive()
	if err != nil {
		return fmt.Errorf("read PING reply: %w", err)
	}
	if name, _, err := resp.ParseCommand(reply); err != nil || name != "pong" {
		return fmt.Errorf("unexpected PING reply %v", reply)
	}

	l.setState(StateAwaitingFullResync)
	port := strconv.Itoa(l.cfg.ListeningPort)
	if err := conn.Send(
		resp.BulkArray("REPLCONF", "listening-port", port),
		resp.BulkArray("REPLCONF", "capa", "psync2"),
		resp.BulkArray("PSYNC", "?", "-1"),
	); err != nil {
		return fmt.Errorf("send REPLCONF/PSYNC: %w", err)
	}

	reply, err = conn.Receive()
	if err != nil {
		return fmt.Errorf("read PSYNC reply: %w", err)
	}
	l.logger.Debug("discarding master sync reply", "reply", reply.String())
	return nil
}

func (l *Link) fail(conn *resp.Conn, err error) error {
	if conn != nil {
		_ = conn.Close()
	}
	l.setState(StateFailed)
	err = fmt.Errorf("%w: %s: %w", ErrHandshake, l.cfg.MasterAddr, err)
	l.logger.Error("replica handshake failed, serving without a master", "error", err)
	return err
}

// Close closes the master connection if one is held.
func (l *Link) Close() error {
	l.mu.Lock()
	conn := l.conn
	l.conn = nil
	l.mu.Unlock()

	if conn == nil {
		return nil
	}
	l.setState(StateDisconnected)
	return conn.Close()
}
