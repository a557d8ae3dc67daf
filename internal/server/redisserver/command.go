package redisserver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/yndnr/respkv/internal/telemetry/logger"
	"github.com/yndnr/respkv/internal/telemetry/metric"
	"github.com/yndnr/respkv/pkg/resp"
)

// Store is the key-value state commands operate on.
type Store interface {
	Set(key, value string, ttlMillis int64) (string, bool)
	Get(key string) (string, bool)
	IsReplica() bool
	ReplicationID() string
	ReplicationOffset() int64
	ReplicationInfo() []string
}

// commandFunc runs one command. args excludes the command name.
type commandFunc func(ctx context.Context, args []string) (resp.Message, error)

type command struct {
	// arity counts the command name. A negative arity -N means at least N.
	arity int
	run   commandFunc
}

// CommandHandler maps requests to replies.
type CommandHandler struct {
	store       Store
	metrics     *metric.Registry
	logger      *slog.Logger
	rateLimiter *rateLimiter
	commands    map[string]command
}

// HandlerOption configures a CommandHandler.
type HandlerOption func(*CommandHandler)

// WithMetrics records per-command counters and latencies in reg.
func WithMetrics(reg *metric.Registry) HandlerOption {
	return func(h *CommandHandler) {
		h.metrics = reg
	}
}

// WithLogger sets the fallback logger used when the request context has none.
func WithLogger(l *slog.Logger) HandlerOption {
	return func(h *CommandHandler) {
		h.logger = l
	}
}

// WithRateLimit allows perSecond commands per client IP. 0 disables limiting.
func WithRateLimit(perSecond int) HandlerOption {
	return func(h *CommandHandler) {
		h.rateLimiter = newRateLimiter(perSecond)
	}
}

// NewCommandHandler creates a CommandHandler over store.
func NewCommandHandler(store Store, opts ...HandlerOption) *CommandHandler {
	h := &CommandHandler{
		store:  store,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(h)
	}

	h.commands = map[string]command{
		"ping":     {arity: -1, run: h.handlePing},
		"echo":     {arity: 2, run: h.handleEcho},
		"set":      {arity: -3, run: h.handleSet},
		"get":      {arity: 2, run: h.handleGet},
		"info":     {arity: -1, run: h.handleInfo},
		"replconf": {arity: -1, run: h.handleReplconf},
		"psync":    {arity: 3, run: h.handlePsync},
	}
	return h
}

// Dispatch runs the command in m and returns the reply.
//
// Command failures become error replies and a nil error. A non-nil error
// wraps resp.ErrProtocol: the request was not a command at all, the
// returned reply describes it, and the caller should close the connection
// after writing it.
func (h *CommandHandler) Dispatch(ctx context.Context, m resp.Message) (resp.Message, error) {
	name, rawArgs, err := resp.ParseCommand(m)
	if err != nil {
		return protocolErrorReply(err), err
	}
	args, err := argStrings(rawArgs)
	if err != nil {
		return protocolErrorReply(err), err
	}

	start := time.Now()
	reply, cmdErr := h.execute(ctx, name, args)

	label, status := name, metric.StatusOK
	if _, known := h.commands[name]; !known {
		label = "unknown"
	}
	if cmdErr != nil {
		status = metric.StatusError
		var ce *CommandError
		if !errors.As(cmdErr, &ce) {
			ce = &CommandError{Kind: cmdErr, Msg: "ERR " + cmdErr.Error()}
		}
		reply = ce.Reply()
		h.log(ctx).Debug("command failed", "command", name, "error", ce.Msg)
	}
	h.metrics.ObserveCommand(label, status, time.Since(start))
	return reply, nil
}

func (h *CommandHandler) execute(ctx context.Context, name string, args []string) (resp.Message, error) {
	cmd, ok := h.commands[name]
	if !ok {
		return resp.Message{}, unknownCommand(name)
	}
	if !arityOK(cmd.arity, len(args)+1) {
		return resp.Message{}, wrongArgs(name)
	}
	if !h.rateLimiter.allow(clientIPFromContext(ctx)) {
		return resp.Message{}, rateLimited()
	}
	return cmd.run(ctx, args)
}

// PruneLimiters drops idle per-client rate limiters.
func (h *CommandHandler) PruneLimiters() int {
	return h.rateLimiter.prune()
}

// log prefers the session logger carried by ctx.
func (h *CommandHandler) log(ctx context.Context) *slog.Logger {
	if logger.ConnIDFromContext(ctx) != "" {
		return logger.L(ctx)
	}
	return h.logger
}

func arityOK(arity, n int) bool {
	if arity < 0 {
		return n >= -arity
	}
	return n == arity
}

func argStrings(args []resp.Message) ([]string, error) {
	out := make([]string, len(args))
	for i, a := range args {
		if a.Kind != resp.KindBulk && a.Kind != resp.KindSimple {
			return nil, fmt.Errorf("%w: expected string argument, got %s", resp.ErrProtocol, a.Kind)
		}
		out[i] = a.Str
	}
	return out, nil
}

// PING [message]
func (h *CommandHandler) handlePing(_ context.Context, args []string) (resp.Message, error) {
	switch len(args) {
	case 0:
		return resp.Simple("PONG"), nil
	case 1:
		return resp.Bulk(args[0]), nil
	default:
		return resp.Message{}, wrongArgs("ping")
	}
}

// ECHO message
func (h *CommandHandler) handleEcho(_ context.Context, args []string) (resp.Message, error) {
	return resp.Bulk(args[0]), nil
}

// SET key value [PX milliseconds]
//
// A fresh key is answered with OK, an overwrite with a null reply. The
// expiry pair is honoured only as the fourth and fifth words of the command;
// any other shape stores the key without expiry.
func (h *CommandHandler) handleSet(_ context.Context, args []string) (resp.Message, error) {
	var ttl int64
	if len(args) == 4 && strings.EqualFold(args[2], "px") {
		n, err := strconv.ParseInt(args[3], 10, 64)
		if err != nil || n < 0 {
			return resp.Message{}, notInteger()
		}
		ttl = n
	}

	if _, existed := h.store.Set(args[0], args[1], ttl); existed {
		return resp.Null(), nil
	}
	return resp.Simple("OK"), nil
}

// GET key
//
// Values go back as status lines. A value a status line cannot carry is
// sent as a bulk string instead.
func (h *CommandHandler) handleGet(_ context.Context, args []string) (resp.Message, error) {
	v, ok := h.store.Get(args[0])
	if !ok {
		return resp.Null(), nil
	}
	if strings.ContainsAny(v, "\r\n") {
		return resp.Bulk(v), nil
	}
	return resp.Simple(v), nil
}

// INFO [section]
func (h *CommandHandler) handleInfo(_ context.Context, _ []string) (resp.Message, error) {
	return resp.Raw(infoBlock(h.store)), nil
}

// infoBlock frames the replication section as a bulk payload. Masters carry
// the "# Replication" header, replicas do not.
func infoBlock(s Store) string {
	body := strings.Join(s.ReplicationInfo(), "\n")
	if !s.IsReplica() {
		body = "# Replication\n" + body
	}
	return "$" + strconv.Itoa(len(body)) + "\r\n" + body + "\r\n"
}

// REPLCONF ...
func (h *CommandHandler) handleReplconf(ctx context.Context, args []string) (resp.Message, error) {
	h.log(ctx).Debug("replconf received", "args", args)
	return resp.Simple("OK"), nil
}

// PSYNC replicationid offset
func (h *CommandHandler) handlePsync(ctx context.Context, args []string) (resp.Message, error) {
	h.log(ctx).Info("replica requested full resync", "replid", args[0], "offset", args[1])
	return resp.Simple(fmt.Sprintf("FULLRESYNC %s %d", h.store.ReplicationID(), h.store.ReplicationOffset())), nil
}
