package memory

import (
	"context"
	"log/slog"
	"math"
	"strconv"
	"sync"
	"time"
)

// ReplicationID is the fixed replication id reported by INFO and PSYNC.
const ReplicationID = "8371b4fb1155b71f4a04d3e1bc3e18c4a990aeeb"

// NeverExpires is the ExpiresAt value of an entry without a TTL.
const NeverExpires int64 = 0

// timeNow is the clock used for expiration; tests may replace it.
var timeNow = time.Now

func nowMillis() int64 {
	return timeNow().UnixMilli()
}

// Entry is a stored value and its absolute expiry in Unix milliseconds.
type Entry struct {
	Value     string
	ExpiresAt int64
}

// IsExpired reports whether the entry is dead at nowMs.
func (e Entry) IsExpired(nowMs int64) bool {
	return e.ExpiresAt != NeverExpires && nowMs > e.ExpiresAt
}

// Store is the shared key-value map plus the node identity used by INFO.
type Store struct {
	mu      sync.Mutex
	entries map[string]Entry

	masterHost string
	port       int
}

// Option configures the Store.
type Option func(*Store)

// WithMasterHost marks the node as a replica of host. Empty means master.
func WithMasterHost(host string) Option {
	return func(s *Store) {
		s.masterHost = host
	}
}

// WithPort records the listening port.
func WithPort(port int) Option {
	return func(s *Store) {
		s.port = port
	}
}

// New creates an empty store.
func New(opts ...Option) *Store {
	s := &Store{
		entries: make(map[string]Entry),
		port:    6379,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Set stores value under key. A ttlMillis of 0 means the entry never
// expires; otherwise it expires ttlMillis after now, saturating at the
// largest representable deadline. The previous value is returned when the
// key already held one, expired or not.
func (s *Store) Set(key, value string, ttlMillis int64) (string, bool) {
	e := Entry{Value: value, ExpiresAt: NeverExpires}
	if ttlMillis > 0 {
		now := nowMillis()
		if ttlMillis > math.MaxInt64-now {
			e.ExpiresAt = math.MaxInt64
		} else {
			e.ExpiresAt = now + ttlMillis
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	prev, ok := s.entries[key]
	s.entries[key] = e
	return prev.Value, ok
}

// Get returns the value of key unless it is missing or expired.
func (s *Store) Get(key string) (string, bool) {
	now := nowMillis()

	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key]
	if !ok || e.IsExpired(now) {
		return "", false
	}
	return e.Value, true
}

// Len returns the number of stored entries, including expired ones that
// have not been swept yet.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// DeleteExpired removes every expired entry and returns how many it removed.
func (s *Store) DeleteExpired() int {
	now := nowMillis()

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for k, e := range s.entries {
		if e.IsExpired(now) {
			delete(s.entries, k)
			removed++
		}
	}
	return removed
}

// RunJanitor calls DeleteExpired every interval until ctx is done.
func (s *Store) RunJanitor(ctx context.Context, interval time.Duration, logger *slog.Logger) {
	if interval <= 0 {
		return
	}
	if logger == nil {
		logger = slog.Default()
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.DeleteExpired(); n > 0 {
				logger.Debug("expired keys removed", "count", n)
			}
		}
	}
}

// IsReplica reports whether a master host was configured.
func (s *Store) IsReplica() bool {
	return s.masterHost != ""
}

// HostInfo returns "role:master" or "role:slave".
func (s *Store) HostInfo() string {
	if s.IsReplica() {
		return "role:slave"
	}
	return "role:master"
}

// MasterHost returns the configured master host, empty on a master.
func (s *Store) MasterHost() string {
	return s.masterHost
}

// CurrentPort returns the listening port.
func (s *Store) CurrentPort() int {
	return s.port
}

// ReplicationID returns the fixed replication id.
func (s *Store) ReplicationID() string {
	return ReplicationID
}

// ReplicationOffset is always 0; writes are never propagated.
func (s *Store) ReplicationOffset() int64 {
	return 0
}

// ReplicationInfo formats the replication fields as INFO lines.
func (s *Store) ReplicationInfo() []string {
	return []string{
		s.HostInfo(),
		"master_replid:" + s.ReplicationID(),
		"master_repl_offset:" + strconv.FormatInt(s.ReplicationOffset(), 10),
	}
}
