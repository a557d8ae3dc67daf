package metric

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNewRegistry(t *testing.T) {
	r := NewRegistry()
	if r == nil {
		t.Fatal("NewRegistry() returned nil")
	}
	if r.CommandsTotal == nil || r.CommandDuration == nil {
		t.Error("command metrics not initialized")
	}
	if r.ConnectionsActive == nil || r.ConnectionsTotal == nil {
		t.Error("connection metrics not initialized")
	}
}

func TestRegistry_ObserveCommand(t *testing.T) {
	r := NewRegistry()

	r.ObserveCommand("get", StatusOK, time.Millisecond)
	r.ObserveCommand("get", StatusOK, time.Millisecond)
	r.ObserveCommand("nope", StatusError, time.Microsecond)

	if got := testutil.ToFloat64(r.CommandsTotal.WithLabelValues("get", StatusOK)); got != 2 {
		t.Errorf("commands_total{get,ok} = %v, want 2", got)
	}
	if got := testutil.ToFloat64(r.CommandsTotal.WithLabelValues("nope", StatusError)); got != 1 {
		t.Errorf("commands_total{nope,error} = %v, want 1", got)
	}
	if n := testutil.CollectAndCount(r.CommandDuration); n != 2 {
		t.Errorf("command_duration_seconds series = %d, want 2", n)
	}
}

func TestRegistry_Connections(t *testing.T) {
	r := NewRegistry()

	r.ConnOpened()
	r.ConnOpened()
	r.ConnClosed()
	r.ProtocolError()

	if got := testutil.ToFloat64(r.ConnectionsActive); got != 1 {
		t.Errorf("connections_active = %v, want 1", got)
	}
	if got := testutil.ToFloat64(r.ConnectionsTotal); got != 2 {
		t.Errorf("connections_total = %v, want 2", got)
	}
	if got := testutil.ToFloat64(r.ProtocolErrors); got != 1 {
		t.Errorf("protocol_errors_total = %v, want 1", got)
	}
}

func TestRegistry_NilIsNoop(t *testing.T) {
	var r *Registry
	r.ObserveCommand("ping", StatusOK, 0)
	r.ConnOpened()
	r.ConnClosed()
	r.ProtocolError()
	r.SetHandshakeState(3)
	r.MustRegister()
}

type fixedKeys int

func (f fixedKeys) Len() int { return int(f) }

func TestKeyspaceCollector(t *testing.T) {
	c := NewKeyspaceCollector(fixedKeys(42))

	want := `
# HELP respkv_keys Keys held in memory, including expired keys not yet swept.
# TYPE respkv_keys gauge
respkv_keys 42
`
	if err := testutil.CollectAndCompare(c, strings.NewReader(want)); err != nil {
		t.Error(err)
	}
}

func TestHandler(t *testing.T) {
	r := NewRegistry()
	r.MustRegister(NewKeyspaceCollector(fixedKeys(3)))
	r.SetHandshakeState(3)

	srv := httptest.NewServer(r.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	if err != nil {
		t.Fatalf("GET /metrics: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	body, _ := io.ReadAll(resp.Body)
	for _, want := range []string{"respkv_keys 3", "respkv_replica_handshake_state 3", "go_goroutines"} {
		if !strings.Contains(string(body), want) {
			t.Errorf("metrics output missing %q", want)
		}
	}
}

func TestNewServer(t *testing.T) {
	srv := NewRegistry().NewServer("127.0.0.1:0")
	if srv.Addr != "127.0.0.1:0" {
		t.Errorf("Addr = %q", srv.Addr)
	}

	rec := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("GET /metrics status = %d", rec.Code)
	}
}
