package confloader

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/yndnr/respkv/internal/telemetry/logger"
)

func TestNewWatcher_MissingDir(t *testing.T) {
	if _, err := NewWatcher("/nonexistent/dir/respkv.yaml"); err == nil {
		t.Error("NewWatcher() expected error for missing directory")
	}
}

func TestWatcher_StopTwice(t *testing.T) {
	w, err := NewWatcher(filepath.Join(t.TempDir(), "respkv.yaml"), WithWatcherLogger(logger.Discard()))
	if err != nil {
		t.Fatalf("NewWatcher() error = %v", err)
	}
	if err := w.Stop(); err != nil {
		t.Errorf("Stop() error = %v", err)
	}
	if err := w.Stop(); err != nil {
		t.Errorf("second Stop() error = %v", err)
	}
}

func TestWatcher_OnChange(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "respkv.yaml")
	if err := os.WriteFile(path, []byte("log:\n  level: info\n"), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	w, err := NewWatcher(path, WithDebounce(10*time.Millisecond), WithWatcherLogger(logger.Discard()))
	if err != nil {
		t.Fatalf("NewWatcher() error = %v", err)
	}
	defer w.Stop()

	changed := make(chan string, 4)
	w.OnChange(func(p string) { changed <- p })
	w.StartAsync()

	// A sibling file must not trigger the callback.
	if err := os.WriteFile(filepath.Join(dir, "other.yaml"), []byte("x: 1\n"), 0o644); err != nil {
		t.Fatalf("WriteFile(other) error = %v", err)
	}
	select {
	case p := <-changed:
		t.Fatalf("callback fired for unrelated file: %s", p)
	case <-time.After(100 * time.Millisecond):
	}

	if err := os.WriteFile(path, []byte("log:\n  level: debug\n"), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	select {
	case p := <-changed:
		if p != path {
			t.Errorf("callback path = %q, want %q", p, path)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("callback not called after config write")
	}
}
