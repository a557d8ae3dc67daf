package shutdown

import (
	"context"
	"errors"
	"sync"
	"syscall"
	"testing"
	"time"
)

func TestNewHandler(t *testing.T) {
	h := NewHandler(5 * time.Second)
	if h.timeout != 5*time.Second {
		t.Errorf("timeout = %v, want 5s", h.timeout)
	}

	h = NewHandler(0)
	if h.timeout != DefaultTimeout {
		t.Errorf("timeout = %v, want %v", h.timeout, DefaultTimeout)
	}

	select {
	case <-h.Done():
		t.Error("Done channel should not be closed initially")
	default:
	}
}

func recordHooks(h *Handler, n int) (*[]int, *sync.Mutex) {
	order := make([]int, 0, n)
	var mu sync.Mutex
	for i := 1; i <= n; i++ {
		id := i
		h.OnShutdown(func(ctx context.Context) error {
			mu.Lock()
			order = append(order, id)
			mu.Unlock()
			return nil
		})
	}
	return &order, &mu
}

func waitAsync(h *Handler) <-chan error {
	errCh := make(chan error, 1)
	go func() { errCh <- h.Wait() }()
	return errCh
}

func TestHandler_Trigger(t *testing.T) {
	h := NewHandler(time.Second)
	order, mu := recordHooks(h, 3)

	errCh := waitAsync(h)
	h.Trigger()
	h.Trigger()

	select {
	case err := <-errCh:
		if err != nil {
			t.Errorf("Wait() error = %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Wait() did not complete in time")
	}

	mu.Lock()
	defer mu.Unlock()
	want := []int{3, 2, 1}
	if len(*order) != len(want) {
		t.Fatalf("hooks called = %v, want %v", *order, want)
	}
	for i := range want {
		if (*order)[i] != want[i] {
			t.Fatalf("hooks called = %v, want %v", *order, want)
		}
	}

	select {
	case <-h.Done():
	default:
		t.Error("Done channel should be closed after Wait completes")
	}
}

func TestHandler_Wait_WithSignal(t *testing.T) {
	h := NewHandler(time.Second)
	order, mu := recordHooks(h, 2)

	errCh := waitAsync(h)
	// Give Wait time to install the signal handler.
	time.Sleep(50 * time.Millisecond)
	if err := syscall.Kill(syscall.Getpid(), syscall.SIGTERM); err != nil {
		t.Fatalf("Kill() error = %v", err)
	}

	select {
	case err := <-errCh:
		if err != nil {
			t.Errorf("Wait() error = %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Wait() did not complete in time")
	}

	mu.Lock()
	defer mu.Unlock()
	if len(*order) != 2 || (*order)[0] != 2 {
		t.Errorf("hooks called = %v, want [2 1]", *order)
	}
}

func TestHandler_HookErrors(t *testing.T) {
	h := NewHandler(time.Second)

	errA := errors.New("hook a")
	errB := errors.New("hook b")
	ran := false

	h.OnShutdown(func(ctx context.Context) error { ran = true; return nil })
	h.OnShutdown(func(ctx context.Context) error { return errA })
	h.OnShutdown(func(ctx context.Context) error { return errB })

	errCh := waitAsync(h)
	h.Trigger()

	err := <-errCh
	if !errors.Is(err, errA) || !errors.Is(err, errB) {
		t.Errorf("Wait() error = %v, want both hook errors", err)
	}
	if !ran {
		t.Error("hook after a failing hook did not run")
	}
}

func TestHandler_HookDeadline(t *testing.T) {
	h := NewHandler(50 * time.Millisecond)
	h.OnShutdown(func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})

	errCh := waitAsync(h)
	h.Trigger()

	select {
	case err := <-errCh:
		if !errors.Is(err, context.DeadlineExceeded) {
			t.Errorf("Wait() error = %v, want deadline exceeded", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("hook context was not cancelled by the timeout")
	}
}

func TestHandler_ConcurrentOnShutdown(t *testing.T) {
	h := NewHandler(time.Second)

	var wg sync.WaitGroup
	const n = 10
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			h.OnShutdown(func(ctx context.Context) error { return nil })
		}()
	}
	wg.Wait()

	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.hooks) != n {
		t.Errorf("expected %d hooks, got %d", n, len(h.hooks))
	}
}
