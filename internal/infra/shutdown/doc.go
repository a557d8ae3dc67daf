// Package shutdown coordinates graceful process termination.
//
// A Handler waits for SIGINT, SIGTERM or a programmatic Trigger, then runs
// the registered hooks in reverse order of registration under a shared
// timeout. Components register their stop function as they start, so the
// last thing started is the first thing stopped:
//
//	h := shutdown.NewHandler(10 * time.Second)
//	h.OnShutdown(srv.Shutdown)
//	if err := h.Wait(); err != nil { ... }
package shutdown
