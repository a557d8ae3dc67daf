package command

import (
	"bytes"
	"context"
	"net"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/yndnr/respkv/internal/server/redisserver"
	"github.com/yndnr/respkv/internal/storage/memory"
	"github.com/yndnr/respkv/internal/telemetry/logger"
)

// startServer runs a respkv server on a loopback port for the test.
func startServer(t *testing.T) int {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen() error = %v", err)
	}
	h := redisserver.NewCommandHandler(memory.New(), redisserver.WithLogger(logger.Discard()))
	s := redisserver.New(redisserver.DefaultConfig(), h, logger.Discard(), nil)
	go s.Serve(context.Background(), ln)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = s.Shutdown(ctx)
	})
	return ln.Addr().(*net.TCPAddr).Port
}

func runCLI(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())

	app := App()
	var out bytes.Buffer
	app.Writer = &out
	app.ErrWriter = &out
	app.Reader = strings.NewReader(stdin)

	err := app.Run(append([]string{"respkv-cli"}, args...))
	return out.String(), err
}

func TestApp(t *testing.T) {
	app := App()
	if app.Name != "respkv-cli" {
		t.Errorf("Name = %q, want respkv-cli", app.Name)
	}

	flagNames := make(map[string]bool)
	for _, flag := range app.Flags {
		flagNames[flag.Names()[0]] = true
	}
	for _, name := range []string{"host", "port", "timeout", "output", "raw"} {
		if !flagNames[name] {
			t.Errorf("missing flag: %s", name)
		}
	}
}

func TestApp_OneShot(t *testing.T) {
	port := strconv.Itoa(startServer(t))

	tests := []struct {
		name string
		args []string
		want string
	}{
		{name: "ping", args: []string{"PING"}, want: "PONG\n"},
		{name: "set", args: []string{"SET", "color", "teal"}, want: "OK\n"},
		{name: "get", args: []string{"GET", "color"}, want: "teal\n"},
		{name: "overwrite", args: []string{"set", "color", "navy"}, want: "(nil)\n"},
		{name: "echo", args: []string{"ECHO", "two words"}, want: "\"two words\"\n"},
		{name: "missing", args: []string{"GET", "nothing"}, want: "(nil)\n"},
		{name: "unknown", args: []string{"NOPE"}, want: "(error) ERR unknown command 'nope'\n"},
		{name: "raw", args: []string{"--raw", "ECHO", "plain"}, want: "plain\n"},
		{name: "json", args: []string{"-o", "json", "GET", "nothing"}, want: "null\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := append([]string{"-p", port}, tt.args...)
			got, err := runCLI(t, "", args...)
			if err != nil {
				t.Fatalf("Run(%v) error = %v", args, err)
			}
			if got != tt.want {
				t.Errorf("Run(%v) output = %q, want %q", args, got, tt.want)
			}
		})
	}
}

func TestApp_Info(t *testing.T) {
	port := strconv.Itoa(startServer(t))
	got, err := runCLI(t, "", "-p", port, "--raw", "INFO")
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if !strings.Contains(got, "role:master\n") || !strings.HasPrefix(got, "# Replication") {
		t.Errorf("INFO output = %q", got)
	}
}

func TestApp_Interactive(t *testing.T) {
	port := startServer(t)
	got, err := runCLI(t, "SET k \"a b\"\nGET k\nECHO 'x\nquit\n", "-p", strconv.Itoa(port))
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	prompt := "127.0.0.1:" + strconv.Itoa(port) + "> "
	for _, want := range []string{prompt + "OK\n", "a b\n", "Invalid argument(s)"} {
		if !strings.Contains(got, want) {
			t.Errorf("output %q missing %q", got, want)
		}
	}
}

func TestApp_Errors(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen() error = %v", err)
	}
	closedPort := strconv.Itoa(ln.Addr().(*net.TCPAddr).Port)
	_ = ln.Close()

	tests := []struct {
		name string
		args []string
	}{
		{name: "bad output", args: []string{"-o", "table", "PING"}},
		{name: "bad port", args: []string{"-p", "0", "PING"}},
		{name: "connection refused", args: []string{"-p", closedPort, "-t", "500ms", "PING"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := runCLI(t, "", tt.args...); err == nil {
				t.Errorf("Run(%v) expected error", tt.args)
			}
		})
	}
}
