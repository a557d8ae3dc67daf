package command

import (
	"context"
	"fmt"
	"io"
	"net"
	"strconv"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/respkv/internal/cli/output"
	"github.com/yndnr/respkv/internal/cli/repl"
	"github.com/yndnr/respkv/internal/infra/buildinfo"
	"github.com/yndnr/respkv/pkg/resp"
)

// App creates the CLI application.
func App() *cli.App {
	return &cli.App{
		Name:            "respkv-cli",
		Usage:           "respkv command-line client",
		UsageText:       "respkv-cli [options] [command [arg ...]]",
		Version:         buildinfo.String(),
		Flags:           globalFlags(),
		Action:          run,
		HideHelpCommand: true,
	}
}

// globalFlags returns the global CLI flags.
func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "host",
			Aliases: []string{"H"},
			Usage:   "server hostname",
			EnvVars: []string{"RESPKV_HOST"},
			Value:   "127.0.0.1",
		},
		&cli.IntFlag{
			Name:    "port",
			Aliases: []string{"p"},
			Usage:   "server port",
			EnvVars: []string{"RESPKV_PORT"},
			Value:   6379,
		},
		&cli.DurationFlag{
			Name:    "timeout",
			Aliases: []string{"t"},
			Usage:   "connect and per-command timeout (0 disables)",
			Value:   5 * time.Second,
		},
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "output format: text, raw, json, yaml",
			Value:   string(output.FormatText),
		},
		&cli.BoolFlag{
			Name:  "raw",
			Usage: "shorthand for --output raw",
		},
	}
}

// GlobalFlags holds the parsed global flags.
type GlobalFlags struct {
	Host    string
	Port    int
	Timeout time.Duration
	Output  output.Format
}

// Addr returns host:port.
func (g *GlobalFlags) Addr() string {
	return net.JoinHostPort(g.Host, strconv.Itoa(g.Port))
}

// ParseGlobalFlags extracts global flags from context.
func ParseGlobalFlags(c *cli.Context) (*GlobalFlags, error) {
	format, err := output.ParseFormat(c.String("output"))
	if err != nil {
		return nil, err
	}
	if c.Bool("raw") {
		format = output.FormatRaw
	}
	port := c.Int("port")
	if port <= 0 || port > 65535 {
		return nil, fmt.Errorf("invalid port %d", port)
	}
	return &GlobalFlags{
		Host:    c.String("host"),
		Port:    port,
		Timeout: c.Duration("timeout"),
		Output:  format,
	}, nil
}

// Connect dials the server named by flags.
func Connect(ctx context.Context, flags *GlobalFlags) (*resp.Conn, error) {
	if flags.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, flags.Timeout)
		defer cancel()
	}
	conn, err := resp.Dial(ctx, flags.Addr())
	if err != nil {
		return nil, fmt.Errorf("could not connect to %s: %w", flags.Addr(), err)
	}
	return conn, nil
}

// Do sends args as one command and waits at most timeout for the reply.
func Do(conn *resp.Conn, timeout time.Duration, args []string) (resp.Message, error) {
	if timeout > 0 {
		if err := conn.SetDeadline(time.Now().Add(timeout)); err != nil {
			return resp.Message{}, err
		}
	}
	return conn.Do(args...)
}

func run(c *cli.Context) error {
	flags, err := ParseGlobalFlags(c)
	if err != nil {
		return err
	}

	conn, err := Connect(c.Context, flags)
	if err != nil {
		return err
	}
	defer conn.Close()

	f := output.NewFormatter(flags.Output)
	if c.NArg() > 0 {
		return execute(c.App.Writer, conn, f, flags.Timeout, c.Args().Slice())
	}
	return interactive(c.App.Reader, c.App.Writer, conn, f, flags)
}

func execute(w io.Writer, conn *resp.Conn, f output.Formatter, timeout time.Duration, args []string) error {
	reply, err := Do(conn, timeout, args)
	if err != nil {
		return err
	}
	return f.Format(w, reply)
}

func interactive(r io.Reader, w io.Writer, conn *resp.Conn, f output.Formatter, flags *GlobalFlags) error {
	history := repl.NewHistory(repl.DefaultHistoryFile())
	_ = history.Load()
	defer func() { _ = history.Save() }()

	exec := func(args []string) (string, error) {
		reply, err := Do(conn, flags.Timeout, args)
		if err != nil {
			return "", err
		}
		return output.Sprint(f, reply)
	}

	return repl.New(exec,
		repl.WithInput(r),
		repl.WithOutput(w),
		repl.WithPrompt(flags.Addr()+"> "),
		repl.WithHistory(history),
	).Run()
}
