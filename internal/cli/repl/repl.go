package repl

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// ErrUnbalancedQuotes is returned by SplitArgs for an unterminated quote.
var ErrUnbalancedQuotes = errors.New("unbalanced quotes")

// Executor runs one command and returns the text to print.
type Executor func(args []string) (string, error)

// REPL represents the Read-Eval-Print Loop.
type REPL struct {
	input   io.Reader
	output  io.Writer
	prompt  string
	exec    Executor
	history *History
}

// Option configures a REPL.
type Option func(*REPL)

// WithInput sets where lines are read from.
func WithInput(in io.Reader) Option {
	return func(r *REPL) { r.input = in }
}

// WithOutput sets where prompts and results are written.
func WithOutput(out io.Writer) Option {
	return func(r *REPL) { r.output = out }
}

// WithPrompt sets the prompt text.
func WithPrompt(p string) Option {
	return func(r *REPL) { r.prompt = p }
}

// WithHistory records entered lines in h.
func WithHistory(h *History) Option {
	return func(r *REPL) { r.history = h }
}

// New creates a new REPL instance.
func New(exec Executor, opts ...Option) *REPL {
	r := &REPL{
		input:   os.Stdin,
		output:  os.Stdout,
		prompt:  "respkv> ",
		exec:    exec,
		history: NewHistory(""),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run reads lines until EOF, "exit" or "quit".
func (r *REPL) Run() error {
	reader := bufio.NewReader(r.input)

	for {
		fmt.Fprint(r.output, r.prompt)

		line, err := reader.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return err
		}
		eof := errors.Is(err, io.EOF)

		line = strings.TrimSpace(line)
		if line == "" {
			if eof {
				fmt.Fprintln(r.output)
				return nil
			}
			continue
		}

		r.history.Add(line)
		if strings.EqualFold(line, "exit") || strings.EqualFold(line, "quit") {
			return nil
		}

		r.execute(line)
		if eof {
			return nil
		}
	}
}

func (r *REPL) execute(line string) {
	args, err := SplitArgs(line)
	if err != nil {
		fmt.Fprintf(r.output, "Invalid argument(s): %v\n", err)
		return
	}
	out, err := r.exec(args)
	if err != nil {
		fmt.Fprintf(r.output, "Error: %v\n", err)
		return
	}
	fmt.Fprintln(r.output, out)
}

// SplitArgs splits line into words.
func SplitArgs(line string) ([]string, error) {
	var (
		args    []string
		cur     strings.Builder
		inWord  bool
		quote   byte
		escaped bool
	)

	for i := 0; i < len(line); i++ {
		ch := line[i]
		switch {
		case escaped:
			cur.WriteByte(unescape(ch))
			escaped = false
		case quote == '"' && ch == '\\':
			escaped = true
		case quote != 0 && ch == quote:
			quote = 0
		case quote != 0:
			cur.WriteByte(ch)
		case ch == '"' || ch == '\'':
			quote = ch
			inWord = true
		case ch == ' ' || ch == '\t':
			if inWord {
				args = append(args, cur.String())
				cur.Reset()
				inWord = false
			}
		default:
			cur.WriteByte(ch)
			inWord = true
		}
	}

	if quote != 0 || escaped {
		return nil, ErrUnbalancedQuotes
	}
	if inWord {
		args = append(args, cur.String())
	}
	return args, nil
}

func unescape(ch byte) byte {
	switch ch {
	case 'n':
		return '\n'
	case 'r':
		return '\r'
	case 't':
		return '\t'
	default:
		return ch
	}
}
