package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/yndnr/respkv/pkg/resp"
)

// Format represents the output format.
type Format string

const (
	FormatText Format = "text"
	FormatRaw  Format = "raw"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ParseFormat validates a format name.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case FormatText, FormatRaw, FormatJSON, FormatYAML:
		return f, nil
	default:
		return "", fmt.Errorf("unknown output format %q (text, raw, json, yaml)", s)
	}
}

// Formatter writes one reply.
type Formatter interface {
	Format(w io.Writer, m resp.Message) error
}

// NewFormatter creates a formatter for the given format.
func NewFormatter(format Format) Formatter {
	switch format {
	case FormatRaw:
		return &RawFormatter{}
	case FormatJSON:
		return &JSONFormatter{}
	case FormatYAML:
		return &YAMLFormatter{}
	default:
		return &TextFormatter{}
	}
}

// Sprint renders m with f and drops the trailing newline.
func Sprint(f Formatter, m resp.Message) (string, error) {
	var b strings.Builder
	if err := f.Format(&b, m); err != nil {
		return "", err
	}
	return strings.TrimSuffix(b.String(), "\n"), nil
}

// toValue converts m into plain Go values for the structured formats.
func toValue(m resp.Message) any {
	switch m.Kind {
	case resp.KindNull:
		return nil
	case resp.KindError:
		return map[string]string{"error": m.Str}
	case resp.KindArray:
		items := make([]any, len(m.Items))
		for i, it := range m.Items {
			items[i] = toValue(it)
		}
		return items
	default:
		return m.Str
	}
}
