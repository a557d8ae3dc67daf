package output

import (
	"io"
	"strconv"
	"strings"

	"github.com/yndnr/respkv/pkg/resp"
)

// TextFormatter renders replies the way redis-cli does on a terminal.
type TextFormatter struct{}

// Format writes m followed by a newline.
func (f *TextFormatter) Format(w io.Writer, m resp.Message) error {
	var b strings.Builder
	writeText(&b, m, 0)
	b.WriteByte('\n')
	_, err := io.WriteString(w, b.String())
	return err
}

func writeText(b *strings.Builder, m resp.Message, indent int) {
	switch m.Kind {
	case resp.KindSimple:
		b.WriteString(m.Str)
	case resp.KindError:
		b.WriteString("(error) ")
		b.WriteString(m.Str)
	case resp.KindBulk, resp.KindRaw:
		b.WriteString(strconv.Quote(m.Str))
	case resp.KindNull:
		b.WriteString("(nil)")
	case resp.KindArray:
		if len(m.Items) == 0 {
			b.WriteString("(empty array)")
			return
		}
		width := len(strconv.Itoa(len(m.Items)))
		for i, it := range m.Items {
			if i > 0 {
				b.WriteByte('\n')
				b.WriteString(strings.Repeat(" ", indent))
			}
			num := strconv.Itoa(i + 1)
			prefix := strings.Repeat(" ", width-len(num)) + num + ") "
			b.WriteString(prefix)
			writeText(b, it, indent+len(prefix))
		}
	}
}

// RawFormatter prints payloads without quoting, one array item per line.
type RawFormatter struct{}

// Format writes m followed by a newline.
func (f *RawFormatter) Format(w io.Writer, m resp.Message) error {
	var b strings.Builder
	writeRaw(&b, m)
	b.WriteByte('\n')
	_, err := io.WriteString(w, b.String())
	return err
}

func writeRaw(b *strings.Builder, m resp.Message) {
	switch m.Kind {
	case resp.KindArray:
		for i, it := range m.Items {
			if i > 0 {
				b.WriteByte('\n')
			}
			writeRaw(b, it)
		}
	case resp.KindNull:
	default:
		b.WriteString(m.Str)
	}
}
