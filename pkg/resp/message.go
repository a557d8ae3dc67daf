// Package resp implements the RESP2 wire format used by respkv.
//
// A Message is a tagged value: status line, error line, bulk payload,
// null bulk, array, or a raw pre-framed fragment. Decode works against
// whatever bytes are currently buffered and reports ErrIncomplete when a
// frame is cut short, so callers can read more and retry.
package resp

import (
	"strconv"
	"strings"
)

// Kind identifies the variant held by a Message.
type Kind uint8

const (
	KindSimple Kind = iota + 1
	KindError
	KindBulk
	KindNull
	KindArray
	// KindRaw is emitted verbatim by Encode and is never produced by Decode.
	KindRaw
)

func (k Kind) String() string {
	switch k {
	case KindSimple:
		return "simple"
	case KindError:
		return "error"
	case KindBulk:
		return "bulk"
	case KindNull:
		return "null"
	case KindArray:
		return "array"
	case KindRaw:
		return "raw"
	default:
		return "kind(" + strconv.Itoa(int(k)) + ")"
	}
}

// Message is a single RESP value.
type Message struct {
	Kind  Kind
	Str   string
	Items []Message
}

// Simple returns a status line message ("+OK").
func Simple(s string) Message { return Message{Kind: KindSimple, Str: s} }

// Error returns an error line message ("-ERR ...").
func Error(s string) Message { return Message{Kind: KindError, Str: s} }

// Bulk returns a length-prefixed payload.
func Bulk(s string) Message { return Message{Kind: KindBulk, Str: s} }

// Null returns the null bulk marker ("$-1").
func Null() Message { return Message{Kind: KindNull} }

// Array returns an ordered list of messages.
func Array(items ...Message) Message { return Message{Kind: KindArray, Items: items} }

// Raw returns a fragment that Encode writes unmodified. The caller owns any
// framing inside s.
func Raw(s string) Message { return Message{Kind: KindRaw, Str: s} }

// BulkArray builds an array of bulk strings, the shape clients use for commands.
func BulkArray(parts ...string) Message {
	items := make([]Message, len(parts))
	for i, p := range parts {
		items[i] = Bulk(p)
	}
	return Array(items...)
}

// IsNull reports whether m is the null bulk marker.
func (m Message) IsNull() bool { return m.Kind == KindNull }

// Text returns the string payload of simple, error, bulk and raw messages.
func (m Message) Text() (string, bool) {
	switch m.Kind {
	case KindSimple, KindError, KindBulk, KindRaw:
		return m.Str, true
	default:
		return "", false
	}
}

// Equal reports whether two messages have the same kind and content.
// A nil and an empty Items slice compare equal.
func (m Message) Equal(o Message) bool {
	if m.Kind != o.Kind {
		return false
	}
	switch m.Kind {
	case KindArray:
		if len(m.Items) != len(o.Items) {
			return false
		}
		for i := range m.Items {
			if !m.Items[i].Equal(o.Items[i]) {
				return false
			}
		}
		return true
	case KindNull:
		return true
	default:
		return m.Str == o.Str
	}
}

// String renders m for logs and test failures.
func (m Message) String() string {
	switch m.Kind {
	case KindSimple:
		return "+" + m.Str
	case KindError:
		return "-" + m.Str
	case KindBulk:
		return strconv.Quote(m.Str)
	case KindNull:
		return "(nil)"
	case KindRaw:
		return "raw" + strconv.Quote(m.Str)
	case KindArray:
		var b strings.Builder
		b.WriteByte('[')
		for i, it := range m.Items {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(it.String())
		}
		b.WriteByte(']')
		return b.String()
	default:
		return m.Kind.String()
	}
}
