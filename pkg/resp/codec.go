package resp

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"
)

var (
	// ErrProtocol marks bytes that can never become a valid frame.
	ErrProtocol = errors.New("resp: protocol error")
	// ErrIncomplete means the buffer ends inside a frame; read more and retry.
	ErrIncomplete = errors.New("resp: incomplete frame")
	// ErrLimitExceeded marks a frame larger than the configured Limits.
	ErrLimitExceeded = errors.New("resp: limit exceeded")
)

var crlf = []byte("\r\n")

// Limits bounds what the decoder accepts from a peer. A zero field means
// no cap on that dimension.
type Limits struct {
	// MaxLineLen caps a status, error or header line, CRLF excluded.
	MaxLineLen int
	// MaxBulkLen caps a single bulk payload.
	MaxBulkLen int
	// MaxArrayLen caps the element count of one array.
	MaxArrayLen int
	// MaxDepth caps array nesting.
	MaxDepth int
}

// DefaultLimits mirrors the proto-max-bulk-len and multibulk caps of Redis.
var DefaultLimits = Limits{
	MaxLineLen:  64 * 1024,
	MaxBulkLen:  512 * 1024 * 1024,
	MaxArrayLen: 1024 * 1024,
	MaxDepth:    128,
}

// Decode parses one message from the front of buf using DefaultLimits and
// returns it together with the number of bytes it occupied.
func Decode(buf []byte) (Message, int, error) {
	return DefaultLimits.Decode(buf)
}

// Decode parses one message from the front of buf.
//
// An empty buffer, a header without its CRLF, or a bulk payload shorter than
// its declared length all yield ErrIncomplete. Anything else that does not
// parse yields ErrProtocol.
func (l Limits) Decode(buf []byte) (Message, int, error) {
	return l.decode(buf, 0)
}

func (l Limits) decode(buf []byte, depth int) (Message, int, error) {
	if len(buf) == 0 {
		return Message{}, 0, ErrIncomplete
	}
	switch buf[0] {
	case '+':
		line, n, err := l.readLine(buf)
		if err != nil {
			return Message{}, 0, err
		}
		return Simple(string(line)), n, nil
	case '-':
		line, n, err := l.readLine(buf)
		if err != nil {
			return Message{}, 0, err
		}
		return Error(string(line)), n, nil
	case '$':
		return l.decodeBulk(buf)
	case '*':
		return l.decodeArray(buf, depth)
	default:
		return Message{}, 0, fmt.Errorf("%w: unexpected type byte %q", ErrProtocol, buf[0])
	}
}

func (l Limits) decodeBulk(buf []byte) (Message, int, error) {
	size, off, err := l.readLength(buf)
	if err != nil {
		return Message{}, 0, err
	}
	switch {
	case size == -1:
		return Null(), off, nil
	case size < 0:
		return Message{}, 0, fmt.Errorf("%w: invalid bulk length %d", ErrProtocol, size)
	case l.MaxBulkLen > 0 && size > int64(l.MaxBulkLen):
		return Message{}, 0, fmt.Errorf("%w: bulk length %d exceeds limit %d", ErrLimitExceeded, size, l.MaxBulkLen)
	}
	// The two bytes after the payload are the CRLF terminator; they are
	// consumed without being checked.
	if size > int64(len(buf)-off-2) {
		return Message{}, 0, ErrIncomplete
	}
	end := off + int(size)
	return Bulk(string(buf[off:end])), end + 2, nil
}

func (l Limits) decodeArray(buf []byte, depth int) (Message, int, error) {
	if l.MaxDepth > 0 && depth >= l.MaxDepth {
		return Message{}, 0, fmt.Errorf("%w: array nesting exceeds %d", ErrLimitExceeded, l.MaxDepth)
	}
	count, off, err := l.readLength(buf)
	if err != nil {
		return Message{}, 0, err
	}
	switch {
	case count == -1:
		// Null array. Commands never carry one, so it reads as empty.
		return Array(), off, nil
	case count < 0:
		return Message{}, 0, fmt.Errorf("%w: invalid array length %d", ErrProtocol, count)
	case l.MaxArrayLen > 0 && count > int64(l.MaxArrayLen):
		return Message{}, 0, fmt.Errorf("%w: array length %d exceeds limit %d", ErrLimitExceeded, count, l.MaxArrayLen)
	}

	items := make([]Message, 0, min(count, 64))
	for i := int64(0); i < count; i++ {
		item, n, err := l.decode(buf[off:], depth+1)
		if err != nil {
			return Message{}, 0, err
		}
		items = append(items, item)
		off += n
	}
	return Message{Kind: KindArray, Items: items}, off, nil
}

// readLine returns the text between the type byte and the first CRLF pair,
// and the number of bytes up to and including that CRLF.
func (l Limits) readLine(buf []byte) ([]byte, int, error) {
	i := bytes.Index(buf[1:], crlf)
	if i < 0 {
		if l.MaxLineLen > 0 && len(buf)-1 > l.MaxLineLen {
			return nil, 0, fmt.Errorf("%w: line length exceeds limit %d", ErrLimitExceeded, l.MaxLineLen)
		}
		return nil, 0, ErrIncomplete
	}
	if l.MaxLineLen > 0 && i > l.MaxLineLen {
		return nil, 0, fmt.Errorf("%w: line length exceeds limit %d", ErrLimitExceeded, l.MaxLineLen)
	}
	return buf[1 : 1+i], i + 3, nil
}

func (l Limits) readLength(buf []byte) (int64, int, error) {
	line, n, err := l.readLine(buf)
	if err != nil {
		return 0, 0, err
	}
	v, err := strconv.ParseInt(string(line), 10, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: invalid length %q", ErrProtocol, line)
	}
	return v, n, nil
}

// Encode serializes m. It never fails; a zero Message encodes as null bulk.
func Encode(m Message) []byte {
	return Append(nil, m)
}

// Append appends the wire form of m to dst.
func Append(dst []byte, m Message) []byte {
	switch m.Kind {
	case KindSimple:
		dst = append(dst, '+')
		dst = append(dst, m.Str...)
		return append(dst, crlf...)
	case KindError:
		dst = append(dst, '-')
		dst = append(dst, m.Str...)
		return append(dst, crlf...)
	case KindBulk:
		dst = append(dst, '$')
		dst = strconv.AppendInt(dst, int64(len(m.Str)), 10)
		dst = append(dst, crlf...)
		dst = append(dst, m.Str...)
		return append(dst, crlf...)
	case KindArray:
		dst = append(dst, '*')
		dst = strconv.AppendInt(dst, int64(len(m.Items)), 10)
		dst = append(dst, crlf...)
		for _, it := range m.Items {
			dst = Append(dst, it)
		}
		return dst
	case KindRaw:
		return append(dst, m.Str...)
	default:
		return append(dst, "$-1\r\n"...)
	}
}
