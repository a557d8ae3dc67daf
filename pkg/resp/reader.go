package resp

import (
	"bufio"
	"errors"
	"io"
)

const defaultReadSize = 4096

// Reader decodes a stream of messages. It keeps undecoded bytes between
// calls, so a frame split across reads and several pipelined frames in one
// read are both handled.
type Reader struct {
	rd     io.Reader
	limits Limits
	buf    []byte
	start  int
	chunk  int
}

// NewReader returns a Reader using DefaultLimits.
func NewReader(rd io.Reader) *Reader {
	return NewReaderLimits(rd, DefaultLimits)
}

// NewReaderLimits returns a Reader enforcing l.
func NewReaderLimits(rd io.Reader, l Limits) *Reader {
	return &Reader{rd: rd, limits: l, chunk: defaultReadSize}
}

// Buffered returns the number of read but not yet decoded bytes.
func (r *Reader) Buffered() int {
	return len(r.buf) - r.start
}

// Peek blocks until at least one undecoded byte is buffered and returns it
// without consuming it.
func (r *Reader) Peek() (byte, error) {
	if r.Buffered() == 0 {
		if err := r.fill(); err != nil {
			return 0, err
		}
	}
	return r.buf[r.start], nil
}

// ReadMessage returns the next complete message.
//
// io.EOF is returned only when the stream ends on a frame boundary; a stream
// that ends mid-frame yields io.ErrUnexpectedEOF.
func (r *Reader) ReadMessage() (Message, error) {
	for {
		if r.Buffered() > 0 {
			m, n, err := r.limits.Decode(r.buf[r.start:])
			if err == nil {
				r.start += n
				if r.start == len(r.buf) {
					r.buf, r.start = r.buf[:0], 0
				}
				return m, nil
			}
			if !errors.Is(err, ErrIncomplete) {
				return Message{}, err
			}
		}
		if err := r.fill(); err != nil {
			if errors.Is(err, io.EOF) && r.Buffered() > 0 {
				return Message{}, io.ErrUnexpectedEOF
			}
			return Message{}, err
		}
	}
}

// fill reads at least one more byte into the buffer.
func (r *Reader) fill() error {
	if r.start > 0 {
		n := copy(r.buf, r.buf[r.start:])
		r.buf, r.start = r.buf[:n], 0
	}
	if cap(r.buf)-len(r.buf) < r.chunk {
		grown := make([]byte, len(r.buf), 2*cap(r.buf)+r.chunk)
		copy(grown, r.buf)
		r.buf = grown
	}
	for {
		n, err := r.rd.Read(r.buf[len(r.buf):cap(r.buf)])
		r.buf = r.buf[:len(r.buf)+n]
		if n > 0 {
			return nil
		}
		if err != nil {
			return err
		}
	}
}

// Writer buffers encoded messages until Flush.
type Writer struct {
	bw      *bufio.Writer
	scratch []byte
}

// NewWriter returns a Writer on top of w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{bw: bufio.NewWriter(w)}
}

// WriteMessage encodes m into the write buffer.
func (w *Writer) WriteMessage(m Message) error {
	w.scratch = Append(w.scratch[:0], m)
	_, err := w.bw.Write(w.scratch)
	return err
}

// Flush writes any buffered data to the underlying writer.
func (w *Writer) Flush() error {
	return w.bw.Flush()
}
