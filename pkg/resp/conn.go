package resp

import (
	"context"
	"net"
	"time"
)

// Conn is the client side of a RESP connection.
type Conn struct {
	nc net.Conn
	r  *Reader
	w  *Writer
}

// Dial connects to addr, honouring ctx for the dial only.
func Dial(ctx context.Context, addr string) (*Conn, error) {
	var d net.Dialer
	nc, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, err
	}
	return NewConn(nc), nil
}

// NewConn wraps an established connection.
func NewConn(nc net.Conn) *Conn {
	return &Conn{nc: nc, r: NewReader(nc), w: NewWriter(nc)}
}

// Send writes and flushes msgs in order without waiting for replies.
func (c *Conn) Send(msgs ...Message) error {
	for _, m := range msgs {
		if err := c.w.WriteMessage(m); err != nil {
			return err
		}
	}
	return c.w.Flush()
}

// Receive reads the next message from the peer.
func (c *Conn) Receive() (Message, error) {
	return c.r.ReadMessage()
}

// Do sends a command and waits for its reply.
func (c *Conn) Do(args ...string) (Message, error) {
	if err := c.Send(BulkArray(args...)); err != nil {
		return Message{}, err
	}
	return c.Receive()
}

// SetDeadline applies to both reads and writes.
func (c *Conn) SetDeadline(t time.Time) error {
	return c.nc.SetDeadline(t)
}

// RemoteAddr returns the peer address.
func (c *Conn) RemoteAddr() net.Addr {
	return c.nc.RemoteAddr()
}

// Close closes the connection.
func (c *Conn) Close() error {
	return c.nc.Close()
}
