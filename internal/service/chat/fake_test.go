package chat

import (
	"context"
	"errors"
	"io"
	"sync"

	"github.com/zhouzirui/coursehub/internal/transport/ws"
)

var errConnClosed = errors.New("use of closed connection")

type fakeConn struct {
	inbound chan string
	drop    chan error
	closed  chan struct{}
	once    sync.Once

	mu       sync.Mutex
	written  []string
	writeErr error
}

func newFakeConn() *fakeConn {
	return &fakeConn{
		inbound: make(chan string),
		drop:    make(chan error),
		closed:  make(chan struct{}),
	}
}

func (c *fakeConn) ReadFrame() (string, error) {
	select {
	case frame, ok := <-c.inbound:
		if !ok {
			return "", io.EOF
		}
		return frame, nil
	case err := <-c.drop:
		return "", err
	case <-c.closed:
		return "", errConnClosed
	}
}

func (c *fakeConn) WriteFrame(text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.writeErr != nil {
		return c.writeErr
	}
	c.written = append(c.written, text)
	return nil
}

func (c *fakeConn) Close() error {
	c.once.Do(func() { close(c.closed) })
	return nil
}

// deliver blocks until the session's reader has taken the frame.
func (c *fakeConn) deliver(frame string) {
	c.inbound <- frame
}

func (c *fakeConn) fail(err error) {
	c.drop <- err
}

func (c *fakeConn) frames() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.written...)
}

func (c *fakeConn) isClosed() bool {
	select {
	case <-c.closed:
		return true
	default:
		return false
	}
}

type fakeDialer struct {
	gate chan struct{}
	err  error

	mu    sync.Mutex
	rooms []string
	conns []*fakeConn
}

func (d *fakeDialer) Dial(ctx context.Context, roomID string) (ws.Conn, error) {
	d.mu.Lock()
	d.rooms = append(d.rooms, roomID)
	d.mu.Unlock()

	if d.gate != nil {
		select {
		case <-d.gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if d.err != nil {
		return nil, d.err
	}

	c := newFakeConn()
	d.mu.Lock()
	d.conns = append(d.conns, c)
	d.mu.Unlock()
	return c, nil
}

func (d *fakeDialer) dials() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.rooms)
}

func (d *fakeDialer) conn(i int) *fakeConn {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.conns[i]
}

// lateDialer ignores cancellation so a connection can arrive after Close.
type lateDialer struct {
	release chan struct{}
	conn    *fakeConn
}

func (d *lateDialer) Dial(context.Context, string) (ws.Conn, error) {
	<-d.release
	return d.conn, nil
}
