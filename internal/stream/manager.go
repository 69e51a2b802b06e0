// Package stream manages the single live event connection of a session.
package stream

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"

	"aidebate/internal/sse"
)

var ErrClosed = errors.New("stream closed")

// Opener establishes the underlying HTTP stream.
type Opener func(ctx context.Context) (io.ReadCloser, error)

// Delivery is one item produced by a connection: a frame, a terminal error,
// or the end-of-stream marker. ConnID identifies the producing connection so
// the receiver can drop deliveries from connections it no longer wants.
type Delivery struct {
	ConnID uint64
	Frame  sse.Frame
	Err    error
	Done   bool
}

// Sink receives deliveries on the connection's reader goroutine. It must not
// block for long; typically it forwards into the owner's event loop.
type Sink func(Delivery)

// Conn is one open event stream.
type Conn struct {
	id     uint64
	cancel context.CancelFunc

	mu     sync.Mutex
	body   io.ReadCloser
	closed bool
	once   sync.Once
	done   chan struct{}
}

func (c *Conn) ID() uint64 { return c.id }

// Done is closed once the reader goroutine has exited.
func (c *Conn) Done() <-chan struct{} { return c.done }

// Close cancels the connection. It is safe to call any number of times.
func (c *Conn) Close() {
	c.once.Do(func() {
		c.cancel()
		c.mu.Lock()
		c.closed = true
		body := c.body
		c.mu.Unlock()
		if body != nil {
			body.Close()
		}
	})
}

func (c *Conn) setBody(body io.ReadCloser) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	c.body = body
	return true
}

// Manager enforces that at most one connection is open at a time.
type Manager struct {
	logger *slog.Logger

	mu      sync.Mutex
	nextID  uint64
	current *Conn
}

func NewManager(logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{logger: logger}
}

// Open closes any existing connection and starts a new one. Frames are
// parsed with a fresh parser and handed to sink in arrival order, followed
// by exactly one terminal delivery (Err or Done) unless the connection was
// closed first.
func (m *Manager) Open(ctx context.Context, open Opener, sink Sink) *Conn {
	m.mu.Lock()
	if m.current != nil {
		m.current.Close()
	}
	m.nextID++
	ctx, cancel := context.WithCancel(ctx)
	conn := &Conn{id: m.nextID, cancel: cancel, done: make(chan struct{})}
	m.current = conn
	m.mu.Unlock()

	go m.read(ctx, conn, open, sink)
	return conn
}

func (m *Manager) read(ctx context.Context, conn *Conn, open Opener, sink Sink) {
	defer close(conn.done)
	defer conn.Close()

	logger := m.logger.With("conn", conn.id)

	body, err := open(ctx)
	if err != nil {
		if ctx.Err() == nil {
			sink(Delivery{ConnID: conn.id, Err: err})
		}
		return
	}
	if !conn.setBody(body) {
		body.Close()
		return
	}
	logger.Debug("stream connected")

	for frame, err := range sse.Frames(ctx, body, logger) {
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			sink(Delivery{ConnID: conn.id, Err: err})
			return
		}
		sink(Delivery{ConnID: conn.id, Frame: frame})
	}
	if ctx.Err() == nil {
		logger.Debug("stream ended")
		sink(Delivery{ConnID: conn.id, Done: true})
	}
}

// Active returns the ID of the open connection, or 0.
func (m *Manager) Active() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == nil {
		return 0
	}
	return m.current.id
}

// IsActive reports whether id is the current open connection.
func (m *Manager) IsActive(id uint64) bool {
	return id != 0 && m.Active() == id
}

// Close closes the current connection, if any. Idempotent.
func (m *Manager) Close() {
	m.mu.Lock()
	conn := m.current
	m.current = nil
	m.mu.Unlock()
	if conn != nil {
		conn.Close()
	}
}

// CloseConn closes the connection only if it is still the current one.
func (m *Manager) CloseConn(id uint64) {
	m.mu.Lock()
	conn := m.current
	if conn == nil || conn.id != id {
		m.mu.Unlock()
		return
	}
	m.current = nil
	m.mu.Unlock()
	conn.Close()
}
