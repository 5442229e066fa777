package ws

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/coder/websocket"
	"go.uber.org/zap"
)

var (
	// ErrConnClosed is returned by Send on a connection that has been closed.
	ErrConnClosed = errors.New("connection closed")
	// ErrSlowConsumer is returned by Send when the connection's queue is full.
	ErrSlowConsumer = errors.New("connection send queue full")
)

// Conn is one viewer connection as seen by the Hub.
type Conn interface {
	ID() string
	// Open reports whether the connection can still accept messages.
	Open() bool
	// Send queues payload for delivery. Messages sent to one Conn are
	// delivered in Send order. When the queue is full Send waits for room
	// until ctx is done and then fails with ErrSlowConsumer.
	Send(ctx context.Context, payload []byte) error
	// Close is idempotent.
	Close() error
}

// Compile-time interface guard.
var _ Conn = (*socketConn)(nil)

// socketConn adapts a WebSocket to Conn. Send only enqueues; a single
// writer goroutine drains the queue so frames leave in FIFO order.
type socketConn struct {
	id           string
	conn         *websocket.Conn
	send         chan []byte
	closed       chan struct{}
	closeOnce    sync.Once
	writeTimeout time.Duration
	logger       *zap.Logger
}

func newSocketConn(id string, conn *websocket.Conn, cfg Config, logger *zap.Logger) *socketConn {
	return &socketConn{
		id:           id,
		conn:         conn,
		send:         make(chan []byte, cfg.QueueSize),
		closed:       make(chan struct{}),
		writeTimeout: cfg.WriteTimeout,
		logger:       logger,
	}
}

func (c *socketConn) ID() string { return c.id }

func (c *socketConn) Open() bool {
	select {
	case <-c.closed:
		return false
	default:
		return true
	}
}

func (c *socketConn) Send(ctx context.Context, payload []byte) error {
	if !c.Open() {
		return ErrConnClosed
	}
	select {
	case c.send <- payload:
		return nil
	default:
	}
	select {
	case c.send <- payload:
		return nil
	case <-c.closed:
		return ErrConnClosed
	case <-ctx.Done():
		return fmt.Errorf("%w: %w", ErrSlowConsumer, ctx.Err())
	}
}

// Close marks the connection closed. The writer goroutine tears the socket down.
func (c *socketConn) Close() error {
	c.closeOnce.Do(func() { close(c.closed) })
	return nil
}

// writePump sends queued frames until the connection is closed or a write fails.
func (c *socketConn) writePump(ctx context.Context) {
	defer func() {
		c.Close()
		c.conn.CloseNow() //nolint:errcheck // best-effort teardown
	}()
	for {
		select {
		case <-ctx.Done():
			return
		case <-c.closed:
			c.conn.Close(websocket.StatusNormalClosure, "") //nolint:errcheck // peer may already be gone
			return
		case payload := <-c.send:
			writeCtx, cancel := context.WithTimeout(ctx, c.writeTimeout)
			err := c.conn.Write(writeCtx, websocket.MessageText, payload)
			cancel()
			if err != nil {
				c.logger.Debug("websocket write error", zap.String("conn_id", c.id), zap.Error(err))
				return
			}
		}
	}
}

// readPump drains incoming frames to detect disconnect. Client messages
// are ignored.
func (c *socketConn) readPump(ctx context.Context) {
	for {
		if _, _, err := c.conn.Read(ctx); err != nil {
			return
		}
	}
}
