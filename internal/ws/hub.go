// Package ws fans device status changes out to connected viewers over
// WebSocket.
package ws

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/HerbHall/devwatch/pkg/models"
)

// Hub tracks open viewer connections and broadcasts to them. It is safe for
// concurrent use. Connections that are closed or fail a send are removed.
type Hub struct {
	mu          sync.RWMutex
	conns       map[Conn]struct{}
	sendTimeout time.Duration
	logger      *zap.Logger
}

// NewHub creates an empty hub with the default send timeout.
func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		conns:       make(map[Conn]struct{}),
		sendTimeout: DefaultConfig().SendTimeout,
		logger:      logger,
	}
}

// SetSendTimeout overrides the per-connection send bound used by Publish.
func (h *Hub) SetSendTimeout(d time.Duration) {
	if d <= 0 {
		return
	}
	h.mu.Lock()
	h.sendTimeout = d
	h.mu.Unlock()
}

// Register adds c to the broadcast set.
func (h *Hub) Register(c Conn) {
	h.mu.Lock()
	_, exists := h.conns[c]
	h.conns[c] = struct{}{}
	h.mu.Unlock()
	if !exists {
		connectedClients.Inc()
	}
	h.logger.Debug("websocket client connected", zap.String("conn_id", c.ID()))
}

// Unregister removes c and closes it. Unregistering an unknown or
// already-removed connection is a no-op.
func (h *Hub) Unregister(c Conn) {
	if h.remove(c) {
		h.logger.Debug("websocket client disconnected", zap.String("conn_id", c.ID()))
	}
}

func (h *Hub) remove(c Conn) bool {
	h.mu.Lock()
	_, ok := h.conns[c]
	if ok {
		delete(h.conns, c)
	}
	h.mu.Unlock()
	if ok {
		connectedClients.Dec()
		c.Close() //nolint:errcheck // Close is idempotent and best-effort
	}
	return ok
}

// Publish broadcasts change as a device_status message and returns the
// number of connections it was queued on.
func (h *Hub) Publish(change models.StatusChange) int {
	payload, err := encodeStatus(change)
	if err != nil {
		h.logger.Error("encode status change", zap.String("device_id", change.DeviceID), zap.Error(err))
		return 0
	}
	return h.Broadcast(payload)
}

// Broadcast sends payload to every registered connection. The set is
// snapshotted first so registration never waits on a slow send. A failing
// connection is pruned and does not affect delivery to the others.
func (h *Hub) Broadcast(payload []byte) int {
	h.mu.RLock()
	snapshot := make([]Conn, 0, len(h.conns))
	for c := range h.conns {
		snapshot = append(snapshot, c)
	}
	timeout := h.sendTimeout
	h.mu.RUnlock()

	delivered := 0
	for _, c := range snapshot {
		if !c.Open() {
			sendFailures.WithLabelValues("closed").Inc()
			h.remove(c)
			continue
		}
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		err := c.Send(ctx, payload)
		cancel()
		if err != nil {
			sendFailures.WithLabelValues(failureReason(err)).Inc()
			h.logger.Debug("dropping websocket client after failed send",
				zap.String("conn_id", c.ID()),
				zap.Error(err),
			)
			h.remove(c)
			continue
		}
		messagesSent.Inc()
		delivered++
	}
	return delivered
}

// ClientCount returns the number of registered connections.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns)
}

// Close unregisters and closes every connection.
func (h *Hub) Close() {
	h.mu.RLock()
	snapshot := make([]Conn, 0, len(h.conns))
	for c := range h.conns {
		snapshot = append(snapshot, c)
	}
	h.mu.RUnlock()
	for _, c := range snapshot {
		h.remove(c)
	}
}

func failureReason(err error) string {
	switch {
	case errors.Is(err, ErrSlowConsumer):
		return "slow_consumer"
	case errors.Is(err, ErrConnClosed):
		return "closed"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	default:
		return "error"
	}
}
