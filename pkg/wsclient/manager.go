// Package wsclient keeps a viewer's connection to the devwatch push channel
// alive and maintains a local view of device liveness from the messages it
// receives.
package wsclient

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/HerbHall/devwatch/pkg/models"
)

// Status is the connection state.
type Status int

const (
	StatusDisconnected Status = iota
	StatusConnecting
	StatusConnected
)

func (s Status) String() string {
	switch s {
	case StatusDisconnected:
		return "disconnected"
	case StatusConnecting:
		return "connecting"
	case StatusConnected:
		return "connected"
	default:
		return "unknown"
	}
}

// DefaultReconnectDelay is the fixed wait between a disconnect and the next
// connection attempt.
const DefaultReconnectDelay = 5 * time.Second

// Option configures a Manager.
type Option func(*Manager)

// WithDialer replaces the default WebSocket dialer.
func WithDialer(d Dialer) Option { return func(m *Manager) { m.dialer = d } }

// WithReconnectDelay sets the fixed wait between a drop and the next attempt.
func WithReconnectDelay(d time.Duration) Option {
	return func(m *Manager) {
		if d > 0 {
			m.delay = d
		}
	}
}

// WithLogger sets the logger; the default is a no-op logger.
func WithLogger(l *zap.Logger) Option { return func(m *Manager) { m.logger = l } }

// Manager owns one push connection and the device view it feeds.
type Manager struct {
	url    string
	dialer Dialer
	delay  time.Duration
	logger *zap.Logger

	mu       sync.RWMutex
	status   Status
	view     map[string]models.Device
	onStatus []func(Status)
	onUpdate []func(models.StatusChange)

	closeOnce sync.Once
	closed    chan struct{}
}

// New creates a disconnected manager for url. Call Run to connect.
func New(url string, opts ...Option) *Manager {
	m := &Manager{
		url:    url,
		dialer: WebSocketDialer{},
		delay:  DefaultReconnectDelay,
		logger: zap.NewNop(),
		status: StatusDisconnected,
		view:   make(map[string]models.Device),
		closed: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// OnStatus registers fn to be called on every status change, in order.
func (m *Manager) OnStatus(fn func(Status)) {
	m.mu.Lock()
	m.onStatus = append(m.onStatus, fn)
	m.mu.Unlock()
}

// OnUpdate registers fn to be called after a received change is applied.
func (m *Manager) OnUpdate(fn func(models.StatusChange)) {
	m.mu.Lock()
	m.onUpdate = append(m.onUpdate, fn)
	m.mu.Unlock()
}

// Status returns the current connection state.
func (m *Manager) Status() Status {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.status
}

// Seed replaces the local view with devices, typically from FetchDevices.
// Changes for devices not in the view are ignored.
func (m *Manager) Seed(devices []models.Device) {
	view := make(map[string]models.Device, len(devices))
	for _, d := range devices {
		view[d.ID] = d
	}
	m.mu.Lock()
	m.view = view
	m.mu.Unlock()
}

// Device returns the local copy of one device.
func (m *Manager) Device(id string) (models.Device, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	d, ok := m.view[id]
	return d, ok
}

// Snapshot returns the local view ordered by name.
func (m *Manager) Snapshot() []models.Device {
	m.mu.RLock()
	out := make([]models.Device, 0, len(m.view))
	for _, d := range m.view {
		out = append(out, d)
	}
	m.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Close stops Run: an open channel is closed and a pending reconnect is
// abandoned. Safe to call more than once.
func (m *Manager) Close() {
	m.closeOnce.Do(func() { close(m.closed) })
}

// Run connects and reconnects until ctx is cancelled or Close is called.
// After a disconnect it waits the fixed reconnect delay before the next
// attempt. It always returns with the status disconnected.
func (m *Manager) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-m.closed:
			cancel()
		case <-ctx.Done():
		}
	}()

	for {
		m.setStatus(StatusConnecting)
		stream, err := m.dialer.Dial(ctx, m.url)
		if err != nil {
			if ctx.Err() == nil {
				m.logger.Warn("push channel connect failed", zap.String("url", m.url), zap.Error(err))
			}
		} else {
			m.setStatus(StatusConnected)
			m.logger.Info("push channel connected", zap.String("url", m.url))
			m.consume(ctx, stream)
			stream.Close() //nolint:errcheck // peer may already be gone
		}
		m.setStatus(StatusDisconnected)

		if ctx.Err() != nil {
			return nil
		}

		timer := time.NewTimer(m.delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil
		case <-timer.C:
		}
	}
}

// consume applies frames until the stream fails.
func (m *Manager) consume(ctx context.Context, stream Stream) {
	for {
		data, err := stream.Read(ctx)
		if err != nil {
			if ctx.Err() == nil {
				m.logger.Info("push channel closed", zap.Error(err))
			}
			return
		}
		m.apply(data)
	}
}

func (m *Manager) apply(data []byte) {
	var msg models.StatusMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		m.logger.Warn("malformed push message", zap.Error(err))
		return
	}
	if msg.Type != models.MessageTypeDeviceStatus {
		m.logger.Debug("ignoring push message", zap.String("type", msg.Type))
		return
	}

	change := msg.Change()
	m.mu.Lock()
	d, ok := m.view[change.DeviceID]
	if !ok {
		m.mu.Unlock()
		return
	}
	seen := change.LastSeen
	d.IsOnline = change.IsOnline
	d.LastSeen = &seen
	m.view[change.DeviceID] = d
	hooks := m.onUpdate
	m.mu.Unlock()

	for _, fn := range hooks {
		fn(change)
	}
}

func (m *Manager) setStatus(s Status) {
	m.mu.Lock()
	if m.status == s {
		m.mu.Unlock()
		return
	}
	m.status = s
	hooks := m.onStatus
	m.mu.Unlock()

	for _, fn := range hooks {
		fn(s)
	}
}
