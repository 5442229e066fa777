package mqtt

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"

	"github.com/HerbHall/devwatch/internal/event"
	"github.com/HerbHall/devwatch/internal/pulse"
	"github.com/HerbHall/devwatch/internal/testutil"
	"github.com/HerbHall/devwatch/pkg/models"
	"github.com/HerbHall/devwatch/pkg/plugin"
)

type fakeToken struct {
	err error
}

func (t *fakeToken) Wait() bool                     { return true }
func (t *fakeToken) WaitTimeout(time.Duration) bool { return true }
func (t *fakeToken) Error() error                   { return t.err }

func (t *fakeToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}

type published struct {
	topic   string
	retain  bool
	payload string
}

type fakeClient struct {
	connected  bool
	connectErr error
	publishErr error

	mu    sync.Mutex
	msgs  []published
	disco int
}

func (c *fakeClient) Connect() pahomqtt.Token {
	if c.connectErr == nil {
		c.connected = true
	}
	return &fakeToken{err: c.connectErr}
}

func (c *fakeClient) IsConnected() bool { return c.connected }

func (c *fakeClient) Publish(topic string, _ byte, retained bool, payload interface{}) pahomqtt.Token {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.msgs = append(c.msgs, published{topic: topic, retain: retained, payload: string(payload.([]byte))})
	return &fakeToken{err: c.publishErr}
}

func (c *fakeClient) Disconnect(uint) {
	c.disco++
	c.connected = false
}

func (c *fakeClient) topics() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, 0, len(c.msgs))
	for _, m := range c.msgs {
		out = append(out, m.topic)
	}
	return out
}

func (c *fakeClient) find(topic string) (published, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, m := range c.msgs {
		if m.topic == topic {
			return m, true
		}
	}
	return published{}, false
}

func startedBridge(t *testing.T, cfg Config, client *fakeClient) *Bridge {
	t.Helper()
	b := New(cfg, zap.NewNop())
	b.newClient = func(*pahomqtt.ClientOptions) Client { return client }
	if err := b.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	return b
}

func statusEvent(device models.Device, online bool) plugin.Event {
	seen := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	device.IsOnline = online
	device.LastSeen = &seen
	return plugin.Event{
		Topic:     pulse.TopicDeviceStatusChanged,
		Source:    "pulse",
		Timestamp: seen,
		Payload: pulse.DeviceStatusEvent{
			Device: device,
			Change: models.StatusChange{DeviceID: device.ID, IsOnline: online, LastSeen: seen},
		},
	}
}

func testBridgeConfig() Config {
	cfg := DefaultConfig()
	cfg.BrokerURL = "tcp://broker:1883"
	return cfg
}

func TestStart_NoOpWithEmptyBrokerURL(t *testing.T) {
	b := New(DefaultConfig(), zap.NewNop())
	called := false
	b.newClient = func(*pahomqtt.ClientOptions) Client {
		called = true
		return &fakeClient{}
	}

	if err := b.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if called {
		t.Error("client created without a broker URL")
	}
	if h := b.Health(context.Background()); h.Status != "healthy" {
		t.Errorf("Health = %+v, want healthy no-op", h)
	}
}

func TestStart_ConnectFailureIsNotFatal(t *testing.T) {
	client := &fakeClient{connectErr: errors.New("connection refused")}
	b := startedBridge(t, testBridgeConfig(), client)

	if h := b.Health(context.Background()); h.Status != "degraded" {
		t.Errorf("Health = %+v, want degraded", h)
	}
}

func TestAttach_PublishesStatusChanges(t *testing.T) {
	client := &fakeClient{}
	b := startedBridge(t, testBridgeConfig(), client)
	bus := event.NewBus(zap.NewNop())
	unsubscribe := b.Attach(bus)
	defer unsubscribe()

	dev := testutil.NewDevice(testutil.WithID("dev-1"))
	if err := bus.Publish(context.Background(), statusEvent(dev, true)); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	state, ok := client.find("devwatch/device/dev-1/online")
	if !ok {
		t.Fatalf("no state message; topics = %v", client.topics())
	}
	if state.payload != "ON" || !state.retain {
		t.Errorf("state = %+v, want retained ON", state)
	}

	status, ok := client.find("devwatch/device/dev-1/status")
	if !ok {
		t.Fatal("no status message")
	}
	var msg models.StatusMessage
	if err := json.Unmarshal([]byte(status.payload), &msg); err != nil {
		t.Fatalf("decode status payload: %v", err)
	}
	if msg.Type != models.MessageTypeDeviceStatus || msg.DeviceID != "dev-1" || !msg.IsOnline {
		t.Errorf("status message = %+v", msg)
	}

	for _, topic := range client.topics() {
		if strings.HasPrefix(topic, "homeassistant/") {
			t.Errorf("discovery published with HA disabled: %s", topic)
		}
	}
}

func TestAttach_HADiscoveryOncePerDevice(t *testing.T) {
	client := &fakeClient{}
	cfg := testBridgeConfig()
	cfg.HADiscovery = true
	b := startedBridge(t, cfg, client)
	bus := event.NewBus(zap.NewNop())
	b.Attach(bus)

	dev := testutil.NewDevice(testutil.WithID("dev-1"), testutil.WithCategory(models.CategoryPrinter))
	_ = bus.Publish(context.Background(), statusEvent(dev, true))
	_ = bus.Publish(context.Background(), statusEvent(dev, false))

	discovery := 0
	for _, topic := range client.topics() {
		if topic == "homeassistant/binary_sensor/devwatch_dev_1/online/config" {
			discovery++
		}
	}
	if discovery != 1 {
		t.Errorf("online discovery published %d times, want 1", discovery)
	}
	if cat, ok := client.find("devwatch/device/dev-1/category"); !ok || cat.payload != "printer" {
		t.Errorf("category state = %+v, %v", cat, ok)
	}
}

func TestHandleStatusChanged_IgnoresWhenDisconnected(t *testing.T) {
	client := &fakeClient{}
	b := startedBridge(t, testBridgeConfig(), client)
	client.connected = false

	b.handleStatusChanged(context.Background(), statusEvent(testutil.NewDevice(), true))

	if n := len(client.topics()); n != 0 {
		t.Errorf("published %d messages while disconnected", n)
	}
}

func TestHandleStatusChanged_IgnoresForeignPayload(t *testing.T) {
	client := &fakeClient{}
	b := startedBridge(t, testBridgeConfig(), client)

	b.handleStatusChanged(context.Background(), plugin.Event{Topic: pulse.TopicDeviceStatusChanged, Payload: "nope"})

	if n := len(client.topics()); n != 0 {
		t.Errorf("published %d messages for a foreign payload", n)
	}
}

func TestStop_Disconnects(t *testing.T) {
	client := &fakeClient{}
	b := startedBridge(t, testBridgeConfig(), client)

	if h := b.Health(context.Background()); h.Status != "healthy" {
		t.Errorf("Health = %+v, want healthy", h)
	}
	if err := b.Stop(context.Background()); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if client.disco != 1 {
		t.Errorf("Disconnect called %d times, want 1", client.disco)
	}
}
