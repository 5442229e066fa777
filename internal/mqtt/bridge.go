// Package mqtt republishes device status changes to an MQTT broker, with
// optional Home Assistant auto-discovery.
package mqtt

import (
	"context"
	"encoding/json"
	"sync"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"

	"github.com/HerbHall/devwatch/internal/pulse"
	"github.com/HerbHall/devwatch/pkg/models"
	"github.com/HerbHall/devwatch/pkg/plugin"
)

// Client is the subset of the paho client the bridge uses.
type Client interface {
	Connect() pahomqtt.Token
	IsConnected() bool
	Publish(topic string, qos byte, retained bool, payload interface{}) pahomqtt.Token
	Disconnect(quiesce uint)
}

// Compile-time interface guard.
var _ Client = pahomqtt.Client(nil)

// Bridge forwards pulse.TopicDeviceStatusChanged events from the bus to MQTT.
type Bridge struct {
	cfg       Config
	logger    *zap.Logger
	newClient func(*pahomqtt.ClientOptions) Client

	mu        sync.RWMutex
	client    Client
	announced map[string]bool
}

// New creates a bridge. It does nothing until Start connects it.
func New(cfg Config, logger *zap.Logger) *Bridge {
	return &Bridge{
		cfg:    cfg,
		logger: logger,
		newClient: func(opts *pahomqtt.ClientOptions) Client {
			return pahomqtt.NewClient(opts)
		},
		announced: make(map[string]bool),
	}
}

// Enabled reports whether a broker is configured.
func (b *Bridge) Enabled() bool { return b.cfg.BrokerURL != "" }

// Start connects to the broker. A failed first connection is logged and
// retried in the background by paho's auto-reconnect.
func (b *Bridge) Start(_ context.Context) error {
	if !b.Enabled() {
		b.logger.Info("mqtt bridge disabled (no broker configured)")
		return nil
	}

	opts := pahomqtt.NewClientOptions().
		AddBroker(b.cfg.BrokerURL).
		SetClientID(b.cfg.ClientID).
		SetAutoReconnect(true).
		SetConnectTimeout(b.cfg.Timeout)
	if b.cfg.Username != "" {
		opts.SetUsername(b.cfg.Username)
		opts.SetPassword(b.cfg.Password) //nolint:gosec // G101: config field
	}

	client := b.newClient(opts)
	b.mu.Lock()
	b.client = client
	b.mu.Unlock()

	token := client.Connect()
	switch {
	case !token.WaitTimeout(b.cfg.Timeout):
		b.logger.Warn("mqtt connection timed out; will reconnect in background")
	case token.Error() != nil:
		b.logger.Warn("mqtt connection failed; will reconnect in background", zap.Error(token.Error()))
	default:
		b.logger.Info("mqtt connected to broker", zap.String("broker_url", b.cfg.BrokerURL))
	}
	return nil
}

// Stop disconnects from the broker.
func (b *Bridge) Stop(_ context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.client != nil && b.client.IsConnected() {
		b.client.Disconnect(250)
		b.logger.Info("mqtt disconnected")
	}
	return nil
}

// Attach subscribes the bridge to status-change events on bus.
func (b *Bridge) Attach(bus plugin.Subscriber) (unsubscribe func()) {
	return bus.Subscribe(pulse.TopicDeviceStatusChanged, b.handleStatusChanged)
}

// Health reports the broker connection state.
func (b *Bridge) Health(_ context.Context) plugin.HealthStatus {
	if !b.Enabled() {
		return plugin.HealthStatus{Status: "healthy", Message: "no broker configured (no-op mode)"}
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.client == nil || !b.client.IsConnected() {
		return plugin.HealthStatus{Status: "degraded", Message: "not connected to MQTT broker"}
	}
	return plugin.HealthStatus{Status: "healthy", Message: "connected to " + b.cfg.BrokerURL}
}

func (b *Bridge) handleStatusChanged(_ context.Context, event plugin.Event) {
	ev, ok := event.Payload.(pulse.DeviceStatusEvent)
	if !ok {
		return
	}

	b.mu.RLock()
	client := b.client
	b.mu.RUnlock()
	if client == nil || !client.IsConnected() {
		return
	}

	if b.cfg.HADiscovery {
		b.announce(client, &ev.Device)
	}

	payload, err := json.Marshal(ev.Change.Message())
	if err != nil {
		b.logger.Warn("failed to marshal MQTT payload", zap.Error(err))
		return
	}
	b.publish(client, b.cfg.TopicPrefix+"/device/"+ev.Change.DeviceID+"/status", b.cfg.Retain, payload)
	b.publish(client, DeviceStateTopic(b.cfg.TopicPrefix, ev.Change.DeviceID), true, []byte(onOff(ev.Change.IsOnline)))
}

// announce publishes HA discovery configs and static state once per device.
func (b *Bridge) announce(client Client, device *models.Device) {
	b.mu.Lock()
	done := b.announced[device.ID]
	b.announced[device.ID] = true
	b.mu.Unlock()
	if done {
		return
	}

	for _, cfg := range BuildDeviceDiscoveryConfigs(device, b.cfg.TopicPrefix, b.cfg.HADiscoveryPrefix) {
		// Discovery configs are always retained so HA picks them up on restart.
		b.publish(client, cfg.Topic, true, cfg.Payload)
	}
	prefix := b.cfg.TopicPrefix + "/device/" + device.ID
	b.publish(client, prefix+"/category", true, []byte(device.Category))
	if device.Address != "" {
		b.publish(client, prefix+"/address", true, []byte(device.Address))
	}
}

func (b *Bridge) publish(client Client, topic string, retain bool, payload []byte) {
	token := client.Publish(topic, b.cfg.QoS, retain, payload)
	if !token.WaitTimeout(b.cfg.Timeout) {
		b.logger.Warn("mqtt publish timed out", zap.String("mqtt_topic", topic))
		return
	}
	if token.Error() != nil {
		b.logger.Warn("mqtt publish failed", zap.String("mqtt_topic", topic), zap.Error(token.Error()))
		return
	}
	b.logger.Debug("mqtt published", zap.String("mqtt_topic", topic))
}

func onOff(online bool) string {
	if online {
		return "ON"
	}
	return "OFF"
}
