// Package webhook POSTs device status changes to a configured HTTP endpoint.
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/HerbHall/devwatch/internal/pulse"
	"github.com/HerbHall/devwatch/internal/version"
	"github.com/HerbHall/devwatch/pkg/models"
	"github.com/HerbHall/devwatch/pkg/plugin"
)

var deliveriesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
	Namespace: "devwatch",
	Subsystem: "webhook",
	Name:      "deliveries_total",
	Help:      "Webhook deliveries by result.",
}, []string{"result"})

func init() {
	prometheus.MustRegister(deliveriesTotal)
}

// Config holds the webhook configuration. An empty URL disables delivery.
type Config struct {
	URL     string        `mapstructure:"url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// DefaultConfig returns the webhook defaults.
func DefaultConfig() Config {
	return Config{Timeout: 10 * time.Second}
}

// Payload is the JSON body sent to the webhook URL.
type Payload struct {
	Event     string               `json:"event"`
	Source    string               `json:"source"`
	Timestamp string               `json:"timestamp"`
	Device    DeviceInfo           `json:"device"`
	Status    models.StatusMessage `json:"status"`
}

// DeviceInfo identifies the device in a Payload.
type DeviceInfo struct {
	ID       string                `json:"id"`
	Name     string                `json:"name"`
	Address  string                `json:"address,omitempty"`
	Category models.DeviceCategory `json:"category"`
}

// Notifier forwards pulse.TopicDeviceStatusChanged events to the webhook URL.
type Notifier struct {
	cfg    Config
	logger *zap.Logger
	client *http.Client
}

// New creates a Notifier.
func New(cfg Config, logger *zap.Logger) *Notifier {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultConfig().Timeout
	}
	return &Notifier{
		cfg:    cfg,
		logger: logger,
		client: &http.Client{Timeout: cfg.Timeout},
	}
}

// Enabled reports whether a URL is configured.
func (n *Notifier) Enabled() bool { return n.cfg.URL != "" }

// Attach subscribes the notifier to status-change events on bus.
func (n *Notifier) Attach(bus plugin.Subscriber) (unsubscribe func()) {
	return bus.Subscribe(pulse.TopicDeviceStatusChanged, n.handleEvent)
}

func (n *Notifier) handleEvent(ctx context.Context, event plugin.Event) {
	if !n.Enabled() {
		return
	}
	ev, ok := event.Payload.(pulse.DeviceStatusEvent)
	if !ok {
		return
	}

	payload := Payload{
		Event:     event.Topic,
		Source:    event.Source,
		Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
		Device: DeviceInfo{
			ID:       ev.Device.ID,
			Name:     ev.Device.Name,
			Address:  ev.Device.Address,
			Category: ev.Device.Category,
		},
		Status: ev.Change.Message(),
	}

	body, err := json.Marshal(payload)
	if err != nil {
		n.logger.Error("failed to marshal webhook payload",
			zap.String("topic", event.Topic),
			zap.Error(err),
		)
		deliveriesTotal.WithLabelValues("error").Inc()
		return
	}

	n.send(ctx, body, ev.Change.DeviceID)
}

func (n *Notifier) send(ctx context.Context, body []byte, deviceID string) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.cfg.URL, bytes.NewReader(body))
	if err != nil {
		n.logger.Error("failed to create webhook request", zap.Error(err))
		deliveriesTotal.WithLabelValues("error").Inc()
		return
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "devwatch-webhook/"+version.Short())

	resp, err := n.client.Do(req)
	if err != nil {
		n.logger.Warn("webhook delivery failed",
			zap.String("device_id", deviceID),
			zap.Error(err),
		)
		deliveriesTotal.WithLabelValues("error").Inc()
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		n.logger.Warn("webhook endpoint returned error",
			zap.String("device_id", deviceID),
			zap.Int("status_code", resp.StatusCode),
		)
		deliveriesTotal.WithLabelValues("rejected").Inc()
		return
	}

	n.logger.Debug("webhook delivered",
		zap.String("device_id", deviceID),
		zap.Int("status_code", resp.StatusCode),
	)
	deliveriesTotal.WithLabelValues("ok").Inc()
}
