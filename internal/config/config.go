// Package config loads devwatch settings with Viper and exposes them through
// the plugin.Config interface.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/HerbHall/devwatch/pkg/plugin"
)

// EnvPrefix prefixes environment overrides: DW_PULSE_INTERVAL=10s.
const EnvPrefix = "DW"

// Compile-time interface guard.
var _ plugin.Config = (*ViperConfig)(nil)

// ViperConfig wraps a Viper instance to implement plugin.Config.
type ViperConfig struct {
	v *viper.Viper
}

// New creates a Config backed by the given Viper instance.
// Returns the concrete type; callers assign to plugin.Config where needed.
func New(v *viper.Viper) *ViperConfig {
	if v == nil {
		v = viper.New()
	}
	return &ViperConfig{v: v}
}

// Load reads configuration from configPath, or from devwatch.yaml in the
// usual search paths when configPath is empty, layered over the defaults and
// under DW_ environment overrides. A missing default config file is not an error.
func Load(configPath string) (*ViperConfig, error) {
	v := viper.New()
	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("devwatch")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("/etc/devwatch")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}
	return New(v), nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_header_timeout", "10s")
	v.SetDefault("server.shutdown_timeout", "10s")
	v.SetDefault("server.rate_limit", 20.0)
	v.SetDefault("server.rate_burst", 40)

	v.SetDefault("database.path", "./data/devwatch.db")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.file", "")
	v.SetDefault("logging.max_size_mb", 10)
	v.SetDefault("logging.max_backups", 5)
	v.SetDefault("logging.max_age_days", 28)

	v.SetDefault("pulse.interval", "5s")
	v.SetDefault("pulse.device_timeout", "0s")
	v.SetDefault("pulse.max_workers", 16)
	v.SetDefault("pulse.notify_workers", 4)
	v.SetDefault("pulse.evaluator", "random")
	v.SetDefault("pulse.flip_probability", 0.1)
	v.SetDefault("pulse.ping_timeout", "2s")
	v.SetDefault("pulse.ping_count", 1)
	v.SetDefault("pulse.privileged", false)
	v.SetDefault("pulse.tcp_port", 80)
	v.SetDefault("pulse.tcp_timeout", "2s")

	v.SetDefault("ws.path", "/ws")
	v.SetDefault("ws.send_timeout", "2s")
	v.SetDefault("ws.write_timeout", "5s")
	v.SetDefault("ws.queue_size", 256)
	v.SetDefault("ws.allowed_origins", []string{})

	v.SetDefault("notify.smtp_host", "")
	v.SetDefault("notify.smtp_port", 587)
	v.SetDefault("notify.username", "")
	v.SetDefault("notify.password", "")
	v.SetDefault("notify.from", "devwatch@localhost")
	v.SetDefault("notify.tls_policy", "mandatory")
	v.SetDefault("notify.timeout", "10s")
	v.SetDefault("notify.verify_on_start", true)

	v.SetDefault("mqtt.broker_url", "")
	v.SetDefault("mqtt.username", "")
	v.SetDefault("mqtt.password", "")
	v.SetDefault("mqtt.client_id", "devwatch")
	v.SetDefault("mqtt.topic_prefix", "devwatch")
	v.SetDefault("mqtt.qos", 1)
	v.SetDefault("mqtt.retain", true)
	v.SetDefault("mqtt.timeout", "10s")
	v.SetDefault("mqtt.ha_discovery", false)
	v.SetDefault("mqtt.ha_discovery_prefix", "homeassistant")

	v.SetDefault("webhook.url", "")
	v.SetDefault("webhook.timeout", "10s")

	v.SetDefault("client.url", "ws://localhost:8080/ws")
	v.SetDefault("client.api_url", "http://localhost:8080")
	v.SetDefault("client.reconnect_delay", "5s")

	v.SetDefault("seed.demo", false)
}

func (c *ViperConfig) Unmarshal(target any) error {
	return c.v.Unmarshal(target)
}

func (c *ViperConfig) Get(key string) any {
	return c.v.Get(key)
}

func (c *ViperConfig) GetString(key string) string {
	return c.v.GetString(key)
}

func (c *ViperConfig) GetInt(key string) int {
	return c.v.GetInt(key)
}

func (c *ViperConfig) GetBool(key string) bool {
	return c.v.GetBool(key)
}

func (c *ViperConfig) GetDuration(key string) time.Duration {
	return c.v.GetDuration(key)
}

func (c *ViperConfig) IsSet(key string) bool {
	return c.v.IsSet(key)
}

// Sub returns the subtree under key. Environment overrides are not visible
// through Sub; decode whole settings with Decode when they matter.
func (c *ViperConfig) Sub(key string) plugin.Config {
	sub := c.v.Sub(key)
	if sub == nil {
		return New(nil)
	}
	return New(sub)
}

// Viper returns the underlying Viper instance for direct access
// (e.g., by the logger factory).
func (c *ViperConfig) Viper() *viper.Viper {
	return c.v
}

// ConfigFileUsed returns the path of the file that was read, if any.
func (c *ViperConfig) ConfigFileUsed() string {
	return c.v.ConfigFileUsed()
}
