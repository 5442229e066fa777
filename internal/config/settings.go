package config

import (
	"fmt"
	"time"

	"github.com/HerbHall/devwatch/internal/mqtt"
	"github.com/HerbHall/devwatch/internal/notify"
	"github.com/HerbHall/devwatch/internal/pulse"
	"github.com/HerbHall/devwatch/internal/server"
	"github.com/HerbHall/devwatch/internal/webhook"
	"github.com/HerbHall/devwatch/internal/ws"
	"github.com/HerbHall/devwatch/pkg/plugin"
)

// Settings is the fully decoded configuration tree.
type Settings struct {
	Server   server.Config  `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Pulse    pulse.Config   `mapstructure:"pulse"`
	WS       ws.Config      `mapstructure:"ws"`
	Notify   notify.Config  `mapstructure:"notify"`
	MQTT     mqtt.Config    `mapstructure:"mqtt"`
	Webhook  webhook.Config `mapstructure:"webhook"`
	Client   ClientConfig   `mapstructure:"client"`
	Seed     SeedConfig     `mapstructure:"seed"`
}

type DatabaseConfig struct {
	// Path of the SQLite file. ":memory:" keeps everything in process.
	Path string `mapstructure:"path"`
}

type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
}

// ClientConfig configures the watch command.
type ClientConfig struct {
	URL            string        `mapstructure:"url"`
	APIURL         string        `mapstructure:"api_url"`
	ReconnectDelay time.Duration `mapstructure:"reconnect_delay"`
}

type SeedConfig struct {
	// Demo seeds demo groups, devices and users on serve start.
	Demo bool `mapstructure:"demo"`
}

// Decode unmarshals the whole tree, environment overrides included.
func Decode(c plugin.Config) (*Settings, error) {
	var s Settings
	if err := c.Unmarshal(&s); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	return &s, nil
}
