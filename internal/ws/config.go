package ws

import "time"

// Config tunes the push endpoint and the hub.
type Config struct {
	// Path is the well-known push endpoint path.
	Path string `mapstructure:"path"`
	// SendTimeout is how long Hub.Publish waits for room in a full
	// connection queue before dropping the connection.
	SendTimeout time.Duration `mapstructure:"send_timeout"`
	// WriteTimeout bounds one frame write on the socket.
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	// QueueSize is the per-connection send queue length. A queue that stays
	// full for SendTimeout marks the connection as a slow consumer.
	QueueSize int `mapstructure:"queue_size"`
	// AllowedOrigins are host patterns accepted on upgrade. Empty accepts any origin.
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// DefaultConfig returns the push endpoint defaults.
func DefaultConfig() Config {
	return Config{
		Path:         "/ws",
		SendTimeout:  2 * time.Second,
		WriteTimeout: 5 * time.Second,
		QueueSize:    256,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.Path == "" {
		c.Path = d.Path
	}
	if c.SendTimeout <= 0 {
		c.SendTimeout = d.SendTimeout
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = d.WriteTimeout
	}
	if c.QueueSize <= 0 {
		c.QueueSize = d.QueueSize
	}
	return c
}
