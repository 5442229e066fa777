package pulse

import "time"

// Evaluator names accepted by Config.Evaluator.
const (
	EvaluatorRandom = "random"
	EvaluatorICMP   = "icmp"
	EvaluatorTCP    = "tcp"
)

// Config tunes the reconciliation loop and the liveness evaluator.
type Config struct {
	Interval        time.Duration `mapstructure:"interval"`
	// DeviceTimeout bounds one device's evaluation and persistence. Zero
	// leaves it to the evaluator's own timeouts. A tick itself has no
	// deadline; an overrunning tick makes the next one skip.
	DeviceTimeout   time.Duration `mapstructure:"device_timeout"`
	MaxWorkers      int           `mapstructure:"max_workers"`
	NotifyWorkers   int           `mapstructure:"notify_workers"`
	Evaluator       string        `mapstructure:"evaluator"`
	FlipProbability float64       `mapstructure:"flip_probability"`
	PingTimeout     time.Duration `mapstructure:"ping_timeout"`
	PingCount       int           `mapstructure:"ping_count"`
	Privileged      bool          `mapstructure:"privileged"`
	TCPPort         int           `mapstructure:"tcp_port"`
	TCPTimeout      time.Duration `mapstructure:"tcp_timeout"`
}

// DefaultConfig returns the reconciler defaults: a 5s interval and the
// random evaluator.
func DefaultConfig() Config {
	return Config{
		Interval:        5 * time.Second,
		MaxWorkers:      16,
		NotifyWorkers:   4,
		Evaluator:       EvaluatorRandom,
		FlipProbability: 0.1,
		PingTimeout:     2 * time.Second,
		PingCount:       1,
		TCPPort:         80,
		TCPTimeout:      2 * time.Second,
	}
}

// withDefaults fills zero-valued fields from DefaultConfig.
func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.Interval <= 0 {
		c.Interval = d.Interval
	}
	if c.MaxWorkers <= 0 {
		c.MaxWorkers = d.MaxWorkers
	}
	if c.NotifyWorkers <= 0 {
		c.NotifyWorkers = d.NotifyWorkers
	}
	if c.Evaluator == "" {
		c.Evaluator = d.Evaluator
	}
	if c.PingTimeout <= 0 {
		c.PingTimeout = d.PingTimeout
	}
	if c.PingCount <= 0 {
		c.PingCount = d.PingCount
	}
	if c.TCPPort <= 0 {
		c.TCPPort = d.TCPPort
	}
	if c.TCPTimeout <= 0 {
		c.TCPTimeout = d.TCPTimeout
	}
	return c
}
