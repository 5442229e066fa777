package notify

import "time"

// Config holds mail delivery settings. An empty SMTPHost selects LogMailer.
type Config struct {
	SMTPHost string `mapstructure:"smtp_host"`
	SMTPPort int    `mapstructure:"smtp_port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"` //nolint:gosec // G101: config field name, not a credential
	From     string `mapstructure:"from"`
	// TLSPolicy is "mandatory", "opportunistic" or "none".
	TLSPolicy string        `mapstructure:"tls_policy"`
	Timeout   time.Duration `mapstructure:"timeout"`
	// VerifyOnStart dials the SMTP server once at startup and logs the result.
	VerifyOnStart bool `mapstructure:"verify_on_start"`
}

// DefaultConfig returns submission-port defaults with mandatory TLS.
func DefaultConfig() Config {
	return Config{
		SMTPPort:      587,
		From:          "devwatch@localhost",
		TLSPolicy:     "mandatory",
		Timeout:       10 * time.Second,
		VerifyOnStart: true,
	}
}
