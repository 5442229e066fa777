package notify

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/wneessen/go-mail"
	"go.uber.org/zap"
)

// Mailer delivers one message. Implementations must honour ctx.
type Mailer interface {
	Send(ctx context.Context, to, subject, body string) error
}

// Compile-time interface guards.
var (
	_ Mailer = (*SMTPMailer)(nil)
	_ Mailer = (*LogMailer)(nil)
)

// NewMailer returns an SMTPMailer when an SMTP host is configured and a
// LogMailer otherwise.
func NewMailer(cfg Config, logger *zap.Logger) (Mailer, error) {
	if cfg.SMTPHost == "" {
		logger.Info("no SMTP host configured, notifications will be logged only")
		return NewLogMailer(logger), nil
	}
	return NewSMTPMailer(cfg)
}

// LogMailer writes messages to the log instead of sending them.
type LogMailer struct {
	logger *zap.Logger
}

// NewLogMailer returns a mailer that only logs.
func NewLogMailer(logger *zap.Logger) *LogMailer {
	return &LogMailer{logger: logger}
}

func (m *LogMailer) Send(_ context.Context, to, subject, _ string) error {
	m.logger.Info("notification (log mailer)", zap.String("to", to), zap.String("subject", subject))
	return nil
}

// SMTPMailer sends HTML mail through an SMTP relay. Each Send opens its own
// session, so concurrent sends to different users do not wait on each other.
type SMTPMailer struct {
	host    string
	opts    []mail.Option
	timeout time.Duration
	from    string
	dialer  net.Dialer
}

// NewSMTPMailer validates the settings; it does not dial. Use Verify to test
// the connection.
func NewSMTPMailer(cfg Config) (*SMTPMailer, error) {
	policy, err := parseTLSPolicy(cfg.TLSPolicy)
	if err != nil {
		return nil, err
	}
	opts := []mail.Option{
		mail.WithTLSPolicy(policy),
	}
	if cfg.SMTPPort > 0 {
		opts = append(opts, mail.WithPort(cfg.SMTPPort))
	}
	if cfg.Timeout > 0 {
		opts = append(opts, mail.WithTimeout(cfg.Timeout))
	}
	if cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(cfg.Username),
			mail.WithPassword(cfg.Password),
		)
	}

	if _, err := mail.NewClient(cfg.SMTPHost, opts...); err != nil {
		return nil, fmt.Errorf("create smtp client: %w", err)
	}
	return &SMTPMailer{host: cfg.SMTPHost, opts: opts, timeout: cfg.Timeout, from: cfg.From}, nil
}

// Send delivers one message. ctx bounds the whole SMTP session, including
// the server greeting.
func (m *SMTPMailer) Send(ctx context.Context, to, subject, body string) error {
	msg := mail.NewMsg()
	if err := msg.From(m.from); err != nil {
		return fmt.Errorf("%w: sender %q: %v", ErrInvalidAddress, m.from, err)
	}
	if err := msg.To(to); err != nil {
		return fmt.Errorf("%w: recipient %q: %v", ErrInvalidAddress, to, err)
	}
	msg.Subject(subject)
	msg.SetDate()
	msg.SetBodyString(mail.TypeTextHTML, body)

	client, err := m.newClient(ctx)
	if err != nil {
		return err
	}
	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("smtp send to %s: %w: %v", to, ctxErr, err)
		}
		if errors.Is(err, os.ErrDeadlineExceeded) {
			return fmt.Errorf("smtp send to %s: %w: %v", to, context.DeadlineExceeded, err)
		}
		return fmt.Errorf("smtp send to %s: %w", to, err)
	}
	return nil
}

// Verify dials the server and closes the session.
func (m *SMTPMailer) Verify(ctx context.Context) error {
	client, err := m.newClient(ctx)
	if err != nil {
		return err
	}
	if err := client.DialWithContext(ctx); err != nil {
		return fmt.Errorf("smtp dial: %w", err)
	}
	return client.Close()
}

// newClient builds a client whose connection is tied to ctx.
func (m *SMTPMailer) newClient(ctx context.Context) (*mail.Client, error) {
	opts := append(slices.Clip(m.opts), mail.WithDialContextFunc(m.dialFunc(ctx)))
	client, err := mail.NewClient(m.host, opts...)
	if err != nil {
		return nil, fmt.Errorf("create smtp client: %w", err)
	}
	return client, nil
}

// dialFunc returns a dialer whose connections carry ctx's deadline (or the
// configured timeout) and are closed as soon as ctx is done. go-mail bounds
// only the TCP dial and re-extends the deadline per command, so a relay that
// stalls after accepting would otherwise hold the send open.
func (m *SMTPMailer) dialFunc(ctx context.Context) mail.DialContextFunc {
	return func(dialCtx context.Context, network, address string) (net.Conn, error) {
		conn, err := m.dialer.DialContext(dialCtx, network, address)
		if err != nil {
			return nil, err
		}
		deadline, ok := ctx.Deadline()
		if !ok && m.timeout > 0 {
			deadline, ok = time.Now().Add(m.timeout), true
		}
		if ok {
			if err := conn.SetDeadline(deadline); err != nil {
				_ = conn.Close()
				return nil, err
			}
		}
		context.AfterFunc(ctx, func() {
			_ = conn.Close()
		})
		return conn, nil
	}
}

func parseTLSPolicy(s string) (mail.TLSPolicy, error) {
	switch strings.ToLower(s) {
	case "", "mandatory":
		return mail.TLSMandatory, nil
	case "opportunistic":
		return mail.TLSOpportunistic, nil
	case "none":
		return mail.NoTLS, nil
	default:
		return mail.NoTLS, fmt.Errorf("unknown tls policy %q", s)
	}
}
