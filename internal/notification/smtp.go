package notification

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/wneessen/go-mail"

	"inventory-bot-backend/config"
)

// SMTPTransport sends plain-text mail through an SMTP relay, upgrading to STARTTLS when offered.
type SMTPTransport struct {
	cfg     config.SMTPConfig
	timeout time.Duration
}

// NewSMTPTransport creates an SMTP transport. timeout bounds each session.
func NewSMTPTransport(cfg config.SMTPConfig, timeout time.Duration) (*SMTPTransport, error) {
	if cfg.Host == "" {
		return nil, fmt.Errorf("smtp transport requires notifier.smtp.host")
	}
	if cfg.From == "" {
		cfg.From = cfg.Username
	}
	if timeout <= 0 {
		timeout = mail.DefaultTimeout
	}
	return &SMTPTransport{cfg: cfg, timeout: timeout}, nil
}

func (*SMTPTransport) Name() string { return "smtp" }

// Deliver sends msg. The session deadline follows ctx.
func (s *SMTPTransport) Deliver(ctx context.Context, msg Message) error {
	m, err := s.message(msg)
	if err != nil {
		return err
	}

	client, err := mail.NewClient(s.cfg.Host, s.options()...)
	if err != nil {
		return fmt.Errorf("smtp client: %w", err)
	}
	if err := client.DialAndSendWithContext(ctx, m); err != nil {
		return fmt.Errorf("smtp %s: %w", client.ServerAddr(), err)
	}
	return nil
}

func (s *SMTPTransport) options() []mail.Option {
	opts := []mail.Option{
		mail.WithPort(s.cfg.Port),
		mail.WithTimeout(s.timeout),
		mail.WithTLSPolicy(mail.TLSOpportunistic),
		mail.WithDialContextFunc(dialWithDeadline),
	}
	if s.cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(s.cfg.Username),
			mail.WithPassword(s.cfg.Password),
		)
	}
	return opts
}

// message rejects addresses that do not parse, so a stored value cannot smuggle in headers.
func (s *SMTPTransport) message(msg Message) (*mail.Msg, error) {
	m := mail.NewMsg()
	if err := m.From(s.cfg.From); err != nil {
		return nil, fmt.Errorf("smtp from %q: %w", s.cfg.From, err)
	}
	if err := m.To(msg.Recipient); err != nil {
		return nil, fmt.Errorf("smtp recipient %q: %w", msg.Recipient, err)
	}
	m.Subject(msg.Subject)
	m.SetDate()
	m.SetBodyString(mail.TypeTextPlain, msg.Body)
	return m, nil
}

// dialWithDeadline carries the dial deadline onto the connection so a silent relay cannot hold the greeting open.
func dialWithDeadline(ctx context.Context, network, address string) (net.Conn, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, network, address)
	if err != nil {
		return nil, err
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}
	return conn, nil
}
