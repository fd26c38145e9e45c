package notify

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/smtp"
	"strconv"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/diewo77/procurement/internal/config"
)

// Mailer delivers a fully formatted message (headers and body).
type Mailer interface {
	Send(ctx context.Context, to []string, subject string, raw []byte) error
}

// NewMailer returns an SMTP mailer, or a logging one when no host is configured.
func NewMailer(cfg config.MailConfig) Mailer {
	if cfg.Host == "" {
		log.Info("SMTP host not configured, emails will be logged")
		return LoggingMailer{}
	}
	return &SMTPMailer{cfg: cfg}
}

// SMTPMailer sends through an SMTP relay, upgrading to TLS when offered.
type SMTPMailer struct {
	cfg config.MailConfig
}

func (s *SMTPMailer) Send(ctx context.Context, to []string, subject string, raw []byte) error {
	addr := net.JoinHostPort(s.cfg.Host, strconv.Itoa(s.cfg.Port))
	timeout := s.cfg.DialTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	dialer := net.Dialer{Timeout: timeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("dial smtp %s: %w", addr, err)
	}
	_ = conn.SetDeadline(time.Now().Add(2 * timeout))

	c, err := smtp.NewClient(conn, s.cfg.Host)
	if err != nil {
		conn.Close()
		return fmt.Errorf("smtp handshake: %w", err)
	}
	defer c.Close()

	if ok, _ := c.Extension("STARTTLS"); ok {
		if err := c.StartTLS(&tls.Config{ServerName: s.cfg.Host}); err != nil {
			return fmt.Errorf("starttls: %w", err)
		}
	}
	if s.cfg.Username != "" {
		if err := c.Auth(smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)); err != nil {
			return fmt.Errorf("smtp auth: %w", err)
		}
	}
	if err := c.Mail(s.cfg.From); err != nil {
		return err
	}
	for _, rcpt := range to {
		if err := c.Rcpt(rcpt); err != nil {
			return fmt.Errorf("rcpt %s: %w", rcpt, err)
		}
	}
	w, err := c.Data()
	if err != nil {
		return err
	}
	if _, err := w.Write(raw); err != nil {
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}
	if err := c.Quit(); err != nil {
		return err
	}
	log.WithFields(log.Fields{"to": to, "subject": subject}).Debug("email sent")
	return nil
}

// LoggingMailer writes emails to the log instead of sending them.
type LoggingMailer struct{}

func (LoggingMailer) Send(_ context.Context, to []string, subject string, raw []byte) error {
	log.WithFields(log.Fields{"to": to, "subject": subject, "bytes": len(raw)}).Info("email (not sent, no SMTP host)")
	return nil
}

// SentMail is one message captured by MemoryMailer.
type SentMail struct {
	To      []string
	Subject string
	Raw     []byte
}

// MemoryMailer records messages instead of sending them. Setting Err makes
// every Send fail.
type MemoryMailer struct {
	mu   sync.Mutex
	sent []SentMail
	Err  error
}

func (m *MemoryMailer) Send(_ context.Context, to []string, subject string, raw []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.sent = append(m.sent, SentMail{To: to, Subject: subject, Raw: raw})
	return nil
}

// Sent returns a copy of the captured messages.
func (m *MemoryMailer) Sent() []SentMail {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]SentMail(nil), m.sent...)
}
