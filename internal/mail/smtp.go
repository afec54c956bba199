package mail

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/smtp"
	"strconv"
	"strings"
	"time"

	"github.com/iliyamo/storefront-auth/internal/config"
)

type SMTPSettings struct {
	Host      string
	Port      int
	Username  string
	Password  string
	TLSMode   string // tls | starttls | none
	FromName  string
	FromEmail string
	Timeout   time.Duration
}

// SMTPSettingsFrom maps the environment-level mail config.
func SMTPSettingsFrom(c config.MailConfig) SMTPSettings {
	return SMTPSettings{
		Host:      c.SMTPHost,
		Port:      c.SMTPPort,
		Username:  c.SMTPUsername,
		Password:  c.SMTPPassword,
		TLSMode:   c.SMTPTLSMode,
		FromName:  c.FromName,
		FromEmail: c.FromEmail,
	}
}

// SMTPSender delivers synchronously over SMTP.
type SMTPSender struct {
	settings SMTPSettings
}

func NewSMTPSender(settings SMTPSettings) *SMTPSender {
	if settings.Timeout <= 0 {
		settings.Timeout = 15 * time.Second
	}
	return &SMTPSender{settings: settings}
}

func (s *SMTPSender) Send(ctx context.Context, msg Message) error {
	if err := s.send(ctx, msg); err != nil {
		return fmt.Errorf("%w: %v", ErrUndelivered, err)
	}
	return nil
}

func (s *SMTPSender) send(ctx context.Context, msg Message) error {
	addr := net.JoinHostPort(s.settings.Host, strconv.Itoa(s.settings.Port))
	client, err := s.connect(ctx, addr)
	if err != nil {
		return err
	}
	defer client.Close()

	if s.settings.Username != "" {
		auth := smtp.PlainAuth("", s.settings.Username, s.settings.Password, s.settings.Host)
		if err := client.Auth(auth); err != nil {
			return fmt.Errorf("smtp auth: %w", err)
		}
	}
	if err := client.Mail(s.settings.FromEmail); err != nil {
		return fmt.Errorf("smtp from: %w", err)
	}
	if err := client.Rcpt(msg.To); err != nil {
		return fmt.Errorf("smtp rcpt: %w", err)
	}
	writer, err := client.Data()
	if err != nil {
		return fmt.Errorf("smtp data: %w", err)
	}
	from := s.settings.FromEmail
	if s.settings.FromName != "" {
		from = fmt.Sprintf("%q <%s>", s.settings.FromName, s.settings.FromEmail)
	}
	if _, err := writer.Write([]byte(buildMessage(from, msg))); err != nil {
		return fmt.Errorf("smtp write: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("smtp close: %w", err)
	}
	if err := client.Quit(); err != nil && !strings.Contains(err.Error(), "use of closed network connection") {
		return fmt.Errorf("smtp quit: %w", err)
	}
	return nil
}

func (s *SMTPSender) connect(ctx context.Context, addr string) (*smtp.Client, error) {
	dialer := &net.Dialer{Timeout: s.settings.Timeout}
	tlsConf := &tls.Config{ServerName: s.settings.Host, MinVersion: tls.VersionTLS12}

	var (
		conn net.Conn
		err  error
	)
	if s.settings.TLSMode == "tls" {
		conn, err = (&tls.Dialer{NetDialer: dialer, Config: tlsConf}).DialContext(ctx, "tcp", addr)
	} else {
		conn, err = dialer.DialContext(ctx, "tcp", addr)
	}
	if err != nil {
		return nil, fmt.Errorf("smtp dial: %w", err)
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	} else {
		_ = conn.SetDeadline(time.Now().Add(s.settings.Timeout))
	}
	client, err := smtp.NewClient(conn, s.settings.Host)
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("smtp client: %w", err)
	}
	if s.settings.TLSMode == "" || s.settings.TLSMode == "starttls" {
		if err := client.StartTLS(tlsConf); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("smtp starttls: %w", err)
		}
	}
	return client, nil
}

func buildMessage(from string, msg Message) string {
	lines := []string{
		"From: " + from,
		"To: " + msg.To,
		"Subject: " + msg.Subject,
		"MIME-Version: 1.0",
		"Content-Type: text/plain; charset=utf-8",
		"",
		msg.Body,
	}
	return strings.Join(lines, "\r\n")
}
