package notify

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/smtp"
	"strings"
)

var errHeaderInjection = errors.New("invalid mail header")

// SMTPConfig describes the outgoing mail server.
type SMTPConfig struct {
	Host     string
	Port     string
	Username string
	Password string
	From     string
}

// SMTPSender delivers messages through an SMTP server using PLAIN auth.
type SMTPSender struct {
	cfg      SMTPConfig
	sendMail func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

// NewSMTPSender validates cfg and returns a sender for it.
func NewSMTPSender(cfg SMTPConfig) (*SMTPSender, error) {
	if cfg.Host == "" {
		return nil, fmt.Errorf("smtp host is required")
	}
	if cfg.Port == "" {
		cfg.Port = "587"
	}
	if cfg.From == "" {
		cfg.From = cfg.Username
	}
	if cfg.From == "" {
		return nil, fmt.Errorf("smtp from address is required")
	}
	if strings.ContainsAny(cfg.From, "\r\n") {
		return nil, fmt.Errorf("%w: line break in from address", errHeaderInjection)
	}
	return &SMTPSender{cfg: cfg, sendMail: smtp.SendMail}, nil
}

// Send delivers one message. net/smtp has no context support, so ctx is only
// checked before dialing.
func (s *SMTPSender) Send(ctx context.Context, to, subject, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	for _, v := range []string{to, subject} {
		if strings.ContainsAny(v, "\r\n") {
			return fmt.Errorf("%w: line break in header value %q", errHeaderInjection, v)
		}
	}

	var auth smtp.Auth
	if s.cfg.Username != "" {
		auth = smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)
	}

	if err := s.sendMail(net.JoinHostPort(s.cfg.Host, s.cfg.Port), auth, s.cfg.From, []string{to}, composeMessage(s.cfg.From, to, subject, body)); err != nil {
		return fmt.Errorf("send email to %s: %w", to, err)
	}
	return nil
}

func composeMessage(from, to, subject, body string) []byte {
	var b strings.Builder
	b.WriteString("Subject: " + subject + "\r\n")
	b.WriteString("From: " + from + "\r\n")
	b.WriteString("To: " + to + "\r\n")
	b.WriteString("Content-Type: text/plain; charset=\"UTF-8\"\r\n\r\n")
	b.WriteString(strings.ReplaceAll(body, "\n", "\r\n"))
	b.WriteString("\r\n")
	return []byte(b.String())
}
