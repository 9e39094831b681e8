package alert

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"github.com/yahya-ubnt/IMSys-sub002/internal/config"
)

// SMTPMailer sends alert mail, one message per configured admin address.
type SMTPMailer struct {
	cfg config.SMTP
}

func NewSMTPMailer(cfg config.SMTP) *SMTPMailer {
	return &SMTPMailer{cfg: cfg}
}

func (m *SMTPMailer) Send(ctx context.Context, to []string, subject, body string) error {
	if strings.TrimSpace(m.cfg.Host) == "" {
		return fmt.Errorf("smtp host not configured")
	}

	addr := fmt.Sprintf("%s:%d", m.cfg.Host, m.cfg.Port)
	var auth smtp.Auth
	if m.cfg.Username != "" {
		auth = smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)
	}

	var firstErr error
	for _, recipient := range to {
		if err := ctx.Err(); err != nil {
			return err
		}
		message := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\n\r\n%s\r\n",
			m.cfg.From, recipient, subject, body)
		if err := smtp.SendMail(addr, auth, m.cfg.From, []string{recipient}, []byte(message)); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("send to %s: %w", recipient, err)
		}
	}
	return firstErr
}
