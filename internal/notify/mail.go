package notify

import (
	"context"
	"crypto/tls"
	"errors"

	"gopkg.in/gomail.v2"
)

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	To       string
}

// Mail delivers alerts over SMTP.
type Mail struct {
	cfg  SMTPConfig
	send func(m *gomail.Message) error
}

// NewMail returns nil when SMTP is not configured.
func NewMail(cfg SMTPConfig) *Mail {
	if cfg.Host == "" || cfg.To == "" {
		return nil
	}
	if cfg.From == "" {
		cfg.From = cfg.Username
	}
	if cfg.Port == 0 {
		cfg.Port = 587
	}
	d := gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password)
	d.TLSConfig = &tls.Config{ServerName: cfg.Host, MinVersion: tls.VersionTLS12}
	return &Mail{cfg: cfg, send: func(m *gomail.Message) error { return d.DialAndSend(m) }}
}

func (m *Mail) Send(ctx context.Context, title, text string) error {
	if m == nil {
		return errors.New("mail disabled")
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	msg := gomail.NewMessage()
	msg.SetHeader("From", m.cfg.From)
	msg.SetHeader("To", m.cfg.To)
	msg.SetHeader("Subject", title)
	msg.SetBody("text/plain", text)
	return m.send(msg)
}
