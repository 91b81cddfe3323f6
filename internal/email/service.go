package email

import (
	"context"

	"gopkg.in/gomail.v2"

	"github.com/jwalitptl/hospital-api/internal/config"
	"github.com/jwalitptl/hospital-api/pkg/logger"
)

type Message struct {
	To      string
	Subject string
	Body    string
}

// Sender delivers a single e-mail.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// Dialer is satisfied by *gomail.Dialer.
type Dialer interface {
	DialAndSend(m ...*gomail.Message) error
}

type SMTPSender struct {
	dialer Dialer
	from   string
}

func NewSMTPSender(cfg config.SMTPConfig) *SMTPSender {
	return &SMTPSender{
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		from:   cfg.From,
	}
}

func NewSMTPSenderWithDialer(d Dialer, from string) *SMTPSender {
	return &SMTPSender{dialer: d, from: from}
}

func (s *SMTPSender) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", msg.To)
	m.SetHeader("Subject", msg.Subject)
	m.SetBody("text/plain", msg.Body)

	return s.dialer.DialAndSend(m)
}

// LogSender writes messages to the log instead of sending them. It is used
// when no SMTP host is configured.
type LogSender struct {
	logger *logger.Logger
}

func NewLogSender(log *logger.Logger) *LogSender {
	return &LogSender{logger: log}
}

func (s *LogSender) Send(_ context.Context, msg Message) error {
	s.logger.Info("E-mail not sent, SMTP disabled", "to", msg.To, "subject", msg.Subject)
	return nil
}

// NewSender picks SMTP when a host is configured.
func NewSender(cfg config.SMTPConfig, log *logger.Logger) Sender {
	if cfg.Host == "" {
		return NewLogSender(log)
	}
	return NewSMTPSender(cfg)
}
