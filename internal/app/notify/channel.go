package notify

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"gopkg.in/gomail.v2"
)

// Channel доставляет письмо
type Channel interface {
	Send(ctx context.Context, msg Message) error
}

// SMTPChannel отправляет письма через SMTP-сервер
type SMTPChannel struct {
	dialer *gomail.Dialer
	from   string
}

func NewSMTPChannel(host string, port int, user, password, from string) *SMTPChannel {
	return &SMTPChannel{
		dialer: gomail.NewDialer(host, port, user, password),
		from:   from,
	}
}

func (s *SMTPChannel) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(msg.To) == 0 {
		return fmt.Errorf("message %q has no recipients", msg.Subject)
	}

	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", msg.To...)
	if len(msg.Cc) > 0 {
		m.SetHeader("Cc", msg.Cc...)
	}
	m.SetHeader("Subject", msg.Subject)
	m.SetBody("text/plain", msg.Body)

	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("send mail to %s: %w", strings.Join(msg.To, ","), err)
	}
	return nil
}

// LogChannel только пишет письмо в лог (локальная разработка)
type LogChannel struct{}

func (LogChannel) Send(_ context.Context, msg Message) error {
	logrus.WithFields(logrus.Fields{
		"to":      strings.Join(msg.To, ","),
		"cc":      strings.Join(msg.Cc, ","),
		"subject": msg.Subject,
	}).Info("mail (log channel)\n" + msg.Body)
	return nil
}
