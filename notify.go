package authcore

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"go.uber.org/zap"
)

// Notifier delivers one-time codes and lifecycle notices to an account's
// email address. Delivery is best effort: implementations report failure
// by returning false and the engine carries on, so an unreachable mail
// relay never blocks signup or password reset.
type Notifier interface {
	Send(ctx context.Context, to, subject, body string) bool
}

// NoOpNotifier drops every message. Useful in tests, where the code is
// read back from the store instead.
type NoOpNotifier struct{}

func (NoOpNotifier) Send(context.Context, string, string, string) bool { return true }

// LogNotifier writes each message to the logger instead of sending it.
// Intended for development environments without a mail relay.
type LogNotifier struct {
	Logger *zap.Logger
}

func (n LogNotifier) Send(_ context.Context, to, subject, body string) bool {
	logger := n.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	logger.Info("notification",
		zap.String("to", to),
		zap.String("subject", subject),
		zap.String("body", body),
	)
	return true
}

// SMTPNotifier sends plain-text mail through a single relay using AUTH PLAIN.
type SMTPNotifier struct {
	Addr     string // host:port
	Username string
	Password string
	From     string
	Logger   *zap.Logger
}

func (n SMTPNotifier) Send(_ context.Context, to, subject, body string) bool {
	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\n\r\n%s\r\n", n.From, to, subject, body)
	host := n.Addr
	if i := strings.LastIndexByte(host, ':'); i >= 0 {
		host = host[:i]
	}
	auth := smtp.PlainAuth("", n.Username, n.Password, host)
	if err := smtp.SendMail(n.Addr, auth, n.From, []string{to}, []byte(msg)); err != nil {
		if n.Logger != nil {
			n.Logger.Warn("smtp send failed", zap.String("to", to), zap.Error(err))
		}
		return false
	}
	return true
}
