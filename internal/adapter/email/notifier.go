// Package email implements a notifier.Notifier over SMTP.
package email

import (
	"context"
	"fmt"
	"net/smtp"

	"github.com/frankie-agent/frankie/internal/port/notifier"
)

const providerName = "email"

// Notifier sends notification emails via SMTP.
type Notifier struct {
	host     string
	port     string
	from     string
	password string
	to       string
}

// NewNotifier creates a new email notifier.
func NewNotifier(host, port, from, password, to string) *Notifier {
	return &Notifier{host: host, port: port, from: from, password: password, to: to}
}

func (n *Notifier) Name() string { return providerName }

func (n *Notifier) Send(_ context.Context, notification notifier.Notification) error {
	if n.host == "" || n.to == "" {
		return notifier.ErrNotConfigured
	}

	subject := notification.Title
	if notification.TaskID != "" {
		subject = fmt.Sprintf("%s [task %s]", notification.Title, notification.TaskID)
	}

	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\nContent-Type: text/plain; charset=UTF-8\r\n\r\n%s\r\n",
		n.from, n.to, subject, notification.Message)

	var auth smtp.Auth
	if n.password != "" {
		auth = smtp.PlainAuth("", n.from, n.password, n.host)
	}

	addr := n.host + ":" + n.port
	if err := smtp.SendMail(addr, auth, n.from, []string{n.to}, []byte(msg)); err != nil {
		return fmt.Errorf("email send: %w", err)
	}
	return nil
}
