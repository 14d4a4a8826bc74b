package mail

import (
	"context"
	"fmt"
	"net/smtp"
	"time"

	"github.com/jordan-wright/email"

	"github.com/shopkart-labs/shopkart-api/internal/domain/notification"
)

const defaultSendTimeout = 10 * time.Second

// SMTPSender delivers one message per SMTP session. A fresh connection is
// dialed for every attempt so a stale server-side connection can never be
// reused across requests, and every attempt is bounded by sendTimeout.
type SMTPSender struct {
	host        string
	port        int
	username    string
	password    string
	from        string
	sendTimeout time.Duration
}

func NewSMTPSender(host string, port int, username, password, from string) *SMTPSender {
	return &SMTPSender{
		host:        host,
		port:        port,
		username:    username,
		password:    password,
		from:        from,
		sendTimeout: defaultSendTimeout,
	}
}

func (s *SMTPSender) Send(ctx context.Context, msg notification.Message) error {
	ctx, cancel := context.WithTimeout(ctx, s.sendTimeout)
	defer cancel()

	e := email.NewEmail()
	e.From = s.from
	e.To = []string{msg.To}
	e.Subject = msg.Subject
	e.Text = []byte(msg.Body)

	addr := fmt.Sprintf("%s:%d", s.host, s.port)
	auth := smtp.PlainAuth("", s.username, s.password, s.host)

	// email.Send has no context support; run it in a goroutine and abandon
	// the attempt on timeout. The goroutine finishes on its own once the
	// server responds or the TCP stack gives up.
	done := make(chan error, 1)
	go func() { done <- e.Send(addr, auth) }()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("mail: send: %w", err)
		}
		return nil
	case <-ctx.Done():
		return fmt.Errorf("mail: send to %s: %w", msg.To, ctx.Err())
	}
}
