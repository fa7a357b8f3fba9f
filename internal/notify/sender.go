// Package notify builds and sends the invitation and task assignment emails.
package notify

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/mailgun/mailgun-go/v4"

	"titan/internal/logger"
)

// Sender delivers one MIME message.
type Sender interface {
	Send(ctx context.Context, from, to string, msg []byte) error
}

// sendTimeout bounds a single delivery to the mail provider.
const sendTimeout = 10 * time.Second

// MailgunSender delivers through the Mailgun MIME API.
type MailgunSender struct {
	mg mailgun.Mailgun
}

// NewMailgunSender returns a Sender for the given Mailgun domain and API key.
func NewMailgunSender(domain, apiKey string) *MailgunSender {
	return &MailgunSender{mg: mailgun.NewMailgun(domain, apiKey)}
}

func (s *MailgunSender) Send(ctx context.Context, from, to string, msg []byte) error {
	ctx, cancel := context.WithTimeout(ctx, sendTimeout)
	defer cancel()
	m := s.mg.NewMIMEMessage(io.NopCloser(bytes.NewReader(msg)), to)
	if _, _, err := s.mg.Send(ctx, m); err != nil {
		return fmt.Errorf("mailgun send to %s: %w", to, err)
	}
	return nil
}

// LogSender writes messages to the log instead of sending them. Used in development.
type LogSender struct {
	log *logger.Logger

	mu   sync.Mutex
	sent int
}

func NewLogSender(log *logger.Logger) *LogSender {
	return &LogSender{log: log.Named("mail")}
}

func (s *LogSender) Send(ctx context.Context, from, to string, msg []byte) error {
	s.mu.Lock()
	s.sent++
	n := s.sent
	s.mu.Unlock()
	s.log.Info("email not sent, logging instead", "from", from, "to", to, "count", n, "message", string(msg))
	return nil
}
