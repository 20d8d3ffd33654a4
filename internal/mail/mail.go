// Package mail sends drafted emails through SMTP or SendGrid.
package mail

import (
	"context"
	"errors"
	"fmt"
	"mime"
	netmail "net/mail"
	"strings"
	"time"
)

// Message is a plain-text email.
type Message struct {
	From     string
	FromName string
	To       string
	Subject  string
	Body     string
}

// Sender delivers a message.
type Sender interface {
	Send(ctx context.Context, m Message) error
}

var ErrUnknownRecipient = errors.New("unknown recipient")

func (m Message) validate() error {
	if _, err := netmail.ParseAddress(m.From); err != nil {
		return fmt.Errorf("sender address %q: %w", m.From, err)
	}
	if _, err := netmail.ParseAddress(m.To); err != nil {
		return fmt.Errorf("recipient address %q: %w", m.To, err)
	}
	if strings.TrimSpace(m.Body) == "" {
		return errors.New("email body is empty")
	}
	return nil
}

func (m Message) fromHeader() string {
	a := netmail.Address{Name: m.FromName, Address: m.From}
	return a.String()
}

// rfc5322 renders m with CRLF line endings and an encoded subject.
func (m Message) rfc5322(now time.Time) []byte {
	var b strings.Builder
	header := func(k, v string) { fmt.Fprintf(&b, "%s: %s\r\n", k, v) }

	header("From", m.fromHeader())
	header("To", m.To)
	header("Subject", mime.QEncoding.Encode("utf-8", m.Subject))
	header("Date", now.Format(time.RFC1123Z))
	header("MIME-Version", "1.0")
	header("Content-Type", "text/plain; charset=UTF-8")
	header("Content-Transfer-Encoding", "8bit")
	b.WriteString("\r\n")

	body := strings.ReplaceAll(m.Body, "\r\n", "\n")
	for _, line := range strings.Split(body, "\n") {
		// Dot-stuffing is done by net/smtp's data writer.
		b.WriteString(line)
		b.WriteString("\r\n")
	}
	return []byte(b.String())
}
