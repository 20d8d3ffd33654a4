package mail

import (
	"context"
	"fmt"

	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"

	"vocaleye/internal/credentials"
)

// SendGridSender delivers through the SendGrid v3 API.
type SendGridSender struct {
	client *sendgrid.Client
}

func NewSendGridSender(apiKey credentials.Secret) *SendGridSender {
	return &SendGridSender{client: sendgrid.NewSendClient(apiKey.Reveal())}
}

func (p *SendGridSender) Send(ctx context.Context, m Message) error {
	if err := m.validate(); err != nil {
		return err
	}

	from := sgmail.NewEmail(m.FromName, m.From)
	to := sgmail.NewEmail("", m.To)
	message := sgmail.NewSingleEmail(from, m.Subject, to, m.Body, "")

	response, err := p.client.SendWithContext(ctx, message)
	if err != nil {
		return fmt.Errorf("sendgrid error: %w", err)
	}
	if response.StatusCode >= 300 {
		return fmt.Errorf("sendgrid returned status %d: %s", response.StatusCode, response.Body)
	}
	return nil
}
