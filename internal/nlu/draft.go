package nlu

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

const emailInstructions = `You are an expert email writer. Write a professional, clear and concise email.

Requirements:
- Subject: %s
- Recipient: %s
- Sender: %s
- Tone: formal but friendly
- Length: 2-3 short paragraphs
- Greet the recipient by name and sign with the sender's name
- Topic/Context: %s

Return only the email body, without subject line or metadata.`

const documentInstructions = `Write detailed, well-structured professional content about the topic below.

Use only these markers for structure:
# Heading 1
## Heading 2
### Heading 3
- Bullet point

Do not use bold, italics, code or tables. Plain sentences otherwise.

Topic: %s`

// Drafter writes free text (email bodies, document contents) with the model.
type Drafter struct {
	provider Provider
	timeout  time.Duration
}

func NewDrafter(p Provider, timeout time.Duration) *Drafter {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Drafter{provider: p, timeout: timeout}
}

// Draft runs one free-text completion. Side-effecting callers must not retry.
func (d *Drafter) Draft(ctx context.Context, instructions string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	out, err := d.provider.Complete(ctx, Request{Prompt: instructions})
	if err != nil {
		return "", fmt.Errorf("draft: %w", err)
	}
	out = strings.TrimSpace(stripFences(out))
	if out == "" {
		return "", errors.New("draft: empty text")
	}
	return out, nil
}

// Email drafts a body for a message about topic.
func (d *Drafter) Email(ctx context.Context, to, subject, topic, sender string) (string, error) {
	if topic == "" {
		topic = subject
	}
	return d.Draft(ctx, fmt.Sprintf(emailInstructions, subject, to, sender, topic))
}

// Document drafts marked-up content about topic.
func (d *Drafter) Document(ctx context.Context, topic string) (string, error) {
	return d.Draft(ctx, fmt.Sprintf(documentInstructions, topic))
}
