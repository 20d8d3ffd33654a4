package mail

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestContactsResolve(t *testing.T) {
	c := NewContacts(map[string]string{
		"Jane Doe":  "jane@example.com",
		"Bob Stone": "bob@example.com",
		"Bob Marsh": "marsh@example.com",
	})

	tests := []struct {
		spoken  string
		want    string
		wantErr bool
	}{
		{"jane doe", "jane@example.com", false},
		{"  JANE   Doe ", "jane@example.com", false},
		{"jane", "jane@example.com", false},
		{"bob", "", true},
		{"bob stone", "bob@example.com", false},
		{"john . smith @ example . com", "john.smith@example.com", false},
		{"john at example dot com", "john@example.com", false},
		{"Alice@Example.com", "alice@example.com", false},
		{"somebody", "", true},
		{"foo@localhost", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		got, err := c.Resolve(tt.spoken)
		if tt.wantErr {
			if !errors.Is(err, ErrUnknownRecipient) {
				t.Errorf("Resolve(%q) = %q, %v; want ErrUnknownRecipient", tt.spoken, got, err)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Errorf("Resolve(%q) = %q, %v; want %q", tt.spoken, got, err, tt.want)
		}
	}
}

func TestMessageRFC5322(t *testing.T) {
	m := Message{
		From:     "me@example.com",
		FromName: "Me",
		To:       "jane@example.com",
		Subject:  "Résumé review",
		Body:     "Hi Jane,\nSee you.\r\nMe",
	}
	if err := m.validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
	raw := string(m.rfc5322(time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)))

	head, body, ok := strings.Cut(raw, "\r\n\r\n")
	if !ok {
		t.Fatalf("no header separator: %q", raw)
	}
	for _, want := range []string{
		`From: "Me" <me@example.com>`,
		"To: jane@example.com",
		"Subject: =?utf-8?q?R=C3=A9sum=C3=A9_review?=",
		"Content-Type: text/plain; charset=UTF-8",
	} {
		if !strings.Contains(head, want) {
			t.Errorf("header missing %q in %q", want, head)
		}
	}
	if body != "Hi Jane,\r\nSee you.\r\nMe\r\n" {
		t.Fatalf("body = %q", body)
	}
}

func TestSendRejectsBadMessage(t *testing.T) {
	s := NewSMTPSender(SMTPConfig{Host: "127.0.0.1", Port: 1})
	err := s.Send(context.Background(), Message{From: "me@example.com", To: "not an address", Body: "x"})
	if err == nil || !strings.Contains(err.Error(), "recipient") {
		t.Fatalf("err = %v", err)
	}
	err = s.Send(context.Background(), Message{From: "me@example.com", To: "a@example.com", Body: " "})
	if err == nil {
		t.Fatalf("empty body must fail")
	}
}

func TestSMTPDefaults(t *testing.T) {
	s := NewSMTPSender(SMTPConfig{})
	if s.cfg.Host != DefaultSMTPHost || s.cfg.Port != DefaultSMTPPort {
		t.Fatalf("cfg = %+v", s.cfg)
	}
}
