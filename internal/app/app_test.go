package app

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"vocaleye/internal/config"
	"vocaleye/internal/credentials"
	"vocaleye/internal/feedback"
	"vocaleye/pkg/intent"
)

type silentListener struct{}

func (silentListener) Listen(context.Context) (intent.Transcript, error) {
	return intent.NewTranscript("yes"), nil
}

func TestConfirmerSelection(t *testing.T) {
	var s config.Settings
	s.Confirm.Mode = "voice"
	fb := feedback.New(nil, nil)
	opts := Options{Stdin: strings.NewReader(""), Stdout: &bytes.Buffer{}}

	if _, ok := confirmer(s, opts, fb).(*feedback.ConsoleConfirmer); !ok {
		t.Fatal("voice mode without a listener should fall back to the console")
	}

	opts.Listener = silentListener{}
	if _, ok := confirmer(s, opts, fb).(*feedback.VoiceConfirmer); !ok {
		t.Fatal("voice mode with a listener should confirm by voice")
	}

	opts.Confirm = "console"
	if _, ok := confirmer(s, opts, fb).(*feedback.ConsoleConfirmer); !ok {
		t.Fatal("console override ignored")
	}
}

func TestCredentialStoreWithoutVault(t *testing.T) {
	s := credentialStore(context.Background(), "", config.Vault{})
	if _, ok := s.(*credentials.EnvStore); !ok {
		t.Fatalf("store = %T", s)
	}
}

func TestNormalizerFallsBackToDefaults(t *testing.T) {
	n := normalizer(config.Settings{})
	if got := n.Clean("Hey VocalEye, um, open firefox"); got != "open firefox" {
		t.Fatalf("Clean = %q", got)
	}

	n = normalizer(config.Settings{WakeWords: []string{"computer"}})
	if got := n.Clean("computer open firefox"); got != "open firefox" {
		t.Fatalf("Clean = %q", got)
	}
}
