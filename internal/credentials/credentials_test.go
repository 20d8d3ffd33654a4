package credentials

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestSecretNeverPrints(t *testing.T) {
	s := Secret("hunter2")

	for _, out := range []string{
		fmt.Sprint(s),
		fmt.Sprintf("%v %s %#v", s, s, s),
	} {
		if strings.Contains(out, "hunter2") {
			t.Fatalf("secret leaked: %q", out)
		}
	}

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	logger.Info("login", "password", s)
	if strings.Contains(buf.String(), "hunter2") || !strings.Contains(buf.String(), redacted) {
		t.Fatalf("log = %q", buf.String())
	}
	if s.Reveal() != "hunter2" {
		t.Fatalf("reveal = %q", s.Reveal())
	}
}

func newEnv(t *testing.T, env map[string]string, dotenv string) *EnvStore {
	t.Helper()
	path := filepath.Join(t.TempDir(), ".env")
	if dotenv != "" {
		if err := os.WriteFile(path, []byte(dotenv), 0o600); err != nil {
			t.Fatal(err)
		}
	}
	return &EnvStore{Path: path, lookup: func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}}
}

func TestEnvStorePrecedence(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t, map[string]string{"SMTP_PASSWORD": "from-env"}, "SMTP_PASSWORD=from-file\nOPENAI_API_KEY=sk-file\n")

	if v, err := e.Get(ctx, "SMTP_PASSWORD"); err != nil || v.Reveal() != "from-env" {
		t.Fatalf("got %q, %v", v.Reveal(), err)
	}
	if v, err := e.Get(ctx, "OPENAI_API_KEY"); err != nil || v.Reveal() != "sk-file" {
		t.Fatalf("got %q, %v", v.Reveal(), err)
	}
	if _, err := e.Get(ctx, "MISSING"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v", err)
	}
}

func TestEnvStoreMissingFile(t *testing.T) {
	e := newEnv(t, nil, "")
	if _, err := e.Get(context.Background(), "X"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v", err)
	}
}

func TestEnvStoreSet(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t, nil, "KEEP=1\n")

	if err := e.Set(ctx, "SENDER_EMAIL", "me@example.com"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if v, _ := e.Get(ctx, "SENDER_EMAIL"); v.Reveal() != "me@example.com" {
		t.Fatalf("got %q", v.Reveal())
	}
	if v, _ := e.Get(ctx, "KEEP"); v.Reveal() != "1" {
		t.Fatalf("existing entry lost")
	}
}

type fakeStore struct {
	vals map[string]string
	err  error
	hits int
}

func (f *fakeStore) Get(_ context.Context, name string) (Secret, error) {
	f.hits++
	if f.err != nil {
		return "", f.err
	}
	if v, ok := f.vals[name]; ok {
		return Secret(v), nil
	}
	return "", ErrNotFound
}

func TestChain(t *testing.T) {
	ctx := context.Background()
	first := &fakeStore{vals: map[string]string{"A": "1"}}
	broken := &fakeStore{err: errors.New("vault sealed")}
	last := &fakeStore{vals: map[string]string{"B": "2"}}
	c := Chain{first, broken, last}

	if v, err := c.Get(ctx, "A"); err != nil || v.Reveal() != "1" {
		t.Fatalf("got %q, %v", v.Reveal(), err)
	}
	if broken.hits != 0 {
		t.Fatalf("chain must stop at first hit")
	}
	if v, err := c.Get(ctx, "B"); err != nil || v.Reveal() != "2" {
		t.Fatalf("got %q, %v", v.Reveal(), err)
	}
	if _, err := c.Get(ctx, "C"); err == nil || errors.Is(err, ErrNotFound) {
		t.Fatalf("store failure must surface, got %v", err)
	}
	if _, err := (Chain{first}).Get(ctx, "C"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v", err)
	}
	if Lookup(ctx, c, "C") != "" {
		t.Fatalf("Lookup must return empty on failure")
	}
}

func TestNewVaultStoreValidates(t *testing.T) {
	if _, err := NewVaultStore("", "t", "secret", "vocaleye"); err == nil {
		t.Fatalf("expected error without address")
	}
	if _, err := NewVaultStore("http://127.0.0.1:8200", "t", "", "vocaleye"); err != nil {
		t.Fatalf("NewVaultStore: %v", err)
	}
}
