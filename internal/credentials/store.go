package credentials

import (
	"context"
	"errors"
	"fmt"
	log "log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

var ErrNotFound = errors.New("credential not found")

// Store resolves a named credential.
type Store interface {
	Get(ctx context.Context, name string) (Secret, error)
}

// Writable stores can persist a credential, e.g. after first-run setup.
type Writable interface {
	Store
	Set(ctx context.Context, name string, value Secret) error
}

// EnvStore reads the process environment first and then a dotenv file.
type EnvStore struct {
	Path string

	lookup func(string) (string, bool)
}

func NewEnvStore(path string) *EnvStore {
	return &EnvStore{Path: path, lookup: os.LookupEnv}
}

func (e *EnvStore) Get(_ context.Context, name string) (Secret, error) {
	if v, ok := e.lookup(name); ok && strings.TrimSpace(v) != "" {
		return Secret(strings.TrimSpace(v)), nil
	}
	if e.Path == "" {
		return "", ErrNotFound
	}

	vals, err := godotenv.Read(e.Path)
	if errors.Is(err, os.ErrNotExist) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("read %s: %w", e.Path, err)
	}
	if v := strings.TrimSpace(vals[name]); v != "" {
		return Secret(v), nil
	}
	return "", ErrNotFound
}

// Set writes name into the dotenv file, keeping the other entries.
func (e *EnvStore) Set(_ context.Context, name string, value Secret) error {
	if e.Path == "" {
		return errors.New("env store has no file")
	}
	vals, err := godotenv.Read(e.Path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("read %s: %w", e.Path, err)
	}
	if vals == nil {
		vals = map[string]string{}
	}
	vals[name] = value.Reveal()
	if err := godotenv.Write(vals, e.Path); err != nil {
		return fmt.Errorf("write %s: %w", e.Path, err)
	}
	return os.Chmod(e.Path, 0o600)
}

// Chain asks each store in turn and returns the first hit.
type Chain []Store

func (c Chain) Get(ctx context.Context, name string) (Secret, error) {
	var firstErr error
	for _, s := range c {
		v, err := s.Get(ctx, name)
		if err == nil {
			return v, nil
		}
		if errors.Is(err, ErrNotFound) {
			continue
		}
		log.Warn("credential lookup failed", "name", name, "err", err)
		if firstErr == nil {
			firstErr = err
		}
	}
	if firstErr != nil {
		return "", fmt.Errorf("%s: %w", name, firstErr)
	}
	return "", fmt.Errorf("%s: %w", name, ErrNotFound)
}

// Lookup returns the credential or an empty Secret when it is absent.
func Lookup(ctx context.Context, s Store, name string) Secret {
	v, err := s.Get(ctx, name)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			log.Warn("credential unavailable", "name", name, "err", err)
		}
		return ""
	}
	return v
}
