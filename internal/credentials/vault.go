package credentials

import (
	"context"
	"errors"
	"fmt"
	"strings"

	vault "github.com/hashicorp/vault/api"
)

// VaultStore reads fields of one KV v2 secret, e.g. mount "secret", path
// "vocaleye", field "smtp_password".
type VaultStore struct {
	kv   *vault.KVv2
	path string
}

func NewVaultStore(addr string, token Secret, mount, path string) (*VaultStore, error) {
	if addr == "" || path == "" {
		return nil, errors.New("vault address and secret path are required")
	}
	if mount == "" {
		mount = "secret"
	}

	cfg := vault.DefaultConfig()
	if cfg.Error != nil {
		return nil, cfg.Error
	}
	cfg.Address = addr

	client, err := vault.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("vault client: %w", err)
	}
	if token != "" {
		client.SetToken(token.Reveal())
	}
	return &VaultStore{kv: client.KVv2(mount), path: path}, nil
}

// fieldName maps SMTP_PASSWORD style names onto smtp_password fields.
func fieldName(name string) string { return strings.ToLower(name) }

func (v *VaultStore) Get(ctx context.Context, name string) (Secret, error) {
	s, err := v.kv.Get(ctx, v.path)
	if errors.Is(err, vault.ErrSecretNotFound) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("vault read %s: %w", v.path, err)
	}
	for _, key := range []string{name, fieldName(name)} {
		if val, ok := s.Data[key].(string); ok && val != "" {
			return Secret(val), nil
		}
	}
	return "", ErrNotFound
}

func (v *VaultStore) Set(ctx context.Context, name string, value Secret) error {
	data := map[string]any{}
	s, err := v.kv.Get(ctx, v.path)
	switch {
	case err == nil:
		for k, val := range s.Data {
			data[k] = val
		}
	case !errors.Is(err, vault.ErrSecretNotFound):
		return fmt.Errorf("vault read %s: %w", v.path, err)
	}
	data[fieldName(name)] = value.Reveal()

	if _, err := v.kv.Put(ctx, v.path, data); err != nil {
		return fmt.Errorf("vault write %s: %w", v.path, err)
	}
	return nil
}
