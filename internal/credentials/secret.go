// Package credentials looks up secrets from the environment, a .env file and
// Vault, in that order.
package credentials

import (
	"log/slog"
)

// Secret holds a credential value. It never prints its contents through fmt
// or slog; call Reveal at the point of use.
type Secret string

const redacted = "[redacted]"

func (s Secret) Reveal() string { return string(s) }

func (s Secret) String() string {
	if s == "" {
		return ""
	}
	return redacted
}

func (s Secret) GoString() string { return s.String() }

func (s Secret) LogValue() slog.Value { return slog.StringValue(s.String()) }
