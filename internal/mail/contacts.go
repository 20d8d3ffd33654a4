package mail

import (
	"fmt"
	netmail "net/mail"
	"strings"
)

// Contacts maps spoken names to addresses. Keys are matched case-insensitively.
type Contacts map[string]string

func NewContacts(m map[string]string) Contacts {
	c := make(Contacts, len(m))
	for name, addr := range m {
		c[contactKey(name)] = strings.TrimSpace(addr)
	}
	return c
}

func contactKey(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// Resolve turns a spoken recipient into an address. A contact name wins; a
// first name matches only if exactly one contact has it. Otherwise the text
// must already be an address once speech artifacts are removed. Nothing is
// guessed.
func (c Contacts) Resolve(spoken string) (string, error) {
	key := contactKey(spoken)
	if key == "" {
		return "", fmt.Errorf("%w: empty", ErrUnknownRecipient)
	}
	if addr, ok := c[key]; ok {
		return addr, nil
	}

	var match string
	n := 0
	for name, addr := range c {
		if first, _, _ := strings.Cut(name, " "); first == key {
			match = addr
			n++
		}
	}
	if n == 1 {
		return match, nil
	}

	if addr, ok := spokenAddress(spoken); ok {
		return addr, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownRecipient, spoken)
}

// spokenAddress removes the spaces a transcriber inserts into addresses and
// accepts "at"/"dot" spelled out.
func spokenAddress(s string) (string, bool) {
	words := strings.Fields(strings.ToLower(s))
	if !strings.Contains(s, "@") {
		for i, w := range words {
			switch w {
			case "at":
				words[i] = "@"
			case "dot":
				words[i] = "."
			}
		}
	}
	candidate := strings.Join(words, "")

	a, err := netmail.ParseAddress(candidate)
	if err != nil || a.Address != candidate {
		return "", false
	}
	_, domain, _ := strings.Cut(candidate, "@")
	if !strings.Contains(domain, ".") || strings.HasSuffix(domain, ".") {
		return "", false
	}
	return candidate, true
}
