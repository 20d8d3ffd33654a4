// Package policy holds the per-kind capability rules consulted before any
// action is executed.
package policy

import (
	"fmt"
	"sort"
	"strings"
	"sync/atomic"

	"vocaleye/pkg/intent"
)

// Rule is the authorization rule for one action kind.
type Rule string

const (
	Allow   Rule = "allow"
	Deny    Rule = "deny"
	Confirm Rule = "confirm-required"
)

// DefaultThreshold is the confidence below which confirmation is forced.
const DefaultThreshold = 0.75

// ParseRule accepts the config spellings of a rule.
func ParseRule(s string) (Rule, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "allow":
		return Allow, nil
	case "deny":
		return Deny, nil
	case "confirm", "confirm-required", "confirm_required":
		return Confirm, nil
	default:
		return "", fmt.Errorf("unknown policy rule %q", s)
	}
}

// Policy is an immutable snapshot. Build a new one to change anything.
type Policy struct {
	rules     map[intent.Kind]Rule
	threshold float64
}

// New validates rules and threshold. Kinds without a rule require confirmation.
func New(rules map[intent.Kind]Rule, threshold float64) (*Policy, error) {
	if threshold < 0 || threshold > 1 {
		return nil, fmt.Errorf("confidence threshold %v out of range [0,1]", threshold)
	}
	p := &Policy{
		rules:     make(map[intent.Kind]Rule, len(rules)),
		threshold: threshold,
	}
	for k, r := range rules {
		if _, ok := intent.SpecFor(k); !ok {
			return nil, fmt.Errorf("policy for unsupported kind %q", k)
		}
		switch r {
		case Allow, Deny, Confirm:
		default:
			return nil, fmt.Errorf("policy for %s: unknown rule %q", k, r)
		}
		p.rules[k] = r
	}
	return p, nil
}

// FromStrings builds a Policy from config-file keys and values.
func FromStrings(rules map[string]string, threshold float64) (*Policy, error) {
	typed := make(map[intent.Kind]Rule, len(rules))
	for name, value := range rules {
		k, ok := intent.ParseKind(name)
		if !ok || k == intent.KindUnknown {
			return nil, fmt.Errorf("policy for unsupported kind %q", name)
		}
		r, err := ParseRule(value)
		if err != nil {
			return nil, fmt.Errorf("policy for %s: %w", k, err)
		}
		typed[k] = r
	}
	return New(typed, threshold)
}

// Default launches apps and writes documents freely, asks before commands
// and email.
func Default() *Policy {
	p, _ := New(map[intent.Kind]Rule{
		intent.KindLaunchApp:        Allow,
		intent.KindGenerateDocument: Allow,
		intent.KindRunCommand:       Confirm,
		intent.KindComposeEmail:     Confirm,
	}, DefaultThreshold)
	return p
}

// Rule returns the rule for k.
func (p *Policy) Rule(k intent.Kind) Rule {
	if k == intent.KindUnknown {
		return Deny
	}
	if r, ok := p.rules[k]; ok {
		return r
	}
	return Confirm
}

// Rules returns a copy of the explicit rules.
func (p *Policy) Rules() map[intent.Kind]Rule {
	out := make(map[intent.Kind]Rule, len(p.rules))
	for k, r := range p.rules {
		out[k] = r
	}
	return out
}

// Threshold returns the minimum confidence for running without confirmation.
func (p *Policy) Threshold() float64 { return p.threshold }

func (p *Policy) String() string {
	parts := make([]string, 0, len(p.rules))
	for _, k := range intent.Kinds() {
		parts = append(parts, fmt.Sprintf("%s=%s", k, p.Rule(k)))
	}
	sort.Strings(parts)
	return fmt.Sprintf("%s threshold=%.2f", strings.Join(parts, " "), p.threshold)
}

// Store publishes the current Policy. Readers take one snapshot per action;
// updates replace the whole snapshot.
type Store struct {
	cur atomic.Pointer[Policy]
}

// NewStore starts with p, or Default when p is nil.
func NewStore(p *Policy) *Store {
	if p == nil {
		p = Default()
	}
	s := &Store{}
	s.cur.Store(p)
	return s
}

// Load returns the current snapshot.
func (s *Store) Load() *Policy { return s.cur.Load() }

// Swap installs p and returns the previous snapshot.
func (s *Store) Swap(p *Policy) *Policy {
	if p == nil {
		return s.cur.Load()
	}
	return s.cur.Swap(p)
}
