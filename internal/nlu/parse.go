package nlu

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"vocaleye/pkg/intent"
)

type completion struct {
	Kind       string            `json:"kind"`
	Params     map[string]string `json:"params"`
	Confidence *float64          `json:"confidence"`
	Uncertain  []string          `json:"uncertain"`
	Reply      string            `json:"reply"`
}

// ParseCompletion turns raw model output into an Action. Any schema violation
// yields an Unknown action for src together with the reason; parameters are
// never filled in or coerced.
func ParseCompletion(raw string, src intent.Transcript) (intent.Action, error) {
	body := stripFences(raw)
	if body == "" {
		return intent.Unknown(src, ""), errors.New("empty completion")
	}

	dec := json.NewDecoder(strings.NewReader(body))
	dec.DisallowUnknownFields()

	var c completion
	if err := dec.Decode(&c); err != nil {
		return intent.Unknown(src, ""), fmt.Errorf("decode completion: %w", err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return intent.Unknown(src, ""), errors.New("trailing data after completion object")
	}

	kind, ok := intent.ParseKind(c.Kind)
	if !ok {
		return intent.Unknown(src, ""), fmt.Errorf("unknown kind %q", c.Kind)
	}
	if kind == intent.KindUnknown {
		return intent.Unknown(src, c.Reply), nil
	}

	// A missing score counts as implied low confidence.
	confidence := 0.0
	if c.Confidence != nil {
		confidence = *c.Confidence
		if confidence < 0 || confidence > 1 {
			return intent.Unknown(src, ""), fmt.Errorf("confidence %v out of range", confidence)
		}
	}
	if src.Scored && src.Confidence < confidence {
		confidence = src.Confidence
	}

	a, err := intent.NewAction(kind, intent.Params(c.Params), src, confidence)
	if err != nil {
		return intent.Unknown(src, ""), err
	}
	if len(c.Uncertain) > 0 {
		a.Uncertain = append([]string(nil), c.Uncertain...)
		if err := a.Validate(); err != nil {
			return intent.Unknown(src, ""), err
		}
	}
	return a, nil
}

// stripFences removes a surrounding ```json fence some models add anyway.
func stripFences(raw string) string {
	s := strings.TrimSpace(raw)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if i := strings.IndexByte(s, '\n'); i >= 0 && !strings.ContainsAny(s[:i], "{[") {
		s = s[i+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
