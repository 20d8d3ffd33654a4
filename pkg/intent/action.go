package intent

import (
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/mattn/go-shellwords"
)

// Params maps parameter names to values for an Action.
type Params map[string]string

// Get returns the trimmed value for name.
func (p Params) Get(name string) string {
	return strings.TrimSpace(p[name])
}

// Clone returns an independent copy of p.
func (p Params) Clone() Params {
	if p == nil {
		return nil
	}
	out := make(Params, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// Action is a resolved, typed intent.
type Action struct {
	ID         string     `json:"id"`
	Kind       Kind       `json:"kind"`
	Params     Params     `json:"params,omitempty"`
	Source     Transcript `json:"source"`
	Confidence float64    `json:"confidence"`

	// Uncertain lists parameters the model inferred rather than heard.
	// A non-empty list always forces confirmation.
	Uncertain []string `json:"uncertain,omitempty"`

	// Reply is free text from the model when no action applies.
	Reply string `json:"reply,omitempty"`
}

// Unknown builds the Unknown action for src. It never carries parameters.
func Unknown(src Transcript, reply string) Action {
	return Action{
		ID:     uuid.NewString(),
		Kind:   KindUnknown,
		Source: src,
		Reply:  strings.TrimSpace(reply),
	}
}

// NewAction builds an action of kind k from params and validates it.
func NewAction(k Kind, params Params, src Transcript, confidence float64) (Action, error) {
	a := Action{
		ID:         uuid.NewString(),
		Kind:       k,
		Params:     params.Clone(),
		Source:     src,
		Confidence: clamp01(confidence),
	}
	if err := a.Validate(); err != nil {
		return Action{}, err
	}
	return a, nil
}

// Validate checks that the parameter set is complete and consistent for the
// action's kind. Unknown actions are valid only without parameters.
func (a Action) Validate() error {
	if a.Kind == KindUnknown {
		if len(a.Params) > 0 {
			return fmt.Errorf("unknown action carries parameters")
		}
		return nil
	}

	spec, ok := SpecFor(a.Kind)
	if !ok {
		return fmt.Errorf("unsupported kind %q", a.Kind)
	}

	allowed := make(map[string]bool, len(spec.Params))
	for _, p := range spec.Params {
		allowed[p.Name] = true
		if p.Required && a.Params.Get(p.Name) == "" {
			return fmt.Errorf("%s: missing required parameter %q", a.Kind, p.Name)
		}
	}

	names := make([]string, 0, len(a.Params))
	for name := range a.Params {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if !allowed[name] {
			return fmt.Errorf("%s: unexpected parameter %q", a.Kind, name)
		}
	}

	switch a.Kind {
	case KindRunCommand:
		if _, err := a.Argv(); err != nil {
			return err
		}
	case KindGenerateDocument:
		switch strings.ToLower(a.Params.Get(ParamFormat)) {
		case FormatPDF, FormatDOCX, FormatTXT:
		default:
			return fmt.Errorf("%s: unsupported format %q", a.Kind, a.Params.Get(ParamFormat))
		}
	}

	for _, name := range a.Uncertain {
		if !allowed[name] {
			return fmt.Errorf("%s: uncertain parameter %q is not part of the kind", a.Kind, name)
		}
	}

	return nil
}

// Argv splits the RunCommand command line into arguments without invoking a
// shell. Pipes, redirections and substitutions are refused.
func (a Action) Argv() ([]string, error) {
	line := a.Params.Get(ParamCommand)
	if line == "" {
		return nil, fmt.Errorf("%s: empty command", KindRunCommand)
	}

	parser := shellwords.NewParser()
	parser.ParseEnv = false
	parser.ParseBacktick = false

	argv, err := parser.Parse(line)
	if err != nil {
		return nil, fmt.Errorf("%s: parse command: %w", KindRunCommand, err)
	}
	if parser.Position >= 0 {
		return nil, fmt.Errorf("%s: shell operators are not supported", KindRunCommand)
	}
	if len(argv) == 0 || strings.TrimSpace(argv[0]) == "" {
		return nil, fmt.Errorf("%s: empty command", KindRunCommand)
	}
	return argv, nil
}

// Describe renders the action for a confirmation prompt.
func (a Action) Describe() string {
	switch a.Kind {
	case KindLaunchApp:
		if t := a.Params.Get(ParamTarget); t != "" {
			return fmt.Sprintf("open %s with %s", t, a.Params.Get(ParamApp))
		}
		return "open " + a.Params.Get(ParamApp)
	case KindRunCommand:
		return "run the command " + a.Params.Get(ParamCommand)
	case KindComposeEmail:
		return fmt.Sprintf("send an email to %s about %s", a.Params.Get(ParamTo), a.Params.Get(ParamSubject))
	case KindGenerateDocument:
		return fmt.Sprintf("write a %s document about %s", strings.ToUpper(a.Params.Get(ParamFormat)), a.Params.Get(ParamTopic))
	default:
		return "do nothing"
	}
}
