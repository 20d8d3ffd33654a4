package nlu

import (
	"fmt"
	"runtime"
	"strings"

	"vocaleye/pkg/intent"
)

// maxListedApps bounds the installed-application list embedded in the prompt.
const maxListedApps = 150

const systemPreamble = `
You are VocalEye-NLU, the intent classifier of a desktop voice assistant.
Your ONLY job is to convert the user's utterance into one minimal JSON object.

GENERAL RULES:
1. Output ONLY JSON. No markdown, no explanations.
2. Choose exactly one kind from the list below.
3. Never invent values. If a required parameter was not said, use kind "Unknown".
4. If you had to guess a parameter, list its name in "uncertain".
5. For questions or small talk use kind "Unknown" and answer briefly in "reply".
6. All parameter values are strings.

OUTPUT FORMAT:
{
  "kind": "<kind>",
  "params": { "<name>": "<value>" },
  "confidence": <number between 0 and 1>,
  "uncertain": ["<param name>"],
  "reply": "<short spoken answer, only for Unknown>"
}
`

// SystemPrompt renders the schema the model must follow, including the
// installed applications the launcher can resolve.
func SystemPrompt(apps []string) string {
	var b strings.Builder
	b.WriteString(strings.TrimSpace(systemPreamble))
	b.WriteString("\n\nKINDS:\n")

	for _, spec := range intent.Specs() {
		fmt.Fprintf(&b, "- %q: %s\n", spec.Kind, spec.Description)
		for _, p := range spec.Params {
			req := "optional"
			if p.Required {
				req = "required"
			}
			fmt.Fprintf(&b, "    %s (%s): %s\n", p.Name, req, p.Description)
		}
	}
	fmt.Fprintf(&b, "- %q: nothing to do, not understood, or a question.\n", intent.KindUnknown)

	fmt.Fprintf(&b, "\nOPERATING SYSTEM: %s\n", runtime.GOOS)

	if len(apps) > 0 {
		listed := apps
		if len(listed) > maxListedApps {
			listed = listed[:maxListedApps]
		}
		b.WriteString("\nINSTALLED APPLICATIONS (prefer these names for app):\n")
		b.WriteString(strings.Join(listed, ", "))
		b.WriteString("\n")
	}

	b.WriteString("\nBe strict and minimal.\n")
	return b.String()
}

// renderContext writes prior turns as plain text, oldest first.
func renderContext(turns []Turn) string {
	if len(turns) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("Recent conversation, oldest first. Use it only to resolve references like \"it\" or \"him\".\n")
	for i, t := range turns {
		fmt.Fprintf(&b, "%d. user said %q; decided %s", i+1, t.Transcript, t.Kind)
		if len(t.Params) > 0 {
			b.WriteString(" with")
			for _, spec := range intent.Specs() {
				if spec.Kind != t.Kind {
					continue
				}
				for _, p := range spec.Params {
					if v := t.Params.Get(p.Name); v != "" {
						fmt.Fprintf(&b, " %s=%q", p.Name, v)
					}
				}
			}
		}
		if t.Outcome != "" {
			fmt.Fprintf(&b, "; result: %s", t.Outcome)
		}
		b.WriteString("\n")
	}
	return b.String()
}
