package intent

import "strings"

// Kind enumerates the actions the assistant can take.
type Kind string

const (
	KindLaunchApp        Kind = "LaunchApp"
	KindRunCommand       Kind = "RunCommand"
	KindComposeEmail     Kind = "ComposeEmail"
	KindGenerateDocument Kind = "GenerateDocument"
	KindUnknown          Kind = "Unknown"
)

// Parameter names.
const (
	ParamApp     = "app"
	ParamTarget  = "target"
	ParamCommand = "command"
	ParamTo      = "to"
	ParamSubject = "subject"
	ParamTopic   = "topic"
	ParamFormat  = "format"
	ParamPath    = "path"
)

// Document formats accepted for GenerateDocument.
const (
	FormatPDF  = "pdf"
	FormatDOCX = "docx"
	FormatTXT  = "txt"
)

// ParamSpec describes one parameter of a kind.
type ParamSpec struct {
	Name        string
	Required    bool
	Description string
}

// KindSpec describes an actionable kind and its parameters.
type KindSpec struct {
	Kind        Kind
	Description string
	Params      []ParamSpec
}

var specs = []KindSpec{
	{
		Kind:        KindLaunchApp,
		Description: "Open a desktop application, optionally with a URL or file.",
		Params: []ParamSpec{
			{Name: ParamApp, Required: true, Description: "application name as the user said it"},
			{Name: ParamTarget, Description: "URL or file to open with the application"},
		},
	},
	{
		Kind:        KindRunCommand,
		Description: "Run a single terminal command without a shell.",
		Params: []ParamSpec{
			{Name: ParamCommand, Required: true, Description: "command line, words separated by spaces, quoting allowed"},
		},
	},
	{
		Kind:        KindComposeEmail,
		Description: "Write and send an email.",
		Params: []ParamSpec{
			{Name: ParamTo, Required: true, Description: "recipient name or email address exactly as spoken"},
			{Name: ParamSubject, Required: true, Description: "short subject line"},
			{Name: ParamTopic, Description: "what the email body should cover"},
		},
	},
	{
		Kind:        KindGenerateDocument,
		Description: "Write a document about a topic and save it.",
		Params: []ParamSpec{
			{Name: ParamTopic, Required: true, Description: "what the document is about"},
			{Name: ParamFormat, Required: true, Description: "one of pdf, docx, txt"},
			{Name: ParamPath, Description: "file path to save to"},
		},
	},
}

// Specs returns the schema of every actionable kind, in a stable order.
func Specs() []KindSpec {
	out := make([]KindSpec, len(specs))
	copy(out, specs)
	return out
}

// Kinds returns the actionable kinds (everything but Unknown).
func Kinds() []Kind {
	out := make([]Kind, 0, len(specs))
	for _, s := range specs {
		out = append(out, s.Kind)
	}
	return out
}

// SpecFor returns the schema for k.
func SpecFor(k Kind) (KindSpec, bool) {
	for _, s := range specs {
		if s.Kind == k {
			return s, true
		}
	}
	return KindSpec{}, false
}

// ParseKind matches s against the known kinds, ignoring case.
// Anything unrecognised is reported as KindUnknown, false.
func ParseKind(s string) (Kind, bool) {
	s = strings.TrimSpace(s)
	if strings.EqualFold(s, string(KindUnknown)) {
		return KindUnknown, true
	}
	for _, spec := range specs {
		if strings.EqualFold(s, string(spec.Kind)) {
			return spec.Kind, true
		}
	}
	return KindUnknown, false
}

func (k Kind) String() string { return string(k) }
