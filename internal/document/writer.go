// Package document writes drafted content to PDF, DOCX or plain text files.
package document

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// Format is an output file format.
type Format string

const (
	PDF  Format = "pdf"
	DOCX Format = "docx"
	TXT  Format = "txt"
)

// ParseFormat accepts "pdf", ".PDF" and the like.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.TrimPrefix(strings.ToLower(strings.TrimSpace(s)), ".")); f {
	case PDF, DOCX, TXT:
		return f, nil
	default:
		return "", fmt.Errorf("unsupported document format %q", s)
	}
}

// DefaultDir is where documents go when no path is given.
func DefaultDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "AssistantOutputs"
	}
	return filepath.Join(home, "Documents", "AssistantOutputs")
}

// Writer renders content into files under Dir.
type Writer struct {
	Dir string
}

func NewWriter(dir string) *Writer {
	if dir == "" {
		dir = DefaultDir()
	}
	return &Writer{Dir: dir}
}

// Write renders content as format and returns the path written. An empty
// path derives a file name from title. Existing files are never overwritten.
func (w *Writer) Write(content string, format Format, path, title string) (string, error) {
	blocks := Parse(content)
	if len(blocks) == 0 {
		return "", errors.New("document has no content")
	}

	target, err := w.resolvePath(path, title, format)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return "", fmt.Errorf("create directory: %w", err)
	}

	switch format {
	case PDF:
		err = writePDF(target, Title(blocks, title), blocks)
	case DOCX:
		err = writeDOCX(target, blocks)
	case TXT:
		err = writeTXT(target, blocks)
	default:
		err = fmt.Errorf("unsupported document format %q", format)
	}
	if err != nil {
		return "", fmt.Errorf("write %s: %w", format, err)
	}
	return target, nil
}

var slugRe = regexp.MustCompile(`[^a-z0-9]+`)

func slug(s string) string {
	s = strings.Trim(slugRe.ReplaceAllString(strings.ToLower(s), "_"), "_")
	if len(s) > 60 {
		s = strings.TrimRight(s[:60], "_")
	}
	if s == "" {
		s = "document"
	}
	return s
}

func (w *Writer) resolvePath(path, title string, format Format) (string, error) {
	ext := "." + string(format)
	path = strings.TrimSpace(path)

	switch {
	case path == "":
		path = filepath.Join(w.Dir, slug(title)+ext)
	case strings.HasPrefix(path, "~"):
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		path = filepath.Join(home, strings.TrimPrefix(path, "~"))
	case !filepath.IsAbs(path):
		path = filepath.Join(w.Dir, path)
	}

	if info, err := os.Stat(path); err == nil && info.IsDir() {
		path = filepath.Join(path, slug(title)+ext)
	}
	if !strings.EqualFold(filepath.Ext(path), ext) {
		path += ext
	}
	return unique(path), nil
}

func unique(path string) string {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return path
	}
	ext := filepath.Ext(path)
	base := strings.TrimSuffix(path, ext)
	for i := 1; ; i++ {
		p := fmt.Sprintf("%s-%d%s", base, i, ext)
		if _, err := os.Stat(p); errors.Is(err, os.ErrNotExist) {
			return p
		}
	}
}

func writeTXT(path string, blocks []Block) error {
	var b strings.Builder
	for i, blk := range blocks {
		switch blk.Type {
		case Heading1, Heading2, Heading3:
			if i > 0 {
				b.WriteString("\n")
			}
			b.WriteString(strings.ToUpper(blk.Text))
			b.WriteString("\n")
		case Bullet:
			b.WriteString("  • " + blk.Text + "\n")
		default:
			b.WriteString(blk.Text + "\n")
		}
	}
	return os.WriteFile(path, []byte(b.String()), 0o644)
}
