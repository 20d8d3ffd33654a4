package document

import (
	"regexp"
	"strings"
)

// BlockType is the structural role of one line of drafted content.
type BlockType int

const (
	Paragraph BlockType = iota
	Heading1
	Heading2
	Heading3
	Bullet
)

type Block struct {
	Type BlockType
	Text string
}

var (
	codeRe       = regexp.MustCompile("`+([^`]+?)`+")
	boldStarRe   = regexp.MustCompile(`\*\*(.+?)\*\*`)
	boldUnderRe  = regexp.MustCompile(`__(.+?)__`)
	italStarRe   = regexp.MustCompile(`\*(.+?)\*`)
	italUnderRe  = regexp.MustCompile(`\b_(.+?)_\b`)
	strayMarksRe = regexp.MustCompile("[*`]+")
)

// stripInline removes emphasis and code markers, keeping their content.
func stripInline(s string) string {
	s = codeRe.ReplaceAllString(s, "$1")
	s = boldStarRe.ReplaceAllString(s, "$1")
	s = boldUnderRe.ReplaceAllString(s, "$1")
	s = italStarRe.ReplaceAllString(s, "$1")
	s = italUnderRe.ReplaceAllString(s, "$1")
	s = strayMarksRe.ReplaceAllString(s, "")
	return strings.TrimSpace(s)
}

// Parse splits markdown-like content into blocks. Blank lines are dropped and
// no marker characters survive into block text.
func Parse(content string) []Block {
	var out []Block
	for _, raw := range strings.Split(content, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}
		b := Block{Type: Paragraph}
		switch {
		case strings.HasPrefix(line, "### "):
			b.Type, line = Heading3, line[4:]
		case strings.HasPrefix(line, "## "):
			b.Type, line = Heading2, line[3:]
		case strings.HasPrefix(line, "# "):
			b.Type, line = Heading1, line[2:]
		case strings.HasPrefix(line, "- "), strings.HasPrefix(line, "* "), strings.HasPrefix(line, "• "):
			b.Type = Bullet
			_, line, _ = strings.Cut(line, " ")
		}
		b.Text = stripInline(line)
		if b.Text == "" {
			continue
		}
		out = append(out, b)
	}
	return out
}

// Title returns the first heading's text, or fallback.
func Title(blocks []Block, fallback string) string {
	for _, b := range blocks {
		if b.Type == Heading1 || b.Type == Heading2 {
			return b.Text
		}
	}
	return fallback
}
