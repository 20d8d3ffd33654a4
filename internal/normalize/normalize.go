// Package normalize cleans recognised speech before it is interpreted.
package normalize

import (
	"regexp"
	"strings"
	"unicode"

	"vocaleye/pkg/intent"
)

// DefaultWakeWords are stripped from the front of an utterance.
var DefaultWakeWords = []string{"hey vocaleye", "ok vocaleye", "vocaleye"}

// DefaultFillers are dropped wherever they occur.
var DefaultFillers = []string{"um", "umm", "uh", "uhh", "er", "erm", "hmm", "mm"}

// Recogniser annotations such as [BLANK_AUDIO] or (music).
var annotationRe = regexp.MustCompile(`\[[^\]]*\]|\([^)]*\)`)

// Normalizer is immutable once built and safe for concurrent use.
type Normalizer struct {
	wake    [][]string
	fillers map[string]struct{}
}

// New builds a Normalizer. Wake words may span several words; matching
// ignores case and punctuation.
func New(wakeWords, fillers []string) *Normalizer {
	n := &Normalizer{fillers: make(map[string]struct{}, len(fillers))}

	for _, w := range wakeWords {
		var words []string
		for _, f := range strings.Fields(w) {
			if k := key(f); k != "" {
				words = append(words, k)
			}
		}
		if len(words) > 0 {
			n.wake = append(n.wake, words)
		}
	}
	// Longest phrase first, so "hey vocaleye" wins over "vocaleye".
	for i := 1; i < len(n.wake); i++ {
		for j := i; j > 0 && len(n.wake[j]) > len(n.wake[j-1]); j-- {
			n.wake[j], n.wake[j-1] = n.wake[j-1], n.wake[j]
		}
	}

	for _, f := range fillers {
		if k := key(f); k != "" {
			n.fillers[k] = struct{}{}
		}
	}
	return n
}

// Default returns a Normalizer with the default wake words and fillers.
func Default() *Normalizer {
	return New(DefaultWakeWords, DefaultFillers)
}

// Normalize returns the cleaned text of t, or intent.ErrEmptyInput when
// nothing is left.
func (n *Normalizer) Normalize(t intent.Transcript) (string, error) {
	out := n.Clean(t.Text)
	if out == "" {
		return "", intent.ErrEmptyInput
	}
	return out, nil
}

// Clean is the pure text transform behind Normalize. Clean(Clean(s)) == Clean(s).
func (n *Normalizer) Clean(text string) string {
	text = annotationRe.ReplaceAllString(text, " ")

	tokens := strings.Fields(text)
	kept := tokens[:0]
	for _, tok := range tokens {
		k := key(tok)
		if k == "" {
			continue
		}
		if _, filler := n.fillers[k]; filler {
			continue
		}
		kept = append(kept, tok)
	}

	for {
		stripped := false
		for _, phrase := range n.wake {
			if hasPrefix(kept, phrase) {
				kept = kept[len(phrase):]
				stripped = true
				break
			}
		}
		if !stripped {
			break
		}
	}

	return strings.Join(kept, " ")
}

func hasPrefix(tokens, phrase []string) bool {
	if len(tokens) < len(phrase) {
		return false
	}
	for i, w := range phrase {
		if key(tokens[i]) != w {
			return false
		}
	}
	return true
}

// key is the comparison form of a token: lower case, punctuation trimmed.
func key(tok string) string {
	return strings.ToLower(strings.TrimFunc(tok, func(r rune) bool {
		return unicode.IsPunct(r) || unicode.IsSymbol(r)
	}))
}
