package feedback

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"vocaleye/pkg/intent"
)

var (
	yesWords = []string{"yes", "yeah", "yep", "yup", "sure", "confirm", "confirmed", "ok", "okay", "do it", "go ahead", "please do", "affirmative", "y"}
	noWords  = []string{"no", "not", "nope", "don't", "do not", "cancel", "stop", "abort", "never mind", "negative", "n"}
)

// ParseAnswer reports whether text is a clear yes. Anything else, including
// an unclear answer, is treated as no.
func ParseAnswer(text string) (yes, clear bool) {
	s := strings.ToLower(strings.TrimSpace(text))
	s = strings.Trim(s, ".!?, ")
	if s == "" {
		return false, false
	}
	words := " " + strings.Join(strings.FieldsFunc(s, func(r rune) bool {
		return r == ' ' || r == ',' || r == '.' || r == '!' || r == '?'
	}), " ") + " "

	has := func(list []string) bool {
		for _, w := range list {
			if strings.Contains(words, " "+w+" ") {
				return true
			}
		}
		return false
	}
	no, y := has(noWords), has(yesWords)
	switch {
	case no:
		return false, true
	case y:
		return true, true
	default:
		return false, false
	}
}

// ConsoleConfirmer asks on a terminal.
type ConsoleConfirmer struct {
	out io.Writer

	once  sync.Once
	in    *bufio.Reader
	lines chan string
	stale bool
}

func NewConsoleConfirmer(in io.Reader, out io.Writer) *ConsoleConfirmer {
	return &ConsoleConfirmer{in: bufio.NewReader(in), out: out, lines: make(chan string, 8)}
}

func (c *ConsoleConfirmer) start() {
	go func() {
		defer close(c.lines)
		for {
			line, err := c.in.ReadString('\n')
			if line != "" {
				c.lines <- line
			}
			if err != nil {
				return
			}
		}
	}()
}

func (c *ConsoleConfirmer) Confirm(ctx context.Context, prompt string) (bool, error) {
	c.once.Do(c.start)

	// Lines typed after an earlier prompt expired are not answers to this one.
	if c.stale {
		c.stale = false
	drain:
		for {
			select {
			case _, ok := <-c.lines:
				if !ok {
					break drain
				}
			default:
				break drain
			}
		}
	}

	fmt.Fprintf(c.out, "%s [y/N] ", prompt)
	select {
	case <-ctx.Done():
		c.stale = true
		fmt.Fprintln(c.out)
		return false, ctx.Err()
	case line, ok := <-c.lines:
		if !ok {
			return false, io.EOF
		}
		yes, _ := ParseAnswer(line)
		return yes, nil
	}
}

// Listener captures one spoken reply.
type Listener interface {
	Listen(ctx context.Context) (intent.Transcript, error)
}

// VoiceConfirmer speaks the prompt and listens for a yes or no.
type VoiceConfirmer struct {
	Feedback *Feedback
	Listener Listener
}

func (v *VoiceConfirmer) Confirm(ctx context.Context, prompt string) (bool, error) {
	v.Feedback.Say(ctx, prompt)
	if err := ctx.Err(); err != nil {
		return false, err
	}

	t, err := v.Listener.Listen(ctx)
	if err != nil {
		return false, err
	}
	yes, clear := ParseAnswer(t.Text)
	if !clear {
		v.Feedback.Status(ctx, "Didn't catch a yes or no")
	}
	return yes, nil
}
