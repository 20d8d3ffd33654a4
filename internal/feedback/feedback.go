// Package feedback tells the user what the assistant heard, asks for
// confirmation and reports outcomes by voice and on screen.
package feedback

import (
	"context"
	"fmt"
	"io"
	log "log/slog"
	"sync"

	"vocaleye/pkg/intent"
)

// Speaker reads text aloud.
type Speaker interface {
	Speak(ctx context.Context, text string) error
}

// Display shows a short status line.
type Display interface {
	Show(ctx context.Context, title, text string) error
}

// Publisher forwards outcomes to external observers.
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
}

const title = "VocalEye"

// Feedback fans one message out to the speaker, every display and the
// optional publisher. Individual channel failures are logged, never returned.
type Feedback struct {
	speaker   Speaker
	displays  []Display
	publisher Publisher

	mu sync.Mutex
}

func New(sp Speaker, pub Publisher, displays ...Display) *Feedback {
	return &Feedback{speaker: sp, publisher: pub, displays: displays}
}

// Say shows text and speaks it. Speech is serialized.
func (f *Feedback) Say(ctx context.Context, text string) {
	if text == "" {
		return
	}
	log.Info("Say", "text", text)
	f.show(ctx, text)

	if f.speaker == nil {
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.speaker.Speak(ctx, text); err != nil {
		log.Error("Failed to voice out", "err", err)
	}
}

// Status shows text without speaking it.
func (f *Feedback) Status(ctx context.Context, text string) {
	f.show(ctx, text)
}

func (f *Feedback) show(ctx context.Context, text string) {
	for _, d := range f.displays {
		if err := d.Show(ctx, title, text); err != nil {
			log.Warn("Display failed", "err", err)
		}
	}
}

// Heard echoes the transcript.
func (f *Feedback) Heard(ctx context.Context, t intent.Transcript) {
	f.Status(ctx, fmt.Sprintf("Heard: %s", t.Text))
	f.Publish(ctx, TranscriptEvent(t))
}

// Outcome reports o to the user.
func (f *Feedback) Outcome(ctx context.Context, o intent.Outcome) {
	f.Say(ctx, o.Summary)
	f.Publish(ctx, OutcomeEvent(o))
}

// Publish forwards ev to the status bus, if one is configured.
func (f *Feedback) Publish(ctx context.Context, ev Event) {
	if f.publisher == nil {
		return
	}
	if err := f.publisher.Publish(ctx, ev); err != nil {
		log.Warn("Status publish failed", "err", err)
	}
}

// Console prints status lines to w.
type Console struct {
	mu sync.Mutex
	w  io.Writer
}

func NewConsole(w io.Writer) *Console { return &Console{w: w} }

func (c *Console) Show(_ context.Context, title, text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, err := fmt.Fprintf(c.w, "[%s] %s\n", title, text)
	return err
}
