// Package assistant runs one utterance at a time through normalization,
// resolution and dispatch, and reports the outcome.
package assistant

import (
	"context"
	"errors"
	log "log/slog"
	"strings"
	"sync"
	"time"

	"vocaleye/internal/nlu"
	"vocaleye/pkg/intent"
)

type Normalizer interface {
	Normalize(t intent.Transcript) (string, error)
}

type Resolver interface {
	Resolve(ctx context.Context, text string, src intent.Transcript, history []nlu.Turn) (intent.Action, error)
}

type Dispatcher interface {
	Dispatch(ctx context.Context, a intent.Action) intent.Outcome
}

type Feedback interface {
	Heard(ctx context.Context, t intent.Transcript)
	Say(ctx context.Context, text string)
	Outcome(ctx context.Context, o intent.Outcome)
}

type Journal interface {
	Record(ctx context.Context, transcript string, o intent.Outcome) error
}

type Metrics interface {
	Utterance(source string)
	Resolved(d time.Duration, result string)
	Outcome(o intent.Outcome, took time.Duration)
	Flush() error
}

const (
	sayRepeat      = "I didn't catch that, please say it again."
	sayUnavailable = "I couldn't reach the language model. Please try again in a moment."
	sayNothing     = "There is nothing to cancel."
)

var cancelPhrases = map[string]bool{
	"cancel": true, "cancel that": true, "stop": true, "never mind": true, "nevermind": true, "forget it": true,
}

// Deps are the session's collaborators. Journal, Metrics and Gate are
// optional.
type Deps struct {
	Normalizer Normalizer
	Resolver   Resolver
	Dispatcher Dispatcher
	Feedback   Feedback
	Journal    Journal
	Metrics    Metrics
	Gate       *Gate

	HistorySize int
}

// Session owns one conversational pipeline.
type Session struct {
	d       Deps
	history *nlu.History

	turn sync.Mutex

	mu     sync.Mutex
	cancel context.CancelFunc
}

func New(d Deps) *Session {
	return &Session{d: d, history: nlu.NewHistory(d.HistorySize)}
}

// Handle runs t through the pipeline; see HandleFrom.
func (s *Session) Handle(ctx context.Context, t intent.Transcript) (intent.Outcome, error) {
	return s.HandleFrom(ctx, "text", t)
}

// HandleFrom runs one utterance from source ("voice", "socket", ...).
//
// Empty input returns intent.ErrEmptyInput without calling the model. A
// spoken "cancel" cancels whatever is in flight. Provider failures and
// cancellation before an action exists return an error and no Outcome;
// everything else returns exactly one Outcome.
func (s *Session) HandleFrom(ctx context.Context, source string, t intent.Transcript) (intent.Outcome, error) {
	if s.d.Metrics != nil {
		s.d.Metrics.Utterance(source)
	}
	quiet := context.WithoutCancel(ctx)

	text, err := s.d.Normalizer.Normalize(t)
	if err != nil {
		log.Info("Empty utterance", "raw", t.Text)
		s.d.Feedback.Say(quiet, sayRepeat)
		return intent.Outcome{}, err
	}

	if cancelPhrases[strings.ToLower(strings.Trim(text, ".!,? "))] {
		if !s.Cancel() {
			s.d.Feedback.Say(quiet, sayNothing)
		}
		return intent.Outcome{}, intent.ErrCancelled
	}

	// A new utterance answers a pending or upcoming confirmation of the
	// previous one with "no".
	if s.d.Gate != nil {
		taken := s.d.Gate.Queue()
		s.turn.Lock()
		taken()
	} else {
		s.turn.Lock()
	}
	defer s.turn.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	s.setCancel(cancel)
	defer s.setCancel(nil)

	s.d.Feedback.Heard(quiet, t)

	start := time.Now()
	a, err := s.d.Resolver.Resolve(ctx, text, t, s.history.Turns())
	s.observeResolve(time.Since(start), a, err)
	if err != nil {
		switch {
		case errors.Is(err, intent.ErrCancelled):
			s.d.Feedback.Say(quiet, intent.ReasonCancelled.Phrase())
		case intent.IsProviderUnavailable(err):
			log.Error("Language model unavailable", "err", err)
			s.d.Feedback.Say(quiet, sayUnavailable)
		default:
			log.Error("Resolve failed", "err", err)
			s.d.Feedback.Say(quiet, sayUnavailable)
		}
		return intent.Outcome{}, err
	}
	log.Info("Resolved", "action", a.ID, "kind", a.Kind, "confidence", a.Confidence, "uncertain", a.Uncertain)

	start = time.Now()
	o := s.d.Dispatcher.Dispatch(ctx, a)
	log.Info("Outcome", "action", a.ID, "status", o.Status, "reason", o.Reason, "summary", o.Summary)

	s.history.Add(nlu.Turn{Transcript: text, Kind: a.Kind, Params: a.Params, Outcome: o.String()})
	s.record(quiet, t, o, time.Since(start))
	s.d.Feedback.Outcome(quiet, o)
	return o, nil
}

// Cancel cancels the utterance in flight. It reports whether there was one.
func (s *Session) Cancel() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel == nil {
		return false
	}
	s.cancel()
	return true
}

// Reset forgets the conversation context.
func (s *Session) Reset() {
	s.turn.Lock()
	defer s.turn.Unlock()
	s.history.Reset()
}

func (s *Session) setCancel(c context.CancelFunc) {
	s.mu.Lock()
	s.cancel = c
	s.mu.Unlock()
}

func (s *Session) observeResolve(d time.Duration, a intent.Action, err error) {
	if s.d.Metrics == nil {
		return
	}
	result := "ok"
	switch {
	case errors.Is(err, intent.ErrCancelled):
		result = "cancelled"
	case err != nil:
		result = "unavailable"
	case a.Kind == intent.KindUnknown:
		result = "unknown"
	}
	s.d.Metrics.Resolved(d, result)
}

func (s *Session) record(ctx context.Context, t intent.Transcript, o intent.Outcome, took time.Duration) {
	if s.d.Journal != nil {
		if err := s.d.Journal.Record(ctx, t.Text, o); err != nil {
			log.Warn("Journal write failed", "err", err)
		}
	}
	if s.d.Metrics != nil {
		s.d.Metrics.Outcome(o, took)
		if err := s.d.Metrics.Flush(); err != nil {
			log.Warn("Metrics flush failed", "err", err)
		}
	}
}
