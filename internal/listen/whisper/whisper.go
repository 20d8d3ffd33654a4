// Package whisper transcribes 16 kHz PCM with whisper.cpp.
package whisper

import (
	"context"
	"errors"
	"fmt"
	"io"
	"runtime"
	"strings"
	"sync"

	"github.com/ggerganov/whisper.cpp/bindings/go/pkg/whisper"

	"vocaleye/pkg/intent"
)

type Options struct {
	Language      string // "auto", "en", ...
	TranslateToEn bool
	Threads       int // <=0 means NumCPU
	InitialPrompt string
	BeamSize      int
}

type Transcriber struct {
	opt Options

	mu    sync.Mutex
	model whisper.Model
}

func NewTranscriber(modelPath string, opt Options) (*Transcriber, error) {
	if modelPath == "" {
		return nil, errors.New("empty model path")
	}
	m, err := whisper.New(modelPath)
	if err != nil {
		return nil, fmt.Errorf("load model: %w", err)
	}
	return &Transcriber{model: m, opt: opt}, nil
}

func (t *Transcriber) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.model == nil {
		return nil
	}
	err := t.model.Close()
	t.model = nil
	return err
}

// Transcribe runs the model over pcm (mono, 16 kHz, [-1, 1]). The
// transcript's confidence is the mean probability of its text tokens.
func (t *Transcriber) Transcribe(ctx context.Context, pcm []float32) (intent.Transcript, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.model == nil {
		return intent.Transcript{}, errors.New("nil model")
	}
	if len(pcm) == 0 {
		return intent.Transcript{}, errors.New("no audio samples provided")
	}

	wctx, err := t.model.NewContext()
	if err != nil {
		return intent.Transcript{}, fmt.Errorf("new context: %w", err)
	}

	lang := t.opt.Language
	if lang == "" {
		lang = "auto"
	}
	if err := wctx.SetLanguage(lang); err != nil {
		return intent.Transcript{}, fmt.Errorf("set language: %w", err)
	}
	wctx.SetTranslate(t.opt.TranslateToEn)

	threads := t.opt.Threads
	if threads <= 0 {
		threads = runtime.NumCPU()
	}
	wctx.SetThreads(uint(threads))
	if t.opt.BeamSize > 0 {
		wctx.SetBeamSize(t.opt.BeamSize)
	}
	if t.opt.InitialPrompt != "" {
		wctx.SetInitialPrompt(t.opt.InitialPrompt)
	}

	if err := wctx.Process(pcm, nil, nil, nil); err != nil {
		return intent.Transcript{}, fmt.Errorf("process: %w", err)
	}

	var (
		texts []string
		score tokenScore
	)
	for {
		if err := ctx.Err(); err != nil {
			return intent.Transcript{}, err
		}
		s, err := wctx.NextSegment()
		if err == io.EOF {
			break
		}
		if err != nil {
			return intent.Transcript{}, fmt.Errorf("next segment: %w", err)
		}
		texts = append(texts, strings.TrimSpace(s.Text))
		for _, tok := range s.Tokens {
			score.add(tok.Text, float64(tok.P))
		}
	}

	tr := intent.NewTranscript(strings.Join(texts, " "))
	if c, ok := score.mean(); ok {
		tr = tr.WithConfidence(c)
	}
	return tr, nil
}

type tokenScore struct {
	sum float64
	n   int
}

// add ignores control tokens such as [_BEG_] and [_TT_150].
func (s *tokenScore) add(text string, p float64) {
	if strings.HasPrefix(text, "[_") || strings.HasPrefix(text, "<|") {
		return
	}
	s.sum += p
	s.n++
}

func (s *tokenScore) mean() (float64, bool) {
	if s.n == 0 {
		return 0, false
	}
	return s.sum / float64(s.n), true
}
