// Package listen turns one spoken utterance into a Transcript.
package listen

import (
	"context"
	"errors"
	"fmt"
	log "log/slog"
	"math"
	"time"

	"vocaleye/pkg/intent"
)

var ErrNoSpeech = errors.New("no speech detected")

// Recorder captures mono 16 kHz float PCM until the speaker stops.
type Recorder interface {
	Record(ctx context.Context) ([]float32, error)
}

// Transcriber converts 16 kHz PCM to text.
type Transcriber interface {
	Transcribe(ctx context.Context, pcm []float32) (intent.Transcript, error)
}

// Cue signals that the assistant is listening.
type Cue interface {
	Play(ctx context.Context) error
}

// Ducker lowers other applications' audio while recording.
type Ducker interface {
	Duck(ctx context.Context) error
	Restore(ctx context.Context) error
}

// Listener records and transcribes one utterance. Cue and Ducker are optional.
type Listener struct {
	Recorder    Recorder
	Transcriber Transcriber
	Cue         Cue
	Ducker      Ducker
}

func (l *Listener) Listen(ctx context.Context) (intent.Transcript, error) {
	if l.Cue != nil {
		if err := l.Cue.Play(ctx); err != nil {
			log.Debug("Cue failed", "err", err)
		}
	}

	pcm, err := l.record(ctx)
	if err != nil {
		return intent.Transcript{}, err
	}
	if len(pcm) == 0 {
		return intent.Transcript{}, ErrNoSpeech
	}
	log.Info("Recorded", "samples", len(pcm), "seconds", float64(len(pcm))/SampleRate)

	return l.TranscribePCM(ctx, pcm)
}

func (l *Listener) record(ctx context.Context) ([]float32, error) {
	if l.Ducker != nil {
		if err := l.Ducker.Duck(ctx); err != nil {
			log.Debug("Duck failed", "err", err)
		}
		defer func() {
			// Restore even if ctx was cancelled mid-recording.
			rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
			defer cancel()
			if err := l.Ducker.Restore(rctx); err != nil {
				log.Debug("Restore volume failed", "err", err)
			}
		}()
	}

	pcm, err := l.Recorder.Record(ctx)
	if err != nil {
		return nil, fmt.Errorf("record: %w", err)
	}
	return pcm, nil
}

// TranscribePCM transcribes already-captured audio, e.g. a decoded voice note.
func (l *Listener) TranscribePCM(ctx context.Context, pcm []float32) (intent.Transcript, error) {
	t, err := l.Transcriber.Transcribe(ctx, pcm)
	if err != nil {
		return intent.Transcript{}, fmt.Errorf("transcribe: %w", err)
	}
	log.Info("Transcribed", "text", t.Text, "confidence", t.Confidence)
	return t, nil
}

func frameRMS(f []float32) float64 {
	if len(f) == 0 {
		return 0
	}
	var s float64
	for _, x := range f {
		s += float64(x * x)
	}
	return math.Sqrt(s / float64(len(f)))
}
