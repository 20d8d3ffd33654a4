package listen

import "time"

const SampleRate = 16000

// EndpointConfig controls when a recording is considered finished.
type EndpointConfig struct {
	FrameSize       int           // samples per frame, 320 = 20ms
	SilenceRMS      float64       // frames below this are silence
	TrailingSilence time.Duration // silence after speech that ends the utterance
	LeadTimeout     time.Duration // give up if nobody starts speaking
	MaxLength       time.Duration
}

func DefaultEndpointConfig() EndpointConfig {
	return EndpointConfig{
		FrameSize:       320,
		SilenceRMS:      0.015,
		TrailingSilence: 600 * time.Millisecond,
		LeadTimeout:     5 * time.Second,
		MaxLength:       10 * time.Second,
	}
}

func (c EndpointConfig) withDefaults() EndpointConfig {
	d := DefaultEndpointConfig()
	if c.FrameSize <= 0 {
		c.FrameSize = d.FrameSize
	}
	if c.SilenceRMS <= 0 {
		c.SilenceRMS = d.SilenceRMS
	}
	if c.TrailingSilence <= 0 {
		c.TrailingSilence = d.TrailingSilence
	}
	if c.LeadTimeout <= 0 {
		c.LeadTimeout = d.LeadTimeout
	}
	if c.MaxLength <= 0 {
		c.MaxLength = d.MaxLength
	}
	return c
}

// Endpointer accumulates frames from the start of speech until trailing
// silence, the lead timeout or the length cap.
type Endpointer struct {
	cfg      EndpointConfig
	frameDur time.Duration

	out      []float32
	speaking bool
	silent   int
	frames   int
}

func NewEndpointer(cfg EndpointConfig) *Endpointer {
	cfg = cfg.withDefaults()
	return &Endpointer{
		cfg:      cfg,
		frameDur: time.Duration(cfg.FrameSize) * time.Second / SampleRate,
		out:      make([]float32, 0, SampleRate*3),
	}
}

func (e *Endpointer) FrameSize() int { return e.cfg.FrameSize }

// Push adds one frame and reports whether the utterance is complete.
func (e *Endpointer) Push(frame []float32) bool {
	e.frames++
	elapsed := time.Duration(e.frames) * e.frameDur

	if frameRMS(frame) > e.cfg.SilenceRMS {
		e.speaking = true
		e.silent = 0
		e.out = append(e.out, frame...)
	} else if e.speaking {
		e.silent++
		if time.Duration(e.silent)*e.frameDur >= e.cfg.TrailingSilence {
			return true
		}
		e.out = append(e.out, frame...)
	} else if elapsed >= e.cfg.LeadTimeout {
		return true
	}

	return elapsed >= e.cfg.MaxLength
}

// Samples returns what was captured; empty if nobody spoke.
func (e *Endpointer) Samples() []float32 { return e.out }
