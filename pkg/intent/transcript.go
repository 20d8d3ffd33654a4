package intent

import "time"

// Transcript is the recognised text of one utterance.
type Transcript struct {
	Text string    `json:"text"`
	At   time.Time `json:"at"`

	// Confidence is the recogniser's score in [0, 1]; only meaningful when
	// Scored is set.
	Confidence float64 `json:"confidence,omitempty"`
	Scored     bool    `json:"scored,omitempty"`
}

// NewTranscript stamps text with the current time and no score.
func NewTranscript(text string) Transcript {
	return Transcript{Text: text, At: time.Now()}
}

// WithConfidence returns a copy of t carrying score c.
func (t Transcript) WithConfidence(c float64) Transcript {
	t.Confidence = clamp01(c)
	t.Scored = true
	return t
}

func clamp01(c float64) float64 {
	switch {
	case c < 0:
		return 0
	case c > 1:
		return 1
	}
	return c
}
