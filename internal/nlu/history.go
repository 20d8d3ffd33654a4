package nlu

import "vocaleye/pkg/intent"

// DefaultHistorySize is the number of turns kept when none is configured.
const DefaultHistorySize = 5

// Turn is one finished exchange: what was said, what was decided, how it went.
type Turn struct {
	Transcript string
	Kind       intent.Kind
	Params     intent.Params
	Outcome    string
}

// History keeps the last N turns in a ring. It is owned by one session and
// not safe for concurrent use.
type History struct {
	buf   []Turn
	start int
	n     int
}

func NewHistory(size int) *History {
	if size <= 0 {
		size = DefaultHistorySize
	}
	return &History{buf: make([]Turn, size)}
}

// Add appends t, evicting the oldest turn when full.
func (h *History) Add(t Turn) {
	t.Params = t.Params.Clone()
	if h.n < len(h.buf) {
		h.buf[(h.start+h.n)%len(h.buf)] = t
		h.n++
		return
	}
	h.buf[h.start] = t
	h.start = (h.start + 1) % len(h.buf)
}

// Turns returns a copy of the kept turns, oldest first.
func (h *History) Turns() []Turn {
	out := make([]Turn, 0, h.n)
	for i := 0; i < h.n; i++ {
		t := h.buf[(h.start+i)%len(h.buf)]
		t.Params = t.Params.Clone()
		out = append(out, t)
	}
	return out
}

func (h *History) Len() int { return h.n }

func (h *History) Cap() int { return len(h.buf) }

func (h *History) Reset() {
	h.buf = make([]Turn, len(h.buf))
	h.start, h.n = 0, 0
}
