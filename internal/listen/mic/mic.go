// Package mic records from the default input device with portaudio.
package mic

import (
	"context"
	"sync"

	"github.com/gordonklaus/portaudio"

	"vocaleye/internal/listen"
)

// Recorder owns the portaudio session. Init before first use, Close on exit.
type Recorder struct {
	cfg listen.EndpointConfig

	mu sync.Mutex
}

func NewRecorder(cfg listen.EndpointConfig) *Recorder {
	return &Recorder{cfg: cfg}
}

func (r *Recorder) Init() error {
	return portaudio.Initialize()
}

func (r *Recorder) Close() {
	portaudio.Terminate()
}

// Record captures one utterance, ending on trailing silence, the lead
// timeout, the length cap or ctx.
func (r *Recorder) Record(ctx context.Context) ([]float32, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ep := listen.NewEndpointer(r.cfg)
	buf := make([]float32, ep.FrameSize())

	stream, err := portaudio.OpenDefaultStream(1, 0, listen.SampleRate, len(buf), buf)
	if err != nil {
		return nil, err
	}
	defer stream.Close()

	if err := stream.Start(); err != nil {
		return nil, err
	}
	defer stream.Stop()

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := stream.Read(); err != nil {
			return nil, err
		}
		if ep.Push(buf) {
			break
		}
	}
	return ep.Samples(), nil
}
