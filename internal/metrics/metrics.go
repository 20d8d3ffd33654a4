// Package metrics counts utterances and outcomes and exports them to a
// node_exporter textfile.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"vocaleye/pkg/intent"
)

const namespace = "vocaleye"

type Recorder struct {
	reg      *prometheus.Registry
	textfile string

	utterances *prometheus.CounterVec
	outcomes   *prometheus.CounterVec
	resolve    *prometheus.HistogramVec
	execute    *prometheus.HistogramVec
	breaker    prometheus.Gauge
}

// New registers the assistant's metrics on a private registry. An empty
// textfile disables Flush.
func New(textfile string) *Recorder {
	r := &Recorder{
		reg:      prometheus.NewRegistry(),
		textfile: textfile,

		utterances: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "utterances_total",
			Help:      "Utterances received, by source.",
		}, []string{"source"}),
		outcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "outcomes_total",
			Help:      "Dispatched actions by kind, status and reason.",
		}, []string{"kind", "status", "reason"}),
		resolve: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "resolve_seconds",
			Help:      "Time spent resolving a transcript to an action.",
			Buckets:   []float64{.25, .5, 1, 2, 4, 8, 16, 32},
		}, []string{"result"}),
		execute: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "execute_seconds",
			Help:      "Time from dispatch to outcome, by kind.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"kind"}),
		breaker: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "provider_breaker_open",
			Help:      "1 while the language model circuit breaker is open.",
		}),
	}
	r.reg.MustRegister(r.utterances, r.outcomes, r.resolve, r.execute, r.breaker)
	return r
}

func (r *Recorder) Registry() *prometheus.Registry { return r.reg }

func (r *Recorder) Utterance(source string) {
	r.utterances.WithLabelValues(source).Inc()
}

// Resolved observes one resolver call. result is "ok", "unknown",
// "unavailable" or "cancelled".
func (r *Recorder) Resolved(d time.Duration, result string) {
	r.resolve.WithLabelValues(result).Observe(d.Seconds())
}

func (r *Recorder) Outcome(o intent.Outcome, took time.Duration) {
	reason := string(o.Reason)
	if reason == "" {
		reason = "none"
	}
	r.outcomes.WithLabelValues(string(o.Kind), string(o.Status), reason).Inc()
	r.execute.WithLabelValues(string(o.Kind)).Observe(took.Seconds())
}

func (r *Recorder) BreakerOpen(open bool) {
	if open {
		r.breaker.Set(1)
	} else {
		r.breaker.Set(0)
	}
}

// Flush writes the current values atomically to the textfile.
func (r *Recorder) Flush() error {
	if r.textfile == "" {
		return nil
	}
	return prometheus.WriteToTextfile(r.textfile, r.reg)
}
