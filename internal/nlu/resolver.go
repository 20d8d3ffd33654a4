package nlu

import (
	"context"
	"errors"
	log "log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sony/gobreaker"

	"vocaleye/pkg/intent"
)

// Config tunes a Resolver. Zero values fall back to defaults.
type Config struct {
	// Timeout bounds each provider attempt.
	Timeout time.Duration
	// Backoff is the wait before the single retry.
	Backoff time.Duration
	// BreakerFailures consecutive failed resolutions open the breaker.
	BreakerFailures uint32
	// BreakerCooldown keeps the breaker open before probing again.
	BreakerCooldown time.Duration
	// Applications are the installed app names offered to the model.
	Applications []string
	// OnBreakerChange, if set, is told when the breaker opens or closes.
	OnBreakerChange func(open bool)
}

func (c Config) withDefaults() Config {
	if c.Timeout <= 0 {
		c.Timeout = 20 * time.Second
	}
	if c.Backoff <= 0 {
		c.Backoff = 500 * time.Millisecond
	}
	if c.BreakerFailures == 0 {
		c.BreakerFailures = 3
	}
	if c.BreakerCooldown <= 0 {
		c.BreakerCooldown = 30 * time.Second
	}
	return c
}

// Resolver turns normalized text into exactly one Action.
type Resolver struct {
	provider Provider
	cfg      Config
	schema   string
	breaker  *gobreaker.CircuitBreaker
}

func NewResolver(p Provider, cfg Config) *Resolver {
	cfg = cfg.withDefaults()
	return &Resolver{
		provider: p,
		cfg:      cfg,
		schema:   SystemPrompt(cfg.Applications),
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        "llm",
			MaxRequests: 1,
			Timeout:     cfg.BreakerCooldown,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= cfg.BreakerFailures
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				log.Warn("Provider breaker", "name", name, "from", from.String(), "to", to.String())
				if cfg.OnBreakerChange != nil {
					cfg.OnBreakerChange(to == gobreaker.StateOpen)
				}
			},
		}),
	}
}

// Resolve asks the model about text and parses the answer.
//
// Provider failures come back as *intent.ProviderUnavailableError and no
// Action. A user cancellation comes back as intent.ErrCancelled. Everything
// the model says that does not fit the schema becomes an Unknown action.
func (r *Resolver) Resolve(ctx context.Context, text string, src intent.Transcript, history []Turn) (intent.Action, error) {
	req := Request{
		Prompt:  text,
		Schema:  r.schema,
		Context: history,
	}

	raw, err := r.call(ctx, req)
	if err != nil {
		return intent.Action{}, err
	}

	a, perr := ParseCompletion(raw, src)
	if perr != nil {
		log.Warn("Completion rejected", "err", perr)
	}
	return a, nil
}

// call runs one provider request through the breaker with at most one retry.
func (r *Resolver) call(ctx context.Context, req Request) (string, error) {
	var cancelled error
	out, err := r.breaker.Execute(func() (interface{}, error) {
		raw, err := r.withRetry(ctx, req)
		if err != nil && errors.Is(ctx.Err(), context.Canceled) {
			// The user gave up; that says nothing about the provider.
			cancelled = err
			return "", nil
		}
		return raw, err
	})
	if cancelled != nil {
		return "", intent.ErrCancelled
	}
	if err != nil {
		return "", &intent.ProviderUnavailableError{Err: err}
	}
	return out.(string), nil
}

func (r *Resolver) withRetry(ctx context.Context, req Request) (string, error) {
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = r.cfg.Backoff
	eb.MaxInterval = r.cfg.Backoff * 2
	eb.MaxElapsedTime = 0

	var raw string
	attempt := 0
	op := func() error {
		attempt++
		actx, cancel := context.WithTimeout(ctx, r.cfg.Timeout)
		defer cancel()

		out, err := r.provider.Complete(actx, req)
		if err == nil {
			raw = out
			return nil
		}
		log.Warn("Provider call failed", "attempt", attempt, "err", err)
		if ctx.Err() != nil {
			return backoff.Permanent(ctx.Err())
		}
		if !transient(err) {
			return backoff.Permanent(err)
		}
		return err
	}

	b := backoff.WithContext(backoff.WithMaxRetries(eb, 1), ctx)
	if err := backoff.Retry(op, b); err != nil {
		return "", err
	}
	return raw, nil
}

// Schema returns the system prompt sent with every resolution.
func (r *Resolver) Schema() string { return r.schema }
