// Package dispatch checks resolved actions against the capability policy and
// runs them through the matching executor, producing exactly one Outcome per
// action.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	log "log/slog"
	"time"

	"vocaleye/internal/policy"
	"vocaleye/pkg/intent"
)

// DefaultConfirmTimeout bounds the wait for a yes/no answer.
const DefaultConfirmTimeout = 15 * time.Second

// Executor performs the side effect of one action kind and returns a short
// human-readable summary.
type Executor interface {
	Execute(ctx context.Context, a intent.Action) (string, error)
}

// ExecutorFunc adapts a function to Executor.
type ExecutorFunc func(ctx context.Context, a intent.Action) (string, error)

func (f ExecutorFunc) Execute(ctx context.Context, a intent.Action) (string, error) {
	return f(ctx, a)
}

// Confirmer asks the user a yes/no question. It must return when ctx is done.
type Confirmer interface {
	Confirm(ctx context.Context, prompt string) (bool, error)
}

// Observer is told about every state transition.
type Observer func(a intent.Action, from, to State)

type Options struct {
	ConfirmTimeout time.Duration
	Observer       Observer
}

// Dispatcher holds no per-action state; each Dispatch call is independent.
type Dispatcher struct {
	policies       *policy.Store
	confirmer      Confirmer
	executors      map[intent.Kind]Executor
	confirmTimeout time.Duration
	observe        Observer
}

func New(policies *policy.Store, confirmer Confirmer, executors map[intent.Kind]Executor, opts Options) *Dispatcher {
	if opts.ConfirmTimeout <= 0 {
		opts.ConfirmTimeout = DefaultConfirmTimeout
	}
	ex := make(map[intent.Kind]Executor, len(executors))
	for k, e := range executors {
		ex[k] = e
	}
	return &Dispatcher{
		policies:       policies,
		confirmer:      confirmer,
		executors:      ex,
		confirmTimeout: opts.ConfirmTimeout,
		observe:        opts.Observer,
	}
}

type run struct {
	d     *Dispatcher
	a     intent.Action
	state State
}

func (r *run) to(next State) {
	if !isAllowedTransition(r.state, next) {
		log.Error("Invalid dispatch transition", "action", r.a.ID, "from", r.state, "to", next)
	}
	log.Debug("Dispatch", "action", r.a.ID, "kind", r.a.Kind, "from", r.state, "to", next)
	if r.d.observe != nil {
		r.d.observe(r.a, r.state, next)
	}
	r.state = next
}

// Dispatch runs a through policy, confirmation and execution.
func (d *Dispatcher) Dispatch(ctx context.Context, a intent.Action) intent.Outcome {
	r := &run{d: d, a: a, state: Received}

	if a.Kind == intent.KindUnknown {
		r.to(Rejected)
		return intent.Rejected(a, intent.ReasonNotUnderstood, a.Reply)
	}
	if err := a.Validate(); err != nil {
		log.Warn("Refusing incomplete action", "action", a.ID, "err", err)
		r.to(Rejected)
		return intent.Rejected(a, intent.ReasonIncomplete, "")
	}

	// One snapshot for the whole action, even if settings change meanwhile.
	snap := d.policies.Load()
	rule := snap.Rule(a.Kind)
	r.to(PolicyChecked)

	if rule == policy.Deny {
		r.to(Rejected)
		return intent.Rejected(a, intent.ReasonPolicyDenied, "")
	}

	needConfirm := rule == policy.Confirm ||
		a.Confidence < snap.Threshold() ||
		len(a.Uncertain) > 0

	if needConfirm {
		ok, err := d.confirm(ctx, a, rule != policy.Confirm)
		// An expired deadline is an unanswered question, not a cancel.
		if err != nil && errors.Is(ctx.Err(), context.Canceled) {
			r.to(Rejected)
			return intent.Rejected(a, intent.ReasonCancelled, "")
		}
		if err != nil || !ok {
			if err != nil {
				log.Info("Confirmation not given", "action", a.ID, "err", err)
			}
			r.to(Rejected)
			return intent.Rejected(a, intent.ReasonNotConfirmed, "")
		}
		r.to(Confirmed)
	} else {
		r.to(AutoApproved)
	}

	if ctx.Err() != nil {
		r.to(Rejected)
		return intent.Rejected(a, intent.ReasonCancelled, "")
	}

	ex, ok := d.executors[a.Kind]
	if !ok {
		r.to(Executing)
		r.to(Failed)
		return intent.Failed(a, fmt.Errorf("no executor registered for %s", a.Kind))
	}

	r.to(Executing)
	summary, err := d.execute(ctx, ex, a)
	if err != nil {
		r.to(Failed)
		log.Error("Action failed", "action", a.ID, "kind", a.Kind, "err", err)
		return intent.Failed(a, err)
	}
	r.to(Succeeded)
	return intent.Executed(a, summary)
}

func (d *Dispatcher) confirm(ctx context.Context, a intent.Action, unsure bool) (bool, error) {
	if d.confirmer == nil {
		return false, fmt.Errorf("no confirmer configured")
	}
	ctx, cancel := context.WithTimeout(ctx, d.confirmTimeout)
	defer cancel()

	prompt := fmt.Sprintf("Should I %s?", a.Describe())
	if unsure {
		prompt = fmt.Sprintf("I think you want me to %s. Should I go ahead?", a.Describe())
	}
	return d.confirmer.Confirm(ctx, prompt)
}

// execute makes exactly one attempt. Once the side effect has been issued it
// is not cancelled; executors bound their own duration.
func (d *Dispatcher) execute(ctx context.Context, ex Executor, a intent.Action) (summary string, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("executor panic: %v", p)
		}
	}()
	return ex.Execute(context.WithoutCancel(ctx), a)
}
