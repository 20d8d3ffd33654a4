package dispatch

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"vocaleye/internal/policy"
	"vocaleye/pkg/intent"
)

type recordingExecutor struct {
	mu      sync.Mutex
	calls   []intent.Action
	summary string
	err     error
}

func (e *recordingExecutor) Execute(_ context.Context, a intent.Action) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls = append(e.calls, a)
	return e.summary, e.err
}

func (e *recordingExecutor) count() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.calls)
}

type scriptedConfirmer struct {
	answer  bool
	err     error
	block   bool
	prompts []string
}

func (c *scriptedConfirmer) Confirm(ctx context.Context, prompt string) (bool, error) {
	c.prompts = append(c.prompts, prompt)
	if c.block {
		<-ctx.Done()
		return false, ctx.Err()
	}
	return c.answer, c.err
}

func store(t *testing.T, rules map[intent.Kind]policy.Rule) *policy.Store {
	t.Helper()
	p, err := policy.New(rules, 0.7)
	if err != nil {
		t.Fatalf("policy: %v", err)
	}
	return policy.NewStore(p)
}

func action(t *testing.T, k intent.Kind, params intent.Params, confidence float64) intent.Action {
	t.Helper()
	a, err := intent.NewAction(k, params, intent.NewTranscript("test"), confidence)
	if err != nil {
		t.Fatalf("NewAction: %v", err)
	}
	return a
}

func TestEmailScenarioExecutes(t *testing.T) {
	mail := &recordingExecutor{summary: "Email sent to jane"}
	d := New(store(t, map[intent.Kind]policy.Rule{intent.KindComposeEmail: policy.Allow}), nil,
		map[intent.Kind]Executor{intent.KindComposeEmail: mail}, Options{})

	a := action(t, intent.KindComposeEmail, intent.Params{"to": "jane", "subject": "meeting notes"}, 0.95)
	o := d.Dispatch(context.Background(), a)

	if o.Status != intent.StatusExecuted {
		t.Fatalf("status = %s (%s)", o.Status, o.Summary)
	}
	if !strings.Contains(o.Summary, "jane") {
		t.Fatalf("summary = %q", o.Summary)
	}
	if o.ActionID != a.ID || mail.count() != 1 {
		t.Fatalf("id=%s calls=%d", o.ActionID, mail.count())
	}
}

func TestDenyNeverExecutes(t *testing.T) {
	for _, confidence := range []float64{0, 0.5, 0.7, 0.99, 1} {
		cmd := &recordingExecutor{summary: "ran"}
		conf := &scriptedConfirmer{answer: true}
		var states []State
		d := New(store(t, map[intent.Kind]policy.Rule{intent.KindRunCommand: policy.Deny}), conf,
			map[intent.Kind]Executor{intent.KindRunCommand: cmd},
			Options{Observer: func(_ intent.Action, _, to State) { states = append(states, to) }})

		o := d.Dispatch(context.Background(), action(t, intent.KindRunCommand, intent.Params{"command": "ls"}, confidence))
		if o.Status != intent.StatusRejected || o.Reason != intent.ReasonPolicyDenied {
			t.Fatalf("confidence %v: outcome = %v", confidence, o)
		}
		if cmd.count() != 0 || len(conf.prompts) != 0 {
			t.Fatalf("denied action reached executor or confirmer")
		}
		for _, s := range states {
			if s == Executing {
				t.Fatalf("denied action reached Executing")
			}
		}
	}
}

func TestLowConfidenceForcesConfirmation(t *testing.T) {
	app := &recordingExecutor{summary: "Opened chrome"}
	conf := &scriptedConfirmer{answer: true}
	d := New(store(t, map[intent.Kind]policy.Rule{intent.KindLaunchApp: policy.Allow}), conf,
		map[intent.Kind]Executor{intent.KindLaunchApp: app}, Options{})

	o := d.Dispatch(context.Background(), action(t, intent.KindLaunchApp, intent.Params{"app": "chrome"}, 0.3))
	if len(conf.prompts) != 1 {
		t.Fatalf("expected confirmation for sub-threshold action")
	}
	if !strings.Contains(conf.prompts[0], "I think") {
		t.Fatalf("prompt should signal uncertainty: %q", conf.prompts[0])
	}
	if o.Status != intent.StatusExecuted {
		t.Fatalf("outcome = %v", o)
	}

	conf.prompts = nil
	d.Dispatch(context.Background(), action(t, intent.KindLaunchApp, intent.Params{"app": "chrome"}, 0.9))
	if len(conf.prompts) != 0 {
		t.Fatalf("confident allowed action should not ask")
	}
}

func TestUncertainParamsForceConfirmation(t *testing.T) {
	mail := &recordingExecutor{summary: "sent"}
	conf := &scriptedConfirmer{answer: false}
	d := New(store(t, map[intent.Kind]policy.Rule{intent.KindComposeEmail: policy.Allow}), conf,
		map[intent.Kind]Executor{intent.KindComposeEmail: mail}, Options{})

	a := action(t, intent.KindComposeEmail, intent.Params{"to": "jane", "subject": "notes"}, 0.99)
	a.Uncertain = []string{"to"}
	o := d.Dispatch(context.Background(), a)
	if o.Reason != intent.ReasonNotConfirmed || mail.count() != 0 {
		t.Fatalf("outcome = %v calls = %d", o, mail.count())
	}
}

func TestConfirmRequiredAnsweredNo(t *testing.T) {
	cmd := &recordingExecutor{summary: "ran"}
	conf := &scriptedConfirmer{answer: false}
	d := New(store(t, map[intent.Kind]policy.Rule{intent.KindRunCommand: policy.Confirm}), conf,
		map[intent.Kind]Executor{intent.KindRunCommand: cmd}, Options{})

	o := d.Dispatch(context.Background(), action(t, intent.KindRunCommand, intent.Params{"command": "ls -la"}, 0.99))
	if o.Status != intent.StatusRejected || o.Reason != intent.ReasonNotConfirmed {
		t.Fatalf("outcome = %v", o)
	}
	if cmd.count() != 0 {
		t.Fatalf("command executed without confirmation")
	}
	if !strings.Contains(conf.prompts[0], "ls -la") {
		t.Fatalf("prompt = %q", conf.prompts[0])
	}
}

func TestConfirmTimeout(t *testing.T) {
	cmd := &recordingExecutor{summary: "ran"}
	conf := &scriptedConfirmer{block: true}
	d := New(store(t, map[intent.Kind]policy.Rule{intent.KindRunCommand: policy.Confirm}), conf,
		map[intent.Kind]Executor{intent.KindRunCommand: cmd}, Options{ConfirmTimeout: 20 * time.Millisecond})

	start := time.Now()
	o := d.Dispatch(context.Background(), action(t, intent.KindRunCommand, intent.Params{"command": "ls"}, 0.99))
	if o.Reason != intent.ReasonNotConfirmed {
		t.Fatalf("outcome = %v", o)
	}
	if time.Since(start) > 5*time.Second {
		t.Fatalf("confirmation wait not bounded")
	}
	if cmd.count() != 0 {
		t.Fatalf("executed after timeout")
	}
}

func TestCallerDeadlineDuringConfirmation(t *testing.T) {
	cmd := &recordingExecutor{summary: "ran"}
	conf := &scriptedConfirmer{block: true}
	d := New(store(t, map[intent.Kind]policy.Rule{intent.KindRunCommand: policy.Confirm}), conf,
		map[intent.Kind]Executor{intent.KindRunCommand: cmd}, Options{ConfirmTimeout: time.Minute})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	o := d.Dispatch(ctx, action(t, intent.KindRunCommand, intent.Params{"command": "ls"}, 0.99))
	if o.Reason != intent.ReasonNotConfirmed || cmd.count() != 0 {
		t.Fatalf("outcome = %v calls = %d", o, cmd.count())
	}
}

func TestCancelDuringConfirmation(t *testing.T) {
	cmd := &recordingExecutor{summary: "ran"}
	conf := &scriptedConfirmer{block: true}
	d := New(store(t, map[intent.Kind]policy.Rule{intent.KindRunCommand: policy.Confirm}), conf,
		map[intent.Kind]Executor{intent.KindRunCommand: cmd}, Options{ConfirmTimeout: time.Minute})

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(10*time.Millisecond, cancel)
	o := d.Dispatch(ctx, action(t, intent.KindRunCommand, intent.Params{"command": "ls"}, 0.99))
	if o.Reason != intent.ReasonCancelled || cmd.count() != 0 {
		t.Fatalf("outcome = %v calls = %d", o, cmd.count())
	}
}

func TestExecutionFailureIsNotRetried(t *testing.T) {
	boom := errors.New("connection reset")
	mail := &recordingExecutor{err: boom}
	d := New(store(t, map[intent.Kind]policy.Rule{intent.KindComposeEmail: policy.Allow}), nil,
		map[intent.Kind]Executor{intent.KindComposeEmail: mail}, Options{})

	o := d.Dispatch(context.Background(), action(t, intent.KindComposeEmail, intent.Params{"to": "jane", "subject": "x"}, 0.99))
	if o.Status != intent.StatusFailed || !errors.Is(o.Err, boom) {
		t.Fatalf("outcome = %v err = %v", o, o.Err)
	}
	if mail.count() != 1 {
		t.Fatalf("calls = %d, want exactly one attempt", mail.count())
	}
}

func TestUnknownAndIncompleteAreRejected(t *testing.T) {
	ex := &recordingExecutor{summary: "x"}
	d := New(store(t, map[intent.Kind]policy.Rule{intent.KindComposeEmail: policy.Allow}), nil,
		map[intent.Kind]Executor{intent.KindComposeEmail: ex}, Options{})

	o := d.Dispatch(context.Background(), intent.Unknown(intent.NewTranscript("hmm"), "It's 5 o'clock."))
	if o.Reason != intent.ReasonNotUnderstood || o.Summary != "It's 5 o'clock." {
		t.Fatalf("outcome = %v", o)
	}

	partial := intent.Action{ID: "p", Kind: intent.KindComposeEmail, Params: intent.Params{"to": "jane"}, Confidence: 1}
	o = d.Dispatch(context.Background(), partial)
	if o.Reason != intent.ReasonIncomplete {
		t.Fatalf("outcome = %v", o)
	}
	if ex.count() != 0 {
		t.Fatalf("executor reached")
	}
}

func TestExecutorPanicBecomesFailure(t *testing.T) {
	d := New(store(t, map[intent.Kind]policy.Rule{intent.KindLaunchApp: policy.Allow}), nil,
		map[intent.Kind]Executor{intent.KindLaunchApp: ExecutorFunc(func(context.Context, intent.Action) (string, error) {
			panic("boom")
		})}, Options{})

	o := d.Dispatch(context.Background(), action(t, intent.KindLaunchApp, intent.Params{"app": "x"}, 1))
	if o.Status != intent.StatusFailed {
		t.Fatalf("outcome = %v", o)
	}
}

func TestMissingExecutorFails(t *testing.T) {
	d := New(store(t, map[intent.Kind]policy.Rule{intent.KindLaunchApp: policy.Allow}), nil, nil, Options{})
	o := d.Dispatch(context.Background(), action(t, intent.KindLaunchApp, intent.Params{"app": "x"}, 1))
	if o.Status != intent.StatusFailed {
		t.Fatalf("outcome = %v", o)
	}
}

func TestPolicySwapAppliesToNextAction(t *testing.T) {
	cmd := &recordingExecutor{summary: "ran"}
	s := store(t, map[intent.Kind]policy.Rule{intent.KindRunCommand: policy.Allow})
	d := New(s, nil, map[intent.Kind]Executor{intent.KindRunCommand: cmd}, Options{})

	a := action(t, intent.KindRunCommand, intent.Params{"command": "ls"}, 1)
	if o := d.Dispatch(context.Background(), a); o.Status != intent.StatusExecuted {
		t.Fatalf("outcome = %v", o)
	}

	deny, _ := policy.New(map[intent.Kind]policy.Rule{intent.KindRunCommand: policy.Deny}, 0.7)
	s.Swap(deny)
	if o := d.Dispatch(context.Background(), a); o.Reason != intent.ReasonPolicyDenied {
		t.Fatalf("outcome = %v", o)
	}
}

func TestTransitions(t *testing.T) {
	if !isAllowedTransition(Received, Rejected) || isAllowedTransition(Received, Executing) {
		t.Fatalf("received transitions wrong")
	}
	if isAllowedTransition(Succeeded, Executing) || !IsTerminal(Failed) || IsTerminal(Executing) {
		t.Fatalf("terminal states wrong")
	}
}
