package intent

import (
	"fmt"
	"time"
)

// Status is the terminal state of a dispatched action.
type Status string

const (
	StatusExecuted Status = "executed"
	StatusRejected Status = "rejected"
	StatusFailed   Status = "failed"
)

// Reason explains a rejection.
type Reason string

const (
	ReasonNone          Reason = ""
	ReasonPolicyDenied  Reason = "PolicyDenied"
	ReasonNotConfirmed  Reason = "NotConfirmed"
	ReasonNotUnderstood Reason = "NotUnderstood"
	ReasonIncomplete    Reason = "Incomplete"
	ReasonCancelled     Reason = "Cancelled"
)

// Outcome is the result of dispatching one Action. Values are never mutated
// after construction; pass them by value.
type Outcome struct {
	ActionID string    `json:"action_id"`
	Kind     Kind      `json:"kind"`
	Status   Status    `json:"status"`
	Reason   Reason    `json:"reason,omitempty"`
	Summary  string    `json:"summary"`
	Err      error     `json:"-"`
	At       time.Time `json:"at"`
}

// Executed reports a successful side effect.
func Executed(a Action, summary string) Outcome {
	return Outcome{
		ActionID: a.ID,
		Kind:     a.Kind,
		Status:   StatusExecuted,
		Summary:  summary,
		At:       time.Now(),
	}
}

// Rejected reports a deliberate refusal; nothing was executed.
func Rejected(a Action, reason Reason, summary string) Outcome {
	if summary == "" {
		summary = reason.Phrase()
	}
	return Outcome{
		ActionID: a.ID,
		Kind:     a.Kind,
		Status:   StatusRejected,
		Reason:   reason,
		Summary:  summary,
		At:       time.Now(),
	}
}

// Failed reports a downstream failure during execution.
func Failed(a Action, err error) Outcome {
	ee := &ExecutionError{Kind: a.Kind, Err: err}
	return Outcome{
		ActionID: a.ID,
		Kind:     a.Kind,
		Status:   StatusFailed,
		Summary:  ee.Error(),
		Err:      ee,
		At:       time.Now(),
	}
}

// Phrase is the calm spoken form of a rejection reason.
func (r Reason) Phrase() string {
	switch r {
	case ReasonPolicyDenied:
		return "I'm not allowed to do that."
	case ReasonNotConfirmed:
		return "Okay, I won't do that."
	case ReasonNotUnderstood:
		return "Sorry, I didn't understand that."
	case ReasonIncomplete:
		return "I'm missing some details for that, please say it again."
	case ReasonCancelled:
		return "Cancelled."
	default:
		return ""
	}
}

func (o Outcome) String() string {
	if o.Reason != ReasonNone {
		return fmt.Sprintf("%s %s (%s): %s", o.Kind, o.Status, o.Reason, o.Summary)
	}
	return fmt.Sprintf("%s %s: %s", o.Kind, o.Status, o.Summary)
}
