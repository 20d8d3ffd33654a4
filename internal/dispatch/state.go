package dispatch

// State is a step in the life of one dispatched action.
type State string

const (
	Received      State = "received"
	PolicyChecked State = "policy_checked"
	Confirmed     State = "confirmed"
	AutoApproved  State = "auto_approved"
	Executing     State = "executing"
	Succeeded     State = "succeeded"
	Failed        State = "failed"
	Rejected      State = "rejected"
)

// IsTerminal reports whether no further transition can happen from s.
func IsTerminal(s State) bool {
	switch s {
	case Succeeded, Failed, Rejected:
		return true
	default:
		return false
	}
}

func isAllowedTransition(from, to State) bool {
	switch from {
	case Received:
		return to == PolicyChecked || to == Rejected
	case PolicyChecked:
		return to == Confirmed || to == AutoApproved || to == Rejected
	case Confirmed, AutoApproved:
		return to == Executing || to == Rejected
	case Executing:
		return to == Succeeded || to == Failed
	default:
		return false
	}
}
