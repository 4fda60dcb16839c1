// Package debounce turns a stream of pass/fail probe outcomes into at most
// one notification per down/up transition.
package debounce

import "github.com/hamed0406/urlmonitor/internal/domain"

// DefaultThreshold is the number of consecutive failing cycles before a
// down alert fires.
const DefaultThreshold = 5

// Kind is the notification a transition asks for.
type Kind int

const (
	None Kind = iota
	AlertDown
	AlertUp
)

func (k Kind) String() string {
	switch k {
	case AlertDown:
		return "down"
	case AlertUp:
		return "up"
	default:
		return "none"
	}
}

// Reason explains an AlertDown.
type Reason int

const (
	NoReason Reason = iota
	Unreachable
	KeywordMissing
)

func (r Reason) String() string {
	switch r {
	case Unreachable:
		return "unreachable"
	case KeywordMissing:
		return "keyword_missing"
	default:
		return ""
	}
}

// Intent is the notification produced by one transition.
type Intent struct {
	Kind   Kind
	Reason Reason
}

// Fires reports whether the intent should be dispatched.
func (i Intent) Fires() bool { return i.Kind != None }

// Transition computes the next debounce state for one cycle.
//
// A down alert fires on the cycle where the failure count first reaches
// threshold while no down alert is outstanding; an up alert fires on the
// first successful cycle after that. The count saturates at threshold.
func Transition(prior domain.DebounceState, outcome domain.ProbeOutcome, threshold int) (domain.DebounceState, Intent) {
	if threshold < 1 {
		threshold = 1
	}
	prior = prior.Normalize(0)

	if outcome.OK() {
		if prior.AlertedDown {
			return domain.DebounceState{AlertedUp: true}, Intent{Kind: AlertUp}
		}
		return domain.DebounceState{}, Intent{}
	}

	next := domain.DebounceState{
		ConsecutiveFailures: min(prior.ConsecutiveFailures+1, threshold),
		AlertedDown:         prior.AlertedDown,
		AlertedUp:           prior.AlertedUp,
	}
	if next.ConsecutiveFailures >= threshold && !prior.AlertedDown {
		reason := Unreachable
		if outcome.Reachable {
			reason = KeywordMissing
		}
		next.AlertedDown = true
		next.AlertedUp = false
		return next, Intent{Kind: AlertDown, Reason: reason}
	}
	return next, Intent{}
}
