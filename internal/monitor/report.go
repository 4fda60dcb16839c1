package monitor

import (
	"time"

	"go.uber.org/multierr"

	"github.com/hamed0406/urlmonitor/internal/debounce"
	"github.com/hamed0406/urlmonitor/internal/domain"
	"github.com/hamed0406/urlmonitor/internal/probe"
)

// Error kinds counted in a Report.
const (
	ErrKindConfig    = "config"
	ErrKindStateLoad = "state_load"
	ErrKindStateSave = "state_save"
	ErrKindNotify    = "notify"
)

// TargetReport is what happened to one target during a cycle.
type TargetReport struct {
	Target    domain.Target
	Probe     probe.Result
	Outcome   domain.ProbeOutcome
	Prior     domain.DebounceState
	Next      domain.DebounceState
	Intent    debounce.Intent
	Message   string
	NotifyErr error
}

// Notified reports whether an alert was dispatched without error.
func (t TargetReport) Notified() bool { return t.Intent.Fires() && t.NotifyErr == nil }

// Report summarizes one cycle. Err holds every non-fatal error the cycle hit,
// combined with multierr; Counts tallies them by kind.
type Report struct {
	CycleID  string
	Started  time.Time
	Duration time.Duration
	Targets  []TargetReport
	Pruned   int
	Counts   map[string]int
	Err      error

	// Aborted is set when the cycle did not run to completion: ctx was
	// cancelled or the store could not be read. Nothing was saved.
	Aborted error
}

func (r *Report) addErr(kind string, err error) {
	if err == nil {
		return
	}
	if r.Counts == nil {
		r.Counts = map[string]int{}
	}
	r.Counts[kind]++
	r.Err = multierr.Append(r.Err, err)
}

// AddConfigErrors records target-list problems found before the cycle ran.
func (r *Report) AddConfigErrors(errs []error) {
	for _, err := range errs {
		r.addErr(ErrKindConfig, err)
	}
}

// Errors returns the individual errors collected in Err.
func (r Report) Errors() []error { return multierr.Errors(r.Err) }

// Alerts counts intents of kind k that were dispatched successfully.
func (r Report) Alerts(k debounce.Kind) int {
	n := 0
	for _, t := range r.Targets {
		if t.Intent.Kind == k && t.Notified() {
			n++
		}
	}
	return n
}

// Down counts targets whose outcome was a failure this cycle.
func (r Report) Down() int {
	n := 0
	for _, t := range r.Targets {
		if !t.Outcome.OK() {
			n++
		}
	}
	return n
}
