// Package monitor runs one monitoring cycle: probe every target, inspect the
// body, advance the debounce state and dispatch the resulting alerts.
package monitor

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hamed0406/urlmonitor/internal/debounce"
	"github.com/hamed0406/urlmonitor/internal/domain"
	"github.com/hamed0406/urlmonitor/internal/notify"
	"github.com/hamed0406/urlmonitor/internal/probe"
	"github.com/hamed0406/urlmonitor/internal/repo"
)

// Inspector decides whether a response body contains the keyword.
type Inspector interface {
	Matches(body []byte, contentType, keyword string) bool
}

type Options struct {
	Threshold int
	// Prune drops persisted ids that are no longer in the target list.
	Prune bool
}

type Runner struct {
	Logger    *zap.Logger
	Store     repo.StateStore
	Prober    probe.Checker
	Inspector Inspector
	Notifier  notify.Notifier
	Options   Options

	now func() time.Time
}

func New(
	logger *zap.Logger,
	store repo.StateStore,
	prober probe.Checker,
	inspector Inspector,
	notifier notify.Notifier,
	opts Options,
) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Threshold < 1 {
		opts.Threshold = debounce.DefaultThreshold
	}
	return &Runner{
		Logger:    logger,
		Store:     store,
		Prober:    prober,
		Inspector: inspector,
		Notifier:  notifier,
		Options:   opts,
		now:       time.Now,
	}
}

// Run loads the state, runs one cycle and saves the result once. A corrupt
// store is reported and the cycle starts from empty state. When the store
// cannot be read at all, or ctx is cancelled before the cycle finished,
// nothing is saved and Report.Aborted says why.
func (r *Runner) Run(ctx context.Context, targets []domain.Target) Report {
	states, loadErr := r.Store.Load(ctx)
	if loadErr != nil && !repo.IsCorrupt(loadErr) {
		rep := Report{CycleID: uuid.NewString(), Started: r.now()}
		rep.addErr(ErrKindStateLoad, fmt.Errorf("load state: %w", loadErr))
		rep.Aborted = rep.Err
		r.Logger.Error("state_unavailable", zap.String("cycle_id", rep.CycleID), zap.Error(loadErr))
		return rep
	}
	if loadErr != nil {
		r.Logger.Warn("state_load_failed", zap.Error(loadErr))
	}
	if states == nil {
		states = domain.States{}
	}

	next, rep := r.RunCycle(ctx, targets, states)
	rep.addErr(ErrKindStateLoad, loadErr)
	if rep.Aborted != nil {
		r.Logger.Warn("cycle_interrupted",
			zap.String("cycle_id", rep.CycleID),
			zap.Int("evaluated", len(rep.Targets)),
			zap.Int("targets", len(targets)),
			zap.Error(rep.Aborted),
		)
		return rep
	}

	if r.Options.Prune {
		rep.Pruned = next.Prune(targets)
		if rep.Pruned > 0 {
			r.Logger.Info("state_pruned", zap.Int("removed", rep.Pruned))
		}
	}

	if err := r.Store.Save(ctx, next); err != nil {
		r.Logger.Error("state_save_failed", zap.String("cycle_id", rep.CycleID), zap.Error(err))
		rep.addErr(ErrKindStateSave, fmt.Errorf("save state: %w", err))
	}

	rep.Duration = r.now().Sub(rep.Started)
	r.Logger.Info("cycle_done",
		zap.String("cycle_id", rep.CycleID),
		zap.Int("targets", len(rep.Targets)),
		zap.Int("down", rep.Down()),
		zap.Int("alerts_down", rep.Alerts(debounce.AlertDown)),
		zap.Int("alerts_up", rep.Alerts(debounce.AlertUp)),
		zap.Int("errors", len(rep.Errors())),
		zap.Duration("duration", rep.Duration),
	)
	return rep
}

// RunCycle evaluates targets in order against states and returns the
// updated mapping. The input map is not modified. Ids not in targets are
// carried over unchanged. If ctx is cancelled the loop stops before the next
// target, a probe cut short by the cancellation is discarded, and
// Report.Aborted is set; the returned mapping must not be persisted then.
func (r *Runner) RunCycle(ctx context.Context, targets []domain.Target, states domain.States) (domain.States, Report) {
	rep := Report{
		CycleID: uuid.NewString(),
		Started: r.now(),
		Targets: make([]TargetReport, 0, len(targets)),
	}
	next := states.Clone()
	if next == nil {
		next = domain.States{}
	}
	log := r.Logger.With(zap.String("cycle_id", rep.CycleID))

	for _, t := range targets {
		if err := ctx.Err(); err != nil {
			rep.Aborted = err
			break
		}
		res := r.Prober.Check(ctx, t.URL)
		if err := ctx.Err(); err != nil {
			rep.Aborted = err
			break
		}
		tr := r.evaluate(ctx, log, t, res, next.Get(t.ID))
		next[t.ID] = tr.Next
		if tr.NotifyErr != nil {
			rep.addErr(ErrKindNotify, fmt.Errorf("notify %s: %w", t.URL, tr.NotifyErr))
		}
		rep.Targets = append(rep.Targets, tr)
	}
	rep.Duration = r.now().Sub(rep.Started)
	return next, rep
}

func (r *Runner) evaluate(ctx context.Context, log *zap.Logger, t domain.Target, res probe.Result, prior domain.DebounceState) TargetReport {
	outcome := domain.ProbeOutcome{Reachable: res.Reachable, ContentOK: true}
	if res.Reachable && t.HasKeyword() && r.Inspector != nil {
		outcome.ContentOK = r.Inspector.Matches(res.Body, res.ContentType, t.Keyword)
	}

	next, intent := debounce.Transition(prior, outcome, r.Options.Threshold)
	tr := TargetReport{
		Target:  t,
		Probe:   res,
		Outcome: outcome,
		Prior:   prior,
		Next:    next,
		Intent:  intent,
	}
	tr.Probe.Body = nil

	fields := []zap.Field{
		zap.String("url", t.URL),
		zap.String("description", t.Description),
		zap.Bool("reachable", outcome.Reachable),
		zap.Bool("content_ok", outcome.ContentOK),
		zap.Int("status", res.StatusCode),
		zap.Int("attempts", res.Attempts),
		zap.Float64("latency_ms", res.LatencyMS),
		zap.Int("failures", next.ConsecutiveFailures),
		zap.String("intent", intent.Kind.String()),
	}
	if res.DNSClass != "" {
		fields = append(fields, zap.String("dns", res.DNSClass))
	}
	if !outcome.Reachable && res.Message != "" {
		fields = append(fields, zap.String("reason", res.Message))
	}
	if intent.Fires() || next != prior {
		log.Info("state_transition", fields...)
	} else {
		log.Debug("target_checked", fields...)
	}

	if !intent.Fires() {
		return tr
	}
	tr.Message = Message(t, intent)
	if r.Notifier == nil {
		return tr
	}
	if err := r.Notifier.Notify(ctx, t.Channel, tr.Message); err != nil {
		tr.NotifyErr = err
		log.Warn("notify_failed",
			zap.String("url", t.URL),
			zap.String("intent", intent.Kind.String()),
			zap.String("channel", notify.Redact(t.Channel)),
			zap.Error(err),
		)
	} else {
		log.Info("notify_sent",
			zap.String("url", t.URL),
			zap.String("intent", intent.Kind.String()),
			zap.String("reason", intent.Reason.String()),
		)
	}
	return tr
}
