// Package scheduler repeats a monitoring pass for hosts without cron.
package scheduler

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Pass runs one cycle. Passes never overlap.
type Pass func(ctx context.Context) error

type Loop struct {
	Logger   *zap.Logger
	Schedule Schedule
	Pass     Pass
}

func NewLoop(logger *zap.Logger, schedule Schedule, pass Pass) *Loop {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Loop{Logger: logger, Schedule: schedule, Pass: pass}
}

// Run executes passes until ctx is cancelled. Without a schedule it runs a
// single pass and returns its error; a scheduled loop logs failed passes
// and keeps going.
func (l *Loop) Run(ctx context.Context) error {
	if l.Schedule == nil {
		return l.Pass(ctx)
	}

	l.Logger.Info("scheduler_started", zap.Stringer("schedule", l.Schedule))
	if l.Schedule.KickOnStart() {
		l.runPass(ctx)
	}

	for {
		next := l.Schedule.Next(time.Now())
		timer := time.NewTimer(time.Until(next))
		select {
		case <-ctx.Done():
			timer.Stop()
			l.Logger.Info("scheduler_stopped")
			return nil
		case <-timer.C:
			l.runPass(ctx)
		}
	}
}

func (l *Loop) runPass(ctx context.Context) {
	if err := l.Pass(ctx); err != nil && ctx.Err() == nil {
		l.Logger.Warn("scheduler_pass_failed", zap.Error(err))
	}
}
