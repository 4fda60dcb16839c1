package scheduler

import (
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

// Schedule decides when the next pass starts.
type Schedule interface {
	cron.Schedule
	fmt.Stringer

	// KickOnStart reports whether a pass runs immediately at startup.
	KickOnStart() bool
}

// Interval runs a pass at startup and then every d after the previous pass
// finished.
type Interval time.Duration

func (i Interval) Next(t time.Time) time.Time { return t.Add(time.Duration(i)) }
func (i Interval) String() string             { return time.Duration(i).String() }
func (i Interval) KickOnStart() bool          { return true }

// Cron runs passes at the times matched by a standard five-field expression
// or a descriptor such as @hourly.
type Cron struct {
	expr     string
	schedule cron.Schedule
}

func (c Cron) Next(t time.Time) time.Time { return c.schedule.Next(t) }
func (c Cron) String() string             { return c.expr }
func (c Cron) KickOnStart() bool          { return false }

// ParseSchedule accepts a Go duration ("5m") or a cron expression
// ("*/5 * * * *"). An empty expression returns nil, meaning run once.
func ParseSchedule(expr string) (Schedule, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return nil, nil
	}
	if d, err := time.ParseDuration(expr); err == nil {
		if d <= 0 {
			return nil, fmt.Errorf("schedule interval must be positive, got %s", d)
		}
		return Interval(d), nil
	}
	s, err := cron.ParseStandard(expr)
	if err != nil {
		return nil, fmt.Errorf("schedule %q: %w", expr, err)
	}
	return Cron{expr: expr, schedule: s}, nil
}
