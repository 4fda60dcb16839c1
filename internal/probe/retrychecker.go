package probe

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// DNSFunc classifies a hostname after every attempt failed.
type DNSFunc func(ctx context.Context, host string) DNSStatus

// RetryChecker runs Inner up to Attempts times, stopping at the first
// reachable result. The pause between attempts is fixed.
type RetryChecker struct {
	Inner    Checker
	Attempts int
	Backoff  time.Duration
	Logger   *zap.Logger
	Diagnose DNSFunc
}

// NewProber wires an HTTPChecker behind a RetryChecker from a Policy.
func NewProber(p Policy, logger *zap.Logger) *RetryChecker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RetryChecker{
		Inner:    NewHTTPChecker(p.Timeout, p.Accept, p.Internal),
		Attempts: p.Attempts,
		Backoff:  p.Backoff,
		Logger:   logger,
	}
}

func (r *RetryChecker) Check(ctx context.Context, target string) Result {
	attempts := r.Attempts
	if attempts < 1 {
		attempts = 1
	}
	log := r.Logger
	if log == nil {
		log = zap.NewNop()
	}

	var last Result
	for i := 1; i <= attempts; i++ {
		last = r.Inner.Check(ctx, target)
		last.Attempts = i
		if last.Reachable {
			return last
		}
		log.Warn("probe_attempt_failed",
			zap.String("url", target),
			zap.Int("attempt", i),
			zap.Int("attempts", attempts),
			zap.Int("status", last.StatusCode),
			zap.Bool("tls_verify", last.Verified),
			zap.String("reason", last.Message),
		)
		if i < attempts && !sleep(ctx, r.Backoff) {
			break
		}
	}

	last.Reachable = false
	last.Body = nil
	last.ContentType = ""
	last.Message = fmt.Sprintf("%s (after %d attempts)", last.Message, last.Attempts)
	if r.Diagnose != nil && last.StatusCode == 0 {
		last.DNSClass = r.Diagnose(ctx, extractHost(target)).Class
	}
	return last
}

func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
