// Command urlmonitor runs one monitoring cycle and exits. Schedule it with
// cron or a systemd timer, or pass --schedule to keep it running.
//
// Exit codes: 0 the cycle ran (alerts or delivery errors included), 1 the
// configuration, target list or state store could not be used or a one-shot
// cycle was interrupted, 2 bad flags.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/hamed0406/urlmonitor/internal/app"
	"github.com/hamed0406/urlmonitor/internal/config"
	"github.com/hamed0406/urlmonitor/internal/inspect"
	"github.com/hamed0406/urlmonitor/internal/logging"
	"github.com/hamed0406/urlmonitor/internal/metrics"
	"github.com/hamed0406/urlmonitor/internal/monitor"
	"github.com/hamed0406/urlmonitor/internal/scheduler"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stderr io.Writer) int {
	fs := pflag.NewFlagSet("urlmonitor", pflag.ContinueOnError)
	fs.SetOutput(stderr)
	cfg, err := config.Load(fs, args)
	if errors.Is(err, pflag.ErrHelp) {
		return 0
	}
	if errors.Is(err, config.ErrUsage) {
		return 2
	}
	if err != nil {
		fmt.Fprintln(stderr, "invalid configuration:", err)
		return 1
	}

	logger, err := logging.NewLogger(cfg.LogDir, cfg.LogLevel)
	if err != nil {
		fmt.Fprintln(stderr, "logger:", err)
		return 1
	}
	defer func() { _ = logger.Sync() }()

	store, closeStore, err := app.OpenStore(ctx, cfg, logger)
	if err != nil {
		logger.Error("state_store_unavailable", zap.Error(err))
		return 1
	}
	defer closeStore()

	prober, err := app.NewProber(cfg, logger)
	if err != nil {
		logger.Error("probe_policy_invalid", zap.Error(err))
		return 1
	}

	runner := monitor.New(logger, store, prober, inspect.HTML{}, app.NewNotifier(cfg, logger), monitor.Options{
		Threshold: cfg.Threshold,
		Prune:     cfg.PruneStale,
	})

	pass := func(ctx context.Context) error {
		ts, lineErrs, err := app.LoadTargets(cfg, logger)
		if err != nil {
			logger.Error("targets_unreadable", zap.String("file", cfg.TargetsFile), zap.Error(err))
			return err
		}
		rep := runner.Run(ctx, ts)
		if rep.Aborted != nil {
			return rep.Aborted
		}
		for _, e := range rep.Errors() {
			logger.Warn("cycle_error", zap.String("cycle_id", rep.CycleID), zap.Error(e))
		}
		// already logged as target_skipped; counted for the metrics file
		rep.AddConfigErrors(lineErrs)

		if cfg.MetricsFile != "" {
			b := metrics.NewBundle()
			b.Metrics.Observe(rep)
			if err := b.WriteFile(cfg.MetricsFile); err != nil {
				logger.Warn("metrics_write_failed", zap.String("path", cfg.MetricsFile), zap.Error(err))
			}
		}
		return nil
	}

	// A looping run reloads the target list every pass and survives a
	// temporarily unreadable file; a one-shot run exits 1 instead.
	schedule, err := cfg.LoopSchedule()
	if err != nil {
		logger.Error("schedule_invalid", zap.Error(err))
		return 1
	}
	if err := scheduler.NewLoop(logger, schedule, pass).Run(ctx); err != nil {
		return 1
	}
	return 0
}
