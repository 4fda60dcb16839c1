// cmd/preflight/main.go
package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/pflag"
	"go.uber.org/multierr"

	"github.com/hamed0406/urlmonitor/internal/config"
	"github.com/hamed0406/urlmonitor/internal/notify"
	"github.com/hamed0406/urlmonitor/internal/targets"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	failed := false
	fail := func(msg string) {
		fmt.Fprintln(stderr, "✖", msg)
		failed = true
	}
	warn := func(msg string) { fmt.Fprintln(stderr, "⚠", msg) }
	ok := func(msg string) { fmt.Fprintln(stdout, "✔", msg) }

	fs := pflag.NewFlagSet("preflight", pflag.ContinueOnError)
	fs.SetOutput(stderr)
	cfg, err := config.Load(fs, args)
	switch {
	case errors.Is(err, pflag.ErrHelp):
		return 0
	case errors.Is(err, config.ErrUsage):
		return 2
	case err != nil:
		for _, e := range multierr.Errors(err) {
			fail(e.Error())
		}
		if cfg.TargetsFile == "" {
			return 1
		}
	default:
		ok(fmt.Sprintf("settings valid (threshold=%d attempts=%d timeout=%s accept=%s)",
			cfg.Threshold, cfg.RetryAttempts, cfg.HTTPTimeout, cfg.AcceptStatus))
	}
	if cfg.SettingsFile != "" {
		ok("settings file " + cfg.SettingsFile)
	}

	ts, lineErrs, err := targets.Load(cfg.TargetsFile, cfg.MinTokens)
	if err != nil {
		fail(err.Error())
		return 1
	}
	for _, e := range lineErrs {
		warn(fmt.Sprintf("%s: %v (skipped)", cfg.TargetsFile, e))
	}
	for _, u := range targets.Duplicates(ts) {
		warn("duplicate URL " + u + " shares one failure counter")
	}
	if len(ts) == 0 {
		fail(cfg.TargetsFile + " has no usable targets")
	} else {
		ok(fmt.Sprintf("%s: %d targets", cfg.TargetsFile, len(ts)))
	}

	missing := 0
	for _, t := range ts {
		if t.Channel == "" {
			missing++
			continue
		}
		if err := targets.ValidateURL(strings.TrimPrefix(t.Channel, notify.FormScheme)); err != nil {
			warn(fmt.Sprintf("line %d: channel is not a URL; alerts will fail", t.Line))
		}
	}
	if missing > 0 {
		if cfg.DefaultWebhook == "" {
			fail(fmt.Sprintf("%d targets have no channel and DEFAULT_WEBHOOK is empty", missing))
		} else {
			ok(fmt.Sprintf("%d targets use DEFAULT_WEBHOOK (%s)", missing, notify.Kind(cfg.DefaultWebhook)))
		}
	}

	if cfg.DatabaseURL != "" {
		ok("DATABASE_URL present; state kept in postgres")
	} else if info, err := os.Stat(filepath.Dir(absOrSelf(cfg.StateFile))); err != nil || !info.IsDir() {
		fail("state directory for " + cfg.StateFile + " does not exist")
	} else if st, err := os.Stat(cfg.StateFile); err == nil {
		ok(fmt.Sprintf("state file %s (%s, updated %s)", cfg.StateFile,
			humanize.Bytes(uint64(st.Size())), humanize.Time(st.ModTime())))
	} else {
		ok("state file " + cfg.StateFile + " (created on first run)")
	}

	if cfg.Schedule != "" {
		ok("repeating on schedule " + cfg.Schedule)
	}

	if cfg.DryRun {
		warn("DRY_RUN set; alerts are only logged")
	}
	if len(cfg.AdminAPIKeys) == 0 {
		warn("ADMIN_API_KEYS is empty; the status API delete route is open.")
	}
	if cfg.MetricsFile == "" {
		warn("METRICS_FILE empty; no run metrics are exported.")
	}

	if failed {
		return 1
	}
	ok("preflight passed")
	return 0
}

func absOrSelf(p string) string {
	if a, err := filepath.Abs(p); err == nil {
		return a
	}
	return p
}
