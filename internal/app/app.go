// Package app wires configuration into the concrete components shared by
// the binaries.
package app

import (
	"context"
	"fmt"
	"net"

	"go.uber.org/zap"

	"github.com/hamed0406/urlmonitor/internal/config"
	"github.com/hamed0406/urlmonitor/internal/domain"
	"github.com/hamed0406/urlmonitor/internal/notify"
	"github.com/hamed0406/urlmonitor/internal/probe"
	"github.com/hamed0406/urlmonitor/internal/repo"
	"github.com/hamed0406/urlmonitor/internal/repo/file"
	"github.com/hamed0406/urlmonitor/internal/repo/postgres"
	"github.com/hamed0406/urlmonitor/internal/targets"
)

// OpenStore returns the postgres store when DATABASE_URL is set and the
// file store otherwise. The returned func releases the store.
func OpenStore(ctx context.Context, cfg config.Config, log *zap.Logger) (repo.StateStore, func(), error) {
	if cfg.DatabaseURL == "" {
		log.Info("state_store", zap.String("kind", "file"), zap.String("path", cfg.StateFile))
		return file.New(cfg.StateFile), func() {}, nil
	}
	pg, err := postgres.New(ctx, cfg.DatabaseURL, log)
	if err != nil {
		return nil, nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := pg.EnsureSchema(ctx); err != nil {
		pg.Close()
		return nil, nil, err
	}
	log.Info("state_store", zap.String("kind", "postgres"))
	return pg, pg.Close, nil
}

// NewProber builds the retrying prober with DNS diagnosis.
func NewProber(cfg config.Config, log *zap.Logger) (*probe.RetryChecker, error) {
	policy, err := cfg.Policy()
	if err != nil {
		return nil, err
	}
	p := probe.NewProber(policy, log)
	p.Diagnose = probe.NewDNSFunc(net.DefaultResolver)
	return p, nil
}

// NewNotifier routes alerts by channel, or only logs them in dry-run mode.
func NewNotifier(cfg config.Config, log *zap.Logger) notify.Notifier {
	if cfg.DryRun {
		return notify.Log{Logger: log}
	}
	return notify.Multi{
		notify.NewRouter(cfg.DefaultWebhook),
		notify.Log{Logger: log},
	}
}

// LoadTargets reads the target list and logs every skipped line and
// duplicate URL.
func LoadTargets(cfg config.Config, log *zap.Logger) ([]domain.Target, []error, error) {
	ts, errs, err := targets.Load(cfg.TargetsFile, cfg.MinTokens)
	if err != nil {
		return nil, nil, err
	}
	for _, e := range errs {
		log.Warn("target_skipped", zap.String("file", cfg.TargetsFile), zap.Error(e))
	}
	for _, u := range targets.Duplicates(ts) {
		log.Warn("target_duplicate", zap.String("url", u))
	}
	log.Info("targets_loaded", zap.String("file", cfg.TargetsFile), zap.Int("count", len(ts)), zap.Int("skipped", len(errs)))
	return ts, errs, nil
}
