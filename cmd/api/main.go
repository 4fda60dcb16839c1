// Command api serves the persisted debounce state over HTTP.
package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/hamed0406/urlmonitor/internal/app"
	"github.com/hamed0406/urlmonitor/internal/config"
	"github.com/hamed0406/urlmonitor/internal/domain"
	"github.com/hamed0406/urlmonitor/internal/httpapi"
	apimw "github.com/hamed0406/urlmonitor/internal/httpapi/middleware"
	"github.com/hamed0406/urlmonitor/internal/logging"
	"github.com/hamed0406/urlmonitor/internal/targets"
)

func main() {
	fs := pflag.NewFlagSet("api", pflag.ContinueOnError)
	cfg, err := config.Load(fs, os.Args[1:])
	if errors.Is(err, pflag.ErrHelp) {
		return
	}
	if errors.Is(err, config.ErrUsage) {
		os.Exit(2)
	}
	if err != nil {
		log.Fatal(err)
	}

	logger, err := logging.NewLogger(cfg.LogDir, cfg.LogLevel)
	if err != nil {
		log.Fatal(err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := app.OpenStore(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("state_store_unavailable", zap.Error(err))
	}
	defer closeStore()

	source := func(context.Context) ([]domain.Target, []error, error) {
		return targets.Load(cfg.TargetsFile, cfg.MinTokens)
	}
	api := httpapi.NewServer(logger, store, source)
	keys := apimw.Keys{Public: cfg.PublicAPIKeys, Admin: cfg.AdminAPIKeys}
	if !keys.Enabled() {
		logger.Warn("api_keys_missing", zap.String("hint", "all routes are open"))
	}

	srv := &http.Server{
		Addr: cfg.Addr,
		Handler: api.Router(keys, httpapi.Limits{
			PublicRPM:   cfg.PublicRPM,
			PublicBurst: cfg.PublicBurst,
			AdminRPM:    cfg.AdminRPM,
			AdminBurst:  cfg.AdminBurst,
		}),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("api_listen", zap.String("addr", cfg.Addr))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal("api_listen_failed", zap.Error(err))
	}
	logger.Info("api_stopped")
}
