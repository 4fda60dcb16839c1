package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap"

	"github.com/hamed0406/urlmonitor/internal/config"
	"github.com/hamed0406/urlmonitor/internal/notify"
	"github.com/hamed0406/urlmonitor/internal/repo/file"
)

func TestOpenStore_FileByDefault(t *testing.T) {
	cfg := config.Defaults()
	cfg.StateFile = filepath.Join(t.TempDir(), "failures.json")

	s, closeFn, err := OpenStore(context.Background(), cfg, zap.NewNop())
	if err != nil {
		t.Fatalf("OpenStore: %v", err)
	}
	defer closeFn()
	fs, ok := s.(*file.Store)
	if !ok || fs.Path() != cfg.StateFile {
		t.Fatalf("want file store at %s, got %T", cfg.StateFile, s)
	}
}

func TestNewProber_UsesPolicy(t *testing.T) {
	cfg := config.Defaults()
	cfg.RetryAttempts = 4
	p, err := NewProber(cfg, zap.NewNop())
	if err != nil {
		t.Fatalf("NewProber: %v", err)
	}
	if p.Attempts != 4 || p.Diagnose == nil {
		t.Fatalf("unexpected prober: %+v", p)
	}

	cfg.AcceptStatus = "nope"
	if _, err := NewProber(cfg, zap.NewNop()); err == nil {
		t.Fatal("expected policy error")
	}
}

func TestNewNotifier_DryRunOnlyLogs(t *testing.T) {
	cfg := config.Defaults()
	cfg.DryRun = true
	if _, ok := NewNotifier(cfg, zap.NewNop()).(notify.Log); !ok {
		t.Fatal("dry run should use the log notifier")
	}
	cfg.DryRun = false
	if _, ok := NewNotifier(cfg, zap.NewNop()).(notify.Multi); !ok {
		t.Fatal("expected routed notifier")
	}
}

func TestLoadTargets(t *testing.T) {
	path := filepath.Join(t.TempDir(), "url-monitor.credo")
	content := `"A" https://a.example hook
"A dup" https://a.example hook
short https://b.example
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg := config.Defaults()
	cfg.TargetsFile = path

	ts, errs, err := LoadTargets(cfg, zap.NewNop())
	if err != nil {
		t.Fatalf("LoadTargets: %v", err)
	}
	if len(ts) != 2 || len(errs) != 1 {
		t.Fatalf("got %d targets %d errors", len(ts), len(errs))
	}
}
