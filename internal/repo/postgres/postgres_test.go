package postgres

import (
	"context"
	"os"
	"testing"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/zap"

	"github.com/hamed0406/urlmonitor/internal/domain"
	"github.com/hamed0406/urlmonitor/internal/repo"
)

func TestPostgresStore_SaveLoadDelete(t *testing.T) {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		t.Skip("DATABASE_URL not set; skipping Postgres integration test")
	}

	ctx := context.Background()
	store, err := New(ctx, dsn, zap.NewNop())
	if err != nil {
		t.Fatalf("New store: %v", err)
	}
	defer store.Close()

	if err := store.EnsureSchema(ctx); err != nil {
		t.Fatalf("EnsureSchema: %v", err)
	}

	want := domain.States{
		"https://a.example": {ConsecutiveFailures: 5, AlertedDown: true},
		"https://b.example": {AlertedUp: true},
	}
	if err := store.Save(ctx, want); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("round trip (-want +got):\n%s", diff)
	}

	ok, err := store.Delete(ctx, "https://a.example")
	if err != nil || !ok {
		t.Fatalf("Delete=%v,%v", ok, err)
	}

	if err := store.Save(ctx, domain.States{}); err != nil {
		t.Fatalf("Save empty: %v", err)
	}
	if got, _ := store.Load(ctx); len(got) != 0 {
		t.Fatalf("expected empty table, got %v", got)
	}
}

func TestPostgresStore_UnreachableIsNotCorrupt(t *testing.T) {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		t.Skip("DATABASE_URL not set; skipping Postgres integration test")
	}

	ctx := context.Background()
	store, err := New(ctx, dsn, zap.NewNop())
	if err != nil {
		t.Fatalf("New store: %v", err)
	}
	store.Close()

	if _, err := store.Load(ctx); err == nil || repo.IsCorrupt(err) {
		t.Fatalf("closed pool: want a plain error, got %v", err)
	}
}
