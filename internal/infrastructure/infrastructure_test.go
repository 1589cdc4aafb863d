package infrastructure_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/sahithi-mandalapu/feedback-market/internal/config"
	"github.com/sahithi-mandalapu/feedback-market/internal/infrastructure"
	"github.com/sahithi-mandalapu/feedback-market/internal/similarity"
)

func loadConfig(t *testing.T) *config.Config {
	t.Helper()
	t.Chdir(t.TempDir())

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("config.Load() error = %v", err)
	}
	return cfg
}

func TestNew(t *testing.T) {
	infra, err := infrastructure.New(loadConfig(t))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if infra.Lifecycle == nil {
		t.Error("Lifecycle is nil")
	}
	if infra.Logger == nil {
		t.Error("Logger is nil")
	}
	if infra.Database == nil {
		t.Error("Database is nil")
	}
	if infra.Metrics == nil {
		t.Error("Metrics is nil")
	}
	if infra.LLM == nil {
		t.Error("LLM is nil")
	}
	if infra.Index == nil {
		t.Error("Index is nil")
	}
}

func TestNewDatabaseConnection(t *testing.T) {
	infra, err := infrastructure.New(loadConfig(t))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	conn := infra.Database.Connection()
	if conn == nil {
		t.Fatal("Database.Connection() returned nil")
	}
	conn.Close()
}

func TestNewUnknownIndexBackend(t *testing.T) {
	cfg := loadConfig(t)
	cfg.Index.Backend = "faiss"

	if _, err := infrastructure.New(cfg); err == nil {
		t.Fatal("expected error for unknown index backend")
	}
}

// The model endpoint is unreachable in tests, so every embedding fails.
// Searches on the shared index answer with no matches while writes report
// the outage so the caller can retry.
func TestIndexFailsOpen(t *testing.T) {
	cfg := loadConfig(t)
	cfg.LLM.BaseURL = "http://127.0.0.1:1"
	cfg.LLM.Timeout = "100ms"

	infra, err := infrastructure.New(cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	ctx := context.Background()

	if err := infra.Index.Upsert(ctx, uuid.New(), "checkout is slow"); !errors.Is(err, similarity.ErrUnavailable) {
		t.Errorf("Upsert() error = %v, want ErrUnavailable", err)
	}

	hits, err := infra.Index.FindSimilar(ctx, "checkout is slow", 3)
	if err != nil {
		t.Fatalf("FindSimilar() error = %v, want nil", err)
	}
	if len(hits) != 0 {
		t.Errorf("hits = %v, want none", hits)
	}
}
