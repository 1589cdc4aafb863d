// Package infrastructure provides core service initialization for application startup.
// It assembles the shared dependencies (logging, database, metrics, model
// client, similarity index) that domain systems require.
package infrastructure

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/sahithi-mandalapu/feedback-market/internal/claims"
	"github.com/sahithi-mandalapu/feedback-market/internal/config"
	"github.com/sahithi-mandalapu/feedback-market/internal/llm"
	"github.com/sahithi-mandalapu/feedback-market/internal/similarity"
	"github.com/sahithi-mandalapu/feedback-market/pkg/database"
	"github.com/sahithi-mandalapu/feedback-market/pkg/lifecycle"
	"github.com/sahithi-mandalapu/feedback-market/pkg/metrics"
)

// Infrastructure holds the core systems required by all domain modules.
// Index is already wrapped fail-open, so domain code never sees an index
// error.
type Infrastructure struct {
	Lifecycle *lifecycle.Coordinator
	Logger    *slog.Logger
	Database  database.System
	Metrics   *metrics.Metrics
	LLM       *llm.Client
	Index     similarity.Index

	index similarity.Index
}

// New creates an Infrastructure from the application configuration.
// It initializes all systems but does not start them; call Start separately.
func New(cfg *config.Config) (*Infrastructure, error) {
	lc := lifecycle.New()
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	db, err := database.New(&cfg.Database, logger)
	if err != nil {
		return nil, fmt.Errorf("database init failed: %w", err)
	}

	m := metrics.New()
	client := llm.New(&cfg.LLM, logger)

	index, err := similarity.Open(&cfg.Index, client.Embed, logger)
	if err != nil {
		return nil, fmt.Errorf("index init failed: %w", err)
	}

	return &Infrastructure{
		Lifecycle: lc,
		Logger:    logger,
		Database:  db,
		Metrics:   m,
		LLM:       client,
		Index:     similarity.NewFailOpen(index, logger, m),
		index:     index,
	}, nil
}

// Start registers all infrastructure systems with the lifecycle coordinator.
func (i *Infrastructure) Start() error {
	if err := i.Database.Start(i.Lifecycle); err != nil {
		return fmt.Errorf("database start failed: %w", err)
	}

	i.Lifecycle.OnShutdown(func() {
		<-i.Lifecycle.Context().Done()
		if err := i.Index.Close(); err != nil {
			i.Logger.Error("index close failed", "error", err)
		}
	})
	return nil
}

// Backfill registers a startup hook that indexes every stored claim the
// index does not hold yet. Failures are logged rather than failing readiness,
// since searches fall back to no matches.
func (i *Infrastructure) Backfill(store claims.Store) {
	i.Lifecycle.OnStartup("index backfill", func() error {
		if err := similarity.Backfill(i.Lifecycle.Context(), i.index, store, i.Logger); err != nil {
			i.Logger.Warn("index backfill failed", "error", err)
		}
		return nil
	})
}
