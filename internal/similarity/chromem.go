package similarity

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/philippgille/chromem-go"

	"github.com/sahithi-mandalapu/feedback-market/internal/config"
)

// Chromem is an embedded index backed by chromem-go. With an empty path the
// collection lives in memory and is rebuilt by backfill on startup.
type Chromem struct {
	db         *chromem.DB
	collection *chromem.Collection
	logger     *slog.Logger
}

// NewChromem opens (or creates) the configured collection.
func NewChromem(cfg config.ChromemConfig, embed EmbedFunc, logger *slog.Logger) (*Chromem, error) {
	db := chromem.NewDB()
	if cfg.Path != "" {
		var err error
		db, err = chromem.NewPersistentDB(cfg.Path, cfg.Compress)
		if err != nil {
			return nil, fmt.Errorf("open chromem db %s: %w", cfg.Path, err)
		}
	}

	collection, err := db.GetOrCreateCollection(cfg.Collection, nil, chromem.EmbeddingFunc(embed))
	if err != nil {
		return nil, fmt.Errorf("open chromem collection %s: %w", cfg.Collection, err)
	}

	return &Chromem{
		db:         db,
		collection: collection,
		logger:     logger.With("index", "chromem", "collection", cfg.Collection),
	}, nil
}

func (c *Chromem) FindSimilar(ctx context.Context, text string, limit int) ([]Hit, error) {
	if text == "" || limit <= 0 {
		return []Hit{}, nil
	}

	// chromem rejects nResults larger than the collection
	n := c.collection.Count()
	if n == 0 {
		return []Hit{}, nil
	}
	limit = min(limit, n)

	results, err := c.collection.Query(ctx, text, limit, nil, nil)
	if err != nil {
		return nil, unavailable("query", err)
	}

	hits := make([]Hit, 0, len(results))
	for _, r := range results {
		id, err := uuid.Parse(r.ID)
		if err != nil {
			c.logger.Warn("skipping document with non-uuid id", "id", r.ID)
			continue
		}
		hits = append(hits, Hit{ClaimID: id, Score: float64(r.Similarity)})
	}
	return hits, nil
}

func (c *Chromem) Upsert(ctx context.Context, id uuid.UUID, text string) error {
	doc := chromem.Document{ID: id.String(), Content: text}
	if err := c.collection.AddDocument(ctx, doc); err != nil {
		return unavailable("upsert", err)
	}
	c.logger.Debug("claim indexed", "id", id)
	return nil
}

// Missing relies on GetByID failing only for unknown ids.
func (c *Chromem) Missing(ctx context.Context, ids []uuid.UUID) ([]uuid.UUID, error) {
	var missing []uuid.UUID
	for _, id := range ids {
		if _, err := c.collection.GetByID(ctx, id.String()); err != nil {
			missing = append(missing, id)
		}
	}
	return missing, nil
}

func (c *Chromem) Count(context.Context) (int, error) {
	return c.collection.Count(), nil
}

func (c *Chromem) Close() error {
	return nil
}
