// Package similarity finds stored claims that restate a piece of text.
// Backends embed text through an EmbedFunc and rank by cosine similarity.
package similarity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/sahithi-mandalapu/feedback-market/internal/config"
)

// ErrUnavailable wraps any failure of the embedding model or vector backend.
var ErrUnavailable = errors.New("similarity index unavailable")

// EmbedFunc turns text into a vector.
type EmbedFunc func(ctx context.Context, text string) ([]float32, error)

// Hit is a ranked search result. Higher Score means more relevant.
type Hit struct {
	ClaimID uuid.UUID `json:"claim_id"`
	Score   float64   `json:"score"`
}

// Index searches and maintains claim embeddings.
type Index interface {
	// FindSimilar returns at most limit hits ordered most relevant first.
	FindSimilar(ctx context.Context, text string, limit int) ([]Hit, error)
	// Upsert makes the claim searchable, replacing any previous entry.
	Upsert(ctx context.Context, id uuid.UUID, text string) error
	// Missing returns the ids among ids that have no entry, in input order.
	Missing(ctx context.Context, ids []uuid.UUID) ([]uuid.UUID, error)
	// Count reports the number of indexed claims.
	Count(ctx context.Context) (int, error)
	Close() error
}

// Open builds the backend named by cfg.Backend.
func Open(cfg *config.IndexConfig, embed EmbedFunc, logger *slog.Logger) (Index, error) {
	switch cfg.Backend {
	case config.IndexBackendChromem:
		return NewChromem(cfg.Chromem, embed, logger)
	case config.IndexBackendQdrant:
		return NewQdrant(cfg.Qdrant, embed, logger)
	default:
		return nil, fmt.Errorf("unknown index backend %q", cfg.Backend)
	}
}

func unavailable(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrUnavailable, op, err)
}
