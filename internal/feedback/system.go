package feedback

import (
	"context"

	"github.com/sahithi-mandalapu/feedback-market/internal/extraction"
)

// Extractor produces a structured claim from raw feedback text.
type Extractor interface {
	Extract(ctx context.Context, raw string) (extraction.Claim, error)
}

// System defines the public contract for feedback analysis.
type System interface {
	Handler(maxBodySize int64) *Handler

	// Analyze extracts a claim from text, records the result, and returns it
	// with the most similar stored claims.
	Analyze(ctx context.Context, text string) (*Analysis, error)

	// Search returns up to limit stored claims ranked by similarity to query.
	// Index failures yield an empty result.
	Search(ctx context.Context, query string, limit int) ([]Similar, error)
}
