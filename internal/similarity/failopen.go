package similarity

import (
	"context"
	"log/slog"

	"github.com/sahithi-mandalapu/feedback-market/pkg/metrics"
)

// FailOpen wraps an Index so that search failures read as "no similar
// claims". Writes are not masked: an Upsert failure is returned so the
// caller can retry it, and Backfill repairs what retries could not.
// Every swallowed error is counted in IndexFailOpen.
type FailOpen struct {
	Index
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// NewFailOpen wraps idx. m may be nil.
func NewFailOpen(idx Index, logger *slog.Logger, m *metrics.Metrics) *FailOpen {
	return &FailOpen{
		Index:   idx,
		logger:  logger.With("system", "similarity"),
		metrics: m,
	}
}

func (f *FailOpen) FindSimilar(ctx context.Context, text string, limit int) ([]Hit, error) {
	hits, err := f.Index.FindSimilar(ctx, text, limit)
	if err != nil {
		f.swallow("find_similar", err)
		return []Hit{}, nil
	}
	return hits, nil
}

func (f *FailOpen) swallow(op string, err error) {
	f.logger.Warn("index failure ignored", "operation", op, "error", err)
	if f.metrics != nil {
		f.metrics.IndexFailOpen.WithLabelValues(op).Inc()
	}
}
