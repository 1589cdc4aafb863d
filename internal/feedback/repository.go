package feedback

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/sahithi-mandalapu/feedback-market/internal/claims"
	"github.com/sahithi-mandalapu/feedback-market/internal/extraction"
	"github.com/sahithi-mandalapu/feedback-market/internal/similarity"
	"github.com/sahithi-mandalapu/feedback-market/pkg/metrics"
)

type repo struct {
	db        *sql.DB
	extractor Extractor
	index     similarity.Index
	claims    claims.Store
	metrics   *metrics.Metrics
	logger    *slog.Logger
}

// New creates the feedback system. index should already be fail-open;
// m may be nil.
func New(
	db *sql.DB,
	extractor Extractor,
	index similarity.Index,
	store claims.Store,
	m *metrics.Metrics,
	logger *slog.Logger,
) System {
	return &repo{
		db:        db,
		extractor: extractor,
		index:     index,
		claims:    store,
		metrics:   m,
		logger:    logger.With("system", "feedback"),
	}
}

func (r *repo) Handler(maxBodySize int64) *Handler {
	return NewHandler(r, r.logger, maxBodySize)
}

func (r *repo) Analyze(ctx context.Context, text string) (*Analysis, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyText
	}

	claim, err := r.extractor.Extract(ctx, text)
	if err != nil {
		if errors.Is(err, extraction.ErrExtractionFailed) && r.metrics != nil {
			r.metrics.ExtractionFailures.Inc()
		}
		return nil, fmt.Errorf("analyze feedback: %w", err)
	}

	raw, err := json.Marshal(claim)
	if err != nil {
		return nil, fmt.Errorf("marshal analysis: %w", err)
	}

	q := `
		INSERT INTO feedback_raw (id, text, analysis)
		VALUES ($1, $2, $3::jsonb)
		RETURNING id, created_at`

	a := Analysis{Text: text, Analysis: claim}
	row := r.db.QueryRowContext(ctx, q, uuid.New(), text, string(raw))
	if err := row.Scan(&a.ID, &a.CreatedAt); err != nil {
		return nil, fmt.Errorf("record feedback: %w", err)
	}

	a.Similar, err = r.Search(ctx, claim.Text, DefaultLimit)
	if err != nil {
		return nil, err
	}

	r.logger.Info("feedback analyzed",
		"id", a.ID,
		"sentiment", claim.Sentiment,
		"urgency", claim.Urgency,
		"similar", len(a.Similar),
	)
	return &a, nil
}

func (r *repo) Search(ctx context.Context, query string, limit int) ([]Similar, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrEmptyText
	}

	hits, err := r.index.FindSimilar(ctx, query, clampLimit(limit))
	if err != nil {
		r.logger.Warn("similarity search failed", "error", err)
		return []Similar{}, nil
	}
	if len(hits) == 0 {
		return []Similar{}, nil
	}

	ids := make([]uuid.UUID, len(hits))
	for i, h := range hits {
		ids[i] = h.ClaimID
	}

	found, err := r.claims.FindMany(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load similar claims: %w", err)
	}

	byID := make(map[uuid.UUID]claims.Claim, len(found))
	for _, c := range found {
		byID[c.ID] = c
	}

	out := make([]Similar, 0, len(hits))
	for _, h := range hits {
		if c, ok := byID[h.ClaimID]; ok {
			out = append(out, Similar{Claim: c, Score: h.Score})
		}
	}
	return out, nil
}
