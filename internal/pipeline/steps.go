package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/sahithi-mandalapu/feedback-market/internal/claims"
	"github.com/sahithi-mandalapu/feedback-market/internal/extraction"
	"github.com/sahithi-mandalapu/feedback-market/internal/reinforce"
	"github.com/sahithi-mandalapu/feedback-market/internal/similarity"
	"github.com/sahithi-mandalapu/feedback-market/pkg/metrics"
)

// Step names, used as checkpoint keys and metric labels.
const (
	StepExtract = "extract"
	StepSearch  = "search"
	StepDecide  = "decide"
	StepApply   = "apply"
	StepIndex   = "index"
)

// Extractor produces a structured claim from raw feedback text.
type Extractor interface {
	Extract(ctx context.Context, raw string) (extraction.Claim, error)
}

// Steps holds the collaborators each pipeline step needs. Extract and
// Search only read; Apply is the single claim mutation.
type Steps struct {
	extractor Extractor
	index     similarity.Index
	claims    claims.Store
	engine    *reinforce.Engine
	limit     int
	metrics   *metrics.Metrics
	logger    *slog.Logger
}

// NewSteps creates the step set. limit bounds similarity results; m may be nil.
func NewSteps(
	extractor Extractor,
	index similarity.Index,
	store claims.Store,
	engine *reinforce.Engine,
	limit int,
	m *metrics.Metrics,
	logger *slog.Logger,
) *Steps {
	return &Steps{
		extractor: extractor,
		index:     index,
		claims:    store,
		engine:    engine,
		limit:     limit,
		metrics:   m,
		logger:    logger.With("system", "pipeline"),
	}
}

// Policy returns the reinforcement policy used by Decide.
func (s *Steps) Policy() reinforce.Config {
	return s.engine.Config()
}

// Extract infers the claim stated by text.
func (s *Steps) Extract(ctx context.Context, text string) (extraction.Claim, error) {
	claim, err := s.extractor.Extract(ctx, text)
	if err != nil {
		if errors.Is(err, extraction.ErrExtractionFailed) && s.metrics != nil {
			s.metrics.ExtractionFailures.Inc()
		}
		return extraction.Claim{}, err
	}
	return claim, nil
}

// Search finds stored claims similar to claim and attaches each one's last
// reinforcement time. An unavailable index yields no matches.
func (s *Steps) Search(ctx context.Context, claim extraction.Claim) ([]reinforce.Match, error) {
	hits, err := s.index.FindSimilar(ctx, claim.Text, s.limit)
	if err != nil {
		s.logger.Warn("similarity search failed, treating as no matches", "error", err)
		return []reinforce.Match{}, nil
	}
	if len(hits) == 0 {
		return []reinforce.Match{}, nil
	}

	ids := make([]uuid.UUID, len(hits))
	for i, h := range hits {
		ids[i] = h.ClaimID
	}

	found, err := s.claims.FindMany(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load matched claims: %w", err)
	}

	byID := make(map[uuid.UUID]claims.Claim, len(found))
	for _, c := range found {
		byID[c.ID] = c
	}

	matches := make([]reinforce.Match, 0, len(hits))
	for _, h := range hits {
		c, ok := byID[h.ClaimID]
		if !ok {
			continue
		}
		matches = append(matches, reinforce.Match{
			ClaimID:          h.ClaimID,
			Score:            h.Score,
			LastReinforcedAt: c.LastReinforcedAt,
		})
	}
	return matches, nil
}

// Decide picks the claim mutation for an extracted claim.
func (s *Steps) Decide(claim extraction.Claim, source string, matches []reinforce.Match) reinforce.Action {
	return s.engine.Decide(claim, source, matches)
}

// Apply performs action against the claim store under token.
func (s *Steps) Apply(ctx context.Context, token string, action reinforce.Action) (claims.Applied, error) {
	applied, err := s.claims.Apply(ctx, token, action)
	if err != nil {
		return claims.Applied{}, fmt.Errorf("apply %s: %w", action.Kind, err)
	}
	return *applied, nil
}

// Index makes a newly created claim searchable.
func (s *Steps) Index(ctx context.Context, applied claims.Applied) error {
	if applied.Kind != reinforce.KindCreate {
		return nil
	}
	return s.index.Upsert(ctx, applied.Claim.ID, applied.Claim.Text)
}

// permanent reports whether retrying err cannot succeed.
func permanent(err error) bool {
	return errors.Is(err, claims.ErrInvalidAction) ||
		errors.Is(err, claims.ErrNotFound) ||
		errors.Is(err, context.Canceled)
}
