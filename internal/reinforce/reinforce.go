// Package reinforce decides whether an extracted claim reinforces an existing
// claim or becomes a new one. Decisions are pure functions of their inputs.
package reinforce

import (
	"cmp"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/sahithi-mandalapu/feedback-market/internal/extraction"
)

// Kind distinguishes the two claim mutations.
type Kind string

const (
	KindCreate    Kind = "create"
	KindReinforce Kind = "reinforce"
)

// Config holds the reinforcement policy.
type Config struct {
	// Threshold is the minimum relevance score (inclusive) for a match to
	// count as the same claim.
	Threshold float64
	// InitialWeight is the signal weight of a newly created claim.
	InitialWeight int
	// WeightDelta is the fixed increment applied per reinforcement.
	WeightDelta int
	// StalenessWindow is how long a claim may go without reinforcement
	// before it reads as decaying.
	StalenessWindow time.Duration
}

// DefaultConfig returns the standard policy: threshold 0.75, weight 50,
// delta +5, and a 14 day staleness window.
func DefaultConfig() Config {
	return Config{
		Threshold:       0.75,
		InitialWeight:   50,
		WeightDelta:     5,
		StalenessWindow: 14 * 24 * time.Hour,
	}
}

// Match is a similarity hit enriched with the matched claim's recency.
type Match struct {
	ClaimID          uuid.UUID `json:"claim_id"`
	Score            float64   `json:"score"`
	LastReinforcedAt time.Time `json:"last_reinforced_at"`
}

// Action is the single mutation a pipeline run applies to the claim store.
// For KindCreate, Text and InitialWeight describe the new claim; for
// KindReinforce, ClaimID and WeightDelta identify the increment. Source and
// Segment are unioned into the claim's sets in both cases.
type Action struct {
	Kind          Kind      `json:"kind"`
	ClaimID       uuid.UUID `json:"claim_id,omitzero"`
	Text          string    `json:"text,omitempty"`
	InitialWeight int       `json:"initial_weight,omitempty"`
	WeightDelta   int       `json:"weight_delta,omitempty"`
	Source        string    `json:"source"`
	Segment       string    `json:"segment"`
	Score         float64   `json:"score,omitempty"`
}

// Engine applies a Config to reinforcement decisions.
type Engine struct {
	cfg Config
}

// New creates an Engine with the given policy.
func New(cfg Config) *Engine {
	return &Engine{cfg: cfg}
}

// Config returns the engine's policy.
func (e *Engine) Config() Config {
	return e.cfg
}

// Decide picks the highest scoring match, preferring the more recently
// reinforced claim on equal scores. A top score at or above the threshold
// reinforces that claim; anything else creates a new one. Lower ranked
// matches never receive credit.
func (e *Engine) Decide(extracted extraction.Claim, source string, matches []Match) Action {
	if top, ok := e.best(matches); ok && top.Score >= e.cfg.Threshold {
		return Action{
			Kind:        KindReinforce,
			ClaimID:     top.ClaimID,
			WeightDelta: e.cfg.WeightDelta,
			Source:      source,
			Segment:     extracted.Segment,
			Score:       top.Score,
		}
	}

	return Action{
		Kind:          KindCreate,
		Text:          extracted.Text,
		InitialWeight: e.cfg.InitialWeight,
		Source:        source,
		Segment:       extracted.Segment,
	}
}

// Decaying reports whether a claim last reinforced at lastReinforcedAt has
// been idle longer than the staleness window as of now. It never changes
// the claim.
func (e *Engine) Decaying(lastReinforcedAt, now time.Time) bool {
	return now.Sub(lastReinforcedAt) > e.cfg.StalenessWindow
}

// DecayCutoff returns the instant before which a last reinforcement counts as
// decaying.
func (e *Engine) DecayCutoff(now time.Time) time.Time {
	return now.Add(-e.cfg.StalenessWindow)
}

func (e *Engine) best(matches []Match) (Match, bool) {
	if len(matches) == 0 {
		return Match{}, false
	}
	return slices.MaxFunc(matches, func(a, b Match) int {
		if c := cmp.Compare(a.Score, b.Score); c != 0 {
			return c
		}
		return a.LastReinforcedAt.Compare(b.LastReinforcedAt)
	}), true
}
