package claims

import (
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/sahithi-mandalapu/feedback-market/internal/reinforce"
)

// Claim is a distilled product statement whose signal weight grows each time
// new feedback restates it.
type Claim struct {
	ID                 uuid.UUID `json:"id"`
	Text               string    `json:"text"`
	SignalWeight       int       `json:"signal_weight"`
	Sources            []string  `json:"sources"`
	Segments           []string  `json:"segments"`
	ReinforcementCount int       `json:"reinforcement_count"`
	LastReinforcedAt   time.Time `json:"last_reinforced_at"`
	CreatedAt          time.Time `json:"created_at"`
	Decaying           bool      `json:"decaying"`
}

// CreateCommand holds the fields for a manually entered claim.
type CreateCommand struct {
	Text     string   `json:"text"`
	Sources  []string `json:"sources"`
	Segments []string `json:"segments"`
}

// Applied reports the claim produced by Store.Apply. Replayed is true when
// the token had already been applied and the stored result was returned
// without mutating anything.
type Applied struct {
	Claim    Claim          `json:"claim"`
	Kind     reinforce.Kind `json:"kind"`
	Replayed bool           `json:"replayed"`
}

func (c CreateCommand) normalize() CreateCommand {
	return CreateCommand{
		Text:     c.Text,
		Sources:  dedupe(c.Sources),
		Segments: dedupe(c.Segments),
	}
}

func dedupe(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		out = union(out, v)
	}
	return out
}

// union appends v to set unless it is empty or already present.
func union(set []string, v string) []string {
	if v == "" || slices.Contains(set, v) {
		return set
	}
	return append(set, v)
}

func validateAction(action reinforce.Action) error {
	switch action.Kind {
	case reinforce.KindCreate:
		if action.Text == "" {
			return ErrInvalidAction
		}
	case reinforce.KindReinforce:
		if action.ClaimID == uuid.Nil || action.WeightDelta <= 0 {
			return ErrInvalidAction
		}
	default:
		return ErrInvalidAction
	}
	return nil
}
