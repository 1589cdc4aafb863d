package reinforce_test

import (
	"math/rand/v2"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"

	"github.com/sahithi-mandalapu/feedback-market/internal/extraction"
	"github.com/sahithi-mandalapu/feedback-market/internal/reinforce"
)

var docsClaim = extraction.Claim{
	Text:      "API docs are confusing",
	Sentiment: extraction.SentimentNegative,
	Urgency:   extraction.UrgencyMedium,
	Segment:   "new_users",
}

func engine() *reinforce.Engine {
	return reinforce.New(reinforce.DefaultConfig())
}

func randomMatches(r *rand.Rand, n int, maxScore float64) []reinforce.Match {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	out := make([]reinforce.Match, n)
	for i := range out {
		out[i] = reinforce.Match{
			ClaimID:          uuid.New(),
			Score:            r.Float64() * maxScore,
			LastReinforcedAt: base.Add(time.Duration(r.IntN(1000)) * time.Hour),
		}
	}
	return out
}

func TestDecideEmptyMatchesCreates(t *testing.T) {
	for _, matches := range [][]reinforce.Match{nil, {}} {
		got := engine().Decide(docsClaim, "support", matches)

		want := reinforce.Action{
			Kind:          reinforce.KindCreate,
			Text:          "API docs are confusing",
			InitialWeight: 50,
			Source:        "support",
			Segment:       "new_users",
		}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("Decide mismatch (-want +got):\n%s", diff)
		}
	}
}

func TestDecideTopAboveThresholdAlwaysReinforcesTop(t *testing.T) {
	r := rand.New(rand.NewPCG(1, 2))

	for i := range 500 {
		matches := randomMatches(r, 1+r.IntN(5), 0.74)
		top := reinforce.Match{ClaimID: uuid.New(), Score: 0.75 + r.Float64()*0.25}
		matches = append(matches, top)
		r.Shuffle(len(matches), func(a, b int) { matches[a], matches[b] = matches[b], matches[a] })

		got := engine().Decide(docsClaim, "discord", matches)
		if got.Kind != reinforce.KindReinforce {
			t.Fatalf("case %d: kind = %s, want reinforce", i, got.Kind)
		}
		if got.ClaimID != top.ClaimID {
			t.Fatalf("case %d: target = %s, want top match %s", i, got.ClaimID, top.ClaimID)
		}
		if got.WeightDelta != 5 {
			t.Fatalf("case %d: delta = %d, want 5", i, got.WeightDelta)
		}
	}
}

func TestDecideBelowThresholdAlwaysCreates(t *testing.T) {
	r := rand.New(rand.NewPCG(3, 4))

	for i := range 500 {
		matches := randomMatches(r, 1+r.IntN(5), 0.7499)

		got := engine().Decide(docsClaim, "support", matches)
		if got.Kind != reinforce.KindCreate {
			t.Fatalf("case %d: kind = %s, want create for %+v", i, got.Kind, matches)
		}
		if got.InitialWeight != 50 {
			t.Fatalf("case %d: initial weight = %d, want 50", i, got.InitialWeight)
		}
	}
}

func TestDecideThresholdBoundary(t *testing.T) {
	id := uuid.New()

	tests := []struct {
		score float64
		want  reinforce.Kind
	}{
		{0.75, reinforce.KindReinforce},
		{0.7499, reinforce.KindCreate},
		{0.7500001, reinforce.KindReinforce},
		{1.0, reinforce.KindReinforce},
		{0, reinforce.KindCreate},
	}

	for _, tt := range tests {
		got := engine().Decide(docsClaim, "support", []reinforce.Match{{ClaimID: id, Score: tt.score}})
		if got.Kind != tt.want {
			t.Errorf("score %v: kind = %s, want %s", tt.score, got.Kind, tt.want)
		}
	}
}

func TestDecideTieBreaksOnRecency(t *testing.T) {
	now := time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)
	cold := reinforce.Match{ClaimID: uuid.New(), Score: 0.9, LastReinforcedAt: now.Add(-72 * time.Hour)}
	warm := reinforce.Match{ClaimID: uuid.New(), Score: 0.9, LastReinforcedAt: now.Add(-time.Hour)}
	weaker := reinforce.Match{ClaimID: uuid.New(), Score: 0.8, LastReinforcedAt: now}

	for _, order := range [][]reinforce.Match{
		{cold, warm, weaker},
		{weaker, warm, cold},
		{warm, cold, weaker},
	} {
		got := engine().Decide(docsClaim, "support", order)
		if got.ClaimID != warm.ClaimID {
			t.Errorf("order %v: target = %s, want warm claim %s", order, got.ClaimID, warm.ClaimID)
		}
	}
}

func TestDecideScenarioSecondEventReinforces(t *testing.T) {
	first := uuid.New()
	extracted := extraction.Claim{
		Text:      "Docs are hard to follow",
		Sentiment: extraction.SentimentNegative,
		Urgency:   extraction.UrgencyLow,
		Segment:   "power_users",
	}

	got := engine().Decide(extracted, "discord", []reinforce.Match{{ClaimID: first, Score: 0.81}})

	want := reinforce.Action{
		Kind:        reinforce.KindReinforce,
		ClaimID:     first,
		WeightDelta: 5,
		Source:      "discord",
		Segment:     "power_users",
		Score:       0.81,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Decide mismatch (-want +got):\n%s", diff)
	}
}

func TestDecideCustomPolicy(t *testing.T) {
	e := reinforce.New(reinforce.Config{Threshold: 0.9, InitialWeight: 10, WeightDelta: 2})

	created := e.Decide(docsClaim, "support", []reinforce.Match{{ClaimID: uuid.New(), Score: 0.85}})
	if created.Kind != reinforce.KindCreate || created.InitialWeight != 10 {
		t.Errorf("created = %+v, want create at weight 10", created)
	}

	reinforced := e.Decide(docsClaim, "support", []reinforce.Match{{ClaimID: uuid.New(), Score: 0.95}})
	if reinforced.Kind != reinforce.KindReinforce || reinforced.WeightDelta != 2 {
		t.Errorf("reinforced = %+v, want reinforce by 2", reinforced)
	}
}

func TestDecaying(t *testing.T) {
	now := time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)
	e := engine()

	tests := []struct {
		name string
		last time.Time
		want bool
	}{
		{"twenty days ago", now.AddDate(0, 0, -20), true},
		{"yesterday", now.AddDate(0, 0, -1), false},
		{"exactly at window", now.Add(-14 * 24 * time.Hour), false},
		{"just past window", now.Add(-14*24*time.Hour - time.Second), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := e.Decaying(tt.last, now); got != tt.want {
				t.Errorf("Decaying = %v, want %v", got, tt.want)
			}
		})
	}

	if got := e.DecayCutoff(now); !got.Equal(now.Add(-14 * 24 * time.Hour)) {
		t.Errorf("DecayCutoff = %v", got)
	}
}
