package claims

import (
	"cmp"
	"context"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sahithi-mandalapu/feedback-market/internal/reinforce"
)

type application struct {
	claimID uuid.UUID
	kind    reinforce.Kind
}

// Memory is an in-process Store. Every operation holds a single mutex, so
// Apply has the same atomicity and token semantics as the PostgreSQL store.
type Memory struct {
	mu           sync.Mutex
	claims       map[uuid.UUID]*Claim
	applications map[string]application
	now          func() time.Time
}

// NewMemory creates an empty in-memory claim store.
func NewMemory() *Memory {
	return &Memory{
		claims:       make(map[uuid.UUID]*Claim),
		applications: make(map[string]application),
		now:          time.Now,
	}
}

// SetClock replaces the time source used for created and reinforced timestamps.
func (m *Memory) SetClock(now func() time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = now
}

func (m *Memory) Find(_ context.Context, id uuid.UUID) (*Claim, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.claims[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := c.clone()
	return &out, nil
}

func (m *Memory) FindMany(_ context.Context, ids []uuid.UUID) ([]Claim, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]Claim, 0, len(ids))
	for _, id := range ids {
		if c, ok := m.claims[id]; ok {
			out = append(out, c.clone())
		}
	}
	return out, nil
}

func (m *Memory) All(_ context.Context) ([]Claim, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]Claim, 0, len(m.claims))
	for _, c := range m.claims {
		out = append(out, c.clone())
	}
	slices.SortFunc(out, func(a, b Claim) int {
		if c := cmp.Compare(b.SignalWeight, a.SignalWeight); c != 0 {
			return c
		}
		return a.CreatedAt.Compare(b.CreatedAt)
	})
	return out, nil
}

func (m *Memory) Apply(_ context.Context, token string, action reinforce.Action) (*Applied, error) {
	if token == "" {
		return nil, ErrInvalidAction
	}
	if err := validateAction(action); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if app, ok := m.applications[token]; ok {
		return &Applied{Claim: m.claims[app.claimID].clone(), Kind: app.kind, Replayed: true}, nil
	}

	now := m.now()
	var c *Claim

	switch action.Kind {
	case reinforce.KindCreate:
		c = &Claim{
			ID:               uuid.New(),
			Text:             action.Text,
			SignalWeight:     action.InitialWeight,
			Sources:          union([]string{}, action.Source),
			Segments:         union([]string{}, action.Segment),
			LastReinforcedAt: now,
			CreatedAt:        now,
		}
		m.claims[c.ID] = c
	default:
		var ok bool
		if c, ok = m.claims[action.ClaimID]; !ok {
			return nil, ErrNotFound
		}
		c.SignalWeight += action.WeightDelta
		c.Sources = union(c.Sources, action.Source)
		c.Segments = union(c.Segments, action.Segment)
		c.ReinforcementCount++
		c.LastReinforcedAt = now
	}

	m.applications[token] = application{claimID: c.ID, kind: action.Kind}
	return &Applied{Claim: c.clone(), Kind: action.Kind}, nil
}

func (c *Claim) clone() Claim {
	out := *c
	out.Sources = slices.Clone(c.Sources)
	out.Segments = slices.Clone(c.Segments)
	return out
}
