package claims

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/sahithi-mandalapu/feedback-market/pkg/query"
	"github.com/sahithi-mandalapu/feedback-market/pkg/repository"
)

var projection = query.
	NewProjectionMap("public", "claims", "c").
	Project("id", "ID").
	Project("text", "Text").
	Project("signal_weight", "SignalWeight").
	Project("sources", "Sources").
	Project("segments", "Segments").
	Project("reinforcement_count", "ReinforcementCount").
	Project("last_reinforced_at", "LastReinforcedAt").
	Project("created_at", "CreatedAt")

var defaultSort = []query.SortField{
	{Field: "SignalWeight", Descending: true},
	{Field: "CreatedAt"},
}

const returning = `RETURNING id, text, signal_weight, sources, segments,
		reinforcement_count, last_reinforced_at, created_at`

// Filters contains optional filtering criteria for claim queries.
// Source and Segment match set membership. Decaying selects claims on either
// side of the staleness cutoff.
type Filters struct {
	Source    *string `json:"source,omitempty"`
	Segment   *string `json:"segment,omitempty"`
	MinWeight *int    `json:"min_weight,omitempty"`
	Decaying  *bool   `json:"decaying,omitempty"`
}

// Apply adds filter conditions to a query builder. cutoff is the instant
// before which a last reinforcement counts as decaying.
func (f Filters) Apply(b *query.Builder, cutoff time.Time) *query.Builder {
	b.
		WhereHasElement("Sources", f.Source).
		WhereHasElement("Segments", f.Segment).
		WhereCompare("SignalWeight", ">=", f.MinWeight)

	if f.Decaying != nil {
		op := ">="
		if *f.Decaying {
			op = "<"
		}
		b.WhereCompare("LastReinforcedAt", op, cutoff)
	}
	return b
}

// FiltersFromQuery extracts filter values from URL query parameters.
func FiltersFromQuery(values url.Values) Filters {
	var f Filters

	if s := values.Get("source"); s != "" {
		f.Source = &s
	}

	if s := values.Get("segment"); s != "" {
		f.Segment = &s
	}

	if w := values.Get("min_weight"); w != "" {
		if n, err := strconv.Atoi(w); err == nil {
			f.MinWeight = &n
		}
	}

	if d := values.Get("decaying"); d != "" {
		if b, err := strconv.ParseBool(d); err == nil {
			f.Decaying = &b
		}
	}

	return f
}

func scanClaim(s repository.Scanner) (Claim, error) {
	var c Claim
	var sourcesRaw, segmentsRaw []byte

	err := s.Scan(
		&c.ID,
		&c.Text,
		&c.SignalWeight,
		&sourcesRaw,
		&segmentsRaw,
		&c.ReinforcementCount,
		&c.LastReinforcedAt,
		&c.CreatedAt,
	)
	if err != nil {
		return c, err
	}

	if c.Sources, err = decodeSet(sourcesRaw); err != nil {
		return c, fmt.Errorf("unmarshal sources: %w", err)
	}
	if c.Segments, err = decodeSet(segmentsRaw); err != nil {
		return c, fmt.Errorf("unmarshal segments: %w", err)
	}

	return c, nil
}

func decodeSet(raw []byte) ([]string, error) {
	set := []string{}
	if len(raw) == 0 {
		return set, nil
	}
	if err := json.Unmarshal(raw, &set); err != nil {
		return nil, err
	}
	if set == nil {
		set = []string{}
	}
	return set, nil
}
