package prompts

import (
	"net/url"
	"strconv"

	"github.com/sahithi-mandalapu/feedback-market/pkg/query"
	"github.com/sahithi-mandalapu/feedback-market/pkg/repository"
)

var projection = query.
	NewProjectionMap("public", "prompts", "p").
	Project("id", "ID").
	Project("name", "Name").
	Project("stage", "Stage").
	Project("instructions", "Instructions").
	Project("description", "Description").
	Project("active", "Active")

// Active overrides list first, then by name.
var defaultSort = []query.SortField{
	{Field: "Active", Descending: true},
	{Field: "Name"},
}

// Filters narrows prompt listings. Nil fields are ignored. Text matches
// case-insensitively inside the instruction body, which is how operators
// find the override that mentions a product area.
type Filters struct {
	Stage  *Stage  `json:"stage,omitempty"`
	Name   *string `json:"name,omitempty"`
	Text   *string `json:"text,omitempty"`
	Active *bool   `json:"active,omitempty"`
}

// Apply adds filter conditions to a query builder.
func (f Filters) Apply(b *query.Builder) *query.Builder {
	return b.
		WhereEquals("Stage", f.Stage).
		WhereContains("Name", f.Name).
		WhereContains("Instructions", f.Text).
		WhereEquals("Active", f.Active)
}

// FiltersFromQuery reads stage, name, text and active from the query
// string. Unknown stages and unparseable booleans are dropped rather than
// rejected, matching how unknown sort fields are treated.
func FiltersFromQuery(values url.Values) Filters {
	var f Filters

	if stage, err := ParseStage(values.Get("stage")); err == nil {
		f.Stage = &stage
	}
	if v := values.Get("name"); v != "" {
		f.Name = &v
	}
	if v := values.Get("text"); v != "" {
		f.Text = &v
	}
	if v, err := strconv.ParseBool(values.Get("active")); err == nil {
		f.Active = &v
	}

	return f
}

func scanPrompt(s repository.Scanner) (Prompt, error) {
	var p Prompt
	err := s.Scan(
		&p.ID,
		&p.Name,
		&p.Stage,
		&p.Instructions,
		&p.Description,
		&p.Active,
	)
	return p, err
}
