package query_test

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/sahithi-mandalapu/feedback-market/pkg/query"
)

func testProjection() *query.ProjectionMap {
	return query.NewProjectionMap("public", "claims", "c").
		Project("id", "id").
		Project("text", "text").
		Project("signal_weight", "signalWeight").
		Project("last_reinforced_at", "lastReinforcedAt")
}

func ptr(s string) *string { return &s }

func TestProjectionMap(t *testing.T) {
	p := testProjection()

	if got := p.From(); got != "public.claims c" {
		t.Errorf("From() = %q, want %q", got, "public.claims c")
	}
	if got := p.Alias(); got != "c" {
		t.Errorf("Alias() = %q, want %q", got, "c")
	}

	want := []string{"c.id", "c.text", "c.signal_weight", "c.last_reinforced_at"}
	if diff := cmp.Diff(want, p.ColumnList()); diff != "" {
		t.Errorf("ColumnList() mismatch (-want +got):\n%s", diff)
	}
	if got := p.Columns(); got != "c.id, c.text, c.signal_weight, c.last_reinforced_at" {
		t.Errorf("Columns() = %q", got)
	}
}

func TestProjectionMapColumnLookup(t *testing.T) {
	p := testProjection()

	tests := []struct {
		viewName string
		want     string
		has      bool
	}{
		{"text", "c.text", true},
		{"signalWeight", "c.signal_weight", true},
		{"unknown", "unknown", false},
	}

	for _, tt := range tests {
		t.Run(tt.viewName, func(t *testing.T) {
			if got := p.Column(tt.viewName); got != tt.want {
				t.Errorf("Column(%q) = %q, want %q", tt.viewName, got, tt.want)
			}
			if got := p.Has(tt.viewName); got != tt.has {
				t.Errorf("Has(%q) = %v, want %v", tt.viewName, got, tt.has)
			}
		})
	}
}

func TestParseSortFields(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []query.SortField
	}{
		{"empty", "", nil},
		{"single ascending", "text", []query.SortField{{Field: "text"}}},
		{"single descending", "-signalWeight", []query.SortField{{Field: "signalWeight", Descending: true}}},
		{
			"mixed with spaces",
			" -signalWeight , text ,",
			[]query.SortField{{Field: "signalWeight", Descending: true}, {Field: "text"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := query.ParseSortFields(tt.input)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("ParseSortFields(%q) mismatch (-want +got):\n%s", tt.input, diff)
			}
		})
	}
}

func TestBuildCountNoConditions(t *testing.T) {
	sql, args := query.NewBuilder(testProjection()).BuildCount()

	if sql != "SELECT COUNT(*) FROM public.claims c" {
		t.Errorf("sql = %q", sql)
	}
	if len(args) != 0 {
		t.Errorf("args = %v, want none", args)
	}
}

func TestBuildPageDefaultSort(t *testing.T) {
	b := query.NewBuilder(testProjection(), query.SortField{Field: "signalWeight", Descending: true})

	sql, _ := b.BuildPage(2, 10)
	want := "SELECT c.id, c.text, c.signal_weight, c.last_reinforced_at FROM public.claims c" +
		" ORDER BY c.signal_weight DESC LIMIT 10 OFFSET 10"
	if sql != want {
		t.Errorf("sql =\n%q\nwant\n%q", sql, want)
	}
}

func TestOrderByIgnoresUnprojectedFields(t *testing.T) {
	b := query.NewBuilder(testProjection(), query.SortField{Field: "signalWeight", Descending: true}).
		OrderByFields([]query.SortField{{Field: "text; DROP TABLE claims"}})

	sql, _ := b.Build()
	want := "SELECT c.id, c.text, c.signal_weight, c.last_reinforced_at FROM public.claims c" +
		" ORDER BY c.signal_weight DESC"
	if sql != want {
		t.Errorf("sql =\n%q\nwant\n%q", sql, want)
	}
}

func TestParameterNumbering(t *testing.T) {
	cutoff := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	b := query.NewBuilder(testProjection()).
		WhereSearch(ptr("docs"), "text").
		WhereEquals("id", "abc").
		WhereCompare("lastReinforcedAt", "<", cutoff).
		WhereIn("signalWeight", []any{50, 55})

	sql, args := b.BuildCount()
	want := "SELECT COUNT(*) FROM public.claims c WHERE (c.text ILIKE $1) AND c.id = $2" +
		" AND c.last_reinforced_at < $3 AND c.signal_weight IN ($4, $5)"
	if sql != want {
		t.Errorf("sql =\n%q\nwant\n%q", sql, want)
	}

	wantArgs := []any{"%docs%", "abc", cutoff, 50, 55}
	if diff := cmp.Diff(wantArgs, args); diff != "" {
		t.Errorf("args mismatch (-want +got):\n%s", diff)
	}
}

func TestNilConditionsAreSkipped(t *testing.T) {
	var nilTime *time.Time

	b := query.NewBuilder(testProjection()).
		WhereEquals("id", nil).
		WhereContains("text", nil).
		WhereContains("text", ptr("")).
		WhereSearch(nil, "text").
		WhereCompare("lastReinforcedAt", "<", nilTime).
		WhereIn("id", nil)

	sql, args := b.BuildCount()
	if sql != "SELECT COUNT(*) FROM public.claims c" {
		t.Errorf("sql = %q, want no WHERE clause", sql)
	}
	if len(args) != 0 {
		t.Errorf("args = %v, want none", args)
	}
}

func TestWhereCompareRejectsUnknownOperator(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic for unsupported operator")
		}
	}()
	query.NewBuilder(testProjection()).WhereCompare("signalWeight", "LIKE", 1)
}

func TestBuildSingle(t *testing.T) {
	sql, args := query.NewBuilder(testProjection()).BuildSingle("id", "abc")

	want := "SELECT c.id, c.text, c.signal_weight, c.last_reinforced_at FROM public.claims c WHERE c.id = $1"
	if sql != want {
		t.Errorf("sql = %q, want %q", sql, want)
	}
	if diff := cmp.Diff([]any{"abc"}, args); diff != "" {
		t.Errorf("args mismatch (-want +got):\n%s", diff)
	}
}

func TestWhereNullable(t *testing.T) {
	sql, args := query.NewBuilder(testProjection()).
		WhereNullable("lastReinforcedAt", nil).
		BuildSingleOrNull()

	want := "SELECT c.id, c.text, c.signal_weight, c.last_reinforced_at FROM public.claims c" +
		" WHERE c.last_reinforced_at IS NULL LIMIT 1"
	if sql != want {
		t.Errorf("sql = %q, want %q", sql, want)
	}
	if len(args) != 0 {
		t.Errorf("args = %v, want none", args)
	}
}

func TestWhereHasElement(t *testing.T) {
	p := testProjection().Project("sources", "sources")

	sql, args := query.NewBuilder(p).
		WhereHasElement("sources", ptr("email")).
		WhereHasElement("sources", ptr("")).
		BuildCount()

	want := "SELECT COUNT(*) FROM public.claims c WHERE c.sources @> jsonb_build_array($1::text)"
	if sql != want {
		t.Errorf("sql = %q, want %q", sql, want)
	}
	if diff := cmp.Diff([]any{"email"}, args); diff != "" {
		t.Errorf("args mismatch (-want +got):\n%s", diff)
	}
}
