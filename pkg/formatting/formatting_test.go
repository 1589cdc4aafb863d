package formatting_test

import (
	"errors"
	"testing"

	"github.com/sahithi-mandalapu/feedback-market/pkg/formatting"
)

type analysis struct {
	Claim     string `json:"claim"`
	Sentiment string `json:"sentiment"`
}

func TestParse(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  analysis
	}{
		{
			name:  "direct JSON",
			input: `{"claim":"API docs are confusing","sentiment":"negative"}`,
			want:  analysis{Claim: "API docs are confusing", Sentiment: "negative"},
		},
		{
			name:  "padded JSON",
			input: "  {\"claim\":\"slow search\",\"sentiment\":\"negative\"}\n",
			want:  analysis{Claim: "slow search", Sentiment: "negative"},
		},
		{
			name:  "markdown fence",
			input: "```json\n{\"claim\":\"fenced\",\"sentiment\":\"neutral\"}\n```",
			want:  analysis{Claim: "fenced", Sentiment: "neutral"},
		},
		{
			name:  "fence without language tag",
			input: "```\n{\"claim\":\"bare\",\"sentiment\":\"positive\"}\n```",
			want:  analysis{Claim: "bare", Sentiment: "positive"},
		},
		{
			name:  "object inside prose",
			input: "Sure! Here is the analysis: {\"claim\":\"prose\",\"sentiment\":\"neutral\"} Hope that helps.",
			want:  analysis{Claim: "prose", Sentiment: "neutral"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := formatting.Parse[analysis](tt.input)
			if err != nil {
				t.Fatalf("Parse error: %v", err)
			}
			if got != tt.want {
				t.Errorf("Parse = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestParseFailures(t *testing.T) {
	inputs := map[string]string{
		"plain text":       "not json at all",
		"empty":            "",
		"broken fence":     "```json\n{broken\n```",
		"unbalanced brace": "the claim is {\"claim\": ",
	}

	for name, input := range inputs {
		t.Run(name, func(t *testing.T) {
			_, err := formatting.Parse[analysis](input)
			if !errors.Is(err, formatting.ErrParseFailed) {
				t.Errorf("error = %v, want ErrParseFailed", err)
			}
		})
	}
}

func TestParseBytes(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    int64
		wantErr bool
	}{
		{"bare bytes", "1024", 1024, false},
		{"kilobytes", "64KB", 64 * 1024, false},
		{"megabytes", "1MB", 1024 * 1024, false},
		{"lowercase", "2mb", 2 * 1024 * 1024, false},
		{"with space", "10 KB", 10 * 1024, false},
		{"empty", "", 0, true},
		{"unknown unit", "5XB", 0, true},
		{"no number", "MB", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := formatting.ParseBytes(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseBytes(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseBytes(%q) = %d, want %d", tt.input, got, tt.want)
			}
		})
	}
}
