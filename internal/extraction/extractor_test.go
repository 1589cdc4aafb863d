package extraction_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/sahithi-mandalapu/feedback-market/internal/extraction"
	"github.com/sahithi-mandalapu/feedback-market/internal/llm"
)

type fakeCompleter struct {
	reply  string
	err    error
	calls  int
	system string
}

func (f *fakeCompleter) Complete(_ context.Context, system, _ string) (string, error) {
	f.calls++
	f.system = system
	return f.reply, f.err
}

type staticInstructions string

func (s staticInstructions) Instructions(context.Context, string) (string, error) {
	return string(s), nil
}

type failingInstructions struct{}

func (failingInstructions) Instructions(context.Context, string) (string, error) {
	return "", errors.New("prompt store down")
}

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestExtract(t *testing.T) {
	model := &fakeCompleter{
		reply: "Here you go:\n```json\n" +
			`{"claim":"API docs are confusing","sentiment":"Negative","urgency":"medium","segment":"New Users"}` +
			"\n```",
	}
	e := extraction.New(model, nil, 0, discard())

	got, err := e.Extract(context.Background(), "I couldn't figure out the API docs at all")
	if err != nil {
		t.Fatalf("Extract error: %v", err)
	}

	want := extraction.Claim{
		Text:      "API docs are confusing",
		Sentiment: extraction.SentimentNegative,
		Urgency:   extraction.UrgencyMedium,
		Segment:   "new_users",
	}
	if got != want {
		t.Errorf("Extract = %+v, want %+v", got, want)
	}
	if !strings.Contains(model.system, extraction.DefaultInstructions) {
		t.Error("system prompt should contain the default instructions")
	}
	if !strings.HasSuffix(model.system, extraction.ResponseSpec) {
		t.Error("system prompt should end with the response spec")
	}
}

func TestExtractUsesInstructionOverride(t *testing.T) {
	model := &fakeCompleter{reply: `{"claim":"c","sentiment":"neutral","urgency":"low","segment":"enterprise"}`}
	e := extraction.New(model, staticInstructions("Focus on billing complaints."), 0, discard())

	if _, err := e.Extract(context.Background(), "invoice was wrong"); err != nil {
		t.Fatalf("Extract error: %v", err)
	}
	if !strings.HasPrefix(model.system, "Focus on billing complaints.") {
		t.Errorf("system prompt = %q, want override first", model.system)
	}
	if strings.Contains(model.system, extraction.DefaultInstructions) {
		t.Error("override should replace the default instructions")
	}
}

func TestExtractFailures(t *testing.T) {
	tests := []struct {
		name   string
		reply  string
		reason string
	}{
		{"not json", "I think the user is unhappy.", "malformed JSON"},
		{"missing claim", `{"sentiment":"negative","urgency":"low","segment":"enterprise"}`, "missing claim"},
		{"invalid sentiment", `{"claim":"c","sentiment":"angry","urgency":"low","segment":"enterprise"}`, "invalid sentiment"},
		{"invalid urgency", `{"claim":"c","sentiment":"negative","urgency":"asap","segment":"enterprise"}`, "invalid urgency"},
		{"missing segment", `{"claim":"c","sentiment":"negative","urgency":"high"}`, "missing segment"},
		{"wrong type", `{"claim":"c","sentiment":"negative","urgency":3,"segment":"x"}`, "malformed JSON"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := extraction.New(&fakeCompleter{reply: tt.reply}, nil, 0, discard())

			_, err := e.Extract(context.Background(), "feedback")
			if !errors.Is(err, extraction.ErrExtractionFailed) {
				t.Fatalf("error = %v, want ErrExtractionFailed", err)
			}

			var failure *extraction.Failure
			if !errors.As(err, &failure) {
				t.Fatalf("error %T is not *Failure", err)
			}
			if !strings.HasPrefix(failure.Reason, tt.reason) {
				t.Errorf("reason = %q, want prefix %q", failure.Reason, tt.reason)
			}
			if failure.Raw != tt.reply {
				t.Errorf("raw = %q, want model reply", failure.Raw)
			}
		})
	}
}

func TestExtractEmptyText(t *testing.T) {
	model := &fakeCompleter{}
	e := extraction.New(model, nil, 0, discard())

	_, err := e.Extract(context.Background(), "   ")
	if !errors.Is(err, extraction.ErrExtractionFailed) {
		t.Errorf("error = %v, want ErrExtractionFailed", err)
	}
	if model.calls != 0 {
		t.Errorf("model called %d times for empty text", model.calls)
	}
}

func TestExtractTransportError(t *testing.T) {
	down := errors.New("connection refused")
	e := extraction.New(&fakeCompleter{err: down}, nil, 0, discard())

	_, err := e.Extract(context.Background(), "feedback")
	if !errors.Is(err, down) {
		t.Errorf("error = %v, want wrapped transport error", err)
	}
	if errors.Is(err, extraction.ErrExtractionFailed) {
		t.Error("transport errors are not extraction failures")
	}
}

func TestExtractInstructionError(t *testing.T) {
	model := &fakeCompleter{}
	e := extraction.New(model, failingInstructions{}, 0, discard())

	if _, err := e.Extract(context.Background(), "feedback"); err == nil {
		t.Error("expected error when instructions cannot be resolved")
	}
	if model.calls != 0 {
		t.Error("model should not be called without instructions")
	}
}

func TestExtractCachesResults(t *testing.T) {
	model := &fakeCompleter{reply: `{"claim":"c","sentiment":"neutral","urgency":"low","segment":"enterprise"}`}
	e := extraction.New(model, nil, time.Minute, discard())

	for range 3 {
		if _, err := e.Extract(context.Background(), "same text"); err != nil {
			t.Fatalf("Extract error: %v", err)
		}
	}
	if model.calls != 1 {
		t.Errorf("model calls = %d, want 1 with caching", model.calls)
	}
}

// switchableInstructions stands in for a prompt store whose active override
// changes between calls.
type switchableInstructions struct {
	text string
}

func (s *switchableInstructions) Instructions(context.Context, string) (string, error) {
	return s.text, nil
}

func TestExtractCacheFollowsInstructions(t *testing.T) {
	model := &fakeCompleter{reply: `{"claim":"c","sentiment":"neutral","urgency":"low","segment":"enterprise"}`}
	source := &switchableInstructions{text: extraction.DefaultInstructions}
	e := extraction.New(model, source, time.Minute, discard())
	ctx := context.Background()

	if _, err := e.Extract(ctx, "same text"); err != nil {
		t.Fatalf("Extract error: %v", err)
	}

	source.text = "Focus on billing complaints."
	if _, err := e.Extract(ctx, "same text"); err != nil {
		t.Fatalf("Extract error: %v", err)
	}
	if model.calls != 2 {
		t.Fatalf("model calls = %d, want 2 after the instructions changed", model.calls)
	}
	if !strings.HasPrefix(model.system, "Focus on billing complaints.") {
		t.Errorf("system prompt = %q, want the new instructions", model.system)
	}

	source.text = extraction.DefaultInstructions
	if _, err := e.Extract(ctx, "same text"); err != nil {
		t.Fatalf("Extract error: %v", err)
	}
	if model.calls != 2 {
		t.Errorf("model calls = %d, want the earlier result reused", model.calls)
	}
}

func TestExtractDoesNotCacheFailures(t *testing.T) {
	model := &fakeCompleter{reply: "nope"}
	e := extraction.New(model, nil, time.Minute, discard())

	for range 2 {
		_, _ = e.Extract(context.Background(), "same text")
	}
	if model.calls != 2 {
		t.Errorf("model calls = %d, want 2 (failures are retried)", model.calls)
	}
}

func TestInferUsesGivenInstructions(t *testing.T) {
	model := &fakeCompleter{
		reply: `{"claim":"Pricing page is unclear","sentiment":"negative","urgency":"low","segment":"enterprise"}`,
	}

	got, err := extraction.Infer(context.Background(), model, "Only report pricing issues.", "  what does the enterprise tier cost?  ")
	if err != nil {
		t.Fatalf("Infer error: %v", err)
	}
	if got.Text != "Pricing page is unclear" || got.Segment != "enterprise" {
		t.Errorf("claim = %+v", got)
	}
	if !strings.HasPrefix(model.system, "Only report pricing issues.") {
		t.Errorf("system prompt = %q", model.system)
	}
	if !strings.HasSuffix(model.system, extraction.ResponseSpec) {
		t.Error("response spec should close the system prompt")
	}
}

func TestInferRejectsBlankText(t *testing.T) {
	model := &fakeCompleter{}
	_, err := extraction.Infer(context.Background(), model, extraction.DefaultInstructions, "   ")
	if !errors.Is(err, extraction.ErrExtractionFailed) {
		t.Errorf("err = %v, want ErrExtractionFailed", err)
	}
	if model.calls != 0 {
		t.Errorf("calls = %d, want 0", model.calls)
	}
}

func TestInferEmptyReplyIsFailure(t *testing.T) {
	tests := []struct {
		name  string
		model *fakeCompleter
	}{
		{"empty response error", &fakeCompleter{err: llm.ErrEmptyResponse}},
		{"blank reply", &fakeCompleter{reply: "  \n"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := extraction.Infer(context.Background(), tt.model, extraction.DefaultInstructions, "checkout is slow")

			var failure *extraction.Failure
			if !errors.As(err, &failure) {
				t.Fatalf("err = %v, want *Failure", err)
			}
			if failure.Reason != "empty reply" {
				t.Errorf("reason = %q, want empty reply", failure.Reason)
			}
			if errors.Is(err, llm.ErrEmptyResponse) {
				t.Error("empty reply should no longer read as a transport error")
			}
		})
	}
}
