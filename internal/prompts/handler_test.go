package prompts_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"

	"github.com/sahithi-mandalapu/feedback-market/internal/extraction"
	"github.com/sahithi-mandalapu/feedback-market/internal/prompts"
	"github.com/sahithi-mandalapu/feedback-market/pkg/pagination"
	"github.com/sahithi-mandalapu/feedback-market/pkg/routes"
)

type mockSystem struct {
	listFn         func(ctx context.Context, page pagination.PageRequest, filters prompts.Filters) (*pagination.PageResult[prompts.Prompt], error)
	findFn         func(ctx context.Context, id uuid.UUID) (*prompts.Prompt, error)
	instructionsFn func(ctx context.Context, stage string) (string, error)
	createFn       func(ctx context.Context, cmd prompts.CreateCommand) (*prompts.Prompt, error)
	activateFn     func(ctx context.Context, id uuid.UUID) (*prompts.Prompt, error)
	previewFn      func(ctx context.Context, id uuid.UUID, sample string) (*prompts.Preview, error)
}

func (m *mockSystem) Handler(maxBodySize int64) *prompts.Handler {
	return prompts.NewHandler(m, slog.New(slog.NewTextHandler(io.Discard, nil)), pagination.Config{DefaultPageSize: 20, MaxPageSize: 100}, maxBodySize)
}

func (m *mockSystem) List(ctx context.Context, page pagination.PageRequest, filters prompts.Filters) (*pagination.PageResult[prompts.Prompt], error) {
	return m.listFn(ctx, page, filters)
}

func (m *mockSystem) Find(ctx context.Context, id uuid.UUID) (*prompts.Prompt, error) {
	return m.findFn(ctx, id)
}

func (m *mockSystem) Instructions(ctx context.Context, stage string) (string, error) {
	return m.instructionsFn(ctx, stage)
}

func (m *mockSystem) Create(ctx context.Context, cmd prompts.CreateCommand) (*prompts.Prompt, error) {
	return m.createFn(ctx, cmd)
}

func (m *mockSystem) Update(context.Context, uuid.UUID, prompts.UpdateCommand) (*prompts.Prompt, error) {
	return nil, prompts.ErrNotFound
}

func (m *mockSystem) Delete(context.Context, uuid.UUID) error {
	return prompts.ErrNotFound
}

func (m *mockSystem) Activate(ctx context.Context, id uuid.UUID) (*prompts.Prompt, error) {
	return m.activateFn(ctx, id)
}

func (m *mockSystem) Deactivate(context.Context, uuid.UUID) (*prompts.Prompt, error) {
	return nil, prompts.ErrNotFound
}

func (m *mockSystem) Preview(ctx context.Context, id uuid.UUID, sample string) (*prompts.Preview, error) {
	return m.previewFn(ctx, id, sample)
}

func setupMux(sys *mockSystem) *http.ServeMux {
	mux := http.NewServeMux()
	routes.Register(mux, sys.Handler(1<<20).Routes())
	return mux
}

func samplePrompt() prompts.Prompt {
	return prompts.Prompt{
		ID:           uuid.MustParse("7c9e6679-7425-40de-944b-e07fc1f90ae7"),
		Name:         "terse-claims",
		Stage:        prompts.StageExtract,
		Instructions: "Keep claims under eight words.",
		Active:       true,
	}
}

func TestHandlerList(t *testing.T) {
	p := samplePrompt()
	var captured prompts.Filters
	sys := &mockSystem{
		listFn: func(_ context.Context, _ pagination.PageRequest, filters prompts.Filters) (*pagination.PageResult[prompts.Prompt], error) {
			captured = filters
			result := pagination.NewPageResult([]prompts.Prompt{p}, 1, 1, 20)
			return &result, nil
		},
	}

	rec := httptest.NewRecorder()
	setupMux(sys).ServeHTTP(rec, httptest.NewRequest("GET", "/prompts?stage=extract&active=true", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var result pagination.PageResult[prompts.Prompt]
	if err := json.NewDecoder(rec.Body).Decode(&result); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(result.Data) != 1 || result.Data[0].ID != p.ID {
		t.Errorf("data = %v", result.Data)
	}
	if captured.Stage == nil || *captured.Stage != prompts.StageExtract {
		t.Errorf("stage filter = %v", captured.Stage)
	}
	if captured.Active == nil || !*captured.Active {
		t.Errorf("active filter = %v", captured.Active)
	}
}

func TestHandlerStages(t *testing.T) {
	rec := httptest.NewRecorder()
	setupMux(&mockSystem{}).ServeHTTP(rec, httptest.NewRequest("GET", "/prompts/stages", nil))

	var stages []prompts.Stage
	if err := json.NewDecoder(rec.Body).Decode(&stages); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(stages) != 1 || stages[0] != prompts.StageExtract {
		t.Errorf("stages = %v", stages)
	}
}

func TestHandlerFind(t *testing.T) {
	p := samplePrompt()
	sys := &mockSystem{
		findFn: func(_ context.Context, id uuid.UUID) (*prompts.Prompt, error) {
			if id == p.ID {
				return &p, nil
			}
			return nil, prompts.ErrNotFound
		},
	}
	mux := setupMux(sys)

	tests := []struct {
		name string
		path string
		want int
	}{
		{"found", "/prompts/" + p.ID.String(), http.StatusOK},
		{"missing", "/prompts/" + uuid.NewString(), http.StatusNotFound},
		{"invalid id", "/prompts/nope", http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, httptest.NewRequest("GET", tt.path, nil))
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}
}

func TestHandlerInstructions(t *testing.T) {
	sys := &mockSystem{
		instructionsFn: func(_ context.Context, stage string) (string, error) {
			return "override for " + stage, nil
		},
	}
	mux := setupMux(sys)

	t.Run("returns stage content", func(t *testing.T) {
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest("GET", "/prompts/extract/instructions", nil))

		var content prompts.StageContent
		if err := json.NewDecoder(rec.Body).Decode(&content); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if content.Content != "override for extract" {
			t.Errorf("content = %q", content.Content)
		}
	})

	t.Run("invalid stage returns 400", func(t *testing.T) {
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest("GET", "/prompts/classify/instructions", nil))
		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", rec.Code)
		}
	})
}

func TestHandlerSpec(t *testing.T) {
	rec := httptest.NewRecorder()
	setupMux(&mockSystem{}).ServeHTTP(rec, httptest.NewRequest("GET", "/prompts/extract/spec", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var content prompts.StageContent
	json.NewDecoder(rec.Body).Decode(&content)
	if content.Stage != prompts.StageExtract || content.Content == "" {
		t.Errorf("content = %+v", content)
	}
}

func TestHandlerCreate(t *testing.T) {
	sys := &mockSystem{
		createFn: func(_ context.Context, cmd prompts.CreateCommand) (*prompts.Prompt, error) {
			p := samplePrompt()
			p.Name = cmd.Name
			p.Active = false
			return &p, nil
		},
	}
	mux := setupMux(sys)

	tests := []struct {
		name string
		body string
		want int
	}{
		{"created", `{"name":"terse","stage":"extract","instructions":"be brief"}`, http.StatusCreated},
		{"unknown stage", `{"name":"terse","stage":"classify","instructions":"be brief"}`, http.StatusBadRequest},
		{"malformed", `{`, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, httptest.NewRequest("POST", "/prompts", bytes.NewBufferString(tt.body)))
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}
}

func TestHandlerActivate(t *testing.T) {
	p := samplePrompt()
	sys := &mockSystem{
		activateFn: func(_ context.Context, id uuid.UUID) (*prompts.Prompt, error) {
			if id != p.ID {
				return nil, prompts.ErrNotFound
			}
			return &p, nil
		},
	}
	mux := setupMux(sys)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest("POST", "/prompts/"+p.ID.String()+"/activate", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest("POST", "/prompts/"+uuid.NewString()+"/activate", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestHandlerPreview(t *testing.T) {
	p := samplePrompt()
	sys := &mockSystem{
		previewFn: func(_ context.Context, id uuid.UUID, sample string) (*prompts.Preview, error) {
			switch {
			case id != p.ID:
				return nil, prompts.ErrNotFound
			case sample == "":
				return nil, prompts.ErrEmptySample
			case sample == "gibberish":
				return nil, &extraction.Failure{Reason: "malformed JSON"}
			}
			return &prompts.Preview{
				Prompt: p,
				Claim: extraction.Claim{
					Text:      "Docs unclear",
					Sentiment: extraction.SentimentNegative,
					Urgency:   extraction.UrgencyLow,
				},
			}, nil
		},
	}
	mux := setupMux(sys)

	tests := []struct {
		name string
		id   string
		body string
		want int
	}{
		{"extracted", p.ID.String(), `{"text":"the docs lost me"}`, http.StatusOK},
		{"empty sample", p.ID.String(), `{"text":""}`, http.StatusBadRequest},
		{"model reply rejected", p.ID.String(), `{"text":"gibberish"}`, http.StatusUnprocessableEntity},
		{"unknown prompt", uuid.NewString(), `{"text":"hi"}`, http.StatusNotFound},
		{"invalid id", "nope", `{"text":"hi"}`, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			req := httptest.NewRequest("POST", "/prompts/"+tt.id+"/preview", bytes.NewBufferString(tt.body))
			mux.ServeHTTP(rec, req)
			if rec.Code != tt.want {
				t.Fatalf("status = %d, want %d", rec.Code, tt.want)
			}
			if tt.want != http.StatusOK {
				return
			}
			var got prompts.Preview
			if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if got.Prompt.ID != p.ID || got.Claim.Text != "Docs unclear" {
				t.Errorf("preview = %+v", got)
			}
		})
	}
}

func TestPreviewFailureMapsToUnprocessable(t *testing.T) {
	err := fmt.Errorf("preview: %w", &extraction.Failure{Reason: "missing claim"})
	if !errors.Is(err, extraction.ErrExtractionFailed) {
		t.Fatal("wrapped failure should match ErrExtractionFailed")
	}
	if got := prompts.MapHTTPStatus(err); got != http.StatusUnprocessableEntity {
		t.Errorf("status = %d, want 422", got)
	}
}
