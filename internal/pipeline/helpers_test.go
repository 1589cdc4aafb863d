package pipeline_test

import (
	"context"
	"hash/fnv"
	"io"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/sahithi-mandalapu/feedback-market/internal/claims"
	"github.com/sahithi-mandalapu/feedback-market/internal/extraction"
	"github.com/sahithi-mandalapu/feedback-market/internal/pipeline"
	"github.com/sahithi-mandalapu/feedback-market/internal/reinforce"
	"github.com/sahithi-mandalapu/feedback-market/internal/similarity"
	"github.com/sahithi-mandalapu/feedback-market/pkg/metrics"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

var fastRetry = pipeline.RetryPolicy{
	MaxAttempts:     3,
	InitialInterval: time.Millisecond,
	MaxInterval:     5 * time.Millisecond,
}

// bagOfWords hashes each word into a fixed-size vector so identical texts
// embed identically.
func bagOfWords(_ context.Context, text string) ([]float32, error) {
	v := make([]float32, 64)
	for _, w := range strings.Fields(strings.ToLower(text)) {
		h := fnv.New32a()
		h.Write([]byte(w))
		v[h.Sum32()%64]++
	}
	return v, nil
}

// fakeExtractor echoes the input text as the claim. The first failFirst
// calls return err instead.
type fakeExtractor struct {
	calls     atomic.Int32
	failFirst int32
	err       error
	segment   string
	block     chan struct{}
}

func (f *fakeExtractor) Extract(ctx context.Context, raw string) (extraction.Claim, error) {
	n := f.calls.Add(1)
	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
			return extraction.Claim{}, ctx.Err()
		}
	}
	if n <= f.failFirst {
		return extraction.Claim{}, f.err
	}
	return extraction.Claim{
		Text:      raw,
		Sentiment: extraction.SentimentNegative,
		Urgency:   extraction.UrgencyMedium,
		Segment:   f.segment,
	}, nil
}

// scoredIndex returns every indexed claim with the same fixed score. err
// fails searches; the first failUpserts writes fail as unavailable.
type scoredIndex struct {
	mu          sync.Mutex
	score       float64
	ids         []uuid.UUID
	err         error
	failUpserts int
	upserts     int
}

func (s *scoredIndex) FindSimilar(_ context.Context, _ string, limit int) ([]similarity.Hit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	hits := make([]similarity.Hit, 0, len(s.ids))
	for _, id := range s.ids {
		hits = append(hits, similarity.Hit{ClaimID: id, Score: s.score})
	}
	return hits[:min(limit, len(hits))], nil
}

func (s *scoredIndex) Upsert(_ context.Context, id uuid.UUID, _ string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.upserts++
	if s.upserts <= s.failUpserts {
		return similarity.ErrUnavailable
	}
	if !slices.Contains(s.ids, id) {
		s.ids = append(s.ids, id)
	}
	return nil
}

func (s *scoredIndex) Missing(_ context.Context, ids []uuid.UUID) ([]uuid.UUID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var missing []uuid.UUID
	for _, id := range ids {
		if !slices.Contains(s.ids, id) {
			missing = append(missing, id)
		}
	}
	return missing, nil
}

func (s *scoredIndex) Count(context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.ids), nil
}

func (s *scoredIndex) Close() error { return nil }

type harness struct {
	store       *claims.Memory
	index       similarity.Index
	extractor   *fakeExtractor
	checkpoints *pipeline.MemoryCheckpoints
	metrics     *metrics.Metrics
	steps       *pipeline.Steps
	pipeline    *pipeline.Pipeline
}

func newHarness(index similarity.Index, extractor *fakeExtractor) *harness {
	h := &harness{
		store:       claims.NewMemory(),
		index:       index,
		extractor:   extractor,
		checkpoints: pipeline.NewMemoryCheckpoints(),
		metrics:     metrics.New(),
	}
	h.steps = pipeline.NewSteps(
		extractor, index, h.store,
		reinforce.New(reinforce.DefaultConfig()),
		3, h.metrics, discard,
	)
	h.rebuild()
	return h
}

// rebuild recreates the pipeline over the current checkpoints.
func (h *harness) rebuild() {
	runner := pipeline.NewRunner(h.checkpoints, time.Second, fastRetry, h.metrics, discard)
	h.pipeline = pipeline.New(h.steps, runner, discard)
}

func event(id, source, text string) pipeline.Event {
	return pipeline.Event{ID: id, Source: source, Text: text, ReceivedAt: time.Now()}
}
