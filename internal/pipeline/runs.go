package pipeline

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sahithi-mandalapu/feedback-market/internal/reinforce"
)

// Status is the lifecycle state of a run.
type Status string

const (
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Run is the status record of one event's trip through the pipeline.
type Run struct {
	ID          string            `json:"id"`
	Source      string            `json:"source"`
	Text        string            `json:"text"`
	Status      Status            `json:"status"`
	Action      *reinforce.Action `json:"action,omitempty"`
	ClaimID     *uuid.UUID        `json:"claim_id,omitempty"`
	Error       *string           `json:"error,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
	CompletedAt *time.Time        `json:"completed_at,omitempty"`
}

// RunStore records run status for reporting.
type RunStore interface {
	// Start records a processing run for ev. When a run with the same id
	// exists it is returned unchanged with created false.
	Start(ctx context.Context, ev Event) (run *Run, created bool, err error)
	// Restart moves a failed run back to processing and reports whether
	// this call made the transition. Runs in any other state, including one
	// a concurrent caller already restarted, are returned unchanged with
	// restarted false.
	Restart(ctx context.Context, id string) (run *Run, restarted bool, err error)
	Complete(ctx context.Context, id string, result Result) error
	Fail(ctx context.Context, id string, cause error) error
	Find(ctx context.Context, id string) (*Run, error)
}

// MemoryRuns is an in-process RunStore.
type MemoryRuns struct {
	mu   sync.Mutex
	runs map[string]*Run
}

// NewMemoryRuns creates an empty in-memory run store.
func NewMemoryRuns() *MemoryRuns {
	return &MemoryRuns{runs: make(map[string]*Run)}
}

func (m *MemoryRuns) Start(_ context.Context, ev Event) (*Run, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if r, ok := m.runs[ev.ID]; ok {
		out := *r
		return &out, false, nil
	}

	r := &Run{
		ID:        ev.ID,
		Source:    ev.Source,
		Text:      ev.Text,
		Status:    StatusProcessing,
		CreatedAt: ev.ReceivedAt,
	}
	m.runs[ev.ID] = r
	out := *r
	return &out, true, nil
}

func (m *MemoryRuns) Restart(_ context.Context, id string) (*Run, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.runs[id]
	if !ok {
		return nil, false, ErrRunNotFound
	}
	restarted := r.Status == StatusFailed
	if restarted {
		r.Status = StatusProcessing
		r.Error = nil
		r.CompletedAt = nil
	}
	out := *r
	return &out, restarted, nil
}

func (m *MemoryRuns) Complete(_ context.Context, id string, result Result) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.runs[id]
	if !ok {
		return ErrRunNotFound
	}
	now := time.Now()
	action := result.Action
	claimID := result.ClaimID
	r.Status = StatusCompleted
	r.Action = &action
	r.ClaimID = &claimID
	r.Error = nil
	r.CompletedAt = &now
	return nil
}

func (m *MemoryRuns) Fail(_ context.Context, id string, cause error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.runs[id]
	if !ok {
		return ErrRunNotFound
	}
	now := time.Now()
	msg := cause.Error()
	r.Status = StatusFailed
	r.Error = &msg
	r.CompletedAt = &now
	return nil
}

func (m *MemoryRuns) Find(_ context.Context, id string) (*Run, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.runs[id]
	if !ok {
		return nil, ErrRunNotFound
	}
	out := *r
	return &out, nil
}
