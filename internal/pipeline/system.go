package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
)

// DefaultSource tags events submitted without a feedback source.
const DefaultSource = "unknown"

// ProcessRequest submits one piece of feedback for processing. ID is
// optional; supplying it makes resubmission idempotent.
type ProcessRequest struct {
	ID             string `json:"id,omitempty"`
	FeedbackSource string `json:"feedbackSource"`
	Data           string `json:"data"`
}

// ProcessResponse acknowledges an accepted run.
type ProcessResponse struct {
	WorkflowID string `json:"workflowId"`
	Status     Status `json:"status"`
}

// System defines the public contract for pipeline runs.
type System interface {
	Handler(maxBodySize int64) *Handler

	// Submit records a run for req and dispatches it. Resubmitting an id
	// that is processing or completed returns the existing run; a failed
	// run is restarted.
	Submit(ctx context.Context, req ProcessRequest) (*Run, error)

	// Find returns the status of run id.
	Find(ctx context.Context, id string) (*Run, error)
}

type service struct {
	runs       RunStore
	dispatcher Dispatcher
	logger     *slog.Logger
	now        func() time.Time
}

// NewSystem creates the pipeline system over a run store and dispatcher.
func NewSystem(runs RunStore, dispatcher Dispatcher, logger *slog.Logger) System {
	return &service{
		runs:       runs,
		dispatcher: dispatcher,
		logger:     logger.With("system", "pipeline"),
		now:        time.Now,
	}
}

func (s *service) Handler(maxBodySize int64) *Handler {
	return NewHandler(s, s.logger, maxBodySize)
}

func (s *service) Submit(ctx context.Context, req ProcessRequest) (*Run, error) {
	ev, err := s.event(req)
	if err != nil {
		return nil, err
	}

	run, created, err := s.runs.Start(ctx, ev)
	if err != nil {
		return nil, fmt.Errorf("start run: %w", err)
	}

	if !created {
		if run.Status != StatusFailed {
			s.logger.Info("run already submitted", "run", run.ID, "status", run.Status)
			return run, nil
		}
		var restarted bool
		run, restarted, err = s.runs.Restart(ctx, ev.ID)
		if err != nil {
			return nil, fmt.Errorf("restart run: %w", err)
		}
		if !restarted {
			s.logger.Info("run already restarted", "run", run.ID, "status", run.Status)
			return run, nil
		}
		// the stored text is what the earlier attempt checkpointed against
		ev.Source, ev.Text = run.Source, run.Text
		s.logger.Info("restarting failed run", "run", run.ID)
	}

	if err := s.dispatcher.Dispatch(ctx, ev); err != nil {
		if ferr := s.runs.Fail(context.WithoutCancel(ctx), ev.ID, err); ferr != nil {
			s.logger.Error("record dispatch failure", "run", ev.ID, "error", ferr)
		}
		if errors.Is(err, ErrBusy) {
			return nil, ErrBusy
		}
		return nil, fmt.Errorf("dispatch run: %w", err)
	}

	s.logger.Info("run dispatched", "run", ev.ID, "source", ev.Source)
	return run, nil
}

func (s *service) Find(ctx context.Context, id string) (*Run, error) {
	return s.runs.Find(ctx, id)
}

func (s *service) event(req ProcessRequest) (Event, error) {
	text := strings.TrimSpace(req.Data)
	if text == "" {
		return Event{}, ErrInvalidEvent
	}

	source := strings.TrimSpace(req.FeedbackSource)
	if source == "" {
		source = DefaultSource
	}

	id := strings.TrimSpace(req.ID)
	if id == "" {
		id = uuid.NewString()
	}

	return Event{
		ID:         id,
		Source:     source,
		Text:       text,
		ReceivedAt: s.now(),
	}, nil
}
