package pipeline

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/sahithi-mandalapu/feedback-market/internal/reinforce"
	"github.com/sahithi-mandalapu/feedback-market/pkg/metrics"
)

// Dispatcher hands a started run to an execution engine. Dispatch returns
// once the run is scheduled, not when it completes.
type Dispatcher interface {
	Dispatch(ctx context.Context, ev Event) error
}

// Local executes runs in-process on a bounded set of goroutines.
type Local struct {
	pipeline *Pipeline
	runs     RunStore
	metrics  *metrics.Metrics
	logger   *slog.Logger

	base  context.Context
	group *errgroup.Group
}

// NewLocal creates a Local dispatcher running at most limit runs at once.
// Runs inherit base, so cancelling it stops in-flight work.
func NewLocal(
	base context.Context,
	p *Pipeline,
	runs RunStore,
	limit int,
	m *metrics.Metrics,
	logger *slog.Logger,
) *Local {
	g := new(errgroup.Group)
	g.SetLimit(max(limit, 1))

	return &Local{
		pipeline: p,
		runs:     runs,
		metrics:  m,
		logger:   logger.With("dispatcher", "local"),
		base:     base,
		group:    g,
	}
}

// Dispatch schedules ev, or returns ErrBusy when every slot is taken.
func (l *Local) Dispatch(_ context.Context, ev Event) error {
	ok := l.group.TryGo(func() error {
		result, err := l.pipeline.Process(l.base, ev)
		finish(l.base, l.runs, l.metrics, l.logger, ev.ID, result, err)
		return nil
	})
	if !ok {
		return ErrBusy
	}
	return nil
}

// Wait blocks until every in-flight run returns.
func (l *Local) Wait() {
	_ = l.group.Wait()
}

// finish records a run's terminal state. The record is written even when
// ctx is already cancelled so a run interrupted by shutdown reads as failed.
func finish(
	ctx context.Context,
	runs RunStore,
	m *metrics.Metrics,
	logger *slog.Logger,
	id string,
	result *Result,
	runErr error,
) {
	ctx = context.WithoutCancel(ctx)

	if runErr != nil {
		logger.Error("run failed", "run", id, "error", runErr)
		if err := runs.Fail(ctx, id, runErr); err != nil {
			logger.Error("record run failure", "run", id, "error", err)
		}
		if m != nil {
			m.PipelineRuns.WithLabelValues(metrics.OutcomeFailed).Inc()
		}
		return
	}

	if err := runs.Complete(ctx, id, *result); err != nil {
		logger.Error("record run completion", "run", id, "error", err)
	}
	if m != nil {
		outcome := metrics.OutcomeReinforced
		if result.Action.Kind == reinforce.KindCreate {
			outcome = metrics.OutcomeCreated
		}
		m.PipelineRuns.WithLabelValues(outcome).Inc()
	}
}
