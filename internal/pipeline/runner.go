package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/sahithi-mandalapu/feedback-market/pkg/metrics"
)

// Checkpointer persists step outputs keyed by run and step name.
type Checkpointer interface {
	// Load returns the saved output and true, or false when the step has not
	// completed for this run.
	Load(ctx context.Context, runID, step string) ([]byte, bool, error)
	Save(ctx context.Context, runID, step string, output []byte) error
}

// RetryPolicy bounds how a failed step is retried.
type RetryPolicy struct {
	MaxAttempts     int           `json:"max_attempts"`
	InitialInterval time.Duration `json:"initial_interval"`
	MaxInterval     time.Duration `json:"max_interval"`
}

// StepError reports which step a run failed in.
type StepError struct {
	Step string
	Err  error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("step %s: %v", e.Step, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}

// Runner executes steps with a per-attempt timeout and exponential backoff
// between attempts, checkpointing each successful output.
type Runner struct {
	checkpoints Checkpointer
	timeout     time.Duration
	retry       RetryPolicy
	metrics     *metrics.Metrics
	logger      *slog.Logger
}

// NewRunner creates a Runner. m may be nil.
func NewRunner(
	checkpoints Checkpointer,
	timeout time.Duration,
	retry RetryPolicy,
	m *metrics.Metrics,
	logger *slog.Logger,
) *Runner {
	return &Runner{
		checkpoints: checkpoints,
		timeout:     timeout,
		retry:       retry,
		metrics:     m,
		logger:      logger.With("system", "runner"),
	}
}

// Step returns the checkpointed output of step name for runID if one exists.
// Otherwise it runs fn, retrying failures that are not permanent, and saves
// the output before returning it.
func Step[T any](
	ctx context.Context,
	r *Runner,
	runID, name string,
	fn func(context.Context) (T, error),
) (T, error) {
	var out T

	raw, ok, err := r.checkpoints.Load(ctx, runID, name)
	if err != nil {
		return out, &StepError{Step: name, Err: fmt.Errorf("load checkpoint: %w", err)}
	}
	if ok {
		if err := json.Unmarshal(raw, &out); err != nil {
			return out, &StepError{Step: name, Err: fmt.Errorf("decode checkpoint: %w", err)}
		}
		r.logger.Debug("step restored from checkpoint", "run", runID, "step", name)
		return out, nil
	}

	start := time.Now()
	tries := 0

	out, err = backoff.Retry(
		ctx,
		func() (T, error) {
			tries++
			if tries > 1 && r.metrics != nil {
				r.metrics.StepRetries.WithLabelValues(name).Inc()
			}

			v, err := attempt(ctx, r.timeout, fn)
			if err != nil && permanent(err) {
				return v, backoff.Permanent(err)
			}
			return v, err
		},
		backoff.WithBackOff(r.backoff()),
		backoff.WithMaxTries(uint(max(r.retry.MaxAttempts, 1))),
		backoff.WithNotify(func(err error, next time.Duration) {
			r.logger.Warn("step failed, retrying",
				"run", runID,
				"step", name,
				"attempt", tries,
				"next", next,
				"error", err,
			)
		}),
	)

	if r.metrics != nil {
		r.metrics.ObserveStep(name, start)
	}

	if err != nil {
		return out, &StepError{Step: name, Err: err}
	}

	raw, err = json.Marshal(out)
	if err != nil {
		return out, &StepError{Step: name, Err: fmt.Errorf("encode checkpoint: %w", err)}
	}
	if err := r.checkpoints.Save(ctx, runID, name, raw); err != nil {
		return out, &StepError{Step: name, Err: fmt.Errorf("save checkpoint: %w", err)}
	}

	return out, nil
}

func attempt[T any](ctx context.Context, timeout time.Duration, fn func(context.Context) (T, error)) (T, error) {
	if timeout <= 0 {
		return fn(ctx)
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return fn(ctx)
}

func (r *Runner) backoff() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	if r.retry.InitialInterval > 0 {
		b.InitialInterval = r.retry.InitialInterval
	}
	if r.retry.MaxInterval > 0 {
		b.MaxInterval = r.retry.MaxInterval
	}
	return b
}
