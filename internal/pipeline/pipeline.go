// Package pipeline turns feedback events into claim mutations through a
// fixed sequence of checkpointed steps: extract, search, decide, apply, and
// (after a create) index. Runs execute in-process or on Temporal; both
// engines share the same step implementations.
package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/sahithi-mandalapu/feedback-market/internal/claims"
	"github.com/sahithi-mandalapu/feedback-market/internal/config"
	"github.com/sahithi-mandalapu/feedback-market/internal/extraction"
	"github.com/sahithi-mandalapu/feedback-market/internal/reinforce"
)

// Event is one piece of incoming feedback. ID doubles as the idempotency
// token for the claim mutation, so resubmitting an event never applies it
// twice.
type Event struct {
	ID         string    `json:"id"`
	Source     string    `json:"source"`
	Text       string    `json:"text"`
	ReceivedAt time.Time `json:"received_at"`
}

// Result is the outcome of a completed run.
type Result struct {
	Action   reinforce.Action `json:"action"`
	ClaimID  uuid.UUID        `json:"claim_id"`
	Replayed bool             `json:"replayed"`
}

// Pipeline executes runs with a Runner so each step's output is
// checkpointed before the next step starts.
type Pipeline struct {
	steps  *Steps
	runner *Runner
	logger *slog.Logger
}

// New creates a Pipeline.
func New(steps *Steps, runner *Runner, logger *slog.Logger) *Pipeline {
	return &Pipeline{
		steps:  steps,
		runner: runner,
		logger: logger.With("system", "pipeline"),
	}
}

// Process runs ev to completion. Re-processing an event whose steps were
// already checkpointed resumes after the last completed step.
func (p *Pipeline) Process(ctx context.Context, ev Event) (*Result, error) {
	claim, err := Step(ctx, p.runner, ev.ID, StepExtract, func(ctx context.Context) (extraction.Claim, error) {
		return p.steps.Extract(ctx, ev.Text)
	})
	if err != nil {
		return nil, err
	}

	matches, err := Step(ctx, p.runner, ev.ID, StepSearch, func(ctx context.Context) ([]reinforce.Match, error) {
		return p.steps.Search(ctx, claim)
	})
	if err != nil {
		return nil, err
	}

	action, err := Step(ctx, p.runner, ev.ID, StepDecide, func(context.Context) (reinforce.Action, error) {
		return p.steps.Decide(claim, ev.Source, matches), nil
	})
	if err != nil {
		return nil, err
	}

	applied, err := Step(ctx, p.runner, ev.ID, StepApply, func(ctx context.Context) (claims.Applied, error) {
		return p.steps.Apply(ctx, ev.ID, action)
	})
	if err != nil {
		return nil, err
	}

	if applied.Kind == reinforce.KindCreate {
		_, err := Step(ctx, p.runner, ev.ID, StepIndex, func(ctx context.Context) (bool, error) {
			return true, p.steps.Index(ctx, applied)
		})
		if err != nil {
			p.logger.Warn("claim created but not indexed", "run", ev.ID, "claim", applied.Claim.ID, "error", err)
		}
	}

	p.logger.Info("run processed",
		"run", ev.ID,
		"kind", applied.Kind,
		"claim", applied.Claim.ID,
		"signal_weight", applied.Claim.SignalWeight,
		"replayed", applied.Replayed,
	)

	return &Result{
		Action:   action,
		ClaimID:  applied.Claim.ID,
		Replayed: applied.Replayed,
	}, nil
}

// Policy converts pipeline configuration into the reinforcement policy.
func Policy(cfg *config.PipelineConfig) reinforce.Config {
	return reinforce.Config{
		Threshold:       cfg.Threshold,
		InitialWeight:   cfg.InitialWeight,
		WeightDelta:     cfg.WeightDelta,
		StalenessWindow: cfg.StalenessWindowDuration(),
	}
}

// Retry converts pipeline configuration into the step retry policy.
func Retry(cfg *config.PipelineConfig) RetryPolicy {
	return RetryPolicy{
		MaxAttempts:     cfg.Retry.MaxAttempts,
		InitialInterval: cfg.Retry.InitialIntervalDuration(),
		MaxInterval:     cfg.Retry.MaxIntervalDuration(),
	}
}
