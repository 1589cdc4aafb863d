package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/sahithi-mandalapu/feedback-market/internal/claims"
	"github.com/sahithi-mandalapu/feedback-market/internal/extraction"
	"github.com/sahithi-mandalapu/feedback-market/internal/reinforce"
	"github.com/sahithi-mandalapu/feedback-market/pkg/metrics"
)

// WorkflowName is the registered name of the pipeline workflow.
const WorkflowName = "FeedbackPipeline"

const errPermanent = "PermanentStepError"

// WorkflowInput carries an event plus the policy in force when it was
// accepted, so replays decide with the same settings.
type WorkflowInput struct {
	Event       Event            `json:"event"`
	Policy      reinforce.Config `json:"policy"`
	StepTimeout time.Duration    `json:"step_timeout"`
	Retry       RetryPolicy      `json:"retry"`
}

// ApplyInput is the argument of the apply activity.
type ApplyInput struct {
	Token  string           `json:"token"`
	Action reinforce.Action `json:"action"`
}

// RecordInput is the argument of the record activity. Error is empty for
// a successful run.
type RecordInput struct {
	RunID  string  `json:"run_id"`
	Result *Result `json:"result,omitempty"`
	Error  string  `json:"error,omitempty"`
}

// Activities exposes the pipeline steps as Temporal activities.
type Activities struct {
	steps   *Steps
	runs    RunStore
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// NewActivities creates the activity set. m may be nil.
func NewActivities(steps *Steps, runs RunStore, m *metrics.Metrics, logger *slog.Logger) *Activities {
	return &Activities{
		steps:   steps,
		runs:    runs,
		metrics: m,
		logger:  logger.With("system", "activities"),
	}
}

func (a *Activities) Extract(ctx context.Context, text string) (extraction.Claim, error) {
	claim, err := a.steps.Extract(ctx, text)
	return claim, classify(err)
}

func (a *Activities) Search(ctx context.Context, claim extraction.Claim) ([]reinforce.Match, error) {
	matches, err := a.steps.Search(ctx, claim)
	return matches, classify(err)
}

func (a *Activities) Apply(ctx context.Context, in ApplyInput) (claims.Applied, error) {
	applied, err := a.steps.Apply(ctx, in.Token, in.Action)
	return applied, classify(err)
}

func (a *Activities) Index(ctx context.Context, applied claims.Applied) error {
	return classify(a.steps.Index(ctx, applied))
}

func (a *Activities) Record(ctx context.Context, in RecordInput) error {
	var err error
	if in.Error != "" {
		err = errors.New(in.Error)
	}
	finish(ctx, a.runs, a.metrics, a.logger, in.RunID, in.Result, err)
	return nil
}

func classify(err error) error {
	if err == nil {
		return nil
	}
	if permanent(err) {
		return temporal.NewNonRetryableApplicationError(err.Error(), errPermanent, err)
	}
	return err
}

// Workflow runs the pipeline steps as activities. Decide is a pure function
// of activity outputs, so it runs inline in the workflow.
func Workflow(ctx workflow.Context, in WorkflowInput) (*Result, error) {
	logger := workflow.GetLogger(ctx)

	ctx = workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: in.StepTimeout,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:        in.Retry.InitialInterval,
			BackoffCoefficient:     2.0,
			MaximumInterval:        in.Retry.MaxInterval,
			MaximumAttempts:        int32(in.Retry.MaxAttempts),
			NonRetryableErrorTypes: []string{errPermanent},
		},
	})

	result, err := execute(ctx, in)

	record := RecordInput{RunID: in.Event.ID, Result: result}
	if err != nil {
		record.Error = err.Error()
	}

	var a *Activities
	if rerr := workflow.ExecuteActivity(ctx, a.Record, record).Get(ctx, nil); rerr != nil {
		logger.Error("record run", "run", in.Event.ID, "error", rerr)
	}

	return result, err
}

func execute(ctx workflow.Context, in WorkflowInput) (*Result, error) {
	logger := workflow.GetLogger(ctx)
	var a *Activities

	var claim extraction.Claim
	if err := workflow.ExecuteActivity(ctx, a.Extract, in.Event.Text).Get(ctx, &claim); err != nil {
		return nil, &StepError{Step: StepExtract, Err: err}
	}

	var matches []reinforce.Match
	if err := workflow.ExecuteActivity(ctx, a.Search, claim).Get(ctx, &matches); err != nil {
		return nil, &StepError{Step: StepSearch, Err: err}
	}

	action := reinforce.New(in.Policy).Decide(claim, in.Event.Source, matches)

	var applied claims.Applied
	apply := ApplyInput{Token: in.Event.ID, Action: action}
	if err := workflow.ExecuteActivity(ctx, a.Apply, apply).Get(ctx, &applied); err != nil {
		return nil, &StepError{Step: StepApply, Err: err}
	}

	if applied.Kind == reinforce.KindCreate {
		if err := workflow.ExecuteActivity(ctx, a.Index, applied).Get(ctx, nil); err != nil {
			logger.Warn("claim created but not indexed", "claim", applied.Claim.ID, "error", err)
		}
	}

	return &Result{
		Action:   action,
		ClaimID:  applied.Claim.ID,
		Replayed: applied.Replayed,
	}, nil
}
