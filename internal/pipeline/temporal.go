package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.temporal.io/sdk/client"
	tlog "go.temporal.io/sdk/log"
	"go.temporal.io/sdk/worker"
	"go.temporal.io/sdk/workflow"

	"github.com/sahithi-mandalapu/feedback-market/internal/config"
	"github.com/sahithi-mandalapu/feedback-market/internal/reinforce"
)

// Temporal executes runs as Temporal workflows keyed by event id. The
// worker runs in this process; the client can also reach remote workers on
// the same task queue.
type Temporal struct {
	client    client.Client
	worker    worker.Worker
	taskQueue string
	policy    reinforce.Config
	timeout   time.Duration
	retry     RetryPolicy
	logger    *slog.Logger
}

// NewTemporal dials the Temporal frontend and registers the pipeline
// workflow and activities on a worker.
func NewTemporal(cfg *config.PipelineConfig, activities *Activities, logger *slog.Logger) (*Temporal, error) {
	logger = logger.With("dispatcher", "temporal")

	c, err := client.Dial(client.Options{
		HostPort:  cfg.Temporal.HostPort,
		Namespace: cfg.Temporal.Namespace,
		Logger:    tlog.NewStructuredLogger(logger),
	})
	if err != nil {
		return nil, fmt.Errorf("dial temporal: %w", err)
	}

	w := worker.New(c, cfg.Temporal.TaskQueue, worker.Options{
		MaxConcurrentActivityExecutionSize: cfg.MaxConcurrentRuns,
	})
	w.RegisterWorkflowWithOptions(Workflow, workflow.RegisterOptions{Name: WorkflowName})
	w.RegisterActivity(activities)

	return &Temporal{
		client:    c,
		worker:    w,
		taskQueue: cfg.Temporal.TaskQueue,
		policy:    Policy(cfg),
		timeout:   cfg.StepTimeoutDuration(),
		retry:     Retry(cfg),
		logger:    logger,
	}, nil
}

// Start begins polling the task queue.
func (t *Temporal) Start() error {
	if err := t.worker.Start(); err != nil {
		return fmt.Errorf("start temporal worker: %w", err)
	}
	t.logger.Info("temporal worker started", "task_queue", t.taskQueue)
	return nil
}

// Stop drains the worker and closes the client.
func (t *Temporal) Stop() {
	t.worker.Stop()
	t.client.Close()
	t.logger.Info("temporal worker stopped")
}

// Dispatch starts a workflow for ev. The workflow id is the event id, so a
// duplicate submission of a running event is rejected by Temporal.
func (t *Temporal) Dispatch(ctx context.Context, ev Event) error {
	run, err := t.client.ExecuteWorkflow(
		ctx,
		client.StartWorkflowOptions{
			ID:        ev.ID,
			TaskQueue: t.taskQueue,
		},
		WorkflowName,
		WorkflowInput{
			Event:       ev,
			Policy:      t.policy,
			StepTimeout: t.timeout,
			Retry:       t.retry,
		},
	)
	if err != nil {
		return fmt.Errorf("start workflow: %w", err)
	}

	t.logger.Info("workflow started", "workflow_id", run.GetID(), "run_id", run.GetRunID())
	return nil
}
