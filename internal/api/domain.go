package api

import (
	"fmt"

	"github.com/sahithi-mandalapu/feedback-market/internal/claims"
	"github.com/sahithi-mandalapu/feedback-market/internal/config"
	"github.com/sahithi-mandalapu/feedback-market/internal/extraction"
	"github.com/sahithi-mandalapu/feedback-market/internal/feedback"
	"github.com/sahithi-mandalapu/feedback-market/internal/pipeline"
	"github.com/sahithi-mandalapu/feedback-market/internal/prompts"
)

// Domain holds all domain systems that comprise the API.
type Domain struct {
	Claims   claims.System
	Feedback feedback.System
	Pipeline pipeline.System
	Prompts  prompts.System
}

// NewDomain creates all domain systems from the API runtime.
func NewDomain(runtime *Runtime) (*Domain, error) {
	db := runtime.Database.Connection()
	cfg := runtime.Config

	promptsSystem := prompts.New(db, runtime.LLM, runtime.Logger, runtime.Pagination)

	extractor := extraction.New(
		runtime.LLM,
		promptsSystem,
		cfg.LLM.CacheTTLDuration(),
		runtime.Logger,
	)

	claimsSystem := claims.New(
		db,
		runtime.Engine,
		runtime.Index,
		runtime.Logger,
		runtime.Pagination,
	)
	runtime.Backfill(claimsSystem)

	feedbackSystem := feedback.New(
		db,
		extractor,
		runtime.Index,
		claimsSystem,
		runtime.Metrics,
		runtime.Logger,
	)

	steps := pipeline.NewSteps(
		extractor,
		runtime.Index,
		claimsSystem,
		runtime.Engine,
		cfg.Index.Limit,
		runtime.Metrics,
		runtime.Logger,
	)
	runs := pipeline.NewPostgresRuns(db)

	dispatcher, err := newDispatcher(runtime, steps, runs)
	if err != nil {
		return nil, err
	}

	return &Domain{
		Claims:   claimsSystem,
		Feedback: feedbackSystem,
		Pipeline: pipeline.NewSystem(runs, dispatcher, runtime.Logger),
		Prompts:  promptsSystem,
	}, nil
}

// newDispatcher builds the configured pipeline engine and ties its lifetime
// to the lifecycle coordinator.
func newDispatcher(runtime *Runtime, steps *pipeline.Steps, runs pipeline.RunStore) (pipeline.Dispatcher, error) {
	cfg := &runtime.Config.Pipeline
	lc := runtime.Lifecycle

	switch cfg.Engine {
	case config.PipelineEngineTemporal:
		activities := pipeline.NewActivities(steps, runs, runtime.Metrics, runtime.Logger)
		t, err := pipeline.NewTemporal(cfg, activities, runtime.Logger)
		if err != nil {
			return nil, fmt.Errorf("temporal init failed: %w", err)
		}
		lc.OnStartup("temporal worker", t.Start)
		lc.OnShutdown(func() {
			<-lc.Context().Done()
			t.Stop()
		})
		return t, nil

	default:
		runner := pipeline.NewRunner(
			pipeline.NewPostgresCheckpoints(runtime.Database.Connection()),
			cfg.StepTimeoutDuration(),
			pipeline.Retry(cfg),
			runtime.Metrics,
			runtime.Logger,
		)
		local := pipeline.NewLocal(
			lc.Context(),
			pipeline.New(steps, runner, runtime.Logger),
			runs,
			cfg.MaxConcurrentRuns,
			runtime.Metrics,
			runtime.Logger,
		)
		lc.OnShutdown(func() {
			<-lc.Context().Done()
			local.Wait()
		})
		return local, nil
	}
}
