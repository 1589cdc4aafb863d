package api

import (
	"github.com/sahithi-mandalapu/feedback-market/internal/config"
	"github.com/sahithi-mandalapu/feedback-market/internal/infrastructure"
	"github.com/sahithi-mandalapu/feedback-market/internal/pipeline"
	"github.com/sahithi-mandalapu/feedback-market/internal/reinforce"
	"github.com/sahithi-mandalapu/feedback-market/pkg/pagination"
)

// Runtime extends Infrastructure with API-specific configuration and the
// reinforcement policy shared by claims and the pipeline.
type Runtime struct {
	*infrastructure.Infrastructure
	Config     *config.Config
	Engine     *reinforce.Engine
	Pagination pagination.Config
}

// NewRuntime creates an API runtime with a module-scoped logger.
func NewRuntime(cfg *config.Config, infra *infrastructure.Infrastructure) *Runtime {
	scoped := *infra
	scoped.Logger = infra.Logger.With("module", "api")

	return &Runtime{
		Infrastructure: &scoped,
		Config:         cfg,
		Engine:         reinforce.New(pipeline.Policy(&cfg.Pipeline)),
		Pagination:     cfg.API.Pagination,
	}
}
