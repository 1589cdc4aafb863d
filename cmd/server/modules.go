package main

import (
	"encoding/json"
	"net/http"

	"github.com/sahithi-mandalapu/feedback-market/internal/api"
	"github.com/sahithi-mandalapu/feedback-market/internal/config"
	"github.com/sahithi-mandalapu/feedback-market/internal/infrastructure"
	"github.com/sahithi-mandalapu/feedback-market/pkg/middleware"
	"github.com/sahithi-mandalapu/feedback-market/pkg/module"
	"github.com/sahithi-mandalapu/feedback-market/web/app"
)

type Modules struct {
	API *module.Module
	App http.Handler
}

func NewModules(infra *infrastructure.Infrastructure, cfg *config.Config) (*Modules, error) {
	apiModule, err := api.NewModule(cfg, infra)
	if err != nil {
		return nil, err
	}

	page, err := app.NewHandler("/", cfg.API.BasePath)
	if err != nil {
		return nil, err
	}

	return &Modules{
		API: apiModule,
		App: middleware.Logger(infra.Logger.With("module", "app"))(page),
	}, nil
}

// Mount registers the API under its base path. The page handler takes every
// path no module or native route claims.
func (m *Modules) Mount(router *module.Router) {
	router.Mount(m.API)
	router.Handle("/", m.App)
}

func buildRouter(infra *infrastructure.Infrastructure) *module.Router {
	router := module.NewRouter()

	router.HandleNative("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	})

	router.HandleNative("GET /readyz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if !infra.Lifecycle.Ready() {
			w.WriteHeader(http.StatusServiceUnavailable)
			json.NewEncoder(w).Encode(map[string]string{"status": "not ready"})
			return
		}
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]string{"status": "ready"})
	})

	router.Handle("GET /metrics", infra.Metrics.Handler())

	return router
}
