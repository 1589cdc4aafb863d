package api

import (
	"net/http"

	"github.com/sahithi-mandalapu/feedback-market/pkg/routes"
)

func registerRoutes(mux *http.ServeMux, domain *Domain, runtime *Runtime) {
	maxBody := runtime.Config.API.MaxBodySizeBytes()

	routes.RegisterWith(
		mux,
		runtime.Metrics.Instrument,
		domain.Claims.Handler(maxBody).Routes(),
		domain.Feedback.Handler(maxBody).Routes(),
		domain.Pipeline.Handler(maxBody).Routes(),
		domain.Prompts.Handler(maxBody).Routes(),
	)
}
