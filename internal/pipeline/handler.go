package pipeline

import (
	"log/slog"
	"net/http"

	"github.com/sahithi-mandalapu/feedback-market/pkg/handlers"
	"github.com/sahithi-mandalapu/feedback-market/pkg/routes"
)

// Handler provides HTTP endpoints for pipeline runs.
type Handler struct {
	sys         System
	logger      *slog.Logger
	maxBodySize int64
}

// NewHandler creates a Handler with the given system, logger, and body size limit.
func NewHandler(sys System, logger *slog.Logger, maxBodySize int64) *Handler {
	return &Handler{
		sys:         sys,
		logger:      logger.With("handler", "pipeline"),
		maxBodySize: maxBodySize,
	}
}

// Routes returns the route group definition for pipeline endpoints.
func (h *Handler) Routes() routes.Group {
	return routes.Group{
		Prefix: "/workflow",
		Routes: []routes.Route{
			{Method: "POST", Pattern: "/process", Handler: h.Process},
			{Method: "GET", Pattern: "/{id}", Handler: h.Find},
		},
	}
}

// Process accepts feedback and starts a pipeline run for it.
func (h *Handler) Process(w http.ResponseWriter, r *http.Request) {
	req, err := handlers.DecodeJSON[ProcessRequest](w, r, h.maxBodySize)
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, err)
		return
	}

	run, err := h.sys.Submit(r.Context(), req)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusAccepted, ProcessResponse{
		WorkflowID: run.ID,
		Status:     run.Status,
	})
}

// Find returns the status of a pipeline run.
func (h *Handler) Find(w http.ResponseWriter, r *http.Request) {
	run, err := h.sys.Find(r.Context(), r.PathValue("id"))
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, run)
}
