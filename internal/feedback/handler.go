package feedback

import (
	"log/slog"
	"net/http"

	"github.com/sahithi-mandalapu/feedback-market/pkg/handlers"
	"github.com/sahithi-mandalapu/feedback-market/pkg/routes"
)

// Handler provides HTTP endpoints for feedback analysis.
type Handler struct {
	sys         System
	logger      *slog.Logger
	maxBodySize int64
}

// NewHandler creates a Handler with the given system, logger, and body size limit.
func NewHandler(sys System, logger *slog.Logger, maxBodySize int64) *Handler {
	return &Handler{
		sys:         sys,
		logger:      logger.With("handler", "feedback"),
		maxBodySize: maxBodySize,
	}
}

// Routes returns the route group definition for feedback endpoints.
func (h *Handler) Routes() routes.Group {
	return routes.Group{
		Routes: []routes.Route{
			{Method: "POST", Pattern: "/analyze-feedback", Handler: h.Analyze},
			{Method: "POST", Pattern: "/search-similar", Handler: h.Search},
		},
	}
}

// Analyze extracts a claim from the posted feedback text and returns it with similar claims.
func (h *Handler) Analyze(w http.ResponseWriter, r *http.Request) {
	req, err := handlers.DecodeJSON[AnalyzeRequest](w, r, h.maxBodySize)
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, ErrInvalidRequest)
		return
	}

	result, err := h.sys.Analyze(r.Context(), req.FeedbackText)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, result)
}

// Search returns stored claims ranked by similarity to the posted query.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	req, err := handlers.DecodeJSON[SearchRequest](w, r, h.maxBodySize)
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, ErrInvalidRequest)
		return
	}

	results, err := h.sys.Search(r.Context(), req.Query, req.Limit)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, results)
}
