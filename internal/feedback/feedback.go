// Package feedback serves the synchronous analysis endpoints: extracting a
// claim from one piece of feedback and searching for claims that resemble
// a query.
package feedback

import (
	"time"

	"github.com/google/uuid"

	"github.com/sahithi-mandalapu/feedback-market/internal/claims"
	"github.com/sahithi-mandalapu/feedback-market/internal/extraction"
)

// DefaultLimit is the number of similar claims returned when a request does
// not set one.
const DefaultLimit = 3

const maxLimit = 50

// AnalyzeRequest is the body of POST /analyze-feedback.
type AnalyzeRequest struct {
	FeedbackText string `json:"feedbackText"`
}

// SearchRequest is the body of POST /search-similar.
type SearchRequest struct {
	Query string `json:"query"`
	Limit int    `json:"limit,omitempty"`
}

// Similar is a stored claim with its relevance to the query.
type Similar struct {
	claims.Claim
	Score float64 `json:"score"`
}

// Analysis is a stored extraction result together with the claims it
// resembles.
type Analysis struct {
	ID        uuid.UUID        `json:"id"`
	Text      string           `json:"text"`
	Analysis  extraction.Claim `json:"analysis"`
	Similar   []Similar        `json:"similar"`
	CreatedAt time.Time        `json:"created_at"`
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return DefaultLimit
	}
	return min(limit, maxLimit)
}
