// Package prompts manages named instruction overrides for the model-backed
// stages. At most one prompt per stage is active; the active prompt replaces
// that stage's default instructions.
package prompts

import (
	"strings"

	"github.com/google/uuid"

	"github.com/sahithi-mandalapu/feedback-market/internal/extraction"
)

// Prompt represents a named instruction override for a stage.
type Prompt struct {
	ID           uuid.UUID `json:"id"`
	Name         string    `json:"name"`
	Stage        Stage     `json:"stage"`
	Instructions string    `json:"instructions"`
	Description  *string   `json:"description"`
	Active       bool      `json:"active"`
}

// CreateCommand carries the data needed to create a new prompt override.
type CreateCommand struct {
	Name         string  `json:"name"`
	Stage        Stage   `json:"stage"`
	Instructions string  `json:"instructions"`
	Description  *string `json:"description"`
}

// PreviewRequest carries sample feedback to run through a prompt.
type PreviewRequest struct {
	Text string `json:"text"`
}

// Preview is the claim a prompt's instructions produce for sample feedback.
// Nothing is persisted or indexed.
type Preview struct {
	Prompt Prompt           `json:"prompt"`
	Claim  extraction.Claim `json:"claim"`
}

// UpdateCommand carries the data needed to update an existing prompt override.
type UpdateCommand CreateCommand

func (c CreateCommand) validate() error {
	if strings.TrimSpace(c.Name) == "" || strings.TrimSpace(c.Instructions) == "" {
		return ErrInvalid
	}
	if _, err := ParseStage(string(c.Stage)); err != nil {
		return err
	}
	return nil
}
