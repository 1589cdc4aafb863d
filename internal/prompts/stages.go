package prompts

import (
	"encoding/json"
	"slices"

	"github.com/sahithi-mandalapu/feedback-market/internal/extraction"
)

// Stage represents a model-backed step that a prompt override targets.
type Stage string

// StageExtract drives claim extraction from raw feedback.
const StageExtract Stage = extraction.Stage

var stages = []Stage{
	StageExtract,
}

var defaults = map[Stage]string{
	StageExtract: extraction.DefaultInstructions,
}

var specs = map[Stage]string{
	StageExtract: extraction.ResponseSpec,
}

// Stages returns the list of valid stages.
func Stages() []Stage {
	return stages
}

// UnmarshalJSON validates that the decoded string is a known stage value.
func (s *Stage) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	v, err := ParseStage(raw)
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// ParseStage validates a string as a known stage.
// Returns ErrInvalidStage if the value is not recognized.
func ParseStage(s string) (Stage, error) {
	v := Stage(s)
	if !slices.Contains(stages, v) {
		return "", ErrInvalidStage
	}
	return v, nil
}

// DefaultInstructions returns the built-in instructions for a stage.
func DefaultInstructions(stage Stage) (string, error) {
	text, ok := defaults[stage]
	if !ok {
		return "", ErrInvalidStage
	}
	return text, nil
}

// Spec returns the fixed response specification for a stage. Overrides
// replace instructions only; the spec is always appended unchanged.
func Spec(stage Stage) (string, error) {
	text, ok := specs[stage]
	if !ok {
		return "", ErrInvalidStage
	}
	return text, nil
}
