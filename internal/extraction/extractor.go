// Package extraction turns raw feedback text into a structured claim by
// prompting a language model and validating its JSON reply.
package extraction

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/sahithi-mandalapu/feedback-market/internal/llm"
	"github.com/sahithi-mandalapu/feedback-market/pkg/formatting"
)

// Stage names the prompt stage whose instructions drive extraction.
const Stage = "extract"

// DefaultInstructions is the built-in extraction instruction text. An active
// prompt override replaces it.
const DefaultInstructions = `Extract the single most important product feedback claim from the user's message.
Rewrite it as a short, neutral statement about the product (for example "API docs are confusing").
Classify the sentiment, how urgent the issue is, and which user segment it comes from
(new_users, power_users, or enterprise when it can be inferred).`

// ResponseSpec is appended to every instruction text and fixes the reply shape.
const ResponseSpec = `Respond with a single JSON object and nothing else:
{"claim": string, "sentiment": "positive" | "negative" | "neutral", "urgency": "low" | "medium" | "high", "segment": string}`

// Completer is the language model collaborator.
type Completer interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

// InstructionSource resolves the instruction text for a stage, returning the
// default when no override is active.
type InstructionSource interface {
	Instructions(ctx context.Context, stage string) (string, error)
}

// Extractor converts raw feedback into a Claim. It holds no per-call state;
// repeat calls for identical text under the same instructions within the
// cache TTL reuse the last result.
type Extractor struct {
	llm          Completer
	instructions InstructionSource
	cache        *gocache.Cache
	logger       *slog.Logger
}

// New creates an Extractor. A nil instructions source uses
// DefaultInstructions; a cacheTTL of zero disables result caching.
func New(model Completer, instructions InstructionSource, cacheTTL time.Duration, logger *slog.Logger) *Extractor {
	e := &Extractor{
		llm:          model,
		instructions: instructions,
		logger:       logger.With("system", "extraction"),
	}
	if cacheTTL > 0 {
		e.cache = gocache.New(cacheTTL, 2*cacheTTL)
	}
	return e
}

// Extract prompts the model with the active instructions and validates the
// reply. Unparseable or incomplete replies return a *Failure; model transport
// errors are returned wrapped.
func (e *Extractor) Extract(ctx context.Context, rawText string) (Claim, error) {
	rawText = strings.TrimSpace(rawText)
	if rawText == "" {
		return Claim{}, &Failure{Reason: "empty feedback text"}
	}

	instructions, err := e.resolve(ctx)
	if err != nil {
		return Claim{}, err
	}

	key := cacheKey(instructions, rawText)
	if e.cache != nil {
		if v, ok := e.cache.Get(key); ok {
			return v.(Claim), nil
		}
	}

	claim, err := Infer(ctx, e.llm, instructions, rawText)
	if err != nil {
		var failure *Failure
		if errors.As(err, &failure) {
			e.logger.Warn("unparseable model output", "error", err)
		}
		return Claim{}, err
	}

	if e.cache != nil {
		e.cache.SetDefault(key, claim)
	}
	return claim, nil
}

// Parse decodes and validates a model reply.
func Parse(raw string) (Claim, error) {
	parsed, err := formatting.Parse[Claim](raw)
	if err != nil {
		return Claim{}, &Failure{Reason: "malformed JSON", Raw: raw}
	}

	claim := parsed.normalize()
	if reason := claim.validate(); reason != "" {
		return Claim{}, &Failure{Reason: reason, Raw: raw}
	}
	return claim, nil
}

// Infer runs a single uncached inference of rawText under the given
// instructions. ResponseSpec is always appended. A reply with no content is
// a *Failure, like any other unusable reply.
func Infer(ctx context.Context, model Completer, instructions, rawText string) (Claim, error) {
	rawText = strings.TrimSpace(rawText)
	if rawText == "" {
		return Claim{}, &Failure{Reason: "empty feedback text"}
	}

	raw, err := model.Complete(ctx, instructions+"\n\n"+ResponseSpec, rawText)
	if errors.Is(err, llm.ErrEmptyResponse) || (err == nil && strings.TrimSpace(raw) == "") {
		return Claim{}, &Failure{Reason: "empty reply"}
	}
	if err != nil {
		return Claim{}, fmt.Errorf("infer claim: %w", err)
	}
	return Parse(raw)
}

func (e *Extractor) resolve(ctx context.Context) (string, error) {
	if e.instructions == nil {
		return DefaultInstructions, nil
	}
	text, err := e.instructions.Instructions(ctx, Stage)
	if err != nil {
		return "", fmt.Errorf("resolve instructions: %w", err)
	}
	return text, nil
}

// cacheKey covers the instructions too, so activating a prompt takes effect
// without waiting out the TTL.
func cacheKey(instructions, text string) string {
	h := sha256.New()
	h.Write([]byte(instructions))
	h.Write([]byte{0})
	h.Write([]byte(text))
	return hex.EncodeToString(h.Sum(nil))
}
