// Package llm wraps an OpenAI-compatible endpoint for chat completions and
// embeddings behind a shared request rate limit.
package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
	"golang.org/x/time/rate"

	"github.com/sahithi-mandalapu/feedback-market/internal/config"
)

var (
	// ErrEmptyResponse indicates the endpoint answered without content.
	ErrEmptyResponse = errors.New("empty model response")
	// ErrRequest indicates the endpoint could not be reached or rejected the call.
	ErrRequest = errors.New("model request failed")
)

// Client issues rate-limited chat and embedding requests.
type Client struct {
	client         *openai.Client
	model          string
	embeddingModel string
	temperature    float32
	timeout        time.Duration
	limiter        *rate.Limiter
	logger         *slog.Logger
}

// New creates a Client from the LLM configuration.
func New(cfg *config.LLMConfig, logger *slog.Logger) *Client {
	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}

	return &Client{
		client:         openai.NewClientWithConfig(clientConfig),
		model:          cfg.Model,
		embeddingModel: cfg.EmbeddingModel,
		temperature:    cfg.Temperature,
		timeout:        cfg.TimeoutDuration(),
		limiter:        rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.Burst),
		logger:         logger.With("system", "llm"),
	}
}

// Complete sends a system instruction and a user message and returns the
// trimmed assistant reply.
func (c *Client) Complete(ctx context.Context, system, user string) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limit: %w", err)
	}
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
		Temperature: c.temperature,
	})
	if err != nil {
		return "", fmt.Errorf("%w: chat completion: %w", ErrRequest, err)
	}

	if len(resp.Choices) == 0 {
		return "", ErrEmptyResponse
	}

	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	if content == "" {
		return "", ErrEmptyResponse
	}

	c.logger.Debug("completion", "model", c.model, "tokens", resp.Usage.TotalTokens)
	return content, nil
}

// Embed returns the embedding vector for text. Its signature matches
// chromem.EmbeddingFunc.
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit: %w", err)
	}
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	resp, err := c.client.CreateEmbeddings(ctx, openai.EmbeddingRequestStrings{
		Input: []string{text},
		Model: openai.EmbeddingModel(c.embeddingModel),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: embeddings: %w", ErrRequest, err)
	}

	if len(resp.Data) == 0 || len(resp.Data[0].Embedding) == 0 {
		return nil, ErrEmptyResponse
	}

	return resp.Data[0].Embedding, nil
}

func (c *Client) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.timeout > 0 {
		return context.WithTimeout(ctx, c.timeout)
	}
	return context.WithCancel(ctx)
}
