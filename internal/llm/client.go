// Package llm wraps an OpenAI-compatible chat completion backend used to
// answer grounded queries.
package llm

import (
	"context"
	"errors"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/parchmentlabs/recall/internal/domain"
)

const (
	// DefaultModel is the chat model used when none is configured.
	DefaultModel = "gpt-4o-mini"
	// DefaultTimeout bounds a single completion request.
	DefaultTimeout = 60 * time.Second
)

// CompletionClient produces a text completion for a prompt. Safe for
// concurrent use.
type CompletionClient interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// chatAPI is the slice of the go-openai client used here, extracted so tests
// can fake the transport.
type chatAPI interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// Config holds settings for the completion client. BaseURL selects the
// backend the same way the embedding client does: empty for the OpenAI API,
// a local URL for an OpenAI-compatible model server.
type Config struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

// Client is a CompletionClient backed by an OpenAI-compatible chat API.
type Client struct {
	api     chatAPI
	model   string
	timeout time.Duration
}

// NewClient creates a completion client from configuration.
func NewClient(cfg Config) *Client {
	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	apiCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		apiCfg.BaseURL = cfg.BaseURL
	}

	return &Client{
		api:     openai.NewClientWithConfig(apiCfg),
		model:   model,
		timeout: timeout,
	}
}

// Complete sends the prompt as a single user message and returns the model's
// reply. An empty response or a failed call is an LLM error; a timeout is
// surfaced as service unavailability. No automatic retries.
func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	if strings.TrimSpace(prompt) == "" {
		return "", domain.NewLLMError(errors.New("prompt cannot be empty"))
	}

	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.api.CreateChatCompletion(reqCtx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return "", domain.NewServiceUnavailableError("language model", err)
		}
		return "", domain.NewLLMError(err)
	}

	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		return "", domain.NewLLMError(errors.New("model returned an empty response"))
	}

	return resp.Choices[0].Message.Content, nil
}
