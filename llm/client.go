// Package llm builds extraction prompts, talks to an OpenAI-compatible
// chat endpoint and recovers JSON objects from model output.
package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/use-agent/enrich/models"
)

// DefaultBaseURL is Gemini's OpenAI-compatible endpoint.
const DefaultBaseURL = "https://generativelanguage.googleapis.com/v1beta/openai"

// DefaultModel is used when no model is configured.
const DefaultModel = "gemini-2.5-flash-lite"

// Config holds the connection settings for Client.
type Config struct {
	APIKey  string
	Model   string
	BaseURL string

	// HTTPClient overrides the transport. Nil uses http.DefaultClient.
	HTTPClient *http.Client
}

// Client sends single-turn prompts to a chat completion endpoint.
type Client struct {
	api   *openai.Client
	model string
}

// NewClient creates a Client from cfg, filling defaults for Model and
// BaseURL.
func NewClient(cfg Config) *Client {
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	oc := openai.DefaultConfig(cfg.APIKey)
	oc.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.HTTPClient != nil {
		oc.HTTPClient = cfg.HTTPClient
	}
	return &Client{api: openai.NewClientWithConfig(oc), model: cfg.Model}
}

// Model returns the model name requests are sent to.
func (c *Client) Model() string { return c.model }

// Complete sends prompt as one user message at temperature 0 and returns
// the first choice's content. Errors are *models.PipelineError.
func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: 0,
	})
	if err != nil {
		return "", classifyLLMError(ctx, err)
	}
	if len(resp.Choices) == 0 {
		return "", models.NewPipelineError(models.ErrCodeLLMFailure, "LLM returned no choices", nil)
	}
	return resp.Choices[0].Message.Content, nil
}

// classifyLLMError maps transport and API failures to error codes. Only an
// expired deadline is a timeout; cancellation keeps its own code.
func classifyLLMError(ctx context.Context, err error) *models.PipelineError {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return models.NewPipelineError(models.ErrCodeTimeout, "LLM call timed out", err)
	}
	if errors.Is(err, context.Canceled) || errors.Is(ctx.Err(), context.Canceled) {
		return models.NewPipelineError(models.ErrCodeCanceled, "LLM call canceled", err)
	}

	status, msg := 0, err.Error()
	var apiErr *openai.APIError
	var reqErr *openai.RequestError
	switch {
	case errors.As(err, &apiErr):
		status = apiErr.HTTPStatusCode
		if apiErr.Message != "" {
			msg = apiErr.Message
		}
	case errors.As(err, &reqErr):
		status = reqErr.HTTPStatusCode
	}

	switch status {
	case http.StatusUnauthorized, http.StatusForbidden:
		return models.NewPipelineError(models.ErrCodeLLMAuthFailure, msg, err)
	case http.StatusTooManyRequests:
		return models.NewPipelineError(models.ErrCodeLLMRateLimited, msg, err)
	case 0:
		return models.NewPipelineError(models.ErrCodeLLMFailure, "LLM request failed", err)
	default:
		return models.NewPipelineError(models.ErrCodeLLMFailure, fmt.Sprintf("LLM API returned %d: %s", status, msg), err)
	}
}
