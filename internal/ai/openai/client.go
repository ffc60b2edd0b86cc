// Package openai implements ai.Client on the OpenAI chat completions API.
package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	sdk "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/spigell/hiring-pipeline/internal/ai"
)

const (
	providerName = "openai"
	defaultModel = "gpt-4o-mini"
)

type completionCreator interface {
	New(ctx context.Context, body sdk.ChatCompletionNewParams, opts ...option.RequestOption) (*sdk.ChatCompletion, error)
}

// Client sends prompts as a single user message.
type Client struct {
	completions completionCreator
	modelName   string
}

var _ ai.Client = (*Client)(nil)

// New creates a Client authenticated with apiKey. baseURL may point at any
// OpenAI-compatible endpoint; empty means the public API.
func New(apiKey, model, baseURL string) (*Client, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("openai api key is required")
	}

	opts := []option.RequestOption{option.WithAPIKey(apiKey), option.WithMaxRetries(0)}
	if baseURL = strings.TrimSpace(baseURL); baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}

	client := sdk.NewClient(opts...)
	return newClient(&client.Chat.Completions, model), nil
}

func newClient(completions completionCreator, model string) *Client {
	if model = strings.TrimSpace(model); model == "" {
		model = defaultModel
	}
	return &Client{completions: completions, modelName: model}
}

func (c *Client) Provider() string { return providerName }

func (c *Client) Model() string { return c.modelName }

func (c *Client) Call(ctx context.Context, prompt string, cfg ai.ModelConfig) (*ai.Completion, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return nil, ai.ErrEmptyPrompt
	}

	model := c.modelName
	if m := strings.TrimSpace(cfg.Model); m != "" {
		model = m
	}

	params := sdk.ChatCompletionNewParams{
		Model:    sdk.ChatModel(model),
		Messages: []sdk.ChatCompletionMessageParamUnion{sdk.UserMessage(prompt)},
	}
	if cfg.MaxOutputTokens > 0 {
		params.MaxCompletionTokens = sdk.Int(int64(cfg.MaxOutputTokens))
	}
	if cfg.Temperature != nil {
		params.Temperature = sdk.Float(*cfg.Temperature)
	}

	callCtx, cancel := context.WithTimeout(ctx, cfg.EffectiveTimeout())
	defer cancel()

	started := time.Now()
	resp, err := c.completions.New(callCtx, params)
	latency := time.Since(started)
	if err != nil {
		return nil, classify(callCtx, fmt.Errorf("create chat completion: %w", err))
	}

	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		return nil, ai.ClassifyTransport(providerName, ai.ErrEmptyResponse)
	}

	choice := resp.Choices[0]
	completion := &ai.Completion{
		Text:         strings.TrimSpace(choice.Message.Content),
		Model:        model,
		InputTokens:  int(resp.Usage.PromptTokens),
		OutputTokens: int(resp.Usage.CompletionTokens),
		StopReason:   choice.FinishReason,
		Latency:      latency,
	}
	if resp.Model != "" {
		completion.Model = resp.Model
	}
	return completion, nil
}

func classify(callCtx context.Context, err error) error {
	var apiErr *sdk.Error
	if errors.As(err, &apiErr) {
		var header http.Header
		if apiErr.Response != nil {
			header = apiErr.Response.Header
		}
		return ai.ClassifyStatus(providerName, apiErr.StatusCode, ai.RetryAfter(header, apiErr.Message), err)
	}

	if ctxErr := callCtx.Err(); ctxErr != nil && !errors.Is(err, ctxErr) {
		err = fmt.Errorf("%w: %w", ctxErr, err)
	}
	return ai.ClassifyTransport(providerName, err)
}
