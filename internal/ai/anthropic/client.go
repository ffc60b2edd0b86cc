// Package anthropic implements ai.Client on the Anthropic Messages API.
package anthropic

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/spigell/hiring-pipeline/internal/ai"
)

const (
	providerName     = "anthropic"
	defaultModel     = "claude-sonnet-4-20250514"
	defaultMaxTokens = 4096
)

type messageCreator interface {
	New(ctx context.Context, body sdk.MessageNewParams, opts ...option.RequestOption) (*sdk.Message, error)
}

// Client sends prompts as a single user message.
type Client struct {
	messages  messageCreator
	modelName string
}

var _ ai.Client = (*Client)(nil)

// New creates a Client authenticated with apiKey.
func New(apiKey, model string) (*Client, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("anthropic api key is required")
	}

	client := sdk.NewClient(option.WithAPIKey(apiKey), option.WithMaxRetries(0))
	return newClient(&client.Messages, model), nil
}

func newClient(messages messageCreator, model string) *Client {
	if model = strings.TrimSpace(model); model == "" {
		model = defaultModel
	}
	return &Client{messages: messages, modelName: model}
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

	params := sdk.MessageNewParams{
		Model:     sdk.Model(model),
		MaxTokens: defaultMaxTokens,
		Messages:  []sdk.MessageParam{sdk.NewUserMessage(sdk.NewTextBlock(prompt))},
	}
	if cfg.MaxOutputTokens > 0 {
		params.MaxTokens = int64(cfg.MaxOutputTokens)
	}
	if cfg.Temperature != nil {
		params.Temperature = sdk.Float(*cfg.Temperature)
	}

	callCtx, cancel := context.WithTimeout(ctx, cfg.EffectiveTimeout())
	defer cancel()

	started := time.Now()
	resp, err := c.messages.New(callCtx, params)
	latency := time.Since(started)
	if err != nil {
		return nil, classify(callCtx, fmt.Errorf("create message: %w", err))
	}

	var builder strings.Builder
	for _, block := range resp.Content {
		if block.Type != "text" {
			continue
		}
		text := strings.TrimSpace(block.AsText().Text)
		if text == "" {
			continue
		}
		if builder.Len() > 0 {
			builder.WriteString("\n")
		}
		builder.WriteString(text)
	}

	if builder.Len() == 0 {
		return nil, ai.ClassifyTransport(providerName, ai.ErrEmptyResponse)
	}

	completion := &ai.Completion{
		Text:         builder.String(),
		Model:        model,
		InputTokens:  int(resp.Usage.InputTokens),
		OutputTokens: int(resp.Usage.OutputTokens),
		StopReason:   string(resp.StopReason),
		Latency:      latency,
	}
	if resp.Model != "" {
		completion.Model = string(resp.Model)
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
		return ai.ClassifyStatus(providerName, apiErr.StatusCode, ai.RetryAfter(header, ""), err)
	}

	if ctxErr := callCtx.Err(); ctxErr != nil && !errors.Is(err, ctxErr) {
		err = fmt.Errorf("%w: %w", ctxErr, err)
	}
	return ai.ClassifyTransport(providerName, err)
}
