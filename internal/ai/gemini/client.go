package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"google.golang.org/genai"

	"github.com/spigell/hiring-pipeline/internal/ai"
)

const (
	providerName = "gemini"
	defaultModel = "gemini-2.5-pro"
)

type contentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Generator wraps the Google GenAI client and implements ai.Client.
type Generator struct {
	models    contentGenerator
	modelName string
}

var _ ai.Client = (*Generator)(nil)

// NewGenerator creates a new Generator configured for the Gemini API backend.
func NewGenerator(ctx context.Context, apiKey, model string) (*Generator, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("gemini api key is required")
	}

	cfg := &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}

	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	return newGenerator(client.Models, model), nil
}

func newGenerator(models contentGenerator, model string) *Generator {
	if model = strings.TrimSpace(model); model == "" {
		model = defaultModel
	}
	return &Generator{models: models, modelName: model}
}

func (g *Generator) Provider() string { return providerName }

// Call sends the prompt to Gemini and returns the concatenated text of all candidates.
func (g *Generator) Call(ctx context.Context, prompt string, cfg ai.ModelConfig) (*ai.Completion, error) {
	if g == nil || g.models == nil {
		return nil, errors.New("gemini generator is not initialized")
	}

	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return nil, ai.ErrEmptyPrompt
	}

	model := g.modelName
	if m := strings.TrimSpace(cfg.Model); m != "" {
		model = m
	}

	callCtx, cancel := context.WithTimeout(ctx, cfg.EffectiveTimeout())
	defer cancel()

	started := time.Now()
	resp, err := g.models.GenerateContent(callCtx, model, genai.Text(prompt), generateConfig(cfg))
	latency := time.Since(started)
	if err != nil {
		return nil, classify(callCtx, fmt.Errorf("generate content: %w", err))
	}

	completion := &ai.Completion{
		Text:    collectText(resp),
		Model:   model,
		Latency: latency,
	}
	if resp.ModelVersion != "" {
		completion.Model = resp.ModelVersion
	}
	if usage := resp.UsageMetadata; usage != nil {
		completion.InputTokens = int(usage.PromptTokenCount)
		completion.OutputTokens = int(usage.CandidatesTokenCount)
	}
	for _, candidate := range resp.Candidates {
		if candidate != nil && candidate.FinishReason != "" {
			completion.StopReason = string(candidate.FinishReason)
			break
		}
	}

	if completion.Text == "" {
		return nil, ai.ClassifyTransport(providerName, ai.ErrEmptyResponse)
	}

	return completion, nil
}

// Model returns the default model used when the call config names none.
func (g *Generator) Model() string {
	if g == nil {
		return ""
	}
	return g.modelName
}

func generateConfig(cfg ai.ModelConfig) *genai.GenerateContentConfig {
	out := &genai.GenerateContentConfig{ResponseMIMEType: "application/json"}
	if cfg.MaxOutputTokens > 0 {
		out.MaxOutputTokens = int32(cfg.MaxOutputTokens)
	}
	if cfg.Temperature != nil {
		out.Temperature = genai.Ptr(float32(*cfg.Temperature))
	}
	return out
}

func collectText(resp *genai.GenerateContentResponse) string {
	if resp == nil {
		return ""
	}

	var builder strings.Builder
	for _, candidate := range resp.Candidates {
		if candidate == nil || candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if part == nil || part.Thought {
				continue
			}
			text := strings.TrimSpace(part.Text)
			if text == "" {
				continue
			}
			if builder.Len() > 0 {
				builder.WriteString("\n")
			}
			builder.WriteString(text)
		}
	}

	return strings.TrimSpace(builder.String())
}

func classify(callCtx context.Context, err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return ai.ClassifyStatus(providerName, apiErr.Code, ai.RetryAfter(nil, apiErr.Message), err)
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil {
		return ai.ClassifyStatus(providerName, apiErrPtr.Code, ai.RetryAfter(nil, apiErrPtr.Message), err)
	}

	if ctxErr := callCtx.Err(); ctxErr != nil && !errors.Is(err, ctxErr) {
		err = fmt.Errorf("%w: %w", ctxErr, err)
	}
	return ai.ClassifyTransport(providerName, err)
}
