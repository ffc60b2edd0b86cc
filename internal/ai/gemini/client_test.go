package gemini

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"google.golang.org/genai"

	"github.com/spigell/hiring-pipeline/internal/ai"
	"github.com/spigell/hiring-pipeline/internal/pipeerr"
)

type generateCall struct {
	model    string
	contents []*genai.Content
	config   *genai.GenerateContentConfig
}

type fakeModels struct {
	mu    sync.Mutex
	calls []generateCall
	resp  *genai.GenerateContentResponse
	err   error
	block bool
}

func (f *fakeModels) GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	f.mu.Lock()
	f.calls = append(f.calls, generateCall{model: model, contents: contents, config: config})
	f.mu.Unlock()

	if f.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return f.resp, f.err
}

func textResponse(parts ...string) *genai.GenerateContentResponse {
	content := &genai.Content{}
	for _, p := range parts {
		content.Parts = append(content.Parts, &genai.Part{Text: p})
	}
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{Content: content, FinishReason: genai.FinishReasonStop}},
		UsageMetadata: &genai.GenerateContentResponseUsageMetadata{
			PromptTokenCount:     120,
			CandidatesTokenCount: 45,
		},
		ModelVersion: "gemini-2.5-pro-001",
	}
}

func TestCallReturnsCompletion(t *testing.T) {
	models := &fakeModels{resp: textResponse(`{"questions":`, `["Q1"]}`)}
	g := newGenerator(models, "")

	out, err := g.Call(context.Background(), "  prompt  ", ai.ModelConfig{MaxOutputTokens: 512, Temperature: ai.Float(0.3)})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if out.Text != "{\"questions\":\n[\"Q1\"]}" {
		t.Fatalf("unexpected text: %q", out.Text)
	}
	if out.Model != "gemini-2.5-pro-001" || out.InputTokens != 120 || out.OutputTokens != 45 {
		t.Fatalf("unexpected metadata: %+v", out)
	}
	if out.StopReason != string(genai.FinishReasonStop) {
		t.Fatalf("unexpected stop reason: %q", out.StopReason)
	}

	if len(models.calls) != 1 {
		t.Fatalf("expected 1 call, got %d", len(models.calls))
	}
	call := models.calls[0]
	if call.model != defaultModel {
		t.Fatalf("expected default model, got %q", call.model)
	}
	if call.contents[0].Parts[0].Text != "prompt" {
		t.Fatalf("expected trimmed prompt, got %q", call.contents[0].Parts[0].Text)
	}
	if call.config.MaxOutputTokens != 512 || call.config.Temperature == nil || *call.config.Temperature != float32(0.3) {
		t.Fatalf("unexpected generate config: %+v", call.config)
	}
}

func TestCallUsesConfiguredModel(t *testing.T) {
	models := &fakeModels{resp: textResponse("{}")}
	g := newGenerator(models, "gemini-2.5-flash")

	if _, err := g.Call(context.Background(), "p", ai.ModelConfig{Model: "gemini-2.0-flash"}); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if models.calls[0].model != "gemini-2.0-flash" {
		t.Fatalf("expected per-call model, got %q", models.calls[0].model)
	}
	if g.Model() != "gemini-2.5-flash" {
		t.Fatalf("unexpected default model %q", g.Model())
	}
}

func TestCallRejectsEmptyPrompt(t *testing.T) {
	models := &fakeModels{}
	g := newGenerator(models, "")

	if _, err := g.Call(context.Background(), "   ", ai.ModelConfig{}); !errors.Is(err, ai.ErrEmptyPrompt) {
		t.Fatalf("expected ErrEmptyPrompt, got %v", err)
	}
	if len(models.calls) != 0 {
		t.Fatalf("expected no provider call")
	}
}

func TestCallClassifiesAPIErrors(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		kind       pipeerr.Kind
		retryAfter time.Duration
	}{
		{
			name: "server error",
			err:  genai.APIError{Code: http.StatusInternalServerError, Status: "INTERNAL"},
			kind: pipeerr.KindProviderTransport,
		},
		{
			name: "quota",
			err: genai.APIError{
				Code:    http.StatusTooManyRequests,
				Status:  "RESOURCE_EXHAUSTED",
				Message: "quota exhausted, retry after 60 seconds",
			},
			kind:       pipeerr.KindProviderRateLimit,
			retryAfter: time.Minute,
		},
		{
			name: "bad key",
			err:  genai.APIError{Code: http.StatusForbidden, Status: "PERMISSION_DENIED"},
			kind: pipeerr.KindProviderAuth,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := newGenerator(&fakeModels{err: tt.err}, "")

			_, err := g.Call(context.Background(), "p", ai.ModelConfig{})
			perr, ok := pipeerr.As(err)
			if !ok {
				t.Fatalf("expected classified error, got %v", err)
			}
			if perr.Kind != tt.kind {
				t.Fatalf("expected %s, got %s", tt.kind, perr.Kind)
			}
			if perr.RetryAfter != tt.retryAfter {
				t.Fatalf("expected retry after %v, got %v", tt.retryAfter, perr.RetryAfter)
			}
		})
	}
}

func TestCallTimesOut(t *testing.T) {
	g := newGenerator(&fakeModels{block: true}, "")

	_, err := g.Call(context.Background(), "p", ai.ModelConfig{Timeout: 10 * time.Millisecond})
	perr, ok := pipeerr.As(err)
	if !ok || perr.Kind != pipeerr.KindProviderTransport {
		t.Fatalf("expected transport error, got %v", err)
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded cause, got %v", err)
	}
}

func TestCallEmptyResponse(t *testing.T) {
	resp := textResponse("   ")
	g := newGenerator(&fakeModels{resp: resp}, "")

	_, err := g.Call(context.Background(), "p", ai.ModelConfig{})
	if !pipeerr.IsKind(err, pipeerr.KindProviderTransport) || !errors.Is(err, ai.ErrEmptyResponse) {
		t.Fatalf("expected empty response transport error, got %v", err)
	}
}

func TestCollectTextSkipsThoughts(t *testing.T) {
	resp := &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{
		Content: &genai.Content{Parts: []*genai.Part{
			{Text: "thinking...", Thought: true},
			{Text: `{"ok":true}`},
		}},
	}}}

	if got := collectText(resp); got != `{"ok":true}` {
		t.Fatalf("unexpected text: %q", got)
	}
}

func TestNewGeneratorRequiresKey(t *testing.T) {
	if _, err := NewGenerator(context.Background(), " ", ""); err == nil {
		t.Fatal("expected error for missing api key")
	}
}
