package anthropic

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spigell/hiring-pipeline/internal/ai"
	"github.com/spigell/hiring-pipeline/internal/pipeerr"
)

type fakeMessages struct {
	params []sdk.MessageNewParams
	resp   *sdk.Message
	err    error
}

func (f *fakeMessages) New(_ context.Context, body sdk.MessageNewParams, _ ...option.RequestOption) (*sdk.Message, error) {
	f.params = append(f.params, body)
	return f.resp, f.err
}

func message(t *testing.T, raw string) *sdk.Message {
	t.Helper()
	var msg sdk.Message
	require.NoError(t, json.Unmarshal([]byte(raw), &msg))
	return &msg
}

func TestCallReturnsCompletion(t *testing.T) {
	fake := &fakeMessages{resp: message(t, `{
		"id": "msg_1",
		"type": "message",
		"role": "assistant",
		"model": "claude-sonnet-4-20250514",
		"content": [{"type": "text", "text": "{\"questions\":[\"Q1\"]}"}],
		"stop_reason": "end_turn",
		"usage": {"input_tokens": 80, "output_tokens": 20}
	}`)}
	c := newClient(fake, "")

	out, err := c.Call(context.Background(), "prompt", ai.ModelConfig{MaxOutputTokens: 1000, Temperature: ai.Float(0.1)})
	require.NoError(t, err)

	assert.Equal(t, `{"questions":["Q1"]}`, out.Text)
	assert.Equal(t, "claude-sonnet-4-20250514", out.Model)
	assert.Equal(t, 80, out.InputTokens)
	assert.Equal(t, 20, out.OutputTokens)
	assert.Equal(t, "end_turn", out.StopReason)

	require.Len(t, fake.params, 1)
	assert.Equal(t, int64(1000), fake.params[0].MaxTokens)
	assert.Equal(t, sdk.Model(defaultModel), fake.params[0].Model)
	require.Len(t, fake.params[0].Messages, 1)
}

func TestCallDefaultsMaxTokens(t *testing.T) {
	fake := &fakeMessages{resp: message(t, `{"content":[{"type":"text","text":"{}"}],"usage":{}}`)}
	c := newClient(fake, "claude-haiku")

	out, err := c.Call(context.Background(), "prompt", ai.ModelConfig{})
	require.NoError(t, err)
	assert.Equal(t, "claude-haiku", out.Model)
	assert.Equal(t, int64(defaultMaxTokens), fake.params[0].MaxTokens)
}

func TestCallEmptyContent(t *testing.T) {
	fake := &fakeMessages{resp: message(t, `{"content":[],"usage":{}}`)}

	_, err := newClient(fake, "").Call(context.Background(), "prompt", ai.ModelConfig{})
	assert.True(t, pipeerr.IsKind(err, pipeerr.KindProviderTransport))
	assert.ErrorIs(t, err, ai.ErrEmptyResponse)
}

func TestCallClassifiesAPIError(t *testing.T) {
	header := http.Header{}
	header.Set("Retry-After", "7")

	apiErr := &sdk.Error{
		StatusCode: http.StatusTooManyRequests,
		Request:    httptest.NewRequest(http.MethodPost, "https://api.anthropic.com/v1/messages", nil),
		Response:   &http.Response{StatusCode: http.StatusTooManyRequests, Header: header},
	}

	_, err := newClient(&fakeMessages{err: apiErr}, "").Call(context.Background(), "prompt", ai.ModelConfig{})

	perr, ok := pipeerr.As(err)
	require.True(t, ok)
	assert.Equal(t, pipeerr.KindProviderRateLimit, perr.Kind)
	assert.Equal(t, 7*time.Second, perr.RetryAfter)
	assert.Equal(t, http.StatusTooManyRequests, perr.StatusCode)
	assert.NotContains(t, perr.Message, "api.anthropic.com")
}

func TestNewRequiresKey(t *testing.T) {
	_, err := New("", "")
	assert.Error(t, err)
}
