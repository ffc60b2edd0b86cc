package ai

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/spigell/hiring-pipeline/internal/pipeerr"
)

func TestClassifyStatus(t *testing.T) {
	cause := errors.New("wire detail")

	tests := []struct {
		status    int
		kind      pipeerr.Kind
		retryable bool
	}{
		{status: http.StatusUnauthorized, kind: pipeerr.KindProviderAuth},
		{status: http.StatusForbidden, kind: pipeerr.KindProviderAuth},
		{status: http.StatusTooManyRequests, kind: pipeerr.KindProviderRateLimit, retryable: true},
		{status: http.StatusRequestTimeout, kind: pipeerr.KindProviderTransport, retryable: true},
		{status: http.StatusInternalServerError, kind: pipeerr.KindProviderTransport, retryable: true},
		{status: http.StatusServiceUnavailable, kind: pipeerr.KindProviderTransport, retryable: true},
		{status: http.StatusBadRequest, kind: pipeerr.KindProviderTransport},
		{status: http.StatusNotFound, kind: pipeerr.KindProviderTransport},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.status), func(t *testing.T) {
			err := ClassifyStatus("gemini", tt.status, 0, cause)
			if err.Kind != tt.kind {
				t.Fatalf("expected %s, got %s", tt.kind, err.Kind)
			}
			if err.Retryable() != tt.retryable {
				t.Fatalf("expected retryable=%v", tt.retryable)
			}
			if err.StatusCode != tt.status {
				t.Fatalf("expected status %d, got %d", tt.status, err.StatusCode)
			}
			if !errors.Is(err, cause) {
				t.Fatalf("expected cause to be wrapped")
			}
		})
	}
}

func TestClassifyStatusKeepsRetryAfter(t *testing.T) {
	err := ClassifyStatus("openai", http.StatusTooManyRequests, 3*time.Second, nil)
	if err.RetryAfter != 3*time.Second {
		t.Fatalf("unexpected retry after: %v", err.RetryAfter)
	}
}

type timeoutError struct{}

func (timeoutError) Error() string   { return "dial tcp: i/o timeout" }
func (timeoutError) Timeout() bool   { return true }
func (timeoutError) Temporary() bool { return true }

var _ net.Error = timeoutError{}

func TestClassifyTransport(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		message string
	}{
		{name: "deadline", err: fmt.Errorf("generate: %w", context.DeadlineExceeded), message: "anthropic request timed out"},
		{name: "cancel", err: context.Canceled, message: "anthropic request was cancelled"},
		{name: "empty", err: ErrEmptyResponse, message: "anthropic returned an empty response"},
		{name: "network", err: &net.OpError{Op: "dial", Err: timeoutError{}}, message: "anthropic is unreachable"},
		{name: "other", err: errors.New("boom"), message: "anthropic request failed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ClassifyTransport("anthropic", tt.err)
			if err.Kind != pipeerr.KindProviderTransport {
				t.Fatalf("expected transport error, got %s", err.Kind)
			}
			if !err.Retryable() {
				t.Fatalf("expected transport error to be retryable")
			}
			if err.Message != tt.message {
				t.Fatalf("unexpected message: %q", err.Message)
			}
		})
	}
}

func TestRetryAfter(t *testing.T) {
	header := http.Header{}
	header.Set("Retry-After", "12")

	tests := []struct {
		name    string
		header  http.Header
		message string
		want    time.Duration
	}{
		{name: "header seconds", header: header, want: 12 * time.Second},
		{name: "retry after seconds", message: "quota exhausted, retry after 60 seconds", want: time.Minute},
		{name: "retry in fractional", message: "Please retry in 37.5s.", want: 37500 * time.Millisecond},
		{name: "retry delay detail", message: `{"retryDelay": "20s"}`, want: 20 * time.Second},
		{name: "milliseconds", message: "retry after 250ms", want: 250 * time.Millisecond},
		{name: "none", message: "internal error", want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := RetryAfter(tt.header, tt.message); got != tt.want {
				t.Fatalf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestModelConfigMerge(t *testing.T) {
	base := ModelConfig{Model: "base", MaxOutputTokens: 1024, Temperature: Float(0.2)}
	merged := base.Merge(ModelConfig{Model: "override", Timeout: 5 * time.Second})

	if merged.Model != "override" || merged.MaxOutputTokens != 1024 || *merged.Temperature != 0.2 {
		t.Fatalf("unexpected merge result: %+v", merged)
	}
	if merged.EffectiveTimeout() != 5*time.Second {
		t.Fatalf("unexpected timeout: %v", merged.EffectiveTimeout())
	}
	if (ModelConfig{}).EffectiveTimeout() != DefaultTimeout {
		t.Fatalf("expected default timeout")
	}
}
