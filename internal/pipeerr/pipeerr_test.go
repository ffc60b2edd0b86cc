package pipeerr

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"
)

func TestKindStringAndText(t *testing.T) {
	t.Parallel()

	for _, kind := range Kinds() {
		text, err := kind.MarshalText()
		if err != nil {
			t.Fatalf("marshal %d: %v", kind, err)
		}

		var parsed Kind
		if err := parsed.UnmarshalText(text); err != nil {
			t.Fatalf("unmarshal %q: %v", text, err)
		}
		if parsed != kind {
			t.Fatalf("expected %s, got %s", kind, parsed)
		}
	}

	if got := Kind(42).String(); got != "Kind(42)" {
		t.Fatalf("unexpected unknown kind string: %q", got)
	}
	if _, err := Kind(42).MarshalText(); err == nil {
		t.Fatal("expected error for unknown kind")
	}
}

func TestErrorMessage(t *testing.T) {
	t.Parallel()

	err := New(KindOutputValidation, "response does not match schema", nil).
		WithOperation("generate-questions").
		WithIssues([]string{"questions: required field is missing"})

	want := "OutputValidationError (generate-questions): response does not match schema: questions: required field is missing"
	if err.Error() != want {
		t.Fatalf("unexpected message:\n got %q\nwant %q", err.Error(), want)
	}
}

func TestErrorKeepsCauseOutOfMessage(t *testing.T) {
	t.Parallel()

	cause := errors.New(`generate content: Error 429, {"error": {"message": "quota exceeded for project-123"}}`)
	err := New(KindProviderRateLimit, "gemini rate limit exceeded", cause).WithOperation("generate-questions")

	want := "ProviderRateLimitError (generate-questions): gemini rate limit exceeded"
	if err.Error() != want {
		t.Fatalf("unexpected message:\n got %q\nwant %q", err.Error(), want)
	}
	if got := err.Detail(); got != want+": "+cause.Error() {
		t.Fatalf("unexpected detail: %q", got)
	}
	if got := Detail(fmt.Errorf("serving: %w", err)); got != err.Detail() {
		t.Fatalf("expected wrapped detail, got %q", got)
	}
	if got := Detail(cause); got != cause.Error() {
		t.Fatalf("expected plain error text, got %q", got)
	}
	if !errors.Is(err, cause) {
		t.Fatal("expected the cause to stay reachable through Unwrap")
	}
}

func TestRetryable(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		err    *Error
		expect bool
	}{
		{name: "transport", err: New(KindProviderTransport, "timeout", nil), expect: true},
		{name: "rate limit", err: New(KindProviderRateLimit, "throttled", nil).WithRetryAfter(time.Second), expect: true},
		{name: "output validation", err: New(KindOutputValidation, "bad shape", nil), expect: true},
		{name: "auth", err: New(KindProviderAuth, "bad key", nil), expect: false},
		{name: "template", err: New(KindTemplateRender, "missing role", nil), expect: false},
		{name: "input", err: New(KindInputValidation, "bad input", nil), expect: false},
		{name: "permanent transport", err: New(KindProviderTransport, "bad request", nil).Permanent(), expect: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := tt.err.Retryable(); got != tt.expect {
				t.Fatalf("expected retryable=%v, got %v", tt.expect, got)
			}
		})
	}
}

func TestClassificationThroughWrapping(t *testing.T) {
	t.Parallel()

	cause := errors.New("connection reset")
	wrapped := fmt.Errorf("calling provider: %w", New(KindProviderTransport, "network failure", cause))

	kind, ok := KindOf(wrapped)
	if !ok || kind != KindProviderTransport {
		t.Fatalf("expected transport kind, got %v (ok=%v)", kind, ok)
	}
	if !IsRetryable(wrapped) {
		t.Fatal("expected wrapped transport error to be retryable")
	}
	if !errors.Is(wrapped, cause) {
		t.Fatal("expected cause to be reachable")
	}
	if !errors.Is(wrapped, &Error{Kind: KindProviderTransport}) {
		t.Fatal("expected errors.Is to match by kind")
	}
	if errors.Is(wrapped, &Error{Kind: KindProviderAuth}) {
		t.Fatal("did not expect auth kind to match")
	}
	if IsKind(errors.New("plain"), KindProviderTransport) {
		t.Fatal("plain errors carry no kind")
	}
}

func TestKindJSON(t *testing.T) {
	t.Parallel()

	payload, err := json.Marshal(map[string]Kind{"kind": KindProviderAuth})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(payload) != `{"kind":"ProviderAuthError"}` {
		t.Fatalf("unexpected json: %s", payload)
	}
}
