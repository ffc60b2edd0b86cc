// Package pipeerr classifies every failure of the generation pipeline into a
// fixed set of kinds so callers can branch on the kind instead of parsing
// message strings.
package pipeerr

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Kind identifies the class of a pipeline failure.
type Kind int

const (
	// KindInputValidation means caller-supplied input failed its schema.
	KindInputValidation Kind = iota + 1
	// KindTemplateRender means the descriptor and the input disagree. It is a programming error.
	KindTemplateRender
	// KindProviderTransport covers network failures, timeouts and provider 5xx responses.
	KindProviderTransport
	// KindProviderAuth means the provider rejected the configured credentials.
	KindProviderAuth
	// KindProviderRateLimit means the provider throttled the request.
	KindProviderRateLimit
	// KindOutputValidation means the model response failed its schema even after coercion.
	KindOutputValidation
)

var kindNames = map[Kind]string{
	KindInputValidation:   "InputValidationError",
	KindTemplateRender:    "TemplateRenderError",
	KindProviderTransport: "ProviderTransportError",
	KindProviderAuth:      "ProviderAuthError",
	KindProviderRateLimit: "ProviderRateLimitError",
	KindOutputValidation:  "OutputValidationError",
}

// Kinds returns every kind in declaration order.
func Kinds() []Kind {
	return []Kind{
		KindInputValidation,
		KindTemplateRender,
		KindProviderTransport,
		KindProviderAuth,
		KindProviderRateLimit,
		KindOutputValidation,
	}
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// MarshalText renders the kind by name in JSON and structured logs.
func (k Kind) MarshalText() ([]byte, error) {
	if _, ok := kindNames[k]; !ok {
		return nil, fmt.Errorf("unknown error kind %d", int(k))
	}
	return []byte(k.String()), nil
}

// UnmarshalText parses a kind name produced by MarshalText.
func (k *Kind) UnmarshalText(text []byte) error {
	name := strings.TrimSpace(string(text))
	for kind, n := range kindNames {
		if n == name {
			*k = kind
			return nil
		}
	}
	return fmt.Errorf("unknown error kind %q", name)
}

// Error is the single classified error value surfaced by the pipeline.
type Error struct {
	Kind      Kind
	Operation string
	// Message is safe to show to operators; it never carries provider wire details.
	Message string
	// Issues holds schema issues as "path: message" strings.
	Issues []string
	// StatusCode is the provider HTTP status when one was observed.
	StatusCode int
	// RetryAfter is the provider-suggested delay for rate limited calls.
	RetryAfter time.Duration
	// Err is the underlying cause, kept for logs.
	Err error

	notRetryable bool
}

// Error renders the kind, operation, message and issues. The cause is left
// out since it may carry provider wire text; use Detail for logs.
func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Kind.String())
	if e.Operation != "" {
		b.WriteString(" (")
		b.WriteString(e.Operation)
		b.WriteString(")")
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if len(e.Issues) > 0 {
		b.WriteString(": ")
		b.WriteString(strings.Join(e.Issues, "; "))
	}
	return b.String()
}

// Detail is Error followed by the underlying cause, for operator logs.
func (e *Error) Detail() string {
	if e.Err == nil {
		return e.Error()
	}
	return e.Error() + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches another *Error of the same kind, so errors.Is(err, &Error{Kind: k}) works.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind && t.Operation == "" && t.Message == "" && t.Err == nil
}

// Retryable reports whether a caller may retry the same request.
func (e *Error) Retryable() bool {
	if e == nil || e.notRetryable {
		return false
	}
	switch e.Kind {
	case KindProviderTransport, KindProviderRateLimit, KindOutputValidation:
		return true
	default:
		return false
	}
}

// New builds a classified error.
func New(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// Newf builds a classified error with a formatted message.
func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// WithOperation returns e tagged with the operation name.
func (e *Error) WithOperation(op string) *Error {
	e.Operation = op
	return e
}

// WithIssues attaches schema issues.
func (e *Error) WithIssues(issues []string) *Error {
	e.Issues = append(e.Issues[:0:0], issues...)
	return e
}

// WithStatus records the provider status code.
func (e *Error) WithStatus(code int) *Error {
	e.StatusCode = code
	return e
}

// WithRetryAfter records a provider-suggested delay.
func (e *Error) WithRetryAfter(d time.Duration) *Error {
	e.RetryAfter = d
	return e
}

// Permanent marks the error as not retryable regardless of its kind.
func (e *Error) Permanent() *Error {
	e.notRetryable = true
	return e
}

// As extracts the classified error from err's chain.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// KindOf returns the kind of err when it carries a classified error.
func KindOf(err error) (Kind, bool) {
	e, ok := As(err)
	if !ok {
		return 0, false
	}
	return e.Kind, true
}

// IsKind reports whether err is classified as kind.
func IsKind(err error, kind Kind) bool {
	k, ok := KindOf(err)
	return ok && k == kind
}

// Detail renders err with its full cause chain when it is classified.
func Detail(err error) string {
	if e, ok := As(err); ok {
		return e.Detail()
	}
	return err.Error()
}

// IsRetryable reports whether err is a classified, retryable failure.
func IsRetryable(err error) bool {
	e, ok := As(err)
	return ok && e.Retryable()
}
