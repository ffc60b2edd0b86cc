package ai

import (
	"context"
	"errors"
	"net"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/spigell/hiring-pipeline/internal/pipeerr"
)

// ErrEmptyResponse is the cause of transport errors for responses without text.
var ErrEmptyResponse = errors.New("provider returned empty response")

var retryHint = regexp.MustCompile(`(?i)retry(?:\s+(?:in|after))?\s*(?:delay)?["':\s]*([0-9]+(?:\.[0-9]+)?)\s*(s|sec|secs|seconds|ms)\b`)

// ClassifyStatus translates a provider HTTP failure into a classified error.
// The message stays provider neutral; cause keeps the wire detail for logs.
func ClassifyStatus(provider string, status int, retryAfter time.Duration, cause error) *pipeerr.Error {
	var e *pipeerr.Error
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		e = pipeerr.New(pipeerr.KindProviderAuth, provider+" rejected the configured credentials", cause)
	case status == http.StatusTooManyRequests:
		e = pipeerr.New(pipeerr.KindProviderRateLimit, provider+" rate limit exceeded", cause).WithRetryAfter(retryAfter)
	case status == http.StatusRequestTimeout || status >= http.StatusInternalServerError:
		e = pipeerr.New(pipeerr.KindProviderTransport, provider+" is unavailable", cause)
	case status >= http.StatusBadRequest:
		e = pipeerr.New(pipeerr.KindProviderTransport, provider+" rejected the request", cause).Permanent()
	default:
		e = pipeerr.New(pipeerr.KindProviderTransport, provider+" request failed", cause)
	}
	return e.WithStatus(status)
}

// ClassifyTransport translates a failure that carried no HTTP status.
func ClassifyTransport(provider string, err error) *pipeerr.Error {
	var netErr net.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return pipeerr.New(pipeerr.KindProviderTransport, provider+" request timed out", err)
	case errors.Is(err, context.Canceled):
		return pipeerr.New(pipeerr.KindProviderTransport, provider+" request was cancelled", err)
	case errors.Is(err, ErrEmptyResponse):
		return pipeerr.New(pipeerr.KindProviderTransport, provider+" returned an empty response", err)
	case errors.As(err, &netErr):
		return pipeerr.New(pipeerr.KindProviderTransport, provider+" is unreachable", err)
	default:
		return pipeerr.New(pipeerr.KindProviderTransport, provider+" request failed", err)
	}
}

// RetryAfter reads a provider-suggested delay from the Retry-After header or,
// failing that, from hints such as "retry in 37.5s" in the error message.
func RetryAfter(h http.Header, message string) time.Duration {
	if h != nil {
		if v := strings.TrimSpace(h.Get("Retry-After")); v != "" {
			if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
				return time.Duration(secs) * time.Second
			}
			if at, err := http.ParseTime(v); err == nil {
				if d := time.Until(at); d > 0 {
					return d
				}
			}
		}
	}

	m := retryHint.FindStringSubmatch(message)
	if m == nil {
		return 0
	}
	n, err := strconv.ParseFloat(m[1], 64)
	if err != nil || n <= 0 {
		return 0
	}
	if strings.EqualFold(m[2], "ms") {
		return time.Duration(n * float64(time.Millisecond))
	}
	return time.Duration(n * float64(time.Second))
}
