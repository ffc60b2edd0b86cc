// Package ai defines the provider-neutral model client used by the pipeline.
// Provider adapters live in subpackages and translate their SDK failures into
// pipeerr kinds with the helpers in this package.
package ai

import (
	"context"
	"errors"
	"strings"
	"time"
)

// DefaultTimeout bounds a single model call when the config sets none.
const DefaultTimeout = 60 * time.Second

// ErrEmptyPrompt is returned before any network call is made.
var ErrEmptyPrompt = errors.New("prompt must not be empty")

// Client sends one prompt to a model provider. Implementations enforce the
// configured timeout, never retry and never log.
type Client interface {
	Provider() string
	Call(ctx context.Context, prompt string, cfg ModelConfig) (*Completion, error)
}

// ModelConfig controls a single call. Zero values mean provider defaults.
type ModelConfig struct {
	Model           string        `mapstructure:"model"`
	MaxOutputTokens int           `mapstructure:"max-output-tokens"`
	Temperature     *float64      `mapstructure:"temperature"`
	Timeout         time.Duration `mapstructure:"timeout"`
}

// Merge returns c with every non-zero field of override applied on top.
func (c ModelConfig) Merge(override ModelConfig) ModelConfig {
	if m := strings.TrimSpace(override.Model); m != "" {
		c.Model = m
	}
	if override.MaxOutputTokens > 0 {
		c.MaxOutputTokens = override.MaxOutputTokens
	}
	if override.Temperature != nil {
		t := *override.Temperature
		c.Temperature = &t
	}
	if override.Timeout > 0 {
		c.Timeout = override.Timeout
	}
	return c
}

// EffectiveTimeout returns the configured timeout or DefaultTimeout.
func (c ModelConfig) EffectiveTimeout() time.Duration {
	if c.Timeout > 0 {
		return c.Timeout
	}
	return DefaultTimeout
}

// Completion is the raw result of a model call.
type Completion struct {
	Text         string
	Model        string
	InputTokens  int
	OutputTokens int
	StopReason   string
	Latency      time.Duration
}

// Float returns a pointer to v, for ModelConfig.Temperature.
func Float(v float64) *float64 { return &v }
