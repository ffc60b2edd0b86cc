// Package pipeline runs generation operations end to end: it renders the
// prompt, calls the model, validates the response and records exactly one
// call log entry for every call that completes.
package pipeline

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/spigell/hiring-pipeline/internal/ai"
	"github.com/spigell/hiring-pipeline/internal/calllog"
	"github.com/spigell/hiring-pipeline/internal/logger"
	"github.com/spigell/hiring-pipeline/internal/operations"
	"github.com/spigell/hiring-pipeline/internal/pipeerr"
	"github.com/spigell/hiring-pipeline/internal/prompt"
	"github.com/spigell/hiring-pipeline/internal/utils"
	"github.com/spigell/hiring-pipeline/internal/validation"
)

const defaultMaxLogLength = 200

// Metadata describes how a result was produced.
type Metadata struct {
	ModelUsed       string   `json:"modelUsed"`
	Provider        string   `json:"provider"`
	InputTokens     int      `json:"inputTokens"`
	OutputTokens    int      `json:"outputTokens"`
	LatencyMs       int64    `json:"latencyMs"`
	StopReason      string   `json:"stopReason,omitempty"`
	CoercionApplied bool     `json:"coercionApplied"`
	Repairs         []string `json:"repairs,omitempty"`
}

// Result is a schema-valid operation output with its metadata.
type Result[T any] struct {
	Data     T        `json:"data"`
	Metadata Metadata `json:"metadata"`
}

// Pipeline is safe for concurrent use. The call log is its only shared state.
type Pipeline struct {
	client    ai.Client
	calls     *calllog.Logger
	validator *validation.Validator
	logger    *zap.Logger

	model         ai.ModelConfig
	perOperation  map[operations.Name]ai.ModelConfig
	maxLogLength  int
	maxFieldRunes int
	now           func() time.Time
}

// Option configures a Pipeline.
type Option func(*Pipeline)

func WithValidator(v *validation.Validator) Option {
	return func(p *Pipeline) {
		if v != nil {
			p.validator = v
		}
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(p *Pipeline) {
		if l != nil {
			p.logger = l
		}
	}
}

// WithModelConfig sets the config used by every operation.
func WithModelConfig(cfg ai.ModelConfig) Option {
	return func(p *Pipeline) { p.model = cfg }
}

// WithOperationConfig overrides fields of the model config for one operation.
func WithOperationConfig(name operations.Name, cfg ai.ModelConfig) Option {
	return func(p *Pipeline) { p.perOperation[name] = cfg }
}

// WithMaxLogLength bounds prompt and response previews in debug logs.
func WithMaxLogLength(n int) Option {
	return func(p *Pipeline) {
		if n > 0 {
			p.maxLogLength = n
		}
	}
}

// WithMaxFieldRunes bounds every user-supplied string rendered into a prompt.
func WithMaxFieldRunes(n int) Option {
	return func(p *Pipeline) {
		if n > 0 {
			p.maxFieldRunes = n
		}
	}
}

// WithClock overrides the time source used to measure latency.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) {
		if now != nil {
			p.now = now
		}
	}
}

// New creates a Pipeline that sends prompts through client and records every
// completed call in calls.
func New(client ai.Client, calls *calllog.Logger, opts ...Option) *Pipeline {
	p := &Pipeline{
		client:        client,
		calls:         calls,
		validator:     validation.Default(),
		logger:        zap.NewNop(),
		perOperation:  make(map[operations.Name]ai.ModelConfig),
		maxLogLength:  defaultMaxLogLength,
		maxFieldRunes: prompt.DefaultMaxFieldRunes,
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// ModelConfig returns the effective model config for an operation.
func (p *Pipeline) ModelConfig(name operations.Name) ai.ModelConfig {
	cfg := p.model
	if override, ok := p.perOperation[name]; ok {
		cfg = cfg.Merge(override)
	}
	return cfg
}

// Provider returns the name of the configured model provider.
func (p *Pipeline) Provider() string { return p.client.Provider() }

// Execute runs the operation described by d on input, which the caller has
// already validated against d.Input. The returned data always satisfies
// d.Output. Failures are *pipeerr.Error values, except when the caller
// cancels ctx before the model answers: then ctx.Err() is returned and
// nothing is recorded. A ctx deadline is a ProviderTransportError.
func (p *Pipeline) Execute(ctx context.Context, d operations.Descriptor, input map[string]any) (*Result[map[string]any], error) {
	return p.execute(ctx, d, input, nil)
}

// execute is Execute with an optional decode step that runs on the validated
// data before the call is recorded, so a decode failure is logged as one.
func (p *Pipeline) execute(ctx context.Context, d operations.Descriptor, input map[string]any, decode func(map[string]any) error) (*Result[map[string]any], error) {
	cfg := p.ModelConfig(d.Name)
	entry := calllog.Entry{
		Endpoint: string(d.Name),
		Provider: p.client.Provider(),
		Model:    p.modelName(cfg),
	}
	log := logger.WithFields(p.logger, logger.OperationFields(string(d.Name), entry.Provider, entry.Model)...)

	text, err := d.Template.Render(input, p.maxFieldRunes)
	if err != nil {
		perr := classified(err, d.Name)
		p.record(entry, perr)
		log.Error("prompt rendering failed", zap.String("error", perr.Detail()), zap.Strings("issues", perr.Issues))
		return nil, perr
	}

	log.Debug("model request",
		zap.Int("prompt_length", utf8.RuneCountInString(text)),
		zap.String("prompt_preview", utils.TruncateForLog(text, p.maxLogLength)),
	)

	started := p.now()
	completion, err := p.client.Call(ctx, text, cfg)
	elapsed := p.now().Sub(started)
	if err != nil {
		if errors.Is(ctx.Err(), context.Canceled) {
			log.Debug("model call abandoned by caller", zap.Error(ctx.Err()))
			return nil, ctx.Err()
		}
		if _, ok := pipeerr.As(err); !ok && ctx.Err() != nil {
			err = ai.ClassifyTransport(entry.Provider, ctx.Err())
		}

		perr := classified(err, d.Name)
		entry.LatencyMs = elapsed.Milliseconds()
		p.record(entry, perr)
		log.Warn("model call failed",
			zap.Stringer("kind", perr.Kind),
			zap.Bool("retryable", perr.Retryable()),
			zap.Duration("retry_after", perr.RetryAfter),
			zap.String("error", perr.Detail()),
		)
		return nil, perr
	}

	if completion.Latency > 0 {
		elapsed = completion.Latency
	}
	if completion.Model != "" {
		entry.Model = completion.Model
	}
	entry.LatencyMs = elapsed.Milliseconds()
	entry.InputTokens = completion.InputTokens
	entry.OutputTokens = completion.OutputTokens
	entry.StopReason = completion.StopReason

	log.Debug("model response",
		zap.Int("response_length", utf8.RuneCountInString(completion.Text)),
		zap.String("response_preview", utils.TruncateForLog(completion.Text, p.maxLogLength)),
		zap.String("stop_reason", completion.StopReason),
	)

	outcome, err := p.validator.Validate(completion.Text, d.Output)
	if err != nil {
		perr := classified(err, d.Name)
		p.record(entry, perr)
		log.Warn("response failed validation",
			zap.Strings("issues", perr.Issues),
			zap.String("response_preview", utils.TruncateForLog(completion.Text, p.maxLogLength)),
			zap.String("error", perr.Detail()),
		)
		return nil, perr
	}

	if decode != nil {
		if err := decode(outcome.Data); err != nil {
			perr := pipeerr.New(pipeerr.KindOutputValidation, "validated output could not be decoded", err).WithOperation(string(d.Name))
			entry.CoercionApplied = outcome.CoercionApplied
			p.record(entry, perr)
			log.Warn("validated output could not be decoded", zap.String("error", perr.Detail()))
			return nil, perr
		}
	}

	entry.ValidationPassed = true
	entry.CoercionApplied = outcome.CoercionApplied
	p.record(entry, nil)

	log.Info("generation completed",
		zap.Int64("latency_ms", entry.LatencyMs),
		zap.Int("input_tokens", entry.InputTokens),
		zap.Int("output_tokens", entry.OutputTokens),
		zap.Bool("coercion_applied", outcome.CoercionApplied),
		zap.Strings("repairs", outcome.Repairs),
	)

	return &Result[map[string]any]{
		Data: outcome.Data,
		Metadata: Metadata{
			ModelUsed:       entry.Model,
			Provider:        entry.Provider,
			InputTokens:     entry.InputTokens,
			OutputTokens:    entry.OutputTokens,
			LatencyMs:       entry.LatencyMs,
			StopReason:      entry.StopReason,
			CoercionApplied: outcome.CoercionApplied,
			Repairs:         outcome.Repairs,
		},
	}, nil
}

func (p *Pipeline) record(entry calllog.Entry, perr *pipeerr.Error) {
	if perr != nil {
		entry.ValidationPassed = false
		entry.ErrorKind = perr.Kind.String()
		entry.Error = calllog.ErrorMessage(perr)
	}
	p.calls.Record(entry)
}

func (p *Pipeline) modelName(cfg ai.ModelConfig) string {
	if m := strings.TrimSpace(cfg.Model); m != "" {
		return m
	}
	if named, ok := p.client.(interface{ Model() string }); ok {
		return named.Model()
	}
	return ""
}

// classified makes sure every failure leaving the pipeline carries a kind.
func classified(err error, name operations.Name) *pipeerr.Error {
	perr, ok := pipeerr.As(err)
	if !ok {
		return pipeerr.New(pipeerr.KindProviderTransport, "model call failed", err).WithOperation(string(name))
	}
	// Copy so errors shared between calls are never mutated.
	out := *perr
	if out.Operation == "" {
		out.Operation = string(name)
	}
	return &out
}
