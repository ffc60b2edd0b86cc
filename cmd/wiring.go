package cmd

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/spigell/hiring-pipeline/internal/ai"
	"github.com/spigell/hiring-pipeline/internal/ai/anthropic"
	"github.com/spigell/hiring-pipeline/internal/ai/gemini"
	"github.com/spigell/hiring-pipeline/internal/ai/openai"
	"github.com/spigell/hiring-pipeline/internal/calllog"
	"github.com/spigell/hiring-pipeline/internal/health"
	"github.com/spigell/hiring-pipeline/internal/logger"
	"github.com/spigell/hiring-pipeline/internal/operations"
	"github.com/spigell/hiring-pipeline/internal/pipeline"
	"github.com/spigell/hiring-pipeline/internal/secrets"
	"github.com/spigell/hiring-pipeline/internal/validation"
)

const (
	providerGemini    = "gemini"
	providerAnthropic = "anthropic"
	providerOpenAI    = "openai"
)

// providerSettings resolves the selected provider, its config block and the
// environment variables its key can come from.
func providerSettings(cfg *AIConfig) (string, *ProviderConfig, string, error) {
	provider := strings.TrimSpace(strings.ToLower(cfg.Provider))

	var pc *ProviderConfig
	var keyEnv string
	switch provider {
	case providerGemini:
		pc, keyEnv = cfg.Gemini, "GEMINI_API_KEY"
	case providerAnthropic:
		pc, keyEnv = cfg.Anthropic, "ANTHROPIC_API_KEY"
	case providerOpenAI:
		pc, keyEnv = cfg.OpenAI, "OPENAI_API_KEY"
	default:
		return "", nil, "", fmt.Errorf("unsupported ai provider: %s", cfg.Provider)
	}
	if pc == nil {
		pc = &ProviderConfig{}
	}

	return provider, pc, keyEnv, nil
}

func loadAPIKey(provider string, pc *ProviderConfig, keyEnv string) (string, error) {
	key, err := secrets.Load(secrets.Source{
		Name: provider + " api key",
		Env:  keyEnv,
		File: pc.APIKeyFile,
	})
	if err != nil {
		return "", fmt.Errorf("%w (set ai.%s.api-key-file, %s_FILE or %s)", err, provider, keyEnv, keyEnv)
	}
	return key, nil
}

// newClient builds the model client for the configured provider and returns
// the provider-level model defaults alongside it.
func newClient(ctx context.Context, cfg *AIConfig, log *zap.Logger) (ai.Client, ai.ModelConfig, error) {
	provider, pc, keyEnv, err := providerSettings(cfg)
	if err != nil {
		return nil, ai.ModelConfig{}, err
	}

	apiKey, err := loadAPIKey(provider, pc, keyEnv)
	if err != nil {
		return nil, ai.ModelConfig{}, err
	}

	var client ai.Client
	switch provider {
	case providerGemini:
		client, err = gemini.NewGenerator(ctx, apiKey, pc.Model)
	case providerAnthropic:
		client, err = anthropic.New(apiKey, pc.Model)
	case providerOpenAI:
		client, err = openai.New(apiKey, pc.Model, pc.BaseURL)
	}
	if err != nil {
		return nil, ai.ModelConfig{}, fmt.Errorf("creating %s client: %w", provider, err)
	}

	model := pc.Model
	if named, ok := client.(interface{ Model() string }); ok {
		model = named.Model()
	}
	logger.WithCommonFields(log, provider, model).Debug("model client is ready",
		zap.Duration("timeout", pc.EffectiveTimeout()),
	)

	return client, pc.ModelConfig, nil
}

// configChecks reports whether the selected provider can be used.
func configChecks(cfg *AIConfig) []health.Check {
	provider, pc, keyEnv, err := providerSettings(cfg)
	if err != nil {
		return []health.Check{health.NewCheck("ai provider", err)}
	}

	_, keyErr := loadAPIKey(provider, pc, keyEnv)

	// Adapters fall back to a default model, so only the key can be missing.
	return []health.Check{
		health.NewCheck("ai provider", nil),
		health.NewCheck(provider+" api key", keyErr),
	}
}

// newPipeline wires the call log, validator and per-operation overrides.
func newPipeline(client ai.Client, defaults ai.ModelConfig, config *Config, logger *zap.Logger, sinks ...calllog.Sink) (*pipeline.Pipeline, *calllog.Logger, error) {
	if err := checkRuleNames(config.Coercion.DisabledRules); err != nil {
		return nil, nil, err
	}

	calls := calllog.New(config.Log.Capacity, calllog.WithSinks(sinks...))

	opts := []pipeline.Option{
		pipeline.WithLogger(logger),
		pipeline.WithModelConfig(defaults),
		pipeline.WithValidator(validation.New(validation.RulesExcept(config.Coercion.DisabledRules...)...)),
		pipeline.WithMaxLogLength(config.Log.MaxLogLength),
		pipeline.WithMaxFieldRunes(config.Log.MaxFieldRunes),
	}

	for raw, override := range config.Operations {
		name, err := operations.Parse(raw)
		if err != nil {
			return nil, nil, fmt.Errorf("operations.%s: %w", raw, err)
		}
		opts = append(opts, pipeline.WithOperationConfig(name, override))
	}

	if len(config.Coercion.DisabledRules) > 0 {
		logger.Info("coercion rules disabled", zap.Strings("rules", config.Coercion.DisabledRules))
	}

	return pipeline.New(client, calls, opts...), calls, nil
}

func checkRuleNames(names []string) error {
	known := map[string]bool{}
	for _, r := range validation.DefaultRules() {
		known[r.Name()] = true
	}

	var errs []error
	for _, n := range names {
		if !known[strings.TrimSpace(n)] {
			errs = append(errs, fmt.Errorf("unknown coercion rule %q", n))
		}
	}
	return errors.Join(errs...)
}
