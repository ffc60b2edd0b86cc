package cmd

import (
	"errors"
	"log"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/spigell/hiring-pipeline/internal/ai"
)

const (
	app = "hiring-pipeline"
)

type Config struct {
	Server     *ServerConfig             `mapstructure:"server"`
	Log        *LogConfig                `mapstructure:"log"`
	AI         *AIConfig                 `mapstructure:"ai"`
	Operations map[string]ai.ModelConfig `mapstructure:"operations"`
	Coercion   *CoercionConfig           `mapstructure:"coercion"`
}

type ServerConfig struct {
	Addr          string `mapstructure:"addr"`
	AuthTokenFile string `mapstructure:"auth-token-file"`
	RecentEntries int    `mapstructure:"recent-entries"`
	MaxBodyBytes  int64  `mapstructure:"max-body-bytes"`
}

type LogConfig struct {
	// Capacity is the number of call log entries kept in memory.
	Capacity      int `mapstructure:"capacity"`
	MaxLogLength  int `mapstructure:"max-log-length"`
	MaxFieldRunes int `mapstructure:"max-field-runes"`
}

type AIConfig struct {
	Provider  string          `mapstructure:"provider"`
	Gemini    *ProviderConfig `mapstructure:"gemini"`
	Anthropic *ProviderConfig `mapstructure:"anthropic"`
	OpenAI    *ProviderConfig `mapstructure:"openai"`
}

// ProviderConfig holds the credentials and model defaults of one provider.
type ProviderConfig struct {
	APIKeyFile     string `mapstructure:"api-key-file"`
	BaseURL        string `mapstructure:"base-url"`
	ai.ModelConfig `mapstructure:",squash"`
}

type CoercionConfig struct {
	DisabledRules []string `mapstructure:"disabled-rules"`
}

var (
	// Used for flags.
	cfgFile string

	rootCmd = &cobra.Command{
		Use:   app,
		Short: "hiring-pipeline generates structured hiring documents with a language model",
		Long: `hiring-pipeline renders prompts for hiring tasks (job descriptions, interview
stages, questions, coverage analysis, feedback synthesis), sends them to the
configured model provider and returns schema-valid JSON.`,
		SilenceUsage: true,
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	envs := map[string]string{
		"ai.gemini.api-key-file":    "GEMINI_API_KEY_FILE",
		"ai.anthropic.api-key-file": "ANTHROPIC_API_KEY_FILE",
		"ai.openai.api-key-file":    "OPENAI_API_KEY_FILE",
		"server.auth-token-file":    "HIRING_PIPELINE_AUTH_TOKEN_FILE",
	}
	for key, env := range envs {
		if err := viper.BindEnv(key, env); err != nil {
			log.Fatalf("binding %s environment variable: %v", env, err)
		}
	}

	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default is hiring-pipeline.yaml in current directory)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")

	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName(app)
		viper.SetConfigType("yaml")
	}

	// Every setting has a default, so a missing config file in the current
	// directory is fine. An explicit --config must exist and parse.
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			log.Fatal(err)
		}
	}
}

func getConfig() (*Config, error) {
	var config *Config
	err := viper.Unmarshal(&config)
	if err != nil {
		return config, err
	}
	if config == nil {
		config = &Config{}
	}
	config.setDefaults()

	return config, nil
}

func (c *Config) setDefaults() {
	if c.Server == nil {
		c.Server = &ServerConfig{}
	}
	if c.Log == nil {
		c.Log = &LogConfig{}
	}
	if c.AI == nil {
		c.AI = &AIConfig{}
	}
	if c.AI.Provider == "" {
		c.AI.Provider = providerGemini
	}
	if c.Coercion == nil {
		c.Coercion = &CoercionConfig{}
	}
}
