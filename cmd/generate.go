package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/hiring-pipeline/internal/ai"
	"github.com/spigell/hiring-pipeline/internal/ai/aitest"
	"github.com/spigell/hiring-pipeline/internal/logger"
	"github.com/spigell/hiring-pipeline/internal/operations"
	"github.com/spigell/hiring-pipeline/internal/pipeerr"
	"github.com/spigell/hiring-pipeline/internal/schema"
)

const stdinMarker = "-"

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Run one operation and print the result as JSON",
	Example: `  hiring-pipeline generate -o generate-questions -i questions.json
  cat stages.json | hiring-pipeline generate -o generate-stages
  hiring-pipeline generate -o generate-questions -i questions.json --dry-run --response reply.txt`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return generate(cmd)
	},
}

func init() {
	rootCmd.AddCommand(generateCmd)

	generateCmd.Flags().StringP("operation", "o", "", "operation to run (asks interactively when unset)")
	generateCmd.Flags().StringP("input", "i", stdinMarker, "JSON input file, '-' reads stdin")
	generateCmd.Flags().Bool("dry-run", false, "do not call the provider, replay --response instead")
	generateCmd.Flags().String("response", "", "file with a raw model response used by --dry-run")
}

func generate(cmd *cobra.Command) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}
	defer logger.Sync()

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	name, err := selectOperation(cmd.Flag("operation").Value.String())
	if err != nil {
		return err
	}
	d, err := operations.Lookup(name)
	if err != nil {
		return err
	}

	input, err := readInput(cmd.Flag("input").Value.String(), cmd.InOrStdin())
	if err != nil {
		return err
	}
	if issues := schema.Validate(d.Input, input); len(issues) > 0 {
		for _, issue := range issues.Strings() {
			logger.Error("invalid input", zap.String("issue", issue))
		}
		return pipeerr.New(pipeerr.KindInputValidation, "input does not match schema", nil).
			WithOperation(string(name)).
			WithIssues(issues.Strings())
	}

	client, defaults, err := generateClient(ctx, cmd, config, logger)
	if err != nil {
		return err
	}

	p, _, err := newPipeline(client, defaults, config, logger)
	if err != nil {
		return err
	}

	res, err := p.Execute(ctx, d, input)
	if err != nil {
		kind, _ := pipeerr.KindOf(err)
		logger.Error("generation failed", zap.String("operation", string(name)), zap.Stringer("kind", kind), zap.String("error", pipeerr.Detail(err)))
		return err
	}

	out, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding result: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(out))

	return nil
}

// generateClient returns the scripted client in dry-run mode and the
// configured provider otherwise.
func generateClient(ctx context.Context, cmd *cobra.Command, config *Config, logger *zap.Logger) (ai.Client, ai.ModelConfig, error) {
	dryRun, _ := cmd.Flags().GetBool("dry-run")
	if !dryRun {
		return newClient(ctx, config.AI, logger)
	}

	file := cmd.Flag("response").Value.String()
	if file == "" {
		return nil, ai.ModelConfig{}, errors.New("--dry-run requires --response")
	}
	raw, err := os.ReadFile(file)
	if err != nil {
		return nil, ai.ModelConfig{}, fmt.Errorf("reading response file: %w", err)
	}

	logger.Info("dry run, the provider will not be called", zap.String("response", file))
	return aitest.New(aitest.Text(string(raw))), ai.ModelConfig{}, nil
}

func selectOperation(flag string) (operations.Name, error) {
	if strings.TrimSpace(flag) != "" {
		return operations.Parse(flag)
	}

	all := operations.All()
	items := make([]string, 0, len(all))
	for _, d := range all {
		items = append(items, fmt.Sprintf("%s / %s", d.Name, d.Description))
	}

	operationPrompt := promptui.Select{
		Label: "Choose an operation and press ENTER",
		Items: items,
		Size:  len(items),
	}

	i, _, err := operationPrompt.Run()
	if err != nil {
		return "", fmt.Errorf("selecting an operation: %w", err)
	}

	return all[i].Name, nil
}

func readInput(path string, stdin io.Reader) (map[string]any, error) {
	var (
		raw []byte
		err error
	)
	if path == "" || path == stdinMarker {
		raw, err = io.ReadAll(stdin)
	} else {
		raw, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("reading input: %w", err)
	}

	var input map[string]any
	if err := json.Unmarshal(raw, &input); err != nil {
		return nil, fmt.Errorf("input is not a JSON object: %w", err)
	}
	if input == nil {
		return nil, errors.New("input is not a JSON object")
	}
	return input, nil
}
