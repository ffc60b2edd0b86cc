package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/hiring-pipeline/internal/health"
	"github.com/spigell/hiring-pipeline/internal/logger"
	"github.com/spigell/hiring-pipeline/internal/metrics"
	"github.com/spigell/hiring-pipeline/internal/secrets"
	"github.com/spigell/hiring-pipeline/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the generation API over HTTP",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return serve(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringP("addr", "a", server.DefaultAddr, "address to listen on")

	viper.BindPFlag("server.addr", serveCmd.Flags().Lookup("addr"))
}

func serve(parent context.Context) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}
	defer logger.Sync()

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	logger.Info("starting the hiring-pipeline", zap.String("version", version))

	// do not bother error since there is a valid parseable config
	pretty, _ := json.MarshalIndent(config, "", "  ")
	logger.Debug(fmt.Sprintf("starting with config: \n %s", pretty))

	client, defaults, err := newClient(ctx, config.AI, logger)
	if err != nil {
		logger.Fatal("creating a model client", zap.Error(err))
	}

	recorder := metrics.New()
	p, calls, err := newPipeline(client, defaults, config, logger, recorder)
	if err != nil {
		logger.Fatal("creating the pipeline", zap.Error(err))
	}

	token, err := secrets.Optional(secrets.Source{
		Name: "auth token",
		Env:  "HIRING_PIPELINE_AUTH_TOKEN",
		File: config.Server.AuthTokenFile,
	})
	if err != nil {
		logger.Fatal("loading the auth token", zap.Error(err))
	}
	if token == "" {
		logger.Warn("api authentication is disabled",
			zap.String("hint", "set HIRING_PIPELINE_AUTH_TOKEN_FILE or the 'server.auth-token-file' key in the configuration file"),
		)
	}

	srv := server.New(server.Config{
		Addr:          config.Server.Addr,
		AuthToken:     token,
		RecentEntries: config.Server.RecentEntries,
		MaxBodyBytes:  config.Server.MaxBodyBytes,
	}, p, calls,
		server.WithLogger(logger),
		server.WithMetrics(recorder.Handler()),
		server.WithChecks(func() []health.Check { return configChecks(config.AI) }),
	)

	if err := srv.Run(ctx); err != nil {
		return err
	}

	logger.Info("exiting", zap.String("reason", "shutdown requested"))
	return nil
}
