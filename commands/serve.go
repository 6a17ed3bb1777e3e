package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/spf13/cobra"

	"github.com/agromitra/agromitra/agronomy"
	"github.com/agromitra/agromitra/api"
	"github.com/agromitra/agromitra/auth"
	"github.com/agromitra/agromitra/blob"
	"github.com/agromitra/agromitra/chat"
	"github.com/agromitra/agromitra/config"
	"github.com/agromitra/agromitra/hub"
	"github.com/agromitra/agromitra/llm"
	"github.com/agromitra/agromitra/pesticide"
	"github.com/agromitra/agromitra/storage"
	"github.com/agromitra/agromitra/weather"
)

const shutdownTimeout = 15 * time.Second

func newServeCmd(logLevel *string) *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the backend server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(configPath, *logLevel)
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Config file path (YAML)")
	return cmd
}

func runServe(configPath, logLevel string) error {
	logger := newLogger(logLevel)

	cfg, err := loadConfig(configPath, logger)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	nc, err := nats.Connect(cfg.NATS.URL,
		nats.Name(appName),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second))
	if err != nil {
		return fmt.Errorf("connect to NATS at %s: %w", cfg.NATS.URL, err)
	}
	defer nc.Drain()

	js, err := jetstream.New(nc)
	if err != nil {
		return fmt.Errorf("create JetStream context: %w", err)
	}

	store, err := storage.NewStore(ctx, js)
	if err != nil {
		return fmt.Errorf("initialize storage: %w", err)
	}
	blobs, err := blob.NewStore(ctx, js, cfg.Server.BaseURL)
	if err != nil {
		return fmt.Errorf("initialize blob storage: %w", err)
	}

	client := llm.NewClientFromConfig(cfg.LLM, llm.WithLogger(logger))

	var weatherOpts []weather.Option
	if cfg.Redis.Addr != "" {
		weatherOpts = append(weatherOpts, weather.WithCache(
			weather.NewRedisCache(cfg.Redis.Addr, cfg.Redis.TTL), cfg.Redis.TTL))
	}
	forecasts := weather.NewClient(cfg.Weather, weatherOpts...)

	issuer, err := auth.NewTokenIssuer(os.Getenv(config.EnvJWTSecret), cfg.Auth.TokenTTL)
	if err != nil {
		return fmt.Errorf("configure token issuer: %w", err)
	}
	authSvc := auth.NewService(store, auth.NewDevOTPSender(logger), issuer, logger)

	connections := hub.New(logger)

	server := api.NewServer(api.Deps{
		Config:  cfg,
		Store:   store,
		Blobs:   blobs,
		Weather: forecasts,
		Auth:    authSvc,
		Hub:     connections,
		Recommender: agronomy.NewRecommender(store, store, store, forecasts, client, store, store,
			agronomy.WithRecommenderLogger(logger)),
		Selector: agronomy.NewSelector(store, store, forecasts, client, store, store,
			agronomy.WithSelectorLogger(logger)),
		Pesticides: pesticide.NewRecommender(store, store, blobs, client, store, store,
			pesticide.WithLogger(logger)),
		Agent:  chat.NewAgent(store, store, blobs, client, store, store, chat.WithAgentLogger(logger)),
		Logger: logger,
	})

	e := server.Router()
	errCh := make(chan error, 1)
	go func() {
		logger.Info("Server listening", slog.String("addr", cfg.Server.Addr))
		if err := e.Start(cfg.Server.Addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server: %w", err)
	case <-ctx.Done():
	}

	logger.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// loadConfig reads an explicit config file when given, otherwise applies
// the layered default/user/project/env precedence.
func loadConfig(configPath string, logger *slog.Logger) (*config.Config, error) {
	if configPath == "" {
		return config.NewLoader(logger).Load()
	}
	cfg, err := config.LoadFromFile(configPath)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
