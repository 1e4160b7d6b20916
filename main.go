package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/caarlos0/env/v9"

	"github.com/dskvich/local-chat-relay/pkg/api"
	"github.com/dskvich/local-chat-relay/pkg/api/handler"
	"github.com/dskvich/local-chat-relay/pkg/domain"
	"github.com/dskvich/local-chat-relay/pkg/logger"
	"github.com/dskvich/local-chat-relay/pkg/openai"
	"github.com/dskvich/local-chat-relay/pkg/repository"
	"github.com/dskvich/local-chat-relay/pkg/services"
	"github.com/dskvich/local-chat-relay/pkg/workers"
)

type Config struct {
	ListenAddr             string             `env:"LISTEN_ADDR" envDefault:"0.0.0.0:5000"`
	LLMBaseURL             string             `env:"LLM_BASE_URL" envDefault:"http://localhost:1234/v1"`
	LLMAPIKey              string             `env:"LLM_API_KEY" envDefault:"lm-studio"`
	LLMModel               string             `env:"LLM_MODEL" envDefault:"local-model"`
	TokenThreshold         int                `env:"TOKEN_THRESHOLD" envDefault:"3000"`
	DefaultPersona         string             `env:"DEFAULT_PERSONA" envDefault:"You are a helpful AI assistant."`
	ChatTemperature        float32            `env:"CHAT_TEMPERATURE" envDefault:"0.7"`
	SummaryTemperature     float32            `env:"SUMMARY_TEMPERATURE" envDefault:"0.3"`
	HistoryMode            domain.HistoryMode `env:"HISTORY_MODE" envDefault:"stateless"`
	SessionTTL             time.Duration      `env:"SESSION_TTL" envDefault:"24h"`
	SessionCleanupInterval time.Duration      `env:"SESSION_CLEANUP_INTERVAL" envDefault:"10m"`
	SummaryTimeout         time.Duration      `env:"SUMMARY_TIMEOUT" envDefault:"60s"`
	StreamTimeout          time.Duration      `env:"STREAM_TIMEOUT" envDefault:"5m"`
	HealthTimeout          time.Duration      `env:"HEALTH_TIMEOUT" envDefault:"3s"`
	LogLevel               slog.Level         `env:"LOG_LEVEL" envDefault:"DEBUG"`
	LogNoColor             bool               `env:"LOG_NO_COLOR" envDefault:"false"`
}

func main() {
	slog.SetDefault(slog.New(logger.NewHandler(os.Stderr, logger.DefaultOptions)))

	if err := runMain(); err != nil {
		slog.Error("shutting down due to error", logger.Err(err))
		os.Exit(1)
	}
	slog.Info("shutdown complete")
}

func runMain() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	slog.SetDefault(slog.New(logger.NewHandler(os.Stderr, logger.DefaultOptions.WithLevel(cfg.LogLevel, cfg.LogNoColor))))

	workerGroup, err := setupWorkers(cfg)
	if err != nil {
		return err
	}

	ctx, cancelFn := context.WithCancel(context.Background())
	defer cancelFn()

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
		select {
		case s := <-sigCh:
			slog.Info("shutting down due to signal", "signal", s.String())
			cancelFn()
		case <-ctx.Done():
		}
	}()

	return workerGroup.Start(ctx)
}

func loadConfig() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parsing env config: %w", err)
	}
	if cfg.TokenThreshold <= 0 {
		return nil, fmt.Errorf("TOKEN_THRESHOLD must be positive, got %d", cfg.TokenThreshold)
	}
	return cfg, nil
}

func setupWorkers(cfg *Config) (workers.Group, error) {
	var workerGroup workers.Group

	openAIClient, err := openai.NewClient(cfg.LLMBaseURL, cfg.LLMAPIKey, cfg.LLMModel)
	if err != nil {
		return nil, fmt.Errorf("creating open ai client: %w", err)
	}

	chatRepository := repository.NewChatRepository(cfg.SessionTTL)

	summarizer := services.NewSummarizer(openAIClient, cfg.SummaryTemperature, cfg.SummaryTimeout)
	compressor := services.NewHistoryCompressor(summarizer, cfg.TokenThreshold)

	chatService := services.NewChatService(
		openAIClient,
		compressor,
		chatRepository,
		cfg.HistoryMode,
		cfg.DefaultPersona,
		cfg.ChatTemperature,
		cfg.StreamTimeout,
	)
	healthService := services.NewHealthService(openAIClient, cfg.HealthTimeout)

	var reset api.ResetHandler
	if cfg.HistoryMode == domain.HistoryModeSession {
		reset = handler.NewReset(chatService)
	}

	router := api.NewRouter(
		handler.NewChat(chatService),
		reset,
		handler.NewHealth(healthService),
	)

	httpServer, err := workers.NewHTTPServer(cfg.ListenAddr, router)
	if err != nil {
		return nil, fmt.Errorf("creating http server: %w", err)
	}
	workerGroup = append(workerGroup, httpServer)

	if cfg.HistoryMode == domain.HistoryModeSession {
		janitor, err := workers.NewSessionJanitor(chatRepository, cfg.SessionCleanupInterval)
		if err != nil {
			return nil, fmt.Errorf("creating session janitor: %w", err)
		}
		workerGroup = append(workerGroup, janitor)
	}

	slog.Info("Relay configured",
		"addr", cfg.ListenAddr,
		"upstream", cfg.LLMBaseURL,
		"model", cfg.LLMModel,
		"history_mode", cfg.HistoryMode,
		"token_threshold", cfg.TokenThreshold,
	)

	return workerGroup, nil
}
