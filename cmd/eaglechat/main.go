package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"EagleChat/internal/backend"
	"EagleChat/internal/cache"
	"EagleChat/internal/chatbot"
	"EagleChat/internal/config"
	"EagleChat/internal/session"
	"EagleChat/internal/speech"
	"EagleChat/internal/storage"
	"EagleChat/internal/telemetry"
	"EagleChat/internal/ui"
)

// startupTimeout bounds the sign-in check and the initial storage read.
const startupTimeout = 5 * time.Second

func main() {
	var (
		configPath = flag.String("config", config.DefaultPath(), "Path to the TOML config file")
		envFile    = flag.String("env", ".env", "Path to a .env file with API keys")
		provider   = flag.String("backend", "", "LLM backend (openai|anthropic|grok|ollama)")
		model      = flag.String("model", "", "Model name, empty for the backend default")
		driver     = flag.String("storage", "", "Session storage (file|sqlite|redis|memory)")
		ephemeral  = flag.Bool("ephemeral", false, "Keep sessions in memory only")
		debug      = flag.Bool("debug", false, "Enable debug logging")
		muted      = flag.Bool("muted", false, "Start with speech muted")
	)
	flag.Parse()

	cfg, err := config.Load(*configPath, *envFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// flags override file and environment
	if *provider != "" {
		cfg.Backend.Provider = *provider
		cfg.Backend.APIKey = ""
	}
	if *model != "" {
		cfg.Backend.Model = *model
	}
	if *driver != "" {
		cfg.Storage.Driver = *driver
	}
	if *ephemeral {
		cfg.Storage.Driver = config.StorageMemory
	}
	if *debug {
		cfg.Log.Level = "debug"
	}
	if *muted {
		cfg.Speech.Muted = true
	}
	cfg.ResolveAPIKey()

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid config: %v\n", err)
		os.Exit(1)
	}

	if err := run(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(cfg config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger, logFile, err := telemetry.InitLogger(cfg.Log.Dir, telemetry.ParseLevel(cfg.Log.Level))
	if err != nil {
		return err
	}
	defer logFile.Close()

	providers := telemetry.Noop()
	if cfg.Telemetry.Enabled {
		providers, err = telemetry.InitTelemetry(ctx, cfg.Log.Dir)
		if err != nil {
			logger.Warn("telemetry disabled", "error", err)
			providers = telemetry.Noop()
		}
	}
	defer providers.Shutdown()

	logger.Info("starting eaglechat",
		"backend", cfg.Backend.Provider,
		"storage", cfg.Storage.Driver,
		"telemetry", cfg.Telemetry.Enabled,
	)

	startCtx, cancel := context.WithTimeout(ctx, startupTimeout)
	defer cancel()

	kv, err := storage.Open(startCtx, cfg.Storage, logger)
	if err != nil {
		return fmt.Errorf("failed to open storage: %w", err)
	}
	defer kv.Close()

	var service backend.Service
	service, err = backend.New(cfg.Backend, &http.Client{Timeout: 2 * time.Minute}, logger)
	if err != nil {
		return fmt.Errorf("failed to create backend: %w", err)
	}
	if cfg.Cache.Enabled {
		service = cache.Wrap(service, logger)
	}

	bot := chatbot.NewChatBot(
		session.NewStore(kv, cfg.Storage.Key, logger),
		service,
		newSpeech(cfg.Speech, logger),
		chatbot.Options{
			SystemPrompt: cfg.Assistant.SystemPrompt,
			Logger:       logger,
			Telemetry:    providers,
		},
	)
	defer bot.Close()

	bot.Initialize(startCtx)
	cancel()

	return ui.Run(ctx, bot, cfg.Assistant.Name)
}

func newSpeech(cfg config.SpeechConfig, logger *slog.Logger) *speech.Output {
	if !cfg.Enabled {
		return speech.NewOutput(speech.Silent{}, cfg.Rate, true, logger)
	}

	synth, err := speech.Detect(cfg.Command, logger)
	if err != nil {
		logger.Info("speech output unavailable", "error", err)
		return speech.NewOutput(speech.Silent{}, cfg.Rate, cfg.Muted, logger)
	}
	logger.Debug("speech output enabled", "command", synth.Path())
	return speech.NewOutput(synth, cfg.Rate, cfg.Muted, logger)
}
