package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/podforge/podforge/internal/api"
	"github.com/podforge/podforge/internal/asr"
	"github.com/podforge/podforge/internal/cache"
	"github.com/podforge/podforge/internal/characters"
	"github.com/podforge/podforge/internal/codec"
	"github.com/podforge/podforge/internal/config"
	"github.com/podforge/podforge/internal/export"
	"github.com/podforge/podforge/internal/limiter"
	"github.com/podforge/podforge/internal/storage"
	"github.com/podforge/podforge/internal/tts"
)

func runServer(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger := setupLogger(cfg.Logging)

	logger.Info().
		Str("listen", cfg.Server.Listen).
		Str("cloud", cfg.Cloud.BaseURL).
		Str("clone", cfg.Clone.URL).
		Str("log_level", cfg.Logging.Level).
		Msg("Starting podforge server")

	cacheStore, err := cache.NewStore(cfg.Cache.Dir)
	if err != nil {
		return fmt.Errorf("failed to open cache: %w", err)
	}

	cloudClient := tts.NewCloudClient(&cfg.Cloud)
	cloneClient := tts.NewCloneClient(&cfg.Clone)
	asrClient := asr.NewClient(&cfg.Cloud)
	storageClient := storage.NewClient(&cfg.Storage)
	provider := characters.NewProvider(&cfg.Provider)
	transcoder := codec.NewFFmpeg()

	probeCollaborators(cloneClient, cloudClient, logger)

	pipeline := export.NewPipeline(export.PipelineConfig{
		Cloud:         cloudClient,
		Clone:         cloneClient,
		Transcribe:    asrClient,
		Fetch:         storageClient,
		Uploads:       storageClient,
		Cache:         cacheStore,
		Transcoder:    transcoder,
		Logger:        logger,
		HostVoice:     cfg.Cloud.HostVoice,
		FallbackVoice: cfg.Cloud.FallbackVoice,
		SynthWorkers:  cfg.Export.SynthWorkers,
		BitrateKbps:   cfg.Export.BitrateKbps,
	})

	metrics := limiter.NewMetrics()
	gate := limiter.New(limiter.Config{
		MaxConcurrent: cfg.Export.MaxConcurrentJobs,
		Metrics:       metrics,
	})

	handler := api.NewHandler(api.HandlerConfig{
		Exporter:    pipeline,
		Characters:  provider,
		Voices:      cloudClient,
		Cache:       cacheStore,
		Gate:        gate,
		Metrics:     metrics,
		Logger:      logger,
		CacheMaxAge: cfg.Cache.MaxAge,
	})

	router := api.NewRouter(handler, cfg.Auth.APIKey, logger)

	srv := &http.Server{
		Addr:         cfg.Server.Listen,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", cfg.Server.Listen).Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErr:
		return fmt.Errorf("server error: %w", err)
	case sig := <-quit:
		logger.Info().Str("signal", sig.String()).Msg("Shutting down server...")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown error: %w", err)
	}

	logger.Info().Msg("Server stopped")
	return nil
}

// probeCollaborators checks the synthesis backends at startup. Failures are
// logged but never fatal: exports degrade through the fallback chain.
func probeCollaborators(clone *tts.CloneClient, cloud *tts.CloudClient, logger zerolog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := clone.Health(ctx); err != nil {
		logger.Warn().Err(err).Msg("Clone backend health check failed - exports will fall back to cloud voices")
	} else {
		logger.Info().Msg("Clone backend connection verified")
	}

	if _, err := cloud.Voices(ctx); err != nil {
		logger.Warn().Err(err).Msg("Cloud gateway probe failed - exports may degrade to placeholder tones")
	} else {
		logger.Info().Msg("Cloud gateway connection verified")
	}
}

// loadConfig layers defaults, environment overrides, config file, and flags.
// Flag and file values land in viper via bindFlags; env overrides come from
// config.Load.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	setString := func(key string, dst *string) {
		if viper.IsSet(key) {
			if v := viper.GetString(key); v != "" {
				*dst = v
			}
		}
	}
	setDuration := func(key string, dst *time.Duration) {
		if viper.IsSet(key) {
			if v := viper.GetDuration(key); v != 0 {
				*dst = v
			}
		}
	}
	setInt := func(key string, dst *int) {
		if viper.IsSet(key) {
			if v := viper.GetInt(key); v != 0 {
				*dst = v
			}
		}
	}

	setString("server.listen", &cfg.Server.Listen)
	setDuration("server.read_timeout", &cfg.Server.ReadTimeout)
	setDuration("server.write_timeout", &cfg.Server.WriteTimeout)

	setString("cloud.base_url", &cfg.Cloud.BaseURL)
	setString("cloud.backup_url", &cfg.Cloud.BackupURL)
	setString("cloud.api_key", &cfg.Cloud.APIKey)
	setString("clone.url", &cfg.Clone.URL)
	setString("storage.base_url", &cfg.Storage.BaseURL)
	setString("provider.url", &cfg.Provider.URL)

	setString("cache.dir", &cfg.Cache.Dir)
	setInt("export.synth_workers", &cfg.Export.SynthWorkers)
	setInt("export.max_concurrent_jobs", &cfg.Export.MaxConcurrentJobs)
	setInt("export.bitrate_kbps", &cfg.Export.BitrateKbps)

	setString("auth.api_key", &cfg.Auth.APIKey)
	setString("logging.level", &cfg.Logging.Level)
	setString("logging.format", &cfg.Logging.Format)

	return cfg, nil
}

func setupLogger(cfg config.LoggingConfig) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if cfg.Format == "text" {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}

	return zerolog.New(os.Stdout).With().Timestamp().Logger()
}
