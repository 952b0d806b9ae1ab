package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"
	"github.com/spf13/cobra"
	"github.com/vietddude/stylelog"

	"github.com/vietddude/lexophile/internal/core/config"
	"github.com/vietddude/lexophile/internal/gathering"
	"github.com/vietddude/lexophile/internal/gathering/health"
	"github.com/vietddude/lexophile/internal/infra/llm"
	"github.com/vietddude/lexophile/internal/infra/logging"
	"github.com/vietddude/lexophile/internal/infra/storage/jsonfile"
)

var (
	cfgPath     string
	isDebug     bool
	wordList    string
	outputPath  string
	metricsAddr string
)

var rootCmd = &cobra.Command{
	Use:   "lexophile",
	Short: "Build a vocabulary dataset from a word list",
	Long: `Lexophile fetches dictionary data for every word in a word list from an
AI completion API and keeps a resumable JSON store of the results.`,
	Run: runProcessor,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "lexophile.yaml", "config file")
	rootCmd.PersistentFlags().BoolVar(&isDebug, "debug", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&outputPath, "output", "", "word store path (overrides processing.output)")
	rootCmd.Flags().StringVar(&wordList, "word-list", "", "word list path (overrides processing.word_list)")
	rootCmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "serve prometheus metrics on this address")
}

// loadConfig reads .env and the config file, applies flag overrides and
// builds the run logger. Failures are reported through the fallback logger.
func loadConfig() (*config.AppConfig, *slog.Logger, io.Closer) {
	_ = godotenv.Load()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		stylelog.InitDefault()
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}

	if wordList != "" {
		cfg.Processing.WordList = wordList
	}
	if outputPath != "" {
		cfg.Processing.Output = outputPath
	}
	if metricsAddr != "" {
		cfg.Metrics.Addr = metricsAddr
	}

	level, err := logging.ParseLevel(cfg.Logging.Level)
	if err != nil {
		stylelog.InitDefault()
		slog.Error("Invalid logging level", "error", err)
		os.Exit(1)
	}
	if isDebug {
		level = slog.LevelDebug
	}

	logger, closer, err := logging.New(logging.Options{Level: level, File: cfg.Logging.File})
	if err != nil {
		stylelog.InitDefault(&tint.Options{Level: level, TimeFormat: time.RFC3339})
		slog.Error("Failed to open log file", "error", err)
		os.Exit(1)
	}
	logger = logger.With("run_id", uuid.NewString())
	slog.SetDefault(logger)

	return cfg, logger, closer
}

func runProcessor(cmd *cobra.Command, args []string) {
	if err := processWords(); err != nil {
		os.Exit(1)
	}
}

// processWords owns every resource of a run so deferred teardown happens
// before the process exits.
func processWords() error {
	cfg, logger, closer := loadConfig()
	defer func() {
		_ = closer.Close()
	}()

	if err := cfg.Validate(); err != nil {
		logger.Error("Invalid configuration", "error", err)
		if errors.Is(err, config.ErrMissingCredential) {
			logger.Error("Set PERPLEXITY_API_KEY (or GOOGLE_CLOUD_PROJECT for vertex) in the environment or .env file")
		}
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	provider, err := newProvider(ctx, cfg.Provider)
	if err != nil {
		logger.Error("Failed to initialize provider", "provider", cfg.Provider.Name, "error", err)
		return err
	}
	defer func() {
		if err := provider.Close(); err != nil {
			logger.Warn("Error closing provider", "error", err)
		}
	}()

	store := jsonfile.NewStore(cfg.Processing.Output, cfg.Processing.Source, logger)
	if err := store.Refresh(); err == nil {
		logger.Info("Updated metadata for existing store", "path", store.Path())
	} else if !errors.Is(err, jsonfile.ErrNotFound) {
		logger.Warn("Could not refresh existing store", "path", store.Path(), "error", err)
	}

	backoff := llm.NewBackoff(llm.BackoffConfig{
		MaxRetries: cfg.Retry.MaxRetries,
		BaseDelay:  cfg.Retry.BaseDelay,
		MaxDelay:   cfg.Retry.MaxDelay,
		JitterMin:  cfg.Retry.JitterMin,
		JitterMax:  cfg.Retry.JitterMax,
	}, provider.GetName(), logger)

	processor := gathering.NewProcessor(gathering.Config{
		WordList:        cfg.Processing.WordList,
		PolitenessDelay: cfg.Processing.PolitenessDelay,
	}, store, provider, backoff, logger)

	if cfg.Metrics.Addr != "" {
		srv := health.NewServer(processor, cfg.Metrics.Addr)
		go func() {
			logger.Info("Health server listening", "addr", cfg.Metrics.Addr)
			if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("Health server error", "error", err)
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Stop(shutdownCtx)
		}()
	}

	logger.Info("Lexophile started",
		"provider", provider.GetName(),
		"word_list", cfg.Processing.WordList,
		"output", cfg.Processing.Output,
	)

	stats, err := processor.Run(ctx)
	if err != nil {
		if ctx.Err() != nil {
			logger.Info("Received signal, stopped", "new", stats.New, "reprocessed", stats.Reprocessed, "errors", stats.Errors)
			return nil
		}
		logger.Error("Run failed", "error", err)
		return err
	}
	logger.Info("Done", "output", store.Path())
	return nil
}

func newProvider(ctx context.Context, cfg config.ProviderConfig) (llm.Provider, error) {
	switch cfg.Name {
	case config.ProviderPerplexity:
		return llm.NewPerplexityProvider(cfg.Endpoint, cfg.APIKey, cfg.Model, cfg.Timeout), nil
	case config.ProviderVertex:
		p, err := llm.NewVertexProvider(ctx, cfg.ProjectID, cfg.Region, cfg.Model)
		if err != nil {
			return nil, err
		}
		return p, nil
	default:
		return nil, fmt.Errorf("unknown provider %q", cfg.Name)
	}
}
