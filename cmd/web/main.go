package main

import (
	"context"
	"io/fs"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/myrjola/ace/internal/ai"
	"github.com/myrjola/ace/internal/artifact"
	"github.com/myrjola/ace/internal/config"
	"github.com/myrjola/ace/internal/errors"
	"github.com/myrjola/ace/internal/evaluation"
	"github.com/myrjola/ace/internal/logging"
	"github.com/myrjola/ace/internal/media"
	"github.com/myrjola/ace/internal/metrics"
	"github.com/myrjola/ace/internal/pprofserver"
	"github.com/myrjola/ace/internal/repositories"
	"github.com/myrjola/ace/internal/sqlite"
	"github.com/myrjola/ace/internal/transcription"
	"github.com/myrjola/ace/internal/workspace"
)

type application struct {
	logger    *slog.Logger
	cfg       *config.Config
	workspace *workspace.Service
	runs      *repositories.RunRepository
	metrics   *metrics.Metrics
}

func run(ctx context.Context, logger *slog.Logger, lookupEnv func(string) (string, bool)) error {
	cfg, err := config.Load(lookupEnv)
	if err != nil {
		return errors.Wrap(err, "load config")
	}

	meterProvider, metricsHandler, err := metrics.NewPrometheusProvider("ace")
	if err != nil {
		return errors.Wrap(err, "create meter provider")
	}
	defer func() {
		if shutdownErr := meterProvider.Shutdown(context.WithoutCancel(ctx)); shutdownErr != nil {
			logger.LogAttrs(ctx, slog.LevelError, "failed to shut down meter provider", errors.SlogError(shutdownErr))
		}
	}()
	appMetrics, err := metrics.NewMetrics(meterProvider)
	if err != nil {
		return errors.Wrap(err, "create metrics")
	}

	if cfg.PprofAddr != "" {
		// Profiling and metrics stay on localhost so that they are not open to the world.
		pprofserver.Launch(ctx, cfg.PprofAddr, metricsHandler, logger)
	}

	db, err := sqlite.NewDatabase(ctx, cfg.SqliteURL, logger)
	if err != nil {
		return errors.Wrap(err, "open database", slog.String("url", cfg.SqliteURL))
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			logger.LogAttrs(ctx, slog.LevelError, "failed to close database", errors.SlogError(closeErr))
		}
	}()
	logger.LogAttrs(ctx, slog.LevelInfo, "connected to db", slog.String("url", cfg.SqliteURL))

	aiClient := ai.NewClient(cfg, logger)
	ffmpeg := media.NewFFmpeg(cfg.FFmpegPath, cfg.FFprobePath, media.ExecRunner{}, logger)
	runs := repositories.NewRunRepository(db, logger)
	service := workspace.NewService(
		cfg,
		artifact.NewStore(cfg.DataDir),
		transcription.NewPipeline(cfg, aiClient, ffmpeg, logger),
		evaluation.NewEvaluator(aiClient, logger),
		runs,
		logger,
	).WithMetrics(appMetrics)

	app := application{
		logger:    logger,
		cfg:       cfg,
		workspace: service,
		runs:      runs,
		metrics:   appMetrics,
	}
	if err = aiClient.CheckCredentials(); err != nil {
		logger.LogAttrs(ctx, slog.LevelWarn, "transcription and evaluation are unavailable", errors.SlogError(err))
	}

	if err = app.configureAndStartServer(ctx, cfg.Addr); err != nil {
		return errors.Wrap(err, "start server")
	}
	return nil
}

func main() {
	ctx := context.Background()
	logger := logging.NewLogger(os.Stdout, slog.LevelDebug, nil)

	// The .env file is optional, real environment variables take precedence.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		logger.LogAttrs(ctx, slog.LevelError, "failed to load .env", errors.SlogError(err))
		os.Exit(1) //nolint:revive // intentional exit
	}

	if err := run(ctx, logger, os.LookupEnv); err != nil {
		logger.LogAttrs(ctx, slog.LevelError, "failure starting application", errors.SlogError(err))
		os.Exit(1) //nolint:revive // intentional exit
	}
}
