package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
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
	"github.com/myrjola/ace/internal/repositories"
	"github.com/myrjola/ace/internal/sqlite"
	"github.com/myrjola/ace/internal/transcription"
	"github.com/myrjola/ace/internal/workspace"
	"github.com/spf13/cobra"
)

// environment is the wiring shared by the commands.
type environment struct {
	logger    *slog.Logger
	workspace *workspace.Service
	runs      *repositories.RunRepository
	close     func()
}

func newEnvironment(ctx context.Context, logger *slog.Logger) (*environment, error) {
	cfg, err := config.Load(os.LookupEnv)
	if err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	db, err := sqlite.NewDatabase(ctx, cfg.SqliteURL, logger)
	if err != nil {
		return nil, errors.Wrap(err, "open database", slog.String("url", cfg.SqliteURL))
	}

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
	)
	return &environment{
		logger:    logger,
		workspace: service,
		runs:      runs,
		close: func() {
			if closeErr := db.Close(); closeErr != nil {
				logger.LogAttrs(ctx, slog.LevelError, "failed to close database", errors.SlogError(closeErr))
			}
		},
	}, nil
}

// withEnvironment adapts fn to a cobra RunE that gets a fully wired environment.
func withEnvironment(fn func(cmd *cobra.Command, env *environment, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		// Logs go to stderr so that stdout stays parseable JSON.
		logger := logging.NewLogger(cmd.ErrOrStderr(), slog.LevelInfo, nil)
		env, err := newEnvironment(ctx, logger)
		if err != nil {
			return err
		}
		defer env.close()
		return fn(cmd, env, args)
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return errors.Wrap(err, "encode output")
	}
	return nil
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "ace-cli",
		Short:         "Generate session transcripts and checklist evaluations offline",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.AddGroup(generateGroup)
	rootCmd.AddCommand(newTranscribeCmd(), newEvaluateCmd(), newRunsCmd())
	return rootCmd
}

func main() {
	// The .env file is optional, real environment variables take precedence.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1) //nolint:revive // intentional exit
	}

	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1) //nolint:revive // intentional exit
	}
}
