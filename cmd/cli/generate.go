package main

import (
	"log/slog"
	"time"

	"github.com/myrjola/ace/internal/checklist"
	"github.com/myrjola/ace/internal/errors"
	"github.com/myrjola/ace/internal/models"
	"github.com/myrjola/ace/internal/workspace"
	"github.com/spf13/cobra"
)

var generateGroup = &cobra.Group{
	ID:    "generate",
	Title: "Artifact generation",
}

type transcriptOutput struct {
	Segments  []models.TranscriptSegment `json:"segments"`
	CreatedAt *time.Time                 `json:"createdAt,omitempty"`
	Source    workspace.Source           `json:"source"`
}

type evaluationOutput struct {
	Evaluations []models.AiEvaluation `json:"evaluations"`
	CreatedAt   *time.Time            `json:"createdAt,omitempty"`
	Source      workspace.Source      `json:"source"`
}

func newTranscribeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "transcribe <videoID>",
		GroupID: generateGroup.ID,
		Short:   "Print the transcript of a session video",
		Long: `Prints the cached transcript of the video or transcribes it and stores the result.
With --force the video is transcribed again and the cached transcript overwritten.`,
		Args: cobra.ExactArgs(1),
	}
	force := cmd.Flags().Bool("force", false, "regenerate even when a cached transcript exists")

	cmd.RunE = withEnvironment(func(cmd *cobra.Command, env *environment, args []string) error {
		var (
			result *workspace.TranscriptResult
			err    error
		)
		if *force {
			result, err = env.workspace.RegenerateTranscript(cmd.Context(), args[0])
		} else {
			result, err = env.workspace.Transcript(cmd.Context(), args[0])
		}
		if err != nil {
			return errors.Wrap(err, "transcribe", slog.String("video_id", args[0]))
		}
		return writeJSON(cmd.OutOrStdout(), transcriptOutput{
			Segments:  result.Segments,
			CreatedAt: result.CreatedAt,
			Source:    result.Source,
		})
	})
	return cmd
}

func newEvaluateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "evaluate <videoID>",
		GroupID: generateGroup.ID,
		Short:   "Print the checklist evaluation of a session video",
		Long: `Evaluates the checklist against the transcript of the video, transcribing it first when needed.
A cached evaluation is printed as is unless --force is given. The checklist is validated in either case.`,
		Args: cobra.ExactArgs(1),
	}
	force := cmd.Flags().Bool("force", false, "regenerate even when a cached evaluation exists")
	checklistPath := cmd.Flags().String("checklist", "", "path to the checklist document, JSON or YAML")
	_ = cmd.MarkFlagRequired("checklist")

	cmd.RunE = withEnvironment(func(cmd *cobra.Command, env *environment, args []string) error {
		ctx := cmd.Context()
		videoID := args[0]

		reviewChecklist, err := readChecklist(*checklistPath)
		if err != nil {
			return err
		}
		if !*force {
			stored, storedErr := env.workspace.StoredEvaluation(ctx, videoID)
			if storedErr == nil {
				return writeJSON(cmd.OutOrStdout(), evaluationOutput{
					Evaluations: stored.Evaluations,
					CreatedAt:   stored.CreatedAt,
					Source:      stored.Source,
				})
			}
			if !errors.Is(storedErr, workspace.ErrNoStoredEvaluation) {
				return errors.Wrap(storedErr, "read stored evaluation", slog.String("video_id", videoID))
			}
		}

		transcript, err := env.workspace.Transcript(ctx, videoID)
		if err != nil {
			return errors.Wrap(err, "transcribe", slog.String("video_id", videoID))
		}

		var result *workspace.EvaluationResult
		if *force {
			result, err = env.workspace.Reevaluate(ctx, videoID, reviewChecklist, transcript.Segments)
		} else {
			// Evaluate re-checks the cache in case another process stored one meanwhile.
			result, err = env.workspace.Evaluate(ctx, videoID, reviewChecklist, transcript.Segments)
		}
		if err != nil {
			return errors.Wrap(err, "evaluate", slog.String("video_id", videoID))
		}
		return writeJSON(cmd.OutOrStdout(), evaluationOutput{
			Evaluations: result.Evaluations,
			CreatedAt:   result.CreatedAt,
			Source:      result.Source,
		})
	})
	return cmd
}

func readChecklist(path string) (*models.Checklist, error) {
	c, err := checklist.Load(path)
	if err != nil {
		return nil, err
	}
	if len(c.Questions()) == 0 {
		return nil, errors.New("checklist has no questions", slog.String("path", path))
	}
	return c, nil
}
