package workspace

import (
	"context"
	"log/slog"
	"time"

	"github.com/myrjola/ace/internal/artifact"
	"github.com/myrjola/ace/internal/errors"
	"github.com/myrjola/ace/internal/evaluation"
	"github.com/myrjola/ace/internal/models"
)

type EvaluationResult struct {
	Evaluations []models.AiEvaluation
	CreatedAt   *time.Time
	Source      Source
}

// StoredEvaluation returns the cached evaluation of videoID without generating one. It returns
// [ErrNoStoredEvaluation] when there is none.
func (s *Service) StoredEvaluation(ctx context.Context, videoID string) (*EvaluationResult, error) {
	ctx = withArtifact(ctx, models.ArtifactKindEvaluation, videoID)
	if evaluations := s.cachedEvaluations(ctx, videoID); len(evaluations) > 0 {
		return &EvaluationResult{Evaluations: evaluations, CreatedAt: nil, Source: SourceFile}, nil
	}
	return nil, ErrNoStoredEvaluation
}

// Evaluate returns the cached evaluation of videoID or evaluates checklist against transcript and stores it.
//
// The cache is consulted before the input is validated. On a miss, a nil checklist or an empty transcript
// returns [ErrMissingInput].
func (s *Service) Evaluate(
	ctx context.Context,
	videoID string,
	checklist *models.Checklist,
	transcript []models.TranscriptSegment,
) (*EvaluationResult, error) {
	ctx = withArtifact(ctx, models.ArtifactKindEvaluation, videoID)
	evaluations := s.cachedEvaluations(ctx, videoID)
	s.metrics.RecordCacheLookup(ctx, string(models.ArtifactKindEvaluation), len(evaluations) > 0)
	if len(evaluations) > 0 {
		return &EvaluationResult{Evaluations: evaluations, CreatedAt: nil, Source: SourceFile}, nil
	}
	return s.generateEvaluation(ctx, videoID, checklist, transcript, false)
}

// Reevaluate evaluates checklist against transcript and overwrites the cached evaluation.
func (s *Service) Reevaluate(
	ctx context.Context,
	videoID string,
	checklist *models.Checklist,
	transcript []models.TranscriptSegment,
) (*EvaluationResult, error) {
	ctx = withArtifact(ctx, models.ArtifactKindEvaluation, videoID)
	return s.generateEvaluation(ctx, videoID, checklist, transcript, true)
}

func (s *Service) generateEvaluation(
	ctx context.Context,
	videoID string,
	checklist *models.Checklist,
	transcript []models.TranscriptSegment,
	force bool,
) (*EvaluationResult, error) {
	if checklist == nil || len(transcript) == 0 {
		return nil, ErrMissingInput
	}
	if !artifact.ValidKey(videoID) {
		return nil, errors.Wrap(ErrVideoNotFound, "invalid video id", slog.String("video_id", videoID))
	}

	generateFn := func(ctx context.Context) (*EvaluationResult, int, error) {
		if !force {
			if evaluations := s.cachedEvaluations(ctx, videoID); len(evaluations) > 0 {
				return &EvaluationResult{Evaluations: evaluations, CreatedAt: nil, Source: SourceFile}, len(evaluations), nil
			}
		}

		s.logger.LogAttrs(ctx, slog.LevelInfo, "generating evaluation",
			slog.Int("questions", len(checklist.Questions())), slog.Int("segments", len(transcript)))
		evaluations, genErr := s.evaluator.Evaluate(ctx, *checklist, transcript)
		if genErr != nil {
			return nil, 0, genErr
		}
		if evaluations == nil {
			evaluations = []models.AiEvaluation{}
		}
		createdAt := s.now().UTC()
		doc := models.EvaluationArtifact{Evaluations: evaluations, CreatedAt: createdAt}
		if genErr = s.store.Write(models.ArtifactKindEvaluation, videoID, doc); genErr != nil {
			return nil, 0, errors.Wrap(genErr, "store evaluation")
		}
		result := EvaluationResult{Evaluations: evaluations, CreatedAt: &createdAt, Source: SourceGenerated}
		return &result, len(evaluations), nil
	}
	return generate(ctx, s, models.ArtifactKindEvaluation, videoID, generateFn)
}

// cachedEvaluations reads the stored evaluation in any of its historical layouts.
func (s *Service) cachedEvaluations(ctx context.Context, videoID string) []models.AiEvaluation {
	raw := s.readArtifact(ctx, models.ArtifactKindEvaluation, videoID)
	if raw == nil {
		return nil
	}
	evaluations, shape, err := evaluation.NormalizeDocument(raw)
	if err != nil {
		s.logger.LogAttrs(ctx, slog.LevelWarn, "ignoring malformed evaluation artifact", errors.SlogError(err))
		return nil
	}
	if shape != evaluation.ShapeEvaluations {
		s.logger.LogAttrs(ctx, slog.LevelDebug, "read legacy evaluation layout", slog.String("shape", shape.String()))
	}
	return evaluations
}
