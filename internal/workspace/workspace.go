// Package workspace serves transcripts and checklist evaluations of session videos from the artifact cache and
// generates them on a miss.
//
// A stored artifact with content is always a hit: it is returned as is and never regenerated or rewritten.
// Concurrent misses for the same artifact share one generation. Generation is detached from the caller's
// context, so it runs to completion even when the request that started it goes away.
package workspace

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/myrjola/ace/internal/artifact"
	"github.com/myrjola/ace/internal/config"
	"github.com/myrjola/ace/internal/errors"
	"github.com/myrjola/ace/internal/logging"
	"github.com/myrjola/ace/internal/metrics"
	"github.com/myrjola/ace/internal/models"
	"golang.org/x/sync/singleflight"
)

var (
	ErrVideoNotFound      = errors.NewSentinel("video not found")
	ErrMissingInput       = errors.NewSentinel("Missing checklist or transcript.")
	ErrNoStoredEvaluation = errors.NewSentinel("No stored evaluation.")
)

// Source tells whether a result was read from the cache or generated by the request.
type Source string

const (
	SourceFile      Source = "file"
	SourceGenerated Source = "generated"
)

type Transcriber interface {
	Transcribe(ctx context.Context, path string) ([]models.TranscriptSegment, error)
}

type Evaluator interface {
	Evaluate(
		ctx context.Context,
		checklist models.Checklist,
		transcript []models.TranscriptSegment,
	) ([]models.AiEvaluation, error)
}

type RunRecorder interface {
	Record(ctx context.Context, run models.GenerationRun) (models.GenerationRun, error)
}

type Service struct {
	cfg         *config.Config
	store       *artifact.Store
	transcriber Transcriber
	evaluator   Evaluator
	runs        RunRecorder
	flights     singleflight.Group
	metrics     *metrics.Metrics
	now         func() time.Time
	logger      *slog.Logger
}

func NewService(
	cfg *config.Config,
	store *artifact.Store,
	transcriber Transcriber,
	evaluator Evaluator,
	runs RunRecorder,
	logger *slog.Logger,
) *Service {
	return &Service{
		cfg:         cfg,
		store:       store,
		transcriber: transcriber,
		evaluator:   evaluator,
		runs:        runs,
		flights:     singleflight.Group{},
		metrics:     metrics.Default(),
		now:         time.Now,
		logger:      logger.With("source", "workspace.Service"),
	}
}

// WithMetrics replaces the metrics backed by the global meter provider.
func (s *Service) WithMetrics(m *metrics.Metrics) *Service {
	s.metrics = m
	return s
}

// generate runs fn once for all concurrent callers asking for the same artifact and hands every caller the same
// result. fn gets a context that is not cancelled with the caller's context and returns its result with the
// number of generated items. Every attempt is recorded in the run log.
func generate[T any](
	ctx context.Context,
	s *Service,
	kind models.ArtifactKind,
	key string,
	fn func(ctx context.Context) (T, int, error),
) (T, error) {
	flightKey := string(kind) + "/" + key
	v, err, shared := s.flights.Do(flightKey, func() (any, error) {
		genCtx := context.WithoutCancel(ctx)
		start := time.Now()
		result, count, err := fn(genCtx)
		s.recordRun(genCtx, kind, key, count, time.Since(start), err)
		return result, err
	})
	if shared {
		s.logger.LogAttrs(ctx, slog.LevelDebug, "joined in-flight generation", slog.String("artifact", flightKey))
	}
	if err != nil {
		var zero T
		return zero, err //nolint:wrapcheck // returned as is to every caller of the flight
	}
	return v.(T), nil //nolint:forcetypeassert // fn always returns T
}

func (s *Service) recordRun(
	ctx context.Context,
	kind models.ArtifactKind,
	key string,
	count int,
	duration time.Duration,
	genErr error,
) {
	run := models.GenerationRun{ //nolint:exhaustruct // ID and Created are assigned by the repository
		Kind:        kind,
		ArtifactKey: key,
		Status:      models.RunStatusSucceeded,
		ItemCount:   count,
		Duration:    duration,
	}
	level := slog.LevelInfo
	attrs := []slog.Attr{slog.Int("items", count), slog.Duration("duration", duration)}
	if genErr != nil {
		run.Status = models.RunStatusFailed
		run.ErrorMessage = genErr.Error()
		level = slog.LevelError
		attrs = append(attrs, errors.SlogError(genErr))
	}
	s.logger.LogAttrs(ctx, level, "generation "+string(run.Status), attrs...)
	s.metrics.RecordGeneration(ctx, string(kind), string(run.Status), duration)

	if _, err := s.runs.Record(ctx, run); err != nil {
		s.logger.LogAttrs(ctx, slog.LevelWarn, "could not record generation run", errors.SlogError(err))
	}
}

// readArtifact returns the cached artifact or nil when it is missing or unreadable. Cache problems are never
// surfaced, they only cause a regeneration.
func (s *Service) readArtifact(ctx context.Context, kind models.ArtifactKind, key string) []byte {
	raw, err := s.store.Read(kind, key)
	if err != nil {
		if !errors.Is(err, artifact.ErrNotFound) {
			s.logger.LogAttrs(ctx, slog.LevelWarn, "could not read artifact", errors.SlogError(err))
		}
		return nil
	}
	return raw
}

func (s *Service) videoPath(videoID string) (string, error) {
	if !artifact.ValidKey(videoID) {
		return "", errors.Wrap(ErrVideoNotFound, "invalid video id", slog.String("video_id", videoID))
	}
	path := s.cfg.VideoPath(videoID)
	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() {
		return "", errors.Wrap(ErrVideoNotFound, "stat video", slog.String("path", path))
	}
	return path, nil
}

func withArtifact(ctx context.Context, kind models.ArtifactKind, key string) context.Context {
	return logging.WithAttrs(ctx, slog.String("artifact_kind", string(kind)), slog.String("artifact_key", key))
}
