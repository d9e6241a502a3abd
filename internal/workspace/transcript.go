package workspace

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/myrjola/ace/internal/errors"
	"github.com/myrjola/ace/internal/models"
)

type TranscriptResult struct {
	Segments []models.TranscriptSegment
	// CreatedAt is set for generated transcripts.
	CreatedAt *time.Time
	Source    Source
}

// Transcript returns the transcript of videoID, generating and storing it when there is no usable cached one.
//
// It returns [ErrVideoNotFound] when there is neither a cached transcript nor a video to transcribe.
func (s *Service) Transcript(ctx context.Context, videoID string) (*TranscriptResult, error) {
	ctx = withArtifact(ctx, models.ArtifactKindTranscript, videoID)
	segments := s.cachedTranscript(ctx, videoID)
	s.metrics.RecordCacheLookup(ctx, string(models.ArtifactKindTranscript), len(segments) > 0)
	if len(segments) > 0 {
		return &TranscriptResult{Segments: segments, CreatedAt: nil, Source: SourceFile}, nil
	}
	return s.generateTranscript(ctx, videoID, false)
}

// RegenerateTranscript transcribes videoID and overwrites the cached transcript.
func (s *Service) RegenerateTranscript(ctx context.Context, videoID string) (*TranscriptResult, error) {
	ctx = withArtifact(ctx, models.ArtifactKindTranscript, videoID)
	return s.generateTranscript(ctx, videoID, true)
}

func (s *Service) generateTranscript(ctx context.Context, videoID string, force bool) (*TranscriptResult, error) {
	path, err := s.videoPath(videoID)
	if err != nil {
		return nil, err
	}

	generateFn := func(ctx context.Context) (*TranscriptResult, int, error) {
		// A flight that finished between our cache read and this one already stored the transcript.
		if !force {
			if segments := s.cachedTranscript(ctx, videoID); len(segments) > 0 {
				return &TranscriptResult{Segments: segments, CreatedAt: nil, Source: SourceFile}, len(segments), nil
			}
		}

		s.logger.LogAttrs(ctx, slog.LevelInfo, "generating transcript", slog.String("path", path))
		segments, genErr := s.transcriber.Transcribe(ctx, path)
		if genErr != nil {
			return nil, 0, genErr
		}
		if segments == nil {
			segments = []models.TranscriptSegment{}
		}
		createdAt := s.now().UTC()
		doc := models.TranscriptArtifact{Segments: segments, CreatedAt: createdAt}
		if genErr = s.store.Write(models.ArtifactKindTranscript, videoID, doc); genErr != nil {
			return nil, 0, errors.Wrap(genErr, "store transcript")
		}
		return &TranscriptResult{Segments: segments, CreatedAt: &createdAt, Source: SourceGenerated}, len(segments), nil
	}
	return generate(ctx, s, models.ArtifactKindTranscript, videoID, generateFn)
}

// cachedTranscript reads the stored transcript. The document is either {"segments": [...]} or a bare array.
func (s *Service) cachedTranscript(ctx context.Context, videoID string) []models.TranscriptSegment {
	raw := bytes.TrimSpace(s.readArtifact(ctx, models.ArtifactKindTranscript, videoID))
	if len(raw) == 0 {
		return nil
	}

	var segments []models.TranscriptSegment
	var err error
	if raw[0] == '[' {
		err = json.Unmarshal(raw, &segments)
	} else {
		var doc models.TranscriptArtifact
		err = json.Unmarshal(raw, &doc)
		segments = doc.Segments
	}
	if err != nil {
		s.logger.LogAttrs(ctx, slog.LevelWarn, "ignoring malformed transcript artifact", errors.SlogError(err))
		return nil
	}
	return segments
}
