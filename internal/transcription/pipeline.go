// Package transcription turns a recording into an ordered transcript.
//
// Recordings that fit into one upload are transcribed in one request. Larger recordings are split into audio
// chunks of a fixed duration that are transcribed concurrently and merged back in chunk order, with every
// segment shifted by its chunk offset so that start and end are always absolute positions in the recording.
package transcription

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/myrjola/ace/internal/ai"
	"github.com/myrjola/ace/internal/config"
	"github.com/myrjola/ace/internal/errors"
	"github.com/myrjola/ace/internal/models"
	"github.com/myrjola/ace/internal/timestamp"
	"github.com/myrjola/ace/internal/transcript"
	"golang.org/x/sync/errgroup"
)

// Transcriber submits one audio file to the transcription service.
type Transcriber interface {
	CheckCredentials() error
	TranscribeAudio(ctx context.Context, path string) (*ai.Transcription, error)
}

// MediaTool splits recordings and probes durations.
type MediaTool interface {
	SplitAudio(ctx context.Context, input, outDir string, chunkDuration time.Duration) ([]string, error)
	ProbeDuration(ctx context.Context, path string) (float64, bool)
}

type Pipeline struct {
	transcriber      Transcriber
	media            MediaTool
	maxUploadBytes   int64
	chunkDuration    time.Duration
	chunkConcurrency int
	tempDir          string
	logger           *slog.Logger
}

func NewPipeline(cfg *config.Config, transcriber Transcriber, media MediaTool, logger *slog.Logger) *Pipeline {
	return &Pipeline{
		transcriber:      transcriber,
		media:            media,
		maxUploadBytes:   cfg.MaxUploadBytes,
		chunkDuration:    cfg.ChunkDuration,
		chunkConcurrency: cfg.ChunkConcurrency,
		tempDir:          "",
		logger:           logger.With("source", "transcription.Pipeline"),
	}
}

// WithTempDir makes the pipeline create its chunk directories under dir instead of [os.TempDir].
func (p *Pipeline) WithTempDir(dir string) *Pipeline {
	p.tempDir = dir
	return p
}

// Transcribe produces the ordered transcript of the recording at path.
func (p *Pipeline) Transcribe(ctx context.Context, path string) ([]models.TranscriptSegment, error) {
	if err := p.transcriber.CheckCredentials(); err != nil {
		return nil, err //nolint:wrapcheck // configuration error is surfaced verbatim
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, errors.Wrap(err, "stat recording", slog.String("path", path))
	}

	if info.Size() <= p.maxUploadBytes {
		return p.transcribeFile(ctx, path, 0)
	}

	p.logger.LogAttrs(ctx, slog.LevelInfo, "recording exceeds upload limit, transcribing in chunks",
		slog.String("path", path), slog.Int64("size", info.Size()), slog.Int64("limit", p.maxUploadBytes))
	return p.transcribeChunked(ctx, path)
}

func (p *Pipeline) transcribeChunked(ctx context.Context, path string) (_ []models.TranscriptSegment, err error) {
	dir, err := os.MkdirTemp(p.tempDir, "ace-audio-")
	if err != nil {
		return nil, errors.Wrap(err, "create chunk directory")
	}
	defer func() {
		if removeErr := os.RemoveAll(dir); removeErr != nil {
			p.logger.LogAttrs(ctx, slog.LevelWarn, "could not remove chunk directory",
				slog.String("dir", dir), errors.SlogError(removeErr))
		}
	}()

	chunks, err := p.media.SplitAudio(ctx, path, dir, p.chunkDuration)
	if err != nil {
		return nil, errors.Wrap(err, "split recording")
	}
	if len(chunks) == 0 {
		return nil, errors.New("no audio chunks produced", slog.String("path", path))
	}

	chunkSeconds := p.chunkDuration.Seconds()
	results := make([][]models.TranscriptSegment, len(chunks))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.chunkConcurrency)
	for i, chunk := range chunks {
		g.Go(func() error {
			segments, chunkErr := p.transcribeFile(gctx, chunk, float64(i)*chunkSeconds)
			if chunkErr != nil {
				return errors.Wrap(chunkErr, "transcribe chunk", slog.Int("chunk", i))
			}
			results[i] = segments
			return nil
		})
	}
	if err = g.Wait(); err != nil {
		return nil, err //nolint:wrapcheck // wrapped in the worker
	}

	var merged []models.TranscriptSegment
	for _, segments := range results {
		merged = append(merged, segments...)
	}
	return merged, nil
}

// transcribeFile transcribes one upload-sized file whose first second is offsetSeconds into the recording.
func (p *Pipeline) transcribeFile(
	ctx context.Context,
	path string,
	offsetSeconds float64,
) ([]models.TranscriptSegment, error) {
	resp, err := p.transcriber.TranscribeAudio(ctx, path)
	if err != nil {
		return nil, err //nolint:wrapcheck // upstream body is the message
	}

	if len(resp.Segments) > 0 {
		segments := make([]models.TranscriptSegment, 0, len(resp.Segments))
		for i, s := range resp.Segments {
			text := transcript.Clean(s.Text)
			if text == "" {
				continue
			}
			start := offsetSeconds + s.Start
			end := offsetSeconds + s.End
			if s.End <= 0 || end < start {
				end = start
			}
			segments = append(segments, models.TranscriptSegment{
				ID:        transcript.SegmentID(offsetSeconds, i),
				Start:     start,
				End:       end,
				Text:      text,
				Timestamp: timestamp.Format(start),
			})
		}
		return segments, nil
	}

	text := transcript.Clean(resp.Text)
	if text == "" {
		return nil, nil
	}
	duration, ok := p.media.ProbeDuration(ctx, path)
	if !ok {
		duration = p.chunkDuration.Seconds()
	}
	p.logger.LogAttrs(ctx, slog.LevelDebug, "no segment timing, approximating",
		slog.String("file", filepath.Base(path)), slog.Float64("duration", duration))
	return transcript.BuildApproxSegments(text, offsetSeconds, duration), nil
}
