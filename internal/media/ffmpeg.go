package media

import (
	"context"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/myrjola/ace/internal/errors"
)

const (
	chunkPrefix = "chunk_"
	chunkSuffix = ".mp3"
)

// FFmpeg splits recordings into audio chunks with ffmpeg and probes their duration with ffprobe.
type FFmpeg struct {
	ffmpegPath  string
	ffprobePath string
	runner      Runner
	logger      *slog.Logger
}

// NewFFmpeg creates an FFmpeg using the given executables. Bare names are resolved from PATH.
func NewFFmpeg(ffmpegPath, ffprobePath string, runner Runner, logger *slog.Logger) *FFmpeg {
	return &FFmpeg{
		ffmpegPath:  ffmpegPath,
		ffprobePath: ffprobePath,
		runner:      runner,
		logger:      logger,
	}
}

// SplitAudio extracts mono 16 kHz audio from input into consecutive mp3 chunks of chunkDuration inside outDir.
// Each chunk's timestamps start at zero. It returns the chunk paths in chronological order.
func (f *FFmpeg) SplitAudio(ctx context.Context, input, outDir string, chunkDuration time.Duration) ([]string, error) {
	args := []string{
		"-y",
		"-i", input,
		"-vn",
		"-ac", "1",
		"-ar", "16000",
		"-b:a", "64k",
		"-f", "segment",
		"-segment_time", strconv.FormatFloat(chunkDuration.Seconds(), 'f', -1, 64),
		"-reset_timestamps", "1",
		filepath.Join(outDir, chunkPrefix+"%03d"+chunkSuffix),
	}

	start := time.Now()
	result, err := f.runner.Run(ctx, f.ffmpegPath, args...)
	if err != nil {
		return nil, errors.Wrap(err, "run ffmpeg")
	}
	if err = result.Err(f.ffmpegPath); err != nil {
		return nil, errors.Wrap(err, "transcription requires ffmpeg for large videos")
	}

	chunks, err := listChunks(outDir)
	if err != nil {
		return nil, err
	}
	f.logger.LogAttrs(ctx, slog.LevelDebug, "split audio into chunks",
		slog.String("input", input), slog.Int("chunks", len(chunks)), slog.Duration("duration", time.Since(start)))
	return chunks, nil
}

// listChunks returns the chunk files in outDir. The numbering is fixed width, so lexical order is chronological.
func listChunks(outDir string) ([]string, error) {
	entries, err := os.ReadDir(outDir)
	if err != nil {
		return nil, errors.Wrap(err, "read chunk directory", slog.String("dir", outDir))
	}
	var chunks []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.Type().IsRegular() && strings.HasPrefix(name, chunkPrefix) && strings.HasSuffix(name, chunkSuffix) {
			chunks = append(chunks, name)
		}
	}
	slices.Sort(chunks)
	for i, name := range chunks {
		chunks[i] = filepath.Join(outDir, name)
	}
	return chunks, nil
}

// ProbeDuration returns the duration of the media file in seconds. Failures are not fatal: the boolean is false
// when ffprobe is missing, fails, or prints something that is not a duration.
func (f *FFmpeg) ProbeDuration(ctx context.Context, path string) (float64, bool) {
	result, err := f.runner.Run(ctx, f.ffprobePath,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	)
	if err == nil {
		err = result.Err(f.ffprobePath)
	}
	if err != nil {
		f.logger.LogAttrs(ctx, slog.LevelWarn, "could not probe media duration",
			slog.String("path", path), errors.SlogError(err))
		return 0, false
	}

	seconds, err := strconv.ParseFloat(strings.TrimSpace(string(result.Stdout)), 64)
	if err != nil || seconds < 0 || math.IsNaN(seconds) || math.IsInf(seconds, 0) {
		f.logger.LogAttrs(ctx, slog.LevelWarn, "ffprobe returned an unusable duration",
			slog.String("path", path), slog.String("output", string(result.Stdout)))
		return 0, false
	}
	return seconds, true
}
