package transcription_test

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/myrjola/ace/internal/ai"
	"github.com/myrjola/ace/internal/config"
	"github.com/myrjola/ace/internal/errors"
	"github.com/myrjola/ace/internal/models"
	"github.com/myrjola/ace/internal/testhelpers"
	"github.com/myrjola/ace/internal/transcription"
	"github.com/stretchr/testify/require"
)

type fakeTranscriber struct {
	mu        sync.Mutex
	missing   bool
	responses map[string]*ai.Transcription
	fail      map[string]error
	calls     []string
}

func (f *fakeTranscriber) CheckCredentials() error {
	if f.missing {
		return ai.ErrMissingAPIKey
	}
	return nil
}

func (f *fakeTranscriber) TranscribeAudio(_ context.Context, path string) (*ai.Transcription, error) {
	name := filepath.Base(path)
	f.mu.Lock()
	f.calls = append(f.calls, name)
	f.mu.Unlock()
	if err, ok := f.fail[name]; ok {
		return nil, err
	}
	if resp, ok := f.responses[name]; ok {
		return resp, nil
	}
	return &ai.Transcription{
		Text:     "hello",
		Segments: []ai.TimedText{{Start: 0, End: 10, Text: "hello"}},
		Duration: 10,
	}, nil
}

type fakeMedia struct {
	chunks   int
	splitErr error
	duration float64
	probeOK  bool
	splitDir string
}

func (f *fakeMedia) SplitAudio(_ context.Context, _, outDir string, _ time.Duration) ([]string, error) {
	f.splitDir = outDir
	if f.splitErr != nil {
		return nil, f.splitErr
	}
	var paths []string
	for i := range f.chunks {
		path := filepath.Join(outDir, fmt.Sprintf("chunk_%03d.mp3", i))
		if err := os.WriteFile(path, []byte("audio"), 0o600); err != nil {
			return nil, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}

func (f *fakeMedia) ProbeDuration(context.Context, string) (float64, bool) {
	return f.duration, f.probeOK
}

func newPipeline(t *testing.T, transcriber *fakeTranscriber, media *fakeMedia) *transcription.Pipeline {
	t.Helper()
	cfg, err := config.Load(func(key string) (string, bool) {
		if key == "ACE_MAX_UPLOAD_BYTES" {
			return "16", true
		}
		return "", false
	})
	require.NoError(t, err)
	return transcription.NewPipeline(cfg, transcriber, media, testhelpers.NewLogger(io.Discard)).
		WithTempDir(t.TempDir())
}

func writeRecording(t *testing.T, size int) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "video1.mp4")
	require.NoError(t, os.WriteFile(path, make([]byte, size), 0o600))
	return path
}

func TestPipeline_Transcribe(t *testing.T) {
	ctx := context.Background()

	t.Run("small file is transcribed in one request", func(t *testing.T) {
		transcriber := &fakeTranscriber{responses: map[string]*ai.Transcription{
			"video1.mp4": {Segments: []ai.TimedText{
				{Start: 0, End: 4, Text: "um, [noise] I think so"},
				{Start: 4, End: 6, Text: "uh"},
				{Start: 65, End: 70, Text: "Good."},
			}},
		}}
		media := &fakeMedia{}
		segments, err := newPipeline(t, transcriber, media).Transcribe(ctx, writeRecording(t, 8))
		require.NoError(t, err)
		require.Equal(t, []string{"video1.mp4"}, transcriber.calls)
		require.Empty(t, media.splitDir)
		require.Equal(t, []models.TranscriptSegment{
			{ID: "seg-0-0", Start: 0, End: 4, Text: "I think so", Timestamp: "00:00"},
			{ID: "seg-0-2", Start: 65, End: 70, Text: "Good.", Timestamp: "01:05"},
		}, segments)
	})

	t.Run("chunks are merged in order with offsets applied", func(t *testing.T) {
		transcriber := &fakeTranscriber{}
		media := &fakeMedia{chunks: 2}
		segments, err := newPipeline(t, transcriber, media).Transcribe(ctx, writeRecording(t, 64))
		require.NoError(t, err)
		require.Len(t, segments, 2)
		require.InDelta(t, 0, segments[0].Start, 1e-9)
		require.InDelta(t, 10, segments[0].End, 1e-9)
		require.InDelta(t, 300, segments[1].Start, 1e-9)
		require.InDelta(t, 310, segments[1].End, 1e-9)
		require.Equal(t, "05:00", segments[1].Timestamp)
		require.NotEqual(t, segments[0].ID, segments[1].ID)
		require.ElementsMatch(t, []string{"chunk_000.mp3", "chunk_001.mp3"}, transcriber.calls)

		_, err = os.Stat(media.splitDir)
		require.ErrorIs(t, err, os.ErrNotExist, "chunk directory should be removed")
	})

	t.Run("chunk directory is removed on failure", func(t *testing.T) {
		upstream := &ai.UpstreamError{Operation: "Transcription", StatusCode: 500, Detail: "boom"}
		transcriber := &fakeTranscriber{fail: map[string]error{"chunk_001.mp3": upstream}}
		media := &fakeMedia{chunks: 3}
		_, err := newPipeline(t, transcriber, media).Transcribe(ctx, writeRecording(t, 64))
		require.ErrorIs(t, err, ai.ErrUpstream)
		require.Contains(t, err.Error(), "boom")

		_, err = os.Stat(media.splitDir)
		require.ErrorIs(t, err, os.ErrNotExist)
	})

	t.Run("chunking failure is fatal", func(t *testing.T) {
		media := &fakeMedia{splitErr: errors.New("ffmpeg exited with status 1")}
		_, err := newPipeline(t, &fakeTranscriber{}, media).Transcribe(ctx, writeRecording(t, 64))
		require.Error(t, err)
		require.Contains(t, err.Error(), "ffmpeg")

		_, err = os.Stat(media.splitDir)
		require.ErrorIs(t, err, os.ErrNotExist)
	})

	t.Run("flat text is approximated with the probed duration", func(t *testing.T) {
		transcriber := &fakeTranscriber{responses: map[string]*ai.Transcription{
			"video1.mp4": {Text: "First. Again"},
		}}
		media := &fakeMedia{duration: 10, probeOK: true}
		segments, err := newPipeline(t, transcriber, media).Transcribe(ctx, writeRecording(t, 8))
		require.NoError(t, err)
		require.Len(t, segments, 2)
		require.InDelta(t, 5, segments[0].End, 1e-9)
		require.InDelta(t, 10, segments[1].End, 1e-9)
	})

	t.Run("flat text falls back to the chunk duration", func(t *testing.T) {
		transcriber := &fakeTranscriber{responses: map[string]*ai.Transcription{
			"video1.mp4": {Text: "Only one sentence"},
		}}
		segments, err := newPipeline(t, transcriber, &fakeMedia{}).Transcribe(ctx, writeRecording(t, 8))
		require.NoError(t, err)
		require.Len(t, segments, 1)
		require.InDelta(t, 300, segments[0].End, 1e-9)
	})

	t.Run("missing credential", func(t *testing.T) {
		transcriber := &fakeTranscriber{missing: true}
		media := &fakeMedia{chunks: 2}
		_, err := newPipeline(t, transcriber, media).Transcribe(ctx, writeRecording(t, 64))
		require.ErrorIs(t, err, ai.ErrMissingAPIKey)
		require.Empty(t, transcriber.calls)
		require.Empty(t, media.splitDir)
	})
}
