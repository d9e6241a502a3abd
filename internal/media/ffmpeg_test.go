package media_test

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/myrjola/ace/internal/media"
	"github.com/myrjola/ace/internal/testhelpers"
	"github.com/stretchr/testify/require"
)

type fakeRunner struct {
	calls [][]string
	run   func(name string, args []string) media.Result
}

func (f *fakeRunner) Run(_ context.Context, name string, args ...string) (media.Result, error) {
	f.calls = append(f.calls, append([]string{name}, args...))
	return f.run(name, args), nil
}

func TestFFmpeg_SplitAudio(t *testing.T) {
	ctx := context.Background()
	logger := testhelpers.NewLogger(io.Discard)

	t.Run("returns chunks in chronological order", func(t *testing.T) {
		outDir := t.TempDir()
		runner := &fakeRunner{run: func(_ string, args []string) media.Result {
			pattern := args[len(args)-1]
			// Written out of order on purpose; unrelated files are ignored.
			for _, i := range []int{2, 0, 1} {
				name := strings.Replace(pattern, "%03d", []string{"000", "001", "002"}[i], 1)
				require.NoError(t, os.WriteFile(name, []byte("mp3"), 0o600))
			}
			require.NoError(t, os.WriteFile(filepath.Join(outDir, "ffmpeg.log"), nil, 0o600))
			return media.Result{Status: media.StatusOK}
		}}
		ff := media.NewFFmpeg("/usr/bin/ffmpeg", "ffprobe", runner, logger)

		chunks, err := ff.SplitAudio(ctx, "/videos/video1.mp4", outDir, 300*time.Second)
		require.NoError(t, err)
		require.Equal(t, []string{
			filepath.Join(outDir, "chunk_000.mp3"),
			filepath.Join(outDir, "chunk_001.mp3"),
			filepath.Join(outDir, "chunk_002.mp3"),
		}, chunks)

		require.Len(t, runner.calls, 1)
		call := strings.Join(runner.calls[0], " ")
		require.True(t, strings.HasPrefix(call, "/usr/bin/ffmpeg -y -i /videos/video1.mp4 -vn -ac 1 -ar 16000"))
		require.Contains(t, call, "-segment_time 300 -reset_timestamps 1")
	})

	t.Run("tool failure is fatal", func(t *testing.T) {
		runner := &fakeRunner{run: func(string, []string) media.Result {
			return media.Result{Status: media.StatusNotFound, ExitCode: -1}
		}}
		ff := media.NewFFmpeg("ffmpeg", "ffprobe", runner, logger)
		_, err := ff.SplitAudio(ctx, "video.mp4", t.TempDir(), time.Minute)
		require.ErrorIs(t, err, media.ErrToolNotFound)
		require.Contains(t, err.Error(), "requires ffmpeg")
	})
}

func TestFFmpeg_ProbeDuration(t *testing.T) {
	ctx := context.Background()
	logger := testhelpers.NewLogger(io.Discard)
	tests := []struct {
		name   string
		result media.Result
		want   float64
		wantOK bool
	}{
		{name: "duration", result: media.Result{Status: media.StatusOK, Stdout: []byte("298.44\n")}, want: 298.44, wantOK: true},
		{name: "missing tool", result: media.Result{Status: media.StatusNotFound}, wantOK: false},
		{name: "non-zero exit", result: media.Result{Status: media.StatusExited, ExitCode: 1}, wantOK: false},
		{name: "unparsable output", result: media.Result{Status: media.StatusOK, Stdout: []byte("N/A")}, wantOK: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runner := &fakeRunner{run: func(string, []string) media.Result { return tt.result }}
			ff := media.NewFFmpeg("ffmpeg", "/opt/ffprobe", runner, logger)
			got, ok := ff.ProbeDuration(ctx, "chunk_000.mp3")
			require.Equal(t, tt.wantOK, ok)
			require.InDelta(t, tt.want, got, 1e-9)
			require.Equal(t, "/opt/ffprobe", runner.calls[0][0])
		})
	}
}
