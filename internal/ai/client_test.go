package ai_test

import (
	"context"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"github.com/myrjola/ace/internal/ai"
	"github.com/myrjola/ace/internal/config"
	"github.com/myrjola/ace/internal/testhelpers"
	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, fake *testhelpers.FakeOpenAI, apiKey string) *ai.Client {
	t.Helper()
	cfg, err := config.Load(func(key string) (string, bool) {
		switch key {
		case "OPENAI_KEY":
			return apiKey, true
		case "OPENAI_BASE_URL":
			return fake.BaseURL(), true
		case "ACE_TRANSCRIBE_FORMAT":
			return "verbose_json", true
		default:
			return "", false
		}
	})
	require.NoError(t, err)
	return ai.NewClient(cfg, testhelpers.NewLogger(io.Discard))
}

func writeAudio(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "chunk_000.mp3")
	require.NoError(t, os.WriteFile(path, []byte("ID3 not really audio"), 0o600))
	return path
}

func TestClient_TranscribeAudio(t *testing.T) {
	ctx := context.Background()

	t.Run("maps timed segments", func(t *testing.T) {
		fake := testhelpers.NewFakeOpenAI(t)
		fake.OnTranscribe(func(string) (int, string) {
			return http.StatusOK, `{"task":"transcribe","duration":21.5,"text":"Hello. How are you?",
				"segments":[{"id":0,"start":0,"end":9.5,"text":" Hello."},{"id":1,"start":9.5,"end":21.5,"text":" How are you?"}]}`
		})
		client := newTestClient(t, fake, "sk-test")

		transcription, err := client.TranscribeAudio(ctx, writeAudio(t))
		require.NoError(t, err)
		require.Equal(t, "Hello. How are you?", transcription.Text)
		require.InDelta(t, 21.5, transcription.Duration, 1e-9)
		require.Equal(t, []ai.TimedText{
			{Start: 0, End: 9.5, Text: " Hello."},
			{Start: 9.5, End: 21.5, Text: " How are you?"},
		}, transcription.Segments)
		require.Equal(t, []string{"chunk_000.mp3"}, fake.TranscriptionFiles())
	})

	t.Run("missing credential makes no call", func(t *testing.T) {
		fake := testhelpers.NewFakeOpenAI(t)
		client := newTestClient(t, fake, "")

		_, err := client.TranscribeAudio(ctx, writeAudio(t))
		require.ErrorIs(t, err, ai.ErrMissingAPIKey)
		require.Zero(t, fake.Calls())
	})

	t.Run("upstream failure carries the response body", func(t *testing.T) {
		fake := testhelpers.NewFakeOpenAI(t)
		fake.OnTranscribe(func(string) (int, string) {
			return http.StatusRequestEntityTooLarge, "Maximum content size limit exceeded"
		})
		client := newTestClient(t, fake, "sk-test")

		_, err := client.TranscribeAudio(ctx, writeAudio(t))
		require.ErrorIs(t, err, ai.ErrUpstream)
		var upstreamErr *ai.UpstreamError
		require.ErrorAs(t, err, &upstreamErr)
		require.Equal(t, http.StatusRequestEntityTooLarge, upstreamErr.StatusCode)
		require.Equal(t, "Transcription failed: Maximum content size limit exceeded", err.Error())
	})
}

func TestClient_CompleteJSON(t *testing.T) {
	ctx := context.Background()

	t.Run("returns first choice", func(t *testing.T) {
		fake := testhelpers.NewFakeOpenAI(t)
		fake.OnChat(func(openai.ChatCompletionRequest) (int, string) {
			return http.StatusOK, `{"evaluations":[{"questionId":"q1","aiAnswer":"Yes","evidence":["00:05"]}]}`
		})
		client := newTestClient(t, fake, "sk-test")

		content, err := client.CompleteJSON(ctx, "Respond with JSON only.", `{"questions":[]}`)
		require.NoError(t, err)
		require.Contains(t, content, `"questionId":"q1"`)

		requests := fake.ChatRequests()
		require.Len(t, requests, 1)
		require.Equal(t, "gpt-5", requests[0].Model)
		require.Len(t, requests[0].Messages, 2)
		require.Equal(t, openai.ChatMessageRoleSystem, requests[0].Messages[0].Role)
		require.Equal(t, `{"questions":[]}`, requests[0].Messages[1].Content)
		require.NotNil(t, requests[0].ResponseFormat)
		require.Equal(t, openai.ChatCompletionResponseFormatTypeJSONObject, requests[0].ResponseFormat.Type)
	})

	t.Run("missing credential makes no call", func(t *testing.T) {
		fake := testhelpers.NewFakeOpenAI(t)
		client := newTestClient(t, fake, "")

		_, err := client.CompleteJSON(ctx, "system", "user")
		require.ErrorIs(t, err, ai.ErrMissingAPIKey)
		require.Zero(t, fake.Calls())
	})

	t.Run("upstream failure", func(t *testing.T) {
		fake := testhelpers.NewFakeOpenAI(t)
		fake.OnChat(func(openai.ChatCompletionRequest) (int, string) {
			return http.StatusTooManyRequests, "Rate limit reached"
		})
		client := newTestClient(t, fake, "sk-test")

		_, err := client.CompleteJSON(ctx, "system", "user")
		require.ErrorIs(t, err, ai.ErrUpstream)
		require.Equal(t, "Evaluation failed: Rate limit reached", err.Error())
	})

	t.Run("upstream failure without an error envelope", func(t *testing.T) {
		fake := testhelpers.NewFakeOpenAI(t)
		fake.SendPlainErrors()
		fake.OnChat(func(openai.ChatCompletionRequest) (int, string) {
			return http.StatusBadGateway, "upstream connect error\n"
		})
		client := newTestClient(t, fake, "sk-test")

		_, err := client.CompleteJSON(ctx, "system", "user")
		require.ErrorIs(t, err, ai.ErrUpstream)
		require.Equal(t, "Evaluation failed: upstream connect error", err.Error())

		var upstream *ai.UpstreamError
		require.ErrorAs(t, err, &upstream)
		require.Equal(t, http.StatusBadGateway, upstream.StatusCode)
	})
}
