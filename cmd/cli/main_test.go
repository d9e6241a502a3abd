package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/mattn/go-runewidth"
	"github.com/myrjola/ace/internal/models"
	"github.com/myrjola/ace/internal/testhelpers"
	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/require"
)

// setupEnv points the configuration at a fake OpenAI API and a fresh workspace containing video1.
func setupEnv(t *testing.T) (*testhelpers.FakeOpenAI, string) {
	t.Helper()
	fake := testhelpers.NewFakeOpenAI(t)
	dir := t.TempDir()
	mediaDir := filepath.Join(dir, "public")
	require.NoError(t, os.MkdirAll(mediaDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(mediaDir, "video1.mp4"), []byte("fake video"), 0o600))

	t.Setenv("ACE_DATA_DIR", filepath.Join(dir, "data"))
	t.Setenv("ACE_MEDIA_DIR", mediaDir)
	t.Setenv("ACE_SQLITE_URL", filepath.Join(dir, "ace.sqlite3"))
	t.Setenv("OPENAI_KEY", "sk-test")
	t.Setenv("OPENAI_BASE_URL", fake.BaseURL())
	return fake, dir
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), err
}

func TestTranscribe(t *testing.T) {
	fake, _ := setupEnv(t)

	out, err := execute(t, "transcribe", "video1")
	require.NoError(t, err)
	var first transcriptOutput
	require.NoError(t, json.Unmarshal([]byte(out), &first))
	require.Equal(t, "generated", string(first.Source))
	require.Len(t, first.Segments, 1)
	require.Equal(t, "hello there", first.Segments[0].Text)

	out, err = execute(t, "transcribe", "video1")
	require.NoError(t, err)
	var second transcriptOutput
	require.NoError(t, json.Unmarshal([]byte(out), &second))
	require.Equal(t, "file", string(second.Source))
	require.Len(t, fake.TranscriptionFiles(), 1)

	_, err = execute(t, "transcribe", "video1", "--force")
	require.NoError(t, err)
	require.Len(t, fake.TranscriptionFiles(), 2)

	_, err = execute(t, "transcribe", "missing")
	require.Error(t, err)
}

func TestEvaluate(t *testing.T) {
	fake, dir := setupEnv(t)
	fake.OnChat(func(openai.ChatCompletionRequest) (int, string) {
		return http.StatusOK, `{"evaluations":[{"questionId":"q1","aiAnswer":"yes","evidence":["00:03"]}]}`
	})
	checklistPath := filepath.Join(dir, "checklist.json")
	checklist := `{"tabs":[{"id":"t1","label":"History","questions":[{"id":"q1","title":"Asked about pain","criteria":""}]}]}`
	require.NoError(t, os.WriteFile(checklistPath, []byte(checklist), 0o600))

	t.Run("requires checklist", func(t *testing.T) {
		_, err := execute(t, "evaluate", "video1")
		require.Error(t, err)
	})

	t.Run("rejects empty checklist", func(t *testing.T) {
		emptyPath := filepath.Join(dir, "empty.json")
		require.NoError(t, os.WriteFile(emptyPath, []byte(`{"tabs":[]}`), 0o600))
		_, err := execute(t, "evaluate", "video1", "--checklist", emptyPath)
		require.Error(t, err)
		require.Empty(t, fake.ChatRequests())
	})

	t.Run("generates then reads cache", func(t *testing.T) {
		out, err := execute(t, "evaluate", "video1", "--checklist", checklistPath)
		require.NoError(t, err)
		var result evaluationOutput
		require.NoError(t, json.Unmarshal([]byte(out), &result))
		require.Equal(t, "generated", string(result.Source))
		require.Equal(t, []models.AiEvaluation{
			{QuestionID: "q1", AiAnswer: models.AnswerYes, Evidence: []string{"00:03"}},
		}, result.Evaluations)

		out, err = execute(t, "evaluate", "video1", "--checklist", checklistPath)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal([]byte(out), &result))
		require.Equal(t, "file", string(result.Source))
		require.Len(t, fake.ChatRequests(), 1)

		_, err = execute(t, "evaluate", "video1", "--checklist", checklistPath, "--force")
		require.NoError(t, err)
		require.Len(t, fake.ChatRequests(), 2)
	})
}

func TestRuns(t *testing.T) {
	setupEnv(t)

	out, err := execute(t, "runs")
	require.NoError(t, err)
	require.JSONEq(t, `[]`, out)

	_, err = execute(t, "transcribe", "video1")
	require.NoError(t, err)

	out, err = execute(t, "runs", "--limit", "5")
	require.NoError(t, err)
	var runs []models.GenerationRun
	require.NoError(t, json.Unmarshal([]byte(out), &runs))
	require.Len(t, runs, 1)
	require.Equal(t, models.ArtifactKindTranscript, runs[0].Kind)
	require.Equal(t, models.RunStatusSucceeded, runs[0].Status)
	require.Equal(t, "video1", runs[0].ArtifactKey)

	_, err = execute(t, "runs", "--limit", "0")
	require.Error(t, err)
}

func TestWriteRunsTable(t *testing.T) {
	created := time.Date(2025, 3, 4, 5, 6, 7, 0, time.UTC)
	runs := []models.GenerationRun{
		{
			ID: 2, Kind: models.ArtifactKindEvaluation, ArtifactKey: "video1", Status: models.RunStatusFailed,
			ErrorMessage: "chat completion failed:\n요청 한도를 초과했습니다. 잠시 후 다시 시도하세요. 계속되면 관리자에게 문의하세요.",
			ItemCount:    0, Duration: 1500 * time.Millisecond, Created: created,
		},
		{
			ID: 1, Kind: models.ArtifactKindTranscript, ArtifactKey: "video1", Status: models.RunStatusSucceeded,
			ItemCount: 42, Duration: 95 * time.Second, Created: created,
		},
	}

	var out bytes.Buffer
	require.NoError(t, writeRunsTable(&out, runs))
	lines := strings.Split(strings.TrimRight(out.String(), "\n"), "\n")
	require.Len(t, lines, 3)
	require.True(t, strings.HasPrefix(lines[0], "CREATED"))

	// Every row starts its STATUS column at the same display width.
	statusColumn := runewidth.StringWidth(lines[0][:strings.Index(lines[0], "STATUS")])
	require.Equal(t, "failed", strings.Fields(runewidth.TruncateLeft(lines[1], statusColumn, ""))[0])
	require.Equal(t, "succeeded", strings.Fields(runewidth.TruncateLeft(lines[2], statusColumn, ""))[0])

	require.NotContains(t, lines[1], "\n")
	require.True(t, strings.HasSuffix(lines[1], "…"))
	require.LessOrEqual(t, runewidth.StringWidth(lines[1][strings.Index(lines[1], "chat"):]), maxErrorWidth)
}
