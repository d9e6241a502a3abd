package checklist_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/myrjola/ace/internal/checklist"
	"github.com/myrjola/ace/internal/models"
	"github.com/stretchr/testify/require"
)

const jsonChecklist = `{
  "tabs": [
    {
      "id": "history",
      "label": "History taking",
      "questions": [
        {"id": "q1", "title": "Asked about onset", "criteria": "Onset, duration and progression."},
        {"id": "q2", "title": "Asked about allergies"}
      ]
    },
    {"id": "exam", "label": "Examination", "questions": [{"id": "q3", "title": "Washed hands"}]}
  ]
}`

const yamlChecklist = `
tabs:
  - id: history
    label: History taking
    questions:
      - id: q1
        title: Asked about onset
        criteria: Onset, duration and progression.
      - id: q2
        title: Asked about allergies
  - id: exam
    label: Examination
    questions:
      - id: q3
        title: Washed hands
`

func TestParse(t *testing.T) {
	want := &models.Checklist{Tabs: []models.ChecklistTab{
		{ID: "history", Label: "History taking", Questions: []models.ChecklistQuestion{
			{ID: "q1", Title: "Asked about onset", Criteria: "Onset, duration and progression."},
			{ID: "q2", Title: "Asked about allergies", Criteria: ""},
		}},
		{ID: "exam", Label: "Examination", Questions: []models.ChecklistQuestion{
			{ID: "q3", Title: "Washed hands", Criteria: ""},
		}},
	}}

	t.Run("json", func(t *testing.T) {
		got, err := checklist.Parse([]byte(jsonChecklist))
		require.NoError(t, err)
		require.Equal(t, want, got)
	})

	t.Run("yaml", func(t *testing.T) {
		got, err := checklist.Parse([]byte(yamlChecklist))
		require.NoError(t, err)
		require.Equal(t, want, got)
	})

	t.Run("empty tabs are valid", func(t *testing.T) {
		got, err := checklist.Parse([]byte(`{"tabs":[]}`))
		require.NoError(t, err)
		require.Empty(t, got.Questions())
	})
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{name: "not a document", doc: `{"tabs": [`},
		{name: "top-level array", doc: `[]`},
		{name: "missing tabs", doc: `{"sections": []}`},
		{name: "question without title", doc: `{"tabs":[{"id":"t","label":"T","questions":[{"id":"q1"}]}]}`},
		{name: "empty question id", doc: `{"tabs":[{"id":"t","label":"T","questions":[{"id":"","title":"x"}]}]}`},
		{name: "wrong type", doc: `{"tabs":[{"id":"t","label":"T","questions":"q1"}]}`},
		{
			name: "duplicate question id",
			doc: `{"tabs":[{"id":"a","label":"A","questions":[{"id":"q1","title":"x"}]},` +
				`{"id":"b","label":"B","questions":[{"id":"q1","title":"y"}]}]}`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := checklist.Parse([]byte(tt.doc))
			require.ErrorIs(t, err, checklist.ErrInvalid)
		})
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "checklist.yaml")
	require.NoError(t, os.WriteFile(path, []byte(yamlChecklist), 0o600))

	got, err := checklist.Load(path)
	require.NoError(t, err)
	require.Len(t, got.Questions(), 3)

	_, err = checklist.Load(filepath.Join(dir, "missing.json"))
	require.ErrorIs(t, err, os.ErrNotExist)
}
