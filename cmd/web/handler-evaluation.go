package main

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/myrjola/ace/internal/errors"
	"github.com/myrjola/ace/internal/logging"
	"github.com/myrjola/ace/internal/models"
	"github.com/myrjola/ace/internal/workspace"
)

const maxEvaluationRequestBytes = 16 << 20

type evaluationRequest struct {
	Checklist  *models.Checklist          `json:"checklist"`
	Transcript []models.TranscriptSegment `json:"transcript"`
}

type evaluationResponse struct {
	Evaluations []models.AiEvaluation `json:"evaluations"`
	CreatedAt   *time.Time            `json:"createdAt,omitempty"`
	Source      workspace.Source      `json:"source,omitempty"`
	Error       string                `json:"error,omitempty"`
}

func (app *application) storedEvaluation(w http.ResponseWriter, r *http.Request) {
	videoID := r.PathValue("videoID")
	r = r.WithContext(logging.WithAttrs(r.Context(), slog.String("video_id", videoID)))

	result, err := app.workspace.StoredEvaluation(r.Context(), videoID)
	if err != nil {
		app.evaluationError(w, r, err)
		return
	}
	app.writeJSON(w, r, http.StatusOK, evaluationResponse{
		Evaluations: result.Evaluations,
		Source:      result.Source,
	})
}

func (app *application) evaluate(w http.ResponseWriter, r *http.Request) {
	videoID := r.PathValue("videoID")
	r = r.WithContext(logging.WithAttrs(r.Context(), slog.String("video_id", videoID)))

	// An unreadable body is treated like a missing one. A cached evaluation is served regardless.
	var req evaluationRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxEvaluationRequestBytes)).Decode(&req); err != nil {
		app.logger.LogAttrs(r.Context(), slog.LevelDebug, "could not decode evaluation request", errors.SlogError(err))
		req = evaluationRequest{Checklist: nil, Transcript: nil}
	}

	result, err := app.workspace.Evaluate(r.Context(), videoID, req.Checklist, req.Transcript)
	if err != nil {
		app.evaluationError(w, r, err)
		return
	}
	app.writeJSON(w, r, http.StatusOK, evaluationResponse{
		Evaluations: result.Evaluations,
		CreatedAt:   result.CreatedAt,
		Source:      result.Source,
	})
}

func (app *application) evaluationError(w http.ResponseWriter, r *http.Request, err error) {
	body := evaluationResponse{Evaluations: []models.AiEvaluation{}, Error: err.Error()}
	switch {
	case errors.Is(err, workspace.ErrNoStoredEvaluation):
		body.Error = workspace.ErrNoStoredEvaluation.Error()
		app.clientError(w, r, http.StatusNotFound, body)
	case errors.Is(err, workspace.ErrMissingInput):
		body.Error = workspace.ErrMissingInput.Error()
		app.clientError(w, r, http.StatusBadRequest, body)
	case errors.Is(err, workspace.ErrVideoNotFound):
		body.Error = "Video not found."
		app.clientError(w, r, http.StatusNotFound, body)
	default:
		app.serverError(w, r, err, body)
	}
}
