package main

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/myrjola/ace/internal/errors"
	"github.com/myrjola/ace/internal/logging"
	"github.com/myrjola/ace/internal/models"
	"github.com/myrjola/ace/internal/workspace"
)

type transcriptResponse struct {
	Segments  []models.TranscriptSegment `json:"segments"`
	CreatedAt *time.Time                 `json:"createdAt,omitempty"`
	Source    workspace.Source           `json:"source,omitempty"`
	Error     string                     `json:"error,omitempty"`
}

func (app *application) transcript(w http.ResponseWriter, r *http.Request) {
	videoID := r.PathValue("videoID")
	ctx := logging.WithAttrs(r.Context(), slog.String("video_id", videoID))
	r = r.WithContext(ctx)

	result, err := app.workspace.Transcript(ctx, videoID)
	switch {
	case errors.Is(err, workspace.ErrVideoNotFound):
		app.clientError(w, r, http.StatusNotFound, transcriptResponse{
			Segments: []models.TranscriptSegment{},
			Error:    "Video not found.",
		})
	case err != nil:
		app.serverError(w, r, err, transcriptResponse{
			Segments: []models.TranscriptSegment{},
			Error:    err.Error(),
		})
	default:
		app.writeJSON(w, r, http.StatusOK, transcriptResponse{
			Segments:  result.Segments,
			CreatedAt: result.CreatedAt,
			Source:    result.Source,
		})
	}
}
