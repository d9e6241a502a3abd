package main

import (
	"net/http"
	"os"

	"github.com/myrjola/ace/internal/checklist"
	"github.com/myrjola/ace/internal/errors"
)

// reviewChecklist serves the checklist document from the media directory after validating it, so that a broken
// document fails here instead of in the UI.
func (app *application) reviewChecklist(w http.ResponseWriter, r *http.Request) {
	c, err := checklist.Load(app.cfg.ChecklistPath())
	switch {
	case errors.Is(err, os.ErrNotExist):
		app.clientError(w, r, http.StatusNotFound, map[string]any{"error": "Checklist not found."})
	case err != nil:
		app.serverError(w, r, err, map[string]any{"error": "Checklist is invalid."})
	default:
		app.writeJSON(w, r, http.StatusOK, c)
	}
}
