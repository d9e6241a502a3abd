package main

import (
	"net/http"
	"strconv"

	"github.com/myrjola/ace/internal/models"
)

const (
	defaultRunsLimit = 20
	maxRunsLimit     = 200
)

type runsResponse struct {
	Runs  []models.GenerationRun `json:"runs"`
	Error string                 `json:"error,omitempty"`
}

func (app *application) listRuns(w http.ResponseWriter, r *http.Request) {
	limit := defaultRunsLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxRunsLimit {
			app.clientError(w, r, http.StatusBadRequest, runsResponse{
				Runs:  []models.GenerationRun{},
				Error: "limit must be between 1 and " + strconv.Itoa(maxRunsLimit) + ".",
			})
			return
		}
		limit = n
	}

	runs, err := app.runs.List(r.Context(), limit)
	if err != nil {
		app.serverError(w, r, err, runsResponse{Runs: []models.GenerationRun{}, Error: "Could not list runs."})
		return
	}
	app.writeJSON(w, r, http.StatusOK, runsResponse{Runs: runs, Error: ""})
}
