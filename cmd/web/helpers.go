package main

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/myrjola/ace/internal/errors"
)

func (app *application) writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		app.logger.LogAttrs(r.Context(), slog.LevelError, "failed to marshal response",
			errors.SlogError(errors.Wrap(err, "marshal response")))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err = w.Write(body); err != nil {
		app.logger.LogAttrs(r.Context(), slog.LevelDebug, "failed to write response", errors.SlogError(err))
	}
}

// serverError logs err and responds with 500 and body.
func (app *application) serverError(w http.ResponseWriter, r *http.Request, err error, body any) {
	app.logger.LogAttrs(r.Context(), slog.LevelError, "server error", errors.SlogError(err))
	app.writeJSON(w, r, http.StatusInternalServerError, body)
}

func (app *application) clientError(w http.ResponseWriter, r *http.Request, status int, body any) {
	app.logger.LogAttrs(r.Context(), slog.LevelDebug, http.StatusText(status))
	app.writeJSON(w, r, status, body)
}

func (app *application) notFound(w http.ResponseWriter, r *http.Request) {
	app.clientError(w, r, http.StatusNotFound, map[string]any{"error": "Not found."})
}

// defaultVideo serves h for the configured default video.
func (app *application) defaultVideo(h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.SetPathValue("videoID", app.cfg.DefaultVideo)
		h(w, r)
	}
}
