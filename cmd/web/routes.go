package main

import (
	"net/http"

	"github.com/justinas/alice"
)

func (app *application) routes() http.Handler {
	mux := http.NewServeMux()
	handle := func(pattern string, h http.Handler) {
		mux.Handle(pattern, app.metrics.Instrument(pattern, h))
	}

	fileServer := http.FileServer(http.Dir(app.cfg.MediaDir))
	handle("GET /static/", http.StripPrefix("/static", fileServer))

	handle("GET /api/healthy", timeoutHandler(app.healthy, readTimeout))
	handle("GET /checklist.json", timeoutHandler(app.reviewChecklist, readTimeout))

	handle("GET /api/videos/{videoID}/transcript", http.HandlerFunc(app.transcript))
	handle("GET /api/videos/{videoID}/evaluation", timeoutHandler(app.storedEvaluation, readTimeout))
	handle("POST /api/videos/{videoID}/evaluation", app.requireJSON(http.HandlerFunc(app.evaluate)))
	handle("GET /api/runs", timeoutHandler(app.listRuns, readTimeout))

	// Single video routes used by the review UI.
	handle("GET /route/transcript", app.defaultVideo(app.transcript))
	handle("GET /api/evaluate", timeoutHandler(app.defaultVideo(app.storedEvaluation), readTimeout))
	handle("POST /api/evaluate", app.requireJSON(app.defaultVideo(app.evaluate)))

	mux.HandleFunc("/", app.notFound)

	return alice.New(app.recoverPanic, app.logRequest, secureHeaders, compressResponse, app.noSurf, csrfTokenHeader).
		Then(mux)
}
