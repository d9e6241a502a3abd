package main

import (
	"fmt"
	"log/slog"
	"mime"
	"net/http"

	"github.com/justinas/nosurf"
	"github.com/klauspost/compress/gzhttp"
	"github.com/myrjola/ace/internal/logging"
	"github.com/myrjola/ace/internal/random"
)

func secureHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Security-Policy", "default-src 'self'; object-src 'none'; base-uri 'none';")
		w.Header().Set("Referrer-Policy", "origin-when-cross-origin")
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "deny")
		w.Header().Set("X-XSS-Protection", "0")

		next.ServeHTTP(w, r)
	})
}

// compressResponse gzips responses for clients that accept it. Transcripts of long sessions are large JSON
// documents, small responses are sent as is.
func compressResponse(next http.Handler) http.Handler {
	return gzhttp.GzipHandler(next)
}

// logRequest attaches request attributes to the context so that every log line of the request carries them.
func (app *application) logRequest(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID, err := random.Letters(8) //nolint:mnd // short IDs are enough to correlate log lines.
		if err != nil {
			requestID = "unknown"
		}
		ctx := logging.WithAttrs(r.Context(),
			slog.String("request_id", requestID),
			slog.String("method", r.Method),
			slog.String("uri", r.URL.RequestURI()),
		)
		r = r.WithContext(ctx)
		app.logger.LogAttrs(ctx, slog.LevelDebug, "received request", slog.String("proto", r.Proto))

		next.ServeHTTP(w, r)
	})
}

func (app *application) recoverPanic(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				w.Header().Set("Connection", "close")
				app.serverError(w, r, fmt.Errorf("%s", err), map[string]any{"error": "Internal server error."})
			}
		}()

		next.ServeHTTP(w, r)
	})
}

// noSurf implements CSRF protection using https://github.com/justinas/nosurf. Unsafe requests must echo the
// token from the X-CSRF-Token response header.
//
// The evaluation routes are posted to by the review UI without a token. They are guarded by [requireJSON] instead.
func (app *application) noSurf(next http.Handler) http.Handler {
	csrfHandler := nosurf.New(next)
	csrfHandler.ExemptPath("/api/evaluate")
	csrfHandler.ExemptGlob("/api/videos/*/evaluation")
	csrfHandler.SetBaseCookie(http.Cookie{ //nolint:exhaustruct // defaults are fine for the rest
		HttpOnly: true,
		Path:     "/",
		Secure:   true,
		SameSite: http.SameSiteStrictMode,
	})
	csrfHandler.SetFailureHandler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		app.logger.LogAttrs(r.Context(), slog.LevelWarn, "CSRF check failed",
			slog.String("reason", fmt.Sprint(nosurf.Reason(r))))
		app.writeJSON(w, r, http.StatusForbidden, map[string]any{"error": "Invalid CSRF token."})
	}))
	return csrfHandler
}

// requireJSON rejects request bodies that are not declared as JSON. A cross-site form or a no-cors fetch cannot
// send application/json without a CORS preflight.
func (app *application) requireJSON(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
		if err != nil || mediaType != "application/json" {
			app.clientError(w, r, http.StatusUnsupportedMediaType,
				map[string]any{"error": "Content-Type must be application/json."})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// csrfTokenHeader exposes the CSRF token to API clients.
func csrfTokenHeader(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(nosurf.HeaderName, nosurf.Token(r))
		next.ServeHTTP(w, r)
	})
}
