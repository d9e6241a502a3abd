package main

import (
	"net/http"
	"time"
)

// readTimeout bounds the routes that only read the cache or the run log.
const readTimeout = 5 * time.Second

const timeoutBody = `{"error":"Request timed out."}`

// timeoutHandler responds with a 503 Service Unavailable JSON error when h does not meet the deadline.
//
// Generating routes must not be wrapped. A transcription can run for minutes.
func timeoutHandler(h http.HandlerFunc, timeout time.Duration) http.Handler {
	return jsonContentType(http.TimeoutHandler(h, timeout, timeoutBody))
}

// jsonContentType sets the content type on the outer writer, which is the one the timeout body is written to.
func jsonContentType(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		next.ServeHTTP(w, r)
	})
}
