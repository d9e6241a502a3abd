// Package pprofserver exposes net/http/pprof, and optionally the metrics endpoint, on a separate loopback
// listener so that neither is served to the public address.
package pprofserver

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"net/http/pprof"
	"time"

	"github.com/myrjola/ace/internal/errors"
)

func Handle(mux *http.ServeMux) {
	mux.HandleFunc("/debug/pprof/", pprof.Index)
	mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
	mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
}

// LoopbackAddr binds port (e.g. ":6060" or "6060") to the IPv6 loopback address.
func LoopbackAddr(port string) string {
	if host, p, err := net.SplitHostPort(port); err == nil {
		if host != "" {
			return port
		}
		port = p
	}
	return net.JoinHostPort("::1", port)
}

// Launch serves pprof at the loopback address for port until ctx is done. A non-nil metricsHandler is served at
// /metrics. Failures are logged and do not stop the application.
func Launch(ctx context.Context, port string, metricsHandler http.Handler, logger *slog.Logger) {
	mux := http.NewServeMux()
	Handle(mux)
	if metricsHandler != nil {
		mux.Handle("GET /metrics", metricsHandler)
	}
	addr := LoopbackAddr(port)
	srv := &http.Server{ //nolint:exhaustruct // profiling only
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
	go func() {
		logger.LogAttrs(ctx, slog.LevelInfo, "starting pprof server", slog.String("pprof_addr", addr))
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			logger.LogAttrs(ctx, slog.LevelError, "pprof server failed",
				errors.SlogError(errors.Wrap(err, "listen and serve pprof")))
		}
	}()
}
