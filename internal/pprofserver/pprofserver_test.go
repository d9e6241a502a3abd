package pprofserver_test

import (
	"context"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/myrjola/ace/internal/pprofserver"
	"github.com/myrjola/ace/internal/testhelpers"
	"github.com/stretchr/testify/require"
)

func TestLoopbackAddr(t *testing.T) {
	require.Equal(t, "[::1]:6060", pprofserver.LoopbackAddr(":6060"))
	require.Equal(t, "[::1]:6060", pprofserver.LoopbackAddr("6060"))
	require.Equal(t, "127.0.0.1:6060", pprofserver.LoopbackAddr("127.0.0.1:6060"))
}

func TestHandle(t *testing.T) {
	mux := http.NewServeMux()
	pprofserver.Handle(mux)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/debug/pprof/", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "goroutine")
}

func TestLaunch(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := listener.Addr().String()
	require.NoError(t, listener.Close())

	metricsHandler := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("ace_generation_runs_total 1\n"))
	})
	pprofserver.Launch(ctx, addr, metricsHandler, testhelpers.NewLogger(io.Discard))

	var body []byte
	require.Eventually(t, func() bool {
		resp, getErr := http.Get("http://" + addr + "/metrics") //nolint:noctx // test
		if getErr != nil {
			return false
		}
		defer resp.Body.Close()
		body, _ = io.ReadAll(resp.Body)
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 20*time.Millisecond)
	require.Contains(t, string(body), "ace_generation_runs_total")
}
