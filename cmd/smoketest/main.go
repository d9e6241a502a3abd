package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/myrjola/ace/internal/e2etest"
	"github.com/myrjola/ace/internal/errors"
	"github.com/myrjola/ace/internal/logging"
)

// TestEndpoints checks that the deployment answers health checks and serves the stored evaluation of the default
// video. The read-only route is used so that the smoke test never starts a generation. A missing evaluation is
// acceptable, a server error is not.
func TestEndpoints(client *e2etest.Client) error {
	ctx := context.Background()
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second) //nolint:mnd // 10 seconds
	defer cancel()

	if err := client.WaitForReady(ctx, "/api/healthy"); err != nil {
		return errors.Wrap(err, "wait for healthy")
	}
	if client.CSRFToken() == "" {
		return errors.New("health check did not return a CSRF token")
	}

	var body struct {
		Error string `json:"error"`
	}
	status, err := client.GetJSON(ctx, "/api/evaluate", &body)
	if err != nil {
		return errors.Wrap(err, "get stored evaluation")
	}
	if status != http.StatusOK && status != http.StatusNotFound {
		return errors.New("unexpected evaluation status", slog.Int("status", status), slog.String("error", body.Error))
	}
	return nil
}

func main() {
	logger := logging.NewLogger(os.Stdout, slog.LevelDebug, nil)
	ctx := context.Background()

	if len(os.Args) != 2 { //nolint:mnd // we expect only hostname to be passed as argument.
		logger.LogAttrs(ctx, slog.LevelError, "usage: smoketest <hostname>")
		os.Exit(1)
	}

	var (
		hostname = os.Args[1]
		url      = "https://" + hostname
		client   *e2etest.Client
		err      error
	)
	ctx = logging.WithAttrs(ctx, slog.String("hostname", url))

	if client, err = e2etest.NewClient(url); err != nil {
		logger.LogAttrs(ctx, slog.LevelError, "error creating client", errors.SlogError(err))
		os.Exit(1)
	}
	if err = TestEndpoints(client); err != nil {
		logger.LogAttrs(ctx, slog.LevelError, "error testing endpoints", errors.SlogError(err))
		os.Exit(1)
	}

	logger.LogAttrs(ctx, slog.LevelInfo, "Smoke test successful 🙌")
	os.Exit(0)
}
