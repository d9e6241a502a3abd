package e2etest

import (
	"context"
	"io"
	"log/slog"
	"net/url"

	"github.com/myrjola/ace/internal/errors"
	"github.com/myrjola/ace/internal/logging"
)

// LogAddrKey is the log attribute under which the application reports its listen address.
const LogAddrKey = "addr"

// RunFunc starts the application and blocks until ctx is done. It has the signature of the run function in
// cmd/web.
type RunFunc func(ctx context.Context, logger *slog.Logger, lookupEnv func(string) (string, bool)) error

// Server is an application instance started by [StartServer].
type Server struct {
	url    string
	client *Client
	stop   context.CancelFunc
	done   chan error
}

// StartServer runs the application in a goroutine and returns once its health check answers.
//
// The listen address is taken from the first log record carrying [LogAddrKey], so configure the application to
// listen on port 0. Logs are written to logSink, usually [io.Discard]. Call [Server.Stop] when done.
func StartServer(
	ctx context.Context,
	logSink io.Writer,
	lookupEnv func(string) (string, bool),
	run RunFunc,
) (*Server, error) {
	ctx, stop := context.WithCancel(ctx)
	addrCh := make(chan string, 1)
	logger := logging.NewLogger(logSink, slog.LevelDebug, func(_ []string, a slog.Attr) slog.Attr {
		if a.Key == LogAddrKey {
			select {
			case addrCh <- a.Value.String():
			default:
			}
		}
		return a
	})

	s := &Server{url: "", client: nil, stop: stop, done: make(chan error, 1)}
	go func() {
		s.done <- run(ctx, logger, lookupEnv)
		close(s.done)
	}()

	var addr string
	select {
	case err := <-s.done:
		stop()
		if err == nil {
			err = errors.New("run returned without error")
		}
		return nil, errors.Wrap(err, "server stopped before it was ready")
	case addr = <-addrCh:
	}

	s.url = (&url.URL{Scheme: "http", Host: addr}).String() //nolint:exhaustruct // scheme and host are enough
	client, err := NewClient(s.url)
	if err != nil {
		s.Stop()
		return nil, errors.Wrap(err, "new client")
	}
	if err = client.WaitForReady(ctx, "/api/healthy"); err != nil {
		s.Stop()
		return nil, errors.Wrap(err, "wait for ready")
	}
	s.client = client
	return s, nil
}

// Stop cancels the application and waits for run to return, so that nothing writes to the data directories
// afterwards. It returns the error of run, if any.
func (s *Server) Stop() error {
	s.stop()
	return <-s.done
}

func (s *Server) Client() *Client {
	return s.client
}

func (s *Server) URL() string {
	return s.url
}
