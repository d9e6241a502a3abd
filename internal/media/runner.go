// Package media runs the external ffmpeg tools used to prepare session recordings for transcription.
package media

import (
	"bytes"
	"context"
	"io/fs"
	"log/slog"
	"os/exec"
	"strings"

	"github.com/myrjola/ace/internal/errors"
)

var (
	// ErrToolNotFound means the executable could not be resolved or does not exist.
	ErrToolNotFound = errors.NewSentinel("media tool not found")
	// ErrToolFailed means the executable ran but exited with a non-zero status.
	ErrToolFailed = errors.NewSentinel("media tool failed")
)

type Status int

const (
	StatusOK Status = iota
	StatusNotFound
	StatusExited
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusNotFound:
		return "not found"
	case StatusExited:
		return "exited"
	default:
		return "unknown"
	}
}

// Result is the outcome of a finished tool invocation.
type Result struct {
	Status   Status
	ExitCode int
	Stdout   []byte
	Stderr   []byte
}

// Err returns nil for a successful run, otherwise an error matching [ErrToolNotFound] or [ErrToolFailed].
// The error message is the tool's trimmed stderr when there is any.
func (r Result) Err(tool string) error {
	switch r.Status {
	case StatusOK:
		return nil
	case StatusNotFound:
		return errors.Wrap(ErrToolNotFound, tool, slog.String("tool", tool))
	default:
		detail := strings.TrimSpace(string(r.Stderr))
		if detail == "" {
			detail = tool + " exited with a non-zero status"
		}
		return errors.Wrap(ErrToolFailed, detail, slog.String("tool", tool), slog.Int("exit_code", r.ExitCode))
	}
}

// Runner runs an executable to completion.
//
// A missing executable and a non-zero exit are reported through [Result.Status]. The error is reserved for
// failures to run at all, e.g. a cancelled context or missing permissions.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) (Result, error)
}

// ExecRunner runs executables with [exec.CommandContext].
type ExecRunner struct{}

func (ExecRunner) Run(ctx context.Context, name string, args ...string) (Result, error) {
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	result := Result{
		Status:   StatusOK,
		ExitCode: 0,
		Stdout:   stdout.Bytes(),
		Stderr:   stderr.Bytes(),
	}
	if err == nil {
		return result, nil
	}

	if errors.Is(err, exec.ErrNotFound) || errors.Is(err, fs.ErrNotExist) {
		result.Status = StatusNotFound
		result.ExitCode = -1
		return result, nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return result, errors.Wrap(ctxErr, "run "+name)
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		result.Status = StatusExited
		result.ExitCode = exitErr.ExitCode()
		return result, nil
	}
	return result, errors.Wrap(err, "run "+name, slog.String("tool", name))
}
