package media_test

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/myrjola/ace/internal/media"
	"github.com/stretchr/testify/require"
)

// TestHelperProcess is not a real test. ExecRunner tests execute the test binary itself with
// ACE_WANT_HELPER_PROCESS set to emulate an external tool.
func TestHelperProcess(_ *testing.T) {
	if os.Getenv("ACE_WANT_HELPER_PROCESS") != "1" {
		return
	}
	args := os.Args
	for len(args) > 0 && args[0] != "--" {
		args = args[1:]
	}
	if len(args) < 2 { //nolint:mnd // "--" and the exit code
		os.Exit(2) //nolint:mnd // usage error
	}
	code, _ := strconv.Atoi(args[1])
	_, _ = fmt.Fprint(os.Stdout, "12.5\n")
	if code != 0 {
		_, _ = fmt.Fprint(os.Stderr, "Invalid data found when processing input\n")
	}
	os.Exit(code)
}

func TestExecRunner(t *testing.T) {
	t.Setenv("ACE_WANT_HELPER_PROCESS", "1")
	ctx := context.Background()
	runner := media.ExecRunner{}

	t.Run("success with output", func(t *testing.T) {
		result, err := runner.Run(ctx, os.Args[0], "-test.run=TestHelperProcess", "--", "0")
		require.NoError(t, err)
		require.Equal(t, media.StatusOK, result.Status)
		require.Equal(t, "12.5\n", string(result.Stdout))
		require.NoError(t, result.Err("helper"))
	})

	t.Run("non-zero exit", func(t *testing.T) {
		result, err := runner.Run(ctx, os.Args[0], "-test.run=TestHelperProcess", "--", "3")
		require.NoError(t, err)
		require.Equal(t, media.StatusExited, result.Status)
		require.Equal(t, 3, result.ExitCode)
		resultErr := result.Err("helper")
		require.ErrorIs(t, resultErr, media.ErrToolFailed)
		require.Contains(t, resultErr.Error(), "Invalid data found when processing input")
	})

	t.Run("missing executable on PATH", func(t *testing.T) {
		result, err := runner.Run(ctx, "ace-definitely-not-installed")
		require.NoError(t, err)
		require.Equal(t, media.StatusNotFound, result.Status)
		require.ErrorIs(t, result.Err("ace-definitely-not-installed"), media.ErrToolNotFound)
	})

	t.Run("missing executable path", func(t *testing.T) {
		result, err := runner.Run(ctx, filepath.Join(t.TempDir(), "ffmpeg"))
		require.NoError(t, err)
		require.Equal(t, media.StatusNotFound, result.Status)
	})
}
