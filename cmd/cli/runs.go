package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/mattn/go-runewidth"
	"github.com/myrjola/ace/internal/errors"
	"github.com/myrjola/ace/internal/models"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

const maxErrorWidth = 48

func newRunsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "Print the most recent generation runs",
		Long: `Prints the most recent generation runs, newest first. The output is a table on a terminal and JSON
otherwise, unless --json is given.`,
		Args: cobra.NoArgs,
	}
	limit := cmd.Flags().Int("limit", 20, "maximum number of runs to print") //nolint:mnd // default page size
	asJSON := cmd.Flags().Bool("json", false, "print JSON even on a terminal")

	cmd.RunE = withEnvironment(func(cmd *cobra.Command, env *environment, _ []string) error {
		if *limit < 1 {
			return errors.New("limit must be positive")
		}
		runs, err := env.runs.List(cmd.Context(), *limit)
		if err != nil {
			return errors.Wrap(err, "list runs")
		}
		out := cmd.OutOrStdout()
		if *asJSON || !isTerminal(out) {
			return writeJSON(out, runs)
		}
		return writeRunsTable(out, runs)
	})
	return cmd
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

func writeRunsTable(w io.Writer, runs []models.GenerationRun) error {
	header := []string{"CREATED", "KIND", "KEY", "STATUS", "ITEMS", "DURATION", "ERROR"}
	rows := make([][]string, 0, len(runs))
	for _, run := range runs {
		rows = append(rows, []string{
			run.Created.Local().Format(time.DateTime),
			string(run.Kind),
			run.ArtifactKey,
			string(run.Status),
			fmt.Sprint(run.ItemCount),
			run.Duration.Round(time.Millisecond).String(),
			runewidth.Truncate(strings.Join(strings.Fields(run.ErrorMessage), " "), maxErrorWidth, "…"),
		})
	}

	widths := make([]int, len(header))
	for _, row := range append([][]string{header}, rows...) {
		for i, cell := range row {
			widths[i] = max(widths[i], runewidth.StringWidth(cell))
		}
	}

	var b strings.Builder
	for _, row := range append([][]string{header}, rows...) {
		for i, cell := range row {
			if i == len(row)-1 {
				b.WriteString(cell)
				break
			}
			b.WriteString(runewidth.FillRight(cell, widths[i]+2)) //nolint:mnd // column gap
		}
		b.WriteString("\n")
	}
	if _, err := io.WriteString(w, b.String()); err != nil {
		return errors.Wrap(err, "write table")
	}
	return nil
}
