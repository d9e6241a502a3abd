package repositories

import (
	"context"
	"log/slog"
	"time"

	"github.com/myrjola/ace/internal/errors"
	"github.com/myrjola/ace/internal/models"
	"github.com/myrjola/ace/internal/sqlite"
)

// RunRepository keeps the log of transcript and evaluation generation attempts.
type RunRepository struct {
	db     *sqlite.Database
	logger *slog.Logger
}

func NewRunRepository(db *sqlite.Database, logger *slog.Logger) *RunRepository {
	return &RunRepository{
		db:     db,
		logger: logger.With("source", "RunRepository"),
	}
}

// Record appends run to the log and returns it with the assigned ID.
func (r *RunRepository) Record(ctx context.Context, run models.GenerationRun) (models.GenerationRun, error) {
	if run.Created.IsZero() {
		run.Created = time.Now()
	}
	run.Created = run.Created.UTC()

	stmt := `INSERT INTO generation_runs (kind, artifact_key, status, error_message, item_count, duration_ns, created)
VALUES (:kind, :artifact_key, :status, :error_message, :item_count, :duration_ns, :created)`
	result, err := r.db.ReadWrite.NamedExecContext(ctx, stmt, run)
	if err != nil {
		return run, errors.Wrap(err, "insert generation run",
			slog.String("kind", string(run.Kind)), slog.String("artifact_key", run.ArtifactKey))
	}
	if run.ID, err = result.LastInsertId(); err != nil {
		return run, errors.Wrap(err, "read generation run id")
	}
	return run, nil
}

// List returns the most recent runs first.
func (r *RunRepository) List(ctx context.Context, limit int) ([]models.GenerationRun, error) {
	runs := []models.GenerationRun{}
	stmt := `SELECT id, kind, artifact_key, status, error_message, item_count, duration_ns, created
FROM generation_runs
ORDER BY created DESC, id DESC
LIMIT ?`
	if err := r.db.ReadOnly.SelectContext(ctx, &runs, stmt, limit); err != nil {
		return nil, errors.Wrap(err, "select generation runs", slog.Int("limit", limit))
	}
	return runs, nil
}
