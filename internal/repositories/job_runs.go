package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/desertthunder/trendrank/internal/models"
	"github.com/desertthunder/trendrank/internal/shared"
	"github.com/jmoiron/sqlx"
)

// JobRunRepository records pipeline job invocations in job_runs.
type JobRunRepository struct {
	db *sqlx.DB
}

// NewJobRunRepository creates a new [JobRunRepository] with the given database connection.
func NewJobRunRepository(db *sqlx.DB) *JobRunRepository {
	return &JobRunRepository{db: db}
}

// Start inserts a running job record with a fresh id.
func (r *JobRunRepository) Start(ctx context.Context, job, targetDate string, startedAt time.Time) (*models.JobRun, error) {
	run := &models.JobRun{
		ID:         shared.GenerateID(),
		Job:        job,
		TargetDate: targetDate,
		Status:     models.JobRunning,
		StartedAt:  models.Timestamp(startedAt),
	}

	query := `
		INSERT INTO job_runs (id, job, target_date, status, started_at, finished_at, rows_written, error)
		VALUES (:id, :job, :target_date, :status, :started_at, :finished_at, :rows_written, :error)
	`
	if _, err := r.db.NamedExecContext(ctx, query, run); err != nil {
		return nil, fmt.Errorf("failed to record job start: %w", err)
	}

	return run, nil
}

// Finish marks run as succeeded, or failed when runErr is non-nil.
func (r *JobRunRepository) Finish(ctx context.Context, run *models.JobRun, finishedAt time.Time, rowsWritten int, runErr error) error {
	run.Status = models.JobSucceeded
	run.Error = nil
	if runErr != nil {
		run.Status = models.JobFailed
		run.Error = models.StringPtr(runErr.Error())
	}
	run.FinishedAt = models.StringPtr(models.Timestamp(finishedAt))
	run.RowsWritten = rowsWritten

	query := `
		UPDATE job_runs
		SET status = :status, finished_at = :finished_at, rows_written = :rows_written, error = :error
		WHERE id = :id
	`
	result, err := r.db.NamedExecContext(ctx, query, run)
	if err != nil {
		return fmt.Errorf("failed to record job finish: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: job run %s", shared.ErrNotFound, run.ID)
	}

	return nil
}

// Get retrieves a job run by id.
func (r *JobRunRepository) Get(ctx context.Context, id string) (*models.JobRun, error) {
	runs, err := selectAll[models.JobRun](ctx, r.db, `SELECT * FROM job_runs WHERE id = ?`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get job run: %w", err)
	}
	if len(runs) == 0 {
		return nil, fmt.Errorf("%w: job run %s", shared.ErrNotFound, id)
	}
	return &runs[0], nil
}

// List returns the most recent runs, newest first. An empty job matches every job.
func (r *JobRunRepository) List(ctx context.Context, job string, limit int) ([]models.JobRun, error) {
	query := `SELECT * FROM job_runs`
	args := []any{}

	if job != "" {
		query += " WHERE job = ?"
		args = append(args, job)
	}

	query += " ORDER BY started_at DESC, id"
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	runs, err := selectAll[models.JobRun](ctx, r.db, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list job runs: %w", err)
	}
	return runs, nil
}
