package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/kozaktomas/photo-dedup/internal/database"
)

// JobStore implements database.JobStore on PostgreSQL. The result counters
// are stored as a JSONB document.
type JobStore struct {
	pool *Pool
}

// NewJobStore creates a job store backed by the pool.
func NewJobStore(pool *Pool) *JobStore {
	return &JobStore{pool: pool}
}

// Create inserts a new job record.
func (s *JobStore) Create(ctx context.Context, job *database.DetectionJob) error {
	result, err := marshalResult(job.Result)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO detection_jobs
			(id, owner, progress_current, progress_target, progress_step, result,
			 finished, failed, queued_at, started_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		job.ID, job.Owner, job.ProgressCurrent, job.ProgressTarget, job.ProgressStep,
		result, job.Finished, job.Failed, job.QueuedAt, nullTime(job.StartedAt))
	if err != nil {
		return fmt.Errorf("creating job: %w", err)
	}
	return nil
}

// Update persists progress and outcome changes.
func (s *JobStore) Update(ctx context.Context, job *database.DetectionJob) error {
	result, err := marshalResult(job.Result)
	if err != nil {
		return err
	}
	res, err := s.pool.Exec(ctx, `
		UPDATE detection_jobs
		SET progress_current = $1, progress_target = $2, progress_step = $3,
			result = $4, finished = $5, failed = $6, finished_at = $7
		WHERE id = $8`,
		job.ProgressCurrent, job.ProgressTarget, job.ProgressStep,
		result, job.Finished, job.Failed, nullTime(job.FinishedAt), job.ID)
	if err != nil {
		return fmt.Errorf("updating job %s: %w", job.ID, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking job update: %w", err)
	}
	if affected == 0 {
		return database.ErrNotFound
	}
	return nil
}

// Get retrieves a job by ID.
func (s *JobStore) Get(ctx context.Context, id string) (*database.DetectionJob, error) {
	var j database.DetectionJob
	var result []byte
	var startedAt, finishedAt sql.NullTime

	row := s.pool.QueryRow(ctx, `
		SELECT id, owner, progress_current, progress_target, progress_step, result,
			finished, failed, queued_at, started_at, finished_at
		FROM detection_jobs WHERE id = $1`, id)
	err := row.Scan(&j.ID, &j.Owner, &j.ProgressCurrent, &j.ProgressTarget, &j.ProgressStep,
		&result, &j.Finished, &j.Failed, &j.QueuedAt, &startedAt, &finishedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, database.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting job %s: %w", id, err)
	}

	if len(result) > 0 {
		if err := json.Unmarshal(result, &j.Result); err != nil {
			return nil, fmt.Errorf("decoding job result: %w", err)
		}
	}
	if startedAt.Valid {
		j.StartedAt = startedAt.Time
	}
	if finishedAt.Valid {
		j.FinishedAt = finishedAt.Time
	}
	return &j, nil
}

func marshalResult(result map[string]any) ([]byte, error) {
	if result == nil {
		return []byte("{}"), nil
	}
	data, err := json.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf("encoding job result: %w", err)
	}
	return data, nil
}

func nullTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t
}

var _ database.JobStore = (*JobStore)(nil)
