package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"

	domainerr "github.com/LYTE-studios/werkr-engine/internal/common/errors"
	"github.com/LYTE-studios/werkr-engine/internal/models"
)

const jobColumns = `id, customer_id, title, start_time, end_time,
	application_start_time, application_end_time,
	max_workers, selected_workers, state, is_draft, archived`

func scanJob(row *sql.Row) (*models.Job, error) {
	var j models.Job
	err := row.Scan(
		&j.ID, &j.CustomerID, &j.Title, &j.StartTime, &j.EndTime,
		&j.ApplicationStartTime, &j.ApplicationEndTime,
		&j.MaxWorkers, &j.SelectedWorkers, &j.State, &j.IsDraft, &j.Archived,
	)
	if err != nil {
		return nil, err
	}
	return &j, nil
}

func (s *Store) GetJob(ctx context.Context, id uuid.UUID) (*models.Job, error) {
	row := s.q.QueryRowContext(ctx, `SELECT `+jobColumns+` FROM jobs WHERE id = $1`, id)
	j, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domainerr.NewNotFound("job", id.String())
	}
	return j, err
}

// GetJobForUpdate loads the job with a row lock so concurrent transitions on
// the same job serialize.
func (s *Store) GetJobForUpdate(ctx context.Context, id uuid.UUID) (*models.Job, error) {
	row := s.q.QueryRowContext(ctx, `SELECT `+jobColumns+` FROM jobs WHERE id = $1 FOR UPDATE`, id)
	j, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domainerr.NewNotFound("job", id.String())
	}
	return j, err
}

func (s *Store) SetJobState(ctx context.Context, id uuid.UUID, state models.JobState) error {
	res, err := s.q.ExecContext(ctx, `UPDATE jobs SET state = $2 WHERE id = $1`, id, state)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domainerr.NewNotFound("job", id.String())
	}
	return nil
}

// UpdateSelectedWorkers writes the derived counter only when the stored
// value differs, compare-and-set style, and reports whether a write
// happened.
func (s *Store) UpdateSelectedWorkers(ctx context.Context, jobID uuid.UUID, count int) (bool, error) {
	res, err := s.q.ExecContext(ctx,
		`UPDATE jobs SET selected_workers = $2 WHERE id = $1 AND selected_workers <> $2`,
		jobID, count)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
