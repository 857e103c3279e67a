package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"

	domainerr "github.com/LYTE-studios/werkr-engine/internal/common/errors"
	"github.com/LYTE-studios/werkr-engine/internal/models"
)

const applicationColumns = `id, job_id, worker_id, address, state, distance, no_travel_cost, created_at`

func scanApplication(row *sql.Row) (*models.JobApplication, error) {
	var a models.JobApplication
	err := row.Scan(
		&a.ID, &a.JobID, &a.WorkerID, &a.Address, &a.State,
		&a.Distance, &a.NoTravelCost, &a.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (s *Store) GetApplication(ctx context.Context, id uuid.UUID) (*models.JobApplication, error) {
	row := s.q.QueryRowContext(ctx,
		`SELECT `+applicationColumns+` FROM job_applications WHERE id = $1`, id)
	a, err := scanApplication(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domainerr.NewNotFound("application", id.String())
	}
	return a, err
}

func (s *Store) GetApplicationForUpdate(ctx context.Context, id uuid.UUID) (*models.JobApplication, error) {
	row := s.q.QueryRowContext(ctx,
		`SELECT `+applicationColumns+` FROM job_applications WHERE id = $1 FOR UPDATE`, id)
	a, err := scanApplication(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domainerr.NewNotFound("application", id.String())
	}
	return a, err
}

func (s *Store) CreateApplication(ctx context.Context, app *models.JobApplication) error {
	_, err := s.q.ExecContext(ctx, `
		INSERT INTO job_applications (id, job_id, worker_id, address, state, distance, no_travel_cost, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		app.ID, app.JobID, app.WorkerID, app.Address, app.State,
		app.Distance, app.NoTravelCost, app.CreatedAt,
	)
	return err
}

func (s *Store) SetApplicationState(ctx context.Context, id uuid.UUID, state models.ApplicationState) error {
	res, err := s.q.ExecContext(ctx,
		`UPDATE job_applications SET state = $2 WHERE id = $1`, id, state)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domainerr.NewNotFound("application", id.String())
	}
	return nil
}

func (s *Store) CountApprovedApplications(ctx context.Context, jobID uuid.UUID) (int, error) {
	var count int
	err := s.q.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM job_applications WHERE job_id = $1 AND state = $2`,
		jobID, models.ApplicationStateApproved).Scan(&count)
	return count, err
}

func (s *Store) ListPendingApplications(ctx context.Context, jobID uuid.UUID) ([]models.JobApplication, error) {
	return s.listApplicationsByState(ctx, jobID, models.ApplicationStatePending)
}

func (s *Store) ListApprovedApplications(ctx context.Context, jobID uuid.UUID) ([]models.JobApplication, error) {
	return s.listApplicationsByState(ctx, jobID, models.ApplicationStateApproved)
}

func (s *Store) listApplicationsByState(ctx context.Context, jobID uuid.UUID, state models.ApplicationState) ([]models.JobApplication, error) {
	rows, err := s.q.QueryContext(ctx,
		`SELECT `+applicationColumns+` FROM job_applications
		 WHERE job_id = $1 AND state = $2
		 ORDER BY created_at`,
		jobID, state)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.JobApplication
	for rows.Next() {
		var a models.JobApplication
		if err := rows.Scan(
			&a.ID, &a.JobID, &a.WorkerID, &a.Address, &a.State,
			&a.Distance, &a.NoTravelCost, &a.CreatedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// ListWorkerApplicationWindows returns the worker's pending and approved
// applications joined to their job time windows, excluding archived jobs and
// the given application. Inside a transaction the application rows are
// locked so two concurrent approvals for the same worker serialize.
func (s *Store) ListWorkerApplicationWindows(ctx context.Context, workerID, exclude uuid.UUID) ([]models.ApplicationWindow, error) {
	rows, err := s.q.QueryContext(ctx, `
		SELECT a.id, a.job_id, a.worker_id, a.address, a.state, a.distance, a.no_travel_cost, a.created_at,
		       j.start_time, j.end_time
		FROM job_applications a
		JOIN jobs j ON j.id = a.job_id
		WHERE a.worker_id = $1
		  AND a.id <> $2
		  AND a.state IN ($3, $4)
		  AND NOT j.archived
		ORDER BY a.created_at
		FOR UPDATE OF a`,
		workerID, exclude,
		models.ApplicationStatePending, models.ApplicationStateApproved)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.ApplicationWindow
	for rows.Next() {
		var w models.ApplicationWindow
		a := &w.Application
		if err := rows.Scan(
			&a.ID, &a.JobID, &a.WorkerID, &a.Address, &a.State,
			&a.Distance, &a.NoTravelCost, &a.CreatedAt,
			&w.JobStart, &w.JobEnd,
		); err != nil {
			return nil, err
		}
		out = append(out, w)
	}
	return out, rows.Err()
}
