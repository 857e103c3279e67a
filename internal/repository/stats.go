package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/LYTE-studios/werkr-engine/internal/models"
	"github.com/LYTE-studios/werkr-engine/internal/stats"
)

func (s *Store) ListTimeRegistrations(ctx context.Context, workerID uuid.UUID, from, to time.Time) ([]models.TimeRegistration, error) {
	rows, err := s.q.QueryContext(ctx, `
		SELECT id, job_id, worker_id, start_time, end_time
		FROM time_registrations
		WHERE worker_id = $1 AND start_time >= $2 AND start_time < $3
		ORDER BY start_time`,
		workerID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.TimeRegistration
	for rows.Next() {
		var r models.TimeRegistration
		if err := rows.Scan(&r.ID, &r.JobID, &r.WorkerID, &r.StartTime, &r.EndTime); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// ListUpcomingShifts returns the worker's approved shifts whose job has not
// run yet. Archived jobs are excluded so cancelled slots never count as
// upcoming work.
func (s *Store) ListUpcomingShifts(ctx context.Context, workerID uuid.UUID, from, to time.Time) ([]stats.Shift, error) {
	rows, err := s.q.QueryContext(ctx, `
		SELECT j.id, j.start_time, j.end_time
		FROM job_applications a
		JOIN jobs j ON j.id = a.job_id
		WHERE a.worker_id = $1
		  AND a.state = $2
		  AND j.state IN ($3, $4)
		  AND NOT j.archived
		  AND j.start_time >= $5 AND j.start_time < $6
		ORDER BY j.start_time`,
		workerID, models.ApplicationStateApproved,
		models.JobStatePending, models.JobStateFulfilled, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []stats.Shift
	for rows.Next() {
		var sh stats.Shift
		if err := rows.Scan(&sh.JobID, &sh.Start, &sh.End); err != nil {
			return nil, err
		}
		out = append(out, sh)
	}
	return out, rows.Err()
}
