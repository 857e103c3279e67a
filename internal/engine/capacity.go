package engine

import (
	"context"

	"github.com/LYTE-studios/werkr-engine/internal/common/logger"
	"github.com/LYTE-studios/werkr-engine/internal/common/metrics"
	"github.com/LYTE-studios/werkr-engine/internal/models"
)

// CapacityCounter recomputes a job's selected-worker count from its approved
// applications and auto-closes the job when capacity is reached. The approved
// count is the source of truth; selected_workers is only a cache. The
// operation is convergent: calling it repeatedly always leaves the job
// consistent with the current approved count.
type CapacityCounter struct {
	log logger.Logger
}

func NewCapacityCounter(log logger.Logger) *CapacityCounter {
	return &CapacityCounter{log: log}
}

// CapacityResult describes what a recalculation changed.
type CapacityResult struct {
	Count    int
	Closed   bool // job reached capacity during this call
	Reopened bool // job regained spare capacity during this call
	// Rejected holds applications auto-rejected because the job is full,
	// with their state from before the rejection.
	Rejected []models.JobApplication
}

// Recalculate runs inside the same transaction as the state change that
// triggered it. It updates job.SelectedWorkers in place.
func (c *CapacityCounter) Recalculate(ctx context.Context, r Repos, job *models.Job) (CapacityResult, error) {
	count, err := r.CountApprovedApplications(ctx, job.ID)
	if err != nil {
		return CapacityResult{}, err
	}

	res := CapacityResult{}

	// Approvals past max_workers violate the capacity bound. The earliest
	// confirmations stand; the excess ones are rejected here with their
	// pre-rejection state reported so the caller cancels their declarations.
	if count > job.MaxWorkers {
		approved, err := r.ListApprovedApplications(ctx, job.ID)
		if err != nil {
			return CapacityResult{}, err
		}
		for _, a := range approved[job.MaxWorkers:] {
			if err := r.SetApplicationState(ctx, a.ID, models.ApplicationStateRejected); err != nil {
				return CapacityResult{}, err
			}
			res.Rejected = append(res.Rejected, a)
		}
		count = job.MaxWorkers
	}

	if count != job.SelectedWorkers {
		if _, err := r.UpdateSelectedWorkers(ctx, job.ID, count); err != nil {
			return CapacityResult{}, err
		}
	}

	res.Count = count

	if count >= job.MaxWorkers {
		pending, err := r.ListPendingApplications(ctx, job.ID)
		if err != nil {
			return CapacityResult{}, err
		}
		for _, p := range pending {
			if err := r.SetApplicationState(ctx, p.ID, models.ApplicationStateRejected); err != nil {
				return CapacityResult{}, err
			}
			res.Rejected = append(res.Rejected, p)
		}
		if job.State == models.JobStatePending {
			if err := r.SetJobState(ctx, job.ID, models.JobStateFulfilled); err != nil {
				return CapacityResult{}, err
			}
			job.State = models.JobStateFulfilled
			res.Closed = true
			metrics.CapacityClosures.Inc()
			c.log.Info("job reached capacity", map[string]interface{}{
				"jobId":           job.ID,
				"selectedWorkers": count,
				"maxWorkers":      job.MaxWorkers,
				"autoRejected":    len(res.Rejected),
			})
		}
	} else if job.State == models.JobStateFulfilled {
		if err := r.SetJobState(ctx, job.ID, models.JobStatePending); err != nil {
			return CapacityResult{}, err
		}
		job.State = models.JobStatePending
		res.Reopened = true
	}

	job.SelectedWorkers = count
	return res, nil
}
