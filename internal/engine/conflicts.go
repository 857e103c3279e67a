package engine

import (
	"context"
	"time"

	"github.com/LYTE-studios/werkr-engine/internal/common/logger"
	"github.com/LYTE-studios/werkr-engine/internal/common/metrics"
	"github.com/LYTE-studios/werkr-engine/internal/models"
)

// ConflictResolver rejects a worker's other in-flight applications once one
// of them is approved, so that no two overlapping applications can both end
// up approved for the same worker. It runs inside the approval transaction.
type ConflictResolver struct {
	buffer time.Duration
	log    logger.Logger
}

func NewConflictResolver(buffer time.Duration, log logger.Logger) *ConflictResolver {
	if buffer == 0 {
		buffer = DefaultBuffer
	}
	return &ConflictResolver{buffer: buffer, log: log}
}

// RejectOverlapping rejects every other pending or approved application of
// the same worker whose job window conflicts with the approved application's
// window. The returned applications carry their state from before the
// rejection, so the caller can cancel declarations for ones that had been
// approved. Re-running against an already resolved set is a no-op.
func (c *ConflictResolver) RejectOverlapping(ctx context.Context, r Repos, approved *models.JobApplication, jobStart, jobEnd time.Time) ([]models.JobApplication, error) {
	windows, err := r.ListWorkerApplicationWindows(ctx, approved.WorkerID, approved.ID)
	if err != nil {
		return nil, err
	}

	var rejected []models.JobApplication
	for _, w := range windows {
		if w.Application.ID == approved.ID {
			continue
		}
		if !WindowsConflict(jobStart, jobEnd, w.JobStart, w.JobEnd, c.buffer) {
			continue
		}
		if err := r.SetApplicationState(ctx, w.Application.ID, models.ApplicationStateRejected); err != nil {
			return nil, err
		}
		metrics.ConflictRejections.Inc()
		c.log.Info("rejected overlapping application", map[string]interface{}{
			"applicationId": w.Application.ID,
			"workerId":      approved.WorkerID,
			"priorState":    w.Application.State,
		})
		rejected = append(rejected, w.Application)
	}
	return rejected, nil
}
