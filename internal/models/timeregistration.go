package models

import (
	"time"

	"github.com/google/uuid"
)

// TimeRegistration is the actual worked time for a (job, worker) pair. It is
// read by the statistics aggregator and never mutated by the state machine.
type TimeRegistration struct {
	ID        uuid.UUID `json:"id"`
	JobID     uuid.UUID `json:"jobId"`
	WorkerID  uuid.UUID `json:"workerId"`
	StartTime time.Time `json:"startTime"`
	EndTime   time.Time `json:"endTime"`
}

// Hours returns the registered duration in hours.
func (t *TimeRegistration) Hours() float64 {
	return t.EndTime.Sub(t.StartTime).Hours()
}
