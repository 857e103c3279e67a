package models

import (
	"time"

	"github.com/google/uuid"
)

// JobState is the lifecycle state of a posting.
type JobState string

const (
	JobStatePending   JobState = "pending"
	JobStateFulfilled JobState = "fulfilled"
	JobStateDone      JobState = "done"
	JobStateCancelled JobState = "cancelled"
)

// Job is a posting by a customer. SelectedWorkers is a derived cache: the
// count of approved applications is the source of truth and the counter is
// recomputed transactionally, never written eagerly.
type Job struct {
	ID                   uuid.UUID `json:"id"`
	CustomerID           uuid.UUID `json:"customerId"`
	Title                string    `json:"title"`
	StartTime            time.Time `json:"startTime"`
	EndTime              time.Time `json:"endTime"`
	ApplicationStartTime time.Time `json:"applicationStartTime"`
	ApplicationEndTime   time.Time `json:"applicationEndTime"`
	MaxWorkers           int       `json:"maxWorkers"`
	SelectedWorkers      int       `json:"selectedWorkers"`
	State                JobState  `json:"state"`
	IsDraft              bool      `json:"isDraft"`
	Archived             bool      `json:"archived"`
}

// IsFull reports whether the job has no spare capacity.
func (j *Job) IsFull() bool {
	return j.SelectedWorkers >= j.MaxWorkers
}

// IsBookable reports whether new applications are accepted at the given time:
// not a draft, not archived, spare capacity, and inside the application
// window.
func (j *Job) IsBookable(now time.Time) bool {
	if j.IsDraft || j.Archived {
		return false
	}
	if j.IsFull() {
		return false
	}
	if now.Before(j.ApplicationStartTime) || now.After(j.ApplicationEndTime) {
		return false
	}
	return true
}
