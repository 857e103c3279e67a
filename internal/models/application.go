package models

import (
	"time"

	"github.com/google/uuid"
)

// ApplicationState is the state of a worker's bid for a job. Approved and
// rejected are terminal for approval; a previously approved application can
// still be denied, which cancels its declaration.
type ApplicationState string

const (
	ApplicationStatePending  ApplicationState = "pending"
	ApplicationStateApproved ApplicationState = "approved"
	ApplicationStateRejected ApplicationState = "rejected"
)

// JobApplication is a worker's bid for a job.
type JobApplication struct {
	ID           uuid.UUID        `json:"id"`
	JobID        uuid.UUID        `json:"jobId"`
	WorkerID     uuid.UUID        `json:"workerId"`
	Address      string           `json:"address"`
	State        ApplicationState `json:"state"`
	Distance     float64          `json:"distance"` // km
	NoTravelCost bool             `json:"noTravelCost"`
	CreatedAt    time.Time        `json:"createdAt"`
}

// ApplicationWindow pairs an application with its job's time window, for
// overlap checks across a worker's in-flight applications.
type ApplicationWindow struct {
	Application JobApplication
	JobStart    time.Time
	JobEnd      time.Time
}

// TravelDistance derives the stored distance from a one-way measurement.
// Workers billing travel cost are compensated for the round trip.
func TravelDistance(oneWayKm float64, noTravelCost bool) float64 {
	if noTravelCost {
		return oneWayKm
	}
	return oneWayKm * 2
}
