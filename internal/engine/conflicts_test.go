package engine

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LYTE-studios/werkr-engine/internal/common/logger"
	"github.com/LYTE-studios/werkr-engine/internal/models"
)

func TestRejectOverlapping(t *testing.T) {
	store := newFakeStore()
	worker := uuid.New()

	addJobWithApp := func(fromHour, toHour int, state models.ApplicationState) *models.JobApplication {
		start, end := testWindow(fromHour, toHour)
		job := store.addJob(models.Job{
			ID: uuid.New(), StartTime: start, EndTime: end,
			MaxWorkers: 2, State: models.JobStatePending,
		})
		return store.addApp(models.JobApplication{
			ID: uuid.New(), JobID: job.ID, WorkerID: worker,
			State: state, CreatedAt: time.Now(),
		})
	}

	approved := addJobWithApp(10, 12, models.ApplicationStateApproved)
	inBuffer := addJobWithApp(13, 14, models.ApplicationStatePending)
	wasApproved := addJobWithApp(14, 15, models.ApplicationStateApproved)
	clear := addJobWithApp(18, 20, models.ApplicationStatePending)

	// Another worker in the same window is not affected.
	otherStart, otherEnd := testWindow(10, 12)
	otherJob := store.addJob(models.Job{
		ID: uuid.New(), StartTime: otherStart, EndTime: otherEnd,
		MaxWorkers: 2, State: models.JobStatePending,
	})
	otherWorkers := store.addApp(models.JobApplication{
		ID: uuid.New(), JobID: otherJob.ID, WorkerID: uuid.New(),
		State: models.ApplicationStatePending, CreatedAt: time.Now(),
	})

	jobStart, jobEnd := testWindow(10, 12)
	c := NewConflictResolver(DefaultBuffer, logger.NewTestLogger(t))
	rejected, err := c.RejectOverlapping(context.Background(), store, approved, jobStart, jobEnd)
	require.NoError(t, err)

	require.Len(t, rejected, 2)
	states := map[uuid.UUID]models.ApplicationState{}
	for _, r := range rejected {
		states[r.ID] = r.State
	}
	// Pre-rejection states are reported so declarations can be cancelled.
	assert.Equal(t, models.ApplicationStatePending, states[inBuffer.ID])
	assert.Equal(t, models.ApplicationStateApproved, states[wasApproved.ID])

	for id, want := range map[uuid.UUID]models.ApplicationState{
		inBuffer.ID:     models.ApplicationStateRejected,
		wasApproved.ID:  models.ApplicationStateRejected,
		clear.ID:        models.ApplicationStatePending,
		otherWorkers.ID: models.ApplicationStatePending,
		approved.ID:     models.ApplicationStateApproved,
	} {
		got, _ := store.GetApplication(context.Background(), id)
		assert.Equal(t, want, got.State)
	}
}

func TestRejectOverlappingIsIdempotent(t *testing.T) {
	store := newFakeStore()
	worker := uuid.New()

	start, end := testWindow(10, 12)
	job := store.addJob(models.Job{
		ID: uuid.New(), StartTime: start, EndTime: end,
		MaxWorkers: 2, State: models.JobStatePending,
	})
	approved := store.addApp(models.JobApplication{
		ID: uuid.New(), JobID: job.ID, WorkerID: worker,
		State: models.ApplicationStateApproved, CreatedAt: time.Now(),
	})

	otherStart, otherEnd := testWindow(13, 14)
	other := store.addJob(models.Job{
		ID: uuid.New(), StartTime: otherStart, EndTime: otherEnd,
		MaxWorkers: 2, State: models.JobStatePending,
	})
	store.addApp(models.JobApplication{
		ID: uuid.New(), JobID: other.ID, WorkerID: worker,
		State: models.ApplicationStatePending, CreatedAt: time.Now(),
	})

	c := NewConflictResolver(DefaultBuffer, logger.NewTestLogger(t))
	first, err := c.RejectOverlapping(context.Background(), store, approved, start, end)
	require.NoError(t, err)
	assert.Len(t, first, 1)

	second, err := c.RejectOverlapping(context.Background(), store, approved, start, end)
	require.NoError(t, err)
	assert.Empty(t, second)
}

func TestNewConflictResolverDefaultsBuffer(t *testing.T) {
	c := NewConflictResolver(0, logger.NewNoOpLogger())
	assert.Equal(t, DefaultBuffer, c.buffer)
}
