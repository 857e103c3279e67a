package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainerr "github.com/LYTE-studios/werkr-engine/internal/common/errors"
	"github.com/LYTE-studios/werkr-engine/internal/common/logger"
	"github.com/LYTE-studios/werkr-engine/internal/models"
)

type engineFixture struct {
	store     *fakeStore
	decl      *fakeDecl
	profiles  *fakeProfiles
	notifier  *fakeNotifier
	contracts *fakeContracts
	engine    *Engine
}

func newEngineFixture(t *testing.T) *engineFixture {
	f := &engineFixture{
		store:     newFakeStore(),
		decl:      &fakeDecl{},
		profiles:  completeProfile(),
		notifier:  &fakeNotifier{},
		contracts: &fakeContracts{},
	}
	f.engine = New(f.store, f.decl, f.profiles, f.notifier, f.contracts, DefaultBuffer, logger.NewTestLogger(t))
	return f
}

// seedJob adds a bookable job with the given window and capacity.
func (f *engineFixture) seedJob(fromHour, toHour, maxWorkers int) *models.Job {
	start, end := testWindow(fromHour, toHour)
	return f.store.addJob(models.Job{
		ID:                   uuid.New(),
		CustomerID:           uuid.New(),
		Title:                "Bar shift",
		StartTime:            start,
		EndTime:              end,
		ApplicationStartTime: start.AddDate(0, -1, 0),
		ApplicationEndTime:   start,
		MaxWorkers:           maxWorkers,
		State:                models.JobStatePending,
	})
}

func (f *engineFixture) seedWorker() uuid.UUID {
	id := uuid.New()
	f.store.addProfile(models.WorkerProfile{
		ID:             id,
		FirstName:      "Jana",
		LastName:       "Peeters",
		Email:          "jana@example.com",
		NationalNumber: "99.11.23-123.45",
		EmploymentType: models.EmploymentTypeStudent,
	})
	return id
}

func (f *engineFixture) seedApp(job *models.Job, workerID uuid.UUID, state models.ApplicationState) *models.JobApplication {
	return f.store.addApp(models.JobApplication{
		ID:        uuid.New(),
		JobID:     job.ID,
		WorkerID:  workerID,
		State:     state,
		CreatedAt: time.Now().UTC(),
	})
}

func TestApprove(t *testing.T) {
	f := newEngineFixture(t)
	job := f.seedJob(10, 12, 2)
	worker := f.seedWorker()
	app := f.seedApp(job, worker, models.ApplicationStatePending)

	err := f.engine.Approve(context.Background(), app.ID)
	require.NoError(t, err)

	got, _ := f.store.GetApplication(context.Background(), app.ID)
	assert.Equal(t, models.ApplicationStateApproved, got.State)

	j, _ := f.store.GetJob(context.Background(), job.ID)
	assert.Equal(t, 1, j.SelectedWorkers)
	assert.Equal(t, models.JobStatePending, j.State)

	assert.Equal(t, []uuid.UUID{app.ID}, f.decl.created)
	assert.Equal(t, []uuid.UUID{app.ID}, f.contracts.generated)

	// Worker and customer are both told.
	require.Len(t, f.notifier.user, 2)
	assert.Equal(t, worker, f.notifier.user[0].UserID)
	assert.Equal(t, job.CustomerID, f.notifier.user[1].UserID)
}

func TestApproveIsNotRepeatable(t *testing.T) {
	f := newEngineFixture(t)
	job := f.seedJob(10, 12, 2)
	worker := f.seedWorker()

	for _, state := range []models.ApplicationState{
		models.ApplicationStateApproved,
		models.ApplicationStateRejected,
	} {
		app := f.seedApp(job, worker, state)
		err := f.engine.Approve(context.Background(), app.ID)
		assert.True(t, domainerr.IsInvalidTransition(err), "state %s", state)
	}
	assert.Empty(t, f.decl.created)
}

func TestApproveUnknownApplication(t *testing.T) {
	f := newEngineFixture(t)
	err := f.engine.Approve(context.Background(), uuid.New())
	assert.True(t, domainerr.IsNotFound(err))
}

func TestApproveIncompleteProfile(t *testing.T) {
	f := newEngineFixture(t)
	f.profiles.completion = models.ProfileCompletion{Percentage: 80, MissingFields: []string{"iban"}}
	job := f.seedJob(10, 12, 2)
	app := f.seedApp(job, f.seedWorker(), models.ApplicationStatePending)

	err := f.engine.Approve(context.Background(), app.ID)
	assert.True(t, domainerr.IsValidationFailed(err))

	got, _ := f.store.GetApplication(context.Background(), app.ID)
	assert.Equal(t, models.ApplicationStatePending, got.State)
	assert.Empty(t, f.decl.created)
}

func TestApproveSurvivesDeclarationOutage(t *testing.T) {
	f := newEngineFixture(t)
	f.decl.createErr = domainerr.NewExternalIntegrationFailure("declaration-service", errors.New("connection refused"))
	job := f.seedJob(10, 12, 2)
	app := f.seedApp(job, f.seedWorker(), models.ApplicationStatePending)

	err := f.engine.Approve(context.Background(), app.ID)
	require.NoError(t, err)

	got, _ := f.store.GetApplication(context.Background(), app.ID)
	assert.Equal(t, models.ApplicationStateApproved, got.State)

	// An operator alert went out instead.
	require.Len(t, f.notifier.admin, 1)
	assert.Contains(t, f.notifier.admin[0].Title, "Declaration creation failed")
}

func TestApproveBlockedByInvalidNationalNumber(t *testing.T) {
	f := newEngineFixture(t)
	f.decl.createErr = domainerr.NewValidationFailed("national number contains invalid characters", "nationalNumber")
	job := f.seedJob(10, 12, 2)
	app := f.seedApp(job, f.seedWorker(), models.ApplicationStatePending)

	err := f.engine.Approve(context.Background(), app.ID)
	assert.True(t, domainerr.IsValidationFailed(err))

	got, _ := f.store.GetApplication(context.Background(), app.ID)
	assert.Equal(t, models.ApplicationStatePending, got.State)
	assert.Empty(t, f.notifier.admin)
}

func TestApproveRejectsOverlappingApplications(t *testing.T) {
	f := newEngineFixture(t)
	worker := f.seedWorker()

	job1 := f.seedJob(10, 12, 2)
	app1 := f.seedApp(job1, worker, models.ApplicationStatePending)

	// 14:30 start falls inside job1's buffered window.
	start2, end2 := testWindow(14, 16)
	start2 = start2.Add(30 * time.Minute)
	job2 := f.store.addJob(models.Job{
		ID: uuid.New(), CustomerID: uuid.New(), Title: "Second shift",
		StartTime: start2, EndTime: end2, MaxWorkers: 2,
		State: models.JobStatePending,
	})
	app2 := f.seedApp(job2, worker, models.ApplicationStatePending)

	// A distant job stays untouched.
	job3 := f.seedJob(18, 20, 2)
	app3 := f.seedApp(job3, worker, models.ApplicationStatePending)

	err := f.engine.Approve(context.Background(), app1.ID)
	require.NoError(t, err)

	got2, _ := f.store.GetApplication(context.Background(), app2.ID)
	assert.Equal(t, models.ApplicationStateRejected, got2.State)
	got3, _ := f.store.GetApplication(context.Background(), app3.ID)
	assert.Equal(t, models.ApplicationStatePending, got3.State)

	// The rejected application was never approved, so nothing is cancelled.
	assert.Empty(t, f.decl.cancelled)
}

func TestApproveCancelsDeclarationOfOverlappingApproved(t *testing.T) {
	f := newEngineFixture(t)
	worker := f.seedWorker()

	job1 := f.seedJob(10, 12, 2)
	app1 := f.seedApp(job1, worker, models.ApplicationStatePending)

	job2 := f.seedJob(13, 15, 2)
	app2 := f.seedApp(job2, worker, models.ApplicationStateApproved)

	err := f.engine.Approve(context.Background(), app1.ID)
	require.NoError(t, err)

	got2, _ := f.store.GetApplication(context.Background(), app2.ID)
	assert.Equal(t, models.ApplicationStateRejected, got2.State)
	assert.Equal(t, []uuid.UUID{app2.ID}, f.decl.cancelled)
}

func TestApproveClosesJobAtCapacity(t *testing.T) {
	f := newEngineFixture(t)
	job := f.seedJob(10, 12, 1)
	app1 := f.seedApp(job, f.seedWorker(), models.ApplicationStatePending)
	app2 := f.seedApp(job, f.seedWorker(), models.ApplicationStatePending)

	err := f.engine.Approve(context.Background(), app1.ID)
	require.NoError(t, err)

	j, _ := f.store.GetJob(context.Background(), job.ID)
	assert.Equal(t, models.JobStateFulfilled, j.State)
	assert.Equal(t, 1, j.SelectedWorkers)

	// The other applicant lost the race.
	got2, _ := f.store.GetApplication(context.Background(), app2.ID)
	assert.Equal(t, models.ApplicationStateRejected, got2.State)

	pending, _ := f.store.ListPendingApplications(context.Background(), job.ID)
	assert.Empty(t, pending)
}

func TestApproveDisplacesExcessApproval(t *testing.T) {
	f := newEngineFixture(t)
	job := f.seedJob(10, 12, 1)
	app1 := f.seedApp(job, f.seedWorker(), models.ApplicationStatePending)
	// A later approval that slipped past capacity. Recalculation must push it
	// back out and cancel its declaration.
	app2 := f.seedApp(job, f.seedWorker(), models.ApplicationStateApproved)

	err := f.engine.Approve(context.Background(), app1.ID)
	require.NoError(t, err)

	got1, _ := f.store.GetApplication(context.Background(), app1.ID)
	assert.Equal(t, models.ApplicationStateApproved, got1.State)
	got2, _ := f.store.GetApplication(context.Background(), app2.ID)
	assert.Equal(t, models.ApplicationStateRejected, got2.State)
	assert.Contains(t, f.decl.cancelled, app2.ID)

	j, _ := f.store.GetJob(context.Background(), job.ID)
	assert.Equal(t, models.JobStateFulfilled, j.State)
	assert.Equal(t, 1, j.SelectedWorkers)
}

func TestDenyPending(t *testing.T) {
	f := newEngineFixture(t)
	job := f.seedJob(10, 12, 2)
	worker := f.seedWorker()
	app := f.seedApp(job, worker, models.ApplicationStatePending)

	err := f.engine.Deny(context.Background(), app.ID)
	require.NoError(t, err)

	got, _ := f.store.GetApplication(context.Background(), app.ID)
	assert.Equal(t, models.ApplicationStateRejected, got.State)

	// No declaration existed, so none is cancelled.
	assert.Empty(t, f.decl.cancelled)
	require.Len(t, f.notifier.user, 1)
	assert.Equal(t, worker, f.notifier.user[0].UserID)
}

func TestDenyApprovedCancelsDeclarationOnce(t *testing.T) {
	f := newEngineFixture(t)
	job := f.seedJob(10, 12, 2)
	job.SelectedWorkers = 1
	app := f.seedApp(job, f.seedWorker(), models.ApplicationStateApproved)

	err := f.engine.Deny(context.Background(), app.ID)
	require.NoError(t, err)

	assert.Equal(t, []uuid.UUID{app.ID}, f.decl.cancelled)

	j, _ := f.store.GetJob(context.Background(), job.ID)
	assert.Equal(t, 0, j.SelectedWorkers)
}

func TestDenyRejectedFails(t *testing.T) {
	f := newEngineFixture(t)
	job := f.seedJob(10, 12, 2)
	app := f.seedApp(job, f.seedWorker(), models.ApplicationStateRejected)

	err := f.engine.Deny(context.Background(), app.ID)
	assert.True(t, domainerr.IsInvalidTransition(err))
	assert.Empty(t, f.decl.cancelled)
}

func TestDenyReopensFullJob(t *testing.T) {
	f := newEngineFixture(t)
	job := f.seedJob(10, 12, 1)
	job.State = models.JobStateFulfilled
	job.SelectedWorkers = 1
	app := f.seedApp(job, f.seedWorker(), models.ApplicationStateApproved)

	err := f.engine.Deny(context.Background(), app.ID)
	require.NoError(t, err)

	j, _ := f.store.GetJob(context.Background(), job.ID)
	assert.Equal(t, models.JobStatePending, j.State)
	assert.Equal(t, 0, j.SelectedWorkers)

	// The freed slot is broadcast.
	assert.Equal(t, []uuid.UUID{job.ID}, f.notifier.broadcasts)
}

func TestRegisterApplication(t *testing.T) {
	f := newEngineFixture(t)
	f.engine.now = func() time.Time { return time.Date(2026, time.February, 20, 9, 0, 0, 0, time.UTC) }
	job := f.seedJob(10, 12, 2)
	worker := f.seedWorker()

	app, err := f.engine.RegisterApplication(context.Background(), job.ID, worker, "Main St 1", 10, false)
	require.NoError(t, err)

	assert.Equal(t, models.ApplicationStatePending, app.State)
	assert.Equal(t, 20.0, app.Distance) // round trip
	stored, _ := f.store.GetApplication(context.Background(), app.ID)
	assert.Equal(t, models.ApplicationStatePending, stored.State)
	assert.Empty(t, f.notifier.user)
}

func TestRegisterApplicationFullJob(t *testing.T) {
	f := newEngineFixture(t)
	f.engine.now = func() time.Time { return time.Date(2026, time.February, 20, 9, 0, 0, 0, time.UTC) }
	job := f.seedJob(10, 12, 1)
	job.SelectedWorkers = 1
	worker := f.seedWorker()

	app, err := f.engine.RegisterApplication(context.Background(), job.ID, worker, "", 0, true)
	require.NoError(t, err)

	assert.Equal(t, models.ApplicationStateRejected, app.State)
	require.Len(t, f.notifier.user, 1)
	assert.Contains(t, f.notifier.user[0].Body, "already full")
}

func TestRegisterApplicationOverlapsBooking(t *testing.T) {
	f := newEngineFixture(t)
	f.engine.now = func() time.Time { return time.Date(2026, time.February, 20, 9, 0, 0, 0, time.UTC) }
	worker := f.seedWorker()

	booked := f.seedJob(10, 12, 2)
	f.seedApp(booked, worker, models.ApplicationStateApproved)

	job := f.seedJob(13, 15, 2)
	app, err := f.engine.RegisterApplication(context.Background(), job.ID, worker, "", 0, true)
	require.NoError(t, err)

	assert.Equal(t, models.ApplicationStateRejected, app.State)
	require.Len(t, f.notifier.user, 1)
	assert.Contains(t, f.notifier.user[0].Body, "overlaps")
}

func TestRegisterApplicationClosedWindow(t *testing.T) {
	f := newEngineFixture(t)
	// Window closes at job start; apply a day late.
	f.engine.now = func() time.Time { return time.Date(2026, time.March, 11, 9, 0, 0, 0, time.UTC) }
	job := f.seedJob(10, 12, 2)

	_, err := f.engine.RegisterApplication(context.Background(), job.ID, f.seedWorker(), "", 0, true)
	assert.True(t, domainerr.IsValidationFailed(err))
}

func TestRegisterApplicationArchivedJob(t *testing.T) {
	f := newEngineFixture(t)
	f.engine.now = func() time.Time { return time.Date(2026, time.February, 20, 9, 0, 0, 0, time.UTC) }
	job := f.seedJob(10, 12, 2)
	job.Archived = true

	_, err := f.engine.RegisterApplication(context.Background(), job.ID, f.seedWorker(), "", 0, true)
	assert.True(t, domainerr.IsValidationFailed(err))
}
