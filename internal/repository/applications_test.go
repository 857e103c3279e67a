package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainerr "github.com/LYTE-studios/werkr-engine/internal/common/errors"
	"github.com/LYTE-studios/werkr-engine/internal/models"
)

func testApplication() *models.JobApplication {
	return &models.JobApplication{
		ID:        uuid.New(),
		JobID:     uuid.New(),
		WorkerID:  uuid.New(),
		Address:   "Main St 1",
		State:     models.ApplicationStatePending,
		Distance:  20,
		CreatedAt: time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC),
	}
}

func applicationRows(apps ...*models.JobApplication) *sqlmock.Rows {
	rows := sqlmock.NewRows([]string{
		"id", "job_id", "worker_id", "address", "state", "distance", "no_travel_cost", "created_at",
	})
	for _, a := range apps {
		rows.AddRow(a.ID, a.JobID, a.WorkerID, a.Address, a.State, a.Distance, a.NoTravelCost, a.CreatedAt)
	}
	return rows
}

func TestGetApplication(t *testing.T) {
	store, mock := newMockStore(t)
	app := testApplication()

	mock.ExpectQuery(`FROM job_applications WHERE id = \$1`).
		WithArgs(app.ID).
		WillReturnRows(applicationRows(app))

	got, err := store.GetApplication(context.Background(), app.ID)
	require.NoError(t, err)
	assert.Equal(t, app.ID, got.ID)
	assert.Equal(t, models.ApplicationStatePending, got.State)
}

func TestGetApplicationNotFound(t *testing.T) {
	store, mock := newMockStore(t)
	id := uuid.New()

	mock.ExpectQuery(`FROM job_applications WHERE id = \$1`).
		WithArgs(id).
		WillReturnError(sql.ErrNoRows)

	_, err := store.GetApplication(context.Background(), id)
	assert.True(t, domainerr.IsNotFound(err))
}

func TestCreateApplication(t *testing.T) {
	store, mock := newMockStore(t)
	app := testApplication()

	mock.ExpectExec(`INSERT INTO job_applications`).
		WithArgs(app.ID, app.JobID, app.WorkerID, app.Address, app.State,
			app.Distance, app.NoTravelCost, app.CreatedAt).
		WillReturnResult(sqlmock.NewResult(1, 1))

	err := store.CreateApplication(context.Background(), app)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSetApplicationStateNotFound(t *testing.T) {
	store, mock := newMockStore(t)
	id := uuid.New()

	mock.ExpectExec(`UPDATE job_applications SET state`).
		WithArgs(id, models.ApplicationStateRejected).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := store.SetApplicationState(context.Background(), id, models.ApplicationStateRejected)
	assert.True(t, domainerr.IsNotFound(err))
}

func TestCountApprovedApplications(t *testing.T) {
	store, mock := newMockStore(t)
	jobID := uuid.New()

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM job_applications`).
		WithArgs(jobID, models.ApplicationStateApproved).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))

	count, err := store.CountApprovedApplications(context.Background(), jobID)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestListPendingApplications(t *testing.T) {
	store, mock := newMockStore(t)
	jobID := uuid.New()
	a1, a2 := testApplication(), testApplication()
	a1.JobID, a2.JobID = jobID, jobID

	mock.ExpectQuery(`FROM job_applications\s+WHERE job_id = \$1 AND state = \$2`).
		WithArgs(jobID, models.ApplicationStatePending).
		WillReturnRows(applicationRows(a1, a2))

	out, err := store.ListPendingApplications(context.Background(), jobID)
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, a1.ID, out[0].ID)
}

func TestListApprovedApplications(t *testing.T) {
	store, mock := newMockStore(t)
	jobID := uuid.New()
	a1, a2 := testApplication(), testApplication()
	a1.JobID, a2.JobID = jobID, jobID
	a1.State, a2.State = models.ApplicationStateApproved, models.ApplicationStateApproved

	mock.ExpectQuery(`FROM job_applications\s+WHERE job_id = \$1 AND state = \$2`).
		WithArgs(jobID, models.ApplicationStateApproved).
		WillReturnRows(applicationRows(a1, a2))

	out, err := store.ListApprovedApplications(context.Background(), jobID)
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, a1.ID, out[0].ID)
}

func TestListPendingApplicationsEmpty(t *testing.T) {
	store, mock := newMockStore(t)
	jobID := uuid.New()

	mock.ExpectQuery(`FROM job_applications\s+WHERE job_id = \$1 AND state = \$2`).
		WithArgs(jobID, models.ApplicationStatePending).
		WillReturnRows(applicationRows())

	out, err := store.ListPendingApplications(context.Background(), jobID)
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestListWorkerApplicationWindows(t *testing.T) {
	store, mock := newMockStore(t)
	workerID := uuid.New()
	exclude := uuid.New()
	app := testApplication()
	app.WorkerID = workerID

	start := time.Date(2026, 3, 10, 10, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{
		"id", "job_id", "worker_id", "address", "state", "distance", "no_travel_cost", "created_at",
		"start_time", "end_time",
	}).AddRow(
		app.ID, app.JobID, app.WorkerID, app.Address, app.State,
		app.Distance, app.NoTravelCost, app.CreatedAt,
		start, start.Add(2*time.Hour),
	)

	mock.ExpectQuery(`JOIN jobs j ON j\.id = a\.job_id`).
		WithArgs(workerID, exclude,
			models.ApplicationStatePending, models.ApplicationStateApproved).
		WillReturnRows(rows)

	out, err := store.ListWorkerApplicationWindows(context.Background(), workerID, exclude)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, app.ID, out[0].Application.ID)
	assert.Equal(t, start, out[0].JobStart)
	assert.Equal(t, start.Add(2*time.Hour), out[0].JobEnd)
}
