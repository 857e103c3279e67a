package engine

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	domainerr "github.com/LYTE-studios/werkr-engine/internal/common/errors"
	"github.com/LYTE-studios/werkr-engine/internal/models"
)

// fakeStore is an in-memory Storage. InTx runs the callback directly; the
// engine's transactional behavior against a real database is covered by the
// repository tests.
type fakeStore struct {
	jobs     map[uuid.UUID]*models.Job
	apps     map[uuid.UUID]*models.JobApplication
	profiles map[uuid.UUID]*models.WorkerProfile
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		jobs:     make(map[uuid.UUID]*models.Job),
		apps:     make(map[uuid.UUID]*models.JobApplication),
		profiles: make(map[uuid.UUID]*models.WorkerProfile),
	}
}

func (f *fakeStore) addJob(j models.Job) *models.Job {
	cp := j
	f.jobs[j.ID] = &cp
	return f.jobs[j.ID]
}

func (f *fakeStore) addApp(a models.JobApplication) *models.JobApplication {
	cp := a
	f.apps[a.ID] = &cp
	return f.apps[a.ID]
}

func (f *fakeStore) addProfile(p models.WorkerProfile) {
	cp := p
	f.profiles[p.ID] = &cp
}

func (f *fakeStore) GetJob(_ context.Context, id uuid.UUID) (*models.Job, error) {
	j, ok := f.jobs[id]
	if !ok {
		return nil, domainerr.NewNotFound("job", id.String())
	}
	cp := *j
	return &cp, nil
}

func (f *fakeStore) GetJobForUpdate(ctx context.Context, id uuid.UUID) (*models.Job, error) {
	return f.GetJob(ctx, id)
}

func (f *fakeStore) SetJobState(_ context.Context, id uuid.UUID, state models.JobState) error {
	j, ok := f.jobs[id]
	if !ok {
		return domainerr.NewNotFound("job", id.String())
	}
	j.State = state
	return nil
}

func (f *fakeStore) UpdateSelectedWorkers(_ context.Context, jobID uuid.UUID, count int) (bool, error) {
	j, ok := f.jobs[jobID]
	if !ok {
		return false, domainerr.NewNotFound("job", jobID.String())
	}
	if j.SelectedWorkers == count {
		return false, nil
	}
	j.SelectedWorkers = count
	return true, nil
}

func (f *fakeStore) GetApplication(_ context.Context, id uuid.UUID) (*models.JobApplication, error) {
	a, ok := f.apps[id]
	if !ok {
		return nil, domainerr.NewNotFound("application", id.String())
	}
	cp := *a
	return &cp, nil
}

func (f *fakeStore) GetApplicationForUpdate(ctx context.Context, id uuid.UUID) (*models.JobApplication, error) {
	return f.GetApplication(ctx, id)
}

func (f *fakeStore) CreateApplication(_ context.Context, app *models.JobApplication) error {
	cp := *app
	f.apps[app.ID] = &cp
	return nil
}

func (f *fakeStore) SetApplicationState(_ context.Context, id uuid.UUID, state models.ApplicationState) error {
	a, ok := f.apps[id]
	if !ok {
		return domainerr.NewNotFound("application", id.String())
	}
	a.State = state
	return nil
}

func (f *fakeStore) CountApprovedApplications(_ context.Context, jobID uuid.UUID) (int, error) {
	n := 0
	for _, a := range f.apps {
		if a.JobID == jobID && a.State == models.ApplicationStateApproved {
			n++
		}
	}
	return n, nil
}

func (f *fakeStore) ListPendingApplications(_ context.Context, jobID uuid.UUID) ([]models.JobApplication, error) {
	var out []models.JobApplication
	for _, a := range f.apps {
		if a.JobID == jobID && a.State == models.ApplicationStatePending {
			out = append(out, *a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (f *fakeStore) ListApprovedApplications(_ context.Context, jobID uuid.UUID) ([]models.JobApplication, error) {
	var out []models.JobApplication
	for _, a := range f.apps {
		if a.JobID == jobID && a.State == models.ApplicationStateApproved {
			out = append(out, *a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (f *fakeStore) ListWorkerApplicationWindows(_ context.Context, workerID, exclude uuid.UUID) ([]models.ApplicationWindow, error) {
	var out []models.ApplicationWindow
	for _, a := range f.apps {
		if a.WorkerID != workerID || a.ID == exclude {
			continue
		}
		if a.State != models.ApplicationStatePending && a.State != models.ApplicationStateApproved {
			continue
		}
		j, ok := f.jobs[a.JobID]
		if !ok || j.Archived {
			continue
		}
		out = append(out, models.ApplicationWindow{
			Application: *a,
			JobStart:    j.StartTime,
			JobEnd:      j.EndTime,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Application.CreatedAt.Before(out[j].Application.CreatedAt)
	})
	return out, nil
}

func (f *fakeStore) GetWorkerProfile(_ context.Context, workerID uuid.UUID) (*models.WorkerProfile, error) {
	p, ok := f.profiles[workerID]
	if !ok {
		return nil, domainerr.NewNotFound("worker", workerID.String())
	}
	cp := *p
	return &cp, nil
}

func (f *fakeStore) InTx(ctx context.Context, fn func(ctx context.Context, r Repos) error) error {
	return fn(ctx, f)
}

type fakeDecl struct {
	created   []uuid.UUID
	cancelled []uuid.UUID
	createErr error
	cancelErr error
}

func (f *fakeDecl) CreateIfNeeded(_ context.Context, app *models.JobApplication, _ *models.Job, _ *models.WorkerProfile) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.created = append(f.created, app.ID)
	return nil
}

func (f *fakeDecl) Cancel(_ context.Context, app *models.JobApplication) error {
	if f.cancelErr != nil {
		return f.cancelErr
	}
	f.cancelled = append(f.cancelled, app.ID)
	return nil
}

type fakeProfiles struct {
	completion models.ProfileCompletion
	err        error
}

func (f *fakeProfiles) Check(_ context.Context, _ uuid.UUID) (models.ProfileCompletion, error) {
	return f.completion, f.err
}

func completeProfile() *fakeProfiles {
	return &fakeProfiles{completion: models.ProfileCompletion{Percentage: 100}}
}

type notification struct {
	UserID uuid.UUID
	Title  string
	Body   string
}

type fakeNotifier struct {
	user       []notification
	admin      []notification
	broadcasts []uuid.UUID
}

func (f *fakeNotifier) NotifyUser(_ context.Context, userID uuid.UUID, title, body string) error {
	f.user = append(f.user, notification{UserID: userID, Title: title, Body: body})
	return nil
}

func (f *fakeNotifier) NotifyAdmins(_ context.Context, title, body string) error {
	f.admin = append(f.admin, notification{Title: title, Body: body})
	return nil
}

func (f *fakeNotifier) BroadcastNewSlot(_ context.Context, job *models.Job) error {
	f.broadcasts = append(f.broadcasts, job.ID)
	return nil
}

type fakeContracts struct {
	generated []uuid.UUID
	err       error
}

func (f *fakeContracts) Generate(_ context.Context, app *models.JobApplication) error {
	if f.err != nil {
		return f.err
	}
	f.generated = append(f.generated, app.ID)
	return nil
}

// testWindow builds a job window on a fixed day.
func testWindow(fromHour, toHour int) (time.Time, time.Time) {
	day := time.Date(2026, time.March, 10, 0, 0, 0, 0, time.UTC)
	return day.Add(time.Duration(fromHour) * time.Hour), day.Add(time.Duration(toHour) * time.Hour)
}
