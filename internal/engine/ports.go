package engine

import (
	"context"

	"github.com/google/uuid"

	"github.com/LYTE-studios/werkr-engine/internal/models"
)

// Repos is the storage surface the engine needs. Inside InTx the *ForUpdate
// variants must take row locks scoped to the transaction.
type Repos interface {
	GetJob(ctx context.Context, id uuid.UUID) (*models.Job, error)
	GetJobForUpdate(ctx context.Context, id uuid.UUID) (*models.Job, error)
	SetJobState(ctx context.Context, id uuid.UUID, state models.JobState) error
	// UpdateSelectedWorkers persists the derived counter; it writes only when
	// the stored value differs and reports whether a write happened.
	UpdateSelectedWorkers(ctx context.Context, jobID uuid.UUID, count int) (bool, error)

	GetApplication(ctx context.Context, id uuid.UUID) (*models.JobApplication, error)
	GetApplicationForUpdate(ctx context.Context, id uuid.UUID) (*models.JobApplication, error)
	CreateApplication(ctx context.Context, app *models.JobApplication) error
	SetApplicationState(ctx context.Context, id uuid.UUID, state models.ApplicationState) error
	CountApprovedApplications(ctx context.Context, jobID uuid.UUID) (int, error)
	ListPendingApplications(ctx context.Context, jobID uuid.UUID) ([]models.JobApplication, error)
	// ListApprovedApplications returns the job's approved applications in
	// creation order, oldest first.
	ListApprovedApplications(ctx context.Context, jobID uuid.UUID) ([]models.JobApplication, error)
	// ListWorkerApplicationWindows returns the worker's pending and approved
	// applications with their job time windows, excluding archived jobs and
	// the given application. Inside a transaction the rows are locked.
	ListWorkerApplicationWindows(ctx context.Context, workerID, exclude uuid.UUID) ([]models.ApplicationWindow, error)

	GetWorkerProfile(ctx context.Context, workerID uuid.UUID) (*models.WorkerProfile, error)
}

// Storage adds the transaction boundary. InTx must run fn atomically with
// serializable semantics (or equivalent row locking) and retry a bounded
// number of times on serialization conflicts before giving up.
type Storage interface {
	Repos
	InTx(ctx context.Context, fn func(ctx context.Context, r Repos) error) error
}

// DeclarationSync mirrors approvals into the external declaration system.
type DeclarationSync interface {
	// CreateIfNeeded is a no-op for employment types that need no declaration
	// and for applications that already have one.
	CreateIfNeeded(ctx context.Context, app *models.JobApplication, job *models.Job, profile *models.WorkerProfile) error
	// Cancel revokes the declaration tied to the application, if any.
	Cancel(ctx context.Context, app *models.JobApplication) error
}

// ProfileChecker is the collaborator consulted before approval.
type ProfileChecker interface {
	Check(ctx context.Context, workerID uuid.UUID) (models.ProfileCompletion, error)
}

// Notifier delivers user, admin and broadcast notifications. The engine
// treats every call as fire-and-forget: failures are logged, never
// propagated.
type Notifier interface {
	NotifyUser(ctx context.Context, userID uuid.UUID, title, body string) error
	NotifyAdmins(ctx context.Context, title, body string) error
	BroadcastNewSlot(ctx context.Context, job *models.Job) error
}

// ContractGenerator produces the worker contract after an approval.
type ContractGenerator interface {
	Generate(ctx context.Context, app *models.JobApplication) error
}
