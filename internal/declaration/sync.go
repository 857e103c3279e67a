package declaration

import (
	"context"
	"time"

	"github.com/google/uuid"

	domainerr "github.com/LYTE-studios/werkr-engine/internal/common/errors"
	"github.com/LYTE-studios/werkr-engine/internal/common/logger"
	"github.com/LYTE-studios/werkr-engine/internal/engine"
	"github.com/LYTE-studios/werkr-engine/internal/models"
)

// Store is the declaration persistence surface.
type Store interface {
	GetDeclaration(ctx context.Context, id string) (*models.Declaration, error)
	GetDeclarationByApplication(ctx context.Context, applicationID uuid.UUID) (*models.Declaration, error)
	CreateDeclaration(ctx context.Context, d *models.Declaration) error
	DeleteDeclaration(ctx context.Context, id string) error
	ResolveDeclaration(ctx context.Context, id string, success bool, reason string) error
	ListUnresolvedDeclarations(ctx context.Context) ([]models.Declaration, error)
}

// Scheduler schedules and cancels background resolution polls.
type Scheduler interface {
	Schedule(declarationID string)
	CancelPoll(declarationID string)
}

// Sync manages the external declaration integration for the lifecycle
// engine: create on approval, cancel on denial, with resolution handled by
// the background poller.
type Sync struct {
	client    Service
	store     Store
	scheduler Scheduler
	log       logger.Logger
	now       func() time.Time
}

var _ engine.DeclarationSync = (*Sync)(nil)

func NewSync(client Service, store Store, scheduler Scheduler, log logger.Logger) *Sync {
	return &Sync{
		client:    client,
		store:     store,
		scheduler: scheduler,
		log:       log,
		now:       time.Now,
	}
}

// CreateIfNeeded files a declaration for an approved application. It is a
// no-op for employment types that require none and for applications that
// already have one, so an approval retried after a partial failure never
// creates duplicates.
func (s *Sync) CreateIfNeeded(ctx context.Context, app *models.JobApplication, job *models.Job, profile *models.WorkerProfile) error {
	if !profile.EmploymentType.RequiresDeclaration() {
		return nil
	}

	existing, err := s.store.GetDeclarationByApplication(ctx, app.ID)
	if err != nil && !domainerr.IsNotFound(err) {
		return err
	}
	if existing != nil {
		s.log.Debug("declaration already exists", map[string]interface{}{
			"applicationId": app.ID,
			"declarationId": existing.ID,
		})
		return nil
	}

	niss, err := NormalizeNISS(profile.NationalNumber)
	if err != nil {
		return err
	}

	id, err := s.client.Create(ctx, CreateRequest{
		NISS:           niss,
		EmploymentType: string(profile.EmploymentType),
		PlannedHours:   job.EndTime.Sub(job.StartTime).Hours(),
		StartTime:      job.StartTime.UTC().Format(time.RFC3339),
		EndTime:        job.EndTime.UTC().Format(time.RFC3339),
	})
	if err != nil {
		return err
	}

	if err := s.store.CreateDeclaration(ctx, &models.Declaration{
		ID:            id,
		ApplicationID: app.ID,
		CreatedAt:     s.now().UTC(),
	}); err != nil {
		return err
	}

	s.log.Info("declaration created", map[string]interface{}{
		"declarationId": id,
		"applicationId": app.ID,
	})
	s.scheduler.Schedule(id)
	return nil
}

// Cancel revokes the declaration tied to an application. Without one it is a
// no-op. The cancellation request goes out first; only then is the local row
// removed (before resolution) or marked failed (after resolution), so a
// failed request never leaves an orphaned external record behind.
func (s *Sync) Cancel(ctx context.Context, app *models.JobApplication) error {
	d, err := s.store.GetDeclarationByApplication(ctx, app.ID)
	if err != nil {
		if domainerr.IsNotFound(err) {
			return nil
		}
		return err
	}

	if err := s.client.Cancel(ctx, d.ID); err != nil {
		return err
	}

	// Only a confirmed cancellation stops the poll: an unresolved declaration
	// that the service still holds must keep being watched.
	s.scheduler.CancelPoll(d.ID)

	if d.Resolved() {
		if err := s.store.ResolveDeclaration(ctx, d.ID, false, "cancelled"); err != nil {
			return err
		}
	} else {
		if err := s.store.DeleteDeclaration(ctx, d.ID); err != nil {
			return err
		}
	}

	s.log.Info("declaration cancelled", map[string]interface{}{
		"declarationId": d.ID,
		"applicationId": app.ID,
		"wasResolved":   d.Resolved(),
	})
	return nil
}
