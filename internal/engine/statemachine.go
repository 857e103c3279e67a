package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	domainerr "github.com/LYTE-studios/werkr-engine/internal/common/errors"
	"github.com/LYTE-studios/werkr-engine/internal/common/logger"
	"github.com/LYTE-studios/werkr-engine/internal/common/metrics"
	"github.com/LYTE-studios/werkr-engine/internal/models"
)

// Engine owns the pending -> approved/rejected transition contract and the
// side-effect ordering around it: declare, persist, resolve conflicts,
// recount capacity, then notify. Notifications and contract generation run
// after commit so a slow mail or PDF step never holds the capacity lock.
type Engine struct {
	store     Storage
	decl      DeclarationSync
	profiles  ProfileChecker
	notifier  Notifier
	contracts ContractGenerator
	conflicts *ConflictResolver
	capacity  *CapacityCounter
	log       logger.Logger
	now       func() time.Time
}

func New(store Storage, decl DeclarationSync, profiles ProfileChecker, notifier Notifier, contracts ContractGenerator, buffer time.Duration, log logger.Logger) *Engine {
	return &Engine{
		store:     store,
		decl:      decl,
		profiles:  profiles,
		notifier:  notifier,
		contracts: contracts,
		conflicts: NewConflictResolver(buffer, log),
		capacity:  NewCapacityCounter(log),
		log:       log,
		now:       time.Now,
	}
}

// sideEffects collects work queued during the transaction and dispatched
// after commit.
type sideEffects struct {
	rejectedOverlaps []models.JobApplication
	rejectedFull     []models.JobApplication
	broadcast        *models.Job
}

// Approve transitions a pending application to approved.
//
// The declaration is filed before the state is persisted; an external failure
// there is alerted but never blocks the approval, because worker scheduling
// cannot be hostage to a third party's uptime. The state write, conflict
// rejection and capacity recount run as one atomic unit.
func (e *Engine) Approve(ctx context.Context, applicationID uuid.UUID) error {
	start := e.now()
	defer func() {
		metrics.TransitionDuration.WithLabelValues("approve").Observe(time.Since(start).Seconds())
	}()

	app, err := e.store.GetApplication(ctx, applicationID)
	if err != nil {
		return err
	}
	if app.State != models.ApplicationStatePending {
		return domainerr.NewInvalidTransition(string(app.State), string(models.ApplicationStateApproved))
	}

	completion, err := e.profiles.Check(ctx, app.WorkerID)
	if err != nil {
		return fmt.Errorf("profile completeness check: %w", err)
	}
	if !completion.Complete() {
		return domainerr.NewValidationFailed("worker profile is incomplete", completion.MissingFields...)
	}

	job, err := e.store.GetJob(ctx, app.JobID)
	if err != nil {
		return err
	}
	profile, err := e.store.GetWorkerProfile(ctx, app.WorkerID)
	if err != nil {
		return err
	}

	if err := e.decl.CreateIfNeeded(ctx, app, job, profile); err != nil {
		if domainerr.IsValidationFailed(err) {
			// Unnormalizable legal identifier: a local input error, not an
			// external fault. No state change.
			return err
		}
		e.log.WithError(err).Error("declaration creation failed, approving anyway", map[string]interface{}{
			"applicationId": applicationID,
			"workerId":      app.WorkerID,
		})
		e.alertAdmins(ctx, "Declaration creation failed",
			fmt.Sprintf("application %s approved without declaration: %v", applicationID, err))
	}

	var effects sideEffects
	err = e.store.InTx(ctx, func(ctx context.Context, r Repos) error {
		effects = sideEffects{}

		cur, err := r.GetApplicationForUpdate(ctx, applicationID)
		if err != nil {
			return err
		}
		if cur.State != models.ApplicationStatePending {
			return domainerr.NewInvalidTransition(string(cur.State), string(models.ApplicationStateApproved))
		}
		j, err := r.GetJobForUpdate(ctx, cur.JobID)
		if err != nil {
			return err
		}

		if err := r.SetApplicationState(ctx, applicationID, models.ApplicationStateApproved); err != nil {
			return err
		}

		overlaps, err := e.conflicts.RejectOverlapping(ctx, r, cur, j.StartTime, j.EndTime)
		if err != nil {
			return err
		}
		effects.rejectedOverlaps = overlaps

		capRes, err := e.capacity.Recalculate(ctx, r, j)
		if err != nil {
			return err
		}
		effects.rejectedFull = capRes.Rejected
		return nil
	})
	if err != nil {
		return err
	}

	metrics.ApplicationsApproved.Inc()
	e.log.Info("application approved", map[string]interface{}{
		"applicationId": applicationID,
		"jobId":         app.JobID,
		"workerId":      app.WorkerID,
	})

	app.State = models.ApplicationStateApproved
	e.dispatchApproval(ctx, app, job, effects)
	return nil
}

// Deny transitions a pending or approved application to rejected. Denying an
// already rejected application is an error, never a silent no-op.
func (e *Engine) Deny(ctx context.Context, applicationID uuid.UUID) error {
	start := e.now()
	defer func() {
		metrics.TransitionDuration.WithLabelValues("deny").Observe(time.Since(start).Seconds())
	}()

	var (
		prior    models.ApplicationState
		app      *models.JobApplication
		job      *models.Job
		reopened bool
	)
	err := e.store.InTx(ctx, func(ctx context.Context, r Repos) error {
		cur, err := r.GetApplicationForUpdate(ctx, applicationID)
		if err != nil {
			return err
		}
		if cur.State == models.ApplicationStateRejected {
			return domainerr.NewInvalidTransition(string(cur.State), string(models.ApplicationStateRejected))
		}
		prior = cur.State

		j, err := r.GetJobForUpdate(ctx, cur.JobID)
		if err != nil {
			return err
		}
		wasFull := j.IsFull()

		if err := r.SetApplicationState(ctx, applicationID, models.ApplicationStateRejected); err != nil {
			return err
		}

		capRes, err := e.capacity.Recalculate(ctx, r, j)
		if err != nil {
			return err
		}
		reopened = wasFull && capRes.Count < j.MaxWorkers

		app, job = cur, j
		return nil
	})
	if err != nil {
		return err
	}

	metrics.ApplicationsDenied.Inc()
	e.log.Info("application denied", map[string]interface{}{
		"applicationId": applicationID,
		"jobId":         app.JobID,
		"priorState":    prior,
	})

	if prior == models.ApplicationStateApproved {
		e.cancelDeclaration(ctx, app)
	}
	if reopened {
		if err := e.notifier.BroadcastNewSlot(ctx, job); err != nil {
			metrics.NotificationFailures.WithLabelValues("broadcast").Inc()
			e.log.WithError(err).Warn("new slot broadcast failed", map[string]interface{}{"jobId": job.ID})
		}
	}
	e.notifyUser(ctx, app.WorkerID, "Application update",
		fmt.Sprintf("Your application for %s was not selected.", job.Title))
	return nil
}

// RegisterApplication creates a pending application for a bookable job. When
// the job is already full, or the worker already holds an approved
// application that conflicts with this job's window, the new application is
// rejected in the same transaction and the worker is told why.
func (e *Engine) RegisterApplication(ctx context.Context, jobID, workerID uuid.UUID, address string, oneWayKm float64, noTravelCost bool) (*models.JobApplication, error) {
	app := &models.JobApplication{
		ID:           uuid.New(),
		JobID:        jobID,
		WorkerID:     workerID,
		Address:      address,
		State:        models.ApplicationStatePending,
		Distance:     models.TravelDistance(oneWayKm, noTravelCost),
		NoTravelCost: noTravelCost,
		CreatedAt:    e.now().UTC(),
	}

	var job *models.Job
	var rejectReason string
	err := e.store.InTx(ctx, func(ctx context.Context, r Repos) error {
		rejectReason = ""

		j, err := r.GetJobForUpdate(ctx, jobID)
		if err != nil {
			return err
		}
		if j.IsDraft || j.Archived {
			return domainerr.NewValidationFailed("job is not open for applications")
		}
		now := e.now()
		if now.Before(j.ApplicationStartTime) || now.After(j.ApplicationEndTime) {
			return domainerr.NewValidationFailed("application window is closed")
		}

		if err := r.CreateApplication(ctx, app); err != nil {
			return err
		}

		if j.IsFull() {
			rejectReason = "the job is already full"
		} else {
			windows, err := r.ListWorkerApplicationWindows(ctx, workerID, app.ID)
			if err != nil {
				return err
			}
			for _, w := range windows {
				if w.Application.State != models.ApplicationStateApproved {
					continue
				}
				if WindowsConflict(j.StartTime, j.EndTime, w.JobStart, w.JobEnd, e.conflicts.buffer) {
					rejectReason = "it overlaps another job you are booked for"
					break
				}
			}
		}

		if rejectReason != "" {
			if err := r.SetApplicationState(ctx, app.ID, models.ApplicationStateRejected); err != nil {
				return err
			}
			app.State = models.ApplicationStateRejected
		}

		job = j
		return nil
	})
	if err != nil {
		return nil, err
	}

	if rejectReason != "" {
		e.notifyUser(ctx, workerID, "Application update",
			fmt.Sprintf("Your application for %s was rejected: %s.", job.Title, rejectReason))
	}
	return app, nil
}

// dispatchApproval runs the post-commit side effects of an approval:
// declaration cleanup for applications the transaction rejected, rejection
// notices, contract generation and the approval notifications.
func (e *Engine) dispatchApproval(ctx context.Context, app *models.JobApplication, job *models.Job, effects sideEffects) {
	for _, r := range effects.rejectedOverlaps {
		if r.State == models.ApplicationStateApproved {
			rejected := r
			e.cancelDeclaration(ctx, &rejected)
		}
		e.notifyUser(ctx, r.WorkerID, "Application update",
			"Your application was rejected because it overlaps another booking.")
	}
	for _, r := range effects.rejectedFull {
		if r.State == models.ApplicationStateApproved {
			rejected := r
			e.cancelDeclaration(ctx, &rejected)
		}
		e.notifyUser(ctx, r.WorkerID, "Application update",
			fmt.Sprintf("The job %s is fully booked.", job.Title))
	}

	if err := e.contracts.Generate(ctx, app); err != nil {
		metrics.NotificationFailures.WithLabelValues("contract").Inc()
		e.log.WithError(err).Error("contract generation failed", map[string]interface{}{
			"applicationId": app.ID,
		})
	}

	e.notifyUser(ctx, app.WorkerID, "You're booked!",
		fmt.Sprintf("Your application for %s was approved.", job.Title))
	e.notifyUser(ctx, job.CustomerID, "Worker confirmed",
		fmt.Sprintf("A worker was confirmed for %s.", job.Title))
}

func (e *Engine) cancelDeclaration(ctx context.Context, app *models.JobApplication) {
	if err := e.decl.Cancel(ctx, app); err != nil {
		e.log.WithError(err).Error("declaration cancellation failed", map[string]interface{}{
			"applicationId": app.ID,
		})
		e.alertAdmins(ctx, "Declaration cancellation failed",
			fmt.Sprintf("application %s: %v", app.ID, err))
	}
}

func (e *Engine) notifyUser(ctx context.Context, userID uuid.UUID, title, body string) {
	if err := e.notifier.NotifyUser(ctx, userID, title, body); err != nil {
		metrics.NotificationFailures.WithLabelValues("user").Inc()
		e.log.WithError(err).Warn("user notification failed", map[string]interface{}{"userId": userID})
	}
}

func (e *Engine) alertAdmins(ctx context.Context, title, body string) {
	if err := e.notifier.NotifyAdmins(ctx, title, body); err != nil {
		metrics.NotificationFailures.WithLabelValues("admin").Inc()
		e.log.WithError(err).Warn("admin alert failed", map[string]interface{}{"title": title})
	}
}
