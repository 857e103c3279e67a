package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/LYTE-studios/werkr-engine/internal/engine"
	"github.com/LYTE-studios/werkr-engine/internal/models"
)

// EnqueueContract queues contract generation for an approved application.
// A worker process renders and delivers the document; the engine only needs
// the request persisted in the same way other side effects are, so an
// approval that commits is never left without a contract job.
func (s *Store) EnqueueContract(ctx context.Context, app *models.JobApplication) error {
	_, err := s.q.ExecContext(ctx, `
		INSERT INTO contract_jobs (id, application_id, worker_id, job_id, status, created_at)
		VALUES ($1, $2, $3, $4, 'queued', $5)
		ON CONFLICT (application_id) DO NOTHING`,
		uuid.New(), app.ID, app.WorkerID, app.JobID, time.Now().UTC())
	return err
}

// ContractQueue adapts the store to the contract generation port.
type ContractQueue struct {
	store *Store
}

var _ engine.ContractGenerator = (*ContractQueue)(nil)

func NewContractQueue(store *Store) *ContractQueue {
	return &ContractQueue{store: store}
}

func (q *ContractQueue) Generate(ctx context.Context, app *models.JobApplication) error {
	return q.store.EnqueueContract(ctx, app)
}
