package profile

import (
	"context"

	"github.com/google/uuid"

	"github.com/LYTE-studios/werkr-engine/internal/engine"
	"github.com/LYTE-studios/werkr-engine/internal/models"
)

// Store is the profile lookup the checker runs on.
type Store interface {
	GetWorkerProfile(ctx context.Context, workerID uuid.UUID) (*models.WorkerProfile, error)
}

// Checker computes profile completeness from the stored profile. Every listed
// field weighs equally; approval requires all of them.
type Checker struct {
	store Store
}

var _ engine.ProfileChecker = (*Checker)(nil)

func NewChecker(store Store) *Checker {
	return &Checker{store: store}
}

type fieldCheck struct {
	name  string
	value func(*models.WorkerProfile) string
}

var requiredFields = []fieldCheck{
	{"firstName", func(p *models.WorkerProfile) string { return p.FirstName }},
	{"lastName", func(p *models.WorkerProfile) string { return p.LastName }},
	{"email", func(p *models.WorkerProfile) string { return p.Email }},
	{"phone", func(p *models.WorkerProfile) string { return p.Phone }},
	{"address", func(p *models.WorkerProfile) string { return p.Address }},
	{"iban", func(p *models.WorkerProfile) string { return p.IBAN }},
	{"employmentType", func(p *models.WorkerProfile) string { return string(p.EmploymentType) }},
}

func (c *Checker) Check(ctx context.Context, workerID uuid.UUID) (models.ProfileCompletion, error) {
	p, err := c.store.GetWorkerProfile(ctx, workerID)
	if err != nil {
		return models.ProfileCompletion{}, err
	}
	return Evaluate(p), nil
}

// Evaluate scores a profile without touching storage. The national number is
// required only for employment types that file declarations.
func Evaluate(p *models.WorkerProfile) models.ProfileCompletion {
	checks := requiredFields
	if p.EmploymentType.RequiresDeclaration() {
		checks = append(append([]fieldCheck{}, requiredFields...),
			fieldCheck{"nationalNumber", func(p *models.WorkerProfile) string { return p.NationalNumber }})
	}

	var missing []string
	for _, f := range checks {
		if f.value(p) == "" {
			missing = append(missing, f.name)
		}
	}
	pct := (len(checks) - len(missing)) * 100 / len(checks)
	return models.ProfileCompletion{Percentage: pct, MissingFields: missing}
}
