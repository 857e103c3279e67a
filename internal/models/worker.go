package models

import "github.com/google/uuid"

// EmploymentType classifies a worker for legal declaration purposes. The
// classification is an explicit enum: declaration handling must never depend
// on which optional profile attributes happen to be present.
type EmploymentType string

const (
	EmploymentTypeFreelancer EmploymentType = "freelancer"
	EmploymentTypeStudent    EmploymentType = "student"
	EmploymentTypeFlexi      EmploymentType = "flexi"
)

// RequiresDeclaration reports whether approving a worker of this type must be
// mirrored into the external declaration system. Freelancers handle their own
// social contributions.
func (t EmploymentType) RequiresDeclaration() bool {
	switch t {
	case EmploymentTypeStudent, EmploymentTypeFlexi:
		return true
	default:
		return false
	}
}

// WorkerProfile carries the profile fields the engine reads: enough to gate
// approval on completeness and to file a declaration.
type WorkerProfile struct {
	ID             uuid.UUID      `json:"id"`
	FirstName      string         `json:"firstName"`
	LastName       string         `json:"lastName"`
	Email          string         `json:"email"`
	Phone          string         `json:"phone"`
	Address        string         `json:"address"`
	IBAN           string         `json:"iban"`
	NationalNumber string         `json:"nationalNumber"` // NISS
	EmploymentType EmploymentType `json:"employmentType"`
}

// WorkerContact is a worker's delivery addresses for notifications. DeviceID
// may be empty when the worker has no registered device.
type WorkerContact struct {
	Email    string `json:"email"`
	DeviceID string `json:"deviceId"`
}

// ProfileCompletion is the result of the profile completeness check consumed
// before approval.
type ProfileCompletion struct {
	Percentage    int      `json:"percentage"`
	MissingFields []string `json:"missingFields"`
}

// Complete reports whether the profile can be approved.
func (p ProfileCompletion) Complete() bool {
	return p.Percentage >= 100
}
