package models

import (
	"time"

	"github.com/google/uuid"
)

// Declaration mirrors an approved application into the external
// social-secretariat system. The ID is assigned by the declaration service,
// never generated locally. Success is tri-state: nil while the declaration is
// unresolved, then true (confirmed) or false (failed, cancelled or timed out).
type Declaration struct {
	ID            string    `json:"id"`
	ApplicationID uuid.UUID `json:"applicationId"`
	Success       *bool     `json:"success"`
	Reason        string    `json:"reason,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
}

// Resolved reports whether the external system reached a terminal verdict.
func (d *Declaration) Resolved() bool {
	return d.Success != nil
}
