package models

import (
	"time"

	"github.com/google/uuid"
)

// Application status values
const (
	ApplicationPending   = "pending"
	ApplicationApproved  = "approved"
	ApplicationRejected  = "rejected"
	ApplicationWithdrawn = "withdrawn"
)

// RentalApplication is a tenant's request to rent a property
type RentalApplication struct {
	ID             uuid.UUID  `json:"id" db:"id"`
	PropertyID     uuid.UUID  `json:"property_id" db:"property_id"`
	TenantID       uuid.UUID  `json:"tenant_id" db:"tenant_id"`
	Status         string     `json:"status" db:"status"`
	Message        *string    `json:"message" db:"message"`
	Score          *int       `json:"score" db:"score"`
	Recommendation *string    `json:"recommendation" db:"recommendation"`
	ReviewedBy     *uuid.UUID `json:"reviewed_by" db:"reviewed_by"`
	ReviewNotes    *string    `json:"review_notes" db:"review_notes"`
	ReviewedAt     *time.Time `json:"reviewed_at" db:"reviewed_at"`
	CreatedAt      time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at" db:"updated_at"`
}
