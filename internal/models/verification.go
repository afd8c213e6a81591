package models

import (
	"time"

	"github.com/google/uuid"
)

// Verification types
const (
	VerificationONECI    = "oneci"
	VerificationCNAM     = "cnam"
	VerificationPassport = "passport"
)

// Verification status values
const (
	VerificationPendingReview = "pending_review"
	VerificationApproved      = "approved"
	VerificationRejected      = "rejected"
)

// Verification is an identity or employment check awaiting human review
type Verification struct {
	ID               uuid.UUID  `json:"id" db:"id"`
	UserID           uuid.UUID  `json:"user_id" db:"user_id"`
	Type             string     `json:"type" db:"type"`
	Status           string     `json:"status" db:"status"`
	DocumentNumber   string     `json:"document_number" db:"document_number"`
	FirstName        string     `json:"first_name" db:"first_name"`
	LastName         string     `json:"last_name" db:"last_name"`
	BirthDate        *time.Time `json:"birth_date" db:"birth_date"`
	Employer         *string    `json:"employer" db:"employer"`
	DocumentObject   *string    `json:"-" db:"document_object"`
	ProviderResponse JSONB      `json:"provider_response" db:"provider_response"`
	ReviewedBy       *uuid.UUID `json:"reviewed_by" db:"reviewed_by"`
	ReviewNotes      *string    `json:"review_notes" db:"review_notes"`
	ReviewedAt       *time.Time `json:"reviewed_at" db:"reviewed_at"`
	CreatedAt        time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at" db:"updated_at"`
}
