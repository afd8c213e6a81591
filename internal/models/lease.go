package models

import (
	"time"

	"github.com/google/uuid"
)

// Lease status values
const (
	LeaseDraft            = "draft"
	LeasePendingSignature = "pending_signature"
	LeaseActive           = "active"
	LeaseTerminated       = "terminated"
	LeaseExpired          = "expired"
)

// ANSUT certification status values
const (
	CertificationNotRequested = "not_requested"
	CertificationPending      = "pending"
	CertificationCertified    = "certified"
	CertificationRejected     = "rejected"
)

type Lease struct {
	ID                       uuid.UUID  `json:"id" db:"id"`
	PropertyID               uuid.UUID  `json:"property_id" db:"property_id"`
	OwnerID                  uuid.UUID  `json:"owner_id" db:"owner_id"`
	TenantID                 uuid.UUID  `json:"tenant_id" db:"tenant_id"`
	ApplicationID            *uuid.UUID `json:"application_id" db:"application_id"`
	MonthlyRent              float64    `json:"monthly_rent" db:"monthly_rent"`
	Deposit                  float64    `json:"deposit" db:"deposit"`
	Currency                 string     `json:"currency" db:"currency"`
	StartDate                time.Time  `json:"start_date" db:"start_date"`
	EndDate                  time.Time  `json:"end_date" db:"end_date"`
	PaymentDay               int        `json:"payment_day" db:"payment_day"`
	Status                   string     `json:"status" db:"status"`
	TenantSignedAt           *time.Time `json:"tenant_signed_at" db:"tenant_signed_at"`
	OwnerSignedAt            *time.Time `json:"owner_signed_at" db:"owner_signed_at"`
	DocumentObject           *string    `json:"-" db:"document_object"`
	CertificationStatus      string     `json:"certification_status" db:"certification_status"`
	CertificationNotes       *string    `json:"certification_notes" db:"certification_notes"`
	CertificationRequestedAt *time.Time `json:"certification_requested_at" db:"certification_requested_at"`
	CertifiedAt              *time.Time `json:"certified_at" db:"certified_at"`
	TerminatedAt             *time.Time `json:"terminated_at" db:"terminated_at"`
	TerminationReason        *string    `json:"termination_reason" db:"termination_reason"`
	CreatedAt                time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt                time.Time  `json:"updated_at" db:"updated_at"`
}

// IsParty reports whether userID is the lease's owner or tenant
func (l *Lease) IsParty(userID uuid.UUID) bool {
	return l.OwnerID == userID || l.TenantID == userID
}

// LeaseSignature records one party's electronic signature
type LeaseSignature struct {
	ID            uuid.UUID `json:"id" db:"id"`
	LeaseID       uuid.UUID `json:"lease_id" db:"lease_id"`
	SignerID      uuid.UUID `json:"signer_id" db:"signer_id"`
	SignerRole    string    `json:"signer_role" db:"signer_role"` // owner, tenant
	SignatureHash string    `json:"signature_hash" db:"signature_hash"`
	IPAddress     string    `json:"ip_address" db:"ip_address"`
	SignedAt      time.Time `json:"signed_at" db:"signed_at"`
}
