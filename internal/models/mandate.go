package models

import (
	"time"

	"github.com/google/uuid"
)

// Mandate status values
const (
	MandatePending  = "pending"
	MandateActive   = "active"
	MandateRejected = "rejected"
	MandateRevoked  = "revoked"
	MandateExpired  = "expired"
)

// Mandate permissions
const (
	PermManageListings     = "manage_listings"
	PermManageApplications = "manage_applications"
	PermManageLeases       = "manage_leases"
	PermCollectPayments    = "collect_payments"
)

// ValidMandatePermissions lists every grantable permission
var ValidMandatePermissions = map[string]bool{
	PermManageListings:     true,
	PermManageApplications: true,
	PermManageLeases:       true,
	PermCollectPayments:    true,
}

// Mandate delegates permissions over an owner's property to an agency
type Mandate struct {
	ID             uuid.UUID  `json:"id" db:"id"`
	PropertyID     uuid.UUID  `json:"property_id" db:"property_id"`
	OwnerID        uuid.UUID  `json:"owner_id" db:"owner_id"`
	AgencyID       uuid.UUID  `json:"agency_id" db:"agency_id"`
	Permissions    []string   `json:"permissions" db:"permissions"`
	Status         string     `json:"status" db:"status"`
	CommissionRate *float64   `json:"commission_rate" db:"commission_rate"`
	StartDate      time.Time  `json:"start_date" db:"start_date"`
	EndDate        *time.Time `json:"end_date" db:"end_date"`
	RevokedAt      *time.Time `json:"revoked_at" db:"revoked_at"`
	CreatedAt      time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at" db:"updated_at"`
}

// Grants reports whether the mandate currently grants perm
func (m *Mandate) Grants(perm string, now time.Time) bool {
	if m.Status != MandateActive {
		return false
	}
	if m.EndDate != nil && !now.Before(*m.EndDate) {
		return false
	}
	for _, p := range m.Permissions {
		if p == perm {
			return true
		}
	}
	return false
}
