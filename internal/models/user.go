package models

import (
	"time"

	"github.com/google/uuid"
)

// User status values
const (
	UserStatusActive    = "active"
	UserStatusSuspended = "suspended"
)

type User struct {
	ID                 uuid.UUID  `json:"id" db:"id"`
	Email              string     `json:"email" db:"email"`
	PasswordHash       string     `json:"-" db:"password_hash"` // Never serialize in JSON
	FullName           string     `json:"full_name" db:"full_name"`
	Phone              *string    `json:"phone" db:"phone"`
	Role               string     `json:"role" db:"role"`
	Status             string     `json:"status" db:"status"`
	IdentityVerified   bool       `json:"identity_verified" db:"identity_verified"`
	EmploymentVerified bool       `json:"employment_verified" db:"employment_verified"`
	MFAEnabled         bool       `json:"mfa_enabled" db:"mfa_enabled"`
	MFARequiredSince   *time.Time `json:"mfa_required_since" db:"mfa_required_since"`
	MonthlyIncome      *float64   `json:"monthly_income" db:"monthly_income"`
	ProfileCompleted   bool       `json:"profile_completed" db:"profile_completed"`
	CreatedAt          time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at" db:"updated_at"`
}
