package models

import (
	"time"

	"github.com/google/uuid"
)

// Channel is a delivery channel for a notification
type Channel string

const (
	ChannelInApp Channel = "in_app"
	ChannelEmail Channel = "email"
	ChannelSMS   Channel = "sms"
)

// Notification kinds emitted by the platform
const (
	KindApplicationReceived = "application_received"
	KindApplicationApproved = "application_approved"
	KindApplicationRejected = "application_rejected"
	KindLeaseToSign         = "lease_to_sign"
	KindLeaseActivated      = "lease_activated"
	KindLeaseTerminated     = "lease_terminated"
	KindLeaseCertified      = "lease_certified"
	KindVerificationReview  = "verification_reviewed"
	KindPaymentReceived     = "payment_received"
	KindPaymentFailed       = "payment_failed"
	KindPaymentOverdue      = "payment_overdue"
	KindMandateUpdate       = "mandate_update"
	KindMFAReminder         = "mfa_reminder"
)

// Notification represents an in-app notification and its delivery outcome
type Notification struct {
	ID            uuid.UUID  `json:"id" db:"id"`
	UserID        uuid.UUID  `json:"user_id" db:"user_id"`
	Kind          string     `json:"kind" db:"kind"`
	Title         string     `json:"title" db:"title"`
	Body          string     `json:"body" db:"body"`
	Channels      []string   `json:"channels" db:"channels"`
	Data          JSONB      `json:"data" db:"data"`
	ReadAt        *time.Time `json:"read_at" db:"read_at"`
	DeliveryError *string    `json:"delivery_error" db:"delivery_error"`
	CreatedAt     time.Time  `json:"created_at" db:"created_at"`
}

// JSONB represents PostgreSQL JSONB type
type JSONB map[string]interface{}
