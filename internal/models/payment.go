package models

import (
	"time"

	"github.com/google/uuid"
)

// Rent payment status values
const (
	PaymentDue     = "due"
	PaymentPending = "pending"
	PaymentPaid    = "paid"
	PaymentFailed  = "failed"
	PaymentOverdue = "overdue"
)

// Mobile money transaction status values
const (
	TransactionPending = "pending"
	TransactionSuccess = "success"
	TransactionFailed  = "failed"
)

// Mobile money providers
var MobileMoneyProviders = map[string]bool{
	"orange_money": true,
	"mtn_money":    true,
	"moov_money":   true,
	"wave":         true,
}

// RentPayment is one scheduled monthly rent instalment
type RentPayment struct {
	ID        uuid.UUID  `json:"id" db:"id"`
	LeaseID   uuid.UUID  `json:"lease_id" db:"lease_id"`
	TenantID  uuid.UUID  `json:"tenant_id" db:"tenant_id"`
	Amount    float64    `json:"amount" db:"amount"`
	Currency  string     `json:"currency" db:"currency"`
	DueDate   time.Time  `json:"due_date" db:"due_date"`
	Status    string     `json:"status" db:"status"`
	PaidAt    *time.Time `json:"paid_at" db:"paid_at"`
	CreatedAt time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt time.Time  `json:"updated_at" db:"updated_at"`
}

// Transaction is a mobile money operation reported back by the provider webhook
type Transaction struct {
	ID            uuid.UUID  `json:"id" db:"id"`
	PaymentID     *uuid.UUID `json:"payment_id" db:"payment_id"`
	UserID        uuid.UUID  `json:"user_id" db:"user_id"`
	Provider      string     `json:"provider" db:"provider"`
	Reference     string     `json:"reference" db:"reference"`
	ProviderTxID  *string    `json:"provider_tx_id" db:"provider_tx_id"`
	Amount        float64    `json:"amount" db:"amount"`
	Currency      string     `json:"currency" db:"currency"`
	Phone         string     `json:"phone" db:"phone"`
	Status        string     `json:"status" db:"status"`
	FailureReason *string    `json:"failure_reason" db:"failure_reason"`
	CreatedAt     time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at" db:"updated_at"`
}

// IsFinal reports whether the provider already settled the transaction
func (t *Transaction) IsFinal() bool {
	return t.Status == TransactionSuccess || t.Status == TransactionFailed
}

// PaymentHistory summarises a tenant's rent payment record
type PaymentHistory struct {
	Total  int `json:"total"`
	OnTime int `json:"on_time"`
}
