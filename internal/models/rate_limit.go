package models

import (
	"time"

	"github.com/google/uuid"
)

type RateLimitEvent struct {
	ID         uuid.UUID `json:"id" db:"id"`
	Identifier string    `json:"identifier" db:"identifier"`
	Action     string    `json:"action" db:"action"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}
