package models

import (
	"time"

	"github.com/google/uuid"
)

// Property status values
const (
	PropertyStatusDraft     = "draft"
	PropertyStatusAvailable = "available"
	PropertyStatusRented    = "rented"
	PropertyStatusArchived  = "archived"
)

// Moderation status values
const (
	ModerationPending  = "pending"
	ModerationApproved = "approved"
	ModerationRejected = "rejected"
)

type Property struct {
	ID               uuid.UUID `json:"id" db:"id"`
	OwnerID          uuid.UUID `json:"owner_id" db:"owner_id"`
	Title            string    `json:"title" db:"title"`
	Description      string    `json:"description" db:"description"`
	PropertyType     string    `json:"property_type" db:"property_type"` // apartment, house, studio, villa, room, commercial
	Address          string    `json:"address" db:"address"`
	City             string    `json:"city" db:"city"`
	Neighborhood     *string   `json:"neighborhood" db:"neighborhood"`
	MonthlyRent      float64   `json:"monthly_rent" db:"monthly_rent"`
	Deposit          float64   `json:"deposit" db:"deposit"`
	Bedrooms         int       `json:"bedrooms" db:"bedrooms"`
	Bathrooms        int       `json:"bathrooms" db:"bathrooms"`
	SurfaceArea      *float64  `json:"surface_area" db:"surface_area"`
	Furnished        bool      `json:"furnished" db:"furnished"`
	Status           string    `json:"status" db:"status"`
	ModerationStatus string    `json:"moderation_status" db:"moderation_status"`
	ModerationNotes  *string   `json:"moderation_notes" db:"moderation_notes"`
	Images           []string  `json:"images" db:"images"`
	CreatedAt        time.Time `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time `json:"updated_at" db:"updated_at"`
}

// PropertySearchFilter narrows the public listing search
type PropertySearchFilter struct {
	Query        string   `json:"query"`
	City         string   `json:"city"`
	Neighborhood string   `json:"neighborhood"`
	PropertyType string   `json:"property_type"`
	MinRent      *float64 `json:"min_rent"`
	MaxRent      *float64 `json:"max_rent"`
	MinBedrooms  *int     `json:"min_bedrooms"`
	Furnished    *bool    `json:"furnished"`
	SortBy       string   `json:"sort_by"`    // monthly_rent, created_at
	SortOrder    string   `json:"sort_order"` // asc, desc
	Limit        int      `json:"limit"`
	Offset       int      `json:"offset"`
}

// ValidPropertyTypes lists the accepted property_type values
var ValidPropertyTypes = map[string]bool{
	"apartment":  true,
	"house":      true,
	"studio":     true,
	"villa":      true,
	"room":       true,
	"commercial": true,
}
