package testhelpers

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"montoit/internal/models"
	"montoit/internal/repositories"
	"montoit/internal/services"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// TestDB holds the database connection for testing
type TestDB struct {
	Pool    *pgxpool.Pool
	Cleanup func() error
}

// SetupTestDB connects to TEST_DATABASE_URL; the test is skipped when it is unset
func SetupTestDB(t *testing.T, connString string) *TestDB {
	t.Helper()

	if connString == "" {
		connString = os.Getenv("TEST_DATABASE_URL")
		if connString == "" {
			t.Skip("TEST_DATABASE_URL not set")
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		t.Fatalf("Failed to ping test database: %v", err)
	}

	return &TestDB{
		Pool: pool,
		Cleanup: func() error {
			pool.Close()
			return nil
		},
	}
}

// SetupTestUser inserts a user with the given role and a unique email
func SetupTestUser(t *testing.T, db *TestDB, role string) *models.User {
	t.Helper()

	id := uuid.New()
	user := &models.User{
		ID:           id,
		Email:        fmt.Sprintf("%s-%s@montoit.test", role, id.String()[:8]),
		PasswordHash: "$2a$10$abcdefghijklmnopqrstuv",
		FullName:     "Test " + role,
		Role:         role,
		Status:       models.UserStatusActive,
	}
	if services.MFARequiredRoles[role] {
		now := time.Now()
		user.MFARequiredSince = &now
	}

	if err := repositories.NewUserRepo(db.Pool).Create(context.Background(), user); err != nil {
		t.Fatalf("Failed to create test user: %v", err)
	}
	t.Cleanup(func() {
		_, _ = db.Pool.Exec(context.Background(), `DELETE FROM users WHERE id = $1`, id)
	})

	return user
}

// SetupTestProperty inserts an approved, available listing in Abidjan
func SetupTestProperty(t *testing.T, db *TestDB, ownerID uuid.UUID) *models.Property {
	t.Helper()

	neighborhood := "Cocody"
	property := &models.Property{
		ID:               uuid.New(),
		OwnerID:          ownerID,
		Title:            "Appartement 3 pièces Riviera",
		Description:      "Appartement lumineux proche des commerces",
		PropertyType:     "apartment",
		Address:          "Riviera 3, rue des Jardins",
		City:             "Abidjan",
		Neighborhood:     &neighborhood,
		MonthlyRent:      250000,
		Deposit:          500000,
		Bedrooms:         2,
		Bathrooms:        1,
		Status:           models.PropertyStatusAvailable,
		ModerationStatus: models.ModerationApproved,
		Images:           []string{},
	}

	if err := repositories.NewPropertyRepo(db.Pool).Create(context.Background(), property); err != nil {
		t.Fatalf("Failed to create test property: %v", err)
	}
	t.Cleanup(func() {
		_, _ = db.Pool.Exec(context.Background(), `DELETE FROM properties WHERE id = $1`, property.ID)
	})

	return property
}
