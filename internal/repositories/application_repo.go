package repositories

import (
	"context"

	"montoit/internal/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type ApplicationRepository interface {
	Create(ctx context.Context, app *models.RentalApplication) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.RentalApplication, error)
	UpdateReview(ctx context.Context, app *models.RentalApplication) error
	ListByTenant(ctx context.Context, tenantID uuid.UUID) ([]*models.RentalApplication, error)
	ListByProperty(ctx context.Context, propertyID uuid.UUID) ([]*models.RentalApplication, error)
	HasOpen(ctx context.Context, tenantID, propertyID uuid.UUID) (bool, error)
	CountOpenByTenant(ctx context.Context, tenantID uuid.UUID) (int, error)
	CountPendingForOwner(ctx context.Context, ownerID uuid.UUID) (int, error)
}

const applicationColumns = `id, property_id, tenant_id, status, message, score, recommendation, reviewed_by, review_notes, reviewed_at, created_at, updated_at`

type applicationRepo struct {
	db DBTX
}

func NewApplicationRepo(db DBTX) ApplicationRepository {
	return &applicationRepo{db: db}
}

func scanApplication(row pgx.Row) (*models.RentalApplication, error) {
	a := &models.RentalApplication{}
	err := row.Scan(&a.ID, &a.PropertyID, &a.TenantID, &a.Status, &a.Message, &a.Score, &a.Recommendation,
		&a.ReviewedBy, &a.ReviewNotes, &a.ReviewedAt, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return a, nil
}

func (r *applicationRepo) list(ctx context.Context, query string, args ...any) ([]*models.RentalApplication, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var apps []*models.RentalApplication
	for rows.Next() {
		a, err := scanApplication(rows)
		if err != nil {
			return nil, err
		}
		apps = append(apps, a)
	}
	return apps, rows.Err()
}

func (r *applicationRepo) Create(ctx context.Context, app *models.RentalApplication) error {
	query := `
		INSERT INTO rental_applications (id, property_id, tenant_id, status, message, score, recommendation, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW(), NOW())
	`
	_, err := r.db.Exec(ctx, query, app.ID, app.PropertyID, app.TenantID, app.Status, app.Message, app.Score, app.Recommendation)
	return err
}

func (r *applicationRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.RentalApplication, error) {
	query := `SELECT ` + applicationColumns + ` FROM rental_applications WHERE id = $1`
	return scanApplication(r.db.QueryRow(ctx, query, id))
}

func (r *applicationRepo) UpdateReview(ctx context.Context, app *models.RentalApplication) error {
	query := `
		UPDATE rental_applications
		SET status = $1, reviewed_by = $2, review_notes = $3, reviewed_at = $4, updated_at = NOW()
		WHERE id = $5
	`
	return requireRow(r.db.Exec(ctx, query, app.Status, app.ReviewedBy, app.ReviewNotes, app.ReviewedAt, app.ID))
}

func (r *applicationRepo) ListByTenant(ctx context.Context, tenantID uuid.UUID) ([]*models.RentalApplication, error) {
	return r.list(ctx, `SELECT `+applicationColumns+` FROM rental_applications WHERE tenant_id = $1 ORDER BY created_at DESC`, tenantID)
}

func (r *applicationRepo) ListByProperty(ctx context.Context, propertyID uuid.UUID) ([]*models.RentalApplication, error) {
	return r.list(ctx, `SELECT `+applicationColumns+` FROM rental_applications WHERE property_id = $1 ORDER BY score DESC NULLS LAST, created_at ASC`, propertyID)
}

func (r *applicationRepo) HasOpen(ctx context.Context, tenantID, propertyID uuid.UUID) (bool, error) {
	var exists bool
	query := `SELECT EXISTS(SELECT 1 FROM rental_applications WHERE tenant_id = $1 AND property_id = $2 AND status = 'pending')`
	err := r.db.QueryRow(ctx, query, tenantID, propertyID).Scan(&exists)
	return exists, err
}

func (r *applicationRepo) CountOpenByTenant(ctx context.Context, tenantID uuid.UUID) (int, error) {
	var n int
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM rental_applications WHERE tenant_id = $1 AND status = 'pending'`, tenantID).Scan(&n)
	return n, err
}

func (r *applicationRepo) CountPendingForOwner(ctx context.Context, ownerID uuid.UUID) (int, error) {
	var n int
	query := `
		SELECT COUNT(*)
		FROM rental_applications a
		JOIN properties p ON p.id = a.property_id
		WHERE p.owner_id = $1 AND a.status = 'pending'
	`
	err := r.db.QueryRow(ctx, query, ownerID).Scan(&n)
	return n, err
}
