package repositories

import (
	"context"
	"time"

	"montoit/internal/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type MandateRepository interface {
	Create(ctx context.Context, mandate *models.Mandate) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Mandate, error)
	UpdateStatus(ctx context.Context, mandate *models.Mandate) error
	ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]*models.Mandate, error)
	ListByAgency(ctx context.Context, agencyID uuid.UUID) ([]*models.Mandate, error)
	ListActiveFor(ctx context.Context, agencyID, propertyID uuid.UUID) ([]*models.Mandate, error)
	HasOpen(ctx context.Context, agencyID, propertyID uuid.UUID) (bool, error)
	ExpireEnded(ctx context.Context, now time.Time) ([]*models.Mandate, error)
	CountActiveByAgency(ctx context.Context, agencyID uuid.UUID) (mandates int, properties int, err error)
}

const mandateColumns = `id, property_id, owner_id, agency_id, permissions, status, commission_rate, start_date, end_date, revoked_at, created_at, updated_at`

type mandateRepo struct {
	db DBTX
}

func NewMandateRepo(db DBTX) MandateRepository {
	return &mandateRepo{db: db}
}

func scanMandate(row pgx.Row) (*models.Mandate, error) {
	m := &models.Mandate{}
	err := row.Scan(&m.ID, &m.PropertyID, &m.OwnerID, &m.AgencyID, &m.Permissions, &m.Status, &m.CommissionRate,
		&m.StartDate, &m.EndDate, &m.RevokedAt, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return m, nil
}

func (r *mandateRepo) list(ctx context.Context, query string, args ...any) ([]*models.Mandate, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var mandates []*models.Mandate
	for rows.Next() {
		m, err := scanMandate(rows)
		if err != nil {
			return nil, err
		}
		mandates = append(mandates, m)
	}
	return mandates, rows.Err()
}

func (r *mandateRepo) Create(ctx context.Context, m *models.Mandate) error {
	query := `
		INSERT INTO mandates (id, property_id, owner_id, agency_id, permissions, status, commission_rate, start_date, end_date, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW(), NOW())
	`
	_, err := r.db.Exec(ctx, query, m.ID, m.PropertyID, m.OwnerID, m.AgencyID, m.Permissions, m.Status, m.CommissionRate, m.StartDate, m.EndDate)
	return err
}

func (r *mandateRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Mandate, error) {
	return scanMandate(r.db.QueryRow(ctx, `SELECT `+mandateColumns+` FROM mandates WHERE id = $1`, id))
}

func (r *mandateRepo) UpdateStatus(ctx context.Context, m *models.Mandate) error {
	query := `UPDATE mandates SET status = $1, start_date = $2, revoked_at = $3, updated_at = NOW() WHERE id = $4`
	return requireRow(r.db.Exec(ctx, query, m.Status, m.StartDate, m.RevokedAt, m.ID))
}

func (r *mandateRepo) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]*models.Mandate, error) {
	return r.list(ctx, `SELECT `+mandateColumns+` FROM mandates WHERE owner_id = $1 ORDER BY created_at DESC`, ownerID)
}

func (r *mandateRepo) ListByAgency(ctx context.Context, agencyID uuid.UUID) ([]*models.Mandate, error) {
	return r.list(ctx, `SELECT `+mandateColumns+` FROM mandates WHERE agency_id = $1 ORDER BY created_at DESC`, agencyID)
}

func (r *mandateRepo) ListActiveFor(ctx context.Context, agencyID, propertyID uuid.UUID) ([]*models.Mandate, error) {
	query := `SELECT ` + mandateColumns + ` FROM mandates WHERE agency_id = $1 AND property_id = $2 AND status = 'active'`
	return r.list(ctx, query, agencyID, propertyID)
}

func (r *mandateRepo) HasOpen(ctx context.Context, agencyID, propertyID uuid.UUID) (bool, error) {
	var exists bool
	query := `SELECT EXISTS(SELECT 1 FROM mandates WHERE agency_id = $1 AND property_id = $2 AND status IN ('pending', 'active'))`
	err := r.db.QueryRow(ctx, query, agencyID, propertyID).Scan(&exists)
	return exists, err
}

func (r *mandateRepo) ExpireEnded(ctx context.Context, now time.Time) ([]*models.Mandate, error) {
	query := `
		UPDATE mandates SET status = 'expired', updated_at = NOW()
		WHERE status = 'active' AND end_date IS NOT NULL AND end_date <= $1
		RETURNING ` + mandateColumns
	return r.list(ctx, query, now)
}

func (r *mandateRepo) CountActiveByAgency(ctx context.Context, agencyID uuid.UUID) (int, int, error) {
	var mandates, properties int
	query := `SELECT COUNT(*), COUNT(DISTINCT property_id) FROM mandates WHERE agency_id = $1 AND status = 'active'`
	err := r.db.QueryRow(ctx, query, agencyID).Scan(&mandates, &properties)
	return mandates, properties, err
}
