package repositories

import (
	"context"

	"montoit/internal/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type VerificationRepository interface {
	Create(ctx context.Context, v *models.Verification) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Verification, error)
	UpdateReview(ctx context.Context, v *models.Verification) error
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*models.Verification, error)
	ListPending(ctx context.Context) ([]*models.Verification, error)
	HasOpen(ctx context.Context, userID uuid.UUID, verificationType string) (bool, error)
	CountPending(ctx context.Context) (int, error)
	CountApprovedTypes(ctx context.Context, userID uuid.UUID) (int, error)
}

const verificationColumns = `id, user_id, type, status, document_number, first_name, last_name, birth_date, employer, document_object, provider_response, reviewed_by, review_notes, reviewed_at, created_at, updated_at`

type verificationRepo struct {
	db DBTX
}

func NewVerificationRepo(db DBTX) VerificationRepository {
	return &verificationRepo{db: db}
}

func scanVerification(row pgx.Row) (*models.Verification, error) {
	v := &models.Verification{}
	var response []byte
	err := row.Scan(&v.ID, &v.UserID, &v.Type, &v.Status, &v.DocumentNumber, &v.FirstName, &v.LastName, &v.BirthDate,
		&v.Employer, &v.DocumentObject, &response, &v.ReviewedBy, &v.ReviewNotes, &v.ReviewedAt,
		&v.CreatedAt, &v.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if v.ProviderResponse, err = unmarshalJSONB(response); err != nil {
		return nil, err
	}
	return v, nil
}

func (r *verificationRepo) list(ctx context.Context, query string, args ...any) ([]*models.Verification, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*models.Verification
	for rows.Next() {
		v, err := scanVerification(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func (r *verificationRepo) Create(ctx context.Context, v *models.Verification) error {
	query := `
		INSERT INTO verifications (id, user_id, type, status, document_number, first_name, last_name, birth_date, employer, document_object, provider_response, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, NOW(), NOW())
	`
	response, err := marshalJSONB(v.ProviderResponse)
	if err != nil {
		return err
	}
	_, err = r.db.Exec(ctx, query, v.ID, v.UserID, v.Type, v.Status, v.DocumentNumber, v.FirstName, v.LastName,
		v.BirthDate, v.Employer, v.DocumentObject, response)
	return err
}

func (r *verificationRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Verification, error) {
	return scanVerification(r.db.QueryRow(ctx, `SELECT `+verificationColumns+` FROM verifications WHERE id = $1`, id))
}

func (r *verificationRepo) UpdateReview(ctx context.Context, v *models.Verification) error {
	query := `
		UPDATE verifications
		SET status = $1, reviewed_by = $2, review_notes = $3, reviewed_at = $4, updated_at = NOW()
		WHERE id = $5 AND status = 'pending_review'
	`
	return requireRow(r.db.Exec(ctx, query, v.Status, v.ReviewedBy, v.ReviewNotes, v.ReviewedAt, v.ID))
}

func (r *verificationRepo) ListByUser(ctx context.Context, userID uuid.UUID) ([]*models.Verification, error) {
	return r.list(ctx, `SELECT `+verificationColumns+` FROM verifications WHERE user_id = $1 ORDER BY created_at DESC`, userID)
}

func (r *verificationRepo) ListPending(ctx context.Context) ([]*models.Verification, error) {
	return r.list(ctx, `SELECT `+verificationColumns+` FROM verifications WHERE status = 'pending_review' ORDER BY created_at ASC`)
}

func (r *verificationRepo) HasOpen(ctx context.Context, userID uuid.UUID, verificationType string) (bool, error) {
	var exists bool
	query := `SELECT EXISTS(SELECT 1 FROM verifications WHERE user_id = $1 AND type = $2 AND status = 'pending_review')`
	err := r.db.QueryRow(ctx, query, userID, verificationType).Scan(&exists)
	return exists, err
}

func (r *verificationRepo) CountPending(ctx context.Context) (int, error) {
	var n int
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM verifications WHERE status = 'pending_review'`).Scan(&n)
	return n, err
}

// CountApprovedTypes counts distinct verification types approved for userID
func (r *verificationRepo) CountApprovedTypes(ctx context.Context, userID uuid.UUID) (int, error) {
	var n int
	err := r.db.QueryRow(ctx, `SELECT COUNT(DISTINCT type) FROM verifications WHERE user_id = $1 AND status = 'approved'`, userID).Scan(&n)
	return n, err
}
