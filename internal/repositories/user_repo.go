package repositories

import (
	"context"

	"montoit/internal/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	Update(ctx context.Context, user *models.User) error
	SetIdentityVerified(ctx context.Context, id uuid.UUID, verified bool) error
	SetEmploymentVerified(ctx context.Context, id uuid.UUID, verified bool) error
	SetMFAEnabled(ctx context.Context, id uuid.UUID, enabled bool) error
	ListByRoles(ctx context.Context, roles []string, limit, offset int) ([]*models.User, error)
	CountByRole(ctx context.Context) (map[string]int, error)
}

const userColumns = `id, email, full_name, phone, role, status, identity_verified, employment_verified, mfa_enabled, mfa_required_since, monthly_income, profile_completed, created_at, updated_at`

type userRepo struct {
	db DBTX
}

func NewUserRepo(db DBTX) UserRepository {
	return &userRepo{db: db}
}

func scanUser(row pgx.Row, user *models.User, extra ...any) error {
	dest := []any{&user.ID, &user.Email, &user.FullName, &user.Phone, &user.Role, &user.Status, &user.IdentityVerified, &user.EmploymentVerified, &user.MFAEnabled, &user.MFARequiredSince, &user.MonthlyIncome, &user.ProfileCompleted, &user.CreatedAt, &user.UpdatedAt}
	return row.Scan(append(dest, extra...)...)
}

func (r *userRepo) Create(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (id, email, password_hash, full_name, phone, role, status, mfa_required_since, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW(), NOW())
	`
	_, err := r.db.Exec(ctx, query, user.ID, user.Email, user.PasswordHash, user.FullName, user.Phone, user.Role, user.Status, user.MFARequiredSince)
	return err
}

func (r *userRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	user := &models.User{}
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	if err := scanUser(r.db.QueryRow(ctx, query, id), user); err != nil {
		return nil, err
	}
	return user, nil
}

func (r *userRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	user := &models.User{}
	query := `SELECT ` + userColumns + `, password_hash FROM users WHERE lower(email) = lower($1)`
	if err := scanUser(r.db.QueryRow(ctx, query, email), user, &user.PasswordHash); err != nil {
		return nil, err
	}
	return user, nil
}

func (r *userRepo) Update(ctx context.Context, user *models.User) error {
	query := `
		UPDATE users
		SET full_name = $1, phone = $2, monthly_income = $3, profile_completed = $4, status = $5, updated_at = NOW()
		WHERE id = $6
	`
	return requireRow(r.db.Exec(ctx, query, user.FullName, user.Phone, user.MonthlyIncome, user.ProfileCompleted, user.Status, user.ID))
}

func (r *userRepo) SetIdentityVerified(ctx context.Context, id uuid.UUID, verified bool) error {
	query := `UPDATE users SET identity_verified = $1, updated_at = NOW() WHERE id = $2`
	return requireRow(r.db.Exec(ctx, query, verified, id))
}

func (r *userRepo) SetEmploymentVerified(ctx context.Context, id uuid.UUID, verified bool) error {
	query := `UPDATE users SET employment_verified = $1, updated_at = NOW() WHERE id = $2`
	return requireRow(r.db.Exec(ctx, query, verified, id))
}

func (r *userRepo) SetMFAEnabled(ctx context.Context, id uuid.UUID, enabled bool) error {
	query := `UPDATE users SET mfa_enabled = $1, updated_at = NOW() WHERE id = $2`
	return requireRow(r.db.Exec(ctx, query, enabled, id))
}

func (r *userRepo) ListByRoles(ctx context.Context, roles []string, limit, offset int) ([]*models.User, error) {
	query := `
		SELECT ` + userColumns + `
		FROM users
		WHERE role = ANY($1)
		ORDER BY created_at ASC
		LIMIT $2 OFFSET $3
	`
	rows, err := r.db.Query(ctx, query, roles, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []*models.User
	for rows.Next() {
		user := &models.User{}
		if err := scanUser(rows, user); err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, rows.Err()
}

func (r *userRepo) CountByRole(ctx context.Context) (map[string]int, error) {
	rows, err := r.db.Query(ctx, `SELECT role, COUNT(*) FROM users GROUP BY role`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var role string
		var n int
		if err := rows.Scan(&role, &n); err != nil {
			return nil, err
		}
		counts[role] = n
	}
	return counts, rows.Err()
}
