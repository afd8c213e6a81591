package repositories

import (
	"context"
	"fmt"
	"strings"

	"montoit/internal/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type PropertyRepository interface {
	Create(ctx context.Context, property *models.Property) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Property, error)
	Update(ctx context.Context, property *models.Property) error
	UpdateStatus(ctx context.Context, id uuid.UUID, status string) error
	SetModeration(ctx context.Context, id uuid.UUID, status string, notes *string) error
	AddImage(ctx context.Context, id uuid.UUID, object string) error
	ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]*models.Property, error)
	Search(ctx context.Context, filter models.PropertySearchFilter) ([]*models.Property, int, error)
	CountByOwnerStatus(ctx context.Context, ownerID uuid.UUID) (map[string]int, error)
}

const propertyColumns = `id, owner_id, title, description, property_type, address, city, neighborhood, monthly_rent, deposit, bedrooms, bathrooms, surface_area, furnished, status, moderation_status, moderation_notes, images, created_at, updated_at`

type propertyRepo struct {
	db DBTX
}

func NewPropertyRepo(db DBTX) PropertyRepository {
	return &propertyRepo{db: db}
}

func scanProperty(row pgx.Row) (*models.Property, error) {
	p := &models.Property{}
	err := row.Scan(&p.ID, &p.OwnerID, &p.Title, &p.Description, &p.PropertyType, &p.Address, &p.City, &p.Neighborhood,
		&p.MonthlyRent, &p.Deposit, &p.Bedrooms, &p.Bathrooms, &p.SurfaceArea, &p.Furnished, &p.Status,
		&p.ModerationStatus, &p.ModerationNotes, &p.Images, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return p, nil
}

func collectProperties(rows pgx.Rows) ([]*models.Property, error) {
	defer rows.Close()
	var properties []*models.Property
	for rows.Next() {
		p, err := scanProperty(rows)
		if err != nil {
			return nil, err
		}
		properties = append(properties, p)
	}
	return properties, rows.Err()
}

func (r *propertyRepo) Create(ctx context.Context, property *models.Property) error {
	query := `
		INSERT INTO properties (id, owner_id, title, description, property_type, address, city, neighborhood, monthly_rent, deposit, bedrooms, bathrooms, surface_area, furnished, status, moderation_status, images, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, NOW(), NOW())
	`
	_, err := r.db.Exec(ctx, query, property.ID, property.OwnerID, property.Title, property.Description, property.PropertyType,
		property.Address, property.City, property.Neighborhood, property.MonthlyRent, property.Deposit, property.Bedrooms,
		property.Bathrooms, property.SurfaceArea, property.Furnished, property.Status, property.ModerationStatus, property.Images)
	return err
}

func (r *propertyRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Property, error) {
	query := `SELECT ` + propertyColumns + ` FROM properties WHERE id = $1`
	return scanProperty(r.db.QueryRow(ctx, query, id))
}

func (r *propertyRepo) Update(ctx context.Context, property *models.Property) error {
	query := `
		UPDATE properties
		SET title = $1, description = $2, property_type = $3, address = $4, city = $5, neighborhood = $6,
			monthly_rent = $7, deposit = $8, bedrooms = $9, bathrooms = $10, surface_area = $11, furnished = $12, updated_at = NOW()
		WHERE id = $13
	`
	return requireRow(r.db.Exec(ctx, query, property.Title, property.Description, property.PropertyType, property.Address,
		property.City, property.Neighborhood, property.MonthlyRent, property.Deposit, property.Bedrooms, property.Bathrooms,
		property.SurfaceArea, property.Furnished, property.ID))
}

func (r *propertyRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status string) error {
	query := `UPDATE properties SET status = $1, updated_at = NOW() WHERE id = $2`
	return requireRow(r.db.Exec(ctx, query, status, id))
}

func (r *propertyRepo) SetModeration(ctx context.Context, id uuid.UUID, status string, notes *string) error {
	query := `UPDATE properties SET moderation_status = $1, moderation_notes = $2, updated_at = NOW() WHERE id = $3`
	return requireRow(r.db.Exec(ctx, query, status, notes, id))
}

func (r *propertyRepo) AddImage(ctx context.Context, id uuid.UUID, object string) error {
	query := `UPDATE properties SET images = array_append(images, $1), updated_at = NOW() WHERE id = $2`
	return requireRow(r.db.Exec(ctx, query, object, id))
}

func (r *propertyRepo) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]*models.Property, error) {
	query := `SELECT ` + propertyColumns + ` FROM properties WHERE owner_id = $1 AND status <> 'archived' ORDER BY created_at DESC`
	rows, err := r.db.Query(ctx, query, ownerID)
	if err != nil {
		return nil, err
	}
	return collectProperties(rows)
}

var propertySortColumns = map[string]string{
	"monthly_rent": "monthly_rent",
	"created_at":   "created_at",
	"bedrooms":     "bedrooms",
}

// Search lists available, moderated properties matching filter and the total match count
func (r *propertyRepo) Search(ctx context.Context, filter models.PropertySearchFilter) ([]*models.Property, int, error) {
	conditions := []string{"status = 'available'", "moderation_status = 'approved'"}
	var args []any

	add := func(cond string, value any) {
		args = append(args, value)
		conditions = append(conditions, fmt.Sprintf(cond, len(args)))
	}

	if filter.Query != "" {
		add("(title ILIKE $%[1]d OR description ILIKE $%[1]d)", "%"+filter.Query+"%")
	}
	if filter.City != "" {
		add("lower(city) = lower($%d)", filter.City)
	}
	if filter.Neighborhood != "" {
		add("lower(neighborhood) = lower($%d)", filter.Neighborhood)
	}
	if filter.PropertyType != "" {
		add("property_type = $%d", filter.PropertyType)
	}
	if filter.MinRent != nil {
		add("monthly_rent >= $%d", *filter.MinRent)
	}
	if filter.MaxRent != nil {
		add("monthly_rent <= $%d", *filter.MaxRent)
	}
	if filter.MinBedrooms != nil {
		add("bedrooms >= $%d", *filter.MinBedrooms)
	}
	if filter.Furnished != nil {
		add("furnished = $%d", *filter.Furnished)
	}

	where := strings.Join(conditions, " AND ")

	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM properties WHERE `+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	sortColumn, ok := propertySortColumns[filter.SortBy]
	if !ok {
		sortColumn = "created_at"
	}
	order := "DESC"
	if strings.EqualFold(filter.SortOrder, "asc") {
		order = "ASC"
	}

	query := fmt.Sprintf(`SELECT %s FROM properties WHERE %s ORDER BY %s %s, id LIMIT $%d OFFSET $%d`,
		propertyColumns, where, sortColumn, order, len(args)+1, len(args)+2)
	rows, err := r.db.Query(ctx, query, append(args, filter.Limit, filter.Offset)...)
	if err != nil {
		return nil, 0, err
	}
	properties, err := collectProperties(rows)
	if err != nil {
		return nil, 0, err
	}
	return properties, total, nil
}

func (r *propertyRepo) CountByOwnerStatus(ctx context.Context, ownerID uuid.UUID) (map[string]int, error) {
	rows, err := r.db.Query(ctx, `SELECT status, COUNT(*) FROM properties WHERE owner_id = $1 GROUP BY status`, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		counts[status] = n
	}
	return counts, rows.Err()
}
