package repositories

import (
	"context"

	"montoit/internal/models"

	"github.com/google/uuid"
)

type NotificationRepository interface {
	Create(ctx context.Context, n *models.Notification) error
	ListByUser(ctx context.Context, userID uuid.UUID, unreadOnly bool, limit, offset int) ([]*models.Notification, error)
	MarkRead(ctx context.Context, id, userID uuid.UUID) error
	CountUnread(ctx context.Context, userID uuid.UUID) (int, error)
	SetDeliveryError(ctx context.Context, id uuid.UUID, message string) error
}

type notificationRepo struct {
	db DBTX
}

func NewNotificationRepo(db DBTX) NotificationRepository {
	return &notificationRepo{db: db}
}

func (r *notificationRepo) Create(ctx context.Context, n *models.Notification) error {
	data, err := marshalJSONB(n.Data)
	if err != nil {
		return err
	}
	query := `
		INSERT INTO notifications (id, user_id, kind, title, body, channels, data, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
	`
	_, err = r.db.Exec(ctx, query, n.ID, n.UserID, n.Kind, n.Title, n.Body, n.Channels, data)
	return err
}

func (r *notificationRepo) ListByUser(ctx context.Context, userID uuid.UUID, unreadOnly bool, limit, offset int) ([]*models.Notification, error) {
	query := `
		SELECT id, user_id, kind, title, body, channels, data, read_at, delivery_error, created_at
		FROM notifications
		WHERE user_id = $1 AND ($2 = false OR read_at IS NULL)
		ORDER BY created_at DESC
		LIMIT $3 OFFSET $4
	`
	rows, err := r.db.Query(ctx, query, userID, unreadOnly, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var notifications []*models.Notification
	for rows.Next() {
		n := &models.Notification{}
		var data []byte
		if err := rows.Scan(&n.ID, &n.UserID, &n.Kind, &n.Title, &n.Body, &n.Channels, &data, &n.ReadAt, &n.DeliveryError, &n.CreatedAt); err != nil {
			return nil, err
		}
		if n.Data, err = unmarshalJSONB(data); err != nil {
			return nil, err
		}
		notifications = append(notifications, n)
	}
	return notifications, rows.Err()
}

func (r *notificationRepo) MarkRead(ctx context.Context, id, userID uuid.UUID) error {
	query := `UPDATE notifications SET read_at = COALESCE(read_at, NOW()) WHERE id = $1 AND user_id = $2`
	return requireRow(r.db.Exec(ctx, query, id, userID))
}

func (r *notificationRepo) CountUnread(ctx context.Context, userID uuid.UUID) (int, error) {
	var n int
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM notifications WHERE user_id = $1 AND read_at IS NULL`, userID).Scan(&n)
	return n, err
}

func (r *notificationRepo) SetDeliveryError(ctx context.Context, id uuid.UUID, message string) error {
	_, err := r.db.Exec(ctx, `UPDATE notifications SET delivery_error = $1 WHERE id = $2`, message, id)
	return err
}
