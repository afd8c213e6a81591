package repositories

import (
	"context"
	"fmt"
	"time"

	"montoit/internal/models"

	"github.com/google/uuid"
)

type AuditLogsRepository interface {
	// Create a new audit log entry
	Create(ctx context.Context, auditLog *models.AuditLog) error

	// List audit logs with filtering options
	List(ctx context.Context, filters *models.AuditLogFilters) ([]*models.AuditLog, error)
}

type auditLogsRepo struct {
	db DBTX
}

func NewAuditLogsRepo(db DBTX) AuditLogsRepository {
	return &auditLogsRepo{db: db}
}

func (r *auditLogsRepo) Create(ctx context.Context, auditLog *models.AuditLog) error {
	auditLog.CreatedAt = time.Now()
	if auditLog.ID == uuid.Nil {
		auditLog.ID = uuid.New()
	}

	newValues, err := marshalJSONB(auditLog.NewValues)
	if err != nil {
		return err
	}
	oldValues, err := marshalJSONB(auditLog.OldValues)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO audit_logs (id, actor_id, table_name, record_id, action, new_values, old_values, ip_address, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err = r.db.Exec(ctx, query,
		auditLog.ID,
		auditLog.ActorID,
		auditLog.TableName,
		auditLog.RecordID,
		auditLog.Action,
		newValues,
		oldValues,
		auditLog.IPAddress,
		auditLog.CreatedAt,
	)
	return err
}

func (r *auditLogsRepo) List(ctx context.Context, filters *models.AuditLogFilters) ([]*models.AuditLog, error) {
	if filters == nil {
		filters = &models.AuditLogFilters{}
	}

	query := `
		SELECT id, actor_id, table_name, record_id, action, new_values, old_values, ip_address, created_at
		FROM audit_logs
		WHERE 1 = 1
	`
	var args []any
	argIdx := 0

	if filters.TableName != nil {
		argIdx++
		query += fmt.Sprintf(" AND table_name = $%d", argIdx)
		args = append(args, *filters.TableName)
	}
	if filters.RecordID != nil {
		argIdx++
		query += fmt.Sprintf(" AND record_id = $%d", argIdx)
		args = append(args, *filters.RecordID)
	}
	if filters.ActorID != nil {
		argIdx++
		query += fmt.Sprintf(" AND actor_id = $%d", argIdx)
		args = append(args, *filters.ActorID)
	}
	if filters.StartDate != nil {
		argIdx++
		query += fmt.Sprintf(" AND created_at >= $%d", argIdx)
		args = append(args, *filters.StartDate)
	}
	if filters.EndDate != nil {
		argIdx++
		query += fmt.Sprintf(" AND created_at <= $%d", argIdx)
		args = append(args, *filters.EndDate)
	}

	query += " ORDER BY created_at DESC"

	limit := filters.Limit
	if limit <= 0 {
		limit = 50
	}
	argIdx++
	query += fmt.Sprintf(" LIMIT $%d", argIdx)
	args = append(args, limit)
	argIdx++
	query += fmt.Sprintf(" OFFSET $%d", argIdx)
	args = append(args, filters.Offset)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var logs []*models.AuditLog
	for rows.Next() {
		l := &models.AuditLog{}
		var newValues, oldValues []byte
		if err := rows.Scan(&l.ID, &l.ActorID, &l.TableName, &l.RecordID, &l.Action, &newValues, &oldValues, &l.IPAddress, &l.CreatedAt); err != nil {
			return nil, err
		}
		if l.NewValues, err = unmarshalJSONB(newValues); err != nil {
			return nil, err
		}
		if l.OldValues, err = unmarshalJSONB(oldValues); err != nil {
			return nil, err
		}
		logs = append(logs, l)
	}
	return logs, rows.Err()
}
