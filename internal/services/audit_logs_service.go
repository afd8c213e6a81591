package services

import (
	"context"
	"errors"
	"time"

	"montoit/internal/models"
	"montoit/internal/repositories"

	"github.com/google/uuid"
)

type AuditLogsService interface {
	// Create audit log entry
	LogActivity(ctx context.Context, tableName, recordID, action string, actorID *uuid.UUID, ipAddress string, oldValues, newValues models.JSONB) error

	// Query audit logs
	ListAuditLogs(ctx context.Context, filters *models.AuditLogFilters) ([]*models.AuditLog, error)

	// Validation methods
	ValidateAuditFilters(filters *models.AuditLogFilters) error
}

type auditLogsService struct {
	auditLogsRepo repositories.AuditLogsRepository
}

func NewAuditLogsService(auditLogsRepo repositories.AuditLogsRepository) AuditLogsService {
	return &auditLogsService{
		auditLogsRepo: auditLogsRepo,
	}
}

// LogActivity creates a new audit log entry with validation
func (s *auditLogsService) LogActivity(ctx context.Context, tableName, recordID, action string, actorID *uuid.UUID, ipAddress string, oldValues, newValues models.JSONB) error {
	if tableName == "" {
		return errors.New("table_name is required")
	}
	if action == "" {
		return errors.New("action is required")
	}

	auditLog := &models.AuditLog{
		ID:        uuid.New(),
		ActorID:   actorID,
		TableName: tableName,
		RecordID:  recordID,
		Action:    action,
		NewValues: newValues,
		OldValues: oldValues,
		CreatedAt: time.Now().UTC(),
	}
	if ipAddress != "" {
		auditLog.IPAddress = &ipAddress
	}

	return s.auditLogsRepo.Create(ctx, auditLog)
}

// ListAuditLogs retrieves multiple audit log entries with filtering
func (s *auditLogsService) ListAuditLogs(ctx context.Context, filters *models.AuditLogFilters) ([]*models.AuditLog, error) {
	if filters == nil {
		filters = &models.AuditLogFilters{Limit: 50}
	}
	if err := s.ValidateAuditFilters(filters); err != nil {
		return nil, err
	}
	if filters.Limit <= 0 {
		filters.Limit = 50
	}

	return s.auditLogsRepo.List(ctx, filters)
}

// ValidateAuditFilters performs security and performance validation on audit filters
func (s *auditLogsService) ValidateAuditFilters(filters *models.AuditLogFilters) error {
	if filters == nil {
		return nil
	}

	if filters.StartDate != nil && filters.EndDate != nil {
		if filters.StartDate.After(*filters.EndDate) {
			return errors.New("start_date cannot be after end_date")
		}
		if filters.EndDate.Sub(*filters.StartDate) > 365*24*time.Hour {
			return errors.New("date range cannot exceed 1 year")
		}
	}

	if filters.Limit > 1000 {
		return errors.New("maximum limit is 1000 records")
	}
	if filters.Offset < 0 {
		return errors.New("offset cannot be negative")
	}

	return nil
}
