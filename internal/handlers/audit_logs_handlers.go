package handlers

import (
	"net/http"
	"time"

	"montoit/internal/common"
	"montoit/internal/models"
	"montoit/internal/services"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// AuditLogsHandlers handles audit logs related HTTP requests
type AuditLogsHandlers struct {
	auditLogsService services.AuditLogsService
}

// NewAuditLogsHandlers creates a new audit logs handlers instance
func NewAuditLogsHandlers(auditLogsService services.AuditLogsService) *AuditLogsHandlers {
	return &AuditLogsHandlers{
		auditLogsService: auditLogsService,
	}
}

// ListAuditLogs retrieves audit logs with filtering and pagination
func (h *AuditLogsHandlers) ListAuditLogs(c echo.Context) error {
	filters := &models.AuditLogFilters{}
	if table := c.QueryParam("table"); table != "" {
		filters.TableName = &table
	}
	if recordID := c.QueryParam("record_id"); recordID != "" {
		filters.RecordID = &recordID
	}
	if actorID := c.QueryParam("actor_id"); actorID != "" {
		uid, err := uuid.Parse(actorID)
		if err != nil {
			return common.ValidationError("actor_id must be a valid UUID")
		}
		filters.ActorID = &uid
	}
	if startDate := c.QueryParam("start_date"); startDate != "" {
		sd, err := time.Parse(time.RFC3339, startDate)
		if err != nil {
			return common.ValidationError("start_date must be RFC3339")
		}
		filters.StartDate = &sd
	}
	if endDate := c.QueryParam("end_date"); endDate != "" {
		ed, err := time.Parse(time.RFC3339, endDate)
		if err != nil {
			return common.ValidationError("end_date must be RFC3339")
		}
		filters.EndDate = &ed
	}

	limit, err := queryInt(c, "limit")
	if err != nil {
		return err
	}
	offset, err := queryInt(c, "offset")
	if err != nil {
		return err
	}
	filters.Limit, filters.Offset, err = common.ValidatePaginationParams(limit, offset)
	if err != nil {
		return common.ValidationError(err.Error())
	}

	logs, err := h.auditLogsService.ListAuditLogs(c.Request().Context(), filters)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"data":   logs,
		"total":  len(logs),
		"limit":  filters.Limit,
		"offset": filters.Offset,
	})
}
