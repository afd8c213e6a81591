package middleware

import (
	"context"
	"net/http"
	"reflect"
	"strings"
	"time"

	"montoit/internal/common"
	"montoit/internal/models"
	"montoit/internal/services"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// Audit sensitivity levels
const (
	AuditLow    = "low"
	AuditMedium = "medium"
	AuditHigh   = "high"
)

// AuditMiddleware provides automatic audit logging for HTTP requests
type AuditMiddleware struct {
	auditService services.AuditLogsService
	logger       *zap.Logger
}

// NewAuditMiddleware creates a new audit middleware instance
func NewAuditMiddleware(auditService services.AuditLogsService, logger *zap.Logger) *AuditMiddleware {
	return &AuditMiddleware{
		auditService: auditService,
		logger:       logger,
	}
}

// AuditRequest audits HTTP requests with configurable sensitivity levels
func (m *AuditMiddleware) AuditRequest(sensitivityLevel string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			err := next(c)

			method := c.Request().Method
			path := c.Path()

			switch sensitivityLevel {
			case AuditHigh:
			case AuditMedium:
				if m.shouldSkipLogging(method, path) {
					return err
				}
			default:
				if !m.shouldLogLowSensitivity(method, path, err) {
					return err
				}
			}

			m.record(c, sensitivityLevel, err)
			return err
		}
	}
}

func (m *AuditMiddleware) record(c echo.Context, sensitivityLevel string, reqErr error) {
	req := c.Request()
	ctx := req.Context()

	var actorID *uuid.UUID
	if userID, ok := common.GetUserIDFromContext(ctx); ok {
		actorID = &userID
	}

	data := models.JSONB{
		"method":     req.Method,
		"path":       c.Path(),
		"status":     c.Response().Status,
		"user_agent": req.UserAgent(),
		"timestamp":  time.Now().UTC().Format(time.RFC3339),
	}
	if role, ok := common.GetUserRoleFromContext(ctx); ok {
		data["role"] = role
	}
	if sensitivityLevel != AuditLow {
		data["query_params"] = m.sanitizeQuery(c.QueryParams())
	}
	if sensitivityLevel == AuditHigh {
		data["headers"] = m.sanitizeHeaders(req.Header)
	}
	if reqErr != nil {
		status, _ := common.StatusFor(reqErr)
		data["status"] = status
		data["error_kind"] = string(common.Classify(reqErr))
	}

	table := resourceFromPath(c.Path())
	recordID := c.Param("id")
	if recordID == "" {
		recordID = c.Path()
	}

	action := req.Method + " " + c.Path()
	if err := m.auditService.LogActivity(ctx, table, recordID, action, actorID, c.RealIP(), nil, data); err != nil {
		m.logger.Error("Failed to log audit activity", zap.String("action", action), zap.Error(err))
	}
}

// resourceFromPath maps /v1/admin/verifications/:id/review to verifications
func resourceFromPath(path string) string {
	for _, segment := range strings.Split(strings.Trim(path, "/"), "/") {
		switch {
		case segment == "", segment == "v1", segment == "admin", strings.HasPrefix(segment, ":"):
			continue
		}
		return segment
	}
	return "http_requests"
}

// shouldLogLowSensitivity determines if a request should be logged at low sensitivity
func (m *AuditMiddleware) shouldLogLowSensitivity(method, path string, reqErr error) bool {
	if reqErr != nil {
		return true
	}

	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	}

	for _, sensitive := range []string{"/v1/admin/", "/v1/auth/"} {
		if strings.HasPrefix(path, sensitive) {
			return true
		}
	}
	return false
}

// shouldSkipLogging determines if a path should be skipped from logging
func (m *AuditMiddleware) shouldSkipLogging(method, path string) bool {
	if method != http.MethodGet {
		return false
	}
	for _, prefix := range []string{"/health", "/swagger", "/favicon", "/robots.txt"} {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

// sanitizeHeaders removes sensitive headers before logging
func (m *AuditMiddleware) sanitizeHeaders(headers http.Header) map[string]interface{} {
	sanitized := make(map[string]interface{}, len(headers))
	for key, values := range headers {
		if isSensitiveHeader(key) {
			sanitized[key] = "[REDACTED]"
			continue
		}
		sanitized[key] = values
	}
	return sanitized
}

func (m *AuditMiddleware) sanitizeQuery(params map[string][]string) map[string]interface{} {
	sanitized := make(map[string]interface{}, len(params))
	for key, values := range params {
		if isSensitiveField(key) {
			sanitized[key] = "[REDACTED]"
			continue
		}
		sanitized[key] = values
	}
	return sanitized
}

func isSensitiveHeader(header string) bool {
	switch strings.ToLower(header) {
	case "authorization", "cookie", "x-api-key", "x-auth-token", "proxy-authorization", "x-signature", "apikey":
		return true
	}
	return false
}

// AuditEntityChange records the before and after state of an entity changed by a privileged action
func (m *AuditMiddleware) AuditEntityChange(ctx context.Context, actorID *uuid.UUID, ipAddress, tableName, recordID, action string, oldEntity, newEntity interface{}) {
	if err := m.auditService.LogActivity(ctx, tableName, recordID, action, actorID, ipAddress, normalizeEntity(oldEntity), normalizeEntity(newEntity)); err != nil {
		m.logger.Error("Failed to log entity change",
			zap.String("table", tableName),
			zap.String("record_id", recordID),
			zap.String("action", action),
			zap.Error(err))
	}
}

// normalizeEntity flattens a struct into JSONB keyed by json tag, skipping sensitive fields
func normalizeEntity(entity interface{}) models.JSONB {
	if entity == nil {
		return nil
	}

	val := reflect.ValueOf(entity)
	if val.Kind() == reflect.Ptr {
		if val.IsNil() {
			return nil
		}
		val = val.Elem()
	}
	if val.Kind() != reflect.Struct {
		return nil
	}

	result := make(models.JSONB)
	typ := val.Type()
	for i := 0; i < val.NumField(); i++ {
		field := typ.Field(i)
		if field.PkgPath != "" {
			continue
		}

		name := strings.Split(field.Tag.Get("json"), ",")[0]
		if name == "-" {
			continue
		}
		if name == "" {
			name = field.Name
		}
		if isSensitiveField(name) {
			continue
		}

		result[name] = val.Field(i).Interface()
	}
	return result
}

// isSensitiveField checks if a field name represents sensitive data
func isSensitiveField(name string) bool {
	lower := strings.ToLower(name)
	for _, sensitive := range []string{"password", "token", "secret", "document_number", "phone"} {
		if strings.Contains(lower, sensitive) {
			return true
		}
	}
	return false
}
