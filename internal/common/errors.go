package common

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// ErrorKind groups failures by how they are surfaced to the caller
type ErrorKind string

const (
	KindValidation   ErrorKind = "validation"
	KindNotFound     ErrorKind = "not_found"
	KindConflict     ErrorKind = "conflict"
	KindUnauthorized ErrorKind = "unauthorized"
	KindForbidden    ErrorKind = "forbidden"
	KindRateLimited  ErrorKind = "rate_limited"
	KindNetwork      ErrorKind = "network"
	KindInternal     ErrorKind = "internal"
)

// Postgres error codes the API distinguishes
const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
	pgCheckViolation      = "23514"
)

// AppError is a classified error carrying a caller-safe message
type AppError struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// NewError builds an AppError of the given kind
func NewError(kind ErrorKind, message string, err error) *AppError {
	return &AppError{Kind: kind, Message: message, Err: err}
}

func ValidationError(message string) *AppError {
	return &AppError{Kind: KindValidation, Message: message}
}

func NotFoundError(resource string) *AppError {
	return &AppError{Kind: KindNotFound, Message: fmt.Sprintf("%s not found", resource)}
}

func ConflictError(message string) *AppError {
	return &AppError{Kind: KindConflict, Message: message}
}

func ForbiddenError(message string) *AppError {
	return &AppError{Kind: KindForbidden, Message: message}
}

// Classify maps an arbitrary error to its ErrorKind
func Classify(err error) ErrorKind {
	if err == nil {
		return ""
	}

	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Kind
	}

	if errors.Is(err, pgx.ErrNoRows) {
		return KindNotFound
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation:
			return KindConflict
		case pgForeignKeyViolation, pgCheckViolation:
			return KindValidation
		}
		return KindInternal
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return KindNetwork
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return KindNetwork
	}

	return KindInternal
}

var kindStatus = map[ErrorKind]int{
	KindValidation:   http.StatusBadRequest,
	KindNotFound:     http.StatusNotFound,
	KindConflict:     http.StatusConflict,
	KindUnauthorized: http.StatusUnauthorized,
	KindForbidden:    http.StatusForbidden,
	KindRateLimited:  http.StatusTooManyRequests,
	KindNetwork:      http.StatusBadGateway,
	KindInternal:     http.StatusInternalServerError,
}

var kindMessage = map[ErrorKind]string{
	KindNotFound:     "Resource not found",
	KindConflict:     "Resource already exists or was modified",
	KindUnauthorized: "Authentication required",
	KindForbidden:    "You are not allowed to perform this action",
	KindRateLimited:  "Too many attempts, please try again later",
	KindNetwork:      "An upstream service is unavailable, please try again",
	KindInternal:     "The operation could not be completed",
}

// StatusFor returns the HTTP status and a generic message for err
func StatusFor(err error) (int, string) {
	kind := Classify(err)
	status, ok := kindStatus[kind]
	if !ok {
		status = http.StatusInternalServerError
	}

	var appErr *AppError
	if errors.As(err, &appErr) && appErr.Message != "" && kind != KindInternal {
		return status, appErr.Message
	}
	if msg, ok := kindMessage[kind]; ok {
		return status, msg
	}
	return status, "Invalid request"
}

// SendError writes the standard error envelope for err
func SendError(c echo.Context, err error) error {
	status, message := StatusFor(err)
	code := "SERVER_ERROR"
	switch Classify(err) {
	case KindValidation:
		code = "VALIDATION_ERROR"
	case KindNotFound:
		code = "NOT_FOUND"
	case KindConflict:
		code = "CONFLICT"
	case KindUnauthorized:
		code = "UNAUTHORIZED"
	case KindForbidden:
		code = "FORBIDDEN"
	case KindRateLimited:
		code = "RATE_LIMITED"
	case KindNetwork:
		code = "UPSTREAM_ERROR"
	}
	return c.JSON(status, CreateErrorResponse(code, message, nil))
}

var httpStatusCode = map[int]string{
	http.StatusBadRequest:            "VALIDATION_ERROR",
	http.StatusUnauthorized:          "UNAUTHORIZED",
	http.StatusForbidden:             "FORBIDDEN",
	http.StatusNotFound:              "NOT_FOUND",
	http.StatusMethodNotAllowed:      "METHOD_NOT_ALLOWED",
	http.StatusRequestEntityTooLarge: "PAYLOAD_TOO_LARGE",
	http.StatusTooManyRequests:       "RATE_LIMITED",
}

// NewHTTPErrorHandler renders every error returned by a handler or middleware
// with the standard envelope; internal and upstream failures are logged
func NewHTTPErrorHandler(logger *zap.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		var he *echo.HTTPError
		if errors.As(err, &he) {
			code, ok := httpStatusCode[he.Code]
			if !ok {
				code = "SERVER_ERROR"
			}
			if he.Code >= http.StatusInternalServerError {
				logger.Error("request failed", zap.String("method", c.Request().Method), zap.String("path", c.Path()), zap.Error(err))
			}
			if writeErr := c.JSON(he.Code, CreateErrorResponse(code, fmt.Sprint(he.Message), nil)); writeErr != nil {
				logger.Warn("failed to write error response", zap.Error(writeErr))
			}
			return
		}

		switch Classify(err) {
		case KindInternal, KindNetwork:
			logger.Error("request failed", zap.String("method", c.Request().Method), zap.String("path", c.Path()), zap.Error(err))
		default:
			logger.Debug("request rejected", zap.String("path", c.Path()), zap.Error(err))
		}
		if writeErr := SendError(c, err); writeErr != nil {
			logger.Warn("failed to write error response", zap.Error(writeErr))
		}
	}
}

func UnauthorizedError(message string) *AppError {
	return &AppError{Kind: KindUnauthorized, Message: message}
}
