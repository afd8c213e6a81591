package middleware

import (
	"strconv"

	"montoit/internal/common"
	"montoit/internal/services"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

type RBACMiddleware struct {
	mfaService services.MFAService
	logger     *zap.Logger
}

func NewRBACMiddleware(mfaService services.MFAService, logger *zap.Logger) *RBACMiddleware {
	return &RBACMiddleware{
		mfaService: mfaService,
		logger:     logger,
	}
}

// RequireRole lets through callers holding one of roles
func (m *RBACMiddleware) RequireRole(roles ...string) echo.MiddlewareFunc {
	allowed := make(map[string]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			role, ok := common.GetUserRoleFromContext(c.Request().Context())
			if !ok {
				return common.UnauthorizedError("User not authenticated")
			}
			if !allowed[role] {
				return common.ForbiddenError("Insufficient permissions")
			}
			return next(c)
		}
	}
}

// RequireMFACompliance blocks privileged users whose MFA grace period has run out
func (m *RBACMiddleware) RequireMFACompliance() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx := c.Request().Context()
			userID, ok := common.GetUserIDFromContext(ctx)
			if !ok {
				return common.UnauthorizedError("User not authenticated")
			}
			role, _ := common.GetUserRoleFromContext(ctx)
			if !services.MFARequiredRoles[role] {
				return next(c)
			}

			compliance, err := m.mfaService.Status(ctx, userID)
			if err != nil {
				return err
			}
			if compliance.Status == services.MFAExpired {
				m.logger.Info("blocked request from non-compliant user", zap.String("user_id", userID.String()), zap.String("role", role))
				return common.ForbiddenError("Two-factor authentication must be enabled to access this resource")
			}
			if compliance.Status == services.MFAGracePeriod {
				c.Response().Header().Set("X-MFA-Days-Remaining", strconv.Itoa(compliance.DaysRemaining))
			}
			return next(c)
		}
	}
}
