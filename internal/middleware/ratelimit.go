package middleware

import (
	"strconv"
	"time"

	"montoit/internal/caching"
	"montoit/internal/common"
	"montoit/internal/services"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// RateLimit refuses a request early when the caller has used up the allowance
// for action. The service performing the action records the attempt.
func RateLimit(limiter services.RateLimitService, action string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			identifier := "ip:" + c.RealIP()
			if userID, ok := common.GetUserIDFromContext(c.Request().Context()); ok {
				identifier = "user:" + userID.String()
			}

			result := limiter.Check(c.Request().Context(), identifier, action)
			header := c.Response().Header()
			header.Set("X-RateLimit-Limit", strconv.Itoa(result.Limit))
			header.Set("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
			if !result.ResetAt.IsZero() {
				header.Set("X-RateLimit-Reset", strconv.FormatInt(result.ResetAt.Unix(), 10))
			}

			if !result.Allowed {
				if wait := time.Until(result.ResetAt); wait > 0 {
					header.Set("Retry-After", strconv.Itoa(int(wait.Seconds())+1))
				}
				return common.NewError(common.KindRateLimited, "Too many attempts, please try again later", nil)
			}
			return next(c)
		}
	}
}

// IPThrottle caps the request rate per client IP in a fixed Redis window.
// Redis failures let the request through.
func IPThrottle(cache caching.CacheService, scope string, limit int, window time.Duration, logger *zap.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			limited, err := cache.IsRateLimited(c.Request().Context(), scope+":"+c.RealIP(), limit, window)
			if err != nil {
				logger.Warn("IP throttle check failed", zap.String("scope", scope), zap.Error(err))
				return next(c)
			}
			if limited {
				c.Response().Header().Set("Retry-After", strconv.Itoa(int(window.Seconds())))
				return common.NewError(common.KindRateLimited, "Too many requests, please slow down", nil)
			}
			return next(c)
		}
	}
}
