package middleware

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"montoit/internal/common"
	"montoit/internal/repositories"
	"montoit/internal/services"

	"github.com/MicahParks/keyfunc/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// ClaimsContextKey holds the *services.TokenClaims of a request authenticated with our own token
const ClaimsContextKey = "token_claims"

var errUnknownToken = errors.New("token not issued by a trusted party")

// AuthMiddleware authenticates bearer tokens issued by the API, or by the
// managed backend when a JWKS URL is configured
type AuthMiddleware struct {
	authService services.AuthService
	userRepo    repositories.UserRepository
	jwks        *keyfunc.JWKS
	logger      *zap.Logger
}

// NewAuthMiddleware fetches the backend JWKS when jwksURL is set
func NewAuthMiddleware(authService services.AuthService, userRepo repositories.UserRepository, jwksURL string, logger *zap.Logger) (*AuthMiddleware, error) {
	m := &AuthMiddleware{authService: authService, userRepo: userRepo, logger: logger}
	if jwksURL == "" {
		return m, nil
	}

	jwks, err := keyfunc.Get(jwksURL, keyfunc.Options{
		RefreshInterval:   time.Hour,
		RefreshRateLimit:  5 * time.Minute,
		RefreshTimeout:    10 * time.Second,
		RefreshUnknownKID: true,
		RefreshErrorHandler: func(err error) {
			logger.Warn("JWKS refresh failed", zap.String("url", jwksURL), zap.Error(err))
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load JWKS: %w", err)
	}
	m.jwks = jwks
	return m, nil
}

// Close stops the JWKS background refresh
func (m *AuthMiddleware) Close() {
	if m.jwks != nil {
		m.jwks.EndBackground()
	}
}

// RequireAuth rejects requests without a valid bearer token
func (m *AuthMiddleware) RequireAuth() echo.MiddlewareFunc {
	return echojwt.WithConfig(echojwt.Config{
		ParseTokenFunc: m.parseToken,
		ErrorHandler: func(c echo.Context, err error) error {
			return common.NewError(common.KindUnauthorized, "Invalid or expired token", err)
		},
	})
}

// OptionalAuth identifies the caller when a token is present and lets anonymous requests through
func (m *AuthMiddleware) OptionalAuth() echo.MiddlewareFunc {
	return echojwt.WithConfig(echojwt.Config{
		ParseTokenFunc:         m.parseToken,
		ContinueOnIgnoredError: true,
		ErrorHandler: func(c echo.Context, err error) error {
			var missing *echojwt.TokenExtractionError
			if errors.As(err, &missing) {
				return nil
			}
			return common.NewError(common.KindUnauthorized, "Invalid or expired token", err)
		},
	})
}

func (m *AuthMiddleware) parseToken(c echo.Context, auth string) (interface{}, error) {
	ctx := c.Request().Context()

	claims, ownErr := m.authService.ValidateToken(ctx, auth)
	if ownErr == nil {
		userID, err := uuid.Parse(claims.UserID)
		if err != nil {
			return nil, fmt.Errorf("invalid user_id claim: %w", err)
		}
		c.Set(ClaimsContextKey, claims)
		c.SetRequest(c.Request().WithContext(common.WithUser(ctx, userID, claims.Role)))
		return claims, nil
	}

	if m.jwks == nil {
		return nil, ownErr
	}

	userID, err := m.parseBackendToken(auth)
	if err != nil {
		m.logger.Debug("token rejected", zap.NamedError("own", ownErr), zap.NamedError("backend", err))
		return nil, errUnknownToken
	}

	role, err := m.roleOf(ctx, userID)
	if err != nil {
		return nil, err
	}
	c.SetRequest(c.Request().WithContext(common.WithUser(ctx, userID, role)))
	return userID, nil
}

// parseBackendToken validates a token signed with one of the backend's published keys
func (m *AuthMiddleware) parseBackendToken(auth string) (uuid.UUID, error) {
	token, err := jwt.Parse(auth, m.jwks.Keyfunc, jwt.WithValidMethods([]string{"RS256", "ES256"}))
	if err != nil {
		return uuid.Nil, err
	}
	sub, err := token.Claims.GetSubject()
	if err != nil {
		return uuid.Nil, err
	}
	return uuid.Parse(strings.TrimSpace(sub))
}

// roleOf loads the platform role; backend tokens only carry the account id
func (m *AuthMiddleware) roleOf(ctx context.Context, userID uuid.UUID) (string, error) {
	user, err := m.userRepo.GetByID(ctx, userID)
	if err != nil {
		return "", fmt.Errorf("unknown user: %w", err)
	}
	if user.Status != "active" {
		return "", errors.New("account is not active")
	}
	return user.Role, nil
}

// ActorFromContext returns the authenticated caller
func ActorFromContext(c echo.Context) (services.Actor, bool) {
	ctx := c.Request().Context()
	userID, ok := common.GetUserIDFromContext(ctx)
	if !ok {
		return services.Actor{}, false
	}
	role, _ := common.GetUserRoleFromContext(ctx)
	return services.Actor{ID: userID, Role: role}, true
}

// ClaimsFromContext returns the claims of our own access token, nil for backend tokens
func ClaimsFromContext(c echo.Context) *services.TokenClaims {
	claims, _ := c.Get(ClaimsContextKey).(*services.TokenClaims)
	return claims
}
