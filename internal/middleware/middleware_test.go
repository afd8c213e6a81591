package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"montoit/internal/caching"
	"montoit/internal/common"
	"montoit/internal/models"
	"montoit/internal/services"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type MockAuthService struct {
	mock.Mock
}

func (m *MockAuthService) Signup(ctx context.Context, req *services.SignupRequest, clientIP string) (*models.TokenResponse, error) {
	args := m.Called(ctx, req, clientIP)
	return args.Get(0).(*models.TokenResponse), args.Error(1)
}

func (m *MockAuthService) Login(ctx context.Context, email, password, clientIP string) (*models.TokenResponse, error) {
	args := m.Called(ctx, email, password, clientIP)
	return args.Get(0).(*models.TokenResponse), args.Error(1)
}

func (m *MockAuthService) Me(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockAuthService) GenerateTokens(ctx context.Context, user *models.User) (*models.TokenResponse, error) {
	args := m.Called(ctx, user)
	return args.Get(0).(*models.TokenResponse), args.Error(1)
}

func (m *MockAuthService) RefreshToken(ctx context.Context, refreshToken string) (*models.TokenResponse, error) {
	args := m.Called(ctx, refreshToken)
	return args.Get(0).(*models.TokenResponse), args.Error(1)
}

func (m *MockAuthService) ValidateToken(ctx context.Context, token string) (*services.TokenClaims, error) {
	args := m.Called(ctx, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.TokenClaims), args.Error(1)
}

func (m *MockAuthService) Logout(ctx context.Context, claims *services.TokenClaims, refreshToken string) error {
	return m.Called(ctx, claims, refreshToken).Error(0)
}

type MockMFAService struct {
	mock.Mock
}

func (m *MockMFAService) Status(ctx context.Context, userID uuid.UUID) (*services.MFACompliance, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.MFACompliance), args.Error(1)
}

func (m *MockMFAService) Enroll(ctx context.Context, userID uuid.UUID, userToken string) (*services.FactorEnrollment, error) {
	args := m.Called(ctx, userID, userToken)
	return args.Get(0).(*services.FactorEnrollment), args.Error(1)
}

func (m *MockMFAService) Challenge(ctx context.Context, userToken, factorID string) (*services.FactorChallenge, error) {
	args := m.Called(ctx, userToken, factorID)
	return args.Get(0).(*services.FactorChallenge), args.Error(1)
}

func (m *MockMFAService) Verify(ctx context.Context, userID uuid.UUID, userToken, factorID, challengeID, code string) error {
	return m.Called(ctx, userID, userToken, factorID, challengeID, code).Error(0)
}

func (m *MockMFAService) Unenroll(ctx context.Context, userID uuid.UUID, userToken, factorID string) error {
	return m.Called(ctx, userID, userToken, factorID).Error(0)
}

func (m *MockMFAService) Audit(ctx context.Context) ([]services.MFAAuditEntry, error) {
	args := m.Called(ctx)
	return args.Get(0).([]services.MFAAuditEntry), args.Error(1)
}

type MockRateLimitService struct {
	mock.Mock
}

func (m *MockRateLimitService) Check(ctx context.Context, identifier, action string) services.RateLimitResult {
	return m.Called(ctx, identifier, action).Get(0).(services.RateLimitResult)
}

func (m *MockRateLimitService) Record(ctx context.Context, identifier, action string) {
	m.Called(ctx, identifier, action)
}

type MockAuditLogsService struct {
	mock.Mock
}

func (m *MockAuditLogsService) LogActivity(ctx context.Context, tableName, recordID, action string, actorID *uuid.UUID, ipAddress string, oldValues, newValues models.JSONB) error {
	return m.Called(ctx, tableName, recordID, action, actorID, ipAddress, oldValues, newValues).Error(0)
}

func (m *MockAuditLogsService) ListAuditLogs(ctx context.Context, filters *models.AuditLogFilters) ([]*models.AuditLog, error) {
	args := m.Called(ctx, filters)
	return args.Get(0).([]*models.AuditLog), args.Error(1)
}

func (m *MockAuditLogsService) ValidateAuditFilters(filters *models.AuditLogFilters) error {
	return m.Called(filters).Error(0)
}

func newTestEcho() *echo.Echo {
	e := echo.New()
	e.HTTPErrorHandler = common.NewHTTPErrorHandler(zap.NewNop())
	return e
}

func whoAmI(c echo.Context) error {
	actor, ok := ActorFromContext(c)
	if !ok {
		return c.JSON(http.StatusOK, map[string]string{"user_id": "", "role": ""})
	}
	return c.JSON(http.StatusOK, map[string]string{"user_id": actor.ID.String(), "role": actor.Role})
}

func withUser(userID uuid.UUID, role string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			c.SetRequest(c.Request().WithContext(common.WithUser(c.Request().Context(), userID, role)))
			return next(c)
		}
	}
}

func TestRequireAuth(t *testing.T) {
	authSvc := new(MockAuthService)
	m, err := NewAuthMiddleware(authSvc, nil, "", zap.NewNop())
	require.NoError(t, err)

	userID := uuid.New()
	authSvc.On("ValidateToken", mock.Anything, "good").
		Return(&services.TokenClaims{UserID: userID.String(), Role: common.RoleOwner, TokenID: "t1"}, nil)
	authSvc.On("ValidateToken", mock.Anything, "bad").Return(nil, errors.New("signature is invalid"))

	e := newTestEcho()
	e.GET("/me", whoAmI, m.RequireAuth())

	tests := []struct {
		name   string
		header string
		status int
	}{
		{"valid token", "Bearer good", http.StatusOK},
		{"invalid token", "Bearer bad", http.StatusUnauthorized},
		{"missing header", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic good", http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if tt.header != "" {
				req.Header.Set(echo.HeaderAuthorization, tt.header)
			}
			rec := httptest.NewRecorder()
			e.ServeHTTP(rec, req)

			assert.Equal(t, tt.status, rec.Code)
			if tt.status == http.StatusOK {
				assert.Contains(t, rec.Body.String(), userID.String())
				assert.Contains(t, rec.Body.String(), `"role":"owner"`)
			} else {
				assert.Contains(t, rec.Body.String(), `"code":"UNAUTHORIZED"`)
			}
		})
	}
}

func TestOptionalAuth(t *testing.T) {
	authSvc := new(MockAuthService)
	m, err := NewAuthMiddleware(authSvc, nil, "", zap.NewNop())
	require.NoError(t, err)
	authSvc.On("ValidateToken", mock.Anything, "expired").Return(nil, errors.New("token is expired"))

	e := newTestEcho()
	e.GET("/properties/:id", whoAmI, m.OptionalAuth())

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/properties/1", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"user_id":""`)

	req := httptest.NewRequest(http.MethodGet, "/properties/1", nil)
	req.Header.Set(echo.HeaderAuthorization, "Bearer expired")
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireRole(t *testing.T) {
	rbac := NewRBACMiddleware(new(MockMFAService), zap.NewNop())

	tests := []struct {
		name   string
		role   string
		status int
	}{
		{"allowed", common.RoleAdmin, http.StatusOK},
		{"second allowed role", common.RoleTrustThirdParty, http.StatusOK},
		{"forbidden", common.RoleTenant, http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newTestEcho()
			e.GET("/admin/verifications", whoAmI, withUser(uuid.New(), tt.role), rbac.RequireRole(common.RoleAdmin, common.RoleTrustThirdParty))

			rec := httptest.NewRecorder()
			e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin/verifications", nil))
			assert.Equal(t, tt.status, rec.Code)
		})
	}

	t.Run("anonymous", func(t *testing.T) {
		e := newTestEcho()
		e.GET("/admin/verifications", whoAmI, rbac.RequireRole(common.RoleAdmin))
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin/verifications", nil))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestRequireMFACompliance(t *testing.T) {
	adminID := uuid.New()
	agencyID := uuid.New()
	mfaSvc := new(MockMFAService)
	mfaSvc.On("Status", mock.Anything, adminID).Return(&services.MFACompliance{Required: true, Status: services.MFAExpired}, nil)
	mfaSvc.On("Status", mock.Anything, agencyID).Return(&services.MFACompliance{Required: true, Status: services.MFAGracePeriod, DaysRemaining: 3}, nil)
	rbac := NewRBACMiddleware(mfaSvc, zap.NewNop())

	serve := func(userID uuid.UUID, role string) *httptest.ResponseRecorder {
		e := newTestEcho()
		e.GET("/dashboard", whoAmI, withUser(userID, role), rbac.RequireMFACompliance())
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/dashboard", nil))
		return rec
	}

	rec := serve(adminID, common.RoleAdmin)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = serve(agencyID, common.RoleAgency)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "3", rec.Header().Get("X-MFA-Days-Remaining"))

	// tenants are never asked for MFA
	rec = serve(uuid.New(), common.RoleTenant)
	assert.Equal(t, http.StatusOK, rec.Code)
	mfaSvc.AssertNumberOfCalls(t, "Status", 2)
}

func TestRateLimit(t *testing.T) {
	userID := uuid.New()
	limiter := new(MockRateLimitService)
	resetAt := time.Now().Add(10 * time.Minute)
	limiter.On("Check", mock.Anything, "user:"+userID.String(), services.ActionPaymentInitiate).
		Return(services.RateLimitResult{Allowed: false, Limit: 10, Remaining: 0, ResetAt: resetAt}).Once()
	limiter.On("Check", mock.Anything, "user:"+userID.String(), services.ActionPaymentInitiate).
		Return(services.RateLimitResult{Allowed: true, Limit: 10, Remaining: 4, ResetAt: resetAt}).Once()
	limiter.On("Check", mock.Anything, "ip:192.0.2.10", services.ActionSignup).
		Return(services.RateLimitResult{Allowed: true, Limit: 3, Remaining: 2, ResetAt: resetAt})

	e := newTestEcho()
	e.POST("/payments/:id/pay", whoAmI, withUser(userID, common.RoleTenant), RateLimit(limiter, services.ActionPaymentInitiate))
	e.POST("/auth/signup", whoAmI, RateLimit(limiter, services.ActionSignup))

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/payments/1/pay", nil))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
	assert.Equal(t, "0", rec.Header().Get("X-RateLimit-Remaining"))
	assert.Contains(t, rec.Body.String(), "RATE_LIMITED")

	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/payments/1/pay", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "4", rec.Header().Get("X-RateLimit-Remaining"))

	req := httptest.NewRequest(http.MethodPost, "/auth/signup", nil)
	req.RemoteAddr = "192.0.2.10:51234"
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	limiter.AssertNotCalled(t, "Record", mock.Anything, mock.Anything, mock.Anything)
}

func TestIPThrottle(t *testing.T) {
	mr := miniredis.RunT(t)
	cache := caching.NewCacheService(redis.NewClient(&redis.Options{Addr: mr.Addr()}))

	e := newTestEcho()
	e.POST("/auth/login", whoAmI, IPThrottle(cache, "auth", 2, time.Minute, zap.NewNop()))

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodPost, "/auth/login", nil)
		req.RemoteAddr = "198.51.100.7:4000"
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)

	// another client has its own window
	req := httptest.NewRequest(http.MethodPost, "/auth/login", nil)
	req.RemoteAddr = "198.51.100.8:4000"
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	// redis down lets traffic through
	mr.Close()
	req = httptest.NewRequest(http.MethodPost, "/auth/login", nil)
	req.RemoteAddr = "198.51.100.7:4000"
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAuditRequest(t *testing.T) {
	auditSvc := new(MockAuditLogsService)
	audit := NewAuditMiddleware(auditSvc, zap.NewNop())
	userID := uuid.New()

	auditSvc.On("LogActivity", mock.Anything, "verifications", "42", "POST /v1/admin/verifications/:id/review",
		&userID, "203.0.113.5", models.JSONB(nil), mock.MatchedBy(func(data models.JSONB) bool {
			headers, ok := data["headers"].(map[string]interface{})
			return ok && headers["Authorization"] == "[REDACTED]" && data["role"] == common.RoleAdmin
		})).Return(nil).Once()

	e := newTestEcho()
	e.POST("/v1/admin/verifications/:id/review", whoAmI, withUser(userID, common.RoleAdmin), audit.AuditRequest(AuditHigh))
	e.GET("/v1/properties", whoAmI, audit.AuditRequest(AuditLow))

	req := httptest.NewRequest(http.MethodPost, "/v1/admin/verifications/42/review", nil)
	req.Header.Set(echo.HeaderAuthorization, "Bearer secret")
	req.RemoteAddr = "203.0.113.5:1234"
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	// successful public reads are not audited at low sensitivity
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/properties", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	auditSvc.AssertExpectations(t)
}

func TestAuditEntityChange_SkipsSensitiveFields(t *testing.T) {
	auditSvc := new(MockAuditLogsService)
	audit := NewAuditMiddleware(auditSvc, zap.NewNop())
	adminID := uuid.New()

	before := &models.Verification{ID: uuid.New(), Status: "pending_review", DocumentNumber: "CI0123456789"}
	after := *before
	after.Status = "approved"

	auditSvc.On("LogActivity", mock.Anything, "verifications", before.ID.String(), "review", &adminID, "",
		mock.MatchedBy(func(old models.JSONB) bool {
			_, leaked := old["document_number"]
			return old["status"] == "pending_review" && !leaked
		}),
		mock.MatchedBy(func(updated models.JSONB) bool { return updated["status"] == "approved" }),
	).Return(errors.New("insert failed"))

	// a failed audit write is logged, never surfaced
	audit.AuditEntityChange(context.Background(), &adminID, "", "verifications", before.ID.String(), "review", before, &after)
	auditSvc.AssertExpectations(t)
}

func TestResourceFromPath(t *testing.T) {
	assert.Equal(t, "verifications", resourceFromPath("/v1/admin/verifications/:id/review"))
	assert.Equal(t, "leases", resourceFromPath("/v1/leases/:id/sign"))
	assert.Equal(t, "http_requests", resourceFromPath("/"))
}

func TestAPIVersionResolver(t *testing.T) {
	vm := NewVersionMiddleware("1.0.0")
	e := newTestEcho()
	e.Use(vm.APIVersionResolver())
	g := e.Group("/v1", vm.VersionHeader("v1"))
	g.GET("/ping", func(c echo.Context) error { return c.String(http.StatusOK, c.Get("api_version").(string)) })
	e.GET("/v7/ping", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	e.GET("/verifications", func(c echo.Context) error { return c.String(http.StatusOK, c.Get("api_version").(string)) })

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/ping", nil))
	assert.Equal(t, "v1", rec.Body.String())
	assert.Equal(t, "v1", rec.Header().Get("X-API-Version"))

	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v7/ping", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/verifications", nil))
	assert.Equal(t, "v1", rec.Body.String())

	vm.Deprecate("v1", time.Date(2027, 1, 1, 0, 0, 0, 0, time.UTC), "use v2")
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/ping", nil))
	assert.Equal(t, "true", rec.Header().Get("X-API-Deprecated"))
	assert.Contains(t, rec.Header().Get("Warning"), "2027-01-01")
}
