package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"montoit/internal/caching"
	"montoit/internal/common"
	"montoit/internal/middleware"
	"montoit/internal/models"
	"montoit/internal/pagination"
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

type MockPropertyService struct {
	mock.Mock
}

func (m *MockPropertyService) Create(ctx context.Context, actor services.Actor, req *services.PropertyRequest) (*models.Property, error) {
	args := m.Called(ctx, actor, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Property), args.Error(1)
}

func (m *MockPropertyService) Update(ctx context.Context, actor services.Actor, id uuid.UUID, req *services.PropertyRequest) (*models.Property, error) {
	args := m.Called(ctx, actor, id, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Property), args.Error(1)
}

func (m *MockPropertyService) Publish(ctx context.Context, actor services.Actor, id uuid.UUID) (*models.Property, *services.ModerationResult, error) {
	args := m.Called(ctx, actor, id)
	if args.Get(0) == nil {
		return nil, nil, args.Error(2)
	}
	return args.Get(0).(*models.Property), args.Get(1).(*services.ModerationResult), args.Error(2)
}

func (m *MockPropertyService) Review(ctx context.Context, admin services.Actor, id uuid.UUID, approve bool, notes string) (*models.Property, *models.Property, error) {
	args := m.Called(ctx, admin, id, approve, notes)
	before, _ := args.Get(0).(*models.Property)
	after, _ := args.Get(1).(*models.Property)
	return before, after, args.Error(2)
}

func (m *MockPropertyService) Archive(ctx context.Context, actor services.Actor, id uuid.UUID) error {
	return m.Called(ctx, actor, id).Error(0)
}

func (m *MockPropertyService) Get(ctx context.Context, actor *services.Actor, id uuid.UUID) (*models.Property, error) {
	args := m.Called(ctx, actor, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Property), args.Error(1)
}

func (m *MockPropertyService) Search(ctx context.Context, filter models.PropertySearchFilter) (*services.SearchResult, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.SearchResult), args.Error(1)
}

func (m *MockPropertyService) ListByOwner(ctx context.Context, actor services.Actor, params pagination.Params) (pagination.Page[*models.Property], error) {
	args := m.Called(ctx, actor, params)
	return args.Get(0).(pagination.Page[*models.Property]), args.Error(1)
}

func (m *MockPropertyService) UploadImage(ctx context.Context, actor services.Actor, id uuid.UUID, reader io.Reader, size int64, contentType string) (string, error) {
	args := m.Called(ctx, actor, id, reader, size, contentType)
	return args.String(0), args.Error(1)
}

func (m *MockPropertyService) ImageURLs(ctx context.Context, property *models.Property) []string {
	return m.Called(ctx, property).Get(0).([]string)
}

type MockApplicationService struct {
	mock.Mock
}

func (m *MockApplicationService) Submit(ctx context.Context, tenant services.Actor, propertyID uuid.UUID, req *services.SubmitApplicationRequest) (*models.RentalApplication, error) {
	args := m.Called(ctx, tenant, propertyID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.RentalApplication), args.Error(1)
}

func (m *MockApplicationService) ListMine(ctx context.Context, tenant services.Actor) ([]*models.RentalApplication, error) {
	args := m.Called(ctx, tenant)
	return args.Get(0).([]*models.RentalApplication), args.Error(1)
}

func (m *MockApplicationService) ListForProperty(ctx context.Context, actor services.Actor, propertyID uuid.UUID) ([]*models.RentalApplication, error) {
	args := m.Called(ctx, actor, propertyID)
	return args.Get(0).([]*models.RentalApplication), args.Error(1)
}

func (m *MockApplicationService) Approve(ctx context.Context, actor services.Actor, applicationID uuid.UUID, req *services.ApproveApplicationRequest) (*services.ApprovalResult, error) {
	args := m.Called(ctx, actor, applicationID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.ApprovalResult), args.Error(1)
}

func (m *MockApplicationService) Reject(ctx context.Context, actor services.Actor, applicationID uuid.UUID, notes *string) (*models.RentalApplication, error) {
	args := m.Called(ctx, actor, applicationID, notes)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.RentalApplication), args.Error(1)
}

func (m *MockApplicationService) Withdraw(ctx context.Context, tenant services.Actor, applicationID uuid.UUID) (*models.RentalApplication, error) {
	args := m.Called(ctx, tenant, applicationID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.RentalApplication), args.Error(1)
}

func (m *MockApplicationService) Score(ctx context.Context, actor services.Actor, applicationID uuid.UUID) (*services.ScoreResult, error) {
	args := m.Called(ctx, actor, applicationID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.ScoreResult), args.Error(1)
}

type MockPaymentService struct {
	mock.Mock
}

func (m *MockPaymentService) GenerateSchedule(ctx context.Context, lease *models.Lease) error {
	return m.Called(ctx, lease).Error(0)
}

func (m *MockPaymentService) ListForLease(ctx context.Context, actor services.Actor, leaseID uuid.UUID) ([]*models.RentPayment, error) {
	args := m.Called(ctx, actor, leaseID)
	return args.Get(0).([]*models.RentPayment), args.Error(1)
}

func (m *MockPaymentService) Initiate(ctx context.Context, actor services.Actor, paymentID uuid.UUID, req *services.InitiatePaymentRequest) (*services.InitiatePaymentResponse, error) {
	args := m.Called(ctx, actor, paymentID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.InitiatePaymentResponse), args.Error(1)
}

func (m *MockPaymentService) HandleWebhook(ctx context.Context, body []byte, signature string) error {
	return m.Called(ctx, body, signature).Error(0)
}

func (m *MockPaymentService) MarkOverdue(ctx context.Context, now time.Time) (int, error) {
	args := m.Called(ctx, now)
	return args.Int(0), args.Error(1)
}

type MockNotificationService struct {
	mock.Mock
}

func (m *MockNotificationService) Notify(ctx context.Context, userID uuid.UUID, kind, title, body string, channels []models.Channel, data models.JSONB) error {
	return m.Called(ctx, userID, kind, title, body, channels, data).Error(0)
}

func (m *MockNotificationService) List(ctx context.Context, userID uuid.UUID, unreadOnly bool, limit, offset int) ([]*models.Notification, int, error) {
	args := m.Called(ctx, userID, unreadOnly, limit, offset)
	return args.Get(0).([]*models.Notification), args.Int(1), args.Error(2)
}

func (m *MockNotificationService) MarkRead(ctx context.Context, userID, notificationID uuid.UUID) error {
	return m.Called(ctx, userID, notificationID).Error(0)
}

func (m *MockNotificationService) SendEmail(ctx context.Context, to, subject, body string) error {
	return m.Called(ctx, to, subject, body).Error(0)
}

func (m *MockNotificationService) SendSMS(ctx context.Context, to, message string) error {
	return m.Called(ctx, to, message).Error(0)
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

type MockMandateService struct {
	mock.Mock
}

func (m *MockMandateService) Request(ctx context.Context, agency services.Actor, req *services.CreateMandateRequest) (*models.Mandate, error) {
	args := m.Called(ctx, agency, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Mandate), args.Error(1)
}

func (m *MockMandateService) transition(ctx context.Context, actor services.Actor, id uuid.UUID) (*models.Mandate, error) {
	args := m.Called(ctx, actor, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Mandate), args.Error(1)
}

func (m *MockMandateService) Accept(ctx context.Context, owner services.Actor, id uuid.UUID) (*models.Mandate, error) {
	return m.transition(ctx, owner, id)
}

func (m *MockMandateService) Reject(ctx context.Context, owner services.Actor, id uuid.UUID) (*models.Mandate, error) {
	return m.transition(ctx, owner, id)
}

func (m *MockMandateService) Revoke(ctx context.Context, actor services.Actor, id uuid.UUID) (*models.Mandate, error) {
	return m.transition(ctx, actor, id)
}

func (m *MockMandateService) List(ctx context.Context, actor services.Actor) ([]*models.Mandate, error) {
	args := m.Called(ctx, actor)
	return args.Get(0).([]*models.Mandate), args.Error(1)
}

func (m *MockMandateService) HasPermission(ctx context.Context, agencyID, propertyID uuid.UUID, perm string) (bool, error) {
	args := m.Called(ctx, agencyID, propertyID, perm)
	return args.Bool(0), args.Error(1)
}

func (m *MockMandateService) ExpireEnded(ctx context.Context, now time.Time) (int, error) {
	args := m.Called(ctx, now)
	return args.Int(0), args.Error(1)
}

type MockMinioService struct {
	mock.Mock
}

func (m *MockMinioService) Upload(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, contentType string) error {
	return m.Called(ctx, bucketName, objectName, reader, objectSize, contentType).Error(0)
}

func (m *MockMinioService) PresignedURL(ctx context.Context, bucketName, objectName string, expiry time.Duration) (string, error) {
	args := m.Called(ctx, bucketName, objectName, expiry)
	return args.String(0), args.Error(1)
}

func (m *MockMinioService) Delete(ctx context.Context, bucketName, objectName string) error {
	return m.Called(ctx, bucketName, objectName).Error(0)
}

func (m *MockMinioService) EnsureBucket(ctx context.Context, bucketName string) error {
	return m.Called(ctx, bucketName).Error(0)
}

func (m *MockMinioService) BucketExists(ctx context.Context, bucketName string) (bool, error) {
	args := m.Called(ctx, bucketName)
	return args.Bool(0), args.Error(1)
}

type stubDashboards struct {
	data map[string]interface{}
	err  error
	role string
}

func (s *stubDashboards) Dashboard(_ context.Context, _ uuid.UUID, role string) (map[string]interface{}, error) {
	s.role = role
	return s.data, s.err
}

type stubPinger struct {
	err error
}

func (s stubPinger) Ping(context.Context) error {
	return s.err
}

// serve runs handler behind the central error handler, optionally as actor
func serve(t *testing.T, method, route, target, body string, actor *services.Actor, handler echo.HandlerFunc) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	e.HTTPErrorHandler = common.NewHTTPErrorHandler(zap.NewNop())
	e.Add(method, route, handler)

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if actor != nil {
		req = req.WithContext(common.WithUser(req.Context(), actor.ID, actor.Role))
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body.Error.Code
}

func TestPropertySearch_ParsesFilters(t *testing.T) {
	svc := new(MockPropertyService)
	h := NewPropertyHandlers(svc, nil)

	svc.On("Search", mock.Anything, mock.MatchedBy(func(f models.PropertySearchFilter) bool {
		return f.City == "Abidjan" &&
			f.MinRent != nil && *f.MinRent == 100000 &&
			f.MaxRent == nil &&
			f.MinBedrooms != nil && *f.MinBedrooms == 2 &&
			f.Furnished != nil && *f.Furnished &&
			f.Limit == 10
	})).Return(&services.SearchResult{Items: []*models.Property{}, Limit: 10}, nil)

	rec := serve(t, http.MethodGet, "/properties", "/properties?city=Abidjan&min_rent=100000&bedrooms=2&furnished=true&limit=10", "", nil, h.Search)

	assert.Equal(t, http.StatusOK, rec.Code)
	svc.AssertExpectations(t)
}

func TestPropertySearch_RejectsBadNumbers(t *testing.T) {
	svc := new(MockPropertyService)
	h := NewPropertyHandlers(svc, nil)

	rec := serve(t, http.MethodGet, "/properties", "/properties?min_rent=cheap", "", nil, h.Search)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "VALIDATION_ERROR", errorCode(t, rec))
	svc.AssertNotCalled(t, "Search", mock.Anything, mock.Anything)
}

func TestPropertyGet(t *testing.T) {
	id := uuid.New()
	property := &models.Property{ID: id, Title: "Villa Cocody"}

	t.Run("anonymous visitors pass a nil actor", func(t *testing.T) {
		svc := new(MockPropertyService)
		h := NewPropertyHandlers(svc, nil)
		svc.On("Get", mock.Anything, (*services.Actor)(nil), id).Return(property, nil)
		svc.On("ImageURLs", mock.Anything, property).Return([]string{"https://cdn/img.jpg"})

		rec := serve(t, http.MethodGet, "/properties/:id", "/properties/"+id.String(), "", nil, h.Get)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "https://cdn/img.jpg")
	})

	t.Run("hidden drafts are not found", func(t *testing.T) {
		svc := new(MockPropertyService)
		h := NewPropertyHandlers(svc, nil)
		svc.On("Get", mock.Anything, (*services.Actor)(nil), id).Return(nil, common.NotFoundError("property"))

		rec := serve(t, http.MethodGet, "/properties/:id", "/properties/"+id.String(), "", nil, h.Get)

		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Equal(t, "NOT_FOUND", errorCode(t, rec))
	})

	t.Run("malformed id", func(t *testing.T) {
		svc := new(MockPropertyService)
		h := NewPropertyHandlers(svc, nil)

		rec := serve(t, http.MethodGet, "/properties/:id", "/properties/not-a-uuid", "", nil, h.Get)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestPropertyCreate_RequiresActor(t *testing.T) {
	svc := new(MockPropertyService)
	h := NewPropertyHandlers(svc, nil)

	rec := serve(t, http.MethodPost, "/properties", "/properties", `{"title":"Studio"}`, nil, h.Create)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "UNAUTHORIZED", errorCode(t, rec))
}

func TestPropertyReview_IsAudited(t *testing.T) {
	svc := new(MockPropertyService)
	audit := new(MockAuditLogsService)
	h := NewPropertyHandlers(svc, middleware.NewAuditMiddleware(audit, zap.NewNop()))

	admin := services.Actor{ID: uuid.New(), Role: common.RoleAdmin}
	id := uuid.New()
	before := &models.Property{ID: id, Status: models.PropertyStatusAvailable, ModerationStatus: models.ModerationPending}
	property := &models.Property{ID: id, Status: models.PropertyStatusAvailable, ModerationStatus: models.ModerationApproved}

	svc.On("Review", mock.Anything, admin, id, true, "ok").Return(before, property, nil)
	svc.On("ImageURLs", mock.Anything, property).Return([]string{})
	audit.On("LogActivity", mock.Anything, "properties", id.String(), "moderation_review", &admin.ID, mock.Anything,
		mock.MatchedBy(func(old models.JSONB) bool { return old["moderation_status"] == models.ModerationPending }),
		mock.MatchedBy(func(updated models.JSONB) bool { return updated["moderation_status"] == models.ModerationApproved }),
	).Return(nil)

	rec := serve(t, http.MethodPost, "/admin/properties/:id/moderation", "/admin/properties/"+id.String()+"/moderation", `{"approve":true,"notes":"ok"}`, &admin, h.Review)

	assert.Equal(t, http.StatusOK, rec.Code)
	svc.AssertExpectations(t)
	audit.AssertExpectations(t)
}

func TestApplicationApprove_ReturnsDraftLease(t *testing.T) {
	svc := new(MockApplicationService)
	h := NewApplicationHandlers(svc)

	owner := services.Actor{ID: uuid.New(), Role: common.RoleOwner}
	appID := uuid.New()
	application := &models.RentalApplication{ID: appID, Status: models.ApplicationApproved}
	lease := &models.Lease{ID: uuid.New(), Status: models.LeaseDraft}

	svc.On("Approve", mock.Anything, owner, appID, mock.MatchedBy(func(req *services.ApproveApplicationRequest) bool {
		return req.CreateLease
	})).Return(&services.ApprovalResult{Application: application, Lease: lease}, nil)

	rec := serve(t, http.MethodPost, "/applications/:id/approve", "/applications/"+appID.String()+"/approve", `{"create_lease":true}`, &owner, h.Approve)

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Contains(t, string(body["lease"]), lease.ID.String())
	assert.Contains(t, string(body["application"]), appID.String())
	assert.NotContains(t, rec.Body.String(), "lease_warning")
}

func TestApplicationApprove_LeaseWarningStillOK(t *testing.T) {
	svc := new(MockApplicationService)
	h := NewApplicationHandlers(svc)

	owner := services.Actor{ID: uuid.New(), Role: common.RoleOwner}
	appID := uuid.New()
	application := &models.RentalApplication{ID: appID, Status: models.ApplicationApproved}
	svc.On("Approve", mock.Anything, owner, appID, mock.Anything).Return(&services.ApprovalResult{
		Application:  application,
		LeaseWarning: "application approved but the lease was not created: payment_day must be between 1 and 28",
	}, nil)

	rec := serve(t, http.MethodPost, "/applications/:id/approve", "/applications/"+appID.String()+"/approve", `{"create_lease":true}`, &owner, h.Approve)

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "null", string(body["lease"]))
	assert.Contains(t, string(body["lease_warning"]), "payment_day must be between 1 and 28")
	assert.Contains(t, string(body["application"]), `"status":"approved"`)
}

func TestApplicationSubmit_Conflict(t *testing.T) {
	svc := new(MockApplicationService)
	h := NewApplicationHandlers(svc)

	tenant := services.Actor{ID: uuid.New(), Role: common.RoleTenant}
	propertyID := uuid.New()
	svc.On("Submit", mock.Anything, tenant, propertyID, mock.Anything).Return(nil, common.ConflictError("application already pending"))

	rec := serve(t, http.MethodPost, "/properties/:id/applications", "/properties/"+propertyID.String()+"/applications", `{}`, &tenant, h.Submit)

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "CONFLICT", errorCode(t, rec))
}

func TestMobileMoneyWebhook(t *testing.T) {
	body := `{"reference":"TX-1","status":"success","amount":150000}`

	t.Run("missing signature", func(t *testing.T) {
		svc := new(MockPaymentService)
		h := NewPaymentHandlers(svc)

		rec := serve(t, http.MethodPost, "/webhooks/mobile-money", "/webhooks/mobile-money", body, nil, h.MobileMoneyWebhook)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		svc.AssertNotCalled(t, "HandleWebhook", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("forwards the raw body and signature", func(t *testing.T) {
		svc := new(MockPaymentService)
		h := NewPaymentHandlers(svc)
		svc.On("HandleWebhook", mock.Anything, []byte(body), "abc123").Return(nil)

		e := echo.New()
		e.HTTPErrorHandler = common.NewHTTPErrorHandler(zap.NewNop())
		e.POST("/webhooks/mobile-money", h.MobileMoneyWebhook)
		req := httptest.NewRequest(http.MethodPost, "/webhooks/mobile-money", strings.NewReader(body))
		req.Header.Set(SignatureHeader, "abc123")
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"received":true}`, rec.Body.String())
		svc.AssertExpectations(t)
	})

	t.Run("bad signature is rejected by the service", func(t *testing.T) {
		svc := new(MockPaymentService)
		h := NewPaymentHandlers(svc)
		svc.On("HandleWebhook", mock.Anything, mock.Anything, "forged").Return(common.UnauthorizedError("invalid signature"))

		e := echo.New()
		e.HTTPErrorHandler = common.NewHTTPErrorHandler(zap.NewNop())
		e.POST("/webhooks/mobile-money", h.MobileMoneyWebhook)
		req := httptest.NewRequest(http.MethodPost, "/webhooks/mobile-money", strings.NewReader(body))
		req.Header.Set(SignatureHeader, "forged")
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestNotificationsList_DefaultsPagination(t *testing.T) {
	svc := new(MockNotificationService)
	h := NewNotificationHandlers(svc)
	user := services.Actor{ID: uuid.New(), Role: common.RoleTenant}

	svc.On("List", mock.Anything, user.ID, true, 20, 0).Return([]*models.Notification{{ID: uuid.New()}}, 3, nil)

	rec := serve(t, http.MethodGet, "/notifications", "/notifications?unread=true", "", &user, h.List)

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.EqualValues(t, 3, body["unread_count"])
	assert.EqualValues(t, 20, body["limit"])
	svc.AssertExpectations(t)
}

func TestSendEmail_Validation(t *testing.T) {
	svc := new(MockNotificationService)
	h := NewNotificationHandlers(svc)
	admin := services.Actor{ID: uuid.New(), Role: common.RoleAdmin}

	rec := serve(t, http.MethodPost, "/notifications/email", "/notifications/email", `{"to":"not-an-email","subject":"Hi","body":"x"}`, &admin, h.SendEmail)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	svc.On("SendEmail", mock.Anything, "awa@example.ci", "Hi", "Bienvenue").Return(nil)
	rec = serve(t, http.MethodPost, "/notifications/email", "/notifications/email", `{"to":"awa@example.ci","subject":"Hi","body":"Bienvenue"}`, &admin, h.SendEmail)
	assert.Equal(t, http.StatusAccepted, rec.Code)
	svc.AssertExpectations(t)
}

func TestSendSMS_UpstreamFailure(t *testing.T) {
	svc := new(MockNotificationService)
	h := NewNotificationHandlers(svc)
	admin := services.Actor{ID: uuid.New(), Role: common.RoleAdmin}

	svc.On("SendSMS", mock.Anything, "+2250701020304", "Loyer du").
		Return(common.NewError(common.KindNetwork, "SMS delivery failed", errors.New("timeout")))

	rec := serve(t, http.MethodPost, "/notifications/sms", "/notifications/sms", `{"to":"+2250701020304","message":"Loyer du"}`, &admin, h.SendSMS)

	assert.Equal(t, "UPSTREAM_ERROR", errorCode(t, rec))
}

func TestMandateAccept(t *testing.T) {
	svc := new(MockMandateService)
	h := NewMandateHandlers(svc)
	owner := services.Actor{ID: uuid.New(), Role: common.RoleOwner}
	id := uuid.New()

	svc.On("transition", mock.Anything, owner, id).Return(&models.Mandate{ID: id, Status: models.MandateActive}, nil)

	rec := serve(t, http.MethodPost, "/mandates/:id/accept", "/mandates/"+id.String()+"/accept", "", &owner, h.Accept)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"active"`)
}

func TestDashboardGet_UsesCallerRole(t *testing.T) {
	dashboards := &stubDashboards{data: map[string]interface{}{"properties": 2}}
	h := NewDashboardHandlers(dashboards)
	agency := services.Actor{ID: uuid.New(), Role: common.RoleAgency}

	rec := serve(t, http.MethodGet, "/dashboard", "/dashboard", "", &agency, h.Get)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, common.RoleAgency, dashboards.role)
}

func TestListAuditLogs(t *testing.T) {
	svc := new(MockAuditLogsService)
	h := NewAuditLogsHandlers(svc)

	rec := serve(t, http.MethodGet, "/admin/audit-logs", "/admin/audit-logs?actor_id=nope", "", nil, h.ListAuditLogs)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	svc.On("ListAuditLogs", mock.Anything, mock.MatchedBy(func(f *models.AuditLogFilters) bool {
		return f.TableName != nil && *f.TableName == "leases" && f.Limit == 50
	})).Return([]*models.AuditLog{}, nil)

	rec = serve(t, http.MethodGet, "/admin/audit-logs", "/admin/audit-logs?table=leases&limit=50", "", nil, h.ListAuditLogs)
	assert.Equal(t, http.StatusOK, rec.Code)
	svc.AssertExpectations(t)
}

func TestReadinessCheck(t *testing.T) {
	mr := miniredis.RunT(t)
	cache := caching.NewCacheService(redis.NewClient(&redis.Options{Addr: mr.Addr()}))

	storage := new(MockMinioService)
	storage.On("BucketExists", mock.Anything, mock.Anything).Return(true, nil)

	t.Run("all dependencies up", func(t *testing.T) {
		h := NewHealthHandlers(stubPinger{}, cache, storage, nil, "test")
		rec := serve(t, http.MethodGet, "/health/ready", "/health/ready", "", nil, h.ReadinessCheck)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"status":"ready"`)
	})

	t.Run("database down", func(t *testing.T) {
		h := NewHealthHandlers(stubPinger{err: errors.New("refused")}, cache, storage, nil, "test")
		rec := serve(t, http.MethodGet, "/health/ready", "/health/ready", "", nil, h.ReadinessCheck)

		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})

	t.Run("redis down only degrades", func(t *testing.T) {
		deadCache := caching.NewCacheService(redis.NewClient(&redis.Options{Addr: "127.0.0.1:1"}))
		h := NewHealthHandlers(stubPinger{}, deadCache, storage, nil, "test")
		rec := serve(t, http.MethodGet, "/health/ready", "/health/ready", "", nil, h.ReadinessCheck)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"status":"degraded"`)
	})

	t.Run("reports scheduled jobs", func(t *testing.T) {
		jobs := stubJobs{"total_jobs": 5, "jobs": []string{"lease-expiry"}}
		h := NewHealthHandlers(stubPinger{}, cache, storage, jobs, "test")
		rec := serve(t, http.MethodGet, "/health/ready", "/health/ready", "", nil, h.ReadinessCheck)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"jobs":{"jobs":["lease-expiry"],"total_jobs":5}`)
	})
}

type stubJobs map[string]interface{}

func (s stubJobs) GetJobStatus() map[string]interface{} { return s }
