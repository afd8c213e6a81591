package services

import (
	"context"
	"io"
	"time"

	"montoit/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

// repositories

type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) Create(ctx context.Context, user *models.User) error {
	return m.Called(ctx, user).Error(0)
}

func (m *MockUserRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) Update(ctx context.Context, user *models.User) error {
	return m.Called(ctx, user).Error(0)
}

func (m *MockUserRepository) SetIdentityVerified(ctx context.Context, id uuid.UUID, verified bool) error {
	return m.Called(ctx, id, verified).Error(0)
}

func (m *MockUserRepository) SetEmploymentVerified(ctx context.Context, id uuid.UUID, verified bool) error {
	return m.Called(ctx, id, verified).Error(0)
}

func (m *MockUserRepository) SetMFAEnabled(ctx context.Context, id uuid.UUID, enabled bool) error {
	return m.Called(ctx, id, enabled).Error(0)
}

func (m *MockUserRepository) ListByRoles(ctx context.Context, roles []string, limit, offset int) ([]*models.User, error) {
	args := m.Called(ctx, roles, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.User), args.Error(1)
}

func (m *MockUserRepository) CountByRole(ctx context.Context) (map[string]int, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]int), args.Error(1)
}

type MockPropertyRepository struct {
	mock.Mock
}

func (m *MockPropertyRepository) Create(ctx context.Context, property *models.Property) error {
	return m.Called(ctx, property).Error(0)
}

func (m *MockPropertyRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Property, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Property), args.Error(1)
}

func (m *MockPropertyRepository) Update(ctx context.Context, property *models.Property) error {
	return m.Called(ctx, property).Error(0)
}

func (m *MockPropertyRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status string) error {
	return m.Called(ctx, id, status).Error(0)
}

func (m *MockPropertyRepository) SetModeration(ctx context.Context, id uuid.UUID, status string, notes *string) error {
	return m.Called(ctx, id, status, notes).Error(0)
}

func (m *MockPropertyRepository) AddImage(ctx context.Context, id uuid.UUID, object string) error {
	return m.Called(ctx, id, object).Error(0)
}

func (m *MockPropertyRepository) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]*models.Property, error) {
	args := m.Called(ctx, ownerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Property), args.Error(1)
}

func (m *MockPropertyRepository) Search(ctx context.Context, filter models.PropertySearchFilter) ([]*models.Property, int, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Int(1), args.Error(2)
	}
	return args.Get(0).([]*models.Property), args.Int(1), args.Error(2)
}

func (m *MockPropertyRepository) CountByOwnerStatus(ctx context.Context, ownerID uuid.UUID) (map[string]int, error) {
	args := m.Called(ctx, ownerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]int), args.Error(1)
}

type MockApplicationRepository struct {
	mock.Mock
}

func (m *MockApplicationRepository) Create(ctx context.Context, app *models.RentalApplication) error {
	return m.Called(ctx, app).Error(0)
}

func (m *MockApplicationRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.RentalApplication, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.RentalApplication), args.Error(1)
}

func (m *MockApplicationRepository) UpdateReview(ctx context.Context, app *models.RentalApplication) error {
	return m.Called(ctx, app).Error(0)
}

func (m *MockApplicationRepository) ListByTenant(ctx context.Context, tenantID uuid.UUID) ([]*models.RentalApplication, error) {
	args := m.Called(ctx, tenantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.RentalApplication), args.Error(1)
}

func (m *MockApplicationRepository) ListByProperty(ctx context.Context, propertyID uuid.UUID) ([]*models.RentalApplication, error) {
	args := m.Called(ctx, propertyID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.RentalApplication), args.Error(1)
}

func (m *MockApplicationRepository) HasOpen(ctx context.Context, tenantID, propertyID uuid.UUID) (bool, error) {
	args := m.Called(ctx, tenantID, propertyID)
	return args.Bool(0), args.Error(1)
}

func (m *MockApplicationRepository) CountOpenByTenant(ctx context.Context, tenantID uuid.UUID) (int, error) {
	args := m.Called(ctx, tenantID)
	return args.Int(0), args.Error(1)
}

func (m *MockApplicationRepository) CountPendingForOwner(ctx context.Context, ownerID uuid.UUID) (int, error) {
	args := m.Called(ctx, ownerID)
	return args.Int(0), args.Error(1)
}

type MockLeaseRepository struct {
	mock.Mock
}

func (m *MockLeaseRepository) Create(ctx context.Context, lease *models.Lease) error {
	return m.Called(ctx, lease).Error(0)
}

func (m *MockLeaseRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Lease, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Lease), args.Error(1)
}

func (m *MockLeaseRepository) Update(ctx context.Context, lease *models.Lease) error {
	return m.Called(ctx, lease).Error(0)
}

func (m *MockLeaseRepository) RecordSignature(ctx context.Context, sig *models.LeaseSignature) (*models.Lease, error) {
	args := m.Called(ctx, sig)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Lease), args.Error(1)
}

func (m *MockLeaseRepository) ListSignatures(ctx context.Context, leaseID uuid.UUID) ([]*models.LeaseSignature, error) {
	args := m.Called(ctx, leaseID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.LeaseSignature), args.Error(1)
}

func (m *MockLeaseRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]*models.Lease, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Lease), args.Error(1)
}

func (m *MockLeaseRepository) ListPendingCertification(ctx context.Context) ([]*models.Lease, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Lease), args.Error(1)
}

func (m *MockLeaseRepository) ExpireEnded(ctx context.Context, now time.Time) ([]*models.Lease, error) {
	args := m.Called(ctx, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Lease), args.Error(1)
}

func (m *MockLeaseRepository) CountActiveByOwner(ctx context.Context, ownerID uuid.UUID) (int, error) {
	args := m.Called(ctx, ownerID)
	return args.Int(0), args.Error(1)
}

func (m *MockLeaseRepository) CountActiveByTenant(ctx context.Context, tenantID uuid.UUID) (int, error) {
	args := m.Called(ctx, tenantID)
	return args.Int(0), args.Error(1)
}

func (m *MockLeaseRepository) CountPendingCertification(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

type MockPaymentRepository struct {
	mock.Mock
}

func (m *MockPaymentRepository) CreateSchedule(ctx context.Context, payments []*models.RentPayment) error {
	return m.Called(ctx, payments).Error(0)
}

func (m *MockPaymentRepository) GetRentPayment(ctx context.Context, id uuid.UUID) (*models.RentPayment, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.RentPayment), args.Error(1)
}

func (m *MockPaymentRepository) ListByLease(ctx context.Context, leaseID uuid.UUID) ([]*models.RentPayment, error) {
	args := m.Called(ctx, leaseID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.RentPayment), args.Error(1)
}

func (m *MockPaymentRepository) UpdateRentPaymentStatus(ctx context.Context, id uuid.UUID, status string, paidAt *time.Time) error {
	return m.Called(ctx, id, status, paidAt).Error(0)
}

func (m *MockPaymentRepository) MarkOverdue(ctx context.Context, before time.Time) ([]*models.RentPayment, error) {
	args := m.Called(ctx, before)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.RentPayment), args.Error(1)
}

func (m *MockPaymentRepository) NextDue(ctx context.Context, tenantID uuid.UUID) (*models.RentPayment, error) {
	args := m.Called(ctx, tenantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.RentPayment), args.Error(1)
}

func (m *MockPaymentRepository) History(ctx context.Context, tenantID uuid.UUID) (*models.PaymentHistory, error) {
	args := m.Called(ctx, tenantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.PaymentHistory), args.Error(1)
}

func (m *MockPaymentRepository) SumPaidForOwner(ctx context.Context, ownerID uuid.UUID, from, to time.Time) (float64, error) {
	args := m.Called(ctx, ownerID, from, to)
	return args.Get(0).(float64), args.Error(1)
}

func (m *MockPaymentRepository) CreateTransaction(ctx context.Context, tx *models.Transaction) error {
	return m.Called(ctx, tx).Error(0)
}

func (m *MockPaymentRepository) GetTransactionByReference(ctx context.Context, reference string) (*models.Transaction, error) {
	args := m.Called(ctx, reference)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Transaction), args.Error(1)
}

func (m *MockPaymentRepository) UpdateTransaction(ctx context.Context, tx *models.Transaction) error {
	return m.Called(ctx, tx).Error(0)
}

type MockVerificationRepository struct {
	mock.Mock
}

func (m *MockVerificationRepository) Create(ctx context.Context, v *models.Verification) error {
	return m.Called(ctx, v).Error(0)
}

func (m *MockVerificationRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Verification, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Verification), args.Error(1)
}

func (m *MockVerificationRepository) UpdateReview(ctx context.Context, v *models.Verification) error {
	return m.Called(ctx, v).Error(0)
}

func (m *MockVerificationRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]*models.Verification, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Verification), args.Error(1)
}

func (m *MockVerificationRepository) ListPending(ctx context.Context) ([]*models.Verification, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Verification), args.Error(1)
}

func (m *MockVerificationRepository) HasOpen(ctx context.Context, userID uuid.UUID, verificationType string) (bool, error) {
	args := m.Called(ctx, userID, verificationType)
	return args.Bool(0), args.Error(1)
}

func (m *MockVerificationRepository) CountPending(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

func (m *MockVerificationRepository) CountApprovedTypes(ctx context.Context, userID uuid.UUID) (int, error) {
	args := m.Called(ctx, userID)
	return args.Int(0), args.Error(1)
}

type MockMandateRepository struct {
	mock.Mock
}

func (m *MockMandateRepository) Create(ctx context.Context, mandate *models.Mandate) error {
	return m.Called(ctx, mandate).Error(0)
}

func (m *MockMandateRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Mandate, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Mandate), args.Error(1)
}

func (m *MockMandateRepository) UpdateStatus(ctx context.Context, mandate *models.Mandate) error {
	return m.Called(ctx, mandate).Error(0)
}

func (m *MockMandateRepository) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]*models.Mandate, error) {
	args := m.Called(ctx, ownerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Mandate), args.Error(1)
}

func (m *MockMandateRepository) ListByAgency(ctx context.Context, agencyID uuid.UUID) ([]*models.Mandate, error) {
	args := m.Called(ctx, agencyID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Mandate), args.Error(1)
}

func (m *MockMandateRepository) ListActiveFor(ctx context.Context, agencyID, propertyID uuid.UUID) ([]*models.Mandate, error) {
	args := m.Called(ctx, agencyID, propertyID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Mandate), args.Error(1)
}

func (m *MockMandateRepository) HasOpen(ctx context.Context, agencyID, propertyID uuid.UUID) (bool, error) {
	args := m.Called(ctx, agencyID, propertyID)
	return args.Bool(0), args.Error(1)
}

func (m *MockMandateRepository) ExpireEnded(ctx context.Context, now time.Time) ([]*models.Mandate, error) {
	args := m.Called(ctx, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Mandate), args.Error(1)
}

func (m *MockMandateRepository) CountActiveByAgency(ctx context.Context, agencyID uuid.UUID) (int, int, error) {
	args := m.Called(ctx, agencyID)
	return args.Int(0), args.Int(1), args.Error(2)
}

type MockNotificationRepository struct {
	mock.Mock
}

func (m *MockNotificationRepository) Create(ctx context.Context, n *models.Notification) error {
	return m.Called(ctx, n).Error(0)
}

func (m *MockNotificationRepository) ListByUser(ctx context.Context, userID uuid.UUID, unreadOnly bool, limit, offset int) ([]*models.Notification, error) {
	args := m.Called(ctx, userID, unreadOnly, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Notification), args.Error(1)
}

func (m *MockNotificationRepository) MarkRead(ctx context.Context, id, userID uuid.UUID) error {
	return m.Called(ctx, id, userID).Error(0)
}

func (m *MockNotificationRepository) CountUnread(ctx context.Context, userID uuid.UUID) (int, error) {
	args := m.Called(ctx, userID)
	return args.Int(0), args.Error(1)
}

func (m *MockNotificationRepository) SetDeliveryError(ctx context.Context, id uuid.UUID, message string) error {
	return m.Called(ctx, id, message).Error(0)
}

type MockRateLimitRepository struct {
	mock.Mock
}

func (m *MockRateLimitRepository) Record(ctx context.Context, identifier, action string) error {
	return m.Called(ctx, identifier, action).Error(0)
}

func (m *MockRateLimitRepository) CountSince(ctx context.Context, identifier, action string, since time.Time) (int, error) {
	args := m.Called(ctx, identifier, action, since)
	return args.Int(0), args.Error(1)
}

func (m *MockRateLimitRepository) OldestSince(ctx context.Context, identifier, action string, since time.Time) (*time.Time, error) {
	args := m.Called(ctx, identifier, action, since)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*time.Time), args.Error(1)
}

func (m *MockRateLimitRepository) PurgeBefore(ctx context.Context, before time.Time) (int64, error) {
	args := m.Called(ctx, before)
	return args.Get(0).(int64), args.Error(1)
}

type MockAuditLogsRepository struct {
	mock.Mock
}

func (m *MockAuditLogsRepository) Create(ctx context.Context, auditLog *models.AuditLog) error {
	return m.Called(ctx, auditLog).Error(0)
}

func (m *MockAuditLogsRepository) List(ctx context.Context, filters *models.AuditLogFilters) ([]*models.AuditLog, error) {
	args := m.Called(ctx, filters)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.AuditLog), args.Error(1)
}

// collaborators

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

type MockNotificationService struct {
	mock.Mock
}

func (m *MockNotificationService) Notify(ctx context.Context, userID uuid.UUID, kind, title, body string, channels []models.Channel, data models.JSONB) error {
	return m.Called(ctx, userID, kind, title, body, channels, data).Error(0)
}

func (m *MockNotificationService) List(ctx context.Context, userID uuid.UUID, unreadOnly bool, limit, offset int) ([]*models.Notification, int, error) {
	args := m.Called(ctx, userID, unreadOnly, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Int(1), args.Error(2)
	}
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

type MockRateLimitService struct {
	mock.Mock
}

func (m *MockRateLimitService) Check(ctx context.Context, identifier, action string) RateLimitResult {
	return m.Called(ctx, identifier, action).Get(0).(RateLimitResult)
}

func (m *MockRateLimitService) Record(ctx context.Context, identifier, action string) {
	m.Called(ctx, identifier, action)
}

type MockMandateService struct {
	mock.Mock
}

func (m *MockMandateService) Request(ctx context.Context, agency Actor, req *CreateMandateRequest) (*models.Mandate, error) {
	args := m.Called(ctx, agency, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Mandate), args.Error(1)
}

func (m *MockMandateService) Accept(ctx context.Context, owner Actor, mandateID uuid.UUID) (*models.Mandate, error) {
	args := m.Called(ctx, owner, mandateID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Mandate), args.Error(1)
}

func (m *MockMandateService) Reject(ctx context.Context, owner Actor, mandateID uuid.UUID) (*models.Mandate, error) {
	args := m.Called(ctx, owner, mandateID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Mandate), args.Error(1)
}

func (m *MockMandateService) Revoke(ctx context.Context, actor Actor, mandateID uuid.UUID) (*models.Mandate, error) {
	args := m.Called(ctx, actor, mandateID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Mandate), args.Error(1)
}

func (m *MockMandateService) List(ctx context.Context, actor Actor) ([]*models.Mandate, error) {
	args := m.Called(ctx, actor)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
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

type MockScoringService struct {
	mock.Mock
}

func (m *MockScoringService) ScoreApplicant(ctx context.Context, userID uuid.UUID, monthlyRent float64) (*ScoreResult, error) {
	args := m.Called(ctx, userID, monthlyRent)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ScoreResult), args.Error(1)
}

type MockPaymentService struct {
	mock.Mock
}

func (m *MockPaymentService) GenerateSchedule(ctx context.Context, lease *models.Lease) error {
	return m.Called(ctx, lease).Error(0)
}

func (m *MockPaymentService) ListForLease(ctx context.Context, actor Actor, leaseID uuid.UUID) ([]*models.RentPayment, error) {
	args := m.Called(ctx, actor, leaseID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.RentPayment), args.Error(1)
}

func (m *MockPaymentService) Initiate(ctx context.Context, actor Actor, paymentID uuid.UUID, req *InitiatePaymentRequest) (*InitiatePaymentResponse, error) {
	args := m.Called(ctx, actor, paymentID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*InitiatePaymentResponse), args.Error(1)
}

func (m *MockPaymentService) HandleWebhook(ctx context.Context, body []byte, signature string) error {
	return m.Called(ctx, body, signature).Error(0)
}

func (m *MockPaymentService) MarkOverdue(ctx context.Context, now time.Time) (int, error) {
	args := m.Called(ctx, now)
	return args.Int(0), args.Error(1)
}

type MockLeaseService struct {
	mock.Mock
}

func (m *MockLeaseService) Create(ctx context.Context, actor Actor, req *CreateLeaseRequest) (*models.Lease, error) {
	args := m.Called(ctx, actor, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Lease), args.Error(1)
}

func (m *MockLeaseService) Get(ctx context.Context, actor Actor, leaseID uuid.UUID) (*models.Lease, error) {
	args := m.Called(ctx, actor, leaseID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Lease), args.Error(1)
}

func (m *MockLeaseService) ListMine(ctx context.Context, actor Actor) ([]*models.Lease, error) {
	args := m.Called(ctx, actor)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Lease), args.Error(1)
}

func (m *MockLeaseService) SendForSignature(ctx context.Context, actor Actor, leaseID uuid.UUID) (*models.Lease, error) {
	args := m.Called(ctx, actor, leaseID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Lease), args.Error(1)
}

func (m *MockLeaseService) Sign(ctx context.Context, actor Actor, leaseID uuid.UUID, clientIP string) (*models.Lease, error) {
	args := m.Called(ctx, actor, leaseID, clientIP)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Lease), args.Error(1)
}

func (m *MockLeaseService) Terminate(ctx context.Context, actor Actor, leaseID uuid.UUID, reason string) (*models.Lease, error) {
	args := m.Called(ctx, actor, leaseID, reason)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Lease), args.Error(1)
}

func (m *MockLeaseService) DocumentURL(ctx context.Context, actor Actor, leaseID uuid.UUID) (string, error) {
	args := m.Called(ctx, actor, leaseID)
	return args.String(0), args.Error(1)
}

func (m *MockLeaseService) RequestCertification(ctx context.Context, actor Actor, leaseID uuid.UUID) (*models.Lease, error) {
	args := m.Called(ctx, actor, leaseID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Lease), args.Error(1)
}

func (m *MockLeaseService) ListPendingCertifications(ctx context.Context, admin Actor) ([]*models.Lease, error) {
	args := m.Called(ctx, admin)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Lease), args.Error(1)
}

func (m *MockLeaseService) ReviewCertification(ctx context.Context, admin Actor, leaseID uuid.UUID, approve bool, notes string) (*models.Lease, *models.Lease, error) {
	args := m.Called(ctx, admin, leaseID, approve, notes)
	before, _ := args.Get(0).(*models.Lease)
	after, _ := args.Get(1).(*models.Lease)
	return before, after, args.Error(2)
}

func (m *MockLeaseService) ExpireEnded(ctx context.Context, now time.Time) (int, error) {
	args := m.Called(ctx, now)
	return args.Int(0), args.Error(1)
}

type MockAIService struct {
	mock.Mock
}

func (m *MockAIService) Moderate(ctx context.Context, text string) (*ModerationResult, error) {
	args := m.Called(ctx, text)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ModerationResult), args.Error(1)
}

func (m *MockAIService) GenerateImage(ctx context.Context, userID uuid.UUID, prompt string) (*GeneratedImage, error) {
	args := m.Called(ctx, userID, prompt)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*GeneratedImage), args.Error(1)
}

type MockMobileMoneyClient struct {
	mock.Mock
}

func (m *MockMobileMoneyClient) Collect(ctx context.Context, req *CollectRequest) (*CollectResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*CollectResponse), args.Error(1)
}

type MockAuthorityClient struct {
	mock.Mock
}

func (m *MockAuthorityClient) Check(ctx context.Context, check *AuthorityCheck) (models.JSONB, error) {
	args := m.Called(ctx, check)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(models.JSONB), args.Error(1)
}

type MockBackendAuthClient struct {
	mock.Mock
}

func (m *MockBackendAuthClient) EnrollTOTP(ctx context.Context, userToken, friendlyName string) (*FactorEnrollment, error) {
	args := m.Called(ctx, userToken, friendlyName)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*FactorEnrollment), args.Error(1)
}

func (m *MockBackendAuthClient) Challenge(ctx context.Context, userToken, factorID string) (*FactorChallenge, error) {
	args := m.Called(ctx, userToken, factorID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*FactorChallenge), args.Error(1)
}

func (m *MockBackendAuthClient) Verify(ctx context.Context, userToken, factorID, challengeID, code string) error {
	return m.Called(ctx, userToken, factorID, challengeID, code).Error(0)
}

func (m *MockBackendAuthClient) Unenroll(ctx context.Context, userToken, factorID string) error {
	return m.Called(ctx, userToken, factorID).Error(0)
}

type MockMessenger struct {
	mock.Mock
}

func (m *MockMessenger) SendEmail(ctx context.Context, to, subject, htmlBody string) error {
	return m.Called(ctx, to, subject, htmlBody).Error(0)
}

func (m *MockMessenger) SendSMS(ctx context.Context, to, message string) error {
	return m.Called(ctx, to, message).Error(0)
}

func allowAll() RateLimitResult {
	return RateLimitResult{Allowed: true, Limit: 10, Remaining: 9}
}
