package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"montoit/internal/caching"
	"montoit/internal/common"
	"montoit/internal/models"
	"montoit/internal/repositories"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

const (
	defaultLeaseMonths = 12
	defaultPaymentDay  = 5
	documentURLTTL     = 15 * time.Minute
)

type CreateLeaseRequest struct {
	ApplicationID uuid.UUID `json:"application_id"`
	StartDate     string    `json:"start_date"` // YYYY-MM-DD, defaults to the first day of next month
	EndDate       string    `json:"end_date"`   // YYYY-MM-DD, defaults to twelve months after start
	MonthlyRent   *float64  `json:"monthly_rent"`
	Deposit       *float64  `json:"deposit"`
	PaymentDay    int       `json:"payment_day"`
}

type LeaseService interface {
	Create(ctx context.Context, actor Actor, req *CreateLeaseRequest) (*models.Lease, error)
	Get(ctx context.Context, actor Actor, leaseID uuid.UUID) (*models.Lease, error)
	ListMine(ctx context.Context, actor Actor) ([]*models.Lease, error)
	SendForSignature(ctx context.Context, actor Actor, leaseID uuid.UUID) (*models.Lease, error)
	Sign(ctx context.Context, actor Actor, leaseID uuid.UUID, clientIP string) (*models.Lease, error)
	Terminate(ctx context.Context, actor Actor, leaseID uuid.UUID, reason string) (*models.Lease, error)
	DocumentURL(ctx context.Context, actor Actor, leaseID uuid.UUID) (string, error)

	// ANSUT certification
	RequestCertification(ctx context.Context, actor Actor, leaseID uuid.UUID) (*models.Lease, error)
	ListPendingCertifications(ctx context.Context, admin Actor) ([]*models.Lease, error)
	ReviewCertification(ctx context.Context, admin Actor, leaseID uuid.UUID, approve bool, notes string) (before, after *models.Lease, err error)

	// ExpireEnded closes active leases past their end date and frees their properties
	ExpireEnded(ctx context.Context, now time.Time) (int, error)
}

type leaseService struct {
	repo          repositories.LeaseRepository
	appRepo       repositories.ApplicationRepository
	propertyRepo  repositories.PropertyRepository
	userRepo      repositories.UserRepository
	payments      PaymentService
	cache         caching.CacheService
	storage       MinioService
	mandates      MandateService
	notifications NotificationService
	logger        *zap.Logger
	now           func() time.Time
}

func NewLeaseService(
	repo repositories.LeaseRepository,
	appRepo repositories.ApplicationRepository,
	propertyRepo repositories.PropertyRepository,
	userRepo repositories.UserRepository,
	payments PaymentService,
	cache caching.CacheService,
	storage MinioService,
	mandates MandateService,
	notifications NotificationService,
	logger *zap.Logger,
) LeaseService {
	return &leaseService{
		repo:          repo,
		appRepo:       appRepo,
		propertyRepo:  propertyRepo,
		userRepo:      userRepo,
		payments:      payments,
		cache:         cache,
		storage:       storage,
		mandates:      mandates,
		notifications: notifications,
		logger:        logger,
		now:           func() time.Time { return time.Now().UTC() },
	}
}

func (r *CreateLeaseRequest) dates(now time.Time) (time.Time, time.Time, error) {
	var start, end time.Time
	var err error

	if r.StartDate == "" {
		start = time.Date(now.Year(), now.Month()+1, 1, 0, 0, 0, 0, time.UTC)
	} else if start, err = common.ParseDate(r.StartDate, "start_date"); err != nil {
		return start, end, common.ValidationError(err.Error())
	}

	if r.EndDate == "" {
		end = start.AddDate(0, defaultLeaseMonths, 0)
	} else if end, err = common.ParseDate(r.EndDate, "end_date"); err != nil {
		return start, end, common.ValidationError(err.Error())
	}

	if !end.After(start) {
		return start, end, common.ValidationError("end_date must be after start_date")
	}
	return start, end, nil
}

func (s *leaseService) Create(ctx context.Context, actor Actor, req *CreateLeaseRequest) (*models.Lease, error) {
	start, end, err := req.dates(s.now())
	if err != nil {
		return nil, err
	}
	if req.PaymentDay == 0 {
		req.PaymentDay = defaultPaymentDay
	}
	if req.PaymentDay < 1 || req.PaymentDay > 28 {
		return nil, common.ValidationError("payment_day must be between 1 and 28")
	}

	app, err := s.appRepo.GetByID(ctx, req.ApplicationID)
	if err != nil {
		return nil, err
	}
	if app.Status != models.ApplicationApproved {
		return nil, common.ConflictError("a lease can only be created from an approved application")
	}
	property, err := s.propertyRepo.GetByID(ctx, app.PropertyID)
	if err != nil {
		return nil, err
	}
	if err := authorizeProperty(ctx, s.mandates, actor, property, models.PermManageLeases); err != nil {
		return nil, err
	}
	if property.Status == models.PropertyStatusRented || property.Status == models.PropertyStatusArchived {
		return nil, common.ConflictError("property is no longer available")
	}

	rent := property.MonthlyRent
	if req.MonthlyRent != nil {
		rent = *req.MonthlyRent
	}
	if err := common.ValidateAmount(rent, "monthly_rent", maxMonthlyRent); err != nil {
		return nil, common.ValidationError(err.Error())
	}
	deposit := property.Deposit
	if req.Deposit != nil {
		deposit = *req.Deposit
	}
	if deposit < 0 {
		return nil, common.ValidationError("deposit cannot be negative")
	}

	now := s.now()
	lease := &models.Lease{
		ID:                  uuid.New(),
		PropertyID:          property.ID,
		OwnerID:             property.OwnerID,
		TenantID:            app.TenantID,
		ApplicationID:       &app.ID,
		MonthlyRent:         rent,
		Deposit:             deposit,
		Currency:            common.Currency,
		StartDate:           start,
		EndDate:             end,
		PaymentDay:          req.PaymentDay,
		Status:              models.LeaseDraft,
		CertificationStatus: models.CertificationNotRequested,
		CreatedAt:           now,
		UpdatedAt:           now,
	}
	if err := s.repo.Create(ctx, lease); err != nil {
		return nil, fmt.Errorf("failed to create lease: %w", err)
	}

	s.logger.Info("lease created",
		zap.String("lease_id", lease.ID.String()),
		zap.String("property_id", property.ID.String()))
	return lease, nil
}

// canView reports whether actor may read the lease
func (s *leaseService) canView(ctx context.Context, actor Actor, lease *models.Lease) error {
	if actor.IsAdmin() || lease.IsParty(actor.ID) {
		return nil
	}
	if actor.Role == common.RoleAgency {
		ok, err := s.mandates.HasPermission(ctx, actor.ID, lease.PropertyID, models.PermManageLeases)
		if err != nil {
			return fmt.Errorf("failed to check mandate: %w", err)
		}
		if ok {
			return nil
		}
	}
	return common.NotFoundError("lease")
}

// canManage reports whether actor acts for the landlord side of the lease
func (s *leaseService) canManage(ctx context.Context, actor Actor, lease *models.Lease) error {
	if actor.IsAdmin() || lease.OwnerID == actor.ID {
		return nil
	}
	if actor.Role == common.RoleAgency {
		ok, err := s.mandates.HasPermission(ctx, actor.ID, lease.PropertyID, models.PermManageLeases)
		if err != nil {
			return fmt.Errorf("failed to check mandate: %w", err)
		}
		if ok {
			return nil
		}
	}
	return common.ForbiddenError("you do not manage this lease")
}

func (s *leaseService) Get(ctx context.Context, actor Actor, leaseID uuid.UUID) (*models.Lease, error) {
	lease, err := s.repo.GetByID(ctx, leaseID)
	if err != nil {
		return nil, err
	}
	if err := s.canView(ctx, actor, lease); err != nil {
		return nil, err
	}
	return lease, nil
}

func (s *leaseService) ListMine(ctx context.Context, actor Actor) ([]*models.Lease, error) {
	return s.repo.ListByUser(ctx, actor.ID)
}

func (s *leaseService) SendForSignature(ctx context.Context, actor Actor, leaseID uuid.UUID) (*models.Lease, error) {
	lease, err := s.repo.GetByID(ctx, leaseID)
	if err != nil {
		return nil, err
	}
	if err := s.canManage(ctx, actor, lease); err != nil {
		return nil, err
	}
	if lease.Status != models.LeaseDraft {
		return nil, common.ConflictError("only draft leases can be sent for signature")
	}

	lease.Status = models.LeasePendingSignature
	lease.UpdatedAt = s.now()
	if err := s.repo.Update(ctx, lease); err != nil {
		return nil, fmt.Errorf("failed to update lease: %w", err)
	}

	s.notify(ctx, lease.TenantID, models.KindLeaseToSign,
		"Bail à signer",
		"Votre bail est prêt. Connectez-vous à Mon Toit pour le signer.", lease)
	return lease, nil
}

func (s *leaseService) Sign(ctx context.Context, actor Actor, leaseID uuid.UUID, clientIP string) (*models.Lease, error) {
	lease, err := s.repo.GetByID(ctx, leaseID)
	if err != nil {
		return nil, err
	}
	if !lease.IsParty(actor.ID) {
		return nil, common.ForbiddenError("only the owner or the tenant can sign this lease")
	}
	if lease.Status != models.LeasePendingSignature {
		return nil, common.ConflictError("lease is not awaiting signatures")
	}

	now := s.now()
	role := common.RoleTenant
	if actor.ID == lease.OwnerID {
		role = common.RoleOwner
	}
	switch {
	case role == common.RoleOwner && lease.OwnerSignedAt != nil,
		role == common.RoleTenant && lease.TenantSignedAt != nil:
		return nil, common.ConflictError("you have already signed this lease")
	}

	sig := &models.LeaseSignature{
		ID:            uuid.New(),
		LeaseID:       lease.ID,
		SignerID:      actor.ID,
		SignerRole:    role,
		SignatureHash: signatureHash(lease.ID.String(), actor.ID.String(), leaseContentHash(lease), now),
		IPAddress:     clientIP,
		SignedAt:      now,
	}
	signed, err := s.repo.RecordSignature(ctx, sig)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, common.ConflictError("lease is no longer awaiting your signature")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to record signature: %w", err)
	}

	// only the signature that completes the pair sees the status flip
	activated := signed.Status == models.LeaseActive
	s.logger.Info("lease signed",
		zap.String("lease_id", signed.ID.String()),
		zap.String("signer_role", role),
		zap.Bool("activated", activated))

	if activated {
		s.activate(ctx, signed)
	}
	return signed, nil
}

// activate runs the follow-up steps of a fully signed lease; each failure is logged
func (s *leaseService) activate(ctx context.Context, lease *models.Lease) {
	if err := s.setPropertyStatus(ctx, lease.PropertyID, models.PropertyStatusRented); err != nil {
		s.logger.Error("failed to mark property rented", zap.String("lease_id", lease.ID.String()), zap.Error(err))
	}

	if err := s.storeContract(ctx, lease); err != nil {
		s.logger.Error("failed to store lease contract", zap.String("lease_id", lease.ID.String()), zap.Error(err))
	}

	if err := s.payments.GenerateSchedule(ctx, lease); err != nil {
		s.logger.Error("failed to generate rent schedule", zap.String("lease_id", lease.ID.String()), zap.Error(err))
	}

	for _, userID := range []uuid.UUID{lease.OwnerID, lease.TenantID} {
		s.notify(ctx, userID, models.KindLeaseActivated,
			"Bail activé",
			"Le bail a été signé par les deux parties et est désormais actif.", lease)
	}
}

func (s *leaseService) storeContract(ctx context.Context, lease *models.Lease) error {
	var parties LeaseParties
	var err error
	if parties.Property, err = s.propertyRepo.GetByID(ctx, lease.PropertyID); err != nil {
		return err
	}
	if parties.Owner, err = s.userRepo.GetByID(ctx, lease.OwnerID); err != nil {
		return err
	}
	if parties.Tenant, err = s.userRepo.GetByID(ctx, lease.TenantID); err != nil {
		return err
	}
	signatures, err := s.repo.ListSignatures(ctx, lease.ID)
	if err != nil {
		return err
	}

	document, err := RenderLeaseContract(lease, parties, signatures)
	if err != nil {
		return err
	}

	object := lease.ID.String() + "/contrat-de-bail.pdf"
	if err := s.storage.Upload(ctx, BucketLeaseDocuments, object, bytes.NewReader(document), int64(len(document)), "application/pdf"); err != nil {
		return err
	}

	lease.DocumentObject = &object
	return s.repo.Update(ctx, lease)
}

func (s *leaseService) Terminate(ctx context.Context, actor Actor, leaseID uuid.UUID, reason string) (*models.Lease, error) {
	if err := common.ValidateRequiredString(reason, "reason"); err != nil {
		return nil, common.ValidationError(err.Error())
	}
	lease, err := s.repo.GetByID(ctx, leaseID)
	if err != nil {
		return nil, err
	}
	if err := s.canManage(ctx, actor, lease); err != nil {
		return nil, err
	}
	if lease.Status != models.LeaseActive && lease.Status != models.LeasePendingSignature {
		return nil, common.ConflictError("only active or pending leases can be terminated")
	}

	wasActive := lease.Status == models.LeaseActive
	now := s.now()
	lease.Status = models.LeaseTerminated
	lease.TerminatedAt = &now
	lease.TerminationReason = &reason
	lease.UpdatedAt = now
	if err := s.repo.Update(ctx, lease); err != nil {
		return nil, fmt.Errorf("failed to terminate lease: %w", err)
	}

	if wasActive {
		if err := s.setPropertyStatus(ctx, lease.PropertyID, models.PropertyStatusAvailable); err != nil {
			s.logger.Error("failed to release property", zap.String("lease_id", lease.ID.String()), zap.Error(err))
		}
	}

	s.notify(ctx, lease.TenantID, models.KindLeaseTerminated,
		"Bail résilié",
		"Votre bail a été résilié. Motif : "+reason, lease)
	return lease, nil
}

func (s *leaseService) DocumentURL(ctx context.Context, actor Actor, leaseID uuid.UUID) (string, error) {
	lease, err := s.Get(ctx, actor, leaseID)
	if err != nil {
		return "", err
	}
	if lease.DocumentObject == nil {
		return "", common.NotFoundError("lease document")
	}
	return s.storage.PresignedURL(ctx, BucketLeaseDocuments, *lease.DocumentObject, documentURLTTL)
}

func (s *leaseService) RequestCertification(ctx context.Context, actor Actor, leaseID uuid.UUID) (*models.Lease, error) {
	lease, err := s.repo.GetByID(ctx, leaseID)
	if err != nil {
		return nil, err
	}
	if !lease.IsParty(actor.ID) {
		return nil, common.ForbiddenError("only the owner or the tenant can request certification")
	}
	if lease.Status != models.LeaseActive {
		return nil, common.ConflictError("only active leases can be certified")
	}
	if lease.CertificationStatus != models.CertificationNotRequested {
		return nil, common.ConflictError("certification has already been requested")
	}

	now := s.now()
	lease.CertificationStatus = models.CertificationPending
	lease.CertificationRequestedAt = &now
	lease.UpdatedAt = now
	if err := s.repo.Update(ctx, lease); err != nil {
		return nil, fmt.Errorf("failed to request certification: %w", err)
	}
	return lease, nil
}

func (s *leaseService) ListPendingCertifications(ctx context.Context, admin Actor) ([]*models.Lease, error) {
	if !admin.IsAdmin() {
		return nil, common.ForbiddenError("only admins can review certifications")
	}
	return s.repo.ListPendingCertification(ctx)
}

func (s *leaseService) ReviewCertification(ctx context.Context, admin Actor, leaseID uuid.UUID, approve bool, notes string) (*models.Lease, *models.Lease, error) {
	if !admin.IsAdmin() {
		return nil, nil, common.ForbiddenError("only admins can review certifications")
	}
	if !approve && notes == "" {
		return nil, nil, common.ValidationError("notes are required when rejecting a certification")
	}
	lease, err := s.repo.GetByID(ctx, leaseID)
	if err != nil {
		return nil, nil, err
	}
	if lease.CertificationStatus != models.CertificationPending {
		return nil, nil, common.ConflictError("certification is not pending")
	}

	before := *lease
	now := s.now()
	title := "Certification refusée"
	body := "La certification ANSUT de votre bail a été refusée."
	if approve {
		lease.CertificationStatus = models.CertificationCertified
		lease.CertifiedAt = &now
		title = "Bail certifié"
		body = "Votre bail a été certifié par l'ANSUT."
	} else {
		lease.CertificationStatus = models.CertificationRejected
	}
	lease.CertificationNotes = common.StringPtr(notes)
	lease.UpdatedAt = now
	if err := s.repo.Update(ctx, lease); err != nil {
		return nil, nil, fmt.Errorf("failed to review certification: %w", err)
	}

	for _, userID := range []uuid.UUID{lease.OwnerID, lease.TenantID} {
		s.notify(ctx, userID, models.KindLeaseCertified, title, body, lease)
	}
	return &before, lease, nil
}

func (s *leaseService) ExpireEnded(ctx context.Context, now time.Time) (int, error) {
	expired, err := s.repo.ExpireEnded(ctx, now)
	if err != nil {
		return 0, fmt.Errorf("failed to expire leases: %w", err)
	}
	for _, lease := range expired {
		if err := s.setPropertyStatus(ctx, lease.PropertyID, models.PropertyStatusAvailable); err != nil {
			s.logger.Error("failed to release property", zap.String("lease_id", lease.ID.String()), zap.Error(err))
		}
	}
	return len(expired), nil
}

// setPropertyStatus follows the lease onto its listing and drops the stale cache entries
func (s *leaseService) setPropertyStatus(ctx context.Context, propertyID uuid.UUID, status string) error {
	if err := s.propertyRepo.UpdateStatus(ctx, propertyID, status); err != nil {
		return err
	}
	invalidateProperty(ctx, s.cache, s.logger, propertyID)
	return nil
}

func (s *leaseService) notify(ctx context.Context, userID uuid.UUID, kind, title, body string, lease *models.Lease) {
	data := models.JSONB{"lease_id": lease.ID.String(), "status": lease.Status}
	channels := []models.Channel{models.ChannelEmail}
	if err := s.notifications.Notify(ctx, userID, kind, title, body, channels, data); err != nil {
		s.logger.Warn("lease notification failed", zap.String("lease_id", lease.ID.String()), zap.Error(err))
	}
}
