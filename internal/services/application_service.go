package services

import (
	"context"
	"fmt"
	"time"

	"montoit/internal/common"
	"montoit/internal/models"
	"montoit/internal/repositories"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type SubmitApplicationRequest struct {
	Message *string `json:"message"`
}

type ApproveApplicationRequest struct {
	Notes       *string             `json:"notes"`
	CreateLease bool                `json:"create_lease"`
	Lease       *CreateLeaseRequest `json:"lease"`
}

// ApprovalResult is the outcome of an approval. LeaseWarning explains why a
// requested lease was not drafted; the approval itself is already stored.
type ApprovalResult struct {
	Application  *models.RentalApplication `json:"application"`
	Lease        *models.Lease             `json:"lease"`
	LeaseWarning string                    `json:"lease_warning,omitempty"`
}

type ApplicationService interface {
	Submit(ctx context.Context, tenant Actor, propertyID uuid.UUID, req *SubmitApplicationRequest) (*models.RentalApplication, error)
	ListMine(ctx context.Context, tenant Actor) ([]*models.RentalApplication, error)
	ListForProperty(ctx context.Context, actor Actor, propertyID uuid.UUID) ([]*models.RentalApplication, error)
	// Approve optionally opens a draft lease; the lease is nil when not requested or when drafting it failed
	Approve(ctx context.Context, actor Actor, applicationID uuid.UUID, req *ApproveApplicationRequest) (*ApprovalResult, error)
	Reject(ctx context.Context, actor Actor, applicationID uuid.UUID, notes *string) (*models.RentalApplication, error)
	Withdraw(ctx context.Context, tenant Actor, applicationID uuid.UUID) (*models.RentalApplication, error)
	Score(ctx context.Context, actor Actor, applicationID uuid.UUID) (*ScoreResult, error)
}

type applicationService struct {
	repo          repositories.ApplicationRepository
	propertyRepo  repositories.PropertyRepository
	scoring       ScoringService
	leases        LeaseService
	mandates      MandateService
	rateLimit     RateLimitService
	notifications NotificationService
	logger        *zap.Logger
	now           func() time.Time
}

func NewApplicationService(
	repo repositories.ApplicationRepository,
	propertyRepo repositories.PropertyRepository,
	scoring ScoringService,
	leases LeaseService,
	mandates MandateService,
	rateLimit RateLimitService,
	notifications NotificationService,
	logger *zap.Logger,
) ApplicationService {
	return &applicationService{
		repo:          repo,
		propertyRepo:  propertyRepo,
		scoring:       scoring,
		leases:        leases,
		mandates:      mandates,
		rateLimit:     rateLimit,
		notifications: notifications,
		logger:        logger,
		now:           func() time.Time { return time.Now().UTC() },
	}
}

func (s *applicationService) Submit(ctx context.Context, tenant Actor, propertyID uuid.UUID, req *SubmitApplicationRequest) (*models.RentalApplication, error) {
	if tenant.Role != common.RoleTenant {
		return nil, common.ForbiddenError("only tenants can apply for a property")
	}
	if err := common.ValidateOptionalString(req.Message, "message", 2000); err != nil {
		return nil, common.ValidationError(err.Error())
	}

	identifier := "user:" + tenant.ID.String()
	if limit := s.rateLimit.Check(ctx, identifier, ActionApplicationSubmit); !limit.Allowed {
		return nil, common.NewError(common.KindRateLimited, "Daily application limit reached", nil)
	}

	property, err := s.propertyRepo.GetByID(ctx, propertyID)
	if err != nil {
		return nil, err
	}
	if !isPublic(property) {
		return nil, common.ConflictError("property is not open for applications")
	}
	if property.OwnerID == tenant.ID {
		return nil, common.ValidationError("you cannot apply for your own property")
	}

	open, err := s.repo.HasOpen(ctx, tenant.ID, propertyID)
	if err != nil {
		return nil, fmt.Errorf("failed to check open applications: %w", err)
	}
	if open {
		return nil, common.ConflictError("you already have an open application for this property")
	}

	now := s.now()
	app := &models.RentalApplication{
		ID:         uuid.New(),
		PropertyID: propertyID,
		TenantID:   tenant.ID,
		Status:     models.ApplicationPending,
		Message:    req.Message,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	// a scoring failure leaves the snapshot empty; owners can recompute it later
	if score, err := s.scoring.ScoreApplicant(ctx, tenant.ID, property.MonthlyRent); err != nil {
		s.logger.Warn("score snapshot failed", zap.String("tenant_id", tenant.ID.String()), zap.Error(err))
	} else {
		app.Score = &score.Score
		app.Recommendation = &score.Recommendation
	}

	if err := s.repo.Create(ctx, app); err != nil {
		return nil, fmt.Errorf("failed to create application: %w", err)
	}
	s.rateLimit.Record(ctx, identifier, ActionApplicationSubmit)

	s.notify(ctx, property.OwnerID, models.KindApplicationReceived,
		"Nouvelle candidature",
		fmt.Sprintf("Vous avez reçu une candidature pour « %s ».", property.Title), app)
	return app, nil
}

func (s *applicationService) ListMine(ctx context.Context, tenant Actor) ([]*models.RentalApplication, error) {
	return s.repo.ListByTenant(ctx, tenant.ID)
}

func (s *applicationService) ListForProperty(ctx context.Context, actor Actor, propertyID uuid.UUID) ([]*models.RentalApplication, error) {
	property, err := s.propertyRepo.GetByID(ctx, propertyID)
	if err != nil {
		return nil, err
	}
	if err := authorizeProperty(ctx, s.mandates, actor, property, models.PermManageApplications); err != nil {
		return nil, err
	}
	return s.repo.ListByProperty(ctx, propertyID)
}

// loadForReview returns a pending application the actor is allowed to decide on
func (s *applicationService) loadForReview(ctx context.Context, actor Actor, applicationID uuid.UUID) (*models.RentalApplication, *models.Property, error) {
	app, err := s.repo.GetByID(ctx, applicationID)
	if err != nil {
		return nil, nil, err
	}
	property, err := s.propertyRepo.GetByID(ctx, app.PropertyID)
	if err != nil {
		return nil, nil, err
	}
	if err := authorizeProperty(ctx, s.mandates, actor, property, models.PermManageApplications); err != nil {
		return nil, nil, err
	}
	if app.Status != models.ApplicationPending {
		return nil, nil, common.ConflictError("application has already been decided")
	}
	return app, property, nil
}

func (s *applicationService) review(ctx context.Context, actor Actor, app *models.RentalApplication, status string, notes *string) error {
	now := s.now()
	app.Status = status
	app.ReviewedBy = &actor.ID
	app.ReviewNotes = notes
	app.ReviewedAt = &now
	app.UpdatedAt = now
	if err := s.repo.UpdateReview(ctx, app); err != nil {
		return fmt.Errorf("failed to update application: %w", err)
	}
	return nil
}

func (s *applicationService) Approve(ctx context.Context, actor Actor, applicationID uuid.UUID, req *ApproveApplicationRequest) (*ApprovalResult, error) {
	if err := common.ValidateOptionalString(req.Notes, "notes", 1000); err != nil {
		return nil, common.ValidationError(err.Error())
	}
	app, property, err := s.loadForReview(ctx, actor, applicationID)
	if err != nil {
		return nil, err
	}
	if property.Status == models.PropertyStatusRented {
		return nil, common.ConflictError("property is already rented")
	}
	if err := s.review(ctx, actor, app, models.ApplicationApproved, req.Notes); err != nil {
		return nil, err
	}

	s.notify(ctx, app.TenantID, models.KindApplicationApproved,
		"Candidature acceptée",
		fmt.Sprintf("Votre candidature pour « %s » a été acceptée.", property.Title), app)

	result := &ApprovalResult{Application: app}
	if !req.CreateLease {
		return result, nil
	}

	leaseReq := req.Lease
	if leaseReq == nil {
		leaseReq = &CreateLeaseRequest{}
	}
	leaseReq.ApplicationID = app.ID
	lease, err := s.leases.Create(ctx, actor, leaseReq)
	if err != nil {
		s.logger.Warn("draft lease after approval failed", zap.String("application_id", app.ID.String()), zap.Error(err))
		_, message := common.StatusFor(err)
		result.LeaseWarning = "application approved but the lease was not created: " + message
		return result, nil
	}
	result.Lease = lease
	return result, nil
}

func (s *applicationService) Reject(ctx context.Context, actor Actor, applicationID uuid.UUID, notes *string) (*models.RentalApplication, error) {
	if err := common.ValidateOptionalString(notes, "notes", 1000); err != nil {
		return nil, common.ValidationError(err.Error())
	}
	app, property, err := s.loadForReview(ctx, actor, applicationID)
	if err != nil {
		return nil, err
	}
	if err := s.review(ctx, actor, app, models.ApplicationRejected, notes); err != nil {
		return nil, err
	}

	s.notify(ctx, app.TenantID, models.KindApplicationRejected,
		"Candidature refusée",
		fmt.Sprintf("Votre candidature pour « %s » n'a pas été retenue.", property.Title), app)
	return app, nil
}

func (s *applicationService) Withdraw(ctx context.Context, tenant Actor, applicationID uuid.UUID) (*models.RentalApplication, error) {
	app, err := s.repo.GetByID(ctx, applicationID)
	if err != nil {
		return nil, err
	}
	if app.TenantID != tenant.ID {
		return nil, common.ForbiddenError("only the applicant can withdraw this application")
	}
	if app.Status != models.ApplicationPending {
		return nil, common.ConflictError("only pending applications can be withdrawn")
	}

	app.Status = models.ApplicationWithdrawn
	app.UpdatedAt = s.now()
	if err := s.repo.UpdateReview(ctx, app); err != nil {
		return nil, fmt.Errorf("failed to withdraw application: %w", err)
	}
	return app, nil
}

// Score recomputes the applicant's score against the property's current rent
func (s *applicationService) Score(ctx context.Context, actor Actor, applicationID uuid.UUID) (*ScoreResult, error) {
	app, err := s.repo.GetByID(ctx, applicationID)
	if err != nil {
		return nil, err
	}
	property, err := s.propertyRepo.GetByID(ctx, app.PropertyID)
	if err != nil {
		return nil, err
	}
	if app.TenantID != actor.ID {
		if err := authorizeProperty(ctx, s.mandates, actor, property, models.PermManageApplications); err != nil {
			return nil, err
		}
	}
	return s.scoring.ScoreApplicant(ctx, app.TenantID, property.MonthlyRent)
}

func (s *applicationService) notify(ctx context.Context, userID uuid.UUID, kind, title, body string, app *models.RentalApplication) {
	data := models.JSONB{"application_id": app.ID.String(), "property_id": app.PropertyID.String(), "status": app.Status}
	channels := []models.Channel{models.ChannelEmail}
	if err := s.notifications.Notify(ctx, userID, kind, title, body, channels, data); err != nil {
		s.logger.Warn("application notification failed", zap.String("application_id", app.ID.String()), zap.Error(err))
	}
}
