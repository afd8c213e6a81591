package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"montoit/internal/common"
	"montoit/internal/models"
	"montoit/internal/repositories"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

// Actor is the authenticated caller of a service operation
type Actor struct {
	ID   uuid.UUID
	Role string
}

func (a Actor) IsAdmin() bool {
	return a.Role == common.RoleAdmin
}

type CreateMandateRequest struct {
	PropertyID     uuid.UUID  `json:"property_id"`
	Permissions    []string   `json:"permissions"`
	CommissionRate *float64   `json:"commission_rate"`
	EndDate        *time.Time `json:"end_date"`
}

type MandateService interface {
	Request(ctx context.Context, agency Actor, req *CreateMandateRequest) (*models.Mandate, error)
	Accept(ctx context.Context, owner Actor, mandateID uuid.UUID) (*models.Mandate, error)
	Reject(ctx context.Context, owner Actor, mandateID uuid.UUID) (*models.Mandate, error)
	Revoke(ctx context.Context, actor Actor, mandateID uuid.UUID) (*models.Mandate, error)
	List(ctx context.Context, actor Actor) ([]*models.Mandate, error)
	HasPermission(ctx context.Context, agencyID, propertyID uuid.UUID, perm string) (bool, error)
	ExpireEnded(ctx context.Context, now time.Time) (int, error)
}

type mandateService struct {
	repo          repositories.MandateRepository
	propertyRepo  repositories.PropertyRepository
	notifications NotificationService
	logger        *zap.Logger
	now           func() time.Time
}

func NewMandateService(repo repositories.MandateRepository, propertyRepo repositories.PropertyRepository, notifications NotificationService, logger *zap.Logger) MandateService {
	return &mandateService{
		repo:          repo,
		propertyRepo:  propertyRepo,
		notifications: notifications,
		logger:        logger,
		now:           time.Now,
	}
}

func (s *mandateService) Request(ctx context.Context, agency Actor, req *CreateMandateRequest) (*models.Mandate, error) {
	if agency.Role != common.RoleAgency {
		return nil, common.ForbiddenError("only agencies can request mandates")
	}
	if len(req.Permissions) == 0 {
		return nil, common.ValidationError("at least one permission is required")
	}
	seen := make(map[string]bool)
	for _, p := range req.Permissions {
		if !models.ValidMandatePermissions[p] {
			return nil, common.ValidationError(fmt.Sprintf("unknown permission %q", p))
		}
		if seen[p] {
			return nil, common.ValidationError(fmt.Sprintf("duplicate permission %q", p))
		}
		seen[p] = true
	}
	if req.CommissionRate != nil && (*req.CommissionRate < 0 || *req.CommissionRate > 100) {
		return nil, common.ValidationError("commission_rate must be between 0 and 100")
	}
	now := s.now()
	if req.EndDate != nil && !req.EndDate.After(now) {
		return nil, common.ValidationError("end_date must be in the future")
	}

	property, err := s.propertyRepo.GetByID(ctx, req.PropertyID)
	if err != nil {
		return nil, err
	}

	open, err := s.repo.HasOpen(ctx, agency.ID, property.ID)
	if err != nil {
		return nil, err
	}
	if open {
		return nil, common.ConflictError("a pending or active mandate already exists for this property")
	}

	mandate := &models.Mandate{
		ID:             uuid.New(),
		PropertyID:     property.ID,
		OwnerID:        property.OwnerID,
		AgencyID:       agency.ID,
		Permissions:    req.Permissions,
		Status:         models.MandatePending,
		CommissionRate: req.CommissionRate,
		StartDate:      now,
		EndDate:        req.EndDate,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.repo.Create(ctx, mandate); err != nil {
		return nil, fmt.Errorf("failed to create mandate: %w", err)
	}

	s.notify(ctx, property.OwnerID, "Nouvelle demande de mandat",
		fmt.Sprintf("Une agence demande un mandat de gestion pour « %s ».", property.Title), mandate)
	return mandate, nil
}

func (s *mandateService) decide(ctx context.Context, owner Actor, mandateID uuid.UUID, status string) (*models.Mandate, error) {
	mandate, err := s.repo.GetByID(ctx, mandateID)
	if err != nil {
		return nil, err
	}
	if mandate.OwnerID != owner.ID {
		return nil, common.ForbiddenError("only the property owner can answer this mandate")
	}
	if mandate.Status != models.MandatePending {
		return nil, common.ConflictError("mandate is no longer pending")
	}

	mandate.Status = status
	if status == models.MandateActive {
		mandate.StartDate = s.now()
	}
	if err := s.repo.UpdateStatus(ctx, mandate); err != nil {
		return nil, fmt.Errorf("failed to update mandate: %w", err)
	}

	verb := "accepté"
	if status == models.MandateRejected {
		verb = "refusé"
	}
	s.notify(ctx, mandate.AgencyID, "Mandat "+verb, fmt.Sprintf("Le propriétaire a %s votre demande de mandat.", verb), mandate)
	return mandate, nil
}

func (s *mandateService) Accept(ctx context.Context, owner Actor, mandateID uuid.UUID) (*models.Mandate, error) {
	return s.decide(ctx, owner, mandateID, models.MandateActive)
}

func (s *mandateService) Reject(ctx context.Context, owner Actor, mandateID uuid.UUID) (*models.Mandate, error) {
	return s.decide(ctx, owner, mandateID, models.MandateRejected)
}

// Revoke ends a pending or active mandate; either party may revoke
func (s *mandateService) Revoke(ctx context.Context, actor Actor, mandateID uuid.UUID) (*models.Mandate, error) {
	mandate, err := s.repo.GetByID(ctx, mandateID)
	if err != nil {
		return nil, err
	}
	if mandate.OwnerID != actor.ID && mandate.AgencyID != actor.ID && !actor.IsAdmin() {
		return nil, common.ForbiddenError("not a party to this mandate")
	}
	if mandate.Status != models.MandatePending && mandate.Status != models.MandateActive {
		return nil, common.ConflictError("mandate cannot be revoked in its current state")
	}

	now := s.now()
	mandate.Status = models.MandateRevoked
	mandate.RevokedAt = &now
	if err := s.repo.UpdateStatus(ctx, mandate); err != nil {
		return nil, fmt.Errorf("failed to revoke mandate: %w", err)
	}

	other := mandate.AgencyID
	if actor.ID == mandate.AgencyID {
		other = mandate.OwnerID
	}
	s.notify(ctx, other, "Mandat révoqué", "Un mandat de gestion a été révoqué.", mandate)
	return mandate, nil
}

func (s *mandateService) List(ctx context.Context, actor Actor) ([]*models.Mandate, error) {
	switch actor.Role {
	case common.RoleAgency:
		return s.repo.ListByAgency(ctx, actor.ID)
	case common.RoleOwner:
		return s.repo.ListByOwner(ctx, actor.ID)
	}
	return nil, common.ForbiddenError("mandates are only available to owners and agencies")
}

// HasPermission is true iff an active, unexpired mandate grants perm to the agency on the property
func (s *mandateService) HasPermission(ctx context.Context, agencyID, propertyID uuid.UUID, perm string) (bool, error) {
	mandates, err := s.repo.ListActiveFor(ctx, agencyID, propertyID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, err
	}
	now := s.now()
	for _, m := range mandates {
		if m.Grants(perm, now) {
			return true, nil
		}
	}
	return false, nil
}

func (s *mandateService) ExpireEnded(ctx context.Context, now time.Time) (int, error) {
	expired, err := s.repo.ExpireEnded(ctx, now)
	if err != nil {
		return 0, err
	}
	for _, m := range expired {
		s.notify(ctx, m.OwnerID, "Mandat expiré", "Un mandat de gestion est arrivé à échéance.", m)
		s.notify(ctx, m.AgencyID, "Mandat expiré", "Un mandat de gestion est arrivé à échéance.", m)
	}
	return len(expired), nil
}

func (s *mandateService) notify(ctx context.Context, userID uuid.UUID, title, body string, m *models.Mandate) {
	data := models.JSONB{"mandate_id": m.ID.String(), "property_id": m.PropertyID.String(), "status": m.Status}
	if err := s.notifications.Notify(ctx, userID, models.KindMandateUpdate, title, body, nil, data); err != nil {
		s.logger.Warn("mandate notification failed", zap.String("mandate_id", m.ID.String()), zap.Error(err))
	}
}

// authorizeProperty allows the owner, an admin, or an agency holding perm on the property
func authorizeProperty(ctx context.Context, mandates MandateService, actor Actor, property *models.Property, perm string) error {
	if actor.IsAdmin() || property.OwnerID == actor.ID {
		return nil
	}
	if actor.Role == common.RoleAgency {
		ok, err := mandates.HasPermission(ctx, actor.ID, property.ID, perm)
		if err != nil {
			return fmt.Errorf("failed to check mandate: %w", err)
		}
		if ok {
			return nil
		}
	}
	return common.ForbiddenError("you do not manage this property")
}
