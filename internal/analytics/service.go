package analytics

import (
	"context"
	"fmt"
	"time"

	"montoit/internal/caching"
	"montoit/internal/common"
	"montoit/internal/repositories"
	"montoit/internal/services"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const dashboardTTL = 5 * time.Minute

// DashboardService computes the per-role home screen aggregates
type DashboardService struct {
	userRepo         repositories.UserRepository
	propertyRepo     repositories.PropertyRepository
	applicationRepo  repositories.ApplicationRepository
	leaseRepo        repositories.LeaseRepository
	paymentRepo      repositories.PaymentRepository
	verificationRepo repositories.VerificationRepository
	mandateRepo      repositories.MandateRepository
	scoring          services.ScoringService
	mfa              services.MFAService
	cacheService     caching.CacheService
	logger           *zap.Logger
	now              func() time.Time
}

func NewDashboardService(
	userRepo repositories.UserRepository,
	propertyRepo repositories.PropertyRepository,
	applicationRepo repositories.ApplicationRepository,
	leaseRepo repositories.LeaseRepository,
	paymentRepo repositories.PaymentRepository,
	verificationRepo repositories.VerificationRepository,
	mandateRepo repositories.MandateRepository,
	scoring services.ScoringService,
	mfa services.MFAService,
	cacheService caching.CacheService,
	logger *zap.Logger,
) *DashboardService {
	return &DashboardService{
		userRepo:         userRepo,
		propertyRepo:     propertyRepo,
		applicationRepo:  applicationRepo,
		leaseRepo:        leaseRepo,
		paymentRepo:      paymentRepo,
		verificationRepo: verificationRepo,
		mandateRepo:      mandateRepo,
		scoring:          scoring,
		mfa:              mfa,
		cacheService:     cacheService,
		logger:           logger,
		now:              func() time.Time { return time.Now().UTC() },
	}
}

// Dashboard returns the cached aggregates for the caller, computing them on a miss
func (d *DashboardService) Dashboard(ctx context.Context, userID uuid.UUID, role string) (map[string]interface{}, error) {
	cached, err := d.cacheService.GetDashboard(ctx, userID)
	if err != nil {
		d.logger.Warn("dashboard cache read failed", zap.String("user_id", userID.String()), zap.Error(err))
	}
	if cached != nil {
		return cached, nil
	}

	var data map[string]interface{}
	switch role {
	case common.RoleTenant:
		data, err = d.tenantDashboard(ctx, userID)
	case common.RoleOwner:
		data, err = d.ownerDashboard(ctx, userID)
	case common.RoleAgency:
		data, err = d.agencyDashboard(ctx, userID)
	case common.RoleTrustThirdParty:
		data, err = d.trustThirdPartyDashboard(ctx)
	case common.RoleAdmin:
		data, err = d.adminDashboard(ctx)
	default:
		return nil, common.ForbiddenError("no dashboard for this role")
	}
	if err != nil {
		return nil, err
	}

	data["role"] = role
	data["generated_at"] = d.now().Format(time.RFC3339)
	if err := d.cacheService.SetDashboard(ctx, userID, data, dashboardTTL); err != nil {
		d.logger.Warn("dashboard cache write failed", zap.String("user_id", userID.String()), zap.Error(err))
	}
	return data, nil
}

// Invalidate drops a cached dashboard after a change that affects it
func (d *DashboardService) Invalidate(ctx context.Context, userID uuid.UUID) {
	if err := d.cacheService.DeleteDashboard(ctx, userID); err != nil {
		d.logger.Warn("dashboard cache invalidation failed", zap.String("user_id", userID.String()), zap.Error(err))
	}
}

func (d *DashboardService) tenantDashboard(ctx context.Context, userID uuid.UUID) (map[string]interface{}, error) {
	openApplications, err := d.applicationRepo.CountOpenByTenant(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to count applications: %w", err)
	}
	activeLeases, err := d.leaseRepo.CountActiveByTenant(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to count leases: %w", err)
	}

	data := map[string]interface{}{
		"open_applications": openApplications,
		"active_leases":     activeLeases,
		"next_payment":      nil,
	}

	next, err := d.paymentRepo.NextDue(ctx, userID)
	if err != nil && common.Classify(err) != common.KindNotFound {
		return nil, fmt.Errorf("failed to load next payment: %w", err)
	}
	if next != nil {
		data["next_payment"] = map[string]interface{}{
			"id":       next.ID,
			"amount":   next.Amount,
			"currency": next.Currency,
			"due_date": next.DueDate.Format(time.DateOnly),
			"status":   next.Status,
		}
	}

	// without a rent to compare against, the income factor scores zero
	score, err := d.scoring.ScoreApplicant(ctx, userID, 0)
	if err != nil {
		d.logger.Warn("dashboard score failed", zap.String("user_id", userID.String()), zap.Error(err))
	} else {
		data["score"] = score.Score
		data["recommendation"] = score.Recommendation
	}
	return data, nil
}

func (d *DashboardService) ownerDashboard(ctx context.Context, userID uuid.UUID) (map[string]interface{}, error) {
	byStatus, err := d.propertyRepo.CountByOwnerStatus(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to count properties: %w", err)
	}
	pending, err := d.applicationRepo.CountPendingForOwner(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to count applications: %w", err)
	}

	now := d.now()
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	revenue, err := d.paymentRepo.SumPaidForOwner(ctx, userID, monthStart, monthStart.AddDate(0, 1, 0))
	if err != nil {
		return nil, fmt.Errorf("failed to sum revenue: %w", err)
	}

	return map[string]interface{}{
		"properties_by_status": byStatus,
		"occupancy_rate":       OccupancyRate(byStatus),
		"revenue_this_month":   revenue,
		"currency":             common.Currency,
		"pending_applications": pending,
	}, nil
}

// OccupancyRate is rented over rentable (available + rented) properties, as a percentage
func OccupancyRate(byStatus map[string]int) float64 {
	rented := byStatus["rented"]
	rentable := rented + byStatus["available"]
	if rentable == 0 {
		return 0
	}
	return float64(rented*10000/rentable) / 100
}

func (d *DashboardService) agencyDashboard(ctx context.Context, userID uuid.UUID) (map[string]interface{}, error) {
	mandates, properties, err := d.mandateRepo.CountActiveByAgency(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to count mandates: %w", err)
	}
	return map[string]interface{}{
		"active_mandates":    mandates,
		"managed_properties": properties,
	}, nil
}

func (d *DashboardService) trustThirdPartyDashboard(ctx context.Context) (map[string]interface{}, error) {
	pending, err := d.verificationRepo.CountPending(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count verifications: %w", err)
	}
	return map[string]interface{}{
		"pending_verifications": pending,
	}, nil
}

func (d *DashboardService) adminDashboard(ctx context.Context) (map[string]interface{}, error) {
	usersByRole, err := d.userRepo.CountByRole(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count users: %w", err)
	}
	pendingVerifications, err := d.verificationRepo.CountPending(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count verifications: %w", err)
	}
	pendingCertifications, err := d.leaseRepo.CountPendingCertification(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count certifications: %w", err)
	}
	nonCompliant, err := d.mfa.Audit(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to audit MFA: %w", err)
	}

	return map[string]interface{}{
		"users_by_role":          usersByRole,
		"pending_verifications":  pendingVerifications,
		"pending_certifications": pendingCertifications,
		"mfa_non_compliant":      len(nonCompliant),
	}, nil
}
