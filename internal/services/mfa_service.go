package services

import (
	"context"
	"fmt"
	"math"
	"time"

	"montoit/internal/common"
	"montoit/internal/models"
	"montoit/internal/repositories"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// MFA compliance status values
const (
	MFACompliant   = "compliant"
	MFAGracePeriod = "grace_period"
	MFAExpired     = "expired"
)

// MFARequiredRoles lists the roles that must enable MFA
var MFARequiredRoles = map[string]bool{
	common.RoleAdmin:           true,
	common.RoleAgency:          true,
	common.RoleTrustThirdParty: true,
}

type MFACompliance struct {
	Required      bool       `json:"required"`
	Enabled       bool       `json:"enabled"`
	Status        string     `json:"status"`
	DaysRemaining int        `json:"days_remaining"`
	Deadline      *time.Time `json:"deadline,omitempty"`
}

// ComputeMFACompliance evaluates user against a grace period counted from mfa_required_since
func ComputeMFACompliance(user *models.User, graceDays int, now time.Time) MFACompliance {
	required := MFARequiredRoles[user.Role]
	result := MFACompliance{Required: required, Enabled: user.MFAEnabled, Status: MFACompliant}
	if !required || user.MFAEnabled {
		return result
	}

	since := user.CreatedAt
	if user.MFARequiredSince != nil {
		since = *user.MFARequiredSince
	}
	deadline := since.Add(time.Duration(graceDays) * 24 * time.Hour)
	result.Deadline = &deadline

	remaining := deadline.Sub(now)
	if remaining <= 0 {
		result.Status = MFAExpired
		return result
	}

	result.DaysRemaining = int(math.Ceil(remaining.Hours() / 24))
	result.Status = MFAGracePeriod
	return result
}

type MFAService interface {
	Status(ctx context.Context, userID uuid.UUID) (*MFACompliance, error)
	Enroll(ctx context.Context, userID uuid.UUID, userToken string) (*FactorEnrollment, error)
	Challenge(ctx context.Context, userToken, factorID string) (*FactorChallenge, error)
	Verify(ctx context.Context, userID uuid.UUID, userToken, factorID, challengeID, code string) error
	Unenroll(ctx context.Context, userID uuid.UUID, userToken, factorID string) error
	// Audit lists privileged users with their compliance, skipping compliant ones
	Audit(ctx context.Context) ([]MFAAuditEntry, error)
}

type MFAAuditEntry struct {
	User       *models.User  `json:"user"`
	Compliance MFACompliance `json:"compliance"`
}

type mfaService struct {
	userRepo  repositories.UserRepository
	backend   BackendAuthClient
	graceDays int
	logger    *zap.Logger
	now       func() time.Time
}

func NewMFAService(userRepo repositories.UserRepository, backend BackendAuthClient, graceDays int, logger *zap.Logger) MFAService {
	return &mfaService{
		userRepo:  userRepo,
		backend:   backend,
		graceDays: graceDays,
		logger:    logger,
		now:       time.Now,
	}
}

func (s *mfaService) Status(ctx context.Context, userID uuid.UUID) (*MFACompliance, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	compliance := ComputeMFACompliance(user, s.graceDays, s.now())
	return &compliance, nil
}

func (s *mfaService) Enroll(ctx context.Context, userID uuid.UUID, userToken string) (*FactorEnrollment, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	enrollment, err := s.backend.EnrollTOTP(ctx, userToken, fmt.Sprintf("Mon Toit (%s)", user.Email))
	if err != nil {
		return nil, common.NewError(common.KindNetwork, "MFA enrollment failed", err)
	}
	return enrollment, nil
}

func (s *mfaService) Challenge(ctx context.Context, userToken, factorID string) (*FactorChallenge, error) {
	if factorID == "" {
		return nil, common.ValidationError("factor_id is required")
	}
	challenge, err := s.backend.Challenge(ctx, userToken, factorID)
	if err != nil {
		return nil, common.NewError(common.KindNetwork, "MFA challenge failed", err)
	}
	return challenge, nil
}

// Verify checks code with the backend and marks MFA enabled on success
func (s *mfaService) Verify(ctx context.Context, userID uuid.UUID, userToken, factorID, challengeID, code string) error {
	if factorID == "" || challengeID == "" || len(code) != 6 {
		return common.ValidationError("factor_id, challenge_id and a 6-digit code are required")
	}
	if err := s.backend.Verify(ctx, userToken, factorID, challengeID, code); err != nil {
		return &common.AppError{Kind: common.KindUnauthorized, Message: "Invalid MFA code", Err: err}
	}
	if err := s.userRepo.SetMFAEnabled(ctx, userID, true); err != nil {
		return fmt.Errorf("failed to mark MFA enabled: %w", err)
	}
	s.logger.Info("MFA enabled", zap.String("user_id", userID.String()))
	return nil
}

func (s *mfaService) Unenroll(ctx context.Context, userID uuid.UUID, userToken, factorID string) error {
	if err := s.backend.Unenroll(ctx, userToken, factorID); err != nil {
		return common.NewError(common.KindNetwork, "MFA unenroll failed", err)
	}
	return s.userRepo.SetMFAEnabled(ctx, userID, false)
}

func (s *mfaService) Audit(ctx context.Context) ([]MFAAuditEntry, error) {
	roles := make([]string, 0, len(MFARequiredRoles))
	for role := range MFARequiredRoles {
		roles = append(roles, role)
	}

	now := s.now()
	var entries []MFAAuditEntry
	const batch = 200
	for offset := 0; ; offset += batch {
		users, err := s.userRepo.ListByRoles(ctx, roles, batch, offset)
		if err != nil {
			return nil, err
		}
		for _, u := range users {
			c := ComputeMFACompliance(u, s.graceDays, now)
			if c.Status != MFACompliant {
				entries = append(entries, MFAAuditEntry{User: u, Compliance: c})
			}
		}
		if len(users) < batch {
			break
		}
	}
	return entries, nil
}
