package services

import (
	"context"
	"fmt"
	"io"
	"path"
	"regexp"
	"strings"
	"time"

	"montoit/internal/common"
	"montoit/internal/models"
	"montoit/internal/repositories"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const maxDocumentSize = 10 << 20

var (
	cniPattern      = regexp.MustCompile(`^CI\d{9,10}$`)
	cnamPattern     = regexp.MustCompile(`^\d{10,13}$`)
	passportPattern = regexp.MustCompile(`^[A-Z0-9]{8,9}$`)
)

var allowedDocumentTypes = map[string]string{
	"image/jpeg":      ".jpg",
	"image/png":       ".png",
	"application/pdf": ".pdf",
}

type VerificationRequest struct {
	Type           string  `json:"-"`
	DocumentNumber string  `json:"document_number"`
	FirstName      string  `json:"first_name"`
	LastName       string  `json:"last_name"`
	BirthDate      string  `json:"birth_date"` // YYYY-MM-DD
	Employer       *string `json:"employer"`
}

// UploadedDocument is an optional scan attached to a verification request
type UploadedDocument struct {
	Reader      io.Reader
	Size        int64
	ContentType string
}

type VerificationService interface {
	Submit(ctx context.Context, actor Actor, req *VerificationRequest, doc *UploadedDocument) (*models.Verification, error)
	ListMine(ctx context.Context, actor Actor) ([]*models.Verification, error)
	ListPending(ctx context.Context, reviewer Actor) ([]*models.Verification, error)
	Review(ctx context.Context, reviewer Actor, verificationID uuid.UUID, approve bool, notes string) (before, after *models.Verification, err error)
	DocumentURL(ctx context.Context, reviewer Actor, verificationID uuid.UUID) (string, error)
}

type verificationService struct {
	repo          repositories.VerificationRepository
	userRepo      repositories.UserRepository
	authority     AuthorityClient
	storage       MinioService
	rateLimit     RateLimitService
	notifications NotificationService
	logger        *zap.Logger
	now           func() time.Time
}

func NewVerificationService(
	repo repositories.VerificationRepository,
	userRepo repositories.UserRepository,
	authority AuthorityClient,
	storage MinioService,
	rateLimit RateLimitService,
	notifications NotificationService,
	logger *zap.Logger,
) VerificationService {
	return &verificationService{
		repo:          repo,
		userRepo:      userRepo,
		authority:     authority,
		storage:       storage,
		rateLimit:     rateLimit,
		notifications: notifications,
		logger:        logger,
		now:           func() time.Time { return time.Now().UTC() },
	}
}

// validate normalises the request and returns the parsed birth date
func (r *VerificationRequest) validate(now time.Time) (time.Time, error) {
	r.DocumentNumber = strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(r.DocumentNumber), " ", ""))
	r.FirstName = strings.TrimSpace(r.FirstName)
	r.LastName = strings.TrimSpace(r.LastName)

	switch r.Type {
	case models.VerificationONECI:
		if !cniPattern.MatchString(r.DocumentNumber) {
			return time.Time{}, common.ValidationError("CNI number must look like CI followed by 9 or 10 digits")
		}
	case models.VerificationCNAM:
		if !cnamPattern.MatchString(r.DocumentNumber) {
			return time.Time{}, common.ValidationError("CNAM number must contain 10 to 13 digits")
		}
	case models.VerificationPassport:
		if !passportPattern.MatchString(r.DocumentNumber) {
			return time.Time{}, common.ValidationError("passport number must contain 8 or 9 letters or digits")
		}
	default:
		return time.Time{}, common.ValidationError("unknown verification type")
	}

	if r.FirstName == "" || r.LastName == "" {
		return time.Time{}, common.ValidationError("first_name and last_name are required")
	}
	if len(r.FirstName) > 100 || len(r.LastName) > 100 {
		return time.Time{}, common.ValidationError("names cannot exceed 100 characters")
	}
	if err := common.ValidateOptionalString(r.Employer, "employer", 200); err != nil {
		return time.Time{}, common.ValidationError(err.Error())
	}

	birthDate, err := common.ParseDate(r.BirthDate, "birth_date")
	if err != nil {
		return time.Time{}, common.ValidationError(err.Error())
	}
	if birthDate.AddDate(18, 0, 0).After(now) {
		return time.Time{}, common.ValidationError("you must be at least 18 years old")
	}
	return birthDate, nil
}

func (s *verificationService) Submit(ctx context.Context, actor Actor, req *VerificationRequest, doc *UploadedDocument) (*models.Verification, error) {
	birthDate, err := req.validate(s.now())
	if err != nil {
		return nil, err
	}
	var ext string
	if doc != nil {
		var ok bool
		if ext, ok = allowedDocumentTypes[doc.ContentType]; !ok {
			return nil, common.ValidationError("document must be JPEG, PNG or PDF")
		}
		if doc.Size <= 0 || doc.Size > maxDocumentSize {
			return nil, common.ValidationError("document must be smaller than 10 MB")
		}
	}

	identifier := "user:" + actor.ID.String()
	if limit := s.rateLimit.Check(ctx, identifier, ActionVerificationRequest); !limit.Allowed {
		return nil, common.NewError(common.KindRateLimited, "Daily verification limit reached", nil)
	}

	open, err := s.repo.HasOpen(ctx, actor.ID, req.Type)
	if err != nil {
		return nil, fmt.Errorf("failed to check open verifications: %w", err)
	}
	if open {
		return nil, common.ConflictError("a verification of this type is already awaiting review")
	}
	s.rateLimit.Record(ctx, identifier, ActionVerificationRequest)

	check, err := s.authority.Check(ctx, &AuthorityCheck{
		Type:           req.Type,
		DocumentNumber: req.DocumentNumber,
		FirstName:      req.FirstName,
		LastName:       req.LastName,
		BirthDate:      birthDate,
	})
	if err != nil {
		return nil, common.NewError(common.KindNetwork, "The verification authority is unavailable, please try again", err)
	}

	now := s.now()
	v := &models.Verification{
		ID:               uuid.New(),
		UserID:           actor.ID,
		Type:             req.Type,
		Status:           models.VerificationPendingReview,
		DocumentNumber:   req.DocumentNumber,
		FirstName:        req.FirstName,
		LastName:         req.LastName,
		BirthDate:        &birthDate,
		Employer:         req.Employer,
		ProviderResponse: check,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	if doc != nil {
		object := path.Join(actor.ID.String(), req.Type, v.ID.String()+ext)
		if err := s.storage.Upload(ctx, BucketVerificationDocuments, object, doc.Reader, doc.Size, doc.ContentType); err != nil {
			return nil, fmt.Errorf("failed to upload document: %w", err)
		}
		v.DocumentObject = &object
	}

	if err := s.repo.Create(ctx, v); err != nil {
		return nil, fmt.Errorf("failed to create verification: %w", err)
	}

	s.logger.Info("verification submitted",
		zap.String("verification_id", v.ID.String()),
		zap.String("type", v.Type))
	return v, nil
}

func (s *verificationService) ListMine(ctx context.Context, actor Actor) ([]*models.Verification, error) {
	return s.repo.ListByUser(ctx, actor.ID)
}

func isReviewer(actor Actor) bool {
	return actor.IsAdmin() || actor.Role == common.RoleTrustThirdParty
}

func (s *verificationService) ListPending(ctx context.Context, reviewer Actor) ([]*models.Verification, error) {
	if !isReviewer(reviewer) {
		return nil, common.ForbiddenError("only trusted third parties can review verifications")
	}
	return s.repo.ListPending(ctx)
}

func (s *verificationService) Review(ctx context.Context, reviewer Actor, verificationID uuid.UUID, approve bool, notes string) (*models.Verification, *models.Verification, error) {
	if !isReviewer(reviewer) {
		return nil, nil, common.ForbiddenError("only trusted third parties can review verifications")
	}
	notes = strings.TrimSpace(notes)
	if !approve && notes == "" {
		return nil, nil, common.ValidationError("a reason is required when rejecting a verification")
	}

	v, err := s.repo.GetByID(ctx, verificationID)
	if err != nil {
		return nil, nil, err
	}
	if v.Status != models.VerificationPendingReview {
		return nil, nil, common.ConflictError("verification has already been reviewed")
	}
	if v.UserID == reviewer.ID {
		return nil, nil, common.ForbiddenError("you cannot review your own verification")
	}

	before := *v
	now := s.now()
	v.Status = models.VerificationRejected
	if approve {
		v.Status = models.VerificationApproved
	}
	v.ReviewedBy = &reviewer.ID
	v.ReviewNotes = common.StringPtr(notes)
	v.ReviewedAt = &now
	v.UpdatedAt = now
	if err := s.repo.UpdateReview(ctx, v); err != nil {
		return nil, nil, fmt.Errorf("failed to review verification: %w", err)
	}

	if approve {
		var flagErr error
		if v.Type == models.VerificationCNAM {
			flagErr = s.userRepo.SetEmploymentVerified(ctx, v.UserID, true)
		} else {
			flagErr = s.userRepo.SetIdentityVerified(ctx, v.UserID, true)
		}
		if flagErr != nil {
			return nil, nil, fmt.Errorf("failed to update user verification flag: %w", flagErr)
		}
	}

	title := "Vérification refusée"
	body := "Votre demande de vérification a été refusée. Motif : " + notes
	if approve {
		title = "Vérification approuvée"
		body = "Votre demande de vérification a été approuvée."
	}
	data := models.JSONB{"verification_id": v.ID.String(), "type": v.Type, "status": v.Status}
	if err := s.notifications.Notify(ctx, v.UserID, models.KindVerificationReview, title, body, []models.Channel{models.ChannelEmail}, data); err != nil {
		s.logger.Warn("verification notification failed", zap.String("verification_id", v.ID.String()), zap.Error(err))
	}
	return &before, v, nil
}

func (s *verificationService) DocumentURL(ctx context.Context, reviewer Actor, verificationID uuid.UUID) (string, error) {
	v, err := s.repo.GetByID(ctx, verificationID)
	if err != nil {
		return "", err
	}
	if v.UserID != reviewer.ID && !isReviewer(reviewer) {
		return "", common.NotFoundError("verification")
	}
	if v.DocumentObject == nil {
		return "", common.NotFoundError("verification document")
	}
	return s.storage.PresignedURL(ctx, BucketVerificationDocuments, *v.DocumentObject, documentURLTTL)
}
