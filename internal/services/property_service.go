package services

import (
	"cmp"
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"montoit/internal/caching"
	"montoit/internal/common"
	"montoit/internal/models"
	"montoit/internal/pagination"
	"montoit/internal/repositories"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	maxMonthlyRent   = 50_000_000
	maxImageSize     = 5 << 20
	propertyCacheTTL = 10 * time.Minute
	searchCacheTTL   = 2 * time.Minute
)

var allowedImageTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
}

type PropertyRequest struct {
	Title        string   `json:"title"`
	Description  string   `json:"description"`
	PropertyType string   `json:"property_type"`
	Address      string   `json:"address"`
	City         string   `json:"city"`
	Neighborhood *string  `json:"neighborhood"`
	MonthlyRent  float64  `json:"monthly_rent"`
	Deposit      float64  `json:"deposit"`
	Bedrooms     int      `json:"bedrooms"`
	Bathrooms    int      `json:"bathrooms"`
	SurfaceArea  *float64 `json:"surface_area"`
	Furnished    bool     `json:"furnished"`
}

type SearchResult struct {
	Items  []*models.Property `json:"items"`
	Total  int                `json:"total"`
	Limit  int                `json:"limit"`
	Offset int                `json:"offset"`
}

type PropertyService interface {
	Create(ctx context.Context, actor Actor, req *PropertyRequest) (*models.Property, error)
	Update(ctx context.Context, actor Actor, id uuid.UUID, req *PropertyRequest) (*models.Property, error)
	Publish(ctx context.Context, actor Actor, id uuid.UUID) (*models.Property, *ModerationResult, error)
	// Review returns the listing as it was before the decision and as stored after it
	Review(ctx context.Context, admin Actor, id uuid.UUID, approve bool, notes string) (before, after *models.Property, err error)
	Archive(ctx context.Context, actor Actor, id uuid.UUID) error
	Get(ctx context.Context, actor *Actor, id uuid.UUID) (*models.Property, error)
	Search(ctx context.Context, filter models.PropertySearchFilter) (*SearchResult, error)
	ListByOwner(ctx context.Context, actor Actor, params pagination.Params) (pagination.Page[*models.Property], error)
	UploadImage(ctx context.Context, actor Actor, id uuid.UUID, reader io.Reader, size int64, contentType string) (string, error)
	ImageURLs(ctx context.Context, property *models.Property) []string
}

type propertyService struct {
	repo     repositories.PropertyRepository
	cache    caching.CacheService
	storage  MinioService
	ai       AIService
	mandates MandateService
	logger   *zap.Logger
}

func NewPropertyService(repo repositories.PropertyRepository, cache caching.CacheService, storage MinioService, ai AIService, mandates MandateService, logger *zap.Logger) PropertyService {
	return &propertyService{
		repo:     repo,
		cache:    cache,
		storage:  storage,
		ai:       ai,
		mandates: mandates,
		logger:   logger,
	}
}

func (r *PropertyRequest) validate() error {
	r.Title = strings.TrimSpace(r.Title)
	r.Description = strings.TrimSpace(r.Description)
	r.City = strings.TrimSpace(r.City)
	r.Address = strings.TrimSpace(r.Address)

	if r.Title == "" || len(r.Title) > 200 {
		return common.ValidationError("title is required and cannot exceed 200 characters")
	}
	if len(r.Description) > 5000 {
		return common.ValidationError("description cannot exceed 5000 characters")
	}
	if !models.ValidPropertyTypes[r.PropertyType] {
		return common.ValidationError("property_type must be one of: apartment, house, studio, villa, room, commercial")
	}
	if r.City == "" {
		return common.ValidationError("city is required")
	}
	if err := common.ValidateAmount(r.MonthlyRent, "monthly_rent", maxMonthlyRent); err != nil {
		return common.ValidationError(err.Error())
	}
	if r.Deposit < 0 {
		return common.ValidationError("deposit cannot be negative")
	}
	if r.Bedrooms < 0 || r.Bathrooms < 0 {
		return common.ValidationError("bedrooms and bathrooms cannot be negative")
	}
	if r.SurfaceArea != nil && *r.SurfaceArea <= 0 {
		return common.ValidationError("surface_area must be positive")
	}
	if err := common.ValidateOptionalString(r.Neighborhood, "neighborhood", 100); err != nil {
		return common.ValidationError(err.Error())
	}
	return nil
}

func (r *PropertyRequest) apply(p *models.Property) {
	p.Title = r.Title
	p.Description = r.Description
	p.PropertyType = r.PropertyType
	p.Address = r.Address
	p.City = r.City
	p.Neighborhood = r.Neighborhood
	p.MonthlyRent = r.MonthlyRent
	p.Deposit = r.Deposit
	p.Bedrooms = r.Bedrooms
	p.Bathrooms = r.Bathrooms
	p.SurfaceArea = r.SurfaceArea
	p.Furnished = r.Furnished
}

func (s *propertyService) Create(ctx context.Context, actor Actor, req *PropertyRequest) (*models.Property, error) {
	if actor.Role != common.RoleOwner && !actor.IsAdmin() {
		return nil, common.ForbiddenError("only owners can list properties")
	}
	if err := req.validate(); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	property := &models.Property{
		ID:               uuid.New(),
		OwnerID:          actor.ID,
		Status:           models.PropertyStatusDraft,
		ModerationStatus: models.ModerationPending,
		Images:           []string{},
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	req.apply(property)

	if err := s.repo.Create(ctx, property); err != nil {
		return nil, fmt.Errorf("failed to create property: %w", err)
	}
	return property, nil
}

func (s *propertyService) Update(ctx context.Context, actor Actor, id uuid.UUID, req *PropertyRequest) (*models.Property, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}
	property, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := authorizeProperty(ctx, s.mandates, actor, property, models.PermManageListings); err != nil {
		return nil, err
	}
	if property.Status == models.PropertyStatusArchived {
		return nil, common.ConflictError("archived properties cannot be edited")
	}

	req.apply(property)
	if err := s.repo.Update(ctx, property); err != nil {
		return nil, fmt.Errorf("failed to update property: %w", err)
	}

	// a published listing goes back through moderation after an edit
	if property.ModerationStatus == models.ModerationApproved {
		property.ModerationStatus = models.ModerationPending
		if err := s.repo.SetModeration(ctx, property.ID, property.ModerationStatus, nil); err != nil {
			return nil, fmt.Errorf("failed to reset moderation: %w", err)
		}
	}

	s.invalidate(ctx, property.ID)
	return property, nil
}

// Publish moderates the listing and makes it available when approved
func (s *propertyService) Publish(ctx context.Context, actor Actor, id uuid.UUID) (*models.Property, *ModerationResult, error) {
	property, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if err := authorizeProperty(ctx, s.mandates, actor, property, models.PermManageListings); err != nil {
		return nil, nil, err
	}
	if property.Status != models.PropertyStatusDraft && property.Status != models.PropertyStatusAvailable {
		return nil, nil, common.ConflictError("only draft or available properties can be published")
	}

	verdict, err := s.ai.Moderate(ctx, property.Title+"\n\n"+property.Description)
	if err != nil {
		return nil, nil, err
	}

	var notes *string
	if len(verdict.Reasons) > 0 {
		notes = common.StringPtr(strings.Join(verdict.Reasons, "; "))
	}
	property.ModerationStatus = verdict.Status
	property.ModerationNotes = notes
	if err := s.repo.SetModeration(ctx, property.ID, verdict.Status, notes); err != nil {
		return nil, nil, fmt.Errorf("failed to store moderation: %w", err)
	}

	if verdict.Status != models.ModerationRejected && property.Status == models.PropertyStatusDraft {
		property.Status = models.PropertyStatusAvailable
		if err := s.repo.UpdateStatus(ctx, property.ID, property.Status); err != nil {
			return nil, nil, fmt.Errorf("failed to publish property: %w", err)
		}
	}

	s.logger.Info("property moderated",
		zap.String("property_id", property.ID.String()),
		zap.String("moderation_status", verdict.Status),
		zap.String("source", verdict.Source))

	s.invalidate(ctx, property.ID)
	return property, verdict, nil
}

// Review lets an admin settle a listing left pending by automatic moderation
func (s *propertyService) Review(ctx context.Context, admin Actor, id uuid.UUID, approve bool, notes string) (*models.Property, *models.Property, error) {
	if !admin.IsAdmin() {
		return nil, nil, common.ForbiddenError("only admins can review listings")
	}
	property, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	before := *property

	status := models.ModerationRejected
	if approve {
		status = models.ModerationApproved
	}
	property.ModerationStatus = status
	property.ModerationNotes = common.StringPtr(notes)
	if err := s.repo.SetModeration(ctx, property.ID, status, property.ModerationNotes); err != nil {
		return nil, nil, fmt.Errorf("failed to store moderation: %w", err)
	}

	s.invalidate(ctx, property.ID)
	return &before, property, nil
}

func (s *propertyService) Archive(ctx context.Context, actor Actor, id uuid.UUID) error {
	property, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if property.OwnerID != actor.ID && !actor.IsAdmin() {
		return common.ForbiddenError("only the owner can archive a property")
	}
	if property.Status == models.PropertyStatusRented {
		return common.ConflictError("a rented property cannot be archived")
	}
	if err := s.repo.UpdateStatus(ctx, id, models.PropertyStatusArchived); err != nil {
		return fmt.Errorf("failed to archive property: %w", err)
	}
	s.invalidate(ctx, id)
	return nil
}

func isPublic(p *models.Property) bool {
	return p.Status == models.PropertyStatusAvailable && p.ModerationStatus == models.ModerationApproved
}

// Get returns a public listing to anyone and a private one to the people who manage it
func (s *propertyService) Get(ctx context.Context, actor *Actor, id uuid.UUID) (*models.Property, error) {
	property, err := s.cache.GetProperty(ctx, id)
	if err != nil {
		s.logger.Warn("property cache read failed", zap.String("property_id", id.String()), zap.Error(err))
	}
	if property == nil {
		property, err = s.repo.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if err := s.cache.SetProperty(ctx, property, propertyCacheTTL); err != nil {
			s.logger.Warn("property cache write failed", zap.String("property_id", id.String()), zap.Error(err))
		}
	}

	if isPublic(property) {
		return property, nil
	}
	if actor == nil || authorizeProperty(ctx, s.mandates, *actor, property, models.PermManageListings) != nil {
		return nil, common.NotFoundError("property")
	}
	return property, nil
}

func (s *propertyService) Search(ctx context.Context, filter models.PropertySearchFilter) (*SearchResult, error) {
	filter.Query = common.SanitizeSearchQuery(filter.Query)
	limit, offset, err := common.ValidatePaginationParams(filter.Limit, filter.Offset)
	if err != nil {
		return nil, common.ValidationError(err.Error())
	}
	filter.Limit, filter.Offset = limit, offset

	if filter.MinRent != nil && filter.MaxRent != nil && *filter.MinRent > *filter.MaxRent {
		return nil, common.ValidationError("min_rent cannot exceed max_rent")
	}
	if filter.PropertyType != "" && !models.ValidPropertyTypes[filter.PropertyType] {
		return nil, common.ValidationError("unknown property_type")
	}

	var cached SearchResult
	if found, err := s.cache.GetSearch(ctx, filter, &cached); err != nil {
		s.logger.Warn("search cache read failed", zap.Error(err))
	} else if found {
		return &cached, nil
	}

	items, total, err := s.repo.Search(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to search properties: %w", err)
	}
	if items == nil {
		items = []*models.Property{}
	}

	result := &SearchResult{Items: items, Total: total, Limit: limit, Offset: offset}
	if err := s.cache.SetSearch(ctx, filter, result, searchCacheTTL); err != nil {
		s.logger.Warn("search cache write failed", zap.Error(err))
	}
	return result, nil
}

var propertyAccessors = pagination.Accessors[*models.Property]{
	SearchFields: []func(*models.Property) string{
		func(p *models.Property) string { return p.Title },
		func(p *models.Property) string { return p.City },
		func(p *models.Property) string { return common.SafeString(p.Neighborhood) },
		func(p *models.Property) string { return p.Status },
	},
	SortKeys: map[string]func(a, b *models.Property) int{
		"title": func(a, b *models.Property) int {
			return cmp.Compare(strings.ToLower(a.Title), strings.ToLower(b.Title))
		},
		"monthly_rent": func(a, b *models.Property) int { return cmp.Compare(a.MonthlyRent, b.MonthlyRent) },
		"created_at":   func(a, b *models.Property) int { return a.CreatedAt.Compare(b.CreatedAt) },
		"status":       func(a, b *models.Property) int { return cmp.Compare(a.Status, b.Status) },
	},
}

func (s *propertyService) ListByOwner(ctx context.Context, actor Actor, params pagination.Params) (pagination.Page[*models.Property], error) {
	properties, err := s.repo.ListByOwner(ctx, actor.ID)
	if err != nil {
		return pagination.Page[*models.Property]{}, err
	}
	return pagination.Paginate(properties, params, propertyAccessors), nil
}

func (s *propertyService) UploadImage(ctx context.Context, actor Actor, id uuid.UUID, reader io.Reader, size int64, contentType string) (string, error) {
	ext, ok := allowedImageTypes[contentType]
	if !ok {
		return "", common.ValidationError("image must be JPEG, PNG or WebP")
	}
	if size <= 0 || size > maxImageSize {
		return "", common.ValidationError("image must be smaller than 5 MB")
	}

	property, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return "", err
	}
	if err := authorizeProperty(ctx, s.mandates, actor, property, models.PermManageListings); err != nil {
		return "", err
	}

	object := path.Join(property.ID.String(), uuid.NewString()+ext)
	if err := s.storage.Upload(ctx, BucketPropertyImages, object, reader, size, contentType); err != nil {
		return "", fmt.Errorf("failed to upload image: %w", err)
	}
	if err := s.repo.AddImage(ctx, property.ID, object); err != nil {
		if delErr := s.storage.Delete(ctx, BucketPropertyImages, object); delErr != nil {
			s.logger.Warn("failed to remove orphan image", zap.String("object", object), zap.Error(delErr))
		}
		return "", fmt.Errorf("failed to attach image: %w", err)
	}

	s.invalidate(ctx, property.ID)
	return object, nil
}

// ImageURLs signs every image of property; unsignable images are skipped
func (s *propertyService) ImageURLs(ctx context.Context, property *models.Property) []string {
	urls := make([]string, 0, len(property.Images))
	for _, object := range property.Images {
		url, err := s.storage.PresignedURL(ctx, BucketPropertyImages, object, time.Hour)
		if err != nil {
			s.logger.Warn("failed to sign image", zap.String("object", object), zap.Error(err))
			continue
		}
		urls = append(urls, url)
	}
	return urls
}

func (s *propertyService) invalidate(ctx context.Context, id uuid.UUID) {
	invalidateProperty(ctx, s.cache, s.logger, id)
}

// invalidateProperty drops the cached listing and every cached search page
func invalidateProperty(ctx context.Context, cache caching.CacheService, logger *zap.Logger, id uuid.UUID) {
	if err := cache.DeleteProperty(ctx, id); err != nil {
		logger.Warn("property cache invalidation failed", zap.String("property_id", id.String()), zap.Error(err))
	}
	if err := cache.InvalidateSearches(ctx); err != nil {
		logger.Warn("search cache invalidation failed", zap.Error(err))
	}
}
