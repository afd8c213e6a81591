package handlers

import (
	"net/http"

	"montoit/internal/common"
	"montoit/internal/middleware"
	"montoit/internal/models"
	"montoit/internal/pagination"
	"montoit/internal/services"

	"github.com/labstack/echo/v4"
)

// PropertyHandlers handles listing HTTP requests
type PropertyHandlers struct {
	propertyService services.PropertyService
	audit           *middleware.AuditMiddleware
}

func NewPropertyHandlers(propertyService services.PropertyService, audit *middleware.AuditMiddleware) *PropertyHandlers {
	return &PropertyHandlers{
		propertyService: propertyService,
		audit:           audit,
	}
}

// PropertyResponse adds signed image URLs to a property
type PropertyResponse struct {
	*models.Property
	ImageURLs  []string                   `json:"image_urls"`
	Moderation *services.ModerationResult `json:"moderation,omitempty"`
}

func (h *PropertyHandlers) respond(c echo.Context, status int, property *models.Property, moderation *services.ModerationResult) error {
	return c.JSON(status, PropertyResponse{
		Property:   property,
		ImageURLs:  h.propertyService.ImageURLs(c.Request().Context(), property),
		Moderation: moderation,
	})
}

// Search handles GET /properties
func (h *PropertyHandlers) Search(c echo.Context) error {
	filter := models.PropertySearchFilter{
		Query:        c.QueryParam("q"),
		City:         c.QueryParam("city"),
		Neighborhood: c.QueryParam("neighborhood"),
		PropertyType: c.QueryParam("property_type"),
		SortBy:       c.QueryParam("sort_by"),
		SortOrder:    c.QueryParam("sort_order"),
	}

	var err error
	if filter.MinRent, err = queryFloat(c, "min_rent"); err != nil {
		return err
	}
	if filter.MaxRent, err = queryFloat(c, "max_rent"); err != nil {
		return err
	}
	if c.QueryParam("bedrooms") != "" {
		bedrooms, err := queryInt(c, "bedrooms")
		if err != nil {
			return err
		}
		filter.MinBedrooms = &bedrooms
	}
	if raw := c.QueryParam("furnished"); raw != "" {
		furnished := raw == "true" || raw == "1"
		filter.Furnished = &furnished
	}
	if filter.Limit, err = queryInt(c, "limit"); err != nil {
		return err
	}
	if filter.Offset, err = queryInt(c, "offset"); err != nil {
		return err
	}

	result, err := h.propertyService.Search(c.Request().Context(), filter)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, result)
}

// Get handles GET /properties/:id; drafts are only visible to their managers
func (h *PropertyHandlers) Get(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}

	var actor *services.Actor
	if a, ok := middleware.ActorFromContext(c); ok {
		actor = &a
	}

	property, err := h.propertyService.Get(c.Request().Context(), actor, id)
	if err != nil {
		return err
	}
	return h.respond(c, http.StatusOK, property, nil)
}

func (h *PropertyHandlers) Create(c echo.Context) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	var req services.PropertyRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}

	property, err := h.propertyService.Create(c.Request().Context(), actor, &req)
	if err != nil {
		return err
	}
	return h.respond(c, http.StatusCreated, property, nil)
}

func (h *PropertyHandlers) Update(c echo.Context) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var req services.PropertyRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}

	property, err := h.propertyService.Update(c.Request().Context(), actor, id, &req)
	if err != nil {
		return err
	}
	return h.respond(c, http.StatusOK, property, nil)
}

// Publish runs moderation and makes the listing public when it passes
func (h *PropertyHandlers) Publish(c echo.Context) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}

	property, moderation, err := h.propertyService.Publish(c.Request().Context(), actor, id)
	if err != nil {
		return err
	}
	return h.respond(c, http.StatusOK, property, moderation)
}

func (h *PropertyHandlers) Archive(c echo.Context) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}

	if err := h.propertyService.Archive(c.Request().Context(), actor, id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// UploadImage handles multipart POST /properties/:id/images with an "image" file
func (h *PropertyHandlers) UploadImage(c echo.Context) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}

	fileHeader, err := c.FormFile("image")
	if err != nil {
		return common.ValidationError("image file is required")
	}
	file, err := fileHeader.Open()
	if err != nil {
		return common.ValidationError("image file could not be read")
	}
	defer file.Close()

	object, err := h.propertyService.UploadImage(c.Request().Context(), actor, id, file, fileHeader.Size, fileHeader.Header.Get(echo.HeaderContentType))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, map[string]string{"object": object})
}

// ListMine handles GET /owner/properties with in-memory paging
func (h *PropertyHandlers) ListMine(c echo.Context) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	var params pagination.Params
	if err := (&echo.DefaultBinder{}).BindQueryParams(c, &params); err != nil {
		return common.ValidationError("Invalid query parameters")
	}

	page, err := h.propertyService.ListByOwner(c.Request().Context(), actor, params)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, page)
}

type ReviewRequest struct {
	Approve bool   `json:"approve"`
	Notes   string `json:"notes"`
}

// Review handles POST /admin/properties/:id/moderation for listings held for manual review
func (h *PropertyHandlers) Review(c echo.Context) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var req ReviewRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}

	before, property, err := h.propertyService.Review(c.Request().Context(), actor, id, req.Approve, req.Notes)
	if err != nil {
		return err
	}
	h.audit.AuditEntityChange(c.Request().Context(), &actor.ID, c.RealIP(), "properties", id.String(), "moderation_review", before, property)
	return h.respond(c, http.StatusOK, property, nil)
}
