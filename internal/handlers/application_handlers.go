package handlers

import (
	"net/http"

	"montoit/internal/services"

	"github.com/labstack/echo/v4"
)

type ApplicationHandlers struct {
	applicationService services.ApplicationService
}

func NewApplicationHandlers(applicationService services.ApplicationService) *ApplicationHandlers {
	return &ApplicationHandlers{applicationService: applicationService}
}

// Submit handles POST /properties/:id/applications
func (h *ApplicationHandlers) Submit(c echo.Context) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	propertyID, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var req services.SubmitApplicationRequest
	if c.Request().ContentLength > 0 {
		if err := bindJSON(c, &req); err != nil {
			return err
		}
	}

	application, err := h.applicationService.Submit(c.Request().Context(), actor, propertyID, &req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, application)
}

func (h *ApplicationHandlers) ListMine(c echo.Context) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	applications, err := h.applicationService.ListMine(c.Request().Context(), actor)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, listResponse(applications, len(applications)))
}

// ListForProperty handles GET /properties/:id/applications for the owner or a mandated agency
func (h *ApplicationHandlers) ListForProperty(c echo.Context) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	propertyID, err := pathID(c, "id")
	if err != nil {
		return err
	}

	applications, err := h.applicationService.ListForProperty(c.Request().Context(), actor, propertyID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, listResponse(applications, len(applications)))
}

// Approve accepts an application and, when asked, drafts the lease
func (h *ApplicationHandlers) Approve(c echo.Context) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var req services.ApproveApplicationRequest
	if c.Request().ContentLength > 0 {
		if err := bindJSON(c, &req); err != nil {
			return err
		}
	}

	result, err := h.applicationService.Approve(c.Request().Context(), actor, id, &req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, result)
}

type RejectApplicationRequest struct {
	Notes *string `json:"notes"`
}

func (h *ApplicationHandlers) Reject(c echo.Context) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var req RejectApplicationRequest
	if c.Request().ContentLength > 0 {
		if err := bindJSON(c, &req); err != nil {
			return err
		}
	}

	application, err := h.applicationService.Reject(c.Request().Context(), actor, id, req.Notes)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, application)
}

func (h *ApplicationHandlers) Withdraw(c echo.Context) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}

	application, err := h.applicationService.Withdraw(c.Request().Context(), actor, id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, application)
}

// Score returns the applicant's live score against the property's rent
func (h *ApplicationHandlers) Score(c echo.Context) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}

	score, err := h.applicationService.Score(c.Request().Context(), actor, id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, score)
}
