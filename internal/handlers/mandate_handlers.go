package handlers

import (
	"context"
	"net/http"

	"montoit/internal/models"
	"montoit/internal/services"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

type MandateHandlers struct {
	mandateService services.MandateService
}

func NewMandateHandlers(mandateService services.MandateService) *MandateHandlers {
	return &MandateHandlers{mandateService: mandateService}
}

// Request handles POST /mandates from an agency
func (h *MandateHandlers) Request(c echo.Context) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	var req services.CreateMandateRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}

	mandate, err := h.mandateService.Request(c.Request().Context(), actor, &req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, mandate)
}

func (h *MandateHandlers) List(c echo.Context) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	mandates, err := h.mandateService.List(c.Request().Context(), actor)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, listResponse(mandates, len(mandates)))
}

type mandateTransition func(ctx context.Context, actor services.Actor, id uuid.UUID) (*models.Mandate, error)

func (h *MandateHandlers) transition(c echo.Context, apply mandateTransition) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}

	mandate, err := apply(c.Request().Context(), actor, id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, mandate)
}

func (h *MandateHandlers) Accept(c echo.Context) error {
	return h.transition(c, h.mandateService.Accept)
}

func (h *MandateHandlers) Reject(c echo.Context) error {
	return h.transition(c, h.mandateService.Reject)
}

func (h *MandateHandlers) Revoke(c echo.Context) error {
	return h.transition(c, h.mandateService.Revoke)
}
