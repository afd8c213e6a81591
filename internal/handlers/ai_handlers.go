package handlers

import (
	"net/http"

	"montoit/internal/services"

	"github.com/labstack/echo/v4"
)

type AIHandlers struct {
	aiService services.AIService
}

func NewAIHandlers(aiService services.AIService) *AIHandlers {
	return &AIHandlers{aiService: aiService}
}

type ModerateRequest struct {
	Text string `json:"text"`
}

// Moderate handles POST /ai/moderate
func (h *AIHandlers) Moderate(c echo.Context) error {
	var req ModerateRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}

	result, err := h.aiService.Moderate(c.Request().Context(), req.Text)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, result)
}

type GenerateImageRequest struct {
	Prompt string `json:"prompt"`
}

// GenerateImage handles POST /ai/images
func (h *AIHandlers) GenerateImage(c echo.Context) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	var req GenerateImageRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}

	image, err := h.aiService.GenerateImage(c.Request().Context(), actor.ID, req.Prompt)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, image)
}
