package handlers

import (
	"net/http"
	"strings"

	"montoit/internal/common"
	"montoit/internal/middleware"
	"montoit/internal/services"

	"github.com/labstack/echo/v4"
)

// BackendTokenHeader carries the managed-backend session when the request is
// authenticated with one of our own tokens
const BackendTokenHeader = "X-Backend-Token"

type MFAHandlers struct {
	mfaService services.MFAService
}

func NewMFAHandlers(mfaService services.MFAService) *MFAHandlers {
	return &MFAHandlers{mfaService: mfaService}
}

// backendToken returns the session the backend factor API expects
func backendToken(c echo.Context) (string, error) {
	if token := strings.TrimSpace(c.Request().Header.Get(BackendTokenHeader)); token != "" {
		return token, nil
	}
	// the bearer itself was issued by the backend
	if middleware.ClaimsFromContext(c) == nil {
		if bearer := strings.TrimPrefix(c.Request().Header.Get(echo.HeaderAuthorization), "Bearer "); bearer != "" {
			return bearer, nil
		}
	}
	return "", common.ValidationError(BackendTokenHeader + " header is required")
}

func (h *MFAHandlers) Status(c echo.Context) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	compliance, err := h.mfaService.Status(c.Request().Context(), actor.ID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, compliance)
}

func (h *MFAHandlers) Enroll(c echo.Context) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	token, err := backendToken(c)
	if err != nil {
		return err
	}

	enrollment, err := h.mfaService.Enroll(c.Request().Context(), actor.ID, token)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, enrollment)
}

type MFAChallengeRequest struct {
	FactorID string `json:"factor_id"`
}

func (h *MFAHandlers) Challenge(c echo.Context) error {
	var req MFAChallengeRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}
	token, err := backendToken(c)
	if err != nil {
		return err
	}

	challenge, err := h.mfaService.Challenge(c.Request().Context(), token, req.FactorID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, challenge)
}

type MFAVerifyRequest struct {
	FactorID    string `json:"factor_id"`
	ChallengeID string `json:"challenge_id"`
	Code        string `json:"code"`
}

// Verify checks a TOTP code; success enables MFA on the account
func (h *MFAHandlers) Verify(c echo.Context) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	var req MFAVerifyRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}
	token, err := backendToken(c)
	if err != nil {
		return err
	}

	ctx := c.Request().Context()
	if err := h.mfaService.Verify(ctx, actor.ID, token, req.FactorID, req.ChallengeID, req.Code); err != nil {
		return err
	}
	compliance, err := h.mfaService.Status(ctx, actor.ID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, compliance)
}

// Unenroll removes a factor; privileged roles fall back into their grace rules
func (h *MFAHandlers) Unenroll(c echo.Context) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	token, err := backendToken(c)
	if err != nil {
		return err
	}
	factorID := c.Param("factor_id")
	if factorID == "" {
		return common.ValidationError("factor_id is required")
	}

	if err := h.mfaService.Unenroll(c.Request().Context(), actor.ID, token, factorID); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// Audit lists privileged accounts that have not enabled MFA yet
func (h *MFAHandlers) Audit(c echo.Context) error {
	entries, err := h.mfaService.Audit(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, listResponse(entries, len(entries)))
}
