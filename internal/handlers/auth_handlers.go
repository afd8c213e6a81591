package handlers

import (
	"net/http"
	"strings"

	"montoit/internal/common"
	"montoit/internal/middleware"
	"montoit/internal/services"

	"github.com/labstack/echo/v4"
)

// AuthHandlers handles authentication-related HTTP requests
type AuthHandlers struct {
	authService services.AuthService
	mfaService  services.MFAService
}

// NewAuthHandlers creates a new auth handlers instance
func NewAuthHandlers(authService services.AuthService, mfaService services.MFAService) *AuthHandlers {
	return &AuthHandlers{
		authService: authService,
		mfaService:  mfaService,
	}
}

// LoginRequest represents the login request payload
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login handles user login with email and password
func (h *AuthHandlers) Login(c echo.Context) error {
	var req LoginRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}
	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		return common.ValidationError("Email and password are required")
	}

	tokens, err := h.authService.Login(c.Request().Context(), req.Email, req.Password, c.RealIP())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, tokens)
}

// Signup handles self-service registration of tenants, owners and agencies
func (h *AuthHandlers) Signup(c echo.Context) error {
	var req services.SignupRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}

	tokens, err := h.authService.Signup(c.Request().Context(), &req, c.RealIP())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, tokens)
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// Refresh exchanges a refresh token for a new token pair
func (h *AuthHandlers) Refresh(c echo.Context) error {
	var req RefreshRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}
	if req.RefreshToken == "" {
		return common.ValidationError("refresh_token is required")
	}

	tokens, err := h.authService.RefreshToken(c.Request().Context(), req.RefreshToken)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, tokens)
}

// Logout revokes the current access token and, when given, the refresh token
func (h *AuthHandlers) Logout(c echo.Context) error {
	var req RefreshRequest
	if c.Request().ContentLength > 0 {
		if err := bindJSON(c, &req); err != nil {
			return err
		}
	}

	if err := h.authService.Logout(c.Request().Context(), middleware.ClaimsFromContext(c), req.RefreshToken); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// Me returns the caller's profile together with their MFA compliance
func (h *AuthHandlers) Me(c echo.Context) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	ctx := c.Request().Context()

	user, err := h.authService.Me(ctx, actor.ID)
	if err != nil {
		return err
	}

	response := map[string]interface{}{"user": user}
	if compliance, err := h.mfaService.Status(ctx, actor.ID); err == nil {
		response["mfa"] = compliance
	} else {
		c.Logger().Warnf("mfa status unavailable for %s: %v", actor.ID, err)
	}
	return c.JSON(http.StatusOK, response)
}
