package handlers

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// DashboardProvider builds the role-specific dashboard payload
type DashboardProvider interface {
	Dashboard(ctx context.Context, userID uuid.UUID, role string) (map[string]interface{}, error)
}

type DashboardHandlers struct {
	dashboards DashboardProvider
}

func NewDashboardHandlers(dashboards DashboardProvider) *DashboardHandlers {
	return &DashboardHandlers{dashboards: dashboards}
}

// Get handles GET /dashboard for the caller's role
func (h *DashboardHandlers) Get(c echo.Context) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}

	data, err := h.dashboards.Dashboard(c.Request().Context(), actor.ID, actor.Role)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, data)
}
