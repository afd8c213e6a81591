package handlers

import (
	"errors"
	"strconv"

	"montoit/internal/common"
	"montoit/internal/middleware"
	"montoit/internal/services"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// MaxUploadSize bounds image and document uploads (10 MiB)
const MaxUploadSize = 10 << 20

func currentActor(c echo.Context) (services.Actor, error) {
	actor, ok := middleware.ActorFromContext(c)
	if !ok {
		return services.Actor{}, common.UnauthorizedError("User not authenticated")
	}
	return actor, nil
}

func pathID(c echo.Context, name string) (uuid.UUID, error) {
	id, err := common.ValidateUUID(c.Param(name), name)
	if err != nil {
		return uuid.Nil, common.ValidationError(err.Error())
	}
	return id, nil
}

func bindJSON(c echo.Context, dst interface{}) error {
	if err := c.Bind(dst); err != nil {
		return common.ValidationError("Invalid request format")
	}
	return nil
}

func queryInt(c echo.Context, name string) (int, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, common.ValidationError(name + " must be an integer")
	}
	return n, nil
}

func queryFloat(c echo.Context, name string) (*float64, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return nil, nil
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, common.ValidationError(name + " must be a number")
	}
	return &f, nil
}

// listResponse is the envelope of unpaginated collections
func listResponse(items interface{}, count int) map[string]interface{} {
	return map[string]interface{}{
		"items": items,
		"count": count,
	}
}

var errUnavailable = errors.New("dependency not configured")
