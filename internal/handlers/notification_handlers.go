package handlers

import (
	"net/http"

	"montoit/internal/common"
	"montoit/internal/services"

	"github.com/labstack/echo/v4"
)

// NotificationHandlers handles notification-related HTTP requests
type NotificationHandlers struct {
	notificationSvc services.NotificationService
}

// NewNotificationHandlers creates a new notification handlers instance
func NewNotificationHandlers(notificationSvc services.NotificationService) *NotificationHandlers {
	return &NotificationHandlers{
		notificationSvc: notificationSvc,
	}
}

// List handles GET /notifications?unread=true&limit=&offset=
func (h *NotificationHandlers) List(c echo.Context) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	limit, err := queryInt(c, "limit")
	if err != nil {
		return err
	}
	offset, err := queryInt(c, "offset")
	if err != nil {
		return err
	}
	limit, offset, err = common.ValidatePaginationParams(limit, offset)
	if err != nil {
		return common.ValidationError(err.Error())
	}

	notifications, unread, err := h.notificationSvc.List(c.Request().Context(), actor.ID, c.QueryParam("unread") == "true", limit, offset)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"items":        notifications,
		"unread_count": unread,
		"limit":        limit,
		"offset":       offset,
	})
}

func (h *NotificationHandlers) MarkRead(c echo.Context) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}

	if err := h.notificationSvc.MarkRead(c.Request().Context(), actor.ID, id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

type SendEmailRequest struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// SendEmail handles the admin transactional email endpoint
func (h *NotificationHandlers) SendEmail(c echo.Context) error {
	var req SendEmailRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}
	if err := common.ValidateEmail(req.To); err != nil {
		return common.ValidationError(err.Error())
	}
	if err := common.ValidateRequiredString(req.Subject, "subject"); err != nil {
		return common.ValidationError(err.Error())
	}
	if err := common.ValidateRequiredString(req.Body, "body"); err != nil {
		return common.ValidationError(err.Error())
	}

	if err := h.notificationSvc.SendEmail(c.Request().Context(), req.To, req.Subject, req.Body); err != nil {
		return err
	}
	return c.JSON(http.StatusAccepted, map[string]string{"message": "Email sent"})
}

type SendSMSRequest struct {
	To      string `json:"to"`
	Message string `json:"message"`
}

// SendSMS handles the admin SMS endpoint; numbers must be Ivorian
func (h *NotificationHandlers) SendSMS(c echo.Context) error {
	var req SendSMSRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}
	if err := common.ValidateRequiredString(req.Message, "message"); err != nil {
		return common.ValidationError(err.Error())
	}

	if err := h.notificationSvc.SendSMS(c.Request().Context(), req.To, req.Message); err != nil {
		return err
	}
	return c.JSON(http.StatusAccepted, map[string]string{"message": "SMS sent"})
}
