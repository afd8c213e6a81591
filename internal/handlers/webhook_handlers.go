package handlers

import (
	"io"
	"net/http"

	"montoit/internal/common"
	"montoit/internal/services"

	"github.com/labstack/echo/v4"
)

// SignatureHeader carries the hex HMAC-SHA256 of the raw webhook body
const SignatureHeader = "X-Signature"

const maxWebhookBody = 64 << 10

// PaymentHandlers handles rent payment requests and the mobile money callback
type PaymentHandlers struct {
	paymentService services.PaymentService
}

func NewPaymentHandlers(paymentService services.PaymentService) *PaymentHandlers {
	return &PaymentHandlers{paymentService: paymentService}
}

// Pay handles POST /payments/:id/pay; the outcome arrives later through the webhook
func (h *PaymentHandlers) Pay(c echo.Context) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var req services.InitiatePaymentRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}

	resp, err := h.paymentService.Initiate(c.Request().Context(), actor, id, &req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusAccepted, resp)
}

// MobileMoneyWebhook handles POST /webhooks/mobile-money
func (h *PaymentHandlers) MobileMoneyWebhook(c echo.Context) error {
	body, err := io.ReadAll(io.LimitReader(c.Request().Body, maxWebhookBody))
	if err != nil {
		return common.ValidationError("Failed to read request body")
	}

	signature := c.Request().Header.Get(SignatureHeader)
	if signature == "" {
		return common.UnauthorizedError("Missing webhook signature")
	}

	if err := h.paymentService.HandleWebhook(c.Request().Context(), body, signature); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]bool{"received": true})
}
