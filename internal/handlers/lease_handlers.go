package handlers

import (
	"net/http"

	"montoit/internal/middleware"
	"montoit/internal/services"

	"github.com/labstack/echo/v4"
)

type LeaseHandlers struct {
	leaseService   services.LeaseService
	paymentService services.PaymentService
	audit          *middleware.AuditMiddleware
}

func NewLeaseHandlers(leaseService services.LeaseService, paymentService services.PaymentService, audit *middleware.AuditMiddleware) *LeaseHandlers {
	return &LeaseHandlers{
		leaseService:   leaseService,
		paymentService: paymentService,
		audit:          audit,
	}
}

func (h *LeaseHandlers) Create(c echo.Context) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	var req services.CreateLeaseRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}

	lease, err := h.leaseService.Create(c.Request().Context(), actor, &req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, lease)
}

func (h *LeaseHandlers) Get(c echo.Context) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}

	lease, err := h.leaseService.Get(c.Request().Context(), actor, id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, lease)
}

func (h *LeaseHandlers) List(c echo.Context) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	leases, err := h.leaseService.ListMine(c.Request().Context(), actor)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, listResponse(leases, len(leases)))
}

// SendForSignature moves a draft lease to pending_signature
func (h *LeaseHandlers) SendForSignature(c echo.Context) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}

	lease, err := h.leaseService.SendForSignature(c.Request().Context(), actor, id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, lease)
}

// Sign records the caller's signature; the second signature activates the lease
func (h *LeaseHandlers) Sign(c echo.Context) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}

	lease, err := h.leaseService.Sign(c.Request().Context(), actor, id, c.RealIP())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, lease)
}

type TerminateLeaseRequest struct {
	Reason string `json:"reason"`
}

func (h *LeaseHandlers) Terminate(c echo.Context) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var req TerminateLeaseRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}

	lease, err := h.leaseService.Terminate(c.Request().Context(), actor, id, req.Reason)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, lease)
}

// Document returns a short-lived link to the signed contract PDF
func (h *LeaseHandlers) Document(c echo.Context) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}

	url, err := h.leaseService.DocumentURL(c.Request().Context(), actor, id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]string{"url": url})
}

func (h *LeaseHandlers) RequestCertification(c echo.Context) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}

	lease, err := h.leaseService.RequestCertification(c.Request().Context(), actor, id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusAccepted, lease)
}

func (h *LeaseHandlers) ListPendingCertifications(c echo.Context) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	leases, err := h.leaseService.ListPendingCertifications(c.Request().Context(), actor)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, listResponse(leases, len(leases)))
}

func (h *LeaseHandlers) ReviewCertification(c echo.Context) error {
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

	before, lease, err := h.leaseService.ReviewCertification(c.Request().Context(), actor, id, req.Approve, req.Notes)
	if err != nil {
		return err
	}
	h.audit.AuditEntityChange(c.Request().Context(), &actor.ID, c.RealIP(), "leases", id.String(), "certification_review", before, lease)
	return c.JSON(http.StatusOK, lease)
}

// Payments handles GET /leases/:id/payments
func (h *LeaseHandlers) Payments(c echo.Context) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}

	payments, err := h.paymentService.ListForLease(c.Request().Context(), actor, id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, listResponse(payments, len(payments)))
}
