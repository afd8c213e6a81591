package handlers

import (
	"mime/multipart"
	"net/http"
	"strings"

	"montoit/internal/common"
	"montoit/internal/middleware"
	"montoit/internal/models"
	"montoit/internal/services"

	"github.com/labstack/echo/v4"
)

type VerificationHandlers struct {
	verificationService services.VerificationService
	audit               *middleware.AuditMiddleware
}

func NewVerificationHandlers(verificationService services.VerificationService, audit *middleware.AuditMiddleware) *VerificationHandlers {
	return &VerificationHandlers{
		verificationService: verificationService,
		audit:               audit,
	}
}

// Submit returns the handler for POST /verifications/{oneci,cnam,passport}.
// JSON bodies carry only the fields; multipart bodies may add a "document" file.
func (h *VerificationHandlers) Submit(verificationType string) echo.HandlerFunc {
	return func(c echo.Context) error {
		actor, err := currentActor(c)
		if err != nil {
			return err
		}

		req := services.VerificationRequest{Type: verificationType}
		var doc *services.UploadedDocument

		if strings.HasPrefix(c.Request().Header.Get(echo.HeaderContentType), echo.MIMEMultipartForm) {
			req.DocumentNumber = c.FormValue("document_number")
			req.FirstName = c.FormValue("first_name")
			req.LastName = c.FormValue("last_name")
			req.BirthDate = c.FormValue("birth_date")
			req.Employer = common.StringPtr(c.FormValue("employer"))

			if fileHeader, err := c.FormFile("document"); err == nil {
				file, err := fileHeader.Open()
				if err != nil {
					return common.ValidationError("document could not be read")
				}
				defer func(f multipart.File) { _ = f.Close() }(file)
				doc = &services.UploadedDocument{
					Reader:      file,
					Size:        fileHeader.Size,
					ContentType: fileHeader.Header.Get(echo.HeaderContentType),
				}
			}
		} else if err := bindJSON(c, &req); err != nil {
			return err
		}
		req.Type = verificationType

		verification, err := h.verificationService.Submit(c.Request().Context(), actor, &req, doc)
		if err != nil {
			return err
		}
		return c.JSON(http.StatusCreated, verification)
	}
}

// SubmitONECI, SubmitCNAM and SubmitPassport are the typed entry points
func (h *VerificationHandlers) SubmitONECI() echo.HandlerFunc {
	return h.Submit(models.VerificationONECI)
}

func (h *VerificationHandlers) SubmitCNAM() echo.HandlerFunc {
	return h.Submit(models.VerificationCNAM)
}

func (h *VerificationHandlers) SubmitPassport() echo.HandlerFunc {
	return h.Submit(models.VerificationPassport)
}

func (h *VerificationHandlers) ListMine(c echo.Context) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	verifications, err := h.verificationService.ListMine(c.Request().Context(), actor)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, listResponse(verifications, len(verifications)))
}

// ListPending is the trust-third-party review queue
func (h *VerificationHandlers) ListPending(c echo.Context) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	verifications, err := h.verificationService.ListPending(c.Request().Context(), actor)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, listResponse(verifications, len(verifications)))
}

func (h *VerificationHandlers) Review(c echo.Context) error {
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

	before, verification, err := h.verificationService.Review(c.Request().Context(), actor, id, req.Approve, req.Notes)
	if err != nil {
		return err
	}
	h.audit.AuditEntityChange(c.Request().Context(), &actor.ID, c.RealIP(), "verifications", id.String(), "review", before, verification)
	return c.JSON(http.StatusOK, verification)
}

// Document returns a short-lived link to the uploaded scan for reviewers
func (h *VerificationHandlers) Document(c echo.Context) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}

	url, err := h.verificationService.DocumentURL(c.Request().Context(), actor, id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]string{"url": url})
}
