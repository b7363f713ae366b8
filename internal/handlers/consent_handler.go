package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/habeasdata/consent-campaigns/internal/models"
	"github.com/habeasdata/consent-campaigns/internal/service"
)

// ConsentHandler serves the public consent capture surface: the form a
// recipient opens from their link, the decision write, and revocation.
type ConsentHandler struct {
	consentService *service.ConsentService
	logger         *logrus.Logger
}

// NewConsentHandler creates a new consent handler instance
func NewConsentHandler(consentService *service.ConsentService, logger *logrus.Logger) *ConsentHandler {
	return &ConsentHandler{consentService: consentService, logger: logger}
}

// decisionForm binds the consent form submission.
type decisionForm struct {
	Decision      string `form:"decision" binding:"required"`
	TermsAccepted bool   `form:"terms_accepted"`
}

// ShowConsent handles GET /auth/:token
func (h *ConsentHandler) ShowConsent(c *gin.Context) {
	token := c.Param("token")

	resolution, err := h.consentService.Resolve(c.Request.Context(), token)
	if err != nil {
		h.logger.WithError(err).Error("Failed to resolve consent token")
		h.renderServerError(c)
		return
	}

	h.renderResolution(c, token, resolution, "")
}

// HandleConsent handles POST /auth/:token
func (h *ConsentHandler) HandleConsent(c *gin.Context) {
	token := c.Param("token")

	var form decisionForm
	if err := c.ShouldBind(&form); err != nil {
		// Missing decision field: treat as a reject-shaped bad submission
		// and re-render whatever state the token is in.
		resolution, rerr := h.consentService.Resolve(c.Request.Context(), token)
		if rerr != nil {
			h.renderServerError(c)
			return
		}
		h.renderResolution(c, token, resolution, "Selecciona una opción para continuar.")
		return
	}

	result, err := h.consentService.Decide(
		c.Request.Context(),
		token,
		form.Decision,
		form.TermsAccepted,
		c.ClientIP(),
		c.Request.UserAgent(),
	)
	if err != nil {
		h.logger.WithError(err).Error("Failed to record consent decision")
		h.renderServerError(c)
		return
	}

	if result.ValidationError != "" {
		h.renderResolution(c, token, result.Resolution, result.ValidationError)
		return
	}

	switch result.NewStatus {
	case models.StatusAccepted:
		c.HTML(http.StatusOK, "success.html", gin.H{
			"name":  result.Resolution.Request.Name,
			"token": token,
		})
	case models.StatusRejected:
		c.HTML(http.StatusOK, "rejected.html", gin.H{
			"name": result.Resolution.Request.Name,
		})
	default:
		// Pre-empted: not found, expired, or decided by a concurrent submit.
		h.renderResolution(c, token, result.Resolution, "")
	}
}

// HandleRevoke handles POST /auth/:token/revoke
func (h *ConsentHandler) HandleRevoke(c *gin.Context) {
	token := c.Param("token")

	result, err := h.consentService.Revoke(
		c.Request.Context(),
		token,
		c.ClientIP(),
		c.Request.UserAgent(),
	)
	if err != nil {
		h.logger.WithError(err).Error("Failed to revoke consent")
		h.renderServerError(c)
		return
	}

	if result.NewStatus == models.StatusRevoked {
		c.HTML(http.StatusOK, "revoked.html", gin.H{
			"name": result.Resolution.Request.Name,
		})
		return
	}

	switch result.Resolution.Class {
	case service.ClassNotFound, service.ClassExpired:
		h.renderResolution(c, token, result.Resolution, "")
	case service.ClassRevoked:
		c.HTML(http.StatusOK, "revoked.html", gin.H{
			"name": result.Resolution.Request.Name,
		})
	default:
		c.HTML(http.StatusConflict, "message.html", gin.H{
			"title":   "No se puede revocar",
			"message": "Esta solicitud no tiene un consentimiento aceptado para revocar.",
		})
	}
}

// renderResolution maps a token classification to its view.
func (h *ConsentHandler) renderResolution(c *gin.Context, token string, resolution *service.Resolution, formError string) {
	switch resolution.Class {
	case service.ClassNotFound:
		c.HTML(http.StatusNotFound, "message.html", gin.H{
			"title":   "Enlace inválido",
			"message": "El enlace proporcionado no es válido.",
		})
	case service.ClassExpired:
		c.HTML(http.StatusGone, "message.html", gin.H{
			"title":   "Enlace expirado",
			"message": "El enlace de autorización ha expirado. Solicita un nuevo enlace para continuar.",
		})
	case service.ClassAlreadyAccepted:
		c.HTML(http.StatusOK, "already_accepted.html", gin.H{
			"name":         resolution.Request.Name,
			"accepted_at":  resolution.Request.AcceptedAt,
			"token":        token,
			"allow_revoke": true,
		})
	case service.ClassAlreadyRejected:
		c.HTML(http.StatusOK, "already_rejected.html", gin.H{
			"name": resolution.Request.Name,
		})
	case service.ClassRevoked:
		c.HTML(http.StatusOK, "revoked.html", gin.H{
			"name": resolution.Request.Name,
		})
	case service.ClassOpen:
		var legalContent string
		if resolution.Request.TermsContent != nil {
			legalContent = *resolution.Request.TermsContent
		}
		c.HTML(http.StatusOK, "consent_form.html", gin.H{
			"name":          resolution.Request.Name,
			"token":         token,
			"legal_content": legalContent,
			"error":         formError,
		})
	default:
		h.renderServerError(c)
	}
}

func (h *ConsentHandler) renderServerError(c *gin.Context) {
	c.HTML(http.StatusInternalServerError, "message.html", gin.H{
		"title":   "Error del servidor",
		"message": "Ocurrió un error al procesar tu solicitud.",
	})
}
