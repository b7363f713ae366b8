package handlers

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/habeasdata/consent-campaigns/internal/dao"
	"github.com/habeasdata/consent-campaigns/internal/models"
	"github.com/habeasdata/consent-campaigns/internal/utils"
)

// TermsHandler manages the append-only legal terms versions.
type TermsHandler struct {
	store  *dao.Store
	logger *logrus.Logger
}

// NewTermsHandler creates a new terms handler instance
func NewTermsHandler(store *dao.Store, logger *logrus.Logger) *TermsHandler {
	return &TermsHandler{store: store, logger: logger}
}

// createTermsRequest is the JSON body for registering a new terms version.
type createTermsRequest struct {
	Version string `json:"version" binding:"required"`
	Content string `json:"content" binding:"required"`
}

// GetCurrent handles GET /api/v1/terms/current
func (h *TermsHandler) GetCurrent(c *gin.Context) {
	version, err := h.store.CurrentTermsVersion(c.Request.Context())
	if err != nil {
		if errors.Is(err, models.ErrNoCurrentTerms) {
			utils.SendNotFoundError(c, "No current legal terms version")
			return
		}
		h.logger.WithError(err).Error("Failed to get current terms version")
		utils.SendInternalServerError(c, "Failed to get current terms version", err.Error())
		return
	}

	terms, err := h.store.Terms.Get(c.Request.Context(), version)
	if err != nil {
		h.logger.WithError(err).Error("Failed to load terms content")
		utils.SendInternalServerError(c, "Failed to load terms content", err.Error())
		return
	}

	utils.SendOKResponse(c, terms)
}

// Create handles POST /api/v1/terms. The new version becomes current
// immediately; earlier versions are never edited.
func (h *TermsHandler) Create(c *gin.Context) {
	var req createTermsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.SendBadRequestError(c, "Invalid request body", err.Error())
		return
	}

	if err := h.store.Terms.Create(c.Request.Context(), req.Version, req.Content); err != nil {
		h.logger.WithError(err).Error("Failed to create terms version")
		utils.SendInternalServerError(c, "Failed to create terms version", err.Error())
		return
	}

	h.logger.WithField("version", req.Version).Info("New legal terms version registered")
	utils.SendCreatedResponse(c, gin.H{"version": req.Version})
}
