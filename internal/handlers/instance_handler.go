package handlers

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/habeasdata/consent-campaigns/internal/utils"
)

// InstanceClient is the slice of the gateway client the instance
// management endpoints use.
type InstanceClient interface {
	ConnectionState(ctx context.Context) string
	ConnectQR(ctx context.Context) (string, error)
}

// InstanceHandler exposes WhatsApp instance status and device pairing.
type InstanceHandler struct {
	client InstanceClient
	logger *logrus.Logger
}

// NewInstanceHandler creates a new instance handler instance
func NewInstanceHandler(client InstanceClient, logger *logrus.Logger) *InstanceHandler {
	return &InstanceHandler{client: client, logger: logger}
}

// Status handles GET /api/v1/instance/status
func (h *InstanceHandler) Status(c *gin.Context) {
	state := h.client.ConnectionState(c.Request.Context())
	utils.SendOKResponse(c, gin.H{"state": state})
}

// ConnectQR handles POST /api/v1/instance/qr. Returns the base64 pairing
// QR image for the operator to scan.
func (h *InstanceHandler) ConnectQR(c *gin.Context) {
	qr, err := h.client.ConnectQR(c.Request.Context())
	if err != nil {
		h.logger.WithError(err).Error("Failed to get pairing QR")
		utils.SendInternalServerError(c, "Failed to get pairing QR", err.Error())
		return
	}

	utils.SendOKResponse(c, gin.H{"qr": qr})
}
