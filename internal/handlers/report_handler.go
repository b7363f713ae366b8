package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/habeasdata/consent-campaigns/internal/service"
	"github.com/habeasdata/consent-campaigns/internal/utils"
)

// ReportHandler serves the operator console's read side.
type ReportHandler struct {
	reportService  *service.ReportService
	staleAfterDays int
	logger         *logrus.Logger
}

// NewReportHandler creates a new report handler instance
func NewReportHandler(reportService *service.ReportService, staleAfterDays int, logger *logrus.Logger) *ReportHandler {
	return &ReportHandler{
		reportService:  reportService,
		staleAfterDays: staleAfterDays,
		logger:         logger,
	}
}

// ListRequests handles GET /api/v1/requests
func (h *ReportHandler) ListRequests(c *gin.Context) {
	filter, err := parseRequestFilter(c)
	if err != nil {
		utils.SendBadRequestError(c, "Invalid filter", err.Error())
		return
	}

	requests, err := h.reportService.ListRequests(c.Request.Context(), filter)
	if err != nil {
		h.logger.WithError(err).Error("Failed to list requests")
		utils.SendInternalServerError(c, "Failed to list requests", err.Error())
		return
	}

	utils.SendOKResponse(c, gin.H{"requests": requests, "count": len(requests)})
}

// Stats handles GET /api/v1/requests/stats
func (h *ReportHandler) Stats(c *gin.Context) {
	stats, err := h.reportService.Stats(c.Request.Context())
	if err != nil {
		h.logger.WithError(err).Error("Failed to compute request stats")
		utils.SendInternalServerError(c, "Failed to compute stats", err.Error())
		return
	}

	utils.SendOKResponse(c, stats)
}

// StaleCount handles GET /api/v1/requests/stale-count
func (h *ReportHandler) StaleCount(c *gin.Context) {
	olderThan := h.staleAfterDays
	if days := c.Query("olderThanDays"); days != "" {
		parsed, err := strconv.Atoi(days)
		if err != nil || parsed < 1 {
			utils.SendBadRequestError(c, "Invalid olderThanDays", days)
			return
		}
		olderThan = parsed
	}

	count, err := h.reportService.CountStale(c.Request.Context(), olderThan)
	if err != nil {
		h.logger.WithError(err).Error("Failed to count stale requests")
		utils.SendInternalServerError(c, "Failed to count stale requests", err.Error())
		return
	}

	utils.SendOKResponse(c, gin.H{"olderThanDays": olderThan, "count": count})
}

// ExportEvidence handles GET /api/v1/requests/export
func (h *ReportHandler) ExportEvidence(c *gin.Context) {
	filter, err := parseRequestFilter(c)
	if err != nil {
		utils.SendBadRequestError(c, "Invalid filter", err.Error())
		return
	}

	c.Header("Content-Type", "text/csv; charset=utf-8")
	c.Header("Content-Disposition", `attachment; filename="habeas_evidencia.csv"`)

	if err := h.reportService.WriteEvidenceCSV(c.Request.Context(), c.Writer, filter); err != nil {
		// Headers may already be out; log and abort the stream.
		h.logger.WithError(err).Error("Failed to export evidence CSV")
		c.Abort()
	}
}
