package handlers

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/habeasdata/consent-campaigns/internal/gateway"
	"github.com/habeasdata/consent-campaigns/internal/models"
	"github.com/habeasdata/consent-campaigns/internal/service"
	"github.com/habeasdata/consent-campaigns/internal/utils"
)

// DispatchHandler exposes the operator-facing dispatch actions: the bulk
// campaign send, pending and stale resends, and the single test send.
type DispatchHandler struct {
	dispatchService *service.DispatchService
	staleAfterDays  int
	logger          *logrus.Logger
}

// NewDispatchHandler creates a new dispatch handler instance
func NewDispatchHandler(dispatchService *service.DispatchService, staleAfterDays int, logger *logrus.Logger) *DispatchHandler {
	return &DispatchHandler{
		dispatchService: dispatchService,
		staleAfterDays:  staleAfterDays,
		logger:          logger,
	}
}

// dispatchRequest is the JSON body of a bulk dispatch.
type dispatchRequest struct {
	CampaignName string             `json:"campaignName" binding:"required"`
	Recipients   []models.Recipient `json:"recipients"`
	Template     string             `json:"template"`
	ValidityDays int                `json:"validityDays"`
}

// resendRequest is the JSON body of the resend actions.
type resendRequest struct {
	Template string `json:"template"`
	// OlderThanDays applies to the stale resend only.
	OlderThanDays int `json:"olderThanDays"`
}

// testSendRequest is the JSON body of a single test send.
type testSendRequest struct {
	Phone    string `json:"phone" binding:"required"`
	Name     string `json:"name" binding:"required"`
	Template string `json:"template"`
}

// Dispatch handles POST /api/v1/campaigns/dispatch. Recipients come either
// from the JSON body or from an uploaded CSV file with phone, name and
// optional language columns.
func (h *DispatchHandler) Dispatch(c *gin.Context) {
	var req dispatchRequest

	if strings.HasPrefix(c.ContentType(), "multipart/form-data") {
		req.CampaignName = c.PostForm("campaignName")
		req.Template = c.PostForm("template")
		if days := c.PostForm("validityDays"); days != "" {
			if _, err := fmt.Sscanf(days, "%d", &req.ValidityDays); err != nil {
				utils.SendBadRequestError(c, "Invalid validityDays", days)
				return
			}
		}
		if req.CampaignName == "" {
			utils.SendValidationError(c, "campaignName is required")
			return
		}

		file, _, err := c.Request.FormFile("file")
		if err != nil {
			utils.SendBadRequestError(c, "Recipient CSV file is required", err.Error())
			return
		}
		defer file.Close()

		req.Recipients, err = parseRecipientCSV(file)
		if err != nil {
			utils.SendBadRequestError(c, "Failed to parse recipient CSV", err.Error())
			return
		}
	} else {
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.SendBadRequestError(c, "Invalid request body", err.Error())
			return
		}
	}

	if len(req.Recipients) == 0 {
		utils.SendValidationError(c, "at least one recipient is required")
		return
	}
	if req.ValidityDays < 0 || req.ValidityDays > 365 {
		utils.SendValidationError(c, "validityDays must be between 1 and 365")
		return
	}

	template := templateOrDefault(req.Template)
	if err := gateway.ValidateTemplate(template); err != nil {
		utils.SendErrorResponse(c, 400, models.ErrCodeTemplateError, "Invalid message template", err.Error())
		return
	}

	result, err := h.dispatchService.RunInitial(c.Request.Context(), req.CampaignName, req.Recipients, template, req.ValidityDays)
	if err != nil {
		h.sendDispatchError(c, err)
		return
	}

	utils.SendOKResponse(c, result)
}

// ResendPending handles POST /api/v1/campaigns/resend-pending
func (h *DispatchHandler) ResendPending(c *gin.Context) {
	var req resendRequest
	if err := c.ShouldBindJSON(&req); err != nil && err != io.EOF {
		utils.SendBadRequestError(c, "Invalid request body", err.Error())
		return
	}

	filter, err := parseRequestFilter(c)
	if err != nil {
		utils.SendBadRequestError(c, "Invalid filter", err.Error())
		return
	}

	result, err := h.dispatchService.ResendPending(c.Request.Context(), filter, templateOrDefault(req.Template))
	if err != nil {
		h.sendDispatchError(c, err)
		return
	}

	utils.SendOKResponse(c, result)
}

// ResendStale handles POST /api/v1/campaigns/resend-stale
func (h *DispatchHandler) ResendStale(c *gin.Context) {
	var req resendRequest
	if err := c.ShouldBindJSON(&req); err != nil && err != io.EOF {
		utils.SendBadRequestError(c, "Invalid request body", err.Error())
		return
	}

	olderThan := req.OlderThanDays
	if olderThan <= 0 {
		olderThan = h.staleAfterDays
	}

	result, err := h.dispatchService.ResendStale(c.Request.Context(), olderThan, templateOrDefault(req.Template))
	if err != nil {
		h.sendDispatchError(c, err)
		return
	}

	utils.SendOKResponse(c, result)
}

// TestSend handles POST /api/v1/messages/test
func (h *DispatchHandler) TestSend(c *gin.Context) {
	var req testSendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.SendBadRequestError(c, "Invalid request body", err.Error())
		return
	}

	template := templateOrDefault(req.Template)
	if err := gateway.ValidateTemplate(template); err != nil {
		utils.SendErrorResponse(c, 400, models.ErrCodeTemplateError, "Invalid message template", err.Error())
		return
	}

	outcome, err := h.dispatchService.RunTestSend(c.Request.Context(), req.Phone, req.Name, template)
	if err != nil {
		h.sendDispatchError(c, err)
		return
	}

	utils.SendOKResponse(c, outcome)
}

func (h *DispatchHandler) sendDispatchError(c *gin.Context, err error) {
	if errors.Is(err, models.ErrNoCurrentTerms) {
		utils.SendPreconditionError(c, models.ErrCodeNoCurrentTerms,
			"No current legal terms version; register one before sending")
		return
	}
	h.logger.WithError(err).Error("Dispatch pass failed")
	utils.SendInternalServerError(c, "Dispatch failed", err.Error())
}

func templateOrDefault(template string) string {
	if strings.TrimSpace(template) == "" {
		return gateway.DefaultTemplate
	}
	return template
}

// parseRecipientCSV reads a recipient list with required phone and name
// columns and an optional language column.
func parseRecipientCSV(r io.Reader) ([]models.Recipient, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}

	columns := make(map[string]int, len(header))
	for i, name := range header {
		columns[strings.ToLower(strings.TrimSpace(name))] = i
	}

	phoneIdx, ok := columns["phone"]
	if !ok {
		return nil, fmt.Errorf("CSV must have a 'phone' column")
	}
	nameIdx, ok := columns["name"]
	if !ok {
		return nil, fmt.Errorf("CSV must have a 'name' column")
	}
	languageIdx, hasLanguage := columns["language"]

	var recipients []models.Recipient
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read CSV record: %w", err)
		}

		recipient := models.Recipient{
			Phone: strings.TrimSpace(record[phoneIdx]),
			Name:  strings.TrimSpace(record[nameIdx]),
		}
		if hasLanguage && languageIdx < len(record) {
			recipient.Language = strings.TrimSpace(record[languageIdx])
		}
		if recipient.Phone == "" || recipient.Name == "" {
			continue
		}
		recipients = append(recipients, recipient)
	}

	return recipients, nil
}
