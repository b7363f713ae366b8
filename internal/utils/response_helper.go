package utils

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/habeasdata/consent-campaigns/internal/models"
)

// SendErrorResponse sends an error JSON response
func SendErrorResponse(c *gin.Context, statusCode int, errCode, message, details string) {
	c.JSON(statusCode, models.ErrorResponse{
		Code:    errCode,
		Message: message,
		Details: details,
	})
}

// SendOKResponse sends a 200 OK response
func SendOKResponse(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, data)
}

// SendCreatedResponse sends a 201 Created response
func SendCreatedResponse(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, data)
}

// SendBadRequestError sends a 400 Bad Request error
func SendBadRequestError(c *gin.Context, message, details string) {
	SendErrorResponse(c, http.StatusBadRequest, models.ErrCodeBadRequest, message, details)
}

// SendValidationError sends a validation error response
func SendValidationError(c *gin.Context, details string) {
	SendErrorResponse(c, http.StatusBadRequest, models.ErrCodeValidationError, "Validation failed", details)
}

// SendNotFoundError sends a 404 Not Found error
func SendNotFoundError(c *gin.Context, message string) {
	SendErrorResponse(c, http.StatusNotFound, models.ErrCodeNotFound, message, "")
}

// SendConflictError sends a 409 Conflict error
func SendConflictError(c *gin.Context, message string) {
	SendErrorResponse(c, http.StatusConflict, models.ErrCodeConflict, message, "")
}

// SendPreconditionError sends a 412 Precondition Failed error
func SendPreconditionError(c *gin.Context, errCode, message string) {
	SendErrorResponse(c, http.StatusPreconditionFailed, errCode, message, "")
}

// SendInternalServerError sends a 500 Internal Server Error
func SendInternalServerError(c *gin.Context, message, details string) {
	SendErrorResponse(c, http.StatusInternalServerError, models.ErrCodeInternalError, message, details)
}
