package models

import "errors"

// ErrorResponse represents a standard error response
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// NewErrorResponse creates a new error response
func NewErrorResponse(code, message, details string) *ErrorResponse {
	return &ErrorResponse{
		Code:    code,
		Message: message,
		Details: details,
	}
}

// Common error codes
const (
	ErrCodeBadRequest      = "BAD_REQUEST"
	ErrCodeNotFound        = "NOT_FOUND"
	ErrCodeConflict        = "CONFLICT"
	ErrCodeInternalError   = "INTERNAL_ERROR"
	ErrCodeDatabaseError   = "DATABASE_ERROR"
	ErrCodeValidationError = "VALIDATION_ERROR"
	ErrCodeNoCurrentTerms  = "NO_CURRENT_TERMS"
	ErrCodeTemplateError   = "TEMPLATE_ERROR"
	ErrCodeGatewayError    = "GATEWAY_ERROR"
)

// Sentinel errors surfaced by the store layer.
var (
	// ErrNoCurrentTerms blocks any enrollment: no legal terms version is
	// currently valid, so no consent link may be issued.
	ErrNoCurrentTerms = errors.New("no current legal terms version")

	// ErrRequestNotFound means no consent request matches the given token or id.
	ErrRequestNotFound = errors.New("consent request not found")

	// ErrInvalidTransition means the guarded status update matched no row,
	// i.e. the request was not in a state the transition is allowed from.
	ErrInvalidTransition = errors.New("invalid consent status transition")
)

// SuccessResponse represents a standard success response
type SuccessResponse struct {
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// NewSuccessResponse creates a new success response
func NewSuccessResponse(message string, data interface{}) *SuccessResponse {
	return &SuccessResponse{
		Message: message,
		Data:    data,
	}
}
