package handler

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"sofdesk/internal/domain"
	"sofdesk/internal/middleware"
	"sofdesk/internal/service"
)

// APIResponse is the standard envelope for all API responses.
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *APIError   `json:"error,omitempty"`
	Meta    *Meta       `json:"meta,omitempty"`
}

// APIError holds error details in the response.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Meta carries the result-set size alongside record listings.
type Meta struct {
	Total int `json:"total"`
}

// RespondOK sends a 200 success response.
func RespondOK(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, APIResponse{Success: true, Data: data})
}

// RespondCreated sends a 201 success response.
func RespondCreated(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, APIResponse{Success: true, Data: data})
}

// RespondWithMeta sends a 200 success response with result-set metadata.
func RespondWithMeta(c *gin.Context, data interface{}, meta Meta) {
	c.JSON(http.StatusOK, APIResponse{Success: true, Data: data, Meta: &meta})
}

// RespondError sends an error response with the given status code.
func RespondError(c *gin.Context, status int, code, msg string) {
	c.JSON(status, APIResponse{
		Success: false,
		Error:   &APIError{Code: code, Message: msg},
	})
}

// MapDomainError translates domain errors to HTTP status codes and error codes.
// Slot validation and extraction service failures carry their own message.
func MapDomainError(err error) (status int, code, msg string) {
	var vErr *domain.ValidationError
	var svcErr *domain.ServiceError
	switch {
	case errors.As(err, &vErr):
		return http.StatusBadRequest, "INVALID_FILE_TYPE", vErr.Error()
	case errors.As(err, &svcErr):
		return http.StatusBadGateway, "SERVICE_ERROR", svcErr.Error()
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized, "UNAUTHORIZED", "unauthorized"
	case errors.Is(err, domain.ErrSessionNotFound):
		return http.StatusUnauthorized, "SESSION_NOT_FOUND", "session not found or expired"
	case errors.Is(err, domain.ErrUnknownSlot):
		return http.StatusBadRequest, "UNKNOWN_SLOT", "unknown file slot; allowed: primary, secondary, supplementary"
	case errors.Is(err, domain.ErrMissingRequiredFile):
		return http.StatusBadRequest, "MISSING_REQUIRED_FILE", domain.ErrMissingRequiredFile.Error()
	case errors.Is(err, domain.ErrFileTooLarge):
		return http.StatusRequestEntityTooLarge, "FILE_TOO_LARGE", "file exceeds maximum allowed size"
	case errors.Is(err, domain.ErrSubmissionInProgress):
		return http.StatusConflict, "SUBMISSION_IN_PROGRESS", "a submission is already in progress"
	case errors.Is(err, domain.ErrServiceUnreachable):
		return http.StatusBadGateway, "SERVICE_UNREACHABLE", "the document processing service could not be reached"
	case errors.Is(err, domain.ErrMalformedResponse):
		return http.StatusBadGateway, "MALFORMED_RESPONSE", "the document processing service returned an unreadable response"
	case errors.Is(err, domain.ErrRecordNotFound):
		return http.StatusNotFound, "RECORD_NOT_FOUND", "record not found"
	case errors.Is(err, domain.ErrNoActiveEdit):
		return http.StatusConflict, "NO_ACTIVE_EDIT", "no record is being edited"
	case errors.Is(err, domain.ErrImmutableField):
		return http.StatusBadRequest, "IMMUTABLE_FIELD", "the id field cannot be edited"
	case errors.Is(err, domain.ErrUnknownField):
		return http.StatusBadRequest, "UNKNOWN_FIELD", "record has no such field"
	case errors.Is(err, domain.ErrConfirmationRequired):
		return http.StatusBadRequest, "CONFIRMATION_REQUIRED", "clearing all records requires confirmation"
	case errors.Is(err, domain.ErrEmptyExport):
		return http.StatusBadRequest, "EMPTY_EXPORT", "nothing to export"
	case errors.Is(err, domain.ErrUnsupportedExportType):
		return http.StatusBadRequest, "UNSUPPORTED_EXPORT_TYPE", "unsupported export format; allowed: csv, json, xlsx"
	default:
		return http.StatusInternalServerError, "INTERNAL_ERROR", "an internal error occurred"
	}
}

// extractSession returns the session resolved by the auth middleware.
// Returns false if it is missing (error response already written).
func extractSession(c *gin.Context) (*service.Session, bool) {
	sess, err := middleware.GetSession(c)
	if err != nil {
		RespondError(c, http.StatusUnauthorized, "UNAUTHORIZED", "missing session context")
		return nil, false
	}
	return sess, true
}

// HandleError maps a domain error and sends the appropriate error response.
func HandleError(c *gin.Context, err error) {
	status, code, msg := MapDomainError(err)
	if status >= 500 {
		requestID, _ := c.Get("request_id")
		log.Printf("[%s] %s error: %v", requestID, code, err)
	}
	RespondError(c, status, code, msg)
}
