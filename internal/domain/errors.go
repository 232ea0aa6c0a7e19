package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrUnauthorized          = errors.New("unauthorized")
	ErrSessionNotFound       = errors.New("session not found or expired")
	ErrUnknownSlot           = errors.New("unknown file slot")
	ErrMissingRequiredFile   = errors.New("please upload the Statement of Facts file")
	ErrFileTooLarge          = errors.New("file exceeds maximum allowed size")
	ErrSubmissionInProgress  = errors.New("a submission is already in progress")
	ErrServiceUnreachable    = errors.New("extraction service unreachable")
	ErrMalformedResponse     = errors.New("extraction service returned a malformed response")
	ErrRecordNotFound        = errors.New("record not found")
	ErrNoActiveEdit          = errors.New("no edit in progress")
	ErrImmutableField        = errors.New("the id field cannot be edited")
	ErrUnknownField          = errors.New("record has no such field")
	ErrConfirmationRequired  = errors.New("clearing all records requires confirmation")
	ErrEmptyExport           = errors.New("nothing to export")
	ErrUnsupportedExportType = errors.New("unsupported export format")
)

// ValidationError reports a file whose extension is not allowed in its slot.
type ValidationError struct {
	Slot    SlotRole
	Label   string
	Allowed []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("Invalid file type for %s. Allowed: %s", e.Label, strings.Join(e.Allowed, ", "))
}

// ServiceError is a non-success response from the extraction service.
type ServiceError struct {
	Status int
	Detail string
}

func (e *ServiceError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("extraction service error (status %d)", e.Status)
	}
	return fmt.Sprintf("extraction service error (status %d): %s", e.Status, e.Detail)
}
