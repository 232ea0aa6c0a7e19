package handler

import (
	"context"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"sofdesk/internal/config"
	"sofdesk/internal/domain"
)

// SubmissionHandler handles the upload slots and the submit action.
type SubmissionHandler struct {
	maxBytes int64
}

// NewSubmissionHandler creates a new SubmissionHandler.
func NewSubmissionHandler(cfg *config.UploadConfig) *SubmissionHandler {
	return &SubmissionHandler{maxBytes: cfg.MaxBytes()}
}

// SubmitResponse is returned by a successful submit. Handoff is the token to
// pass when entering the results view.
type SubmitResponse struct {
	Handoff string `json:"handoff"`
	Count   int    `json:"count"`
	Message string `json:"message,omitempty"`
}

// Status handles GET /api/v1/submission
func (h *SubmissionHandler) Status(c *gin.Context) {
	sess, ok := extractSession(c)
	if !ok {
		return
	}
	RespondOK(c, sess.Submission.View())
}

// SelectFile handles PUT /api/v1/submission/slots/:slot
func (h *SubmissionHandler) SelectFile(c *gin.Context) {
	sess, ok := extractSession(c)
	if !ok {
		return
	}
	role := domain.SlotRole(c.Param("slot"))
	if _, known := domain.PolicyFor(role); !known {
		HandleError(c, domain.ErrUnknownSlot)
		return
	}

	file, header, err := c.Request.FormFile("file")
	if err != nil {
		RespondError(c, http.StatusBadRequest, "MISSING_FILE", "file field is required")
		return
	}
	defer func() { _ = file.Close() }()

	if h.maxBytes > 0 && header.Size > h.maxBytes {
		HandleError(c, domain.ErrFileTooLarge)
		return
	}
	var reader io.Reader = file
	if h.maxBytes > 0 {
		reader = io.LimitReader(file, h.maxBytes+1)
	}
	content, err := io.ReadAll(reader)
	if err != nil {
		RespondError(c, http.StatusBadRequest, "UNREADABLE_FILE", "could not read uploaded file")
		return
	}
	if h.maxBytes > 0 && int64(len(content)) > h.maxBytes {
		HandleError(c, domain.ErrFileTooLarge)
		return
	}

	selected := &domain.SelectedFile{
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Content:     content,
	}
	if err := sess.Submission.Select(role, selected); err != nil {
		HandleError(c, err)
		return
	}
	RespondOK(c, sess.Submission.View())
}

// ClearSlot handles DELETE /api/v1/submission/slots/:slot
func (h *SubmissionHandler) ClearSlot(c *gin.Context) {
	sess, ok := extractSession(c)
	if !ok {
		return
	}
	if err := sess.Submission.Select(domain.SlotRole(c.Param("slot")), nil); err != nil {
		HandleError(c, err)
		return
	}
	RespondOK(c, sess.Submission.View())
}

// DismissMessage handles DELETE /api/v1/submission/message
func (h *SubmissionHandler) DismissMessage(c *gin.Context) {
	sess, ok := extractSession(c)
	if !ok {
		return
	}
	sess.Submission.DismissMessage()
	RespondOK(c, sess.Submission.View())
}

// Submit handles POST /api/v1/submission
func (h *SubmissionHandler) Submit(c *gin.Context) {
	sess, ok := extractSession(c)
	if !ok {
		return
	}

	// A client that disconnects mid-request must not leave the controller
	// stuck in submitting.
	ctx := context.WithoutCancel(c.Request.Context())
	outcome, err := sess.Submission.Submit(ctx)
	if err != nil {
		HandleError(c, err)
		return
	}

	sess.OfferHandoff(outcome.Handoff)
	RespondOK(c, SubmitResponse{
		Handoff: outcome.Handoff.Token(),
		Count:   outcome.Handoff.Len(),
		Message: outcome.Message,
	})
}
