package handler

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"sofdesk/internal/domain"
	"sofdesk/internal/service"
)

// ResultsHandler handles the results view: listing, editing, deleting and
// exporting the records of the session's current result set.
type ResultsHandler struct {
	exports service.ExportService
}

// NewResultsHandler creates a new ResultsHandler.
func NewResultsHandler(exports service.ExportService) *ResultsHandler {
	return &ResultsHandler{exports: exports}
}

// ResultsPayload is the rendered results view.
type ResultsPayload struct {
	Identity domain.Identity `json:"identity"`
	service.ResultView
}

// EditRequest sets one field of the edit buffer.
type EditRequest struct {
	Field string  `json:"field" binding:"required"`
	Value *string `json:"value" binding:"required"`
}

func respondResults(c *gin.Context, sess *service.Session, store *service.ResultStore) {
	view := store.View()
	RespondWithMeta(c, ResultsPayload{Identity: sess.Identity, ResultView: view}, Meta{Total: len(view.Records)})
}

// Enter handles GET /api/v1/results?handoff=
func (h *ResultsHandler) Enter(c *gin.Context) {
	sess, ok := extractSession(c)
	if !ok {
		return
	}
	store := sess.EnterResults(c.Query("handoff"))
	respondResults(c, sess, store)
}

// Current handles GET /api/v1/results/current
func (h *ResultsHandler) Current(c *gin.Context) {
	sess, ok := extractSession(c)
	if !ok {
		return
	}
	respondResults(c, sess, sess.Results())
}

// BeginEdit handles POST /api/v1/results/records/:id/edit
func (h *ResultsHandler) BeginEdit(c *gin.Context) {
	sess, ok := extractSession(c)
	if !ok {
		return
	}
	buf, err := sess.Results().BeginEdit(c.Param("id"))
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondOK(c, buf)
}

// GetEdit handles GET /api/v1/results/edit
func (h *ResultsHandler) GetEdit(c *gin.Context) {
	sess, ok := extractSession(c)
	if !ok {
		return
	}
	buf, editing := sess.Results().EditBuffer()
	if !editing {
		HandleError(c, domain.ErrNoActiveEdit)
		return
	}
	RespondOK(c, buf)
}

// UpdateEdit handles PATCH /api/v1/results/edit
func (h *ResultsHandler) UpdateEdit(c *gin.Context) {
	sess, ok := extractSession(c)
	if !ok {
		return
	}
	var req EditRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		return
	}
	buf, err := sess.Results().UpdateBuffer(req.Field, *req.Value)
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondOK(c, buf)
}

// CommitEdit handles POST /api/v1/results/edit/commit
func (h *ResultsHandler) CommitEdit(c *gin.Context) {
	sess, ok := extractSession(c)
	if !ok {
		return
	}
	store := sess.Results()
	replaced, err := store.CommitEdit()
	if err != nil {
		HandleError(c, err)
		return
	}
	if !replaced {
		c.Header("X-Edit-Discarded", "true")
	}
	respondResults(c, sess, store)
}

// CancelEdit handles DELETE /api/v1/results/edit
func (h *ResultsHandler) CancelEdit(c *gin.Context) {
	sess, ok := extractSession(c)
	if !ok {
		return
	}
	store := sess.Results()
	store.CancelEdit()
	respondResults(c, sess, store)
}

// Delete handles DELETE /api/v1/results/records/:id. Deleting an unknown id
// succeeds without changing anything.
func (h *ResultsHandler) Delete(c *gin.Context) {
	sess, ok := extractSession(c)
	if !ok {
		return
	}
	store := sess.Results()
	store.Delete(c.Param("id"))
	respondResults(c, sess, store)
}

// ClearAll handles DELETE /api/v1/results?confirm=true
func (h *ResultsHandler) ClearAll(c *gin.Context) {
	sess, ok := extractSession(c)
	if !ok {
		return
	}
	confirmed, _ := strconv.ParseBool(c.DefaultQuery("confirm", "false"))
	store := sess.Results()
	if err := store.ClearAll(confirmed); err != nil {
		HandleError(c, err)
		return
	}
	respondResults(c, sess, store)
}

// Export handles GET /api/v1/results/export/:format
func (h *ResultsHandler) Export(c *gin.Context) {
	sess, ok := extractSession(c)
	if !ok {
		return
	}
	format := domain.ExportFormat(c.Param("format"))
	artifact, err := h.exports.Export(c.Request.Context(), sess.ID, sess.Results().Records(), format)
	if err != nil {
		HandleError(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, artifact.Filename))
	if artifact.ArchiveURL != "" {
		c.Header("X-Export-Archive-URL", artifact.ArchiveURL)
	}
	c.Data(http.StatusOK, artifact.ContentType, artifact.Body)
}
