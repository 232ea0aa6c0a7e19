package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"sofdesk/internal/config"
	"sofdesk/internal/service"
)

// SessionHandler handles the stand-in sign-in and session endpoints.
type SessionHandler struct {
	sessions service.SessionService
	cfg      config.SessionConfig
}

// NewSessionHandler creates a new SessionHandler.
func NewSessionHandler(sessions service.SessionService, cfg config.SessionConfig) *SessionHandler {
	return &SessionHandler{sessions: sessions, cfg: cfg}
}

// Start handles POST /api/v1/session
func (h *SessionHandler) Start(c *gin.Context) {
	var input service.StartInput
	if err := c.ShouldBindJSON(&input); err != nil {
		RespondError(c, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		return
	}

	sess, token, err := h.sessions.Start(c.Request.Context(), input)
	if err != nil {
		HandleError(c, err)
		return
	}

	maxAge := int(time.Until(token.ExpiresAt).Seconds())
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(h.cfg.CookieName, token.Token, maxAge, "/", "", h.cfg.CookieSecure, true)

	RespondCreated(c, gin.H{
		"session": sess.Info(h.sessions.IdleTTL()),
		"token":   token,
	})
}

// Me handles GET /api/v1/session
func (h *SessionHandler) Me(c *gin.Context) {
	sess, ok := extractSession(c)
	if !ok {
		return
	}
	RespondOK(c, sess.Info(h.sessions.IdleTTL()))
}

// End handles DELETE /api/v1/session
func (h *SessionHandler) End(c *gin.Context) {
	sess, ok := extractSession(c)
	if !ok {
		return
	}
	h.sessions.End(sess.ID)
	c.SetCookie(h.cfg.CookieName, "", -1, "/", "", h.cfg.CookieSecure, true)
	RespondOK(c, gin.H{"message": "session ended"})
}
