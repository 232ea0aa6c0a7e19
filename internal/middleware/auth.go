package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"sofdesk/internal/domain"
	"sofdesk/internal/service"
)

const (
	ContextKeySession = "session"
	ContextKeyEmail   = "email"
)

// SessionAuth returns Gin middleware that resolves the session token from the
// Authorization header or, failing that, the session cookie, and injects the
// session into the context.
func SessionAuth(sessions service.SessionService, cookieName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" && cookieName != "" {
			token, _ = c.Cookie(cookieName)
		}
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"error":   gin.H{"code": "UNAUTHORIZED", "message": "missing session token"},
			})
			return
		}

		sess, err := sessions.Resolve(token)
		if err != nil {
			msg := "invalid or expired session token"
			if errors.Is(err, domain.ErrSessionNotFound) {
				msg = "session not found or expired"
			}
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"error":   gin.H{"code": "UNAUTHORIZED", "message": msg},
			})
			return
		}

		c.Set(ContextKeySession, sess)
		c.Set(ContextKeyEmail, sess.Identity.Email)
		c.Next()
	}
}

func bearerToken(c *gin.Context) string {
	authHeader := c.GetHeader("Authorization")
	if !strings.HasPrefix(authHeader, "Bearer ") {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
}

// GetSession extracts the session from the Gin context.
func GetSession(c *gin.Context) (*service.Session, error) {
	val, exists := c.Get(ContextKeySession)
	if !exists {
		return nil, domain.ErrUnauthorized
	}
	sess, ok := val.(*service.Session)
	if !ok {
		return nil, domain.ErrUnauthorized
	}
	return sess, nil
}
