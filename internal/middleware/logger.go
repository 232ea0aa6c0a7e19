package middleware

import (
	"encoding/json"
	"log"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// RequestID injects an X-Request-ID header into the request and response.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = uuid.New().String()
		}
		c.Set("request_id", requestID)
		c.Header("X-Request-ID", requestID)
		c.Next()
	}
}

// LogFormatJSON selects one JSON object per request line.
const LogFormatJSON = "json"

type requestLogLine struct {
	RequestID string `json:"request_id"`
	Method    string `json:"method"`
	Path      string `json:"path"`
	Status    int    `json:"status"`
	LatencyMS int64  `json:"latency_ms"`
	SessionID string `json:"session_id"`
}

// Logger logs each HTTP request with method, path, status and latency, plus
// the session it ran under when one was resolved. format is "console" or
// "json".
func Logger(format string) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		latency := time.Since(start)

		requestID := c.GetString("request_id")
		sessionID := "-"
		if sess, err := GetSession(c); err == nil {
			sessionID = sess.ID.String()
		}

		if format == LogFormatJSON {
			line, err := json.Marshal(requestLogLine{
				RequestID: requestID,
				Method:    c.Request.Method,
				Path:      c.Request.URL.Path,
				Status:    c.Writer.Status(),
				LatencyMS: latency.Milliseconds(),
				SessionID: sessionID,
			})
			if err == nil {
				log.Print(string(line))
				return
			}
		}

		log.Printf("[%s] %s %s %d %s session=%s",
			requestID,
			c.Request.Method,
			c.Request.URL.Path,
			c.Writer.Status(),
			latency,
			sessionID,
		)
	}
}

// Recovery recovers from panics and returns a 500 error.
func Recovery() gin.HandlerFunc {
	return gin.Recovery()
}
