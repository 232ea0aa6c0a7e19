package router

import (
	"github.com/gin-gonic/gin"

	"sofdesk/internal/config"
	"sofdesk/internal/handler"
	"sofdesk/internal/middleware"
	"sofdesk/internal/service"
)

// Setup configures the Gin engine with all routes and middleware.
func Setup(
	cfg *config.Config,
	sessionSvc service.SessionService,
	sessionH *handler.SessionHandler,
	submissionH *handler.SubmissionHandler,
	resultsH *handler.ResultsHandler,
	healthH *handler.HealthHandler,
) *gin.Engine {
	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery())
	r.Use(middleware.CORS(cfg.CORS.AllowedOrigins))
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(cfg.Log.Format))

	// Multipart bodies above this are spooled to disk by the std parser.
	r.MaxMultipartMemory = cfg.Upload.MaxBytes()

	// Health checks
	r.GET("/healthz", healthH.Liveness)
	r.GET("/readyz", healthH.Readiness)

	v1 := r.Group("/api/v1")

	// Public: stand-in sign-in
	v1.POST("/session", sessionH.Start)

	// Protected routes - require a live session
	protected := v1.Group("")
	protected.Use(middleware.SessionAuth(sessionSvc, cfg.Session.CookieName))

	protected.GET("/session", sessionH.Me)
	protected.DELETE("/session", sessionH.End)

	// Submission (upload view)
	submission := protected.Group("/submission")
	submission.GET("", submissionH.Status)
	submission.POST("", submissionH.Submit)
	submission.PUT("/slots/:slot", submissionH.SelectFile)
	submission.DELETE("/slots/:slot", submissionH.ClearSlot)
	submission.DELETE("/message", submissionH.DismissMessage)

	// Results view
	results := protected.Group("/results")
	results.GET("", resultsH.Enter)
	results.DELETE("", resultsH.ClearAll)
	results.GET("/current", resultsH.Current)
	results.POST("/records/:id/edit", resultsH.BeginEdit)
	results.DELETE("/records/:id", resultsH.Delete)
	results.GET("/edit", resultsH.GetEdit)
	results.PATCH("/edit", resultsH.UpdateEdit)
	results.DELETE("/edit", resultsH.CancelEdit)
	results.POST("/edit/commit", resultsH.CommitEdit)
	results.GET("/export/:format", resultsH.Export)

	return r
}
