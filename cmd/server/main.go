package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"sofdesk/internal/config"
	"sofdesk/internal/extraction"
	"sofdesk/internal/handler"
	"sofdesk/internal/port"
	"sofdesk/internal/router"
	"sofdesk/internal/service"
	"sofdesk/internal/storage/noop"
	s3storage "sofdesk/internal/storage/s3"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if cfg.Log.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize export archive
	var storage port.ObjectStorage
	switch cfg.Export.ArchiveProvider {
	case "s3":
		storage, err = s3storage.NewS3Client(ctx, &cfg.S3)
		if err != nil {
			return fmt.Errorf("failed to initialize S3 client: %w", err)
		}
		log.Printf("Export archive: s3 bucket %s", cfg.S3.Bucket)
	default:
		storage = noop.NewNoopStorage()
		log.Printf("Export archive: disabled (noop)")
	}

	// Initialize services
	extractor := extraction.NewClient(&cfg.Extraction)
	sessionSvc := service.NewSessionService(extractor, cfg.Session)
	exportSvc := service.NewExportService(storage, cfg.Export, cfg.S3.PresignExpiry)

	// Initialize handlers
	sessionH := handler.NewSessionHandler(sessionSvc, cfg.Session)
	submissionH := handler.NewSubmissionHandler(&cfg.Upload)
	resultsH := handler.NewResultsHandler(exportSvc)
	healthH := handler.NewHealthHandler(cfg, sessionSvc)

	r := router.Setup(cfg, sessionSvc, sessionH, submissionH, resultsH, healthH)

	// Start session janitor
	janitorCtx, cancelJanitor := context.WithCancel(context.Background())
	janitor := service.NewSessionJanitor(sessionSvc, cfg.Session.SweepInterval)
	go janitor.Start(janitorCtx)
	defer cancelJanitor()

	srv := &http.Server{
		Addr:              cfg.Server.Port,
		Handler:           r,
		ReadTimeout:       cfg.Server.ReadTimeout,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("Server starting on %s (extraction endpoint %s)", cfg.Server.Port, cfg.Extraction.Endpoint())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Printf("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	log.Printf("Server stopped")
	return nil
}
