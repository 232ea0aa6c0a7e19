package service

import (
	"bytes"
	"context"
	"fmt"
	"log"

	"github.com/google/uuid"

	"sofdesk/internal/config"
	"sofdesk/internal/domain"
	"sofdesk/internal/export"
	"sofdesk/internal/port"
)

// ExportArtifact is a generated download.
type ExportArtifact struct {
	Filename    string
	ContentType string
	Body        []byte
	ArchiveURL  string
}

// ExportService defines the export contract.
type ExportService interface {
	Export(ctx context.Context, sessionID uuid.UUID, records []*domain.Record, format domain.ExportFormat) (*ExportArtifact, error)
}

type exportService struct {
	storage       port.ObjectStorage
	cfg           config.ExportConfig
	presignExpiry int64
}

// NewExportService creates a new ExportService. Every artifact is also handed
// to storage; with the noop storage nothing is archived.
func NewExportService(storage port.ObjectStorage, cfg config.ExportConfig, presignExpiry int64) ExportService {
	return &exportService{
		storage:       storage,
		cfg:           cfg,
		presignExpiry: presignExpiry,
	}
}

// Export serializes records in the requested format. The CSV and JSON bodies
// depend only on records, so exporting an unchanged set twice yields the same
// bytes. Archiving is best effort and never fails the export.
func (s *exportService) Export(ctx context.Context, sessionID uuid.UUID, records []*domain.Record, format domain.ExportFormat) (*ExportArtifact, error) {
	contentType, ok := domain.ExportContentTypes[format]
	if !ok {
		return nil, domain.ErrUnsupportedExportType
	}
	if len(records) == 0 {
		return nil, domain.ErrEmptyExport
	}

	var buf bytes.Buffer
	var err error
	switch format {
	case domain.ExportCSV:
		buf.Write(export.BOM)
		err = export.WriteDelimited(&buf, records)
	case domain.ExportJSON:
		err = export.WriteStructured(&buf, records)
	case domain.ExportXLSX:
		err = export.WriteWorkbook(&buf, records)
	}
	if err != nil {
		return nil, fmt.Errorf("writing %s export: %w", format, err)
	}

	artifact := &ExportArtifact{
		Filename:    export.BuildFilename(s.cfg.BaseFilename, format),
		ContentType: contentType,
		Body:        buf.Bytes(),
	}
	artifact.ArchiveURL = s.archive(ctx, sessionID, artifact)
	return artifact, nil
}

func (s *exportService) archive(ctx context.Context, sessionID uuid.UUID, artifact *ExportArtifact) string {
	if s.storage == nil {
		return ""
	}
	key := fmt.Sprintf("exports/%s/%s/%s", sessionID, uuid.New(), artifact.Filename)
	_, err := s.storage.Upload(ctx, port.UploadInput{
		Key:         key,
		Body:        bytes.NewReader(artifact.Body),
		ContentType: artifact.ContentType,
		Size:        int64(len(artifact.Body)),
	})
	if err != nil {
		log.Printf("exportService.Export: archive upload failed for %s: %v", key, err)
		return ""
	}
	url, err := s.storage.GetPresignedURL(ctx, key, s.presignExpiry)
	if err != nil {
		log.Printf("exportService.Export: presign failed for %s: %v", key, err)
		return ""
	}
	return url
}
