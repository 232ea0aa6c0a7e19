package port

import (
	"context"

	"sofdesk/internal/domain"
)

// ExtractionResult is the decoded success envelope of the extraction service.
type ExtractionResult struct {
	Message string
	Records []*domain.Record
}

// Extractor submits documents to the remote extraction service. An
// implementation issues exactly one request per call and never retries.
type Extractor interface {
	Extract(ctx context.Context, req domain.SubmissionRequest) (*ExtractionResult, error)
}
