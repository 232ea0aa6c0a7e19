package port

import (
	"context"
	"io"
)

// UploadInput encapsulates the parameters needed to archive an export artifact.
type UploadInput struct {
	Key         string
	Body        io.Reader
	ContentType string
	Size        int64
}

// UploadOutput contains the result of a successful upload.
type UploadOutput struct {
	Location string
	ETag     string
}

// ObjectStorage abstracts the object store export artifacts are archived to.
type ObjectStorage interface {
	Upload(ctx context.Context, input UploadInput) (*UploadOutput, error)
	GetPresignedURL(ctx context.Context, key string, expirySeconds int64) (string, error)
}
