package noop

import (
	"context"
	"log"

	"sofdesk/internal/port"
)

type noopStorage struct{}

// NewNoopStorage creates an ObjectStorage that archives nothing and only logs
// what it would have stored.
func NewNoopStorage() port.ObjectStorage {
	return &noopStorage{}
}

func (s *noopStorage) Upload(_ context.Context, input port.UploadInput) (*port.UploadOutput, error) {
	log.Printf("[NOOP STORAGE] skipping archive of %s (%s, %d bytes)", input.Key, input.ContentType, input.Size)
	return &port.UploadOutput{}, nil
}

func (s *noopStorage) GetPresignedURL(_ context.Context, _ string, _ int64) (string, error) {
	return "", nil
}
