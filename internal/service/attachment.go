package service

import (
	"context"

	"github.com/sinkapp/sink/internal/storage"
)

// Presigner hands out direct upload and download URLs.
type Presigner interface {
	PresignUpload(ctx context.Context, code, filename, contentType string, size int64) (*storage.Upload, error)
	PresignDownload(ctx context.Context, key string) (string, error)
}

// AttachmentService issues presigned URLs for apartment attachments.
type AttachmentService struct {
	presigner Presigner
}

// NewAttachmentService creates an AttachmentService. A nil presigner
// disables attachments.
func NewAttachmentService(presigner Presigner) *AttachmentService {
	return &AttachmentService{presigner: presigner}
}

// Enabled reports whether an object store is configured.
func (s *AttachmentService) Enabled() bool {
	return s.presigner != nil
}

// UploadInput describes a file the client wants to upload.
type UploadInput struct {
	Filename    string
	ContentType string
	Size        int64
}

// PresignUpload returns a presigned PUT under the apartment's prefix.
func (s *AttachmentService) PresignUpload(ctx context.Context, code string, input UploadInput) (*storage.Upload, error) {
	if !s.Enabled() {
		return nil, ErrAttachmentsDisabled
	}
	return s.presigner.PresignUpload(ctx, code, input.Filename, input.ContentType, input.Size)
}

// DownloadURL returns a presigned GET for a key of the apartment.
func (s *AttachmentService) DownloadURL(ctx context.Context, code, key string) (string, error) {
	if !s.Enabled() {
		return "", ErrAttachmentsDisabled
	}
	if err := checkAttachmentKey(key, code); err != nil || key == "" {
		return "", ErrForeignAttachment
	}
	return s.presigner.PresignDownload(ctx, key)
}
