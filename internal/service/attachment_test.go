package service

import (
	"context"
	"errors"
	"testing"

	"github.com/sinkapp/sink/internal/storage"
)

type fakePresigner struct {
	uploads []string
}

func (f *fakePresigner) PresignUpload(ctx context.Context, code, filename, contentType string, size int64) (*storage.Upload, error) {
	if err := storage.ValidateAttachment(contentType, size); err != nil {
		return nil, err
	}
	key, err := storage.AttachmentKey(code, filename)
	if err != nil {
		return nil, err
	}
	f.uploads = append(f.uploads, key)
	return &storage.Upload{Key: key, URL: "https://s3.test/" + key, Method: "PUT", ContentType: contentType}, nil
}

func (f *fakePresigner) PresignDownload(ctx context.Context, key string) (string, error) {
	return "https://s3.test/" + key, nil
}

func TestAttachmentServiceDisabled(t *testing.T) {
	t.Parallel()

	svc := NewAttachmentService(nil)
	if svc.Enabled() {
		t.Fatal("Enabled() = true without a presigner")
	}
	if _, err := svc.PresignUpload(context.Background(), "AB12CD", UploadInput{Filename: "a.jpg", ContentType: "image/jpeg", Size: 10}); !errors.Is(err, ErrAttachmentsDisabled) {
		t.Errorf("PresignUpload() error = %v, want ErrAttachmentsDisabled", err)
	}
	if _, err := svc.DownloadURL(context.Background(), "AB12CD", "apartments/AB12CD/x"); !errors.Is(err, ErrAttachmentsDisabled) {
		t.Errorf("DownloadURL() error = %v, want ErrAttachmentsDisabled", err)
	}
}

func TestAttachmentServiceScopesKeys(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	svc := NewAttachmentService(&fakePresigner{})

	up, err := svc.PresignUpload(ctx, "AB12CD", UploadInput{Filename: "receipt.pdf", ContentType: "application/pdf", Size: 1024})
	if err != nil {
		t.Fatalf("PresignUpload() error = %v", err)
	}
	if !storage.KeyBelongsTo(up.Key, "AB12CD") {
		t.Errorf("key %q outside the apartment prefix", up.Key)
	}

	if _, err := svc.PresignUpload(ctx, "AB12CD", UploadInput{Filename: "big.png", ContentType: "image/png", Size: storage.MaxAttachmentSize + 1}); !errors.Is(err, storage.ErrTooLarge) {
		t.Errorf("oversized PresignUpload() error = %v, want ErrTooLarge", err)
	}

	if _, err := svc.DownloadURL(ctx, "AB12CD", up.Key); err != nil {
		t.Errorf("DownloadURL(own key) error = %v", err)
	}
	for _, key := range []string{"", "apartments/ZZ99ZZ/1-a.jpg", "apartments/AB12CD/../ZZ99ZZ/a.jpg"} {
		if _, err := svc.DownloadURL(ctx, "AB12CD", key); !errors.Is(err, ErrForeignAttachment) {
			t.Errorf("DownloadURL(%q) error = %v, want ErrForeignAttachment", key, err)
		}
	}
}
