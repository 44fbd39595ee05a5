// Package storage keeps chat and task attachments in S3 under a per-apartment prefix.
package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/oklog/ulid/v2"
)

const (
	// MaxAttachmentSize is the largest accepted upload (10MB).
	MaxAttachmentSize = 10 * 1024 * 1024

	// FolderApartments is the S3 prefix under which every apartment's objects live.
	FolderApartments = "apartments"

	// DefaultPresignTTL is used when Config.PresignTTL is zero.
	DefaultPresignTTL = 15 * time.Minute

	deleteBatchSize = 1000
)

// AllowedTypes maps accepted MIME types to their canonical extension.
var AllowedTypes = map[string]string{
	"image/jpeg":      ".jpg",
	"image/png":       ".png",
	"image/webp":      ".webp",
	"image/gif":       ".gif",
	"application/pdf": ".pdf",
}

var (
	ErrUnsupportedType = errors.New("unsupported attachment type")
	ErrTooLarge        = errors.New("attachment exceeds size limit")
	ErrInvalidName     = errors.New("invalid attachment name")
)

// Config holds S3 client configuration.
type Config struct {
	Bucket          string
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	PresignTTL      time.Duration
}

// objectAPI is the part of the S3 client used for listing and purging.
type objectAPI interface {
	s3.ListObjectsV2APIClient
	DeleteObjects(ctx context.Context, params *s3.DeleteObjectsInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectsOutput, error)
}

// S3 stores attachments and hands out presigned URLs.
type S3 struct {
	objects objectAPI
	presign *s3.PresignClient
	cfg     Config
	logger  *slog.Logger
}

// Upload describes a presigned direct upload.
type Upload struct {
	Key         string    `json:"key"`
	URL         string    `json:"url"`
	Method      string    `json:"method"`
	ContentType string    `json:"content_type"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// New creates an S3 client. Static credentials are used when both keys are
// set, otherwise the default AWS credential chain. A non-empty Endpoint
// switches to path-style addressing for S3-compatible stores such as MinIO.
func New(ctx context.Context, cfg Config, logger *slog.Logger) (*S3, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("s3 bucket is required")
	}
	if cfg.PresignTTL <= 0 {
		cfg.PresignTTL = DefaultPresignTTL
	}
	logger = logger.With("component", "storage")

	opts := []func(*config.LoadOptions) error{
		config.WithRegion(cfg.Region),
	}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	} else {
		logger.Info("s3 using default credential chain", "bucket", cfg.Bucket)
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	return &S3{
		objects: client,
		presign: s3.NewPresignClient(client),
		cfg:     cfg,
		logger:  logger,
	}, nil
}

// ValidateAttachment checks type and size of an upload before presigning.
func ValidateAttachment(contentType string, size int64) error {
	if _, ok := AllowedTypes[strings.ToLower(contentType)]; !ok {
		return ErrUnsupportedType
	}
	if size <= 0 || size > MaxAttachmentSize {
		return ErrTooLarge
	}
	return nil
}

// ApartmentPrefix returns the key prefix owning every object of an apartment.
func ApartmentPrefix(code string) string {
	return FolderApartments + "/" + code + "/"
}

// AttachmentKey returns apartments/{code}/{ulid}-{filename}.
func AttachmentKey(code, filename string) (string, error) {
	name := sanitizeName(filename)
	if name == "" {
		return "", ErrInvalidName
	}
	return ApartmentPrefix(code) + strings.ToLower(ulid.Make().String()) + "-" + name, nil
}

// CodeFromKey extracts the apartment code from an attachment key.
func CodeFromKey(key string) (string, bool) {
	rest, ok := strings.CutPrefix(key, FolderApartments+"/")
	if !ok {
		return "", false
	}
	code, _, ok := strings.Cut(rest, "/")
	if !ok || code == "" {
		return "", false
	}
	return code, true
}

// KeyBelongsTo reports whether key lives under the apartment's prefix.
func KeyBelongsTo(key, code string) bool {
	got, ok := CodeFromKey(key)
	return ok && got == code && !strings.Contains(key, "..")
}

// PresignUpload returns a presigned PUT for a new attachment of the apartment.
func (s *S3) PresignUpload(ctx context.Context, code, filename, contentType string, size int64) (*Upload, error) {
	if err := ValidateAttachment(contentType, size); err != nil {
		return nil, err
	}
	key, err := AttachmentKey(code, filename)
	if err != nil {
		return nil, err
	}

	req, err := s.presign.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.cfg.Bucket),
		Key:           aws.String(key),
		ContentType:   aws.String(contentType),
		ContentLength: aws.Int64(size),
	}, func(opts *s3.PresignOptions) {
		opts.Expires = s.cfg.PresignTTL
	})
	if err != nil {
		return nil, fmt.Errorf("presign put: %w", err)
	}

	return &Upload{
		Key:         key,
		URL:         req.URL,
		Method:      req.Method,
		ContentType: contentType,
		ExpiresAt:   time.Now().UTC().Add(s.cfg.PresignTTL),
	}, nil
}

// PresignDownload returns a presigned GET URL for an existing attachment.
func (s *S3) PresignDownload(ctx context.Context, key string) (string, error) {
	req, err := s.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.cfg.Bucket),
		Key:    aws.String(key),
	}, func(opts *s3.PresignOptions) {
		opts.Expires = s.cfg.PresignTTL
	})
	if err != nil {
		return "", fmt.Errorf("presign get: %w", err)
	}
	return req.URL, nil
}

// Name identifies the store in cleanup reports.
func (s *S3) Name() string { return "attachments" }

// PurgeApartment deletes every object under the apartment's prefix.
func (s *S3) PurgeApartment(ctx context.Context, code string) error {
	paginator := s3.NewListObjectsV2Paginator(s.objects, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.cfg.Bucket),
		Prefix: aws.String(ApartmentPrefix(code)),
	})

	deleted := 0
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return fmt.Errorf("list objects: %w", err)
		}

		keys := make([]string, 0, len(page.Contents))
		for _, obj := range page.Contents {
			keys = append(keys, aws.ToString(obj.Key))
		}
		for len(keys) > 0 {
			n := min(len(keys), deleteBatchSize)
			if err := s.deleteKeys(ctx, keys[:n]); err != nil {
				return err
			}
			deleted += n
			keys = keys[n:]
		}
	}

	if deleted > 0 {
		s.logger.Info("attachments_purged", "code", code, "objects", deleted)
	}
	return nil
}

// ListApartmentCodes returns the codes that have at least one object.
func (s *S3) ListApartmentCodes(ctx context.Context) ([]string, error) {
	paginator := s3.NewListObjectsV2Paginator(s.objects, &s3.ListObjectsV2Input{
		Bucket:    aws.String(s.cfg.Bucket),
		Prefix:    aws.String(FolderApartments + "/"),
		Delimiter: aws.String("/"),
	})

	var codes []string
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("list prefixes: %w", err)
		}
		for _, p := range page.CommonPrefixes {
			if code, ok := CodeFromKey(aws.ToString(p.Prefix)); ok {
				codes = append(codes, code)
			}
		}
	}
	return codes, nil
}

func (s *S3) deleteKeys(ctx context.Context, keys []string) error {
	ids := make([]types.ObjectIdentifier, len(keys))
	for i, k := range keys {
		ids[i] = types.ObjectIdentifier{Key: aws.String(k)}
	}

	out, err := s.objects.DeleteObjects(ctx, &s3.DeleteObjectsInput{
		Bucket: aws.String(s.cfg.Bucket),
		Delete: &types.Delete{Objects: ids, Quiet: aws.Bool(true)},
	})
	if err != nil {
		return fmt.Errorf("delete objects: %w", err)
	}
	if len(out.Errors) > 0 {
		first := out.Errors[0]
		return fmt.Errorf("delete objects: %d failed, first %s: %s",
			len(out.Errors), aws.ToString(first.Key), aws.ToString(first.Message))
	}
	return nil
}

// sanitizeName keeps the base name and replaces characters unsafe in keys.
func sanitizeName(filename string) string {
	base := path.Base(strings.ReplaceAll(strings.TrimSpace(filename), "\\", "/"))
	if base == "." || base == "/" || base == ".." {
		return ""
	}

	var b strings.Builder
	for _, r := range base {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			b.WriteRune(r)
		case r == ' ':
			b.WriteRune('_')
		}
	}

	name := strings.Trim(b.String(), ".")
	if len(name) > 100 {
		name = name[len(name)-100:]
	}
	return name
}
