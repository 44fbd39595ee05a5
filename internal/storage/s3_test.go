package storage

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/url"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// fakeObjects is an in-memory bucket that pages listings two keys at a time.
type fakeObjects struct {
	mu        sync.Mutex
	keys      map[string]bool
	deleteErr error
	batches   int
}

func newFakeObjects(keys ...string) *fakeObjects {
	f := &fakeObjects{keys: make(map[string]bool)}
	for _, k := range keys {
		f.keys[k] = true
	}
	return f
}

func (f *fakeObjects) ListObjectsV2(ctx context.Context, in *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	prefix := aws.ToString(in.Prefix)
	var matched []string
	for k := range f.keys {
		if strings.HasPrefix(k, prefix) {
			matched = append(matched, k)
		}
	}
	sort.Strings(matched)

	out := &s3.ListObjectsV2Output{}
	if in.Delimiter != nil {
		seen := map[string]bool{}
		for _, k := range matched {
			rest := strings.TrimPrefix(k, prefix)
			if i := strings.Index(rest, aws.ToString(in.Delimiter)); i >= 0 {
				p := prefix + rest[:i+1]
				if !seen[p] {
					seen[p] = true
					out.CommonPrefixes = append(out.CommonPrefixes, types.CommonPrefix{Prefix: aws.String(p)})
				}
			}
		}
		return out, nil
	}

	start := 0
	if in.ContinuationToken != nil {
		for i, k := range matched {
			if k == aws.ToString(in.ContinuationToken) {
				start = i
			}
		}
	}
	end := min(start+2, len(matched))
	for _, k := range matched[start:end] {
		out.Contents = append(out.Contents, types.Object{Key: aws.String(k)})
	}
	if end < len(matched) {
		out.IsTruncated = aws.Bool(true)
		out.NextContinuationToken = aws.String(matched[end])
	}
	return out, nil
}

func (f *fakeObjects) DeleteObjects(ctx context.Context, in *s3.DeleteObjectsInput, _ ...func(*s3.Options)) (*s3.DeleteObjectsOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.deleteErr != nil {
		return nil, f.deleteErr
	}
	f.batches++
	for _, id := range in.Delete.Objects {
		delete(f.keys, aws.ToString(id.Key))
	}
	return &s3.DeleteObjectsOutput{}, nil
}

func newTestS3(objects objectAPI) *S3 {
	return &S3{
		objects: objects,
		cfg:     Config{Bucket: "sink-test", PresignTTL: DefaultPresignTTL},
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

func TestPurgeApartment_DeletesOnlyThatPrefix(t *testing.T) {
	objects := newFakeObjects(
		"apartments/AB12CD/1-a.jpg",
		"apartments/AB12CD/2-b.jpg",
		"apartments/AB12CD/3-c.pdf",
		"apartments/ZZ99ZZ/1-keep.png",
	)
	s := newTestS3(objects)

	if err := s.PurgeApartment(context.Background(), "AB12CD"); err != nil {
		t.Fatalf("PurgeApartment() error = %v", err)
	}
	if len(objects.keys) != 1 || !objects.keys["apartments/ZZ99ZZ/1-keep.png"] {
		t.Errorf("remaining keys = %v", objects.keys)
	}
	if objects.batches != 2 {
		t.Errorf("delete batches = %d, want one per page (2)", objects.batches)
	}

	// Idempotent on an empty prefix.
	if err := s.PurgeApartment(context.Background(), "AB12CD"); err != nil {
		t.Errorf("second PurgeApartment() error = %v", err)
	}
}

func TestPurgeApartment_PropagatesDeleteError(t *testing.T) {
	objects := newFakeObjects("apartments/AB12CD/1-a.jpg")
	objects.deleteErr = errors.New("access denied")

	err := newTestS3(objects).PurgeApartment(context.Background(), "AB12CD")
	if err == nil || !strings.Contains(err.Error(), "access denied") {
		t.Errorf("PurgeApartment() error = %v, want delete failure", err)
	}
}

func TestListApartmentCodes(t *testing.T) {
	objects := newFakeObjects(
		"apartments/AB12CD/1-a.jpg",
		"apartments/AB12CD/2-b.jpg",
		"apartments/QW34ER/1-c.jpg",
		"other/file.txt",
	)

	codes, err := newTestS3(objects).ListApartmentCodes(context.Background())
	if err != nil {
		t.Fatalf("ListApartmentCodes() error = %v", err)
	}
	if len(codes) != 2 || codes[0] != "AB12CD" || codes[1] != "QW34ER" {
		t.Errorf("codes = %v", codes)
	}
}

func TestValidateAttachment(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		contentType string
		size        int64
		wantErr     error
	}{
		{"jpeg", "image/jpeg", 1024, nil},
		{"pdf upper", "APPLICATION/PDF", MaxAttachmentSize, nil},
		{"video", "video/mp4", 1024, ErrUnsupportedType},
		{"empty type", "", 1024, ErrUnsupportedType},
		{"too large", "image/png", MaxAttachmentSize + 1, ErrTooLarge},
		{"zero size", "image/png", 0, ErrTooLarge},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if err := ValidateAttachment(tt.contentType, tt.size); !errors.Is(err, tt.wantErr) {
				t.Errorf("ValidateAttachment() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestAttachmentKey(t *testing.T) {
	t.Parallel()

	key, err := AttachmentKey("AB12CD", "../../etc/My Photo (1).JPG")
	if err != nil {
		t.Fatalf("AttachmentKey() error = %v", err)
	}
	if !strings.HasPrefix(key, "apartments/AB12CD/") {
		t.Errorf("key %q should live under the apartment prefix", key)
	}
	if !strings.HasSuffix(key, "-My_Photo_1.JPG") {
		t.Errorf("key %q should end with the sanitized name", key)
	}
	if !KeyBelongsTo(key, "AB12CD") || KeyBelongsTo(key, "ZZ99ZZ") {
		t.Errorf("KeyBelongsTo mismatch for %q", key)
	}

	for _, bad := range []string{"", "   ", "..", "/"} {
		if _, err := AttachmentKey("AB12CD", bad); !errors.Is(err, ErrInvalidName) {
			t.Errorf("AttachmentKey(%q) error = %v, want ErrInvalidName", bad, err)
		}
	}
}

func TestCodeFromKey(t *testing.T) {
	t.Parallel()

	tests := []struct {
		key    string
		want   string
		wantOK bool
	}{
		{"apartments/AB12CD/x.jpg", "AB12CD", true},
		{"apartments/AB12CD/", "AB12CD", true},
		{"apartments/", "", false},
		{"apartments//x", "", false},
		{"tasks/AB12CD/x", "", false},
	}

	for _, tt := range tests {
		got, ok := CodeFromKey(tt.key)
		if got != tt.want || ok != tt.wantOK {
			t.Errorf("CodeFromKey(%q) = %q, %v; want %q, %v", tt.key, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestPresignUpload_PathStyleEndpoint(t *testing.T) {
	s, err := New(context.Background(), Config{
		Bucket:          "sink-test",
		Region:          "us-east-1",
		Endpoint:        "http://localhost:9000",
		AccessKeyID:     "AKIDEXAMPLE",
		SecretAccessKey: "secret",
	}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	up, err := s.PresignUpload(context.Background(), "AB12CD", "receipt.pdf", "application/pdf", 2048)
	if err != nil {
		t.Fatalf("PresignUpload() error = %v", err)
	}
	if up.Method != "PUT" {
		t.Errorf("Method = %q, want PUT", up.Method)
	}

	u, err := url.Parse(up.URL)
	if err != nil {
		t.Fatalf("parse presigned URL: %v", err)
	}
	if u.Host != "localhost:9000" {
		t.Errorf("Host = %q", u.Host)
	}
	if !strings.HasPrefix(u.Path, "/sink-test/apartments/AB12CD/") {
		t.Errorf("Path = %q, want path-style bucket prefix", u.Path)
	}
	if u.Query().Get("X-Amz-Signature") == "" {
		t.Error("presigned URL should carry a signature")
	}

	if _, err := s.PresignUpload(context.Background(), "AB12CD", "clip.mp4", "video/mp4", 10); !errors.Is(err, ErrUnsupportedType) {
		t.Errorf("PresignUpload(video) error = %v, want ErrUnsupportedType", err)
	}
}
