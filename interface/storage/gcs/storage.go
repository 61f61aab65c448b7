package gcs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"strings"

	gstorage "cloud.google.com/go/storage"
	"google.golang.org/api/option"

	"github.com/airbusgeo/stac-uploader/service"
	"github.com/airbusgeo/stac-uploader/service/log"
)

// Storage implements service.Storage in a bucket of Google Cloud Storage
type Storage struct {
	client *gstorage.Client
	bucket string
	prefix string
}

// New creates a Storage storing the objects in gs://bucket/prefix/
func New(ctx context.Context, bucket, prefix string, opts ...option.ClientOption) (*Storage, error) {
	client, err := gstorage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("gcs.New: %w", err)
	}
	return &Storage{client: client, bucket: bucket, prefix: strings.Trim(prefix, "/")}, nil
}

// Close closes the client
func (s *Storage) Close() error {
	return s.client.Close()
}

// URI returns the uri of the object
func URI(bucket, object string) string {
	return fmt.Sprintf("gs://%s/%s", bucket, strings.TrimPrefix(object, "/"))
}

// ParseURI returns the bucket and the object of a gs:// uri
func ParseURI(uri string) (string, string, error) {
	if !strings.HasPrefix(uri, "gs://") {
		return "", "", fmt.Errorf("invalid gs uri: %s", uri)
	}
	bucket, object, ok := strings.Cut(strings.TrimPrefix(uri, "gs://"), "/")
	if !ok || bucket == "" || object == "" {
		return "", "", fmt.Errorf("invalid gs uri: %s", uri)
	}
	return bucket, object, nil
}

// Upload implements service.Storage
func (s *Storage) Upload(ctx context.Context, localPath, key string) (string, error) {
	f, err := os.Open(localPath)
	if err != nil {
		return "", service.ErrLocalFile{Path: localPath, Err: err}
	}
	defer f.Close()

	object := path.Join(s.prefix, key)
	w := s.client.Bucket(s.bucket).Object(object).NewWriter(ctx)
	w.ContentType = service.ContentType(ctx, localPath)
	if _, err := io.Copy(w, f); err != nil {
		w.Close()
		return "", fmt.Errorf("Upload(%s).Copy: %w", object, err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("Upload(%s).Close: %w", object, err)
	}
	uri := URI(s.bucket, object)
	log.Logger(ctx).Sugar().Debugf("%s uploaded to %s", localPath, uri)
	return uri, nil
}

// Delete implements service.Storage
func (s *Storage) Delete(ctx context.Context, uri string) error {
	bucket, object, err := ParseURI(uri)
	if err != nil {
		return fmt.Errorf("Delete: %w", err)
	}
	if err := s.client.Bucket(bucket).Object(object).Delete(ctx); err != nil {
		if errors.Is(err, gstorage.ErrObjectNotExist) {
			return service.ErrNotFound{Type: "object", ID: uri}
		}
		return fmt.Errorf("Delete: %w", err)
	}
	return nil
}
