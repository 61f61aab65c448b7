package datacosmos

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/airbusgeo/stac-uploader/common"
	"github.com/airbusgeo/stac-uploader/service"
	"github.com/airbusgeo/stac-uploader/service/log"
)

// Storage implements service.Storage with the storage API: the files are uploaded with a PUT on <base>/<key>
// and are publicly available at <public>/<key>
type Storage struct {
	client  *http.Client
	base    common.URL
	public  common.URL
	retries int
}

// New creates a Storage. client must be authenticated (see shared.NewAuthenticatedClient).
// If public is zero, base is used.
func New(client *http.Client, base, public common.URL, retries int) *Storage {
	if public.IsZero() {
		public = base
	}
	return &Storage{client: client, base: base, public: public, retries: retries}
}

// Upload implements service.Storage
func (s *Storage) Upload(ctx context.Context, localPath, key string) (string, error) {
	info, err := os.Stat(localPath)
	if err != nil {
		return "", service.ErrLocalFile{Path: localPath, Err: err}
	}
	if info.IsDir() {
		return "", service.ErrLocalFile{Path: localPath, Err: fmt.Errorf("is a directory")}
	}

	dst := s.base.WithSuffix(key)
	start := time.Now()
	err = service.Retriable(ctx, func() error {
		err := s.put(ctx, localPath, dst, info.Size())
		if err != nil && !service.Temporary(err) {
			return service.MakeFatal(err)
		}
		return err
	}, time.Second, s.retries+1)
	if err != nil {
		return "", fmt.Errorf("Upload(%s): %w", key, err)
	}
	log.Logger(ctx).Sugar().Debugf("%s uploaded to %s in %v", localPath, dst, time.Since(start))
	return s.public.WithSuffix(key), nil
}

func (s *Storage) put(ctx context.Context, localPath, dst string, size int64) error {
	f, err := os.Open(localPath)
	if err != nil {
		return service.ErrLocalFile{Path: localPath, Err: err}
	}
	defer f.Close()

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, dst, f)
	if err != nil {
		return fmt.Errorf("NewRequest: %w", err)
	}
	req.ContentLength = size
	req.Header.Set("Content-Type", service.ContentType(ctx, localPath))
	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("PUT %s: %w", dst, err)
	}
	if err := service.CheckResponse(resp); err != nil {
		return err
	}
	return resp.Body.Close()
}

// Key returns the key of an object from its public uri
func (s *Storage) Key(uri string) (string, error) {
	for _, base := range []common.URL{s.public, s.base} {
		prefix := strings.TrimSuffix(base.String(), "/") + "/"
		if strings.HasPrefix(uri, prefix) {
			return strings.TrimPrefix(uri, prefix), nil
		}
	}
	return "", fmt.Errorf("%s is not an uri of the storage %s", uri, s.public.String())
}

// Delete implements service.Storage
func (s *Storage) Delete(ctx context.Context, uri string) error {
	key, err := s.Key(uri)
	if err != nil {
		return fmt.Errorf("Delete: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, s.base.WithSuffix(key), nil)
	if err != nil {
		return fmt.Errorf("Delete.NewRequest: %w", err)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("Delete: %w", err)
	}
	if err := service.CheckResponse(resp); err != nil {
		return fmt.Errorf("Delete: %w", service.MapStatus(err, "object", uri))
	}
	return resp.Body.Close()
}
