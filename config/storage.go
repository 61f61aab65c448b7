package config

import (
	"context"
	"fmt"
	"strings"

	"github.com/airbusgeo/stac-uploader/interface/storage/datacosmos"
	"github.com/airbusgeo/stac-uploader/interface/storage/gcs"
	"github.com/airbusgeo/stac-uploader/interface/storage/s3"
	"github.com/airbusgeo/stac-uploader/service"
)

// StorageDatacosmos selects the storage API of the configuration
const StorageDatacosmos = "datacosmos"

// NewStorage returns the storage of the assets:
//   - "" or "datacosmos": the storage API (DatacosmosCloudStorage), authenticated with the configured token
//   - gs://bucket/prefix: Google Cloud Storage
//   - s3://bucket/prefix: AWS S3 (or an S3-compatible service configured with s3Options)
//   - any other uri supported by service.StorageStrategy (e.g. a local directory)
func (c *Config) NewStorage(ctx context.Context, storageURI string, s3Options s3.Options) (service.Storage, error) {
	switch {
	case storageURI == "" || storageURI == StorageDatacosmos:
		client, err := c.HTTPClient(ctx)
		if err != nil {
			return nil, fmt.Errorf("NewStorage.%w", err)
		}
		return datacosmos.New(client, c.DatacosmosCloudStorage, c.DatacosmosPublicCloudStorage, c.Retries), nil
	case strings.HasPrefix(storageURI, "gs://"):
		bucket, prefix := splitBucket(strings.TrimPrefix(storageURI, "gs://"))
		if bucket == "" {
			return nil, fmt.Errorf("NewStorage: invalid uri %s", storageURI)
		}
		return gcs.New(ctx, bucket, prefix)
	case strings.HasPrefix(storageURI, "s3://"):
		bucket, prefix := splitBucket(strings.TrimPrefix(storageURI, "s3://"))
		if bucket == "" {
			return nil, fmt.Errorf("NewStorage: invalid uri %s", storageURI)
		}
		return s3.New(ctx, bucket, prefix, s3Options)
	}
	return service.NewStorageStrategy(ctx, storageURI)
}

func splitBucket(s string) (string, string) {
	bucket, prefix, _ := strings.Cut(s, "/")
	return bucket, prefix
}
