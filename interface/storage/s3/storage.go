package s3

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/airbusgeo/stac-uploader/service"
	"github.com/airbusgeo/stac-uploader/service/log"
)

// Options of the S3 client
type Options struct {
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	// Endpoint of an S3-compatible service (path-style addressing is used)
	Endpoint string
	// PartSize of the multipart uploads
	PartSize int64
}

// Storage implements service.Storage in a bucket of AWS S3 (or an S3-compatible service)
type Storage struct {
	client   *s3.Client
	uploader *manager.Uploader
	bucket   string
	prefix   string
}

// New creates a Storage storing the objects in s3://bucket/prefix/
func New(ctx context.Context, bucket, prefix string, opts Options) (*Storage, error) {
	var loadOpts []func(*config.LoadOptions) error
	if opts.Region != "" {
		loadOpts = append(loadOpts, config.WithRegion(opts.Region))
	}
	if opts.AccessKeyID != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(opts.AccessKeyID, opts.SecretAccessKey, "")))
	}
	cfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("s3.New config.LoadDefaultConfig: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
			o.UsePathStyle = true
			// S3-compatible services do not all support the streaming checksums
			o.RequestChecksumCalculation = aws.RequestChecksumCalculationWhenRequired
		}
	})
	uploader := manager.NewUploader(client, func(u *manager.Uploader) {
		if opts.PartSize > 0 {
			u.PartSize = opts.PartSize
		}
	})
	return &Storage{client: client, uploader: uploader, bucket: bucket, prefix: strings.Trim(prefix, "/")}, nil
}

// URI returns the uri of the object
func URI(bucket, key string) string {
	return fmt.Sprintf("s3://%s/%s", bucket, strings.TrimPrefix(key, "/"))
}

// ParseURI returns the bucket and the key of an s3:// uri
func ParseURI(uri string) (string, string, error) {
	if !strings.HasPrefix(uri, "s3://") {
		return "", "", fmt.Errorf("invalid s3 uri: %s", uri)
	}
	bucket, key, ok := strings.Cut(strings.TrimPrefix(uri, "s3://"), "/")
	if !ok || bucket == "" || key == "" {
		return "", "", fmt.Errorf("invalid s3 uri: %s", uri)
	}
	return bucket, key, nil
}

// Upload implements service.Storage
func (s *Storage) Upload(ctx context.Context, localPath, key string) (string, error) {
	f, err := os.Open(localPath)
	if err != nil {
		return "", service.ErrLocalFile{Path: localPath, Err: err}
	}
	defer f.Close()

	objectKey := path.Join(s.prefix, key)
	_, err = s.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(objectKey),
		Body:        f,
		ContentType: aws.String(service.ContentType(ctx, localPath)),
	})
	if err != nil {
		return "", fmt.Errorf("Upload(%s): %w", objectKey, err)
	}
	uri := URI(s.bucket, objectKey)
	log.Logger(ctx).Sugar().Debugf("%s uploaded to %s", localPath, uri)
	return uri, nil
}

// Delete implements service.Storage
func (s *Storage) Delete(ctx context.Context, uri string) error {
	bucket, key, err := ParseURI(uri)
	if err != nil {
		return fmt.Errorf("Delete: %w", err)
	}
	// DeleteObject succeeds on missing keys
	if _, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{Bucket: aws.String(bucket), Key: aws.String(key)}); err != nil {
		var nf *types.NotFound
		if errors.As(err, &nf) {
			return service.ErrNotFound{Type: "object", ID: uri}
		}
		return fmt.Errorf("Delete.HeadObject: %w", err)
	}
	if _, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{Bucket: aws.String(bucket), Key: aws.String(key)}); err != nil {
		return fmt.Errorf("Delete.DeleteObject: %w", err)
	}
	return nil
}
