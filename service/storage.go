package service

import (
	"compress/flate"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	gstorage "cloud.google.com/go/storage"
	"github.com/airbusgeo/geocube/interface/storage"
	"github.com/airbusgeo/geocube/interface/storage/uri"
	"github.com/mholt/archiver"
)

// Storage is a service to store asset files and remove them
type Storage interface {
	// Upload streams the local file to the storage under the given key and returns its canonical URI
	Upload(ctx context.Context, localPath, key string) (string, error)
	// Delete removes the object identified by its URI (as returned by Upload)
	// Raise ErrNotFound
	Delete(ctx context.Context, uri string) error
}

func isErrNotFound(err error) bool {
	var epath *os.PathError
	return errors.Is(err, gstorage.ErrObjectNotExist) ||
		(errors.As(err, &epath) && os.IsNotExist(epath))
}

type contentTypeKey struct{}

// WithContentType returns a context whose uploads are sent with the given media type
func WithContentType(ctx context.Context, contentType string) context.Context {
	return context.WithValue(ctx, contentTypeKey{}, contentType)
}

// ContentType returns the media type set with WithContentType, or the one guessed from the extension of the file
func ContentType(ctx context.Context, filename string) string {
	if t, ok := ctx.Value(contentTypeKey{}).(string); ok && t != "" {
		return t
	}
	return GuessMimeType(filename)
}

// StorageStrategy implements Storage using geocube.Strategy (local directory, gs:// or s3:// base uri)
type StorageStrategy struct {
	storage storage.Strategy
	uri     uri.DefaultUri
}

// NewStorageStrategy creates a new StorageStrategy storing the objects under storageURI
func NewStorageStrategy(ctx context.Context, storageURI string) (*StorageStrategy, error) {
	uri, err := uri.ParseUri(storageURI)
	if err != nil {
		return nil, fmt.Errorf("NewStorageStrategy.ParseURI: %w", err)
	}

	storageClient, err := uri.NewStorageStrategy(ctx)
	if err != nil {
		return nil, fmt.Errorf("NewStorageStrategy: %w", err)
	}

	return &StorageStrategy{storage: storageClient, uri: uri}, nil
}

// Upload implements Storage
func (ss *StorageStrategy) Upload(ctx context.Context, localPath, key string) (string, error) {
	f, err := os.Open(localPath)
	if err != nil {
		return "", ErrLocalFile{Path: localPath, Err: err}
	}
	defer f.Close()

	dst := ss.getPath(key)
	if err := ss.storage.UploadFile(ctx, dst, f); err != nil {
		return "", fmt.Errorf("Upload.UploadFile to %s: %w", dst, err)
	}
	return dst, nil
}

// Delete implements Storage
func (ss *StorageStrategy) Delete(ctx context.Context, file string) error {
	if err := ss.storage.Delete(ctx, file); err != nil {
		if isErrNotFound(err) {
			return ErrNotFound{Type: "object", ID: file}
		}
		return fmt.Errorf("Delete: %w", err)
	}
	return nil
}

// DownloadFile downloads the object identified by its URI to a local file
// Raise ErrNotFound
func (ss *StorageStrategy) DownloadFile(ctx context.Context, file, localFile string) error {
	if err := ss.storage.DownloadToFile(ctx, file, localFile); err != nil {
		if isErrNotFound(err) {
			return ErrNotFound{Type: "object", ID: file}
		}
		return fmt.Errorf("DownloadFile.DownloadToFile from %s: %w", file, err)
	}
	return nil
}

// getPath returns the uri of the object stored under key
func (ss *StorageStrategy) getPath(key string) string {
	uri := ss.uri.String()
	if !strings.HasSuffix(uri, "/") {
		uri += "/"
	}
	return uri + strings.TrimPrefix(key, "/")
}

// ArchiveDir zips the directory into <workdir>/<dir name>.zip and returns the path of the archive.
// The caller is responsible for removing it.
func ArchiveDir(dir, workdir string) (string, error) {
	dir = filepath.Clean(dir)
	dst := filepath.Join(workdir, filepath.Base(dir)+".zip")
	zipper := archiver.NewZip()
	zipper.CompressionLevel = flate.BestSpeed
	zipper.OverwriteExisting = true
	if err := zipper.Archive([]string{dir}, dst); err != nil {
		return "", fmt.Errorf("ArchiveDir.Archive: %w", err)
	}
	return dst, nil
}

// UnarchiveFile extracts the zip file into the directory
func UnarchiveFile(file, dir string) error {
	zip := archiver.Zip{OverwriteExisting: true, MkdirAll: true}
	if err := zip.Unarchive(file, dir); err != nil {
		return fmt.Errorf("UnarchiveFile: %w", err)
	}
	return nil
}

// WithExt replaces the extension of the file
func WithExt(filePath, ext string) string {
	filePath = strings.TrimSuffix(filePath, filepath.Ext(filePath))
	if ext != "" {
		return fmt.Sprintf("%s.%s", filePath, strings.TrimPrefix(ext, "."))
	}
	return filePath
}
