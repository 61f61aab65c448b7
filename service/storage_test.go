package service

import (
	"context"
	"os"
	"path"
	"path/filepath"
	"testing"
)

func initLocalDirs() (string, string, string, error) {
	localdir, err := os.MkdirTemp("", "local")
	if err != nil {
		return "", "", "", err
	}
	distdir, err := os.MkdirTemp("", "dist")
	if err != nil {
		return "", "", "", err
	}
	localdir2, err := os.MkdirTemp("", "local2")
	return localdir, distdir, localdir2, err
}

func createFiles(dir, name string) {
	os.WriteFile(path.Join(dir, name+".tif"), []byte("test"), 0644)
	os.Mkdir(path.Join(dir, name+".SAFE"), 0755)
	os.WriteFile(path.Join(dir, name+".SAFE", "manifest.xml"), []byte("test"), 0644)
}

func TestLocalStorage(t *testing.T) {
	ctx := context.Background()

	localdir, distdir, localdir2, err := initLocalDirs()
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(localdir)
	defer os.RemoveAll(localdir2)
	defer os.RemoveAll(distdir)

	createFiles(localdir, "B04")

	service, err := NewStorageStrategy(ctx, distdir)
	if err != nil {
		t.Fatal(err)
	}

	testStorage(t, ctx, localdir, localdir2, service)
}

func testStorage(t *testing.T, ctx context.Context, localdir, localdir2 string, storage *StorageStrategy) {
	// Upload B04.tif
	uri, err := storage.Upload(ctx, path.Join(localdir, "B04.tif"), "sentinel-2/S2A_001/B04/B04.tif")
	if err != nil {
		t.Fatal(err)
	}
	if filepath.Base(uri) != "B04.tif" {
		t.Errorf("unexpected uri %s", uri)
	}

	// Download B04.tif
	if err := storage.DownloadFile(ctx, uri, path.Join(localdir2, "B04.tif")); err != nil {
		t.Error(err)
	}
	if b, err := os.ReadFile(path.Join(localdir2, "B04.tif")); err != nil || string(b) != "test" {
		t.Errorf("unexpected content %s %v", b, err)
	}

	// Delete B04.tif
	if err := storage.Delete(ctx, uri); err != nil {
		t.Error(err)
	}
	if err := storage.DownloadFile(ctx, uri, path.Join(localdir2, "B04-2.tif")); !IsNotFound(err) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	// Missing local file
	if _, err := storage.Upload(ctx, path.Join(localdir, "missing.tif"), "a/b/c/missing.tif"); err == nil {
		t.Error("expected an error")
	} else if _, ok := err.(ErrLocalFile); !ok {
		t.Errorf("expected ErrLocalFile, got %v", err)
	}

	// Zip B04.SAFE, upload and extract it
	zipFile, err := ArchiveDir(path.Join(localdir, "B04.SAFE"), localdir2)
	if err != nil {
		t.Fatal(err)
	}
	if filepath.Base(zipFile) != "B04.SAFE.zip" {
		t.Errorf("unexpected archive %s", zipFile)
	}
	uri, err = storage.Upload(ctx, zipFile, "sentinel-2/S2A_001/safe/B04.SAFE.zip")
	if err != nil {
		t.Fatal(err)
	}
	dst := path.Join(localdir2, "downloaded.zip")
	if err := storage.DownloadFile(ctx, uri, dst); err != nil {
		t.Fatal(err)
	}
	extracted := path.Join(localdir2, "extracted")
	if err := UnarchiveFile(dst, extracted); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(path.Join(extracted, "B04.SAFE", "manifest.xml")); err != nil {
		t.Error(err)
	}
}

func TestWithExt(t *testing.T) {
	if s := WithExt("/tmp/a.SAFE", "zip"); s != "/tmp/a.zip" {
		t.Errorf("unexpected %s", s)
	}
	if s := WithExt("/tmp/a.tif", ""); s != "/tmp/a" {
		t.Errorf("unexpected %s", s)
	}
}

func TestContentType(t *testing.T) {
	ctx := context.Background()
	if ct := ContentType(ctx, "a.zip"); ct != "application/zip" {
		t.Errorf("unexpected %s", ct)
	}
	if ct := ContentType(WithContentType(ctx, "application/x-netcdf"), "a.nc"); ct != "application/x-netcdf" {
		t.Errorf("unexpected %s", ct)
	}
	if ct := ContentType(WithContentType(ctx, ""), "a.zip"); ct != "application/zip" {
		t.Errorf("unexpected %s", ct)
	}
}
