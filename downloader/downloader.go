// Package downloader downloads the assets of STAC items
package downloader

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/airbusgeo/stac-uploader/common"
	"github.com/airbusgeo/stac-uploader/service"
	"github.com/airbusgeo/stac-uploader/service/log"
)

// Options of DownloadAssets
type Options struct {
	// Assets to download (all if nil)
	Assets []string
	// Overwrite the existing files. If false, existing files are not downloaded again.
	Overwrite bool
	// MaxWorkers is the number of parallel downloads (default: 4)
	MaxWorkers int
	// HTTPClient used for http(s) hrefs (default: http.DefaultClient)
	HTTPClient *http.Client
	// Retries of the downloads failing with a temporary error
	Retries int
	// Objects downloads the gs:// and s3:// hrefs (default: osio readers)
	Objects ObjectDownloader
	// Unarchive extracts the zip assets (as uploaded for directory assets) in a directory of the same name
	Unarchive bool
}

// ObjectDownloader downloads an object of a storage (implemented by service.StorageStrategy)
type ObjectDownloader interface {
	DownloadFile(ctx context.Context, uri, localFile string) error
}

// Asset is a downloaded asset
type Asset struct {
	Key  string
	Path string
	// Skipped is true if the file already existed
	Skipped bool
}

// AssetError is an asset that could not be downloaded
type AssetError struct {
	Key string
	Err error
}

// Result of DownloadAssets, in the order of the assets of the item
type Result struct {
	// Item with the hrefs of the downloaded assets relative to the target directory
	Item       *common.Item
	ItemFile   string
	Downloaded []Asset
	Failed     []AssetError
}

// Fetcher fetches an item from the catalog (implemented by stac.Client)
type Fetcher interface {
	FetchItem(ctx context.Context, itemID, collectionID string) (*common.Item, error)
}

// DownloadItem fetches the item and downloads its assets in dir (see DownloadAssets).
// If dir is empty, the assets are downloaded in ./<item id>.
func DownloadItem(ctx context.Context, catalog Fetcher, itemID, collectionID, dir string, opts Options) (*Result, error) {
	item, err := catalog.FetchItem(ctx, itemID, collectionID)
	if err != nil {
		return nil, fmt.Errorf("DownloadItem.%w", err)
	}
	if dir == "" {
		dir = itemID
	}
	return DownloadAssets(ctx, item, dir, opts)
}

// DownloadAssets downloads the assets of the item in dir and writes the item in <dir>/<item id>.json.
// A failed download does not stop the others. Remote hrefs may be http(s), gs or s3 uris, other hrefs are
// copied from the local filesystem.
func DownloadAssets(ctx context.Context, item *common.Item, dir string, opts Options) (*Result, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("DownloadAssets.MkdirAll: %w", err)
	}
	// Files are downloaded in a working dir then moved to dir
	workdir := filepath.Join(dir, "."+uuid.New().String())
	if err := os.MkdirAll(workdir, 0755); err != nil {
		return nil, service.MakeTemporary(fmt.Errorf("DownloadAssets.MkdirAll: %w", err))
	}
	defer os.RemoveAll(workdir)

	included := func(string) bool { return true }
	if opts.Assets != nil {
		ss := service.NewStringSet(opts.Assets...)
		included = ss.Exists
	}
	maxWorkers := opts.MaxWorkers
	if maxWorkers <= 0 {
		maxWorkers = 4
	}

	clone, err := item.Clone()
	if err != nil {
		return nil, fmt.Errorf("DownloadAssets.%w", err)
	}
	pairs := clone.Assets.Pairs()
	downloaded := make([]*Asset, len(pairs))
	errs := make([]error, len(pairs))

	var wg errgroup.Group
	wg.SetLimit(maxWorkers)
	for i, p := range pairs {
		if p.Asset == nil || !included(p.Key) {
			continue
		}
		i, p := i, p
		wg.Go(func() error {
			a, err := downloadAsset(ctx, p.Key, p.Asset.Href, dir, workdir, opts)
			if err != nil {
				log.Logger(ctx).Warn("asset download failed", zap.String("asset", p.Key), zap.Error(err))
				errs[i] = err
				return nil
			}
			downloaded[i] = a
			return nil
		})
	}
	wg.Wait()

	res := &Result{Item: clone, Downloaded: []Asset{}, Failed: []AssetError{}}
	for i, p := range pairs {
		switch {
		case errs[i] != nil:
			res.Failed = append(res.Failed, AssetError{Key: p.Key, Err: errs[i]})
		case downloaded[i] != nil:
			res.Downloaded = append(res.Downloaded, *downloaded[i])
			p.Asset.Href = filepath.Base(downloaded[i].Path)
		}
	}

	itemFile := filepath.Join(dir, clone.ID+".json")
	if _, err := os.Stat(itemFile); opts.Overwrite || err != nil {
		if itemFile, err = service.WriteJSON(clone, dir, clone.ID+".json"); err != nil {
			return res, fmt.Errorf("DownloadAssets.%w", err)
		}
	}
	res.ItemFile = itemFile
	log.Logger(ctx).Sugar().Infof("%s: %d asset(s) downloaded in %s, %d failed", item.ID, len(res.Downloaded), dir, len(res.Failed))
	return res, nil
}

// Filename returns the name of the file of an href
func Filename(href string) string {
	if common.IsRemote(href) {
		if u, err := url.Parse(href); err == nil {
			return path.Base(u.Path)
		}
	}
	return filepath.Base(common.LocalPath(href))
}

func downloadAsset(ctx context.Context, key, href, dir, workdir string, opts Options) (*Asset, error) {
	if err := service.Cancelled(ctx); err != nil {
		return nil, err
	}
	filename := Filename(href)
	if filename == "" || filename == "." || filename == "/" {
		return nil, fmt.Errorf("no filename in href %s", href)
	}
	dst := filepath.Join(dir, filename)
	final := dst
	unarchive := opts.Unarchive && strings.EqualFold(filepath.Ext(filename), ".zip")
	if unarchive {
		final = service.WithExt(dst, "")
	}
	if !opts.Overwrite {
		if _, err := os.Stat(final); err == nil {
			return &Asset{Key: key, Path: final, Skipped: true}, nil
		}
	}

	tmp := filepath.Join(workdir, key+"_"+filename)
	err := service.Retriable(ctx, func() error {
		err := fetch(ctx, href, tmp, opts)
		if err != nil && !service.Temporary(err) {
			return service.MakeFatal(err)
		}
		return err
	}, time.Second, opts.Retries+1)
	if err != nil {
		return nil, err
	}
	if unarchive {
		if err := extract(tmp, workdir, key, final); err != nil {
			return nil, err
		}
		return &Asset{Key: key, Path: final}, nil
	}
	if err := os.Rename(tmp, dst); err != nil {
		return nil, fmt.Errorf("rename: %w", err)
	}
	return &Asset{Key: key, Path: dst}, nil
}

// extract unzips the archive and moves its content to final.
// The archive of a directory contains the directory itself: it is moved as is.
func extract(archive, workdir, key, final string) error {
	out := filepath.Join(workdir, key+"_extracted")
	if err := service.UnarchiveFile(archive, out); err != nil {
		return service.ErrLocalFile{Path: archive, Err: err}
	}
	src := out
	if entries, err := os.ReadDir(out); err == nil && len(entries) == 1 && entries[0].IsDir() {
		src = filepath.Join(out, entries[0].Name())
	}
	if err := os.RemoveAll(final); err != nil {
		return fmt.Errorf("extract.RemoveAll: %w", err)
	}
	if err := os.Rename(src, final); err != nil {
		return fmt.Errorf("extract.Rename: %w", err)
	}
	return nil
}
