// Package uploader uploads the local assets of a STAC item to an object storage and registers the item in the catalog.
package uploader

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/airbusgeo/stac-uploader/common"
	"github.com/airbusgeo/stac-uploader/service"
	"github.com/airbusgeo/stac-uploader/service/log"
)

// Catalog is the part of the STAC API used by the Uploader (implemented by stac.Client)
type Catalog interface {
	FetchItem(ctx context.Context, itemID, collectionID string) (*common.Item, error)
	CreateItem(ctx context.Context, item *common.Item) error
	AddItem(ctx context.Context, item *common.Item) error
	DeleteItem(ctx context.Context, itemID, collectionID string) error
}

// ErrNothingUploaded is returned when all the assets failed: the item is not registered
var ErrNothingUploaded = errors.New("no asset could be uploaded")

// Uploader uploads the assets of the items and registers them in the catalog
type Uploader struct {
	catalog  Catalog
	storage  service.Storage
	settings settings
}

// New creates an Uploader
func New(catalog Catalog, storage service.Storage, options ...Option) *Uploader {
	s := defaultSettings()
	for _, opt := range options {
		opt(&s)
	}
	return &Uploader{catalog: catalog, storage: storage, settings: s}
}

// outcome of one asset, at the index of the asset in the item
type outcome struct {
	href     string
	uploaded bool
	err      error
}

type job struct {
	index    int
	key      string
	asset    *common.Asset
	srcPath  string
	filename string
	err      error
}

// UploadItemFile loads the item from a JSON file and uploads it (see UploadItem).
// If assetsDir is empty, the assets are resolved relatively to the directory of the item file.
// The returned item has its hrefs rewritten.
func (u *Uploader) UploadItemFile(ctx context.Context, itemFile, assetsDir string, options ...Option) (*common.Item, *UploadResult, error) {
	b, err := os.ReadFile(itemFile)
	if err != nil {
		return nil, nil, fmt.Errorf("UploadItemFile: %w", service.ErrLocalFile{Path: itemFile, Err: err})
	}
	var item common.Item
	if err := json.Unmarshal(b, &item); err != nil {
		return nil, nil, fmt.Errorf("UploadItemFile.Unmarshal(%s): %w", itemFile, err)
	}
	if assetsDir == "" {
		assetsDir = filepath.Dir(itemFile)
	}
	res, err := u.UploadItem(ctx, &item, assetsDir, options...)
	return &item, res, err
}

// UploadItem uploads the local assets of the item and registers it in the catalog.
//
// Assets whose href is a remote uri are not uploaded. The local hrefs are resolved relatively to assetsDir
// (or the working directory if empty) and are replaced by the uri of the uploaded file. A failed upload does
// not stop the others: the asset is reported in UploadResult.Failed and its href is left unchanged.
//
// The item is registered if at least one asset succeeded or if there was nothing to upload.
// If the registration fails or is not attempted, the error is a *PartialFailure carrying the result:
// the uploaded files are not deleted.
func (u *Uploader) UploadItem(ctx context.Context, item *common.Item, assetsDir string, options ...Option) (*UploadResult, error) {
	s := u.settings
	for _, opt := range options {
		opt(&s)
	}
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	ctx = log.With(ctx, "item", item.ID)

	if item.Collection == "" {
		return nil, fmt.Errorf("UploadItem: %w", common.ErrValidation{Field: "collection", Reason: "missing"})
	}
	if assetsDir == "" {
		assetsDir = "."
	}

	pairs := item.Assets.Pairs()
	outcomes := make([]outcome, len(pairs))
	var jobs []job
	nbUploads := 0
	for i, p := range pairs {
		if p.Asset == nil {
			if s.includes(p.Key) {
				outcomes[i] = outcome{err: common.ErrValidation{Field: "assets." + p.Key, Reason: "null asset"}}
				nbUploads++
			}
			continue
		}
		if common.IsRemote(p.Asset.Href) || !s.includes(p.Key) {
			outcomes[i] = outcome{href: p.Asset.Href}
			continue
		}
		jobs = append(jobs, job{index: i, key: p.Key, asset: p.Asset})
		nbUploads++
	}

	if len(jobs) > 0 {
		if info, err := os.Stat(assetsDir); err != nil || !info.IsDir() {
			if err == nil {
				err = fmt.Errorf("not a directory")
			}
			return nil, fmt.Errorf("UploadItem: %w", service.ErrLocalFile{Path: assetsDir, Err: err})
		}
		log.Logger(ctx).Sugar().Debugf("uploading %d asset(s) of %s with %d worker(s)", len(jobs), item.ID, s.maxWorkers)
		u.uploadAssets(ctx, s, item, assetsDir, jobs, outcomes)
	}

	result := newUploadResult(pairs, outcomes)
	for i, o := range outcomes {
		if o.uploaded {
			pairs[i].Asset.Href = o.href
		}
	}

	err := u.register(ctx, s, item, result, nbUploads)
	u.publish(ctx, s, item, result, err)
	if err != nil {
		return result, err
	}
	log.Logger(ctx).Sugar().Infof("item %s/%s registered: %d asset(s) succeeded, %d failed",
		item.Collection, item.ID, len(result.Succeeded), len(result.Failed))
	return result, nil
}

// uploadAssets runs the jobs in a pool of workers. Each outcome is written at the index of its asset.
func (u *Uploader) uploadAssets(ctx context.Context, s settings, item *common.Item, assetsDir string, jobs []job, outcomes []outcome) {
	// KeyFunc is never called concurrently
	for i := range jobs {
		j := &jobs[i]
		if j.srcPath, j.err = resolveLocalPath(assetsDir, j.asset.Href); j.err != nil {
			continue
		}
		j.filename = filepath.Base(j.srcPath)
		if info, err := os.Stat(j.srcPath); err == nil && info.IsDir() {
			j.filename += ".zip"
		}
	}
	keys := make([]string, len(jobs))
	keyErrs := make([]error, len(jobs))
	for i, j := range jobs {
		if j.err == nil {
			keys[i], keyErrs[i] = s.keyFunc(item, j.key, j.filename)
		}
	}

	var wg errgroup.Group
	wg.SetLimit(s.maxWorkers)
	for i, j := range jobs {
		i, j := i, j
		wg.Go(func() error {
			if j.err != nil {
				outcomes[j.index] = outcome{err: j.err}
				return nil
			}
			if keyErrs[i] != nil {
				outcomes[j.index] = outcome{err: fmt.Errorf("storage key: %w", keyErrs[i])}
				return nil
			}
			href, err := u.uploadAsset(ctx, s, j, keys[i])
			if err != nil {
				log.Logger(ctx).Warn("asset upload failed", zap.String("asset", j.key), zap.Error(err))
				outcomes[j.index] = outcome{err: err}
				return nil
			}
			outcomes[j.index] = outcome{href: href, uploaded: true}
			return nil
		})
	}
	wg.Wait()
}

func (u *Uploader) uploadAsset(ctx context.Context, s settings, j job, key string) (string, error) {
	if err := service.Cancelled(ctx); err != nil {
		return "", err
	}
	info, err := os.Stat(j.srcPath)
	if err != nil {
		return "", service.ErrLocalFile{Path: j.srcPath, Err: err}
	}
	src := j.srcPath
	if info.IsDir() {
		workdir, err := os.MkdirTemp(s.workdir, "upload-")
		if err != nil {
			return "", fmt.Errorf("uploadAsset.MkdirTemp: %w", err)
		}
		defer os.RemoveAll(workdir)
		if src, err = service.ArchiveDir(j.srcPath, workdir); err != nil {
			return "", service.ErrLocalFile{Path: j.srcPath, Err: err}
		}
	}
	if !info.IsDir() && j.asset.Type != "" {
		ctx = service.WithContentType(ctx, j.asset.Type)
	}

	start := time.Now()
	href, err := u.storage.Upload(ctx, src, key)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", service.ErrCancelled{Err: fmt.Errorf("%w: %v", ctxErr, err)}
		}
		return "", err
	}
	log.Logger(ctx).Sugar().Debugf("asset %s uploaded to %s in %v", j.key, href, time.Since(start))
	return href, nil
}

// resolveLocalPath returns the path of the file of a local href.
// If <assetsDir>/<href> does not exist, <assetsDir>/<basename of href> is tried.
// An href designating assetsDir itself is rejected.
func resolveLocalPath(assetsDir, href string) (string, error) {
	p := common.LocalPath(href)
	if strings.TrimSpace(p) == "" {
		return "", service.ErrLocalFile{Path: assetsDir, Err: fmt.Errorf("empty href")}
	}
	var full string
	if filepath.IsAbs(p) {
		if _, err := os.Stat(p); err == nil {
			full = p
		} else {
			full = filepath.Join(assetsDir, filepath.Base(p))
		}
	} else {
		full = filepath.Join(assetsDir, p)
		if _, err := os.Stat(full); err != nil {
			if base := filepath.Join(assetsDir, filepath.Base(p)); base != full {
				if _, err := os.Stat(base); err == nil {
					full = base
				}
			}
		}
	}
	if samePath(full, assetsDir) {
		return "", service.ErrLocalFile{Path: full, Err: fmt.Errorf("href %q designates the assets directory", href)}
	}
	return full, nil
}

func samePath(a, b string) bool {
	aa, err1 := filepath.Abs(a)
	ab, err2 := filepath.Abs(b)
	if err1 != nil || err2 != nil {
		return filepath.Clean(a) == filepath.Clean(b)
	}
	return aa == ab
}

func (u *Uploader) register(ctx context.Context, s settings, item *common.Item, result *UploadResult, nbUploads int) error {
	if err := service.Cancelled(ctx); err != nil {
		u.warnOrphans(ctx, result)
		return &PartialFailure{Result: result, Err: err}
	}
	if nbUploads > 0 && len(result.Succeeded) == 0 {
		return &PartialFailure{Result: result, Err: ErrNothingUploaded}
	}

	var err error
	switch s.registration {
	case RegisterCreate:
		err = u.catalog.CreateItem(ctx, item)
	default:
		err = u.catalog.AddItem(ctx, item)
	}
	if err != nil {
		u.warnOrphans(ctx, result)
		return &PartialFailure{Result: result, Err: fmt.Errorf("register: %w", err)}
	}
	result.Registered = true
	return nil
}

// warnOrphans logs the uploaded files that are not referenced by any registered item
func (u *Uploader) warnOrphans(ctx context.Context, result *UploadResult) {
	if hrefs := result.UploadedHrefs(); len(hrefs) > 0 {
		log.Logger(ctx).Warn("item not registered, uploaded files are left in the storage", zap.Strings("hrefs", hrefs))
	}
}

func (u *Uploader) publish(ctx context.Context, s settings, item *common.Item, result *UploadResult, err error) {
	if s.publisher == nil {
		return
	}
	evt := result.Event(item)
	if err != nil {
		evt.Message = err.Error()
		var cerr service.ErrCancelled
		if errors.As(err, &cerr) {
			evt.Status = common.StatusCANCELLED
		}
	}
	b, e := json.Marshal(evt)
	if e != nil {
		log.Logger(ctx).Warn("unable to marshal the upload event", zap.Error(e))
		return
	}
	// Publication errors are only logged
	if e := s.publisher.Publish(context.WithoutCancel(ctx), b); e != nil {
		log.Logger(ctx).Warn("unable to publish the upload event", zap.Error(e))
	}
}
