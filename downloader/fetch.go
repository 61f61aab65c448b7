package downloader

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"strings"
	"time"

	"github.com/airbusgeo/osio"
	osioGcs "github.com/airbusgeo/osio/gcs"
	osioS3 "github.com/airbusgeo/osio/s3"
	"github.com/cavaliercoder/grab"

	"github.com/airbusgeo/stac-uploader/common"
	"github.com/airbusgeo/stac-uploader/service"
	"github.com/airbusgeo/stac-uploader/service/log"
)

// fetch copies the file of the href in dst
func fetch(ctx context.Context, href, dst string, opts Options) error {
	if !common.IsRemote(href) {
		return copyLocal(common.LocalPath(href), dst)
	}
	u, err := url.Parse(href)
	if err != nil {
		return fmt.Errorf("fetch: %w", err)
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "https":
		return downloadHTTP(ctx, href, dst, opts.HTTPClient)
	case "gs", "s3":
		if opts.Objects != nil {
			return opts.Objects.DownloadFile(ctx, href, dst)
		}
		return downloadObject(ctx, u, dst)
	default:
		return fmt.Errorf("fetch: unsupported scheme %s", u.Scheme)
	}
}

func fmtBytes(bytes int64) string {
	v := float64(bytes)
	switch {
	case v > 1<<30:
		return fmt.Sprintf("%.2fGo", v/(1<<30))
	case v > 1<<20:
		return fmt.Sprintf("%.2fMo", v/(1<<20))
	case v > 1<<10:
		return fmt.Sprintf("%.2fko", v/(1<<10))
	default:
		return fmt.Sprintf("%.2fo", v)
	}
}

func displayProgress(ctx context.Context, prefix string, resp *grab.Response, progressPeriod float64) {
	t := time.NewTicker(time.Second)
	defer t.Stop()

	progress, lastBytes, seconds := 0.0, int64(0), int64(0)
	for {
		select {
		case <-t.C:
			seconds++
			if resp.Progress() > progress {
				log.Logger(ctx).Sugar().Debugf("%s: %.2f%% %s/%s (%s/s)", prefix, 100*resp.Progress(), fmtBytes(resp.BytesComplete()), fmtBytes(resp.Size), fmtBytes((resp.BytesComplete()-lastBytes)/seconds))
				seconds = 0
				progress += progressPeriod
				lastBytes = resp.BytesComplete()
			}

		case <-resp.Done:
			return
		}
	}
}

// downloadHTTP downloads the file with a display every 5%
func downloadHTTP(ctx context.Context, href, dst string, client *http.Client) error {
	req, err := grab.NewRequest(dst, href)
	if err != nil {
		return fmt.Errorf("downloadHTTP.NewRequest: %w", err)
	}
	req = req.WithContext(ctx)
	req.NoResume = true

	gc := grab.NewClient()
	if client != nil {
		gc.HTTPClient = client
	}
	resp := gc.Do(req)
	displayProgress(ctx, path.Base(dst), resp, 0.05)

	if err := resp.Err(); err != nil {
		err = fmt.Errorf("download[%s]: %w", href, err)
		if resp.HTTPResponse == nil {
			return service.MakeTemporary(err)
		}
		switch resp.HTTPResponse.StatusCode {
		case 408, 429, 500, 501, 502, 503, 504:
			return service.MakeTemporary(err)
		case http.StatusNotFound:
			return service.ErrNotFound{Type: "asset", ID: href}
		default:
			return err
		}
	}
	return nil
}

// downloadObject downloads a gs:// or s3:// object
func downloadObject(ctx context.Context, u *url.URL, dst string) error {
	var handler osio.KeyStreamerAt
	var err error
	if strings.ToLower(u.Scheme) == "gs" {
		if handler, err = osioGcs.Handle(ctx); err != nil {
			return fmt.Errorf("downloadObject.GSHandle: %w", err)
		}
	} else {
		if handler, err = osioS3.Handle(ctx); err != nil {
			return fmt.Errorf("downloadObject.S3Handle: %w", err)
		}
	}
	adapter, err := osio.NewAdapter(handler)
	if err != nil {
		return fmt.Errorf("downloadObject.NewAdapter: %w", err)
	}
	obj, err := adapter.Reader(path.Join(u.Host, u.Path))
	if err != nil {
		return fmt.Errorf("downloadObject.Reader: %w", err)
	}

	f, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("downloadObject.Create: %w", err)
	}
	defer f.Close()
	if _, err := io.Copy(f, io.NewSectionReader(obj, 0, obj.Size())); err != nil {
		return service.MakeTemporary(fmt.Errorf("downloadObject.Copy: %w", err))
	}
	return f.Close()
}

func copyLocal(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return service.ErrLocalFile{Path: src, Err: err}
	}
	defer in.Close()
	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("copyLocal.Create: %w", err)
	}
	defer out.Close()
	if _, err := io.Copy(out, in); err != nil {
		return fmt.Errorf("copyLocal.Copy: %w", err)
	}
	return out.Close()
}
