package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"go.uber.org/zap"

	stacconfig "github.com/airbusgeo/stac-uploader/config"
	"github.com/airbusgeo/stac-uploader/downloader"
	"github.com/airbusgeo/stac-uploader/interface/stac"
	"github.com/airbusgeo/stac-uploader/service"
	"github.com/airbusgeo/stac-uploader/service/log"
)

type config struct {
	ConfigFile   string
	ItemID       string
	CollectionID string
	TargetDir    string
	Assets       string
	Overwrite    bool
	Unarchive    bool
	MaxWorkers   int
	StorageURI   string
}

func newAppConfig() (*config, error) {
	config := config{}
	flag.StringVar(&config.ConfigFile, "config", "", "yaml configuration file (default: "+stacconfig.DefaultConfigFile+" if it exists). Overridden by STAC_* environment variables.")
	flag.StringVar(&config.ItemID, "item", "", "id of the item to download")
	flag.StringVar(&config.CollectionID, "collection", "", "collection of the item")
	flag.StringVar(&config.TargetDir, "target-dir", "", "directory where the assets and the item file are downloaded (default: ./<item>)")
	flag.StringVar(&config.Assets, "assets", "", "comma-separated keys of the assets to download (default: all)")
	flag.BoolVar(&config.Overwrite, "overwrite", false, "download again the files that already exist")
	flag.BoolVar(&config.Unarchive, "unarchive", false, "extract the zip assets (directory assets) after download")
	flag.IntVar(&config.MaxWorkers, "max-workers", 4, "number of parallel downloads")
	flag.StringVar(&config.StorageURI, "storage-uri", "", "gs://bucket or s3://bucket used to download the gs/s3 assets with the storage credentials (default: direct object readers)")
	flag.Parse()

	if config.ItemID == "" {
		return nil, fmt.Errorf("missing item config flag")
	}
	if config.CollectionID == "" {
		return nil, fmt.Errorf("missing collection config flag")
	}
	return &config, nil
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	err := run(ctx)
	if err != nil {
		log.Fatal("error", zap.Error(err))
	}
}

func run(ctx context.Context) error {
	config, err := newAppConfig()
	if err != nil {
		return err
	}
	cfg, err := stacconfig.Load(config.ConfigFile)
	if err != nil {
		return err
	}
	client, err := cfg.HTTPClient(ctx)
	if err != nil {
		return err
	}
	catalog := stac.NewClient(service.NewHTTPClient(client, cfg.Retries), cfg.Stac)

	opts := downloader.Options{
		Overwrite:  config.Overwrite,
		Unarchive:  config.Unarchive,
		MaxWorkers: config.MaxWorkers,
		HTTPClient: client,
		Retries:    cfg.Retries,
	}
	if config.StorageURI != "" {
		objects, err := service.NewStorageStrategy(ctx, config.StorageURI)
		if err != nil {
			return fmt.Errorf("storage %s: %w", config.StorageURI, err)
		}
		opts.Objects = objects
	}
	if config.Assets != "" {
		opts.Assets = strings.Split(config.Assets, ",")
	}

	ctx = log.With(ctx, "item", config.ItemID)
	res, err := downloader.DownloadItem(ctx, catalog, config.ItemID, config.CollectionID, config.TargetDir, opts)
	if err != nil {
		return err
	}
	for _, a := range res.Downloaded {
		if a.Skipped {
			log.Logger(ctx).Sugar().Debugf("%s: %s already exists", a.Key, a.Path)
		}
	}
	log.Logger(ctx).Sugar().Infof("item written in %s", res.ItemFile)
	if len(res.Failed) > 0 {
		errs := make([]error, 0, len(res.Failed))
		for _, f := range res.Failed {
			errs = append(errs, fmt.Errorf("%s: %w", f.Key, f.Err))
		}
		return service.MergeErrors(true, nil, errs...)
	}
	return nil
}
