package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"iter"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/araddon/dateparse"
	"github.com/go-spatial/geom/encoding/geojson"
	"go.uber.org/zap"

	"github.com/airbusgeo/stac-uploader/common"
	stacconfig "github.com/airbusgeo/stac-uploader/config"
	"github.com/airbusgeo/stac-uploader/interface/stac"
	"github.com/airbusgeo/stac-uploader/interface/storage/s3"
	"github.com/airbusgeo/stac-uploader/service"
	"github.com/airbusgeo/stac-uploader/service/log"
	"github.com/airbusgeo/stac-uploader/uploader"
)

type config struct {
	ConfigFile string
	Action     string

	// fetch & delete
	ItemID       string
	CollectionID string
	StorageURI   string
	S3           s3.Options
	SkipStorage  bool
	Force        bool

	// search
	Collections string
	IDs         string
	BBox        string
	Intersects  string
	Start       string
	End         string
	Limit       int
	MaxItems    int

	// catalog search (on the project)
	StartDate        string
	EndDate          string
	Seasons          string
	Satellites       string
	ProductTypes     string
	ProcessingLevels string
}

func newAppConfig() (*config, error) {
	config := config{}
	flag.StringVar(&config.ConfigFile, "config", "", "yaml configuration file (default: "+stacconfig.DefaultConfigFile+" if it exists). Overridden by STAC_* environment variables.")
	flag.StringVar(&config.Action, "action", "search", "search, catalog-search, fetch or delete")

	flag.StringVar(&config.ItemID, "item", "", "id of the item (fetch, delete)")
	flag.StringVar(&config.CollectionID, "collection", "", "collection of the item (fetch, delete)")
	flag.StringVar(&config.StorageURI, "storage-uri", stacconfig.StorageDatacosmos, "storage of the assets to delete (datacosmos, gs://bucket/prefix, s3://bucket/prefix or local directory)")
	flag.StringVar(&config.S3.Region, "s3-region", "", "s3 region (optional)")
	flag.StringVar(&config.S3.Endpoint, "s3-endpoint", "", "endpoint of an S3-compatible service (optional)")
	flag.BoolVar(&config.SkipStorage, "skip-storage", false, "delete the item without deleting its assets")
	flag.BoolVar(&config.Force, "force", false, "delete the item even if some assets could not be deleted")

	flag.StringVar(&config.Collections, "collections", "", "comma-separated collections (search)")
	flag.StringVar(&config.IDs, "ids", "", "comma-separated item ids (search)")
	flag.StringVar(&config.BBox, "bbox", "", "minx,miny,maxx,maxy (search)")
	flag.StringVar(&config.Intersects, "intersects", "", "geojson file of the area of interest (search)")
	flag.StringVar(&config.Start, "start", "", "start of the acquisition interval, in any common date format (search)")
	flag.StringVar(&config.End, "end", "", "end of the acquisition interval, in any common date format (search)")
	flag.IntVar(&config.Limit, "limit", 100, "number of items per page")
	flag.IntVar(&config.MaxItems, "max-items", 0, "maximum number of items returned (0: all)")

	flag.StringVar(&config.StartDate, "start-date", "", "start date mm/dd/yyyy (catalog-search)")
	flag.StringVar(&config.EndDate, "end-date", "", "end date mm/dd/yyyy (catalog-search)")
	flag.StringVar(&config.Seasons, "seasons", "", "comma-separated seasons among "+strings.Join(common.SeasonStrings(), ", ")+" (catalog-search)")
	flag.StringVar(&config.Satellites, "satellites", "", "comma-separated satellite names (catalog-search)")
	flag.StringVar(&config.ProductTypes, "product-types", "", "comma-separated product types among "+strings.Join(common.ProductTypeStrings(), ", ")+" (catalog-search)")
	flag.StringVar(&config.ProcessingLevels, "levels", "", "comma-separated processing levels among "+strings.Join(common.ProcessingLevelStrings(), ", ")+" (catalog-search)")
	flag.Parse()

	switch config.Action {
	case "fetch", "delete":
		if config.ItemID == "" || config.CollectionID == "" {
			return nil, fmt.Errorf("%s: missing item or collection config flag", config.Action)
		}
	case "search", "catalog-search":
	default:
		return nil, fmt.Errorf("unknown action %s", config.Action)
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
	enc := json.NewEncoder(os.Stdout)

	switch config.Action {
	case "fetch":
		item, err := catalog.FetchItem(ctx, config.ItemID, config.CollectionID)
		if err != nil {
			return err
		}
		enc.SetIndent("", "  ")
		return enc.Encode(item)

	case "delete":
		storage, err := cfg.NewStorage(ctx, config.StorageURI, config.S3)
		if err != nil {
			return fmt.Errorf("storage %s: %w", config.StorageURI, err)
		}
		res, err := uploader.New(catalog, storage).DeleteItemWithAssets(ctx, config.ItemID, config.CollectionID,
			uploader.DeleteOptions{SkipStorage: config.SkipStorage, Force: config.Force})
		if res != nil {
			log.Logger(ctx).Sugar().Infof("%s: item deleted: %t, %d asset(s) deleted, %d failed",
				config.ItemID, res.ItemDeleted, len(res.SucceededAssets), len(res.FailedAssets))
		}
		return err

	case "search":
		params, err := searchParameters(config)
		if err != nil {
			return err
		}
		return printItems(enc, catalog.SearchItems(ctx, params), config.MaxItems)

	case "catalog-search":
		params, err := catalogSearchParameters(config)
		if err != nil {
			return err
		}
		return printItems(enc, catalog.SearchCatalog(ctx, params, cfg.ProjectID), config.MaxItems)
	}
	return nil
}

func printItems(enc *json.Encoder, items iter.Seq2[*common.Item, error], maxItems int) error {
	n := 0
	for item, err := range items {
		if err != nil {
			return err
		}
		if err := enc.Encode(item); err != nil {
			return err
		}
		if n++; maxItems > 0 && n >= maxItems {
			break
		}
	}
	return nil
}

func split(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, ",")
}

func searchParameters(config *config) (common.SearchParameters, error) {
	params := common.SearchParameters{
		Collections: split(config.Collections),
		IDs:         split(config.IDs),
		Limit:       config.Limit,
	}
	for _, v := range split(config.BBox) {
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return params, fmt.Errorf("bbox: %w", err)
		}
		params.BBox = append(params.BBox, f)
	}
	if config.Intersects != "" {
		g, err := service.ReadGeometry(config.Intersects)
		if err != nil {
			return params, err
		}
		params.Intersects = &geojson.Geometry{Geometry: g}
	}
	if config.Start != "" || config.End != "" {
		start, end := "..", ".."
		if config.Start != "" {
			t, err := dateparse.ParseIn(config.Start, time.UTC)
			if err != nil {
				return params, fmt.Errorf("start: %w", err)
			}
			start = t.Format(time.RFC3339)
		}
		if config.End != "" {
			t, err := dateparse.ParseIn(config.End, time.UTC)
			if err != nil {
				return params, fmt.Errorf("end: %w", err)
			}
			end = t.Format(time.RFC3339)
		}
		params.Datetime = start + "/" + end
	}
	return params, params.Validate()
}

func catalogSearchParameters(config *config) (common.CatalogSearchParameters, error) {
	params := common.CatalogSearchParameters{
		StartDate:   config.StartDate,
		EndDate:     config.EndDate,
		Satellites:  split(config.Satellites),
		Collections: split(config.Collections),
	}
	for _, s := range split(config.Seasons) {
		season, err := common.SeasonString(s)
		if err != nil {
			return params, err
		}
		params.Seasons = append(params.Seasons, season)
	}
	for _, s := range split(config.ProductTypes) {
		t, err := common.ProductTypeString(s)
		if err != nil {
			return params, err
		}
		params.ProductTypes = append(params.ProductTypes, t)
	}
	for _, s := range split(config.ProcessingLevels) {
		l, err := common.ParseProcessingLevel(s)
		if err != nil {
			return params, err
		}
		params.ProcessingLevels = append(params.ProcessingLevels, l)
	}
	return params, nil
}
