package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/airbusgeo/geocube/interface/messaging"
	"github.com/airbusgeo/geocube/interface/messaging/pgqueue"
	"github.com/airbusgeo/geocube/interface/messaging/pubsub"
	_ "github.com/lib/pq"
	"go.uber.org/zap"

	stacconfig "github.com/airbusgeo/stac-uploader/config"
	"github.com/airbusgeo/stac-uploader/interface/stac"
	"github.com/airbusgeo/stac-uploader/interface/storage/s3"
	"github.com/airbusgeo/stac-uploader/service"
	"github.com/airbusgeo/stac-uploader/service/log"
	"github.com/airbusgeo/stac-uploader/uploader"
)

type config struct {
	ConfigFile string
	ItemFile   string
	AssetsPath string
	WorkingDir string

	StorageURI string
	S3         s3.Options

	IncludedAssets string
	MaxWorkers     int
	Timeout        time.Duration
	Layout         string
	Template       string
	Create         bool

	PsProject       string
	EventQueue      string
	PgqDbConnection string
}

func newAppConfig() (*config, error) {
	config := config{}
	flag.StringVar(&config.ConfigFile, "config", "", "yaml configuration file (default: "+stacconfig.DefaultConfigFile+" if it exists). Overridden by STAC_* environment variables.")
	flag.StringVar(&config.ItemFile, "item", "", "json file of the STAC item to upload")
	flag.StringVar(&config.AssetsPath, "assets-path", "", "directory of the asset files (default: the directory of the item file)")
	flag.StringVar(&config.WorkingDir, "workdir", os.TempDir(), "working directory to zip the directory assets")

	// Storage
	flag.StringVar(&config.StorageURI, "storage-uri", stacconfig.StorageDatacosmos, "storage of the assets (datacosmos, gs://bucket/prefix, s3://bucket/prefix or local directory)")
	flag.StringVar(&config.S3.Region, "s3-region", "", "s3 region (optional)")
	flag.StringVar(&config.S3.Endpoint, "s3-endpoint", "", "endpoint of an S3-compatible service (optional)")
	flag.StringVar(&config.S3.AccessKeyID, "s3-access-key-id", "", "s3 access key id (optional, default: aws credential chain)")
	flag.StringVar(&config.S3.SecretAccessKey, "s3-secret-access-key", "", "s3 secret access key (optional)")

	// Upload
	flag.StringVar(&config.IncludedAssets, "included-assets", "*", "comma-separated keys of the assets to upload ('*': all, '': none)")
	flag.IntVar(&config.MaxWorkers, "max-workers", uploader.DefaultMaxWorkers, "number of parallel uploads")
	flag.DurationVar(&config.Timeout, "timeout", uploader.DefaultTimeout, "timeout of the whole upload")
	flag.StringVar(&config.Layout, "layout", "collection", "layout of the uploaded files: collection, project (requires STAC_PROJECT_ID), archive (requires STAC_MISSION_ID) or template")
	flag.StringVar(&config.Template, "template", "", "template of the keys if layout=template (e.g. {COLLECTION}/{YEAR}/{MONTH}/{ITEM}/{FILENAME})")
	flag.BoolVar(&config.Create, "create", false, "fail if the item already exists (default: the item is created or replaced)")

	// Messaging
	flag.StringVar(&config.PgqDbConnection, "pgq-connection", "", "enable pgq messaging system with a connection to the database")
	flag.StringVar(&config.PsProject, "ps-project", "", "pubsub project (gcp only/not required in local usage)")
	flag.StringVar(&config.EventQueue, "event-queue", "", "name of the queue for upload events (pgqueue or pubsub topic, optional)")

	flag.Parse()

	if config.ItemFile == "" {
		return nil, fmt.Errorf("missing item config flag")
	}
	if config.Layout == "template" && config.Template == "" {
		return nil, fmt.Errorf("missing template config flag")
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

	options := []uploader.Option{
		uploader.WithMaxWorkers(config.MaxWorkers),
		uploader.WithTimeout(config.Timeout),
		uploader.WithWorkdir(config.WorkingDir),
	}
	switch config.IncludedAssets {
	case "*":
		options = append(options, uploader.WithAllAssets())
	case "":
		options = append(options, uploader.WithNoAssets())
	default:
		options = append(options, uploader.WithIncludedAssets(strings.Split(config.IncludedAssets, ",")...))
	}
	switch config.Layout {
	case "collection":
	case "project":
		if cfg.ProjectID == "" {
			return fmt.Errorf("layout project requires a project id")
		}
		options = append(options, uploader.WithKeyFunc(uploader.ProjectKey(cfg.ProjectID)))
	case "archive":
		if cfg.MissionID == "" {
			return fmt.Errorf("layout archive requires a mission id")
		}
		options = append(options, uploader.WithKeyFunc(uploader.ArchiveKey(cfg.MissionID)))
	case "template":
		options = append(options, uploader.WithKeyFunc(uploader.TemplateKey(config.Template)))
	default:
		return fmt.Errorf("unknown layout %s", config.Layout)
	}
	if config.Create {
		options = append(options, uploader.WithRegistration(uploader.RegisterCreate))
	}

	// Events
	var logMessaging string
	if config.EventQueue != "" {
		var eventPublisher messaging.Publisher
		if config.PgqDbConnection != "" {
			_, w, err := pgqueue.SqlConnect(ctx, config.PgqDbConnection)
			if err != nil {
				return fmt.Errorf("MessagingService: %w", err)
			}
			logMessaging = fmt.Sprintf(" pushing on pgqueue:%s", config.EventQueue)
			eventPublisher = pgqueue.NewPublisher(w, config.EventQueue, pgqueue.WithMaxRetries(5))
		} else {
			logMessaging = fmt.Sprintf(" pushing on pubsub:%s/%s", config.PsProject, config.EventQueue)
			eventTopic, err := pubsub.NewPublisher(ctx, config.PsProject, config.EventQueue, pubsub.WithMaxRetries(5))
			if err != nil {
				return fmt.Errorf("pubsub.NewPublisher: %w", err)
			}
			defer eventTopic.Stop()
			eventPublisher = eventTopic
		}
		options = append(options, uploader.WithPublisher(eventPublisher))
	}

	client, err := cfg.HTTPClient(ctx)
	if err != nil {
		return err
	}
	catalog := stac.NewClient(service.NewHTTPClient(client, cfg.Retries), cfg.Stac)
	storage, err := cfg.NewStorage(ctx, config.StorageURI, config.S3)
	if err != nil {
		return fmt.Errorf("storage %s: %w", config.StorageURI, err)
	}

	log.Logger(ctx).Sugar().Debugf("uploader starts: catalog %s, storage %s%s", cfg.Stac.String(), config.StorageURI, logMessaging)
	item, res, err := uploader.New(catalog, storage, options...).UploadItemFile(ctx, config.ItemFile, config.AssetsPath)
	if res != nil {
		for _, f := range res.Failed {
			log.Logger(ctx).Warn("asset "+f.Key+" not uploaded", zap.Error(f.Err))
		}
	}
	if err != nil {
		var partial *uploader.PartialFailure
		if errors.As(err, &partial) && len(partial.Result.UploadedHrefs()) > 0 {
			log.Logger(ctx).Sugar().Warnf("uploaded files not registered: %s", strings.Join(partial.Result.UploadedHrefs(), ", "))
		}
		return err
	}
	log.Logger(ctx).Sugar().Infof("item %s registered in %s: %d asset(s), %d failed", item.ID, item.Collection, len(res.Succeeded), len(res.Failed))
	if !res.Complete() {
		return fmt.Errorf("%d asset(s) failed: %s", len(res.Failed), strings.Join(res.FailedKeys(), ", "))
	}
	return nil
}
