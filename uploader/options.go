package uploader

import (
	"path"
	"time"

	"github.com/airbusgeo/geocube/interface/messaging"

	"github.com/airbusgeo/stac-uploader/common"
	"github.com/airbusgeo/stac-uploader/service"
)

// Default settings of an Uploader
const (
	DefaultMaxWorkers = 4
	DefaultTimeout    = time.Hour
)

// Registration is the way the item is registered in the catalog after the upload
type Registration int

const (
	// RegisterAdd creates or replaces the item
	RegisterAdd Registration = iota
	// RegisterCreate creates the item and fails if it already exists
	RegisterCreate
)

// KeyFunc returns the storage key of a file of an asset
type KeyFunc func(item *common.Item, assetKey, filename string) (string, error)

// CollectionKey stores the files under <collection>/<item>/<asset key>/<filename>
func CollectionKey(item *common.Item, assetKey, filename string) (string, error) {
	return common.AssetKey(item.Collection, item.ID, assetKey, filename)
}

// ProjectKey stores the files under project/<project>/<item>/<filename>
func ProjectKey(project string) KeyFunc {
	return func(item *common.Item, assetKey, filename string) (string, error) {
		return common.ProjectPath{Project: project, Item: item.ID, Asset: filename}.String(), nil
	}
}

// ArchiveKey stores the files under full/<mission>/<level>/<yyyy>/<mm>/<dd>/<item>/<filename>.
// If mission is empty, the mission property of the item is used.
func ArchiveKey(mission string) KeyFunc {
	return func(item *common.Item, assetKey, filename string) (string, error) {
		p, err := common.ArchivePathFromItem(item, mission, filename)
		if err != nil {
			return "", err
		}
		return p.String(), nil
	}
}

// TemplateKey builds the key from a template such as "{COLLECTION}/{YEAR}/{ITEM}/{FILENAME}" (see common.FormatBrackets)
func TemplateKey(template string) KeyFunc {
	return func(item *common.Item, assetKey, filename string) (string, error) {
		return path.Clean(common.FormatBrackets(template, common.ItemInfo(item, assetKey, filename))), nil
	}
}

type settings struct {
	maxWorkers   int
	timeout      time.Duration
	included     service.StringSet // nil: all assets
	keyFunc      KeyFunc
	registration Registration
	publisher    messaging.Publisher
	workdir      string
}

func defaultSettings() settings {
	return settings{
		maxWorkers: DefaultMaxWorkers,
		timeout:    DefaultTimeout,
		keyFunc:    CollectionKey,
	}
}

func (s settings) includes(assetKey string) bool {
	return s.included == nil || s.included.Exists(assetKey)
}

// Option configures an Uploader, or a single UploadItem call
type Option func(*settings)

// WithMaxWorkers sets the number of parallel uploads
func WithMaxWorkers(n int) Option {
	return func(s *settings) {
		if n > 0 {
			s.maxWorkers = n
		}
	}
}

// WithTimeout sets the maximum duration of an UploadItem call (0 for no timeout)
func WithTimeout(d time.Duration) Option {
	return func(s *settings) { s.timeout = d }
}

// WithIncludedAssets restricts the upload to the given asset keys.
// The other assets are registered with their href unchanged.
func WithIncludedAssets(keys ...string) Option {
	return func(s *settings) { s.included = service.NewStringSet(keys...) }
}

// WithAllAssets uploads all the local assets (default)
func WithAllAssets() Option {
	return func(s *settings) { s.included = nil }
}

// WithNoAssets only registers the item
func WithNoAssets() Option {
	return WithIncludedAssets()
}

// WithKeyFunc sets the storage layout
func WithKeyFunc(f KeyFunc) Option {
	return func(s *settings) {
		if f != nil {
			s.keyFunc = f
		}
	}
}

// WithRegistration sets the way the item is registered
func WithRegistration(r Registration) Option {
	return func(s *settings) { s.registration = r }
}

// WithPublisher publishes a common.UploadEvent after each UploadItem call
func WithPublisher(p messaging.Publisher) Option {
	return func(s *settings) { s.publisher = p }
}

// WithWorkdir sets the directory where the asset directories are archived before upload
func WithWorkdir(dir string) Option {
	return func(s *settings) { s.workdir = dir }
}
