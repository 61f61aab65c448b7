package uploader

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/airbusgeo/stac-uploader/common"
	"github.com/airbusgeo/stac-uploader/service"
	"github.com/airbusgeo/stac-uploader/service/log"
)

// DeleteOptions of DeleteItemWithAssets
type DeleteOptions struct {
	// SkipStorage only deletes the item from the catalog
	SkipStorage bool
	// Force deletes the item even if some assets could not be deleted
	Force bool
}

// DeleteResult reports the deletion of an item and of its assets
type DeleteResult struct {
	// Item as it was before the deletion
	Item            *common.Item
	ItemDeleted     bool
	SucceededAssets []string
	FailedAssets    []AssetFailure
}

// AllAssetsDeleted returns true if no asset deletion failed
func (r *DeleteResult) AllAssetsDeleted() bool {
	return len(r.FailedAssets) == 0
}

// FullyDeleted returns true if the item and all its assets are deleted
func (r *DeleteResult) FullyDeleted() bool {
	return r.ItemDeleted && r.AllAssetsDeleted()
}

// ErrItemNotFound is returned when the item to delete does not exist
type ErrItemNotFound struct {
	ItemID       string
	CollectionID string
}

func (e ErrItemNotFound) Error() string {
	return fmt.Sprintf("item %s not found in collection %s", e.ItemID, e.CollectionID)
}

// ErrDelete is returned when the item or some of its assets could not be deleted
type ErrDelete struct {
	ItemID       string
	CollectionID string
	FailedAssets []string
	Err          error
}

func (e ErrDelete) Error() string {
	msg := fmt.Sprintf("delete item %s of %s", e.ItemID, e.CollectionID)
	if len(e.FailedAssets) > 0 {
		msg += fmt.Sprintf(" (failed assets: %s)", strings.Join(e.FailedAssets, ", "))
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e ErrDelete) Unwrap() error { return e.Err }

// DeleteItemWithAssets deletes the files of the assets from the storage, then the item from the catalog.
// Remote assets that do not belong to the storage are reported as failed.
// The item is not deleted if an asset could not be deleted, unless opts.Force is set.
// The result is returned with the error, if any.
func (u *Uploader) DeleteItemWithAssets(ctx context.Context, itemID, collectionID string, opts DeleteOptions) (*DeleteResult, error) {
	ctx = log.With(ctx, "item", itemID)
	item, err := u.catalog.FetchItem(ctx, itemID, collectionID)
	if err != nil {
		if service.IsNotFound(err) {
			return nil, ErrItemNotFound{ItemID: itemID, CollectionID: collectionID}
		}
		return nil, fmt.Errorf("DeleteItemWithAssets.FetchItem: %w", err)
	}

	result := &DeleteResult{Item: item, SucceededAssets: []string{}, FailedAssets: []AssetFailure{}}
	if !opts.SkipStorage {
		for _, p := range item.Assets.Pairs() {
			if p.Asset == nil {
				continue
			}
			if err := service.Cancelled(ctx); err != nil {
				result.FailedAssets = append(result.FailedAssets, AssetFailure{Key: p.Key, Err: err})
				continue
			}
			if err := u.storage.Delete(ctx, p.Asset.Href); err != nil {
				log.Logger(ctx).Warn("asset deletion failed", zap.String("asset", p.Key), zap.Error(err))
				result.FailedAssets = append(result.FailedAssets, AssetFailure{Key: p.Key, Err: err})
				continue
			}
			result.SucceededAssets = append(result.SucceededAssets, p.Key)
		}
	}

	failed := make([]string, len(result.FailedAssets))
	for i, f := range result.FailedAssets {
		failed[i] = f.Key
	}
	if len(failed) > 0 && !opts.Force {
		return result, ErrDelete{ItemID: itemID, CollectionID: collectionID, FailedAssets: failed}
	}

	if err := u.catalog.DeleteItem(ctx, itemID, collectionID); err != nil {
		return result, ErrDelete{ItemID: itemID, CollectionID: collectionID, FailedAssets: failed, Err: err}
	}
	result.ItemDeleted = true
	log.Logger(ctx).Sugar().Infof("item %s/%s deleted (%d asset(s) deleted, %d failed)",
		collectionID, itemID, len(result.SucceededAssets), len(failed))
	if len(failed) > 0 {
		return result, ErrDelete{ItemID: itemID, CollectionID: collectionID, FailedAssets: failed}
	}
	return result, nil
}
