package stac

import (
	"context"
	"fmt"
	"iter"
	"net/http"
	"net/url"
	"path"
	"strconv"

	"github.com/airbusgeo/stac-uploader/common"
	"github.com/airbusgeo/stac-uploader/service"
	"github.com/airbusgeo/stac-uploader/service/log"
)

const itemType = "item"

// ItemCollection is a page of items returned by the search endpoint
type ItemCollection struct {
	Type          string         `json:"type"`
	Features      []*common.Item `json:"features"`
	Links         []common.Link  `json:"links"`
	NumberMatched *int           `json:"numberMatched,omitempty"`
}

func itemPath(collectionID, itemID string) string {
	return path.Join("collections", url.PathEscape(collectionID), "items", url.PathEscape(itemID))
}

// FetchItem returns the item of the collection
// Raise service.ErrNotFound
func (c *Client) FetchItem(ctx context.Context, itemID, collectionID string) (*common.Item, error) {
	var item common.Item
	if err := c.send(ctx, http.MethodGet, c.URL(itemPath(collectionID, itemID), nil), nil, &item); err != nil {
		return nil, fmt.Errorf("FetchItem: %w", service.MapStatus(err, itemType, itemID))
	}
	return &item, nil
}

// CreateItem creates the item in its collection
// Raise service.ErrAlreadyExists, common.ErrValidation
func (c *Client) CreateItem(ctx context.Context, item *common.Item) error {
	if err := c.checkItem(item); err != nil {
		return fmt.Errorf("CreateItem: %w", err)
	}
	u := c.URL(path.Join("collections", url.PathEscape(item.Collection), "items"), nil)
	if err := c.send(ctx, http.MethodPost, u, item, nil); err != nil {
		return fmt.Errorf("CreateItem: %w", service.MapStatus(err, itemType, item.ID))
	}
	log.Logger(ctx).Sugar().Debugf("item %s created in %s", item.ID, item.Collection)
	return nil
}

// AddItem creates the item or replaces the existing one
// Raise common.ErrValidation
func (c *Client) AddItem(ctx context.Context, item *common.Item) error {
	if err := c.checkItem(item); err != nil {
		return fmt.Errorf("AddItem: %w", err)
	}
	if err := c.send(ctx, http.MethodPut, c.URL(itemPath(item.Collection, item.ID), nil), item, nil); err != nil {
		return fmt.Errorf("AddItem: %w", service.MapStatus(err, itemType, item.ID))
	}
	log.Logger(ctx).Sugar().Debugf("item %s added to %s", item.ID, item.Collection)
	return nil
}

// UpdateItem partially updates the item
// Raise service.ErrNotFound, common.ErrValidation
func (c *Client) UpdateItem(ctx context.Context, itemID, collectionID string, update common.ItemUpdate) error {
	if err := update.Validate(); err != nil {
		return fmt.Errorf("UpdateItem: %w", err)
	}
	if err := c.send(ctx, http.MethodPatch, c.URL(itemPath(collectionID, itemID), nil), update, nil); err != nil {
		return fmt.Errorf("UpdateItem: %w", service.MapStatus(err, itemType, itemID))
	}
	return nil
}

// DeleteItem deletes the item
// Raise service.ErrNotFound
func (c *Client) DeleteItem(ctx context.Context, itemID, collectionID string) error {
	if err := c.send(ctx, http.MethodDelete, c.URL(itemPath(collectionID, itemID), nil), nil, nil); err != nil {
		return fmt.Errorf("DeleteItem: %w", service.MapStatus(err, itemType, itemID))
	}
	return nil
}

// SearchItems returns a lazy sequence of the items matching the parameters.
// The pages are fetched one at a time, following the "next" links.
// The sequence stops at the first error, which is yielded with a nil item.
func (c *Client) SearchItems(ctx context.Context, params common.SearchParameters) iter.Seq2[*common.Item, error] {
	return func(yield func(*common.Item, error) bool) {
		if err := params.Validate(); err != nil {
			yield(nil, fmt.Errorf("SearchItems: %w", err))
			return
		}
		query := url.Values{}
		if params.Limit > 0 {
			query.Set("limit", strconv.Itoa(params.Limit))
		}
		seen := service.NewStringSet()
		for {
			var page ItemCollection
			if err := c.send(ctx, http.MethodPost, c.URL("search", query), params, &page); err != nil {
				yield(nil, fmt.Errorf("SearchItems: %w", err))
				return
			}
			for _, item := range page.Features {
				if !yield(item, nil) {
					return
				}
			}
			token, err := nextToken(page.Links)
			if err != nil {
				yield(nil, fmt.Errorf("SearchItems: %w", err))
				return
			}
			if token == "" || seen.Exists(token) {
				return
			}
			seen.Push(token)
			query.Set("cursor", token)
		}
	}
}

// SearchCatalog searches the items of the project matching the catalog parameters (50 items per page)
func (c *Client) SearchCatalog(ctx context.Context, params common.CatalogSearchParameters, projectID string) iter.Seq2[*common.Item, error] {
	sp, err := params.SearchParameters(projectID, 50)
	if err != nil {
		return func(yield func(*common.Item, error) bool) {
			yield(nil, fmt.Errorf("SearchCatalog: %w", err))
		}
	}
	return c.SearchItems(ctx, sp)
}

// checkItem checks that the item can be registered
func (c *Client) checkItem(item *common.Item) error {
	if item.Collection == "" {
		return common.ErrValidation{Field: "collection", Reason: "cannot register item: no collection found on item"}
	}
	if !common.ParentLinkConsistent(item) {
		return common.ErrValidation{Field: "links", Reason: "parent link does not match the collection " + item.Collection}
	}
	if c.validator != nil {
		if err := common.JoinFieldErrors(c.validator.ValidateItem(item)); err != nil {
			return err
		}
	}
	return nil
}
