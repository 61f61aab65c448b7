package stac

import (
	"context"
	"encoding/json"
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

const collectionType = "collection"

func collectionPath(collectionID string) string {
	return path.Join("collections", url.PathEscape(collectionID))
}

// FetchCollection returns the collection
// Raise service.ErrNotFound
func (c *Client) FetchCollection(ctx context.Context, collectionID string) (*common.Collection, error) {
	var collection common.Collection
	if err := c.send(ctx, http.MethodGet, c.URL(collectionPath(collectionID), nil), nil, &collection); err != nil {
		return nil, fmt.Errorf("FetchCollection: %w", service.MapStatus(err, collectionType, collectionID))
	}
	return &collection, nil
}

// CreateCollection creates the collection
// Raise service.ErrAlreadyExists, common.ErrValidation
func (c *Client) CreateCollection(ctx context.Context, collection *common.Collection) error {
	if collection.ID == "" {
		return fmt.Errorf("CreateCollection: %w", common.ErrValidation{Field: "id", Reason: "must not be empty"})
	}
	if c.validateLicense {
		license, err := c.checkLicense(ctx, collection.License, collection.Links)
		if err != nil {
			return fmt.Errorf("CreateCollection: %w", err)
		}
		collection.License = license
	}
	if collection.Type == "" {
		collection.Type = "Collection"
	}
	if collection.StacVersion == "" {
		collection.StacVersion = common.StacVersion
	}
	if collection.Links == nil {
		collection.Links = []common.Link{}
	}
	if err := c.send(ctx, http.MethodPost, c.URL("collections", nil), collection, nil); err != nil {
		return fmt.Errorf("CreateCollection: %w", service.MapStatus(err, collectionType, collection.ID))
	}
	return nil
}

// UpdateCollection partially updates the collection
// Raise service.ErrNotFound, common.ErrValidation
func (c *Client) UpdateCollection(ctx context.Context, collectionID string, update common.CollectionUpdate) error {
	if c.validateLicense && update.License != "" {
		license, err := c.checkLicense(ctx, update.License, update.Links)
		if err != nil {
			return fmt.Errorf("UpdateCollection: %w", err)
		}
		update.License = license
	}
	if err := c.send(ctx, http.MethodPatch, c.URL(collectionPath(collectionID), nil), update, nil); err != nil {
		return fmt.Errorf("UpdateCollection: %w", service.MapStatus(err, collectionType, collectionID))
	}
	return nil
}

// DeleteCollection deletes the collection
// Raise service.ErrNotFound
func (c *Client) DeleteCollection(ctx context.Context, collectionID string) error {
	if err := c.send(ctx, http.MethodDelete, c.URL(collectionPath(collectionID), nil), nil, nil); err != nil {
		return fmt.Errorf("DeleteCollection: %w", service.MapStatus(err, collectionType, collectionID))
	}
	return nil
}

type collectionsPage struct {
	Collections []json.RawMessage `json:"collections"`
	Links       []common.Link     `json:"links"`
}

// UnmarshalJSON accepts a bare list of collections as well
func (p *collectionsPage) UnmarshalJSON(b []byte) error {
	var list []json.RawMessage
	if err := json.Unmarshal(b, &list); err == nil {
		p.Collections = list
		return nil
	}
	type page collectionsPage
	return json.Unmarshal(b, (*page)(p))
}

// FetchAllCollections returns a lazy sequence of all the collections, following the "next" links.
// Documents that are not of type "Collection" are skipped.
func (c *Client) FetchAllCollections(ctx context.Context) iter.Seq2[*common.Collection, error] {
	return func(yield func(*common.Collection, error) bool) {
		query := url.Values{"limit": {strconv.Itoa(c.collectionsLimit)}}
		seen := service.NewStringSet()
		for {
			var page collectionsPage
			if err := c.send(ctx, http.MethodGet, c.URL("collections", query), nil, &page); err != nil {
				yield(nil, fmt.Errorf("FetchAllCollections: %w", err))
				return
			}
			for _, raw := range page.Collections {
				var collection common.Collection
				if err := json.Unmarshal(raw, &collection); err != nil {
					yield(nil, fmt.Errorf("FetchAllCollections.Unmarshal: %w", err))
					return
				}
				if collection.Type != "Collection" {
					continue
				}
				if collection.StacVersion == "" {
					collection.StacVersion = "1.0.0"
				}
				if collection.Links == nil {
					collection.Links = []common.Link{}
				}
				if !yield(&collection, nil) {
					return
				}
			}
			token, err := nextToken(page.Links)
			if err != nil {
				yield(nil, fmt.Errorf("FetchAllCollections: %w", err))
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

func (c *Client) checkLicense(ctx context.Context, license string, links []common.Link) (string, error) {
	license, warning, err := common.NormalizeLicense(license)
	if err != nil {
		return "", err
	}
	if warning != "" {
		log.Logger(ctx).Sugar().Warn(warning)
	}
	if err := common.EnsureLicenseLinks(license, links); err != nil {
		return "", err
	}
	return license, nil
}
