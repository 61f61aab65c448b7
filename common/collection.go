package common

import (
	"fmt"

	"github.com/go-spatial/geom/encoding/geojson"
)

// Collection is a STAC Collection
type Collection struct {
	Type           string                 `json:"type"`
	StacVersion    string                 `json:"stac_version"`
	StacExtensions []string               `json:"stac_extensions,omitempty"`
	ID             string                 `json:"id"`
	Title          string                 `json:"title,omitempty"`
	Description    string                 `json:"description"`
	Keywords       []string               `json:"keywords,omitempty"`
	License        string                 `json:"license"`
	Providers      []Provider             `json:"providers,omitempty"`
	Extent         Extent                 `json:"extent"`
	Summaries      map[string]interface{} `json:"summaries,omitempty"`
	Links          []Link                 `json:"links"`
	Assets         *Assets                `json:"assets,omitempty"`
}

// NewCollection creates a Collection with the mandatory fields
func NewCollection(id, description, license string, extent Extent) *Collection {
	return &Collection{
		Type:        "Collection",
		StacVersion: StacVersion,
		ID:          id,
		Description: description,
		License:     license,
		Extent:      extent,
		Links:       []Link{},
	}
}

// Provider of a collection
type Provider struct {
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Roles       []string `json:"roles,omitempty"`
	URL         string   `json:"url,omitempty"`
}

// Extent of a collection
type Extent struct {
	Spatial  SpatialExtent  `json:"spatial"`
	Temporal TemporalExtent `json:"temporal"`
}

// SpatialExtent is a list of bboxes
type SpatialExtent struct {
	BBox [][]float64 `json:"bbox"`
}

// TemporalExtent is a list of [start, end] intervals. nil means open.
type TemporalExtent struct {
	Interval [][]*string `json:"interval"`
}

// ItemUpdate is a partial update of an item. Nil fields are left unchanged.
type ItemUpdate struct {
	StacExtensions []string               `json:"stac_extensions,omitempty"`
	Geometry       *geojson.Geometry      `json:"geometry,omitempty"`
	BBox           []float64              `json:"bbox,omitempty"`
	Properties     map[string]interface{} `json:"properties,omitempty"`
	Assets         *Assets                `json:"assets,omitempty"`
	Links          []Link                 `json:"links,omitempty"`
}

// Validate checks that a datetime or a datetime range is provided and that the bbox is valid
func (u ItemUpdate) Validate() error {
	if u.Properties[TagDatetime] == nil && (u.Properties[TagStartDatetime] == nil || u.Properties[TagEndDatetime] == nil) {
		return ErrValidation{Field: "properties", Reason: "either 'datetime' or both 'start_datetime' and 'end_datetime' must be provided"}
	}
	if u.BBox != nil && len(u.BBox) != 4 {
		return ErrValidation{Field: "bbox", Reason: fmt.Sprintf("must be [minX, minY, maxX, maxY], got %d values", len(u.BBox))}
	}
	return nil
}

// CollectionUpdate is a partial update of a collection. Zero fields are left unchanged.
type CollectionUpdate struct {
	Title       string                 `json:"title,omitempty"`
	Description string                 `json:"description,omitempty"`
	Keywords    []string               `json:"keywords,omitempty"`
	License     string                 `json:"license,omitempty"`
	Providers   []Provider             `json:"providers,omitempty"`
	Extent      *Extent                `json:"extent,omitempty"`
	Summaries   map[string]interface{} `json:"summaries,omitempty"`
	Links       []Link                 `json:"links,omitempty"`
}
