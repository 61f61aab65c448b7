package common

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/go-spatial/geom"
	"github.com/go-spatial/geom/encoding/geojson"
)

// StacVersion is the version of the STAC specification produced by this package
const StacVersion = "1.1.0"

// DatetimeFormat is the layout of the datetime properties
const DatetimeFormat = "2006-01-02T15:04:05Z"

// Item is a STAC Item
type Item struct {
	Type           string                 `json:"type"`
	StacVersion    string                 `json:"stac_version"`
	StacExtensions []string               `json:"stac_extensions,omitempty"`
	ID             string                 `json:"id"`
	Geometry       *geojson.Geometry      `json:"geometry"`
	BBox           []float64              `json:"bbox,omitempty"`
	Properties     map[string]interface{} `json:"properties"`
	Links          []Link                 `json:"links"`
	Assets         Assets                 `json:"assets"`
	Collection     string                 `json:"collection,omitempty"`
}

// NewItem creates an Item of the collection with the mandatory fields
func NewItem(id, collection string, datetime time.Time) *Item {
	return &Item{
		Type:        "Feature",
		StacVersion: StacVersion,
		ID:          id,
		Collection:  collection,
		Properties:  map[string]interface{}{TagDatetime: datetime.UTC().Format(DatetimeFormat)},
		Links:       []Link{},
	}
}

// Asset is a file or a resource attached to an Item or a Collection
type Asset struct {
	Href        string       `json:"href"`
	Title       string       `json:"title,omitempty"`
	Description string       `json:"description,omitempty"`
	Type        string       `json:"type,omitempty"`
	Roles       []string     `json:"roles,omitempty"`
	EoBands     []EoBand     `json:"eo:bands,omitempty"`
	RasterBands []RasterBand `json:"raster:bands,omitempty"`
	Bands       []Band       `json:"bands,omitempty"`
	Statistics  *Statistics  `json:"statistics,omitempty"`
	Nodata      interface{}  `json:"nodata,omitempty"`
	Unit        string       `json:"unit,omitempty"`
}

// HasRole returns true if the asset has the role
func (a *Asset) HasRole(role string) bool {
	for _, r := range a.Roles {
		if strings.EqualFold(r, role) {
			return true
		}
	}
	return false
}

// Link is a STAC link
type Link struct {
	Href    string                 `json:"href"`
	Rel     string                 `json:"rel"`
	Type    string                 `json:"type,omitempty"`
	Title   string                 `json:"title,omitempty"`
	Method  string                 `json:"method,omitempty"`
	Headers map[string]interface{} `json:"headers,omitempty"`
	Body    map[string]interface{} `json:"body,omitempty"`
	Merge   bool                   `json:"merge,omitempty"`
}

// Statistics of the values of a band
type Statistics struct {
	Minimum      *float64 `json:"minimum,omitempty"`
	Maximum      *float64 `json:"maximum,omitempty"`
	Mean         *float64 `json:"mean,omitempty"`
	Stddev       *float64 `json:"stddev,omitempty"`
	Count        *int64   `json:"count,omitempty"`
	ValidPercent *float64 `json:"valid_percent,omitempty"`
}

// Band (STAC 1.1 common band object)
type Band struct {
	Name        string      `json:"name,omitempty"`
	Description string      `json:"description,omitempty"`
	Nodata      interface{} `json:"nodata,omitempty"`
	DataType    string      `json:"data_type,omitempty"`
	Statistics  *Statistics `json:"statistics,omitempty"`
	Unit        string      `json:"unit,omitempty"`
}

// EoBand (electro-optical extension)
type EoBand struct {
	Name              string   `json:"name,omitempty"`
	CommonName        string   `json:"common_name,omitempty"`
	Description       string   `json:"description,omitempty"`
	CenterWavelength  *float64 `json:"center_wavelength,omitempty"`
	FullWidthHalfMax  *float64 `json:"full_width_half_max,omitempty"`
	SolarIllumination *float64 `json:"solar_illumination,omitempty"`
}

// RasterBand (raster extension)
type RasterBand struct {
	Nodata            interface{} `json:"nodata,omitempty"`
	Sampling          string      `json:"sampling,omitempty"`
	DataType          string      `json:"data_type,omitempty"`
	BitsPerSample     *int        `json:"bits_per_sample,omitempty"`
	SpatialResolution *float64    `json:"spatial_resolution,omitempty"`
	Statistics        *Statistics `json:"statistics,omitempty"`
	Unit              string      `json:"unit,omitempty"`
	Scale             *float64    `json:"scale,omitempty"`
	Offset            *float64    `json:"offset,omitempty"`
}

// Property returns the property as a string ("" if not found or not a string)
func (i *Item) Property(key string) string {
	if v, ok := i.Properties[key].(string); ok {
		return v
	}
	return ""
}

// SetProperty sets the property
func (i *Item) SetProperty(key string, value interface{}) {
	if i.Properties == nil {
		i.Properties = map[string]interface{}{}
	}
	i.Properties[key] = value
}

// Datetime returns the datetime property.
// The STAC layout is expected, other layouts are parsed on a best effort basis.
func (i *Item) Datetime() (time.Time, error) {
	v := i.Property(TagDatetime)
	if v == "" {
		return time.Time{}, fmt.Errorf("Datetime: missing %s property", TagDatetime)
	}
	if t, err := time.Parse(time.RFC3339Nano, v); err == nil {
		return t.UTC(), nil
	}
	t, err := dateparse.ParseIn(v, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("Datetime: %w", err)
	}
	return t.UTC(), nil
}

// ProcessingLevel returns the "processing:level" property
func (i *Item) ProcessingLevel() (ProcessingLevel, error) {
	v := i.Property(TagProcessingLevel)
	if v == "" {
		return 0, fmt.Errorf("ProcessingLevel: missing %s property", TagProcessingLevel)
	}
	return ParseProcessingLevel(v)
}

// PlatformDesignator returns the COSPAR id of the platform
func (i *Item) PlatformDesignator() (string, error) {
	v := i.Property(TagPlatformDesignator)
	if v == "" {
		return "", fmt.Errorf("%s is missing in STAC item", TagPlatformDesignator)
	}
	return v, nil
}

// LinksByRel returns the links with the given relation
func (i *Item) LinksByRel(rel string) []Link {
	var links []Link
	for _, l := range i.Links {
		if l.Rel == rel {
			links = append(links, l)
		}
	}
	return links
}

// UpdateBBox computes the bbox from the geometry
func (i *Item) UpdateBBox() error {
	if i.Geometry == nil || i.Geometry.Geometry == nil {
		i.BBox = nil
		return nil
	}
	bbox, err := BBox(i.Geometry.Geometry)
	if err != nil {
		return fmt.Errorf("UpdateBBox: %w", err)
	}
	i.BBox = bbox
	return nil
}

// BBox returns the [minX, minY, maxX, maxY] extent of the geometry
func BBox(g geom.Geometry) ([]float64, error) {
	extent, err := geom.NewExtentFromGeometry(g)
	if err != nil {
		return nil, err
	}
	return []float64{extent.MinX(), extent.MinY(), extent.MaxX(), extent.MaxY()}, nil
}

// Clone returns a deep copy of the item
func (i *Item) Clone() (*Item, error) {
	b, err := json.Marshal(i)
	if err != nil {
		return nil, fmt.Errorf("Clone.Marshal: %w", err)
	}
	var c Item
	if err := json.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("Clone.Unmarshal: %w", err)
	}
	return &c, nil
}
