package common

import (
	"fmt"
	"time"

	"github.com/go-spatial/geom/encoding/geojson"
)

// MaxSearchLimit is the maximum number of items per page
const MaxSearchLimit = 10000

// SearchParameters is the body of a STAC search
type SearchParameters struct {
	BBox        []float64                         `json:"bbox,omitempty"`
	Datetime    string                            `json:"datetime,omitempty"`
	Intersects  *geojson.Geometry                 `json:"intersects,omitempty"`
	IDs         []string                          `json:"ids,omitempty"`
	Collections []string                          `json:"collections,omitempty"`
	Limit       int                               `json:"limit,omitempty"`
	Query       map[string]map[string]interface{} `json:"query,omitempty"`
	Project     string                            `json:"project,omitempty"`
}

// Validate checks the bbox and the limit
func (p SearchParameters) Validate() error {
	if p.BBox != nil && len(p.BBox) != 4 && len(p.BBox) != 6 {
		return ErrValidation{Field: "bbox", Reason: "bbox must contain 4 or 6 values"}
	}
	if p.Limit != 0 && (p.Limit < 1 || p.Limit > MaxSearchLimit) {
		return ErrValidation{Field: "limit", Reason: fmt.Sprintf("must be between 1 and %d", MaxSearchLimit)}
	}
	if p.BBox != nil && p.Intersects != nil {
		return ErrValidation{Field: "intersects", Reason: "bbox and intersects are mutually exclusive"}
	}
	return nil
}

// CatalogSearchDateFormat is the layout of the dates of CatalogSearchParameters (mm/dd/yyyy)
const CatalogSearchDateFormat = "01/02/2006"

// MinCatalogSearchDate is the earliest date accepted by CatalogSearchParameters
var MinCatalogSearchDate = time.Date(2015, 5, 15, 0, 0, 0, 0, time.UTC)

// CatalogSearchParameters are user-friendly search filters converted into a STAC query
type CatalogSearchParameters struct {
	StartDate        string
	EndDate          string
	Seasons          []Season
	Satellites       []string
	ProductTypes     []ProductType
	ProcessingLevels []ProcessingLevel
	Collections      []string
}

func parseCatalogDate(name, value string) (time.Time, error) {
	dt, err := time.Parse(CatalogSearchDateFormat, value)
	if err != nil {
		return time.Time{}, ErrValidation{Field: name, Reason: fmt.Sprintf("invalid format. Use mm/dd/yyyy (e.g., 05/15/2024): %s", value)}
	}
	if dt.Before(MinCatalogSearchDate) {
		return time.Time{}, ErrValidation{Field: name, Reason: "date must be 5/15/2015 or later"}
	}
	return dt, nil
}

// DateRange returns the parsed start and end dates. The end date is extended to the end of the day.
// Zero times are returned for empty dates.
func (p CatalogSearchParameters) DateRange() (start, end time.Time, err error) {
	if p.StartDate != "" {
		if start, err = parseCatalogDate("start_date", p.StartDate); err != nil {
			return
		}
	}
	if p.EndDate != "" {
		if end, err = parseCatalogDate("end_date", p.EndDate); err != nil {
			return
		}
		end = end.Add(24*time.Hour - time.Millisecond)
	}
	if !start.IsZero() && !end.IsZero() && start.After(end) {
		err = ErrValidation{Field: "end_date", Reason: "end_date cannot be before start_date"}
	}
	return
}

// ToQuery maps the filters to the STAC query structure
func (p CatalogSearchParameters) ToQuery() (map[string]map[string]interface{}, error) {
	start, end, err := p.DateRange()
	if err != nil {
		return nil, err
	}
	query := map[string]map[string]interface{}{}
	if !start.IsZero() || !end.IsZero() {
		query[TagDatetime] = map[string]interface{}{"gte": isoDate(start), "lte": isoDate(end)}
	}
	if len(p.Seasons) > 0 {
		values := make([]string, len(p.Seasons))
		for i, s := range p.Seasons {
			values[i] = s.String()
		}
		query[TagSeason] = map[string]interface{}{"in": values}
	}
	if len(p.ProductTypes) > 0 {
		values := make([]string, len(p.ProductTypes))
		for i, t := range p.ProductTypes {
			values[i] = t.String()
		}
		query[TagProductType] = map[string]interface{}{"in": values}
	}
	if len(p.ProcessingLevels) > 0 {
		values := make([]string, len(p.ProcessingLevels))
		for i, l := range p.ProcessingLevels {
			values[i] = l.String()
		}
		query[TagProcessingLevel] = map[string]interface{}{"in": values}
	}
	if len(p.Satellites) > 0 {
		cospars := []string{}
		for _, s := range p.Satellites {
			if c, ok := SatelliteNameMapping[s]; ok {
				cospars = append(cospars, c)
			}
		}
		query[TagPlatformDesignator] = map[string]interface{}{"in": cospars}
	}
	return query, nil
}

// SearchParameters converts the filters into the body of a search on the project
func (p CatalogSearchParameters) SearchParameters(project string, limit int) (SearchParameters, error) {
	query, err := p.ToQuery()
	if err != nil {
		return SearchParameters{}, err
	}
	return SearchParameters{Project: project, Limit: limit, Query: query, Collections: p.Collections}, nil
}

func isoDate(t time.Time) interface{} {
	if t.IsZero() {
		return nil
	}
	return t.Format("2006-01-02T15:04:05.000Z")
}
