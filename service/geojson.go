package service

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-spatial/geom"
	"github.com/go-spatial/geom/encoding/geojson"
)

// ReadGeometry reads a GeoJSON file and returns its geometry (see UnmarshalGeometry)
func ReadGeometry(file string) (geom.Geometry, error) {
	data, err := os.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("ReadGeometry.ReadFile: %w", err)
	}
	g, err := UnmarshalGeometry(data)
	if err != nil {
		return nil, fmt.Errorf("ReadGeometry.Unmarshal(%s): %w", file, err)
	}
	return g, nil
}

// UnmarshalGeometry, merging the polygons of FeatureCollections into a multipolygon
func UnmarshalGeometry(data []byte) (geom.Geometry, error) {
	var g geojson.Geometry
	if err := g.UnmarshalJSON(data); err != nil {
		return nil, err
	}
	switch geo := g.Geometry.(type) {
	case geojson.FeatureCollection:
		var mp geom.MultiPolygon
		for _, f := range geo.Features {
			mergeMultiPolygons(f.Geometry.Geometry, &mp)
		}
		if len(mp) == 0 {
			return nil, fmt.Errorf("no polygon found in the feature collection")
		}
		return mp, nil
	case geojson.Feature:
		return geo.Geometry.Geometry, nil
	default:
		return g.Geometry, nil
	}
}

func mergeMultiPolygons(g geom.Geometry, mp *geom.MultiPolygon) {
	switch g := g.(type) {
	case geom.MultiPolygon:
		*mp = append(*mp, g.Polygons()...)
	case geom.Polygon:
		*mp = append(*mp, g.LinearRings())
	case geom.Collection:
		for _, g := range g.Geometries() {
			mergeMultiPolygons(g, mp)
		}
	}
}

// WriteJSON writes v as indented json in workingdir/filename and returns the path of the file
func WriteJSON(v interface{}, workingdir, filename string) (string, error) {
	vb, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", fmt.Errorf("WriteJSON.Marshal: %w", err)
	}
	file := filepath.Join(workingdir, filename)
	if err := os.WriteFile(file, vb, 0644); err != nil {
		return "", fmt.Errorf("WriteJSON.WriteFile: %w", err)
	}
	return file, nil
}
