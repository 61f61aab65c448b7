package common

import (
	"fmt"
	"strings"
)

//go:generate go run github.com/dmarkham/enumer -json -type ProcessingLevel -trimprefix ProcessingLevel

// ProcessingLevel of a product
type ProcessingLevel int

const (
	ProcessingLevelRAW ProcessingLevel = iota
	ProcessingLevelL0
	ProcessingLevelL1A
	ProcessingLevelL1B
	ProcessingLevelL1C
	ProcessingLevelL1D
	ProcessingLevelL2A
	ProcessingLevelL3
	ProcessingLevelL4
)

// ParseProcessingLevel parses the level, case insensitive ("l1a", "L1A")
func ParseProcessingLevel(s string) (ProcessingLevel, error) {
	l, err := ProcessingLevelString(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("ParseProcessingLevel: %w", err)
	}
	return l, nil
}

// Lower returns the level as used in the storage paths ("l1a")
func (l ProcessingLevel) Lower() string {
	return strings.ToLower(l.String())
}

//go:generate go run github.com/dmarkham/enumer -json -type ProductType -trimprefix ProductType

// ProductType of a catalog entry
type ProductType int

const (
	ProductTypeSatellite ProductType = iota
	ProductTypeVector
	ProductTypeInsight
)

//go:generate go run github.com/dmarkham/enumer -json -type Season -trimprefix Season

// Season of the acquisition
type Season int

const (
	SeasonSummer Season = iota
	SeasonWinter
	SeasonAutumn
	SeasonSpring
	SeasonRainy
	SeasonDry
)

// SatelliteNameMapping maps the human readable names of the satellites to their COSPAR ids
var SatelliteNameMapping = map[string]string{
	"GEOSAT-2":       "2014-033D",
	"SUPERVIEW-1-01": "2016-083A",
	"SUPERVIEW-1-02": "2016-083B",
	"SUPERVIEW-1-03": "2018-002A",
	"SUPERVIEW-1-04": "2018-002B",
	"MANTIS":         "2023-174B",
	"MENUT":          "2023-001B",
	"HAMMER":         "2024-043BC",
	"HAMMER-EM":      "COSPAR-HAMMER-EM-TBD",
	"Alisio":         "2023-185M",
	"Platero":        "2023-174G",
	"PHISAT-2":       "2024-149C",
	"PHISAT-2 EM":    "COSPAR-PHISAT2-EM-TBD",
	"Sentinel-2A":    "2015-028A",
	"Sentinel-2B":    "2017-013A",
	"Sentinel-2C":    "2024-157A",
}
