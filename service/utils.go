package service

import (
	"context"
	"mime"
	"path/filepath"
	"strings"
	"time"
)

// StringSet is a set of strings (all elements are unique)
type StringSet map[string]struct{}

// NewStringSet creates a set with the given elements
func NewStringSet(elems ...string) StringSet {
	ss := make(StringSet, len(elems))
	for _, e := range elems {
		ss.Push(e)
	}
	return ss
}

// Push adds the string to the set if not already exists
func (ss StringSet) Push(s string) {
	ss[s] = struct{}{}
}

// Exists returns true if the string already exists in the Set
func (ss StringSet) Exists(s string) bool {
	_, ok := ss[s]
	return ok
}

// Retriable calls f until it succeeds, returns a fatal error or nbTries is reached.
// The delay between two tries doubles after each failure.
func Retriable(ctx context.Context, f func() error, delay time.Duration, nbTries int) error {
	var err error
	for i := 0; i < nbTries; i++ {
		if i > 0 {
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return MergeErrors(true, err, ErrCancelled{Err: ctx.Err()})
			}
			delay *= 2
		}
		if err = f(); err == nil || Fatal(err) {
			return err
		}
	}
	return err
}

var geoMimeTypes = map[string]string{
	".tif":     "image/tiff; application=geotiff",
	".tiff":    "image/tiff; application=geotiff",
	".jp2":     "image/jp2",
	".geojson": "application/geo+json",
	".json":    "application/json",
	".nc":      "application/netcdf",
	".h5":      "application/x-hdf5",
	".zip":     "application/zip",
	".xml":     "application/xml",
	".png":     "image/png",
	".jpg":     "image/jpeg",
	".jpeg":    "image/jpeg",
}

// GuessMimeType returns the media type of the file from its extension
func GuessMimeType(filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	if t, ok := geoMimeTypes[ext]; ok {
		return t
	}
	if t := mime.TypeByExtension(ext); t != "" {
		return t
	}
	return "application/octet-stream"
}
