package common

import (
	"fmt"
	"net/url"
	"path"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

var remoteSchemes = map[string]struct{}{
	"http": {}, "https": {}, "s3": {}, "gs": {}, "ftp": {}, "sftp": {}, "az": {},
}

// IsRemote returns true if the href is a URI with a network scheme.
// Local paths and file:// URIs are not remote.
func IsRemote(href string) bool {
	u, err := url.Parse(href)
	if err != nil {
		return false
	}
	_, ok := remoteSchemes[strings.ToLower(u.Scheme)]
	return ok
}

// LocalPath returns the filesystem path of a local href (strips the file:// scheme)
func LocalPath(href string) string {
	if strings.HasPrefix(href, "file://") {
		if u, err := url.Parse(href); err == nil {
			return filepath.FromSlash(u.Path)
		}
	}
	return filepath.FromSlash(href)
}

// AssetKey returns the storage key of an asset file: <collection>/<item>/<asset key>/<filename>
func AssetKey(collection, item, assetKey, filename string) (string, error) {
	for name, v := range map[string]string{"collection": collection, "item": item, "asset key": assetKey, "filename": filename} {
		if v == "" {
			return "", fmt.Errorf("AssetKey: empty %s", name)
		}
	}
	return strings.Join([]string{collection, item, assetKey, filename}, "/"), nil
}

// ProjectPath is the storage path of a file attached to a project: project/<project>/<item>/<asset>
type ProjectPath struct {
	Project string
	Item    string
	Asset   string
}

func (p ProjectPath) String() string {
	return strings.TrimSuffix(fmt.Sprintf("project/%s/%s/%s", p.Project, p.Item, p.Asset), "/")
}

// ParseProjectPath parses a path built by ProjectPath.String()
func ParseProjectPath(s string) (ProjectPath, error) {
	parts := strings.SplitN(strings.TrimPrefix(s, "/"), "/", 4)
	if len(parts) < 3 || parts[0] != "project" {
		return ProjectPath{}, fmt.Errorf("invalid project path %s", s)
	}
	p := ProjectPath{Project: parts[1], Item: parts[2]}
	if len(parts) == 4 {
		p.Asset = parts[3]
	}
	return p, nil
}

// ArchivePath is the storage path of a mission product: full/<mission>/<level>/<yyyy>/<mm>/<dd>/<id>/<path>
type ArchivePath struct {
	Mission string
	Level   ProcessingLevel
	Date    time.Time
	ID      string
	Path    string
}

func (p ArchivePath) String() string {
	s := fmt.Sprintf("full/%s/%s/%04d/%02d/%02d/%s/%s", strings.ToLower(p.Mission), p.Level.Lower(),
		p.Date.Year(), int(p.Date.Month()), p.Date.Day(), p.ID, p.Path)
	return strings.TrimSuffix(s, "/")
}

// ArchivePathFromItem creates the ArchivePath of a file of the item
func ArchivePathFromItem(item *Item, mission, filePath string) (ArchivePath, error) {
	dt, err := item.Datetime()
	if err != nil {
		return ArchivePath{}, fmt.Errorf("ArchivePathFromItem.%w", err)
	}
	level, err := item.ProcessingLevel()
	if err != nil {
		return ArchivePath{}, fmt.Errorf("ArchivePathFromItem.%w", err)
	}
	if mission == "" {
		mission = item.Property(TagMission)
	}
	if mission == "" {
		return ArchivePath{}, fmt.Errorf("ArchivePathFromItem: unknown mission")
	}
	return ArchivePath{Mission: mission, Level: level, Date: dt, ID: item.ID, Path: filePath}, nil
}

// ParseArchivePath parses a path built by ArchivePath.String(). The "full/" prefix is optional.
func ParseArchivePath(s string) (ArchivePath, error) {
	parts := strings.Split(strings.TrimPrefix(strings.TrimPrefix(s, "/"), "full/"), "/")
	if len(parts) < 7 {
		return ArchivePath{}, fmt.Errorf("invalid archive path %s", s)
	}
	level, err := ParseProcessingLevel(parts[1])
	if err != nil {
		return ArchivePath{}, fmt.Errorf("invalid archive path %s: %w", s, err)
	}
	var ymd [3]int
	for i := range ymd {
		if ymd[i], err = strconv.Atoi(parts[2+i]); err != nil {
			return ArchivePath{}, fmt.Errorf("invalid archive path %s: %w", s, err)
		}
	}
	return ArchivePath{
		Mission: parts[0],
		Level:   level,
		Date:    time.Date(ymd[0], time.Month(ymd[1]), ymd[2], 0, 0, 0, 0, time.UTC),
		ID:      parts[5],
		Path:    path.Join(parts[6:]...),
	}, nil
}

// Template keys available in FormatBrackets
const (
	KeyCollection = "COLLECTION"
	KeyItem       = "ITEM"
	KeyAssetName  = "ASSET"
	KeyFilename   = "FILENAME"
	KeyYear       = "YEAR"
	KeyMonth      = "MONTH"
	KeyDay        = "DAY"
	KeyLevel      = "LEVEL"
)

// ItemInfo returns the values of the template keys for an asset file of the item
func ItemInfo(item *Item, assetKey, filename string) map[string]string {
	info := map[string]string{
		KeyCollection: item.Collection,
		KeyItem:       item.ID,
		KeyAssetName:  assetKey,
		KeyFilename:   filename,
	}
	if dt, err := item.Datetime(); err == nil {
		info[KeyYear] = dt.Format("2006")
		info[KeyMonth] = dt.Format("01")
		info[KeyDay] = dt.Format("02")
	}
	if l, err := item.ProcessingLevel(); err == nil {
		info[KeyLevel] = l.Lower()
	}
	return info
}

/**
 * FormatBrackets replaces in <str> all {keys} of <info> by the corresponding value
 * keys must be one of COLLECTION, ITEM, ASSET, FILENAME, YEAR, MONTH, DAY, LEVEL
 */
func FormatBrackets(str string, infos ...map[string]string) string {
	for _, info := range infos {
		for k, v := range info {
			str = strings.ReplaceAll(str, "{"+k+"}", v)
		}
	}
	return str
}
