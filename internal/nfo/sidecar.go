package nfo

import (
	"path/filepath"
	"strings"

	"media-watcher/internal/filesystem"
	"media-watcher/internal/logging"
)

// ShowFile is the series-level sidecar name.
const ShowFile = "tvshow.nfo"

// Scope says where a sidecar was found relative to the media file.
type Scope string

const (
	// ScopeSelf is <base>.nfo next to the media file.
	ScopeSelf Scope = "self"
	// ScopeParent is tvshow.nfo in the media file's directory.
	ScopeParent Scope = "parent"
	// ScopeGrandparent is tvshow.nfo one level up from a season directory.
	ScopeGrandparent Scope = "grandparent"
)

// Sidecar is a located metadata document.
type Sidecar struct {
	Path  string
	Scope Scope
}

// FindSidecar locates the sidecar for mediaPath. Lookup order:
//
//  1. <base>.nfo beside the media
//  2. tvshow.nfo in the same directory
//  3. tvshow.nfo in the grandparent, when the parent is a "Season ..." directory
//
// A missing sidecar is normal and reported as ok=false.
func FindSidecar(mediaPath string) (Sidecar, bool) {
	base := strings.TrimSuffix(mediaPath, filepath.Ext(mediaPath))
	self := base + ".nfo"
	if isFile(self) {
		logging.Debug("Found sidecar %s", self)
		return Sidecar{Path: self, Scope: ScopeSelf}, true
	}

	parentDir := filepath.Dir(mediaPath)
	show := filepath.Join(parentDir, ShowFile)
	if isFile(show) {
		logging.Debug("Found parent sidecar %s", show)
		return Sidecar{Path: show, Scope: ScopeParent}, true
	}

	if strings.HasPrefix(strings.ToLower(filepath.Base(parentDir)), "season") {
		gp := filepath.Join(filepath.Dir(parentDir), ShowFile)
		if isFile(gp) {
			logging.Debug("Found grandparent sidecar %s", gp)
			return Sidecar{Path: gp, Scope: ScopeGrandparent}, true
		}
	}

	logging.Debug("No sidecar for %s", mediaPath)
	return Sidecar{}, false
}

func isFile(path string) bool {
	info, err := filesystem.StatWithRetry(path, filesystem.DefaultRetryConfig())
	return err == nil && info.Mode().IsRegular()
}
