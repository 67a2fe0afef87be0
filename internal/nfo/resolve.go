package nfo

import (
	"path/filepath"

	"media-watcher/internal/logging"
	"media-watcher/internal/mediatypes"
)

// Resolve finds and reads the sidecar for mediaPath and applies Backfill.
// ok is false when no sidecar exists.
func Resolve(mediaPath string, category mediatypes.Category) (Result, bool) {
	sc, ok := FindSidecar(mediaPath)
	if !ok {
		return Result{}, false
	}
	return Backfill(Extract(sc.Path), sc, mediaPath, category), true
}

// Backfill fills in a missing id for an episode whose own sidecar has none.
// The lookup is repeated one level up, starting from the episode's
// directory; a series-level document found there lends its id, and its
// synopsis only if the episode has none. Other categories and scopes are
// returned unchanged.
func Backfill(res Result, sc Sidecar, mediaPath string, category mediatypes.Category) Result {
	if res.ID != "" || sc.Scope != ScopeSelf || category != mediatypes.CategoryTVShow {
		return res
	}

	dir := filepath.Dir(mediaPath)
	logging.Info("Sidecar %s has no id, trying the series sidecar for %s", sc.Path, dir)

	parent, ok := FindSidecar(dir)
	if !ok || parent.Scope == ScopeSelf {
		return res
	}

	pres := Extract(parent.Path)
	if pres.ID == "" {
		return res
	}

	logging.Info("Took id %s for %s from %s", pres.ID, mediaPath, parent.Path)
	res.ID = pres.ID
	if res.Synopsis == "" {
		res.Synopsis = pres.Synopsis
	}
	return res
}
