package classify

import (
	"path/filepath"

	"media-watcher/internal/filesystem"
	"media-watcher/internal/logging"
	"media-watcher/internal/mediatypes"
	"media-watcher/internal/metrics"
)

// Roots lists the configured library roots per kind.
type Roots struct {
	Movie      []string
	Series     []string
	Collection []string
	Animation  []string
	Magazine   []string
}

// All returns every configured root, collections first.
func (r Roots) All() []string {
	var out []string
	out = append(out, r.Collection...)
	out = append(out, r.Animation...)
	out = append(out, r.Movie...)
	out = append(out, r.Series...)
	out = append(out, r.Magazine...)
	return out
}

// rule is one row of the classification table.
type rule struct {
	roots    []string
	exts     mediatypes.ExtensionSet
	category mediatypes.Category
}

// Classifier maps a path to a category with an ordered rule table.
// The first matching rule wins.
type Classifier struct {
	roots     Roots
	videos    mediatypes.ExtensionSet
	documents mediatypes.ExtensionSet
	rules     []rule
}

// New builds the rule table. Order matters: collection roots are checked
// first so that anything below them is ignored, then animation, movie,
// series and magazine roots.
func New(roots Roots, videos, documents mediatypes.ExtensionSet) *Classifier {
	return &Classifier{
		roots:     roots,
		videos:    videos,
		documents: documents,
		rules: []rule{
			{roots: roots.Animation, exts: videos, category: mediatypes.CategoryAnimation},
			{roots: roots.Movie, exts: videos, category: mediatypes.CategoryMovie},
			{roots: roots.Series, exts: videos, category: mediatypes.CategoryTVShow},
			{roots: roots.Magazine, exts: documents, category: mediatypes.CategoryMagazine},
		},
	}
}

// Roots returns the configured roots.
func (c *Classifier) Roots() Roots {
	return c.roots
}

// TargetExtensions returns every extension that can produce a record.
func (c *Classifier) TargetExtensions() mediatypes.ExtensionSet {
	return c.videos.Union(c.documents)
}

// IsTarget reports whether name has a target extension.
func (c *Classifier) IsTarget(name string) bool {
	ext := filepath.Ext(name)
	return c.videos.Contains(ext) || c.documents.Contains(ext)
}

// Classify returns the category of the file at absPath. It is a pure
// function of its inputs and the rule table. Files under a collection root
// yield CategoryIgnore; files that match no rule yield CategoryUnknown.
func (c *Classifier) Classify(absPath, filename string) mediatypes.Category {
	if _, ok := c.InCollection(absPath); ok {
		return mediatypes.CategoryIgnore
	}

	ext := filepath.Ext(filename)
	for _, r := range c.rules {
		if !r.exts.Contains(ext) {
			continue
		}
		if underAny(absPath, r.roots) {
			return r.category
		}
	}

	logging.Warn("Cannot classify %s by location, recording as unknown", absPath)
	metrics.UnclassifiedTotal.Inc()
	return mediatypes.CategoryUnknown
}

// InCollection returns the collection root that contains path.
func (c *Classifier) InCollection(path string) (string, bool) {
	for _, root := range c.roots.Collection {
		if filesystem.IsUnder(path, root) {
			return root, true
		}
	}
	return "", false
}

func underAny(path string, roots []string) bool {
	for _, root := range roots {
		if filesystem.IsUnder(path, root) {
			return true
		}
	}
	return false
}
