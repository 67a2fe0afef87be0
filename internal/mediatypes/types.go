package mediatypes

import (
	"sort"
	"strings"
)

// Category is the content category assigned to a discovered item.
type Category string

const (
	// CategoryTVShow is an episode under a series root.
	CategoryTVShow Category = "tvshow"
	// CategoryMovie is a video under a movie root.
	CategoryMovie Category = "movie"
	// CategoryCollection is a season or show directory under a collection root.
	CategoryCollection Category = "collection"
	// CategoryAnimation is a video under an animation root.
	CategoryAnimation Category = "animation"
	// CategoryMagazine is a document under a magazine root.
	CategoryMagazine Category = "magazine"
	// CategoryUnknown is a target file that matched no root rule.
	CategoryUnknown Category = "unknown"

	// CategoryIgnore marks a file under a collection root. Such files never
	// produce a record; only their directories do.
	CategoryIgnore Category = ""
)

// DisplayOrder is the tab order of the rendered site.
var DisplayOrder = []Category{
	CategoryTVShow,
	CategoryMovie,
	CategoryCollection,
	CategoryAnimation,
	CategoryMagazine,
	CategoryUnknown,
}

// Labels maps categories to the tab titles shown on the site.
var Labels = map[Category]string{
	CategoryTVShow:     "劇集",
	CategoryMovie:      "電影",
	CategoryCollection: "全集",
	CategoryAnimation:  "動漫",
	CategoryMagazine:   "雜誌",
	CategoryUnknown:    "未分類",
}

// Valid reports whether c is a category that may appear in a record.
func (c Category) Valid() bool {
	_, ok := Labels[c]
	return ok
}

// Label returns the display title for c, or the raw value when unknown.
func (c Category) Label() string {
	if l, ok := Labels[c]; ok {
		return l
	}
	return string(c)
}

// CatalogKind returns the catalog path segment used to build external URLs.
// Movies link to "movie", everything else to "tv".
func (c Category) CatalogKind() string {
	if c == CategoryMovie {
		return "movie"
	}
	return "tv"
}

// ParseCategory parses a stored category value. An empty value maps to
// CategoryUnknown; anything else must be a known category.
func ParseCategory(s string) (Category, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return CategoryUnknown, true
	}
	c := Category(s)
	return c, c.Valid()
}

// ExtensionSet is a set of lowercase file extensions including the leading dot.
type ExtensionSet map[string]bool

// Default target extensions.
const (
	DefaultVideoExtensions    = ".mkv,.mp4"
	DefaultDocumentExtensions = ".pdf"
)

// ParseExtensions builds an ExtensionSet from a comma-separated list.
// Entries are lowercased and given a leading dot when missing.
func ParseExtensions(list string) ExtensionSet {
	set := ExtensionSet{}
	for _, part := range strings.Split(list, ",") {
		ext := NormalizeExt(part)
		if ext != "" {
			set[ext] = true
		}
	}
	return set
}

// NormalizeExt lowercases ext and ensures a leading dot.
func NormalizeExt(ext string) string {
	ext = strings.ToLower(strings.TrimSpace(ext))
	if ext == "" || ext == "." {
		return ""
	}
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}

// Contains reports whether ext (any case) is in the set.
func (s ExtensionSet) Contains(ext string) bool {
	return s[strings.ToLower(ext)]
}

// Union returns a new set holding the members of s and other.
func (s ExtensionSet) Union(other ExtensionSet) ExtensionSet {
	out := make(ExtensionSet, len(s)+len(other))
	for ext := range s {
		out[ext] = true
	}
	for ext := range other {
		out[ext] = true
	}
	return out
}

// String returns the sorted, comma-separated members.
func (s ExtensionSet) String() string {
	exts := make([]string, 0, len(s))
	for ext := range s {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return strings.Join(exts, ",")
}
