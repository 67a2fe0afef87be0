package filesystem

import (
	"path/filepath"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// FoldPath normalizes a path for comparisons on case-insensitive shares:
// cleaned, NFC-composed and case-folded. An empty path stays empty.
func FoldPath(path string) string {
	if path == "" {
		return ""
	}
	return cases.Fold().String(norm.NFC.String(filepath.Clean(path)))
}

// IsUnder reports whether path equals root or lies below it. The comparison
// is case-insensitive and respects separator boundaries, so /media/tv does
// not contain /media/tv2.
func IsUnder(path, root string) bool {
	if path == "" || root == "" {
		return false
	}
	p, r := FoldPath(path), FoldPath(root)
	if p == r {
		return true
	}
	if !strings.HasSuffix(r, string(filepath.Separator)) {
		r += string(filepath.Separator)
	}
	return strings.HasPrefix(p, r)
}

// RelativeTo returns path relative to base, or ok=false when path is not
// under base. The result keeps the original spelling of path.
func RelativeTo(path, base string) (string, bool) {
	if !IsUnder(path, base) {
		return "", false
	}
	rel, err := filepath.Rel(filepath.Clean(base), filepath.Clean(path))
	if err == nil && !strings.HasPrefix(rel, "..") {
		return rel, true
	}
	// base differs from path only in case; cut by length instead.
	cleanPath := filepath.Clean(path)
	n := len([]rune(filepath.Clean(base)))
	runes := []rune(cleanPath)
	if n >= len(runes) {
		return ".", true
	}
	return strings.TrimLeft(string(runes[n:]), string(filepath.Separator)), true
}
