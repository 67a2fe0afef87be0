package handlers

import (
	"net/http"
	"path"
	"path/filepath"
	"strings"
)

// SiteHandler serves the rendered site from the site directory. Dot files
// (the git checkout) and the configured hidden paths answer 404.
func (h *Handlers) SiteHandler() http.Handler {
	files := http.FileServer(http.Dir(h.siteDir))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if h.isHidden(r.URL.Path) {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Cache-Control", "no-cache")
		files.ServeHTTP(w, r)
	})
}

func (h *Handlers) isHidden(urlPath string) bool {
	clean := path.Clean("/" + urlPath)
	for _, part := range strings.Split(clean, "/") {
		if strings.HasPrefix(part, ".") {
			return true
		}
	}

	full := filepath.Join(h.siteDir, filepath.FromSlash(clean))
	for _, hidden := range h.hidden {
		rel, err := filepath.Rel(hidden, full)
		if err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			return true
		}
	}
	return false
}
