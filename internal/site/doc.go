// Package site renders the static update pages that get published.
//
// index.html shows the newest records grouped into category tabs, then by
// month and day, with client-side search and per-day paging. archive.html
// is a shell that loads archive_script.js, which fetches the full history
// from media_updates.json. When the journal is stored as JSON in the site
// directory that file is the journal itself; otherwise the renderer exports
// it.
//
// Templates and the archive script are embedded in the binary.
package site
