// Package nfo reads Kodi-style .nfo sidecar documents for the catalog id and
// synopsis of a media file.
//
// Sidecars are located with [FindSidecar] and read with [Extract], which
// first tries a real XML parse and, when the document is not well-formed,
// falls back to searching for the literal <uniqueid type="tmdb"> and <plot>
// tags. Neither stage fails on bad input; the [Outcome] records what
// happened.
package nfo
