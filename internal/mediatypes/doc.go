// Package mediatypes provides shared type definitions for the media watcher.
//
// This package exists as a dependency-free foundation that can be imported by
// other packages without creating import cycles. It contains the record
// categories and the target extension sets.
//
// # Categories
//
//	mediatypes.CategoryTVShow     // episodes under a series root
//	mediatypes.CategoryMovie      // videos under a movie root
//	mediatypes.CategoryCollection // directories under a collection root
//	mediatypes.CategoryAnimation  // videos under an animation root
//	mediatypes.CategoryMagazine   // documents under a magazine root
//	mediatypes.CategoryUnknown    // target files that matched no rule
//	mediatypes.CategoryIgnore     // files under a collection root, never recorded
//
// DisplayOrder and Labels drive the tab layout of the rendered site.
//
// # Extensions
//
//	videos := mediatypes.ParseExtensions(".mkv,.mp4")
//	if videos.Contains(filepath.Ext(name)) {
//	    // target file
//	}
package mediatypes
