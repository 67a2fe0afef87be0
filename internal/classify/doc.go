// Package classify assigns a content category to a discovered path based on
// which configured library root it lives under and its extension.
package classify
