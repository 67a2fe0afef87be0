package journal

// Index is the set of dedup keys of the records currently in the store.
// It is not safe for concurrent use; the Store guards it.
type Index struct {
	keys map[string]struct{}
}

// NewIndex builds an index from records.
func NewIndex(records []Record) *Index {
	idx := &Index{keys: make(map[string]struct{}, len(records))}
	for _, r := range records {
		idx.Add(r.Key())
	}
	return idx
}

// Has reports whether key is present.
func (i *Index) Has(key string) bool {
	_, ok := i.keys[key]
	return ok
}

// Add inserts key. Empty keys are never indexed.
func (i *Index) Add(key string) {
	if key == "" {
		return
	}
	i.keys[key] = struct{}{}
}

// Len returns the number of keys.
func (i *Index) Len() int {
	return len(i.keys)
}
