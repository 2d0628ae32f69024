package catalog

import "sort"

// FieldSet is an ordered set of required fields for a template. Keys are
// canonical where the placeholder resolved to a known field, or the raw
// token otherwise; order follows the field table, with unknown tokens after
// every known field in appearance order.
type FieldSet struct {
	keys   []string
	labels map[string]string
}

// NewFieldSet builds an empty set.
func NewFieldSet() *FieldSet {
	return &FieldSet{labels: make(map[string]string)}
}

// Add inserts a field once; duplicates are ignored.
func (fs *FieldSet) Add(key, label string) {
	if key == "" {
		return
	}
	if _, ok := fs.labels[key]; ok {
		return
	}
	fs.keys = append(fs.keys, key)
	fs.labels[key] = label
}

// Has reports whether the set requires the given field.
func (fs *FieldSet) Has(key string) bool {
	_, ok := fs.labels[key]
	return ok
}

// Keys returns the required field keys in priority order.
func (fs *FieldSet) Keys() []string {
	out := make([]string, len(fs.keys))
	copy(out, fs.keys)
	return out
}

// Label returns the display label for a required field.
func (fs *FieldSet) Label(key string) string {
	if l, ok := fs.labels[key]; ok {
		return l
	}
	return key
}

// Len returns the number of required fields.
func (fs *FieldSet) Len() int {
	return len(fs.keys)
}

// sortByTableOrder reorders keys so known fields come in declared table
// order and unknown tokens keep their relative appearance order after them.
func (fs *FieldSet) sortByTableOrder() {
	sort.SliceStable(fs.keys, func(i, j int) bool {
		return orderIndex(fs.keys[i]) < orderIndex(fs.keys[j])
	})
}
