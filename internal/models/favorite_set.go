package models

import "sort"

// FavoriteSet is a set of story ids.
//
// It is not safe for concurrent use; the favorites reconciler serializes access.
type FavoriteSet struct {
	ids map[string]struct{}
}

// NewFavoriteSet returns a set containing ids.
func NewFavoriteSet(ids ...string) *FavoriteSet {
	f := &FavoriteSet{ids: make(map[string]struct{}, len(ids))}
	for _, id := range ids {
		f.Add(id)
	}
	return f
}

// Has reports membership of id.
func (f *FavoriteSet) Has(id string) bool {
	if f == nil {
		return false
	}
	_, ok := f.ids[id]
	return ok
}

// Add inserts id. Adding an existing id is a no-op.
func (f *FavoriteSet) Add(id string) {
	if id == "" {
		return
	}
	f.ids[id] = struct{}{}
}

// Remove deletes id. Removing a missing id is a no-op.
func (f *FavoriteSet) Remove(id string) {
	delete(f.ids, id)
}

// Set adds or removes id according to favorite.
func (f *FavoriteSet) Set(id string, favorite bool) {
	if favorite {
		f.Add(id)
	} else {
		f.Remove(id)
	}
}

// Len returns the number of ids in the set.
func (f *FavoriteSet) Len() int {
	if f == nil {
		return 0
	}
	return len(f.ids)
}

// IDs returns the ids in lexical order.
func (f *FavoriteSet) IDs() []string {
	if f == nil {
		return nil
	}
	ids := make([]string, 0, len(f.ids))
	for id := range f.ids {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
