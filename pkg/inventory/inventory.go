// Package inventory builds the canonical (key, size, digest) listings that
// the planner compares: one from a local directory, one from a bucket.
package inventory

import (
	"sort"
)

// Object is the unit of comparison.
type Object struct {
	// Key is the slash-separated path relative to the sync root.
	Key  string
	Size int64
	// Digest is the base64 MD5 of the content.
	Digest string
}

// Inventory is an immutable set of objects, unique by key and sorted by key.
type Inventory struct {
	objects []Object
}

// New builds an Inventory from objects in any order. Keys ending in "/" are
// dropped; for duplicate keys the last one wins.
func New(objects []Object) Inventory {
	byKey := make(map[string]Object, len(objects))
	for _, obj := range objects {
		if isDirKey(obj.Key) {
			continue
		}
		byKey[obj.Key] = obj
	}

	sorted := make([]Object, 0, len(byKey))
	for _, obj := range byKey {
		sorted = append(sorted, obj)
	}
	SortObjects(sorted)
	return Inventory{objects: sorted}
}

// Objects returns a copy of the objects in key order.
func (inv Inventory) Objects() []Object {
	return append([]Object(nil), inv.objects...)
}

func (inv Inventory) Len() int { return len(inv.objects) }

// TotalSize is the sum of object sizes.
func (inv Inventory) TotalSize() int64 {
	var total int64
	for _, obj := range inv.objects {
		total += obj.Size
	}
	return total
}

// Lookup finds an object by key.
func (inv Inventory) Lookup(key string) (Object, bool) {
	i := sort.Search(len(inv.objects), func(i int) bool { return inv.objects[i].Key >= key })
	if i < len(inv.objects) && inv.objects[i].Key == key {
		return inv.objects[i], true
	}
	return Object{}, false
}

// SortObjects sorts objects by key, byte-wise.
func SortObjects(objects []Object) {
	sort.Slice(objects, func(i, j int) bool { return objects[i].Key < objects[j].Key })
}

func isDirKey(key string) bool {
	return key == "" || key[len(key)-1] == '/'
}
