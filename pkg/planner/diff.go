// Package planner compares a local and a remote inventory and turns the
// difference into an ordered list of per-key actions.
package planner

import (
	"github.com/yuya-takeyama/site-sync/pkg/inventory"
)

// Diff classifies every key of local and remote. It does no I/O and its
// output does not depend on input order.
func Diff(local, remote inventory.Inventory) DiffResult {
	remoteObjects := remote.Objects()
	pending := make(map[string]inventory.Object, len(remoteObjects))
	for _, obj := range remoteObjects {
		pending[obj.Key] = obj
	}

	result := DiffResult{
		ToAdd:    []inventory.Object{},
		ToUpdate: []inventory.Object{},
		ToDelete: []inventory.Object{},
	}

	for _, obj := range local.Objects() {
		dest, exists := pending[obj.Key]
		if !exists {
			result.ToAdd = append(result.ToAdd, obj)
			continue
		}
		delete(pending, obj.Key)
		if obj.Size != dest.Size || obj.Digest != dest.Digest {
			result.ToUpdate = append(result.ToUpdate, obj)
		}
	}

	for _, obj := range pending {
		result.ToDelete = append(result.ToDelete, obj)
	}

	inventory.SortObjects(result.ToAdd)
	inventory.SortObjects(result.ToUpdate)
	inventory.SortObjects(result.ToDelete)
	return result
}
