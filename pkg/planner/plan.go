package planner

import (
	"github.com/yuya-takeyama/site-sync/pkg/inventory"
)

// Plan diffs local against remote and returns the actions to apply: adds,
// then updates, then deletes (or keeps, under UnusedKeep). Each group is
// sorted by key.
func Plan(local, remote inventory.Inventory, opts Options) []Item {
	return ItemsFor(Diff(local, remote), remote, opts)
}

// ItemsFor expands a DiffResult into items. remote is consulted only to
// explain why an update is needed.
func ItemsFor(diff DiffResult, remote inventory.Inventory, opts Options) []Item {
	items := make([]Item, 0, len(diff.ToAdd)+len(diff.ToUpdate)+len(diff.ToDelete))

	for _, obj := range diff.ToAdd {
		items = append(items, uploadItem(obj, opts.LocalRoot, ReasonNew))
	}

	for _, obj := range diff.ToUpdate {
		reason := ReasonChecksumDiffers
		if dest, ok := remote.Lookup(obj.Key); ok && dest.Size != obj.Size {
			reason = ReasonSizeDiffers
		}
		items = append(items, uploadItem(obj, opts.LocalRoot, reason))
	}

	action := ActionKeep
	if opts.Unused == UnusedDelete {
		action = ActionDelete
	}
	for _, obj := range diff.ToDelete {
		items = append(items, Item{
			Action: action,
			Key:    obj.Key,
			Size:   obj.Size,
			Digest: obj.Digest,
			Reason: ReasonNotInSource,
		})
	}

	return items
}

func uploadItem(obj inventory.Object, root, reason string) Item {
	return Item{
		Action:    ActionUpload,
		Key:       obj.Key,
		LocalPath: inventory.LocalPath(root, obj.Key),
		Size:      obj.Size,
		Digest:    obj.Digest,
		Reason:    reason,
	}
}

// Split partitions items by action, preserving order.
func Split(items []Item) (uploads, deletes, keeps []Item) {
	for _, item := range items {
		switch item.Action {
		case ActionUpload:
			uploads = append(uploads, item)
		case ActionDelete:
			deletes = append(deletes, item)
		case ActionKeep:
			keeps = append(keeps, item)
		}
	}
	return uploads, deletes, keeps
}
