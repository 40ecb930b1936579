package inventory

import (
	"context"

	"github.com/yuya-takeyama/site-sync/pkg/backend"
	"github.com/yuya-takeyama/site-sync/pkg/syncerr"
)

// NormalizeRemote converts a drained listing into an Inventory. Directory
// markers and excluded keys are dropped and ETags become digests.
func NormalizeRemote(raw []backend.RawObject, excludes Excludes) Inventory {
	objects := make([]Object, 0, len(raw))
	for _, r := range raw {
		if isDirKey(r.Key) || excludes.Match(r.Key) {
			continue
		}
		objects = append(objects, Object{
			Key:    r.Key,
			Size:   r.Size,
			Digest: EtagToDigest(r.ETag),
		})
	}
	return New(objects)
}

// FetchRemote lists the whole bucket behind b. A failure on any page is
// returned as a BackendError; a partial listing is never returned.
func FetchRemote(ctx context.Context, b backend.Backend, excludes Excludes) (Inventory, error) {
	raw, err := backend.ListAll(ctx, b)
	if err != nil {
		return Inventory{}, &syncerr.BackendError{Op: "list", Backend: b.Name(), Err: err}
	}
	return NormalizeRemote(raw, excludes), nil
}
