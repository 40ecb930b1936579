package planner

import (
	"fmt"
	"strings"

	"github.com/yuya-takeyama/site-sync/pkg/inventory"
)

// UnusedPolicy decides what happens to remote objects with no local
// counterpart.
type UnusedPolicy string

const (
	UnusedKeep   UnusedPolicy = "keep"
	UnusedDelete UnusedPolicy = "delete"
)

// ParseUnusedPolicy accepts "keep" or "delete", case-insensitively. An empty
// string means keep.
func ParseUnusedPolicy(s string) (UnusedPolicy, error) {
	switch UnusedPolicy(strings.ToLower(strings.TrimSpace(s))) {
	case "", UnusedKeep:
		return UnusedKeep, nil
	case UnusedDelete:
		return UnusedDelete, nil
	}
	return "", fmt.Errorf("unknown unused-file policy %q (want keep or delete)", s)
}

// DiffResult holds three disjoint, key-sorted lists. ToAdd and ToUpdate carry
// the local record; ToDelete carries the remote one.
type DiffResult struct {
	ToAdd    []inventory.Object
	ToUpdate []inventory.Object
	ToDelete []inventory.Object
}

// Empty reports whether nothing needs to change.
func (d DiffResult) Empty() bool {
	return len(d.ToAdd) == 0 && len(d.ToUpdate) == 0 && len(d.ToDelete) == 0
}

type Action string

const (
	ActionUpload Action = "upload"
	ActionDelete Action = "delete"
	ActionKeep   Action = "keep"
)

const (
	ReasonNew             = "new file"
	ReasonSizeDiffers     = "size differs"
	ReasonChecksumDiffers = "checksum differs"
	ReasonNotInSource     = "not in source"
)

type Options struct {
	// LocalRoot is joined with each key to form Item.LocalPath.
	LocalRoot string
	Unused    UnusedPolicy
}

type Item struct {
	Action    Action
	Key       string
	LocalPath string
	Size      int64
	Digest    string
	Reason    string
}

// IsNew reports whether an upload creates the object rather than replacing it.
func (i Item) IsNew() bool {
	return i.Action == ActionUpload && i.Reason == ReasonNew
}
