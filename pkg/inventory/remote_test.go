package inventory

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yuya-takeyama/site-sync/pkg/backend"
	"github.com/yuya-takeyama/site-sync/pkg/backend/memory"
	"github.com/yuya-takeyama/site-sync/pkg/syncerr"
)

func TestNormalizeRemote(t *testing.T) {
	raw := []backend.RawObject{
		{Key: "b.txt", Size: 3, ETag: `"900150983cd24fb0d6963f7d28e17f72"`},
		{Key: "dir/", Size: 0, ETag: `"d41d8cd98f00b204e9800998ecf8427e"`},
		{Key: "a.txt", Size: 13, ETag: "65A8E27D8879283831B664BD8B7F0AD4"},
		{Key: "big.bin", Size: 1 << 30, ETag: `"0123456789abcdef0123456789abcdef-12"`},
		{Key: "skip.map", Size: 1, ETag: `"900150983cd24fb0d6963f7d28e17f72"`},
	}

	inv := NormalizeRemote(raw, Excludes{"*.map"})

	assert.Equal(t, []Object{
		{Key: "a.txt", Size: 13, Digest: "ZajifYh5KDgxtmS9i38K1A=="},
		{Key: "b.txt", Size: 3, Digest: "kAFQmDzST7DWlj99KOF/cg=="},
		{Key: "big.bin", Size: 1 << 30, Digest: SentinelDigest},
	}, inv.Objects())
}

func TestFetchRemoteDrainsAllPages(t *testing.T) {
	bucket := memory.New()
	bucket.PageSize = 2
	for i := 0; i < 5; i++ {
		bucket.Put(fmt.Sprintf("page/%d.html", i), []byte("abc"))
	}
	bucket.Put("folder/", nil)

	inv, err := FetchRemote(context.Background(), bucket, nil)
	require.NoError(t, err)
	assert.Equal(t, 5, inv.Len())
	for _, obj := range inv.Objects() {
		assert.Equal(t, "kAFQmDzST7DWlj99KOF/cg==", obj.Digest, obj.Key)
	}
}

func TestFetchRemoteListFailure(t *testing.T) {
	bucket := memory.New()
	bucket.PageSize = 1
	bucket.Put("a", []byte("a"))
	bucket.Put("b", []byte("b"))
	boom := errors.New("access denied")
	bucket.ListErr = boom
	bucket.ListErrPage = 2

	_, err := FetchRemote(context.Background(), bucket, nil)
	require.Error(t, err)

	var beErr *syncerr.BackendError
	require.True(t, errors.As(err, &beErr))
	assert.Equal(t, "list", beErr.Op)
	assert.Equal(t, "memory", beErr.Backend)
	assert.ErrorIs(t, err, boom)
}
