package gcs

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"testing"

	"cloud.google.com/go/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"github.com/yuya-takeyama/site-sync/pkg/backend"
	"github.com/yuya-takeyama/site-sync/pkg/inventory"
	"github.com/yuya-takeyama/site-sync/pkg/syncerr"
)

type fakeWriter struct {
	bytes.Buffer
	closeErr error
	closed   bool
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return w.closeErr
}

type fakeObject struct {
	name        string
	writer      *fakeWriter
	contentType string
	md5         []byte
	deleteErr   error
	deleted     bool
}

func (o *fakeObject) NewWriter(_ context.Context, contentType string, md5 []byte) io.WriteCloser {
	o.contentType = contentType
	o.md5 = md5
	return o.writer
}

func (o *fakeObject) Delete(context.Context) error {
	o.deleted = true
	return o.deleteErr
}

type fakeIterator struct {
	attrs []*storage.ObjectAttrs
	err   error
}

func (i *fakeIterator) Next() (*storage.ObjectAttrs, error) {
	if len(i.attrs) == 0 {
		if i.err != nil {
			return nil, i.err
		}
		return nil, iterator.Done
	}
	a := i.attrs[0]
	i.attrs = i.attrs[1:]
	return a, nil
}

type fakeBucket struct {
	objects map[string]*fakeObject
	it      *fakeIterator
	query   *storage.Query
}

func (b *fakeBucket) Object(name string) gcsObject {
	if o, ok := b.objects[name]; ok {
		return o
	}
	o := &fakeObject{name: name, writer: &fakeWriter{}}
	b.objects[name] = o
	return o
}

func (b *fakeBucket) Objects(_ context.Context, q *storage.Query) gcsIterator {
	b.query = q
	return b.it
}

type fakeClient struct {
	buckets map[string]*fakeBucket
}

func (c *fakeClient) Bucket(name string) gcsBucket { return c.buckets[name] }

func newTestGCS(bucket *fakeBucket) *GCS {
	return &GCS{client: &fakeClient{buckets: map[string]*fakeBucket{"site": bucket}}, bucket: "site"}
}

func TestUpload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.html")
	require.NoError(t, os.WriteFile(path, []byte("Hello, World!"), 0644))

	bucket := &fakeBucket{objects: map[string]*fakeObject{}}
	g := newTestGCS(bucket)
	require.NoError(t, g.Upload(context.Background(), "index.html", path, "ZajifYh5KDgxtmS9i38K1A=="))

	obj := bucket.objects["index.html"]
	assert.Equal(t, "text/html", obj.contentType)
	assert.Equal(t, "65a8e27d8879283831b664bd8b7f0ad4", fmt.Sprintf("%x", obj.md5))
	assert.Equal(t, "Hello, World!", obj.writer.String())
	assert.True(t, obj.writer.closed)
}

func TestUploadCloseError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a.txt")
	require.NoError(t, os.WriteFile(path, []byte("abc"), 0644))

	mismatch := errors.New("md5 mismatch")
	bucket := &fakeBucket{objects: map[string]*fakeObject{
		"a.txt": {name: "a.txt", writer: &fakeWriter{closeErr: mismatch}},
	}}
	err := newTestGCS(bucket).Upload(context.Background(), "a.txt", path, "kAFQmDzST7DWlj99KOF/cg==")
	assert.ErrorIs(t, err, mismatch)
}

func TestDelete(t *testing.T) {
	bucket := &fakeBucket{objects: map[string]*fakeObject{}}
	g := newTestGCS(bucket)
	require.NoError(t, g.Delete(context.Background(), "old.html"))
	assert.True(t, bucket.objects["old.html"].deleted)
}

func TestList(t *testing.T) {
	attrs := []*storage.ObjectAttrs{
		{Name: "a.txt", Size: 3, MD5: []byte{0x90, 0x01, 0x50, 0x98, 0x3c, 0xd2, 0x4f, 0xb0, 0xd6, 0x96, 0x3f, 0x7d, 0x28, 0xe1, 0x7f, 0x72}},
		{Name: "composite.bin", Size: 10},
		{Prefix: "dir/"},
	}
	for i := 0; i < pageSize; i++ {
		attrs = append(attrs, &storage.ObjectAttrs{Name: fmt.Sprintf("bulk/%04d", i), Size: 1})
	}
	bucket := &fakeBucket{objects: map[string]*fakeObject{}, it: &fakeIterator{attrs: attrs}}

	raw, err := backend.ListAll(context.Background(), newTestGCS(bucket))
	require.NoError(t, err)
	require.Len(t, raw, pageSize+2)
	assert.Equal(t, "900150983cd24fb0d6963f7d28e17f72", raw[0].ETag)
	assert.Equal(t, "", raw[1].ETag)

	inv := inventory.NormalizeRemote(raw, nil)
	a, _ := inv.Lookup("a.txt")
	assert.Equal(t, "kAFQmDzST7DWlj99KOF/cg==", a.Digest)
	c, _ := inv.Lookup("composite.bin")
	assert.Equal(t, inventory.SentinelDigest, c.Digest)
}

func TestListError(t *testing.T) {
	boom := errors.New("forbidden")
	bucket := &fakeBucket{objects: map[string]*fakeObject{}, it: &fakeIterator{err: boom}}
	_, err := backend.ListAll(context.Background(), newTestGCS(bucket))
	assert.ErrorIs(t, err, boom)
}

func TestConfigure(t *testing.T) {
	err := New().Configure(backend.Settings{Bucket: "site"})
	var cfgErr *syncerr.ConfigError
	require.True(t, errors.As(err, &cfgErr))
	assert.Equal(t, backend.KeyAccessSecret, cfgErr.Key)

	var gotOpts int
	old := gcsNewClient
	gcsNewClient = func(ctx context.Context, opts ...option.ClientOption) (*storage.Client, error) {
		gotOpts = len(opts)
		return &storage.Client{}, nil
	}
	defer func() { gcsNewClient = old }()

	g := New()
	require.NoError(t, g.Configure(backend.Settings{Bucket: "site", AccessSecret: `{"type":"service_account"}`}))
	assert.Equal(t, 1, gotOpts)
	assert.Equal(t, "site", g.bucket)
}
