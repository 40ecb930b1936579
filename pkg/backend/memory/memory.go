// Package memory is an in-process Backend for tests. It stores uploads in a
// map, reports MD5 hex ETags like S3 does for single-part uploads, and
// records every call.
package memory

import (
	"context"
	"crypto/md5"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"os"
	"sort"
	"sync"

	"github.com/yuya-takeyama/site-sync/pkg/backend"
)

const defaultPageSize = 1000

// Object is a stored object.
type Object struct {
	Body        []byte
	ContentType string
	ETag        string
}

// Backend is safe for concurrent use.
type Backend struct {
	// PageSize bounds the entries returned by one NextPage call.
	PageSize int
	// UploadErr and DeleteErr, when set, are consulted before each call.
	UploadErr func(key string) error
	DeleteErr func(key string) error
	// ListErr fails the listing at the given page index (1-based) when set.
	ListErr     error
	ListErrPage int

	mu       sync.Mutex
	objects  map[string]Object
	settings backend.Settings
	uploads  []string
	deletes  []string
}

// New returns an empty bucket.
func New() *Backend {
	return &Backend{
		PageSize: defaultPageSize,
		objects:  make(map[string]Object),
	}
}

func (b *Backend) Name() string { return "memory" }

func (b *Backend) Configure(settings backend.Settings) error {
	if err := settings.Require(backend.KeyBucket); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.settings = settings
	return nil
}

// Put seeds an object with an S3-style quoted MD5 ETag.
func (b *Backend) Put(key string, body []byte) {
	sum := md5.Sum(body)
	b.PutWithETag(key, body, `"`+hex.EncodeToString(sum[:])+`"`)
}

// PutWithETag seeds an object with an arbitrary ETag.
func (b *Backend) PutWithETag(key string, body []byte, etag string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.objects[key] = Object{Body: body, ETag: etag}
}

func (b *Backend) Upload(ctx context.Context, key, localPath, digest string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if b.UploadErr != nil {
		if err := b.UploadErr(key); err != nil {
			b.record(&b.uploads, key)
			return err
		}
	}

	body, err := os.ReadFile(localPath)
	if err != nil {
		return fmt.Errorf("read %s: %w", localPath, err)
	}
	sum := md5.Sum(body)
	if got := base64.StdEncoding.EncodeToString(sum[:]); digest != "" && got != digest {
		return fmt.Errorf("content md5 mismatch: got %s, want %s", got, digest)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.uploads = append(b.uploads, key)
	b.objects[key] = Object{
		Body:        body,
		ContentType: backend.ContentType(key),
		ETag:        `"` + hex.EncodeToString(sum[:]) + `"`,
	}
	return nil
}

func (b *Backend) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if b.DeleteErr != nil {
		if err := b.DeleteErr(key); err != nil {
			b.record(&b.deletes, key)
			return err
		}
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.deletes = append(b.deletes, key)
	delete(b.objects, key)
	return nil
}

func (b *Backend) record(calls *[]string, key string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	*calls = append(*calls, key)
}

// List snapshots the bucket and pages through it in key order.
func (b *Backend) List() backend.Paginator {
	b.mu.Lock()
	defer b.mu.Unlock()

	entries := make([]backend.RawObject, 0, len(b.objects))
	for key, obj := range b.objects {
		entries = append(entries, backend.RawObject{Key: key, Size: int64(len(obj.Body)), ETag: obj.ETag})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Key < entries[j].Key })

	size := b.PageSize
	if size <= 0 {
		size = defaultPageSize
	}
	return &paginator{entries: entries, size: size, failErr: b.ListErr, failPage: b.ListErrPage, first: true}
}

// Get returns the stored object.
func (b *Backend) Get(key string) (Object, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	obj, ok := b.objects[key]
	return obj, ok
}

// Keys returns the stored keys in order.
func (b *Backend) Keys() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	keys := make([]string, 0, len(b.objects))
	for k := range b.objects {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Uploads returns the keys passed to Upload, sorted.
func (b *Backend) Uploads() []string { return b.sortedCalls(b.uploads) }

// Deletes returns the keys passed to Delete, sorted.
func (b *Backend) Deletes() []string { return b.sortedCalls(b.deletes) }

func (b *Backend) sortedCalls(calls []string) []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := append([]string(nil), calls...)
	sort.Strings(out)
	return out
}

type paginator struct {
	entries  []backend.RawObject
	size     int
	page     int
	first    bool
	failErr  error
	failPage int
}

func (p *paginator) HasMorePages() bool {
	return p.first || len(p.entries) > 0
}

func (p *paginator) NextPage(ctx context.Context) ([]backend.RawObject, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p.first = false
	p.page++
	if p.failErr != nil && p.page >= p.failPage {
		return nil, p.failErr
	}

	n := min(p.size, len(p.entries))
	page := p.entries[:n]
	p.entries = p.entries[n:]
	return page, nil
}
