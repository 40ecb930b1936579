// Package gcs implements the backend for Google Cloud Storage.
package gcs

import (
	"context"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"cloud.google.com/go/storage"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"github.com/yuya-takeyama/site-sync/pkg/backend"
)

const pageSize = 1000

// Small internal interfaces to enable unit tests without real GCS.
type gcsObject interface {
	NewWriter(ctx context.Context, contentType string, md5 []byte) io.WriteCloser
	Delete(ctx context.Context) error
}

type gcsBucket interface {
	Object(name string) gcsObject
	Objects(ctx context.Context, query *storage.Query) gcsIterator
}

type gcsIterator interface {
	Next() (*storage.ObjectAttrs, error)
}

type gcsClient interface {
	Bucket(name string) gcsBucket
}

type clientWrapper struct{ *storage.Client }
type bucketWrapper struct{ *storage.BucketHandle }
type objectWrapper struct{ *storage.ObjectHandle }

func (c clientWrapper) Bucket(name string) gcsBucket { return bucketWrapper{c.Client.Bucket(name)} }

func (b bucketWrapper) Object(name string) gcsObject {
	return objectWrapper{b.BucketHandle.Object(name)}
}

func (b bucketWrapper) Objects(ctx context.Context, query *storage.Query) gcsIterator {
	return b.BucketHandle.Objects(ctx, query)
}

func (o objectWrapper) NewWriter(ctx context.Context, contentType string, md5 []byte) io.WriteCloser {
	w := o.ObjectHandle.NewWriter(ctx)
	w.ContentType = contentType
	w.MD5 = md5
	return w
}

func (o objectWrapper) Delete(ctx context.Context) error { return o.ObjectHandle.Delete(ctx) }

var gcsNewClient = func(ctx context.Context, opts ...option.ClientOption) (*storage.Client, error) {
	return storage.NewClient(ctx, opts...)
}

type GCS struct {
	client gcsClient
	bucket string
}

func New() *GCS {
	return &GCS{}
}

func (g *GCS) Name() string { return "gcs" }

// Configure takes the service account key in AccessSecret, either as JSON or
// as a path to the key file.
func (g *GCS) Configure(settings backend.Settings) error {
	if err := settings.Require(backend.KeyAccessSecret, backend.KeyBucket); err != nil {
		return err
	}

	var cred option.ClientOption
	if secret := strings.TrimSpace(settings.AccessSecret); strings.HasPrefix(secret, "{") {
		cred = option.WithCredentialsJSON([]byte(secret))
	} else {
		cred = option.WithCredentialsFile(secret)
	}

	client, err := gcsNewClient(context.Background(), cred)
	if err != nil {
		return fmt.Errorf("create storage client: %w", err)
	}

	g.client = clientWrapper{client}
	g.bucket = settings.Bucket
	return nil
}

func (g *GCS) Upload(ctx context.Context, key, localPath, digest string) error {
	file, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("open file: %w", err)
	}
	defer file.Close()

	var sum []byte
	if digest != "" {
		if sum, err = base64.StdEncoding.DecodeString(digest); err != nil {
			return fmt.Errorf("decode digest: %w", err)
		}
	}

	w := g.client.Bucket(g.bucket).Object(key).NewWriter(ctx, backend.ContentType(key), sum)
	if _, err := io.Copy(w, file); err != nil {
		_ = w.Close()
		return fmt.Errorf("write object: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("write object: %w", err)
	}
	return nil
}

func (g *GCS) Delete(ctx context.Context, key string) error {
	if err := g.client.Bucket(g.bucket).Object(key).Delete(ctx); err != nil {
		return fmt.Errorf("delete object: %w", err)
	}
	return nil
}

// List pages through the bucket. The iterator is created on the first page
// so that it runs under the caller's context.
func (g *GCS) List() backend.Paginator {
	return &paginator{bucket: g.client.Bucket(g.bucket), more: true}
}

type paginator struct {
	bucket gcsBucket
	it     gcsIterator
	more   bool
}

func (p *paginator) HasMorePages() bool { return p.more }

func (p *paginator) NextPage(ctx context.Context) ([]backend.RawObject, error) {
	if p.it == nil {
		query := &storage.Query{}
		if err := query.SetAttrSelection([]string{"Name", "Size", "MD5"}); err != nil {
			return nil, err
		}
		p.it = p.bucket.Objects(ctx, query)
	}

	var objects []backend.RawObject
	for len(objects) < pageSize {
		attrs, err := p.it.Next()
		if errors.Is(err, iterator.Done) {
			p.more = false
			break
		}
		if err != nil {
			return nil, err
		}
		if attrs.Name == "" {
			continue
		}
		objects = append(objects, backend.RawObject{
			Key:  attrs.Name,
			Size: attrs.Size,
			ETag: hex.EncodeToString(attrs.MD5),
		})
	}
	return objects, nil
}
