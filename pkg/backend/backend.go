// Package backend defines the contract every storage provider implements.
package backend

import (
	"context"
	"fmt"
)

// Settings carry what a provider needs to reach one bucket.
type Settings struct {
	Region       string
	Bucket       string
	AccessID     string
	AccessSecret string
	// Endpoint overrides the provider's derived endpoint when set.
	Endpoint string
}

// RawObject is one entry of a provider listing, before normalization.
type RawObject struct {
	Key  string
	Size int64
	// ETag is the provider's integrity tag as returned, quotes included.
	ETag string
}

// Paginator yields a listing one page at a time.
type Paginator interface {
	HasMorePages() bool
	NextPage(ctx context.Context) ([]RawObject, error)
}

// Backend is a bucket on one provider.
type Backend interface {
	// Name is the provider identifier, e.g. "aws".
	Name() string

	// Configure validates settings and builds the client. No network calls.
	Configure(settings Settings) error

	// Upload puts the file at localPath under key. digest is the base64 MD5
	// of the file content.
	Upload(ctx context.Context, key, localPath, digest string) error

	Delete(ctx context.Context, key string) error

	// List returns a fresh paginator over the whole bucket.
	List() Paginator
}

// ListAll drains every page of b's listing.
func ListAll(ctx context.Context, b Backend) ([]RawObject, error) {
	var objects []RawObject
	p := b.List()
	for n := 1; p.HasMorePages(); n++ {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("list page %d: %w", n, err)
		}
		objects = append(objects, page...)
	}
	return objects, nil
}
