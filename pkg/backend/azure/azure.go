// Package azure implements the backend for Azure Blob Storage containers.
package azure

import (
	"context"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/Azure/azure-storage-blob-go/azblob"

	"github.com/yuya-takeyama/site-sync/pkg/backend"
	"github.com/yuya-takeyama/site-sync/pkg/syncerr"
)

const defaultBlobHost = "blob.core.windows.net"

// Small internal interface for testability without network.
type containerAPI interface {
	Upload(ctx context.Context, name string, file *os.File, headers azblob.BlobHTTPHeaders) error
	Delete(ctx context.Context, name string) error
	ListSegment(ctx context.Context, marker azblob.Marker) (*azblob.ListBlobsFlatSegmentResponse, error)
}

type containerWrapper struct{ azblob.ContainerURL }

func (c containerWrapper) Upload(ctx context.Context, name string, file *os.File, headers azblob.BlobHTTPHeaders) error {
	_, err := azblob.UploadFileToBlockBlob(ctx, file, c.NewBlockBlobURL(name), azblob.UploadToBlockBlobOptions{
		BlobHTTPHeaders: headers,
	})
	return err
}

func (c containerWrapper) Delete(ctx context.Context, name string) error {
	_, err := c.NewBlockBlobURL(name).Delete(ctx, azblob.DeleteSnapshotsOptionInclude, azblob.BlobAccessConditions{})
	return err
}

func (c containerWrapper) ListSegment(ctx context.Context, marker azblob.Marker) (*azblob.ListBlobsFlatSegmentResponse, error) {
	return c.ListBlobsFlatSegment(ctx, marker, azblob.ListBlobsSegmentOptions{})
}

type Azure struct {
	container containerAPI
}

func New() *Azure {
	return &Azure{}
}

func (a *Azure) Name() string { return "azure" }

// Configure takes the storage account name in AccessID, the account key in
// AccessSecret and the container in Bucket. A region containing a dot is
// taken as the blob host suffix for sovereign clouds.
func (a *Azure) Configure(settings backend.Settings) error {
	if err := settings.Require(backend.KeyAccessID, backend.KeyAccessSecret, backend.KeyBucket); err != nil {
		return err
	}

	credential, err := azblob.NewSharedKeyCredential(settings.AccessID, settings.AccessSecret)
	if err != nil {
		return syncerr.Invalid(backend.KeyAccessSecret, "account key: %v", err)
	}

	u, err := containerURL(settings)
	if err != nil {
		return syncerr.Invalid(backend.KeyEndpoint, "%v", err)
	}

	p := azblob.NewPipeline(credential, azblob.PipelineOptions{})
	a.container = containerWrapper{azblob.NewContainerURL(*u, p)}
	return nil
}

func containerURL(s backend.Settings) (*url.URL, error) {
	if s.Endpoint != "" {
		return url.Parse(strings.TrimSuffix(s.Endpoint, "/") + "/" + s.Bucket)
	}
	host := defaultBlobHost
	if strings.Contains(s.Region, ".") {
		host = s.Region
	}
	return url.Parse(fmt.Sprintf("https://%s.%s/%s", s.AccessID, host, s.Bucket))
}

func (a *Azure) Upload(ctx context.Context, key, localPath, digest string) error {
	file, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("open file: %w", err)
	}
	defer file.Close()

	headers := azblob.BlobHTTPHeaders{ContentType: backend.ContentType(key)}
	if digest != "" {
		if headers.ContentMD5, err = base64.StdEncoding.DecodeString(digest); err != nil {
			return fmt.Errorf("decode digest: %w", err)
		}
	}

	if err := a.container.Upload(ctx, key, file, headers); err != nil {
		return fmt.Errorf("upload blob: %w", err)
	}
	return nil
}

func (a *Azure) Delete(ctx context.Context, key string) error {
	if err := a.container.Delete(ctx, key); err != nil {
		return fmt.Errorf("delete blob: %w", err)
	}
	return nil
}

func (a *Azure) List() backend.Paginator {
	return &paginator{container: a.container, marker: azblob.Marker{}}
}

type paginator struct {
	container containerAPI
	marker    azblob.Marker
}

func (p *paginator) HasMorePages() bool { return p.marker.NotDone() }

func (p *paginator) NextPage(ctx context.Context) ([]backend.RawObject, error) {
	resp, err := p.container.ListSegment(ctx, p.marker)
	if err != nil {
		return nil, err
	}
	p.marker = resp.NextMarker
	if p.marker.Val == nil {
		done := ""
		p.marker.Val = &done
	}

	objects := make([]backend.RawObject, 0, len(resp.Segment.BlobItems))
	for _, blob := range resp.Segment.BlobItems {
		var size int64
		if blob.Properties.ContentLength != nil {
			size = *blob.Properties.ContentLength
		}
		objects = append(objects, backend.RawObject{
			Key:  blob.Name,
			Size: size,
			ETag: hex.EncodeToString(blob.Properties.ContentMD5),
		})
	}
	return objects, nil
}
