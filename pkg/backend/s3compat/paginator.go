package s3compat

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/yuya-takeyama/site-sync/pkg/backend"
)

type tokenPaginator struct {
	pager *s3.ListObjectsV2Paginator
}

func (p *tokenPaginator) HasMorePages() bool { return p.pager.HasMorePages() }

func (p *tokenPaginator) NextPage(ctx context.Context) ([]backend.RawObject, error) {
	page, err := p.pager.NextPage(ctx)
	if err != nil {
		return nil, err
	}
	return rawObjects(page.Contents), nil
}

// markerPaginator pages with ListObjects. Vendors that do not return
// NextMarker are continued from the last key of the page.
type markerPaginator struct {
	client Client
	bucket string
	marker string
	done   bool
}

func (p *markerPaginator) HasMorePages() bool { return !p.done }

func (p *markerPaginator) NextPage(ctx context.Context) ([]backend.RawObject, error) {
	input := &s3.ListObjectsInput{Bucket: aws.String(p.bucket)}
	if p.marker != "" {
		input.Marker = aws.String(p.marker)
	}

	page, err := p.client.ListObjects(ctx, input)
	if err != nil {
		return nil, err
	}

	next := aws.ToString(page.NextMarker)
	if next == "" && len(page.Contents) > 0 {
		next = aws.ToString(page.Contents[len(page.Contents)-1].Key)
	}
	if !aws.ToBool(page.IsTruncated) || next == "" || next == p.marker {
		p.done = true
	}
	p.marker = next

	return rawObjects(page.Contents), nil
}

func rawObjects(contents []types.Object) []backend.RawObject {
	objects := make([]backend.RawObject, 0, len(contents))
	for _, obj := range contents {
		if obj.Key == nil {
			continue
		}
		objects = append(objects, backend.RawObject{
			Key:  aws.ToString(obj.Key),
			Size: aws.ToInt64(obj.Size),
			ETag: aws.ToString(obj.ETag),
		})
	}
	return objects
}
