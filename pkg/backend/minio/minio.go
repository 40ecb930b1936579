// Package minio implements the backend for self-hosted MinIO servers over the
// path-style S3 API.
package minio

import (
	"context"
	"fmt"
	"os"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"

	"github.com/yuya-takeyama/site-sync/pkg/backend"
)

const defaultRegion = "us-east-1"

// API is the subset of s3iface.S3API the backend uses.
type API interface {
	PutObjectWithContext(ctx aws.Context, input *s3.PutObjectInput, opts ...request.Option) (*s3.PutObjectOutput, error)
	DeleteObjectWithContext(ctx aws.Context, input *s3.DeleteObjectInput, opts ...request.Option) (*s3.DeleteObjectOutput, error)
	ListObjectsV2WithContext(ctx aws.Context, input *s3.ListObjectsV2Input, opts ...request.Option) (*s3.ListObjectsV2Output, error)
}

type MinIO struct {
	svc    API
	bucket string
}

func New() *MinIO {
	return &MinIO{}
}

// NewWithAPI returns a configured backend that talks to svc.
func NewWithAPI(bucket string, svc API) *MinIO {
	return &MinIO{svc: svc, bucket: bucket}
}

func (m *MinIO) Name() string { return "minio" }

// Configure requires an endpoint such as http://localhost:9000. Region
// defaults to us-east-1.
func (m *MinIO) Configure(settings backend.Settings) error {
	if err := settings.Require(backend.KeyEndpoint, backend.KeyAccessID, backend.KeyAccessSecret, backend.KeyBucket); err != nil {
		return err
	}

	region := settings.Region
	if region == "" {
		region = defaultRegion
	}

	sess, err := session.NewSession(&aws.Config{
		Region:           aws.String(region),
		Endpoint:         aws.String(settings.Endpoint),
		S3ForcePathStyle: aws.Bool(true),
		Credentials:      credentials.NewStaticCredentials(settings.AccessID, settings.AccessSecret, ""),
	})
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}

	m.svc = s3.New(sess)
	m.bucket = settings.Bucket
	return nil
}

func (m *MinIO) Upload(ctx context.Context, key, localPath, digest string) error {
	file, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("open file: %w", err)
	}
	defer file.Close()

	input := &s3.PutObjectInput{
		Bucket:      aws.String(m.bucket),
		Key:         aws.String(key),
		Body:        file,
		ContentType: aws.String(backend.ContentType(key)),
	}
	if digest != "" {
		input.ContentMD5 = aws.String(digest)
	}

	if _, err := m.svc.PutObjectWithContext(ctx, input); err != nil {
		return fmt.Errorf("put object: %w", err)
	}
	return nil
}

func (m *MinIO) Delete(ctx context.Context, key string) error {
	_, err := m.svc.DeleteObjectWithContext(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(m.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("delete object: %w", err)
	}
	return nil
}

func (m *MinIO) List() backend.Paginator {
	return &paginator{svc: m.svc, bucket: m.bucket, more: true}
}

type paginator struct {
	svc    API
	bucket string
	token  *string
	more   bool
}

func (p *paginator) HasMorePages() bool { return p.more }

func (p *paginator) NextPage(ctx context.Context) ([]backend.RawObject, error) {
	result, err := p.svc.ListObjectsV2WithContext(ctx, &s3.ListObjectsV2Input{
		Bucket:            aws.String(p.bucket),
		ContinuationToken: p.token,
	})
	if err != nil {
		return nil, err
	}

	objects := make([]backend.RawObject, 0, len(result.Contents))
	for _, obj := range result.Contents {
		if obj.Key == nil {
			continue
		}
		objects = append(objects, backend.RawObject{
			Key:  aws.StringValue(obj.Key),
			Size: aws.Int64Value(obj.Size),
			ETag: aws.StringValue(obj.ETag),
		})
	}

	p.token = result.NextContinuationToken
	p.more = aws.BoolValue(result.IsTruncated) && aws.StringValue(p.token) != ""
	return objects, nil
}
