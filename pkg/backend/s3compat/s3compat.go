// Package s3compat implements backends for AWS S3 and the vendors that speak
// its API: Cloudflare R2, Aliyun OSS, Baidu BOS and Tencent COS.
package s3compat

import (
	"context"
	"fmt"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/yuya-takeyama/site-sync/pkg/backend"
)

// Site files are uploaded in a single PUT below this size, so the stored
// ETag stays a plain MD5.
const partSize = 64 * 1024 * 1024

// Client is the subset of *s3.Client the backend uses.
type Client interface {
	manager.UploadAPIClient
	s3.ListObjectsV2APIClient
	ListObjects(ctx context.Context, params *s3.ListObjectsInput, optFns ...func(*s3.Options)) (*s3.ListObjectsOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

type Backend struct {
	provider Provider
	bucket   string
	client   Client
	uploader *manager.Uploader
}

func New(p Provider) *Backend {
	return &Backend{provider: p}
}

// NewWithClient returns a configured backend that talks to client.
func NewWithClient(p Provider, bucket string, client Client) *Backend {
	b := &Backend{provider: p}
	b.use(bucket, client)
	return b
}

func (b *Backend) Name() string { return b.provider.Name }

func (b *Backend) Configure(settings backend.Settings) error {
	if err := settings.Require(backend.KeyRegion, backend.KeyAccessID, backend.KeyAccessSecret, backend.KeyBucket); err != nil {
		return err
	}

	cfg, err := config.LoadDefaultConfig(context.Background(),
		config.WithRegion(b.provider.SigningRegion(settings)),
		config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(settings.AccessID, settings.AccessSecret, ""),
		),
	)
	if err != nil {
		return fmt.Errorf("load aws config: %w", err)
	}

	endpoint := b.provider.endpoint(settings)
	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
			o.RequestChecksumCalculation = aws.RequestChecksumCalculationWhenRequired
			o.ResponseChecksumValidation = aws.ResponseChecksumValidationWhenRequired
		}
		o.UsePathStyle = b.provider.PathStyle
	})

	b.use(settings.Bucket, client)
	return nil
}

func (b *Backend) use(bucket string, client Client) {
	b.bucket = bucket
	b.client = client
	b.uploader = manager.NewUploader(client, func(u *manager.Uploader) {
		u.PartSize = partSize
	})
}

func (b *Backend) Upload(ctx context.Context, key, localPath, digest string) error {
	file, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("open file: %w", err)
	}
	defer file.Close()

	input := &s3.PutObjectInput{
		Bucket:      aws.String(b.bucket),
		Key:         aws.String(key),
		Body:        file,
		ContentType: aws.String(backend.ContentType(key)),
	}
	if digest != "" {
		input.ContentMD5 = aws.String(digest)
	}

	if _, err := b.uploader.Upload(ctx, input); err != nil {
		return fmt.Errorf("put object: %w", err)
	}
	return nil
}

func (b *Backend) Delete(ctx context.Context, key string) error {
	_, err := b.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("delete object: %w", err)
	}
	return nil
}

func (b *Backend) List() backend.Paginator {
	if b.provider.Markers {
		return &markerPaginator{client: b.client, bucket: b.bucket}
	}
	return &tokenPaginator{
		pager: s3.NewListObjectsV2Paginator(b.client, &s3.ListObjectsV2Input{
			Bucket: aws.String(b.bucket),
		}),
	}
}
