package export

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/xitongsys/parquet-go/source"
)

// Uploader stores a finished object
type Uploader interface {
	Upload(ctx context.Context, bucket, key string, body []byte) error
}

// S3Uploader puts objects into an S3 bucket
type S3Uploader struct {
	client *s3.Client
}

// NewS3Uploader loads the default AWS credential chain for region
func NewS3Uploader(ctx context.Context, region string) (*S3Uploader, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("unable to load AWS config: %w", err)
	}
	return &S3Uploader{client: s3.NewFromConfig(cfg)}, nil
}

func (u *S3Uploader) Upload(ctx context.Context, bucket, key string, body []byte) error {
	_, err := u.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(body),
	})
	if err != nil {
		return fmt.Errorf("unable to upload s3://%s/%s: %w", bucket, key, err)
	}
	return nil
}

// objectFile buffers a parquet file in memory and uploads it on Close
type objectFile struct {
	ctx      context.Context
	uploader Uploader
	bucket   string
	key      string
	buf      bytes.Buffer
	offset   int64
}

var _ source.ParquetFile = (*objectFile)(nil)

func newObjectFile(ctx context.Context, uploader Uploader, bucket, key string) *objectFile {
	return &objectFile{ctx: ctx, uploader: uploader, bucket: bucket, key: key}
}

func (f *objectFile) Create(name string) (source.ParquetFile, error) { return f, nil }
func (f *objectFile) Open(name string) (source.ParquetFile, error)   { return f, nil }

func (f *objectFile) Seek(offset int64, whence int) (int64, error) {
	switch whence {
	case io.SeekStart:
		f.offset = offset
	case io.SeekCurrent:
		f.offset += offset
	default:
		return 0, fmt.Errorf("seek from end not supported for object storage")
	}
	return f.offset, nil
}

func (f *objectFile) Read(p []byte) (int, error) {
	return 0, fmt.Errorf("read not supported for object storage")
}

func (f *objectFile) Write(p []byte) (int, error) {
	n, err := f.buf.Write(p)
	f.offset += int64(n)
	return n, err
}

func (f *objectFile) Close() error {
	return f.uploader.Upload(f.ctx, f.bucket, f.key, f.buf.Bytes())
}
