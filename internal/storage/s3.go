package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
)

// Bodies bigger than this are sent as a multipart upload
const minMultipartSize = 12 << 20

type S3Options struct {
	Region          string
	Bucket          string
	AccessKey       string
	SecretAccessKey string
	// Endpoint is only needed for S3 compatible stores (R2, MinIO, ...)
	Endpoint string
	// PublicURL is where stored objects can be fetched by browsers
	PublicURL string
}

// S3 stores blobs in a bucket and serves them by redirecting to PublicURL
type S3 struct {
	C         *s3.Client
	Bucket    *string
	PublicURL string
}

func NewS3(ctx context.Context, o S3Options) (*S3, error) {
	cfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(o.Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			o.AccessKey,
			o.SecretAccessKey,
			"",
		)),
	)
	if err != nil {
		return nil, err
	}

	bucket := aws.String(o.Bucket)

	client := s3.NewFromConfig(cfg, func(so *s3.Options) {
		if o.Endpoint != "" {
			so.BaseEndpoint = aws.String(o.Endpoint)
			so.UsePathStyle = true
		}
	})

	_, err = client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: bucket,
	})
	if err != nil {
		var apiErr smithy.APIError

		if errors.As(err, &apiErr) {
			if apiErr.ErrorCode() == "NotFound" {
				return nil, fmt.Errorf("bucket '%s' does not exist", o.Bucket)
			}
		}

		return nil, fmt.Errorf("failed to check if bucket exists, %w", err)
	}

	return &S3{
		C:         client,
		Bucket:    bucket,
		PublicURL: strings.TrimRight(o.PublicURL, "/"),
	}, nil
}

func (s *S3) Put(ctx context.Context, key, contentType string, body io.Reader, size int64) error {
	if !ValidKey(key) {
		return ErrInvalidKey
	}

	in := &s3.PutObjectInput{
		Bucket:       s.Bucket,
		Key:          aws.String(key),
		Body:         body,
		ContentType:  aws.String(contentType),
		CacheControl: aws.String("public, max-age=31536000, immutable"),
	}

	var err error
	if size < 0 || size > minMultipartSize {
		u := manager.NewUploader(s.C, func(u *manager.Uploader) {
			u.Concurrency = 5
			u.PartSize = 6 << 20
		})

		_, err = u.Upload(ctx, in)
	} else {
		in.ContentLength = aws.Int64(size)
		_, err = s.C.PutObject(ctx, in)
	}
	if err != nil {
		return fmt.Errorf("failed to upload blob to s3, %w", err)
	}

	return nil
}

func (s *S3) Delete(ctx context.Context, key string) error {
	if !ValidKey(key) {
		return ErrInvalidKey
	}

	_, err := s.C.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: s.Bucket,
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to delete blob from s3, %w", err)
	}

	return nil
}

func (s *S3) Serve(w http.ResponseWriter, r *http.Request, key string) {
	if !ValidKey(key) {
		http.NotFound(w, r)
		return
	}

	http.Redirect(w, r, s.PublicURL+"/"+key, http.StatusFound)
}
