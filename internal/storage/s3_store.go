package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
)

type S3Store struct {
	client   *s3.Client
	uploader *manager.Uploader
	bucket   string
	urls     URLScheme
}

var _ Gateway = (*S3Store)(nil)

func NewS3Store(awsCfg aws.Config, bucket, publicBaseURL string) *S3Store {
	client := s3.NewFromConfig(awsCfg)
	return &S3Store{
		client:   client,
		uploader: manager.NewUploader(client),
		bucket:   bucket,
		urls:     NewURLScheme(bucket, publicBaseURL),
	}
}

func (s *S3Store) Store(ctx context.Context, key string, body []byte, contentType string) (string, error) {
	_, err := s.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("%w: upload s3://%s/%s: %v", ErrStorageUnavailable, s.bucket, key, err)
	}
	slog.Info("object uploaded", "bucket", s.bucket, "key", key, "bytes", len(body))
	return s.urls.PublicURL(key), nil
}

func (s *S3Store) Fetch(ctx context.Context, url string) ([]byte, error) {
	key, err := s.urls.KeyFromURL(url)
	if err != nil {
		return nil, err
	}

	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isS3NotFound(err) {
			return nil, fmt.Errorf("%w: s3://%s/%s", ErrObjectNotFound, s.bucket, key)
		}
		return nil, fmt.Errorf("%w: get s3://%s/%s: %v", ErrStorageUnavailable, s.bucket, key, err)
	}
	defer out.Body.Close()

	body, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read s3://%s/%s: %v", ErrStorageUnavailable, s.bucket, key, err)
	}
	return body, nil
}

func isS3NotFound(err error) bool {
	var noSuchKey *types.NoSuchKey
	if errors.As(err, &noSuchKey) {
		return true
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchKey", "NotFound":
			return true
		}
	}
	return false
}
