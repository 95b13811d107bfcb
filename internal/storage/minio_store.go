package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MinioStore serves the same key layout from a MinIO (or any S3-compatible) endpoint.
type MinioStore struct {
	client *minio.Client
	bucket string
	urls   URLScheme
}

var _ Gateway = (*MinioStore)(nil)

type MinioOptions struct {
	Endpoint      string
	AccessKey     string
	SecretKey     string
	SessionToken  string
	Region        string
	Bucket        string
	UseSSL        bool
	PublicBaseURL string
}

// NewMinioStore connects to the endpoint and creates the bucket when missing.
func NewMinioStore(ctx context.Context, opts MinioOptions) (*MinioStore, error) {
	client, err := minio.New(opts.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(opts.AccessKey, opts.SecretKey, opts.SessionToken),
		Secure: opts.UseSSL,
		Region: opts.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("init minio client failed: %w", err)
	}

	checkCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	exists, err := client.BucketExists(checkCtx, opts.Bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket %s failed: %w", opts.Bucket, err)
	}
	if !exists {
		if err := client.MakeBucket(checkCtx, opts.Bucket, minio.MakeBucketOptions{Region: opts.Region}); err != nil {
			return nil, fmt.Errorf("create bucket %s failed: %w", opts.Bucket, err)
		}
	}

	base := opts.PublicBaseURL
	if base == "" {
		scheme := "http"
		if opts.UseSSL {
			scheme = "https"
		}
		base = fmt.Sprintf("%s://%s/%s", scheme, opts.Endpoint, opts.Bucket)
	}
	return &MinioStore{
		client: client,
		bucket: opts.Bucket,
		urls:   NewURLScheme(opts.Bucket, base),
	}, nil
}

func (m *MinioStore) Store(ctx context.Context, key string, body []byte, contentType string) (string, error) {
	_, err := m.client.PutObject(ctx, m.bucket, key, bytes.NewReader(body), int64(len(body)), minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", fmt.Errorf("%w: put %s/%s: %v", ErrStorageUnavailable, m.bucket, key, err)
	}
	slog.Info("object uploaded", "bucket", m.bucket, "key", key, "bytes", len(body))
	return m.urls.PublicURL(key), nil
}

func (m *MinioStore) Fetch(ctx context.Context, url string) ([]byte, error) {
	key, err := m.urls.KeyFromURL(url)
	if err != nil {
		return nil, err
	}

	obj, err := m.client.GetObject(ctx, m.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("%w: get %s/%s: %v", ErrStorageUnavailable, m.bucket, key, err)
	}
	defer obj.Close()

	// GetObject is lazy; a missing key only shows up on the first read.
	body, err := io.ReadAll(obj)
	if err != nil {
		if isMinioNotFound(err) {
			return nil, fmt.Errorf("%w: %s/%s", ErrObjectNotFound, m.bucket, key)
		}
		return nil, fmt.Errorf("%w: read %s/%s: %v", ErrStorageUnavailable, m.bucket, key, err)
	}
	return body, nil
}

func isMinioNotFound(err error) bool {
	return minio.ToErrorResponse(err).Code == "NoSuchKey"
}
