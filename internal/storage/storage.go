// Package storage uploads and fetches résumé text and generated pages as
// publicly addressable objects in a single bucket.
package storage

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"path"
	"strings"
)

var (
	ErrStorageUnavailable = errors.New("object storage unavailable")
	ErrObjectNotFound     = errors.New("object not found")
	ErrForeignURL         = errors.New("url does not belong to the configured bucket")
)

const (
	ContentTypeText = "text/plain"
	ContentTypeHTML = "text/html"
)

// Gateway stores blobs under deterministic keys and returns their public URLs.
type Gateway interface {
	Store(ctx context.Context, key string, body []byte, contentType string) (string, error)
	Fetch(ctx context.Context, url string) ([]byte, error)
}

func ResumeKey(userID uint, filename string) string {
	name := path.Base(strings.ReplaceAll(filename, "\\", "/"))
	if name == "." || name == "/" || name == "" {
		name = "resume.txt"
	}
	return fmt.Sprintf("resumes/%d/%s", userID, name)
}

func PageKey(userID, chatID uint) string {
	return fmt.Sprintf("pages/%d/pages-%d/index.html", userID, chatID)
}

// URLScheme maps keys to public URLs and back for one bucket.
type URLScheme struct {
	baseURL string
}

// NewURLScheme uses the virtual-hosted S3 address unless a public base URL is given.
func NewURLScheme(bucket, publicBaseURL string) URLScheme {
	base := strings.TrimRight(strings.TrimSpace(publicBaseURL), "/")
	if base == "" {
		base = fmt.Sprintf("https://%s.s3.amazonaws.com", bucket)
	}
	return URLScheme{baseURL: base}
}

// PublicURL path-escapes every key segment so names with spaces stay addressable.
func (s URLScheme) PublicURL(key string) string {
	segments := strings.Split(strings.TrimLeft(key, "/"), "/")
	for i, segment := range segments {
		segments[i] = url.PathEscape(segment)
	}
	return s.baseURL + "/" + strings.Join(segments, "/")
}

func (s URLScheme) KeyFromURL(rawURL string) (string, error) {
	prefix := s.baseURL + "/"
	if !strings.HasPrefix(rawURL, prefix) {
		return "", fmt.Errorf("%w: %s", ErrForeignURL, rawURL)
	}
	escaped := strings.TrimPrefix(rawURL, prefix)
	if escaped == "" {
		return "", fmt.Errorf("%w: %s", ErrForeignURL, rawURL)
	}

	segments := strings.Split(escaped, "/")
	for i, segment := range segments {
		unescaped, err := url.PathUnescape(segment)
		if err != nil {
			return "", fmt.Errorf("%w: %s", ErrForeignURL, rawURL)
		}
		segments[i] = unescaped
	}
	return strings.Join(segments, "/"), nil
}
