package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	gcs "cloud.google.com/go/storage"
	appConfig "github.com/kendall-kelly/av-pipeline-api/config"
	"google.golang.org/api/option"
)

// GCSFileStorage keeps documents in a Google Cloud Storage bucket and hands out signed URLs
type GCSFileStorage struct {
	client *gcs.Client
	bucket string
	urlTTL time.Duration
}

// NewGCSFileStorage prefers explicit credentials JSON and falls back to application default
// credentials
func NewGCSFileStorage(ctx context.Context, cfg *appConfig.Config) (*GCSFileStorage, error) {
	var opts []option.ClientOption
	if creds := strings.TrimSpace(cfg.GCSCredentialsJSON); creds != "" {
		opts = append(opts, option.WithCredentialsJSON([]byte(creds)))
	}

	client, err := gcs.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCS client: %w", err)
	}
	return &GCSFileStorage{client: client, bucket: cfg.GCSBucket, urlTTL: time.Hour}, nil
}

func (s *GCSFileStorage) SaveFile(ctx context.Context, key string, content io.Reader, contentType string) error {
	w := s.client.Bucket(s.bucket).Object(key).NewWriter(ctx)
	w.ContentType = contentType
	if _, err := io.Copy(w, content); err != nil {
		w.Close()
		return fmt.Errorf("failed to upload to GCS: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to upload to GCS: %w", err)
	}
	return nil
}

func (s *GCSFileStorage) DeleteFile(ctx context.Context, key string) error {
	err := s.client.Bucket(s.bucket).Object(key).Delete(ctx)
	if errors.Is(err, gcs.ErrObjectNotExist) {
		return fmt.Errorf("%w: %s", ErrFileNotFound, key)
	}
	if err != nil {
		return fmt.Errorf("failed to delete file from GCS: %w", err)
	}
	return nil
}

// GetFileURL returns a V4 signed GET URL valid for one hour
func (s *GCSFileStorage) GetFileURL(ctx context.Context, key string) (string, error) {
	signed, err := s.client.Bucket(s.bucket).SignedURL(key, &gcs.SignedURLOptions{
		Scheme:  gcs.SigningSchemeV4,
		Method:  "GET",
		Expires: time.Now().Add(s.urlTTL),
	})
	if err != nil {
		return "", fmt.Errorf("failed to sign GCS URL: %w", err)
	}
	return signed, nil
}

// Close releases the underlying client
func (s *GCSFileStorage) Close() error {
	return s.client.Close()
}
