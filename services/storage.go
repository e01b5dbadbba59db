package services

import (
	"context"
	"errors"
	"fmt"
	"io"

	appConfig "github.com/kendall-kelly/av-pipeline-api/config"
)

// FileStorage stores document bytes under opaque keys
type FileStorage interface {
	// SaveFile writes content under key, replacing anything already there
	SaveFile(ctx context.Context, key string, content io.Reader, contentType string) error

	// DeleteFile removes the bytes under key. Implementations return ErrFileNotFound when
	// nothing is stored there.
	DeleteFile(ctx context.Context, key string) error

	// GetFileURL returns a URL a client can fetch the file from
	GetFileURL(ctx context.Context, key string) (string, error)
}

// ErrFileNotFound is returned by DeleteFile when the key holds no bytes
var ErrFileNotFound = errors.New("file not found in storage")

var fileStorageInstance FileStorage

// InitFileStorage builds the storage backend named by STORAGE_PROVIDER
func InitFileStorage(ctx context.Context, cfg *appConfig.Config) (FileStorage, error) {
	var (
		storage FileStorage
		err     error
	)
	switch cfg.StorageProvider {
	case appConfig.StorageLocal:
		storage, err = NewLocalFileStorage(cfg.UploadDir)
	case appConfig.StorageS3:
		storage, err = NewS3FileStorage(ctx, cfg)
	case appConfig.StorageGCS:
		storage, err = NewGCSFileStorage(ctx, cfg)
	default:
		err = fmt.Errorf("unknown storage provider %q", cfg.StorageProvider)
	}
	if err != nil {
		return nil, err
	}

	fileStorageInstance = storage
	return storage, nil
}

// GetFileStorage returns the initialized storage backend
func GetFileStorage() FileStorage {
	return fileStorageInstance
}

// SetFileStorage sets the storage backend (primarily for testing)
func SetFileStorage(storage FileStorage) {
	fileStorageInstance = storage
}
