package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"
)

// LocalFilesRoute is where the API serves files kept by LocalFileStorage
const LocalFilesRoute = "/api/v1/documents/files/"

// LocalFileStorage keeps files on the local disk below a base directory
type LocalFileStorage struct {
	baseDir string
}

// NewLocalFileStorage creates the base directory if needed
func NewLocalFileStorage(baseDir string) (*LocalFileStorage, error) {
	if baseDir == "" {
		return nil, errors.New("upload directory is required for local storage")
	}
	abs, err := filepath.Abs(baseDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve upload directory: %w", err)
	}
	if err := os.MkdirAll(abs, 0755); err != nil {
		return nil, fmt.Errorf("failed to create upload directory: %w", err)
	}
	return &LocalFileStorage{baseDir: abs}, nil
}

// Resolve maps a storage key onto a path inside the base directory. Keys that would escape
// the base directory are rejected.
func (s *LocalFileStorage) Resolve(key string) (string, error) {
	if key == "" {
		return "", errors.New("empty storage key")
	}
	full := filepath.Join(s.baseDir, filepath.FromSlash(key))
	rel, err := filepath.Rel(s.baseDir, full)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("invalid storage key %q", key)
	}
	return full, nil
}

func (s *LocalFileStorage) SaveFile(ctx context.Context, key string, content io.Reader, contentType string) error {
	path, err := s.Resolve(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	dst, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create destination file: %w", err)
	}
	if _, err := io.Copy(dst, content); err != nil {
		dst.Close()
		os.Remove(path)
		return fmt.Errorf("failed to save file: %w", err)
	}
	return dst.Close()
}

func (s *LocalFileStorage) DeleteFile(ctx context.Context, key string) error {
	path, err := s.Resolve(key)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrFileNotFound, key)
		}
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}

// GetFileURL returns the API route serving the file. Each path segment is escaped because
// category folders contain spaces.
func (s *LocalFileStorage) GetFileURL(ctx context.Context, key string) (string, error) {
	if _, err := s.Resolve(key); err != nil {
		return "", err
	}
	segments := strings.Split(key, "/")
	for i, segment := range segments {
		segments[i] = url.PathEscape(segment)
	}
	return LocalFilesRoute + strings.Join(segments, "/"), nil
}
