package services

import (
	"context"
	"fmt"
	"io"
	"sync"
)

// MockFileStorage is an in-memory FileStorage for tests
type MockFileStorage struct {
	files map[string][]byte
	mu    sync.RWMutex

	// SaveErr and DeleteErr, when set, are returned by the matching calls
	SaveErr   error
	DeleteErr error
}

// NewMockFileStorage creates an empty mock storage
func NewMockFileStorage() *MockFileStorage {
	return &MockFileStorage{files: make(map[string][]byte)}
}

// SetAsMockForTesting installs this mock as the global storage backend
func (m *MockFileStorage) SetAsMockForTesting() {
	SetFileStorage(m)
}

func (m *MockFileStorage) SaveFile(ctx context.Context, key string, content io.Reader, contentType string) error {
	if m.SaveErr != nil {
		return m.SaveErr
	}
	data, err := io.ReadAll(content)
	if err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}
	m.mu.Lock()
	m.files[key] = data
	m.mu.Unlock()
	return nil
}

func (m *MockFileStorage) DeleteFile(ctx context.Context, key string) error {
	if m.DeleteErr != nil {
		return m.DeleteErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.files[key]; !ok {
		return fmt.Errorf("%w: %s", ErrFileNotFound, key)
	}
	delete(m.files, key)
	return nil
}

func (m *MockFileStorage) GetFileURL(ctx context.Context, key string) (string, error) {
	return fmt.Sprintf("https://files.test/%s?mock=true", key), nil
}

// Files returns a copy of everything stored
func (m *MockFileStorage) Files() map[string][]byte {
	m.mu.RLock()
	defer m.mu.RUnlock()
	files := make(map[string][]byte, len(m.files))
	for k, v := range m.files {
		files[k] = v
	}
	return files
}

// FileExists checks if a file exists in mock storage
func (m *MockFileStorage) FileExists(key string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, exists := m.files[key]
	return exists
}

// Clear removes all files from mock storage
func (m *MockFileStorage) Clear() {
	m.mu.Lock()
	m.files = make(map[string][]byte)
	m.mu.Unlock()
}
