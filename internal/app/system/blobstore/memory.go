package blobstore

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"
)

type memBlob struct {
	data        []byte
	contentType string
}

// Memory is an in-memory Store for tests and the memory backend.
type Memory struct {
	mu      sync.Mutex
	baseURL string
	blobs   map[string]memBlob
}

// NewMemory creates an empty in-memory store.
func NewMemory(baseURL string) *Memory {
	if baseURL == "" {
		baseURL = "/blobs"
	}
	return &Memory{baseURL: baseURL, blobs: make(map[string]memBlob)}
}

func (m *Memory) Put(_ context.Context, key string, r io.Reader, size int64, contentType string) error {
	if err := ValidateKey(key); err != nil {
		return err
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("failed to read content: %w", err)
	}
	if size >= 0 && int64(len(data)) != size {
		return fmt.Errorf("size mismatch: expected %d bytes, got %d", size, len(data))
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.blobs[key] = memBlob{data: data, contentType: contentType}
	return nil
}

func (m *Memory) Open(_ context.Context, key string) (io.ReadCloser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.blobs[key]
	if !ok {
		return nil, ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(b.data)), nil
}

func (m *Memory) URL(_ context.Context, key string) (string, error) {
	if err := ValidateKey(key); err != nil {
		return "", err
	}
	return joinURL(m.baseURL, key), nil
}

func (m *Memory) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.blobs[key]; !ok {
		return ErrNotFound
	}
	delete(m.blobs, key)
	return nil
}

// Has reports whether key holds a blob.
func (m *Memory) Has(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.blobs[key]
	return ok
}

// Len returns the number of stored blobs.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.blobs)
}

var _ Store = (*Memory)(nil)
