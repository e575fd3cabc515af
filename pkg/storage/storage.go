// Package storage provides a named-object file store used for ingestion
// snapshots and the watched inbox.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"
)

// ErrNotFound is returned when no object exists under a name.
var ErrNotFound = errors.New("storage: object not found")

// FileInfo contains metadata about a stored file
type FileInfo struct {
	Name        string    `json:"name"`
	Size        int64     `json:"size"`
	ContentType string    `json:"content_type"`
	Path        string    `json:"path"` // Internal storage path
	CreatedAt   time.Time `json:"created_at"`
}

// Storage defines the interface for file storage operations
type Storage interface {
	// Put stores r under name, replacing any previous object
	Put(ctx context.Context, name string, contentType string, r io.Reader) (*FileInfo, error)

	// Get opens the object stored under name
	Get(ctx context.Context, name string) (io.ReadCloser, *FileInfo, error)

	// Delete removes the object stored under name
	Delete(ctx context.Context, name string) error

	// List returns all objects, oldest first
	List(ctx context.Context) ([]*FileInfo, error)
}

// StorageType identifies the storage backend
type StorageType string

const (
	StorageTypeLocal StorageType = "local"
)

// Config holds storage configuration
type Config struct {
	Type      StorageType
	LocalPath string
}

// New creates a new Storage implementation based on configuration
func New(cfg *Config) (Storage, error) {
	switch cfg.Type {
	case StorageTypeLocal, "":
		return NewLocalStorage(cfg.LocalPath)
	default:
		return nil, fmt.Errorf("unsupported storage type %q", cfg.Type)
	}
}

// Move copies name from src into dst and removes it from src.
func Move(ctx context.Context, src, dst Storage, name string) (*FileInfo, error) {
	rc, info, err := src.Get(ctx, name)
	if err != nil {
		return nil, err
	}
	moved, err := dst.Put(ctx, info.Name, info.ContentType, rc)
	rc.Close()
	if err != nil {
		return nil, fmt.Errorf("failed to move %s: %w", name, err)
	}
	if err := src.Delete(ctx, name); err != nil {
		return nil, fmt.Errorf("failed to remove moved %s: %w", name, err)
	}
	return moved, nil
}
