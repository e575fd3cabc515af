package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"mime"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

const metaDir = ".meta"

// LocalStorage implements Storage using the local filesystem
type LocalStorage struct {
	basePath string
}

// NewLocalStorage creates a new local filesystem storage
func NewLocalStorage(basePath string) (*LocalStorage, error) {
	// Ensure base path exists
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}

	return &LocalStorage{basePath: basePath}, nil
}

// Path returns the root directory of the store.
func (s *LocalStorage) Path() string {
	return s.basePath
}

// Put stores r under name. The content is written to a temporary file and
// renamed into place so readers never observe a partial object.
func (s *LocalStorage) Put(ctx context.Context, name string, contentType string, r io.Reader) (*FileInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	safeName := sanitizeFilename(name)
	if safeName == "" || strings.HasPrefix(safeName, ".") {
		return nil, fmt.Errorf("invalid object name %q", name)
	}
	filePath := filepath.Join(s.basePath, safeName)

	f, err := os.CreateTemp(s.basePath, ".put-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create file: %w", err)
	}
	tmpPath := f.Name()

	size, err := io.Copy(f, r)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(tmpPath) // Cleanup on error
		return nil, fmt.Errorf("failed to write file: %w", err)
	}
	if err := os.Rename(tmpPath, filePath); err != nil {
		os.Remove(tmpPath)
		return nil, fmt.Errorf("failed to store file: %w", err)
	}

	if contentType == "" {
		contentType = contentTypeOf(safeName)
	}
	info := &FileInfo{
		Name:        safeName,
		Size:        size,
		ContentType: contentType,
		Path:        filePath,
		CreatedAt:   time.Now(),
	}

	// Save metadata
	if err := s.saveMetadata(info); err != nil {
		os.Remove(filePath) // Cleanup on error
		return nil, err
	}

	return info, nil
}

// Get opens the object stored under name
func (s *LocalStorage) Get(ctx context.Context, name string) (io.ReadCloser, *FileInfo, error) {
	info, err := s.stat(sanitizeFilename(name))
	if err != nil {
		return nil, nil, err
	}

	f, err := os.Open(info.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open file: %w", err)
	}

	return f, info, nil
}

// Delete removes the object stored under name
func (s *LocalStorage) Delete(ctx context.Context, name string) error {
	safeName := sanitizeFilename(name)
	filePath := filepath.Join(s.basePath, safeName)
	if err := os.Remove(filePath); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		return fmt.Errorf("failed to delete file: %w", err)
	}

	// Delete metadata
	os.Remove(s.metaPath(safeName))

	return nil
}

// List returns all objects, oldest first. Files dropped into the directory
// by other processes are listed with metadata derived from the filesystem.
func (s *LocalStorage) List(ctx context.Context) ([]*FileInfo, error) {
	entries, err := os.ReadDir(s.basePath)
	if err != nil {
		return nil, fmt.Errorf("failed to list storage: %w", err)
	}

	files := make([]*FileInfo, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		info, err := s.stat(entry.Name())
		if err != nil {
			continue
		}
		files = append(files, info)
	}

	sort.SliceStable(files, func(i, j int) bool {
		if files[i].CreatedAt.Equal(files[j].CreatedAt) {
			return files[i].Name < files[j].Name
		}
		return files[i].CreatedAt.Before(files[j].CreatedAt)
	})
	return files, nil
}

func (s *LocalStorage) stat(name string) (*FileInfo, error) {
	filePath := filepath.Join(s.basePath, name)
	st, err := os.Stat(filePath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}

	info := &FileInfo{
		Name:        name,
		Size:        st.Size(),
		ContentType: contentTypeOf(name),
		Path:        filePath,
		CreatedAt:   st.ModTime(),
	}

	data, err := os.ReadFile(s.metaPath(name))
	if err != nil {
		return info, nil
	}
	var meta FileInfo
	if err := json.Unmarshal(data, &meta); err != nil {
		return info, nil
	}
	// the object may have been replaced without going through Put
	if meta.Size == info.Size {
		info.ContentType = meta.ContentType
		info.CreatedAt = meta.CreatedAt
	}
	return info, nil
}

func (s *LocalStorage) metaPath(name string) string {
	return filepath.Join(s.basePath, metaDir, name+".json")
}

// saveMetadata saves file metadata to a JSON file
func (s *LocalStorage) saveMetadata(info *FileInfo) error {
	dir := filepath.Join(s.basePath, metaDir)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create metadata directory: %w", err)
	}

	data, err := json.MarshalIndent(info, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal metadata: %w", err)
	}

	if err := os.WriteFile(s.metaPath(info.Name), data, 0644); err != nil {
		return fmt.Errorf("failed to write metadata: %w", err)
	}

	return nil
}

func contentTypeOf(name string) string {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".pdf":
		return "application/pdf"
	case ".csv":
		return "text/csv"
	case ".json":
		return "application/json"
	case ".xlsx":
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	if ct := mime.TypeByExtension(filepath.Ext(name)); ct != "" {
		return ct
	}
	return "application/octet-stream"
}

// sanitizeFilename removes unsafe characters from filenames
func sanitizeFilename(name string) string {
	// Replace path separators and other dangerous characters
	replacer := strings.NewReplacer(
		"/", "_",
		"\\", "_",
		"..", "_",
		":", "_",
		"*", "_",
		"?", "_",
		"\"", "_",
		"<", "_",
		">", "_",
		"|", "_",
	)
	return strings.TrimSpace(replacer.Replace(name))
}
