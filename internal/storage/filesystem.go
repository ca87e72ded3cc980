package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// FileStore keeps per-job output directories on the local filesystem. Every
// job owns exactly one top-level directory under the base path.
type FileStore struct {
	basePath string
}

// FileInfo describes one file inside a job directory.
type FileInfo struct {
	Name    string    `json:"name"`
	Size    int64     `json:"size_bytes"`
	ModTime time.Time `json:"modified_at"`
}

// DirInfo describes a top-level job directory.
type DirInfo struct {
	Name    string
	ModTime time.Time
}

// NewFileStore initializes a FileStore rooted at basePath.
func NewFileStore(basePath string) (*FileStore, error) {
	basePath = strings.TrimSpace(basePath)
	if basePath == "" {
		return nil, errors.New("storage: base path is required")
	}
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("storage: ensure base path: %w", err)
	}
	return &FileStore{basePath: basePath}, nil
}

// BasePath returns the configured root directory.
func (s *FileStore) BasePath() string {
	if s == nil {
		return ""
	}
	return s.basePath
}

// CreateJobDir creates the directory owned by jobID and returns its key.
// Creating an existing directory is not an error.
func (s *FileStore) CreateJobDir(ctx context.Context, jobID string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	key, err := jobKey(jobID)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(s.fullPath(key), 0o755); err != nil {
		return "", fmt.Errorf("storage: create job dir: %w", err)
	}
	return key, nil
}

// RemoveJobDir recursively deletes the directory owned by jobID. A missing
// directory is not an error.
func (s *FileStore) RemoveJobDir(jobID string) error {
	key, err := jobKey(jobID)
	if err != nil {
		return err
	}
	if err := os.RemoveAll(s.fullPath(key)); err != nil {
		return fmt.Errorf("storage: remove job dir: %w", err)
	}
	return nil
}

// JobDirs lists the top-level job directories.
func (s *FileStore) JobDirs() ([]DirInfo, error) {
	entries, err := os.ReadDir(s.basePath)
	if err != nil {
		return nil, fmt.Errorf("storage: list base path: %w", err)
	}
	out := make([]DirInfo, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		out = append(out, DirInfo{Name: e.Name(), ModTime: info.ModTime()})
	}
	return out, nil
}

// Write persists the provided bytes at the given relative key and returns the
// canonicalized storage key. Keys are cleaned to prevent directory traversal.
// The top-level job directory must already exist; a removed job directory
// reports fs.ErrNotExist instead of being recreated.
func (s *FileStore) Write(ctx context.Context, key string, data []byte) (string, error) {
	if s == nil {
		return "", errors.New("storage: no store configured")
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	cleanKey, err := sanitizeKey(key)
	if err != nil {
		return "", err
	}
	fullPath := s.fullPath(cleanKey)
	if err := s.ensureParent(cleanKey); err != nil {
		return "", err
	}
	if err := os.WriteFile(fullPath, data, 0o644); err != nil {
		return "", fmt.Errorf("storage: write file: %w", err)
	}
	return cleanKey, nil
}

// Create opens a new file at key for streaming writes.
func (s *FileStore) Create(ctx context.Context, key string) (io.WriteCloser, string, error) {
	if err := ctx.Err(); err != nil {
		return nil, "", err
	}
	cleanKey, err := sanitizeKey(key)
	if err != nil {
		return nil, "", err
	}
	fullPath := s.fullPath(cleanKey)
	if err := s.ensureParent(cleanKey); err != nil {
		return nil, "", err
	}
	f, err := os.Create(fullPath)
	if err != nil {
		return nil, "", fmt.Errorf("storage: create file: %w", err)
	}
	return f, cleanKey, nil
}

// Open opens the regular file at key. Missing files report fs.ErrNotExist.
func (s *FileStore) Open(key string) (*os.File, fs.FileInfo, error) {
	cleanKey, err := sanitizeKey(key)
	if err != nil {
		return nil, nil, err
	}
	f, err := os.Open(s.fullPath(cleanKey))
	if err != nil {
		return nil, nil, err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, nil, err
	}
	if info.IsDir() {
		f.Close()
		return nil, nil, fmt.Errorf("storage: %s is a directory: %w", cleanKey, fs.ErrNotExist)
	}
	return f, info, nil
}

// Stat returns file information for key.
func (s *FileStore) Stat(key string) (fs.FileInfo, error) {
	cleanKey, err := sanitizeKey(key)
	if err != nil {
		return nil, err
	}
	return os.Stat(s.fullPath(cleanKey))
}

// Path resolves key to an absolute-or-relative filesystem path under the base.
func (s *FileStore) Path(key string) (string, error) {
	cleanKey, err := sanitizeKey(key)
	if err != nil {
		return "", err
	}
	return s.fullPath(cleanKey), nil
}

// ListFiles walks the directory at key and returns its regular files with
// names relative to that directory, sorted by name.
func (s *FileStore) ListFiles(key string) ([]FileInfo, error) {
	cleanKey, err := sanitizeKey(key)
	if err != nil {
		return nil, err
	}
	root := s.fullPath(cleanKey)
	var files []FileInfo
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		files = append(files, FileInfo{Name: filepath.ToSlash(rel), Size: info.Size(), ModTime: info.ModTime()})
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Name < files[j].Name })
	return files, nil
}

// ensureParent creates the directories between the job directory and the
// file named by cleanKey. Only CreateJobDir creates the job directory.
func (s *FileStore) ensureParent(cleanKey string) error {
	top, _, nested := strings.Cut(cleanKey, "/")
	if nested {
		info, err := os.Stat(s.fullPath(top))
		if err != nil {
			return fmt.Errorf("storage: job dir %s: %w", top, err)
		}
		if !info.IsDir() {
			return fmt.Errorf("storage: job dir %s is not a directory: %w", top, fs.ErrNotExist)
		}
	}
	if err := os.MkdirAll(filepath.Dir(s.fullPath(cleanKey)), 0o755); err != nil {
		return fmt.Errorf("storage: ensure directory: %w", err)
	}
	return nil
}

func (s *FileStore) fullPath(cleanKey string) string {
	return filepath.Join(s.basePath, filepath.FromSlash(cleanKey))
}

// jobKey validates that jobID is a single path segment.
func jobKey(jobID string) (string, error) {
	key, err := sanitizeKey(jobID)
	if err != nil {
		return "", err
	}
	if strings.Contains(key, "/") {
		return "", fmt.Errorf("storage: invalid job id %q", jobID)
	}
	return key, nil
}

// sanitizeKey normalizes a key and prevents escaping the storage root.
func sanitizeKey(key string) (string, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return "", errors.New("storage: key is required")
	}
	key = strings.ReplaceAll(key, "\\", "/")
	key = strings.TrimPrefix(key, "./")
	key = strings.TrimLeft(key, "/")
	cleaned := filepath.ToSlash(filepath.Clean(key))
	if cleaned == "." || cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return "", errors.New("storage: invalid key")
	}
	return cleaned, nil
}
