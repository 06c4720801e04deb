package fs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/tendant/simple-video/pkg/simplevideo"
)

const tempDirName = ".incoming"

// Store is a filesystem implementation of simplevideo.ContentStore
type Store struct {
	baseDir string
	tempDir string
}

// Config options for the filesystem store
type Config struct {
	BaseDir string // Base directory for storing files
}

// New creates a new filesystem content store
func New(config Config) (*Store, error) {
	if config.BaseDir == "" {
		return nil, errors.New("base directory is required")
	}

	baseDir, err := filepath.Abs(config.BaseDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve base directory: %w", err)
	}
	tempDir := filepath.Join(baseDir, tempDirName)
	if err := os.MkdirAll(tempDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create base directory: %w", err)
	}

	return &Store{
		baseDir: baseDir,
		tempDir: tempDir,
	}, nil
}

var _ simplevideo.ContentStore = (*Store)(nil)

// Put streams r into a temporary file and then hard-links it to its final
// path. Linking fails when the target exists, so a key is never overwritten.
func (s *Store) Put(ctx context.Context, assetID uuid.UUID, number int, r io.Reader) (string, error) {
	key := simplevideo.ContentLocation(assetID, number)
	target, err := s.path(key)
	if err != nil {
		return "", err
	}

	if _, err := os.Stat(target); err == nil {
		return "", simplevideo.ErrContentExists
	}

	tmp, err := os.CreateTemp(s.tempDir, "put-*")
	if err != nil {
		return "", s.storageError(key, "put", fmt.Errorf("failed to create temp file: %w", err))
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, contextReader{ctx: ctx, r: r}); err != nil {
		tmp.Close()
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", fmt.Errorf("put %s: %w", key, ctxErr)
		}
		return "", s.storageError(key, "put", fmt.Errorf("failed to write file: %w", err))
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return "", s.storageError(key, "put", fmt.Errorf("failed to sync file: %w", err))
	}
	if err := tmp.Close(); err != nil {
		return "", s.storageError(key, "put", fmt.Errorf("failed to close file: %w", err))
	}

	// A concurrent Delete may prune the directory between MkdirAll and Link.
	for attempt := 0; ; attempt++ {
		if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
			return "", s.storageError(key, "put", fmt.Errorf("failed to create directory: %w", err))
		}
		err := os.Link(tmp.Name(), target)
		if err == nil {
			return key, nil
		}
		if errors.Is(err, os.ErrExist) {
			return "", simplevideo.ErrContentExists
		}
		if !errors.Is(err, os.ErrNotExist) || attempt >= 2 {
			return "", s.storageError(key, "put", fmt.Errorf("failed to link file: %w", err))
		}
	}
}

func (s *Store) Get(ctx context.Context, location string) (io.ReadCloser, error) {
	filePath, err := s.path(location)
	if err != nil {
		return nil, err
	}

	file, err := os.Open(filePath)
	if os.IsNotExist(err) {
		return nil, simplevideo.ErrContentNotFound
	} else if err != nil {
		return nil, s.storageError(location, "get", fmt.Errorf("failed to open file: %w", err))
	}
	return file, nil
}

func (s *Store) Delete(ctx context.Context, location string) (bool, error) {
	filePath, err := s.path(location)
	if err != nil {
		return false, err
	}

	if err := os.Remove(filePath); err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, s.storageError(location, "delete", fmt.Errorf("failed to delete file: %w", err))
	}

	s.cleanupEmptyDirectories(filepath.Dir(filePath))
	return true, nil
}

// path resolves a location below the base directory and rejects anything
// that would escape it.
func (s *Store) path(location string) (string, error) {
	filePath := filepath.Join(s.baseDir, filepath.FromSlash(location))
	if !strings.HasPrefix(filePath, s.baseDir+string(filepath.Separator)) {
		return "", &simplevideo.ValidationError{Field: "location", Reason: "outside of content root"}
	}
	return filePath, nil
}

// cleanupEmptyDirectories removes empty directories up to baseDir
func (s *Store) cleanupEmptyDirectories(dir string) {
	if dir == s.baseDir || dir == s.tempDir || !strings.HasPrefix(dir, s.baseDir) {
		return
	}

	if entries, err := os.ReadDir(dir); err == nil && len(entries) == 0 {
		if os.Remove(dir) == nil {
			s.cleanupEmptyDirectories(filepath.Dir(dir))
		}
	}
}

func (s *Store) storageError(key, op string, err error) error {
	return &simplevideo.StorageError{Backend: "fs", Key: key, Op: op, Err: err}
}

// contextReader stops a copy once ctx is done.
type contextReader struct {
	ctx context.Context
	r   io.Reader
}

func (c contextReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
