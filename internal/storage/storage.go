package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// FileStore persists uploaded document files and hands back an opaque
// reference. The workflow only ever stores and compares references; it never
// interprets them.
type FileStore interface {
	Save(ctx context.Context, name string, r io.Reader) (string, error)
	Open(ctx context.Context, ref string) (io.ReadCloser, error)
	Remove(ctx context.Context, ref string) error
}

// LocalStore keeps files on the local filesystem under a base directory,
// sharded by date.
type LocalStore struct {
	baseDir string
}

func NewLocalStore(baseDir string) (*LocalStore, error) {
	if baseDir == "" {
		baseDir = "uploads"
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload directory: %w", err)
	}
	return &LocalStore{baseDir: baseDir}, nil
}

func NewLocalStoreFromEnv() (*LocalStore, error) {
	return NewLocalStore(os.Getenv("UPLOAD_DIR"))
}

func (s *LocalStore) Save(ctx context.Context, name string, r io.Reader) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	ext := filepath.Ext(name)
	ref := filepath.Join(time.Now().Format("2006/01/02"), uuid.NewString()+ext)

	dest := filepath.Join(s.baseDir, ref)
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return "", fmt.Errorf("create shard directory: %w", err)
	}

	f, err := os.Create(dest)
	if err != nil {
		return "", fmt.Errorf("create file: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(f, r); err != nil {
		os.Remove(dest)
		return "", fmt.Errorf("write file: %w", err)
	}
	return ref, nil
}

func (s *LocalStore) Open(ctx context.Context, ref string) (io.ReadCloser, error) {
	clean, err := s.resolve(ctx, ref)
	if err != nil {
		return nil, err
	}
	return os.Open(clean)
}

func (s *LocalStore) Remove(ctx context.Context, ref string) error {
	clean, err := s.resolve(ctx, ref)
	if err != nil {
		return err
	}
	return os.Remove(clean)
}

// resolve maps a stored reference back to a path under the base directory.
// References are produced by Save; reject anything that escapes the base.
func (s *LocalStore) resolve(ctx context.Context, ref string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	clean := filepath.Clean(ref)
	if strings.HasPrefix(clean, "..") || filepath.IsAbs(clean) {
		return "", fmt.Errorf("invalid file reference")
	}
	return filepath.Join(s.baseDir, clean), nil
}
