package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// LocalStore keeps assets as files in one directory. The HTTP server serves
// that directory under BaseURL.
type LocalStore struct {
	dir     string
	baseURL string
}

// NewLocalStore returns a store rooted at dir whose public URLs start with baseURL.
func NewLocalStore(dir, baseURL string) *LocalStore {
	return &LocalStore{dir: dir, baseURL: strings.TrimRight(baseURL, "/")}
}

// Dir is the directory holding the files.
func (s *LocalStore) Dir() string {
	return s.dir
}

// BaseURL is the URL prefix the directory is served under.
func (s *LocalStore) BaseURL() string {
	return s.baseURL
}

func (s *LocalStore) Upload(ctx context.Context, key, _ string, data []byte) error {
	if err := ValidateKey(key); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.MkdirAll(s.dir, 0o750); err != nil {
		return fmt.Errorf("create asset dir: %w", err)
	}
	f, err := os.OpenFile(filepath.Join(s.dir, key), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return fmt.Errorf("create asset %s: %w", key, err)
	}
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		_ = os.Remove(f.Name())
		return fmt.Errorf("write asset %s: %w", key, err)
	}
	return f.Close()
}

func (s *LocalStore) PublicURL(key string) string {
	return s.baseURL + "/" + key
}

func (s *LocalStore) Delete(ctx context.Context, keys ...string) error {
	var errs []error
	for _, key := range keys {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := ValidateKey(key); err != nil {
			errs = append(errs, err)
			continue
		}
		if err := os.Remove(filepath.Join(s.dir, key)); err != nil && !errors.Is(err, fs.ErrNotExist) {
			errs = append(errs, fmt.Errorf("remove asset %s: %w", key, err))
		}
	}
	return errors.Join(errs...)
}
