// Package storage provides the object stores that hold post images.
package storage

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/quantu99/Test-Beincom-BE/internal/config"
)

// AssetStore is an object store addressed by flat keys.
type AssetStore interface {
	// Upload stores data under key. Keys are never overwritten.
	Upload(ctx context.Context, key, contentType string, data []byte) error
	// PublicURL returns the URL clients use to fetch key.
	PublicURL(key string) string
	// Delete removes keys. Missing keys are not an error.
	Delete(ctx context.Context, keys ...string) error
}

// ErrInvalidKey is returned for keys that are empty or contain path elements.
var ErrInvalidKey = errors.New("invalid asset key")

// ValidateKey rejects keys that could escape the bucket or directory.
func ValidateKey(key string) error {
	if key == "" || key == "." || key == ".." || strings.ContainsAny(key, `/\`) {
		return fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return nil
}

// KeyFromURL returns the last path segment of a public asset URL, which is
// the key the asset was uploaded under. It returns "" when there is none.
func KeyFromURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	p := raw
	if u, err := url.Parse(raw); err == nil {
		p = u.Path
	}
	key := path.Base(p)
	if key == "/" || key == "." {
		return ""
	}
	if unescaped, err := url.PathUnescape(key); err == nil {
		key = unescaped
	}
	return key
}

// New builds the store selected by cfg.StorageDriver.
func New(cfg *config.Config) (AssetStore, error) {
	switch cfg.StorageDriver {
	case "", "local":
		return NewLocalStore(cfg.StorageLocalDir, cfg.StoragePublicBaseURL), nil
	case "supabase":
		return NewSupabaseStore(cfg.SupabaseURL, cfg.SupabaseKey, cfg.StorageBucket, 30*time.Second), nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.StorageDriver)
	}
}
