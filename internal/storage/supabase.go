package storage

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
)

// SupabaseStore talks to the Supabase Storage REST API for one bucket.
type SupabaseStore struct {
	baseURL string
	apiKey  string
	bucket  string
	timeout time.Duration
}

// NewSupabaseStore returns a store for bucket in the project at baseURL.
func NewSupabaseStore(baseURL, apiKey, bucket string, timeout time.Duration) *SupabaseStore {
	if bucket == "" {
		bucket = "posts"
	}
	return &SupabaseStore{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		bucket:  bucket,
		timeout: timeout,
	}
}

func (s *SupabaseStore) objectURL(key string) string {
	return fmt.Sprintf("%s/storage/v1/object/%s/%s", s.baseURL, url.PathEscape(s.bucket), url.PathEscape(key))
}

func (s *SupabaseStore) authorize(a *fiber.Agent) *fiber.Agent {
	return a.Set(fiber.HeaderAuthorization, "Bearer "+s.apiKey).
		Set("apikey", s.apiKey).
		Timeout(s.timeout)
}

func (s *SupabaseStore) Upload(ctx context.Context, key, contentType string, data []byte) error {
	if err := ValidateKey(key); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	a := s.authorize(fiber.Post(s.objectURL(key))).
		Set("x-upsert", "false").
		Set(fiber.HeaderCacheControl, "max-age=3600").
		ContentType(contentType).
		Body(data)
	return s.do(a, "upload "+key)
}

func (s *SupabaseStore) PublicURL(key string) string {
	return fmt.Sprintf("%s/storage/v1/object/public/%s/%s", s.baseURL, url.PathEscape(s.bucket), url.PathEscape(key))
}

func (s *SupabaseStore) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	for _, key := range keys {
		if err := ValidateKey(key); err != nil {
			return err
		}
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	endpoint := fmt.Sprintf("%s/storage/v1/object/%s", s.baseURL, url.PathEscape(s.bucket))
	a := s.authorize(fiber.Delete(endpoint)).
		JSON(fiber.Map{"prefixes": keys})
	return s.do(a, "delete "+strings.Join(keys, ","))
}

func (s *SupabaseStore) do(a *fiber.Agent, op string) error {
	if err := a.Parse(); err != nil {
		return fmt.Errorf("supabase %s: %w", op, err)
	}
	code, body, errs := a.Bytes()
	if len(errs) > 0 {
		return fmt.Errorf("supabase %s: %w", op, errors.Join(errs...))
	}
	if code < 200 || code >= 300 {
		return fmt.Errorf("supabase %s: status %d: %s", op, code, strings.TrimSpace(string(body)))
	}
	return nil
}
