package server

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"
	"time"

	"github.com/quantu99/Test-Beincom-BE/internal/config"
	"github.com/quantu99/Test-Beincom-BE/internal/middleware"
	"github.com/quantu99/Test-Beincom-BE/internal/models"
	"github.com/quantu99/Test-Beincom-BE/internal/testutil"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const testSecret = "test-secret-key-12345678901234567890123456789012"

// testEnv is a fully wired server over in-memory sqlite, miniredis and an
// in-memory asset store.
type testEnv struct {
	srv    *Server
	app    *fiber.App
	db     *gorm.DB
	assets *testutil.AssetStoreStub
	mr     *miniredis.Miniredis
	rdb    *redis.Client
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db := testutil.NewTestDB(t)
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	assets := testutil.NewAssetStoreStub()

	cfg := &config.Config{
		JWTSecret:            testSecret,
		Env:                  "test",
		AllowedOrigins:       "http://localhost:5173",
		ImageMaxUploadSizeMB: 1,
		ImageMaxDimension:    2048,
		ImageQuality:         82,
	}
	srv, err := NewServerWithDeps(cfg, db, rdb, assets)
	require.NoError(t, err)

	return &testEnv{srv: srv, app: srv.App(), db: db, assets: assets, mr: mr, rdb: rdb}
}

// createUser inserts a user directly and returns it with a valid token.
func (e *testEnv) createUser(t *testing.T, name string) (*models.User, string) {
	t.Helper()
	user := &models.User{Name: name, Email: uuid.NewString()[:8] + "@example.com", Password: "x"}
	require.NoError(t, e.db.Create(user).Error)
	token, _, err := middleware.IssueToken(testSecret, user.ID, time.Now())
	require.NoError(t, err)
	return user, token
}

// createPost inserts a post directly.
func (e *testEnv) createPost(t *testing.T, authorID uuid.UUID, title string, status models.PostStatus, image string) *models.Post {
	t.Helper()
	post := &models.Post{Title: title, Content: "Body of " + title, Status: models.PostStatusDraft, AuthorID: authorID, Image: image}
	if status == models.PostStatusPublished {
		post.MarkPublished(time.Now())
	}
	require.NoError(t, e.db.Create(post).Error)
	return post
}

func (e *testEnv) do(t *testing.T, req *http.Request) (*http.Response, []byte) {
	t.Helper()
	resp, err := e.app.Test(req, -1)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, body
}

func jsonRequest(t *testing.T, method, path, token string, body any) *http.Request {
	t.Helper()
	var r io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, r)
	if body != nil {
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	}
	if token != "" {
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
	}
	return req
}

type formFile struct {
	name        string
	contentType string
	data        []byte
}

func multipartRequest(t *testing.T, method, path, token string, fields map[string]string, file *formFile) *http.Request {
	t.Helper()
	buf := &bytes.Buffer{}
	w := multipart.NewWriter(buf)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	if file != nil {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", `form-data; name="image"; filename="`+file.name+`"`)
		h.Set("Content-Type", file.contentType)
		part, err := w.CreatePart(h)
		require.NoError(t, err)
		_, err = part.Write(file.data)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(method, path, buf)
	req.Header.Set(fiber.HeaderContentType, w.FormDataContentType())
	if token != "" {
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
	}
	return req
}

func decode[T any](t *testing.T, body []byte) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(body, &out), string(body))
	return out
}
