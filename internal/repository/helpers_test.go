package repository

import (
	"fmt"
	"testing"
	"time"

	"github.com/quantu99/Test-Beincom-BE/internal/models"
	"github.com/quantu99/Test-Beincom-BE/internal/testutil"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func setupMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	gormDB, err := gorm.Open(postgres.New(postgres.Config{
		Conn: db,
	}), &gorm.Config{})
	require.NoError(t, err)

	return gormDB, mock
}

var baseTime = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

func createUser(t *testing.T, db *gorm.DB, name string) *models.User {
	t.Helper()
	u := &models.User{Name: name, Email: fmt.Sprintf("%s@example.com", name), Password: "hash"}
	require.NoError(t, db.Create(u).Error)
	return u
}

type postOpt func(*models.Post)

func withViewsLikes(views, likes int) postOpt {
	return func(p *models.Post) { p.Views = views; p.Likes = likes }
}

func withCreatedAt(ts time.Time) postOpt {
	return func(p *models.Post) { p.CreatedAt = ts }
}

func withImage(url string) postOpt {
	return func(p *models.Post) { p.Image = url }
}

func asDraft() postOpt {
	return func(p *models.Post) { p.Status = models.PostStatusDraft; p.PublishedAt = nil }
}

func createPost(t *testing.T, db *gorm.DB, author *models.User, title, content string, opts ...postOpt) *models.Post {
	t.Helper()
	p := &models.Post{Title: title, Content: content, AuthorID: author.ID, CreatedAt: baseTime}
	p.MarkPublished(baseTime)
	for _, opt := range opts {
		opt(p)
	}
	require.NoError(t, db.Create(p).Error)
	return p
}

func newDB(t *testing.T) *gorm.DB {
	return testutil.NewTestDB(t)
}
