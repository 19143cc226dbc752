package repository

import (
	"context"

	"github.com/quantu99/Test-Beincom-BE/internal/models"
	"github.com/quantu99/Test-Beincom-BE/internal/observability"

	"gorm.io/gorm"
)

// SearchQuery selects one page of matches for a single entity type.
type SearchQuery struct {
	Term      string
	SortBy    string // relevance, date or likes
	SortOrder string
	Limit     int
	Offset    int
	// SkipCount leaves the returned total at zero.
	SkipCount bool
}

// SearchRepository runs case-insensitive substring searches over users and
// published posts.
type SearchRepository interface {
	SearchUsers(ctx context.Context, q SearchQuery) ([]models.User, int64, error)
	SearchPosts(ctx context.Context, q SearchQuery) ([]models.Post, int64, error)
}

type searchRepository struct {
	db *gorm.DB
}

// NewSearchRepository creates a new SearchRepository
func NewSearchRepository(db *gorm.DB) SearchRepository {
	return &searchRepository{db: db}
}

func (r *searchRepository) SearchUsers(ctx context.Context, q SearchQuery) ([]models.User, int64, error) {
	ctx, span := observability.GetTraceLayer().TraceRepositoryMethod(ctx, "SearchUsers", "users")
	defer span.End()

	pattern := containsPattern(q.Term)
	base := func() *gorm.DB {
		return r.db.WithContext(ctx).
			Model(&models.User{}).
			Where("("+lowerLike("users.name")+" OR "+lowerLike("users.email")+")", pattern, pattern)
	}

	var total int64
	if !q.SkipCount {
		if err := base().Count(&total).Error; err != nil {
			return nil, 0, models.NewInternalError(err)
		}
	}

	order := "users.name ASC"
	if q.SortBy == "date" {
		order = "users.created_at " + sortDirection(q.SortOrder)
	}

	var users []models.User
	if err := base().Order(order).Limit(q.Limit).Offset(q.Offset).Find(&users).Error; err != nil {
		return nil, 0, models.NewInternalError(err)
	}
	return users, total, nil
}

func (r *searchRepository) SearchPosts(ctx context.Context, q SearchQuery) ([]models.Post, int64, error) {
	ctx, span := observability.GetTraceLayer().TraceRepositoryMethod(ctx, "SearchPosts", "posts")
	defer span.End()

	pattern := containsPattern(q.Term)
	base := func() *gorm.DB {
		return r.db.WithContext(ctx).
			Model(&models.Post{}).
			Where("posts.status = ?", models.PostStatusPublished).
			Where("("+lowerLike("posts.title")+" OR "+lowerLike("posts.content")+")", pattern, pattern)
	}

	var total int64
	if !q.SkipCount {
		if err := base().Count(&total).Error; err != nil {
			return nil, 0, models.NewInternalError(err)
		}
	}

	var order string
	switch q.SortBy {
	case "date":
		order = "posts.published_at " + sortDirection(q.SortOrder)
	case "likes":
		order = "posts.likes " + sortDirection(q.SortOrder)
	default:
		order = "posts.likes DESC, posts.views DESC"
	}

	var posts []models.Post
	if err := base().Preload("Author").Order(order).Limit(q.Limit).Offset(q.Offset).Find(&posts).Error; err != nil {
		return nil, 0, models.NewInternalError(err)
	}
	return posts, total, nil
}
