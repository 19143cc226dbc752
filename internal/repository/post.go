package repository

import (
	"context"
	"errors"

	"github.com/quantu99/Test-Beincom-BE/internal/models"
	"github.com/quantu99/Test-Beincom-BE/internal/observability"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PostSortColumns maps API sort keys to the columns they order by.
var PostSortColumns = map[string]string{
	"createdAt":   "posts.created_at",
	"updatedAt":   "posts.updated_at",
	"publishedAt": "posts.published_at",
	"title":       "posts.title",
	"views":       "posts.views",
	"likes":       "posts.likes",
	"comments":    "comments_count",
}

// PostListQuery selects a page of posts.
type PostListQuery struct {
	Status    models.PostStatus
	AuthorID  uuid.UUID
	Search    string
	SortBy    string
	SortOrder string
	Limit     int
	Offset    int
	ViewerID  uuid.UUID
}

// PostRepository defines the interface for post data operations
type PostRepository interface {
	Create(ctx context.Context, post *models.Post) error
	Save(ctx context.Context, post *models.Post) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Post, error)
	GetDetail(ctx context.Context, id uuid.UUID, viewerID uuid.UUID) (*models.Post, error)
	List(ctx context.Context, q PostListQuery) ([]*models.Post, int64, error)
	Popular(ctx context.Context, limit int) ([]*models.Post, error)
	Recent(ctx context.Context, limit int) ([]*models.Post, error)
	Delete(ctx context.Context, id uuid.UUID) error
	IncrementViews(ctx context.Context, id uuid.UUID) (bool, error)
	Like(ctx context.Context, postID, userID uuid.UUID) (int, error)
	ToggleLike(ctx context.Context, postID, userID uuid.UUID) (models.LikeState, error)
	IsLiked(ctx context.Context, postID, userID uuid.UUID) (bool, error)
	CountByImage(ctx context.Context, image string) (int64, error)
}

// postRepository implements PostRepository
type postRepository struct {
	db *gorm.DB
}

// NewPostRepository creates a new post repository
func NewPostRepository(db *gorm.DB) PostRepository {
	return &postRepository{db: db}
}

func (r *postRepository) Create(ctx context.Context, post *models.Post) error {
	ctx, span := observability.GetTraceLayer().TraceRepositoryMethod(ctx, "Create", "posts")
	defer span.End()

	if err := r.db.WithContext(ctx).Omit(clause.Associations).Create(post).Error; err != nil {
		observability.RecordErrorInContext(ctx, err)
		return models.NewInternalError(err)
	}
	return nil
}

// Save writes the mutable columns of post. Nothing outside the list is touched.
func (r *postRepository) Save(ctx context.Context, post *models.Post) error {
	ctx, span := observability.GetTraceLayer().TraceRepositoryMethod(ctx, "Save", "posts")
	defer span.End()

	res := r.db.WithContext(ctx).
		Model(&models.Post{}).
		Where("id = ?", post.ID).
		Updates(map[string]interface{}{
			"title":        post.Title,
			"content":      post.Content,
			"image":        post.Image,
			"status":       post.Status,
			"published_at": post.PublishedAt,
		})
	if res.Error != nil {
		observability.RecordErrorInContext(ctx, res.Error)
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("Post", post.ID)
	}
	return nil
}

func (r *postRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Post, error) {
	var post models.Post
	err := withPostDetails(r.db.WithContext(ctx), uuid.Nil).
		Preload("Author").
		First(&post, "posts.id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Post", id)
		}
		return nil, models.NewInternalError(err)
	}
	return &post, nil
}

// GetDetail loads a post with its author, comments (newest first) and the
// viewer's like flag.
func (r *postRepository) GetDetail(ctx context.Context, id uuid.UUID, viewerID uuid.UUID) (*models.Post, error) {
	ctx, span := observability.GetTraceLayer().TraceRepositoryMethod(ctx, "GetDetail", "posts")
	defer span.End()

	var post models.Post
	err := withPostDetails(r.db.WithContext(ctx), viewerID).
		Preload("Author").
		Preload("Comments", func(db *gorm.DB) *gorm.DB {
			return db.Order("comments.created_at DESC")
		}).
		Preload("Comments.Author").
		First(&post, "posts.id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Post", id)
		}
		return nil, models.NewInternalError(err)
	}
	return &post, nil
}

func (r *postRepository) List(ctx context.Context, q PostListQuery) ([]*models.Post, int64, error) {
	ctx, span := observability.GetTraceLayer().TraceRepositoryMethod(ctx, "List", "posts")
	defer span.End()

	base := func() *gorm.DB {
		db := r.db.WithContext(ctx).Model(&models.Post{})
		if q.Status != "" {
			db = db.Where("posts.status = ?", q.Status)
		}
		if q.AuthorID != uuid.Nil {
			db = db.Where("posts.author_id = ?", q.AuthorID)
		}
		if q.Search != "" {
			pattern := containsPattern(q.Search)
			db = db.Where("("+lowerLike("posts.title")+" OR "+lowerLike("posts.content")+")", pattern, pattern)
		}
		return db
	}

	var total int64
	if err := base().Count(&total).Error; err != nil {
		return nil, 0, models.NewInternalError(err)
	}

	column, ok := PostSortColumns[q.SortBy]
	if !ok {
		column = PostSortColumns["createdAt"]
	}

	var posts []*models.Post
	err := withPostDetails(base(), q.ViewerID).
		Preload("Author").
		Order(column + " " + sortDirection(q.SortOrder)).
		Order("posts.id").
		Limit(q.Limit).
		Offset(q.Offset).
		Find(&posts).Error
	if err != nil {
		return nil, 0, models.NewInternalError(err)
	}
	return posts, total, nil
}

func (r *postRepository) Popular(ctx context.Context, limit int) ([]*models.Post, error) {
	return r.published(ctx, limit, "posts.likes DESC, posts.views DESC")
}

func (r *postRepository) Recent(ctx context.Context, limit int) ([]*models.Post, error) {
	return r.published(ctx, limit, "posts.published_at DESC")
}

func (r *postRepository) published(ctx context.Context, limit int, order string) ([]*models.Post, error) {
	var posts []*models.Post
	err := withPostDetails(r.db.WithContext(ctx), uuid.Nil).
		Preload("Author").
		Where("posts.status = ?", models.PostStatusPublished).
		Order(order).
		Limit(limit).
		Find(&posts).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return posts, nil
}

// Delete removes the post. Comments and likes go with it through the
// foreign key cascades.
func (r *postRepository) Delete(ctx context.Context, id uuid.UUID) error {
	res := r.db.WithContext(ctx).Delete(&models.Post{}, "id = ?", id)
	if res.Error != nil {
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("Post", id)
	}
	return nil
}

// IncrementViews atomically bumps the view counter of a published post.
// It reports false when no published post has the id.
func (r *postRepository) IncrementViews(ctx context.Context, id uuid.UUID) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Post{}).
		Where("id = ? AND status = ?", id, models.PostStatusPublished).
		UpdateColumn("views", gorm.Expr("views + 1"))
	if res.Error != nil {
		return false, models.NewInternalError(res.Error)
	}
	return res.RowsAffected > 0, nil
}

// Like records the user's like once and returns the resulting like count.
// The post row is locked for the whole transaction.
func (r *postRepository) Like(ctx context.Context, postID, userID uuid.UUID) (int, error) {
	ctx, span := observability.GetTraceLayer().TraceRepositoryMethod(ctx, "Like", "post_likes")
	defer span.End()

	var likes int
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockPost(tx, postID); err != nil {
			return err
		}
		if err := insertLike(tx, postID, userID); err != nil {
			return err
		}
		var err error
		likes, err = recountLikes(tx, postID)
		return err
	})
	if err != nil {
		return 0, likeError(ctx, postID, err)
	}
	return likes, nil
}

// ToggleLike removes the user's like when present and adds it otherwise, in
// one transaction holding the post row lock, then recounts.
func (r *postRepository) ToggleLike(ctx context.Context, postID, userID uuid.UUID) (models.LikeState, error) {
	ctx, span := observability.GetTraceLayer().TraceRepositoryMethod(ctx, "ToggleLike", "post_likes")
	defer span.End()

	var state models.LikeState
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockPost(tx, postID); err != nil {
			return err
		}
		res := tx.Where("user_id = ? AND post_id = ?", userID, postID).Delete(&models.PostLike{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			if err := insertLike(tx, postID, userID); err != nil {
				return err
			}
			state.Liked = true
		}
		var err error
		state.Likes, err = recountLikes(tx, postID)
		return err
	})
	if err != nil {
		return models.LikeState{}, likeError(ctx, postID, err)
	}
	return state, nil
}

func (r *postRepository) IsLiked(ctx context.Context, postID, userID uuid.UUID) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.PostLike{}).
		Where("user_id = ? AND post_id = ?", userID, postID).
		Count(&count).Error; err != nil {
		return false, models.NewInternalError(err)
	}
	return count > 0, nil
}

// CountByImage returns how many posts, drafts included, reference image.
func (r *postRepository) CountByImage(ctx context.Context, image string) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.Post{}).
		Where("image = ?", image).
		Count(&count).Error; err != nil {
		return 0, models.NewInternalError(err)
	}
	return count, nil
}

// lockPost takes a row lock on the post so concurrent like writers recount
// one after another, each seeing the join rows committed before it.
func lockPost(tx *gorm.DB, postID uuid.UUID) error {
	var post models.Post
	return tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Select("id").
		First(&post, "id = ?", postID).Error
}

func likeError(ctx context.Context, postID uuid.UUID, err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.NewNotFoundError("Post", postID)
	}
	observability.RecordErrorInContext(ctx, err)
	return models.NewInternalError(err)
}

func insertLike(tx *gorm.DB, postID, userID uuid.UUID) error {
	return tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "post_id"}},
		DoNothing: true,
	}).Create(&models.PostLike{UserID: userID, PostID: postID}).Error
}

// recountLikes sets posts.likes from the join table and returns the new value.
func recountLikes(tx *gorm.DB, postID uuid.UUID) (int, error) {
	err := tx.Model(&models.Post{}).
		Where("id = ?", postID).
		UpdateColumn("likes", gorm.Expr("(SELECT COUNT(*) FROM post_likes WHERE post_likes.post_id = ?)", postID)).Error
	if err != nil {
		return 0, err
	}
	var post models.Post
	if err := tx.Select("likes").First(&post, "id = ?", postID).Error; err != nil {
		return 0, err
	}
	return post.Likes, nil
}

// withPostDetails adds subqueries for the comment count and the viewer's like flag.
func withPostDetails(db *gorm.DB, viewerID uuid.UUID) *gorm.DB {
	selectQuery := "posts.*, " +
		"(SELECT COUNT(*) FROM comments WHERE comments.post_id = posts.id) AS comments_count"

	if viewerID != uuid.Nil {
		return db.Select(selectQuery+", EXISTS(SELECT 1 FROM post_likes WHERE post_likes.post_id = posts.id AND post_likes.user_id = ?) AS liked", viewerID)
	}
	return db.Select(selectQuery + ", false AS liked")
}
