package service

import (
	"context"
	"log/slog"
	"slices"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/quantu99/Test-Beincom-BE/internal/middleware"
	"github.com/quantu99/Test-Beincom-BE/internal/models"
	"github.com/quantu99/Test-Beincom-BE/internal/observability"
	"github.com/quantu99/Test-Beincom-BE/internal/repository"

	"github.com/google/uuid"
)

const (
	maxTitleLen       = 500
	maxImageURLLen    = 1000
	DefaultFeedLimit  = 5
	maxFeedLimit      = 50
	DefaultPageLimit  = 10
	MaxPageLimit      = 100
	defaultSortColumn = "publishedAt"
)

// PublishedSortFields are the sort keys accepted for published post listings.
var PublishedSortFields = []string{"createdAt", "publishedAt", "title", "views", "likes", "comments"}

// DraftSortFields are the sort keys accepted for draft listings.
var DraftSortFields = []string{"createdAt", "updatedAt", "title"}

// PostImages stores and removes post image assets.
type PostImages interface {
	Upload(ctx context.Context, in UploadImageInput) (*models.UploadedImage, error)
	Delete(ctx context.Context, url string) error
}

type PostService struct {
	postRepo repository.PostRepository
	images   PostImages
	now      func() time.Time
}

// CreatePostInput carries the fields of a new post. File, when set, is
// uploaded and takes precedence over Image.
type CreatePostInput struct {
	AuthorID uuid.UUID
	Title    string
	Content  string
	Image    string
	Status   models.PostStatus
	File     *UploadImageInput
}

// PostChanges lists the fields an edit or publish may override. Nil fields
// are left as they are.
type PostChanges struct {
	Title   *string
	Content *string
	Image   *string
	File    *UploadImageInput
}

// ListPostsInput selects a page of posts.
type ListPostsInput struct {
	Page      int
	Limit     int
	Search    string
	SortBy    string
	SortOrder string
	ViewerID  uuid.UUID
}

func NewPostService(postRepo repository.PostRepository, images PostImages) *PostService {
	return &PostService{
		postRepo: postRepo,
		images:   images,
		now:      time.Now,
	}
}

// CreateDraft stores a new draft owned by authorID.
func (s *PostService) CreateDraft(ctx context.Context, in CreatePostInput) (*models.Post, error) {
	in.Status = models.PostStatusDraft
	return s.CreatePost(ctx, in)
}

// CreatePost stores a new post. Status defaults to draft; a published post
// gets PublishedAt set to now.
func (s *PostService) CreatePost(ctx context.Context, in CreatePostInput) (*models.Post, error) {
	if in.Status == "" {
		in.Status = models.PostStatusDraft
	}
	if !in.Status.Valid() {
		return nil, models.NewValidationError("Status must be draft or published")
	}
	title := strings.TrimSpace(in.Title)
	if err := validateTitle(title); err != nil {
		return nil, err
	}
	if err := validateContent(in.Content); err != nil {
		return nil, err
	}
	image := strings.TrimSpace(in.Image)
	if err := validateImageURL(image); err != nil {
		return nil, err
	}

	post := &models.Post{
		Title:    title,
		Content:  in.Content,
		Image:    image,
		Status:   models.PostStatusDraft,
		AuthorID: in.AuthorID,
	}
	if in.Status == models.PostStatusPublished {
		post.MarkPublished(s.now())
	}

	uploaded, err := s.uploadIfPresent(ctx, in.File)
	if err != nil {
		return nil, err
	}
	if uploaded != "" {
		post.Image = uploaded
	}

	if err := s.postRepo.Create(ctx, post); err != nil {
		s.discardUpload(ctx, uploaded)
		return nil, err
	}

	event := "draft_created"
	if post.IsPublished() {
		event = "created_published"
	}
	observability.PostTransitions.WithLabelValues(event).Inc()
	return s.postRepo.GetByID(ctx, post.ID)
}

// PublishDraft applies the final edits to an owned draft and publishes it.
// Publishing is one-way.
func (s *PostService) PublishDraft(ctx context.Context, id, authorID uuid.UUID, changes PostChanges) (*models.Post, error) {
	post, err := s.ownedDraft(ctx, id, authorID)
	if err != nil {
		return nil, err
	}
	updated, err := s.applyChanges(ctx, post, changes, func(p *models.Post) {
		p.MarkPublished(s.now())
	})
	if err != nil {
		return nil, err
	}
	observability.PostTransitions.WithLabelValues("published").Inc()
	return updated, nil
}

// UpdateDraft edits an owned draft.
func (s *PostService) UpdateDraft(ctx context.Context, id, authorID uuid.UUID, changes PostChanges) (*models.Post, error) {
	post, err := s.ownedDraft(ctx, id, authorID)
	if err != nil {
		return nil, err
	}
	return s.applyChanges(ctx, post, changes, nil)
}

// UpdatePublished edits a published post owned by authorID.
func (s *PostService) UpdatePublished(ctx context.Context, id, authorID uuid.UUID, changes PostChanges) (*models.Post, error) {
	post, err := s.ownedPublished(ctx, id, authorID)
	if err != nil {
		return nil, err
	}
	updated, err := s.applyChanges(ctx, post, changes, nil)
	if err != nil {
		return nil, err
	}
	observability.PostTransitions.WithLabelValues("updated").Inc()
	return updated, nil
}

// DiscardDraft deletes an owned draft and then its image.
func (s *PostService) DiscardDraft(ctx context.Context, id, authorID uuid.UUID) error {
	post, err := s.ownedDraft(ctx, id, authorID)
	if err != nil {
		return err
	}
	if err := s.postRepo.Delete(ctx, post.ID); err != nil {
		return err
	}
	s.deleteImage(ctx, post.ID, post.Image)
	observability.PostTransitions.WithLabelValues("discarded").Inc()
	return nil
}

// Remove deletes a published post owned by authorID, its comments and likes,
// and then its image.
func (s *PostService) Remove(ctx context.Context, id, authorID uuid.UUID) error {
	post, err := s.ownedPublished(ctx, id, authorID)
	if err != nil {
		return err
	}
	if err := s.postRepo.Delete(ctx, post.ID); err != nil {
		return err
	}
	s.deleteImage(ctx, post.ID, post.Image)
	observability.PostTransitions.WithLabelValues("removed").Inc()
	return nil
}

// GetPublished records a view and returns the post with its comments.
// The view is counted before the post is read back.
func (s *PostService) GetPublished(ctx context.Context, id, viewerID uuid.UUID) (*models.Post, error) {
	found, err := s.postRepo.IncrementViews(ctx, id)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, models.NewNotFoundError("Post", id)
	}
	return s.postRepo.GetDetail(ctx, id, viewerID)
}

// GetDraft returns an owned draft.
func (s *PostService) GetDraft(ctx context.Context, id, authorID uuid.UUID) (*models.Post, error) {
	return s.ownedDraft(ctx, id, authorID)
}

// ListPosts pages through published posts.
func (s *PostService) ListPosts(ctx context.Context, in ListPostsInput) (*models.Paginated[*models.Post], error) {
	return s.list(ctx, in, repository.PostListQuery{Status: models.PostStatusPublished}, PublishedSortFields, defaultSortColumn)
}

// ListDrafts pages through the drafts owned by authorID.
func (s *PostService) ListDrafts(ctx context.Context, authorID uuid.UUID, in ListPostsInput) (*models.Paginated[*models.Post], error) {
	return s.list(ctx, in, repository.PostListQuery{Status: models.PostStatusDraft, AuthorID: authorID}, DraftSortFields, "updatedAt")
}

// ListByAuthor pages through the published posts of one author.
func (s *PostService) ListByAuthor(ctx context.Context, authorID uuid.UUID, in ListPostsInput) (*models.Paginated[*models.Post], error) {
	return s.list(ctx, in, repository.PostListQuery{Status: models.PostStatusPublished, AuthorID: authorID}, PublishedSortFields, defaultSortColumn)
}

func (s *PostService) list(ctx context.Context, in ListPostsInput, q repository.PostListQuery, sortFields []string, defaultSort string) (*models.Paginated[*models.Post], error) {
	page, limit := normalizePage(in.Page, in.Limit)
	sortBy := in.SortBy
	if sortBy == "" {
		sortBy = defaultSort
	}
	if !slices.Contains(sortFields, sortBy) {
		return nil, models.NewValidationError("sortBy must be one of " + strings.Join(sortFields, ", "))
	}

	q.Search = strings.TrimSpace(in.Search)
	q.SortBy = sortBy
	q.SortOrder = in.SortOrder
	q.Limit = limit
	q.Offset = models.Offset(page, limit)
	q.ViewerID = in.ViewerID

	posts, total, err := s.postRepo.List(ctx, q)
	if err != nil {
		return nil, err
	}
	return models.NewPaginated(posts, total, page, limit), nil
}

// Popular returns the most liked published posts, views breaking ties.
func (s *PostService) Popular(ctx context.Context, limit int) ([]*models.Post, error) {
	return s.postRepo.Popular(ctx, clampFeedLimit(limit))
}

// Recent returns the most recently published posts.
func (s *PostService) Recent(ctx context.Context, limit int) ([]*models.Post, error) {
	return s.postRepo.Recent(ctx, clampFeedLimit(limit))
}

// Like records userID's like on a published post. Repeated likes by the same
// user count once.
func (s *PostService) Like(ctx context.Context, id, userID uuid.UUID) (*models.LikeState, error) {
	if _, err := s.publishedPost(ctx, id); err != nil {
		return nil, err
	}
	likes, err := s.postRepo.Like(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	observability.LikeEvents.WithLabelValues("like").Inc()
	return &models.LikeState{Liked: true, Likes: likes}, nil
}

// ToggleLike flips userID's like on a published post.
func (s *PostService) ToggleLike(ctx context.Context, id, userID uuid.UUID) (*models.LikeState, error) {
	if _, err := s.publishedPost(ctx, id); err != nil {
		return nil, err
	}
	state, err := s.postRepo.ToggleLike(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	action := "unlike"
	if state.Liked {
		action = "like"
	}
	observability.LikeEvents.WithLabelValues("toggle_" + action).Inc()
	return &state, nil
}

// LikeStatus reports whether userID likes the post and its like count.
func (s *PostService) LikeStatus(ctx context.Context, id, userID uuid.UUID) (*models.LikeState, error) {
	post, err := s.publishedPost(ctx, id)
	if err != nil {
		return nil, err
	}
	liked, err := s.postRepo.IsLiked(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	return &models.LikeState{Liked: liked, Likes: post.Likes}, nil
}

// UploadImage stores an image that is not yet attached to a post.
func (s *PostService) UploadImage(ctx context.Context, in UploadImageInput) (*models.UploadedImage, error) {
	return s.images.Upload(ctx, in)
}

// applyChanges validates and writes changes to post. The superseded image is
// deleted only after the row points at the new one; a failed write removes
// the fresh upload instead.
func (s *PostService) applyChanges(ctx context.Context, post *models.Post, changes PostChanges, mutate func(*models.Post)) (*models.Post, error) {
	if changes.Title != nil {
		title := strings.TrimSpace(*changes.Title)
		if err := validateTitle(title); err != nil {
			return nil, err
		}
		post.Title = title
	}
	if changes.Content != nil {
		if err := validateContent(*changes.Content); err != nil {
			return nil, err
		}
		post.Content = *changes.Content
	}
	previousImage := post.Image
	if changes.Image != nil {
		image := strings.TrimSpace(*changes.Image)
		if err := validateImageURL(image); err != nil {
			return nil, err
		}
		post.Image = image
	}
	if mutate != nil {
		mutate(post)
	}

	uploaded, err := s.uploadIfPresent(ctx, changes.File)
	if err != nil {
		return nil, err
	}
	if uploaded != "" {
		post.Image = uploaded
	}

	if err := s.postRepo.Save(ctx, post); err != nil {
		s.discardUpload(ctx, uploaded)
		return nil, err
	}
	if previousImage != "" && previousImage != post.Image {
		s.deleteImage(ctx, post.ID, previousImage)
	}
	return s.postRepo.GetByID(ctx, post.ID)
}

func (s *PostService) ownedDraft(ctx context.Context, id, authorID uuid.UUID) (*models.Post, error) {
	post, err := s.postRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !post.IsDraft() || post.AuthorID != authorID {
		return nil, models.NewNotFoundError("Draft", id)
	}
	return post, nil
}

func (s *PostService) ownedPublished(ctx context.Context, id, authorID uuid.UUID) (*models.Post, error) {
	post, err := s.publishedPost(ctx, id)
	if err != nil {
		return nil, err
	}
	if post.AuthorID != authorID {
		return nil, models.NewForbiddenError("You can only modify your own posts")
	}
	return post, nil
}

func (s *PostService) publishedPost(ctx context.Context, id uuid.UUID) (*models.Post, error) {
	post, err := s.postRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !post.IsPublished() {
		return nil, models.NewNotFoundError("Post", id)
	}
	return post, nil
}

func (s *PostService) uploadIfPresent(ctx context.Context, file *UploadImageInput) (string, error) {
	if file == nil {
		return "", nil
	}
	uploaded, err := s.images.Upload(ctx, *file)
	if err != nil {
		return "", err
	}
	return uploaded.URL, nil
}

func (s *PostService) discardUpload(ctx context.Context, url string) {
	if url == "" {
		return
	}
	if err := s.images.Delete(ctx, url); err != nil {
		middleware.Logger.WarnContext(ctx, "failed to remove unattached upload",
			slog.String("url", url),
			slog.String("error", err.Error()),
		)
	}
}

// deleteImage removes an asset once the row that held it has been written,
// unless another post still references the same URL. Failures are logged and
// never fail the caller.
func (s *PostService) deleteImage(ctx context.Context, postID uuid.UUID, url string) {
	if url == "" {
		return
	}
	refs, err := s.postRepo.CountByImage(ctx, url)
	if err != nil {
		middleware.Logger.ErrorContext(ctx, "failed to check post image references",
			slog.String("post_id", postID.String()),
			slog.String("url", url),
			slog.String("error", err.Error()),
		)
		return
	}
	if refs > 0 {
		middleware.Logger.InfoContext(ctx, "post image still referenced, keeping it",
			slog.String("post_id", postID.String()),
			slog.String("url", url),
			slog.Int64("references", refs),
		)
		return
	}
	if err := s.images.Delete(ctx, url); err != nil {
		middleware.Logger.ErrorContext(ctx, "failed to delete post image",
			slog.String("post_id", postID.String()),
			slog.String("url", url),
			slog.String("error", err.Error()),
		)
	}
}

func validateTitle(title string) error {
	if title == "" {
		return models.NewValidationError("Title is required")
	}
	if utf8.RuneCountInString(title) > maxTitleLen {
		return models.NewValidationError("Title too long (max 500 characters)")
	}
	return nil
}

func validateContent(content string) error {
	if strings.TrimSpace(content) == "" {
		return models.NewValidationError("Content is required")
	}
	return nil
}

func validateImageURL(image string) error {
	if len(image) > maxImageURLLen {
		return models.NewValidationError("Image URL too long (max 1000 characters)")
	}
	return nil
}

func normalizePage(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = DefaultPageLimit
	}
	if limit > MaxPageLimit {
		limit = MaxPageLimit
	}
	return page, limit
}

func clampFeedLimit(limit int) int {
	if limit < 1 {
		return DefaultFeedLimit
	}
	if limit > maxFeedLimit {
		return maxFeedLimit
	}
	return limit
}
