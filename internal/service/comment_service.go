package service

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/quantu99/Test-Beincom-BE/internal/content"
	"github.com/quantu99/Test-Beincom-BE/internal/models"
	"github.com/quantu99/Test-Beincom-BE/internal/repository"

	"github.com/google/uuid"
)

const (
	maxCommentLen       = 2000
	DefaultRecentLimit  = 10
	maxRecentCommentLim = 50
)

type CommentService struct {
	commentRepo repository.CommentRepository
	postRepo    repository.PostRepository
}

type CreateCommentInput struct {
	AuthorID uuid.UUID
	PostID   uuid.UUID
	Content  string
}

type UpdateCommentInput struct {
	ActorID   uuid.UUID
	CommentID uuid.UUID
	Content   string
}

func NewCommentService(commentRepo repository.CommentRepository, postRepo repository.PostRepository) *CommentService {
	return &CommentService{
		commentRepo: commentRepo,
		postRepo:    postRepo,
	}
}

// Create adds a comment to a published post. Markup is stripped from the body.
func (s *CommentService) Create(ctx context.Context, in CreateCommentInput) (*models.Comment, error) {
	body, err := cleanCommentContent(in.Content)
	if err != nil {
		return nil, err
	}

	post, err := s.postRepo.GetByID(ctx, in.PostID)
	if err != nil {
		return nil, err
	}
	if !post.IsPublished() {
		return nil, models.NewNotFoundError("Post", in.PostID)
	}

	comment := &models.Comment{
		Content:  body,
		AuthorID: in.AuthorID,
		PostID:   in.PostID,
	}
	if err := s.commentRepo.Create(ctx, comment); err != nil {
		return nil, err
	}

	return s.commentRepo.GetByID(ctx, comment.ID)
}

func (s *CommentService) ListByPost(ctx context.Context, postID uuid.UUID) ([]*models.Comment, error) {
	return s.commentRepo.ListByPost(ctx, postID)
}

func (s *CommentService) Get(ctx context.Context, id uuid.UUID) (*models.Comment, error) {
	return s.commentRepo.GetByID(ctx, id)
}

func (s *CommentService) ListByUser(ctx context.Context, userID uuid.UUID) ([]*models.Comment, error) {
	return s.commentRepo.ListByUser(ctx, userID)
}

func (s *CommentService) Recent(ctx context.Context, limit int) ([]*models.Comment, error) {
	if limit < 1 {
		limit = DefaultRecentLimit
	}
	if limit > maxRecentCommentLim {
		limit = maxRecentCommentLim
	}
	return s.commentRepo.Recent(ctx, limit)
}

func (s *CommentService) Update(ctx context.Context, in UpdateCommentInput) (*models.Comment, error) {
	comment, err := s.commentRepo.GetByID(ctx, in.CommentID)
	if err != nil {
		return nil, err
	}
	if comment.AuthorID != in.ActorID {
		return nil, models.NewForbiddenError("You can only update your own comments")
	}

	body, err := cleanCommentContent(in.Content)
	if err != nil {
		return nil, err
	}
	if err := s.commentRepo.UpdateContent(ctx, comment.ID, body); err != nil {
		return nil, err
	}

	return s.commentRepo.GetByID(ctx, comment.ID)
}

func (s *CommentService) Delete(ctx context.Context, id, actorID uuid.UUID) error {
	comment, err := s.commentRepo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if comment.AuthorID != actorID {
		return models.NewForbiddenError("You can only delete your own comments")
	}
	return s.commentRepo.Delete(ctx, id)
}

func cleanCommentContent(raw string) (string, error) {
	body := content.StripTags(strings.TrimSpace(raw))
	if body == "" {
		return "", models.NewValidationError("Content is required")
	}
	if utf8.RuneCountInString(body) > maxCommentLen {
		return "", models.NewValidationError("Comment too long (max 2000 characters)")
	}
	return body, nil
}
