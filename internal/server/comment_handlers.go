package server

import (
	"github.com/quantu99/Test-Beincom-BE/internal/models"
	"github.com/quantu99/Test-Beincom-BE/internal/service"

	"github.com/gofiber/fiber/v2"
)

type commentBody struct {
	Content string `json:"content"`
}

// CreateComment handles POST /comments/posts/:postId
// @Summary Create comment
// @Description Adds a comment to a published post.
// @Tags comments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param postId path string true "Post ID"
// @Param request body server.commentBody true "Comment"
// @Success 201 {object} models.Comment
// @Failure 400 {object} models.ErrorResponse "Invalid input"
// @Failure 401 {object} models.ErrorResponse "Unauthorized"
// @Failure 404 {object} models.ErrorResponse "Post not found"
// @Failure 429 {object} models.ErrorResponse "Too many requests"
// @Router /comments/posts/{postId} [post]
func (s *Server) CreateComment(c *fiber.Ctx) error {
	postID, err := parseUUID(c, "postId")
	if err != nil {
		return nil
	}
	var req commentBody
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	comment, err := s.commentService.Create(c.UserContext(), service.CreateCommentInput{
		AuthorID: currentUserID(c),
		PostID:   postID,
		Content:  req.Content,
	})
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(comment)
}

// GetPostComments handles GET /comments/posts/:postId
// @Summary List post comments
// @Description Comments of one post, newest first.
// @Tags comments
// @Produce json
// @Param postId path string true "Post ID"
// @Success 200 {array} models.Comment
// @Failure 400 {object} models.ErrorResponse "Invalid ID"
// @Router /comments/posts/{postId} [get]
func (s *Server) GetPostComments(c *fiber.Ctx) error {
	postID, err := parseUUID(c, "postId")
	if err != nil {
		return nil
	}
	comments, err := s.commentService.ListByPost(c.UserContext(), postID)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(nonNil(comments))
}

// GetRecentComments handles GET /comments/recent
// @Summary Recent comments
// @Description Most recent comments across posts.
// @Tags comments
// @Produce json
// @Param limit query integer false "Number of items"
// @Success 200 {array} models.Comment
// @Router /comments/recent [get]
func (s *Server) GetRecentComments(c *fiber.Ctx) error {
	comments, err := s.commentService.Recent(c.UserContext(), c.QueryInt("limit", service.DefaultRecentLimit))
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(nonNil(comments))
}

// GetUserComments handles GET /comments/user/:userId
// @Summary List user comments
// @Description Comments written by one user.
// @Tags comments
// @Produce json
// @Param userId path string true "User ID"
// @Success 200 {array} models.Comment
// @Failure 400 {object} models.ErrorResponse "Invalid ID"
// @Router /comments/user/{userId} [get]
func (s *Server) GetUserComments(c *fiber.Ctx) error {
	userID, err := parseUUID(c, "userId")
	if err != nil {
		return nil
	}
	comments, err := s.commentService.ListByUser(c.UserContext(), userID)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(nonNil(comments))
}

// GetComment handles GET /comments/:id
// @Summary Get comment
// @Description Returns one comment.
// @Tags comments
// @Produce json
// @Param id path string true "Comment ID"
// @Success 200 {object} models.Comment
// @Failure 400 {object} models.ErrorResponse "Invalid ID"
// @Failure 404 {object} models.ErrorResponse "Comment not found"
// @Router /comments/{id} [get]
func (s *Server) GetComment(c *fiber.Ctx) error {
	id, err := parseUUID(c, "id")
	if err != nil {
		return nil
	}
	comment, err := s.commentService.Get(c.UserContext(), id)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(comment)
}

// UpdateComment handles PATCH /comments/:id
// @Summary Update comment
// @Description Edits the caller's own comment.
// @Tags comments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Comment ID"
// @Param request body server.commentBody true "Comment"
// @Success 200 {object} models.Comment
// @Failure 400 {object} models.ErrorResponse "Invalid input"
// @Failure 403 {object} models.ErrorResponse "Not the author"
// @Failure 404 {object} models.ErrorResponse "Comment not found"
// @Router /comments/{id} [patch]
func (s *Server) UpdateComment(c *fiber.Ctx) error {
	id, err := parseUUID(c, "id")
	if err != nil {
		return nil
	}
	var req commentBody
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	comment, err := s.commentService.Update(c.UserContext(), service.UpdateCommentInput{
		ActorID:   currentUserID(c),
		CommentID: id,
		Content:   req.Content,
	})
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(comment)
}

// DeleteComment handles DELETE /comments/:id
// @Summary Delete comment
// @Description Deletes the caller's own comment.
// @Tags comments
// @Produce json
// @Security BearerAuth
// @Param id path string true "Comment ID"
// @Success 204
// @Failure 403 {object} models.ErrorResponse "Not the author"
// @Failure 404 {object} models.ErrorResponse "Comment not found"
// @Router /comments/{id} [delete]
func (s *Server) DeleteComment(c *fiber.Ctx) error {
	id, err := parseUUID(c, "id")
	if err != nil {
		return nil
	}
	if err := s.commentService.Delete(c.UserContext(), id, currentUserID(c)); err != nil {
		return respondServiceError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// nonNil makes empty lists serialize as [] rather than null.
func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
