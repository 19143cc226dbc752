package server

import (
	"github.com/quantu99/Test-Beincom-BE/internal/service"

	"github.com/gofiber/fiber/v2"
)

// CreateDraft handles POST /posts/drafts. Any status in the body is ignored.
// @Summary Create draft
// @Description Creates a draft. Any status in the body is ignored.
// @Tags drafts
// @Accept json,mpfd
// @Produce json
// @Security BearerAuth
// @Param request body server.postBody true "Post fields"
// @Success 201 {object} models.Post
// @Failure 400 {object} models.ErrorResponse "Invalid input"
// @Failure 401 {object} models.ErrorResponse "Unauthorized"
// @Router /posts/drafts [post]
func (s *Server) CreateDraft(c *fiber.Ctx) error {
	body, file, err := s.parsePostBody(c)
	if err != nil {
		return respondServiceError(c, err)
	}

	post, err := s.postService.CreateDraft(c.UserContext(), body.createInput(currentUserID(c), file))
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(post)
}

// GetDrafts handles GET /posts/drafts, the caller's drafts.
// @Summary List drafts
// @Description Paginated drafts of the caller.
// @Tags drafts
// @Produce json
// @Security BearerAuth
// @Param page query integer false "Page number"
// @Param limit query integer false "Page size (max 100)"
// @Param search query string false "Title or content filter"
// @Param sortBy query string false "Sort column"
// @Param sortOrder query string false "ASC or DESC"
// @Success 200 {object} models.Paginated[models.Post]
// @Failure 401 {object} models.ErrorResponse "Unauthorized"
// @Router /posts/drafts [get]
func (s *Server) GetDrafts(c *fiber.Ctx) error {
	q, err := parsePageQuery(c, service.DefaultPageLimit)
	if err != nil {
		return respondServiceError(c, err)
	}
	userID := currentUserID(c)

	page, err := s.postService.ListDrafts(c.UserContext(), userID, listInput(q, userID))
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(page)
}

// GetDraft handles GET /posts/drafts/:id
// @Summary Get draft
// @Description Returns one of the caller's drafts.
// @Tags drafts
// @Produce json
// @Security BearerAuth
// @Param id path string true "Draft ID"
// @Success 200 {object} models.Post
// @Failure 403 {object} models.ErrorResponse "Not the author"
// @Failure 404 {object} models.ErrorResponse "Draft not found"
// @Router /posts/drafts/{id} [get]
func (s *Server) GetDraft(c *fiber.Ctx) error {
	id, err := parseUUID(c, "id")
	if err != nil {
		return nil
	}
	post, err := s.postService.GetDraft(c.UserContext(), id, currentUserID(c))
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(post)
}

// UpdateDraft handles PATCH /posts/drafts/:id
// @Summary Update draft
// @Description Updates one of the caller's drafts.
// @Tags drafts
// @Accept json,mpfd
// @Produce json
// @Security BearerAuth
// @Param id path string true "Draft ID"
// @Param request body server.postBody true "Post fields"
// @Success 200 {object} models.Post
// @Failure 400 {object} models.ErrorResponse "Invalid input"
// @Failure 403 {object} models.ErrorResponse "Not the author"
// @Failure 404 {object} models.ErrorResponse "Draft not found"
// @Router /posts/drafts/{id} [patch]
func (s *Server) UpdateDraft(c *fiber.Ctx) error {
	id, err := parseUUID(c, "id")
	if err != nil {
		return nil
	}
	body, file, err := s.parsePostBody(c)
	if err != nil {
		return respondServiceError(c, err)
	}

	post, err := s.postService.UpdateDraft(c.UserContext(), id, currentUserID(c), body.changes(file))
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(post)
}

// DeleteDraft handles DELETE /posts/drafts/:id
// @Summary Delete draft
// @Description Deletes one of the caller's drafts.
// @Tags drafts
// @Produce json
// @Security BearerAuth
// @Param id path string true "Draft ID"
// @Success 204
// @Failure 403 {object} models.ErrorResponse "Not the author"
// @Failure 404 {object} models.ErrorResponse "Draft not found"
// @Router /posts/drafts/{id} [delete]
func (s *Server) DeleteDraft(c *fiber.Ctx) error {
	id, err := parseUUID(c, "id")
	if err != nil {
		return nil
	}
	if err := s.postService.DiscardDraft(c.UserContext(), id, currentUserID(c)); err != nil {
		return respondServiceError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// PublishDraft handles POST /posts/drafts/:id/publish. The body may carry
// final title, content or image overrides.
// @Summary Publish draft
// @Description Publishes a draft with optional final overrides.
// @Tags drafts
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Draft ID"
// @Param request body server.postBody false "Final overrides"
// @Success 200 {object} models.Post
// @Failure 400 {object} models.ErrorResponse "Invalid input"
// @Failure 403 {object} models.ErrorResponse "Not the author"
// @Failure 404 {object} models.ErrorResponse "Draft not found"
// @Router /posts/drafts/{id}/publish [post]
func (s *Server) PublishDraft(c *fiber.Ctx) error {
	id, err := parseUUID(c, "id")
	if err != nil {
		return nil
	}
	body, file, err := s.parsePostBody(c)
	if err != nil {
		return respondServiceError(c, err)
	}

	post, err := s.postService.PublishDraft(c.UserContext(), id, currentUserID(c), body.changes(file))
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(post)
}
