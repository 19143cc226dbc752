package server

import (
	"github.com/quantu99/Test-Beincom-BE/internal/service"

	"github.com/gofiber/fiber/v2"
)

// GetMyProfile handles GET /users/me
// @Summary Get current user
// @Description Returns the authenticated user.
// @Tags users
// @Produce json
// @Security BearerAuth
// @Success 200 {object} models.User
// @Failure 401 {object} models.ErrorResponse "Unauthorized"
// @Failure 404 {object} models.ErrorResponse "User not found"
// @Router /users/me [get]
func (s *Server) GetMyProfile(c *fiber.Ctx) error {
	user, err := s.userService.GetByID(c.UserContext(), currentUserID(c))
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(user)
}

// GetUserProfile handles GET /users/:id
// @Summary Get user profile
// @Description Returns one user by ID.
// @Tags users
// @Produce json
// @Param id path string true "User ID"
// @Success 200 {object} models.User
// @Failure 400 {object} models.ErrorResponse "Invalid ID"
// @Failure 404 {object} models.ErrorResponse "User not found"
// @Router /users/{id} [get]
func (s *Server) GetUserProfile(c *fiber.Ctx) error {
	id, err := parseUUID(c, "id")
	if err != nil {
		return nil
	}
	user, err := s.userService.GetByID(c.UserContext(), id)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(user)
}

// GetUserPosts handles GET /users/:id/posts, the published posts of one author.
// @Summary List posts of a user
// @Description Paginated published posts of one author.
// @Tags users
// @Produce json
// @Param id path string true "User ID"
// @Param page query integer false "Page number"
// @Param limit query integer false "Page size (max 100)"
// @Param search query string false "Title or content filter"
// @Param sortBy query string false "Sort column"
// @Param sortOrder query string false "ASC or DESC"
// @Success 200 {object} models.Paginated[models.Post]
// @Failure 400 {object} models.ErrorResponse "Invalid query"
// @Router /users/{id}/posts [get]
func (s *Server) GetUserPosts(c *fiber.Ctx) error {
	id, err := parseUUID(c, "id")
	if err != nil {
		return nil
	}
	q, err := parsePageQuery(c, service.DefaultPageLimit)
	if err != nil {
		return respondServiceError(c, err)
	}

	ctx := c.UserContext()
	if _, err := s.userService.GetByID(ctx, id); err != nil {
		return respondServiceError(c, err)
	}
	page, err := s.postService.ListByAuthor(ctx, id, listInput(q, s.optionalUserID(c)))
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(page)
}
