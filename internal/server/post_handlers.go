package server

import (
	"strings"

	"github.com/quantu99/Test-Beincom-BE/internal/content"
	"github.com/quantu99/Test-Beincom-BE/internal/models"
	"github.com/quantu99/Test-Beincom-BE/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// postBody is the JSON shape of create, update and publish requests.
// Nil fields are left unchanged on update.
type postBody struct {
	Title   *string `json:"title"`
	Content *string `json:"content"`
	Image   *string `json:"image"`
	Status  *string `json:"status"`
}

// parsePostBody reads a post payload from JSON or multipart form data. The
// optional multipart "image" file is returned separately.
func (s *Server) parsePostBody(c *fiber.Ctx) (postBody, *service.UploadImageInput, error) {
	var body postBody
	if isMultipart(c) {
		file, err := formImage(c, s.imageService.MaxUploadBytes())
		if err != nil {
			return body, nil, err
		}
		body.Title = formValue(c, "title")
		body.Content = formValue(c, "content")
		body.Image = formValue(c, "image")
		body.Status = formValue(c, "status")
		return body, file, nil
	}

	if len(c.Body()) == 0 {
		return body, nil, nil
	}
	if err := c.BodyParser(&body); err != nil {
		return body, nil, models.NewValidationError("Invalid request body")
	}
	return body, nil, nil
}

func (b postBody) changes(file *service.UploadImageInput) service.PostChanges {
	return service.PostChanges{
		Title:   b.Title,
		Content: b.Content,
		Image:   b.Image,
		File:    file,
	}
}

func (b postBody) createInput(authorID uuid.UUID, file *service.UploadImageInput) service.CreatePostInput {
	in := service.CreatePostInput{AuthorID: authorID, File: file}
	if b.Title != nil {
		in.Title = *b.Title
	}
	if b.Content != nil {
		in.Content = *b.Content
	}
	if b.Image != nil {
		in.Image = *b.Image
	}
	if b.Status != nil {
		in.Status = models.PostStatus(strings.ToLower(strings.TrimSpace(*b.Status)))
	}
	return in
}

func listInput(q pageQuery, viewerID uuid.UUID) service.ListPostsInput {
	return service.ListPostsInput{
		Page:      q.Page,
		Limit:     q.Limit,
		Search:    q.Search,
		SortBy:    q.SortBy,
		SortOrder: q.SortOrder,
		ViewerID:  viewerID,
	}
}

// CreatePost handles POST /posts
// @Summary Create post
// @Description Creates a post from JSON or multipart form data. Status defaults to published.
// @Tags posts
// @Accept json,mpfd
// @Produce json
// @Security BearerAuth
// @Param request body server.postBody true "Post fields"
// @Success 201 {object} models.Post
// @Failure 400 {object} models.ErrorResponse "Invalid input"
// @Failure 401 {object} models.ErrorResponse "Unauthorized"
// @Router /posts [post]
func (s *Server) CreatePost(c *fiber.Ctx) error {
	body, file, err := s.parsePostBody(c)
	if err != nil {
		return respondServiceError(c, err)
	}

	post, err := s.postService.CreatePost(c.UserContext(), body.createInput(currentUserID(c), file))
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(post)
}

// GetPosts handles GET /posts, the paginated list of published posts.
// @Summary List posts
// @Description Paginated published posts, newest first by default.
// @Tags posts
// @Produce json
// @Param page query integer false "Page number"
// @Param limit query integer false "Page size (max 100)"
// @Param search query string false "Title or content filter"
// @Param sortBy query string false "Sort column"
// @Param sortOrder query string false "ASC or DESC"
// @Success 200 {object} models.Paginated[models.Post]
// @Failure 400 {object} models.ErrorResponse "Invalid query"
// @Router /posts [get]
func (s *Server) GetPosts(c *fiber.Ctx) error {
	q, err := parsePageQuery(c, service.DefaultPageLimit)
	if err != nil {
		return respondServiceError(c, err)
	}

	page, err := s.postService.ListPosts(c.UserContext(), listInput(q, s.optionalUserID(c)))
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(page)
}

// GetPopularPosts handles GET /posts/popular
// @Summary Popular posts
// @Description Published posts ordered by likes then views.
// @Tags posts
// @Produce json
// @Param limit query integer false "Number of items"
// @Success 200 {array} models.Post
// @Router /posts/popular [get]
func (s *Server) GetPopularPosts(c *fiber.Ctx) error {
	posts, err := s.postService.Popular(c.UserContext(), c.QueryInt("limit", service.DefaultFeedLimit))
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(posts)
}

// GetRecentPosts handles GET /posts/recent
// @Summary Recent posts
// @Description Most recently published posts.
// @Tags posts
// @Produce json
// @Param limit query integer false "Number of items"
// @Success 200 {array} models.Post
// @Router /posts/recent [get]
func (s *Server) GetRecentPosts(c *fiber.Ctx) error {
	posts, err := s.postService.Recent(c.UserContext(), c.QueryInt("limit", service.DefaultFeedLimit))
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(posts)
}

// UploadImage handles POST /posts/upload-image
// @Summary Upload post image
// @Description Stores an image and returns its public URL.
// @Tags posts
// @Accept mpfd
// @Produce json
// @Security BearerAuth
// @Param image formData file true "Image file"
// @Success 201 {object} models.UploadedImage
// @Failure 400 {object} models.ErrorResponse "Invalid file"
// @Failure 401 {object} models.ErrorResponse "Unauthorized"
// @Failure 429 {object} models.ErrorResponse "Too many requests"
// @Router /posts/upload-image [post]
func (s *Server) UploadImage(c *fiber.Ctx) error {
	if !isMultipart(c) {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("No file uploaded"))
	}
	file, err := formImage(c, s.imageService.MaxUploadBytes())
	if err != nil {
		return respondServiceError(c, err)
	}
	if file == nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("No file uploaded"))
	}

	uploaded, err := s.postService.UploadImage(c.UserContext(), *file)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(uploaded)
}

// GetPost handles GET /posts/:id. Each call counts as a view.
// @Summary Get post
// @Description Returns one post and counts a view. Drafts are visible to their author only.
// @Tags posts
// @Produce json
// @Param id path string true "Post ID"
// @Success 200 {object} models.Post
// @Failure 400 {object} models.ErrorResponse "Invalid ID"
// @Failure 404 {object} models.ErrorResponse "Post not found"
// @Router /posts/{id} [get]
func (s *Server) GetPost(c *fiber.Ctx) error {
	id, err := parseUUID(c, "id")
	if err != nil {
		return nil
	}

	post, err := s.postService.GetPublished(c.UserContext(), id, s.optionalUserID(c))
	if err != nil {
		return respondServiceError(c, err)
	}
	post.ContentHTML = content.RenderMarkdown(post.Content)
	return c.JSON(post)
}

// UpdatePost handles PATCH /posts/:id
// @Summary Update post
// @Description Updates the caller's own post.
// @Tags posts
// @Accept json,mpfd
// @Produce json
// @Security BearerAuth
// @Param id path string true "Post ID"
// @Param request body server.postBody true "Post fields"
// @Success 200 {object} models.Post
// @Failure 400 {object} models.ErrorResponse "Invalid input"
// @Failure 403 {object} models.ErrorResponse "Not the author"
// @Failure 404 {object} models.ErrorResponse "Post not found"
// @Router /posts/{id} [patch]
func (s *Server) UpdatePost(c *fiber.Ctx) error {
	id, err := parseUUID(c, "id")
	if err != nil {
		return nil
	}
	body, file, err := s.parsePostBody(c)
	if err != nil {
		return respondServiceError(c, err)
	}

	post, err := s.postService.UpdatePublished(c.UserContext(), id, currentUserID(c), body.changes(file))
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(post)
}

// DeletePost handles DELETE /posts/:id
// @Summary Delete post
// @Description Deletes the caller's own post and its unshared image.
// @Tags posts
// @Produce json
// @Security BearerAuth
// @Param id path string true "Post ID"
// @Success 204
// @Failure 403 {object} models.ErrorResponse "Not the author"
// @Failure 404 {object} models.ErrorResponse "Post not found"
// @Router /posts/{id} [delete]
func (s *Server) DeletePost(c *fiber.Ctx) error {
	id, err := parseUUID(c, "id")
	if err != nil {
		return nil
	}
	if err := s.postService.Remove(c.UserContext(), id, currentUserID(c)); err != nil {
		return respondServiceError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// LikePost handles POST /posts/:id/like
// @Summary Like post
// @Description Idempotently likes a published post.
// @Tags likes
// @Produce json
// @Security BearerAuth
// @Param id path string true "Post ID"
// @Success 200 {object} models.LikeState
// @Failure 401 {object} models.ErrorResponse "Unauthorized"
// @Failure 404 {object} models.ErrorResponse "Post not found"
// @Router /posts/{id}/like [post]
func (s *Server) LikePost(c *fiber.Ctx) error {
	id, err := parseUUID(c, "id")
	if err != nil {
		return nil
	}
	state, err := s.postService.Like(c.UserContext(), id, currentUserID(c))
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(state)
}

// ToggleLike handles POST /posts/:id/toggle-like
// @Summary Toggle like
// @Description Likes or unlikes a published post.
// @Tags likes
// @Produce json
// @Security BearerAuth
// @Param id path string true "Post ID"
// @Success 200 {object} models.LikeState
// @Failure 401 {object} models.ErrorResponse "Unauthorized"
// @Failure 404 {object} models.ErrorResponse "Post not found"
// @Router /posts/{id}/toggle-like [post]
func (s *Server) ToggleLike(c *fiber.Ctx) error {
	id, err := parseUUID(c, "id")
	if err != nil {
		return nil
	}
	state, err := s.postService.ToggleLike(c.UserContext(), id, currentUserID(c))
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(state)
}

// GetLikeStatus handles GET /posts/:id/like-status
// @Summary Like status
// @Description Whether the caller likes the post, with its like count.
// @Tags likes
// @Produce json
// @Security BearerAuth
// @Param id path string true "Post ID"
// @Success 200 {object} models.LikeState
// @Failure 401 {object} models.ErrorResponse "Unauthorized"
// @Failure 404 {object} models.ErrorResponse "Post not found"
// @Router /posts/{id}/like-status [get]
func (s *Server) GetLikeStatus(c *fiber.Ctx) error {
	id, err := parseUUID(c, "id")
	if err != nil {
		return nil
	}
	state, err := s.postService.LikeStatus(c.UserContext(), id, currentUserID(c))
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(state)
}
