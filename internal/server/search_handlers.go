package server

import (
	"strconv"
	"strings"

	"github.com/quantu99/Test-Beincom-BE/internal/models"
	"github.com/quantu99/Test-Beincom-BE/internal/service"

	"github.com/gofiber/fiber/v2"
)

const (
	defaultQuickLimit = 5
	maxQuickLimit     = 20
)

// Search handles GET /search?q=&type=&page=&limit=&sortBy=&sortOrder=
// @Summary Search
// @Description Searches users and published posts.
// @Tags search
// @Produce json
// @Param q query string true "Search text"
// @Param type query string false "all, users or posts"
// @Param page query integer false "Page number"
// @Param limit query integer false "Page size (max 50)"
// @Param sortBy query string false "relevance, date or popularity"
// @Param sortOrder query string false "asc or desc"
// @Success 200 {object} models.SearchResponse
// @Failure 400 {object} models.ErrorResponse "Invalid query"
// @Failure 429 {object} models.ErrorResponse "Too many requests"
// @Router /search [get]
func (s *Server) Search(c *fiber.Ctx) error {
	q, err := parsePageQuery(c, service.DefaultPageLimit)
	if err != nil {
		return respondServiceError(c, err)
	}

	resp, err := s.searchService.Search(c.UserContext(), service.SearchInput{
		Query:     c.Query("q"),
		Type:      service.SearchType(strings.ToLower(strings.TrimSpace(c.Query("type")))),
		Page:      q.Page,
		Limit:     q.Limit,
		SortBy:    strings.ToLower(q.SortBy),
		SortOrder: q.SortOrder,
	})
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(resp)
}

// SearchSuggestions handles GET /search/suggestions?q=
// @Summary Search suggestions
// @Description Title and name completions for a prefix.
// @Tags search
// @Produce json
// @Param q query string true "Prefix"
// @Success 200 {array} models.Suggestion
// @Router /search/suggestions [get]
func (s *Server) SearchSuggestions(c *fiber.Ctx) error {
	return c.JSON(s.searchService.Suggestions(c.UserContext(), c.Query("q")))
}

// QuickSearch handles GET /search/quick?q=&limit=. The limit is clamped to [1, 20].
// @Summary Quick search
// @Description Small unpaginated search for type-ahead.
// @Tags search
// @Produce json
// @Param q query string true "Search text"
// @Param limit query integer false "1 to 20"
// @Success 200 {array} models.SearchResult
// @Router /search/quick [get]
func (s *Server) QuickSearch(c *fiber.Ctx) error {
	limit := defaultQuickLimit
	if raw := strings.TrimSpace(c.Query("limit")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return models.RespondWithError(c, fiber.StatusBadRequest,
				models.NewValidationError("limit must be an integer"))
		}
		limit = min(max(n, 1), maxQuickLimit)
	}
	return c.JSON(s.searchService.QuickSearch(c.UserContext(), c.Query("q"), limit))
}
