package service

import (
	"context"
	"log/slog"
	"sort"
	"strings"

	"github.com/quantu99/Test-Beincom-BE/internal/content"
	"github.com/quantu99/Test-Beincom-BE/internal/middleware"
	"github.com/quantu99/Test-Beincom-BE/internal/models"
	"github.com/quantu99/Test-Beincom-BE/internal/observability"
	"github.com/quantu99/Test-Beincom-BE/internal/repository"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"
)

// SearchType restricts a search to one entity or searches both.
type SearchType string

const (
	SearchAll   SearchType = "all"
	SearchUsers SearchType = "user"
	SearchPosts SearchType = "post"
)

const (
	SortRelevance = "relevance"
	SortDate      = "date"
	SortLikes     = "likes"

	excerptLength    = 150
	suggestionsLimit = 3
	MaxSearchLimit   = 50
)

type SearchInput struct {
	Query     string
	Type      SearchType
	Page      int
	Limit     int
	SortBy    string
	SortOrder string
}

type SearchService struct {
	repo repository.SearchRepository
}

func NewSearchService(repo repository.SearchRepository) *SearchService {
	return &SearchService{repo: repo}
}

// Search runs a paginated search. With SearchAll each entity contributes up
// to ceil(limit/2) candidates from the same offset, so pages are approximate;
// Total is still the sum of both exact counts.
func (s *SearchService) Search(ctx context.Context, in SearchInput) (*models.SearchResponse, error) {
	in, err := normalizeSearchInput(in)
	if err != nil {
		return nil, err
	}
	observability.SearchRequests.WithLabelValues("full", string(in.Type)).Inc()
	defer observability.ObserveSearch("full")()

	resp := &models.SearchResponse{
		Results: []models.SearchResult{},
		Page:    in.Page,
		Limit:   in.Limit,
		Query:   in.Query,
	}
	if in.Query == "" {
		return resp, nil
	}

	q := repository.SearchQuery{
		Term:      in.Query,
		SortBy:    in.SortBy,
		SortOrder: in.SortOrder,
		Limit:     in.Limit,
		Offset:    models.Offset(in.Page, in.Limit),
	}

	switch in.Type {
	case SearchUsers:
		users, total, err := s.repo.SearchUsers(ctx, q)
		if err != nil {
			return nil, err
		}
		resp.Results = userResults(users)
		resp.Total = total
	case SearchPosts:
		posts, total, err := s.repo.SearchPosts(ctx, q)
		if err != nil {
			return nil, err
		}
		resp.Results = postResults(posts)
		resp.Total = total
	default:
		q.Limit = ceilHalf(in.Limit)
		var (
			users                []models.User
			posts                []models.Post
			userTotal, postTotal int64
		)
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			span, sctx := observability.NewSpan(gctx, "search.users", branchAttrs("full", q)...)
			defer span.End()
			var err error
			users, userTotal, err = s.repo.SearchUsers(sctx, q)
			span.AddAttributes(attribute.Int("search.results", len(users)), attribute.Int64("search.total", userTotal))
			span.SetError(err)
			return err
		})
		g.Go(func() error {
			span, sctx := observability.NewSpan(gctx, "search.posts", branchAttrs("full", q)...)
			defer span.End()
			var err error
			posts, postTotal, err = s.repo.SearchPosts(sctx, q)
			span.AddAttributes(attribute.Int("search.results", len(posts)), attribute.Int64("search.total", postTotal))
			span.SetError(err)
			return err
		})
		if err := g.Wait(); err != nil {
			middleware.Logger.ErrorContext(ctx, "search failed",
				slog.String("query", in.Query),
				slog.String("error", err.Error()),
			)
			return nil, err
		}

		results := append(userResults(users), postResults(posts)...)
		if in.SortBy == SortRelevance {
			RankByRelevance(results, in.Query)
		}
		if len(results) > in.Limit {
			results = results[:in.Limit]
		}
		resp.Results = results
		resp.Total = userTotal + postTotal
	}

	resp.TotalPages = models.TotalPages(resp.Total, in.Limit)
	return resp, nil
}

// Suggestions returns up to three users and three posts for autocomplete.
// Store failures are logged and yield an empty list.
func (s *SearchService) Suggestions(ctx context.Context, query string) []models.Suggestion {
	query = strings.TrimSpace(query)
	suggestions := []models.Suggestion{}
	if query == "" {
		return suggestions
	}
	observability.SearchRequests.WithLabelValues("suggestions", string(SearchAll)).Inc()
	defer observability.ObserveSearch("suggestions")()

	q := repository.SearchQuery{Term: query, Limit: suggestionsLimit, SkipCount: true}
	users, _, err := s.repo.SearchUsers(ctx, q)
	if err != nil {
		logSwallowed(ctx, "suggestions", query, err)
		return []models.Suggestion{}
	}
	posts, _, err := s.repo.SearchPosts(ctx, q)
	if err != nil {
		logSwallowed(ctx, "suggestions", query, err)
		return []models.Suggestion{}
	}

	for _, u := range users {
		suggestions = append(suggestions, models.Suggestion{ID: u.ID, Type: models.SearchResultUser, Title: u.Name, Avatar: u.Avatar})
	}
	for _, p := range posts {
		sg := models.Suggestion{ID: p.ID, Type: models.SearchResultPost, Title: p.Title}
		if p.Author != nil {
			sg.Avatar = p.Author.Avatar
		}
		suggestions = append(suggestions, sg)
	}
	return suggestions
}

// QuickSearch returns up to limit results, ceil(limit/2) of them users.
// Store failures are logged and yield an empty list.
func (s *SearchService) QuickSearch(ctx context.Context, query string, limit int) []models.SearchResult {
	query = strings.TrimSpace(query)
	if query == "" || limit < 1 {
		return []models.SearchResult{}
	}
	observability.SearchRequests.WithLabelValues("quick", string(SearchAll)).Inc()
	defer observability.ObserveSearch("quick")()

	userLimit := ceilHalf(limit)
	postLimit := limit - userLimit

	var (
		users []models.User
		posts []models.Post
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		q := repository.SearchQuery{Term: query, Limit: userLimit, SkipCount: true}
		span, sctx := observability.NewSpan(gctx, "search.users", branchAttrs("quick", q)...)
		defer span.End()
		var err error
		users, _, err = s.repo.SearchUsers(sctx, q)
		span.SetError(err)
		return err
	})
	if postLimit > 0 {
		g.Go(func() error {
			q := repository.SearchQuery{Term: query, Limit: postLimit, SkipCount: true}
			span, sctx := observability.NewSpan(gctx, "search.posts", branchAttrs("quick", q)...)
			defer span.End()
			var err error
			posts, _, err = s.repo.SearchPosts(sctx, q)
			span.SetError(err)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		logSwallowed(ctx, "quick search", query, err)
		return []models.SearchResult{}
	}
	return append(userResults(users), postResults(posts)...)
}

// Relevance scores a result against query. Exact title match scores 100, a
// prefix 50, any other substring 25; posts add likes*0.1 + views*0.01.
func Relevance(r models.SearchResult, query string) float64 {
	title := strings.ToLower(r.Title)
	q := strings.ToLower(strings.TrimSpace(query))

	var score float64
	switch {
	case title == q:
		score = 100
	case strings.HasPrefix(title, q):
		score = 50
	case strings.Contains(title, q):
		score = 25
	}
	if r.Type == models.SearchResultPost {
		if r.Likes != nil {
			score += float64(*r.Likes) * 0.1
		}
		if r.Views != nil {
			score += float64(*r.Views) * 0.01
		}
	}
	return score
}

// RankByRelevance orders results by descending relevance. Equal scores keep
// their input order.
func RankByRelevance(results []models.SearchResult, query string) {
	type scored struct {
		result models.SearchResult
		score  float64
	}
	ranked := make([]scored, len(results))
	for i, r := range results {
		ranked[i] = scored{result: r, score: Relevance(r, query)}
	}
	sort.SliceStable(ranked, func(a, b int) bool {
		return ranked[a].score > ranked[b].score
	})
	for i := range ranked {
		results[i] = ranked[i].result
	}
}

func branchAttrs(kind string, q repository.SearchQuery) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String("search.kind", kind),
		attribute.Int("search.limit", q.Limit),
		attribute.Int("search.offset", q.Offset),
	}
}

func normalizeSearchInput(in SearchInput) (SearchInput, error) {
	in.Query = strings.TrimSpace(in.Query)
	if in.Type == "" {
		in.Type = SearchAll
	}
	switch in.Type {
	case SearchAll, SearchUsers, SearchPosts:
	default:
		return in, models.NewValidationError("type must be one of all, user, post")
	}
	if in.SortBy == "" {
		in.SortBy = SortRelevance
	}
	switch in.SortBy {
	case SortRelevance, SortDate, SortLikes:
	default:
		return in, models.NewValidationError("sortBy must be one of relevance, date, likes")
	}
	in.SortOrder = strings.ToUpper(in.SortOrder)
	if in.SortOrder == "" {
		in.SortOrder = "DESC"
	}
	if in.SortOrder != "ASC" && in.SortOrder != "DESC" {
		return in, models.NewValidationError("sortOrder must be ASC or DESC")
	}
	in.Page, in.Limit = normalizePage(in.Page, in.Limit)
	in.Limit = min(in.Limit, MaxSearchLimit)
	return in, nil
}

func userResults(users []models.User) []models.SearchResult {
	results := make([]models.SearchResult, 0, len(users))
	for _, u := range users {
		results = append(results, models.SearchResult{
			ID:        u.ID,
			Type:      models.SearchResultUser,
			Title:     u.Name,
			Excerpt:   u.Email,
			Avatar:    u.Avatar,
			CreatedAt: u.CreatedAt,
		})
	}
	return results
}

func postResults(posts []models.Post) []models.SearchResult {
	results := make([]models.SearchResult, 0, len(posts))
	for _, p := range posts {
		likes, views := p.Likes, p.Views
		created := p.CreatedAt
		if p.PublishedAt != nil {
			created = *p.PublishedAt
		}
		results = append(results, models.SearchResult{
			ID:        p.ID,
			Type:      models.SearchResultPost,
			Title:     p.Title,
			Excerpt:   content.Excerpt(p.Content, excerptLength),
			Image:     p.Image,
			Author:    p.Author.Summary(),
			CreatedAt: created,
			Likes:     &likes,
			Views:     &views,
		})
	}
	return results
}

func ceilHalf(n int) int {
	return (n + 1) / 2
}

func logSwallowed(ctx context.Context, kind, query string, err error) {
	middleware.Logger.WarnContext(ctx, kind+" failed, returning no results",
		slog.String("query", query),
		slog.String("error", err.Error()),
	)
}
