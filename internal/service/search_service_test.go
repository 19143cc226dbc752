package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/quantu99/Test-Beincom-BE/internal/models"
	"github.com/quantu99/Test-Beincom-BE/internal/repository"
	"github.com/quantu99/Test-Beincom-BE/internal/testutil"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

type searchRepoStub struct {
	searchUsersFn func(context.Context, repository.SearchQuery) ([]models.User, int64, error)
	searchPostsFn func(context.Context, repository.SearchQuery) ([]models.Post, int64, error)
	calls         atomic.Int32
}

func (s *searchRepoStub) SearchUsers(ctx context.Context, q repository.SearchQuery) ([]models.User, int64, error) {
	s.calls.Add(1)
	return s.searchUsersFn(ctx, q)
}

func (s *searchRepoStub) SearchPosts(ctx context.Context, q repository.SearchQuery) ([]models.Post, int64, error) {
	s.calls.Add(1)
	return s.searchPostsFn(ctx, q)
}

func intPtr(v int) *int { return &v }

func TestRelevance(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name   string
		result models.SearchResult
		want   float64
	}{
		{
			name:   "substring with engagement",
			result: models.SearchResult{Type: models.SearchResultPost, Title: "Getting Started with React Hooks", Likes: intPtr(23), Views: intPtr(156)},
			want:   28.86,
		},
		{
			name:   "exact match",
			result: models.SearchResult{Type: models.SearchResultPost, Title: "React", Likes: intPtr(0), Views: intPtr(0)},
			want:   100,
		},
		{
			name:   "prefix",
			result: models.SearchResult{Type: models.SearchResultUser, Title: "reactive ann"},
			want:   50,
		},
		{
			name:   "matched on email only",
			result: models.SearchResult{Type: models.SearchResultUser, Title: "Ann", Excerpt: "react@example.com"},
			want:   0,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.InDelta(t, tt.want, Relevance(tt.result, "react"), 1e-9)
		})
	}
}

func TestRankByRelevanceIsStable(t *testing.T) {
	t.Parallel()
	results := []models.SearchResult{
		{Title: "a react post", Type: models.SearchResultUser},
		{Title: "another react thing", Type: models.SearchResultUser},
		{Title: "React", Type: models.SearchResultPost},
	}
	RankByRelevance(results, "react")
	assert.Equal(t, []string{"React", "a react post", "another react thing"},
		[]string{results[0].Title, results[1].Title, results[2].Title})
}

func TestSearchService_EmptyQueryDoesNotHitStore(t *testing.T) {
	repo := &searchRepoStub{}
	svc := NewSearchService(repo)

	resp, err := svc.Search(context.Background(), SearchInput{Query: "   "})
	require.NoError(t, err)
	assert.Empty(t, resp.Results)
	assert.NotNil(t, resp.Results)
	assert.Zero(t, resp.Total)
	assert.Zero(t, repo.calls.Load())

	assert.Empty(t, svc.Suggestions(context.Background(), ""))
	assert.Empty(t, svc.QuickSearch(context.Background(), "", 5))
	assert.Zero(t, repo.calls.Load())
}

func TestSearchService_AllMergesAndRanks(t *testing.T) {
	published := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	var mu sync.Mutex
	var queries []repository.SearchQuery

	repo := &searchRepoStub{
		searchUsersFn: func(_ context.Context, q repository.SearchQuery) ([]models.User, int64, error) {
			mu.Lock()
			queries = append(queries, q)
			mu.Unlock()
			return []models.User{
				{ID: uuid.New(), Name: "Reactor Rick", Email: "rick@example.com"},
				{ID: uuid.New(), Name: "Ann", Email: "react@example.com"},
				{ID: uuid.New(), Name: "Bob react", Email: "bob@example.com"},
			}, 7, nil
		},
		searchPostsFn: func(_ context.Context, q repository.SearchQuery) ([]models.Post, int64, error) {
			mu.Lock()
			queries = append(queries, q)
			mu.Unlock()
			return []models.Post{
				{ID: uuid.New(), Title: "Getting Started with React Hooks", Likes: 23, Views: 156, PublishedAt: &published},
				{ID: uuid.New(), Title: "React", Content: strings.Repeat("x", 200), Author: &models.User{Name: "Cat", Avatar: "cat.png"}},
			}, 4, nil
		},
	}
	svc := NewSearchService(repo)

	resp, err := svc.Search(context.Background(), SearchInput{Query: " React ", Page: 2, Limit: 5})
	require.NoError(t, err)

	require.Len(t, queries, 2)
	for _, q := range queries {
		assert.Equal(t, 3, q.Limit)
		assert.Equal(t, 5, q.Offset)
		assert.Equal(t, "React", q.Term)
	}

	assert.Equal(t, int64(11), resp.Total)
	assert.Equal(t, 3, resp.TotalPages)
	assert.Equal(t, 2, resp.Page)
	assert.Equal(t, "React", resp.Query)
	require.Len(t, resp.Results, 5)
	assert.Equal(t, "React", resp.Results[0].Title)
	assert.Equal(t, "Reactor Rick", resp.Results[1].Title)
	assert.Equal(t, "Getting Started with React Hooks", resp.Results[2].Title)
	assert.Equal(t, "Bob react", resp.Results[3].Title)
	assert.Equal(t, "Ann", resp.Results[4].Title)

	top := resp.Results[0]
	assert.Equal(t, strings.Repeat("x", 150)+"...", top.Excerpt)
	require.NotNil(t, top.Author)
	assert.Equal(t, "Cat", top.Author.Name)
	assert.True(t, resp.Results[2].CreatedAt.Equal(published))
}

func TestSearchService_AllWithDateSortKeepsEntityOrder(t *testing.T) {
	repo := &searchRepoStub{
		searchUsersFn: func(context.Context, repository.SearchQuery) ([]models.User, int64, error) {
			return []models.User{{Name: "go user"}}, 1, nil
		},
		searchPostsFn: func(context.Context, repository.SearchQuery) ([]models.Post, int64, error) {
			return []models.Post{{Title: "go"}}, 1, nil
		},
	}
	svc := NewSearchService(repo)

	resp, err := svc.Search(context.Background(), SearchInput{Query: "go", SortBy: SortDate})
	require.NoError(t, err)
	require.Len(t, resp.Results, 2)
	assert.Equal(t, models.SearchResultUser, resp.Results[0].Type)
}

func TestSearchService_SingleType(t *testing.T) {
	repo := &searchRepoStub{
		searchUsersFn: func(_ context.Context, q repository.SearchQuery) ([]models.User, int64, error) {
			assert.Equal(t, 10, q.Limit)
			assert.Equal(t, 0, q.Offset)
			assert.Equal(t, SortDate, q.SortBy)
			assert.Equal(t, "ASC", q.SortOrder)
			return []models.User{{Name: "Zed"}}, 42, nil
		},
		searchPostsFn: func(context.Context, repository.SearchQuery) ([]models.Post, int64, error) {
			t.Error("posts must not be searched")
			return nil, 0, nil
		},
	}
	svc := NewSearchService(repo)

	resp, err := svc.Search(context.Background(), SearchInput{Query: "z", Type: SearchUsers, SortBy: SortDate, SortOrder: "asc"})
	require.NoError(t, err)
	assert.Equal(t, int64(42), resp.Total)
	assert.Equal(t, 5, resp.TotalPages)
	require.Len(t, resp.Results, 1)
	assert.Equal(t, "Zed", resp.Results[0].Title)
}

func TestSearchService_LimitCappedAt50(t *testing.T) {
	repo := &searchRepoStub{
		searchPostsFn: func(_ context.Context, q repository.SearchQuery) ([]models.Post, int64, error) {
			assert.Equal(t, MaxSearchLimit, q.Limit)
			assert.Equal(t, MaxSearchLimit, q.Offset)
			return nil, 120, nil
		},
	}
	svc := NewSearchService(repo)

	resp, err := svc.Search(context.Background(), SearchInput{Query: "go", Type: SearchPosts, Page: 2, Limit: 100})
	require.NoError(t, err)
	assert.Equal(t, MaxSearchLimit, resp.Limit)
	assert.Equal(t, 3, resp.TotalPages)
}

func TestSearchService_Validation(t *testing.T) {
	svc := NewSearchService(&searchRepoStub{})
	for _, in := range []SearchInput{
		{Query: "x", Type: "comments"},
		{Query: "x", SortBy: "views"},
		{Query: "x", SortOrder: "sideways"},
	} {
		_, err := svc.Search(context.Background(), in)
		assert.Equal(t, models.CodeValidation, models.ErrorCode(err))
	}
}

func TestSearchService_SearchPropagatesErrors(t *testing.T) {
	boom := models.NewInternalError(errors.New("db down"))
	repo := &searchRepoStub{
		searchUsersFn: func(context.Context, repository.SearchQuery) ([]models.User, int64, error) { return nil, 0, nil },
		searchPostsFn: func(context.Context, repository.SearchQuery) ([]models.Post, int64, error) { return nil, 0, boom },
	}
	svc := NewSearchService(repo)

	_, err := svc.Search(context.Background(), SearchInput{Query: "x"})
	assert.ErrorIs(t, err, boom)
}

func TestSearchService_Suggestions(t *testing.T) {
	repo := &searchRepoStub{
		searchUsersFn: func(_ context.Context, q repository.SearchQuery) ([]models.User, int64, error) {
			assert.Equal(t, 3, q.Limit)
			assert.True(t, q.SkipCount)
			return []models.User{{Name: "Ann", Avatar: "ann.png"}}, 0, nil
		},
		searchPostsFn: func(context.Context, repository.SearchQuery) ([]models.Post, int64, error) {
			return []models.Post{{Title: "Post", Author: &models.User{Avatar: "author.png"}}}, 0, nil
		},
	}
	svc := NewSearchService(repo)

	got := svc.Suggestions(context.Background(), "a")
	require.Len(t, got, 2)
	assert.Equal(t, models.Suggestion{Type: models.SearchResultUser, Title: "Ann", Avatar: "ann.png"}, got[0])
	assert.Equal(t, "author.png", got[1].Avatar)

	repo.searchPostsFn = func(context.Context, repository.SearchQuery) ([]models.Post, int64, error) {
		return nil, 0, errors.New("db down")
	}
	got = svc.Suggestions(context.Background(), "a")
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestSearchService_QuickSearch(t *testing.T) {
	var userLimit, postLimit atomic.Int32
	repo := &searchRepoStub{
		searchUsersFn: func(_ context.Context, q repository.SearchQuery) ([]models.User, int64, error) {
			userLimit.Store(int32(q.Limit))
			return []models.User{{Name: "u1"}, {Name: "u2"}, {Name: "u3"}}, 0, nil
		},
		searchPostsFn: func(_ context.Context, q repository.SearchQuery) ([]models.Post, int64, error) {
			postLimit.Store(int32(q.Limit))
			return []models.Post{{Title: "p1"}, {Title: "p2"}}, 0, nil
		},
	}
	svc := NewSearchService(repo)

	got := svc.QuickSearch(context.Background(), "q", 5)
	assert.Equal(t, int32(3), userLimit.Load())
	assert.Equal(t, int32(2), postLimit.Load())
	require.Len(t, got, 5)
	assert.Equal(t, models.SearchResultUser, got[0].Type)
	assert.Equal(t, models.SearchResultPost, got[4].Type)

	repo.searchUsersFn = func(context.Context, repository.SearchQuery) ([]models.User, int64, error) {
		return nil, 0, errors.New("db down")
	}
	got = svc.QuickSearch(context.Background(), "q", 5)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestSearchService_AllTracesEachBranch(t *testing.T) {
	rec := testutil.RecordSpans(t)
	repo := &searchRepoStub{
		searchUsersFn: func(ctx context.Context, q repository.SearchQuery) ([]models.User, int64, error) {
			assert.True(t, trace.SpanFromContext(ctx).SpanContext().IsValid())
			return []models.User{{Name: "go user"}}, 1, nil
		},
		searchPostsFn: func(context.Context, repository.SearchQuery) ([]models.Post, int64, error) {
			return nil, 0, errors.New("db down")
		},
	}
	svc := NewSearchService(repo)

	_, err := svc.Search(context.Background(), SearchInput{Query: "go", Limit: 4})
	require.Error(t, err)

	ended := map[string]sdktrace.ReadOnlySpan{}
	for _, s := range rec.Ended() {
		ended[s.Name()] = s
	}
	require.Contains(t, ended, "search.users")
	require.Contains(t, ended, "search.posts")
	assert.Contains(t, ended["search.users"].Attributes(), attribute.Int("search.limit", 2))
	assert.Contains(t, ended["search.users"].Attributes(), attribute.Int("search.results", 1))
	assert.Equal(t, codes.Unset, ended["search.users"].Status().Code)
	assert.Equal(t, codes.Error, ended["search.posts"].Status().Code)
}
