package server

import (
	"net/http"
	"testing"

	"github.com/quantu99/Test-Beincom-BE/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedSearchData(t *testing.T, env *testEnv) {
	t.Helper()
	react, _ := env.createUser(t, "React Fan")
	env.createUser(t, "Someone Else")
	exact := env.createPost(t, react.ID, "React", models.PostStatusPublished, "")
	env.createPost(t, react.ID, "Learning React hooks", models.PostStatusPublished, "")
	env.createPost(t, react.ID, "React draft", models.PostStatusDraft, "")
	require.NoError(t, env.db.Model(exact).Update("likes", 3).Error)
}

func TestSearch(t *testing.T) {
	env := newTestEnv(t)
	seedSearchData(t, env)

	tests := []struct {
		query      string
		wantStatus int
		wantTotal  int64
		wantFirst  string
	}{
		{"?q=react", fiber.StatusOK, 3, "React"},
		{"?q=REACT&type=post", fiber.StatusOK, 2, "React"},
		{"?q=react&type=user", fiber.StatusOK, 1, "React Fan"},
		{"?q=%20%20", fiber.StatusOK, 0, ""},
		{"?q=zzz", fiber.StatusOK, 0, ""},
		{"?q=react&type=comment", fiber.StatusBadRequest, 0, ""},
		{"?q=react&sortBy=random", fiber.StatusBadRequest, 0, ""},
		{"?q=react&page=-1", fiber.StatusBadRequest, 0, ""},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			resp, body := env.do(t, jsonRequest(t, http.MethodGet, "/search"+tt.query, "", nil))
			require.Equal(t, tt.wantStatus, resp.StatusCode, string(body))
			if tt.wantStatus != fiber.StatusOK {
				return
			}
			out := decode[models.SearchResponse](t, body)
			assert.Equal(t, tt.wantTotal, out.Total)
			assert.NotNil(t, out.Results)
			if tt.wantFirst != "" {
				require.NotEmpty(t, out.Results)
				assert.Equal(t, tt.wantFirst, out.Results[0].Title)
			}
		})
	}
}

func TestSearchSuggestionsAndQuick(t *testing.T) {
	env := newTestEnv(t)
	seedSearchData(t, env)

	resp, body := env.do(t, jsonRequest(t, http.MethodGet, "/search/suggestions?q=react", "", nil))
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	suggestions := decode[[]models.Suggestion](t, body)
	assert.Len(t, suggestions, 3)

	resp, body = env.do(t, jsonRequest(t, http.MethodGet, "/search/suggestions", "", nil))
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "[]", string(body))

	resp, body = env.do(t, jsonRequest(t, http.MethodGet, "/search/quick?q=react&limit=2", "", nil))
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	quick := decode[[]models.SearchResult](t, body)
	require.Len(t, quick, 2)
	assert.Equal(t, models.SearchResultUser, quick[0].Type)
	assert.Equal(t, models.SearchResultPost, quick[1].Type)

	resp, _ = env.do(t, jsonRequest(t, http.MethodGet, "/search/quick?q=react&limit=x", "", nil))
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	resp, body = env.do(t, jsonRequest(t, http.MethodGet, "/search/quick?q=react&limit=0", "", nil))
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Len(t, decode[[]models.SearchResult](t, body), 1)
}
