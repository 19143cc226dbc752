package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/quantu99/Test-Beincom-BE/internal/models"
	"github.com/quantu99/Test-Beincom-BE/internal/repository"
	"github.com/quantu99/Test-Beincom-BE/internal/storage"
	"github.com/quantu99/Test-Beincom-BE/internal/testutil"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// postRepoStub is a stub for repository.PostRepository.
type postRepoStub struct {
	createFn         func(context.Context, *models.Post) error
	saveFn           func(context.Context, *models.Post) error
	getByIDFn        func(context.Context, uuid.UUID) (*models.Post, error)
	getDetailFn      func(context.Context, uuid.UUID, uuid.UUID) (*models.Post, error)
	listFn           func(context.Context, repository.PostListQuery) ([]*models.Post, int64, error)
	popularFn        func(context.Context, int) ([]*models.Post, error)
	recentFn         func(context.Context, int) ([]*models.Post, error)
	deleteFn         func(context.Context, uuid.UUID) error
	incrementViewsFn func(context.Context, uuid.UUID) (bool, error)
	likeFn           func(context.Context, uuid.UUID, uuid.UUID) (int, error)
	toggleLikeFn     func(context.Context, uuid.UUID, uuid.UUID) (models.LikeState, error)
	isLikedFn        func(context.Context, uuid.UUID, uuid.UUID) (bool, error)
	countByImageFn   func(context.Context, string) (int64, error)
}

func (s *postRepoStub) Create(ctx context.Context, post *models.Post) error {
	if s.createFn == nil {
		post.ID = uuid.New()
		return nil
	}
	return s.createFn(ctx, post)
}
func (s *postRepoStub) Save(ctx context.Context, post *models.Post) error {
	if s.saveFn == nil {
		return nil
	}
	return s.saveFn(ctx, post)
}
func (s *postRepoStub) GetByID(ctx context.Context, id uuid.UUID) (*models.Post, error) {
	return s.getByIDFn(ctx, id)
}
func (s *postRepoStub) GetDetail(ctx context.Context, id, viewerID uuid.UUID) (*models.Post, error) {
	return s.getDetailFn(ctx, id, viewerID)
}
func (s *postRepoStub) List(ctx context.Context, q repository.PostListQuery) ([]*models.Post, int64, error) {
	return s.listFn(ctx, q)
}
func (s *postRepoStub) Popular(ctx context.Context, limit int) ([]*models.Post, error) {
	return s.popularFn(ctx, limit)
}
func (s *postRepoStub) Recent(ctx context.Context, limit int) ([]*models.Post, error) {
	return s.recentFn(ctx, limit)
}
func (s *postRepoStub) Delete(ctx context.Context, id uuid.UUID) error {
	if s.deleteFn == nil {
		return nil
	}
	return s.deleteFn(ctx, id)
}
func (s *postRepoStub) IncrementViews(ctx context.Context, id uuid.UUID) (bool, error) {
	return s.incrementViewsFn(ctx, id)
}
func (s *postRepoStub) Like(ctx context.Context, postID, userID uuid.UUID) (int, error) {
	return s.likeFn(ctx, postID, userID)
}
func (s *postRepoStub) ToggleLike(ctx context.Context, postID, userID uuid.UUID) (models.LikeState, error) {
	return s.toggleLikeFn(ctx, postID, userID)
}
func (s *postRepoStub) IsLiked(ctx context.Context, postID, userID uuid.UUID) (bool, error) {
	return s.isLikedFn(ctx, postID, userID)
}

func (s *postRepoStub) CountByImage(ctx context.Context, image string) (int64, error) {
	if s.countByImageFn == nil {
		return 0, nil
	}
	return s.countByImageFn(ctx, image)
}

// memoryPostRepo returns a stub whose GetByID serves the given post and
// whose Save updates it in place.
func memoryPostRepo(post *models.Post) *postRepoStub {
	stored := *post
	return &postRepoStub{
		getByIDFn: func(_ context.Context, id uuid.UUID) (*models.Post, error) {
			if id != stored.ID {
				return nil, models.NewNotFoundError("Post", id)
			}
			cp := stored
			return &cp, nil
		},
		saveFn: func(_ context.Context, p *models.Post) error {
			stored = *p
			return nil
		},
	}
}

var fixedNow = time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC)

func newPostService(repo *postRepoStub) (*PostService, *testutil.AssetStoreStub) {
	store := testutil.NewAssetStoreStub()
	svc := NewPostService(repo, NewImageService(store, nil))
	svc.now = func() time.Time { return fixedNow }
	return svc, store
}

func pngFile(t *testing.T) *UploadImageInput {
	return &UploadImageInput{Filename: "cover.png", ContentType: "image/png", Content: testutil.TinyPNG(t, 4, 4)}
}

func strPtr(s string) *string { return &s }

func TestPostService_CreatePost(t *testing.T) {
	authorID := uuid.New()

	tests := []struct {
		name     string
		in       CreatePostInput
		wantCode string
		check    func(t *testing.T, p *models.Post)
	}{
		{
			name: "defaults to draft",
			in:   CreatePostInput{Title: " Hello ", Content: "Body"},
			check: func(t *testing.T, p *models.Post) {
				assert.Equal(t, models.PostStatusDraft, p.Status)
				assert.Nil(t, p.PublishedAt)
				assert.Equal(t, "Hello", p.Title)
			},
		},
		{
			name: "published gets publishedAt",
			in:   CreatePostInput{Title: "Hello", Content: "Body", Status: models.PostStatusPublished},
			check: func(t *testing.T, p *models.Post) {
				assert.Equal(t, models.PostStatusPublished, p.Status)
				require.NotNil(t, p.PublishedAt)
				assert.True(t, p.PublishedAt.Equal(fixedNow))
			},
		},
		{name: "unknown status", in: CreatePostInput{Title: "T", Content: "C", Status: "archived"}, wantCode: models.CodeValidation},
		{name: "missing title", in: CreatePostInput{Title: "  ", Content: "C"}, wantCode: models.CodeValidation},
		{name: "title too long", in: CreatePostInput{Title: strings.Repeat("ü", 501), Content: "C"}, wantCode: models.CodeValidation},
		{name: "missing content", in: CreatePostInput{Title: "T", Content: " "}, wantCode: models.CodeValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var created *models.Post
			repo := &postRepoStub{
				createFn: func(_ context.Context, p *models.Post) error {
					p.ID = uuid.New()
					created = p
					return nil
				},
				getByIDFn: func(_ context.Context, id uuid.UUID) (*models.Post, error) {
					return created, nil
				},
			}
			svc, _ := newPostService(repo)
			tt.in.AuthorID = authorID

			post, err := svc.CreatePost(context.Background(), tt.in)
			if tt.wantCode != "" {
				assert.Equal(t, tt.wantCode, models.ErrorCode(err))
				assert.Nil(t, created)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, authorID, post.AuthorID)
			tt.check(t, post)
		})
	}
}

func TestPostService_CreateDraftIgnoresStatus(t *testing.T) {
	var created *models.Post
	repo := &postRepoStub{
		createFn:  func(_ context.Context, p *models.Post) error { created = p; return nil },
		getByIDFn: func(context.Context, uuid.UUID) (*models.Post, error) { return created, nil },
	}
	svc, _ := newPostService(repo)

	post, err := svc.CreateDraft(context.Background(), CreatePostInput{Title: "T", Content: "C", Status: models.PostStatusPublished})
	require.NoError(t, err)
	assert.True(t, post.IsDraft())
	assert.Nil(t, post.PublishedAt)
}

func TestPostService_CreatePostWithImage(t *testing.T) {
	var created *models.Post
	repo := &postRepoStub{
		createFn:  func(_ context.Context, p *models.Post) error { created = p; return nil },
		getByIDFn: func(context.Context, uuid.UUID) (*models.Post, error) { return created, nil },
	}
	svc, store := newPostService(repo)

	post, err := svc.CreatePost(context.Background(), CreatePostInput{Title: "T", Content: "C", Image: "ignored", File: pngFile(t)})
	require.NoError(t, err)
	keys := store.Keys()
	require.Len(t, keys, 1)
	assert.Equal(t, store.PublicURL(keys[0]), post.Image)
}

func TestPostService_CreatePostRowFailureRemovesUpload(t *testing.T) {
	repo := &postRepoStub{
		createFn: func(context.Context, *models.Post) error { return models.NewInternalError(errors.New("db down")) },
	}
	svc, store := newPostService(repo)

	_, err := svc.CreatePost(context.Background(), CreatePostInput{Title: "T", Content: "C", File: pngFile(t)})
	assert.Equal(t, models.CodeInternal, models.ErrorCode(err))
	assert.Empty(t, store.Keys())
	assert.Len(t, store.Deleted(), 1)
}

func TestPostService_CreatePostInvalidImageStoresNothing(t *testing.T) {
	repo := &postRepoStub{
		createFn: func(context.Context, *models.Post) error {
			t.Fatal("row must not be written")
			return nil
		},
	}
	svc, store := newPostService(repo)

	_, err := svc.CreatePost(context.Background(), CreatePostInput{
		Title: "T", Content: "C",
		File: &UploadImageInput{Filename: "notes.txt", Content: []byte("hello")},
	})
	assert.Equal(t, models.CodeValidation, models.ErrorCode(err))
	assert.Empty(t, store.Keys())
}

func TestPostService_PublishDraft(t *testing.T) {
	authorID := uuid.New()
	draft := &models.Post{ID: uuid.New(), Title: "Old", Content: "Body", Status: models.PostStatusDraft, AuthorID: authorID}

	t.Run("applies overrides and publishes", func(t *testing.T) {
		svc, _ := newPostService(memoryPostRepo(draft))
		post, err := svc.PublishDraft(context.Background(), draft.ID, authorID, PostChanges{Title: strPtr("Final")})
		require.NoError(t, err)
		assert.Equal(t, "Final", post.Title)
		assert.Equal(t, "Body", post.Content)
		assert.True(t, post.IsPublished())
		require.NotNil(t, post.PublishedAt)
		assert.True(t, post.PublishedAt.Equal(fixedNow))
	})

	t.Run("someone else's draft is not found", func(t *testing.T) {
		svc, _ := newPostService(memoryPostRepo(draft))
		_, err := svc.PublishDraft(context.Background(), draft.ID, uuid.New(), PostChanges{})
		assert.Equal(t, models.CodeNotFound, models.ErrorCode(err))
	})

	t.Run("published post is not a draft", func(t *testing.T) {
		published := *draft
		published.MarkPublished(fixedNow.Add(-time.Hour))
		svc, _ := newPostService(memoryPostRepo(&published))
		_, err := svc.PublishDraft(context.Background(), published.ID, authorID, PostChanges{})
		assert.Equal(t, models.CodeNotFound, models.ErrorCode(err))
	})

	t.Run("missing draft", func(t *testing.T) {
		svc, _ := newPostService(memoryPostRepo(draft))
		_, err := svc.PublishDraft(context.Background(), uuid.New(), authorID, PostChanges{})
		assert.Equal(t, models.CodeNotFound, models.ErrorCode(err))
	})
}

func TestPostService_UpdatePublished(t *testing.T) {
	authorID := uuid.New()
	oldKey := "post-1-old.png"
	published := &models.Post{ID: uuid.New(), Title: "T", Content: "C", AuthorID: authorID, Image: "https://assets.test/posts/" + oldKey}
	published.MarkPublished(fixedNow.Add(-time.Hour))

	t.Run("replacing the image deletes the old asset once", func(t *testing.T) {
		svc, store := newPostService(memoryPostRepo(published))
		store.Put(oldKey, []byte("old"))

		post, err := svc.UpdatePublished(context.Background(), published.ID, authorID, PostChanges{File: pngFile(t)})
		require.NoError(t, err)
		assert.NotEqual(t, published.Image, post.Image)
		assert.Equal(t, []string{oldKey}, store.Deleted())
		assert.Equal(t, []string{storage.KeyFromURL(post.Image)}, store.Keys())
	})

	t.Run("same url issues no delete", func(t *testing.T) {
		svc, store := newPostService(memoryPostRepo(published))
		_, err := svc.UpdatePublished(context.Background(), published.ID, authorID, PostChanges{Image: strPtr(published.Image), Title: strPtr("New")})
		require.NoError(t, err)
		assert.Empty(t, store.Deleted())
	})

	t.Run("clearing the image deletes it", func(t *testing.T) {
		svc, store := newPostService(memoryPostRepo(published))
		post, err := svc.UpdatePublished(context.Background(), published.ID, authorID, PostChanges{Image: strPtr("")})
		require.NoError(t, err)
		assert.Empty(t, post.Image)
		assert.Equal(t, []string{oldKey}, store.Deleted())
	})

	t.Run("other author is forbidden and nothing changes", func(t *testing.T) {
		repo := memoryPostRepo(published)
		repo.saveFn = func(context.Context, *models.Post) error {
			t.Fatal("save must not be called")
			return nil
		}
		svc, store := newPostService(repo)
		_, err := svc.UpdatePublished(context.Background(), published.ID, uuid.New(), PostChanges{File: pngFile(t)})
		assert.Equal(t, models.CodeForbidden, models.ErrorCode(err))
		assert.Empty(t, store.Keys())
		assert.Empty(t, store.Deleted())
	})

	t.Run("draft is not found", func(t *testing.T) {
		draft := &models.Post{ID: uuid.New(), Title: "T", Content: "C", AuthorID: authorID, Status: models.PostStatusDraft}
		svc, _ := newPostService(memoryPostRepo(draft))
		_, err := svc.UpdatePublished(context.Background(), draft.ID, authorID, PostChanges{})
		assert.Equal(t, models.CodeNotFound, models.ErrorCode(err))
	})

	t.Run("failed save keeps the old asset and drops the new one", func(t *testing.T) {
		repo := memoryPostRepo(published)
		repo.saveFn = func(context.Context, *models.Post) error { return models.NewInternalError(errors.New("db down")) }
		svc, store := newPostService(repo)
		store.Put(oldKey, []byte("old"))

		_, err := svc.UpdatePublished(context.Background(), published.ID, authorID, PostChanges{File: pngFile(t)})
		assert.Equal(t, models.CodeInternal, models.ErrorCode(err))
		assert.Equal(t, []string{oldKey}, store.Keys())
		deleted := store.Deleted()
		require.Len(t, deleted, 1)
		assert.NotEqual(t, oldKey, deleted[0])
	})
}

func TestPostService_UpdateDraft(t *testing.T) {
	authorID := uuid.New()
	draft := &models.Post{ID: uuid.New(), Title: "T", Content: "C", AuthorID: authorID, Status: models.PostStatusDraft}
	svc, _ := newPostService(memoryPostRepo(draft))

	post, err := svc.UpdateDraft(context.Background(), draft.ID, authorID, PostChanges{Content: strPtr("New body")})
	require.NoError(t, err)
	assert.Equal(t, "New body", post.Content)
	assert.True(t, post.IsDraft())

	_, err = svc.UpdateDraft(context.Background(), draft.ID, authorID, PostChanges{Title: strPtr("")})
	assert.Equal(t, models.CodeValidation, models.ErrorCode(err))
}

type imagesStub struct {
	deleteFn func(context.Context, string) error
}

func (s *imagesStub) Upload(context.Context, UploadImageInput) (*models.UploadedImage, error) {
	return nil, errors.New("not used")
}
func (s *imagesStub) Delete(ctx context.Context, url string) error { return s.deleteFn(ctx, url) }

func TestPostService_DiscardDraftDeletesRowThenImage(t *testing.T) {
	authorID := uuid.New()
	draft := &models.Post{ID: uuid.New(), Title: "T", Content: "C", AuthorID: authorID, Status: models.PostStatusDraft, Image: "https://assets.test/posts/d.png"}

	var calls []string
	repo := memoryPostRepo(draft)
	repo.deleteFn = func(_ context.Context, id uuid.UUID) error {
		calls = append(calls, "row")
		return nil
	}
	images := &imagesStub{deleteFn: func(_ context.Context, url string) error {
		calls = append(calls, "image:"+url)
		return errors.New("bucket unavailable")
	}}
	svc := NewPostService(repo, images)

	require.NoError(t, svc.DiscardDraft(context.Background(), draft.ID, authorID), "asset failures are swallowed")
	assert.Equal(t, []string{"row", "image:" + draft.Image}, calls)

	calls = nil
	err := svc.DiscardDraft(context.Background(), draft.ID, uuid.New())
	assert.Equal(t, models.CodeNotFound, models.ErrorCode(err), "ownership folds into existence")
	assert.Empty(t, calls)
}

func TestPostService_Remove(t *testing.T) {
	authorID := uuid.New()
	post := &models.Post{ID: uuid.New(), Title: "T", Content: "C", AuthorID: authorID, Image: "https://assets.test/posts/p.png"}
	post.MarkPublished(fixedNow)

	t.Run("forbidden for other users", func(t *testing.T) {
		repo := memoryPostRepo(post)
		repo.deleteFn = func(context.Context, uuid.UUID) error {
			t.Fatal("row must not be deleted")
			return nil
		}
		svc, store := newPostService(repo)
		err := svc.Remove(context.Background(), post.ID, uuid.New())
		assert.Equal(t, models.CodeForbidden, models.ErrorCode(err))
		assert.Empty(t, store.Deleted())
	})

	t.Run("deletes row and image", func(t *testing.T) {
		deleted := false
		repo := memoryPostRepo(post)
		repo.deleteFn = func(context.Context, uuid.UUID) error { deleted = true; return nil }
		svc, store := newPostService(repo)
		require.NoError(t, svc.Remove(context.Background(), post.ID, authorID))
		assert.True(t, deleted)
		assert.Equal(t, []string{"p.png"}, store.Deleted())
	})

	t.Run("image shared with another post is kept", func(t *testing.T) {
		repo := memoryPostRepo(post)
		var asked []string
		repo.countByImageFn = func(_ context.Context, image string) (int64, error) {
			asked = append(asked, image)
			return 1, nil
		}
		svc, store := newPostService(repo)
		store.Put("p.png", []byte("x"))
		require.NoError(t, svc.Remove(context.Background(), post.ID, authorID))
		assert.Equal(t, []string{post.Image}, asked)
		assert.Empty(t, store.Deleted())
		assert.Equal(t, []string{"p.png"}, store.Keys())
	})

	t.Run("reference check failure keeps the image", func(t *testing.T) {
		repo := memoryPostRepo(post)
		repo.countByImageFn = func(context.Context, string) (int64, error) {
			return 0, models.NewInternalError(errors.New("db down"))
		}
		svc, store := newPostService(repo)
		require.NoError(t, svc.Remove(context.Background(), post.ID, authorID))
		assert.Empty(t, store.Deleted())
	})

	t.Run("image outside the store is never deleted", func(t *testing.T) {
		foreign := *post
		foreign.Image = "https://elsewhere.example/posts/p.png"
		svc, store := newPostService(memoryPostRepo(&foreign))
		require.NoError(t, svc.Remove(context.Background(), foreign.ID, authorID))
		assert.Empty(t, store.Deleted())
	})

	t.Run("row failure keeps the image", func(t *testing.T) {
		repo := memoryPostRepo(post)
		repo.deleteFn = func(context.Context, uuid.UUID) error { return models.NewInternalError(errors.New("db down")) }
		svc, store := newPostService(repo)
		err := svc.Remove(context.Background(), post.ID, authorID)
		assert.Equal(t, models.CodeInternal, models.ErrorCode(err))
		assert.Empty(t, store.Deleted())
	})
}

func TestPostService_GetPublished(t *testing.T) {
	id := uuid.New()
	detailCalled := false
	repo := &postRepoStub{
		incrementViewsFn: func(_ context.Context, got uuid.UUID) (bool, error) { return got == id, nil },
		getDetailFn: func(_ context.Context, got, _ uuid.UUID) (*models.Post, error) {
			detailCalled = true
			return &models.Post{ID: got, Views: 1}, nil
		},
	}
	svc, _ := newPostService(repo)

	post, err := svc.GetPublished(context.Background(), id, uuid.Nil)
	require.NoError(t, err)
	assert.Equal(t, 1, post.Views)

	detailCalled = false
	_, err = svc.GetPublished(context.Background(), uuid.New(), uuid.Nil)
	assert.Equal(t, models.CodeNotFound, models.ErrorCode(err))
	assert.False(t, detailCalled)
}

func TestPostService_Likes(t *testing.T) {
	userID := uuid.New()
	published := &models.Post{ID: uuid.New(), Title: "T", Content: "C", AuthorID: uuid.New(), Likes: 4}
	published.MarkPublished(fixedNow)
	draft := &models.Post{ID: uuid.New(), Title: "D", Content: "C", AuthorID: uuid.New(), Status: models.PostStatusDraft}

	repo := &postRepoStub{
		getByIDFn: func(_ context.Context, id uuid.UUID) (*models.Post, error) {
			switch id {
			case published.ID:
				return published, nil
			case draft.ID:
				return draft, nil
			}
			return nil, models.NewNotFoundError("Post", id)
		},
		likeFn:       func(context.Context, uuid.UUID, uuid.UUID) (int, error) { return 5, nil },
		toggleLikeFn: func(context.Context, uuid.UUID, uuid.UUID) (models.LikeState, error) { return models.LikeState{Liked: false, Likes: 3}, nil },
		isLikedFn:    func(context.Context, uuid.UUID, uuid.UUID) (bool, error) { return true, nil },
	}
	svc, _ := newPostService(repo)
	ctx := context.Background()

	state, err := svc.Like(ctx, published.ID, userID)
	require.NoError(t, err)
	assert.Equal(t, models.LikeState{Liked: true, Likes: 5}, *state)

	_, err = svc.Like(ctx, draft.ID, userID)
	assert.Equal(t, models.CodeNotFound, models.ErrorCode(err))

	state, err = svc.ToggleLike(ctx, published.ID, userID)
	require.NoError(t, err)
	assert.Equal(t, models.LikeState{Liked: false, Likes: 3}, *state)

	_, err = svc.ToggleLike(ctx, uuid.New(), userID)
	assert.Equal(t, models.CodeNotFound, models.ErrorCode(err))

	state, err = svc.LikeStatus(ctx, published.ID, userID)
	require.NoError(t, err)
	assert.Equal(t, models.LikeState{Liked: true, Likes: 4}, *state)
}

func TestPostService_Listing(t *testing.T) {
	authorID := uuid.New()
	var got repository.PostListQuery
	repo := &postRepoStub{
		listFn: func(_ context.Context, q repository.PostListQuery) ([]*models.Post, int64, error) {
			got = q
			return []*models.Post{{Title: "a"}}, 23, nil
		},
		popularFn: func(_ context.Context, limit int) ([]*models.Post, error) {
			return make([]*models.Post, limit), nil
		},
	}
	svc, _ := newPostService(repo)
	ctx := context.Background()

	page, err := svc.ListPosts(ctx, ListPostsInput{Page: 3, Limit: 10, Search: "  go "})
	require.NoError(t, err)
	assert.Equal(t, 3, page.TotalPages)
	assert.Equal(t, int64(23), page.Total)
	assert.Equal(t, models.PostStatusPublished, got.Status)
	assert.Equal(t, "publishedAt", got.SortBy)
	assert.Equal(t, 20, got.Offset)
	assert.Equal(t, "go", got.Search)

	_, err = svc.ListPosts(ctx, ListPostsInput{SortBy: "password"})
	assert.Equal(t, models.CodeValidation, models.ErrorCode(err))

	_, err = svc.ListDrafts(ctx, authorID, ListPostsInput{})
	require.NoError(t, err)
	assert.Equal(t, models.PostStatusDraft, got.Status)
	assert.Equal(t, authorID, got.AuthorID)
	assert.Equal(t, "updatedAt", got.SortBy)
	assert.Equal(t, DefaultPageLimit, got.Limit)

	_, err = svc.ListDrafts(ctx, authorID, ListPostsInput{SortBy: "likes"})
	assert.Equal(t, models.CodeValidation, models.ErrorCode(err))

	popular, err := svc.Popular(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, popular, DefaultFeedLimit)
}
