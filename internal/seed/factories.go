package seed

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/quantu99/Test-Beincom-BE/internal/models"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Factory builds domain entities and persists them to the database.
// It is a thin helper used by Seed and by tests.
type Factory struct {
	db   *gorm.DB
	opts Options
	fake *gofakeit.Faker
	now  time.Time
	// passwordHash is shared by every generated account
	passwordHash string
}

// NewFactory creates a Factory bound to db. A zero opts.RandSeed seeds from the clock.
func NewFactory(db *gorm.DB, opts Options, passwordHash string) *Factory {
	seed := opts.RandSeed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Factory{
		db:           db,
		opts:         opts,
		fake:         gofakeit.New(seed),
		now:          time.Now().UTC(),
		passwordHash: passwordHash,
	}
}

// BuildUser returns an unsaved user with fake profile data.
func (f *Factory) BuildUser(overrides ...func(*models.User)) *models.User {
	first, last := f.fake.FirstName(), f.fake.LastName()
	user := &models.User{
		Name: first + " " + last,
		Email: strings.ToLower(fmt.Sprintf("%s.%s.%d@%s",
			first, last, f.fake.Number(100, 999), f.fake.DomainName())),
		Password: f.passwordHash,
		Avatar:   fmt.Sprintf("https://i.pravatar.cc/150?u=%s", f.fake.UUID()),
	}
	for _, override := range overrides {
		override(user)
	}
	return user
}

// BuildPost returns an unsaved published post by author, created within the
// last opts.MaxDays days. Roughly one post in five stays a draft.
func (f *Factory) BuildPost(author *models.User, overrides ...func(*models.Post)) *models.Post {
	maxDays := f.opts.MaxDays
	if maxDays <= 0 {
		maxDays = 90
	}
	createdAt := f.now.Add(-time.Duration(f.fake.Number(0, maxDays*24*60)) * time.Minute)

	post := &models.Post{
		Title:     strings.TrimSuffix(f.fake.Sentence(f.fake.Number(3, 8)), "."),
		Content:   f.fake.Paragraph(f.fake.Number(2, 5), 4, 12, "\n\n"),
		AuthorID:  author.ID,
		Status:    models.PostStatusDraft,
		CreatedAt: createdAt,
	}
	if f.fake.Number(1, 5) > 1 {
		post.MarkPublished(createdAt)
		post.Views = f.fake.Number(0, 500)
	}
	if f.fake.Bool() {
		post.Image = fmt.Sprintf("https://picsum.photos/seed/%s/800/400", f.fake.UUID())
	}

	for _, override := range overrides {
		override(post)
	}
	return post
}

// BuildComment returns an unsaved comment on post.
func (f *Factory) BuildComment(author *models.User, post *models.Post) *models.Comment {
	return &models.Comment{
		Content:  f.fake.Sentence(f.fake.Number(6, 20)),
		AuthorID: author.ID,
		PostID:   post.ID,
	}
}

// CreateUser builds and persists a user.
func (f *Factory) CreateUser(overrides ...func(*models.User)) (*models.User, error) {
	user := f.BuildUser(overrides...)
	if err := f.create(user); err != nil {
		return nil, err
	}
	return user, nil
}

// CreatePost builds and persists a post for author.
func (f *Factory) CreatePost(author *models.User, overrides ...func(*models.Post)) (*models.Post, error) {
	post := f.BuildPost(author, overrides...)
	if err := f.create(post); err != nil {
		return nil, err
	}
	return post, nil
}

// CreateComment builds and persists a comment.
func (f *Factory) CreateComment(author *models.User, post *models.Post) (*models.Comment, error) {
	comment := f.BuildComment(author, post)
	if err := f.create(comment); err != nil {
		return nil, err
	}
	return comment, nil
}

// CreateLike records that user liked post. Like counters are recomputed by
// syncLikeCounts once seeding finishes.
func (f *Factory) CreateLike(user *models.User, post *models.Post) error {
	return f.create(&models.PostLike{UserID: user.ID, PostID: post.ID})
}

// Pick returns a random element of users.
func (f *Factory) Pick(users []*models.User) *models.User {
	return users[f.fake.Number(0, len(users)-1)]
}

// create persists v, or in dry-run mode only assigns an id.
func (f *Factory) create(v interface{}) error {
	if f.opts.DryRun {
		switch e := v.(type) {
		case *models.User:
			e.ID = uuid.New()
		case *models.Post:
			e.ID = uuid.New()
		case *models.Comment:
			e.ID = uuid.New()
		case *models.PostLike:
			e.ID = uuid.New()
		}
		if f.opts.Verbose {
			log.Printf("[dry-run] create %T", v)
		}
		return nil
	}
	return f.db.Create(v).Error
}
