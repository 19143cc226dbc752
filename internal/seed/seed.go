// Package seed provides database seeding utilities for development and testing.
package seed

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/quantu99/Test-Beincom-BE/internal/models"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Options configures a seeding run.
type Options struct {
	// NumUsers and NumPosts add generated content on top of the fixtures.
	NumUsers int
	NumPosts int
	// CommentsPerPost caps generated comments on each generated post.
	CommentsPerPost int
	MaxDays         int
	SkipFixtures    bool
	ShouldClean     bool
	DryRun          bool
	Verbose         bool
	// BcryptCost defaults to bcrypt.DefaultCost.
	BcryptCost int
	// RandSeed makes generated content reproducible when non-zero.
	RandSeed int64
}

// Result counts what a run created.
type Result struct {
	Users    int
	Posts    int
	Comments int
	Likes    int
}

func (r Result) String() string {
	return fmt.Sprintf("%d users, %d posts, %d comments, %d likes", r.Users, r.Posts, r.Comments, r.Likes)
}

// Seed populates the database with the fixture data set followed by any
// generated users and posts.
func Seed(ctx context.Context, db *gorm.DB, opts Options) (*Result, error) {
	log.Printf("🌱 Starting database seeding (fixtures=%t, users=%d, posts=%d, dry-run=%t)",
		!opts.SkipFixtures, opts.NumUsers, opts.NumPosts, opts.DryRun)

	if opts.DryRun {
		db = nil
	} else {
		db = db.WithContext(ctx)
	}

	if opts.ShouldClean && db != nil {
		if err := Clean(db); err != nil {
			return nil, fmt.Errorf("clean: %w", err)
		}
	}

	fx, err := LoadFixtures()
	if err != nil {
		return nil, err
	}

	cost := opts.BcryptCost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(fx.Password), cost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	f := NewFactory(db, opts, string(hash))
	res := &Result{}

	run := func(tx *gorm.DB) error {
		f.db = tx
		users := []*models.User{}
		if !opts.SkipFixtures {
			fixtureUsers, err := seedFixtures(f, fx, res)
			if err != nil {
				return err
			}
			users = append(users, fixtureUsers...)
		}
		if err := seedGenerated(f, opts, users, res); err != nil {
			return err
		}
		if tx != nil {
			return syncLikeCounts(tx)
		}
		return nil
	}

	if db == nil {
		err = run(nil)
	} else {
		err = db.Transaction(run)
	}
	if err != nil {
		return nil, err
	}

	log.Printf("🎉 Database seeding completed: %s", res)
	return res, nil
}

func seedFixtures(f *Factory, fx *Fixtures, res *Result) ([]*models.User, error) {
	byKey := make(map[string]*models.User, len(fx.Users))
	users := make([]*models.User, 0, len(fx.Users))

	for _, fu := range fx.Users {
		user := &models.User{
			Name:     fu.Name,
			Email:    strings.ToLower(fu.Email),
			Password: f.passwordHash,
			Avatar:   fu.Avatar,
		}
		if err := f.create(user); err != nil {
			return nil, fmt.Errorf("create user %s: %w", fu.Email, err)
		}
		byKey[fu.Key] = user
		users = append(users, user)
		res.Users++
	}

	for _, fp := range fx.Posts {
		post := &models.Post{
			Title:    fp.Title,
			Content:  strings.TrimSpace(fp.Content),
			Image:    fp.Image,
			Views:    fp.Views,
			AuthorID: byKey[fp.Author].ID,
			Status:   models.PostStatusDraft,
		}
		if !fp.Draft {
			post.MarkPublished(f.now)
		}
		if err := f.create(post); err != nil {
			return nil, fmt.Errorf("create post %q: %w", fp.Title, err)
		}
		res.Posts++

		for _, key := range fp.LikedBy {
			if err := f.CreateLike(byKey[key], post); err != nil {
				return nil, fmt.Errorf("like post %q: %w", fp.Title, err)
			}
			res.Likes++
		}
		for _, fc := range fp.Comments {
			comment := &models.Comment{
				Content:  fc.Content,
				AuthorID: byKey[fc.Author].ID,
				PostID:   post.ID,
			}
			if err := f.create(comment); err != nil {
				return nil, fmt.Errorf("comment on %q: %w", fp.Title, err)
			}
			res.Comments++
		}
	}
	return users, nil
}

func seedGenerated(f *Factory, opts Options, users []*models.User, res *Result) error {
	for i := 0; i < opts.NumUsers; i++ {
		user, err := f.CreateUser()
		if err != nil {
			return fmt.Errorf("create user: %w", err)
		}
		users = append(users, user)
		res.Users++
		if (i+1)%100 == 0 {
			log.Printf("Created %d users...", i+1)
		}
	}

	if opts.NumPosts > 0 && len(users) == 0 {
		return fmt.Errorf("cannot generate posts without users")
	}

	for i := 0; i < opts.NumPosts; i++ {
		post, err := f.CreatePost(f.Pick(users))
		if err != nil {
			return fmt.Errorf("create post: %w", err)
		}
		res.Posts++
		if !post.IsPublished() {
			continue
		}

		for c := 0; c < f.fake.Number(0, opts.CommentsPerPost); c++ {
			if _, err := f.CreateComment(f.Pick(users), post); err != nil {
				return fmt.Errorf("create comment: %w", err)
			}
			res.Comments++
		}

		liked := make(map[*models.User]bool)
		for l := 0; l < f.fake.Number(0, len(users)); l++ {
			u := f.Pick(users)
			if liked[u] {
				continue
			}
			liked[u] = true
			if err := f.CreateLike(u, post); err != nil {
				return fmt.Errorf("create like: %w", err)
			}
			res.Likes++
		}

		if (i+1)%100 == 0 {
			log.Printf("Created %d posts...", i+1)
		}
	}
	return nil
}

// syncLikeCounts recomputes every post's like counter from post_likes.
func syncLikeCounts(db *gorm.DB) error {
	return db.Exec(`UPDATE posts SET likes = (
		SELECT COUNT(*) FROM post_likes WHERE post_likes.post_id = posts.id
	)`).Error
}

// Clean removes all blog content. Children go first so it also works
// without ON DELETE CASCADE.
func Clean(db *gorm.DB) error {
	log.Println("🗑️  Clearing existing data...")
	all := db.Session(&gorm.Session{AllowGlobalUpdate: true})
	for _, model := range []interface{}{&models.PostLike{}, &models.Comment{}, &models.Post{}, &models.User{}} {
		if err := all.Delete(model).Error; err != nil {
			return err
		}
	}
	return nil
}
