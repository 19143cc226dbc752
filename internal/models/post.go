// Package models contains data structures for the application's domain models.
package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// PostStatus is the lifecycle state of a Post.
type PostStatus string

const (
	PostStatusDraft     PostStatus = "draft"
	PostStatusPublished PostStatus = "published"
)

// Valid reports whether s is a known status.
func (s PostStatus) Valid() bool {
	return s == PostStatusDraft || s == PostStatusPublished
}

// Post is a blog post. PublishedAt is set iff Status is published.
type Post struct {
	ID          uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	Title       string     `gorm:"size:500;not null" json:"title"`
	Content     string     `gorm:"type:text;not null" json:"content"`
	Image       string     `gorm:"size:1000" json:"image,omitempty"`
	Views       int        `gorm:"not null;default:0" json:"views"`
	Likes       int        `gorm:"not null;default:0" json:"likes"`
	Status      PostStatus `gorm:"size:20;not null;default:draft;index:idx_posts_status_published,priority:1" json:"status"`
	PublishedAt *time.Time `gorm:"index:idx_posts_status_published,priority:2" json:"publishedAt,omitempty"`
	AuthorID    uuid.UUID  `gorm:"type:uuid;not null;index" json:"authorId"`
	Author      *User      `gorm:"foreignKey:AuthorID;constraint:OnDelete:CASCADE" json:"author,omitempty"`
	Comments    []Comment  `gorm:"foreignKey:PostID;constraint:OnDelete:CASCADE" json:"comments,omitempty"`
	// CommentsCount is not persisted; computed at query time
	CommentsCount int `gorm:"->;-:migration" json:"commentsCount"`
	// Liked reports whether the requesting user liked this post (computed)
	Liked bool `gorm:"->;-:migration" json:"liked"`
	// ContentHTML is the rendered markdown body, filled on the detail endpoint
	ContentHTML string    `gorm:"-" json:"contentHtml,omitempty"`
	CreatedAt   time.Time `gorm:"index" json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// BeforeCreate assigns a fresh UUID when the caller did not.
func (p *Post) BeforeCreate(_ *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// IsDraft reports whether the post has not been published yet.
func (p *Post) IsDraft() bool {
	return p.Status == PostStatusDraft
}

// IsPublished reports whether the post is publicly visible.
func (p *Post) IsPublished() bool {
	return p.Status == PostStatusPublished
}

// MarkPublished moves the post to published and stamps PublishedAt.
// It is a no-op for posts that are already published.
func (p *Post) MarkPublished(now time.Time) {
	if p.IsPublished() {
		return
	}
	p.Status = PostStatusPublished
	t := now.UTC()
	p.PublishedAt = &t
}

// LikeState is the like status of a post for one user.
type LikeState struct {
	Liked bool `json:"liked"`
	Likes int  `json:"likes"`
}

// UploadedImage describes an asset stored for a post.
type UploadedImage struct {
	Filename string `json:"filename"`
	URL      string `json:"url"`
}
