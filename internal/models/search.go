package models

import (
	"time"

	"github.com/google/uuid"
)

// SearchResultType tags the entity behind a SearchResult.
type SearchResultType string

const (
	SearchResultUser SearchResultType = "user"
	SearchResultPost SearchResultType = "post"
)

// SearchResult is one hit of a search across users and posts.
// Likes, Views and Author are only set for posts.
type SearchResult struct {
	ID        uuid.UUID        `json:"id"`
	Type      SearchResultType `json:"type"`
	Title     string           `json:"title"`
	Excerpt   string           `json:"excerpt,omitempty"`
	Avatar    string           `json:"avatar,omitempty"`
	Image     string           `json:"image,omitempty"`
	Author    *AuthorSummary   `json:"author,omitempty"`
	CreatedAt time.Time        `json:"createdAt"`
	Likes     *int             `json:"likes,omitempty"`
	Views     *int             `json:"views,omitempty"`
}

// SearchResponse is the paginated payload of a full search.
type SearchResponse struct {
	Results    []SearchResult `json:"results"`
	Total      int64          `json:"total"`
	Page       int            `json:"page"`
	Limit      int            `json:"limit"`
	TotalPages int            `json:"totalPages"`
	Query      string         `json:"query"`
}

// Suggestion is a lightweight autocomplete entry.
type Suggestion struct {
	ID     uuid.UUID        `json:"id"`
	Type   SearchResultType `json:"type"`
	Title  string           `json:"title"`
	Avatar string           `json:"avatar,omitempty"`
}
