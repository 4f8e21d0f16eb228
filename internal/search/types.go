// Package search provides full-text search over activity comments, backed
// by Meilisearch when available with a Postgres fallback.
package search

import "time"

type Query struct {
	Text    string
	AlbumID string
	Limit   int
	Offset  int
}

type Result struct {
	ID        string    `json:"id"`
	AlbumID   string    `json:"albumId"`
	AssetID   string    `json:"assetId,omitempty"`
	UserName  string    `json:"userName"`
	Comment   string    `json:"comment"`
	Snippet   string    `json:"snippet,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

type Response struct {
	Results []Result `json:"results"`
	Total   int      `json:"total"`
	Query   string   `json:"query"`
}

// CommentRecord is the document shape pushed to the comment index.
type CommentRecord struct {
	ID        string    `json:"id"`
	AlbumID   string    `json:"albumId"`
	AssetID   string    `json:"assetId,omitempty"`
	UserID    string    `json:"userId"`
	UserName  string    `json:"userName"`
	Comment   string    `json:"comment"`
	CreatedAt time.Time `json:"createdAt"`
}
