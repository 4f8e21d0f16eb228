package store

import "time"

type User struct {
	ID           string
	Email        string
	DisplayName  string
	PasswordHash string
	DeletedAt    *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type Album struct {
	ID              string
	OwnerID         string
	Name            string
	Description     string
	ActivityEnabled bool
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

type AlbumMember struct {
	AlbumID   string
	UserID    string
	Role      string
	CreatedAt time.Time
}

type Asset struct {
	ID         string
	OwnerID    string
	FileName   string
	Visibility string
	DeletedAt  *time.Time
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Activity is one comment, emoji reaction, or legacy like. Exactly one of
// Comment, Reaction, IsLiked is populated; the database check constraint
// enforces this.
type Activity struct {
	ID        string
	UserID    string
	UserName  string // joined from users for responses
	AlbumID   *string
	AssetID   *string
	ParentID  *string
	Comment   *string
	Reaction  *string
	IsLiked   bool
	EditedAt  *time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}

type ActivityStatistics struct {
	Comments  int
	Likes     int
	Reactions int
}

// StringFilter is a tri-state column filter: the zero value applies no
// filter, MatchNull matches only NULL, MatchValue matches one value.
type StringFilter struct {
	Set   bool
	Value *string
}

func MatchValue(v string) StringFilter {
	return StringFilter{Set: true, Value: &v}
}

func MatchNull() StringFilter {
	return StringFilter{Set: true}
}

func (f StringFilter) IsNull() bool {
	return f.Set && f.Value == nil
}

// ActivitySearch selects activity rows. AlbumID, AssetID, and ParentID are
// tri-state; AssetOnly restricts to rows with no album regardless of the
// album filter; CommentsOnly restricts to rows carrying comment text.
type ActivitySearch struct {
	AlbumID      StringFilter
	AssetID      StringFilter
	ParentID     StringFilter
	UserID       string
	IsLiked      *bool
	Reaction     string
	CommentsOnly bool
	AssetOnly    bool
}
