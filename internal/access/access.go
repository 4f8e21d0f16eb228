// Package access answers per-resource permission questions for the activity
// service. Sharing is resource-scoped (album ownership and membership), not
// role-scoped, so every check resolves the concrete resource first.
package access

import (
	"context"
	"errors"

	"lumen/api/internal/store"
)

type Permission string

const (
	AlbumRead      Permission = "album.read"
	AssetRead      Permission = "asset.read"
	ActivityCreate Permission = "activity.create"
	ActivityDelete Permission = "activity.delete"
)

// ErrDenied is returned when the resource exists but the user may not act
// on it. A missing resource surfaces as sql.ErrNoRows from the store.
var ErrDenied = errors.New("access denied")

type dataStore interface {
	GetAlbum(ctx context.Context, albumID string) (store.Album, error)
	IsAlbumMember(ctx context.Context, albumID, userID string) (bool, error)
	GetAsset(ctx context.Context, assetID string) (store.Asset, error)
	UserSharesAssetAlbum(ctx context.Context, assetID, userID string) (bool, error)
	GetActivity(ctx context.Context, activityID string) (store.Activity, error)
}

type Checker struct {
	store dataStore
}

func NewChecker(store dataStore) *Checker {
	return &Checker{store: store}
}

// Require returns nil when userID holds the permission on the resource.
func (c *Checker) Require(ctx context.Context, userID string, perm Permission, resourceID string) error {
	switch perm {
	case AlbumRead:
		return c.albumRead(ctx, userID, resourceID)
	case AssetRead:
		return c.assetRead(ctx, userID, resourceID)
	case ActivityCreate:
		return c.activityCreate(ctx, userID, resourceID)
	case ActivityDelete:
		return c.activityDelete(ctx, userID, resourceID)
	default:
		return ErrDenied
	}
}

func (c *Checker) albumRead(ctx context.Context, userID, albumID string) error {
	album, err := c.store.GetAlbum(ctx, albumID)
	if err != nil {
		return err
	}
	if album.OwnerID == userID {
		return nil
	}
	member, err := c.store.IsAlbumMember(ctx, albumID, userID)
	if err != nil {
		return err
	}
	if !member {
		return ErrDenied
	}
	return nil
}

func (c *Checker) assetRead(ctx context.Context, userID, assetID string) error {
	asset, err := c.store.GetAsset(ctx, assetID)
	if err != nil {
		return err
	}
	if asset.OwnerID == userID {
		return nil
	}
	shared, err := c.store.UserSharesAssetAlbum(ctx, assetID, userID)
	if err != nil {
		return err
	}
	if !shared {
		return ErrDenied
	}
	return nil
}

// activityCreate is album-scoped: the owner may always post, members only
// while the album's activity toggle is on.
func (c *Checker) activityCreate(ctx context.Context, userID, albumID string) error {
	album, err := c.store.GetAlbum(ctx, albumID)
	if err != nil {
		return err
	}
	if album.OwnerID == userID {
		return nil
	}
	member, err := c.store.IsAlbumMember(ctx, albumID, userID)
	if err != nil {
		return err
	}
	if !member || !album.ActivityEnabled {
		return ErrDenied
	}
	return nil
}

// activityDelete allows the author, or the owner of the album the activity
// lives in, to remove it.
func (c *Checker) activityDelete(ctx context.Context, userID, activityID string) error {
	activity, err := c.store.GetActivity(ctx, activityID)
	if err != nil {
		return err
	}
	if activity.UserID == userID {
		return nil
	}
	if activity.AlbumID == nil {
		return ErrDenied
	}
	album, err := c.store.GetAlbum(ctx, *activity.AlbumID)
	if err != nil {
		return err
	}
	if album.OwnerID != userID {
		return ErrDenied
	}
	return nil
}
