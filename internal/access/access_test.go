package access

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lumen/api/internal/store"
)

type fakeStore struct {
	albums     map[string]store.Album
	members    map[string]map[string]bool
	assets     map[string]store.Asset
	sharedWith map[string]map[string]bool
	activities map[string]store.Activity
}

func (f *fakeStore) GetAlbum(_ context.Context, id string) (store.Album, error) {
	album, ok := f.albums[id]
	if !ok {
		return store.Album{}, sql.ErrNoRows
	}
	return album, nil
}

func (f *fakeStore) IsAlbumMember(_ context.Context, albumID, userID string) (bool, error) {
	return f.members[albumID][userID], nil
}

func (f *fakeStore) GetAsset(_ context.Context, id string) (store.Asset, error) {
	asset, ok := f.assets[id]
	if !ok {
		return store.Asset{}, sql.ErrNoRows
	}
	return asset, nil
}

func (f *fakeStore) UserSharesAssetAlbum(_ context.Context, assetID, userID string) (bool, error) {
	return f.sharedWith[assetID][userID], nil
}

func (f *fakeStore) GetActivity(_ context.Context, id string) (store.Activity, error) {
	activity, ok := f.activities[id]
	if !ok {
		return store.Activity{}, sql.ErrNoRows
	}
	return activity, nil
}

func strptr(s string) *string { return &s }

func TestAlbumRead(t *testing.T) {
	c := NewChecker(&fakeStore{
		albums:  map[string]store.Album{"al1": {ID: "al1", OwnerID: "owner"}},
		members: map[string]map[string]bool{"al1": {"member": true}},
	})

	assert.NoError(t, c.Require(context.Background(), "owner", AlbumRead, "al1"))
	assert.NoError(t, c.Require(context.Background(), "member", AlbumRead, "al1"))
	assert.ErrorIs(t, c.Require(context.Background(), "stranger", AlbumRead, "al1"), ErrDenied)
	assert.ErrorIs(t, c.Require(context.Background(), "owner", AlbumRead, "missing"), sql.ErrNoRows)
}

func TestActivityCreateHonorsAlbumToggle(t *testing.T) {
	f := &fakeStore{
		albums:  map[string]store.Album{"al1": {ID: "al1", OwnerID: "owner", ActivityEnabled: false}},
		members: map[string]map[string]bool{"al1": {"member": true}},
	}
	c := NewChecker(f)

	// The owner is exempt from the toggle.
	assert.NoError(t, c.Require(context.Background(), "owner", ActivityCreate, "al1"))
	assert.ErrorIs(t, c.Require(context.Background(), "member", ActivityCreate, "al1"), ErrDenied)

	album := f.albums["al1"]
	album.ActivityEnabled = true
	f.albums["al1"] = album
	assert.NoError(t, c.Require(context.Background(), "member", ActivityCreate, "al1"))
	assert.ErrorIs(t, c.Require(context.Background(), "stranger", ActivityCreate, "al1"), ErrDenied)
}

func TestAssetRead(t *testing.T) {
	c := NewChecker(&fakeStore{
		assets:     map[string]store.Asset{"as1": {ID: "as1", OwnerID: "owner"}},
		sharedWith: map[string]map[string]bool{"as1": {"member": true}},
	})

	assert.NoError(t, c.Require(context.Background(), "owner", AssetRead, "as1"))
	assert.NoError(t, c.Require(context.Background(), "member", AssetRead, "as1"))
	assert.ErrorIs(t, c.Require(context.Background(), "stranger", AssetRead, "as1"), ErrDenied)
}

func TestActivityDelete(t *testing.T) {
	c := NewChecker(&fakeStore{
		albums: map[string]store.Album{"al1": {ID: "al1", OwnerID: "owner"}},
		activities: map[string]store.Activity{
			"ac1": {ID: "ac1", UserID: "author", AlbumID: strptr("al1")},
			"ac2": {ID: "ac2", UserID: "author"},
		},
	})

	require.NoError(t, c.Require(context.Background(), "author", ActivityDelete, "ac1"))
	// The album owner moderates activity in their album.
	assert.NoError(t, c.Require(context.Background(), "owner", ActivityDelete, "ac1"))
	assert.ErrorIs(t, c.Require(context.Background(), "member", ActivityDelete, "ac1"), ErrDenied)
	// No album context: only the author may delete.
	assert.ErrorIs(t, c.Require(context.Background(), "owner", ActivityDelete, "ac2"), ErrDenied)
}
