package app

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"lumen/api/internal/access"
	"lumen/api/internal/config"
	"lumen/api/internal/store"
)

type fakeStore struct {
	getUserByID           func(ctx context.Context, userID string) (store.User, error)
	searchActivities      func(ctx context.Context, filter store.ActivitySearch) ([]store.Activity, error)
	getActivity           func(ctx context.Context, activityID string) (store.Activity, error)
	createActivity        func(ctx context.Context, item store.Activity) (store.Activity, error)
	updateActivityComment func(ctx context.Context, activityID, comment string, editedAt time.Time) (store.Activity, error)
	deleteActivity        func(ctx context.Context, activityID string) error
	activityStatistics    func(ctx context.Context, albumID, assetID *string) (store.ActivityStatistics, error)
	assetInAlbum          func(ctx context.Context, albumID, assetID string) (bool, error)
	getAlbum              func(ctx context.Context, albumID string) (store.Album, error)
}

func (f *fakeStore) GetUserByID(ctx context.Context, userID string) (store.User, error) {
	if f.getUserByID == nil {
		return store.User{}, sql.ErrNoRows
	}
	return f.getUserByID(ctx, userID)
}

func (f *fakeStore) SearchActivities(ctx context.Context, filter store.ActivitySearch) ([]store.Activity, error) {
	if f.searchActivities == nil {
		return nil, nil
	}
	return f.searchActivities(ctx, filter)
}

func (f *fakeStore) GetActivity(ctx context.Context, activityID string) (store.Activity, error) {
	if f.getActivity == nil {
		return store.Activity{}, sql.ErrNoRows
	}
	return f.getActivity(ctx, activityID)
}

func (f *fakeStore) CreateActivity(ctx context.Context, item store.Activity) (store.Activity, error) {
	if f.createActivity == nil {
		item.CreatedAt = time.Now()
		item.UpdatedAt = item.CreatedAt
		return item, nil
	}
	return f.createActivity(ctx, item)
}

func (f *fakeStore) UpdateActivityComment(ctx context.Context, activityID, comment string, editedAt time.Time) (store.Activity, error) {
	if f.updateActivityComment == nil {
		return store.Activity{}, sql.ErrNoRows
	}
	return f.updateActivityComment(ctx, activityID, comment, editedAt)
}

func (f *fakeStore) DeleteActivity(ctx context.Context, activityID string) error {
	if f.deleteActivity == nil {
		return nil
	}
	return f.deleteActivity(ctx, activityID)
}

func (f *fakeStore) ActivityStatistics(ctx context.Context, albumID, assetID *string) (store.ActivityStatistics, error) {
	if f.activityStatistics == nil {
		return store.ActivityStatistics{}, nil
	}
	return f.activityStatistics(ctx, albumID, assetID)
}

func (f *fakeStore) CreateAlbum(ctx context.Context, album store.Album) (store.Album, error) {
	return album, nil
}

func (f *fakeStore) GetAlbum(ctx context.Context, albumID string) (store.Album, error) {
	if f.getAlbum == nil {
		return store.Album{}, sql.ErrNoRows
	}
	return f.getAlbum(ctx, albumID)
}

func (f *fakeStore) ListAlbumsForUser(ctx context.Context, userID string) ([]store.Album, error) {
	return nil, nil
}

func (f *fakeStore) SetAlbumActivityEnabled(ctx context.Context, albumID string, enabled bool) error {
	return nil
}

func (f *fakeStore) AddAlbumMember(ctx context.Context, albumID, userID, role string) error {
	return nil
}

func (f *fakeStore) IsAlbumMember(ctx context.Context, albumID, userID string) (bool, error) {
	return false, nil
}

func (f *fakeStore) CreateAsset(ctx context.Context, asset store.Asset) (store.Asset, error) {
	return asset, nil
}

func (f *fakeStore) AttachAssetToAlbum(ctx context.Context, albumID, assetID string) error {
	return nil
}

func (f *fakeStore) AssetInAlbum(ctx context.Context, albumID, assetID string) (bool, error) {
	if f.assetInAlbum == nil {
		return true, nil
	}
	return f.assetInAlbum(ctx, albumID, assetID)
}

func (f *fakeStore) RevokeAccessToken(ctx context.Context, jti string, exp time.Time) error {
	return nil
}

func (f *fakeStore) IsAccessTokenRevoked(ctx context.Context, jti string) (bool, error) {
	return false, nil
}

type fakeChecker struct {
	require func(ctx context.Context, userID string, perm access.Permission, resourceID string) error
}

func (f *fakeChecker) Require(ctx context.Context, userID string, perm access.Permission, resourceID string) error {
	if f.require == nil {
		return nil
	}
	return f.require(ctx, userID, perm, resourceID)
}

func newTestService(fs *fakeStore, checker *fakeChecker) *Service {
	if checker == nil {
		checker = &fakeChecker{}
	}
	return NewService(config.Config{TokenSecret: "test"}, fs, nil, checker, nil, nil, nil, zerolog.Nop())
}

func strptr(s string) *string { return &s }

func wantStatus(t *testing.T, err error, status int) {
	t.Helper()
	var domainErr *DomainError
	if !errors.As(err, &domainErr) {
		t.Fatalf("want DomainError, got %v", err)
	}
	if domainErr.Status != status {
		t.Fatalf("want status %d, got %d (%s)", status, domainErr.Status, domainErr.Code)
	}
}

func TestCreateCommentNeverDeduplicated(t *testing.T) {
	inserts := 0
	searches := 0
	fs := &fakeStore{
		searchActivities: func(_ context.Context, _ store.ActivitySearch) ([]store.Activity, error) {
			searches++
			return nil, nil
		},
		createActivity: func(_ context.Context, item store.Activity) (store.Activity, error) {
			inserts++
			return item, nil
		},
	}
	svc := newTestService(fs, nil)
	session := Session{UserID: "u1", UserName: "Ada"}

	for i := 0; i < 2; i++ {
		result, err := svc.CreateActivity(context.Background(), session, CreateActivityRequest{
			AlbumID: "al1", AssetID: "as1", Type: "comment", Comment: "nice shot",
		})
		if err != nil {
			t.Fatalf("create comment: %v", err)
		}
		if result.Duplicate {
			t.Fatal("comments should never report duplicate")
		}
	}
	if inserts != 2 {
		t.Fatalf("want 2 inserts, got %d", inserts)
	}
	if searches != 0 {
		t.Fatalf("comments should skip the duplicate pre-check, got %d searches", searches)
	}
}

func TestCreateLikeReturnsExistingDuplicate(t *testing.T) {
	existing := store.Activity{ID: "a1", UserID: "u1", AlbumID: strptr("al1"), AssetID: strptr("as1"), IsLiked: true}
	inserts := 0
	fs := &fakeStore{
		searchActivities: func(_ context.Context, filter store.ActivitySearch) ([]store.Activity, error) {
			if filter.IsLiked == nil || !*filter.IsLiked {
				t.Fatalf("like dedup should filter isLiked=true, got %+v", filter)
			}
			return []store.Activity{existing}, nil
		},
		createActivity: func(_ context.Context, item store.Activity) (store.Activity, error) {
			inserts++
			return item, nil
		},
	}
	svc := newTestService(fs, nil)

	result, err := svc.CreateActivity(context.Background(), Session{UserID: "u1"}, CreateActivityRequest{
		AlbumID: "al1", AssetID: "as1", Type: "like",
	})
	if err != nil {
		t.Fatalf("create like: %v", err)
	}
	if !result.Duplicate {
		t.Fatal("want duplicate=true")
	}
	if result.Activity.ID != "a1" {
		t.Fatalf("want existing activity, got %s", result.Activity.ID)
	}
	if result.Activity.Type != "like" {
		t.Fatalf("want type like, got %s", result.Activity.Type)
	}
	if inserts != 0 {
		t.Fatalf("duplicate like must not insert, got %d inserts", inserts)
	}
}

func TestCreateReactionDedupKeysOnToken(t *testing.T) {
	var seen []string
	fs := &fakeStore{
		searchActivities: func(_ context.Context, filter store.ActivitySearch) ([]store.Activity, error) {
			seen = append(seen, filter.Reaction)
			return nil, nil
		},
	}
	svc := newTestService(fs, nil)
	session := Session{UserID: "u1"}

	for _, emoji := range []string{"🔥", "❤️"} {
		result, err := svc.CreateActivity(context.Background(), session, CreateActivityRequest{
			AlbumID: "al1", AssetID: "as1", Type: "reaction", Reaction: emoji,
		})
		if err != nil {
			t.Fatalf("react %s: %v", emoji, err)
		}
		if result.Duplicate {
			t.Fatalf("distinct tokens must coexist, %s reported duplicate", emoji)
		}
	}
	if len(seen) != 2 || seen[0] == seen[1] {
		t.Fatalf("dedup searches should key on the token, got %v", seen)
	}
}

func TestCreateReactionValidation(t *testing.T) {
	svc := newTestService(&fakeStore{}, nil)
	session := Session{UserID: "u1"}

	_, err := svc.CreateActivity(context.Background(), session, CreateActivityRequest{AlbumID: "al1", Type: "reaction", Reaction: "   "})
	wantStatus(t, err, http.StatusBadRequest)

	_, err = svc.CreateActivity(context.Background(), session, CreateActivityRequest{AlbumID: "al1", Type: "reaction", Reaction: strings.Repeat("x", 33)})
	wantStatus(t, err, http.StatusBadRequest)

	// 32 runes exactly is allowed.
	if _, err := svc.CreateActivity(context.Background(), session, CreateActivityRequest{AlbumID: "al1", Type: "reaction", Reaction: strings.Repeat("x", 32)}); err != nil {
		t.Fatalf("32-rune token: %v", err)
	}
}

func TestCreateCommentOnAssetWithoutAlbum(t *testing.T) {
	var checked []string
	var inserted store.Activity
	fs := &fakeStore{
		createActivity: func(_ context.Context, item store.Activity) (store.Activity, error) {
			inserted = item
			return item, nil
		},
	}
	checker := &fakeChecker{require: func(_ context.Context, _ string, perm access.Permission, id string) error {
		checked = append(checked, string(perm)+":"+id)
		return nil
	}}
	svc := newTestService(fs, checker)

	result, err := svc.CreateActivity(context.Background(), Session{UserID: "u1"}, CreateActivityRequest{
		AssetID: "as1", Type: "comment", Comment: "nice shot",
	})
	if err != nil {
		t.Fatalf("asset-only comment: %v", err)
	}
	if result.Duplicate {
		t.Fatal("fresh comment should not report duplicate")
	}
	if inserted.AlbumID != nil {
		t.Fatalf("asset-only comment must carry no album, got %v", *inserted.AlbumID)
	}
	if inserted.AssetID == nil || *inserted.AssetID != "as1" {
		t.Fatalf("asset scope missing: %+v", inserted.AssetID)
	}
	if len(checked) != 1 || checked[0] != string(access.AssetRead)+":as1" {
		t.Fatalf("asset-only create should authorize asset read, got %v", checked)
	}
}

func TestCreateAssetOnlyLikeDedupPinsAlbumNull(t *testing.T) {
	var got store.ActivitySearch
	fs := &fakeStore{
		searchActivities: func(_ context.Context, filter store.ActivitySearch) ([]store.Activity, error) {
			got = filter
			return nil, nil
		},
	}
	svc := newTestService(fs, nil)

	if _, err := svc.CreateActivity(context.Background(), Session{UserID: "u1"}, CreateActivityRequest{
		AssetID: "as1", Type: "like",
	}); err != nil {
		t.Fatalf("asset-only like: %v", err)
	}
	if !got.AlbumID.IsNull() {
		t.Fatalf("dedup for an album-less like must pin album IS NULL, got %+v", got.AlbumID)
	}
	if !got.AssetID.Set || got.AssetID.Value == nil || *got.AssetID.Value != "as1" {
		t.Fatalf("dedup asset filter missing: %+v", got.AssetID)
	}
}

func TestCreateReplyInheritsParentScope(t *testing.T) {
	parent := store.Activity{ID: "p1", UserID: "other", AlbumID: strptr("al2"), AssetID: strptr("as2"), Comment: strptr("original")}
	var authorized []string
	var inserted store.Activity
	fs := &fakeStore{
		getActivity: func(_ context.Context, id string) (store.Activity, error) {
			if id == "p1" {
				return parent, nil
			}
			return store.Activity{}, sql.ErrNoRows
		},
		createActivity: func(_ context.Context, item store.Activity) (store.Activity, error) {
			inserted = item
			return item, nil
		},
	}
	checker := &fakeChecker{require: func(_ context.Context, _ string, perm access.Permission, id string) error {
		if perm == access.ActivityCreate {
			authorized = append(authorized, id)
		}
		return nil
	}}
	svc := newTestService(fs, checker)

	// Only the parent is named; album and asset come from it.
	result, err := svc.CreateActivity(context.Background(), Session{UserID: "u1"}, CreateActivityRequest{
		ParentID: "p1", Type: "comment", Comment: "reply",
	})
	if err != nil {
		t.Fatalf("create reply: %v", err)
	}
	if inserted.AlbumID == nil || *inserted.AlbumID != "al2" {
		t.Fatalf("reply should inherit parent album, got %+v", inserted.AlbumID)
	}
	if inserted.AssetID == nil || *inserted.AssetID != "as2" {
		t.Fatalf("reply should inherit parent asset, got %+v", inserted.AssetID)
	}
	if result.Activity.ParentID == nil || *result.Activity.ParentID != "p1" {
		t.Fatal("reply should carry parentId")
	}
	if len(authorized) != 1 || authorized[0] != "al2" {
		t.Fatalf("expected authorization against the parent album, got %v", authorized)
	}
}

func TestCreateReplyParentMissing(t *testing.T) {
	svc := newTestService(&fakeStore{}, nil)
	_, err := svc.CreateActivity(context.Background(), Session{UserID: "u1"}, CreateActivityRequest{
		ParentID: "ghost", Type: "comment", Comment: "reply",
	})
	wantStatus(t, err, http.StatusNotFound)
}

func TestCreateReplyToReactionAllowed(t *testing.T) {
	emoji := "🔥"
	fs := &fakeStore{
		getActivity: func(_ context.Context, id string) (store.Activity, error) {
			return store.Activity{ID: id, UserID: "other", AlbumID: strptr("al1"), Reaction: &emoji}, nil
		},
	}
	svc := newTestService(fs, nil)

	// Threading under a non-comment parent is not restricted.
	result, err := svc.CreateActivity(context.Background(), Session{UserID: "u1"}, CreateActivityRequest{
		ParentID: "p1", Type: "comment", Comment: "reply",
	})
	if err != nil {
		t.Fatalf("reply under a reaction: %v", err)
	}
	if result.Activity.ParentID == nil || *result.Activity.ParentID != "p1" {
		t.Fatal("reply should carry parentId")
	}
}

func TestCreateRequiresSomeScope(t *testing.T) {
	svc := newTestService(&fakeStore{}, nil)
	_, err := svc.CreateActivity(context.Background(), Session{UserID: "u1"}, CreateActivityRequest{
		Type: "comment", Comment: "hello",
	})
	wantStatus(t, err, http.StatusBadRequest)
}

func TestCreateConflictRaceAbsorbed(t *testing.T) {
	existing := store.Activity{ID: "winner", UserID: "u1", AlbumID: strptr("al1"), AssetID: strptr("as1"), IsLiked: true}
	searches := 0
	fs := &fakeStore{
		searchActivities: func(_ context.Context, _ store.ActivitySearch) ([]store.Activity, error) {
			searches++
			if searches == 1 {
				// Pre-check sees nothing; another request wins the insert race.
				return nil, nil
			}
			return []store.Activity{existing}, nil
		},
		createActivity: func(_ context.Context, _ store.Activity) (store.Activity, error) {
			return store.Activity{}, store.ErrConflict
		},
	}
	svc := newTestService(fs, nil)

	result, err := svc.CreateActivity(context.Background(), Session{UserID: "u1"}, CreateActivityRequest{
		AlbumID: "al1", AssetID: "as1", Type: "like",
	})
	if err != nil {
		t.Fatalf("conflict race should be absorbed: %v", err)
	}
	if !result.Duplicate || result.Activity.ID != "winner" {
		t.Fatalf("want the winning row as duplicate, got %+v", result)
	}
}

func TestCreateConflictRaceRereadEmpty(t *testing.T) {
	fs := &fakeStore{
		searchActivities: func(_ context.Context, _ store.ActivitySearch) ([]store.Activity, error) {
			return nil, nil
		},
		createActivity: func(_ context.Context, _ store.Activity) (store.Activity, error) {
			return store.Activity{}, store.ErrConflict
		},
	}
	svc := newTestService(fs, nil)

	_, err := svc.CreateActivity(context.Background(), Session{UserID: "u1"}, CreateActivityRequest{
		AlbumID: "al1", AssetID: "as1", Type: "like",
	})
	if !errors.Is(err, store.ErrConflict) {
		t.Fatalf("want ErrConflict when the winner vanished, got %v", err)
	}
}

func TestCreateRejectsAssetOutsideAlbum(t *testing.T) {
	fs := &fakeStore{
		assetInAlbum: func(_ context.Context, _, _ string) (bool, error) { return false, nil },
	}
	svc := newTestService(fs, nil)
	_, err := svc.CreateActivity(context.Background(), Session{UserID: "u1"}, CreateActivityRequest{
		AlbumID: "al1", AssetID: "as9", Type: "comment", Comment: "hi",
	})
	wantStatus(t, err, http.StatusBadRequest)
}

func TestCreateDeniedByChecker(t *testing.T) {
	checker := &fakeChecker{require: func(_ context.Context, _ string, _ access.Permission, _ string) error {
		return access.ErrDenied
	}}
	svc := newTestService(&fakeStore{}, checker)
	_, err := svc.CreateActivity(context.Background(), Session{UserID: "u1"}, CreateActivityRequest{
		AlbumID: "al1", Type: "comment", Comment: "hi",
	})
	if !errors.Is(err, access.ErrDenied) {
		t.Fatalf("want ErrDenied, got %v", err)
	}
}

func TestUpdateActivityOwnerOnly(t *testing.T) {
	fs := &fakeStore{
		getActivity: func(_ context.Context, id string) (store.Activity, error) {
			return store.Activity{ID: id, UserID: "author", Comment: strptr("hello")}, nil
		},
	}
	svc := newTestService(fs, nil)

	_, err := svc.UpdateActivity(context.Background(), Session{UserID: "intruder"}, "a1", "edited")
	wantStatus(t, err, http.StatusForbidden)
}

func TestUpdateActivityCommentsOnly(t *testing.T) {
	fs := &fakeStore{
		getActivity: func(_ context.Context, id string) (store.Activity, error) {
			return store.Activity{ID: id, UserID: "u1", IsLiked: true}, nil
		},
	}
	svc := newTestService(fs, nil)

	_, err := svc.UpdateActivity(context.Background(), Session{UserID: "u1"}, "a1", "edited")
	wantStatus(t, err, http.StatusBadRequest)
}

func TestUpdateActivityStampsEditedAt(t *testing.T) {
	frozen := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	var gotEditedAt time.Time
	fs := &fakeStore{
		getActivity: func(_ context.Context, id string) (store.Activity, error) {
			return store.Activity{ID: id, UserID: "u1", Comment: strptr("hello")}, nil
		},
		updateActivityComment: func(_ context.Context, id, comment string, editedAt time.Time) (store.Activity, error) {
			gotEditedAt = editedAt
			return store.Activity{ID: id, UserID: "u1", Comment: &comment, EditedAt: &editedAt}, nil
		},
	}
	svc := newTestService(fs, nil)
	svc.now = func() time.Time { return frozen }

	updated, err := svc.UpdateActivity(context.Background(), Session{UserID: "u1"}, "a1", "  edited  ")
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if !gotEditedAt.Equal(frozen) {
		t.Fatalf("editedAt should come from the service clock, got %v", gotEditedAt)
	}
	if updated.Comment == nil || *updated.Comment != "edited" {
		t.Fatalf("comment should be trimmed, got %+v", updated.Comment)
	}
}

func TestDeleteActivityIdempotent(t *testing.T) {
	checker := &fakeChecker{require: func(_ context.Context, _ string, _ access.Permission, _ string) error {
		return sql.ErrNoRows
	}}
	svc := newTestService(&fakeStore{}, checker)

	if err := svc.DeleteActivity(context.Background(), Session{UserID: "u1"}, "gone"); err != nil {
		t.Fatalf("deleting a missing activity should succeed, got %v", err)
	}
}

func TestListActivitiesFilterTranslation(t *testing.T) {
	var got store.ActivitySearch
	fs := &fakeStore{
		searchActivities: func(_ context.Context, filter store.ActivitySearch) ([]store.Activity, error) {
			got = filter
			return nil, nil
		},
	}
	svc := newTestService(fs, nil)
	session := Session{UserID: "u1"}

	// Album level dominates: the asset filter pins to explicit-null.
	if _, err := svc.ListActivities(context.Background(), session, ListActivitiesRequest{AlbumID: "al1", AssetID: "as1", Level: "album"}); err != nil {
		t.Fatalf("list: %v", err)
	}
	if !got.AssetID.IsNull() {
		t.Fatalf("level=album should force asset IS NULL, got %+v", got.AssetID)
	}
	if !got.AlbumID.Set || got.AlbumID.Value == nil || *got.AlbumID.Value != "al1" {
		t.Fatalf("album filter missing: %+v", got.AlbumID)
	}

	// No album: asset-only matching.
	if _, err := svc.ListActivities(context.Background(), session, ListActivitiesRequest{AssetID: "as1"}); err != nil {
		t.Fatalf("list: %v", err)
	}
	if !got.AssetOnly {
		t.Fatal("album-less asset query should set AssetOnly")
	}
	if !got.AssetID.Set || got.AssetID.Value == nil || *got.AssetID.Value != "as1" {
		t.Fatalf("asset filter missing: %+v", got.AssetID)
	}

	// type=like maps onto the liked flag; parentId "" pins top-level.
	if _, err := svc.ListActivities(context.Background(), session, ListActivitiesRequest{AlbumID: "al1", Type: "like", HasParent: true}); err != nil {
		t.Fatalf("list: %v", err)
	}
	if got.IsLiked == nil || !*got.IsLiked {
		t.Fatalf("type=like should filter isLiked=true, got %+v", got.IsLiked)
	}
	if !got.ParentID.IsNull() {
		t.Fatalf("empty parentId should pin top-level rows, got %+v", got.ParentID)
	}

	// type=comment filters on the comment column, not the like flag, so
	// emoji reactions never slip into a comment listing.
	if _, err := svc.ListActivities(context.Background(), session, ListActivitiesRequest{AlbumID: "al1", Type: "comment"}); err != nil {
		t.Fatalf("list: %v", err)
	}
	if !got.CommentsOnly {
		t.Fatal("type=comment should restrict to rows with comment text")
	}
	if got.IsLiked != nil {
		t.Fatalf("type=comment must not touch the like flag, got %+v", got.IsLiked)
	}
}

func TestListActivitiesRequiresScope(t *testing.T) {
	svc := newTestService(&fakeStore{}, nil)
	_, err := svc.ListActivities(context.Background(), Session{UserID: "u1"}, ListActivitiesRequest{})
	wantStatus(t, err, http.StatusBadRequest)
}

func TestStatisticsScopeTranslation(t *testing.T) {
	var gotAlbum, gotAsset *string
	fs := &fakeStore{
		activityStatistics: func(_ context.Context, albumID, assetID *string) (store.ActivityStatistics, error) {
			gotAlbum, gotAsset = albumID, assetID
			return store.ActivityStatistics{Comments: 3, Likes: 1, Reactions: 2}, nil
		},
	}
	svc := newTestService(fs, nil)
	session := Session{UserID: "u1"}

	if _, err := svc.ActivityStatistics(context.Background(), session, "", ""); err == nil {
		t.Fatal("statistics with no scope should fail")
	}

	stats, err := svc.ActivityStatistics(context.Background(), session, "", "as1")
	if err != nil {
		t.Fatalf("statistics: %v", err)
	}
	if gotAlbum != nil {
		t.Fatal("absent album must query album IS NULL (nil pointer)")
	}
	if gotAsset == nil || *gotAsset != "as1" {
		t.Fatalf("asset scope missing: %+v", gotAsset)
	}
	if stats.Comments != 3 || stats.Likes != 1 || stats.Reactions != 2 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
}
