package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"lumen/api/internal/access"
	"lumen/api/internal/auth"
	"lumen/api/internal/authpw"
	"lumen/api/internal/config"
	"lumen/api/internal/search"
	"lumen/api/internal/store"
	"lumen/api/internal/util"
)

const maxReactionLength = 32

// dataStore is the persistence surface the service needs. *store.PostgresStore
// satisfies it; tests substitute a fake.
type dataStore interface {
	GetUserByID(ctx context.Context, userID string) (store.User, error)

	SearchActivities(ctx context.Context, filter store.ActivitySearch) ([]store.Activity, error)
	GetActivity(ctx context.Context, activityID string) (store.Activity, error)
	CreateActivity(ctx context.Context, item store.Activity) (store.Activity, error)
	UpdateActivityComment(ctx context.Context, activityID, comment string, editedAt time.Time) (store.Activity, error)
	DeleteActivity(ctx context.Context, activityID string) error
	ActivityStatistics(ctx context.Context, albumID, assetID *string) (store.ActivityStatistics, error)

	CreateAlbum(ctx context.Context, album store.Album) (store.Album, error)
	GetAlbum(ctx context.Context, albumID string) (store.Album, error)
	ListAlbumsForUser(ctx context.Context, userID string) ([]store.Album, error)
	SetAlbumActivityEnabled(ctx context.Context, albumID string, enabled bool) error
	AddAlbumMember(ctx context.Context, albumID, userID, role string) error
	IsAlbumMember(ctx context.Context, albumID, userID string) (bool, error)
	CreateAsset(ctx context.Context, asset store.Asset) (store.Asset, error)
	AttachAssetToAlbum(ctx context.Context, albumID, assetID string) error
	AssetInAlbum(ctx context.Context, albumID, assetID string) (bool, error)

	RevokeAccessToken(ctx context.Context, jti string, exp time.Time) error
	IsAccessTokenRevoked(ctx context.Context, jti string) (bool, error)
}

// sessionStore holds refresh sessions. Postgres by default; Redis when
// configured.
type sessionStore interface {
	SaveRefreshSession(ctx context.Context, tokenHash, userID string, expiresAt time.Time) error
	LookupRefreshSession(ctx context.Context, tokenHash string) (store.User, error)
	RevokeRefreshSession(ctx context.Context, tokenHash string) error
}

type accessChecker interface {
	Require(ctx context.Context, userID string, perm access.Permission, resourceID string) error
}

// commentIndex receives fire-and-forget index updates for comment text.
type commentIndex interface {
	IndexComment(rec search.CommentRecord)
	DeleteComment(id string)
	Search(ctx context.Context, q search.Query) search.Response
}

type Service struct {
	cfg      config.Config
	store    dataStore
	sessions sessionStore
	checker  accessChecker
	passwords *authpw.Service
	index    commentIndex // may be nil
	log      zerolog.Logger
	db       *sql.DB // readiness probe only; nil in tests

	now func() time.Time
}

func NewService(cfg config.Config, st dataStore, sessions sessionStore, checker accessChecker, passwords *authpw.Service, index commentIndex, db *sql.DB, log zerolog.Logger) *Service {
	return &Service{
		cfg:       cfg,
		store:     st,
		sessions:  sessions,
		checker:   checker,
		passwords: passwords,
		index:     index,
		db:        db,
		log:       log,
		now:       time.Now,
	}
}

func (s *Service) Ping(ctx context.Context) error {
	if s.db == nil {
		return nil
	}
	return s.db.PingContext(ctx)
}

// Session is the authenticated caller attached to each request. Token and
// RefreshToken are only populated on issue.
type Session struct {
	UserID       string
	UserName     string
	Email        string
	JTI          string
	Exp          int64
	Token        string
	RefreshToken string
}

func (s *Service) SignUp(ctx context.Context, email, password, displayName string) (Session, error) {
	user, err := s.passwords.SignUp(ctx, authpw.SignUpRequest{Email: email, Password: password, DisplayName: displayName})
	if err != nil {
		if errors.Is(err, store.ErrConflict) {
			return Session{}, domainError(http.StatusConflict, "EMAIL_EXISTS", "Email already registered", nil)
		}
		return Session{}, domainError(http.StatusBadRequest, "INVALID_SIGNUP", err.Error(), nil)
	}
	return s.issueSession(ctx, user)
}

func (s *Service) SignIn(ctx context.Context, email, password string) (Session, error) {
	user, err := s.passwords.SignIn(ctx, authpw.SignInRequest{Email: email, Password: password})
	if err != nil {
		return Session{}, domainError(http.StatusUnauthorized, "INVALID_CREDENTIALS", "Invalid email or password", nil)
	}
	return s.issueSession(ctx, user)
}

func (s *Service) issueSession(ctx context.Context, user store.User) (Session, error) {
	jti := util.NewID()
	exp := s.now().Add(s.cfg.AccessTTL).Unix()
	token, err := auth.IssueToken([]byte(s.cfg.TokenSecret), auth.Claims{
		Sub:   user.ID,
		Email: user.Email,
		Name:  user.DisplayName,
		JTI:   jti,
		Exp:   exp,
	})
	if err != nil {
		return Session{}, fmt.Errorf("issue access token: %w", err)
	}

	refreshToken, err := util.NewSecretToken()
	if err != nil {
		return Session{}, fmt.Errorf("generate refresh token: %w", err)
	}
	refreshExpiry := s.now().Add(s.cfg.RefreshTTL)
	if err := s.sessions.SaveRefreshSession(ctx, auth.HashToken(refreshToken), user.ID, refreshExpiry); err != nil {
		return Session{}, err
	}

	return Session{
		UserID:       user.ID,
		UserName:     user.DisplayName,
		Email:        user.Email,
		JTI:          jti,
		Exp:          exp,
		Token:        token,
		RefreshToken: refreshToken,
	}, nil
}

func (s *Service) SessionFromToken(ctx context.Context, token string) (Session, error) {
	claims, err := auth.ParseToken([]byte(s.cfg.TokenSecret), token)
	if err != nil {
		return Session{}, err
	}
	revoked, err := s.store.IsAccessTokenRevoked(ctx, claims.JTI)
	if err != nil {
		return Session{}, err
	}
	if revoked {
		return Session{}, auth.ErrInvalidToken
	}
	return Session{
		UserID:   claims.Sub,
		UserName: claims.Name,
		Email:    claims.Email,
		JTI:      claims.JTI,
		Exp:      claims.Exp,
	}, nil
}

// Refresh rotates a refresh token: the old session is revoked and a new
// access/refresh pair is issued from the current user row.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (Session, error) {
	hash := auth.HashToken(refreshToken)
	sessionUser, err := s.sessions.LookupRefreshSession(ctx, hash)
	if err != nil {
		return Session{}, auth.ErrInvalidToken
	}
	user, err := s.store.GetUserByID(ctx, sessionUser.ID)
	if err != nil {
		return Session{}, auth.ErrInvalidToken
	}
	if err := s.sessions.RevokeRefreshSession(ctx, hash); err != nil {
		return Session{}, err
	}
	return s.issueSession(ctx, user)
}

func (s *Service) Logout(ctx context.Context, session Session, refreshToken string) error {
	if session.JTI != "" {
		exp := time.Unix(session.Exp, 0)
		if err := s.store.RevokeAccessToken(ctx, session.JTI, exp); err != nil {
			s.log.Warn().Err(err).Msg("revoke access token")
		}
	}
	if refreshToken != "" {
		if err := s.sessions.RevokeRefreshSession(ctx, auth.HashToken(refreshToken)); err != nil {
			s.log.Warn().Err(err).Msg("revoke refresh session")
		}
	}
	return nil
}

// ActivityResponse is the wire shape of one activity. Type is derived, not
// stored: a reaction token wins, then the like flag, then comment.
type ActivityResponse struct {
	ID        string     `json:"id"`
	Type      string     `json:"type"`
	UserID    string     `json:"userId"`
	UserName  string     `json:"userName"`
	AlbumID   *string    `json:"albumId"`
	AssetID   *string    `json:"assetId"`
	ParentID  *string    `json:"parentId,omitempty"`
	Comment   *string    `json:"comment,omitempty"`
	Reaction  *string    `json:"reaction,omitempty"`
	EditedAt  *time.Time `json:"editedAt,omitempty"`
	CreatedAt time.Time  `json:"createdAt"`
}

func mapActivity(item store.Activity) ActivityResponse {
	activityType := "comment"
	switch {
	case item.Reaction != nil:
		activityType = "reaction"
	case item.IsLiked:
		activityType = "like"
	}
	return ActivityResponse{
		ID:        item.ID,
		Type:      activityType,
		UserID:    item.UserID,
		UserName:  item.UserName,
		AlbumID:   item.AlbumID,
		AssetID:   item.AssetID,
		ParentID:  item.ParentID,
		Comment:   item.Comment,
		Reaction:  item.Reaction,
		EditedAt:  item.EditedAt,
		CreatedAt: item.CreatedAt,
	}
}

func mapActivities(items []store.Activity) []ActivityResponse {
	out := make([]ActivityResponse, 0, len(items))
	for _, item := range items {
		out = append(out, mapActivity(item))
	}
	return out
}

// ListActivitiesRequest selects activities for one scope. Exactly one of
// AlbumID/AssetID must be set for authorization to resolve; both may be set.
// HasParent/ParentID carry the tri-state reply filter.
type ListActivitiesRequest struct {
	AlbumID   string
	AssetID   string
	UserID    string
	Type      string // "", "comment", "like"
	Level     string // "", "album", "asset"
	HasParent bool
	ParentID  string // with HasParent: "" means top-level only
}

func (s *Service) ListActivities(ctx context.Context, session Session, req ListActivitiesRequest) ([]ActivityResponse, error) {
	filter, err := s.authorizedFilter(ctx, session, req)
	if err != nil {
		return nil, err
	}

	items, err := s.store.SearchActivities(ctx, filter)
	if err != nil {
		return nil, err
	}
	return mapActivities(items), nil
}

// authorizedFilter checks scope access and translates the request into a
// store filter. Album context dominates: level=album forces the asset
// filter to explicit-null, and an album-less asset query switches to
// asset-only matching.
func (s *Service) authorizedFilter(ctx context.Context, session Session, req ListActivitiesRequest) (store.ActivitySearch, error) {
	if req.AlbumID == "" && req.AssetID == "" {
		return store.ActivitySearch{}, domainError(http.StatusBadRequest, "VALIDATION_ERROR", "albumId or assetId is required", nil)
	}

	if req.AlbumID != "" {
		if err := s.checker.Require(ctx, session.UserID, access.AlbumRead, req.AlbumID); err != nil {
			return store.ActivitySearch{}, err
		}
	} else {
		if err := s.checker.Require(ctx, session.UserID, access.AssetRead, req.AssetID); err != nil {
			return store.ActivitySearch{}, err
		}
	}

	var filter store.ActivitySearch

	switch req.Level {
	case "album":
		filter.AssetID = store.MatchNull()
	case "", "asset":
		if req.AssetID != "" {
			filter.AssetID = store.MatchValue(req.AssetID)
		}
	default:
		return store.ActivitySearch{}, domainError(http.StatusBadRequest, "VALIDATION_ERROR", "level must be album or asset", nil)
	}

	if req.AlbumID != "" {
		filter.AlbumID = store.MatchValue(req.AlbumID)
	} else {
		filter.AssetOnly = true
	}

	switch req.Type {
	case "like":
		liked := true
		filter.IsLiked = &liked
	case "comment":
		// The liked flag cannot distinguish comments from reactions;
		// filter on the comment column itself.
		filter.CommentsOnly = true
	case "":
	default:
		return store.ActivitySearch{}, domainError(http.StatusBadRequest, "VALIDATION_ERROR", "type must be comment or like", nil)
	}

	if req.HasParent {
		if req.ParentID == "" {
			filter.ParentID = store.MatchNull()
		} else {
			filter.ParentID = store.MatchValue(req.ParentID)
		}
	}

	filter.UserID = req.UserID
	return filter, nil
}

func (s *Service) ActivityStatistics(ctx context.Context, session Session, albumID, assetID string) (store.ActivityStatistics, error) {
	if albumID == "" && assetID == "" {
		return store.ActivityStatistics{}, domainError(http.StatusBadRequest, "VALIDATION_ERROR", "albumId or assetId is required", nil)
	}

	if albumID != "" {
		if err := s.checker.Require(ctx, session.UserID, access.AlbumRead, albumID); err != nil {
			return store.ActivityStatistics{}, err
		}
	} else {
		if err := s.checker.Require(ctx, session.UserID, access.AssetRead, assetID); err != nil {
			return store.ActivityStatistics{}, err
		}
	}

	var albumPtr, assetPtr *string
	if albumID != "" {
		albumPtr = &albumID
	}
	if assetID != "" {
		assetPtr = &assetID
	}
	return s.store.ActivityStatistics(ctx, albumPtr, assetPtr)
}

type CreateActivityRequest struct {
	AlbumID  string
	AssetID  string
	ParentID string
	Type     string // comment | like | reaction
	Comment  string
	Reaction string
}

// CreateActivityResult reports whether an equivalent like or reaction
// already existed. Activity is the created row, or the existing one when
// Duplicate is set.
type CreateActivityResult struct {
	Duplicate bool             `json:"duplicate"`
	Activity  ActivityResponse `json:"activity"`
}

// CreateActivity runs the full create flow: scope authorization, parent
// resolution with context inheritance, per-type normalization, duplicate
// pre-check, and insert. A unique-index race on insert is absorbed back
// into the duplicate response.
//
// Three scope modes: an album context requires the activity-create
// permission, an album-less asset requires asset read, and a bare parentId
// inherits the parent's context and authorizes against that.
func (s *Service) CreateActivity(ctx context.Context, session Session, req CreateActivityRequest) (CreateActivityResult, error) {
	if req.AlbumID == "" && req.AssetID == "" && req.ParentID == "" {
		return CreateActivityResult{}, domainError(http.StatusBadRequest, "VALIDATION_ERROR", "albumId, assetId, or parentId is required", nil)
	}

	albumID := req.AlbumID
	assetID := req.AssetID
	var parentID *string
	if req.ParentID != "" {
		parentID = &req.ParentID
	}

	switch {
	case albumID != "":
		if err := s.checker.Require(ctx, session.UserID, access.ActivityCreate, albumID); err != nil {
			return CreateActivityResult{}, err
		}
	case assetID != "":
		if err := s.checker.Require(ctx, session.UserID, access.AssetRead, assetID); err != nil {
			return CreateActivityResult{}, err
		}
	default:
		parent, err := s.store.GetActivity(ctx, req.ParentID)
		if errors.Is(err, sql.ErrNoRows) {
			return CreateActivityResult{}, domainError(http.StatusNotFound, "NOT_FOUND", "Parent activity not found", nil)
		}
		if err != nil {
			return CreateActivityResult{}, err
		}

		// The reply takes over the parent's context and is authorized
		// against it.
		if parent.AlbumID != nil {
			albumID = *parent.AlbumID
		}
		if parent.AssetID != nil {
			assetID = *parent.AssetID
		}
		if parent.AlbumID != nil {
			if err := s.checker.Require(ctx, session.UserID, access.ActivityCreate, *parent.AlbumID); err != nil {
				return CreateActivityResult{}, err
			}
		} else if parent.AssetID != nil {
			if err := s.checker.Require(ctx, session.UserID, access.AssetRead, *parent.AssetID); err != nil {
				return CreateActivityResult{}, err
			}
		}
	}

	if albumID != "" && assetID != "" {
		in, err := s.store.AssetInAlbum(ctx, albumID, assetID)
		if err != nil {
			return CreateActivityResult{}, err
		}
		if !in {
			return CreateActivityResult{}, domainError(http.StatusBadRequest, "VALIDATION_ERROR", "asset does not belong to the album", nil)
		}
	}

	item := store.Activity{
		ID:     util.NewID(),
		UserID: session.UserID,
	}
	if albumID != "" {
		item.AlbumID = &albumID
	}
	if assetID != "" {
		item.AssetID = &assetID
	}
	item.ParentID = parentID

	// dedup matches the partial unique indexes: one like, one reaction per
	// token, per (asset, user, album) scope at any thread depth. An absent
	// album or asset pins the corresponding column to NULL.
	dedup := store.ActivitySearch{
		UserID: session.UserID,
	}
	if albumID != "" {
		dedup.AlbumID = store.MatchValue(albumID)
	} else {
		dedup.AlbumID = store.MatchNull()
	}
	if assetID != "" {
		dedup.AssetID = store.MatchValue(assetID)
	} else {
		dedup.AssetID = store.MatchNull()
	}

	switch req.Type {
	case "comment":
		text := strings.TrimSpace(req.Comment)
		if text == "" {
			return CreateActivityResult{}, domainError(http.StatusBadRequest, "VALIDATION_ERROR", "comment text is required", nil)
		}
		item.Comment = &text
		// Comments are never deduplicated.
		return s.insertActivity(ctx, item, nil)

	case "like":
		liked := true
		item.IsLiked = true
		dedup.IsLiked = &liked

	case "reaction":
		token := strings.TrimSpace(req.Reaction)
		if token == "" {
			return CreateActivityResult{}, domainError(http.StatusBadRequest, "VALIDATION_ERROR", "reaction token is required", nil)
		}
		if utf8.RuneCountInString(token) > maxReactionLength {
			return CreateActivityResult{}, domainError(http.StatusBadRequest, "VALIDATION_ERROR", "reaction token too long", nil)
		}
		item.Reaction = &token
		dedup.Reaction = token

	default:
		return CreateActivityResult{}, domainError(http.StatusBadRequest, "VALIDATION_ERROR", "type must be comment, like, or reaction", nil)
	}

	existing, err := s.store.SearchActivities(ctx, dedup)
	if err != nil {
		return CreateActivityResult{}, err
	}
	if len(existing) > 0 {
		return CreateActivityResult{Duplicate: true, Activity: mapActivity(existing[0])}, nil
	}

	return s.insertActivity(ctx, item, &dedup)
}

// insertActivity writes the row. When the insert loses a duplicate race
// (ErrConflict) and a dedup filter is available, the existing row is
// re-read and returned as a duplicate instead of an error.
func (s *Service) insertActivity(ctx context.Context, item store.Activity, dedup *store.ActivitySearch) (CreateActivityResult, error) {
	created, err := s.store.CreateActivity(ctx, item)
	if err != nil {
		if dedup != nil && errors.Is(err, store.ErrConflict) {
			existing, searchErr := s.store.SearchActivities(ctx, *dedup)
			if searchErr == nil && len(existing) > 0 {
				return CreateActivityResult{Duplicate: true, Activity: mapActivity(existing[0])}, nil
			}
			// The winning row vanished before the re-read; surface the conflict.
		}
		return CreateActivityResult{}, err
	}

	if created.Comment != nil && s.index != nil && created.AlbumID != nil {
		s.index.IndexComment(commentRecord(created))
	}
	return CreateActivityResult{Activity: mapActivity(created)}, nil
}

func commentRecord(item store.Activity) search.CommentRecord {
	rec := search.CommentRecord{
		ID:        item.ID,
		UserID:    item.UserID,
		UserName:  item.UserName,
		CreatedAt: item.CreatedAt,
	}
	if item.AlbumID != nil {
		rec.AlbumID = *item.AlbumID
	}
	if item.AssetID != nil {
		rec.AssetID = *item.AssetID
	}
	if item.Comment != nil {
		rec.Comment = *item.Comment
	}
	return rec
}

// UpdateActivity edits a comment's text. Only the author may edit, only
// comments are editable, and the edit is stamped with editedAt.
func (s *Service) UpdateActivity(ctx context.Context, session Session, activityID, comment string) (ActivityResponse, error) {
	item, err := s.store.GetActivity(ctx, activityID)
	if err != nil {
		return ActivityResponse{}, err
	}
	if item.Comment == nil {
		return ActivityResponse{}, domainError(http.StatusBadRequest, "VALIDATION_ERROR", "only comments can be edited", nil)
	}
	if item.UserID != session.UserID {
		return ActivityResponse{}, domainError(http.StatusForbidden, "FORBIDDEN", "Only the author can edit a comment", nil)
	}
	text := strings.TrimSpace(comment)
	if text == "" {
		return ActivityResponse{}, domainError(http.StatusBadRequest, "VALIDATION_ERROR", "comment text is required", nil)
	}

	updated, err := s.store.UpdateActivityComment(ctx, activityID, text, s.now())
	if err != nil {
		return ActivityResponse{}, err
	}
	if s.index != nil && updated.AlbumID != nil {
		s.index.IndexComment(commentRecord(updated))
	}
	return mapActivity(updated), nil
}

// DeleteActivity removes an activity. The author may always delete their
// own; the album owner may moderate anything in their album. Deleting an
// already-deleted id succeeds.
func (s *Service) DeleteActivity(ctx context.Context, session Session, activityID string) error {
	err := s.checker.Require(ctx, session.UserID, access.ActivityDelete, activityID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}
	if err != nil {
		return err
	}
	if err := s.store.DeleteActivity(ctx, activityID); err != nil {
		return err
	}
	if s.index != nil {
		s.index.DeleteComment(activityID)
	}
	return nil
}

func (s *Service) SearchComments(ctx context.Context, session Session, albumID, text string, limit, offset int) (search.Response, error) {
	if albumID == "" {
		return search.Response{}, domainError(http.StatusBadRequest, "VALIDATION_ERROR", "albumId is required", nil)
	}
	if err := s.checker.Require(ctx, session.UserID, access.AlbumRead, albumID); err != nil {
		return search.Response{}, err
	}
	if s.index == nil {
		return search.Response{Results: []search.Result{}, Query: text}, nil
	}
	return s.index.Search(ctx, search.Query{Text: text, AlbumID: albumID, Limit: limit, Offset: offset}), nil
}

type AlbumResponse struct {
	ID              string    `json:"id"`
	OwnerID         string    `json:"ownerId"`
	Name            string    `json:"name"`
	Description     string    `json:"description"`
	ActivityEnabled bool      `json:"activityEnabled"`
	CreatedAt       time.Time `json:"createdAt"`
}

func mapAlbum(album store.Album) AlbumResponse {
	return AlbumResponse{
		ID:              album.ID,
		OwnerID:         album.OwnerID,
		Name:            album.Name,
		Description:     album.Description,
		ActivityEnabled: album.ActivityEnabled,
		CreatedAt:       album.CreatedAt,
	}
}

func (s *Service) CreateAlbum(ctx context.Context, session Session, name, description string) (AlbumResponse, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return AlbumResponse{}, domainError(http.StatusBadRequest, "VALIDATION_ERROR", "album name is required", nil)
	}
	album, err := s.store.CreateAlbum(ctx, store.Album{
		ID:              util.NewID(),
		OwnerID:         session.UserID,
		Name:            name,
		Description:     description,
		ActivityEnabled: true,
	})
	if err != nil {
		return AlbumResponse{}, err
	}
	return mapAlbum(album), nil
}

func (s *Service) ListAlbums(ctx context.Context, session Session) ([]AlbumResponse, error) {
	albums, err := s.store.ListAlbumsForUser(ctx, session.UserID)
	if err != nil {
		return nil, err
	}
	out := make([]AlbumResponse, 0, len(albums))
	for _, album := range albums {
		out = append(out, mapAlbum(album))
	}
	return out, nil
}

// SetAlbumActivity toggles whether members may post activity. Owner only.
func (s *Service) SetAlbumActivity(ctx context.Context, session Session, albumID string, enabled bool) error {
	album, err := s.store.GetAlbum(ctx, albumID)
	if err != nil {
		return err
	}
	if album.OwnerID != session.UserID {
		return domainError(http.StatusForbidden, "FORBIDDEN", "Only the album owner can change activity settings", nil)
	}
	return s.store.SetAlbumActivityEnabled(ctx, albumID, enabled)
}

func (s *Service) AddAlbumUser(ctx context.Context, session Session, albumID, userID, role string) error {
	album, err := s.store.GetAlbum(ctx, albumID)
	if err != nil {
		return err
	}
	if album.OwnerID != session.UserID {
		return domainError(http.StatusForbidden, "FORBIDDEN", "Only the album owner can share the album", nil)
	}
	if _, err := s.store.GetUserByID(ctx, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domainError(http.StatusBadRequest, "VALIDATION_ERROR", "user not found", nil)
		}
		return err
	}
	if role == "" {
		role = "viewer"
	}
	return s.store.AddAlbumMember(ctx, albumID, userID, role)
}

// AddAlbumAsset links an asset into an album. The owner and members may
// contribute.
func (s *Service) AddAlbumAsset(ctx context.Context, session Session, albumID, assetID string) error {
	if err := s.checker.Require(ctx, session.UserID, access.AlbumRead, albumID); err != nil {
		return err
	}
	if err := s.checker.Require(ctx, session.UserID, access.AssetRead, assetID); err != nil {
		return err
	}
	return s.store.AttachAssetToAlbum(ctx, albumID, assetID)
}

type AssetResponse struct {
	ID         string    `json:"id"`
	OwnerID    string    `json:"ownerId"`
	FileName   string    `json:"fileName"`
	Visibility string    `json:"visibility"`
	CreatedAt  time.Time `json:"createdAt"`
}

func (s *Service) CreateAsset(ctx context.Context, session Session, fileName, visibility string) (AssetResponse, error) {
	if strings.TrimSpace(fileName) == "" {
		return AssetResponse{}, domainError(http.StatusBadRequest, "VALIDATION_ERROR", "fileName is required", nil)
	}
	switch visibility {
	case "":
		visibility = "timeline"
	case "timeline", "hidden", "locked":
	default:
		return AssetResponse{}, domainError(http.StatusBadRequest, "VALIDATION_ERROR", "visibility must be timeline, hidden, or locked", nil)
	}
	asset, err := s.store.CreateAsset(ctx, store.Asset{
		ID:         util.NewID(),
		OwnerID:    session.UserID,
		FileName:   fileName,
		Visibility: visibility,
	})
	if err != nil {
		return AssetResponse{}, err
	}
	return AssetResponse{
		ID:         asset.ID,
		OwnerID:    asset.OwnerID,
		FileName:   asset.FileName,
		Visibility: asset.Visibility,
		CreatedAt:  asset.CreatedAt,
	}, nil
}
