package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
)

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) DB() *sql.DB {
	return s.db
}

func (s *PostgresStore) CreateUser(ctx context.Context, user User) (User, error) {
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO users (id, email, display_name, password_hash)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at, updated_at
	`, user.ID, user.Email, user.DisplayName, user.PasswordHash).Scan(&user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return User{}, fmt.Errorf("insert user: %w", ErrConflict)
		}
		return User{}, fmt.Errorf("insert user: %w", err)
	}
	return user, nil
}

func (s *PostgresStore) GetUserByEmail(ctx context.Context, email string) (User, error) {
	var user User
	err := s.db.QueryRowContext(ctx, `
		SELECT id, email, display_name, password_hash, deleted_at, created_at, updated_at
		FROM users
		WHERE email=$1 AND deleted_at IS NULL
	`, email).Scan(&user.ID, &user.Email, &user.DisplayName, &user.PasswordHash, &user.DeletedAt, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		return User{}, err
	}
	return user, nil
}

func (s *PostgresStore) GetUserByID(ctx context.Context, userID string) (User, error) {
	var user User
	err := s.db.QueryRowContext(ctx, `
		SELECT id, email, display_name, password_hash, deleted_at, created_at, updated_at
		FROM users
		WHERE id=$1 AND deleted_at IS NULL
	`, userID).Scan(&user.ID, &user.Email, &user.DisplayName, &user.PasswordHash, &user.DeletedAt, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		return User{}, err
	}
	return user, nil
}

func (s *PostgresStore) CreateAlbum(ctx context.Context, album Album) (Album, error) {
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO albums (id, owner_id, name, description, activity_enabled)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at, updated_at
	`, album.ID, album.OwnerID, album.Name, album.Description, album.ActivityEnabled).
		Scan(&album.CreatedAt, &album.UpdatedAt)
	if err != nil {
		return Album{}, fmt.Errorf("insert album: %w", err)
	}
	return album, nil
}

func (s *PostgresStore) GetAlbum(ctx context.Context, albumID string) (Album, error) {
	var album Album
	err := s.db.QueryRowContext(ctx, `
		SELECT id, owner_id, name, description, activity_enabled, created_at, updated_at
		FROM albums
		WHERE id=$1
	`, albumID).Scan(&album.ID, &album.OwnerID, &album.Name, &album.Description, &album.ActivityEnabled, &album.CreatedAt, &album.UpdatedAt)
	if err != nil {
		return Album{}, err
	}
	return album, nil
}

// ListAlbumsForUser returns albums the user owns or is a member of, newest
// first.
func (s *PostgresStore) ListAlbumsForUser(ctx context.Context, userID string) ([]Album, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT DISTINCT al.id, al.owner_id, al.name, al.description, al.activity_enabled, al.created_at, al.updated_at
		FROM albums al
		LEFT JOIN album_users au ON au.album_id = al.id
		WHERE al.owner_id = $1 OR au.user_id = $1
		ORDER BY al.created_at DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("list albums: %w", err)
	}
	defer rows.Close()

	items := make([]Album, 0)
	for rows.Next() {
		var album Album
		if err := rows.Scan(&album.ID, &album.OwnerID, &album.Name, &album.Description, &album.ActivityEnabled, &album.CreatedAt, &album.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan album: %w", err)
		}
		items = append(items, album)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate albums: %w", err)
	}
	return items, nil
}

func (s *PostgresStore) SetAlbumActivityEnabled(ctx context.Context, albumID string, enabled bool) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE albums SET activity_enabled=$2, updated_at=NOW() WHERE id=$1
	`, albumID, enabled)
	if err != nil {
		return fmt.Errorf("set album activity enabled: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (s *PostgresStore) AddAlbumMember(ctx context.Context, albumID, userID, role string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO album_users (album_id, user_id, role)
		VALUES ($1, $2, $3)
		ON CONFLICT (album_id, user_id) DO UPDATE SET role=EXCLUDED.role
	`, albumID, userID, role)
	if err != nil {
		return fmt.Errorf("add album member: %w", err)
	}
	return nil
}

func (s *PostgresStore) IsAlbumMember(ctx context.Context, albumID, userID string) (bool, error) {
	var member bool
	err := s.db.QueryRowContext(ctx, `
		SELECT EXISTS(SELECT 1 FROM album_users WHERE album_id=$1 AND user_id=$2)
	`, albumID, userID).Scan(&member)
	if err != nil {
		return false, fmt.Errorf("check album member: %w", err)
	}
	return member, nil
}

func (s *PostgresStore) CreateAsset(ctx context.Context, asset Asset) (Asset, error) {
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO assets (id, owner_id, file_name, visibility)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at, updated_at
	`, asset.ID, asset.OwnerID, asset.FileName, asset.Visibility).Scan(&asset.CreatedAt, &asset.UpdatedAt)
	if err != nil {
		return Asset{}, fmt.Errorf("insert asset: %w", err)
	}
	return asset, nil
}

func (s *PostgresStore) GetAsset(ctx context.Context, assetID string) (Asset, error) {
	var asset Asset
	err := s.db.QueryRowContext(ctx, `
		SELECT id, owner_id, file_name, visibility, deleted_at, created_at, updated_at
		FROM assets
		WHERE id=$1
	`, assetID).Scan(&asset.ID, &asset.OwnerID, &asset.FileName, &asset.Visibility, &asset.DeletedAt, &asset.CreatedAt, &asset.UpdatedAt)
	if err != nil {
		return Asset{}, err
	}
	return asset, nil
}

func (s *PostgresStore) AttachAssetToAlbum(ctx context.Context, albumID, assetID string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO album_assets (album_id, asset_id)
		VALUES ($1, $2)
		ON CONFLICT (album_id, asset_id) DO NOTHING
	`, albumID, assetID)
	if err != nil {
		return fmt.Errorf("attach asset to album: %w", err)
	}
	return nil
}

func (s *PostgresStore) AssetInAlbum(ctx context.Context, albumID, assetID string) (bool, error) {
	var in bool
	err := s.db.QueryRowContext(ctx, `
		SELECT EXISTS(SELECT 1 FROM album_assets WHERE album_id=$1 AND asset_id=$2)
	`, albumID, assetID).Scan(&in)
	if err != nil {
		return false, fmt.Errorf("check asset in album: %w", err)
	}
	return in, nil
}

// UserSharesAssetAlbum reports whether the user owns or is a member of any
// album containing the asset.
func (s *PostgresStore) UserSharesAssetAlbum(ctx context.Context, assetID, userID string) (bool, error) {
	var shared bool
	err := s.db.QueryRowContext(ctx, `
		SELECT EXISTS(
			SELECT 1
			FROM album_assets aa
			JOIN albums al ON al.id = aa.album_id
			LEFT JOIN album_users au ON au.album_id = al.id AND au.user_id = $2
			WHERE aa.asset_id = $1 AND (al.owner_id = $2 OR au.user_id IS NOT NULL)
		)
	`, assetID, userID).Scan(&shared)
	if err != nil {
		return false, fmt.Errorf("check shared asset album: %w", err)
	}
	return shared, nil
}

func (s *PostgresStore) SaveRefreshSession(ctx context.Context, tokenHash, userID string, expiresAt time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO refresh_sessions (token_hash, user_id, expires_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (token_hash) DO UPDATE SET user_id=EXCLUDED.user_id, expires_at=EXCLUDED.expires_at, revoked_at=NULL
	`, tokenHash, userID, expiresAt)
	if err != nil {
		return fmt.Errorf("save refresh session: %w", err)
	}
	return nil
}

func (s *PostgresStore) RevokeRefreshSession(ctx context.Context, tokenHash string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE refresh_sessions SET revoked_at=NOW() WHERE token_hash=$1`, tokenHash)
	if err != nil {
		return fmt.Errorf("revoke refresh session: %w", err)
	}
	return nil
}

func (s *PostgresStore) LookupRefreshSession(ctx context.Context, tokenHash string) (User, error) {
	const query = `
		SELECT u.id, u.email, u.display_name
		FROM refresh_sessions rs
		JOIN users u ON u.id = rs.user_id
		WHERE rs.token_hash = $1
			AND rs.revoked_at IS NULL
			AND rs.expires_at > NOW()
			AND u.deleted_at IS NULL
	`
	var user User
	err := s.db.QueryRowContext(ctx, query, tokenHash).Scan(&user.ID, &user.Email, &user.DisplayName)
	if err != nil {
		return User{}, err
	}
	return user, nil
}

func (s *PostgresStore) RevokeAccessToken(ctx context.Context, jti string, exp time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO revoked_access_tokens (jti, expires_at)
		VALUES ($1, $2)
		ON CONFLICT (jti) DO NOTHING
	`, jti, exp)
	if err != nil {
		return fmt.Errorf("revoke access token: %w", err)
	}
	return nil
}

func (s *PostgresStore) IsAccessTokenRevoked(ctx context.Context, jti string) (bool, error) {
	var revoked bool
	err := s.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM revoked_access_tokens WHERE jti=$1)`, jti).Scan(&revoked)
	if err != nil {
		return false, fmt.Errorf("check revoked token: %w", err)
	}
	return revoked, nil
}
