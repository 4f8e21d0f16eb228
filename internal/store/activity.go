package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
)

// activityColumns is the shared select list for activity reads. The joined
// display name rides along so responses never need a second lookup.
const activityColumns = `
	a.id, a.user_id, u.display_name, a.album_id, a.asset_id, a.parent_id,
	a.comment, a.reaction, a.is_liked, a.edited_at, a.created_at, a.updated_at
`

// visibilityClause hides rows attached to a trashed or locked asset.
// Rows with no asset (album-level activity) always pass.
const visibilityClause = `((ast.deleted_at IS NULL AND ast.visibility != 'locked') OR a.asset_id IS NULL)`

func scanActivity(row interface{ Scan(...any) error }) (Activity, error) {
	var item Activity
	err := row.Scan(
		&item.ID,
		&item.UserID,
		&item.UserName,
		&item.AlbumID,
		&item.AssetID,
		&item.ParentID,
		&item.Comment,
		&item.Reaction,
		&item.IsLiked,
		&item.EditedAt,
		&item.CreatedAt,
		&item.UpdatedAt,
	)
	return item, err
}

// SearchActivities returns matching rows ordered oldest first. Filter fields
// follow the tri-state convention in ActivitySearch; rows authored by a
// soft-deleted user never match.
func (s *PostgresStore) SearchActivities(ctx context.Context, filter ActivitySearch) ([]Activity, error) {
	var (
		clauses []string
		args    []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	clauses = append(clauses, "u.deleted_at IS NULL", visibilityClause)

	if filter.AssetOnly {
		clauses = append(clauses, "a.album_id IS NULL")
	} else if filter.AlbumID.Set {
		if filter.AlbumID.IsNull() {
			clauses = append(clauses, "a.album_id IS NULL")
		} else {
			clauses = append(clauses, "a.album_id = "+arg(*filter.AlbumID.Value))
		}
	}

	if filter.AssetID.Set {
		if filter.AssetID.IsNull() {
			clauses = append(clauses, "a.asset_id IS NULL")
		} else {
			clauses = append(clauses, "a.asset_id = "+arg(*filter.AssetID.Value))
		}
	}

	if filter.ParentID.Set {
		if filter.ParentID.IsNull() {
			clauses = append(clauses, "a.parent_id IS NULL")
		} else {
			clauses = append(clauses, "a.parent_id = "+arg(*filter.ParentID.Value))
		}
	}

	if filter.UserID != "" {
		clauses = append(clauses, "a.user_id = "+arg(filter.UserID))
	}
	if filter.IsLiked != nil {
		clauses = append(clauses, "a.is_liked = "+arg(*filter.IsLiked))
	}
	if filter.Reaction != "" {
		clauses = append(clauses, "a.reaction = "+arg(filter.Reaction))
	}
	if filter.CommentsOnly {
		clauses = append(clauses, "a.comment IS NOT NULL")
	}

	query := `
		SELECT ` + activityColumns + `
		FROM activity a
		JOIN users u ON u.id = a.user_id
		LEFT JOIN assets ast ON ast.id = a.asset_id
		WHERE ` + strings.Join(clauses, " AND ") + `
		ORDER BY a.created_at ASC
	`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("search activities: %w", err)
	}
	defer rows.Close()

	items := make([]Activity, 0)
	for rows.Next() {
		item, err := scanActivity(rows)
		if err != nil {
			return nil, fmt.Errorf("scan activity: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate activities: %w", err)
	}
	return items, nil
}

func (s *PostgresStore) GetActivity(ctx context.Context, activityID string) (Activity, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+activityColumns+`
		FROM activity a
		JOIN users u ON u.id = a.user_id
		WHERE a.id = $1
	`, activityID)
	return scanActivity(row)
}

// CreateActivity inserts the row and returns it with timestamps and the
// author's display name filled in. A unique-index violation, meaning a
// concurrent duplicate like or reaction, is surfaced as ErrConflict.
func (s *PostgresStore) CreateActivity(ctx context.Context, item Activity) (Activity, error) {
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO activity (id, user_id, album_id, asset_id, parent_id, comment, reaction, is_liked)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at, updated_at
	`, item.ID, item.UserID, item.AlbumID, item.AssetID, item.ParentID, item.Comment, item.Reaction, item.IsLiked).
		Scan(&item.CreatedAt, &item.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return Activity{}, fmt.Errorf("insert activity: %w", ErrConflict)
		}
		return Activity{}, fmt.Errorf("insert activity: %w", err)
	}

	return s.GetActivity(ctx, item.ID)
}

func (s *PostgresStore) UpdateActivityComment(ctx context.Context, activityID, comment string, editedAt time.Time) (Activity, error) {
	_, err := s.db.ExecContext(ctx, `
		UPDATE activity
		SET comment=$2, edited_at=$3, updated_at=NOW()
		WHERE id=$1
	`, activityID, comment, editedAt)
	if err != nil {
		return Activity{}, fmt.Errorf("update activity comment: %w", err)
	}
	return s.GetActivity(ctx, activityID)
}

// DeleteActivity removes the row and, through the parent_id cascade, any
// replies and reactions threaded under it. Deleting a missing row is a no-op.
func (s *PostgresStore) DeleteActivity(ctx context.Context, activityID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM activity WHERE id=$1`, activityID)
	if err != nil {
		return fmt.Errorf("delete activity: %w", err)
	}
	return nil
}

// ActivityStatistics counts rows under the same visibility rules as search.
// Comments are counted at the top level only; likes and reactions count at
// every thread depth. A nil albumID matches asset-only rows.
func (s *PostgresStore) ActivityStatistics(ctx context.Context, albumID, assetID *string) (ActivityStatistics, error) {
	var (
		clauses []string
		args    []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	clauses = append(clauses, "u.deleted_at IS NULL", visibilityClause)

	if albumID != nil {
		clauses = append(clauses, "a.album_id = "+arg(*albumID))
	} else {
		clauses = append(clauses, "a.album_id IS NULL")
	}
	if assetID != nil {
		clauses = append(clauses, "a.asset_id = "+arg(*assetID))
	}

	query := `
		SELECT
			COUNT(*) FILTER (WHERE a.is_liked = FALSE AND a.reaction IS NULL AND a.parent_id IS NULL) AS comments,
			COUNT(*) FILTER (WHERE a.is_liked = TRUE) AS likes,
			COUNT(*) FILTER (WHERE a.reaction IS NOT NULL) AS reactions
		FROM activity a
		JOIN users u ON u.id = a.user_id
		LEFT JOIN assets ast ON ast.id = a.asset_id
		WHERE ` + strings.Join(clauses, " AND ")

	var stats ActivityStatistics
	err := s.db.QueryRowContext(ctx, query, args...).Scan(&stats.Comments, &stats.Likes, &stats.Reactions)
	if err != nil {
		return ActivityStatistics{}, fmt.Errorf("activity statistics: %w", err)
	}
	return stats, nil
}
