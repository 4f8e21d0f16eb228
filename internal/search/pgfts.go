package search

import (
	"context"
	"database/sql"
	"fmt"
)

// PgFTS searches comments directly in Postgres. It is the fallback when
// Meilisearch is down or not configured.
type PgFTS struct {
	db *sql.DB
}

func NewPgFTS(db *sql.DB) *PgFTS {
	return &PgFTS{db: db}
}

func (p *PgFTS) Search(ctx context.Context, q Query) ([]Result, int, error) {
	limit := q.Limit
	if limit == 0 {
		limit = 20
	}

	rows, err := p.db.QueryContext(ctx, `
		SELECT a.id, a.album_id, COALESCE(a.asset_id, ''), u.display_name, a.comment, a.created_at,
			COUNT(*) OVER() AS total
		FROM activity a
		JOIN users u ON u.id = a.user_id
		LEFT JOIN assets ast ON ast.id = a.asset_id
		WHERE a.comment IS NOT NULL
			AND a.album_id = $1
			AND u.deleted_at IS NULL
			AND ((ast.deleted_at IS NULL AND ast.visibility != 'locked') OR a.asset_id IS NULL)
			AND to_tsvector('simple', a.comment) @@ websearch_to_tsquery('simple', $2)
		ORDER BY a.created_at DESC
		LIMIT $3 OFFSET $4
	`, q.AlbumID, q.Text, limit, q.Offset)
	if err != nil {
		return nil, 0, fmt.Errorf("pgfts search: %w", err)
	}
	defer rows.Close()

	var (
		results = make([]Result, 0)
		total   int
	)
	for rows.Next() {
		var r Result
		if err := rows.Scan(&r.ID, &r.AlbumID, &r.AssetID, &r.UserName, &r.Comment, &r.CreatedAt, &total); err != nil {
			return nil, 0, fmt.Errorf("scan pgfts result: %w", err)
		}
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate pgfts results: %w", err)
	}
	return results, total, nil
}
