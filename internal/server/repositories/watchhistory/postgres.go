package watchhistory

import (
	"context"
	"fmt"

	"github.com/clipstream/clipstream/internal/dbx"
	"github.com/clipstream/clipstream/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Record(ctx context.Context, userID, videoID string) error {
	query :=
		`INSERT INTO watch_history (user_id, video_id)
		 VALUES ($1, $2)
		 ON CONFLICT (user_id, video_id) DO UPDATE SET watched_at = now()`

	if _, err := r.db.ExecContext(ctx, query, userID, videoID); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) List(ctx context.Context, userID string) ([]models.WatchHistoryEntry, error) {
	// The nested lookup: watched videos joined with each video's owner,
	// projected down to the owner's public fields.
	query :=
		`SELECT v.id, v.owner_id, v.title, v.description, v.video_file, v.thumbnail,
		        v.duration, v.views, v.is_published, v.created_at,
		        o.username, o.full_name, o.avatar,
		        wh.watched_at
		 FROM watch_history wh
		 JOIN videos v ON v.id = wh.video_id
		 JOIN users o ON o.id = v.owner_id
		 WHERE wh.user_id = $1
		 ORDER BY wh.watched_at DESC
		 `

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	entries := make([]models.WatchHistoryEntry, 0)
	for rows.Next() {
		var e models.WatchHistoryEntry
		err := rows.Scan(
			&e.ID, &e.OwnerID, &e.Title, &e.Description, &e.VideoFile, &e.Thumbnail,
			&e.Duration, &e.Views, &e.IsPublished, &e.CreatedAt,
			&e.Owner.Username, &e.Owner.FullName, &e.Owner.Avatar,
			&e.WatchedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return entries, nil
}
