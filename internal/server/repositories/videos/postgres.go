package videos

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/clipstream/clipstream/internal/common"
	"github.com/clipstream/clipstream/internal/dbx"
	"github.com/clipstream/clipstream/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, video *models.Video) (*models.Video, error) {

	query :=
		`INSERT INTO videos (owner_id, title, description, video_file, thumbnail, duration, is_published)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING id, views, created_at
		 `

	err := r.db.QueryRowContext(ctx, query,
		video.OwnerID, video.Title, video.Description, video.VideoFile,
		video.Thumbnail, video.Duration, video.IsPublished,
	).Scan(&video.ID, &video.Views, &video.CreatedAt)

	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return video, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.Video, error) {
	query :=
		`SELECT id, owner_id, title, description, video_file, thumbnail, duration, views, is_published, created_at
		 FROM videos
		 WHERE id = $1
		 `

	video := &models.Video{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&video.ID, &video.OwnerID, &video.Title, &video.Description,
		&video.VideoFile, &video.Thumbnail, &video.Duration,
		&video.Views, &video.IsPublished, &video.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return video, nil
}
