package watchhistory

import (
	"context"

	"github.com/clipstream/clipstream/internal/server/models"
)

type Repository interface {
	// Record marks videoID as watched by userID now. Re-watching bumps the
	// existing entry instead of duplicating it.
	Record(ctx context.Context, userID, videoID string) error

	// List returns the user's watched videos joined with the owner's public
	// fields, most recently watched first.
	List(ctx context.Context, userID string) ([]models.WatchHistoryEntry, error)
}
