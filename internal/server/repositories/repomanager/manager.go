package repomanager

import (
	"context"
	"database/sql"

	"github.com/clipstream/clipstream/internal/dbx"
	"github.com/clipstream/clipstream/internal/server/repositories/subscriptions"
	"github.com/clipstream/clipstream/internal/server/repositories/users"
	"github.com/clipstream/clipstream/internal/server/repositories/videos"
	"github.com/clipstream/clipstream/internal/server/repositories/watchhistory"
)

// RepositoryManager vends repositories bound to either the shared connection
// pool or a transaction, and owns schema migrations.
type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Users(db dbx.DBTX) users.Repository
	Subscriptions(db dbx.DBTX) subscriptions.Repository
	Videos(db dbx.DBTX) videos.Repository
	WatchHistory(db dbx.DBTX) watchhistory.Repository
}
