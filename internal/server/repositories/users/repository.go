package users

import (
	"context"

	"github.com/clipstream/clipstream/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, user *models.User) (*models.User, error)

	// GetByLogin matches login against username or email and returns the full
	// row, credential fields included; callers strip them before responding.
	GetByLogin(ctx context.Context, login string) (*models.User, error)
	GetByID(ctx context.Context, id string) (*models.User, error)
	ExistsByUsernameOrEmail(ctx context.Context, username, email string) (bool, error)

	UpdateProfile(ctx context.Context, id, fullName, email string) (*models.User, error)
	UpdateAvatar(ctx context.Context, id, url string) (*models.User, error)
	UpdateCoverImage(ctx context.Context, id, url string) (*models.User, error)

	// SetRefreshToken unconditionally replaces the stored refresh token.
	SetRefreshToken(ctx context.Context, id, token string) error

	// RotateRefreshToken replaces the stored token only if it still equals
	// old (compare-and-swap). Returns common.ErrorNotFound when the stored
	// value has already changed.
	RotateRefreshToken(ctx context.Context, id, oldToken, newToken string) error

	// ClearRefreshToken unsets the stored token. Clearing an already-absent
	// token is a no-op success.
	ClearRefreshToken(ctx context.Context, id string) error

	// UpdatePassword stores a new password hash and revokes the current
	// refresh token in the same statement.
	UpdatePassword(ctx context.Context, id, passwordHash string) error

	// GetChannelProfile returns the channel view of the user with the given
	// username: public fields plus subscriber counters and whether viewerID
	// is subscribed.
	GetChannelProfile(ctx context.Context, username, viewerID string) (*models.ChannelProfile, error)
}
