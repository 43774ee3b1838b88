package services

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"strings"

	"github.com/clipstream/clipstream/internal/common"
	"github.com/clipstream/clipstream/internal/dbx"
	"github.com/clipstream/clipstream/internal/server/models"
	"github.com/clipstream/clipstream/internal/server/passwords"
	"github.com/clipstream/clipstream/internal/server/repositories/repomanager"
)

// MediaFile is an uploaded file handed down from the transport layer.
type MediaFile struct {
	Name string
	Body io.Reader
}

// RegisterInput carries everything needed to create an account. Avatar is
// required; CoverImage may be nil.
type RegisterInput struct {
	Username   string
	Email      string
	FullName   string
	Password   string
	Avatar     *MediaFile
	CoverImage *MediaFile
}

// UserService handles account profiles, subscriptions, and the two aggregate
// reads (channel profile, watch history).
type UserService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	hasher      *passwords.Hasher
	uploader    Uploader
}

func NewUserService(db *sql.DB, m repomanager.RepositoryManager, hasher *passwords.Hasher, uploader Uploader) *UserService {
	return &UserService{
		db:          db,
		repomanager: m,
		hasher:      hasher,
		uploader:    uploader,
	}
}

// Register uploads the profile images, hashes the password, and creates the
// account. Usernames are stored lowercase. A taken username or email fails
// with ErrorAlreadyExists.
func (s *UserService) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	if in.Avatar == nil {
		return nil, common.ErrorValidation
	}

	username := strings.ToLower(in.Username)

	repo := s.repomanager.Users(s.db)
	exists, err := repo.ExistsByUsernameOrEmail(ctx, username, in.Email)
	if err != nil {
		return nil, common.ErrorInternal
	}
	if exists {
		return nil, common.ErrorAlreadyExists
	}

	avatarURL, err := s.uploader.Upload(ctx, "avatars", in.Avatar.Name, in.Avatar.Body)
	if err != nil {
		return nil, common.ErrorInternal
	}

	coverURL := ""
	if in.CoverImage != nil {
		coverURL, err = s.uploader.Upload(ctx, "covers", in.CoverImage.Name, in.CoverImage.Body)
		if err != nil {
			return nil, common.ErrorInternal
		}
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, common.ErrorInternal
	}

	user := &models.User{
		Username:     username,
		Email:        in.Email,
		FullName:     in.FullName,
		Avatar:       avatarURL,
		CoverImage:   coverURL,
		PasswordHash: hash,
	}

	created, err := repo.Create(ctx, user)
	if err != nil {
		return nil, common.ErrorInternal
	}
	return created, nil
}

// CurrentUser returns the account record for an authenticated user id.
func (s *UserService) CurrentUser(ctx context.Context, userID string) (*models.User, error) {
	user, err := s.repomanager.Users(s.db).GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorNotFound
		}
		return nil, common.ErrorInternal
	}
	return user, nil
}

// UpdateAccount patches the full name and email.
func (s *UserService) UpdateAccount(ctx context.Context, userID, fullName, email string) (*models.User, error) {
	user, err := s.repomanager.Users(s.db).UpdateProfile(ctx, userID, fullName, email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorNotFound
		}
		return nil, common.ErrorInternal
	}
	return user, nil
}

// UpdateAvatar uploads a replacement avatar and stores its URL.
func (s *UserService) UpdateAvatar(ctx context.Context, userID string, file *MediaFile) (*models.User, error) {
	return s.updateImage(ctx, userID, "avatars", file, s.repomanager.Users(s.db).UpdateAvatar)
}

// UpdateCoverImage uploads a replacement cover image and stores its URL.
func (s *UserService) UpdateCoverImage(ctx context.Context, userID string, file *MediaFile) (*models.User, error) {
	return s.updateImage(ctx, userID, "covers", file, s.repomanager.Users(s.db).UpdateCoverImage)
}

func (s *UserService) updateImage(ctx context.Context, userID, folder string, file *MediaFile, persist func(context.Context, string, string) (*models.User, error)) (*models.User, error) {
	if file == nil {
		return nil, common.ErrorValidation
	}

	url, err := s.uploader.Upload(ctx, folder, file.Name, file.Body)
	if err != nil {
		return nil, common.ErrorInternal
	}

	user, err := persist(ctx, userID, url)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorNotFound
		}
		return nil, common.ErrorInternal
	}
	return user, nil
}

// ChannelProfile returns the channel view of username as seen by viewerID.
func (s *UserService) ChannelProfile(ctx context.Context, username, viewerID string) (*models.ChannelProfile, error) {
	p, err := s.repomanager.Users(s.db).GetChannelProfile(ctx, strings.ToLower(username), viewerID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorNotFound
		}
		return nil, common.ErrorInternal
	}
	return p, nil
}

// WatchHistory returns the user's watched videos, newest first, each joined
// with its owner's public fields.
func (s *UserService) WatchHistory(ctx context.Context, userID string) ([]models.WatchHistoryEntry, error) {
	entries, err := s.repomanager.WatchHistory(s.db).List(ctx, userID)
	if err != nil {
		return nil, common.ErrorInternal
	}
	return entries, nil
}

// RecordWatch appends videoID to the user's watch history. The video must
// exist; re-watching bumps the entry to the top.
func (s *UserService) RecordWatch(ctx context.Context, userID, videoID string) error {
	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if _, err := s.repomanager.Videos(tx).GetByID(ctx, videoID); err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				return common.ErrorNotFound
			}
			return common.ErrorInternal
		}
		if err := s.repomanager.WatchHistory(tx).Record(ctx, userID, videoID); err != nil {
			return common.ErrorInternal
		}
		return nil
	})
}

// Subscribe makes userID follow channelID. Self-subscription is rejected.
func (s *UserService) Subscribe(ctx context.Context, userID, channelID string) error {
	if userID == channelID {
		return common.ErrorValidation
	}

	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if _, err := s.repomanager.Users(tx).GetByID(ctx, channelID); err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				return common.ErrorNotFound
			}
			return common.ErrorInternal
		}
		if err := s.repomanager.Subscriptions(tx).Subscribe(ctx, userID, channelID); err != nil {
			return common.ErrorInternal
		}
		return nil
	})
}

// Unsubscribe removes the follow; unsubscribing when not subscribed succeeds.
func (s *UserService) Unsubscribe(ctx context.Context, userID, channelID string) error {
	if err := s.repomanager.Subscriptions(s.db).Unsubscribe(ctx, userID, channelID); err != nil {
		return common.ErrorInternal
	}
	return nil
}
