// Package services contains server-side business logic. This file implements
// SessionService, the state machine over a user's session: login, refresh
// with rotation-on-use, logout, and password changes.
package services

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/clipstream/clipstream/internal/common"
	"github.com/clipstream/clipstream/internal/server/auth"
	"github.com/clipstream/clipstream/internal/server/config"
	"github.com/clipstream/clipstream/internal/server/models"
	"github.com/clipstream/clipstream/internal/server/passwords"
	"github.com/clipstream/clipstream/internal/server/repositories/repomanager"
)

// TokenPair bundles a short-lived access token and a longer-lived refresh
// token. The refresh half is the only one ever persisted, as the single
// currently valid token on the user row.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// SessionService orchestrates credential verification and the session-token
// lifecycle. It is request-scoped and stateless between calls; all durable
// state lives on the user row.
type SessionService struct {
	db                           *sql.DB
	repomanager                  repomanager.RepositoryManager
	hasher                       *passwords.Hasher
	accessTokenSecret            []byte
	refreshTokenSecret           []byte
	accessTokenValidityDuration  time.Duration
	refreshTokenValidityDuration time.Duration
}

// NewSessionService constructs a SessionService from the immutable server
// config. Secrets and lifetimes are captured here, never read from ambient
// process state.
func NewSessionService(db *sql.DB, m repomanager.RepositoryManager, hasher *passwords.Hasher, cfg *config.Config) *SessionService {
	return &SessionService{
		db:                           db,
		repomanager:                  m,
		hasher:                       hasher,
		accessTokenSecret:            []byte(cfg.AccessTokenSecret),
		refreshTokenSecret:           []byte(cfg.RefreshTokenSecret),
		accessTokenValidityDuration:  cfg.AccessTokenValidityDuration,
		refreshTokenValidityDuration: cfg.RefreshTokenValidityDuration,
	}
}

// Login verifies the password for the account matching login (username or
// email) and, on success, issues a fresh token pair and persists its refresh
// half. Any previously stored refresh token is overwritten, so at most one
// session per account is ever valid.
func (s *SessionService) Login(ctx context.Context, login, password string) (*models.User, *TokenPair, error) {
	repo := s.repomanager.Users(s.db)

	user, err := repo.GetByLogin(ctx, login)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, nil, common.ErrorNotFound
		}
		return nil, nil, common.ErrorInternal
	}

	if !s.hasher.Verify(password, user.PasswordHash) {
		return nil, nil, common.ErrorInvalidCredentials
	}

	pair, err := s.issueTokenPair(user.ID)
	if err != nil {
		return nil, nil, common.ErrorInternal
	}

	if err := repo.SetRefreshToken(ctx, user.ID, pair.RefreshToken); err != nil {
		return nil, nil, common.ErrorInternal
	}

	return user, pair, nil
}

// Refresh exchanges a valid, currently stored refresh token for a new token
// pair. The stored token is replaced with a compare-and-swap, so the
// presented token is good for exactly one rotation: a replay, or a loss in a
// race with a concurrent refresh, fails with ErrTokenExpired.
func (s *SessionService) Refresh(ctx context.Context, presented string) (*TokenPair, error) {
	if presented == "" {
		return nil, common.ErrorUnauthorized
	}

	userID, err := auth.GetUserIDFromToken(presented, s.refreshTokenSecret)
	if err != nil {
		return nil, common.ErrInvalidToken
	}

	repo := s.repomanager.Users(s.db)

	user, err := repo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorUnauthorized
		}
		return nil, common.ErrorInternal
	}

	// The token verified cryptographically, but only the stored value is the
	// live one. A mismatch means it was rotated away or revoked.
	if !user.RefreshToken.Valid || user.RefreshToken.String != presented {
		return nil, common.ErrTokenExpired
	}

	pair, err := s.issueTokenPair(user.ID)
	if err != nil {
		return nil, common.ErrorInternal
	}

	if err := repo.RotateRefreshToken(ctx, user.ID, presented, pair.RefreshToken); err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrTokenExpired
		}
		return nil, common.ErrorInternal
	}

	return pair, nil
}

// Logout revokes the account's stored refresh token. The identity comes from
// the upstream authentication check, not from the token being revoked.
// Logging out an already logged-out account succeeds.
func (s *SessionService) Logout(ctx context.Context, userID string) error {
	if err := s.repomanager.Users(s.db).ClearRefreshToken(ctx, userID); err != nil {
		return common.ErrorInternal
	}
	return nil
}

// ChangePassword re-verifies the old password and stores the new hash.
// The stored refresh token is cleared in the same statement, so existing
// sessions do not survive a password change.
func (s *SessionService) ChangePassword(ctx context.Context, userID, oldPassword, newPassword string) error {
	repo := s.repomanager.Users(s.db)

	user, err := repo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return common.ErrorUnauthorized
		}
		return common.ErrorInternal
	}

	if !s.hasher.Verify(oldPassword, user.PasswordHash) {
		return common.ErrorInvalidCredentials
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return common.ErrorInternal
	}

	if err := repo.UpdatePassword(ctx, user.ID, hash); err != nil {
		return common.ErrorInternal
	}

	return nil
}

// VerifyAccessToken checks an access token's signature and expiry and
// returns the subject user id. Access tokens are trusted purely by signature
// plus expiry; nothing is looked up.
func (s *SessionService) VerifyAccessToken(token string) (string, error) {
	return auth.GetUserIDFromToken(token, s.accessTokenSecret)
}

func (s *SessionService) issueTokenPair(userID string) (*TokenPair, error) {
	access, err := auth.GenerateToken(userID, s.accessTokenSecret, s.accessTokenValidityDuration)
	if err != nil {
		return nil, err
	}
	refresh, err := auth.GenerateToken(userID, s.refreshTokenSecret, s.refreshTokenValidityDuration)
	if err != nil {
		return nil, err
	}
	return &TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}
