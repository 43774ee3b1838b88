// Package models defines the server-side data models persisted in the
// database.
package models

import (
	"database/sql"
	"time"
)

// User is the account record. PasswordHash and RefreshToken never leave the
// server; handlers return the Public projection instead.
type User struct {
	ID         string
	Username   string
	Email      string
	FullName   string
	Avatar     string
	CoverImage string

	// PasswordHash is the bcrypt digest of the account password.
	PasswordHash string

	// RefreshToken holds the single currently valid refresh token for the
	// account, or NULL when the user is logged out. Issuing a new token
	// overwrites it, invalidating every previously issued one.
	RefreshToken sql.NullString

	CreatedAt time.Time
	UpdatedAt time.Time
}

// PublicUser is the sanitized account view returned by the API.
type PublicUser struct {
	ID         string    `json:"id"`
	Username   string    `json:"username"`
	Email      string    `json:"email"`
	FullName   string    `json:"fullName"`
	Avatar     string    `json:"avatar"`
	CoverImage string    `json:"coverImage,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
}

// Public strips the credential fields from the account record.
func (u *User) Public() *PublicUser {
	return &PublicUser{
		ID:         u.ID,
		Username:   u.Username,
		Email:      u.Email,
		FullName:   u.FullName,
		Avatar:     u.Avatar,
		CoverImage: u.CoverImage,
		CreatedAt:  u.CreatedAt,
	}
}

// ChannelProfile is the aggregate view of a user as a channel: the public
// fields plus subscription counters relative to the requesting viewer.
type ChannelProfile struct {
	ID                string `json:"id"`
	Username          string `json:"username"`
	Email             string `json:"email"`
	FullName          string `json:"fullName"`
	Avatar            string `json:"avatar"`
	CoverImage        string `json:"coverImage,omitempty"`
	SubscriberCount   int64  `json:"subscribersCount"`
	SubscribedToCount int64  `json:"channelsSubscribedToCount"`
	IsSubscribed      bool   `json:"isSubscribed"`
}
