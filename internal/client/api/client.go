// Package api is the typed HTTP client for the backend REST API. It keeps
// the current token pair in memory and retries once after a refresh when an
// access token is rejected.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/clipstream/clipstream/internal/client/config"
	"github.com/clipstream/clipstream/internal/common"
	"github.com/clipstream/clipstream/internal/filex"
	"github.com/clipstream/clipstream/internal/netx"
)

type Client struct {
	baseURL string
	hc      *http.Client

	accessToken  string
	refreshToken string
}

func New(cfg *config.Config) *Client {
	return &Client{
		baseURL: strings.TrimRight(cfg.ServerBaseURL, "/"),
		hc:      &http.Client{Timeout: cfg.RequestTimeout},
	}
}

// IsLoggedIn reports whether the client holds a session.
func (c *Client) IsLoggedIn() bool {
	return c.accessToken != ""
}

type envelope struct {
	StatusCode int             `json:"statusCode"`
	Data       json.RawMessage `json:"data"`
	Message    string          `json:"message"`
	Success    bool            `json:"success"`
}

// errorForStatus translates an API error response into the shared sentinel
// taxonomy so callers can use errors.Is. The session-failure messages are
// matched first: the server answers 400 for the whole refresh path, so the
// status alone cannot tell a rejected token from a validation failure.
func errorForStatus(status int, message string) error {
	var sentinel error
	switch message {
	case "token expired":
		sentinel = common.ErrTokenExpired
	case "invalid token":
		sentinel = common.ErrInvalidToken
	case "unauthorized request":
		sentinel = common.ErrorUnauthorized
	case "invalid credentials":
		sentinel = common.ErrorInvalidCredentials
	default:
		switch status {
		case http.StatusBadRequest:
			sentinel = common.ErrorValidation
		case http.StatusUnauthorized:
			sentinel = common.ErrorUnauthorized
		case http.StatusNotFound:
			sentinel = common.ErrorNotFound
		case http.StatusConflict:
			sentinel = common.ErrorAlreadyExists
		default:
			sentinel = common.ErrorInternal
		}
	}
	return fmt.Errorf("%w: %s", sentinel, message)
}

// do sends the request with the current access token and decodes the
// envelope. On a 401 it refreshes the session once and replays the request;
// rebuild lets callers supply a fresh request body for the replay.
func (c *Client) do(ctx context.Context, rebuild func(ctx context.Context) (*http.Request, error), out any) error {
	resp, err := c.send(ctx, rebuild)
	if err != nil {
		return err
	}

	if resp.StatusCode == http.StatusUnauthorized && c.refreshToken != "" {
		resp.Body.Close()
		if err := c.RefreshSession(ctx); err != nil {
			return err
		}
		resp, err = c.send(ctx, rebuild)
		if err != nil {
			return err
		}
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	if !env.Success {
		return errorForStatus(resp.StatusCode, env.Message)
	}
	if out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return fmt.Errorf("decoding response data: %w", err)
		}
	}
	return nil
}

func (c *Client) send(ctx context.Context, rebuild func(ctx context.Context) (*http.Request, error)) (*http.Response, error) {
	req, err := rebuild(ctx)
	if err != nil {
		return nil, err
	}
	if c.accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.accessToken)
	}
	return c.hc.Do(req)
}

func (c *Client) jsonRequest(method, path string, body any) func(ctx context.Context) (*http.Request, error) {
	return func(ctx context.Context) (*http.Request, error) {
		var r io.Reader
		if body != nil {
			b, err := json.Marshal(body)
			if err != nil {
				return nil, err
			}
			r = bytes.NewReader(b)
		}
		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, r)
		if err != nil {
			return nil, err
		}
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		return req, nil
	}
}

// RegisterParams collects the account fields and local image paths for
// registration. CoverImagePath may be empty.
type RegisterParams struct {
	Username       string
	Email          string
	FullName       string
	Password       string
	AvatarPath     string
	CoverImagePath string
}

func (c *Client) Register(ctx context.Context, p RegisterParams) (*User, error) {
	if _, err := filex.CheckImageFile(p.AvatarPath); err != nil {
		return nil, err
	}

	files := map[string]string{"avatar": p.AvatarPath}
	if p.CoverImagePath != "" {
		if _, err := filex.CheckImageFile(p.CoverImagePath); err != nil {
			return nil, err
		}
		files["coverImage"] = p.CoverImagePath
	}

	fields := map[string]string{
		"username": p.Username,
		"email":    p.Email,
		"fullName": p.FullName,
		"password": p.Password,
	}

	var user User
	err := c.do(ctx, func(ctx context.Context) (*http.Request, error) {
		return netx.NewUploadRequest(ctx, http.MethodPost, c.baseURL+"/api/v1/users/register", fields, files)
	}, &user)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

type sessionData struct {
	User         *User  `json:"user"`
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

func (c *Client) Login(ctx context.Context, login, password string) (*User, error) {
	body := map[string]string{"username": login, "password": password}

	var data sessionData
	if err := c.do(ctx, c.jsonRequest(http.MethodPost, "/api/v1/users/login", body), &data); err != nil {
		return nil, err
	}

	c.accessToken = data.AccessToken
	c.refreshToken = data.RefreshToken
	return data.User, nil
}

// RefreshSession exchanges the stored refresh token for a new pair. A
// failure drops the session; the caller has to log in again.
func (c *Client) RefreshSession(ctx context.Context) error {
	if c.refreshToken == "" {
		return common.ErrorUnauthorized
	}

	body := map[string]string{"refreshToken": c.refreshToken}

	req, err := c.jsonRequest(http.MethodPost, "/api/v1/users/refresh-token", body)(ctx)
	if err != nil {
		return err
	}
	resp, err := c.hc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	if !env.Success {
		c.accessToken = ""
		c.refreshToken = ""
		return errorForStatus(resp.StatusCode, env.Message)
	}

	var data sessionData
	if err := json.Unmarshal(env.Data, &data); err != nil {
		return fmt.Errorf("decoding response data: %w", err)
	}
	c.accessToken = data.AccessToken
	c.refreshToken = data.RefreshToken
	return nil
}

func (c *Client) Logout(ctx context.Context) error {
	err := c.do(ctx, c.jsonRequest(http.MethodPost, "/api/v1/users/logout", nil), nil)
	c.accessToken = ""
	c.refreshToken = ""
	return err
}

func (c *Client) ChangePassword(ctx context.Context, oldPassword, newPassword string) error {
	body := map[string]string{"oldPassword": oldPassword, "newPassword": newPassword}
	if err := c.do(ctx, c.jsonRequest(http.MethodPost, "/api/v1/users/change-password", body), nil); err != nil {
		return err
	}
	// The server revoked the session along with the old password.
	c.accessToken = ""
	c.refreshToken = ""
	return nil
}

func (c *Client) CurrentUser(ctx context.Context) (*User, error) {
	var user User
	if err := c.do(ctx, c.jsonRequest(http.MethodGet, "/api/v1/users/current-user", nil), &user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (c *Client) UpdateAccount(ctx context.Context, fullName, email string) (*User, error) {
	body := map[string]string{"fullName": fullName, "email": email}
	var user User
	if err := c.do(ctx, c.jsonRequest(http.MethodPatch, "/api/v1/users/update-account", body), &user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (c *Client) UpdateAvatar(ctx context.Context, path string) (*User, error) {
	return c.uploadImage(ctx, "/api/v1/users/avatar", "avatar", path)
}

func (c *Client) UpdateCoverImage(ctx context.Context, path string) (*User, error) {
	return c.uploadImage(ctx, "/api/v1/users/cover-image", "coverImage", path)
}

func (c *Client) uploadImage(ctx context.Context, path, field, localPath string) (*User, error) {
	if _, err := filex.CheckImageFile(localPath); err != nil {
		return nil, err
	}

	var user User
	err := c.do(ctx, func(ctx context.Context) (*http.Request, error) {
		return netx.NewUploadRequest(ctx, http.MethodPatch, c.baseURL+path, nil, map[string]string{field: localPath})
	}, &user)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (c *Client) Channel(ctx context.Context, username string) (*ChannelProfile, error) {
	var profile ChannelProfile
	if err := c.do(ctx, c.jsonRequest(http.MethodGet, "/api/v1/users/c/"+username, nil), &profile); err != nil {
		return nil, err
	}
	return &profile, nil
}

func (c *Client) WatchHistory(ctx context.Context) ([]WatchHistoryEntry, error) {
	var entries []WatchHistoryEntry
	if err := c.do(ctx, c.jsonRequest(http.MethodGet, "/api/v1/users/watch-history", nil), &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

func (c *Client) RecordWatch(ctx context.Context, videoID string) error {
	return c.do(ctx, c.jsonRequest(http.MethodPost, "/api/v1/users/watch-history/"+videoID, nil), nil)
}

func (c *Client) Subscribe(ctx context.Context, channelID string) error {
	return c.do(ctx, c.jsonRequest(http.MethodPost, "/api/v1/subscriptions/"+channelID, nil), nil)
}

func (c *Client) Unsubscribe(ctx context.Context, channelID string) error {
	return c.do(ctx, c.jsonRequest(http.MethodDelete, "/api/v1/subscriptions/"+channelID, nil), nil)
}
