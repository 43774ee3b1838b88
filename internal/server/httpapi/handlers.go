package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/clipstream/clipstream/internal/common"
	"github.com/clipstream/clipstream/internal/logging"
	"github.com/clipstream/clipstream/internal/server/config"
	"github.com/clipstream/clipstream/internal/server/models"
	"github.com/clipstream/clipstream/internal/server/services"
)

// Uploads larger than this are rejected at parse time.
const maxUploadBytes = 32 << 20

// Sessions is the slice of the session service the transport needs.
type Sessions interface {
	Login(ctx context.Context, login, password string) (*models.User, *services.TokenPair, error)
	Refresh(ctx context.Context, presented string) (*services.TokenPair, error)
	Logout(ctx context.Context, userID string) error
	ChangePassword(ctx context.Context, userID, oldPassword, newPassword string) error
	VerifyAccessToken(token string) (string, error)
}

// Accounts is the slice of the user service the transport needs.
type Accounts interface {
	Register(ctx context.Context, in services.RegisterInput) (*models.User, error)
	CurrentUser(ctx context.Context, userID string) (*models.User, error)
	UpdateAccount(ctx context.Context, userID, fullName, email string) (*models.User, error)
	UpdateAvatar(ctx context.Context, userID string, file *services.MediaFile) (*models.User, error)
	UpdateCoverImage(ctx context.Context, userID string, file *services.MediaFile) (*models.User, error)
	ChannelProfile(ctx context.Context, username, viewerID string) (*models.ChannelProfile, error)
	WatchHistory(ctx context.Context, userID string) ([]models.WatchHistoryEntry, error)
	RecordWatch(ctx context.Context, userID, videoID string) error
	Subscribe(ctx context.Context, userID, channelID string) error
	Unsubscribe(ctx context.Context, userID, channelID string) error
}

// Server is the HTTP transport over the session and account services.
type Server struct {
	address  string
	sessions Sessions
	accounts Accounts
	logger   logging.Logger
	validate *validator.Validate

	cookieSecure         bool
	accessTokenValidity  time.Duration
	refreshTokenValidity time.Duration
}

func NewServer(cfg *config.Config, l logging.Logger, sessions Sessions, accounts Accounts) *Server {
	return &Server{
		address:              cfg.EndpointAddrHTTP,
		sessions:             sessions,
		accounts:             accounts,
		logger:               l.With("module", "http_server"),
		validate:             validator.New(),
		cookieSecure:         cfg.CookieSecure,
		accessTokenValidity:  cfg.AccessTokenValidityDuration,
		refreshTokenValidity: cfg.RefreshTokenValidityDuration,
	}
}

// decodeAndValidate parses a JSON body into dst and runs the validator tags.
func (s *Server) decodeAndValidate(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return common.ErrorValidation
	}
	if err := s.validate.Struct(dst); err != nil {
		return common.ErrorValidation
	}
	return nil
}

// formFile picks up an optional multipart file. A missing part returns
// (nil, nil); callers decide whether the part is required.
func formFile(r *http.Request, field string) (*services.MediaFile, func(), error) {
	file, header, err := r.FormFile(field)
	if err == http.ErrMissingFile {
		return nil, func() {}, nil
	}
	if err != nil {
		return nil, func() {}, common.ErrorValidation
	}
	return &services.MediaFile{Name: header.Filename, Body: file}, func() { file.Close() }, nil
}

func closeAll(closers ...func()) {
	for _, c := range closers {
		c()
	}
}

type registerRequest struct {
	Username string `validate:"required,min=3,max=32"`
	Email    string `validate:"required,email"`
	FullName string `validate:"required"`
	Password string `validate:"required,min=8"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		s.respondError(w, common.ErrorValidation)
		return
	}

	req := registerRequest{
		Username: r.FormValue("username"),
		Email:    r.FormValue("email"),
		FullName: r.FormValue("fullName"),
		Password: r.FormValue("password"),
	}
	if err := s.validate.Struct(&req); err != nil {
		s.respondError(w, common.ErrorValidation)
		return
	}

	avatar, closeAvatar, err := formFile(r, "avatar")
	if err != nil {
		s.respondError(w, err)
		return
	}
	cover, closeCover, err := formFile(r, "coverImage")
	if err != nil {
		closeAvatar()
		s.respondError(w, err)
		return
	}
	defer closeAll(closeAvatar, closeCover)

	user, err := s.accounts.Register(r.Context(), services.RegisterInput{
		Username:   req.Username,
		Email:      req.Email,
		FullName:   req.FullName,
		Password:   req.Password,
		Avatar:     avatar,
		CoverImage: cover,
	})
	if err != nil {
		s.respondError(w, err)
		return
	}

	s.logger.Info(r.Context(), "user registered", "username", user.Username)
	s.respond(w, http.StatusCreated, user.Public(), "user registered")
}

type loginRequest struct {
	Username string `json:"username" validate:"required_without=Email"`
	Email    string `json:"email" validate:"required_without=Username,omitempty,email"`
	Password string `json:"password" validate:"required"`
}

type sessionResponse struct {
	User         *models.PublicUser `json:"user"`
	AccessToken  string             `json:"accessToken"`
	RefreshToken string             `json:"refreshToken"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := s.decodeAndValidate(r, &req); err != nil {
		s.respondError(w, err)
		return
	}

	login := req.Username
	if login == "" {
		login = req.Email
	}

	user, pair, err := s.sessions.Login(r.Context(), login, req.Password)
	if err != nil {
		s.respondError(w, err)
		return
	}

	s.setSessionCookies(w, pair)
	s.logger.Info(r.Context(), "user logged in", "username", user.Username)
	s.respond(w, http.StatusOK, sessionResponse{
		User:         user.Public(),
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
	}, "logged in")
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	userID, _ := userIDFromContext(r.Context())

	if err := s.sessions.Logout(r.Context(), userID); err != nil {
		s.respondError(w, err)
		return
	}

	s.clearSessionCookies(w)
	s.respond(w, http.StatusOK, nil, "logged out")
}

type refreshResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

func (s *Server) handleRefreshToken(w http.ResponseWriter, r *http.Request) {
	presented := ""
	if c, err := r.Cookie(refreshTokenCookie); err == nil {
		presented = c.Value
	}
	if presented == "" && r.Body != nil {
		var body struct {
			RefreshToken string `json:"refreshToken"`
		}
		// Body is optional; a decode failure just means no token there.
		_ = json.NewDecoder(r.Body).Decode(&body)
		presented = body.RefreshToken
	}

	pair, err := s.sessions.Refresh(r.Context(), presented)
	if err != nil {
		s.respondError(w, err)
		return
	}

	s.setSessionCookies(w, pair)
	s.respond(w, http.StatusOK, refreshResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
	}, "token refreshed")
}

type changePasswordRequest struct {
	OldPassword string `json:"oldPassword" validate:"required"`
	NewPassword string `json:"newPassword" validate:"required,min=8"`
}

func (s *Server) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	userID, _ := userIDFromContext(r.Context())

	var req changePasswordRequest
	if err := s.decodeAndValidate(r, &req); err != nil {
		s.respondError(w, err)
		return
	}

	if err := s.sessions.ChangePassword(r.Context(), userID, req.OldPassword, req.NewPassword); err != nil {
		s.respondError(w, err)
		return
	}

	// Existing sessions are revoked with the old password.
	s.clearSessionCookies(w)
	s.respond(w, http.StatusOK, nil, "password changed")
}

func (s *Server) handleCurrentUser(w http.ResponseWriter, r *http.Request) {
	userID, _ := userIDFromContext(r.Context())

	user, err := s.accounts.CurrentUser(r.Context(), userID)
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.respond(w, http.StatusOK, user.Public(), "current user")
}

type updateAccountRequest struct {
	FullName string `json:"fullName" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
}

func (s *Server) handleUpdateAccount(w http.ResponseWriter, r *http.Request) {
	userID, _ := userIDFromContext(r.Context())

	var req updateAccountRequest
	if err := s.decodeAndValidate(r, &req); err != nil {
		s.respondError(w, err)
		return
	}

	user, err := s.accounts.UpdateAccount(r.Context(), userID, req.FullName, req.Email)
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.respond(w, http.StatusOK, user.Public(), "account updated")
}

func (s *Server) handleUpdateAvatar(w http.ResponseWriter, r *http.Request) {
	s.handleImageUpdate(w, r, "avatar", s.accounts.UpdateAvatar, "avatar updated")
}

func (s *Server) handleUpdateCoverImage(w http.ResponseWriter, r *http.Request) {
	s.handleImageUpdate(w, r, "coverImage", s.accounts.UpdateCoverImage, "cover image updated")
}

func (s *Server) handleImageUpdate(w http.ResponseWriter, r *http.Request, field string, update func(context.Context, string, *services.MediaFile) (*models.User, error), message string) {
	userID, _ := userIDFromContext(r.Context())

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		s.respondError(w, common.ErrorValidation)
		return
	}

	file, closeFile, err := formFile(r, field)
	if err != nil {
		s.respondError(w, err)
		return
	}
	defer closeFile()

	user, err := update(r.Context(), userID, file)
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.respond(w, http.StatusOK, user.Public(), message)
}

func (s *Server) handleChannelProfile(w http.ResponseWriter, r *http.Request) {
	viewerID, _ := userIDFromContext(r.Context())

	username := chi.URLParam(r, "username")
	if username == "" {
		s.respondError(w, common.ErrorValidation)
		return
	}

	profile, err := s.accounts.ChannelProfile(r.Context(), username, viewerID)
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.respond(w, http.StatusOK, profile, "channel profile")
}

func (s *Server) handleWatchHistory(w http.ResponseWriter, r *http.Request) {
	userID, _ := userIDFromContext(r.Context())

	entries, err := s.accounts.WatchHistory(r.Context(), userID)
	if err != nil {
		s.respondError(w, err)
		return
	}
	if entries == nil {
		entries = []models.WatchHistoryEntry{}
	}
	s.respond(w, http.StatusOK, entries, "watch history")
}

func (s *Server) handleRecordWatch(w http.ResponseWriter, r *http.Request) {
	userID, _ := userIDFromContext(r.Context())

	if err := s.accounts.RecordWatch(r.Context(), userID, chi.URLParam(r, "videoID")); err != nil {
		s.respondError(w, err)
		return
	}
	s.respond(w, http.StatusOK, nil, "watch recorded")
}

func (s *Server) handleSubscribe(w http.ResponseWriter, r *http.Request) {
	userID, _ := userIDFromContext(r.Context())

	if err := s.accounts.Subscribe(r.Context(), userID, chi.URLParam(r, "channelID")); err != nil {
		s.respondError(w, err)
		return
	}
	s.respond(w, http.StatusCreated, nil, "subscribed")
}

func (s *Server) handleUnsubscribe(w http.ResponseWriter, r *http.Request) {
	userID, _ := userIDFromContext(r.Context())

	if err := s.accounts.Unsubscribe(r.Context(), userID, chi.URLParam(r, "channelID")); err != nil {
		s.respondError(w, err)
		return
	}
	s.respond(w, http.StatusOK, nil, "unsubscribed")
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	s.respond(w, http.StatusOK, map[string]string{"status": "OK"}, "healthy")
}
