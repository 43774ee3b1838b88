package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/clipstream/clipstream/internal/common"
	"github.com/clipstream/clipstream/internal/logging"
	"github.com/clipstream/clipstream/internal/server/config"
	"github.com/clipstream/clipstream/internal/server/models"
	"github.com/clipstream/clipstream/internal/server/services"
)

// ---- test logger ----

type nopLogger struct{}

func (n nopLogger) Debug(context.Context, string, ...any) {}
func (n nopLogger) Info(context.Context, string, ...any)  {}
func (n nopLogger) Warn(context.Context, string, ...any)  {}
func (n nopLogger) Error(context.Context, string, ...any) {}
func (n nopLogger) With(...any) logging.Logger            { return n }

// ---- fakes ----

type fakeSessions struct {
	loginUser *models.User
	loginPair *services.TokenPair
	loginErr  error

	refreshPair *services.TokenPair
	refreshErr  error

	logoutUserID string
	logoutErr    error

	changeErr error

	verifyUserID string
	verifyErr    error
}

func (f *fakeSessions) Login(ctx context.Context, login, password string) (*models.User, *services.TokenPair, error) {
	return f.loginUser, f.loginPair, f.loginErr
}

func (f *fakeSessions) Refresh(ctx context.Context, presented string) (*services.TokenPair, error) {
	if presented == "" {
		return nil, common.ErrorUnauthorized
	}
	return f.refreshPair, f.refreshErr
}

func (f *fakeSessions) Logout(ctx context.Context, userID string) error {
	f.logoutUserID = userID
	return f.logoutErr
}

func (f *fakeSessions) ChangePassword(ctx context.Context, userID, oldPassword, newPassword string) error {
	return f.changeErr
}

func (f *fakeSessions) VerifyAccessToken(token string) (string, error) {
	if f.verifyErr != nil {
		return "", f.verifyErr
	}
	return f.verifyUserID, nil
}

type fakeAccounts struct {
	user       *models.User
	userErr    error
	registered *services.RegisterInput

	profile    *models.ChannelProfile
	profileErr error

	history    []models.WatchHistoryEntry
	historyErr error

	recordedVideoID string
	recordErr       error

	subscribedTo   string
	unsubscribedTo string
	subErr         error
}

func (f *fakeAccounts) Register(ctx context.Context, in services.RegisterInput) (*models.User, error) {
	if f.userErr != nil {
		return nil, f.userErr
	}
	f.registered = &in
	return f.user, nil
}

func (f *fakeAccounts) CurrentUser(ctx context.Context, userID string) (*models.User, error) {
	return f.user, f.userErr
}

func (f *fakeAccounts) UpdateAccount(ctx context.Context, userID, fullName, email string) (*models.User, error) {
	return f.user, f.userErr
}

func (f *fakeAccounts) UpdateAvatar(ctx context.Context, userID string, file *services.MediaFile) (*models.User, error) {
	if file == nil {
		return nil, common.ErrorValidation
	}
	return f.user, f.userErr
}

func (f *fakeAccounts) UpdateCoverImage(ctx context.Context, userID string, file *services.MediaFile) (*models.User, error) {
	if file == nil {
		return nil, common.ErrorValidation
	}
	return f.user, f.userErr
}

func (f *fakeAccounts) ChannelProfile(ctx context.Context, username, viewerID string) (*models.ChannelProfile, error) {
	return f.profile, f.profileErr
}

func (f *fakeAccounts) WatchHistory(ctx context.Context, userID string) ([]models.WatchHistoryEntry, error) {
	return f.history, f.historyErr
}

func (f *fakeAccounts) RecordWatch(ctx context.Context, userID, videoID string) error {
	if f.recordErr != nil {
		return f.recordErr
	}
	f.recordedVideoID = videoID
	return nil
}

func (f *fakeAccounts) Subscribe(ctx context.Context, userID, channelID string) error {
	if f.subErr != nil {
		return f.subErr
	}
	f.subscribedTo = channelID
	return nil
}

func (f *fakeAccounts) Unsubscribe(ctx context.Context, userID, channelID string) error {
	if f.subErr != nil {
		return f.subErr
	}
	f.unsubscribedTo = channelID
	return nil
}

// ---- helpers ----

func newTestServer(sessions Sessions, accounts Accounts) *Server {
	cfg := &config.Config{
		EndpointAddrHTTP:             "127.0.0.1:0",
		CookieSecure:                 true,
		AccessTokenValidityDuration:  15 * time.Minute,
		RefreshTokenValidityDuration: 240 * time.Hour,
	}
	return NewServer(cfg, nopLogger{}, sessions, accounts)
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) Envelope {
	t.Helper()
	var env Envelope
	if err := json.NewDecoder(rec.Body).Decode(&env); err != nil {
		t.Fatalf("decoding envelope: %v", err)
	}
	return env
}

func cookieByName(t *testing.T, rec *httptest.ResponseRecorder, name string) *http.Cookie {
	t.Helper()
	for _, c := range rec.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func testUser() *models.User {
	return &models.User{ID: "u1", Username: "alice", Email: "alice@example.com", FullName: "Alice A"}
}

// ---- login ----

func TestHandleLogin(t *testing.T) {
	sessions := &fakeSessions{
		loginUser: testUser(),
		loginPair: &services.TokenPair{AccessToken: "at", RefreshToken: "rt"},
	}
	srv := newTestServer(sessions, &fakeAccounts{})

	body := `{"username":"alice","password":"pw123456"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/users/login", strings.NewReader(body))
	rec := httptest.NewRecorder()
	srv.Routes().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	env := decodeEnvelope(t, rec)
	if !env.Success || env.StatusCode != http.StatusOK {
		t.Fatalf("unexpected envelope: %+v", env)
	}

	for _, name := range []string{"accessToken", "refreshToken"} {
		c := cookieByName(t, rec, name)
		if c == nil {
			t.Fatalf("cookie %q not set", name)
		}
		if !c.HttpOnly || !c.Secure {
			t.Fatalf("cookie %q must be HttpOnly and Secure: %+v", name, c)
		}
	}
	if cookieByName(t, rec, "accessToken").Value != "at" {
		t.Fatalf("access token cookie value mismatch")
	}

	data, ok := env.Data.(map[string]any)
	if !ok {
		t.Fatalf("data is not an object: %T", env.Data)
	}
	if data["refreshToken"] != "rt" {
		t.Fatalf("refresh token missing from body: %v", data)
	}
	user, ok := data["user"].(map[string]any)
	if !ok || user["username"] != "alice" {
		t.Fatalf("user missing from body: %v", data)
	}
	if _, leaked := user["passwordHash"]; leaked {
		t.Fatalf("credential field leaked: %v", user)
	}
}

func TestHandleLogin_BadCredentials(t *testing.T) {
	sessions := &fakeSessions{loginErr: common.ErrorInvalidCredentials}
	srv := newTestServer(sessions, &fakeAccounts{})

	body := `{"username":"alice","password":"nope-1234"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/users/login", strings.NewReader(body))
	rec := httptest.NewRecorder()
	srv.Routes().ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d", rec.Code)
	}
	env := decodeEnvelope(t, rec)
	if env.Success || env.Message != "invalid credentials" {
		t.Fatalf("unexpected envelope: %+v", env)
	}
	if cookieByName(t, rec, "accessToken") != nil {
		t.Fatalf("no cookies on failed login")
	}
}

func TestHandleLogin_MissingFields(t *testing.T) {
	srv := newTestServer(&fakeSessions{}, &fakeAccounts{})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/users/login", strings.NewReader(`{"password":"pw"}`))
	rec := httptest.NewRecorder()
	srv.Routes().ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
}

// ---- refresh ----

func TestHandleRefreshToken_FromCookie(t *testing.T) {
	sessions := &fakeSessions{
		refreshPair: &services.TokenPair{AccessToken: "at2", RefreshToken: "rt2"},
	}
	srv := newTestServer(sessions, &fakeAccounts{})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/users/refresh-token", nil)
	req.AddCookie(&http.Cookie{Name: "refreshToken", Value: "rt1"})
	rec := httptest.NewRecorder()
	srv.Routes().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if c := cookieByName(t, rec, "refreshToken"); c == nil || c.Value != "rt2" {
		t.Fatalf("rotated refresh cookie not set: %+v", c)
	}
}

func TestHandleRefreshToken_FromBody(t *testing.T) {
	sessions := &fakeSessions{
		refreshPair: &services.TokenPair{AccessToken: "at2", RefreshToken: "rt2"},
	}
	srv := newTestServer(sessions, &fakeAccounts{})

	body := `{"refreshToken":"rt1"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/users/refresh-token", strings.NewReader(body))
	rec := httptest.NewRecorder()
	srv.Routes().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
}

func TestHandleRefreshToken_Missing(t *testing.T) {
	srv := newTestServer(&fakeSessions{}, &fakeAccounts{})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/users/refresh-token", nil)
	rec := httptest.NewRecorder()
	srv.Routes().ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
	if env := decodeEnvelope(t, rec); env.Message != "unauthorized request" {
		t.Fatalf("unexpected message: %q", env.Message)
	}
}

// A replayed refresh token answers 400 "token expired", not 401.
func TestHandleRefreshToken_Superseded(t *testing.T) {
	sessions := &fakeSessions{refreshErr: common.ErrTokenExpired}
	srv := newTestServer(sessions, &fakeAccounts{})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/users/refresh-token", nil)
	req.AddCookie(&http.Cookie{Name: "refreshToken", Value: "stale"})
	rec := httptest.NewRecorder()
	srv.Routes().ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
	env := decodeEnvelope(t, rec)
	if env.Message != "token expired" {
		t.Fatalf("unexpected message: %q", env.Message)
	}
	if env.Success {
		t.Fatal("failure envelope marked success")
	}
}

// ---- authenticated routes ----

func doAuthed(t *testing.T, srv *Server, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	}
	req.AddCookie(&http.Cookie{Name: "accessToken", Value: "valid"})
	rec := httptest.NewRecorder()
	srv.Routes().ServeHTTP(rec, req)
	return rec
}

func TestAuthenticate_MissingToken(t *testing.T) {
	srv := newTestServer(&fakeSessions{verifyUserID: "u1"}, &fakeAccounts{user: testUser()})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/users/current-user", nil)
	rec := httptest.NewRecorder()
	srv.Routes().ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d", rec.Code)
	}
	if env := decodeEnvelope(t, rec); env.Message != "unauthorized request" {
		t.Fatalf("unexpected message: %q", env.Message)
	}
}

func TestAuthenticate_BadToken(t *testing.T) {
	srv := newTestServer(&fakeSessions{verifyErr: common.ErrInvalidToken}, &fakeAccounts{user: testUser()})

	rec := doAuthed(t, srv, http.MethodGet, "/api/v1/users/current-user", "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d", rec.Code)
	}
	if env := decodeEnvelope(t, rec); env.Message != "invalid token" {
		t.Fatalf("unexpected message: %q", env.Message)
	}
}

func TestAuthenticate_BearerHeader(t *testing.T) {
	srv := newTestServer(&fakeSessions{verifyUserID: "u1"}, &fakeAccounts{user: testUser()})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/users/current-user", nil)
	req.Header.Set("Authorization", "Bearer some-token")
	rec := httptest.NewRecorder()
	srv.Routes().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
}

func TestHandleCurrentUser(t *testing.T) {
	srv := newTestServer(&fakeSessions{verifyUserID: "u1"}, &fakeAccounts{user: testUser()})

	rec := doAuthed(t, srv, http.MethodGet, "/api/v1/users/current-user", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	env := decodeEnvelope(t, rec)
	data := env.Data.(map[string]any)
	if data["username"] != "alice" {
		t.Fatalf("unexpected data: %v", data)
	}
}

func TestHandleLogout_ClearsCookies(t *testing.T) {
	sessions := &fakeSessions{verifyUserID: "u1"}
	srv := newTestServer(sessions, &fakeAccounts{})

	rec := doAuthed(t, srv, http.MethodPost, "/api/v1/users/logout", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if sessions.logoutUserID != "u1" {
		t.Fatalf("logout called for %q", sessions.logoutUserID)
	}
	c := cookieByName(t, rec, "accessToken")
	if c == nil || c.MaxAge != -1 {
		t.Fatalf("access cookie not expired: %+v", c)
	}
}

func TestHandleChangePassword_TooShort(t *testing.T) {
	srv := newTestServer(&fakeSessions{verifyUserID: "u1"}, &fakeAccounts{})

	rec := doAuthed(t, srv, http.MethodPost, "/api/v1/users/change-password",
		`{"oldPassword":"old-pw-123","newPassword":"short"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestHandleChangePassword_WrongOld(t *testing.T) {
	srv := newTestServer(&fakeSessions{verifyUserID: "u1", changeErr: common.ErrorInvalidCredentials}, &fakeAccounts{})

	rec := doAuthed(t, srv, http.MethodPost, "/api/v1/users/change-password",
		`{"oldPassword":"wrong-pw-1","newPassword":"new-pw-123"}`)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestHandleUpdateAccount(t *testing.T) {
	srv := newTestServer(&fakeSessions{verifyUserID: "u1"}, &fakeAccounts{user: testUser()})

	rec := doAuthed(t, srv, http.MethodPatch, "/api/v1/users/update-account",
		`{"fullName":"Alice B","email":"alice@example.com"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
}

func TestHandleChannelProfile(t *testing.T) {
	accounts := &fakeAccounts{profile: &models.ChannelProfile{Username: "bob", SubscriberCount: 3, IsSubscribed: true}}
	srv := newTestServer(&fakeSessions{verifyUserID: "u1"}, accounts)

	rec := doAuthed(t, srv, http.MethodGet, "/api/v1/users/c/bob", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	data := decodeEnvelope(t, rec).Data.(map[string]any)
	if data["subscribersCount"] != float64(3) || data["isSubscribed"] != true {
		t.Fatalf("unexpected profile: %v", data)
	}
}

func TestHandleChannelProfile_Unknown(t *testing.T) {
	accounts := &fakeAccounts{profileErr: common.ErrorNotFound}
	srv := newTestServer(&fakeSessions{verifyUserID: "u1"}, accounts)

	rec := doAuthed(t, srv, http.MethodGet, "/api/v1/users/c/ghost", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestHandleWatchHistory_EmptyIsArray(t *testing.T) {
	srv := newTestServer(&fakeSessions{verifyUserID: "u1"}, &fakeAccounts{})

	rec := doAuthed(t, srv, http.MethodGet, "/api/v1/users/watch-history", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if _, ok := decodeEnvelope(t, rec).Data.([]any); !ok {
		t.Fatalf("empty history must serialize as an array")
	}
}

func TestHandleRecordWatch(t *testing.T) {
	accounts := &fakeAccounts{}
	srv := newTestServer(&fakeSessions{verifyUserID: "u1"}, accounts)

	rec := doAuthed(t, srv, http.MethodPost, "/api/v1/users/watch-history/v42", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if accounts.recordedVideoID != "v42" {
		t.Fatalf("recorded %q", accounts.recordedVideoID)
	}
}

func TestHandleSubscribe(t *testing.T) {
	accounts := &fakeAccounts{}
	srv := newTestServer(&fakeSessions{verifyUserID: "u1"}, accounts)

	rec := doAuthed(t, srv, http.MethodPost, "/api/v1/subscriptions/c9", "")
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d", rec.Code)
	}
	if accounts.subscribedTo != "c9" {
		t.Fatalf("subscribed to %q", accounts.subscribedTo)
	}
}

func TestHandleSubscribe_Self(t *testing.T) {
	accounts := &fakeAccounts{subErr: common.ErrorValidation}
	srv := newTestServer(&fakeSessions{verifyUserID: "u1"}, accounts)

	rec := doAuthed(t, srv, http.MethodPost, "/api/v1/subscriptions/u1", "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestHandleUnsubscribe(t *testing.T) {
	accounts := &fakeAccounts{}
	srv := newTestServer(&fakeSessions{verifyUserID: "u1"}, accounts)

	rec := doAuthed(t, srv, http.MethodDelete, "/api/v1/subscriptions/c9", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if accounts.unsubscribedTo != "c9" {
		t.Fatalf("unsubscribed from %q", accounts.unsubscribedTo)
	}
}

// ---- register (multipart) ----

func multipartRegister(t *testing.T, fields map[string]string, files map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			t.Fatalf("WriteField: %v", err)
		}
	}
	for field, filename := range files {
		fw, err := mw.CreateFormFile(field, filename)
		if err != nil {
			t.Fatalf("CreateFormFile: %v", err)
		}
		if _, err := fw.Write([]byte("file-bytes")); err != nil {
			t.Fatalf("write part: %v", err)
		}
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("closing writer: %v", err)
	}
	return &buf, mw.FormDataContentType()
}

func TestHandleRegister(t *testing.T) {
	accounts := &fakeAccounts{user: testUser()}
	srv := newTestServer(&fakeSessions{}, accounts)

	body, contentType := multipartRegister(t,
		map[string]string{
			"username": "alice",
			"email":    "alice@example.com",
			"fullName": "Alice A",
			"password": "pw123456",
		},
		map[string]string{"avatar": "a.png", "coverImage": "c.jpg"},
	)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/users/register", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	srv.Routes().ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if accounts.registered == nil || accounts.registered.Avatar == nil || accounts.registered.CoverImage == nil {
		t.Fatalf("register input incomplete: %+v", accounts.registered)
	}
	if accounts.registered.Avatar.Name != "a.png" {
		t.Fatalf("avatar filename: %q", accounts.registered.Avatar.Name)
	}
}

func TestHandleRegister_BadEmail(t *testing.T) {
	srv := newTestServer(&fakeSessions{}, &fakeAccounts{user: testUser()})

	body, contentType := multipartRegister(t,
		map[string]string{
			"username": "alice",
			"email":    "not-an-email",
			"fullName": "Alice A",
			"password": "pw123456",
		},
		map[string]string{"avatar": "a.png"},
	)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/users/register", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	srv.Routes().ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestHandleRegister_Duplicate(t *testing.T) {
	srv := newTestServer(&fakeSessions{}, &fakeAccounts{userErr: common.ErrorAlreadyExists})

	body, contentType := multipartRegister(t,
		map[string]string{
			"username": "alice",
			"email":    "alice@example.com",
			"fullName": "Alice A",
			"password": "pw123456",
		},
		map[string]string{"avatar": "a.png"},
	)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/users/register", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	srv.Routes().ServeHTTP(rec, req)

	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d", rec.Code)
	}
}

// ---- status mapping ----

func TestStatusForError(t *testing.T) {
	tests := []struct {
		err     error
		status  int
		message string
	}{
		{common.ErrorValidation, http.StatusBadRequest, "validation failed"},
		{common.ErrTokenExpired, http.StatusBadRequest, "token expired"},
		{common.ErrInvalidToken, http.StatusBadRequest, "invalid token"},
		{common.ErrorUnauthorized, http.StatusBadRequest, "unauthorized request"},
		{common.ErrorInvalidCredentials, http.StatusUnauthorized, "invalid credentials"},
		{common.ErrorNotFound, http.StatusNotFound, "not found"},
		{common.ErrorAlreadyExists, http.StatusConflict, "username or email already taken"},
		{errors.New("boom"), http.StatusInternalServerError, "internal error"},
	}
	for _, tc := range tests {
		status, message := statusForError(tc.err)
		if status != tc.status || message != tc.message {
			t.Errorf("statusForError(%v) = %d %q, want %d %q", tc.err, status, message, tc.status, tc.message)
		}
	}
}

func TestHealthz(t *testing.T) {
	srv := newTestServer(&fakeSessions{}, &fakeAccounts{})

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	srv.Routes().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
}
