package httpapi

import (
	"net/http"
	"time"

	"github.com/clipstream/clipstream/internal/server/services"
)

const (
	accessTokenCookie  = "accessToken"
	refreshTokenCookie = "refreshToken"
)

// setSessionCookies attaches both tokens as HttpOnly cookies. Token bodies
// also appear in the response envelope for clients that prefer headers over
// cookies; the cookie is the default path.
func (s *Server) setSessionCookies(w http.ResponseWriter, pair *services.TokenPair) {
	s.setCookie(w, accessTokenCookie, pair.AccessToken, s.accessTokenValidity)
	s.setCookie(w, refreshTokenCookie, pair.RefreshToken, s.refreshTokenValidity)
}

func (s *Server) setCookie(w http.ResponseWriter, name, value string, validity time.Duration) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   int(validity.Seconds()),
		HttpOnly: true,
		Secure:   s.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

// clearSessionCookies expires both token cookies.
func (s *Server) clearSessionCookies(w http.ResponseWriter) {
	for _, name := range []string{accessTokenCookie, refreshTokenCookie} {
		http.SetCookie(w, &http.Cookie{
			Name:     name,
			Value:    "",
			Path:     "/",
			MaxAge:   -1,
			HttpOnly: true,
			Secure:   s.cookieSecure,
			SameSite: http.SameSiteLaxMode,
		})
	}
}
