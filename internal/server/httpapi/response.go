// Package httpapi exposes the account and session operations over REST.
// Every response body is the same envelope; errors from the service layer
// are translated to HTTP statuses in exactly one place.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/clipstream/clipstream/internal/common"
)

// Envelope is the uniform response body. Success and StatusCode mirror the
// transport status so clients can ignore HTTP metadata if they want to.
type Envelope struct {
	StatusCode int    `json:"statusCode"`
	Data       any    `json:"data"`
	Message    string `json:"message"`
	Success    bool   `json:"success"`
}

func (s *Server) respond(w http.ResponseWriter, status int, data any, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	env := Envelope{
		StatusCode: status,
		Data:       data,
		Message:    message,
		Success:    status < http.StatusBadRequest,
	}
	if err := json.NewEncoder(w).Encode(env); err != nil {
		s.logger.Error(context.Background(), "failed to encode response", "error", err.Error())
	}
}

// respondError maps a service error to a status and message. Unknown errors
// collapse to 500 with a generic message so internals never leak.
func (s *Server) respondError(w http.ResponseWriter, err error) {
	status, message := statusForError(err)
	s.respond(w, status, nil, message)
}

func statusForError(err error) (int, string) {
	switch {
	case errors.Is(err, common.ErrorValidation):
		return http.StatusBadRequest, "validation failed"
	// The whole refresh path answers 400: a rejected refresh token is a bad
	// request against the current session state, not a challenge to
	// re-authenticate the way a missing access token is.
	case errors.Is(err, common.ErrTokenExpired):
		return http.StatusBadRequest, "token expired"
	case errors.Is(err, common.ErrInvalidToken):
		return http.StatusBadRequest, "invalid token"
	case errors.Is(err, common.ErrorUnauthorized):
		return http.StatusBadRequest, "unauthorized request"
	case errors.Is(err, common.ErrorInvalidCredentials):
		return http.StatusUnauthorized, "invalid credentials"
	case errors.Is(err, common.ErrorNotFound):
		return http.StatusNotFound, "not found"
	case errors.Is(err, common.ErrorAlreadyExists):
		return http.StatusConflict, "username or email already taken"
	default:
		return http.StatusInternalServerError, "internal error"
	}
}
