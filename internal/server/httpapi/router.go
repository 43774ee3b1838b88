package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
)

// Routes assembles the REST surface. Session endpoints that operate on the
// caller's own account sit behind authenticate; register, login, and refresh
// are reachable without a token.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(s.logRequests)

	r.Get("/healthz", s.handleHealthz)

	r.Route("/api/v1/users", func(r chi.Router) {
		r.Post("/register", s.handleRegister)
		r.Post("/login", s.handleLogin)
		r.Post("/refresh-token", s.handleRefreshToken)

		r.Group(func(r chi.Router) {
			r.Use(s.authenticate)

			r.Post("/logout", s.handleLogout)
			r.Post("/change-password", s.handleChangePassword)
			r.Get("/current-user", s.handleCurrentUser)
			r.Patch("/update-account", s.handleUpdateAccount)
			r.Patch("/avatar", s.handleUpdateAvatar)
			r.Patch("/cover-image", s.handleUpdateCoverImage)
			r.Get("/c/{username}", s.handleChannelProfile)
			r.Get("/watch-history", s.handleWatchHistory)
			r.Post("/watch-history/{videoID}", s.handleRecordWatch)
		})
	})

	r.Route("/api/v1/subscriptions", func(r chi.Router) {
		r.Use(s.authenticate)

		r.Post("/{channelID}", s.handleSubscribe)
		r.Delete("/{channelID}", s.handleUnsubscribe)
	})

	return r
}

// Run serves HTTP until ctx is cancelled, then drains in-flight requests.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.address,
		Handler:           s.Routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "stopping http server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Error(ctx, "http server shutdown", "error", err.Error())
		}
	}()

	s.logger.Info(ctx, "starting http server", "address", s.address)

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
