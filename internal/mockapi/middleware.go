package mockapi

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/d-madiou/to-meet-yours/internal/mockapi/auth"
)

type ctxKey string

const (
	userIDKey  ctxKey = "userID"
	tokenIDKey ctxKey = "tokenID"
)

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		s.logger.Info(r.Context(), "request completed",
			"request_id", middleware.GetReqID(r.Context()),
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
		)
	})
}

// tokenAuth accepts "Authorization: Token <jwt>" and rejects revoked or
// expired tokens with 401.
func (s *Server) tokenAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Token ")
		if !ok || token == "" {
			writeDetail(w, http.StatusUnauthorized, "Authentication credentials were not provided.")
			return
		}

		claims, err := auth.ParseToken(token, s.secret)
		if err != nil {
			msg := "Invalid token."
			if errors.Is(err, auth.ErrTokenExpired) {
				msg = "Token has expired."
			}
			writeDetail(w, http.StatusUnauthorized, msg)
			return
		}
		if s.state.isRevoked(claims.ID) {
			writeDetail(w, http.StatusUnauthorized, "Invalid token.")
			return
		}
		if _, err := s.state.user(claims.UserID); err != nil {
			writeDetail(w, http.StatusUnauthorized, "User not found.")
			return
		}

		ctx := context.WithValue(r.Context(), userIDKey, claims.UserID)
		ctx = context.WithValue(ctx, tokenIDKey, claims.ID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func userID(r *http.Request) string {
	v, _ := r.Context().Value(userIDKey).(string)
	return v
}

func tokenID(r *http.Request) string {
	v, _ := r.Context().Value(tokenIDKey).(string)
	return v
}
