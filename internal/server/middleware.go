package server

import (
	"context"
	"encoding/json"
	"net/http"

	"restaurant-pos/backend/internal/auth"
	authhandler "restaurant-pos/backend/internal/auth/handler"

	"github.com/gorilla/mux"
)

// UserFromContext returns the authenticated employee stored by the session
// middleware.
func UserFromContext(ctx context.Context) (auth.UserInfo, bool) {
	u, ok := ctx.Value(contextKeyUser).(auth.UserInfo)
	return u, ok
}

// SessionAuthMiddleware guards routes behind a live session. Each request
// through it runs a full validation, which also refreshes the session's
// last activity.
func SessionAuthMiddleware(svc *auth.Service) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}

			c, err := r.Cookie(authhandler.SessionCookieName)
			if err != nil || c.Value == "" {
				unauthorized(w, "NO_SESSION")
				return
			}

			result, err := svc.Validate(r.Context(), c.Value)
			if err != nil {
				code := "SESSION_NOT_FOUND"
				if f, ok := auth.AsFailure(err); ok {
					code = string(f.Code)
				}
				unauthorized(w, code)
				return
			}

			ctx := context.WithValue(r.Context(), contextKeyUser, result.User)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func unauthorized(w http.ResponseWriter, code string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": code})
}
