package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/boddenberg/backoffice-ledger/internal/domain"
	"github.com/boddenberg/backoffice-ledger/internal/port"

	"go.uber.org/zap"
)

type contextKey string

const sessionKey contextKey = "session"

// SessionMiddleware validates Bearer tokens and injects the session into context.
func SessionMiddleware(verifier port.SessionVerifier, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				logger.Warn("auth: missing token",
					zap.String("path", r.URL.Path),
					zap.String("remote_addr", r.RemoteAddr),
				)
				writeError(w, http.StatusUnauthorized, "authentication required")
				return
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
				logger.Warn("auth: invalid token format",
					zap.String("path", r.URL.Path),
					zap.String("remote_addr", r.RemoteAddr),
				)
				writeError(w, http.StatusUnauthorized, "invalid authorization header")
				return
			}

			session, err := verifier.Verify(parts[1])
			if err != nil || !session.Authenticated {
				logger.Warn("auth: invalid or expired token",
					zap.String("path", r.URL.Path),
					zap.String("remote_addr", r.RemoteAddr),
					zap.Error(err),
				)
				writeError(w, http.StatusUnauthorized, "invalid or expired token")
				return
			}

			ctx := context.WithValue(r.Context(), sessionKey, session)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireWriter rejects mutating requests from read-only roles.
func RequireWriter(readOnlyRoles []string, logger *zap.Logger) func(http.Handler) http.Handler {
	readOnly := make(map[string]bool, len(readOnlyRoles))
	for _, role := range readOnlyRoles {
		if role = strings.TrimSpace(role); role != "" {
			readOnly[role] = true
		}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet, http.MethodHead, http.MethodOptions:
				next.ServeHTTP(w, r)
				return
			}

			session := SessionFromContext(r.Context())
			if session == nil || readOnly[session.Role] {
				err := &domain.ErrForbidden{Action: r.Method + " " + r.URL.Path}
				handleServiceError(w, err, logger)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// SessionFromContext returns the authenticated session, or nil.
func SessionFromContext(ctx context.Context) *domain.Session {
	s, _ := ctx.Value(sessionKey).(*domain.Session)
	return s
}

func actorFromContext(ctx context.Context) string {
	if s := SessionFromContext(ctx); s != nil {
		return s.ActorID
	}
	return ""
}
