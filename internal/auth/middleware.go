package auth

import (
	"context"
	"net/http"
	"strings"
)

type contextKey string

const OwnerIDKey contextKey = "ownerID"

// Middleware resolves the request's owner from a Bearer token. Without a
// header the request runs as AnonymousOwnerID if the service allows it.
func (s *Service) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ownerID, ok := s.resolve(w, r)
		if !ok {
			return
		}
		next.ServeHTTP(w, r.WithContext(WithOwnerID(r.Context(), ownerID)))
	})
}

func (s *Service) resolve(w http.ResponseWriter, r *http.Request) (string, bool) {
	authHeader := r.Header.Get("Authorization")
	token := bearer(authHeader)
	// Browsers can't set headers on a WebSocket upgrade.
	if authHeader == "" {
		token = r.URL.Query().Get("token")
	}

	if authHeader == "" && token == "" {
		if s.allowAnonymous {
			return AnonymousOwnerID, true
		}
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "missing authorization header"})
		return "", false
	}
	if token == "" {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid authorization format"})
		return "", false
	}

	ownerID, err := s.ValidateToken(token)
	if err != nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid token"})
		return "", false
	}
	return ownerID, true
}

func bearer(header string) string {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

func WithOwnerID(ctx context.Context, ownerID string) context.Context {
	return context.WithValue(ctx, OwnerIDKey, ownerID)
}

func OwnerIDFromContext(ctx context.Context) string {
	ownerID, _ := ctx.Value(OwnerIDKey).(string)
	return ownerID
}
