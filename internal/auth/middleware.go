package auth

import (
	"context"
	"net/http"
	"strings"
)

type contextKey string

const playerIDKey contextKey = "player_id"

// Optional returns middleware that authenticates the request when a token
// is present and passes it through anonymously otherwise. A nil manager
// disables authentication. The token comes from the Authorization header
// (Bearer scheme) or the token query parameter, since browsers cannot set
// headers on WebSocket upgrades.
func Optional(jwtMgr *JWTManager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if jwtMgr == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenStr, ok := tokenFromRequest(r)
			if !ok {
				http.Error(w, `{"error":"invalid authorization format"}`, http.StatusUnauthorized)
				return
			}
			if tokenStr == "" {
				next.ServeHTTP(w, r)
				return
			}
			claims, err := jwtMgr.ValidateToken(tokenStr)
			if err != nil {
				http.Error(w, `{"error":"invalid or expired token"}`, http.StatusUnauthorized)
				return
			}
			ctx := context.WithValue(r.Context(), playerIDKey, claims.PlayerID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func tokenFromRequest(r *http.Request) (string, bool) {
	if header := r.Header.Get("Authorization"); header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") || parts[1] == "" {
			return "", false
		}
		return parts[1], true
	}
	return r.URL.Query().Get("token"), true
}

// PlayerIDFromContext returns the authenticated player id, or "" for an
// anonymous request.
func PlayerIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(playerIDKey).(string)
	return id
}

// CheckPlayer reports whether a connection authenticated as authID may act
// as playerID. Anonymous connections may act as anyone.
func CheckPlayer(authID, playerID string) error {
	if authID != "" && authID != playerID {
		return ErrPlayerMismatch
	}
	return nil
}
