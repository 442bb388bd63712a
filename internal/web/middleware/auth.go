package middleware

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/JonMunkholm/attrmatrix/internal/auth"
	"github.com/JonMunkholm/attrmatrix/internal/logging"
)

// TokenVerifier validates a bearer token.
type TokenVerifier interface {
	Verify(token string) (*auth.Claims, error)
}

// RequireAuth returns middleware that rejects requests without a valid
// "Authorization: Bearer <token>" header. The authenticated username is put on
// the request context for logging and auditing.
func RequireAuth(v TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				slog.Warn("auth: missing token",
					"path", r.URL.Path,
					"method", r.Method,
					"remote_addr", r.RemoteAddr,
				)
				unauthorized(w, "Authentication required", "AUTH001")
				return
			}

			claims, err := v.Verify(token)
			if err != nil {
				slog.Warn("auth: invalid token",
					"path", r.URL.Path,
					"method", r.Method,
					"remote_addr", r.RemoteAddr,
					"error", err,
				)
				unauthorized(w, "Invalid or expired token", "AUTH002")
				return
			}

			ctx := logging.ContextWithUsername(r.Context(), claims.Username)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// bearerToken returns the token part of the Authorization header.
func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	scheme, token, ok := strings.Cut(h, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

func unauthorized(w http.ResponseWriter, message, code string) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("WWW-Authenticate", `Bearer realm="attrmatrix"`)
	w.WriteHeader(http.StatusUnauthorized)
	json.NewEncoder(w).Encode(map[string]string{"error": message, "code": code})
}
