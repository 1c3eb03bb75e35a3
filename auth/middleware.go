package auth

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/rs/zerolog/hlog"

	"github.com/warp/fuel-engine/fuel"
)

// Middleware validates bearer tokens and enforces role checks.
type Middleware struct {
	Secret []byte
}

// NewMiddleware constructs an auth middleware.
func NewMiddleware(secret []byte) *Middleware {
	return &Middleware{Secret: secret}
}

// Authenticate rejects requests without a valid token and stores the caller
// in the request context.
func (m *Middleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, err := ParseToken(extractBearer(r), m.Secret)
		if err != nil {
			if errors.Is(err, ErrMissingToken) {
				deny(w, http.StatusUnauthorized, "Access token required")
				return
			}
			hlog.FromRequest(r).Debug().Err(err).Msg("token rejected")
			deny(w, http.StatusForbidden, "Invalid or expired token")
			return
		}
		ctx := WithCaller(r.Context(), claims.Caller())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireRole allows only callers whose role is at least required. It must
// run after Authenticate.
func RequireRole(required fuel.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			caller, ok := CallerFromContext(r.Context())
			if !ok {
				deny(w, http.StatusUnauthorized, "Access token required")
				return
			}
			if !RoleAtLeast(caller.Role, required) {
				deny(w, http.StatusForbidden, "Insufficient permissions")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func extractBearer(r *http.Request) string {
	if r == nil {
		return ""
	}
	header := r.Header.Get("Authorization")
	if header == "" {
		return ""
	}
	parts := strings.Fields(header)
	if len(parts) != 2 {
		return ""
	}
	if !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return parts[1]
}

func deny(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
