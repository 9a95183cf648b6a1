package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/redmonkez12/go-phone-auth/internal/httputil"
	"github.com/redmonkez12/go-phone-auth/internal/logging"
	"github.com/redmonkez12/go-phone-auth/internal/session"
	"github.com/redmonkez12/go-phone-auth/internal/store"
	"github.com/redmonkez12/go-phone-auth/internal/user"
)

// ContextKey is a type for context keys to avoid collisions
type ContextKey string

const (
	UserContextKey    ContextKey = "user"
	SessionContextKey ContextKey = "session"
)

var errInvalidAuthHeader = errors.New("invalid authorization header format")

// Middleware handles authentication for protected routes
type Middleware struct {
	gate   *Gate
	sealer TokenSealer
}

func NewMiddleware(gate *Gate, sealer TokenSealer) *Middleware {
	return &Middleware{gate: gate, sealer: sealer}
}

// RequireSession rejects requests without a live session and stores the
// caller's identity in the request context
func (m *Middleware) RequireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logger := logging.GetLoggerFromContext(r.Context())

		sealed, err := sealedTokenFromRequest(r)
		if err != nil {
			httputil.RespondErrorWithCode(w, err.Error(), httputil.CodeInvalidAuthHeader, http.StatusUnauthorized)
			return
		}

		token := ""
		if sealed != "" {
			// A tampered or expired envelope is the same as no session
			token, _ = m.sealer.Open(sealed)
		}

		u, sess, err := m.gate.Authenticate(r.Context(), token)
		if err != nil {
			if errors.Is(err, ErrUnauthorized) {
				httputil.RespondErrorWithCode(w, "unauthorized", httputil.CodeUnauthorized, http.StatusUnauthorized)
				return
			}
			logger.Error("failed to authenticate request", "error", err.Error())
			respondStoreError(w, err)
			return
		}

		ctx := context.WithValue(r.Context(), UserContextKey, u)
		ctx = context.WithValue(ctx, SessionContextKey, sess)
		ctx = logging.WithLogger(ctx, logger.WithFields(map[string]any{"user_id": u.ID}))

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireRole rejects callers without role. It must run after RequireSession.
func (m *Middleware) RequireRole(role user.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			u, ok := GetUserFromContext(r.Context())
			if !ok {
				httputil.RespondErrorWithCode(w, "unauthorized", httputil.CodeUnauthorized, http.StatusUnauthorized)
				return
			}
			if u.Role != role {
				logging.GetLoggerFromContext(r.Context()).Warn("forbidden: missing role", "required_role", role)
				httputil.RespondErrorWithCode(w, "forbidden", httputil.CodeForbidden, http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// sealedTokenFromRequest reads the Authorization header first, then the cookie.
// An empty string means no credentials were sent.
func sealedTokenFromRequest(r *http.Request) (string, error) {
	// Priority 1: Authorization header
	if authHeader := r.Header.Get("Authorization"); authHeader != "" {
		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
			return "", errInvalidAuthHeader
		}
		return parts[1], nil
	}

	// Priority 2: Cookie (fallback)
	cookieToken, err := GetSessionTokenFromCookie(r)
	if err != nil {
		return "", nil
	}
	return cookieToken, nil
}

// respondStoreError answers a failure that is not the caller's fault
func respondStoreError(w http.ResponseWriter, err error) {
	if errors.Is(err, store.ErrUnavailable) {
		httputil.RespondErrorWithCode(w, "service temporarily unavailable", httputil.CodeStoreUnavailable, http.StatusInternalServerError)
		return
	}
	httputil.RespondErrorWithCode(w, "internal server error", httputil.CodeInternalError, http.StatusInternalServerError)
}

// GetUserFromContext extracts the authenticated user from the request context
func GetUserFromContext(ctx context.Context) (*user.User, bool) {
	u, ok := ctx.Value(UserContextKey).(*user.User)
	return u, ok && u != nil
}

// GetSessionFromContext extracts the current session from the request context
func GetSessionFromContext(ctx context.Context) (*session.Session, bool) {
	s, ok := ctx.Value(SessionContextKey).(*session.Session)
	return s, ok && s != nil
}
