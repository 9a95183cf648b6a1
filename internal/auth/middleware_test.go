package auth

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/redmonkez12/go-phone-auth/internal/httputil"
	"github.com/redmonkez12/go-phone-auth/internal/store"
	"github.com/redmonkez12/go-phone-auth/internal/user"
)

func bearer(token string) func(*http.Request) {
	return func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+token) }
}

// apiSignIn creates a password account and returns its sealed token
func apiSignIn(t *testing.T, h *harness, role user.Role) string {
	t.Helper()

	hash, err := hashPassword("long-enough")
	require.NoError(t, err)
	u := h.users.insert(t, user.NewUser{Email: "alice@example.com", PasswordHash: &hash, Role: role})

	sess, err := h.sessions.Create(context.Background(), u.ID)
	require.NoError(t, err)
	sealed, err := h.sealer.Seal(sess.Token, sess.ExpiresAt)
	require.NoError(t, err)
	return sealed
}

func TestRequireSession(t *testing.T) {
	h := newHarness(t)
	router := h.router()
	sealed := apiSignIn(t, h, user.RoleStandard)

	otherSealer, err := NewPasetoService([]byte("ffffffffffffffffffffffffffffffff"))
	require.NoError(t, err)
	forged, err := otherSealer.Seal("made-up", time.Now().Add(time.Hour))
	require.NoError(t, err)

	tests := []struct {
		name     string
		mutate   func(*http.Request)
		wantCode int
		wantErr  string
	}{
		{name: "no credentials", mutate: func(*http.Request) {}, wantCode: http.StatusUnauthorized, wantErr: httputil.CodeUnauthorized},
		{name: "malformed header", mutate: func(r *http.Request) { r.Header.Set("Authorization", "Token abc") }, wantCode: http.StatusUnauthorized, wantErr: httputil.CodeInvalidAuthHeader},
		{name: "empty bearer", mutate: func(r *http.Request) { r.Header.Set("Authorization", "Bearer ") }, wantCode: http.StatusUnauthorized, wantErr: httputil.CodeInvalidAuthHeader},
		{name: "foreign envelope", mutate: bearer(forged), wantCode: http.StatusUnauthorized, wantErr: httputil.CodeUnauthorized},
		{name: "garbage cookie", mutate: withCookie(&http.Cookie{Name: SessionCookieName, Value: "garbage"}), wantCode: http.StatusUnauthorized, wantErr: httputil.CodeUnauthorized},
		{name: "valid bearer", mutate: bearer(sealed), wantCode: http.StatusOK},
		{name: "valid cookie", mutate: withCookie(&http.Cookie{Name: SessionCookieName, Value: sealed}), wantCode: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, router, http.MethodGet, "/auth/session", "", tt.mutate)
			assert.Equal(t, tt.wantCode, rec.Code)
			if tt.wantErr != "" {
				assert.Equal(t, tt.wantErr, errorCode(t, rec))
			}
		})
	}
}

func TestRequireSession_ExpiredSession(t *testing.T) {
	h := newHarness(t)
	router := h.router()

	hash, err := hashPassword("long-enough")
	require.NoError(t, err)
	u := h.users.insert(t, user.NewUser{Email: "alice@example.com", PasswordHash: &hash})

	// the envelope outlives the stored session
	sess, err := h.sessions.Create(context.Background(), u.ID)
	require.NoError(t, err)
	sealed, err := h.sealer.Seal(sess.Token, time.Now().Add(24*time.Hour))
	require.NoError(t, err)
	require.NoError(t, h.sessions.Invalidate(context.Background(), sess.Token))

	rec := do(t, router, http.MethodGet, "/auth/session", "", bearer(sealed))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireSession_StoreFailure(t *testing.T) {
	h := newHarness(t)
	router := h.router()
	sealed := apiSignIn(t, h, user.RoleStandard)

	h.users.err = store.Unavailable("get user", errors.New("connection refused"))

	rec := do(t, router, http.MethodGet, "/auth/session", "", bearer(sealed))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, httputil.CodeStoreUnavailable, errorCode(t, rec))
}

func TestRequireRole(t *testing.T) {
	t.Run("standard user is forbidden", func(t *testing.T) {
		h := newHarness(t)
		rec := do(t, h.router(), http.MethodGet, "/admin/ping", "", bearer(apiSignIn(t, h, user.RoleStandard)))
		assert.Equal(t, http.StatusForbidden, rec.Code)
		assert.Equal(t, httputil.CodeForbidden, errorCode(t, rec))
	})

	t.Run("admin passes", func(t *testing.T) {
		h := newHarness(t)
		rec := do(t, h.router(), http.MethodGet, "/admin/ping", "", bearer(apiSignIn(t, h, user.RoleAdmin)))
		assert.Equal(t, http.StatusNoContent, rec.Code)
	})

	t.Run("anonymous is unauthorized", func(t *testing.T) {
		h := newHarness(t)
		rec := do(t, h.router(), http.MethodGet, "/admin/ping", "")
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}
