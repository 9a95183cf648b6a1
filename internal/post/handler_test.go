package post

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/redmonkez12/go-phone-auth/internal/auth"
	"github.com/redmonkez12/go-phone-auth/internal/httputil"
	"github.com/redmonkez12/go-phone-auth/internal/logging"
	"github.com/redmonkez12/go-phone-auth/internal/session"
	"github.com/redmonkez12/go-phone-auth/internal/store"
	"github.com/redmonkez12/go-phone-auth/internal/user"
)

type memoryPosts struct {
	mu      sync.Mutex
	created []NewPost
	err     error
}

func (m *memoryPosts) Create(_ context.Context, np NewPost) (*Post, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	m.created = append(m.created, np)
	return &Post{ID: int64(len(m.created)), Title: np.Title, Content: np.Content, AuthorID: np.AuthorID}, nil
}

func (m *memoryPosts) List(_ context.Context, limit, offset int) ([]Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	entries := []Entry{}
	for i, np := range m.created {
		entries = append(entries, Entry{Post: Post{ID: int64(i + 1), Title: np.Title, Content: np.Content, AuthorID: np.AuthorID}})
	}
	return entries, nil
}

func (m *memoryPosts) writes() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.created)
}

// identities serves GetByID for the session gate; other lookups are unused here
type identities struct {
	auth.IdentityStore
	byID map[uuid.UUID]*user.User
}

func (i identities) GetByID(_ context.Context, id uuid.UUID) (*user.User, error) {
	if u, ok := i.byID[id]; ok {
		return u, nil
	}
	return nil, user.ErrNotFound
}

type fixture struct {
	posts  *memoryPosts
	router http.Handler
	token  string
	author *user.User
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	author := &user.User{ID: uuid.New(), Email: "alice@example.com", Name: "Alice", Role: user.RoleStandard}
	sessions := session.NewManager(session.NewMemoryStore(), time.Hour, logging.NewDiscardLogger())
	sealer, err := auth.NewPasetoService([]byte("0123456789abcdef0123456789abcdef"))
	require.NoError(t, err)

	sess, err := sessions.Create(context.Background(), author.ID)
	require.NoError(t, err)
	token, err := sealer.Seal(sess.Token, sess.ExpiresAt)
	require.NoError(t, err)

	gate := auth.NewGate(sessions, identities{byID: map[uuid.UUID]*user.User{author.ID: author}})
	mw := auth.NewMiddleware(gate, sealer)
	posts := &memoryPosts{}
	h := NewHandler(posts)

	r := chi.NewRouter()
	r.Get("/content", h.ListPosts)
	r.With(mw.RequireSession).Post("/content", h.CreatePost)

	return &fixture{posts: posts, router: r, token: token, author: author}
}

func (f *fixture) post(t *testing.T, body, token string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, "/content", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.AddCookie(&http.Cookie{Name: auth.SessionCookieName, Value: token})
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) httputil.ErrorResponse {
	t.Helper()

	var body httputil.ErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	return body
}

func TestCreatePost(t *testing.T) {
	f := newFixture(t)

	rec := f.post(t, `{"title":"Hello","content":"Your post content"}`, f.token)
	require.Equal(t, http.StatusOK, rec.Code)

	var body httputil.MessageResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, "Post created correctly", body.Message)

	require.Equal(t, 1, f.posts.writes())
	assert.Equal(t, f.author.ID, f.posts.created[0].AuthorID)
}

func TestCreatePost_UnauthorizedWritesNothing(t *testing.T) {
	f := newFixture(t)

	for _, token := range []string{"", "not-a-paseto-token"} {
		rec := f.post(t, `{"title":"Hello","content":"World"}`, token)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, httputil.CodeUnauthorized, decodeError(t, rec).Code)
	}
	assert.Zero(t, f.posts.writes())
}

func TestCreatePost_Validation(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name string
		body string
		code string
	}{
		{name: "malformed", body: `{"title":`, code: httputil.CodeInvalidRequestBody},
		{name: "missing title", body: `{"content":"x"}`, code: httputil.CodeTitleRequired},
		{name: "long title", body: `{"title":"` + strings.Repeat("a", 256) + `","content":"x"}`, code: httputil.CodeTitleTooLong},
		{name: "missing content", body: `{"title":"x"}`, code: httputil.CodeContentRequired},
		{name: "long content", body: `{"title":"x","content":"` + strings.Repeat("a", 1001) + `"}`, code: httputil.CodeContentTooLong},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := f.post(t, tt.body, f.token)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, tt.code, decodeError(t, rec).Code)
		})
	}
	assert.Zero(t, f.posts.writes())
}

func TestCreatePost_StoreUnavailable(t *testing.T) {
	f := newFixture(t)
	f.posts.err = store.Unavailable("create post", errors.New("connection reset"))

	rec := f.post(t, `{"title":"Hello","content":"World"}`, f.token)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, httputil.CodeStoreUnavailable, decodeError(t, rec).Code)
}

func TestListPosts(t *testing.T) {
	f := newFixture(t)
	require.Equal(t, http.StatusOK, f.post(t, `{"title":"Hello","content":"World"}`, f.token).Code)

	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/content?limit=500", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var entries []Entry
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&entries))
	require.Len(t, entries, 1)
	assert.Equal(t, "Hello", entries[0].Post.Title)
}

func TestPagination(t *testing.T) {
	tests := []struct {
		query      string
		wantLimit  int
		wantOffset int
	}{
		{query: "", wantLimit: defaultPageSize},
		{query: "?limit=10&offset=20", wantLimit: 10, wantOffset: 20},
		{query: "?limit=1000", wantLimit: maxPageSize},
		{query: "?limit=-1&offset=abc", wantLimit: defaultPageSize},
	}

	for _, tt := range tests {
		limit, offset := pagination(httptest.NewRequest(http.MethodGet, "/content"+tt.query, nil))
		assert.Equal(t, tt.wantLimit, limit, tt.query)
		assert.Equal(t, tt.wantOffset, offset, tt.query)
	}
}
