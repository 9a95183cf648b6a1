package logging

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingObserver struct {
	method string
	route  string
	status int
}

func (o *recordingObserver) ObserveRequest(method, route string, status int, _ time.Duration) {
	o.method, o.route, o.status = method, route, status
}

func TestRequestLogger_StoresLoggerAndObservesRoute(t *testing.T) {
	obs := &recordingObserver{}
	var fromCtx *Logger

	r := chi.NewRouter()
	r.Use(RequestLogger(NewDiscardLogger(), obs))
	r.Get("/items/{id}", func(w http.ResponseWriter, r *http.Request) {
		fromCtx, _ = r.Context().Value(LoggerContextKey).(*Logger)
		w.WriteHeader(http.StatusTeapot)
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/items/42", nil))

	require.NotNil(t, fromCtx)
	assert.Equal(t, http.StatusTeapot, rec.Code)
	assert.Equal(t, http.MethodGet, obs.method)
	assert.Equal(t, "/items/{id}", obs.route)
	assert.Equal(t, http.StatusTeapot, obs.status)
}

func TestGetLoggerFromContext_Fallback(t *testing.T) {
	assert.NotNil(t, GetLoggerFromContext(context.Background()))

	l := NewDiscardLogger()
	assert.Same(t, l, GetLoggerFromContext(WithLogger(context.Background(), l)))
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, "DEBUG", parseLevel("debug").String())
	assert.Equal(t, "WARN", parseLevel("WARNING").String())
	assert.Equal(t, "INFO", parseLevel("nonsense").String())
}
