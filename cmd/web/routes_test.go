package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alexedwards/scs/v2"
	"github.com/hominio/cups/internal/cache"
	"github.com/hominio/cups/internal/config"
	"github.com/hominio/cups/internal/db/dbtest"
	"github.com/hominio/cups/internal/metrics"
	"github.com/hominio/cups/internal/notify"
	"github.com/hominio/cups/internal/service"
	"github.com/hominio/cups/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestApp(t *testing.T) (*app, http.Handler) {
	t.Helper()

	database := dbtest.Setup(t)
	cfg, err := config.FromEnv(func(string) string { return "" })
	require.NoError(t, err)

	c, err := cache.New(context.Background(), "", time.Minute)
	require.NoError(t, err)

	a := newApp(cfg, database, notify.New(store.NewNotificationStore(database)), c, metrics.New(), scs.New())
	return a, a.routes()
}

func TestGuestLoginSession(t *testing.T) {
	_, router := newTestApp(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/auth/guest", nil))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	cookies := rec.Result().Cookies()
	require.NotEmpty(t, cookies)

	req := httptest.NewRequest(http.MethodGet, "/alpha/api/me", nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), "Guest User")

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/alpha/api/me", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCupPage(t *testing.T) {
	a, router := newTestApp(t)
	admin := dbtest.InsertUser(t, a.cups.DB, "admin", true)

	c, err := a.cups.CreateCup(context.Background(), admin, service.CreateCupInput{Name: "Autumn Cup", Size: 4})
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/alpha/cups/"+c.ID.String(), nil))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "text/html; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), "<h1>Autumn Cup</h1>")
	assert.Contains(t, rec.Body.String(), "Not started yet")

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/alpha/cups/not-a-uuid", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	_, router := newTestApp(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}
