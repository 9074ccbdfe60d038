package handlers

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"fintrack/internal/auth"
	"fintrack/internal/models"
	"fintrack/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	h       *Handlers
	db      *storage.DB
	admin   *models.User
	user    *models.User
	cookies map[string]*http.Cookie
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := storage.NewDB(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	h := NewHandlers(db, auth.NewGitHub("id", "secret", "http://localhost:8080"), "../../web/templates", false)

	f := &fixture{h: h, db: db, cookies: make(map[string]*http.Cookie)}

	f.admin, err = db.UpsertUser("admin@example.com", "Admin", "")
	require.NoError(t, err)
	f.admin, err = db.UpdateUserRole(f.admin.ID, models.RoleAdmin)
	require.NoError(t, err)

	f.user, err = db.UpsertUser("user@example.com", "User", "")
	require.NoError(t, err)

	for name, u := range map[string]*models.User{"admin": f.admin, "user": f.user} {
		token, err := auth.NewSessionToken()
		require.NoError(t, err)
		_, err = db.CreateSession(token, u.ID, time.Now().Add(time.Hour))
		require.NoError(t, err)
		f.cookies[name] = &http.Cookie{Name: SessionCookieName, Value: token}
	}

	return f
}

func (f *fixture) request(method, target, body, as string) *http.Request {
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, rd)
	if as != "" {
		req.AddCookie(f.cookies[as])
	}
	return req
}

func decodeJSON(t *testing.T, w *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), v))
}

func TestProtectAPIRequiresAuthentication(t *testing.T) {
	f := newFixture(t)
	handler := f.h.Protect(f.h.ListUsersAPI, GuardOptions{Role: models.RoleAdmin, API: true})

	// No session cookie on an admin-only API: the outcome is always
	// not-authenticated, never forbidden; auth is checked before role.
	w := httptest.NewRecorder()
	handler(w, f.request(http.MethodGet, "/api/admin/users", "", ""))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	var body map[string]string
	decodeJSON(t, w, &body)
	assert.Equal(t, "not authenticated", body["error"])
}

func TestProtectAPIForbiddenForWrongRole(t *testing.T) {
	f := newFixture(t)
	handler := f.h.Protect(f.h.ListUsersAPI, GuardOptions{Role: models.RoleAdmin, API: true})

	w := httptest.NewRecorder()
	handler(w, f.request(http.MethodGet, "/api/admin/users", "", "user"))
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestProtectAPIExpiredSession(t *testing.T) {
	f := newFixture(t)
	token, err := auth.NewSessionToken()
	require.NoError(t, err)
	_, err = f.db.CreateSession(token, f.user.ID, time.Now().Add(-time.Minute))
	require.NoError(t, err)

	handler := f.h.Protect(f.h.ProfileAPI, GuardOptions{API: true})
	req := httptest.NewRequest(http.MethodGet, "/api/user/profile", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: token})

	w := httptest.NewRecorder()
	handler(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestProtectPageRedirectsToSignIn(t *testing.T) {
	f := newFixture(t)
	handler := f.h.Protect(f.h.Dashboard, GuardOptions{})

	w := httptest.NewRecorder()
	handler(w, f.request(http.MethodGet, "/dashboard", "", ""))
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/auth/signin", w.Header().Get("Location"))
}

func TestProtectPageRedirectsToUnauthorized(t *testing.T) {
	f := newFixture(t)
	handler := f.h.Protect(f.h.AdminUsersPage, GuardOptions{Role: models.RoleAdmin})

	w := httptest.NewRecorder()
	handler(w, f.request(http.MethodGet, "/admin/users", "", "user"))
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/unauthorized", w.Header().Get("Location"))
}

func TestProtectRecoversFromPanics(t *testing.T) {
	f := newFixture(t)
	handler := f.h.Protect(func(w http.ResponseWriter, r *http.Request, u *models.User) {
		panic("boom")
	}, GuardOptions{API: true})

	w := httptest.NewRecorder()
	handler(w, f.request(http.MethodGet, "/api/anything", "", "user"))
	assert.Equal(t, http.StatusInternalServerError, w.Code)

	var body map[string]string
	decodeJSON(t, w, &body)
	assert.Equal(t, "internal server error", body["error"], "panics never leak internals")
}

func TestGitHubLoginRedirectsToProvider(t *testing.T) {
	f := newFixture(t)

	w := httptest.NewRecorder()
	f.h.GitHubLogin(w, httptest.NewRequest(http.MethodGet, "/auth/github", nil))
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Contains(t, w.Header().Get("Location"), "github.com/login/oauth/authorize")

	var stateCookie *http.Cookie
	for _, c := range w.Result().Cookies() {
		if c.Name == StateCookieName {
			stateCookie = c
		}
	}
	require.NotNil(t, stateCookie, "state cookie must be set")
	assert.NotEmpty(t, stateCookie.Value)
}

func TestGitHubCallbackRejectsBadState(t *testing.T) {
	f := newFixture(t)

	req := httptest.NewRequest(http.MethodGet, "/auth/github/callback?state=forged&code=x", nil)
	req.AddCookie(&http.Cookie{Name: StateCookieName, Value: "issued"})

	w := httptest.NewRecorder()
	f.h.GitHubCallback(w, req)
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/auth/signin?error=state", w.Header().Get("Location"))
}

func TestSignOutDeletesSessionAndClearsCookie(t *testing.T) {
	f := newFixture(t)
	token := f.cookies["user"].Value

	w := httptest.NewRecorder()
	f.h.SignOut(w, f.request(http.MethodPost, "/auth/signout", "", "user"))
	assert.Equal(t, http.StatusFound, w.Code)

	_, _, err := f.db.GetSessionWithUser(token)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	var cleared *http.Cookie
	for _, c := range w.Result().Cookies() {
		if c.Name == SessionCookieName {
			cleared = c
		}
	}
	require.NotNil(t, cleared)
	assert.Empty(t, cleared.Value)
	assert.Negative(t, cleared.MaxAge)
}
