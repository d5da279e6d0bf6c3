package auth_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gestor-crm/gestor/internal/auth"
	"github.com/gestor-crm/gestor/internal/rbac"
	"github.com/gestor-crm/gestor/internal/shared"
	"github.com/gestor-crm/gestor/internal/view"
	_ "github.com/gestor-crm/gestor/testing"
)

func newAuthRouter(t *testing.T, restore bool) (http.Handler, *auth.Manager, *shared.Toasts) {
	t.Helper()
	templates, err := view.NewEngine()
	require.NoError(t, err)
	toasts := shared.NewToasts(4)
	manager, err := auth.NewManager(auth.NewMemoryStore(), auth.NewMockVerifier(0), toasts, nil, auth.Options{})
	require.NoError(t, err)
	if restore {
		manager.RestoreOnStart(context.Background())
	}
	router := chi.NewRouter()
	auth.NewHandler(nil, manager, templates, toasts).MountRoutes(router)
	return router, manager, toasts
}

func postForm(router http.Handler, path string, values url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)
	return res
}

func TestLandingPage(t *testing.T) {
	router, _, _ := newAuthRouter(t, true)

	res := httptest.NewRecorder()
	router.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, http.StatusOK, res.Code)
	assert.Contains(t, res.Body.String(), `action="/auth/login"`)
	assert.Contains(t, res.Body.String(), `action="/auth/register"`)
}

func TestLandingWhileRestoring(t *testing.T) {
	router, _, _ := newAuthRouter(t, false)

	res := httptest.NewRecorder()
	router.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusServiceUnavailable, res.Code)
	assert.Equal(t, "1", res.Header().Get("Retry-After"))
}

func TestLoginRedirectsToDashboard(t *testing.T) {
	router, manager, toasts := newAuthRouter(t, true)

	res := postForm(router, "/auth/login", url.Values{"email": {"ada@example.com"}, "password": {"secret"}})
	require.Equal(t, http.StatusSeeOther, res.Code)
	assert.Equal(t, auth.DefaultHomePath, res.Header().Get("Location"))
	assert.Equal(t, auth.StateAuthenticated, manager.Session().State())

	flash := toasts.Pop()
	require.NotNil(t, flash)
	assert.Equal(t, "Signed in", flash.Title)

	landing := httptest.NewRecorder()
	router.ServeHTTP(landing, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusSeeOther, landing.Code)
	assert.Equal(t, auth.DefaultHomePath, landing.Header().Get("Location"))
}

func TestLoginInvalidForm(t *testing.T) {
	router, manager, _ := newAuthRouter(t, true)

	res := postForm(router, "/auth/login", url.Values{"email": {"nope"}, "password": {""}})
	require.Equal(t, http.StatusBadRequest, res.Code)
	assert.Contains(t, res.Body.String(), "Enter a valid email address")
	assert.Contains(t, res.Body.String(), "Password is required")
	assert.Equal(t, auth.StateAnonymous, manager.Session().State())
}

func TestRegisterAssignsEditorRole(t *testing.T) {
	router, manager, _ := newAuthRouter(t, true)

	res := postForm(router, "/auth/register", url.Values{
		"name":     {"Grace Hopper"},
		"email":    {"grace@example.com"},
		"password": {"secret"},
	})
	require.Equal(t, http.StatusSeeOther, res.Code)
	current, ok := manager.Session().Current()
	require.True(t, ok)
	assert.Equal(t, rbac.RoleEditor, current.Role.Name())
	assert.Equal(t, "Grace Hopper", current.Name)
}

func TestRegisterMissingName(t *testing.T) {
	router, _, _ := newAuthRouter(t, true)

	res := postForm(router, "/auth/register", url.Values{"email": {"grace@example.com"}, "password": {"secret"}})
	require.Equal(t, http.StatusBadRequest, res.Code)
	assert.Contains(t, res.Body.String(), "Name is required")
}

func TestLogoutReturnsToEntry(t *testing.T) {
	router, manager, _ := newAuthRouter(t, true)
	_, err := manager.Login(context.Background(), "ada@example.com", "secret")
	require.NoError(t, err)

	res := postForm(router, "/auth/logout", url.Values{})
	require.Equal(t, http.StatusSeeOther, res.Code)
	assert.Equal(t, auth.DefaultEntryPath, res.Header().Get("Location"))
	assert.Equal(t, auth.StateAnonymous, manager.Session().State())
}

func TestSessionSnapshotEndpoint(t *testing.T) {
	router, manager, _ := newAuthRouter(t, true)
	_, err := manager.Login(context.Background(), "ada@example.com", "secret")
	require.NoError(t, err)

	res := httptest.NewRecorder()
	router.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/api/session", nil))
	require.Equal(t, http.StatusOK, res.Code)

	var snap struct {
		State     string `json:"state"`
		Restoring bool   `json:"restoring"`
		Identity  struct {
			Email string `json:"email"`
			Role  struct {
				Name        string            `json:"name"`
				Permissions map[string]string `json:"permissions"`
			} `json:"role"`
		} `json:"identity"`
	}
	require.NoError(t, json.Unmarshal(res.Body.Bytes(), &snap))
	assert.Equal(t, "authenticated", snap.State)
	assert.False(t, snap.Restoring)
	assert.Equal(t, "ada@example.com", snap.Identity.Email)
	assert.Equal(t, "admin", snap.Identity.Role.Name)
	assert.Equal(t, "full", snap.Identity.Role.Permissions["settings"])
}
