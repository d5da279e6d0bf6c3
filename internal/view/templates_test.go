package view

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gestor-crm/gestor/internal/shared"
)

func TestNewEngine(t *testing.T) {
	engine, err := NewEngine()
	assert.NoError(t, err, "Templates should parse without error")
	assert.NotNil(t, engine)
}

func TestRenderLayoutWithUserNavAndFlash(t *testing.T) {
	engine, err := NewEngine()
	require.NoError(t, err)

	res := httptest.NewRecorder()
	err = engine.RenderStatus(res, http.StatusOK, "pages/restricted.html", TemplateData{
		Title: "Access restricted",
		User:  &UserBadge{Name: "Ada", Email: "ada@example.com", Role: "editor"},
		Nav:   []NavItem{{Label: "Clients", Path: "/clients", Active: true}},
		Flash: &shared.Notification{Title: "Signed in", Description: "Welcome, Ada", Success: true},
	})
	require.NoError(t, err)
	body := res.Body.String()
	assert.Contains(t, body, `<span class="user-role">Editor</span>`)
	assert.Contains(t, body, `<li class="active"><a href="/clients">Clients</a></li>`)
	assert.Contains(t, body, `class="toast success"`)
	assert.Equal(t, "text/html; charset=utf-8", res.Header().Get("Content-Type"))
}

func TestRenderStatusFallsBackToStatusText(t *testing.T) {
	engine, err := NewEngine()
	require.NoError(t, err)

	res := httptest.NewRecorder()
	err = engine.RenderStatus(res, http.StatusForbidden, "pages/missing.html", TemplateData{})
	assert.Error(t, err)
	assert.Equal(t, http.StatusForbidden, res.Code)
	assert.Contains(t, res.Body.String(), http.StatusText(http.StatusForbidden))

	var nilEngine *Engine
	res = httptest.NewRecorder()
	assert.Error(t, nilEngine.RenderStatus(res, http.StatusServiceUnavailable, "pages/loading.html", TemplateData{}))
	assert.Equal(t, http.StatusServiceUnavailable, res.Code)
}

func TestLabel(t *testing.T) {
	assert.Equal(t, "Webhooks", Label("webhooks"))
	assert.Equal(t, "Full", Label("full"))
}
