package view

import (
	"bytes"
	"errors"
	"html/template"
	"net/http"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/gestor-crm/gestor/internal/shared"
	"github.com/gestor-crm/gestor/web"
)

var errNotInitialised = errors.New("template engine not initialised")

// Engine renders HTML templates.
type Engine struct {
	templates *template.Template
}

// NavItem is one entry of the sidebar.
type NavItem struct {
	Label  string
	Path   string
	Active bool
}

// UserBadge summarises the signed-in identity for the page header.
type UserBadge struct {
	Name  string
	Email string
	Role  string
}

// TemplateData contains values shared across templates.
type TemplateData struct {
	Title       string
	Flash       *shared.Notification
	CurrentPath string
	User        *UserBadge
	Nav         []NavItem
	Data        any
}

// Label turns an identifier such as "webhooks" into a display label.
func Label(s string) string {
	return cases.Title(language.English).String(s)
}

// NewEngine parses the embedded templates.
func NewEngine() (*Engine, error) {
	funcMap := template.FuncMap{
		"formatDate": func(t time.Time) string {
			if t.IsZero() {
				return ""
			}
			return t.Format("02 Jan 2006 15:04")
		},
		"label": Label,
	}
	tpl, err := template.New("root").Funcs(funcMap).ParseFS(web.Templates, "templates/layouts/*.html", "templates/pages/*.html")
	if err != nil {
		return nil, err
	}
	return &Engine{templates: tpl}, nil
}

// Render executes a named template with status 200.
func (e *Engine) Render(w http.ResponseWriter, name string, data TemplateData) error {
	return e.RenderStatus(w, http.StatusOK, name, data)
}

// RenderStatus executes a named template into a buffer and writes it with status.
// When execution fails the client receives the plain status text instead and the
// error is returned for logging.
func (e *Engine) RenderStatus(w http.ResponseWriter, status int, name string, data TemplateData) error {
	if e == nil {
		http.Error(w, http.StatusText(status), status)
		return errNotInitialised
	}
	var buf bytes.Buffer
	if err := e.templates.ExecuteTemplate(&buf, name, data); err != nil {
		http.Error(w, http.StatusText(status), status)
		return err
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, err := buf.WriteTo(w)
	return err
}
