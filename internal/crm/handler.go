// Package crm serves the console pages behind the authentication guard. Every
// page is gated on a resource permission of the signed-in operator.
package crm

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/gestor-crm/gestor/internal/auth"
	"github.com/gestor-crm/gestor/internal/rbac"
	"github.com/gestor-crm/gestor/internal/shared"
	"github.com/gestor-crm/gestor/internal/users"
	"github.com/gestor-crm/gestor/internal/view"
)

// Section is one console area and the resource that gates it.
type Section struct {
	Path     string
	Resource rbac.Resource
	Heading  string
}

// Sections lists the console areas in sidebar order.
var Sections = []Section{
	{Path: "/dashboard", Resource: rbac.ResourceDashboard, Heading: "Dashboard"},
	{Path: "/clients", Resource: rbac.ResourceClients, Heading: "Clients"},
	{Path: "/sales", Resource: rbac.ResourceSales, Heading: "Sales"},
	{Path: "/reports", Resource: rbac.ResourceReports, Heading: "Reports"},
	{Path: "/calendar", Resource: rbac.ResourceCalendar, Heading: "Calendar"},
	{Path: "/settings", Resource: rbac.ResourceSettings, Heading: "Settings"},
	{Path: "/settings/webhooks", Resource: rbac.ResourceWebhooks, Heading: "Webhooks"},
	{Path: "/settings/users", Resource: rbac.ResourceUsers, Heading: "Users"},
}

// SectionPath returns the path of the section gated by resource, or "/" when
// no section uses it.
func SectionPath(resource rbac.Resource) string {
	for _, section := range Sections {
		if section.Resource == resource {
			return section.Path
		}
	}
	return "/"
}

// Handler renders the console sections.
type Handler struct {
	logger    *slog.Logger
	templates *view.Engine
	toasts    *shared.Toasts
	notifier  shared.Notifier
	directory *users.Directory
	rbac      rbac.Middleware
}

// NewHandler builds Handler instance. Notifications go to notifier, which
// defaults to toasts; toasts is drained when a page renders.
func NewHandler(logger *slog.Logger, templates *view.Engine, toasts *shared.Toasts, notifier shared.Notifier, directory *users.Directory, mw rbac.Middleware) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	if notifier == nil {
		notifier = toasts
	}
	if directory == nil {
		directory = users.NewDirectory()
	}
	return &Handler{logger: logger, templates: templates, toasts: toasts, notifier: notifier, directory: directory, rbac: mw}
}

// MountRoutes registers section routes. Callers wrap r with the authentication guard.
func (h *Handler) MountRoutes(r chi.Router) {
	for _, section := range Sections {
		if section.Resource == rbac.ResourceUsers {
			h.mountUsers(r, section)
			continue
		}
		r.With(h.rbac.RequireRead(section.Resource)).Get(section.Path, h.showSection(section))
		readOnly := h.readOnlyFallback(section)
		r.With(h.rbac.Require(section.Resource, rbac.LevelWrite, readOnly)).Get(section.Path+"/new", h.showSection(section))
	}
	r.With(h.rbac.RequireRead(rbac.ResourceSettings)).Get("/settings/roles", h.showRoles)
}

type sectionPage struct {
	Heading   string
	Path      string
	Level     string
	CanEdit   bool
	CanManage bool
}

func (h *Handler) showSection(section Section) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity, _ := auth.IdentityFromContext(r.Context())
		level, _ := identity.Role.Level(section.Resource)
		data := sectionPage{
			Heading:   section.Heading,
			Path:      section.Path,
			Level:     view.Label(level.String()),
			CanEdit:   rbac.CanEdit(&identity, section.Resource),
			CanManage: rbac.CanManage(&identity, section.Resource),
		}
		h.render(w, r, http.StatusOK, "pages/section.html", section.Heading, data)
	}
}

// readOnlyFallback sends operators without write access back to the section
// with a notice instead of the generic denial panel.
func (h *Handler) readOnlyFallback(section Section) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h.notifier.Notify(r.Context(), shared.Notification{
			Title:       "Read-only access",
			Description: "Your role cannot create " + strings.ToLower(section.Heading),
		})
		http.Redirect(w, r, section.Path, http.StatusSeeOther)
	})
}

type roleRow struct {
	Resource string
	Levels   []string
}

type rolesPage struct {
	Roles []string
	Rows  []roleRow
}

func (h *Handler) showRoles(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, "pages/roles.html", "Roles", buildRoleMatrix(rbac.DefaultRoles()))
}

func buildRoleMatrix(roles []rbac.Role) rolesPage {
	page := rolesPage{Roles: make([]string, 0, len(roles))}
	for _, role := range roles {
		page.Roles = append(page.Roles, string(role.Name()))
	}
	for _, resource := range rbac.Resources() {
		row := roleRow{Resource: string(resource), Levels: make([]string, 0, len(roles))}
		for _, role := range roles {
			level, _ := role.Level(resource)
			row.Levels = append(row.Levels, level.String())
		}
		page.Rows = append(page.Rows, row)
	}
	return page
}

// Navigation returns the sidebar entries the principal may read, marking the
// one matching current.
func Navigation(p rbac.Principal, current string) []view.NavItem {
	items := make([]view.NavItem, 0, len(Sections))
	for _, section := range Sections {
		if !rbac.CanAccess(p, section.Resource) {
			continue
		}
		items = append(items, view.NavItem{
			Label:  section.Heading,
			Path:   section.Path,
			Active: current == section.Path || current == section.Path+"/new",
		})
	}
	return items
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, status int, template, title string, data any) {
	viewData := view.TemplateData{
		Title:       title,
		Flash:       h.toasts.Pop(),
		CurrentPath: r.URL.Path,
		Data:        data,
	}
	if identity, ok := auth.IdentityFromContext(r.Context()); ok {
		viewData.User = &view.UserBadge{Name: identity.Name, Email: identity.Email, Role: string(identity.Role.Name())}
		viewData.Nav = Navigation(&identity, r.URL.Path)
	}
	if err := h.templates.RenderStatus(w, status, template, viewData); err != nil {
		h.logger.Error("render section", slog.String("template", template), slog.Any("error", err))
	}
}
