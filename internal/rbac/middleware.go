package rbac

import (
	"log/slog"
	"net/http"

	"github.com/gestor-crm/gestor/internal/observability"
	"github.com/gestor-crm/gestor/internal/view"
)

// Middleware gates handlers on a resource permission of the current session.
type Middleware struct {
	Session   SessionView
	Templates *view.Engine
	Logger    *slog.Logger
	Metrics   *observability.Metrics
}

type deniedPage struct {
	Resource Resource
	Required Level
	Role     RoleName
}

// Require renders next only when the session holds at least required on resource.
// Denied requests are served by fallback when it is non-nil, otherwise by a panel
// naming the resource, the required level and the caller's role.
func (m Middleware) Require(resource Resource, required Level, fallback http.Handler) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			decision := Decide(m.Session, resource, required)
			m.Metrics.ObserveGuard("resource", string(resource), decision.Outcome.String())
			switch decision.Outcome {
			case OutcomeAllowed:
				next.ServeHTTP(w, r)
			case OutcomeLoading:
				w.Header().Set("Retry-After", "1")
				m.render(w, r, http.StatusServiceUnavailable, "pages/loading.html", "Loading", nil)
			case OutcomeDenied:
				if fallback != nil {
					fallback.ServeHTTP(w, r)
					return
				}
				m.render(w, r, http.StatusForbidden, "pages/denied.html", "Access denied", deniedPage{
					Resource: decision.Resource,
					Required: decision.Required,
					Role:     decision.Role,
				})
			default:
				m.render(w, r, http.StatusUnauthorized, "pages/restricted.html", "Access restricted", nil)
			}
		})
	}
}

// RequireRead is Require(resource, LevelRead, nil).
func (m Middleware) RequireRead(resource Resource) func(http.Handler) http.Handler {
	return m.Require(resource, LevelRead, nil)
}

func (m Middleware) render(w http.ResponseWriter, r *http.Request, status int, template, title string, data any) {
	viewData := view.TemplateData{Title: title, CurrentPath: r.URL.Path, Data: data}
	if err := m.Templates.RenderStatus(w, status, template, viewData); err != nil && m.Logger != nil {
		m.Logger.Error("render guard page", slog.String("template", template), slog.Any("error", err))
	}
}
