package auth

import (
	"log/slog"
	"net/http"

	"github.com/gestor-crm/gestor/internal/observability"
	"github.com/gestor-crm/gestor/internal/view"
)

// DefaultEntryPath is where anonymous visitors are sent.
const DefaultEntryPath = "/"

// Guard admits only authenticated sessions.
type Guard struct {
	Session   *Session
	Templates *view.Engine
	Logger    *slog.Logger
	Metrics   *observability.Metrics
	// EntryPath receives anonymous visitors. Defaults to DefaultEntryPath.
	EntryPath string
}

// RequireAuth serves next with the identity in the request context. While the
// session is restoring or an operation is pending a loading page is rendered;
// anonymous visitors are redirected to the entry path.
func (g Guard) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if g.Session == nil || g.Session.Loading() {
			g.Metrics.ObserveGuard("auth", "", "loading")
			w.Header().Set("Retry-After", "1")
			viewData := view.TemplateData{Title: "Loading", CurrentPath: r.URL.Path}
			if err := g.Templates.RenderStatus(w, http.StatusServiceUnavailable, "pages/loading.html", viewData); err != nil && g.Logger != nil {
				g.Logger.Error("render loading", slog.Any("error", err))
			}
			return
		}
		identity, ok := g.Session.Current()
		if !ok {
			g.Metrics.ObserveGuard("auth", "", "unauthenticated")
			entry := g.EntryPath
			if entry == "" {
				entry = DefaultEntryPath
			}
			http.Redirect(w, r, entry, http.StatusSeeOther)
			return
		}
		g.Metrics.ObserveGuard("auth", "", "allowed")
		next.ServeHTTP(w, r.WithContext(ContextWithIdentity(r.Context(), identity)))
	})
}
