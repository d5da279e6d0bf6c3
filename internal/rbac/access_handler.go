package rbac

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/gestor-crm/gestor/internal/platform/httpx"
)

// AccessHandler exposes the permission model and access checks as JSON.
type AccessHandler struct {
	session SessionView
}

// NewAccessHandler builds an AccessHandler reading from session.
func NewAccessHandler(session SessionView) *AccessHandler {
	return &AccessHandler{session: session}
}

// MountRoutes registers access routes.
func (h *AccessHandler) MountRoutes(r chi.Router) {
	r.Get("/access", h.checkAccess)
	r.Get("/roles", h.listRoles)
}

type accessResponse struct {
	Resource Resource `json:"resource"`
	Level    string   `json:"level"`
	Outcome  string   `json:"outcome"`
	Allowed  bool     `json:"allowed"`
	Role     RoleName `json:"role,omitempty"`
}

func (h *AccessHandler) checkAccess(w http.ResponseWriter, r *http.Request) {
	resource, err := ParseResource(r.URL.Query().Get("resource"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Unknown Resource", err.Error())
		return
	}
	level := LevelRead
	if raw := r.URL.Query().Get("level"); raw != "" {
		if level, err = ParseLevel(raw); err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Unknown Level", err.Error())
			return
		}
	}
	decision := Decide(h.session, resource, level)
	httpx.JSON(w, http.StatusOK, accessResponse{
		Resource: resource,
		Level:    level.String(),
		Outcome:  decision.Outcome.String(),
		Allowed:  decision.Outcome == OutcomeAllowed,
		Role:     decision.Role,
	})
}

func (h *AccessHandler) listRoles(w http.ResponseWriter, r *http.Request) {
	httpx.JSON(w, http.StatusOK, map[string]any{"roles": DefaultRoles()})
}
