package crm

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/gestor-crm/gestor/internal/auth"
	"github.com/gestor-crm/gestor/internal/platform/httpx"
	"github.com/gestor-crm/gestor/internal/rbac"
	"github.com/gestor-crm/gestor/internal/shared"
	"github.com/gestor-crm/gestor/internal/users"
)

// mountUsers registers the member directory: listing needs users:read,
// invites and changes need users:write, removal needs users:full.
func (h *Handler) mountUsers(r chi.Router, section Section) {
	r.With(h.rbac.RequireRead(section.Resource)).Get(section.Path, h.listUsers)
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.Require(section.Resource, rbac.LevelWrite, h.readOnlyFallback(section)))
		r.Post(section.Path, h.inviteUser)
		r.Post(section.Path+"/{id}/active", h.setMemberActive)
		r.Post(section.Path+"/{id}/role", h.assignMemberRole)
	})
	r.With(h.rbac.Require(section.Resource, rbac.LevelFull, nil)).Post(section.Path+"/{id}/delete", h.removeMember)
}

type memberRow struct {
	ID        string
	Name      string
	Email     string
	Initials  string
	Role      string
	Active    bool
	LastLogin time.Time
	CreatedAt time.Time
}

type usersPage struct {
	Members   []memberRow
	Roles     []string
	CanEdit   bool
	CanManage bool
	Invite    users.Invite
	Errors    map[string]string
}

func (h *Handler) listUsers(w http.ResponseWriter, r *http.Request) {
	h.renderUsers(w, r, http.StatusOK, users.Invite{Role: string(rbac.RoleViewer)}, nil)
}

func (h *Handler) renderUsers(w http.ResponseWriter, r *http.Request, status int, invite users.Invite, errs map[string]string) {
	identity, _ := auth.IdentityFromContext(r.Context())
	page := usersPage{
		CanEdit:   rbac.CanEdit(&identity, rbac.ResourceUsers),
		CanManage: rbac.CanManage(&identity, rbac.ResourceUsers),
		Invite:    invite,
		Errors:    errs,
	}
	for _, role := range rbac.DefaultRoles() {
		page.Roles = append(page.Roles, string(role.Name()))
	}
	for _, m := range h.directory.List() {
		row := memberRow{
			ID:        m.ID,
			Name:      m.Name,
			Email:     m.Email,
			Initials:  m.Initials(),
			Role:      string(m.Role),
			Active:    m.Active,
			CreatedAt: m.CreatedAt,
		}
		if m.LastLogin != nil {
			row.LastLogin = *m.LastLogin
		}
		page.Members = append(page.Members, row)
	}
	h.render(w, r, status, "pages/users.html", "Users", page)
}

func (h *Handler) inviteUser(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	invite := users.Invite{
		Name:  strings.TrimSpace(r.PostFormValue("name")),
		Email: strings.TrimSpace(r.PostFormValue("email")),
		Role:  r.PostFormValue("role"),
	}
	if invite.Role == "" {
		invite.Role = string(rbac.RoleViewer)
	}
	member, err := h.directory.Invite(invite)
	switch {
	case errors.Is(err, users.ErrDuplicateEmail):
		h.renderUsers(w, r, http.StatusConflict, invite, map[string]string{"Email": "This email is already in the directory"})
		return
	case err != nil:
		h.notifier.Notify(r.Context(), shared.Notification{
			Title:       "Required fields",
			Description: "Enter a name, a valid email and a role",
		})
		h.renderUsers(w, r, http.StatusBadRequest, invite, inviteErrors(err))
		return
	}
	h.logger.Info("member invited", slog.String("member", member.ID), slog.String("role", string(member.Role)))
	h.notifier.Notify(r.Context(), shared.Notification{
		Title:       "Member invited",
		Description: "Invitation sent to " + member.Email,
		Success:     true,
	})
	http.Redirect(w, r, SectionPath(rbac.ResourceUsers), http.StatusSeeOther)
}

func (h *Handler) setMemberActive(w http.ResponseWriter, r *http.Request) {
	active, err := strconv.ParseBool(r.PostFormValue("active"))
	if err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: active must be true or false", httpx.ErrValidation))
		return
	}
	member, err := h.directory.SetActive(chi.URLParam(r, "id"), active)
	if err != nil {
		h.memberError(w, err)
		return
	}
	notice := shared.Notification{Title: "Member deactivated", Description: member.Name + " can no longer sign in", Success: true}
	if member.Active {
		notice = shared.Notification{Title: "Member activated", Description: member.Name + " can sign in again", Success: true}
	}
	h.notifier.Notify(r.Context(), notice)
	http.Redirect(w, r, SectionPath(rbac.ResourceUsers), http.StatusSeeOther)
}

func (h *Handler) assignMemberRole(w http.ResponseWriter, r *http.Request) {
	role, err := rbac.ParseRoleName(r.PostFormValue("role"))
	if err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: %v", httpx.ErrValidation, err))
		return
	}
	member, err := h.directory.AssignRole(chi.URLParam(r, "id"), role)
	if err != nil {
		h.memberError(w, err)
		return
	}
	h.notifier.Notify(r.Context(), shared.Notification{
		Title:       "Role updated",
		Description: member.Name + " is now " + string(member.Role),
		Success:     true,
	})
	http.Redirect(w, r, SectionPath(rbac.ResourceUsers), http.StatusSeeOther)
}

func (h *Handler) removeMember(w http.ResponseWriter, r *http.Request) {
	member, err := h.directory.Remove(chi.URLParam(r, "id"))
	if err != nil {
		h.memberError(w, err)
		return
	}
	h.notifier.Notify(r.Context(), shared.Notification{
		Title:       "Member removed",
		Description: member.Name + " was removed from the directory",
		Success:     true,
	})
	http.Redirect(w, r, SectionPath(rbac.ResourceUsers), http.StatusSeeOther)
}

func (h *Handler) memberError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, users.ErrNotFound):
		httpx.RespondError(w, fmt.Errorf("%w: %v", httpx.ErrNotFound, err))
	case errors.Is(err, rbac.ErrUnknownRole):
		httpx.RespondError(w, fmt.Errorf("%w: %v", httpx.ErrValidation, err))
	default:
		h.logger.Error("update member", slog.Any("error", err))
		httpx.RespondError(w, err)
	}
}

func inviteErrors(err error) map[string]string {
	errs := map[string]string{}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		errs["general"] = "The invitation could not be sent"
		return errs
	}
	for _, fe := range fieldErrs {
		switch fe.Tag() {
		case "required":
			errs[fe.Field()] = fe.Field() + " is required"
		case "email":
			errs[fe.Field()] = "Enter a valid email address"
		case "oneof":
			errs[fe.Field()] = "Choose admin, editor or viewer"
		default:
			errs[fe.Field()] = fe.Field() + " is not valid"
		}
	}
	return errs
}
