package auth

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/gestor-crm/gestor/internal/platform/httpx"
	"github.com/gestor-crm/gestor/internal/shared"
	"github.com/gestor-crm/gestor/internal/view"
)

// DefaultHomePath is where a signed-in operator lands.
const DefaultHomePath = "/dashboard"

// Handler wires HTTP endpoints for the session lifecycle.
type Handler struct {
	logger    *slog.Logger
	manager   *Manager
	templates *view.Engine
	toasts    *shared.Toasts
	validator *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, manager *Manager, templates *view.Engine, toasts *shared.Toasts) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		logger:    logger,
		manager:   manager,
		templates: templates,
		toasts:    toasts,
		validator: validator.New(),
	}
}

// MountRoutes registers auth routes on provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.showLanding)
	r.Post("/auth/login", h.handleLogin)
	r.Post("/auth/register", h.handleRegister)
	r.Post("/auth/logout", h.handleLogout)
	r.Get("/api/session", h.sessionState)
}

type loginForm struct {
	Email    string `validate:"required,email"`
	Password string `validate:"required"`
}

type registerForm struct {
	Name     string `validate:"required,max=120"`
	Email    string `validate:"required,email"`
	Password string `validate:"required"`
}

type landingPageData struct {
	Login    loginForm
	Register registerForm
	Errors   map[string]string
}

func (h *Handler) showLanding(w http.ResponseWriter, r *http.Request) {
	session := h.manager.Session()
	if session.Restoring() {
		w.Header().Set("Retry-After", "1")
		h.render(w, r, http.StatusServiceUnavailable, "pages/loading.html", "Loading", nil)
		return
	}
	if session.State() == StateAuthenticated {
		http.Redirect(w, r, DefaultHomePath, http.StatusSeeOther)
		return
	}
	h.render(w, r, http.StatusOK, "pages/landing.html", "Welcome", landingPageData{})
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	form := loginForm{
		Email:    strings.TrimSpace(r.PostFormValue("email")),
		Password: r.PostFormValue("password"),
	}
	data := landingPageData{Login: form, Errors: h.fieldErrors("Login", form)}
	if len(data.Errors) == 0 {
		_, err := h.manager.Login(r.Context(), form.Email, form.Password)
		if err == nil {
			http.Redirect(w, r, DefaultHomePath, http.StatusSeeOther)
			return
		}
		status, message := failureResponse(err)
		data.Errors["general"] = message
		h.render(w, r, status, "pages/landing.html", "Welcome", data)
		return
	}
	h.render(w, r, http.StatusBadRequest, "pages/landing.html", "Welcome", data)
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	form := registerForm{
		Name:     strings.TrimSpace(r.PostFormValue("name")),
		Email:    strings.TrimSpace(r.PostFormValue("email")),
		Password: r.PostFormValue("password"),
	}
	data := landingPageData{Register: form, Errors: h.fieldErrors("Register", form)}
	if len(data.Errors) == 0 {
		_, err := h.manager.Register(r.Context(), form.Name, form.Email, form.Password)
		if err == nil {
			http.Redirect(w, r, DefaultHomePath, http.StatusSeeOther)
			return
		}
		status, message := failureResponse(err)
		data.Errors["general"] = message
		h.render(w, r, status, "pages/landing.html", "Welcome", data)
		return
	}
	h.render(w, r, http.StatusBadRequest, "pages/landing.html", "Welcome", data)
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	if err := h.manager.Logout(r.Context()); err != nil {
		if errors.Is(err, ErrOperationPending) {
			httpx.RespondError(w, fmt.Errorf("%w: %v", httpx.ErrConflict, err))
			return
		}
		h.logger.Warn("logout", slog.Any("error", err))
	}
	http.Redirect(w, r, DefaultEntryPath, http.StatusSeeOther)
}

func (h *Handler) sessionState(w http.ResponseWriter, _ *http.Request) {
	httpx.JSON(w, http.StatusOK, h.manager.Session().Snapshot())
}

func (h *Handler) fieldErrors(prefix string, form any) map[string]string {
	errs := make(map[string]string)
	if err := h.validator.Struct(form); err != nil {
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) {
			errs["general"] = err.Error()
			return errs
		}
		for _, fieldErr := range fieldErrs {
			errs[prefix+fieldErr.Field()] = fieldMessage(fieldErr)
		}
	}
	return errs
}

func fieldMessage(fieldErr validator.FieldError) string {
	switch fieldErr.Tag() {
	case "required":
		return view.Label(strings.ToLower(fieldErr.Field())) + " is required"
	case "email":
		return "Enter a valid email address"
	case "max":
		return view.Label(strings.ToLower(fieldErr.Field())) + " is too long"
	default:
		return fieldErr.Error()
	}
}

func failureResponse(err error) (int, string) {
	switch {
	case errors.Is(err, ErrOperationPending):
		return http.StatusConflict, "Another sign-in is still in progress"
	case errors.Is(err, shared.ErrInvalidCredentials):
		return http.StatusUnauthorized, "Incorrect email or password"
	default:
		return http.StatusInternalServerError, "The session could not be saved, try again"
	}
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, status int, name, title string, data any) {
	viewData := view.TemplateData{
		Title:       title,
		Flash:       h.toasts.Pop(),
		CurrentPath: r.URL.Path,
		Data:        data,
	}
	if err := h.templates.RenderStatus(w, status, name, viewData); err != nil {
		h.logger.Error("render auth page", slog.String("template", name), slog.Any("error", err))
	}
}
