package auth

import (
	"errors"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/gestor-crm/gestor/internal/rbac"
)

var (
	// ErrInvalidIdentity indicates an identity that is not wholly populated.
	ErrInvalidIdentity = errors.New("auth: invalid identity")

	identityValidator = validator.New()
)

// Identity is the signed-in operator record. It is persisted by a Store between
// restarts and its JSON shape is the persisted session record.
type Identity struct {
	ID        string     `json:"id" validate:"required"`
	Name      string     `json:"name" validate:"required"`
	Email     string     `json:"email" validate:"required,email"`
	Role      rbac.Role  `json:"role"`
	Active    bool       `json:"active"`
	LastLogin *time.Time `json:"lastLogin,omitempty"`
	CreatedAt time.Time  `json:"createdAt"`
	Avatar    string     `json:"avatar,omitempty" validate:"omitempty,uri"`
}

// Validate checks that every required field is populated and the role is total.
func (i Identity) Validate() error {
	if err := identityValidator.Struct(i); err != nil {
		return errors.Join(ErrInvalidIdentity, err)
	}
	if i.CreatedAt.IsZero() {
		return errors.Join(ErrInvalidIdentity, errors.New("createdAt required"))
	}
	if i.Role.IsZero() {
		return errors.Join(ErrInvalidIdentity, rbac.ErrIncompleteRole)
	}
	return nil
}

// AccessRole implements rbac.Principal.
func (i *Identity) AccessRole() rbac.Role {
	if i == nil {
		return rbac.Role{}
	}
	return i.Role
}

// IsActive implements rbac.Principal. A nil identity is never active.
func (i *Identity) IsActive() bool {
	return i != nil && i.Active
}

// Clone returns a copy that shares no mutable state with i.
func (i Identity) Clone() Identity {
	out := i
	if i.LastLogin != nil {
		last := *i.LastLogin
		out.LastLogin = &last
	}
	return out
}
