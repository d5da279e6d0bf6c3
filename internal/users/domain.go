// Package users keeps the directory of console operators: who may sign in,
// with which role, and whether the account is active.
package users

import (
	"errors"
	"strings"
	"time"

	"github.com/gestor-crm/gestor/internal/rbac"
)

var (
	// ErrNotFound is returned for an unknown member id.
	ErrNotFound = errors.New("users: member not found")
	// ErrDuplicateEmail is returned when inviting an email already listed.
	ErrDuplicateEmail = errors.New("users: email already in directory")
	// ErrInvalidInvite wraps validation failures of an Invite.
	ErrInvalidInvite = errors.New("users: invalid invite")
)

// Member is an operator account listed in the directory.
type Member struct {
	ID        string
	Name      string
	Email     string
	Role      rbac.RoleName
	Active    bool
	LastLogin *time.Time
	CreatedAt time.Time
}

// Initials returns the first letter of each word of the name.
func (m Member) Initials() string {
	var b strings.Builder
	for _, word := range strings.Fields(m.Name) {
		r := []rune(word)
		b.WriteString(strings.ToUpper(string(r[0])))
	}
	return b.String()
}

// Invite is the input for adding a member. Invited members start active.
type Invite struct {
	Name  string `validate:"required,max=120"`
	Email string `validate:"required,email"`
	Role  string `validate:"required,oneof=admin editor viewer"`
}
