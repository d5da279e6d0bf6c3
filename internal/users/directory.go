package users

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/gestor-crm/gestor/internal/rbac"
)

// Directory is an in-memory member list safe for concurrent use. Members are
// returned in the order they were added.
type Directory struct {
	mu       sync.RWMutex
	members  []Member
	validate *validator.Validate
	now      func() time.Time
	newID    func() string
}

// NewDirectory returns a Directory holding seed.
func NewDirectory(seed ...Member) *Directory {
	members := make([]Member, len(seed))
	copy(members, seed)
	return &Directory{
		members:  members,
		validate: validator.New(),
		now:      time.Now,
		newID:    uuid.NewString,
	}
}

// SampleMembers is the demo roster the console starts with.
func SampleMembers(now time.Time) []Member {
	day := 24 * time.Hour
	lastAdmin := now.Add(-2 * time.Hour)
	lastEditor := now.Add(-day)
	lastViewer := now.Add(-5 * day)
	return []Member{
		{ID: "1", Name: "Joao Silva", Email: "joao@empresa.com", Role: rbac.RoleAdmin, Active: true, LastLogin: &lastAdmin, CreatedAt: now.Add(-30 * day)},
		{ID: "2", Name: "Maria Santos", Email: "maria@empresa.com", Role: rbac.RoleEditor, Active: true, LastLogin: &lastEditor, CreatedAt: now.Add(-29 * day)},
		{ID: "3", Name: "Pedro Costa", Email: "pedro@empresa.com", Role: rbac.RoleViewer, Active: false, LastLogin: &lastViewer, CreatedAt: now.Add(-28 * day)},
	}
}

// List returns a copy of all members.
func (d *Directory) List() []Member {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]Member, len(d.members))
	copy(out, d.members)
	return out
}

// Get returns the member with id.
func (d *Directory) Get(id string) (Member, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	i := d.indexLocked(id)
	if i < 0 {
		return Member{}, ErrNotFound
	}
	return d.members[i], nil
}

// Invite adds an active member.
func (d *Directory) Invite(in Invite) (Member, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.TrimSpace(in.Email)
	if err := d.validate.Struct(in); err != nil {
		return Member{}, fmt.Errorf("%w: %w", ErrInvalidInvite, err)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, m := range d.members {
		if strings.EqualFold(m.Email, in.Email) {
			return Member{}, ErrDuplicateEmail
		}
	}
	member := Member{
		ID:        d.newID(),
		Name:      in.Name,
		Email:     in.Email,
		Role:      rbac.RoleName(in.Role),
		Active:    true,
		CreatedAt: d.now().UTC(),
	}
	d.members = append(d.members, member)
	return member, nil
}

// SetActive activates or deactivates a member.
func (d *Directory) SetActive(id string, active bool) (Member, error) {
	return d.update(id, func(m *Member) { m.Active = active })
}

// AssignRole gives a member one of the built-in roles.
func (d *Directory) AssignRole(id string, role rbac.RoleName) (Member, error) {
	if _, ok := rbac.DefaultRole(role); !ok {
		return Member{}, fmt.Errorf("%w: %q", rbac.ErrUnknownRole, role)
	}
	return d.update(id, func(m *Member) { m.Role = role })
}

// Remove deletes a member and returns it.
func (d *Directory) Remove(id string) (Member, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	i := d.indexLocked(id)
	if i < 0 {
		return Member{}, ErrNotFound
	}
	removed := d.members[i]
	d.members = append(d.members[:i], d.members[i+1:]...)
	return removed, nil
}

func (d *Directory) update(id string, fn func(*Member)) (Member, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	i := d.indexLocked(id)
	if i < 0 {
		return Member{}, ErrNotFound
	}
	fn(&d.members[i])
	return d.members[i], nil
}

func (d *Directory) indexLocked(id string) int {
	for i := range d.members {
		if d.members[i].ID == id {
			return i
		}
	}
	return -1
}
