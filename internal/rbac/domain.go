package rbac

import (
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"
)

var (
	// ErrUnknownResource indicates a resource outside the closed resource set.
	ErrUnknownResource = errors.New("rbac: unknown resource")
	// ErrUnknownLevel indicates an unrecognised permission level.
	ErrUnknownLevel = errors.New("rbac: unknown permission level")
	// ErrUnknownRole indicates an unrecognised role name.
	ErrUnknownRole = errors.New("rbac: unknown role")
	// ErrIncompleteRole indicates a role that does not define every resource.
	ErrIncompleteRole = errors.New("rbac: role must define every resource")
)

// Level is an ordered capability tier: none < read < write < full.
type Level uint8

const (
	LevelNone Level = iota
	LevelRead
	LevelWrite
	LevelFull
)

var levelNames = [...]string{"none", "read", "write", "full"}

// Levels returns every level in ascending order.
func Levels() []Level {
	return []Level{LevelNone, LevelRead, LevelWrite, LevelFull}
}

// Valid reports whether l is one of the four defined levels.
func (l Level) Valid() bool {
	return l <= LevelFull
}

func (l Level) String() string {
	if !l.Valid() {
		return fmt.Sprintf("level(%d)", uint8(l))
	}
	return levelNames[l]
}

// ParseLevel converts a level name into a Level.
func ParseLevel(s string) (Level, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for i, candidate := range levelNames {
		if candidate == name {
			return Level(i), nil
		}
	}
	return LevelNone, fmt.Errorf("%w: %q", ErrUnknownLevel, s)
}

// MarshalText implements encoding.TextMarshaler.
func (l Level) MarshalText() ([]byte, error) {
	if !l.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownLevel, uint8(l))
	}
	return []byte(levelNames[l]), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (l *Level) UnmarshalText(text []byte) error {
	parsed, err := ParseLevel(string(text))
	if err != nil {
		return err
	}
	*l = parsed
	return nil
}

// Satisfies reports whether a held level meets a required level.
// A requirement of none is always met; otherwise held must rank at or above required.
func Satisfies(held, required Level) bool {
	if required == LevelNone {
		return true
	}
	if !held.Valid() || !required.Valid() {
		return false
	}
	return held >= required
}

// Resource names a functional area of the console.
type Resource string

const (
	ResourceDashboard Resource = "dashboard"
	ResourceClients   Resource = "clients"
	ResourceSales     Resource = "sales"
	ResourceReports   Resource = "reports"
	ResourceCalendar  Resource = "calendar"
	ResourceSettings  Resource = "settings"
	ResourceWebhooks  Resource = "webhooks"
	ResourceUsers     Resource = "users"
)

var resources = []Resource{
	ResourceDashboard,
	ResourceClients,
	ResourceSales,
	ResourceReports,
	ResourceCalendar,
	ResourceSettings,
	ResourceWebhooks,
	ResourceUsers,
}

// Resources returns the closed resource set in display order.
func Resources() []Resource {
	return slices.Clone(resources)
}

// Valid reports whether r belongs to the resource set.
func (r Resource) Valid() bool {
	return slices.Contains(resources, r)
}

// ParseResource converts a resource name into a Resource.
func ParseResource(s string) (Resource, error) {
	r := Resource(strings.ToLower(strings.TrimSpace(s)))
	if !r.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownResource, s)
	}
	return r, nil
}

// RoleName identifies a role.
type RoleName string

const (
	RoleAdmin  RoleName = "admin"
	RoleEditor RoleName = "editor"
	RoleViewer RoleName = "viewer"
	RoleCustom RoleName = "custom"
)

// Valid reports whether n is a known role name.
func (n RoleName) Valid() bool {
	switch n {
	case RoleAdmin, RoleEditor, RoleViewer, RoleCustom:
		return true
	default:
		return false
	}
}

// ParseRoleName converts a role name string into a RoleName.
func ParseRoleName(s string) (RoleName, error) {
	n := RoleName(strings.ToLower(strings.TrimSpace(s)))
	if !n.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownRole, s)
	}
	return n, nil
}

// Role is an immutable, total mapping from every Resource to a Level.
type Role struct {
	name        RoleName
	permissions map[Resource]Level
}

// NewRole validates and builds a Role. The mapping must cover every resource.
func NewRole(name RoleName, permissions map[Resource]Level) (Role, error) {
	if !name.Valid() {
		return Role{}, fmt.Errorf("%w: %q", ErrUnknownRole, name)
	}
	copied := make(map[Resource]Level, len(resources))
	for res, level := range permissions {
		if !res.Valid() {
			return Role{}, fmt.Errorf("%w: %q", ErrUnknownResource, res)
		}
		if !level.Valid() {
			return Role{}, fmt.Errorf("%w: %d for %s", ErrUnknownLevel, uint8(level), res)
		}
		copied[res] = level
	}
	for _, res := range resources {
		if _, ok := copied[res]; !ok {
			return Role{}, fmt.Errorf("%w: missing %s", ErrIncompleteRole, res)
		}
	}
	return Role{name: name, permissions: copied}, nil
}

// Name returns the role name.
func (r Role) Name() RoleName {
	return r.name
}

// IsZero reports whether r was never constructed.
func (r Role) IsZero() bool {
	return r.name == "" && r.permissions == nil
}

// Level returns the level held for res. The boolean is false for unknown resources.
func (r Role) Level(res Resource) (Level, bool) {
	level, ok := r.permissions[res]
	return level, ok
}

// Permissions returns a copy of the role mapping.
func (r Role) Permissions() map[Resource]Level {
	out := make(map[Resource]Level, len(r.permissions))
	for res, level := range r.permissions {
		out[res] = level
	}
	return out
}

type rolePayload struct {
	Name        string            `json:"name"`
	Permissions map[string]string `json:"permissions"`
}

// MarshalJSON encodes the role as {"name": ..., "permissions": {resource: level}}.
func (r Role) MarshalJSON() ([]byte, error) {
	if r.IsZero() {
		return nil, ErrIncompleteRole
	}
	payload := rolePayload{Name: string(r.name), Permissions: make(map[string]string, len(r.permissions))}
	for res, level := range r.permissions {
		payload.Permissions[string(res)] = level.String()
	}
	return json.Marshal(payload)
}

// UnmarshalJSON decodes a role strictly: unknown names, resources or levels and
// partial mappings are errors.
func (r *Role) UnmarshalJSON(data []byte) error {
	var payload rolePayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return err
	}
	name, err := ParseRoleName(payload.Name)
	if err != nil {
		return err
	}
	permissions := make(map[Resource]Level, len(payload.Permissions))
	for rawRes, rawLevel := range payload.Permissions {
		res, err := ParseResource(rawRes)
		if err != nil {
			return err
		}
		level, err := ParseLevel(rawLevel)
		if err != nil {
			return err
		}
		permissions[res] = level
	}
	role, err := NewRole(name, permissions)
	if err != nil {
		return err
	}
	*r = role
	return nil
}
