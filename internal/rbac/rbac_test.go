package rbac

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePrincipal struct {
	role   Role
	active bool
}

func (p fakePrincipal) AccessRole() Role { return p.role }
func (p fakePrincipal) IsActive() bool   { return p.active }

type fakeSession struct {
	loading   bool
	principal Principal
}

func (s fakeSession) Loading() bool { return s.loading }

func (s fakeSession) Principal() (Principal, bool) {
	return s.principal, s.principal != nil
}

func roleOf(t *testing.T, name RoleName) Role {
	t.Helper()
	role, ok := DefaultRole(name)
	require.True(t, ok, "default role %s", name)
	return role
}

func TestSatisfiesTotalOrder(t *testing.T) {
	levels := Levels()
	for _, held := range levels {
		for _, required := range levels {
			want := required == LevelNone || held >= required
			assert.Equal(t, want, Satisfies(held, required), "held=%s required=%s", held, required)
		}
	}

	for _, held := range levels {
		assert.True(t, Satisfies(held, LevelNone))
		assert.True(t, Satisfies(LevelFull, held))
	}
	assert.False(t, Satisfies(LevelNone, LevelRead))
	assert.False(t, Satisfies(LevelNone, LevelWrite))
	assert.False(t, Satisfies(LevelNone, LevelFull))
	assert.True(t, Satisfies(LevelRead, LevelRead))
	assert.False(t, Satisfies(LevelRead, LevelWrite))
	assert.True(t, Satisfies(LevelWrite, LevelWrite))
}

func TestSatisfiesRejectsOutOfRangeLevels(t *testing.T) {
	assert.False(t, Satisfies(Level(9), LevelRead))
	assert.False(t, Satisfies(LevelFull, Level(9)))
	assert.True(t, Satisfies(Level(9), LevelNone))
}

func TestParseLevelAndResource(t *testing.T) {
	level, err := ParseLevel(" Write ")
	require.NoError(t, err)
	assert.Equal(t, LevelWrite, level)

	_, err = ParseLevel("owner")
	assert.ErrorIs(t, err, ErrUnknownLevel)

	res, err := ParseResource("WEBHOOKS")
	require.NoError(t, err)
	assert.Equal(t, ResourceWebhooks, res)

	_, err = ParseResource("invoices")
	assert.ErrorIs(t, err, ErrUnknownResource)

	assert.Len(t, Resources(), 8)
}

func TestDefaultRolesAreTotal(t *testing.T) {
	for _, role := range DefaultRoles() {
		perms := role.Permissions()
		assert.Len(t, perms, len(Resources()), "role %s", role.Name())
		for _, res := range Resources() {
			_, ok := role.Level(res)
			assert.True(t, ok, "role %s missing %s", role.Name(), res)
		}
	}
	_, ok := DefaultRole(RoleCustom)
	assert.False(t, ok)
}

func TestDefaultRoleTable(t *testing.T) {
	editor := roleOf(t, RoleEditor)
	want := map[Resource]Level{
		ResourceDashboard: LevelRead,
		ResourceClients:   LevelWrite,
		ResourceSales:     LevelWrite,
		ResourceReports:   LevelRead,
		ResourceCalendar:  LevelWrite,
		ResourceSettings:  LevelRead,
		ResourceWebhooks:  LevelNone,
		ResourceUsers:     LevelNone,
	}
	assert.Equal(t, want, editor.Permissions())

	viewer := roleOf(t, RoleViewer)
	for _, res := range []Resource{ResourceSettings, ResourceWebhooks, ResourceUsers} {
		level, _ := viewer.Level(res)
		assert.Equal(t, LevelNone, level, res)
	}
}

func TestRolePermissionsIsACopy(t *testing.T) {
	admin := roleOf(t, RoleAdmin)
	perms := admin.Permissions()
	perms[ResourceUsers] = LevelNone

	level, _ := admin.Level(ResourceUsers)
	assert.Equal(t, LevelFull, level)
}

func TestNewRoleRejectsPartialMapping(t *testing.T) {
	_, err := NewRole(RoleCustom, map[Resource]Level{ResourceDashboard: LevelRead})
	assert.ErrorIs(t, err, ErrIncompleteRole)

	_, err = NewRole("owner", uniform(LevelRead))
	assert.ErrorIs(t, err, ErrUnknownRole)

	bad := uniform(LevelRead)
	bad[Resource("invoices")] = LevelRead
	_, err = NewRole(RoleCustom, bad)
	assert.ErrorIs(t, err, ErrUnknownResource)

	custom, err := NewRole(RoleCustom, uniform(LevelRead))
	require.NoError(t, err)
	assert.Equal(t, RoleCustom, custom.Name())
}

func TestRoleJSONIsStrict(t *testing.T) {
	data, err := json.Marshal(roleOf(t, RoleViewer))
	require.NoError(t, err)

	var decoded Role
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, roleOf(t, RoleViewer).Permissions(), decoded.Permissions())

	cases := map[string]string{
		"partial":        `{"name":"admin","permissions":{"dashboard":"full"}}`,
		"unknown level":  `{"name":"admin","permissions":{"dashboard":"owner","clients":"full","sales":"full","reports":"full","calendar":"full","settings":"full","webhooks":"full","users":"full"}}`,
		"unknown role":   `{"name":"root","permissions":{}}`,
		"missing fields": `{}`,
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			var role Role
			assert.Error(t, json.Unmarshal([]byte(raw), &role))
			assert.True(t, role.IsZero())
		})
	}

	_, err = json.Marshal(Role{})
	assert.True(t, errors.Is(err, ErrIncompleteRole))
}

func TestHasAccessAdminEverywhere(t *testing.T) {
	admin := fakePrincipal{role: roleOf(t, RoleAdmin), active: true}
	for _, res := range Resources() {
		for _, level := range Levels() {
			assert.True(t, HasAccess(admin, res, level), "%s/%s", res, level)
		}
	}
}

func TestHasAccessViewer(t *testing.T) {
	viewer := fakePrincipal{role: roleOf(t, RoleViewer), active: true}
	assert.False(t, HasAccess(viewer, ResourceSettings, LevelRead))
	assert.True(t, HasAccess(viewer, ResourceClients, LevelRead))
	assert.False(t, CanEdit(viewer, ResourceClients))
	assert.True(t, CanAccess(viewer, ResourceDashboard))
	assert.False(t, CanManage(viewer, ResourceDashboard))
	assert.True(t, IsRole(viewer, RoleViewer))
}

func TestHasAccessDeniesAbsentInactiveAndUnknown(t *testing.T) {
	assert.False(t, HasAccess(nil, ResourceDashboard, LevelNone))

	inactive := fakePrincipal{role: roleOf(t, RoleAdmin), active: false}
	assert.False(t, HasAccess(inactive, ResourceDashboard, LevelRead))

	admin := fakePrincipal{role: roleOf(t, RoleAdmin), active: true}
	assert.False(t, HasAccess(admin, Resource("invoices"), LevelNone))
	assert.False(t, IsRole(nil, RoleAdmin))
}

func TestDecide(t *testing.T) {
	editor := fakePrincipal{role: roleOf(t, RoleEditor), active: true}

	tests := []struct {
		name     string
		view     SessionView
		resource Resource
		level    Level
		want     Outcome
	}{
		{"nil session", nil, ResourceClients, LevelRead, OutcomeUnauthenticated},
		{"loading", fakeSession{loading: true, principal: editor}, ResourceClients, LevelRead, OutcomeLoading},
		{"anonymous", fakeSession{}, ResourceClients, LevelRead, OutcomeUnauthenticated},
		{"allowed", fakeSession{principal: editor}, ResourceClients, LevelWrite, OutcomeAllowed},
		{"denied", fakeSession{principal: editor}, ResourceWebhooks, LevelWrite, OutcomeDenied},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			decision := Decide(tt.view, tt.resource, tt.level)
			assert.Equal(t, tt.want, decision.Outcome)
			assert.Equal(t, tt.resource, decision.Resource)
			assert.Equal(t, tt.level, decision.Required)
		})
	}

	denied := Decide(fakeSession{principal: editor}, ResourceWebhooks, LevelWrite)
	assert.Equal(t, RoleEditor, denied.Role)
}
