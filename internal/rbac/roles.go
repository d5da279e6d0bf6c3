package rbac

var defaultRoles = map[RoleName]Role{
	RoleAdmin: mustRole(RoleAdmin, uniform(LevelFull)),
	RoleEditor: mustRole(RoleEditor, map[Resource]Level{
		ResourceDashboard: LevelRead,
		ResourceClients:   LevelWrite,
		ResourceSales:     LevelWrite,
		ResourceReports:   LevelRead,
		ResourceCalendar:  LevelWrite,
		ResourceSettings:  LevelRead,
		ResourceWebhooks:  LevelNone,
		ResourceUsers:     LevelNone,
	}),
	RoleViewer: mustRole(RoleViewer, map[Resource]Level{
		ResourceDashboard: LevelRead,
		ResourceClients:   LevelRead,
		ResourceSales:     LevelRead,
		ResourceReports:   LevelRead,
		ResourceCalendar:  LevelRead,
		ResourceSettings:  LevelNone,
		ResourceWebhooks:  LevelNone,
		ResourceUsers:     LevelNone,
	}),
}

// DefaultRole returns the built-in role with the given name. Custom roles have no default.
func DefaultRole(name RoleName) (Role, bool) {
	role, ok := defaultRoles[name]
	return role, ok
}

// DefaultRoles lists the built-in roles from most to least privileged.
func DefaultRoles() []Role {
	return []Role{defaultRoles[RoleAdmin], defaultRoles[RoleEditor], defaultRoles[RoleViewer]}
}

func uniform(level Level) map[Resource]Level {
	out := make(map[Resource]Level, len(resources))
	for _, res := range resources {
		out[res] = level
	}
	return out
}

func mustRole(name RoleName, permissions map[Resource]Level) Role {
	role, err := NewRole(name, permissions)
	if err != nil {
		panic(err)
	}
	return role
}
