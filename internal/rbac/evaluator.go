package rbac

// Principal describes the authenticated actor.
type Principal interface {
	AccessRole() Role
	IsActive() bool
}

// HasAccess reports whether p holds at least required on resource.
// Absent or inactive principals and resources missing from the role are denied.
func HasAccess(p Principal, resource Resource, required Level) bool {
	if p == nil || !p.IsActive() {
		return false
	}
	held, ok := p.AccessRole().Level(resource)
	if !ok {
		return false
	}
	return Satisfies(held, required)
}

// CanAccess reports read access.
func CanAccess(p Principal, resource Resource) bool {
	return HasAccess(p, resource, LevelRead)
}

// CanEdit reports write access.
func CanEdit(p Principal, resource Resource) bool {
	return HasAccess(p, resource, LevelWrite)
}

// CanManage reports full access.
func CanManage(p Principal, resource Resource) bool {
	return HasAccess(p, resource, LevelFull)
}

// IsRole reports whether p is present and carries the named role.
func IsRole(p Principal, name RoleName) bool {
	if p == nil {
		return false
	}
	return p.AccessRole().Name() == name
}

// Outcome is the terminal state a guard renders.
type Outcome int

const (
	OutcomeLoading Outcome = iota
	OutcomeUnauthenticated
	OutcomeDenied
	OutcomeAllowed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeLoading:
		return "loading"
	case OutcomeUnauthenticated:
		return "unauthenticated"
	case OutcomeDenied:
		return "denied"
	case OutcomeAllowed:
		return "allowed"
	default:
		return "unknown"
	}
}

// SessionView is the read side of the session consumed by guards.
type SessionView interface {
	// Loading is true while a restore or a session operation is unsettled.
	Loading() bool
	// Principal returns the current identity, if any.
	Principal() (Principal, bool)
}

// Decision is the verdict of a resource check together with the details a
// denial panel displays.
type Decision struct {
	Outcome  Outcome
	Resource Resource
	Required Level
	Role     RoleName
}

// Decide evaluates a resource requirement against the session.
func Decide(view SessionView, resource Resource, required Level) Decision {
	decision := Decision{Outcome: OutcomeUnauthenticated, Resource: resource, Required: required}
	if view == nil {
		return decision
	}
	if view.Loading() {
		decision.Outcome = OutcomeLoading
		return decision
	}
	principal, ok := view.Principal()
	if !ok || principal == nil {
		return decision
	}
	decision.Role = principal.AccessRole().Name()
	if HasAccess(principal, resource, required) {
		decision.Outcome = OutcomeAllowed
	} else {
		decision.Outcome = OutcomeDenied
	}
	return decision
}
