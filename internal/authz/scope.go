package authz

import "github.com/zahraAghaee77/School-Management-API/internal/models"

// Scope describes the slice of a collection an actor may list. Repositories
// compile it into WHERE clauses; no per-item permission re-evaluation happens
// on list endpoints. An Empty scope yields an empty 200 response, never an
// error — a manager without an assigned school lands here.
type Scope struct {
	All       bool
	Empty     bool
	TeacherID string
	StudentID string
	SchoolID  string
	// CreatorID widens a manager's news scope to items they authored.
	CreatorID string
}

// EmptyScope matches nothing.
func EmptyScope() Scope {
	return Scope{Empty: true}
}

// ResolveAssignmentScope returns the assignment listing scope. Roles resolve
// in a fixed precedence: admin, teacher, student, manager.
func ResolveAssignmentScope(actor Actor) Scope {
	switch {
	case actor.HasRole(models.RoleAdmin):
		return Scope{All: true}
	case actor.HasRole(models.RoleTeacher):
		return Scope{TeacherID: actor.ID}
	case actor.HasRole(models.RoleStudent):
		return Scope{StudentID: actor.ID}
	case actor.HasRole(models.RoleManager):
		if actor.ManagedSchoolID == "" {
			return EmptyScope()
		}
		return Scope{SchoolID: actor.ManagedSchoolID}
	default:
		return EmptyScope()
	}
}

// ResolveSolutionScope returns the solution listing scope. Admins hold no
// solution scope; grading visibility belongs to the class teacher.
func ResolveSolutionScope(actor Actor) Scope {
	switch {
	case actor.HasRole(models.RoleTeacher):
		return Scope{TeacherID: actor.ID}
	case actor.HasRole(models.RoleStudent):
		return Scope{StudentID: actor.ID}
	case actor.HasRole(models.RoleManager):
		if actor.ManagedSchoolID == "" {
			return EmptyScope()
		}
		return Scope{SchoolID: actor.ManagedSchoolID}
	default:
		return EmptyScope()
	}
}

// ResolveNewsScope returns the news listing scope. Teachers and students see
// their classes' news plus those classes' school-wide news; managers see
// their school's news plus anything they created themselves.
func ResolveNewsScope(actor Actor) Scope {
	switch {
	case actor.HasRole(models.RoleTeacher):
		return Scope{TeacherID: actor.ID}
	case actor.HasRole(models.RoleStudent):
		return Scope{StudentID: actor.ID}
	case actor.HasRole(models.RoleManager):
		if actor.ManagedSchoolID == "" {
			return EmptyScope()
		}
		return Scope{SchoolID: actor.ManagedSchoolID, CreatorID: actor.ID}
	default:
		return EmptyScope()
	}
}

// ResolveClassScope returns the class listing scope.
func ResolveClassScope(actor Actor) Scope {
	switch {
	case actor.HasRole(models.RoleAdmin):
		return Scope{All: true}
	case actor.HasRole(models.RoleTeacher):
		return Scope{TeacherID: actor.ID}
	case actor.HasRole(models.RoleStudent):
		return Scope{StudentID: actor.ID}
	case actor.HasRole(models.RoleManager):
		if actor.ManagedSchoolID == "" {
			return EmptyScope()
		}
		return Scope{SchoolID: actor.ManagedSchoolID}
	default:
		return EmptyScope()
	}
}

// ResolveSchoolScope returns the school listing scope. Only admins and the
// assigned manager see school rows at all.
func ResolveSchoolScope(actor Actor) Scope {
	switch {
	case actor.HasRole(models.RoleAdmin):
		return Scope{All: true}
	case actor.HasRole(models.RoleManager):
		if actor.ManagedSchoolID == "" {
			return EmptyScope()
		}
		return Scope{SchoolID: actor.ManagedSchoolID}
	default:
		return EmptyScope()
	}
}
