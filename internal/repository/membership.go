package repository

import "context"

// Membership aggregates the class and school membership lookups behind one
// value so permission predicates can depend on a single reader.
type Membership struct {
	classes *ClassRepository
	schools *SchoolRepository
}

// NewMembership creates a new Membership reader.
func NewMembership(classes *ClassRepository, schools *SchoolRepository) *Membership {
	return &Membership{classes: classes, schools: schools}
}

// IsStudentInClass reports whether the student is enrolled in the class.
func (m *Membership) IsStudentInClass(ctx context.Context, classID, userID string) (bool, error) {
	return m.classes.IsStudentInClass(ctx, classID, userID)
}

// ClassHasLesson reports whether the lesson is taught in the class.
func (m *Membership) ClassHasLesson(ctx context.Context, classID, lessonID string) (bool, error) {
	return m.classes.ClassHasLesson(ctx, classID, lessonID)
}

// IsTeacherInSchool reports whether the user teaches any class of the school.
func (m *Membership) IsTeacherInSchool(ctx context.Context, schoolID, userID string) (bool, error) {
	return m.schools.IsTeacherInSchool(ctx, schoolID, userID)
}

// IsStudentInSchool reports whether the user is enrolled in any class of the
// school.
func (m *Membership) IsStudentInSchool(ctx context.Context, schoolID, userID string) (bool, error) {
	return m.schools.IsStudentInSchool(ctx, schoolID, userID)
}
