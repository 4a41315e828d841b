package service

import (
	"context"
	"time"

	"github.com/zahraAghaee77/School-Management-API/internal/authz"
	"github.com/zahraAghaee77/School-Management-API/internal/models"
)

func ptrString(s string) *string { return &s }

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

type stubMembership struct {
	enrolled     map[string]bool
	classLessons map[string]bool
}

func (m *stubMembership) IsStudentInClass(ctx context.Context, classID, userID string) (bool, error) {
	return m.enrolled[classID+":"+userID], nil
}

func (m *stubMembership) ClassHasLesson(ctx context.Context, classID, lessonID string) (bool, error) {
	return m.classLessons[classID+":"+lessonID], nil
}

func (m *stubMembership) IsTeacherInSchool(ctx context.Context, schoolID, userID string) (bool, error) {
	return false, nil
}

func (m *stubMembership) IsStudentInSchool(ctx context.Context, schoolID, userID string) (bool, error) {
	return false, nil
}

func testEngine(members *stubMembership, now time.Time) *authz.Engine {
	if members == nil {
		members = &stubMembership{}
	}
	return authz.NewEngine(members, authz.FixedClock{Instant: now})
}

type stubAuditWriter struct {
	logs []models.AuditLog
}

func (m *stubAuditWriter) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	m.logs = append(m.logs, *log)
	return nil
}
