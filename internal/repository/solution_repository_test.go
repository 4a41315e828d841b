package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"github.com/zahraAghaee77/School-Management-API/internal/authz"
	"github.com/zahraAghaee77/School-Management-API/internal/models"
)

func TestSolutionRepositoryFindByStudentAndAssignment(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewSolutionRepository(db)

	cols := []string{"id", "context", "attachment", "grade", "student_id", "assignment_id", "created_at", "last_modified"}
	mock.ExpectQuery(regexp.QuoteMeta("FROM solutions WHERE student_id = $1 AND assignment_id = $2")).
		WithArgs("stu-1", "asg-1").
		WillReturnRows(sqlmock.NewRows(cols).AddRow("sol-1", nil, nil, nil, "stu-1", "asg-1", time.Now(), time.Now()))

	solution, err := repo.FindByStudentAndAssignment(context.Background(), "stu-1", "asg-1")
	require.NoError(t, err)
	require.Equal(t, "sol-1", solution.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSolutionRepositoryUpdateGrade(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewSolutionRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE solutions SET grade = $2, last_modified = $3 WHERE id = $1")).
		WithArgs("sol-1", 87.5, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.UpdateGrade(context.Background(), "sol-1", 87.5))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSolutionRepositoryListEmptyScopeSkipsDatabase(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewSolutionRepository(db)

	solutions, total, err := repo.List(context.Background(), authz.EmptyScope(), models.SolutionFilter{})
	require.NoError(t, err)
	require.Empty(t, solutions)
	require.Zero(t, total)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSolutionRepositoryListScopedToStudent(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewSolutionRepository(db)

	cols := []string{"id", "context", "attachment", "grade", "student_id", "assignment_id", "created_at", "last_modified", "student_name", "assignment_title"}
	rows := sqlmock.NewRows(cols).
		AddRow("sol-1", nil, nil, nil, "stu-1", "asg-1", time.Now(), time.Now(), "dana", "Week 3 problems")
	mock.ExpectQuery(regexp.QuoteMeta("s.student_id = $1")).
		WithArgs("stu-1").
		WillReturnRows(rows)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM solutions s")).
		WithArgs("stu-1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	solutions, total, err := repo.List(context.Background(), authz.Scope{StudentID: "stu-1"}, models.SolutionFilter{})
	require.NoError(t, err)
	require.Len(t, solutions, 1)
	require.Equal(t, 1, total)
	require.NoError(t, mock.ExpectationsWereMet())
}
