package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
)

func TestSchoolRepositoryManagerHasSchool(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewSchoolRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS (SELECT 1 FROM schools WHERE manager_id = $1 AND id <> $2)")).
		WithArgs("mgr-1", "school-1").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	taken, err := repo.ManagerHasSchool(context.Background(), "mgr-1", "school-1")
	require.NoError(t, err)
	require.True(t, taken)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSchoolRepositoryListNearbyOrdersByDistance(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewSchoolRepository(db)

	rows := sqlmock.NewRows([]string{"id", "name", "latitude", "longitude", "manager_id", "created_at", "updated_at", "distance_km"}).
		AddRow("school-1", "North High", 35.71, 51.40, nil, time.Now(), time.Now(), 1.2).
		AddRow("school-2", "East High", 35.73, 51.47, nil, time.Now(), time.Now(), 6.8)
	mock.ExpectQuery("ORDER BY distance_km ASC").
		WithArgs(35.70, 51.42, 10.0, 20).
		WillReturnRows(rows)

	schools, err := repo.ListNearby(context.Background(), 35.70, 51.42, 10.0, 0)
	require.NoError(t, err)
	require.Len(t, schools, 2)
	require.Equal(t, "North High", schools[0].Name)
	require.InDelta(t, 1.2, schools[0].DistanceKM, 0.001)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSchoolRepositoryMembershipChecks(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewSchoolRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS (SELECT 1 FROM classes WHERE school_id = $1 AND teacher_id = $2)")).
		WithArgs("school-1", "t-1").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	teaches, err := repo.IsTeacherInSchool(context.Background(), "school-1", "t-1")
	require.NoError(t, err)
	require.True(t, teaches)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS (SELECT 1 FROM class_students cs JOIN classes c ON c.id = cs.class_id WHERE c.school_id = $1 AND cs.student_id = $2)")).
		WithArgs("school-1", "stu-1").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	enrolled, err := repo.IsStudentInSchool(context.Background(), "school-1", "stu-1")
	require.NoError(t, err)
	require.False(t, enrolled)

	require.NoError(t, mock.ExpectationsWereMet())
}
