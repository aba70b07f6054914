package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

var teacherRowColumns = []string{"id", "full_name", "department_id", "course_id", "course_name", "course_type", "course_needs_lab",
	"required_lessons", "lesson_duration", "requires_lab", "availability", "active", "updated_at"}

func TestRosterRepositoryListTeachersByDepartment(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewRosterRepository(db)

	rows := sqlmock.NewRows(teacherRowColumns).
		AddRow("t1", "Ali Hassan", "cs", "c1", "Databases", "required", true, 3, 2, false, []byte(`{"Saturday":[8,9]}`), true, time.Now())
	mock.ExpectQuery("(?s)" + regexp.QuoteMeta("FROM teachers t LEFT JOIN courses c ON c.id = t.course_id") + ".*" + regexp.QuoteMeta("AND t.department_id = $1")).
		WithArgs("cs").
		WillReturnRows(rows)

	teachers, err := repo.ListTeachers(context.Background(), "cs")
	require.NoError(t, err)
	require.Len(t, teachers, 1)
	assert.Equal(t, "Databases", *teachers[0].CourseName)
	assert.True(t, teachers[0].CourseNeedsLab)

	hours, err := teachers[0].AvailabilityHours()
	require.NoError(t, err)
	assert.Equal(t, []int{8, 9}, hours["Saturday"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRosterRepositoryLoadAllDepartments(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewRosterRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE t.active = TRUE ORDER BY")).
		WithoutArgs().
		WillReturnRows(sqlmock.NewRows(teacherRowColumns))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, name, type, capacity, department_id, updated_at FROM rooms ORDER BY name ASC, id ASC")).
		WithoutArgs().
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "type", "capacity", "department_id", "updated_at"}).
			AddRow("r1", "Hall A", nil, 40, nil, time.Now()).
			AddRow("lab1", "Lab 1", "lab", 20, "cs", time.Now()))

	roster, err := repo.Load(context.Background(), "")
	require.NoError(t, err)
	assert.Empty(t, roster.Teachers)
	require.Len(t, roster.Rooms, 2)
	assert.Nil(t, roster.Rooms[0].Type)
	assert.Equal(t, "lab", *roster.Rooms[1].Type)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRosterRepositoryListRoomsIncludesSharedRooms(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewRosterRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM rooms WHERE department_id = $1 OR department_id IS NULL")).
		WithArgs("cs").
		WillReturnError(errors.New("connection reset"))

	_, err := repo.ListRooms(context.Background(), "cs")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "list roster rooms")
	assert.NoError(t, mock.ExpectationsWereMet())
}
