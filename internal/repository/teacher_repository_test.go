package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/merrykids-api/internal/models"
	"github.com/noah-isme/merrykids-api/pkg/database"
)

func newTeacherRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

var teacherRowColumns = []string{
	"id", "employment_id", "full_name", "date_of_birth", "email", "phone_number",
	"permanent_address", "current_address", "emergency_contact_name", "emergency_contact_number",
	"marital_status", "date_of_joining", "level_assigned", "designation", "employment_status", "notes",
	"profile_photo_original_name", "profile_photo_stored_name", "profile_photo_path",
	"user_id", "is_deleted", "created_at", "updated_at", "account_active", "account_email",
}

func teacherRow(rows *sqlmock.Rows, id, employmentID, status string, userID interface{}, accountActive interface{}) *sqlmock.Rows {
	now := time.Now()
	return rows.AddRow(id, employmentID, "Nimali Perera", "1990-05-01", "nimali@example.com", "0771234567",
		"12 Lake Rd", "12 Lake Rd", "Sunil", "0777654321",
		nil, "2024-01-15", "UKG1", "TEACHER", status, nil,
		nil, nil, nil,
		userID, false, now, now, accountActive, nil)
}

func TestTeacherRepositoryListDefaultOrdering(t *testing.T) {
	db, mock, cleanup := newTeacherRepoMock(t)
	defer cleanup()
	repo := NewTeacherRepository(db)

	rows := teacherRow(sqlmock.NewRows(teacherRowColumns), "t1", "MK-STF-2025-0001", "ACTIVE", "u1", true)
	mock.ExpectQuery(regexp.QuoteMeta("FROM teachers t LEFT JOIN users u ON u.id = t.user_id WHERE t.is_deleted = FALSE ORDER BY CASE WHEN t.employment_status = $1 THEN 1 ELSE 0 END DESC, t.created_at DESC LIMIT $2 OFFSET $3")).
		WithArgs("ACTIVE", 20, 0).
		WillReturnRows(rows)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM teachers t WHERE t.is_deleted = FALSE")).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	list, total, err := repo.List(context.Background(), models.TeacherFilter{})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, 1, total)
	assert.Equal(t, "MK-STF-2025-0001", list[0].EmploymentID)
	assert.Equal(t, models.AccountActive, list[0].AccountStatus())
	assert.Equal(t, "1990-05-01", list[0].DateOfBirth.String())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTeacherRepositoryListWithFilters(t *testing.T) {
	db, mock, cleanup := newTeacherRepoMock(t)
	defer cleanup()
	repo := NewTeacherRepository(db)

	status := models.EmploymentResigned
	level := models.LevelLKG1
	mock.ExpectQuery(regexp.QuoteMeta("WHERE t.is_deleted = FALSE AND t.employment_status = $1 AND t.level_assigned = $2 AND (LOWER(t.full_name) LIKE $3 OR LOWER(t.email) LIKE $3) ORDER BY CASE WHEN t.employment_status = $4 THEN 1 ELSE 0 END DESC, t.created_at DESC LIMIT $5 OFFSET $6")).
		WithArgs("RESIGNED", "LKG1", "%perera%", "ACTIVE", 10, 10).
		WillReturnRows(sqlmock.NewRows(teacherRowColumns))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM teachers t WHERE t.is_deleted = FALSE AND t.employment_status = $1 AND t.level_assigned = $2 AND (LOWER(t.full_name) LIKE $3 OR LOWER(t.email) LIKE $3)")).
		WithArgs("RESIGNED", "LKG1", "%perera%").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(11))

	list, total, err := repo.List(context.Background(), models.TeacherFilter{Status: &status, Level: &level, Search: "Perera", Page: 2, PageSize: 10})
	require.NoError(t, err)
	assert.Empty(t, list)
	assert.Equal(t, 11, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTeacherRepositoryFindByIDExcludesDeleted(t *testing.T) {
	db, mock, cleanup := newTeacherRepoMock(t)
	defer cleanup()
	repo := NewTeacherRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE t.id = $1 AND t.is_deleted = FALSE")).
		WithArgs("gone").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.FindByID(context.Background(), "gone")
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTeacherRepositoryExistsByEmail(t *testing.T) {
	db, mock, cleanup := newTeacherRepoMock(t)
	defer cleanup()
	repo := NewTeacherRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM teachers WHERE is_deleted = FALSE AND LOWER(email) = $1 AND id <> $2 LIMIT 1")).
		WithArgs("a@example.com", "t1").
		WillReturnRows(sqlmock.NewRows([]string{"1"}).AddRow(1))
	exists, err := repo.ExistsByEmail(context.Background(), "A@example.com", "t1")
	require.NoError(t, err)
	assert.True(t, exists)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM teachers WHERE is_deleted = FALSE AND LOWER(email) = $1 LIMIT 1")).
		WithArgs("free@example.com").
		WillReturnError(sql.ErrNoRows)
	exists, err = repo.ExistsByEmail(context.Background(), "free@example.com", "")
	require.NoError(t, err)
	assert.False(t, exists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTeacherRepositoryCountByEmploymentPrefix(t *testing.T) {
	db, mock, cleanup := newTeacherRepoMock(t)
	defer cleanup()
	repo := NewTeacherRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM teachers WHERE employment_id LIKE $1")).
		WithArgs("MK-STF-2025-%").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(7))

	n, err := repo.CountByEmploymentPrefix(context.Background(), "MK-STF-2025-")
	require.NoError(t, err)
	assert.Equal(t, 7, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTeacherRepositoryCreateSurfacesUniqueViolation(t *testing.T) {
	db, mock, cleanup := newTeacherRepoMock(t)
	defer cleanup()
	repo := NewTeacherRepository(db)

	mock.ExpectExec("INSERT INTO teachers").
		WillReturnError(&pq.Error{Code: "23505", Constraint: TeacherEmploymentIDConstraint})

	err := repo.Create(context.Background(), &models.Teacher{EmploymentID: "MK-STF-2025-0001", EmploymentStatus: models.EmploymentActive})
	require.Error(t, err)
	assert.True(t, database.IsUniqueViolation(err, TeacherEmploymentIDConstraint))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTeacherRepositoryUpdateAndUnlinkUseTransaction(t *testing.T) {
	db, mock, cleanup := newTeacherRepoMock(t)
	defer cleanup()
	repo := NewTeacherRepository(db)
	tr := database.NewTransactor(db)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE teachers SET user_id = \\$2").
		WithArgs("t1", nil, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE teachers SET full_name").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := tr.WithinTx(context.Background(), func(ctx context.Context) error {
		if err := repo.SetUserID(ctx, "t1", nil); err != nil {
			return err
		}
		return repo.Update(ctx, &models.Teacher{ID: "t1", IsDeleted: true})
	})
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}
