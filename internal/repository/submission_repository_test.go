package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/merrykids-api/internal/models"
	"github.com/noah-isme/merrykids-api/pkg/database"
)

var submissionRowColumns = []string{
	"id", "reference_no", "child_full_name", "date_of_birth", "level_applying_for", "guardian_full_name",
	"email", "phone", "address", "submitted_pdf_original_name", "submitted_pdf_stored_name", "submitted_pdf_path",
	"status", "admin_note", "created_at", "updated_at",
}

func TestSubmissionRepositoryListSearchesAllContactColumns(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewSubmissionRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows(submissionRowColumns).
		AddRow("s1", "MK-ADM-2025-000001", "Kavi", "2021-02-02", "LKG1", "Ruwan Silva", "ruwan@example.com", "0711111111", "Colombo",
			"form.pdf", "abc.pdf", "admissions/submissions/abc.pdf", "RECEIVED", nil, now, now)
	mock.ExpectQuery(regexp.QuoteMeta("FROM admission_submissions WHERE (LOWER(guardian_full_name) LIKE $1 OR LOWER(child_full_name) LIKE $1 OR LOWER(email) LIKE $1 OR LOWER(phone) LIKE $1 OR LOWER(reference_no) LIKE $1) ORDER BY created_at DESC LIMIT $2 OFFSET $3")).
		WithArgs("%silva%", 20, 0).
		WillReturnRows(rows)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM admission_submissions WHERE (LOWER(guardian_full_name) LIKE $1")).
		WithArgs("%silva%").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	list, total, err := repo.List(context.Background(), models.SubmissionFilter{Search: "SILVA"})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, 1, total)
	assert.Equal(t, models.SubmissionReceived, list[0].Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSubmissionRepositoryListStatusFilterNoSearch(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewSubmissionRepository(db)

	status := models.SubmissionOnHold
	mock.ExpectQuery(regexp.QuoteMeta("FROM admission_submissions WHERE status = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3")).
		WithArgs("ON_HOLD", 20, 0).
		WillReturnRows(sqlmock.NewRows(submissionRowColumns))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM admission_submissions WHERE status = $1")).
		WithArgs("ON_HOLD").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

	_, total, err := repo.List(context.Background(), models.SubmissionFilter{Status: &status, Search: "  "})
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSubmissionRepositoryCountAndCreate(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewSubmissionRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM admission_submissions WHERE reference_no LIKE $1")).
		WithArgs("MK-ADM-2025-%").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(41))
	n, err := repo.CountByReferencePrefix(context.Background(), "MK-ADM-2025-")
	require.NoError(t, err)
	assert.Equal(t, 41, n)

	mock.ExpectExec("INSERT INTO admission_submissions").
		WillReturnError(&pq.Error{Code: "23505", Constraint: SubmissionReferenceConstraint})
	err = repo.Create(context.Background(), &models.Submission{ReferenceNo: "MK-ADM-2025-000042", Status: models.SubmissionReceived})
	assert.True(t, database.IsUniqueViolation(err, SubmissionReferenceConstraint))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSubmissionRepositoryUpdates(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewSubmissionRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE admission_submissions SET status = $2")).
		WithArgs("s1", "ACCEPTED", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.UpdateStatus(context.Background(), "s1", models.SubmissionAccepted))

	note := "called guardian"
	mock.ExpectExec(regexp.QuoteMeta("UPDATE admission_submissions SET admin_note = $2")).
		WithArgs("s1", note, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.UpdateNote(context.Background(), "s1", &note))
	assert.NoError(t, mock.ExpectationsWereMet())
}
