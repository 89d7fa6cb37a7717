package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/merrykids-api/internal/models"
)

func TestAnnouncementRepositoryCurrent(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewAnnouncementRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "message", "open_date", "close_date", "application_pdf_original_name", "application_pdf_stored_name", "application_pdf_path", "created_at", "updated_at"}).
		AddRow("a1", "Admissions open", "2025-01-01", "2025-01-31", "form.pdf", "x.pdf", "admissions/announcements/x.pdf", now, now)
	mock.ExpectQuery(regexp.QuoteMeta("FROM admission_announcements ORDER BY created_at DESC LIMIT 1")).WillReturnRows(rows)

	a, err := repo.Current(context.Background())
	require.NoError(t, err)
	assert.True(t, a.HasPDF())
	assert.True(t, a.IsOpenOn(models.NewDate(2025, 1, 31)))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAnnouncementRepositoryCurrentEmpty(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewAnnouncementRepository(db)

	mock.ExpectQuery("FROM admission_announcements").WillReturnError(sql.ErrNoRows)
	_, err := repo.Current(context.Background())
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPasswordResetRepositoryLifecycle(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewPasswordResetRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE password_reset_tokens SET used_at = $2 WHERE user_id = $1 AND used_at IS NULL")).
		WithArgs("u1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("INSERT INTO password_reset_tokens").WillReturnResult(sqlmock.NewResult(1, 1))
	require.NoError(t, repo.Create(context.Background(), &models.PasswordResetToken{UserID: "u1", TokenHash: "h", ExpiresAt: time.Now().Add(time.Hour)}))

	mock.ExpectQuery(regexp.QuoteMeta("FROM password_reset_tokens WHERE token_hash = $1")).
		WithArgs("h").
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "token_hash", "expires_at", "used_at", "created_at"}).
			AddRow("r1", "u1", "h", time.Now().Add(time.Hour), nil, time.Now()))
	token, err := repo.FindByHash(context.Background(), "h")
	require.NoError(t, err)
	assert.True(t, token.Usable(time.Now()))

	mock.ExpectExec(regexp.QuoteMeta("UPDATE password_reset_tokens SET used_at = $2 WHERE id = $1 AND used_at IS NULL")).
		WithArgs("r1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))
	assert.ErrorIs(t, repo.MarkUsed(context.Background(), "r1", time.Now()), sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCacheRepositoryWithoutClient(t *testing.T) {
	repo := NewCacheRepository(nil, "")
	var dest map[string]string
	assert.Error(t, repo.Get(context.Background(), "k", &dest))
	assert.NoError(t, repo.Set(context.Background(), "k", "v", time.Minute))
	assert.NoError(t, repo.Delete(context.Background(), "k"))
}
