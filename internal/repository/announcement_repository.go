package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/merrykids-api/internal/models"
	"github.com/noah-isme/merrykids-api/pkg/database"
)

const announcementColumns = `id, message, open_date, close_date, application_pdf_original_name,
	application_pdf_stored_name, application_pdf_path, created_at, updated_at`

// AnnouncementRepository persists admission announcements.
type AnnouncementRepository struct {
	db *sqlx.DB
}

// NewAnnouncementRepository constructs an AnnouncementRepository.
func NewAnnouncementRepository(db *sqlx.DB) *AnnouncementRepository {
	return &AnnouncementRepository{db: db}
}

// Current returns the most recently created announcement or sql.ErrNoRows.
func (r *AnnouncementRepository) Current(ctx context.Context) (*models.Announcement, error) {
	const query = `SELECT ` + announcementColumns + ` FROM admission_announcements ORDER BY created_at DESC LIMIT 1`
	var announcement models.Announcement
	if err := sqlx.GetContext(ctx, database.Conn(ctx, r.db), &announcement, query); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find current announcement: %w", err)
	}
	return &announcement, nil
}

// Create inserts an announcement.
func (r *AnnouncementRepository) Create(ctx context.Context, announcement *models.Announcement) error {
	if announcement.ID == "" {
		announcement.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	announcement.CreatedAt = now
	announcement.UpdatedAt = now
	const query = `INSERT INTO admission_announcements (id, message, open_date, close_date, application_pdf_original_name,
		application_pdf_stored_name, application_pdf_path, created_at, updated_at)
		VALUES (:id, :message, :open_date, :close_date, :application_pdf_original_name,
		:application_pdf_stored_name, :application_pdf_path, :created_at, :updated_at)`
	if _, err := sqlx.NamedExecContext(ctx, database.Conn(ctx, r.db), query, announcement); err != nil {
		return fmt.Errorf("create announcement: %w", err)
	}
	return nil
}

// Update rewrites the message, window and attached form.
func (r *AnnouncementRepository) Update(ctx context.Context, announcement *models.Announcement) error {
	announcement.UpdatedAt = time.Now().UTC()
	const query = `UPDATE admission_announcements SET message = :message, open_date = :open_date, close_date = :close_date,
		application_pdf_original_name = :application_pdf_original_name, application_pdf_stored_name = :application_pdf_stored_name,
		application_pdf_path = :application_pdf_path, updated_at = :updated_at WHERE id = :id`
	res, err := sqlx.NamedExecContext(ctx, database.Conn(ctx, r.db), query, announcement)
	if err != nil {
		return fmt.Errorf("update announcement: %w", err)
	}
	return expectAffected(res, "update announcement")
}
