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
	"github.com/noah-isme/merrykids-api/internal/specification"
	"github.com/noah-isme/merrykids-api/pkg/database"
)

// SubmissionReferenceConstraint guards reference number uniqueness.
const SubmissionReferenceConstraint = "admission_submissions_reference_no_key"

const submissionColumns = `id, reference_no, child_full_name, date_of_birth, level_applying_for, guardian_full_name,
	email, phone, address, submitted_pdf_original_name, submitted_pdf_stored_name, submitted_pdf_path,
	status, admin_note, created_at, updated_at`

// SubmissionRepository persists admission submissions.
type SubmissionRepository struct {
	db *sqlx.DB
}

// NewSubmissionRepository constructs a SubmissionRepository.
func NewSubmissionRepository(db *sqlx.DB) *SubmissionRepository {
	return &SubmissionRepository{db: db}
}

func submissionListSpec(filter models.SubmissionFilter) *specification.Spec {
	return specification.New(
		specification.Equal("status", filter.Status),
		specification.Equal("level_applying_for", filter.Level),
		specification.ContainsAny(filter.Search, "guardian_full_name", "child_full_name", "email", "phone", "reference_no"),
	).OrderBy(specification.Desc("created_at"))
}

// List returns submissions matching filters along with total count.
func (r *SubmissionRepository) List(ctx context.Context, filter models.SubmissionFilter) ([]models.Submission, int, error) {
	spec := submissionListSpec(filter)
	page := models.Page{Page: filter.Page, PageSize: filter.PageSize}.Normalize()

	q := spec.Build(specification.Rows)
	query := "SELECT " + submissionColumns + " FROM admission_submissions" + q.Where + q.OrderBy +
		fmt.Sprintf(" LIMIT %s OFFSET %s", q.Bind(page.PageSize), q.Bind(page.Offset()))

	conn := database.Conn(ctx, r.db)
	var submissions []models.Submission
	if err := sqlx.SelectContext(ctx, conn, &submissions, query, q.Args...); err != nil {
		return nil, 0, fmt.Errorf("list submissions: %w", err)
	}

	cq := spec.Build(specification.Count)
	var total int
	if err := sqlx.GetContext(ctx, conn, &total, "SELECT COUNT(*) FROM admission_submissions"+cq.Where, cq.Args...); err != nil {
		return nil, 0, fmt.Errorf("count submissions: %w", err)
	}
	return submissions, total, nil
}

// FindByID fetches a submission. Missing rows surface as sql.ErrNoRows.
func (r *SubmissionRepository) FindByID(ctx context.Context, id string) (*models.Submission, error) {
	const query = `SELECT ` + submissionColumns + ` FROM admission_submissions WHERE id = $1`
	var submission models.Submission
	if err := sqlx.GetContext(ctx, database.Conn(ctx, r.db), &submission, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find submission: %w", err)
	}
	return &submission, nil
}

// CountByReferencePrefix counts submissions whose reference starts with prefix.
func (r *SubmissionRepository) CountByReferencePrefix(ctx context.Context, prefix string) (int, error) {
	q := specification.New(specification.HasPrefix("reference_no", prefix)).Build(specification.Count)
	var total int
	if err := sqlx.GetContext(ctx, database.Conn(ctx, r.db), &total, "SELECT COUNT(*) FROM admission_submissions"+q.Where, q.Args...); err != nil {
		return 0, fmt.Errorf("count reference numbers: %w", err)
	}
	return total, nil
}

// Create inserts a submission.
func (r *SubmissionRepository) Create(ctx context.Context, submission *models.Submission) error {
	if submission.ID == "" {
		submission.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	submission.CreatedAt = now
	submission.UpdatedAt = now
	const query = `INSERT INTO admission_submissions (id, reference_no, child_full_name, date_of_birth, level_applying_for,
		guardian_full_name, email, phone, address, submitted_pdf_original_name, submitted_pdf_stored_name, submitted_pdf_path,
		status, admin_note, created_at, updated_at)
		VALUES (:id, :reference_no, :child_full_name, :date_of_birth, :level_applying_for,
		:guardian_full_name, :email, :phone, :address, :submitted_pdf_original_name, :submitted_pdf_stored_name, :submitted_pdf_path,
		:status, :admin_note, :created_at, :updated_at)`
	if _, err := sqlx.NamedExecContext(ctx, database.Conn(ctx, r.db), query, submission); err != nil {
		return fmt.Errorf("create submission: %w", err)
	}
	return nil
}

// UpdateStatus overwrites the workflow status.
func (r *SubmissionRepository) UpdateStatus(ctx context.Context, id string, status models.SubmissionStatus) error {
	const query = `UPDATE admission_submissions SET status = $2, updated_at = $3 WHERE id = $1`
	res, err := database.Conn(ctx, r.db).ExecContext(ctx, query, id, status, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update submission status: %w", err)
	}
	return expectAffected(res, "update submission status")
}

// UpdateNote overwrites the admin note.
func (r *SubmissionRepository) UpdateNote(ctx context.Context, id string, note *string) error {
	const query = `UPDATE admission_submissions SET admin_note = $2, updated_at = $3 WHERE id = $1`
	res, err := database.Conn(ctx, r.db).ExecContext(ctx, query, id, note, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update submission note: %w", err)
	}
	return expectAffected(res, "update submission note")
}
