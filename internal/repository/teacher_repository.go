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

// Constraint names raised by the teachers table.
const (
	TeacherEmploymentIDConstraint = "teachers_employment_id_key"
	TeacherActiveEmailConstraint  = "teachers_email_active_key"
)

const teacherColumns = `t.id, t.employment_id, t.full_name, t.date_of_birth, t.email, t.phone_number,
	t.permanent_address, t.current_address, t.emergency_contact_name, t.emergency_contact_number,
	t.marital_status, t.date_of_joining, t.level_assigned, t.designation, t.employment_status, t.notes,
	t.profile_photo_original_name, t.profile_photo_stored_name, t.profile_photo_path,
	t.user_id, t.is_deleted, t.created_at, t.updated_at,
	u.active AS account_active, u.email AS account_email`

const teacherFrom = ` FROM teachers t LEFT JOIN users u ON u.id = t.user_id`

// TeacherRepository manages persistence for teachers.
type TeacherRepository struct {
	db *sqlx.DB
}

// NewTeacherRepository constructs a TeacherRepository.
func NewTeacherRepository(db *sqlx.DB) *TeacherRepository {
	return &TeacherRepository{db: db}
}

// teacherListSpec hides soft-deleted rows, applies optional filters and ranks
// active staff first, newest first within each group.
func teacherListSpec(filter models.TeacherFilter) *specification.Spec {
	return specification.New(
		specification.IsFalse("t.is_deleted"),
		specification.Equal("t.employment_status", filter.Status),
		specification.Equal("t.level_assigned", filter.Level),
		specification.Equal("t.designation", filter.Designation),
		specification.ContainsAny(filter.Search, "t.full_name", "t.email"),
	).OrderBy(
		specification.RankFirst("t.employment_status", string(models.EmploymentActive)),
		specification.Desc("t.created_at"),
	)
}

// List returns teachers matching filters along with total count.
func (r *TeacherRepository) List(ctx context.Context, filter models.TeacherFilter) ([]models.TeacherRecord, int, error) {
	spec := teacherListSpec(filter)
	page := models.Page{Page: filter.Page, PageSize: filter.PageSize}.Normalize()

	q := spec.Build(specification.Rows)
	query := "SELECT " + teacherColumns + teacherFrom + q.Where + q.OrderBy +
		fmt.Sprintf(" LIMIT %s OFFSET %s", q.Bind(page.PageSize), q.Bind(page.Offset()))

	conn := database.Conn(ctx, r.db)
	var teachers []models.TeacherRecord
	if err := sqlx.SelectContext(ctx, conn, &teachers, query, q.Args...); err != nil {
		return nil, 0, fmt.Errorf("list teachers: %w", err)
	}

	cq := spec.Build(specification.Count)
	var total int
	if err := sqlx.GetContext(ctx, conn, &total, "SELECT COUNT(*) FROM teachers t"+cq.Where, cq.Args...); err != nil {
		return nil, 0, fmt.Errorf("count teachers: %w", err)
	}

	return teachers, total, nil
}

// FindByID fetches a non-deleted teacher by ID. Missing rows surface as sql.ErrNoRows.
func (r *TeacherRepository) FindByID(ctx context.Context, id string) (*models.TeacherRecord, error) {
	query := "SELECT " + teacherColumns + teacherFrom + " WHERE t.id = $1 AND t.is_deleted = FALSE"
	var teacher models.TeacherRecord
	if err := sqlx.GetContext(ctx, database.Conn(ctx, r.db), &teacher, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find teacher: %w", err)
	}
	return &teacher, nil
}

// ExistsByEmail checks whether another non-deleted teacher uses the email.
func (r *TeacherRepository) ExistsByEmail(ctx context.Context, email, excludeID string) (bool, error) {
	q := specification.New(
		specification.IsFalse("is_deleted"),
		specification.EqualFold("email", email),
		specification.NotEqual("id", excludeID),
	).Build(specification.Count)

	var exists int
	if err := sqlx.GetContext(ctx, database.Conn(ctx, r.db), &exists, "SELECT 1 FROM teachers"+q.Where+" LIMIT 1", q.Args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("check teacher email: %w", err)
	}
	return true, nil
}

// CountByEmploymentPrefix counts every teacher, deleted or not, whose employment ID starts with prefix.
func (r *TeacherRepository) CountByEmploymentPrefix(ctx context.Context, prefix string) (int, error) {
	q := specification.New(specification.HasPrefix("employment_id", prefix)).Build(specification.Count)
	var total int
	if err := sqlx.GetContext(ctx, database.Conn(ctx, r.db), &total, "SELECT COUNT(*) FROM teachers"+q.Where, q.Args...); err != nil {
		return 0, fmt.Errorf("count employment ids: %w", err)
	}
	return total, nil
}

// Create inserts a new teacher record.
func (r *TeacherRepository) Create(ctx context.Context, teacher *models.Teacher) error {
	if teacher.ID == "" {
		teacher.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if teacher.CreatedAt.IsZero() {
		teacher.CreatedAt = now
	}
	teacher.UpdatedAt = now

	const query = `INSERT INTO teachers (id, employment_id, full_name, date_of_birth, email, phone_number,
		permanent_address, current_address, emergency_contact_name, emergency_contact_number, marital_status,
		date_of_joining, level_assigned, designation, employment_status, notes,
		profile_photo_original_name, profile_photo_stored_name, profile_photo_path, user_id, is_deleted, created_at, updated_at)
		VALUES (:id, :employment_id, :full_name, :date_of_birth, :email, :phone_number,
		:permanent_address, :current_address, :emergency_contact_name, :emergency_contact_number, :marital_status,
		:date_of_joining, :level_assigned, :designation, :employment_status, :notes,
		:profile_photo_original_name, :profile_photo_stored_name, :profile_photo_path, :user_id, :is_deleted, :created_at, :updated_at)`
	if _, err := sqlx.NamedExecContext(ctx, database.Conn(ctx, r.db), query, teacher); err != nil {
		return fmt.Errorf("create teacher: %w", err)
	}
	return nil
}

// Update writes every mutable column. The employment ID is never rewritten.
func (r *TeacherRepository) Update(ctx context.Context, teacher *models.Teacher) error {
	teacher.UpdatedAt = time.Now().UTC()
	const query = `UPDATE teachers SET full_name = :full_name, date_of_birth = :date_of_birth, email = :email,
		phone_number = :phone_number, permanent_address = :permanent_address, current_address = :current_address,
		emergency_contact_name = :emergency_contact_name, emergency_contact_number = :emergency_contact_number,
		marital_status = :marital_status, date_of_joining = :date_of_joining, level_assigned = :level_assigned,
		designation = :designation, employment_status = :employment_status, notes = :notes,
		profile_photo_original_name = :profile_photo_original_name, profile_photo_stored_name = :profile_photo_stored_name,
		profile_photo_path = :profile_photo_path, user_id = :user_id, is_deleted = :is_deleted, updated_at = :updated_at
		WHERE id = :id`
	res, err := sqlx.NamedExecContext(ctx, database.Conn(ctx, r.db), query, teacher)
	if err != nil {
		return fmt.Errorf("update teacher: %w", err)
	}
	return expectAffected(res, "update teacher")
}

// SetUserID links or unlinks the login account.
func (r *TeacherRepository) SetUserID(ctx context.Context, id string, userID *string) error {
	const query = `UPDATE teachers SET user_id = $2, updated_at = $3 WHERE id = $1`
	res, err := database.Conn(ctx, r.db).ExecContext(ctx, query, id, userID, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("set teacher account: %w", err)
	}
	return expectAffected(res, "set teacher account")
}

func expectAffected(res sql.Result, op string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", op, sql.ErrNoRows)
	}
	return nil
}
