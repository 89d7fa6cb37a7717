package service

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/noah-isme/merrykids-api/internal/models"
	appErrors "github.com/noah-isme/merrykids-api/pkg/errors"
	"github.com/noah-isme/merrykids-api/pkg/export"
)

// maxExportRows bounds a single export.
const maxExportRows = 10000

type staffLister interface {
	List(ctx context.Context, filter models.TeacherFilter) ([]models.TeacherRecord, int, error)
}

type submissionLister interface {
	List(ctx context.Context, filter models.SubmissionFilter) ([]models.Submission, int, error)
}

type renderer interface {
	Render(data export.Dataset) ([]byte, error)
	ContentType() string
	Extension() string
}

var staffColumns = []export.Column{
	{Key: "employment_id", Header: "Employment ID", Weight: 1.3},
	{Key: "full_name", Header: "Full name", Weight: 2},
	{Key: "email", Header: "Email", Weight: 2},
	{Key: "phone", Header: "Phone", Weight: 1.1},
	{Key: "level", Header: "Level", Weight: 0.7},
	{Key: "designation", Header: "Designation", Weight: 1.4},
	{Key: "status", Header: "Status", Weight: 1},
	{Key: "joined", Header: "Joined", Weight: 0.9},
	{Key: "account", Header: "Account", Weight: 1},
}

var submissionColumns = []export.Column{
	{Key: "reference_no", Header: "Reference", Weight: 1.4},
	{Key: "child", Header: "Child", Weight: 1.8},
	{Key: "dob", Header: "Date of birth", Weight: 0.9},
	{Key: "level", Header: "Level", Weight: 0.6},
	{Key: "guardian", Header: "Guardian", Weight: 1.8},
	{Key: "email", Header: "Email", Weight: 1.8},
	{Key: "phone", Header: "Phone", Weight: 1},
	{Key: "status", Header: "Status", Weight: 1.4},
	{Key: "submitted", Header: "Submitted", Weight: 0.9},
}

// ExportService renders filtered staff and submission listings as files.
type ExportService struct {
	teachers    staffLister
	submissions submissionLister
	renderers   map[models.ExportFormat]renderer
	calendar    Calendar
	logger      *zap.Logger
}

// NewExportService constructs an ExportService.
func NewExportService(teachers staffLister, submissions submissionLister, calendar Calendar, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{
		teachers:    teachers,
		submissions: submissions,
		renderers: map[models.ExportFormat]renderer{
			models.ExportCSV: export.NewCSVExporter(),
			models.ExportPDF: export.NewPDFExporter("MerryKids"),
		},
		calendar: calendar,
		logger:   logger,
	}
}

// Staff exports every non-deleted teacher matching filter.
func (s *ExportService) Staff(ctx context.Context, filter models.TeacherFilter, format models.ExportFormat) (*FileDownload, error) {
	var rows []map[string]string
	for page := 1; ; page++ {
		filter.Page, filter.PageSize = page, models.MaxPageSize
		batch, total, err := s.teachers.List(ctx, filter)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to export staff")
		}
		for i := range batch {
			rows = append(rows, staffRow(&batch[i]))
		}
		if len(batch) == 0 || len(rows) >= total || len(rows) >= maxExportRows {
			break
		}
	}
	return s.render(export.Dataset{Title: "Staff", Columns: staffColumns, Rows: rows}, "staff", format)
}

// Submissions exports every admission submission matching filter.
func (s *ExportService) Submissions(ctx context.Context, filter models.SubmissionFilter, format models.ExportFormat) (*FileDownload, error) {
	var rows []map[string]string
	for page := 1; ; page++ {
		filter.Page, filter.PageSize = page, models.MaxPageSize
		batch, total, err := s.submissions.List(ctx, filter)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to export submissions")
		}
		for i := range batch {
			rows = append(rows, submissionRow(&batch[i]))
		}
		if len(batch) == 0 || len(rows) >= total || len(rows) >= maxExportRows {
			break
		}
	}
	return s.render(export.Dataset{Title: "Admission submissions", Columns: submissionColumns, Rows: rows}, "admission-submissions", format)
}

func (s *ExportService) render(data export.Dataset, name string, format models.ExportFormat) (*FileDownload, error) {
	r, ok := s.renderers[format]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrInvalidArgument, fmt.Sprintf("unsupported export format %q", format))
	}
	if len(data.Rows) > maxExportRows {
		data.Rows = data.Rows[:maxExportRows]
	}
	payload, err := r.Render(data)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render export")
	}
	s.logger.Info("listing exported", zap.String("dataset", name), zap.String("format", string(format)), zap.Int("rows", len(data.Rows)))
	return &FileDownload{
		Data:        payload,
		ContentType: r.ContentType(),
		Filename:    fmt.Sprintf("%s-%s.%s", name, strings.ReplaceAll(s.calendar.Today().String(), "-", ""), r.Extension()),
	}, nil
}

func staffRow(t *models.TeacherRecord) map[string]string {
	return map[string]string{
		"employment_id": t.EmploymentID,
		"full_name":     t.FullName,
		"email":         t.Email,
		"phone":         t.PhoneNumber,
		"level":         string(t.LevelAssigned),
		"designation":   string(t.Designation),
		"status":        string(t.EmploymentStatus),
		"joined":        t.DateOfJoining.String(),
		"account":       string(t.AccountStatus()),
	}
}

func submissionRow(sub *models.Submission) map[string]string {
	return map[string]string{
		"reference_no": sub.ReferenceNo,
		"child":        sub.ChildFullName,
		"dob":          sub.DateOfBirth.String(),
		"level":        string(sub.LevelApplyingFor),
		"guardian":     sub.GuardianFullName,
		"email":        sub.Email,
		"phone":        sub.Phone,
		"status":       string(sub.Status),
		"submitted":    sub.CreatedAt.Format("2006-01-02"),
	}
}
