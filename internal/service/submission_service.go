package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/noah-isme/merrykids-api/internal/models"
	appErrors "github.com/noah-isme/merrykids-api/pkg/errors"
	"github.com/noah-isme/merrykids-api/pkg/storage"
)

// ErrAdmissionsClosed is returned for submissions outside the announced window.
var ErrAdmissionsClosed = appErrors.Clone(appErrors.ErrInvalidArgument, "Admissions are currently closed")

const submissionReceivedMessage = "Your application has been received. Please keep the reference number for future correspondence."

type submissionRepository interface {
	List(ctx context.Context, filter models.SubmissionFilter) ([]models.Submission, int, error)
	FindByID(ctx context.Context, id string) (*models.Submission, error)
	CountByReferencePrefix(ctx context.Context, prefix string) (int, error)
	Create(ctx context.Context, submission *models.Submission) error
	UpdateStatus(ctx context.Context, id string, status models.SubmissionStatus) error
	UpdateNote(ctx context.Context, id string, note *string) error
}

type admissionWindow interface {
	CurrentAnnouncement(ctx context.Context) (*models.Announcement, error)
}

// SubmissionServiceParams groups constructor dependencies.
type SubmissionServiceParams struct {
	Repo          submissionRepository
	Announcements admissionWindow
	Issuer        *IdentifierIssuer
	Files         fileStore
	Tx            transactor
	Calendar      Calendar
	Validator     *validator.Validate
	Logger        *zap.Logger
}

// SubmissionService runs the public admissions intake and its review workflow.
type SubmissionService struct {
	repo          submissionRepository
	announcements admissionWindow
	issuer        *IdentifierIssuer
	files         fileStore
	tx            transactor
	calendar      Calendar
	validator     *validator.Validate
	logger        *zap.Logger
	tracer        trace.Tracer
}

// NewSubmissionService constructs a SubmissionService.
func NewSubmissionService(params SubmissionServiceParams) *SubmissionService {
	validate := params.Validator
	if validate == nil {
		validate = validator.New()
	}
	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	issuer := params.Issuer
	if issuer == nil {
		issuer = NewIdentifierIssuer(MaxIdentifierRetries, nil, logger)
	}
	return &SubmissionService{
		repo:          params.Repo,
		announcements: params.Announcements,
		issuer:        issuer,
		files:         params.Files,
		tx:            params.Tx,
		calendar:      params.Calendar,
		validator:     validate,
		logger:        logger,
		tracer:        otel.Tracer(tracerName),
	}
}

// Submit accepts an application while the current announcement's window is open.
func (s *SubmissionService) Submit(ctx context.Context, req models.SubmitApplicationRequest, pdf *storage.Upload) (*models.SubmitApplicationResponse, error) {
	ctx, span := s.tracer.Start(ctx, "submission.submit")
	defer span.End()

	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid application payload")
	}
	if field, blank := firstBlank(
		optionalField{"child_full_name", &req.ChildFullName},
		optionalField{"guardian_full_name", &req.GuardianFullName},
		optionalField{"phone", &req.Phone},
		optionalField{"address", &req.Address},
	); blank {
		return nil, invalidArgument(field + " must not be blank")
	}
	today := s.calendar.Today()
	if req.DateOfBirth.IsZero() {
		return nil, invalidArgument("date_of_birth is required")
	}
	if req.DateOfBirth.After(today) {
		return nil, invalidArgument("date_of_birth cannot be in the future")
	}
	if pdf == nil {
		return nil, invalidArgument("application PDF is required")
	}

	announcement, err := s.announcements.CurrentAnnouncement(ctx)
	if err != nil {
		return nil, err
	}
	if announcement == nil || !announcement.IsOpenOn(today) {
		return nil, ErrAdmissionsClosed
	}

	stored, err := s.files.StorePDF(*pdf, storage.CategorySubmissions)
	if err != nil {
		return nil, typedOr(err, "failed to store application form")
	}

	submission := &models.Submission{
		ChildFullName:            strings.TrimSpace(req.ChildFullName),
		DateOfBirth:              req.DateOfBirth,
		LevelApplyingFor:         req.LevelApplyingFor,
		GuardianFullName:         strings.TrimSpace(req.GuardianFullName),
		Email:                    strings.TrimSpace(req.Email),
		Phone:                    strings.TrimSpace(req.Phone),
		Address:                  strings.TrimSpace(req.Address),
		SubmittedPDFOriginalName: stored.OriginalName,
		SubmittedPDFStoredName:   stored.StoredName,
		SubmittedPDFPath:         stored.Path,
		Status:                   models.SubmissionReceived,
	}

	reference, err := s.issuer.Issue(ctx, AdmissionIDs, today.Year(), s.repo.CountByReferencePrefix,
		func(ctx context.Context, candidate string) error {
			return s.tx.WithinTx(ctx, func(ctx context.Context) error {
				submission.ReferenceNo = candidate
				return s.repo.Create(ctx, submission)
			})
		})
	if err != nil {
		discardFile(s.files, stored, s.logger)
		return nil, typedOr(err, "failed to save application")
	}

	s.logger.Info("admission submission received",
		zap.String("submission_id", submission.ID),
		zap.String("reference_no", reference),
		zap.String("level", string(submission.LevelApplyingFor)),
	)
	return &models.SubmitApplicationResponse{ReferenceNo: reference, Message: submissionReceivedMessage}, nil
}

// List returns submissions plus pagination data.
func (s *SubmissionService) List(ctx context.Context, filter models.SubmissionFilter) ([]models.Submission, *models.Pagination, error) {
	items, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list submissions")
	}
	if items == nil {
		items = []models.Submission{}
	}
	return items, models.Page{Page: filter.Page, PageSize: filter.PageSize}.Paginate(total), nil
}

// Get returns a submission by id.
func (s *SubmissionService) Get(ctx context.Context, id string) (*models.Submission, error) {
	submission, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, notFound("submission not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load submission")
	}
	return submission, nil
}

// UpdateStatus moves a submission to any status.
func (s *SubmissionService) UpdateStatus(ctx context.Context, id string, req models.UpdateSubmissionStatusRequest) (*models.Submission, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid status")
	}
	if err := s.repo.UpdateStatus(ctx, id, req.Status); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, notFound("submission not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update submission status")
	}
	s.logger.Info("submission status updated", zap.String("submission_id", id), zap.String("status", string(req.Status)))
	return s.Get(ctx, id)
}

// UpdateNote overwrites the admin note. A blank note clears it.
func (s *SubmissionService) UpdateNote(ctx context.Context, id string, req models.UpdateSubmissionNoteRequest) (*models.Submission, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid note")
	}
	if err := s.repo.UpdateNote(ctx, id, trimmedOptional(&req.Note)); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, notFound("submission not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update submission note")
	}
	return s.Get(ctx, id)
}

// PDF returns the application form uploaded with a submission.
func (s *SubmissionService) PDF(ctx context.Context, id string) (*FileDownload, error) {
	submission, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if submission.SubmittedPDFPath == "" {
		return nil, notFound("submission has no application form")
	}
	return loadStored(s.files, submission.SubmittedPDFPath, submission.SubmittedPDFOriginalName, s.logger)
}
