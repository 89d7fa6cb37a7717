package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/noah-isme/merrykids-api/internal/models"
	"github.com/noah-isme/merrykids-api/internal/repository"
	"github.com/noah-isme/merrykids-api/pkg/database"
	appErrors "github.com/noah-isme/merrykids-api/pkg/errors"
	"github.com/noah-isme/merrykids-api/pkg/storage"
)

type teacherRepository interface {
	List(ctx context.Context, filter models.TeacherFilter) ([]models.TeacherRecord, int, error)
	FindByID(ctx context.Context, id string) (*models.TeacherRecord, error)
	ExistsByEmail(ctx context.Context, email, excludeID string) (bool, error)
	CountByEmploymentPrefix(ctx context.Context, prefix string) (int, error)
	Create(ctx context.Context, teacher *models.Teacher) error
	Update(ctx context.Context, teacher *models.Teacher) error
	SetUserID(ctx context.Context, id string, userID *string) error
}

type accountLinker interface {
	ProvisionAccount(ctx context.Context, email string, role models.UserRole) (*models.AccountRef, error)
	Disable(ctx context.Context, userID string) error
	EmailTakenByOther(ctx context.Context, email, userID string) (bool, error)
	UpdateEmail(ctx context.Context, userID, email string) error
}

// TeacherServiceParams groups constructor dependencies.
type TeacherServiceParams struct {
	Repo      teacherRepository
	Accounts  accountLinker
	Issuer    *IdentifierIssuer
	Files     fileStore
	Tx        transactor
	Metrics   *MetricsService
	Calendar  Calendar
	Validator *validator.Validate
	Logger    *zap.Logger
}

// TeacherService manages staff records and their coupling to login accounts.
type TeacherService struct {
	repo      teacherRepository
	accounts  accountLinker
	issuer    *IdentifierIssuer
	files     fileStore
	tx        transactor
	metrics   *MetricsService
	calendar  Calendar
	validator *validator.Validate
	logger    *zap.Logger
	tracer    trace.Tracer
}

// NewTeacherService constructs a TeacherService.
func NewTeacherService(params TeacherServiceParams) *TeacherService {
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
		issuer = NewIdentifierIssuer(MaxIdentifierRetries, params.Metrics, logger)
	}
	return &TeacherService{
		repo:      params.Repo,
		accounts:  params.Accounts,
		issuer:    issuer,
		files:     params.Files,
		tx:        params.Tx,
		metrics:   params.Metrics,
		calendar:  params.Calendar,
		validator: validate,
		logger:    logger,
		tracer:    otel.Tracer(tracerName),
	}
}

// List returns teachers plus pagination data.
func (s *TeacherService) List(ctx context.Context, filter models.TeacherFilter) ([]*models.TeacherResponse, *models.Pagination, error) {
	records, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list teachers")
	}
	items := make([]*models.TeacherResponse, 0, len(records))
	for i := range records {
		items = append(items, models.NewTeacherResponse(&records[i]))
	}
	return items, models.Page{Page: filter.Page, PageSize: filter.PageSize}.Paginate(total), nil
}

// Get returns a non-deleted teacher by id.
func (s *TeacherService) Get(ctx context.Context, id string) (*models.TeacherResponse, error) {
	record, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	return models.NewTeacherResponse(record), nil
}

// Photo returns the stored profile photo.
func (s *TeacherService) Photo(ctx context.Context, id string) (*FileDownload, error) {
	record, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !record.HasPhoto() {
		return nil, notFound("teacher has no profile photo")
	}
	name := path.Base(*record.ProfilePhotoPath)
	if record.ProfilePhotoOriginalName != nil && *record.ProfilePhotoOriginalName != "" {
		name = *record.ProfilePhotoOriginalName
	}
	return loadStored(s.files, *record.ProfilePhotoPath, name, s.logger)
}

// Create registers a teacher with a freshly issued employment id.
func (s *TeacherService) Create(ctx context.Context, req models.CreateTeacherRequest, photo *storage.Upload) (*models.TeacherResponse, error) {
	ctx, span := s.tracer.Start(ctx, "teacher.create")
	defer span.End()

	teacher, err := s.create(ctx, req, photo)
	if err != nil {
		return nil, err
	}
	return models.NewTeacherResponse(&models.TeacherRecord{Teacher: *teacher}), nil
}

// CreateWithAccount creates the teacher and then, in a separate transaction,
// provisions and links a TEACHER account. When provisioning fails the teacher
// is kept and both the teacher and an ACCOUNT_PROVISIONING_FAILED error are returned.
func (s *TeacherService) CreateWithAccount(ctx context.Context, req models.CreateTeacherRequest, photo *storage.Upload) (*models.TeacherResponse, error) {
	ctx, span := s.tracer.Start(ctx, "teacher.create_with_account")
	defer span.End()

	teacher, err := s.create(ctx, req, photo)
	if err != nil {
		return nil, err
	}
	record := &models.TeacherRecord{Teacher: *teacher}

	if !teacher.EmploymentStatus.Rule().AllowsAccount {
		return models.NewTeacherResponse(record), s.provisioningFailed(teacher, invalidArgument("only active teachers can have an account"))
	}

	var ref *models.AccountRef
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		ref, err = s.accounts.ProvisionAccount(ctx, teacher.Email, models.RoleTeacher)
		if err != nil {
			return err
		}
		return s.repo.SetUserID(ctx, teacher.ID, &ref.UserID)
	})
	if err != nil {
		span.RecordError(err)
		return models.NewTeacherResponse(record), s.provisioningFailed(teacher, err)
	}

	active := true
	record.UserID = &ref.UserID
	record.AccountActive = &active
	record.AccountEmail = &ref.Email
	return models.NewTeacherResponse(record), nil
}

func (s *TeacherService) provisioningFailed(teacher *models.Teacher, cause error) error {
	s.metrics.AccountProvisioningFailed()
	s.logger.Warn("teacher created without account",
		zap.String("teacher_id", teacher.ID),
		zap.String("employment_id", teacher.EmploymentID),
		zap.Error(cause),
	)
	message := "teacher created but the login account could not be created"
	var appErr *appErrors.Error
	if errors.As(cause, &appErr) {
		message = fmt.Sprintf("%s: %s", message, appErr.Message)
	}
	return appErrors.Wrap(cause, appErrors.ErrAccountProvisioning.Code, appErrors.ErrAccountProvisioning.Status, message)
}

func (s *TeacherService) create(ctx context.Context, req models.CreateTeacherRequest, photo *storage.Upload) (*models.Teacher, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid teacher payload")
	}
	if err := s.validateDates(req.DateOfBirth, req.DateOfJoining); err != nil {
		return nil, err
	}
	if field, blank := firstBlank(
		optionalField{"full_name", &req.FullName},
		optionalField{"phone_number", &req.PhoneNumber},
		optionalField{"permanent_address", &req.PermanentAddress},
		optionalField{"current_address", &req.CurrentAddress},
		optionalField{"emergency_contact_name", &req.EmergencyContactName},
		optionalField{"emergency_contact_number", &req.EmergencyContactNumber},
	); blank {
		return nil, invalidArgument(field + " must not be blank")
	}

	email := strings.TrimSpace(req.Email)
	exists, err := s.repo.ExistsByEmail(ctx, email, "")
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check teacher email")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrDuplicateEmail, "email already used by another teacher")
	}

	status := models.EmploymentActive
	if req.EmploymentStatus != nil {
		status = *req.EmploymentStatus
	}
	teacher := &models.Teacher{
		FullName:               strings.TrimSpace(req.FullName),
		DateOfBirth:            req.DateOfBirth,
		Email:                  email,
		PhoneNumber:            strings.TrimSpace(req.PhoneNumber),
		PermanentAddress:       strings.TrimSpace(req.PermanentAddress),
		CurrentAddress:         strings.TrimSpace(req.CurrentAddress),
		EmergencyContactName:   strings.TrimSpace(req.EmergencyContactName),
		EmergencyContactNumber: strings.TrimSpace(req.EmergencyContactNumber),
		MaritalStatus:          req.MaritalStatus,
		DateOfJoining:          req.DateOfJoining,
		LevelAssigned:          req.LevelAssigned,
		Designation:            req.Designation,
		EmploymentStatus:       status,
		Notes:                  trimmedOptional(req.Notes),
	}

	var stored *storage.File
	if photo != nil {
		stored, err = s.files.StoreImage(*photo, storage.CategoryStaffPhotos)
		if err != nil {
			return nil, typedOr(err, "failed to store profile photo")
		}
		f := models.StoredFile(*stored)
		teacher.SetPhoto(&f)
	}

	_, err = s.issuer.Issue(ctx, StaffIDs, s.calendar.Year(), s.repo.CountByEmploymentPrefix,
		func(ctx context.Context, candidate string) error {
			return s.tx.WithinTx(ctx, func(ctx context.Context) error {
				teacher.EmploymentID = candidate
				return s.repo.Create(ctx, teacher)
			})
		})
	if err != nil {
		discardFile(s.files, stored, s.logger)
		if database.IsUniqueViolation(err, repository.TeacherActiveEmailConstraint) {
			return nil, appErrors.Clone(appErrors.ErrDuplicateEmail, "email already used by another teacher")
		}
		return nil, typedOr(err, "failed to create teacher")
	}

	s.logger.Info("teacher created", zap.String("teacher_id", teacher.ID), zap.String("employment_id", teacher.EmploymentID))
	return teacher, nil
}

// Update applies a partial patch. A terminal employment status in the patch
// revokes the linked account in the same transaction.
func (s *TeacherService) Update(ctx context.Context, id string, req models.UpdateTeacherRequest, photo *storage.Upload) (*models.TeacherResponse, error) {
	ctx, span := s.tracer.Start(ctx, "teacher.update", trace.WithAttributes(attribute.String("teacher.id", id)))
	defer span.End()

	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid teacher payload")
	}
	if field, blank := firstBlank(
		optionalField{"full_name", req.FullName},
		optionalField{"email", req.Email},
		optionalField{"phone_number", req.PhoneNumber},
		optionalField{"permanent_address", req.PermanentAddress},
		optionalField{"current_address", req.CurrentAddress},
		optionalField{"emergency_contact_name", req.EmergencyContactName},
		optionalField{"emergency_contact_number", req.EmergencyContactNumber},
	); blank {
		return nil, invalidArgument(field + " must not be blank")
	}
	if req.DateOfBirth != nil && req.DateOfBirth.IsZero() {
		return nil, invalidArgument("date_of_birth must be a valid date")
	}
	if req.DateOfJoining != nil && req.DateOfJoining.IsZero() {
		return nil, invalidArgument("date_of_joining must be a valid date")
	}

	var stored *storage.File
	if photo != nil {
		var err error
		stored, err = s.files.StoreImage(*photo, storage.CategoryStaffPhotos)
		if err != nil {
			return nil, typedOr(err, "failed to store profile photo")
		}
	}

	var record *models.TeacherRecord
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		record, err = s.load(ctx, id)
		if err != nil {
			return err
		}
		teacher := &record.Teacher

		if req.Email != nil {
			email := strings.TrimSpace(*req.Email)
			if !strings.EqualFold(email, teacher.Email) {
				if err := s.changeEmail(ctx, teacher, email); err != nil {
					return err
				}
				if record.AccountEmail != nil {
					record.AccountEmail = &email
				}
			}
			teacher.Email = email
		}
		applyTeacherPatch(teacher, req)

		if req.DateOfBirth != nil || req.DateOfJoining != nil {
			if err := s.validateDates(teacher.DateOfBirth, teacher.DateOfJoining); err != nil {
				return err
			}
		}

		if stored != nil {
			if teacher.HasPhoto() {
				old := &storage.File{Path: *teacher.ProfilePhotoPath}
				database.AfterCommit(ctx, func(context.Context) { discardFile(s.files, old, s.logger) })
			}
			f := models.StoredFile(*stored)
			teacher.SetPhoto(&f)
		}

		if req.EmploymentStatus != nil && teacher.EmploymentStatus.Rule().RevokesAccount && teacher.UserID != nil {
			if err := s.revoke(ctx, record); err != nil {
				return err
			}
		}

		if err := s.repo.Update(ctx, teacher); err != nil {
			if database.IsUniqueViolation(err, repository.TeacherActiveEmailConstraint) {
				return appErrors.Clone(appErrors.ErrDuplicateEmail, "email already used by another teacher")
			}
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update teacher")
		}
		return nil
	})
	if err != nil {
		discardFile(s.files, stored, s.logger)
		return nil, typedOr(err, "failed to update teacher")
	}

	s.logger.Info("teacher updated", zap.String("teacher_id", id))
	return models.NewTeacherResponse(record), nil
}

func (s *TeacherService) changeEmail(ctx context.Context, teacher *models.Teacher, email string) error {
	exists, err := s.repo.ExistsByEmail(ctx, email, teacher.ID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check teacher email")
	}
	if exists {
		return appErrors.Clone(appErrors.ErrDuplicateEmail, "email already used by another teacher")
	}
	if teacher.UserID == nil {
		return nil
	}
	taken, err := s.accounts.EmailTakenByOther(ctx, email, *teacher.UserID)
	if err != nil {
		return err
	}
	if taken {
		return appErrors.Clone(appErrors.ErrDuplicateEmail, "email already used by another account")
	}
	return s.accounts.UpdateEmail(ctx, *teacher.UserID, email)
}

func applyTeacherPatch(t *models.Teacher, req models.UpdateTeacherRequest) {
	if req.FullName != nil {
		t.FullName = strings.TrimSpace(*req.FullName)
	}
	if req.DateOfBirth != nil {
		t.DateOfBirth = *req.DateOfBirth
	}
	if req.PhoneNumber != nil {
		t.PhoneNumber = strings.TrimSpace(*req.PhoneNumber)
	}
	if req.PermanentAddress != nil {
		t.PermanentAddress = strings.TrimSpace(*req.PermanentAddress)
	}
	if req.CurrentAddress != nil {
		t.CurrentAddress = strings.TrimSpace(*req.CurrentAddress)
	}
	if req.EmergencyContactName != nil {
		t.EmergencyContactName = strings.TrimSpace(*req.EmergencyContactName)
	}
	if req.EmergencyContactNumber != nil {
		t.EmergencyContactNumber = strings.TrimSpace(*req.EmergencyContactNumber)
	}
	if req.MaritalStatus != nil {
		t.MaritalStatus = req.MaritalStatus
	}
	if req.DateOfJoining != nil {
		t.DateOfJoining = *req.DateOfJoining
	}
	if req.LevelAssigned != nil {
		t.LevelAssigned = *req.LevelAssigned
	}
	if req.Designation != nil {
		t.Designation = *req.Designation
	}
	if req.EmploymentStatus != nil {
		t.EmploymentStatus = *req.EmploymentStatus
	}
	if req.Notes != nil {
		t.Notes = trimmedOptional(req.Notes)
	}
}

// SoftDelete hides the teacher from default queries and revokes any account.
func (s *TeacherService) SoftDelete(ctx context.Context, id string) error {
	ctx, span := s.tracer.Start(ctx, "teacher.soft_delete", trace.WithAttributes(attribute.String("teacher.id", id)))
	defer span.End()

	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		record, err := s.load(ctx, id)
		if err != nil {
			return err
		}
		if record.UserID != nil {
			if err := s.revoke(ctx, record); err != nil {
				return err
			}
		}
		record.IsDeleted = true
		if err := s.repo.Update(ctx, &record.Teacher); err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete teacher")
		}
		return nil
	})
	if err != nil {
		return typedOr(err, "failed to delete teacher")
	}
	s.logger.Info("teacher deleted", zap.String("teacher_id", id))
	return nil
}

// CreateAccount provisions and links a TEACHER account for an active teacher.
func (s *TeacherService) CreateAccount(ctx context.Context, id string) (*models.TeacherResponse, error) {
	var record *models.TeacherRecord
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		record, err = s.load(ctx, id)
		if err != nil {
			return err
		}
		if record.UserID != nil {
			return invalidArgument("teacher already has an account")
		}
		if !record.EmploymentStatus.Rule().AllowsAccount {
			return invalidArgument("only active teachers can have an account")
		}
		ref, err := s.accounts.ProvisionAccount(ctx, record.Email, models.RoleTeacher)
		if err != nil {
			return err
		}
		if err := s.repo.SetUserID(ctx, record.ID, &ref.UserID); err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to link account")
		}
		active := true
		record.UserID = &ref.UserID
		record.AccountActive = &active
		record.AccountEmail = &ref.Email
		return nil
	})
	if err != nil {
		return nil, typedOr(err, "failed to create account")
	}
	s.logger.Info("teacher account linked", zap.String("teacher_id", id), zap.String("user_id", *record.UserID))
	return models.NewTeacherResponse(record), nil
}

// RevokeAccount disables and unlinks the teacher's account.
func (s *TeacherService) RevokeAccount(ctx context.Context, id string) (*models.TeacherResponse, error) {
	var record *models.TeacherRecord
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		record, err = s.load(ctx, id)
		if err != nil {
			return err
		}
		if record.UserID == nil {
			return invalidArgument("teacher has no account")
		}
		if err := s.revoke(ctx, record); err != nil {
			return err
		}
		if err := s.repo.SetUserID(ctx, record.ID, nil); err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to unlink account")
		}
		return nil
	})
	if err != nil {
		return nil, typedOr(err, "failed to revoke account")
	}
	s.logger.Info("teacher account revoked", zap.String("teacher_id", id))
	return models.NewTeacherResponse(record), nil
}

// revoke disables the linked account and clears the link on record. The
// caller persists the teacher inside the same transaction.
func (s *TeacherService) revoke(ctx context.Context, record *models.TeacherRecord) error {
	if err := s.accounts.Disable(ctx, *record.UserID); err != nil {
		return err
	}
	s.logger.Info("teacher account disabled", zap.String("teacher_id", record.ID), zap.String("user_id", *record.UserID))
	record.UserID = nil
	record.AccountActive = nil
	record.AccountEmail = nil
	return nil
}

func (s *TeacherService) load(ctx context.Context, id string) (*models.TeacherRecord, error) {
	record, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, notFound("teacher not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teacher")
	}
	return record, nil
}

func (s *TeacherService) validateDates(birth, joining models.Date) error {
	if birth.IsZero() {
		return invalidArgument("date_of_birth is required")
	}
	if joining.IsZero() {
		return invalidArgument("date_of_joining is required")
	}
	today := s.calendar.Today()
	if birth.After(today) {
		return invalidArgument("date_of_birth cannot be in the future")
	}
	if joining.Before(birth) {
		return invalidArgument("date_of_joining cannot be before date_of_birth")
	}
	return nil
}
