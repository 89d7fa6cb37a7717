package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/merrykids-api/internal/models"
	"github.com/noah-isme/merrykids-api/pkg/database"
	appErrors "github.com/noah-isme/merrykids-api/pkg/errors"
	"github.com/noah-isme/merrykids-api/pkg/storage"
)

const announcementCacheKey = "admissions:announcement:current"

type announcementRepository interface {
	Current(ctx context.Context) (*models.Announcement, error)
	Create(ctx context.Context, announcement *models.Announcement) error
	Update(ctx context.Context, announcement *models.Announcement) error
}

// cachedAnnouncement mirrors models.Announcement without its json:"-" tags.
type cachedAnnouncement struct {
	ID              string
	Message         string
	OpenDate        models.Date
	CloseDate       models.Date
	PDFOriginalName *string
	PDFStoredName   *string
	PDFPath         *string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// AnnouncementService maintains the single current admissions announcement.
type AnnouncementService struct {
	repo      announcementRepository
	files     fileStore
	tx        transactor
	cache     *CacheService
	cacheTTL  time.Duration
	calendar  Calendar
	validator *validator.Validate
	logger    *zap.Logger
}

// NewAnnouncementService constructs the service.
func NewAnnouncementService(repo announcementRepository, files fileStore, tx transactor, cache *CacheService, cacheTTL time.Duration, calendar Calendar, validate *validator.Validate, logger *zap.Logger) *AnnouncementService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AnnouncementService{
		repo:      repo,
		files:     files,
		tx:        tx,
		cache:     cache,
		cacheTTL:  cacheTTL,
		calendar:  calendar,
		validator: validate,
		logger:    logger,
	}
}

// Current returns the latest announcement with derived flags, or nil when
// none has been published.
func (s *AnnouncementService) Current(ctx context.Context) (*models.AnnouncementResponse, error) {
	announcement, err := s.CurrentAnnouncement(ctx)
	if err != nil {
		return nil, err
	}
	return models.NewAnnouncementResponse(announcement, s.calendar.Today()), nil
}

// CurrentAnnouncement reads the latest announcement through the cache.
func (s *AnnouncementService) CurrentAnnouncement(ctx context.Context) (*models.Announcement, error) {
	var cached cachedAnnouncement
	if s.cache.Get(ctx, announcementCacheKey, &cached) {
		announcement := models.Announcement(cached)
		return &announcement, nil
	}

	announcement, err := s.repo.Current(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load announcement")
	}
	s.cache.Set(ctx, announcementCacheKey, cachedAnnouncement(*announcement), s.cacheTTL)
	return announcement, nil
}

// Upsert creates the announcement or replaces the current one. A new PDF
// replaces the attached application form.
func (s *AnnouncementService) Upsert(ctx context.Context, req models.UpsertAnnouncementRequest, pdf *storage.Upload) (*models.AnnouncementResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid announcement payload")
	}
	if strings.TrimSpace(req.Message) == "" {
		return nil, invalidArgument("message must not be blank")
	}
	if req.OpenDate.IsZero() || req.CloseDate.IsZero() {
		return nil, invalidArgument("open_date and close_date are required")
	}
	if req.OpenDate.After(req.CloseDate) {
		return nil, invalidArgument("open_date must be on or before close_date")
	}

	var stored *storage.File
	if pdf != nil {
		var err error
		stored, err = s.files.StorePDF(*pdf, storage.CategoryAnnouncements)
		if err != nil {
			return nil, typedOr(err, "failed to store application form")
		}
	}

	var result *models.Announcement
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		current, err := s.repo.Current(ctx)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load announcement")
		}

		announcement := current
		if announcement == nil {
			announcement = &models.Announcement{}
		}
		announcement.Message = strings.TrimSpace(req.Message)
		announcement.OpenDate = req.OpenDate
		announcement.CloseDate = req.CloseDate
		if stored != nil {
			if announcement.HasPDF() {
				old := &storage.File{Path: *announcement.PDFPath}
				database.AfterCommit(ctx, func(context.Context) { discardFile(s.files, old, s.logger) })
			}
			f := models.StoredFile(*stored)
			announcement.SetPDF(&f)
		}

		if current == nil {
			err = s.repo.Create(ctx, announcement)
		} else {
			err = s.repo.Update(ctx, announcement)
		}
		if err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save announcement")
		}
		database.AfterCommit(ctx, func(ctx context.Context) { s.cache.Invalidate(ctx, announcementCacheKey) })
		result = announcement
		return nil
	})
	if err != nil {
		discardFile(s.files, stored, s.logger)
		return nil, typedOr(err, "failed to save announcement")
	}

	s.logger.Info("admission announcement saved",
		zap.String("announcement_id", result.ID),
		zap.String("open_date", result.OpenDate.String()),
		zap.String("close_date", result.CloseDate.String()),
	)
	return models.NewAnnouncementResponse(result, s.calendar.Today()), nil
}

// PDF returns the attached application form.
func (s *AnnouncementService) PDF(ctx context.Context) (*FileDownload, error) {
	announcement, err := s.CurrentAnnouncement(ctx)
	if err != nil {
		return nil, err
	}
	if !announcement.HasPDF() {
		return nil, notFound("no application form is available")
	}
	name := "application-form.pdf"
	if announcement.PDFOriginalName != nil && *announcement.PDFOriginalName != "" {
		name = *announcement.PDFOriginalName
	}
	return loadStored(s.files, *announcement.PDFPath, name, s.logger)
}
