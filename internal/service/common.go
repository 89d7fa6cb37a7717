package service

import (
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/merrykids-api/internal/models"
	appErrors "github.com/noah-isme/merrykids-api/pkg/errors"
	"github.com/noah-isme/merrykids-api/pkg/storage"
)

// Clock returns the current instant.
type Clock func() time.Time

// Calendar resolves "today" in the institution's timezone.
type Calendar struct {
	Now      Clock
	Location *time.Location
}

func (c Calendar) now() time.Time {
	if c.Now == nil {
		return time.Now()
	}
	return c.Now()
}

// Today returns the current calendar day.
func (c Calendar) Today() models.Date {
	return models.DateOf(c.now(), c.Location)
}

// Year returns the current calendar year.
func (c Calendar) Year() int {
	return c.Today().Year()
}

type fileStore interface {
	StoreImage(upload storage.Upload, category storage.Category) (*storage.File, error)
	StorePDF(upload storage.Upload, category storage.Category) (*storage.File, error)
	Load(path string) ([]byte, error)
	Delete(path string) error
}

// FileDownload is a stored file ready to be streamed back.
type FileDownload struct {
	Data        []byte
	ContentType string
	Filename    string
}

// typedOr keeps domain errors and wraps anything else as internal.
func typedOr(err error, message string) error {
	var appErr *appErrors.Error
	if errors.As(err, &appErr) {
		return appErr
	}
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, message)
}

func loadStored(files fileStore, path, filename string, logger *zap.Logger) (*FileDownload, error) {
	data, err := files.Load(path)
	if err != nil {
		if errors.Is(err, appErrors.ErrFileMissing) {
			logger.Error("stored file missing", zap.String("path", path))
		}
		return nil, typedOr(err, "failed to load file")
	}
	return &FileDownload{Data: data, ContentType: storage.ContentType(path), Filename: filename}, nil
}

func discardFile(files fileStore, f *storage.File, logger *zap.Logger) {
	if f == nil {
		return
	}
	if err := files.Delete(f.Path); err != nil {
		logger.Warn("failed to delete stored file", zap.String("path", f.Path), zap.Error(err))
	}
}

type optionalField struct {
	name  string
	value *string
}

// firstBlank returns the name of the first provided field that is blank.
func firstBlank(fields ...optionalField) (string, bool) {
	for _, f := range fields {
		if f.value != nil && strings.TrimSpace(*f.value) == "" {
			return f.name, true
		}
	}
	return "", false
}

func trimmedOptional(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func invalidArgument(message string) error {
	return appErrors.Clone(appErrors.ErrInvalidArgument, message)
}

func validationError(err error, message string) error {
	return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, message)
}

func notFound(message string) error {
	return appErrors.Clone(appErrors.ErrNotFound, message)
}
