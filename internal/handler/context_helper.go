package handler

import (
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/merrykids-api/internal/middleware"
	"github.com/noah-isme/merrykids-api/internal/models"
	"github.com/noah-isme/merrykids-api/internal/service"
	appErrors "github.com/noah-isme/merrykids-api/pkg/errors"
	"github.com/noah-isme/merrykids-api/pkg/response"
	"github.com/noah-isme/merrykids-api/pkg/storage"
)

// multipartMemory caps the in-memory part of a parsed form; larger parts spill to disk.
const multipartMemory = 16 << 20

func claimsFromContext(c *gin.Context) *models.JWTClaims {
	return middleware.Claims(c)
}

// pageParams reads 1-based page and page_size query parameters.
func pageParams(c *gin.Context) (page, size int) {
	page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	size, _ = strconv.Atoi(c.DefaultQuery("page_size", strconv.Itoa(models.DefaultPageSize)))
	return page, size
}

// optionalFile returns the uploaded part or nil when the field is absent.
// The returned closer must be called once the upload has been consumed.
func optionalFile(c *gin.Context, field string) (*storage.Upload, func(), error) {
	header, err := c.FormFile(field)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
			return nil, func() {}, nil
		}
		return nil, func() {}, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid multipart form")
	}
	return openUpload(header)
}

func openUpload(header *multipart.FileHeader) (*storage.Upload, func(), error) {
	f, err := header.Open()
	if err != nil {
		return nil, func() {}, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "could not read uploaded file")
	}
	return &storage.Upload{Filename: header.Filename, Reader: f}, func() { _ = f.Close() }, nil
}

// bindDataPart decodes the JSON "data" part of a multipart request. The part
// may arrive as a plain form value or as a file with an application/json body.
func bindDataPart(c *gin.Context, dest interface{}) error {
	if err := c.Request.ParseMultipartForm(multipartMemory); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "expected multipart/form-data")
	}
	var raw []byte
	if value, ok := c.GetPostForm("data"); ok {
		raw = []byte(value)
	} else if header, err := c.FormFile("data"); err == nil {
		f, err := header.Open()
		if err != nil {
			return appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "could not read data part")
		}
		defer f.Close()
		if raw, err = io.ReadAll(f); err != nil {
			return appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "could not read data part")
		}
	} else {
		return appErrors.Clone(appErrors.ErrValidation, "data part is required")
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid data part")
	}
	return nil
}

// formDate parses a YYYY-MM-DD form value; a blank value yields the zero date.
func formDate(c *gin.Context, field string) (models.Date, error) {
	raw := strings.TrimSpace(c.PostForm(field))
	if raw == "" {
		return models.Date{}, nil
	}
	d, err := models.ParseDate(raw)
	if err != nil {
		return models.Date{}, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, field+" must be YYYY-MM-DD")
	}
	return d, nil
}

func sendFile(c *gin.Context, file *service.FileDownload, inline bool) {
	response.Attachment(c, file.ContentType, file.Filename, file.Data, inline)
}
