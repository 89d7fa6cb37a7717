package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/merrykids-api/internal/models"
	"github.com/noah-isme/merrykids-api/internal/service"
	appErrors "github.com/noah-isme/merrykids-api/pkg/errors"
	"github.com/noah-isme/merrykids-api/pkg/response"
	"github.com/noah-isme/merrykids-api/pkg/storage"
)

const profilePhotoField = "profilePhoto"

type teacherService interface {
	List(ctx context.Context, filter models.TeacherFilter) ([]*models.TeacherResponse, *models.Pagination, error)
	Get(ctx context.Context, id string) (*models.TeacherResponse, error)
	Photo(ctx context.Context, id string) (*service.FileDownload, error)
	Create(ctx context.Context, req models.CreateTeacherRequest, photo *storage.Upload) (*models.TeacherResponse, error)
	CreateWithAccount(ctx context.Context, req models.CreateTeacherRequest, photo *storage.Upload) (*models.TeacherResponse, error)
	Update(ctx context.Context, id string, req models.UpdateTeacherRequest, photo *storage.Upload) (*models.TeacherResponse, error)
	SoftDelete(ctx context.Context, id string) error
	CreateAccount(ctx context.Context, id string) (*models.TeacherResponse, error)
	RevokeAccount(ctx context.Context, id string) (*models.TeacherResponse, error)
}

type staffExporter interface {
	Staff(ctx context.Context, filter models.TeacherFilter, format models.ExportFormat) (*service.FileDownload, error)
}

// TeacherHandler wires staff records to HTTP routes.
type TeacherHandler struct {
	teachers teacherService
	exports  staffExporter
}

// NewTeacherHandler constructs a new TeacherHandler.
func NewTeacherHandler(teachers teacherService, exports staffExporter) *TeacherHandler {
	return &TeacherHandler{teachers: teachers, exports: exports}
}

func teacherFilter(c *gin.Context) (models.TeacherFilter, error) {
	filter := models.TeacherFilter{Search: strings.TrimSpace(c.Query("search"))}
	filter.Page, filter.PageSize = pageParams(c)
	if raw := strings.ToUpper(strings.TrimSpace(c.Query("status"))); raw != "" {
		status := models.EmploymentStatus(raw)
		if _, ok := models.EmploymentRules[status]; !ok {
			return filter, appErrors.Clone(appErrors.ErrValidation, "unknown employment status")
		}
		filter.Status = &status
	}
	if raw := strings.ToUpper(strings.TrimSpace(c.Query("level"))); raw != "" {
		level := models.Level(raw)
		if !level.Valid() {
			return filter, appErrors.Clone(appErrors.ErrValidation, "unknown level")
		}
		filter.Level = &level
	}
	if raw := strings.ToUpper(strings.TrimSpace(c.Query("designation"))); raw != "" {
		designation := models.Designation(raw)
		if !designation.Valid() {
			return filter, appErrors.Clone(appErrors.ErrValidation, "unknown designation")
		}
		filter.Designation = &designation
	}
	return filter, nil
}

// List godoc
// @Summary List staff
// @Description Non-deleted staff, ACTIVE first then newest first
// @Tags Staff
// @Produce json
// @Security BearerAuth
// @Param search query string false "Case-insensitive match on name or email"
// @Param status query string false "Employment status"
// @Param level query string false "Level assigned"
// @Param designation query string false "Designation"
// @Param page query int false "Page number"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /admin/staff [get]
func (h *TeacherHandler) List(c *gin.Context) {
	filter, err := teacherFilter(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	teachers, pagination, err := h.teachers.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, teachers, pagination)
}

// Export godoc
// @Summary Export staff
// @Tags Staff
// @Produce text/csv
// @Produce application/pdf
// @Security BearerAuth
// @Param format query string false "csv (default) or pdf"
// @Success 200 {file} file
// @Router /admin/staff/export [get]
func (h *TeacherHandler) Export(c *gin.Context) {
	filter, err := teacherFilter(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	format, ok := models.ParseExportFormat(c.Query("format"))
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf"))
		return
	}
	file, err := h.exports.Staff(c.Request.Context(), filter, format)
	if err != nil {
		response.Error(c, err)
		return
	}
	sendFile(c, file, false)
}

// Get godoc
// @Summary Get staff detail
// @Tags Staff
// @Produce json
// @Security BearerAuth
// @Param id path string true "Teacher ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /admin/staff/{id} [get]
func (h *TeacherHandler) Get(c *gin.Context) {
	teacher, err := h.teachers.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, teacher, nil)
}

// Photo godoc
// @Summary Download profile photo
// @Tags Staff
// @Produce image/jpeg
// @Produce image/png
// @Security BearerAuth
// @Param id path string true "Teacher ID"
// @Success 200 {file} file
// @Router /admin/staff/{id}/photo [get]
func (h *TeacherHandler) Photo(c *gin.Context) {
	file, err := h.teachers.Photo(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	sendFile(c, file, true)
}

// Create godoc
// @Summary Create staff record
// @Tags Staff
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param data formData string true "CreateTeacherRequest as JSON"
// @Param profilePhoto formData file false "Profile photo (jpg, png, webp)"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /admin/staff [post]
func (h *TeacherHandler) Create(c *gin.Context) {
	h.create(c, h.teachers.Create)
}

// CreateWithAccount godoc
// @Summary Create staff record with login account
// @Description Account failures keep the record and answer 201 with meta.warning
// @Tags Staff
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param data formData string true "CreateTeacherRequest as JSON"
// @Param profilePhoto formData file false "Profile photo (jpg, png, webp)"
// @Success 201 {object} response.Envelope
// @Router /admin/staff/with-account [post]
func (h *TeacherHandler) CreateWithAccount(c *gin.Context) {
	h.create(c, h.teachers.CreateWithAccount)
}

type createTeacherFunc func(ctx context.Context, req models.CreateTeacherRequest, photo *storage.Upload) (*models.TeacherResponse, error)

func (h *TeacherHandler) create(c *gin.Context, create createTeacherFunc) {
	var req models.CreateTeacherRequest
	if err := bindDataPart(c, &req); err != nil {
		response.Error(c, err)
		return
	}
	photo, closeFn, err := optionalFile(c, profilePhotoField)
	if err != nil {
		response.Error(c, err)
		return
	}
	defer closeFn()

	teacher, err := create(c.Request.Context(), req, photo)
	if err != nil {
		if teacher != nil && errors.Is(err, appErrors.ErrAccountProvisioning) {
			appErr := appErrors.FromError(err)
			response.Created(c, teacher, map[string]interface{}{
				"warning": gin.H{"code": appErr.Code, "message": appErr.Message},
			})
			return
		}
		response.Error(c, err)
		return
	}
	response.Created(c, teacher)
}

// Update godoc
// @Summary Update staff record
// @Description Partial update; omitted fields are unchanged
// @Tags Staff
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param id path string true "Teacher ID"
// @Param data formData string true "UpdateTeacherRequest as JSON"
// @Param profilePhoto formData file false "Replacement photo"
// @Success 200 {object} response.Envelope
// @Router /admin/staff/{id} [put]
func (h *TeacherHandler) Update(c *gin.Context) {
	var req models.UpdateTeacherRequest
	if err := bindDataPart(c, &req); err != nil {
		response.Error(c, err)
		return
	}
	photo, closeFn, err := optionalFile(c, profilePhotoField)
	if err != nil {
		response.Error(c, err)
		return
	}
	defer closeFn()

	teacher, err := h.teachers.Update(c.Request.Context(), c.Param("id"), req, photo)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, teacher, nil)
}

// Delete godoc
// @Summary Soft delete staff record
// @Tags Staff
// @Security BearerAuth
// @Param id path string true "Teacher ID"
// @Success 204
// @Router /admin/staff/{id} [delete]
func (h *TeacherHandler) Delete(c *gin.Context) {
	if err := h.teachers.SoftDelete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// CreateAccount godoc
// @Summary Create login account for staff
// @Tags Staff
// @Produce json
// @Security BearerAuth
// @Param id path string true "Teacher ID"
// @Success 200 {object} response.Envelope
// @Router /admin/staff/{id}/account [post]
func (h *TeacherHandler) CreateAccount(c *gin.Context) {
	teacher, err := h.teachers.CreateAccount(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, teacher, nil)
}

// RevokeAccount godoc
// @Summary Revoke login account
// @Tags Staff
// @Produce json
// @Security BearerAuth
// @Param id path string true "Teacher ID"
// @Success 200 {object} response.Envelope
// @Router /admin/staff/{id}/account [delete]
func (h *TeacherHandler) RevokeAccount(c *gin.Context) {
	teacher, err := h.teachers.RevokeAccount(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, teacher, nil)
}
