package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/merrykids-api/internal/models"
	"github.com/noah-isme/merrykids-api/internal/service"
	appErrors "github.com/noah-isme/merrykids-api/pkg/errors"
	"github.com/noah-isme/merrykids-api/pkg/response"
	"github.com/noah-isme/merrykids-api/pkg/storage"
)

const (
	applicationPDFField = "applicationPdf"
	submittedPDFField   = "filledApplicationPdf"
)

type announcementService interface {
	Current(ctx context.Context) (*models.AnnouncementResponse, error)
	Upsert(ctx context.Context, req models.UpsertAnnouncementRequest, pdf *storage.Upload) (*models.AnnouncementResponse, error)
	PDF(ctx context.Context) (*service.FileDownload, error)
}

type submissionService interface {
	Submit(ctx context.Context, req models.SubmitApplicationRequest, pdf *storage.Upload) (*models.SubmitApplicationResponse, error)
	List(ctx context.Context, filter models.SubmissionFilter) ([]models.Submission, *models.Pagination, error)
	Get(ctx context.Context, id string) (*models.Submission, error)
	UpdateStatus(ctx context.Context, id string, req models.UpdateSubmissionStatusRequest) (*models.Submission, error)
	UpdateNote(ctx context.Context, id string, req models.UpdateSubmissionNoteRequest) (*models.Submission, error)
	PDF(ctx context.Context, id string) (*service.FileDownload, error)
}

type submissionExporter interface {
	Submissions(ctx context.Context, filter models.SubmissionFilter, format models.ExportFormat) (*service.FileDownload, error)
}

// AdmissionHandler serves the public admission window and the admin review queue.
type AdmissionHandler struct {
	announcements announcementService
	submissions   submissionService
	exports       submissionExporter
}

// NewAdmissionHandler constructs an AdmissionHandler.
func NewAdmissionHandler(announcements announcementService, submissions submissionService, exports submissionExporter) *AdmissionHandler {
	return &AdmissionHandler{announcements: announcements, submissions: submissions, exports: exports}
}

// Announcement godoc
// @Summary Current admission announcement
// @Description data is null when nothing has been announced yet
// @Tags Admissions
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /public/admissions/announcement [get]
// @Router /admin/admissions/announcement [get]
func (h *AdmissionHandler) Announcement(c *gin.Context) {
	announcement, err := h.announcements.Current(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, announcement, nil)
}

// AnnouncementPDF godoc
// @Summary Download the blank application form
// @Tags Admissions
// @Produce application/pdf
// @Success 200 {file} file
// @Failure 404 {object} response.Envelope
// @Router /public/admissions/announcement/pdf [get]
func (h *AdmissionHandler) AnnouncementPDF(c *gin.Context) {
	file, err := h.announcements.PDF(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	sendFile(c, file, false)
}

// UpsertAnnouncement godoc
// @Summary Create or update the admission announcement
// @Tags Admissions
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param message formData string true "Announcement text"
// @Param open_date formData string true "YYYY-MM-DD"
// @Param close_date formData string true "YYYY-MM-DD"
// @Param applicationPdf formData file false "Blank application form"
// @Success 200 {object} response.Envelope
// @Router /admin/admissions/announcement [post]
func (h *AdmissionHandler) UpsertAnnouncement(c *gin.Context) {
	if err := c.Request.ParseMultipartForm(multipartMemory); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "expected multipart/form-data"))
		return
	}
	req := models.UpsertAnnouncementRequest{Message: c.PostForm("message")}
	var err error
	if req.OpenDate, err = formDate(c, "open_date"); err != nil {
		response.Error(c, err)
		return
	}
	if req.CloseDate, err = formDate(c, "close_date"); err != nil {
		response.Error(c, err)
		return
	}
	pdf, closeFn, err := optionalFile(c, applicationPDFField)
	if err != nil {
		response.Error(c, err)
		return
	}
	defer closeFn()

	announcement, err := h.announcements.Upsert(c.Request.Context(), req, pdf)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, announcement, nil)
}

// Submit godoc
// @Summary Submit an admission application
// @Tags Admissions
// @Accept multipart/form-data
// @Produce json
// @Param child_full_name formData string true "Child full name"
// @Param date_of_birth formData string true "YYYY-MM-DD"
// @Param level_applying_for formData string true "LKG1, UKG1 or UKG2"
// @Param guardian_full_name formData string true "Guardian full name"
// @Param email formData string true "Guardian email"
// @Param phone formData string true "Guardian phone"
// @Param address formData string true "Home address"
// @Param filledApplicationPdf formData file true "Completed application form"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /public/admissions/submissions [post]
func (h *AdmissionHandler) Submit(c *gin.Context) {
	var req models.SubmitApplicationRequest
	if err := c.ShouldBind(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid application form"))
		return
	}
	var err error
	if req.DateOfBirth, err = formDate(c, "date_of_birth"); err != nil {
		response.Error(c, err)
		return
	}
	pdf, closeFn, err := optionalFile(c, submittedPDFField)
	if err != nil {
		response.Error(c, err)
		return
	}
	defer closeFn()

	res, err := h.submissions.Submit(c.Request.Context(), req, pdf)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, res)
}

func submissionFilter(c *gin.Context) (models.SubmissionFilter, error) {
	filter := models.SubmissionFilter{Search: strings.TrimSpace(c.Query("search"))}
	filter.Page, filter.PageSize = pageParams(c)
	if raw := strings.ToUpper(strings.TrimSpace(c.Query("status"))); raw != "" {
		status := models.SubmissionStatus(raw)
		if !status.Valid() {
			return filter, appErrors.Clone(appErrors.ErrValidation, "unknown submission status")
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
	return filter, nil
}

// ListSubmissions godoc
// @Summary List admission submissions
// @Tags Admissions
// @Produce json
// @Security BearerAuth
// @Param search query string false "Match on guardian, child, email, phone or reference"
// @Param status query string false "Workflow status"
// @Param level query string false "Level applying for"
// @Param page query int false "Page number"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /admin/admissions/submissions [get]
func (h *AdmissionHandler) ListSubmissions(c *gin.Context) {
	filter, err := submissionFilter(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	items, pagination, err := h.submissions.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, pagination)
}

// ExportSubmissions godoc
// @Summary Export admission submissions
// @Tags Admissions
// @Produce text/csv
// @Produce application/pdf
// @Security BearerAuth
// @Param format query string false "csv (default) or pdf"
// @Success 200 {file} file
// @Router /admin/admissions/submissions/export [get]
func (h *AdmissionHandler) ExportSubmissions(c *gin.Context) {
	filter, err := submissionFilter(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	format, ok := models.ParseExportFormat(c.Query("format"))
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf"))
		return
	}
	file, err := h.exports.Submissions(c.Request.Context(), filter, format)
	if err != nil {
		response.Error(c, err)
		return
	}
	sendFile(c, file, false)
}

// GetSubmission godoc
// @Summary Get submission detail
// @Tags Admissions
// @Produce json
// @Security BearerAuth
// @Param id path string true "Submission ID"
// @Success 200 {object} response.Envelope
// @Router /admin/admissions/submissions/{id} [get]
func (h *AdmissionHandler) GetSubmission(c *gin.Context) {
	submission, err := h.submissions.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, submission, nil)
}

// SubmissionPDF godoc
// @Summary Download the submitted application form
// @Tags Admissions
// @Produce application/pdf
// @Security BearerAuth
// @Param id path string true "Submission ID"
// @Success 200 {file} file
// @Router /admin/admissions/submissions/{id}/pdf [get]
func (h *AdmissionHandler) SubmissionPDF(c *gin.Context) {
	file, err := h.submissions.PDF(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	sendFile(c, file, false)
}

// UpdateStatus godoc
// @Summary Change submission status
// @Tags Admissions
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Submission ID"
// @Param payload body models.UpdateSubmissionStatusRequest true "Status payload"
// @Success 200 {object} response.Envelope
// @Router /admin/admissions/submissions/{id}/status [put]
func (h *AdmissionHandler) UpdateStatus(c *gin.Context) {
	var req models.UpdateSubmissionStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid status payload"))
		return
	}
	submission, err := h.submissions.UpdateStatus(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, submission, nil)
}

// UpdateNote godoc
// @Summary Overwrite the admin note
// @Tags Admissions
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Submission ID"
// @Param payload body models.UpdateSubmissionNoteRequest true "Note payload"
// @Success 200 {object} response.Envelope
// @Router /admin/admissions/submissions/{id}/note [put]
func (h *AdmissionHandler) UpdateNote(c *gin.Context) {
	var req models.UpdateSubmissionNoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid note payload"))
		return
	}
	submission, err := h.submissions.UpdateNote(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, submission, nil)
}
