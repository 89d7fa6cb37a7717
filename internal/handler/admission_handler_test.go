package handler

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/merrykids-api/internal/models"
	"github.com/noah-isme/merrykids-api/internal/service"
	appErrors "github.com/noah-isme/merrykids-api/pkg/errors"
	"github.com/noah-isme/merrykids-api/pkg/storage"
)

type fakeAnnouncementService struct {
	current  *models.AnnouncementResponse
	lastReq  models.UpsertAnnouncementRequest
	pdfName  string
	download *service.FileDownload
	err      error
}

func (f *fakeAnnouncementService) Current(ctx context.Context) (*models.AnnouncementResponse, error) {
	return f.current, f.err
}

func (f *fakeAnnouncementService) Upsert(ctx context.Context, req models.UpsertAnnouncementRequest, pdf *storage.Upload) (*models.AnnouncementResponse, error) {
	f.lastReq = req
	if pdf != nil {
		f.pdfName = pdf.Filename
	}
	return &models.AnnouncementResponse{Message: req.Message}, f.err
}

func (f *fakeAnnouncementService) PDF(ctx context.Context) (*service.FileDownload, error) {
	return f.download, f.err
}

type fakeSubmissionService struct {
	lastSubmit models.SubmitApplicationRequest
	pdfBody    string
	lastFilter models.SubmissionFilter
	lastStatus models.UpdateSubmissionStatusRequest
	lastNote   models.UpdateSubmissionNoteRequest
	err        error
}

func (f *fakeSubmissionService) Submit(ctx context.Context, req models.SubmitApplicationRequest, pdf *storage.Upload) (*models.SubmitApplicationResponse, error) {
	f.lastSubmit = req
	if pdf != nil {
		data, _ := io.ReadAll(pdf.Reader)
		f.pdfBody = string(data)
	}
	if f.err != nil {
		return nil, f.err
	}
	return &models.SubmitApplicationResponse{ReferenceNo: "MK-ADM-2025-000001", Message: "Application received"}, nil
}

func (f *fakeSubmissionService) List(ctx context.Context, filter models.SubmissionFilter) ([]models.Submission, *models.Pagination, error) {
	f.lastFilter = filter
	return []models.Submission{}, models.Page{}.Paginate(0), f.err
}

func (f *fakeSubmissionService) Get(ctx context.Context, id string) (*models.Submission, error) {
	return &models.Submission{ID: id}, f.err
}

func (f *fakeSubmissionService) UpdateStatus(ctx context.Context, id string, req models.UpdateSubmissionStatusRequest) (*models.Submission, error) {
	f.lastStatus = req
	return &models.Submission{ID: id, Status: req.Status}, f.err
}

func (f *fakeSubmissionService) UpdateNote(ctx context.Context, id string, req models.UpdateSubmissionNoteRequest) (*models.Submission, error) {
	f.lastNote = req
	return &models.Submission{ID: id}, f.err
}

func (f *fakeSubmissionService) PDF(ctx context.Context, id string) (*service.FileDownload, error) {
	return &service.FileDownload{Data: []byte("%PDF"), ContentType: "application/pdf", Filename: "form.pdf"}, f.err
}

func TestPublicAnnouncementNullWhenAbsent(t *testing.T) {
	h := NewAdmissionHandler(&fakeAnnouncementService{}, &fakeSubmissionService{}, &fakeExports{})
	c, rec := testContext(httptest.NewRequest(http.MethodGet, "/public/admissions/announcement", nil))
	h.Announcement(c)

	require.Equal(t, http.StatusOK, rec.Code)
	env := decode(t, rec)
	assert.True(t, env.Success)
	assert.Equal(t, "null", string(env.Data))
}

func TestAnnouncementPDFNotFound(t *testing.T) {
	h := NewAdmissionHandler(&fakeAnnouncementService{err: appErrors.Clone(appErrors.ErrNotFound, "no application form is available")}, &fakeSubmissionService{}, &fakeExports{})
	c, rec := testContext(httptest.NewRequest(http.MethodGet, "/public/admissions/announcement/pdf", nil))
	h.AnnouncementPDF(c)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUpsertAnnouncementParsesForm(t *testing.T) {
	svc := &fakeAnnouncementService{}
	h := NewAdmissionHandler(svc, &fakeSubmissionService{}, &fakeExports{})

	req := multipartRequest(t, http.MethodPost, "/admin/admissions/announcement",
		map[string]string{"message": "Admissions for 2026", "open_date": "2025-03-01", "close_date": "2025-03-31"},
		part{field: "applicationPdf", filename: "form.pdf", body: "%PDF-1.4"},
	)
	c, rec := testContext(req)
	h.UpsertAnnouncement(c)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Admissions for 2026", svc.lastReq.Message)
	assert.Equal(t, "2025-03-01", svc.lastReq.OpenDate.String())
	assert.Equal(t, "2025-03-31", svc.lastReq.CloseDate.String())
	assert.Equal(t, "form.pdf", svc.pdfName)
}

func TestUpsertAnnouncementRejectsMalformedDate(t *testing.T) {
	h := NewAdmissionHandler(&fakeAnnouncementService{}, &fakeSubmissionService{}, &fakeExports{})
	req := multipartRequest(t, http.MethodPost, "/admin/admissions/announcement", map[string]string{"message": "x", "open_date": "01/03/2025"})
	c, rec := testContext(req)
	h.UpsertAnnouncement(c)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func applicationFields() map[string]string {
	return map[string]string{
		"child_full_name":    "Amaya Silva",
		"date_of_birth":      "2021-06-14",
		"level_applying_for": "LKG1",
		"guardian_full_name": "Ruwan Silva",
		"email":              "ruwan@example.lk",
		"phone":              "+94771234567",
		"address":            "12 Lake Road, Colombo",
	}
}

func TestSubmitBindsFormAndPDF(t *testing.T) {
	svc := &fakeSubmissionService{}
	h := NewAdmissionHandler(&fakeAnnouncementService{}, svc, &fakeExports{})

	req := multipartRequest(t, http.MethodPost, "/public/admissions/submissions", applicationFields(),
		part{field: "filledApplicationPdf", filename: "amaya.pdf", body: "%PDF-1.4 filled"})
	c, rec := testContext(req)
	h.Submit(c)

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "Amaya Silva", svc.lastSubmit.ChildFullName)
	assert.Equal(t, models.LevelLKG1, svc.lastSubmit.LevelApplyingFor)
	assert.Equal(t, "2021-06-14", svc.lastSubmit.DateOfBirth.String())
	assert.Equal(t, "%PDF-1.4 filled", svc.pdfBody)
	assert.Contains(t, string(decode(t, rec).Data), "MK-ADM-2025-000001")
}

func TestSubmitWhenClosed(t *testing.T) {
	svc := &fakeSubmissionService{err: service.ErrAdmissionsClosed}
	h := NewAdmissionHandler(&fakeAnnouncementService{}, svc, &fakeExports{})

	c, rec := testContext(multipartRequest(t, http.MethodPost, "/public/admissions/submissions", applicationFields(),
		part{field: "filledApplicationPdf", filename: "a.pdf", body: "%PDF"}))
	h.Submit(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	env := decode(t, rec)
	assert.Equal(t, "INVALID_ARGUMENT", env.Error.Code)
	assert.Equal(t, "Admissions are currently closed", env.Error.Message)
}

func TestListSubmissionsFilters(t *testing.T) {
	svc := &fakeSubmissionService{}
	h := NewAdmissionHandler(&fakeAnnouncementService{}, svc, &fakeExports{})

	c, rec := testContext(httptest.NewRequest(http.MethodGet, "/admin/admissions/submissions?status=on_hold&search=silva", nil))
	h.ListSubmissions(c)

	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, svc.lastFilter.Status)
	assert.Equal(t, models.SubmissionOnHold, *svc.lastFilter.Status)
	assert.Equal(t, "silva", svc.lastFilter.Search)
	assert.Equal(t, "[]", string(decode(t, rec).Data))

	c, rec = testContext(httptest.NewRequest(http.MethodGet, "/admin/admissions/submissions?level=NURSERY", nil))
	h.ListSubmissions(c)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUpdateStatusAndNote(t *testing.T) {
	svc := &fakeSubmissionService{}
	h := NewAdmissionHandler(&fakeAnnouncementService{}, svc, &fakeExports{})
	id := gin.Param{Key: "id", Value: "s-1"}

	req := httptest.NewRequest(http.MethodPut, "/admin/admissions/submissions/s-1/status", bytes.NewBufferString(`{"status":"ACCEPTED"}`))
	req.Header.Set("Content-Type", "application/json")
	c, rec := testContext(req, id)
	h.UpdateStatus(c)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, models.SubmissionAccepted, svc.lastStatus.Status)

	req = httptest.NewRequest(http.MethodPut, "/admin/admissions/submissions/s-1/note", bytes.NewBufferString(`{"note":"call back"}`))
	req.Header.Set("Content-Type", "application/json")
	c, rec = testContext(req, id)
	h.UpdateNote(c)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "call back", svc.lastNote.Note)
}

func TestSubmissionExportAndPDF(t *testing.T) {
	exports := &fakeExports{}
	h := NewAdmissionHandler(&fakeAnnouncementService{}, &fakeSubmissionService{}, exports)

	c, rec := testContext(httptest.NewRequest(http.MethodGet, "/admin/admissions/submissions/export?format=PDF", nil))
	h.ExportSubmissions(c)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, models.ExportPDF, exports.format)
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))

	c, rec = testContext(httptest.NewRequest(http.MethodGet, "/admin/admissions/submissions/s-1/pdf", nil), gin.Param{Key: "id", Value: "s-1"})
	h.SubmissionPDF(c)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, `attachment; filename="form.pdf"`, rec.Header().Get("Content-Disposition"))
}
