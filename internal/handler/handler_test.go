package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/merrykids-api/internal/middleware"
	"github.com/noah-isme/merrykids-api/internal/models"
	"github.com/noah-isme/merrykids-api/internal/service"
	appErrors "github.com/noah-isme/merrykids-api/pkg/errors"
	"github.com/noah-isme/merrykids-api/pkg/storage"
)

type envelope struct {
	Success    bool                   `json:"success"`
	Data       json.RawMessage        `json:"data"`
	Error      *appErrors.Error       `json:"error"`
	Pagination *models.Pagination     `json:"pagination"`
	Meta       map[string]interface{} `json:"meta"`
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return env
}

type part struct {
	field    string
	filename string
	body     string
}

func multipartRequest(t *testing.T, method, target string, fields map[string]string, files ...part) *http.Request {
	t.Helper()
	buf := &bytes.Buffer{}
	w := multipart.NewWriter(buf)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	for _, f := range files {
		fw, err := w.CreateFormFile(f.field, f.filename)
		require.NoError(t, err)
		_, err = io.WriteString(fw, f.body)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	req := httptest.NewRequest(method, target, buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func testContext(req *http.Request, params ...gin.Param) (*gin.Context, *httptest.ResponseRecorder) {
	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = req
	c.Params = params
	return c, rec
}

// --- staff ---

type fakeTeacherService struct {
	lastFilter models.TeacherFilter
	lastCreate models.CreateTeacherRequest
	lastUpdate models.UpdateTeacherRequest
	photoName  string
	photoBody  string
	result     *models.TeacherResponse
	err        error
	download   *service.FileDownload
}

func (f *fakeTeacherService) capture(photo *storage.Upload) {
	if photo == nil {
		return
	}
	f.photoName = photo.Filename
	data, _ := io.ReadAll(photo.Reader)
	f.photoBody = string(data)
}

func (f *fakeTeacherService) List(ctx context.Context, filter models.TeacherFilter) ([]*models.TeacherResponse, *models.Pagination, error) {
	f.lastFilter = filter
	return []*models.TeacherResponse{f.result}, models.Page{Page: filter.Page, PageSize: filter.PageSize}.Paginate(1), f.err
}

func (f *fakeTeacherService) Get(ctx context.Context, id string) (*models.TeacherResponse, error) {
	return f.result, f.err
}

func (f *fakeTeacherService) Photo(ctx context.Context, id string) (*service.FileDownload, error) {
	return f.download, f.err
}

func (f *fakeTeacherService) Create(ctx context.Context, req models.CreateTeacherRequest, photo *storage.Upload) (*models.TeacherResponse, error) {
	f.lastCreate = req
	f.capture(photo)
	return f.result, f.err
}

func (f *fakeTeacherService) CreateWithAccount(ctx context.Context, req models.CreateTeacherRequest, photo *storage.Upload) (*models.TeacherResponse, error) {
	return f.Create(ctx, req, photo)
}

func (f *fakeTeacherService) Update(ctx context.Context, id string, req models.UpdateTeacherRequest, photo *storage.Upload) (*models.TeacherResponse, error) {
	f.lastUpdate = req
	f.capture(photo)
	return f.result, f.err
}

func (f *fakeTeacherService) SoftDelete(ctx context.Context, id string) error { return f.err }

func (f *fakeTeacherService) CreateAccount(ctx context.Context, id string) (*models.TeacherResponse, error) {
	return f.result, f.err
}

func (f *fakeTeacherService) RevokeAccount(ctx context.Context, id string) (*models.TeacherResponse, error) {
	return f.result, f.err
}

type fakeExports struct {
	format models.ExportFormat
}

func (f *fakeExports) Staff(ctx context.Context, filter models.TeacherFilter, format models.ExportFormat) (*service.FileDownload, error) {
	f.format = format
	return &service.FileDownload{Data: []byte("a,b\n"), ContentType: "text/csv; charset=utf-8", Filename: "staff-20250310.csv"}, nil
}

func (f *fakeExports) Submissions(ctx context.Context, filter models.SubmissionFilter, format models.ExportFormat) (*service.FileDownload, error) {
	f.format = format
	return &service.FileDownload{Data: []byte("%PDF-1.3"), ContentType: "application/pdf", Filename: "admission-submissions-20250310.pdf"}, nil
}

func sampleTeacher() *models.TeacherResponse {
	return &models.TeacherResponse{
		Teacher:       models.Teacher{ID: "t-1", EmploymentID: "MK-STF-2025-0001", FullName: "Nimali Perera"},
		AccountStatus: models.AccountNone,
	}
}

func TestTeacherListParsesFilters(t *testing.T) {
	svc := &fakeTeacherService{result: sampleTeacher()}
	h := NewTeacherHandler(svc, &fakeExports{})

	c, rec := testContext(httptest.NewRequest(http.MethodGet, "/admin/staff?search=%20nim%20&status=active&level=ukg1&page=2&page_size=5", nil))
	h.List(c)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "nim", svc.lastFilter.Search)
	require.NotNil(t, svc.lastFilter.Status)
	assert.Equal(t, models.EmploymentActive, *svc.lastFilter.Status)
	assert.Equal(t, models.LevelUKG1, *svc.lastFilter.Level)
	assert.Nil(t, svc.lastFilter.Designation)
	assert.Equal(t, 2, svc.lastFilter.Page)
	env := decode(t, rec)
	assert.Equal(t, 5, env.Pagination.PageSize)
}

func TestTeacherListRejectsUnknownStatus(t *testing.T) {
	h := NewTeacherHandler(&fakeTeacherService{}, &fakeExports{})
	c, rec := testContext(httptest.NewRequest(http.MethodGet, "/admin/staff?status=ON_LEAVE", nil))
	h.List(c)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTeacherCreateReadsDataPartAndPhoto(t *testing.T) {
	svc := &fakeTeacherService{result: sampleTeacher()}
	h := NewTeacherHandler(svc, &fakeExports{})

	req := multipartRequest(t, http.MethodPost, "/admin/staff",
		map[string]string{"data": `{"full_name":"Nimali Perera","email":"nimali@merrykids.lk","date_of_birth":"1990-04-02"}`},
		part{field: "profilePhoto", filename: "me.png", body: "png-bytes"},
	)
	c, rec := testContext(req)
	h.Create(c)

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "Nimali Perera", svc.lastCreate.FullName)
	assert.Equal(t, "1990-04-02", svc.lastCreate.DateOfBirth.String())
	assert.Equal(t, "me.png", svc.photoName)
	assert.Equal(t, "png-bytes", svc.photoBody)
}

func TestTeacherCreateAcceptsDataAsFilePart(t *testing.T) {
	svc := &fakeTeacherService{result: sampleTeacher()}
	h := NewTeacherHandler(svc, &fakeExports{})

	req := multipartRequest(t, http.MethodPost, "/admin/staff", nil, part{field: "data", filename: "blob", body: `{"full_name":"Kasun"}`})
	c, rec := testContext(req)
	h.Create(c)

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "Kasun", svc.lastCreate.FullName)
	assert.Empty(t, svc.photoName)
}

func TestTeacherCreateRequiresDataPart(t *testing.T) {
	h := NewTeacherHandler(&fakeTeacherService{}, &fakeExports{})
	c, rec := testContext(multipartRequest(t, http.MethodPost, "/admin/staff", map[string]string{"other": "x"}))
	h.Create(c)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, appErrors.ErrValidation.Code, decode(t, rec).Error.Code)
}

func TestTeacherCreateWithAccountPartialSuccess(t *testing.T) {
	svc := &fakeTeacherService{
		result: sampleTeacher(),
		err:    appErrors.Wrap(errors.New("smtp"), appErrors.ErrAccountProvisioning.Code, appErrors.ErrAccountProvisioning.Status, "teacher created but the login account could not be created"),
	}
	h := NewTeacherHandler(svc, &fakeExports{})

	c, rec := testContext(multipartRequest(t, http.MethodPost, "/admin/staff/with-account", map[string]string{"data": `{}`}))
	h.CreateWithAccount(c)

	require.Equal(t, http.StatusCreated, rec.Code)
	env := decode(t, rec)
	assert.True(t, env.Success)
	assert.Contains(t, string(env.Data), "MK-STF-2025-0001")
	warning, ok := env.Meta["warning"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "ACCOUNT_PROVISIONING_FAILED", warning["code"])
}

func TestTeacherCreateDuplicateEmail(t *testing.T) {
	svc := &fakeTeacherService{err: appErrors.Clone(appErrors.ErrDuplicateEmail, "a teacher with this email already exists")}
	h := NewTeacherHandler(svc, &fakeExports{})

	c, rec := testContext(multipartRequest(t, http.MethodPost, "/admin/staff", map[string]string{"data": `{}`}))
	h.Create(c)

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "DUPLICATE_EMAIL", decode(t, rec).Error.Code)
}

func TestTeacherUpdatePartialPayload(t *testing.T) {
	svc := &fakeTeacherService{result: sampleTeacher()}
	h := NewTeacherHandler(svc, &fakeExports{})

	c, rec := testContext(multipartRequest(t, http.MethodPut, "/admin/staff/t-1", map[string]string{"data": `{"employment_status":"RESIGNED"}`}), gin.Param{Key: "id", Value: "t-1"})
	h.Update(c)

	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, svc.lastUpdate.EmploymentStatus)
	assert.Equal(t, models.EmploymentResigned, *svc.lastUpdate.EmploymentStatus)
	assert.Nil(t, svc.lastUpdate.FullName)
}

func TestTeacherPhotoAndMissingFile(t *testing.T) {
	svc := &fakeTeacherService{download: &service.FileDownload{Data: []byte("img"), ContentType: "image/png", Filename: "me.png"}}
	h := NewTeacherHandler(svc, &fakeExports{})

	c, rec := testContext(httptest.NewRequest(http.MethodGet, "/admin/staff/t-1/photo", nil), gin.Param{Key: "id", Value: "t-1"})
	h.Photo(c)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	assert.Equal(t, `inline; filename="me.png"`, rec.Header().Get("Content-Disposition"))

	svc.err = appErrors.Clone(appErrors.ErrFileMissing, "stored file is missing")
	c, rec = testContext(httptest.NewRequest(http.MethodGet, "/admin/staff/t-1/photo", nil), gin.Param{Key: "id", Value: "t-1"})
	h.Photo(c)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "FILE_MISSING", decode(t, rec).Error.Code)
}

func TestTeacherExportFormats(t *testing.T) {
	exports := &fakeExports{}
	h := NewTeacherHandler(&fakeTeacherService{}, exports)

	c, rec := testContext(httptest.NewRequest(http.MethodGet, "/admin/staff/export", nil))
	h.Export(c)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, models.ExportCSV, exports.format)
	assert.Equal(t, `attachment; filename="staff-20250310.csv"`, rec.Header().Get("Content-Disposition"))

	c, rec = testContext(httptest.NewRequest(http.MethodGet, "/admin/staff/export?format=xlsx", nil))
	h.Export(c)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTeacherDeleteReturnsNoContent(t *testing.T) {
	h := NewTeacherHandler(&fakeTeacherService{}, &fakeExports{})
	c, rec := testContext(httptest.NewRequest(http.MethodDelete, "/admin/staff/t-1", nil), gin.Param{Key: "id", Value: "t-1"})
	h.Delete(c)
	c.Writer.WriteHeaderNow()
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

// --- auth ---

type fakeAuthService struct {
	userID string
	err    error
}

func (f *fakeAuthService) Login(ctx context.Context, req models.LoginRequest) (*models.LoginResponse, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &models.LoginResponse{AccessToken: "token", TokenType: "Bearer"}, nil
}

func (f *fakeAuthService) Me(ctx context.Context, userID string) (*models.UserInfo, error) {
	f.userID = userID
	return &models.UserInfo{ID: userID}, f.err
}

func (f *fakeAuthService) ChangePassword(ctx context.Context, userID string, req models.ChangePasswordRequest) (*models.LoginResponse, error) {
	f.userID = userID
	return &models.LoginResponse{AccessToken: "fresh"}, f.err
}

func (f *fakeAuthService) ForgotPassword(ctx context.Context, req models.ForgotPasswordRequest) error {
	return f.err
}

func (f *fakeAuthService) ResetPassword(ctx context.Context, req models.ResetPasswordRequest) error {
	return f.err
}

func TestAuthLoginMapsInvalidCredentials(t *testing.T) {
	h := NewAuthHandler(&fakeAuthService{err: appErrors.ErrInvalidCredentials})
	req := httptest.NewRequest(http.MethodPost, "/auth/login", bytes.NewBufferString(`{"email":"a@b.lk","password":"x"}`))
	req.Header.Set("Content-Type", "application/json")
	c, rec := testContext(req)
	h.Login(c)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthMeUsesClaims(t *testing.T) {
	svc := &fakeAuthService{}
	h := NewAuthHandler(svc)

	c, rec := testContext(httptest.NewRequest(http.MethodGet, "/auth/me", nil))
	h.Me(c)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	c, rec = testContext(httptest.NewRequest(http.MethodGet, "/auth/me", nil))
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "u-1"})
	h.Me(c)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "u-1", svc.userID)
}

func TestAuthForgotPasswordAlwaysAccepted(t *testing.T) {
	h := NewAuthHandler(&fakeAuthService{})
	req := httptest.NewRequest(http.MethodPost, "/auth/forgot-password", bytes.NewBufferString(`{"email":"ghost@merrykids.lk"}`))
	req.Header.Set("Content-Type", "application/json")
	c, rec := testContext(req)
	h.ForgotPassword(c)
	assert.Equal(t, http.StatusAccepted, rec.Code)
}

// --- ops ---

func TestReadyReportsFailingDependency(t *testing.T) {
	h := NewMetricsHandler(nil, map[string]ReadinessCheck{
		"postgres": func(context.Context) error { return nil },
		"redis":    func(context.Context) error { return errors.New("connection refused") },
	})
	c, rec := testContext(httptest.NewRequest(http.MethodGet, "/ready", nil))
	h.Ready(c)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "connection refused")
	assert.Contains(t, rec.Body.String(), `"postgres":"ok"`)
}
