package handler

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/merrykids-api/internal/models"
)

type tokenTable map[string]*models.JWTClaims

func (t tokenTable) ValidateToken(token string) (*models.JWTClaims, error) {
	if c, ok := t[token]; ok {
		return c, nil
	}
	return nil, assert.AnError
}

func TestRoutesEnforceAccess(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	RegisterRoutes(router.Group("/api/v1"), Handlers{
		Auth:       NewAuthHandler(&fakeAuthService{}),
		Users:      NewUserHandler(nil),
		Teachers:   NewTeacherHandler(&fakeTeacherService{result: sampleTeacher()}, &fakeExports{}),
		Admissions: NewAdmissionHandler(&fakeAnnouncementService{}, &fakeSubmissionService{}, &fakeExports{}),
	}, tokenTable{
		"admin":   {UserID: "a", Role: models.RoleAdmin},
		"temp":    {UserID: "b", Role: models.RoleAdmin, MustChangePassword: true},
		"teacher": {UserID: "c", Role: models.RoleTeacher},
	})

	cases := []struct {
		path   string
		token  string
		status int
	}{
		{"/api/v1/public/admissions/announcement", "", http.StatusOK},
		{"/api/v1/admin/staff", "", http.StatusUnauthorized},
		{"/api/v1/admin/staff", "teacher", http.StatusForbidden},
		{"/api/v1/admin/staff", "temp", http.StatusForbidden},
		{"/api/v1/admin/staff", "admin", http.StatusOK},
		{"/api/v1/auth/me", "temp", http.StatusOK},
		{"/api/v1/auth/me", "", http.StatusUnauthorized},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodGet, tc.path, nil)
		if tc.token != "" {
			req.Header.Set("Authorization", "Bearer "+tc.token)
		}
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		assert.Equal(t, tc.status, rec.Code, "%s as %q", tc.path, tc.token)
	}
}
