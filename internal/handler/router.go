package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/merrykids-api/internal/middleware"
	"github.com/noah-isme/merrykids-api/internal/models"
)

// Handlers groups every HTTP handler mounted under the API prefix.
type Handlers struct {
	Auth       *AuthHandler
	Users      *UserHandler
	Teachers   *TeacherHandler
	Admissions *AdmissionHandler
}

// RegisterRoutes mounts public, authenticated and admin routes on api.
func RegisterRoutes(api gin.IRouter, h Handlers, tokens middleware.TokenValidator) {
	auth := api.Group("/auth")
	auth.POST("/login", h.Auth.Login)
	auth.POST("/forgot-password", h.Auth.ForgotPassword)
	auth.POST("/reset-password", h.Auth.ResetPassword)

	// Reachable with a temporary password so the user can replace it.
	authed := auth.Group("", middleware.JWT(tokens))
	authed.GET("/me", h.Auth.Me)
	authed.POST("/change-password", h.Auth.ChangePassword)

	public := api.Group("/public/admissions")
	public.GET("/announcement", h.Admissions.Announcement)
	public.GET("/announcement/pdf", h.Admissions.AnnouncementPDF)
	public.POST("/submissions", h.Admissions.Submit)

	admin := api.Group("/admin",
		middleware.JWT(tokens),
		middleware.RequireRoles(models.RoleAdmin),
		middleware.RequirePasswordChanged(),
	)
	admin.POST("/users", h.Users.Create)

	staff := admin.Group("/staff")
	staff.GET("", h.Teachers.List)
	staff.GET("/export", h.Teachers.Export)
	staff.POST("", h.Teachers.Create)
	staff.POST("/with-account", h.Teachers.CreateWithAccount)
	staff.GET("/:id", h.Teachers.Get)
	staff.GET("/:id/photo", h.Teachers.Photo)
	staff.PUT("/:id", h.Teachers.Update)
	staff.DELETE("/:id", h.Teachers.Delete)
	staff.POST("/:id/account", h.Teachers.CreateAccount)
	staff.DELETE("/:id/account", h.Teachers.RevokeAccount)

	admissions := admin.Group("/admissions")
	admissions.GET("/announcement", h.Admissions.Announcement)
	admissions.POST("/announcement", h.Admissions.UpsertAnnouncement)
	admissions.GET("/submissions", h.Admissions.ListSubmissions)
	admissions.GET("/submissions/export", h.Admissions.ExportSubmissions)
	admissions.GET("/submissions/:id", h.Admissions.GetSubmission)
	admissions.GET("/submissions/:id/pdf", h.Admissions.SubmissionPDF)
	admissions.PUT("/submissions/:id/status", h.Admissions.UpdateStatus)
	admissions.PUT("/submissions/:id/note", h.Admissions.UpdateNote)
}
