package models

import "time"

// Announcement is the admissions notice defining the open window.
type Announcement struct {
	ID              string    `db:"id" json:"id"`
	Message         string    `db:"message" json:"message"`
	OpenDate        Date      `db:"open_date" json:"open_date"`
	CloseDate       Date      `db:"close_date" json:"close_date"`
	PDFOriginalName *string   `db:"application_pdf_original_name" json:"-"`
	PDFStoredName   *string   `db:"application_pdf_stored_name" json:"-"`
	PDFPath         *string   `db:"application_pdf_path" json:"-"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time `db:"updated_at" json:"updated_at"`
}

// IsOpenOn reports whether day falls inside the inclusive window.
func (a *Announcement) IsOpenOn(day Date) bool {
	if a == nil {
		return false
	}
	return !day.Before(a.OpenDate) && !day.After(a.CloseDate)
}

// HasPDF reports whether an application form is attached.
func (a *Announcement) HasPDF() bool {
	return a != nil && a.PDFPath != nil && *a.PDFPath != ""
}

// SetPDF records stored application form metadata.
func (a *Announcement) SetPDF(f *StoredFile) {
	if f == nil {
		return
	}
	a.PDFOriginalName = &f.OriginalName
	a.PDFStoredName = &f.StoredName
	a.PDFPath = &f.Path
}

// AnnouncementResponse is the outward view with derived flags.
type AnnouncementResponse struct {
	ID              string    `json:"id"`
	Message         string    `json:"message"`
	OpenDate        Date      `json:"open_date"`
	CloseDate       Date      `json:"close_date"`
	IsOpen          bool      `json:"is_open"`
	HasPDF          bool      `json:"has_pdf"`
	PDFOriginalName *string   `json:"pdf_original_name,omitempty"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// NewAnnouncementResponse derives flags for today.
func NewAnnouncementResponse(a *Announcement, today Date) *AnnouncementResponse {
	if a == nil {
		return nil
	}
	return &AnnouncementResponse{
		ID:              a.ID,
		Message:         a.Message,
		OpenDate:        a.OpenDate,
		CloseDate:       a.CloseDate,
		IsOpen:          a.IsOpenOn(today),
		HasPDF:          a.HasPDF(),
		PDFOriginalName: a.PDFOriginalName,
		UpdatedAt:       a.UpdatedAt,
	}
}

// UpsertAnnouncementRequest creates or replaces the current announcement.
type UpsertAnnouncementRequest struct {
	Message   string `json:"message" validate:"required,max=5000"`
	OpenDate  Date   `json:"open_date"`
	CloseDate Date   `json:"close_date"`
}
