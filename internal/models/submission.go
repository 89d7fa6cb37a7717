package models

import "time"

// SubmissionStatus tracks an application through review.
type SubmissionStatus string

const (
	SubmissionReceived               SubmissionStatus = "RECEIVED"
	SubmissionUnderReview            SubmissionStatus = "UNDER_REVIEW"
	SubmissionInterviewRequested     SubmissionStatus = "INTERVIEW_REQUESTED"
	SubmissionInterviewScheduled     SubmissionStatus = "INTERVIEW_SCHEDULED"
	SubmissionOnHold                 SubmissionStatus = "ON_HOLD"
	SubmissionAccepted               SubmissionStatus = "ACCEPTED"
	SubmissionRejectedAfterReview    SubmissionStatus = "REJECTED_AFTER_REVIEW"
	SubmissionRejectedAfterInterview SubmissionStatus = "REJECTED_AFTER_INTERVIEW"
)

// Valid reports whether s is a known workflow status.
func (s SubmissionStatus) Valid() bool {
	switch s {
	case SubmissionReceived, SubmissionUnderReview, SubmissionInterviewRequested, SubmissionInterviewScheduled,
		SubmissionOnHold, SubmissionAccepted, SubmissionRejectedAfterReview, SubmissionRejectedAfterInterview:
		return true
	}
	return false
}

// Submission is an admission application from a guardian.
type Submission struct {
	ID                       string           `db:"id" json:"id"`
	ReferenceNo              string           `db:"reference_no" json:"reference_no"`
	ChildFullName            string           `db:"child_full_name" json:"child_full_name"`
	DateOfBirth              Date             `db:"date_of_birth" json:"date_of_birth"`
	LevelApplyingFor         Level            `db:"level_applying_for" json:"level_applying_for"`
	GuardianFullName         string           `db:"guardian_full_name" json:"guardian_full_name"`
	Email                    string           `db:"email" json:"email"`
	Phone                    string           `db:"phone" json:"phone"`
	Address                  string           `db:"address" json:"address"`
	SubmittedPDFOriginalName string           `db:"submitted_pdf_original_name" json:"submitted_pdf_original_name"`
	SubmittedPDFStoredName   string           `db:"submitted_pdf_stored_name" json:"-"`
	SubmittedPDFPath         string           `db:"submitted_pdf_path" json:"-"`
	Status                   SubmissionStatus `db:"status" json:"status"`
	AdminNote                *string          `db:"admin_note" json:"admin_note,omitempty"`
	CreatedAt                time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt                time.Time        `db:"updated_at" json:"updated_at"`
}

// SubmissionFilter captures filtering options for listing submissions.
type SubmissionFilter struct {
	Search   string
	Status   *SubmissionStatus
	Level    *Level
	Page     int
	PageSize int
}

// SubmitApplicationRequest is the public admission form.
type SubmitApplicationRequest struct {
	ChildFullName    string `json:"child_full_name" form:"child_full_name" validate:"required,max=150"`
	DateOfBirth      Date   `json:"date_of_birth" form:"-"`
	LevelApplyingFor Level  `json:"level_applying_for" form:"level_applying_for" validate:"required,oneof=LKG1 UKG1 UKG2"`
	GuardianFullName string `json:"guardian_full_name" form:"guardian_full_name" validate:"required,max=150"`
	Email            string `json:"email" form:"email" validate:"required,email,max=255"`
	Phone            string `json:"phone" form:"phone" validate:"required,max=30"`
	Address          string `json:"address" form:"address" validate:"required,max=500"`
}

// SubmitApplicationResponse acknowledges a submission.
type SubmitApplicationResponse struct {
	ReferenceNo string `json:"reference_no"`
	Message     string `json:"message"`
}

// UpdateSubmissionStatusRequest changes workflow status.
type UpdateSubmissionStatusRequest struct {
	Status SubmissionStatus `json:"status" validate:"required,oneof=RECEIVED UNDER_REVIEW INTERVIEW_REQUESTED INTERVIEW_SCHEDULED ON_HOLD ACCEPTED REJECTED_AFTER_REVIEW REJECTED_AFTER_INTERVIEW"`
}

// UpdateSubmissionNoteRequest overwrites the admin note.
type UpdateSubmissionNoteRequest struct {
	Note string `json:"note" validate:"max=5000"`
}
