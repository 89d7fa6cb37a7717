package models

import "time"

// EmploymentStatus is the HR state of a staff member.
type EmploymentStatus string

const (
	EmploymentActive     EmploymentStatus = "ACTIVE"
	EmploymentResigned   EmploymentStatus = "RESIGNED"
	EmploymentRetired    EmploymentStatus = "RETIRED"
	EmploymentTerminated EmploymentStatus = "TERMINATED"
)

// EmploymentRule declares how a status interacts with the linked login account.
type EmploymentRule struct {
	RevokesAccount bool
	AllowsAccount  bool
}

// EmploymentRules is evaluated once per mutation. Every status must appear here.
var EmploymentRules = map[EmploymentStatus]EmploymentRule{
	EmploymentActive:     {RevokesAccount: false, AllowsAccount: true},
	EmploymentResigned:   {RevokesAccount: true, AllowsAccount: false},
	EmploymentRetired:    {RevokesAccount: true, AllowsAccount: false},
	EmploymentTerminated: {RevokesAccount: true, AllowsAccount: false},
}

// Rule returns the declared rule; unknown statuses are treated as terminal.
func (s EmploymentStatus) Rule() EmploymentRule {
	if rule, ok := EmploymentRules[s]; ok {
		return rule
	}
	return EmploymentRule{RevokesAccount: true}
}

// Designation is a staff role title.
type Designation string

const (
	DesignationAssistantTeacher Designation = "ASSISTANT_TEACHER"
	DesignationTeacher          Designation = "TEACHER"
	DesignationSeniorTeacher    Designation = "SENIOR_TEACHER"
	DesignationPrincipal        Designation = "PRINCIPAL"
)

// Valid reports whether d is a known designation.
func (d Designation) Valid() bool {
	switch d {
	case DesignationAssistantTeacher, DesignationTeacher, DesignationSeniorTeacher, DesignationPrincipal:
		return true
	}
	return false
}

// MaritalStatus is optional personal data.
type MaritalStatus string

const (
	MaritalSingle   MaritalStatus = "SINGLE"
	MaritalMarried  MaritalStatus = "MARRIED"
	MaritalDivorced MaritalStatus = "DIVORCED"
	MaritalWidowed  MaritalStatus = "WIDOWED"
)

// AccountStatus is derived from the linked account, never stored.
type AccountStatus string

const (
	AccountNone     AccountStatus = "NO_ACCOUNT"
	AccountActive   AccountStatus = "ACTIVE"
	AccountDisabled AccountStatus = "DISABLED"
)

// Teacher represents a staff employment record.
type Teacher struct {
	ID                       string           `db:"id" json:"id"`
	EmploymentID             string           `db:"employment_id" json:"employment_id"`
	FullName                 string           `db:"full_name" json:"full_name"`
	DateOfBirth              Date             `db:"date_of_birth" json:"date_of_birth"`
	Email                    string           `db:"email" json:"email"`
	PhoneNumber              string           `db:"phone_number" json:"phone_number"`
	PermanentAddress         string           `db:"permanent_address" json:"permanent_address"`
	CurrentAddress           string           `db:"current_address" json:"current_address"`
	EmergencyContactName     string           `db:"emergency_contact_name" json:"emergency_contact_name"`
	EmergencyContactNumber   string           `db:"emergency_contact_number" json:"emergency_contact_number"`
	MaritalStatus            *MaritalStatus   `db:"marital_status" json:"marital_status,omitempty"`
	DateOfJoining            Date             `db:"date_of_joining" json:"date_of_joining"`
	LevelAssigned            Level            `db:"level_assigned" json:"level_assigned"`
	Designation              Designation      `db:"designation" json:"designation"`
	EmploymentStatus         EmploymentStatus `db:"employment_status" json:"employment_status"`
	Notes                    *string          `db:"notes" json:"notes,omitempty"`
	ProfilePhotoOriginalName *string          `db:"profile_photo_original_name" json:"-"`
	ProfilePhotoStoredName   *string          `db:"profile_photo_stored_name" json:"-"`
	ProfilePhotoPath         *string          `db:"profile_photo_path" json:"-"`
	UserID                   *string          `db:"user_id" json:"user_id,omitempty"`
	IsDeleted                bool             `db:"is_deleted" json:"-"`
	CreatedAt                time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt                time.Time        `db:"updated_at" json:"updated_at"`
}

// SetPhoto records stored photo metadata.
func (t *Teacher) SetPhoto(f *StoredFile) {
	if f == nil {
		return
	}
	t.ProfilePhotoOriginalName = &f.OriginalName
	t.ProfilePhotoStoredName = &f.StoredName
	t.ProfilePhotoPath = &f.Path
}

// HasPhoto reports whether a photo is on record.
func (t *Teacher) HasPhoto() bool {
	return t.ProfilePhotoPath != nil && *t.ProfilePhotoPath != ""
}

// TeacherRecord is a teacher row joined with its linked account.
type TeacherRecord struct {
	Teacher
	AccountActive *bool   `db:"account_active"`
	AccountEmail  *string `db:"account_email"`
}

// AccountStatus derives NO_ACCOUNT, ACTIVE or DISABLED.
func (r *TeacherRecord) AccountStatus() AccountStatus {
	if r.UserID == nil || r.AccountActive == nil {
		return AccountNone
	}
	if *r.AccountActive {
		return AccountActive
	}
	return AccountDisabled
}

// TeacherFilter captures filtering options for listing teachers.
type TeacherFilter struct {
	Search      string
	Status      *EmploymentStatus
	Level       *Level
	Designation *Designation
	Page        int
	PageSize    int
}

// TeacherResponse is the outward view of a teacher.
type TeacherResponse struct {
	Teacher
	AccountStatus AccountStatus `json:"account_status"`
	AccountEmail  *string       `json:"account_email,omitempty"`
	HasPhoto      bool          `json:"has_photo"`
}

// NewTeacherResponse builds the outward view from a joined record.
func NewTeacherResponse(r *TeacherRecord) *TeacherResponse {
	if r == nil {
		return nil
	}
	return &TeacherResponse{
		Teacher:       r.Teacher,
		AccountStatus: r.AccountStatus(),
		AccountEmail:  r.AccountEmail,
		HasPhoto:      r.HasPhoto(),
	}
}

// CreateTeacherRequest represents payload for creating teachers.
type CreateTeacherRequest struct {
	FullName               string            `json:"full_name" validate:"required,max=150"`
	DateOfBirth            Date              `json:"date_of_birth"`
	Email                  string            `json:"email" validate:"required,email,max=255"`
	PhoneNumber            string            `json:"phone_number" validate:"required,max=30"`
	PermanentAddress       string            `json:"permanent_address" validate:"required,max=500"`
	CurrentAddress         string            `json:"current_address" validate:"required,max=500"`
	EmergencyContactName   string            `json:"emergency_contact_name" validate:"required,max=150"`
	EmergencyContactNumber string            `json:"emergency_contact_number" validate:"required,max=30"`
	MaritalStatus          *MaritalStatus    `json:"marital_status" validate:"omitempty,oneof=SINGLE MARRIED DIVORCED WIDOWED"`
	DateOfJoining          Date              `json:"date_of_joining"`
	LevelAssigned          Level             `json:"level_assigned" validate:"required,oneof=LKG1 UKG1 UKG2"`
	Designation            Designation       `json:"designation" validate:"required,oneof=ASSISTANT_TEACHER TEACHER SENIOR_TEACHER PRINCIPAL"`
	EmploymentStatus       *EmploymentStatus `json:"employment_status" validate:"omitempty,oneof=ACTIVE RESIGNED RETIRED TERMINATED"`
	Notes                  *string           `json:"notes" validate:"omitempty,max=2000"`
}

// UpdateTeacherRequest is a partial update; nil fields are left unchanged.
type UpdateTeacherRequest struct {
	FullName               *string           `json:"full_name" validate:"omitempty,min=1,max=150"`
	DateOfBirth            *Date             `json:"date_of_birth"`
	Email                  *string           `json:"email" validate:"omitempty,email,max=255"`
	PhoneNumber            *string           `json:"phone_number" validate:"omitempty,min=1,max=30"`
	PermanentAddress       *string           `json:"permanent_address" validate:"omitempty,min=1,max=500"`
	CurrentAddress         *string           `json:"current_address" validate:"omitempty,min=1,max=500"`
	EmergencyContactName   *string           `json:"emergency_contact_name" validate:"omitempty,min=1,max=150"`
	EmergencyContactNumber *string           `json:"emergency_contact_number" validate:"omitempty,min=1,max=30"`
	MaritalStatus          *MaritalStatus    `json:"marital_status" validate:"omitempty,oneof=SINGLE MARRIED DIVORCED WIDOWED"`
	DateOfJoining          *Date             `json:"date_of_joining"`
	LevelAssigned          *Level            `json:"level_assigned" validate:"omitempty,oneof=LKG1 UKG1 UKG2"`
	Designation            *Designation      `json:"designation" validate:"omitempty,oneof=ASSISTANT_TEACHER TEACHER SENIOR_TEACHER PRINCIPAL"`
	EmploymentStatus       *EmploymentStatus `json:"employment_status" validate:"omitempty,oneof=ACTIVE RESIGNED RETIRED TERMINATED"`
	Notes                  *string           `json:"notes" validate:"omitempty,max=2000"`
}
