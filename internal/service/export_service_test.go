package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/merrykids-api/internal/models"
	appErrors "github.com/noah-isme/merrykids-api/pkg/errors"
)

type pagedStaff struct {
	records []models.TeacherRecord
	pages   []int
	err     error
}

func (p *pagedStaff) List(ctx context.Context, filter models.TeacherFilter) ([]models.TeacherRecord, int, error) {
	if p.err != nil {
		return nil, 0, p.err
	}
	p.pages = append(p.pages, filter.Page)
	start := (filter.Page - 1) * filter.PageSize
	if start >= len(p.records) {
		return nil, len(p.records), nil
	}
	end := start + filter.PageSize
	if end > len(p.records) {
		end = len(p.records)
	}
	return p.records[start:end], len(p.records), nil
}

type staticSubmissions []models.Submission

func (s staticSubmissions) List(ctx context.Context, filter models.SubmissionFilter) ([]models.Submission, int, error) {
	return s, len(s), nil
}

func staffRecords(n int) []models.TeacherRecord {
	active := true
	userID := "user-1"
	out := make([]models.TeacherRecord, n)
	for i := range out {
		out[i] = models.TeacherRecord{Teacher: models.Teacher{
			EmploymentID:     fmt.Sprintf("MK-STF-2025-%04d", i+1),
			FullName:         fmt.Sprintf("Staff %d", i+1),
			Email:            fmt.Sprintf("staff%d@merrykids.lk", i+1),
			LevelAssigned:    "LKG1",
			Designation:      models.DesignationTeacher,
			EmploymentStatus: models.EmploymentActive,
			DateOfJoining:    models.NewDate(2024, 1, 15),
		}}
	}
	out[0].UserID = &userID
	out[0].AccountActive = &active
	return out
}

func TestExportStaffWalksEveryPage(t *testing.T) {
	staff := &pagedStaff{records: staffRecords(250)}
	svc := NewExportService(staff, staticSubmissions{}, fixedCalendar(), nil)

	file, err := svc.Staff(context.Background(), models.TeacherFilter{Search: "staff"}, models.ExportCSV)
	require.NoError(t, err)

	assert.Equal(t, []int{1, 2, 3}, staff.pages)
	assert.Equal(t, "staff-20250310.csv", file.Filename)
	assert.Equal(t, "text/csv; charset=utf-8", file.ContentType)

	lines := strings.Split(strings.TrimSpace(string(file.Data)), "\n")
	require.Len(t, lines, 251)
	assert.True(t, strings.HasPrefix(lines[0], "Employment ID,Full name,Email"))
	assert.Equal(t, "MK-STF-2025-0001,Staff 1,staff1@merrykids.lk,,LKG1,TEACHER,ACTIVE,2024-01-15,ACTIVE", lines[1])
	assert.True(t, strings.HasSuffix(lines[2], ",NO_ACCOUNT"))
}

func TestExportSubmissionsAsPDF(t *testing.T) {
	subs := staticSubmissions{{ReferenceNo: "MK-ADM-2025-000001", ChildFullName: "Amaya", Status: models.SubmissionReceived}}
	svc := NewExportService(&pagedStaff{}, subs, fixedCalendar(), nil)

	file, err := svc.Submissions(context.Background(), models.SubmissionFilter{}, models.ExportPDF)
	require.NoError(t, err)
	assert.Equal(t, "admission-submissions-20250310.pdf", file.Filename)
	assert.Equal(t, "application/pdf", file.ContentType)
	assert.True(t, bytes.HasPrefix(file.Data, []byte("%PDF-")))
}

func TestExportErrors(t *testing.T) {
	svc := NewExportService(&pagedStaff{err: errors.New("db down")}, staticSubmissions{}, fixedCalendar(), nil)

	_, err := svc.Staff(context.Background(), models.TeacherFilter{}, models.ExportCSV)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrInternal.Code))

	_, err = svc.Submissions(context.Background(), models.SubmissionFilter{}, models.ExportFormat("xlsx"))
	assert.True(t, appErrors.HasCode(err, appErrors.ErrInvalidArgument.Code))
}
