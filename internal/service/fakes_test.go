package service

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/lib/pq"

	"github.com/noah-isme/merrykids-api/internal/models"
	"github.com/noah-isme/merrykids-api/internal/repository"
	appErrors "github.com/noah-isme/merrykids-api/pkg/errors"
	"github.com/noah-isme/merrykids-api/pkg/storage"
)

var fixedNow = time.Date(2025, time.March, 10, 9, 30, 0, 0, time.UTC)

func fixedCalendar() Calendar {
	return Calendar{Now: func() time.Time { return fixedNow }, Location: time.UTC}
}

type passthroughTx struct {
	calls int
}

func (p *passthroughTx) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	p.calls++
	return fn(ctx)
}

type fakeTeacherRepo struct {
	mu       sync.Mutex
	items    map[string]*models.Teacher
	accounts *fakeAccounts
	seq      int
	listErr  error
}

func newFakeTeacherRepo(accounts *fakeAccounts) *fakeTeacherRepo {
	return &fakeTeacherRepo{items: make(map[string]*models.Teacher), accounts: accounts}
}

func (r *fakeTeacherRepo) record(t *models.Teacher) *models.TeacherRecord {
	rec := &models.TeacherRecord{Teacher: *t}
	if t.UserID != nil && r.accounts != nil {
		if u, ok := r.accounts.users[*t.UserID]; ok {
			active := u.Active
			email := u.Email
			rec.AccountActive = &active
			rec.AccountEmail = &email
		}
	}
	return rec
}

func (r *fakeTeacherRepo) List(ctx context.Context, filter models.TeacherFilter) ([]models.TeacherRecord, int, error) {
	if r.listErr != nil {
		return nil, 0, r.listErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.TeacherRecord
	for _, t := range r.items {
		if !t.IsDeleted {
			out = append(out, *r.record(t))
		}
	}
	return out, len(out), nil
}

func (r *fakeTeacherRepo) FindByID(ctx context.Context, id string) (*models.TeacherRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.items[id]
	if !ok || t.IsDeleted {
		return nil, sql.ErrNoRows
	}
	return r.record(t), nil
}

func (r *fakeTeacherRepo) ExistsByEmail(ctx context.Context, email, excludeID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, t := range r.items {
		if !t.IsDeleted && id != excludeID && strings.EqualFold(t.Email, email) {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeTeacherRepo) CountByEmploymentPrefix(ctx context.Context, prefix string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, t := range r.items {
		if strings.HasPrefix(t.EmploymentID, prefix) {
			n++
		}
	}
	return n, nil
}

func (r *fakeTeacherRepo) Create(ctx context.Context, teacher *models.Teacher) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range r.items {
		if t.EmploymentID == teacher.EmploymentID {
			return &pq.Error{Code: "23505", Constraint: repository.TeacherEmploymentIDConstraint}
		}
		if !t.IsDeleted && strings.EqualFold(t.Email, teacher.Email) {
			return &pq.Error{Code: "23505", Constraint: repository.TeacherActiveEmailConstraint}
		}
	}
	if teacher.ID == "" {
		r.seq++
		teacher.ID = fmt.Sprintf("teacher-%d", r.seq)
	}
	teacher.CreatedAt = fixedNow
	teacher.UpdatedAt = fixedNow
	cp := *teacher
	r.items[teacher.ID] = &cp
	return nil
}

func (r *fakeTeacherRepo) Update(ctx context.Context, teacher *models.Teacher) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.items[teacher.ID]
	if !ok {
		return fmt.Errorf("update teacher: %w", sql.ErrNoRows)
	}
	cp := *teacher
	cp.EmploymentID = existing.EmploymentID
	r.items[teacher.ID] = &cp
	return nil
}

func (r *fakeTeacherRepo) SetUserID(ctx context.Context, id string, userID *string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.items[id]
	if !ok {
		return fmt.Errorf("set teacher account: %w", sql.ErrNoRows)
	}
	t.UserID = userID
	return nil
}

// fakeAccounts implements accountLinker over an in-memory user table.
type fakeAccounts struct {
	users        map[string]*models.User
	provisionErr error
	disableErr   error
	disabled     []string
	seq          int
}

func newFakeAccounts() *fakeAccounts {
	return &fakeAccounts{users: make(map[string]*models.User)}
}

func (a *fakeAccounts) ProvisionAccount(ctx context.Context, email string, role models.UserRole) (*models.AccountRef, error) {
	if a.provisionErr != nil {
		return nil, a.provisionErr
	}
	for _, u := range a.users {
		if strings.EqualFold(u.Email, email) {
			return nil, appErrors.Clone(appErrors.ErrDuplicateEmail, "an account with this email already exists")
		}
	}
	a.seq++
	id := fmt.Sprintf("user-%d", a.seq)
	a.users[id] = &models.User{ID: id, Email: email, Role: role, Active: true, MustChangePassword: true}
	return &models.AccountRef{UserID: id, Email: email, Role: role, Created: true}, nil
}

func (a *fakeAccounts) Disable(ctx context.Context, userID string) error {
	if a.disableErr != nil {
		return a.disableErr
	}
	if u, ok := a.users[userID]; ok {
		u.Active = false
	}
	a.disabled = append(a.disabled, userID)
	return nil
}

func (a *fakeAccounts) EmailTakenByOther(ctx context.Context, email, userID string) (bool, error) {
	for id, u := range a.users {
		if id != userID && strings.EqualFold(u.Email, email) {
			return true, nil
		}
	}
	return false, nil
}

func (a *fakeAccounts) UpdateEmail(ctx context.Context, userID, email string) error {
	if u, ok := a.users[userID]; ok {
		u.Email = email
	}
	return nil
}

// fakeFiles is an in-memory fileStore.
type fakeFiles struct {
	files   map[string][]byte
	deleted []string
	seq     int
}

func newFakeFiles() *fakeFiles {
	return &fakeFiles{files: make(map[string][]byte)}
}

func (f *fakeFiles) store(upload storage.Upload, category storage.Category, ext string) (*storage.File, error) {
	data, err := io.ReadAll(upload.Reader)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, appErrors.Clone(appErrors.ErrInvalidArgument, "file is empty")
	}
	f.seq++
	stored := fmt.Sprintf("file-%d%s", f.seq, ext)
	path := string(category) + "/" + stored
	f.files[path] = data
	return &storage.File{OriginalName: upload.Filename, StoredName: stored, Path: path}, nil
}

func (f *fakeFiles) StoreImage(upload storage.Upload, category storage.Category) (*storage.File, error) {
	return f.store(upload, category, ".png")
}

func (f *fakeFiles) StorePDF(upload storage.Upload, category storage.Category) (*storage.File, error) {
	return f.store(upload, category, ".pdf")
}

func (f *fakeFiles) Load(path string) ([]byte, error) {
	data, ok := f.files[path]
	if !ok {
		return nil, appErrors.Wrap(fmt.Errorf("open %s: file does not exist", path), appErrors.ErrFileMissing.Code, appErrors.ErrFileMissing.Status, appErrors.ErrFileMissing.Message)
	}
	return data, nil
}

func (f *fakeFiles) Delete(path string) error {
	delete(f.files, path)
	f.deleted = append(f.deleted, path)
	return nil
}

func upload(name, body string) *storage.Upload {
	return &storage.Upload{Filename: name, Reader: strings.NewReader(body)}
}
