package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/merrykids-api/internal/models"
	appErrors "github.com/noah-isme/merrykids-api/pkg/errors"
)

func newAccountFixture(users ...*models.User) (*AccountService, *memoryUserRepo, *recordingNotifier) {
	repo := newMemoryUserRepo(users...)
	notifier := &recordingNotifier{}
	return NewAccountService(repo, &passthroughTx{}, notifier, nil, nil), repo, notifier
}

func TestCreateUserProvisionsWithTemporaryPassword(t *testing.T) {
	svc, repo, notifier := newAccountFixture()

	ref, err := svc.CreateUser(context.Background(), models.CreateUserRequest{Email: "parent@merrykids.lk", Role: "PARENT"})
	require.NoError(t, err)
	assert.True(t, ref.Created)
	assert.Equal(t, models.RoleParent, ref.Role)

	stored := repo.users[ref.UserID]
	require.NotNil(t, stored)
	assert.True(t, stored.Active)
	assert.True(t, stored.MustChangePassword)

	require.Len(t, notifier.welcomes, 1)
	parts := strings.Split(notifier.welcomes[0], "|")
	require.Len(t, parts, 3)
	assert.Equal(t, "parent@merrykids.lk", parts[0])
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte(parts[1])))
	assert.Equal(t, "PARENT", parts[2])
}

func TestCreateUserRejectsAdminRole(t *testing.T) {
	svc, _, _ := newAccountFixture()

	_, err := svc.CreateUser(context.Background(), models.CreateUserRequest{Email: "boss@merrykids.lk", Role: "ADMIN"})
	assert.True(t, appErrors.HasCode(err, appErrors.ErrValidation.Code))

	_, err = svc.ProvisionAccount(context.Background(), "boss@merrykids.lk", models.RoleAdmin)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrInvalidArgument.Code))
}

func TestProvisionAccountDuplicates(t *testing.T) {
	svc, _, notifier := newAccountFixture(
		&models.User{ID: "u1", Email: "active@merrykids.lk", Role: models.RoleTeacher, Active: true},
		&models.User{ID: "u2", Email: "parent@merrykids.lk", Role: models.RoleParent, Active: false},
	)

	_, err := svc.ProvisionAccount(context.Background(), "ACTIVE@merrykids.lk", models.RoleTeacher)
	assert.True(t, errors.Is(err, appErrors.ErrDuplicateEmail))

	_, err = svc.ProvisionAccount(context.Background(), "parent@merrykids.lk", models.RoleTeacher)
	assert.True(t, errors.Is(err, appErrors.ErrDuplicateEmail), "disabled account with another role is not reused")
	assert.Empty(t, notifier.welcomes)
}

func TestProvisionAccountReactivatesDisabledAccount(t *testing.T) {
	svc, repo, notifier := newAccountFixture(&models.User{ID: "u1", Email: "t@merrykids.lk", PasswordHash: "old", Role: models.RoleTeacher, Active: false})

	ref, err := svc.ProvisionAccount(context.Background(), "t@merrykids.lk", models.RoleTeacher)
	require.NoError(t, err)
	assert.False(t, ref.Created)
	assert.Equal(t, "u1", ref.UserID)
	assert.True(t, repo.users["u1"].Active)
	assert.True(t, repo.users["u1"].MustChangePassword)
	assert.NotEqual(t, "old", repo.users["u1"].PasswordHash)
	assert.Len(t, notifier.welcomes, 1)
}

func TestDisableAndEmailChanges(t *testing.T) {
	svc, repo, _ := newAccountFixture(
		&models.User{ID: "u1", Email: "a@merrykids.lk", Role: models.RoleTeacher, Active: true},
		&models.User{ID: "u2", Email: "b@merrykids.lk", Role: models.RoleTeacher, Active: true},
	)
	ctx := context.Background()

	require.NoError(t, svc.Disable(ctx, "u1"))
	assert.False(t, repo.users["u1"].Active)
	assert.NoError(t, svc.Disable(ctx, "missing"))

	err := svc.UpdateEmail(ctx, "u1", "B@merrykids.lk")
	assert.True(t, errors.Is(err, appErrors.ErrDuplicateEmail))

	require.NoError(t, svc.UpdateEmail(ctx, "u1", " c@merrykids.lk "))
	assert.Equal(t, "c@merrykids.lk", repo.users["u1"].Email)
	assert.NoError(t, svc.UpdateEmail(ctx, "missing", "d@merrykids.lk"))
}

func TestEnsureAdmin(t *testing.T) {
	svc, repo, _ := newAccountFixture()
	ctx := context.Background()

	require.NoError(t, svc.EnsureAdmin(ctx, "", "secret"))
	assert.Empty(t, repo.users)

	require.NoError(t, svc.EnsureAdmin(ctx, "admin@merrykids.lk", "Admin#2025"))
	require.Len(t, repo.users, 1)
	for _, u := range repo.users {
		assert.Equal(t, models.RoleAdmin, u.Role)
		assert.False(t, u.MustChangePassword)
	}

	require.NoError(t, svc.EnsureAdmin(ctx, "admin@merrykids.lk", "Different#1"))
	assert.Len(t, repo.users, 1)
}

func TestGenerateTempPasswordComposition(t *testing.T) {
	seen := make(map[string]struct{})
	for i := 0; i < 50; i++ {
		pw, err := GenerateTempPassword()
		require.NoError(t, err)
		assert.Len(t, pw, 12)
		assert.True(t, strings.ContainsAny(pw, upperChars), pw)
		assert.True(t, strings.ContainsAny(pw, lowerChars), pw)
		assert.True(t, strings.ContainsAny(pw, digitChars), pw)
		assert.True(t, strings.ContainsAny(pw, specialChars), pw)
		seen[pw] = struct{}{}
	}
	assert.Greater(t, len(seen), 45)
}
