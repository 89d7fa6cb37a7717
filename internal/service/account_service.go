package service

import (
	"context"
	"crypto/rand"
	"database/sql"
	"errors"
	"math/big"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/merrykids-api/internal/models"
	"github.com/noah-isme/merrykids-api/internal/repository"
	"github.com/noah-isme/merrykids-api/pkg/database"
	appErrors "github.com/noah-isme/merrykids-api/pkg/errors"
)

const (
	tempPasswordLength = 12
	upperChars         = "ABCDEFGHJKLMNPQRSTUVWXYZ"
	lowerChars         = "abcdefghijkmnpqrstuvwxyz"
	digitChars         = "23456789"
	specialChars       = "!@#$%&*"
)

type accountUserRepository interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	EmailTakenByOther(ctx context.Context, email, excludeID string) (bool, error)
	Create(ctx context.Context, user *models.User) error
	SetActive(ctx context.Context, id string, active bool) error
	Reactivate(ctx context.Context, id, passwordHash string) error
	UpdateEmail(ctx context.Context, id, email string) error
}

type welcomeNotifier interface {
	SendWelcome(ctx context.Context, email, tempPassword string, role models.UserRole)
}

type transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// AccountService provisions and manages login accounts linked to records.
type AccountService struct {
	repo      accountUserRepository
	tx        transactor
	notifier  welcomeNotifier
	validator *validator.Validate
	logger    *zap.Logger
}

// NewAccountService constructs an AccountService.
func NewAccountService(repo accountUserRepository, tx transactor, notifier welcomeNotifier, validate *validator.Validate, logger *zap.Logger) *AccountService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AccountService{repo: repo, tx: tx, notifier: notifier, validator: validate, logger: logger}
}

// CreateUser provisions a non-admin account on behalf of an administrator.
func (s *AccountService) CreateUser(ctx context.Context, req models.CreateUserRequest) (*models.AccountRef, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid user payload")
	}
	role, _ := models.ParseUserRole(req.Role)

	var ref *models.AccountRef
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		ref, err = s.ProvisionAccount(ctx, req.Email, role)
		return err
	})
	if err != nil {
		return nil, err
	}
	return ref, nil
}

// ProvisionAccount creates an account for email or reactivates a disabled one
// with the same role. The welcome email is sent after the surrounding
// transaction commits.
func (s *AccountService) ProvisionAccount(ctx context.Context, email string, role models.UserRole) (*models.AccountRef, error) {
	if role == models.RoleAdmin {
		return nil, appErrors.Clone(appErrors.ErrInvalidArgument, "admin accounts cannot be provisioned")
	}
	email = strings.TrimSpace(email)

	existing, err := s.repo.FindByEmail(ctx, email)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to look up account")
	}
	if existing != nil && (existing.Active || existing.Role != role) {
		return nil, appErrors.Clone(appErrors.ErrDuplicateEmail, "an account with this email already exists")
	}

	tempPassword, err := GenerateTempPassword()
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to generate password")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(tempPassword), bcrypt.DefaultCost)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password")
	}

	ref := &models.AccountRef{Email: email, Role: role}
	if existing != nil {
		if err := s.repo.Reactivate(ctx, existing.ID, string(hash)); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reactivate account")
		}
		ref.UserID = existing.ID
		ref.Email = existing.Email
		s.logger.Info("account reactivated", zap.String("user_id", existing.ID), zap.String("role", string(role)))
	} else {
		user := &models.User{
			Email:              email,
			PasswordHash:       string(hash),
			Role:               role,
			Active:             true,
			MustChangePassword: true,
		}
		if err := s.repo.Create(ctx, user); err != nil {
			if database.IsUniqueViolation(err, repository.UserEmailConstraint) {
				return nil, appErrors.Clone(appErrors.ErrDuplicateEmail, "an account with this email already exists")
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create account")
		}
		ref.UserID = user.ID
		ref.Created = true
		s.logger.Info("account created", zap.String("user_id", user.ID), zap.String("role", string(role)))
	}

	if s.notifier != nil {
		to := ref.Email
		database.AfterCommit(ctx, func(ctx context.Context) {
			s.notifier.SendWelcome(ctx, to, tempPassword, role)
		})
	}
	return ref, nil
}

// Disable deactivates an account. A missing account is treated as already disabled.
func (s *AccountService) Disable(ctx context.Context, userID string) error {
	if err := s.repo.SetActive(ctx, userID, false); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			s.logger.Warn("linked account not found while disabling", zap.String("user_id", userID))
			return nil
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to disable account")
	}
	return nil
}

// EmailTakenByOther reports whether an account other than userID uses email.
func (s *AccountService) EmailTakenByOther(ctx context.Context, email, userID string) (bool, error) {
	taken, err := s.repo.EmailTakenByOther(ctx, strings.TrimSpace(email), userID)
	if err != nil {
		return false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check account email")
	}
	return taken, nil
}

// UpdateEmail moves an account to a new login email.
func (s *AccountService) UpdateEmail(ctx context.Context, userID, email string) error {
	taken, err := s.EmailTakenByOther(ctx, email, userID)
	if err != nil {
		return err
	}
	if taken {
		return appErrors.Clone(appErrors.ErrDuplicateEmail, "email already used by another account")
	}
	if err := s.repo.UpdateEmail(ctx, userID, strings.TrimSpace(email)); err != nil {
		if database.IsUniqueViolation(err, repository.UserEmailConstraint) {
			return appErrors.Clone(appErrors.ErrDuplicateEmail, "email already used by another account")
		}
		if errors.Is(err, sql.ErrNoRows) {
			s.logger.Warn("linked account not found while updating email", zap.String("user_id", userID))
			return nil
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update account email")
	}
	return nil
}

// EnsureAdmin seeds an administrator when no account owns email yet.
func (s *AccountService) EnsureAdmin(ctx context.Context, email, password string) error {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil
	}
	if _, err := s.repo.FindByEmail(ctx, email); err == nil {
		return nil
	} else if !errors.Is(err, sql.ErrNoRows) {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to look up admin")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password")
	}
	admin := &models.User{Email: email, PasswordHash: string(hash), Role: models.RoleAdmin, Active: true}
	if err := s.repo.Create(ctx, admin); err != nil {
		if database.IsUniqueViolation(err, repository.UserEmailConstraint) {
			return nil
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create admin")
	}
	s.logger.Info("bootstrap admin created", zap.String("email", email))
	return nil
}

// GenerateTempPassword returns a random password containing at least one
// upper-case letter, lower-case letter, digit and special character.
func GenerateTempPassword() (string, error) {
	all := upperChars + lowerChars + digitChars + specialChars
	buf := make([]byte, 0, tempPasswordLength)
	for _, set := range []string{upperChars, lowerChars, digitChars, specialChars} {
		c, err := randomChar(set)
		if err != nil {
			return "", err
		}
		buf = append(buf, c)
	}
	for len(buf) < tempPasswordLength {
		c, err := randomChar(all)
		if err != nil {
			return "", err
		}
		buf = append(buf, c)
	}
	for i := len(buf) - 1; i > 0; i-- {
		j, err := rand.Int(rand.Reader, big.NewInt(int64(i+1)))
		if err != nil {
			return "", err
		}
		buf[i], buf[j.Int64()] = buf[j.Int64()], buf[i]
	}
	return string(buf), nil
}

func randomChar(set string) (byte, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(int64(len(set))))
	if err != nil {
		return 0, err
	}
	return set[n.Int64()], nil
}
