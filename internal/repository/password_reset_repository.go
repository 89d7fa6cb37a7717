package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/merrykids-api/internal/models"
	"github.com/noah-isme/merrykids-api/pkg/database"
)

// PasswordResetRepository stores hashed reset tokens.
type PasswordResetRepository struct {
	db *sqlx.DB
}

// NewPasswordResetRepository constructs a PasswordResetRepository.
func NewPasswordResetRepository(db *sqlx.DB) *PasswordResetRepository {
	return &PasswordResetRepository{db: db}
}

// Create stores a token, invalidating any unused tokens for the same user.
func (r *PasswordResetRepository) Create(ctx context.Context, token *models.PasswordResetToken) error {
	if token.ID == "" {
		token.ID = uuid.NewString()
	}
	if token.CreatedAt.IsZero() {
		token.CreatedAt = time.Now().UTC()
	}
	conn := database.Conn(ctx, r.db)
	if _, err := conn.ExecContext(ctx, `UPDATE password_reset_tokens SET used_at = $2 WHERE user_id = $1 AND used_at IS NULL`, token.UserID, token.CreatedAt); err != nil {
		return fmt.Errorf("expire reset tokens: %w", err)
	}
	const query = `INSERT INTO password_reset_tokens (id, user_id, token_hash, expires_at, created_at)
		VALUES (:id, :user_id, :token_hash, :expires_at, :created_at)`
	if _, err := sqlx.NamedExecContext(ctx, conn, query, token); err != nil {
		return fmt.Errorf("create reset token: %w", err)
	}
	return nil
}

// FindByHash returns the token with the given hash, locking it inside a transaction.
func (r *PasswordResetRepository) FindByHash(ctx context.Context, hash string) (*models.PasswordResetToken, error) {
	query := `SELECT id, user_id, token_hash, expires_at, used_at, created_at FROM password_reset_tokens WHERE token_hash = $1`
	if _, ok := database.TxFrom(ctx); ok {
		query += " FOR UPDATE"
	}
	var token models.PasswordResetToken
	if err := sqlx.GetContext(ctx, database.Conn(ctx, r.db), &token, query, hash); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find reset token: %w", err)
	}
	return &token, nil
}

// MarkUsed consumes a token.
func (r *PasswordResetRepository) MarkUsed(ctx context.Context, id string, usedAt time.Time) error {
	const query = `UPDATE password_reset_tokens SET used_at = $2 WHERE id = $1 AND used_at IS NULL`
	res, err := database.Conn(ctx, r.db).ExecContext(ctx, query, id, usedAt)
	if err != nil {
		return fmt.Errorf("mark reset token used: %w", err)
	}
	return expectAffected(res, "mark reset token used")
}
