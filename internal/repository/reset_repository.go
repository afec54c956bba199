package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/iliyamo/storefront-auth/internal/model"
)

// ResetRepo persists password reset tokens (single 'token_hash' column).
type ResetRepo struct{ DB *sql.DB }

func NewResetRepo(db *sql.DB) *ResetRepo { return &ResetRepo{DB: db} }

// Create inserts a reset token row and fills in its id.
func (r *ResetRepo) Create(ctx context.Context, t *model.PasswordResetToken) error {
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO password_resets (account_id, token_hash, expires_at, created_at) VALUES (?,?,?,?)",
		t.AccountID, t.TokenHash, t.ExpiresAt.UTC(), t.CreatedAt.UTC())
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	t.ID = uint64(id)
	return nil
}

// FindByHash returns the token row for the digest.
func (r *ResetRepo) FindByHash(ctx context.Context, tokenHash string) (model.PasswordResetToken, error) {
	t, err := scanReset(r.DB.QueryRowContext(ctx,
		"SELECT id, account_id, token_hash, expires_at, consumed_at, created_at FROM password_resets WHERE token_hash=? LIMIT 1",
		tokenHash))
	if errors.Is(err, sql.ErrNoRows) {
		return model.PasswordResetToken{}, ErrNotFound
	}
	return t, err
}

// Redeem consumes the token and replaces the owner's password hash in one
// transaction.  The consume is a conditional update on consumed_at IS NULL
// and expires_at >= now, so two concurrent redemptions of the same token
// can never both succeed.
func (r *ResetRepo) Redeem(ctx context.Context, tokenHash string, now time.Time, passwordHash string) (string, error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	t, err := scanReset(tx.QueryRowContext(ctx,
		"SELECT id, account_id, token_hash, expires_at, consumed_at, created_at FROM password_resets WHERE token_hash=? LIMIT 1 FOR UPDATE",
		tokenHash))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrNotFound
		}
		return "", err
	}
	if t.Consumed() {
		return "", ErrTokenConsumed
	}
	if t.ExpiredAt(now) {
		return "", ErrTokenExpired
	}

	res, err := tx.ExecContext(ctx,
		"UPDATE password_resets SET consumed_at=? WHERE id=? AND consumed_at IS NULL AND expires_at>=?",
		now.UTC(), t.ID, now.UTC())
	if err != nil {
		return "", err
	}
	if n, err := res.RowsAffected(); err != nil {
		return "", err
	} else if n != 1 {
		return "", ErrTokenConsumed
	}

	res, err = tx.ExecContext(ctx,
		"UPDATE accounts SET password_hash=?, version=version+1, updated_at=? WHERE id=?",
		passwordHash, now.UTC(), t.AccountID)
	if err != nil {
		return "", err
	}
	if n, err := res.RowsAffected(); err != nil {
		return "", err
	} else if n != 1 {
		return "", ErrNotFound
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("commit: %w", err)
	}
	return t.AccountID, nil
}

func scanReset(row *sql.Row) (model.PasswordResetToken, error) {
	var (
		t          model.PasswordResetToken
		consumedAt sql.NullTime
	)
	if err := row.Scan(&t.ID, &t.AccountID, &t.TokenHash, &t.ExpiresAt, &consumedAt, &t.CreatedAt); err != nil {
		return model.PasswordResetToken{}, err
	}
	if consumedAt.Valid {
		ts := consumedAt.Time
		t.ConsumedAt = &ts
	}
	return t, nil
}
