package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"

	"github.com/iliyamo/storefront-auth/internal/model"
)

// mysqlDuplicateEntry is ER_DUP_ENTRY.
const mysqlDuplicateEntry = 1062

const accountColumns = "id,username,email,password_hash,role,verified,version,created_at,updated_at"

// AccountRepo persists accounts in the `accounts` table.  Uniqueness of
// email and username is enforced by indexes; all mutations after creation
// go through Save, which is conditional on the version read.
type AccountRepo struct{ DB *sql.DB }

func NewAccountRepo(db *sql.DB) *AccountRepo { return &AccountRepo{DB: db} }

// Create inserts the account.  Duplicate email or username surface as
// ErrEmailExists / ErrUsernameExists straight from the insert.
func (r *AccountRepo) Create(ctx context.Context, a *model.Account) error {
	now := time.Now().UTC()
	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO accounts (id,username,email,password_hash,role,verified,version,created_at,updated_at) VALUES (?,?,?,?,?,?,?,?,?)",
		a.ID, a.Username, a.Email, a.PasswordHash, string(a.Role), a.Verified, 1, now, now)
	if err != nil {
		return classifyInsert(err)
	}
	a.Version = 1
	a.CreatedAt, a.UpdatedAt = now, now
	return nil
}

// FindByEmail fetches an account by normalized email without OTP fields.
func (r *AccountRepo) FindByEmail(ctx context.Context, email string) (model.Account, error) {
	return r.one(ctx, "SELECT "+accountColumns+" FROM accounts WHERE email=? LIMIT 1", normalizeEmail(email))
}

// FindByUsername fetches an account by username without OTP fields.
func (r *AccountRepo) FindByUsername(ctx context.Context, username string) (model.Account, error) {
	return r.one(ctx, "SELECT "+accountColumns+" FROM accounts WHERE username=? LIMIT 1", strings.TrimSpace(username))
}

// FindByID fetches an account by id without OTP fields.
func (r *AccountRepo) FindByID(ctx context.Context, id string) (model.Account, error) {
	return r.one(ctx, "SELECT "+accountColumns+" FROM accounts WHERE id=? LIMIT 1", id)
}

// FindByEmailWithOTP is the explicit opt-in read that includes the pending
// verification code and its expiry.
func (r *AccountRepo) FindByEmailWithOTP(ctx context.Context, email string) (model.Account, error) {
	var (
		a       model.Account
		role    string
		otpHash sql.NullString
		otpExp  sql.NullTime
	)
	err := r.DB.QueryRowContext(ctx,
		"SELECT "+accountColumns+",otp_hash,otp_expires_at FROM accounts WHERE email=? LIMIT 1",
		normalizeEmail(email)).Scan(&a.ID, &a.Username, &a.Email, &a.PasswordHash, &role, &a.Verified,
		&a.Version, &a.CreatedAt, &a.UpdatedAt, &otpHash, &otpExp)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Account{}, ErrNotFound
		}
		return model.Account{}, err
	}
	a.Role = model.Role(role)
	if otpHash.Valid && otpExp.Valid {
		a.SetOTP(otpHash.String, otpExp.Time)
	}
	return a, nil
}

// Save writes the mutable fields of the account if, and only if, the
// stored version still equals a.Version.  On success a.Version is bumped.
// Email and id are immutable and never written; verified can only move
// from false to true.
func (r *AccountRepo) Save(ctx context.Context, a *model.Account) error {
	var (
		otpHash sql.NullString
		otpExp  sql.NullTime
	)
	if a.HasPendingOTP() {
		otpHash = sql.NullString{String: a.OTPHash, Valid: true}
		otpExp = sql.NullTime{Time: a.OTPExpiresAt.UTC(), Valid: true}
	}
	now := time.Now().UTC()
	res, err := r.DB.ExecContext(ctx,
		`UPDATE accounts
		 SET username=?, password_hash=?, verified=(verified OR ?), otp_hash=?, otp_expires_at=?, version=version+1, updated_at=?
		 WHERE id=? AND version=?`,
		a.Username, a.PasswordHash, a.Verified, otpHash, otpExp, now, a.ID, a.Version)
	if err != nil {
		return classifyInsert(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n != 1 {
		return ErrStaleVersion
	}
	a.Version++
	a.UpdatedAt = now
	return nil
}

func (r *AccountRepo) one(ctx context.Context, q string, arg any) (model.Account, error) {
	var (
		a    model.Account
		role string
	)
	err := r.DB.QueryRowContext(ctx, q, arg).Scan(&a.ID, &a.Username, &a.Email, &a.PasswordHash, &role,
		&a.Verified, &a.Version, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Account{}, ErrNotFound
		}
		return model.Account{}, err
	}
	a.Role = model.Role(role)
	return a, nil
}

// classifyInsert maps duplicate-key violations to the conflict sentinels
// using the index name MySQL reports.
func classifyInsert(err error) error {
	var me *mysql.MySQLError
	if !errors.As(err, &me) || me.Number != mysqlDuplicateEntry {
		return err
	}
	if strings.Contains(me.Message, "uq_accounts_username") {
		return ErrUsernameExists
	}
	return ErrEmailExists
}

func normalizeEmail(email string) string { return strings.ToLower(strings.TrimSpace(email)) }
