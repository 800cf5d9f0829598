// Package sqlite provides a SQLite-backed user store.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	apperrors "github.com/jrsteele09/contacts-auth/internal/errors"
	"github.com/jrsteele09/contacts-auth/internal/sqlitemigrate"
	"github.com/jrsteele09/contacts-auth/users"
	"github.com/jrsteele09/contacts-auth/users/sqlite/migrations"
	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"
)

const userColumns = `id, email, username, password_hash, confirmed, refresh_token, created_at`

// Store persists identities in SQLite.
type Store struct {
	sqlDB *sql.DB
}

var _ users.Repo = (*Store)(nil)

// Open opens a SQLite user store and applies embedded migrations.
func Open(ctx context.Context, path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	dsn := filepath.Clean(path) + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := sqlitemigrate.Apply(ctx, sqlDB, migrations.FS); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Store{sqlDB: sqlDB}, nil
}

// Close closes the SQLite handle.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

func (s *Store) Create(ctx context.Context, user *users.User) error {
	if user == nil || strings.TrimSpace(user.Email) == "" {
		return fmt.Errorf("user email is required")
	}
	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}

	_, err := s.sqlDB.ExecContext(ctx,
		`INSERT INTO users (`+userColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		user.ID,
		user.Email,
		user.Username,
		user.PasswordHash,
		user.Confirmed,
		nullableString(user.RefreshToken),
		user.CreatedAt.UTC().UnixMilli(),
	)
	if isUniqueViolation(err) {
		return apperrors.Wrapf(users.ErrAlreadyExists, "create user %s", user.Email)
	}
	return apperrors.Unavailable(err, "create user")
}

func (s *Store) GetByEmail(ctx context.Context, email string) (*users.User, error) {
	row := s.sqlDB.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE email = ?`, email)
	return scanUser(row)
}

func (s *Store) GetByID(ctx context.Context, id string) (*users.User, error) {
	row := s.sqlDB.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
	return scanUser(row)
}

func (s *Store) SetRefreshToken(ctx context.Context, id string, token *string) error {
	res, err := s.sqlDB.ExecContext(ctx, `UPDATE users SET refresh_token = ? WHERE id = ?`, nullableString(token), id)
	if err != nil {
		return apperrors.Unavailable(err, "set refresh token")
	}
	return requireRow(res)
}

// CompareAndSetRefreshToken performs the swap as one conditional UPDATE so two
// processes racing on the same token cannot both succeed.
func (s *Store) CompareAndSetRefreshToken(ctx context.Context, id, expected, next string) error {
	if expected == "" {
		return users.ErrRefreshTokenMismatch
	}
	res, err := s.sqlDB.ExecContext(ctx,
		`UPDATE users SET refresh_token = ? WHERE id = ? AND refresh_token = ?`,
		next, id, expected,
	)
	if err != nil {
		return apperrors.Unavailable(err, "swap refresh token")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return apperrors.Unavailable(err, "swap refresh token rows")
	}
	if n == 1 {
		return nil
	}
	if _, err := s.GetByID(ctx, id); err != nil {
		return err
	}
	return users.ErrRefreshTokenMismatch
}

func (s *Store) SetPasswordHash(ctx context.Context, id, hash string) (*users.User, error) {
	res, err := s.sqlDB.ExecContext(ctx, `UPDATE users SET password_hash = ? WHERE id = ?`, hash, id)
	if err != nil {
		return nil, apperrors.Unavailable(err, "set password hash")
	}
	if err := requireRow(res); err != nil {
		return nil, err
	}
	return s.GetByID(ctx, id)
}

func (s *Store) MarkConfirmed(ctx context.Context, id string) error {
	res, err := s.sqlDB.ExecContext(ctx, `UPDATE users SET confirmed = 1 WHERE id = ?`, id)
	if err != nil {
		return apperrors.Unavailable(err, "mark confirmed")
	}
	return requireRow(res)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*users.User, error) {
	var (
		u            users.User
		refreshToken sql.NullString
		createdAt    int64
	)
	err := row.Scan(&u.ID, &u.Email, &u.Username, &u.PasswordHash, &u.Confirmed, &refreshToken, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, users.ErrNotFound
	}
	if err != nil {
		return nil, apperrors.Unavailable(err, "scan user")
	}
	if refreshToken.Valid {
		u.RefreshToken = &refreshToken.String
	}
	u.CreatedAt = time.UnixMilli(createdAt).UTC()
	return &u, nil
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return apperrors.Unavailable(err, "rows affected")
	}
	if n == 0 {
		return users.ErrNotFound
	}
	return nil
}

func nullableString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3lib.SQLITE_CONSTRAINT_UNIQUE:
			return true
		}
	}
	return strings.Contains(strings.ToLower(err.Error()), "unique constraint failed")
}
