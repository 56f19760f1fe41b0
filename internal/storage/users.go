package storage

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
)

// UserRepository handles user CRUD and session persistence.
type UserRepository struct {
	db DB
}

// NewUserRepository creates a new user repository.
func NewUserRepository(db DB) *UserRepository {
	return &UserRepository{db: db}
}

const userColumns = `id, username, email, password_hash, is_admin, session_id,
	session_expires_at, last_login_ip, login_attempts, locked_until, created_at, updated_at`

func scanUser(row interface{ Scan(...interface{}) error }) (*User, error) {
	var (
		user  User
		idStr string
	)
	err := row.Scan(
		&idStr, &user.Username, &user.Email, &user.PasswordHash, &user.IsAdmin,
		&user.SessionID, &user.SessionExpiresAt, &user.LastLoginIP,
		&user.LoginAttempts, &user.LockedUntil, &user.CreatedAt, &user.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	user.ID, err = uuid.Parse(idStr)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// Create creates a new user.
func (r *UserRepository) Create(ctx context.Context, user *User) error {
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	user.CreatedAt = time.Now().UTC()
	user.UpdatedAt = user.CreatedAt

	query := `
		INSERT INTO users (id, username, email, password_hash, is_admin, session_id,
			last_login_ip, login_attempts, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, '', '', 0, $6, $7)
	`
	_, err := r.db.ExecContext(ctx, query,
		user.ID.String(), user.Username, user.Email, user.PasswordHash,
		user.IsAdmin, user.CreatedAt, user.UpdatedAt,
	)
	return err
}

// GetByID retrieves a user by ID.
func (r *UserRepository) GetByID(ctx context.Context, id uuid.UUID) (*User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return scanUser(r.db.QueryRowContext(ctx, query, id.String()))
}

// GetByUsername retrieves a user by username.
func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE username = $1`
	return scanUser(r.db.QueryRowContext(ctx, query, username))
}

// GetBySession retrieves a user by an unexpired session ID.
func (r *UserRepository) GetBySession(ctx context.Context, sessionID string) (*User, error) {
	if sessionID == "" {
		return nil, ErrNotFound
	}
	query := `SELECT ` + userColumns + ` FROM users
		WHERE session_id = $1 AND session_expires_at > $2`
	return scanUser(r.db.QueryRowContext(ctx, query, sessionID, time.Now().UTC()))
}

// List returns all users ordered by username.
func (r *UserRepository) List(ctx context.Context) ([]*User, error) {
	query := `SELECT ` + userColumns + ` FROM users ORDER BY username`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []*User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, rows.Err()
}

// SetSession stores a new session for the user, invalidating any existing one,
// and resets the failed login counter.
func (r *UserRepository) SetSession(ctx context.Context, userID uuid.UUID, sessionID, remoteIP string, expiresAt time.Time) error {
	query := `UPDATE users SET
		session_id = $1,
		session_expires_at = $2,
		last_login_ip = $3,
		login_attempts = 0,
		locked_until = NULL,
		updated_at = $4
		WHERE id = $5`
	_, err := r.db.ExecContext(ctx, query,
		sessionID, expiresAt, remoteIP, time.Now().UTC(), userID.String())
	return err
}

// ExtendSession pushes the session expiry forward (sliding timeout).
func (r *UserRepository) ExtendSession(ctx context.Context, userID uuid.UUID, expiresAt time.Time) error {
	query := `UPDATE users SET session_expires_at = $1, updated_at = $2 WHERE id = $3`
	_, err := r.db.ExecContext(ctx, query, expiresAt, time.Now().UTC(), userID.String())
	return err
}

// ClearSession invalidates the session with the given ID.
func (r *UserRepository) ClearSession(ctx context.Context, sessionID string) error {
	query := `UPDATE users SET
		session_id = '',
		session_expires_at = NULL,
		updated_at = $1
		WHERE session_id = $2`
	_, err := r.db.ExecContext(ctx, query, time.Now().UTC(), sessionID)
	return err
}

// RecordFailedLogin bumps the failed login counter and locks the account once
// it reaches maxAttempts.
func (r *UserRepository) RecordFailedLogin(ctx context.Context, username string, maxAttempts int, lockout time.Duration) error {
	query := `UPDATE users SET
		login_attempts = login_attempts + 1,
		updated_at = $1
		WHERE username = $2`
	if _, err := r.db.ExecContext(ctx, query, time.Now().UTC(), username); err != nil {
		return err
	}

	lockQuery := `UPDATE users SET locked_until = $1
		WHERE username = $2 AND login_attempts >= $3`
	_, err := r.db.ExecContext(ctx, lockQuery,
		time.Now().UTC().Add(lockout), username, maxAttempts)
	return err
}

// UpdatePassword replaces the user's password hash.
func (r *UserRepository) UpdatePassword(ctx context.Context, userID uuid.UUID, hash string) error {
	query := `UPDATE users SET password_hash = $1, updated_at = $2 WHERE id = $3`
	_, err := r.db.ExecContext(ctx, query, hash, time.Now().UTC(), userID.String())
	return err
}
