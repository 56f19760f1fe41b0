package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/paperlens-ai/paperlens/internal/domain"
	"github.com/paperlens-ai/paperlens/internal/storage"
)

// Session security constants
const (
	// SessionIDLength is the hex length of a session ID.
	SessionIDLength = 64
)

// Login failure modes surfaced to callers.
var (
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrAccountLocked      = errors.New("account temporarily locked")
)

// Manager implements login, logout and session validation against the user
// repository. Sessions live on the user row: one active session per user,
// sliding expiry.
type Manager struct {
	users            *storage.UserRepository
	sessionTTL       time.Duration
	maxLoginAttempts int
	lockoutDuration  time.Duration
}

// Config holds session manager settings.
type Config struct {
	SessionTTL       time.Duration
	MaxLoginAttempts int
	LockoutDuration  time.Duration
}

// NewManager creates a session manager.
func NewManager(users *storage.UserRepository, cfg Config) *Manager {
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = 3 * time.Hour
	}
	if cfg.MaxLoginAttempts <= 0 {
		cfg.MaxLoginAttempts = 5
	}
	if cfg.LockoutDuration <= 0 {
		cfg.LockoutDuration = 15 * time.Minute
	}
	return &Manager{
		users:            users,
		sessionTTL:       cfg.SessionTTL,
		maxLoginAttempts: cfg.MaxLoginAttempts,
		lockoutDuration:  cfg.LockoutDuration,
	}
}

// GenerateSessionID creates a cryptographically secure session ID.
func GenerateSessionID() (string, error) {
	bytes := make([]byte, SessionIDLength/2) // hex encoding doubles the length
	if _, err := rand.Read(bytes); err != nil {
		return "", fmt.Errorf("failed to generate secure session ID: %w", err)
	}
	return hex.EncodeToString(bytes), nil
}

// Login verifies credentials and returns a fresh session ID. Failed attempts
// are counted; too many lock the account for the lockout duration.
func (m *Manager) Login(ctx context.Context, username, password, remoteIP string) (*storage.User, string, error) {
	user, err := m.users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, "", ErrInvalidCredentials
		}
		return nil, "", domain.StorageError("failed to look up user", err)
	}

	if user.LockedUntil != nil && user.LockedUntil.After(time.Now()) {
		return nil, "", ErrAccountLocked
	}

	if !VerifyPassword(user.PasswordHash, password) {
		if err := m.users.RecordFailedLogin(ctx, username, m.maxLoginAttempts, m.lockoutDuration); err != nil {
			return nil, "", domain.StorageError("failed to record login attempt", err)
		}
		return nil, "", ErrInvalidCredentials
	}

	sessionID, err := GenerateSessionID()
	if err != nil {
		return nil, "", domain.AuthError("failed to create session", err)
	}

	expiresAt := time.Now().UTC().Add(m.sessionTTL)
	if err := m.users.SetSession(ctx, user.ID, sessionID, remoteIP, expiresAt); err != nil {
		return nil, "", domain.StorageError("failed to store session", err)
	}

	user.SessionID = sessionID
	user.SessionExpiresAt = &expiresAt
	return user, sessionID, nil
}

// Validate resolves a session ID to its user and extends the expiry.
func (m *Manager) Validate(ctx context.Context, sessionID string) (*storage.User, error) {
	user, err := m.users.GetBySession(ctx, sessionID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, domain.AuthError("invalid or expired session", nil)
		}
		return nil, domain.StorageError("failed to look up session", err)
	}

	newExpiry := time.Now().UTC().Add(m.sessionTTL)
	// Extension failure is not fatal for this request.
	_ = m.users.ExtendSession(ctx, user.ID, newExpiry)
	user.SessionExpiresAt = &newExpiry

	return user, nil
}

// Logout invalidates a session.
func (m *Manager) Logout(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return nil
	}
	return m.users.ClearSession(ctx, sessionID)
}

// SessionTTL returns the configured session lifetime.
func (m *Manager) SessionTTL() time.Duration {
	return m.sessionTTL
}
