package auth

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paperlens-ai/paperlens/internal/config"
	"github.com/paperlens-ai/paperlens/internal/storage"
)

func testUsers(t *testing.T) *storage.UserRepository {
	t.Helper()

	cfg := config.DatabaseConfig{
		Driver: "sqlite",
		SQLite: config.SQLiteConfig{
			Path:         filepath.Join(t.TempDir(), "auth_test.db"),
			MaxOpenConns: 1,
			JournalMode:  "WAL",
		},
	}

	db, err := storage.Open(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return storage.NewUserRepository(db)
}

func createUser(t *testing.T, users *storage.UserRepository, username, password string) *storage.User {
	t.Helper()

	hash, err := HashPassword(password)
	require.NoError(t, err)

	user := &storage.User{
		Username:     username,
		PasswordHash: hash,
	}
	require.NoError(t, users.Create(context.Background(), user))
	return user
}

func TestGenerateSessionID(t *testing.T) {
	id1, err := GenerateSessionID()
	require.NoError(t, err)
	id2, err := GenerateSessionID()
	require.NoError(t, err)

	assert.Len(t, id1, SessionIDLength)
	assert.NotEqual(t, id1, id2)
}

func TestManager_LoginSuccess(t *testing.T) {
	users := testUsers(t)
	createUser(t, users, "alice", "correct horse battery")
	m := NewManager(users, Config{})
	ctx := context.Background()

	user, sessionID, err := m.Login(ctx, "alice", "correct horse battery", "10.0.0.1")
	require.NoError(t, err)
	assert.Equal(t, "alice", user.Username)
	assert.Len(t, sessionID, SessionIDLength)

	// The session resolves back to the user.
	got, err := m.Validate(ctx, sessionID)
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)
}

func TestManager_LoginWrongPassword(t *testing.T) {
	users := testUsers(t)
	createUser(t, users, "alice", "correct horse battery")
	m := NewManager(users, Config{})

	_, _, err := m.Login(context.Background(), "alice", "wrong", "10.0.0.1")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestManager_LoginUnknownUser(t *testing.T) {
	m := NewManager(testUsers(t), Config{})

	_, _, err := m.Login(context.Background(), "nobody", "whatever", "10.0.0.1")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestManager_LockoutAfterFailedAttempts(t *testing.T) {
	users := testUsers(t)
	createUser(t, users, "alice", "correct horse battery")
	m := NewManager(users, Config{MaxLoginAttempts: 3, LockoutDuration: time.Hour})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, _, err := m.Login(ctx, "alice", "wrong", "10.0.0.1")
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	}

	// Even the correct password is rejected while locked.
	_, _, err := m.Login(ctx, "alice", "correct horse battery", "10.0.0.1")
	assert.ErrorIs(t, err, ErrAccountLocked)
}

func TestManager_SuccessfulLoginResetsAttempts(t *testing.T) {
	users := testUsers(t)
	user := createUser(t, users, "alice", "correct horse battery")
	m := NewManager(users, Config{MaxLoginAttempts: 3, LockoutDuration: time.Hour})
	ctx := context.Background()

	_, _, err := m.Login(ctx, "alice", "wrong", "10.0.0.1")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, _, err = m.Login(ctx, "alice", "correct horse battery", "10.0.0.1")
	require.NoError(t, err)

	got, err := users.GetByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.LoginAttempts)
}

func TestManager_Logout(t *testing.T) {
	users := testUsers(t)
	createUser(t, users, "alice", "correct horse battery")
	m := NewManager(users, Config{})
	ctx := context.Background()

	_, sessionID, err := m.Login(ctx, "alice", "correct horse battery", "10.0.0.1")
	require.NoError(t, err)

	require.NoError(t, m.Logout(ctx, sessionID))

	_, err = m.Validate(ctx, sessionID)
	assert.Error(t, err)
}

func TestManager_ValidateExtendsSession(t *testing.T) {
	users := testUsers(t)
	user := createUser(t, users, "alice", "correct horse battery")
	m := NewManager(users, Config{SessionTTL: time.Hour})
	ctx := context.Background()

	_, sessionID, err := m.Login(ctx, "alice", "correct horse battery", "10.0.0.1")
	require.NoError(t, err)

	before, err := users.GetByID(ctx, user.ID)
	require.NoError(t, err)
	require.NotNil(t, before.SessionExpiresAt)

	time.Sleep(5 * time.Millisecond)

	_, err = m.Validate(ctx, sessionID)
	require.NoError(t, err)

	after, err := users.GetByID(ctx, user.ID)
	require.NoError(t, err)
	require.NotNil(t, after.SessionExpiresAt)
	assert.True(t, after.SessionExpiresAt.After(*before.SessionExpiresAt))
}
