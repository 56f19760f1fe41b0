package storage

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/paperlens-ai/paperlens/internal/config"
)

// testDB opens a throwaway SQLite database with the schema applied.
func testDB(t *testing.T) *sql.DB {
	t.Helper()

	cfg := config.DatabaseConfig{
		Driver: "sqlite",
		SQLite: config.SQLiteConfig{
			Path:         filepath.Join(t.TempDir(), "test.db"),
			MaxOpenConns: 1,
			JournalMode:  "WAL",
		},
	}

	db, err := Open(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return db
}

// createTestUser inserts a user and returns it.
func createTestUser(t *testing.T, users *UserRepository, username string, admin bool) *User {
	t.Helper()

	user := &User{
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: "$2a$10$fakehashfortests",
		IsAdmin:      admin,
	}
	require.NoError(t, users.Create(context.Background(), user))
	return user
}
