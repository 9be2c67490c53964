// Package dbtest provides a migrated in-memory database for package tests.
package dbtest

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/hominio/cups/internal/db"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"
)

// Setup creates an in-memory SQLite database and applies migrations.
func Setup(t *testing.T) *sqlx.DB {
	t.Helper()

	database, err := db.InitDB("file::memory:")
	require.NoError(t, err, "Failed to connect to in-memory DB")

	// Every connection to :memory: is a separate database
	database.SetMaxOpenConns(1)

	require.NoError(t, db.RunMigrations(database), "Failed to apply migrations")

	t.Cleanup(func() { database.Close() })
	return database
}

// InsertUser creates a user row and returns its id.
func InsertUser(t *testing.T, database *sqlx.DB, username string, isAdmin bool) uuid.UUID {
	t.Helper()

	id := uuid.New()
	_, err := database.Exec(database.Rebind(
		"INSERT INTO users (id, email, username, is_admin, created_at) VALUES (?, ?, ?, ?, ?)"),
		id, username+"@hominio.test", username, isAdmin, time.Now().UTC())
	require.NoError(t, err)
	return id
}

// InsertProject creates a project owned by ownerID and returns its id.
func InsertProject(t *testing.T, database *sqlx.DB, ownerID uuid.UUID, name string) uuid.UUID {
	t.Helper()

	id := uuid.New()
	_, err := database.Exec(database.Rebind(
		"INSERT INTO projects (id, user_id, name, description, created_at) VALUES (?, ?, ?, '', ?)"),
		id, ownerID, name, time.Now().UTC())
	require.NoError(t, err)
	return id
}

// InsertIdentity grants userID a voting weight, universal when cupID is nil.
func InsertIdentity(t *testing.T, database *sqlx.DB, userID uuid.UUID, identityType string, weight int, cupID *uuid.UUID) {
	t.Helper()

	_, err := database.Exec(database.Rebind(
		"INSERT INTO user_identities (id, user_id, identity_type, voting_weight, cup_id, created_at) VALUES (?, ?, ?, ?, ?, ?)"),
		uuid.New(), userID, identityType, weight, cupID, time.Now().UTC())
	require.NoError(t, err)
}
