package db

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/alexedwards/scs/postgresstore"
	"github.com/alexedwards/scs/sqlite3store"
	"github.com/alexedwards/scs/v2"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

//go:embed migrations/*.sql
var migrations embed.FS

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite3"
)

// DriverFor picks the sql driver from the shape of the connection string.
func DriverFor(dsn string) string {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		return DriverPostgres
	}
	return DriverSQLite
}

func InitDB(dsn string) (*sqlx.DB, error) {
	driver := DriverFor(dsn)
	if driver == DriverSQLite && !strings.Contains(dsn, "_foreign_keys") {
		if strings.Contains(dsn, "?") {
			dsn += "&_foreign_keys=on"
		} else {
			dsn += "?_foreign_keys=on"
		}
	}

	conn, err := sqlx.Connect(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", driver, err)
	}

	if err := ensureSessionTable(conn); err != nil {
		conn.Close()
		return nil, err
	}

	slog.Info("database connected", "driver", driver)
	return conn, nil
}

func RunMigrations(conn *sqlx.DB) error {
	source, err := iofs.New(migrations, "migrations")
	if err != nil {
		return fmt.Errorf("failed to open migrations: %w", err)
	}

	var driver database.Driver
	switch conn.DriverName() {
	case DriverPostgres:
		// A dedicated connection, so finishing the migration does not close the pool
		sqlConn, err := conn.Conn(context.Background())
		if err != nil {
			return fmt.Errorf("failed to acquire migration connection: %w", err)
		}
		defer sqlConn.Close()
		driver, err = postgres.WithConnection(context.Background(), sqlConn, &postgres.Config{})
		if err != nil {
			return fmt.Errorf("failed to create migrate driver: %w", err)
		}
	default:
		driver, err = sqlite3.WithInstance(conn.DB, &sqlite3.Config{})
		if err != nil {
			return fmt.Errorf("failed to create migrate driver: %w", err)
		}
	}

	m, err := migrate.NewWithInstance("iofs", source, conn.DriverName(), driver)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}
	return nil
}

// SessionStore returns the scs store kept in the database's sessions table.
func SessionStore(conn *sqlx.DB) scs.Store {
	if conn.DriverName() == DriverPostgres {
		return postgresstore.New(conn.DB)
	}
	return sqlite3store.New(conn.DB)
}

// sessionTables holds the table layout each scs store expects.
var sessionTables = map[string]string{
	DriverSQLite: `CREATE TABLE IF NOT EXISTS sessions (
		token TEXT PRIMARY KEY,
		data BLOB NOT NULL,
		expiry REAL NOT NULL
	)`,
	DriverPostgres: `CREATE TABLE IF NOT EXISTS sessions (
		token TEXT PRIMARY KEY,
		data BYTEA NOT NULL,
		expiry TIMESTAMPTZ NOT NULL
	)`,
}

func ensureSessionTable(conn *sqlx.DB) error {
	if _, err := conn.Exec(sessionTables[conn.DriverName()]); err != nil {
		return fmt.Errorf("failed to create sessions table: %w", err)
	}
	_, err := conn.Exec("CREATE INDEX IF NOT EXISTS sessions_expiry_idx ON sessions (expiry)")
	return err
}
