package database

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	migratedb "github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations
var migrationsFS embed.FS

// migrateSQLite applies the embedded SQLite migrations on a dedicated connection.
func migrateSQLite(dsn string) error {
	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	driver, err := sqlite.WithInstance(conn, &sqlite.Config{})
	if err != nil {
		conn.Close()
		return err
	}
	return runMigrations("migrations/sqlite", "sqlite", driver)
}

// migratePostgres applies the embedded PostgreSQL migrations on a dedicated connection.
func migratePostgres(connStr string) error {
	conn, err := sql.Open("postgres", connStr)
	if err != nil {
		return fmt.Errorf("open postgres: %w", err)
	}
	driver, err := postgres.WithInstance(conn, &postgres.Config{})
	if err != nil {
		conn.Close()
		return err
	}
	return runMigrations("migrations/postgres", "postgres", driver)
}

// runMigrations applies every up migration under dir. Closing the migrator also
// closes the connection behind driver.
func runMigrations(dir, name string, driver migratedb.Driver) error {
	src, err := iofs.New(migrationsFS, dir)
	if err != nil {
		driver.Close()
		return err
	}
	m, err := migrate.NewWithInstance("iofs", src, name, driver)
	if err != nil {
		src.Close()
		driver.Close()
		return err
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	return nil
}
