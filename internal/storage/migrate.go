package storage

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	migratepgx "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations/sqlite/*.sql migrations/postgres/*.sql
var migrationsFS embed.FS

const (
	dialectSQLite   = "sqlite"
	dialectPostgres = "postgres"
)

// driverNames maps a dialect to its database/sql driver.
var driverNames = map[string]string{
	dialectSQLite:   "sqlite",
	dialectPostgres: "pgx",
}

// runMigrations applies the embedded schema for dialect. It uses its own
// connection, closed when done, so the caller's pool is untouched.
func runMigrations(dialect, dsn string) error {
	driverName, ok := driverNames[dialect]
	if !ok {
		return fmt.Errorf("unknown migration dialect %q", dialect)
	}
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return fmt.Errorf("open migration database: %w", err)
	}

	var driver database.Driver
	switch dialect {
	case dialectSQLite:
		driver, err = sqlite.WithInstance(db, &sqlite.Config{})
	case dialectPostgres:
		driver, err = migratepgx.WithInstance(db, &migratepgx.Config{})
	}
	if err != nil {
		db.Close()
		return fmt.Errorf("create %s driver: %w", dialect, err)
	}

	d, err := iofs.New(migrationsFS, "migrations/"+dialect)
	if err != nil {
		driver.Close()
		return fmt.Errorf("create iofs source: %w", err)
	}

	// Closing m closes driver and db.
	m, err := migrate.NewWithInstance("iofs", d, dialect, driver)
	if err != nil {
		driver.Close()
		return fmt.Errorf("create migrate instance: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("run migrations: %w", err)
	}
	return nil
}
