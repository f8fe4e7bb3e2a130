package db

import (
	"database/sql"
	"embed"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/nrtkbb/fsrecon/errors"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// NeedsMigration reports whether the schema_migrations table is missing.
func NeedsMigration(db *sql.DB) bool {
	var exists int
	err := db.QueryRow(`
		SELECT COUNT(*) FROM sqlite_master
		WHERE type='table' AND name='schema_migrations'
	`).Scan(&exists)

	return err != nil || exists == 0
}

// RunMigrations applies every pending embedded migration to the database
// at dbPath.
func RunMigrations(dbPath string) error {
	d, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return errors.Wrap(err, errors.ErrDatabase, "failed to create migration source")
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return errors.Wrap(err, errors.ErrDatabase, "failed to open database")
	}
	defer db.Close()

	config := &sqlite3.Config{
		DatabaseName: dbPath,
		NoTxWrap:     true,
	}
	driver, err := sqlite3.WithInstance(db, config)
	if err != nil {
		return errors.Wrap(err, errors.ErrDatabase, "failed to create migration driver")
	}

	m, err := migrate.NewWithInstance("iofs", d, "sqlite3", driver)
	if err != nil {
		return errors.Wrap(err, errors.ErrDatabase, "failed to create migrate instance")
	}
	defer m.Close()

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return errors.Wrap(err, errors.ErrDatabase, "failed to run migrations")
	}

	return nil
}
