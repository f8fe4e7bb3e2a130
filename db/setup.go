package db

import (
	"database/sql"
	"os"
	"path/filepath"

	"github.com/nrtkbb/fsrecon/errors"
	"github.com/nrtkbb/fsrecon/logging"

	_ "github.com/mattn/go-sqlite3"
)

// SetupDatabase opens the history database at dbPath, creating the file and
// its directory when missing and bringing the schema up to date.
func SetupDatabase(dbPath string) (*sql.DB, error) {
	logger := logging.GetLogger("db")

	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, errors.Wrap(err, errors.ErrDatabase, "failed to create database directory")
	}

	needsInit := false
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		needsInit = true
		f, err := os.Create(dbPath)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrDatabase, "failed to create database file")
		}
		f.Close()
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrDatabase, "failed to open database")
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, errors.Wrap(err, errors.ErrDatabase, "failed to connect to database")
	}

	if needsInit || NeedsMigration(db) {
		logger.Info().Str("path", dbPath).Msg("Running database migrations")
		if err := RunMigrations(dbPath); err != nil {
			db.Close()
			return nil, err
		}
	}

	_, err = db.Exec(`
		PRAGMA journal_mode = WAL;
		PRAGMA synchronous = NORMAL;
		PRAGMA temp_store = MEMORY;
		PRAGMA busy_timeout = 5000;
		PRAGMA foreign_keys = ON;
	`)
	if err != nil {
		db.Close()
		return nil, errors.Wrap(err, errors.ErrDatabase, "failed to set database pragmas")
	}

	return db, nil
}
