package db

import (
	"context"
	"database/sql"
	"os"

	"github.com/nrtkbb/fsrecon/errors"
	"github.com/nrtkbb/fsrecon/logging"
)

// MergeDatabase copies into destDB every run of sourceDB that destDB does
// not already hold. Run IDs are UUIDs, so runs keep their IDs. It returns
// the number of runs copied.
func MergeDatabase(ctx context.Context, sourceDB, destDB string) (int, error) {
	logger := logging.GetLogger("db")

	if _, err := os.Stat(sourceDB); err != nil {
		return 0, errors.Wrap(err, errors.ErrDatabase, "source database is not accessible").WithDetail("path", sourceDB)
	}
	source, err := sql.Open("sqlite3", "file:"+sourceDB+"?mode=ro")
	if err != nil {
		return 0, errors.Wrap(err, errors.ErrDatabase, "failed to open source database")
	}
	defer source.Close()
	if NeedsMigration(source) {
		return 0, errors.Newf(errors.ErrDatabase, "source database %s has no history schema", sourceDB)
	}

	dest, err := SetupDatabase(destDB)
	if err != nil {
		return 0, err
	}
	defer dest.Close()

	ids, err := runIDs(ctx, source)
	if err != nil {
		return 0, err
	}

	copied := 0
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return copied, errors.Wrap(err, errors.ErrCancelled, "merge cancelled")
		}

		var exists int
		if err := dest.QueryRowContext(ctx, "SELECT COUNT(*) FROM runs WHERE run_id = ?", id).Scan(&exists); err != nil {
			return copied, errors.Wrap(err, errors.ErrDatabase, "failed to check destination run")
		}
		if exists > 0 {
			logger.Debug().Str("run_id", id).Msg("Run already present, skipping")
			continue
		}

		report, err := LoadReport(ctx, source, id)
		if err != nil {
			return copied, err
		}
		if err := SaveReport(ctx, dest, report); err != nil {
			return copied, err
		}
		copied++
		logger.Info().Str("run_id", id).Int("outcomes", len(report.Outcomes())).Msg("Copied run")
	}

	return copied, nil
}

func runIDs(ctx context.Context, db *sql.DB) ([]string, error) {
	rows, err := db.QueryContext(ctx, "SELECT run_id FROM runs ORDER BY started_at, run_id")
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrDatabase, "failed to query source runs")
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, errors.Wrap(err, errors.ErrDatabase, "failed to scan run id")
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrDatabase, "failed to iterate source runs")
	}
	return ids, nil
}
