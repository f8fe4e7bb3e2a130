package db

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/nrtkbb/fsrecon/errors"
	"github.com/nrtkbb/fsrecon/models"
	"github.com/samber/lo"
)

// SaveReport stores a finished run with every outcome and read failure in
// a single transaction.
func SaveReport(ctx context.Context, db *sql.DB, report *models.Report) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, errors.ErrDatabase, "failed to begin transaction")
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs (
			run_id, canonical_root, incoming_root, dry_run,
			started_at, finished_at, present_count, new_count
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`,
		report.RunID, report.Canonical, report.Incoming, report.DryRun,
		report.StartedAt.UnixNano(), report.FinishedAt.UnixNano(),
		report.Present, report.New,
	)
	if err != nil {
		return errors.Wrapf(err, errors.ErrDatabase, "failed to insert run %s", report.RunID)
	}

	outcomeStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO outcomes (
			run_id, seq, phase, path, destination, signature,
			outcome, reference_path, reference_mtime, error
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return errors.Wrap(err, errors.ErrDatabase, "failed to prepare outcome statement")
	}
	defer outcomeStmt.Close()

	seq := 0
	insert := func(phase models.Phase, outcomes []models.FileOutcome) error {
		for _, o := range outcomes {
			var refPath sql.NullString
			var refMtime sql.NullInt64
			if o.Reference != nil {
				refPath = sql.NullString{String: o.Reference.Path, Valid: true}
				refMtime = sql.NullInt64{Int64: o.Reference.ModTime.UnixNano(), Valid: true}
			}
			_, err := outcomeStmt.ExecContext(ctx,
				report.RunID, seq, string(phase), o.Path, o.Destination, string(o.Signature),
				string(o.Outcome), refPath, refMtime, o.Err,
			)
			if err != nil {
				return errors.Wrapf(err, errors.ErrDatabase, "failed to insert outcome for %s", o.Path)
			}
			seq++
		}
		return nil
	}
	if err := insert(models.PhaseDelete, report.Deletions); err != nil {
		return err
	}
	if err := insert(models.PhaseMigrate, report.Migrations); err != nil {
		return err
	}

	failureStmt, err := tx.PrepareContext(ctx, `INSERT INTO read_failures (run_id, path, error) VALUES (?, ?, ?)`)
	if err != nil {
		return errors.Wrap(err, errors.ErrDatabase, "failed to prepare read failure statement")
	}
	defer failureStmt.Close()

	for _, f := range report.ReadFailures {
		if _, err := failureStmt.ExecContext(ctx, report.RunID, f.Path, f.Err); err != nil {
			return errors.Wrapf(err, errors.ErrDatabase, "failed to insert read failure for %s", f.Path)
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, errors.ErrDatabase, "failed to commit run")
	}
	return nil
}

const runColumns = `
	r.run_id, r.canonical_root, r.incoming_root, r.dry_run,
	r.started_at, r.finished_at, r.present_count, r.new_count,
	(SELECT COUNT(*) FROM read_failures rf WHERE rf.run_id = r.run_id)
`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (models.RunSummary, error) {
	var s models.RunSummary
	var started, finished int64
	err := row.Scan(
		&s.RunID, &s.Canonical, &s.Incoming, &s.DryRun,
		&started, &finished, &s.Present, &s.New, &s.ReadFailures,
	)
	s.StartedAt = time.Unix(0, started)
	s.FinishedAt = time.Unix(0, finished)
	s.Counts = make(map[models.Outcome]int)
	return s, err
}

// ListRuns returns stored runs, most recent first.
func ListRuns(ctx context.Context, db *sql.DB, limit, offset int) ([]models.RunSummary, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT `+runColumns+`
		FROM runs r
		ORDER BY r.started_at DESC, r.run_id
		LIMIT ? OFFSET ?
	`, limit, offset)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrDatabase, "failed to query runs")
	}
	defer rows.Close()

	runs := make([]models.RunSummary, 0)
	for rows.Next() {
		s, err := scanRun(rows)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrDatabase, "failed to scan run")
		}
		runs = append(runs, s)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrDatabase, "failed to iterate runs")
	}

	if err := fillCounts(ctx, db, runs); err != nil {
		return nil, err
	}
	return runs, nil
}

// CountRuns returns the number of stored runs.
func CountRuns(ctx context.Context, db *sql.DB) (int, error) {
	var n int
	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM runs").Scan(&n); err != nil {
		return 0, errors.Wrap(err, errors.ErrDatabase, "failed to count runs")
	}
	return n, nil
}

// GetRun returns one run with its outcome counts. A missing run is an
// ErrNotFound error.
func GetRun(ctx context.Context, db *sql.DB, runID string) (*models.RunSummary, error) {
	row := db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs r WHERE r.run_id = ?`, runID)
	s, err := scanRun(row)
	if err == sql.ErrNoRows {
		return nil, errors.Newf(errors.ErrNotFound, "run %s not found", runID)
	}
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrDatabase, "failed to load run %s", runID)
	}

	runs := []models.RunSummary{s}
	if err := fillCounts(ctx, db, runs); err != nil {
		return nil, err
	}
	return &runs[0], nil
}

func fillCounts(ctx context.Context, db *sql.DB, runs []models.RunSummary) error {
	if len(runs) == 0 {
		return nil
	}

	ids := lo.Map(runs, func(s models.RunSummary, _ int) any { return s.RunID })
	rows, err := db.QueryContext(ctx, `
		SELECT run_id, outcome, COUNT(*)
		FROM outcomes
		WHERE run_id IN (`+strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")+`)
		GROUP BY run_id, outcome
	`, ids...)
	if err != nil {
		return errors.Wrap(err, errors.ErrDatabase, "failed to count outcomes")
	}
	defer rows.Close()

	byID := make(map[string]map[models.Outcome]int, len(runs))
	for i := range runs {
		byID[runs[i].RunID] = runs[i].Counts
	}
	for rows.Next() {
		var id, outcome string
		var n int
		if err := rows.Scan(&id, &outcome, &n); err != nil {
			return errors.Wrap(err, errors.ErrDatabase, "failed to scan outcome count")
		}
		byID[id][models.Outcome(outcome)] = n
	}
	if err := rows.Err(); err != nil {
		return errors.Wrap(err, errors.ErrDatabase, "failed to iterate outcome counts")
	}
	return nil
}

// ListOutcomes returns the outcomes of a run in the order they happened.
// A non-empty filter keeps only that outcome.
func ListOutcomes(ctx context.Context, db *sql.DB, runID string, filter models.Outcome) ([]models.StoredOutcome, error) {
	query := `
		SELECT seq, phase, path, destination, signature, outcome,
			reference_path, reference_mtime, error
		FROM outcomes
		WHERE run_id = ?`
	args := []any{runID}
	if filter != "" {
		query += " AND outcome = ?"
		args = append(args, string(filter))
	}
	query += " ORDER BY seq"

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrDatabase, "failed to query outcomes")
	}
	defer rows.Close()

	outcomes := make([]models.StoredOutcome, 0)
	for rows.Next() {
		var o models.StoredOutcome
		var phase, signature, outcome string
		var destination, refPath, errText sql.NullString
		var refMtime sql.NullInt64
		if err := rows.Scan(&o.Seq, &phase, &o.Path, &destination, &signature, &outcome,
			&refPath, &refMtime, &errText); err != nil {
			return nil, errors.Wrap(err, errors.ErrDatabase, "failed to scan outcome")
		}
		o.Phase = models.Phase(phase)
		o.Destination = destination.String
		o.Signature = models.Signature(signature)
		o.Outcome = models.Outcome(outcome)
		o.Err = errText.String
		if refPath.Valid {
			o.Reference = &models.Reference{Path: refPath.String, ModTime: time.Unix(0, refMtime.Int64)}
		}
		outcomes = append(outcomes, o)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrDatabase, "failed to iterate outcomes")
	}
	return outcomes, nil
}

// ListReadFailures returns the paths a run skipped because they could not
// be read.
func ListReadFailures(ctx context.Context, db *sql.DB, runID string) ([]models.ReadFailure, error) {
	rows, err := db.QueryContext(ctx, `SELECT path, error FROM read_failures WHERE run_id = ? ORDER BY rowid`, runID)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrDatabase, "failed to query read failures")
	}
	defer rows.Close()

	var failures []models.ReadFailure
	for rows.Next() {
		var f models.ReadFailure
		if err := rows.Scan(&f.Path, &f.Err); err != nil {
			return nil, errors.Wrap(err, errors.ErrDatabase, "failed to scan read failure")
		}
		failures = append(failures, f)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrDatabase, "failed to iterate read failures")
	}
	return failures, nil
}

// LoadReport rebuilds the full report of a stored run.
func LoadReport(ctx context.Context, db *sql.DB, runID string) (*models.Report, error) {
	summary, err := GetRun(ctx, db, runID)
	if err != nil {
		return nil, err
	}
	outcomes, err := ListOutcomes(ctx, db, runID, "")
	if err != nil {
		return nil, err
	}
	failures, err := ListReadFailures(ctx, db, runID)
	if err != nil {
		return nil, err
	}

	report := &models.Report{
		RunID:        summary.RunID,
		Canonical:    summary.Canonical,
		Incoming:     summary.Incoming,
		DryRun:       summary.DryRun,
		StartedAt:    summary.StartedAt,
		FinishedAt:   summary.FinishedAt,
		Present:      summary.Present,
		New:          summary.New,
		Deletions:    []models.FileOutcome{},
		Migrations:   []models.FileOutcome{},
		ReadFailures: failures,
	}
	for _, o := range outcomes {
		if o.Phase == models.PhaseDelete {
			report.Deletions = append(report.Deletions, o.FileOutcome)
		} else {
			report.Migrations = append(report.Migrations, o.FileOutcome)
		}
	}
	return report, nil
}

// OutcomeTotals counts outcomes across every stored run.
func OutcomeTotals(ctx context.Context, db *sql.DB) (map[models.Outcome]int, error) {
	rows, err := db.QueryContext(ctx, `SELECT outcome, COUNT(*) FROM outcomes GROUP BY outcome`)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrDatabase, "failed to query outcome totals")
	}
	defer rows.Close()

	totals := make(map[models.Outcome]int)
	for rows.Next() {
		var outcome string
		var n int
		if err := rows.Scan(&outcome, &n); err != nil {
			return nil, errors.Wrap(err, errors.ErrDatabase, "failed to scan outcome total")
		}
		totals[models.Outcome(outcome)] = n
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrDatabase, "failed to iterate outcome totals")
	}
	return totals, nil
}
