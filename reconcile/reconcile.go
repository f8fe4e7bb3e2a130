package reconcile

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/nrtkbb/fsrecon/compare"
	"github.com/nrtkbb/fsrecon/errors"
	"github.com/nrtkbb/fsrecon/index"
	"github.com/nrtkbb/fsrecon/logging"
	"github.com/nrtkbb/fsrecon/models"
	"github.com/nrtkbb/fsrecon/scanner"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

// Reconciler removes incoming files already present in canonical and moves
// the rest into canonical. Every file is handled independently: a failure is
// recorded as that file's outcome and processing continues.
type Reconciler struct {
	FS      afero.Fs
	Options scanner.Options
	// DryRun computes outcomes without touching either tree.
	DryRun bool

	logger zerolog.Logger
	// planned holds destinations a dry run would have created, with the
	// mtime they would carry.
	planned map[string]time.Time
}

func New(fsys afero.Fs, opts scanner.Options, dryRun bool) *Reconciler {
	return &Reconciler{
		FS:      fsys,
		Options: opts,
		DryRun:  dryRun,
		logger:  logging.GetLogger("reconcile"),
		planned: make(map[string]time.Time),
	}
}

// Run compares the trees, deletes incoming duplicates, then migrates new
// files. The report is returned even when individual files failed; the
// error is non-nil only when the comparison itself could not run or the
// context was cancelled, in which case the report holds what was done.
func (r *Reconciler) Run(ctx context.Context, canonicalRoot, incomingRoot string) (*models.Report, error) {
	tracer := otel.Tracer("fsrecon/reconcile")
	ctx, span := tracer.Start(ctx, "Run")
	defer span.End()

	report := &models.Report{
		RunID:     uuid.NewString(),
		Canonical: canonicalRoot,
		Incoming:  incomingRoot,
		DryRun:    r.DryRun,
		StartedAt: time.Now(),
	}
	span.SetAttributes(attribute.String("run_id", report.RunID), attribute.Bool("dry_run", r.DryRun))
	r.logger.Info().
		Str("run_id", report.RunID).
		Str("canonical", canonicalRoot).
		Str("incoming", incomingRoot).
		Bool("dry_run", r.DryRun).
		Msg("Reconciliation started")

	cmp, canonical, err := compare.New(r.FS, r.Options).Compare(ctx, canonicalRoot, incomingRoot)
	if err != nil {
		span.RecordError(err)
		report.FinishedAt = time.Now()
		return report, err
	}
	report.Present = len(cmp.Present)
	report.New = len(cmp.New)
	report.ReadFailures = cmp.ReadFailures

	report.Deletions = r.Delete(ctx, cmp.Present)
	if err := ctx.Err(); err != nil {
		report.FinishedAt = time.Now()
		return report, errors.Wrap(err, errors.ErrCancelled, "reconciliation cancelled after delete phase")
	}

	report.Migrations = r.Migrate(ctx, canonicalRoot, cmp.New, canonical)
	report.FinishedAt = time.Now()
	if err := ctx.Err(); err != nil {
		return report, errors.Wrap(err, errors.ErrCancelled, "reconciliation cancelled during migrate phase")
	}

	counts := report.Counts()
	for outcome, n := range counts {
		span.SetAttributes(attribute.Int("outcome."+string(outcome), n))
	}
	r.logger.Info().
		Str("run_id", report.RunID).
		Int("deleted", counts[models.OutcomeDeleted]).
		Int("moved", counts[models.OutcomeMovedNew]).
		Int("replaced", counts[models.OutcomeReplacedByRecency]).
		Int("conflicts", counts[models.OutcomeLeftAsConflict]).
		Int("failed", counts[models.OutcomeFailed]).
		Dur("elapsed", report.FinishedAt.Sub(report.StartedAt)).
		Msg("Reconciliation finished")

	return report, nil
}

// Delete removes each incoming file of present, in order. Cancellation is
// checked before each file; the outcomes gathered so far are returned.
func (r *Reconciler) Delete(ctx context.Context, present []models.Match) []models.FileOutcome {
	_, span := otel.Tracer("fsrecon/reconcile").Start(ctx, "Delete")
	defer span.End()

	outcomes := make([]models.FileOutcome, 0, len(present))
	for _, m := range present {
		if ctx.Err() != nil {
			break
		}
		outcome := models.FileOutcome{
			Path:        m.Incoming.Path,
			Destination: m.Canonical.Path,
			Signature:   m.Incoming.Signature,
			Outcome:     models.OutcomeDeleted,
		}
		if err := r.remove(m.Incoming.Path); err != nil {
			outcome = r.failed(outcome, err, "remove")
		} else {
			r.logger.Info().Str("path", m.Incoming.Path).Str("canonical", m.Canonical.Path).Msg("Deleted duplicate")
		}
		outcomes = append(outcomes, outcome)
	}

	span.SetAttributes(attribute.Int("processed", len(outcomes)))
	return outcomes
}

// Migrate moves each new incoming file to canonicalRoot joined with its
// name. When the destination is occupied, the incoming file replaces it
// only if strictly newer than the file occupying the destination; otherwise
// it is left in place. canonical is updated as files land so that a second
// incoming copy of already migrated content is removed instead of moved.
func (r *Reconciler) Migrate(ctx context.Context, canonicalRoot string, incoming []models.FileRecord, canonical *index.Index) []models.FileOutcome {
	_, span := otel.Tracer("fsrecon/reconcile").Start(ctx, "Migrate")
	defer span.End()

	if canonical == nil {
		canonical = index.New()
	}

	outcomes := make([]models.FileOutcome, 0, len(incoming))
	for _, rec := range incoming {
		if ctx.Err() != nil {
			break
		}
		outcomes = append(outcomes, r.migrateOne(canonicalRoot, rec, canonical))
	}

	// A conflict left behind early may hold content that a later file
	// carried into canonical under another name.
	for i, o := range outcomes {
		if o.Outcome != models.OutcomeLeftAsConflict {
			continue
		}
		rep, ok := canonical.Representative(o.Signature)
		if !ok {
			continue
		}
		resolved := models.FileOutcome{
			Path:        o.Path,
			Destination: rep.Path,
			Signature:   o.Signature,
			Outcome:     models.OutcomeSkippedDuplicate,
		}
		if err := r.remove(o.Path); err != nil {
			resolved = r.failed(resolved, err, "remove")
		}
		outcomes[i] = resolved
	}

	span.SetAttributes(attribute.Int("processed", len(outcomes)))
	return outcomes
}

func (r *Reconciler) migrateOne(canonicalRoot string, rec models.FileRecord, canonical *index.Index) models.FileOutcome {
	dest := filepath.Join(canonicalRoot, rec.Name)
	outcome := models.FileOutcome{
		Path:        rec.Path,
		Destination: dest,
		Signature:   rec.Signature,
	}

	if rep, ok := canonical.Representative(rec.Signature); ok {
		outcome.Destination = rep.Path
		outcome.Outcome = models.OutcomeSkippedDuplicate
		if err := r.remove(rec.Path); err != nil {
			return r.failed(outcome, err, "remove")
		}
		r.logger.Info().Str("path", rec.Path).Str("canonical", rep.Path).Msg("Content already migrated, removed copy")
		return outcome
	}

	occupant, isDir, exists, err := r.occupant(dest)
	if err != nil {
		return r.failed(outcome, err, "stat destination")
	}

	if !exists {
		if err := r.move(rec, dest); err != nil {
			return r.failed(outcome, err, "move")
		}
		outcome.Outcome = models.OutcomeMovedNew
		canonical.Add(landed(rec, dest))
		r.logger.Info().Str("path", rec.Path).Str("destination", dest).Msg("Moved new file")
		return outcome
	}

	outcome.Reference = &occupant
	if isDir {
		outcome.Outcome = models.OutcomeLeftAsConflict
		r.logger.Warn().Str("path", rec.Path).Str("destination", dest).Msg("Name conflict with a directory; left in incoming")
		return outcome
	}
	if !rec.ModTime.After(occupant.ModTime) {
		outcome.Outcome = models.OutcomeLeftAsConflict
		r.logger.Warn().
			Str("path", rec.Path).
			Str("destination", dest).
			Time("incoming_mtime", rec.ModTime).
			Time("destination_mtime", occupant.ModTime).
			Msg("Name conflict, destination is as recent or newer; left in incoming")
		return outcome
	}

	if err := r.move(rec, dest); err != nil {
		return r.failed(outcome, err, "replace")
	}
	outcome.Outcome = models.OutcomeReplacedByRecency
	canonical.Remove(dest)
	canonical.Add(landed(rec, dest))
	r.logger.Info().Str("path", rec.Path).Str("destination", dest).Msg("Replaced older destination")
	return outcome
}

// occupant describes whatever currently sits at dest, as seen at decision
// time. A dry run also sees the destinations it has already claimed.
func (r *Reconciler) occupant(dest string) (ref models.Reference, isDir, exists bool, err error) {
	if mtime, ok := r.planned[dest]; ok {
		return models.Reference{Path: dest, ModTime: mtime}, false, true, nil
	}

	info, err := r.FS.Stat(dest)
	if os.IsNotExist(err) {
		return models.Reference{}, false, false, nil
	}
	if err != nil {
		return models.Reference{}, false, false, err
	}
	return models.Reference{Path: dest, ModTime: info.ModTime()}, info.IsDir(), true, nil
}

func (r *Reconciler) move(rec models.FileRecord, dest string) error {
	if r.DryRun {
		r.planned[dest] = rec.ModTime
		return nil
	}
	return moveFile(r.FS, rec.Path, dest)
}

func (r *Reconciler) remove(path string) error {
	if r.DryRun {
		return nil
	}
	return r.FS.Remove(path)
}

func (r *Reconciler) failed(outcome models.FileOutcome, err error, op string) models.FileOutcome {
	wrapped := errors.Wrapf(err, errors.ErrFSMutation, "%s %s", op, outcome.Path)
	r.logger.Warn().Err(err).Str("path", outcome.Path).Str("op", op).Msg("File operation failed")
	outcome.Outcome = models.OutcomeFailed
	outcome.Err = wrapped.Error()
	return outcome
}

func landed(rec models.FileRecord, dest string) models.FileRecord {
	rec.Path = dest
	return rec
}
