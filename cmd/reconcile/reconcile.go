package reconcile

import (
	"context"
	"flag"
	"os"

	"github.com/google/subcommands"
	"github.com/nrtkbb/fsrecon/app"
	"github.com/nrtkbb/fsrecon/config"
	"github.com/nrtkbb/fsrecon/db"
	"github.com/nrtkbb/fsrecon/errors"
	"github.com/nrtkbb/fsrecon/logging"
	fsreconcile "github.com/nrtkbb/fsrecon/reconcile"
)

type Command struct {
	Config *config.Config

	canonical string
	incoming  string
	dryRun    bool
	dbPath    string
}

func (*Command) Name() string     { return "reconcile" }
func (*Command) Synopsis() string { return "Fold an incoming tree into the canonical tree" }
func (*Command) Usage() string {
	return `reconcile [-canonical <directory>] [-incoming <directory>] [-dry-run] [-db <database>]:
  Delete incoming files whose content already exists in canonical, then move
  the remaining incoming files to the top of canonical. When a file of the
  same name is already there, the newer of the two wins; an older or equally
  old incoming file is left where it is. Prints the run report as JSON and
  exits non-zero when any file operation failed.
`
}

func (c *Command) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.canonical, "canonical", c.Config.Canonical, "canonical directory")
	f.StringVar(&c.incoming, "incoming", c.Config.Incoming, "incoming directory")
	f.BoolVar(&c.dryRun, "dry-run", c.Config.Reconcile.DryRun, "report what would happen without touching either tree")
	f.StringVar(&c.dbPath, "db", c.Config.History.Database, "record the run in this history database")
}

func (c *Command) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	logger := logging.GetLogger("reconcile")

	appCtx := app.NewAppContext(ctx, c.Config)
	defer appCtx.PerformCleanup()
	appCtx.SetupSignalHandling()

	if err := config.ValidateRoots(appCtx.FS, c.canonical, c.incoming); err != nil {
		logger.Error().Err(err).Msg("Invalid roots")
		f.Usage()
		return subcommands.ExitUsageError
	}
	if err := appCtx.OpenHistory(c.dbPath); err != nil {
		logger.Error().Err(err).Str("db", c.dbPath).Msg("Failed to open history database")
		return subcommands.ExitFailure
	}

	r := fsreconcile.New(appCtx.FS, c.Config.ScannerOptions(), c.dryRun)
	report, runErr := r.Run(appCtx.Context, c.canonical, c.incoming)
	if runErr != nil && !errors.IsErrorCode(runErr, errors.ErrCancelled) {
		logger.Error().Err(runErr).Msg("Reconciliation failed")
		return subcommands.ExitFailure
	}

	if appCtx.DB != nil {
		// a cancelled run is recorded too
		if err := db.SaveReport(context.Background(), appCtx.DB, report); err != nil {
			logger.Error().Err(err).Str("run_id", report.RunID).Msg("Failed to record run")
		} else {
			logger.Info().Str("run_id", report.RunID).Str("db", c.dbPath).Msg("Run recorded")
		}
	}

	if err := app.WriteJSON(os.Stdout, report); err != nil {
		logger.Error().Err(err).Msg("Failed to write output")
		return subcommands.ExitFailure
	}

	if runErr != nil {
		logger.Warn().Err(runErr).Msg("Reconciliation interrupted")
		return subcommands.ExitFailure
	}
	if err := report.Err(); err != nil {
		logger.Error().Err(err).Msg("Some files could not be processed")
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}
