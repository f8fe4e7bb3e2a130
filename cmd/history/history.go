package history

import (
	"context"
	"flag"
	"os"

	"github.com/google/subcommands"
	"github.com/nrtkbb/fsrecon/app"
	"github.com/nrtkbb/fsrecon/config"
	"github.com/nrtkbb/fsrecon/db"
	"github.com/nrtkbb/fsrecon/logging"
)

type Command struct {
	Config *config.Config

	dbPath string
	limit  int
	runID  string
}

func (*Command) Name() string     { return "history" }
func (*Command) Synopsis() string { return "Show recorded reconciliation runs" }
func (*Command) Usage() string {
	return `history [-db <database>] [-limit <n>] [-run <id>]:
  Print the most recent runs from the history database as JSON, or the
  full report of one run with -run.
`
}

func (c *Command) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.dbPath, "db", c.Config.History.Database, "history database file")
	f.IntVar(&c.limit, "limit", 20, "number of runs to show")
	f.StringVar(&c.runID, "run", "", "show the full report of this run")
}

func (c *Command) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.dbPath == "" || c.limit <= 0 {
		f.Usage()
		return subcommands.ExitUsageError
	}
	logger := logging.GetLogger("history")

	appCtx := app.NewAppContext(ctx, c.Config)
	defer appCtx.PerformCleanup()

	if err := appCtx.OpenHistory(c.dbPath); err != nil {
		logger.Error().Err(err).Str("db", c.dbPath).Msg("Failed to open history database")
		return subcommands.ExitFailure
	}

	var out interface{}
	if c.runID != "" {
		report, err := db.LoadReport(appCtx.Context, appCtx.DB, c.runID)
		if err != nil {
			logger.Error().Err(err).Str("run_id", c.runID).Msg("Failed to load run")
			return subcommands.ExitFailure
		}
		out = report
	} else {
		runs, err := db.ListRuns(appCtx.Context, appCtx.DB, c.limit, 0)
		if err != nil {
			logger.Error().Err(err).Msg("Failed to list runs")
			return subcommands.ExitFailure
		}
		out = runs
	}

	if err := app.WriteJSON(os.Stdout, out); err != nil {
		logger.Error().Err(err).Msg("Failed to write output")
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}
