package migrate

import (
	"context"
	"flag"

	"github.com/google/subcommands"
	"github.com/nrtkbb/fsrecon/config"
	"github.com/nrtkbb/fsrecon/db"
	"github.com/nrtkbb/fsrecon/logging"
)

type Command struct {
	Config *config.Config

	dbPath string
}

func (*Command) Name() string     { return "migrate" }
func (*Command) Synopsis() string { return "Run database migrations" }
func (*Command) Usage() string {
	return `migrate [-db <database>]:
  Bring the schema of the run history database up to date.
`
}

func (c *Command) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.dbPath, "db", c.Config.History.Database, "history database file")
}

func (c *Command) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.dbPath == "" {
		f.Usage()
		return subcommands.ExitUsageError
	}
	logger := logging.GetLogger("migrate")

	logger.Info().Str("db", c.dbPath).Msg("Running database migrations")
	if err := db.RunMigrations(c.dbPath); err != nil {
		logger.Error().Err(err).Msg("Failed to run migrations")
		return subcommands.ExitFailure
	}
	logger.Info().Msg("Database migrations completed successfully")

	return subcommands.ExitSuccess
}
