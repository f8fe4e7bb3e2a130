package merge

import (
	"context"
	"flag"

	"github.com/google/subcommands"
	"github.com/nrtkbb/fsrecon/db"
	"github.com/nrtkbb/fsrecon/logging"
)

type Command struct {
	sourceDB string
	destDB   string
}

func (*Command) Name() string     { return "merge" }
func (*Command) Synopsis() string { return "Merge two run history databases" }
func (*Command) Usage() string {
	return `merge -source <source.db> -dest <dest.db>:
  Copy every run recorded in the source database that the destination
  database does not already hold.
`
}

func (c *Command) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.sourceDB, "source", "", "source database file (required)")
	f.StringVar(&c.destDB, "dest", "", "destination database file (required)")
}

func (c *Command) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.sourceDB == "" || c.destDB == "" {
		f.Usage()
		return subcommands.ExitUsageError
	}
	logger := logging.GetLogger("merge")

	copied, err := db.MergeDatabase(ctx, c.sourceDB, c.destDB)
	if err != nil {
		logger.Error().Err(err).Int("copied", copied).Msg("Merge failed")
		return subcommands.ExitFailure
	}
	logger.Info().Int("copied", copied).Str("dest", c.destDB).Msg("Merge completed")

	return subcommands.ExitSuccess
}
