package dupes

import (
	"context"
	"flag"
	"os"

	"github.com/google/subcommands"
	"github.com/nrtkbb/fsrecon/app"
	"github.com/nrtkbb/fsrecon/config"
	"github.com/nrtkbb/fsrecon/index"
	"github.com/nrtkbb/fsrecon/logging"
	"github.com/nrtkbb/fsrecon/models"
)

type Command struct {
	Config *config.Config

	root string
}

type result struct {
	Root         string                  `json:"root"`
	Groups       []models.DuplicateGroup `json:"groups"`
	ReadFailures []models.ReadFailure    `json:"read_failures,omitempty"`
}

func (*Command) Name() string     { return "dupes" }
func (*Command) Synopsis() string { return "List groups of files with identical content" }
func (*Command) Usage() string {
	return `dupes [-root <directory>]:
  Hash every file under the directory and print each group of two or more
  files sharing the same content as JSON. Defaults to the configured
  canonical root.
`
}

func (c *Command) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.root, "root", c.Config.Canonical, "directory to scan")
}

func (c *Command) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	logger := logging.GetLogger("dupes")

	appCtx := app.NewAppContext(ctx, c.Config)
	defer appCtx.PerformCleanup()
	appCtx.SetupSignalHandling()

	if err := config.ValidateRoot(appCtx.FS, "root", c.root); err != nil {
		logger.Error().Err(err).Msg("Invalid root")
		f.Usage()
		return subcommands.ExitUsageError
	}

	groups, failures, err := index.FindDuplicates(appCtx.Context, appCtx.FS, c.root, c.Config.ScannerOptions())
	if err != nil {
		logger.Error().Err(err).Msg("Duplicate search failed")
		return subcommands.ExitFailure
	}
	logger.Info().Int("groups", len(groups)).Int("read_failures", len(failures)).Msg("Duplicate search finished")

	if groups == nil {
		groups = []models.DuplicateGroup{}
	}
	if err := app.WriteJSON(os.Stdout, result{Root: c.root, Groups: groups, ReadFailures: failures}); err != nil {
		logger.Error().Err(err).Msg("Failed to write output")
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}
