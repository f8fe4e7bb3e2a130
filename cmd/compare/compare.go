package compare

import (
	"context"
	"flag"
	"os"

	"github.com/google/subcommands"
	"github.com/nrtkbb/fsrecon/app"
	fscompare "github.com/nrtkbb/fsrecon/compare"
	"github.com/nrtkbb/fsrecon/config"
	"github.com/nrtkbb/fsrecon/logging"
)

type Command struct {
	Config *config.Config

	canonical string
	incoming  string
}

func (*Command) Name() string     { return "compare" }
func (*Command) Synopsis() string { return "Classify incoming files as present in canonical or new" }
func (*Command) Usage() string {
	return `compare [-canonical <directory>] [-incoming <directory>]:
  Index the canonical tree by content, then print which incoming files are
  already present there and which are new. Nothing is modified.
`
}

func (c *Command) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.canonical, "canonical", c.Config.Canonical, "canonical directory")
	f.StringVar(&c.incoming, "incoming", c.Config.Incoming, "incoming directory")
}

func (c *Command) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	logger := logging.GetLogger("compare")

	appCtx := app.NewAppContext(ctx, c.Config)
	defer appCtx.PerformCleanup()
	appCtx.SetupSignalHandling()

	if err := config.ValidateRoots(appCtx.FS, c.canonical, c.incoming); err != nil {
		logger.Error().Err(err).Msg("Invalid roots")
		f.Usage()
		return subcommands.ExitUsageError
	}

	cmp, _, err := fscompare.New(appCtx.FS, c.Config.ScannerOptions()).Compare(appCtx.Context, c.canonical, c.incoming)
	if err != nil {
		logger.Error().Err(err).Msg("Comparison failed")
		return subcommands.ExitFailure
	}

	if err := app.WriteJSON(os.Stdout, cmp); err != nil {
		logger.Error().Err(err).Msg("Failed to write output")
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}
