package sum

import (
	"context"
	"flag"
	"os"

	"github.com/docker/go-units"
	"github.com/google/subcommands"
	"github.com/nrtkbb/fsrecon/app"
	"github.com/nrtkbb/fsrecon/categories"
	"github.com/nrtkbb/fsrecon/config"
	"github.com/nrtkbb/fsrecon/logging"
	"github.com/nrtkbb/fsrecon/models"
	"github.com/samber/lo"
)

type Command struct {
	Config *config.Config

	root string
}

type line struct {
	models.CategoryTotal
	Human string `json:"human"`
}

type result struct {
	Root         string               `json:"root"`
	Categories   []line               `json:"categories"`
	ReadFailures []models.ReadFailure `json:"read_failures,omitempty"`
}

func (*Command) Name() string     { return "sum" }
func (*Command) Synopsis() string { return "Total file sizes per category" }
func (*Command) Usage() string {
	return `sum [-root <directory>]:
  Total the size and count of files under the directory for each
  configured extension category. Files matching no category count as other.
`
}

func (c *Command) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.root, "root", c.Config.Canonical, "directory to total")
}

func (c *Command) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	logger := logging.GetLogger("sum")

	appCtx := app.NewAppContext(ctx, c.Config)
	defer appCtx.PerformCleanup()
	appCtx.SetupSignalHandling()

	if err := config.ValidateRoot(appCtx.FS, "root", c.root); err != nil {
		logger.Error().Err(err).Msg("Invalid root")
		f.Usage()
		return subcommands.ExitUsageError
	}

	table := categories.NewTable(c.Config.Categories)
	totals, failures, err := categories.Sum(appCtx.Context, appCtx.FS, c.root, table)
	if err != nil {
		logger.Error().Err(err).Msg("Category totals failed")
		return subcommands.ExitFailure
	}

	lines := lo.Map(totals, func(t models.CategoryTotal, _ int) line {
		return line{CategoryTotal: t, Human: units.HumanSize(float64(t.Bytes))}
	})
	if err := app.WriteJSON(os.Stdout, result{Root: c.root, Categories: lines, ReadFailures: failures}); err != nil {
		logger.Error().Err(err).Msg("Failed to write output")
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}
