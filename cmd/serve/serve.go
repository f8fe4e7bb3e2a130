package serve

import (
	"context"
	"flag"
	"net/http"
	"time"

	"github.com/google/subcommands"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/nrtkbb/fsrecon/api"
	"github.com/nrtkbb/fsrecon/app"
	"github.com/nrtkbb/fsrecon/config"
	"github.com/nrtkbb/fsrecon/logging"
)

type Command struct {
	Config *config.Config

	dbPath string
	port   string
}

func (*Command) Name() string     { return "serve" }
func (*Command) Synopsis() string { return "Start HTTP server for the run history API" }
func (*Command) Usage() string {
	return `serve [-db <database>] [-port <port>]:
  Start an HTTP server that exposes recorded reconciliation runs as JSON and
  outcome totals as Prometheus metrics on /metrics.
`
}

func (c *Command) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.dbPath, "db", c.Config.History.Database, "history database file")
	f.StringVar(&c.port, "port", "8080", "port to listen on")
}

func (c *Command) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.dbPath == "" {
		f.Usage()
		return subcommands.ExitUsageError
	}
	logger := logging.GetLogger("serve")

	appCtx := app.NewAppContext(ctx, c.Config)
	defer appCtx.PerformCleanup()
	appCtx.SetupSignalHandling()

	if err := appCtx.OpenHistory(c.dbPath); err != nil {
		logger.Error().Err(err).Str("db", c.dbPath).Msg("Failed to setup database")
		return subcommands.ExitFailure
	}

	e := echo.New()
	e.HideBanner = true

	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	api.NewHandler(appCtx.DB).RegisterRoutes(e)

	go func() {
		<-appCtx.Context.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := e.Shutdown(shutdownCtx); err != nil {
			logger.Warn().Err(err).Msg("Server shutdown failed")
		}
	}()

	logger.Info().Str("port", c.port).Str("db", c.dbPath).Msg("Starting server")
	if err := e.Start(":" + c.port); err != nil && err != http.ErrServerClosed {
		logger.Error().Err(err).Msg("Failed to start server")
		return subcommands.ExitFailure
	}

	return subcommands.ExitSuccess
}
