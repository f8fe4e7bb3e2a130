package app

import (
	"context"
	"database/sql"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/nrtkbb/fsrecon/config"
	"github.com/nrtkbb/fsrecon/db"
	"github.com/nrtkbb/fsrecon/logging"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"
)

const forceQuitWindow = 5 * time.Second

// AppContext carries what a subcommand needs for one invocation: the
// filesystem it works on, the optional history database and a cancellable
// context tied to SIGINT/SIGTERM.
type AppContext struct {
	Config  *config.Config
	FS      afero.Fs
	DB      *sql.DB
	Context context.Context
	Cancel  context.CancelFunc
	Cleanup sync.Once

	logger zerolog.Logger
}

func NewAppContext(parentCtx context.Context, cfg *config.Config) *AppContext {
	ctx, cancel := context.WithCancel(parentCtx)
	return &AppContext{
		Config:  cfg,
		FS:      afero.NewOsFs(),
		Context: ctx,
		Cancel:  cancel,
		logger:  logging.GetLogger("app"),
	}
}

// OpenHistory opens the run history database. An empty path leaves DB nil.
func (app *AppContext) OpenHistory(path string) error {
	if path == "" {
		return nil
	}
	database, err := db.SetupDatabase(path)
	if err != nil {
		return err
	}
	app.DB = database
	return nil
}

// SetupSignalHandling cancels the context on the first SIGINT or SIGTERM so
// the current file finishes and the run stops cleanly. A second signal
// within five seconds exits immediately.
func (app *AppContext) SetupSignalHandling() {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	var forceQuit atomic.Bool

	go func() {
		for sig := range sigChan {
			app.logger.Warn().Str("signal", sig.String()).Msg("Received signal")
			if forceQuit.Load() {
				app.logger.Error().Msg("Forcing immediate shutdown")
				os.Exit(1)
			}

			forceQuit.Store(true)
			app.logger.Warn().Msg("Finishing the current file. Press Ctrl+C again to force quit")
			app.Cancel()

			go func() {
				time.Sleep(forceQuitWindow)
				forceQuit.Store(false)
			}()
		}
	}()
}

// PerformCleanup releases the database once, however many times it is called.
func (app *AppContext) PerformCleanup() {
	app.Cleanup.Do(func() {
		app.Cancel()

		if app.DB != nil {
			app.logger.Debug().Msg("Closing history database")

			if _, err := app.DB.Exec("PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
				app.logger.Warn().Err(err).Msg("WAL checkpoint failed")
			}
			if err := app.DB.Close(); err != nil {
				app.logger.Warn().Err(err).Msg("Error closing database")
			}
		}
	})
}
