package testdata

import (
	"context"
	"flag"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/subcommands"
	"github.com/nrtkbb/fsrecon/logging"
	"github.com/spf13/afero"
)

type Command struct {
	outputDir string
}

func (*Command) Name() string     { return "testdata" }
func (*Command) Synopsis() string { return "Generate a canonical and incoming tree to reconcile" }
func (*Command) Usage() string {
	return `testdata -out <directory>:
  Create <directory>/canonical and <directory>/incoming populated so that a
  reconcile run between them produces every kind of outcome: deletions, new
  files, replacement by a newer file, name conflicts, and content that
  arrives twice.
`
}

func (c *Command) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.outputDir, "out", "", "output directory path (required)")
}

func (c *Command) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.outputDir == "" {
		f.Usage()
		return subcommands.ExitUsageError
	}
	logger := logging.GetLogger("testdata")

	n, err := Generate(afero.NewOsFs(), c.outputDir)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to generate test data")
		return subcommands.ExitFailure
	}
	logger.Info().
		Int("files", n).
		Str("canonical", filepath.Join(c.outputDir, "canonical")).
		Str("incoming", filepath.Join(c.outputDir, "incoming")).
		Msg("Generated test data")

	return subcommands.ExitSuccess
}

type fixture struct {
	path    string
	content string
	mtime   time.Time
}

var (
	older = time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	mid   = time.Date(2021, 6, 1, 0, 0, 0, 0, time.UTC)
	newer = time.Date(2023, 3, 15, 0, 0, 0, 0, time.UTC)
)

var fixtures = []fixture{
	// canonical
	{"canonical/a.txt", "X", older},
	{"canonical/b.txt", "Y", older},
	{"canonical/archive/a-copy.txt", "X", older},
	{"canonical/report.doc", "report v1", older},
	{"canonical/notes.txt", "notes, kept", newer},
	{"canonical/photos/cover.jpg", "jpeg bytes", older},
	{"canonical/big.log", strings.Repeat("Large content repeated ", 1000), older},

	// incoming: same content as canonical, deleted
	{"incoming/c.txt", "X", mid},
	{"incoming/deep/nested/b-again.txt", "Y", mid},
	{"incoming/big-copy.log", strings.Repeat("Large content repeated ", 1000), mid},

	// incoming: new content, moved flat into canonical
	{"incoming/d.txt", "Z", mid},
	{"incoming/music/song.mp3", "mp3 bytes", mid},

	// incoming: newer than the canonical file of the same name, replaces it
	{"incoming/report.doc", "report v2", mid},

	// incoming: older than the canonical file of the same name, left alone
	{"incoming/notes.txt", "notes, stale", mid},

	// incoming: a directory holds the name in canonical, left alone
	{"incoming/photos", "not a directory", mid},

	// incoming: the same new content twice, the second is removed
	{"incoming/x/clip.mov", "mov bytes", mid},
	{"incoming/y/clip-copy.mov", "mov bytes", mid},
}

// Generate writes the fixture trees under outputDir and returns the number
// of files written.
func Generate(fsys afero.Fs, outputDir string) (int, error) {
	for _, fx := range fixtures {
		path := filepath.Join(outputDir, filepath.FromSlash(fx.path))
		if err := fsys.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return 0, fmt.Errorf("failed to create directory for %s: %w", fx.path, err)
		}
		if err := afero.WriteFile(fsys, path, []byte(fx.content), 0644); err != nil {
			return 0, fmt.Errorf("failed to create file %s: %w", fx.path, err)
		}
		if err := fsys.Chtimes(path, fx.mtime, fx.mtime); err != nil {
			return 0, fmt.Errorf("failed to set times on %s: %w", fx.path, err)
		}
	}
	return len(fixtures), nil
}
