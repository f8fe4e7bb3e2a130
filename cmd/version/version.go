package version

import (
	"context"
	"flag"
	"fmt"
	"os"
	"runtime"

	"github.com/google/subcommands"
	"github.com/nrtkbb/fsrecon/app"
)

var (
	// These variables are set by goreleaser
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

type Info struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	Date      string `json:"date"`
	GoVersion string `json:"go_version"`
	Platform  string `json:"platform"`
}

func Get() Info {
	return Info{
		Version:   Version,
		Commit:    Commit,
		Date:      Date,
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
	}
}

type Command struct {
	json bool
}

func (*Command) Name() string     { return "version" }
func (*Command) Synopsis() string { return "Print version information" }
func (*Command) Usage() string {
	return `version [-json]:
  Print version, build commit, build date and toolchain.
`
}

func (c *Command) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.json, "json", false, "print as JSON")
}

func (c *Command) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	info := Get()
	if c.json {
		if err := app.WriteJSON(os.Stdout, info); err != nil {
			return subcommands.ExitFailure
		}
		return subcommands.ExitSuccess
	}

	fmt.Printf("fsrecon %s (%s)\n", info.Version, info.Platform)
	fmt.Printf("commit: %s\n", info.Commit)
	fmt.Printf("built: %s with %s\n", info.Date, info.GoVersion)
	return subcommands.ExitSuccess
}
