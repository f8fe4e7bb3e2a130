package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"
	"github.com/nrtkbb/fsrecon/cmd/compare"
	"github.com/nrtkbb/fsrecon/cmd/dupes"
	"github.com/nrtkbb/fsrecon/cmd/history"
	"github.com/nrtkbb/fsrecon/cmd/merge"
	"github.com/nrtkbb/fsrecon/cmd/migrate"
	"github.com/nrtkbb/fsrecon/cmd/reconcile"
	"github.com/nrtkbb/fsrecon/cmd/serve"
	"github.com/nrtkbb/fsrecon/cmd/sum"
	"github.com/nrtkbb/fsrecon/cmd/testdata"
	"github.com/nrtkbb/fsrecon/cmd/version"
	"github.com/nrtkbb/fsrecon/config"
	"github.com/nrtkbb/fsrecon/logging"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
)

// initTracer installs a tracer provider that writes spans to stderr.
func initTracer() (*sdktrace.TracerProvider, error) {
	exporter, err := stdouttrace.New(stdouttrace.WithWriter(os.Stderr), stdouttrace.WithPrettyPrint())
	if err != nil {
		return nil, err
	}

	resource := resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(config.AppName),
		semconv.ServiceVersion(version.Version),
	)

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(resource),
	)
	otel.SetTracerProvider(tp)

	return tp, nil
}

func main() {
	configPath := flag.String("config", "", "config file (default ./fsrecon.yaml or ~/.config/fsrecon/fsrecon.yaml)")
	verbosity := flag.Int("v", -1, "log verbosity: 0 warn, 1 info, 2 debug, 3 trace (overrides config)")
	trace := flag.Bool("trace", false, "write OpenTelemetry spans to stderr")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "fsrecon: %v\n", err)
		os.Exit(int(subcommands.ExitUsageError))
	}
	if *verbosity >= 0 {
		cfg.Log.Verbosity = *verbosity
	}
	logging.SetupLogger(cfg.Log.Verbosity, cfg.Log.File)

	var tp *sdktrace.TracerProvider
	if *trace {
		if tp, err = initTracer(); err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize tracer")
		}
	}

	subcommands.Register(subcommands.HelpCommand(), "")
	subcommands.Register(subcommands.FlagsCommand(), "")
	subcommands.Register(subcommands.CommandsCommand(), "")

	subcommands.Register(&reconcile.Command{Config: cfg}, "reconcile")
	subcommands.Register(&compare.Command{Config: cfg}, "reconcile")
	subcommands.Register(&dupes.Command{Config: cfg}, "inspect")
	subcommands.Register(&sum.Command{Config: cfg}, "inspect")

	subcommands.Register(&history.Command{Config: cfg}, "history")
	subcommands.Register(&serve.Command{Config: cfg}, "history")
	subcommands.Register(&migrate.Command{Config: cfg}, "history")
	subcommands.Register(&merge.Command{}, "history")

	subcommands.Register(&version.Command{}, "")
	subcommands.Register(&testdata.Command{}, "")

	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(int(subcommands.ExitUsageError))
	}

	status := subcommands.Execute(context.Background())
	if tp != nil {
		if err := tp.Shutdown(context.Background()); err != nil {
			log.Warn().Err(err).Msg("Error shutting down tracer provider")
		}
	}
	os.Exit(int(status))
}
