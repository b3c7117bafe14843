// Command draveur extracts graphs from source trees: it crawls a directory,
// matches tree-sitter patterns in every file and builds one graph per match.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/dusk-indust/draveur/internal/config"
	"github.com/dusk-indust/draveur/internal/engine"
)

// version is set by goreleaser at build time.
var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd(os.Stdout, os.Stderr).ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// globalFlags are shared by every subcommand.
type globalFlags struct {
	ConfigPath  string
	Language    string
	Threads     int
	Verbose     bool
	MetricsAddr string
}

// app carries the state built from the global flags.
type app struct {
	flags   globalFlags
	stderr  io.Writer
	logger  *slog.Logger
	metrics *engine.Metrics
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	a := &app{stderr: stderr}

	root := &cobra.Command{
		Use:   "draveur",
		Short: "Build graphs from tree-sitter pattern matches",
		Long: `draveur walks a source tree in parallel, parses every file of the
configured language, matches tree-sitter patterns and runs a graph script
over each match.

Settings are read from draveur.yml in the crawled directory unless --config
names another file. Flags override file values.

Examples:
  draveur crawl ./src
  draveur crawl ./src --format mermaid
  draveur watch ./src --addr :3000
  draveur serve-mcp`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd.Context())
		},
	}
	root.SetOut(stdout)
	root.SetErr(stderr)

	pf := root.PersistentFlags()
	pf.StringVar(&a.flags.ConfigPath, "config", "", "path to a config file (default: draveur.yml in the crawled directory)")
	pf.StringVar(&a.flags.Language, "language", "", "language to extract (default: python)")
	pf.IntVar(&a.flags.Threads, "threads", 0, "worker count (default: THREADS or the number of CPUs)")
	pf.BoolVar(&a.flags.Verbose, "verbose", false, "enable debug logging")
	pf.StringVar(&a.flags.MetricsAddr, "metrics-addr", "", "serve prometheus metrics on this address")

	root.AddCommand(
		newCrawlCmd(a),
		newWatchCmd(a),
		newServeMCPCmd(a),
		newLanguagesCmd(),
		newVersionCmd(),
	)
	return root
}

// setup configures logging and, when requested, the metrics endpoint.
func (a *app) setup(ctx context.Context) error {
	level := slog.LevelInfo
	if a.flags.Verbose {
		level = slog.LevelDebug
	}
	a.logger = slog.New(slog.NewTextHandler(a.stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(a.logger)

	if a.flags.MetricsAddr == "" {
		return nil
	}
	reg := prometheus.NewRegistry()
	a.metrics = engine.NewMetrics(reg)
	srv := &http.Server{
		Addr:    a.flags.MetricsAddr,
		Handler: promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
	}
	go func() {
		<-ctx.Done()
		srv.Shutdown(context.Background())
	}()
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			a.logger.Error("metrics server stopped", slog.String("error", err.Error()))
		}
	}()
	a.logger.Debug("metrics listening", slog.String("addr", a.flags.MetricsAddr))
	return nil
}

// loadConfig reads the config for dir and applies the flag overrides.
func (a *app) loadConfig(cmd *cobra.Command, dir string) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if a.flags.ConfigPath != "" {
		cfg, err = config.LoadFile(a.flags.ConfigPath)
	} else {
		cfg, err = config.Load(dir)
	}
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("language") && a.flags.Language != cfg.LanguageOrDefault() {
		cfg.Language = a.flags.Language
		// The allowlist only applies to python class decorators.
		cfg.Decorators = nil
	}
	if flags.Changed("threads") {
		cfg.Threads = a.flags.Threads
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// engineOptions returns the options shared by every engine the CLI builds.
func (a *app) engineOptions() []engine.Option {
	opts := []engine.Option{engine.WithLogger(a.logger)}
	if a.metrics != nil {
		opts = append(opts, engine.WithMetrics(a.metrics))
	}
	return opts
}

func dirArg(args []string) string {
	if len(args) == 0 {
		return "."
	}
	return args[0]
}
