package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/dusk-indust/draveur/internal/engine"
	"github.com/dusk-indust/draveur/internal/export"
)

type crawlFlags struct {
	Format        string
	Output        string
	Stats         bool
	OnScriptError string
	Hidden        bool
	NoIgnore      bool
	MaxGraphs     int
	Progress      bool
}

func newCrawlCmd(a *app) *cobra.Command {
	var f crawlFlags
	cmd := &cobra.Command{
		Use:   "crawl [DIR]",
		Short: "Extract graphs from every matching file under DIR",
		Long: `Extract graphs from every file of the configured language under DIR
(default: the current directory) and print them.

Graphs are printed even when the run fails; the command then exits non-zero.

Formats:
  json     - a JSON array of graphs (default)
  mermaid  - a Mermaid flowchart with one subgraph per graph

Examples:
  draveur crawl ./src
  draveur crawl ./src --stats -o graphs.json
  draveur crawl ./src --language go --format mermaid`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runCrawl(cmd, dirArg(args), f)
		},
	}
	fl := cmd.Flags()
	fl.StringVar(&f.Format, "format", "", "output format: json or mermaid (default: config format or json)")
	fl.StringVarP(&f.Output, "output", "o", "", "write to this file instead of stdout")
	fl.BoolVar(&f.Stats, "stats", false, "wrap json output with run counters")
	fl.StringVar(&f.OnScriptError, "on-script-error", "", "abort or skip when a graph script fails")
	fl.BoolVar(&f.Hidden, "hidden", false, "include hidden files and directories")
	fl.BoolVar(&f.NoIgnore, "no-ignore", false, "do not honor .gitignore files")
	fl.IntVar(&f.MaxGraphs, "max-graphs", 0, "limit the graphs drawn by the mermaid format")
	fl.BoolVar(&f.Progress, "progress", false, "print one line per processed file on stderr")
	return cmd
}

func (a *app) runCrawl(cmd *cobra.Command, dir string, f crawlFlags) error {
	cfg, err := a.loadConfig(cmd, dir)
	if err != nil {
		return err
	}
	if f.OnScriptError != "" {
		cfg.OnScriptError = f.OnScriptError
	}
	cfg.Hidden = cfg.Hidden || f.Hidden
	cfg.NoIgnore = cfg.NoIgnore || f.NoIgnore
	if f.Format != "" {
		cfg.Format = f.Format
	}
	if cfg.Format == "" {
		cfg.Format = "json"
	}

	opts := a.engineOptions()
	var progressDone chan struct{}
	if f.Progress {
		pr := engine.NewProgressReporter(0)
		opts = append(opts, engine.WithProgress(pr))
		progressDone = make(chan struct{})
		go func() {
			defer close(progressDone)
			for ev := range pr.Subscribe() {
				fmt.Fprintln(a.stderr, engine.FormatProgress(ev))
			}
		}()
		defer func() {
			pr.Close()
			<-progressDone
		}()
	}

	e, err := cfg.Engine(opts...)
	if err != nil {
		return err
	}
	defer e.Close()

	res, runErr := e.Run(cmd.Context(), dir)

	var w io.Writer = cmd.OutOrStdout()
	if f.Output != "" {
		file, err := os.Create(f.Output)
		if err != nil {
			return fmt.Errorf("create output: %w", err)
		}
		defer file.Close()
		w = file
	}
	if err := writeResult(w, cfg.Format, f, dir, e.Language().Name(), res, runErr); err != nil {
		return err
	}
	if runErr != nil {
		return fmt.Errorf("crawl %s: %w", dir, runErr)
	}
	return nil
}

func writeResult(w io.Writer, format string, f crawlFlags, dir, language string, res *engine.Result, runErr error) error {
	switch {
	case format == "mermaid":
		if res == nil {
			return nil
		}
		_, err := io.WriteString(w, export.GenerateMermaid(res.Graphs, export.MermaidOptions{MaxGraphs: f.MaxGraphs}))
		return err
	case f.Stats:
		return export.WriteRun(w, export.NewRunExport(dir, language, res, runErr))
	case res == nil:
		return export.WriteJSON(w, nil)
	default:
		return export.WriteJSON(w, res.Graphs)
	}
}
