package main

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/dusk-indust/draveur/internal/engine"
	"github.com/dusk-indust/draveur/internal/graph"
	"github.com/dusk-indust/draveur/internal/viewer"
)

func newWatchCmd(a *app) *cobra.Command {
	var (
		addr     string
		debounce time.Duration
	)
	cmd := &cobra.Command{
		Use:   "watch [DIR]",
		Short: "Serve live graphs of DIR, re-extracting on change",
		Long: `Extract graphs from DIR, serve them on a web page and re-run the
extraction whenever a file of the configured language changes.

Routes:
  /        - the viewer page
  /graphs  - the latest extraction as JSON
  /ws      - websocket pushing every new extraction

Examples:
  draveur watch ./src
  draveur watch ./src --addr :8080 --debounce 500ms`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := dirArg(args)
			cfg, err := a.loadConfig(cmd, dir)
			if err != nil {
				return err
			}
			e, err := cfg.Engine(a.engineOptions()...)
			if err != nil {
				return err
			}
			defer e.Close()

			srv := viewer.New(
				func(ctx context.Context) (*engine.Result, error) { return e.Run(ctx, dir) },
				viewer.WithLogger(a.logger),
				viewer.WithStore(graph.NewMemStore()),
			)
			return srv.Serve(cmd.Context(), addr, viewer.NewWatcher(dir, e.Language().Extension(), debounce))
		},
	}
	cmd.Flags().StringVar(&addr, "addr", ":3000", "listen address")
	cmd.Flags().DurationVar(&debounce, "debounce", viewer.DefaultDebounce, "quiet period before re-extracting")
	return cmd
}
