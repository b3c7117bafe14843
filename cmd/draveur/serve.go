package main

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/dusk-indust/draveur/internal/graph"
	"github.com/dusk-indust/draveur/internal/mcptools"
)

func newServeMCPCmd(a *app) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve-mcp",
		Short: "Run the graph tools as an MCP server",
		Long: `Expose graph extraction and lookup as MCP tools: extract_graph,
query_nodes, get_node, reach, graph_stats, graph_clusters and
list_languages.

The server speaks stdio unless --addr is given, in which case it serves
streamable HTTP on that address.

Examples:
  draveur serve-mcp
  draveur serve-mcp --addr :8090`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := a.loadConfig(cmd, ".")
			if err != nil {
				return err
			}
			svc := mcptools.NewGraphService(graph.NewMemStore(), cfg, a.engineOptions()...)
			if addr == "" {
				return mcptools.RunMCPServerStdio(cmd.Context(), svc)
			}
			a.logger.Info("mcp server listening", slog.String("addr", addr))
			return mcptools.RunMCPServer(cmd.Context(), svc, addr)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "serve streamable HTTP on this address instead of stdio")
	return cmd
}
