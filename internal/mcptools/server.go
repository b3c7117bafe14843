package mcptools

import (
	"context"
	"net/http"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// version is set by the linker at build time.
var version = "dev"

// NewGraphMCPServer creates an MCP server with the graph extraction and
// query tools registered.
func NewGraphMCPServer(svc *GraphService) *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{
		Name:    "draveur",
		Version: version,
	}, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "extract_graph",
		Description: "Crawl a directory, parse every source file of one language with tree-sitter, run the graph scripts over the matched sub-trees and store the merged graphs. Replaces the graphs of any previous extraction.",
	}, svc.ExtractGraph)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "query_nodes",
		Description: "Search the stored graphs for nodes whose attribute (default: name) contains a substring, case-insensitive.",
	}, svc.QueryNodes)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_node",
		Description: "Return one node of the stored graphs, with its attributes and outgoing edges, by merged identifier.",
	}, svc.GetNode)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "reach",
		Description: "Walk edges from a node, forwards (out) or backwards (in), and return one path per reachable node up to the given depth.",
	}, svc.Reach)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "graph_stats",
		Description: "Count the stored graphs, nodes, edges and foreign edges, and group nodes by their type attribute.",
	}, svc.GraphStats)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "graph_clusters",
		Description: "Group the stored graphs that are joined by foreign edges, largest group first. Foreign edges exist only when extract_graph was called with linkLeaf and linkRoot.",
	}, svc.GraphClusters)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "list_languages",
		Description: "List the supported languages with their file extension and built-in mappings.",
	}, svc.ListLanguages)

	return server
}

// RunMCPServer starts an HTTP server exposing the graph MCP tools.
func RunMCPServer(ctx context.Context, svc *GraphService, addr string) error {
	server := NewGraphMCPServer(svc)

	handler := mcp.NewStreamableHTTPHandler(
		func(_ *http.Request) *mcp.Server { return server },
		nil,
	)

	httpServer := &http.Server{
		Addr:    addr,
		Handler: handler,
	}

	// Shutdown gracefully when context is cancelled.
	go func() {
		<-ctx.Done()
		httpServer.Shutdown(context.Background())
	}()

	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// RunMCPServerStdio runs the graph MCP server on stdio transport, blocking
// until stdin is closed or the context is cancelled.
func RunMCPServerStdio(ctx context.Context, svc *GraphService) error {
	return NewGraphMCPServer(svc).Run(ctx, &mcp.StdioTransport{})
}
