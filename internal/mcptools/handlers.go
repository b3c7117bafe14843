package mcptools

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/dusk-indust/draveur/internal/config"
	"github.com/dusk-indust/draveur/internal/engine"
	"github.com/dusk-indust/draveur/internal/graph"
	"github.com/dusk-indust/draveur/internal/lang"
)

// GraphService holds the graph store and base configuration used by MCP tool
// handlers.
type GraphService struct {
	store graph.Store
	base  config.Config
	opts  []engine.Option

	// runs serializes extraction; the store itself is safe for concurrent
	// readers.
	runs sync.Mutex
}

// NewGraphService creates a GraphService. base supplies the defaults of
// every extraction (nil means the zero config) and opts are passed to every
// engine built.
func NewGraphService(store graph.Store, base *config.Config, opts ...engine.Option) *GraphService {
	s := &GraphService{store: store, opts: opts}
	if base != nil {
		s.base = *base
	}
	return s
}

// ExtractGraph crawls a directory, builds the graphs and replaces the store
// contents with them.
func (s *GraphService) ExtractGraph(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input ExtractGraphInput,
) (*mcp.CallToolResult, ExtractGraphOutput, error) {
	if input.Root == "" {
		return nil, ExtractGraphOutput{}, fmt.Errorf("root is required")
	}
	info, err := os.Stat(input.Root)
	if err != nil {
		return nil, ExtractGraphOutput{}, fmt.Errorf("cannot access root: %w", err)
	}
	if !info.IsDir() {
		return nil, ExtractGraphOutput{}, fmt.Errorf("root is not a directory: %s", input.Root)
	}

	cfg := s.base
	if input.Language != "" {
		cfg.Language = strings.ToLower(input.Language)
		if !strings.EqualFold(input.Language, s.base.LanguageOrDefault()) {
			// Decorator allowlists only apply to the configured language.
			cfg.Decorators = nil
		}
	}
	if input.Threads > 0 {
		cfg.Threads = input.Threads
	}
	if input.LinkLeaf != "" || input.LinkRoot != "" {
		if input.LinkLeaf == "" || input.LinkRoot == "" {
			return nil, ExtractGraphOutput{}, fmt.Errorf("linkLeaf and linkRoot must be given together")
		}
		cfg.Link = config.Link{Enabled: true, LeafAttr: input.LinkLeaf, RootAttr: input.LinkRoot}
	}

	s.runs.Lock()
	defer s.runs.Unlock()

	e, err := cfg.Engine(s.opts...)
	if err != nil {
		return nil, ExtractGraphOutput{}, err
	}
	defer e.Close()

	res, runErr := e.Run(ctx, input.Root)
	if res == nil {
		return nil, ExtractGraphOutput{}, runErr
	}
	if err := s.store.Replace(ctx, res.Graphs); err != nil {
		return nil, ExtractGraphOutput{}, fmt.Errorf("store graphs: %w", err)
	}

	out := ExtractGraphOutput{
		Files:   res.Files,
		Failed:  res.Failed,
		Matches: res.Matches,
		Graphs:  len(res.Graphs),
		Nodes:   res.Nodes(),
		Foreign: res.Foreign,
	}
	if runErr != nil {
		out.Error = runErr.Error()
	}
	return nil, out, nil
}

// QueryNodes searches for nodes by attribute substring match.
func (s *GraphService) QueryNodes(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input QueryNodesInput,
) (*mcp.CallToolResult, QueryNodesOutput, error) {
	attr := input.Attr
	if attr == "" {
		attr = "name"
	}
	limit := input.Limit
	if limit <= 0 {
		limit = 20
	}

	nodes, err := s.store.FindNodes(ctx, attr, input.Query, limit)
	if err != nil {
		return nil, QueryNodesOutput{}, fmt.Errorf("find nodes: %w", err)
	}
	out := QueryNodesOutput{Nodes: make([]NodeView, 0, len(nodes)), Total: len(nodes)}
	for _, n := range nodes {
		out.Nodes = append(out.Nodes, nodeView(n))
	}
	return nil, out, nil
}

// GetNode returns one node by merged identifier.
func (s *GraphService) GetNode(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input GetNodeInput,
) (*mcp.CallToolResult, GetNodeOutput, error) {
	n, err := s.store.Node(ctx, input.ID)
	if err != nil {
		return nil, GetNodeOutput{}, fmt.Errorf("get node: %w", err)
	}
	if n == nil {
		return nil, GetNodeOutput{}, nil
	}
	view := nodeView(n)
	return nil, GetNodeOutput{Node: &view, Found: true}, nil
}

// Reach traverses edges from a node.
func (s *GraphService) Reach(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input ReachInput,
) (*mcp.CallToolResult, ReachOutput, error) {
	direction := graph.DirectionOut
	if strings.EqualFold(input.Direction, string(graph.DirectionIn)) {
		direction = graph.DirectionIn
	}
	maxDepth := input.MaxDepth
	if maxDepth <= 0 {
		maxDepth = 5
	}

	paths, err := s.store.Reach(ctx, input.ID, direction, maxDepth)
	if err != nil {
		return nil, ReachOutput{}, fmt.Errorf("reach: %w", err)
	}
	if paths == nil {
		paths = []graph.Path{}
	}
	return nil, ReachOutput{Paths: paths}, nil
}

// GraphStats summarizes the stored graphs.
func (s *GraphService) GraphStats(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	_ GraphStatsInput,
) (*mcp.CallToolResult, GraphStatsOutput, error) {
	st, err := s.store.Stats(ctx)
	if err != nil {
		return nil, GraphStatsOutput{}, fmt.Errorf("stats: %w", err)
	}
	return nil, GraphStatsOutput{Stats: *st}, nil
}

// GraphClusters returns the groups of stored graphs joined by foreign edges.
func (s *GraphService) GraphClusters(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input GraphClustersInput,
) (*mcp.CallToolResult, GraphClustersOutput, error) {
	clusters, err := s.store.Clusters(ctx)
	if err != nil {
		return nil, GraphClustersOutput{}, fmt.Errorf("clusters: %w", err)
	}
	if input.Limit > 0 && len(clusters) > input.Limit {
		clusters = clusters[:input.Limit]
	}
	if clusters == nil {
		clusters = []graph.Cluster{}
	}
	return nil, GraphClustersOutput{Clusters: clusters}, nil
}

// ListLanguages returns the supported languages and their built-in
// mappings.
func (s *GraphService) ListLanguages(
	_ context.Context,
	_ *mcp.CallToolRequest,
	_ ListLanguagesInput,
) (*mcp.CallToolResult, ListLanguagesOutput, error) {
	var out ListLanguagesOutput
	for _, name := range lang.Names() {
		l, err := lang.Lookup(name)
		if err != nil {
			return nil, ListLanguagesOutput{}, err
		}
		info := LanguageInfo{Name: l.Name(), Extension: l.Extension()}
		for _, m := range l.Mappings() {
			info.Mappings = append(info.Mappings, m.Name)
		}
		out.Languages = append(out.Languages, info)
	}
	return nil, out, nil
}
