package mcptools

import "github.com/dusk-indust/draveur/internal/graph"

// --- MCP Tool Input Types ---
// These structs define the JSON schema for each MCP tool's input.
// The MCP Go SDK auto-generates JSON schemas from struct tags.

// ExtractGraphInput is the input for the extract_graph MCP tool.
type ExtractGraphInput struct {
	Root     string `json:"root" jsonschema:"the absolute path of the directory to crawl"`
	Language string `json:"language,omitempty" jsonschema:"language to extract (default from draveur.yml, else python). Values: go, python, rust, typescript"`
	Threads  int    `json:"threads,omitempty" jsonschema:"worker count (default: THREADS or the number of CPUs)"`
	LinkLeaf string `json:"linkLeaf,omitempty" jsonschema:"leaf attribute to link on, e.g. name; with linkRoot, adds foreign edges from matching leaves to the roots of other graphs"`
	LinkRoot string `json:"linkRoot,omitempty" jsonschema:"root attribute the leaf attribute is compared with"`
}

// ExtractGraphOutput is the result of the extract_graph MCP tool.
type ExtractGraphOutput struct {
	Files   int    `json:"files"`
	Failed  int    `json:"failed"`
	Matches int    `json:"matches"`
	Graphs  int    `json:"graphs"`
	Nodes   int    `json:"nodes"`
	Foreign int    `json:"foreignEdges"`
	Error   string `json:"error,omitempty" jsonschema:"the first error of the run; graphs of the other files are still stored"`
}

// QueryNodesInput is the input for the query_nodes MCP tool.
type QueryNodesInput struct {
	Query string `json:"query" jsonschema:"substring to search for (case-insensitive)"`
	Attr  string `json:"attr,omitempty" jsonschema:"attribute to search (default: name)"`
	Limit int    `json:"limit,omitempty" jsonschema:"maximum number of results (default: 20)"`
}

// QueryNodesOutput is the result of the query_nodes MCP tool.
type QueryNodesOutput struct {
	Nodes []NodeView `json:"nodes"`
	Total int        `json:"total"`
}

// GetNodeInput is the input for the get_node MCP tool.
type GetNodeInput struct {
	ID uint64 `json:"id" jsonschema:"merged node identifier"`
}

// GetNodeOutput is the result of the get_node MCP tool.
type GetNodeOutput struct {
	Node  *NodeView `json:"node,omitempty"`
	Found bool      `json:"found"`
}

// ReachInput is the input for the reach MCP tool.
type ReachInput struct {
	ID        uint64 `json:"id" jsonschema:"merged node identifier to start from"`
	Direction string `json:"direction,omitempty" jsonschema:"out (follow edges) or in (follow edges backwards). Default: out"`
	MaxDepth  int    `json:"maxDepth,omitempty" jsonschema:"maximum traversal depth (default: 5)"`
}

// ReachOutput is the result of the reach MCP tool.
type ReachOutput struct {
	Paths []graph.Path `json:"paths"`
}

// GraphStatsInput is the input for the graph_stats MCP tool.
type GraphStatsInput struct{}

// GraphStatsOutput is the result of the graph_stats MCP tool.
type GraphStatsOutput struct {
	Stats graph.Stats `json:"stats"`
}

// GraphClustersInput is the input for the graph_clusters MCP tool.
type GraphClustersInput struct {
	Limit int `json:"limit,omitempty" jsonschema:"maximum clusters to return, largest first (default: all)"`
}

// GraphClustersOutput is the result of the graph_clusters MCP tool.
type GraphClustersOutput struct {
	Clusters []graph.Cluster `json:"clusters"`
}

// ListLanguagesInput is the input for the list_languages MCP tool.
type ListLanguagesInput struct{}

// LanguageInfo describes one supported language.
type LanguageInfo struct {
	Name      string   `json:"name"`
	Extension string   `json:"extension"`
	Mappings  []string `json:"mappings"`
}

// ListLanguagesOutput is the result of the list_languages MCP tool.
type ListLanguagesOutput struct {
	Languages []LanguageInfo `json:"languages"`
}

// NodeView is a node with plain attribute values, for tool output.
type NodeView struct {
	ID    uint64         `json:"id"`
	Attrs map[string]any `json:"attrs"`
	Edges []EdgeView     `json:"edges"`
}

// EdgeView is an outgoing edge of a NodeView.
type EdgeView struct {
	Sink  uint64         `json:"sink"`
	Attrs map[string]any `json:"attrs"`
}

func attrsView(attrs graph.Attrs) map[string]any {
	out := make(map[string]any, len(attrs))
	for k, v := range attrs {
		out[k] = v.Interface()
	}
	return out
}

func nodeView(n *graph.Node) NodeView {
	view := NodeView{ID: n.ID, Attrs: attrsView(n.Attrs), Edges: make([]EdgeView, 0, len(n.Edges))}
	for _, e := range n.Edges {
		view.Edges = append(view.Edges, EdgeView{Sink: e.Sink, Attrs: attrsView(e.Attrs)})
	}
	return view
}
