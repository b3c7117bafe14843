package export

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/dusk-indust/draveur/internal/graph"
)

// MermaidOptions controls diagram generation.
type MermaidOptions struct {
	// LabelAttr names the node attribute used as label; "name" when empty.
	// Nodes without it fall back to their "type" attribute, then their id.
	LabelAttr string
	// MaxGraphs limits the number of graphs drawn; <= 0 draws all.
	MaxGraphs int
}

// GenerateMermaid produces a Mermaid graph TD diagram. Every graph becomes a
// subgraph titled after its root; edges are labelled with their "kind"
// attribute and foreign edges are dashed.
func GenerateMermaid(graphs []*graph.Graph, opts MermaidOptions) string {
	if opts.LabelAttr == "" {
		opts.LabelAttr = "name"
	}
	if opts.MaxGraphs > 0 && len(graphs) > opts.MaxGraphs {
		graphs = graphs[:opts.MaxGraphs]
	}

	drawn := make(map[uint64]bool)
	var sb strings.Builder
	sb.WriteString("graph TD\n")

	for i, g := range graphs {
		root := g.Root()
		if root == nil {
			continue
		}
		title := label(root, opts.LabelAttr)
		if file, ok := root.Attr("filename").AsString(); ok {
			title = shortPath(file) + ": " + title
		}
		sb.WriteString(fmt.Sprintf("  subgraph G%d[\"%.40s\"]\n", i, escape(title)))
		for _, n := range g.Nodes() {
			drawn[n.ID] = true
			sb.WriteString(fmt.Sprintf("    N%d[\"%.40s\"]\n", n.ID, escape(label(n, opts.LabelAttr))))
		}
		sb.WriteString("  end\n")
	}

	for _, g := range graphs {
		for _, n := range g.Nodes() {
			for _, e := range n.Edges {
				if !drawn[e.Sink] {
					continue
				}
				arrow := "-->"
				if foreign, _ := e.Attrs[graph.ForeignAttr].AsBool(); foreign {
					arrow = "-.->"
				}
				if kind, ok := e.Attrs["kind"].AsString(); ok {
					sb.WriteString(fmt.Sprintf("  N%d %s|%s| N%d\n", n.ID, arrow, escape(kind), e.Sink))
				} else {
					sb.WriteString(fmt.Sprintf("  N%d %s N%d\n", n.ID, arrow, e.Sink))
				}
			}
		}
	}
	return sb.String()
}

func label(n *graph.Node, attr string) string {
	if s, ok := n.Attr(attr).AsString(); ok && s != "" {
		return s
	}
	if s, ok := n.Attr("type").AsString(); ok && s != "" {
		return s
	}
	return fmt.Sprintf("#%d", n.ID)
}

func escape(s string) string {
	s = strings.ReplaceAll(s, `"`, "#quot;")
	return strings.ReplaceAll(s, "|", "#124;")
}

// shortPath returns the last 2 path segments for readability.
func shortPath(path string) string {
	parts := strings.Split(filepath.ToSlash(path), "/")
	if len(parts) <= 2 {
		return path
	}
	return strings.Join(parts[len(parts)-2:], "/")
}
