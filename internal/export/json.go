package export

import (
	"encoding/json"
	"io"
	"time"

	"github.com/dusk-indust/draveur/internal/engine"
	"github.com/dusk-indust/draveur/internal/graph"
)

// RunExport is the top-level JSON export structure of one run.
type RunExport struct {
	Root       string         `json:"root"`
	Language   string         `json:"language"`
	ExportedAt string         `json:"exportedAt"`
	Files      int            `json:"files"`
	Failed     int            `json:"failed"`
	Matches    int            `json:"matches"`
	Nodes      int            `json:"nodes"`
	Foreign    int            `json:"foreignEdges"`
	Error      string         `json:"error,omitempty"`
	Graphs     []*graph.Graph `json:"graphs"`
}

// NewRunExport builds a RunExport from an engine result. runErr is the error
// the run returned, if any.
func NewRunExport(root, language string, res *engine.Result, runErr error) *RunExport {
	export := &RunExport{
		Root:       root,
		Language:   language,
		ExportedAt: time.Now().UTC().Format(time.RFC3339),
		Graphs:     []*graph.Graph{},
	}
	if runErr != nil {
		export.Error = runErr.Error()
	}
	if res == nil {
		return export
	}
	export.Files = res.Files
	export.Failed = res.Failed
	export.Matches = res.Matches
	export.Nodes = res.Nodes()
	export.Foreign = res.Foreign
	if res.Graphs != nil {
		export.Graphs = res.Graphs
	}
	return export
}

// WriteJSON writes graphs as a JSON array of wire-form graphs, one per line
// of the array.
func WriteJSON(w io.Writer, graphs []*graph.Graph) error {
	if graphs == nil {
		graphs = []*graph.Graph{}
	}
	return json.NewEncoder(w).Encode(graphs)
}

// WriteRun writes an indented RunExport.
func WriteRun(w io.Writer, export *RunExport) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(export)
}
