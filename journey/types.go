package journey

// DefaultEntryID is the id of the entry node in graphs created by the
// journey builder before the user has placed an explicit entry node.
const DefaultEntryID = "start"

// ContentRef references a content asset attached to a node.
type ContentRef struct {
	ID      string `json:"id" yaml:"id"`
	Name    string `json:"name,omitempty" yaml:"name,omitempty"`
	BaseURL string `json:"base_url" yaml:"base_url"`
}

// Node is a single step of a journey.
type Node struct {
	ID      string      `json:"id" yaml:"id"`
	Kind    NodeKind    `json:"kind" yaml:"kind"`
	Label   string      `json:"label,omitempty" yaml:"label,omitempty"`
	Content *ContentRef `json:"content,omitempty" yaml:"content,omitempty"`
}

// HasContent returns true if a content asset is attached to the node.
func (n Node) HasContent() bool {
	return n.Content != nil && n.Content.ID != ""
}

// Edge is a directed connection between two nodes. A node may have several
// outgoing edges (decision and A/B branches).
type Edge struct {
	Source string `json:"source" yaml:"source"`
	Target string `json:"target" yaml:"target"`
}

// Microsegment is a sub-division of an audience segment.
type Microsegment struct {
	ID            string `json:"id" yaml:"id"`
	Name          string `json:"name" yaml:"name"`
	EstimatedSize int    `json:"estimated_size" yaml:"estimated_size"`
}

// SequenceMap maps a node id to its sequence position. It is only ever
// consulted by node id; iteration order carries no meaning.
type SequenceMap map[string]int

// Get returns the sequence of the node and whether it was reached.
func (m SequenceMap) Get(nodeID string) (int, bool) {
	n, ok := m[nodeID]
	return n, ok
}

// Contains returns true if the node was reached from the entry node.
func (m SequenceMap) Contains(nodeID string) bool {
	_, ok := m[nodeID]
	return ok
}
