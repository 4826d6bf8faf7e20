package graph

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"

	"github.com/matzehuels/codeflow/pkg/errors"
)

// NodeType is the structural type assigned by the producer.
type NodeType string

// Structural node types. Any other value (including empty) is accepted and
// classified by label.
const (
	TypeFile      NodeType = "file"
	TypeFolder    NodeType = "folder"
	TypeFunction  NodeType = "function"
	TypeRoute     NodeType = "route"
	TypeClass     NodeType = "class"
	TypeComponent NodeType = "component"
)

// EdgeType is the relationship kind of an edge.
type EdgeType string

// Edge types.
const (
	EdgeImport      EdgeType = "import"
	EdgeDependency  EdgeType = "dependency"
	EdgeCall        EdgeType = "call"
	EdgeContainment EdgeType = "containment"
)

// Node is a vertex of the codebase graph.
type Node struct {
	ID    string   `json:"id" yaml:"id"`
	Label string   `json:"label,omitempty" yaml:"label,omitempty"`
	Type  NodeType `json:"type,omitempty" yaml:"type,omitempty"`
}

// DisplayLabel returns the label if set, otherwise the ID.
func (n Node) DisplayLabel() string {
	if n.Label != "" {
		return n.Label
	}
	return n.ID
}

// Edge is a directed relationship between two node ids. The ids are not
// required to resolve.
type Edge struct {
	Source string   `json:"source" yaml:"source"`
	Target string   `json:"target" yaml:"target"`
	Type   EdgeType `json:"type,omitempty" yaml:"type,omitempty"`
}

// Snapshot is one immutable `{nodes, edges}` document.
type Snapshot struct {
	Nodes []Node `json:"nodes" yaml:"nodes"`
	Edges []Edge `json:"edges" yaml:"edges"`
}

// Hash returns the content hash identifying the snapshot.
// The hash covers node and edge order, so reordering produces a new identity.
func (s Snapshot) Hash() string {
	data, _ := json.Marshal(s)
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Validate checks the invariants hosts enforce before accepting a snapshot:
// every node has a non-empty id and ids are unique. Dangling edges are valid.
func (s Snapshot) Validate() error {
	seen := make(map[string]struct{}, len(s.Nodes))
	for i, n := range s.Nodes {
		if n.ID == "" {
			return errors.New(errors.ErrCodeInvalidSnapshot, "node %d has an empty id", i)
		}
		if _, dup := seen[n.ID]; dup {
			return errors.New(errors.ErrCodeDuplicateNode, "duplicate node id %q", n.ID)
		}
		seen[n.ID] = struct{}{}
	}
	return nil
}

// Node returns the first node with the given id.
func (s Snapshot) Node(id string) (Node, bool) {
	for _, n := range s.Nodes {
		if n.ID == id {
			return n, true
		}
	}
	return Node{}, false
}

// EdgeCounts returns how many edges leave and enter id. Edges whose other
// endpoint is missing are still counted.
func (s Snapshot) EdgeCounts(id string) (outgoing, incoming int) {
	for _, e := range s.Edges {
		if e.Source == id {
			outgoing++
		}
		if e.Target == id {
			incoming++
		}
	}
	return outgoing, incoming
}

// Index maps node ids to their position in Nodes. When ids repeat, the first
// occurrence wins.
func (s Snapshot) Index() map[string]int {
	m := make(map[string]int, len(s.Nodes))
	for i, n := range s.Nodes {
		if _, ok := m[n.ID]; !ok {
			m[n.ID] = i
		}
	}
	return m
}
