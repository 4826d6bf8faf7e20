package layout

import (
	"context"
	"fmt"
	"io"
	"math"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/codeflow/pkg/dag"
	"github.com/matzehuels/codeflow/pkg/dag/transform"
	"github.com/matzehuels/codeflow/pkg/graph"
	"github.com/matzehuels/codeflow/pkg/observability"
)

// NodeSize is the width and height of every node box in layout units.
const NodeSize = 120.0

// Default spacing and effort.
const (
	DefaultNodeSep = 100.0
	DefaultRankSep = 120.0
	DefaultPasses  = 24
)

// Node is a snapshot node with its computed position.
type Node struct {
	ID    string         `json:"id"`
	Label string         `json:"label,omitempty"`
	Type  graph.NodeType `json:"type,omitempty"`
	X     float64        `json:"x"`
	Y     float64        `json:"y"`
	Rank  int            `json:"rank"`
	Order int            `json:"order"`
}

// Center returns the center of the node box.
func (n Node) Center() (x, y float64) {
	return n.X + NodeSize/2, n.Y + NodeSize/2
}

// Result is a complete layout of one snapshot.
type Result struct {
	// Nodes are in snapshot order.
	Nodes  []Node  `json:"nodes"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
	// Fallback reports that the grid positioner produced the result.
	Fallback bool `json:"fallback"`
	// Crossings is the crossing count of the chosen ordering, subdivided
	// edges included.
	Crossings int `json:"crossings"`
	// BackEdges counts edges excluded from ranking to break cycles.
	BackEdges int    `json:"back_edges"`
	Hash      string `json:"hash"`
}

// Lookup maps node ids to their index in Nodes.
func (r *Result) Lookup() map[string]int {
	m := make(map[string]int, len(r.Nodes))
	for i, n := range r.Nodes {
		if _, ok := m[n.ID]; !ok {
			m[n.ID] = i
		}
	}
	return m
}

// Options configure the engine.
type Options struct {
	NodeSep float64 `json:"node_sep"`
	RankSep float64 `json:"rank_sep"`
	Passes  int     `json:"passes"`
}

// DefaultOptions returns the default spacing and effort.
func DefaultOptions() Options {
	return Options{NodeSep: DefaultNodeSep, RankSep: DefaultRankSep, Passes: DefaultPasses}
}

// Option configures an [Engine].
type Option func(*Engine)

// WithOptions replaces the spacing and effort settings. Non-positive values
// fall back to the defaults.
func WithOptions(o Options) Option {
	return func(e *Engine) {
		if o.NodeSep > 0 {
			e.opts.NodeSep = o.NodeSep
		}
		if o.RankSep > 0 {
			e.opts.RankSep = o.RankSep
		}
		if o.Passes > 0 {
			e.opts.Passes = o.Passes
		}
	}
}

// WithLogger sets the debug logger.
func WithLogger(l *log.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// Engine computes layouts. It holds no per-snapshot state and is safe for
// concurrent use.
type Engine struct {
	opts   Options
	logger *log.Logger
}

// New creates an engine.
func New(opts ...Option) *Engine {
	e := &Engine{
		opts:   DefaultOptions(),
		logger: log.New(io.Discard),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Options returns the effective options.
func (e *Engine) Options() Options { return e.opts }

// Layout positions every node of s. It never fails: if the layered layout
// errors or panics, the fallback grid is returned instead.
func (e *Engine) Layout(ctx context.Context, s graph.Snapshot) *Result {
	start := time.Now()
	observability.Layout().OnLayoutStart(ctx, len(s.Nodes))

	res, err := e.safeLayered(s)
	if err != nil {
		e.logger.Debug("layered layout failed, using grid", "nodes", len(s.Nodes), "err", err)
		res = Fallback(s)
	}
	res.Hash = s.Hash()

	observability.Layout().OnLayoutComplete(ctx, len(s.Nodes), res.Fallback, time.Since(start))
	return res
}

// Layered runs only the layered pipeline and reports its error instead of
// falling back.
func (e *Engine) Layered(s graph.Snapshot) (*Result, error) {
	return e.safeLayered(s)
}

func (e *Engine) safeLayered(s graph.Snapshot) (res *Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			res, err = nil, fmt.Errorf("layout panic: %v", r)
		}
	}()
	return e.layered(s)
}

func (e *Engine) layered(s graph.Snapshot) (*Result, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}

	g := dag.New()
	for _, n := range s.Nodes {
		if err := g.AddNode(dag.Node{ID: n.ID}); err != nil {
			return nil, err
		}
	}
	for _, edge := range s.Edges {
		// missing endpoints are tolerated
		_ = g.AddEdge(dag.Edge{From: edge.Source, To: edge.Target})
	}

	back := transform.Normalize(g)
	if len(back) > 0 {
		e.logger.Debug("removed back edges", "count", len(back))
	}

	orders, crossings := orderRanks(g, e.opts.Passes)
	xs := placeX(g, orders, NodeSize+e.opts.NodeSep)

	res := &Result{
		Nodes:     make([]Node, len(s.Nodes)),
		Crossings: crossings,
		BackEdges: len(back),
	}
	pos := make(map[string]int)
	for _, ids := range orders {
		for i, id := range ids {
			pos[id] = i
		}
	}
	rankStep := NodeSize + e.opts.RankSep
	for i, n := range s.Nodes {
		dn, _ := g.Node(n.ID)
		x, y := xs[n.ID], float64(dn.Row)*rankStep
		if math.IsNaN(x) || math.IsInf(x, 0) || math.IsNaN(y) || math.IsInf(y, 0) {
			return nil, fmt.Errorf("non-finite position for %q", n.ID)
		}
		res.Nodes[i] = Node{
			ID: n.ID, Label: n.Label, Type: n.Type,
			X: x, Y: y,
			Rank: dn.Row, Order: pos[n.ID],
		}
	}
	res.Width, res.Height = extent(res.Nodes)
	return res, nil
}

// extent returns the size of the union of all node boxes anchored at the
// origin.
func extent(nodes []Node) (w, h float64) {
	for _, n := range nodes {
		w = math.Max(w, n.X+NodeSize)
		h = math.Max(h, n.Y+NodeSize)
	}
	return w, h
}
