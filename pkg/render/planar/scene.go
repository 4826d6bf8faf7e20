package planar

import (
	"math"

	"github.com/matzehuels/codeflow/pkg/graph"
	"github.com/matzehuels/codeflow/pkg/layout"
	"github.com/matzehuels/codeflow/pkg/style"
	"github.com/matzehuels/codeflow/pkg/view"
)

// Scene geometry constants, in layout units.
const (
	MinWidth  = 800.0
	MinHeight = 600.0
	// Margin is added past the right and bottom edge of the furthest box.
	Margin = 50.0

	NodeRadius   = 44.0
	BorderRadius = 48.0
	// GlowRadius is also the hit radius of a node.
	GlowRadius = 55.0

	// EdgeLift raises the curve control point above the chord midpoint.
	EdgeLift = 40.0
	// EdgeHitTolerance is the max distance from an edge curve that still hits it.
	EdgeHitTolerance = 6.0
	edgeSamples      = 24

	LabelOffset   = 75.0
	CaptionOffset = 98.0
	IconSize      = 64.0
)

// SceneNode is a positioned, styled node.
type SceneNode struct {
	layout.Node
	Center view.Point
	Style  style.Style
}

// SceneEdge is a drawable edge: both endpoints resolved.
type SceneEdge struct {
	graph.Edge
	From, Ctrl, To view.Point
	Color          string
}

// Scene is the immutable 2D drawing of one layout.
type Scene struct {
	Width, Height float64
	Nodes         []SceneNode
	Edges         []SceneEdge
	// Fallback reports that positions come from the grid positioner.
	Fallback bool
	Hash     string

	snap  graph.Snapshot
	index map[string]int
}

// NewScene builds the scene of s laid out as res. Edges whose endpoints do
// not resolve to a laid-out node are dropped.
func NewScene(s graph.Snapshot, res *layout.Result) *Scene {
	sc := &Scene{
		Width:    MinWidth,
		Height:   MinHeight,
		Nodes:    make([]SceneNode, 0, len(res.Nodes)),
		Fallback: res.Fallback,
		Hash:     res.Hash,
		snap:     s,
		index:    make(map[string]int, len(res.Nodes)),
	}
	for _, n := range res.Nodes {
		cx, cy := n.Center()
		if _, dup := sc.index[n.ID]; !dup {
			sc.index[n.ID] = len(sc.Nodes)
		}
		sc.Nodes = append(sc.Nodes, SceneNode{
			Node:   n,
			Center: view.Point{X: cx, Y: cy},
			Style:  style.ForNode(graph.Node{ID: n.ID, Label: n.Label, Type: n.Type}),
		})
		sc.Width = math.Max(sc.Width, n.X+layout.NodeSize+Margin)
		sc.Height = math.Max(sc.Height, n.Y+layout.NodeSize+Margin)
	}

	for _, e := range s.Edges {
		from, ok1 := sc.center(e.Source)
		to, ok2 := sc.center(e.Target)
		if !ok1 || !ok2 {
			continue
		}
		sc.Edges = append(sc.Edges, SceneEdge{
			Edge:  e,
			From:  from,
			Ctrl:  ControlPoint(from, to),
			To:    to,
			Color: style.EdgeColor(e.Type),
		})
	}
	return sc
}

// Snapshot returns the snapshot the scene was built from.
func (s *Scene) Snapshot() graph.Snapshot { return s.snap }

// Node returns the scene node with the given id.
func (s *Scene) Node(id string) (SceneNode, bool) {
	i, ok := s.index[id]
	if !ok {
		return SceneNode{}, false
	}
	return s.Nodes[i], true
}

func (s *Scene) center(id string) (view.Point, bool) {
	n, ok := s.Node(id)
	return n.Center, ok
}

// ControlPoint returns the quadratic control point of an edge from a to b.
func ControlPoint(a, b view.Point) view.Point {
	return view.Point{X: (a.X + b.X) / 2, Y: (a.Y+b.Y)/2 - EdgeLift}
}

// Quad evaluates the quadratic bezier (a, c, b) at t.
func Quad(a, c, b view.Point, t float64) view.Point {
	u := 1 - t
	return view.Point{
		X: u*u*a.X + 2*u*t*c.X + t*t*b.X,
		Y: u*u*a.Y + 2*u*t*c.Y + t*t*b.Y,
	}
}

// HitKind is what a pointer landed on.
type HitKind int

// Hit kinds.
const (
	HitBackground HitKind = iota
	HitNode
	HitEdge
)

func (k HitKind) String() string {
	switch k {
	case HitNode:
		return "node"
	case HitEdge:
		return "edge"
	default:
		return "background"
	}
}

// Hit is a hit-test result. ID is the node id for node hits; Edge is the edge
// index in Scene.Edges for edge hits.
type Hit struct {
	Kind HitKind
	ID   string
	Edge int
}

// HitTest resolves a point in scene coordinates. Nodes take precedence over
// edges; among nodes the one drawn last (topmost) wins.
func (s *Scene) HitTest(p view.Point) Hit {
	for i := len(s.Nodes) - 1; i >= 0; i-- {
		n := s.Nodes[i]
		if math.Hypot(p.X-n.Center.X, p.Y-n.Center.Y) <= GlowRadius {
			return Hit{Kind: HitNode, ID: n.ID}
		}
	}
	for i := len(s.Edges) - 1; i >= 0; i-- {
		e := s.Edges[i]
		if distToCurve(p, e.From, e.Ctrl, e.To) <= EdgeHitTolerance {
			return Hit{Kind: HitEdge, Edge: i}
		}
	}
	return Hit{Kind: HitBackground}
}

func distToCurve(p, a, c, b view.Point) float64 {
	best := math.Inf(1)
	prev := a
	for i := 1; i <= edgeSamples; i++ {
		cur := Quad(a, c, b, float64(i)/edgeSamples)
		best = math.Min(best, distToSegment(p, prev, cur))
		prev = cur
	}
	return best
}

func distToSegment(p, a, b view.Point) float64 {
	dx, dy := b.X-a.X, b.Y-a.Y
	l2 := dx*dx + dy*dy
	if l2 == 0 {
		return math.Hypot(p.X-a.X, p.Y-a.Y)
	}
	t := ((p.X-a.X)*dx + (p.Y-a.Y)*dy) / l2
	t = math.Max(0, math.Min(1, t))
	return math.Hypot(p.X-(a.X+t*dx), p.Y-(a.Y+t*dy))
}
