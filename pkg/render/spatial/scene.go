package spatial

import (
	"math"

	"github.com/matzehuels/codeflow/pkg/graph"
	"github.com/matzehuels/codeflow/pkg/layout"
	"github.com/matzehuels/codeflow/pkg/style"
)

// World scale and geometry.
const (
	// Scale maps layout units to world units.
	Scale = 0.012

	SphereRadius   = 0.32
	SphereSegments = 24
	Emissive       = 0.25

	// IconLift moves the icon billboard toward the viewer.
	IconLift = 0.38
	// LabelDrop moves the label billboard below the sphere.
	LabelDrop = 0.62

	CurveSegments = 10
	// CurveSag pushes the edge control point away from the viewer.
	CurveSag = 0.1
)

// Light is a scene light. Ambient lights have no position.
type Light struct {
	Ambient   bool
	Intensity float64
	Position  Vec3
}

// Lights are the fixed scene lights.
var Lights = []Light{
	{Ambient: true, Intensity: 0.6},
	{Intensity: 0.8, Position: Vec3{10, 10, 10}},
}

// Sphere is the mesh of one node.
type Sphere struct {
	ID       string
	Label    string
	Type     graph.NodeType
	Style    style.Style
	Center   Vec3
	Radius   float64
	Segments int
}

// BillboardKind distinguishes the two overlays of a node.
type BillboardKind int

// Billboard kinds.
const (
	IconBillboard BillboardKind = iota
	LabelBillboard
)

// Billboard is a screen-aligned overlay anchored at a world point.
type Billboard struct {
	Kind     BillboardKind
	NodeID   string
	Anchor   Vec3
	Category style.Category
	// Text and Caption are set for labels only.
	Text    string
	Caption string
}

// Polyline is the sampled curve of one edge.
type Polyline struct {
	graph.Edge
	Points []Vec3
	Color  string
}

// Scene is the immutable 3D content of one layout.
type Scene struct {
	Spheres    []Sphere
	Billboards []Billboard
	Lines      []Polyline
	Hash       string

	snap  graph.Snapshot
	index map[string]int
}

// Project maps the box centers of res into world space: scaled by [Scale],
// recentered on the midpoint of their bounding box and with y pointing up.
func Project(res *layout.Result) []Vec3 {
	out := make([]Vec3, len(res.Nodes))
	if len(res.Nodes) == 0 {
		return out
	}
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, n := range res.Nodes {
		cx, cy := n.Center()
		minX, maxX = math.Min(minX, cx), math.Max(maxX, cx)
		minY, maxY = math.Min(minY, cy), math.Max(maxY, cy)
	}
	midX, midY := (minX+maxX)/2, (minY+maxY)/2
	for i, n := range res.Nodes {
		cx, cy := n.Center()
		out[i] = Vec3{(cx - midX) * Scale, -(cy - midY) * Scale, 0}
	}
	return out
}

// NewScene builds the 3D scene of s laid out as res.
func NewScene(s graph.Snapshot, res *layout.Result) *Scene {
	pos := Project(res)
	sc := &Scene{
		Spheres:    make([]Sphere, 0, len(res.Nodes)),
		Billboards: make([]Billboard, 0, 2*len(res.Nodes)),
		Hash:       res.Hash,
		snap:       s,
		index:      make(map[string]int, len(res.Nodes)),
	}
	for i, n := range res.Nodes {
		st := style.ForNode(graph.Node{ID: n.ID, Label: n.Label, Type: n.Type})
		c := pos[i]
		if _, dup := sc.index[n.ID]; !dup {
			sc.index[n.ID] = len(sc.Spheres)
		}
		sc.Spheres = append(sc.Spheres, Sphere{
			ID:       n.ID,
			Label:    n.Label,
			Type:     n.Type,
			Style:    st,
			Center:   c,
			Radius:   SphereRadius,
			Segments: SphereSegments,
		})
		caption := string(n.Type)
		if caption == "" {
			caption = string(st.Category)
		}
		sc.Billboards = append(sc.Billboards,
			Billboard{Kind: IconBillboard, NodeID: n.ID, Anchor: c.Add(Vec3{Z: IconLift}), Category: st.Category},
			Billboard{
				Kind:     LabelBillboard,
				NodeID:   n.ID,
				Anchor:   c.Sub(Vec3{Y: LabelDrop}),
				Category: st.Category,
				Text:     style.TruncateLabel(n.Label),
				Caption:  caption,
			},
		)
	}

	for _, e := range s.Edges {
		a, ok1 := sc.center(e.Source)
		b, ok2 := sc.center(e.Target)
		if !ok1 || !ok2 {
			continue
		}
		ctrl := a.Lerp(b, 0.5).Sub(Vec3{Z: CurveSag})
		sc.Lines = append(sc.Lines, Polyline{
			Edge:   e,
			Points: Bezier(a, ctrl, b, CurveSegments),
			Color:  style.EdgeColor(e.Type),
		})
	}
	return sc
}

// Snapshot returns the snapshot the scene was built from.
func (s *Scene) Snapshot() graph.Snapshot { return s.snap }

// Sphere returns the sphere of the node with the given id.
func (s *Scene) Sphere(id string) (Sphere, bool) {
	i, ok := s.index[id]
	if !ok {
		return Sphere{}, false
	}
	return s.Spheres[i], true
}

func (s *Scene) center(id string) (Vec3, bool) {
	sp, ok := s.Sphere(id)
	return sp.Center, ok
}
