package transform

import (
	"fmt"

	"github.com/matzehuels/codeflow/pkg/dag"
)

// Subdivide breaks edges that span multiple rows into chains of single-row
// edges connected by synthetic subdivider nodes.
//
//	Before: app (row 0) → core (row 3)
//	After:  app → app_sub_1 → app_sub_2 → core
//
// Each subdivider keeps a MasterID naming the edge source. Subdivider IDs have
// the form "master_sub_row"; a numeric suffix is appended on collision
// ("app_sub_1__2"), so snapshot ids are never shadowed.
//
// Edges are processed in insertion order, which keeps the generated IDs stable
// for a fixed input. Parallel long edges each get their own chain.
func Subdivide(g *dag.DAG) {
	gen := newIDGen(g.Nodes())

	type long struct {
		e        dag.Edge
		src, dst *dag.Node
	}
	var todo []long
	for _, e := range g.Edges() {
		src, srcOK := g.Node(e.From)
		dst, dstOK := g.Node(e.To)
		if !srcOK || !dstOK || dst.Row <= src.Row+1 {
			continue
		}
		todo = append(todo, long{e, src, dst})
	}

	for _, l := range todo {
		g.RemoveEdge(l.e.From, l.e.To)
	}
	for _, l := range todo {
		prevID := l.src.ID
		for row := l.src.Row + 1; row < l.dst.Row; row++ {
			prevID = addSubdivider(g, gen, prevID, l.src.ID, row)
		}
		if err := g.AddEdge(dag.Edge{From: prevID, To: l.dst.ID}); err != nil {
			panic(err)
		}
	}
}

func addSubdivider(g *dag.DAG, gen *idGen, from, master string, row int) string {
	id := gen.next(master, row)
	if err := g.AddNode(dag.Node{
		ID:       id,
		Row:      row,
		Kind:     dag.NodeKindSubdivider,
		MasterID: master,
	}); err != nil {
		panic(err)
	}
	if err := g.AddEdge(dag.Edge{From: from, To: id}); err != nil {
		panic(err)
	}
	return id
}

type idGen struct {
	used map[string]struct{}
}

func newIDGen(nodes []*dag.Node) *idGen {
	m := make(map[string]struct{}, len(nodes)*2)
	for _, n := range nodes {
		m[n.ID] = struct{}{}
	}
	return &idGen{used: m}
}

func (gen *idGen) next(base string, row int) string {
	prefix := fmt.Sprintf("%s_sub_%d", base, row)
	id := prefix
	for i := 1; ; i++ {
		if _, exists := gen.used[id]; !exists {
			gen.used[id] = struct{}{}
			return id
		}
		id = fmt.Sprintf("%s__%d", prefix, i)
	}
}
