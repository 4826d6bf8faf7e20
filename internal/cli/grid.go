package cli

import (
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/matzehuels/codeflow/pkg/render/planar"
	"github.com/matzehuels/codeflow/pkg/render/spatial"
	"github.com/matzehuels/codeflow/pkg/style"
	"github.com/matzehuels/codeflow/pkg/view"
)

// grid is a character canvas in the same layout as [spatial.CellDevice]:
// viewport x maps to columns, viewport y to rows at CellAspect units per row.
type grid struct {
	cols, rows int
	cells      [][]spatial.Cell
}

func newGrid(cols, rows int) *grid {
	g := &grid{cols: max(1, cols), rows: max(1, rows)}
	g.cells = make([][]spatial.Cell, g.rows)
	for i := range g.cells {
		g.cells[i] = make([]spatial.Cell, g.cols)
		for j := range g.cells[i] {
			g.cells[i][j] = spatial.Cell{Rune: ' '}
		}
	}
	return g
}

func (g *grid) set(col, row int, c spatial.Cell) {
	if row < 0 || row >= g.rows || col < 0 || col >= g.cols {
		return
	}
	g.cells[row][col] = c
}

// plot sets the cell under viewport point p.
func (g *grid) plot(p view.Point, c spatial.Cell) {
	g.set(int(math.Round(p.X)), int(math.Round(p.Y/spatial.CellAspect)), c)
}

// disc fills the cells within r viewport units of center.
func (g *grid) disc(center view.Point, r float64, c spatial.Cell) {
	cy := center.Y / spatial.CellAspect
	rr := r / spatial.CellAspect
	for row := int(math.Floor(cy - rr)); row <= int(math.Ceil(cy+rr)); row++ {
		for col := int(math.Floor(center.X - r)); col <= int(math.Ceil(center.X+r)); col++ {
			dx := float64(col) - center.X
			dy := (float64(row) - cy) * spatial.CellAspect
			if dx*dx+dy*dy <= r*r {
				g.set(col, row, c)
			}
		}
	}
	g.plot(center, c)
}

// text writes s centered on column col.
func (g *grid) text(col, row int, s, color string, bold bool) {
	runes := []rune(s)
	start := col - len(runes)/2
	for i, r := range runes {
		g.set(start+i, row, spatial.Cell{Rune: r, Color: color, Bold: bold})
	}
}

// planarCells draws the current 2D view of r: edges as dotted curves, nodes
// as filled discs with their glyph and a label underneath.
func planarCells(r *planar.Renderer, selected string, cols, rows int) [][]spatial.Cell {
	g := newGrid(cols, rows)
	t := r.Transform()
	scene := r.Scene()

	for _, e := range scene.Edges {
		from, ctrl, to := t.ToScreen(e.From), t.ToScreen(e.Ctrl), t.ToScreen(e.To)
		steps := int(math.Ceil(math.Hypot(to.X-from.X, (to.Y-from.Y)/spatial.CellAspect))) + 1
		for i := 0; i <= steps; i++ {
			g.plot(planar.Quad(from, ctrl, to, float64(i)/float64(steps)), spatial.Cell{Rune: '·', Color: e.Color})
		}
	}

	radius := max(planar.NodeRadius*t.Scale(), 0.5)
	for _, n := range scene.Nodes {
		center := t.ToScreen(n.Center)
		sel := n.ID == selected
		fill := '●'
		if sel {
			fill = '◉'
		}
		g.disc(center, radius, spatial.Cell{Rune: fill, Color: n.Style.Color, Bold: sel})

		col := int(math.Round(center.X))
		row := int(math.Round(center.Y / spatial.CellAspect))
		g.text(col, row, n.Style.Glyph, "#ffffff", true)
		labelColor := "#94a3b8"
		if sel {
			labelColor = "#ffffff"
		}
		below := row + int(math.Ceil(radius/spatial.CellAspect)) + 1
		label := n.Label
		if label == "" {
			label = n.ID
		}
		g.text(col, below, style.TruncateLabel(label), labelColor, sel)
	}
	return g.cells
}

// paintCells renders a grid with lipgloss, styling runs of equal cells
// together.
func paintCells(cells [][]spatial.Cell) string {
	var b strings.Builder
	for i, row := range cells {
		if i > 0 {
			b.WriteByte('\n')
		}
		var run []rune
		var cur spatial.Cell
		flush := func() {
			if len(run) == 0 {
				return
			}
			st := lipgloss.NewStyle().Bold(cur.Bold)
			if cur.Color != "" {
				st = st.Foreground(lipgloss.Color(cur.Color))
			}
			b.WriteString(st.Render(string(run)))
			run = run[:0]
		}
		for _, c := range row {
			if len(run) > 0 && (c.Color != cur.Color || c.Bold != cur.Bold) {
				flush()
			}
			cur = c
			run = append(run, c.Rune)
		}
		flush()
	}
	return b.String()
}

// plainCells returns the grid runes without styling.
func plainCells(cells [][]spatial.Cell) string {
	var b strings.Builder
	for i, row := range cells {
		if i > 0 {
			b.WriteByte('\n')
		}
		for _, c := range row {
			b.WriteRune(c.Rune)
		}
	}
	return b.String()
}
