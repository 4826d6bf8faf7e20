package spatial

import (
	"fmt"
	"math"
	"strings"
	"sync"

	"github.com/matzehuels/codeflow/pkg/style"
)

// CellAspect is the height of a terminal cell in units of its width.
const CellAspect = 2.0

// Cell is one character of a [CellDevice] grid. An empty Color means the
// terminal default.
type Cell struct {
	Rune  rune
	Color string
	Bold  bool
}

// CellDevice rasterizes frames into a character grid. Viewport x maps to
// columns and viewport y to rows at [CellAspect] units per row.
type CellDevice struct {
	mu    sync.Mutex
	table handleTable
	cols  int
	rows  int
	grid  [][]Cell
}

// NewCellDevice creates a grid device with the given number of columns and
// rows. Its viewport is cols x rows*CellAspect.
func NewCellDevice(cols, rows int) *CellDevice {
	d := &CellDevice{table: newHandleTable()}
	d.setSize(cols, rows)
	return d
}

// Viewport returns the viewport size matching the grid.
func (d *CellDevice) Viewport() (w, h float64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return float64(d.cols), float64(d.rows) * CellAspect
}

func (d *CellDevice) setSize(cols, rows int) {
	d.cols, d.rows = max(1, cols), max(1, rows)
	d.grid = make([][]Cell, d.rows)
	for i := range d.grid {
		d.grid[i] = make([]Cell, d.cols)
	}
	d.clear()
}

func (d *CellDevice) clear() {
	for _, row := range d.grid {
		for i := range row {
			row[i] = Cell{Rune: ' '}
		}
	}
}

func (d *CellDevice) CreateGeometry(g Geometry) (Handle, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.table.addGeometry(g), nil
}

func (d *CellDevice) CreateMaterial(m Material) (Handle, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.table.addMaterial(m), nil
}

func (d *CellDevice) CreateOverlay(o Overlay) (Handle, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.table.addOverlay(o), nil
}

func (d *CellDevice) Release(h Handle) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.table.release(h)
}

func (d *CellDevice) Live() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.table.live()
}

// Resize takes the viewport size in units and converts it to cells.
func (d *CellDevice) Resize(w, h float64) error {
	if w < 1 || h < CellAspect {
		return fmt.Errorf("resize: invalid size %gx%g", w, h)
	}
	d.mu.Lock()
	d.setSize(int(w), int(h/CellAspect))
	d.mu.Unlock()
	return nil
}

func (d *CellDevice) Draw(f Frame) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.table.check(f); err != nil {
		return err
	}
	d.clear()

	for _, l := range f.Lines {
		m := d.table.materials[l.Material]
		for i := 1; i < len(l.Points); i++ {
			a, b := l.Points[i-1], l.Points[i]
			d.line(a.X, a.Y/CellAspect, b.X, b.Y/CellAspect, Cell{Rune: '·', Color: m.Color})
		}
	}
	for _, s := range f.Discs {
		m := d.table.materials[s.Material]
		d.disc(s.Center.X, s.Center.Y/CellAspect, s.Radius, Cell{Rune: shadeRune(s.Shade), Color: m.Color, Bold: s.Selected})
	}
	for _, s := range f.Sprites {
		o := d.table.overlays[s.Overlay]
		col, row := int(math.Round(s.At.X)), int(math.Round(s.At.Y/CellAspect))
		switch o.Kind {
		case IconBillboard:
			d.text(col, row, style.Of(o.Category).Glyph, "#ffffff", true)
		case LabelBillboard:
			d.text(col, row, o.Text, "#ffffff", true)
			d.text(col, row+1, o.Caption, "#94a3b8", false)
		}
	}
	return nil
}

// Cells returns a copy of the grid.
func (d *CellDevice) Cells() [][]Cell {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([][]Cell, len(d.grid))
	for i, row := range d.grid {
		out[i] = append([]Cell(nil), row...)
	}
	return out
}

// String returns the grid as plain text, one line per row.
func (d *CellDevice) String() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	var b strings.Builder
	for i, row := range d.grid {
		if i > 0 {
			b.WriteByte('\n')
		}
		for _, c := range row {
			b.WriteRune(c.Rune)
		}
	}
	return b.String()
}

func (d *CellDevice) set(col, row int, c Cell) {
	if row < 0 || row >= d.rows || col < 0 || col >= d.cols {
		return
	}
	d.grid[row][col] = c
}

func (d *CellDevice) line(x0, y0, x1, y1 float64, c Cell) {
	steps := int(math.Ceil(math.Max(math.Abs(x1-x0), math.Abs(y1-y0))))
	if steps == 0 {
		d.set(int(math.Round(x0)), int(math.Round(y0)), c)
		return
	}
	for i := 0; i <= steps; i++ {
		t := float64(i) / float64(steps)
		d.set(int(math.Round(x0+(x1-x0)*t)), int(math.Round(y0+(y1-y0)*t)), c)
	}
}

// disc fills the cells inside radius r (viewport units) around (cx, cy),
// where cy is already in rows.
func (d *CellDevice) disc(cx, cy, r float64, c Cell) {
	rr := r / CellAspect
	for row := int(math.Floor(cy - rr)); row <= int(math.Ceil(cy+rr)); row++ {
		for col := int(math.Floor(cx - r)); col <= int(math.Ceil(cx+r)); col++ {
			dx := float64(col) - cx
			dy := (float64(row) - cy) * CellAspect
			if dx*dx+dy*dy <= r*r {
				d.set(col, row, c)
			}
		}
	}
	d.set(int(math.Round(cx)), int(math.Round(cy)), c)
}

func (d *CellDevice) text(col, row int, s, color string, bold bool) {
	runes := []rune(s)
	start := col - len(runes)/2
	for i, r := range runes {
		d.set(start+i, row, Cell{Rune: r, Color: color, Bold: bold})
	}
}

func shadeRune(shade float64) rune {
	switch {
	case shade > 0.85:
		return '█'
	case shade > 0.6:
		return '▓'
	case shade > 0.35:
		return '▒'
	default:
		return '░'
	}
}
