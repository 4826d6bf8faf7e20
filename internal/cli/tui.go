package cli

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/matzehuels/codeflow/pkg/graph"
	"github.com/matzehuels/codeflow/pkg/layout"
	"github.com/matzehuels/codeflow/pkg/render/spatial"
	"github.com/matzehuels/codeflow/pkg/style"
	"github.com/matzehuels/codeflow/pkg/view"
	"github.com/matzehuels/codeflow/pkg/viewer"
)

const (
	// chromeRows is the header line plus the info and help lines.
	chromeRows = 3

	// keyStep is how far an arrow key pans (2D) or orbits (3D).
	keyStep = 8.0
)

var (
	tuiTitleStyle = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	tuiModeStyle  = lipgloss.NewStyle().Bold(true).Foreground(colorWhite).Background(lipgloss.Color("24")).Padding(0, 1)
	tuiHelpStyle  = lipgloss.NewStyle().Foreground(colorDim)
	tuiErrStyle   = lipgloss.NewStyle().Foreground(colorRed)
)

// frameMsg reports that the 3D frame loop drew a frame or changed status.
type frameMsg struct{}

// reloadMsg carries a changed snapshot from the file watcher.
type reloadMsg struct{ snap graph.Snapshot }

// layoutFunc lays out a reloaded snapshot.
type layoutFunc func(context.Context, graph.Snapshot) *layout.Result

// viewModel is the bubbletea model of the terminal viewer.
type viewModel struct {
	ctx     context.Context
	title   string
	v       *viewer.Viewer
	layout  layoutFunc
	frames  chan struct{}
	reloads chan graph.Snapshot

	cols, rows int
	order      []string
	cursor     int
	notice     string
	err        string
}

func newViewModel(ctx context.Context, title string, v *viewer.Viewer, lf layoutFunc, frames chan struct{}, reloads chan graph.Snapshot) *viewModel {
	m := &viewModel{
		ctx:     ctx,
		title:   title,
		v:       v,
		layout:  lf,
		frames:  frames,
		reloads: reloads,
		cursor:  -1,
	}
	w, h := v.Viewport()
	m.cols, m.rows = int(w), int(h/spatial.CellAspect)
	m.resetOrder()
	return m
}

// notifyFrame returns a non-blocking signal function for the viewer's frame
// and status handlers.
func notifyFrame(ch chan struct{}) func() {
	return func() {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

func (m *viewModel) resetOrder() {
	snap := m.v.Snapshot()
	m.order = m.order[:0]
	for _, n := range snap.Nodes {
		m.order = append(m.order, n.ID)
	}
	m.cursor = -1
	if sel := m.v.Controller().State().SelectedID; sel != "" {
		for i, id := range m.order {
			if id == sel {
				m.cursor = i
			}
		}
	}
}

func (m *viewModel) waitFrame() tea.Cmd {
	if m.frames == nil {
		return nil
	}
	return func() tea.Msg {
		select {
		case <-m.frames:
			return frameMsg{}
		case <-m.ctx.Done():
			return nil
		}
	}
}

func (m *viewModel) waitReload() tea.Cmd {
	if m.reloads == nil {
		return nil
	}
	return func() tea.Msg {
		select {
		case s := <-m.reloads:
			return reloadMsg{snap: s}
		case <-m.ctx.Done():
			return nil
		}
	}
}

func (m *viewModel) Init() tea.Cmd {
	return tea.Batch(m.waitFrame(), m.waitReload())
}

func (m *viewModel) apply(e viewer.Event) {
	if _, err := m.v.Apply(m.ctx, e); err != nil {
		m.err = err.Error()
		return
	}
	m.err = ""
}

func (m *viewModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case frameMsg:
		return m, m.waitFrame()

	case reloadMsg:
		if m.v.Replace(m.ctx, msg.snap, m.layout(m.ctx, msg.snap)) {
			m.resetOrder()
			m.notice = fmt.Sprintf("reloaded: %d nodes, %d edges", len(msg.snap.Nodes), len(msg.snap.Edges))
		}
		return m, m.waitReload()

	case tea.WindowSizeMsg:
		m.cols, m.rows = max(1, msg.Width), max(1, msg.Height-chromeRows)
		m.apply(viewer.Event{Type: viewer.Resize, Width: float64(m.cols), Height: float64(m.rows) * spatial.CellAspect})

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "tab", "m":
			m.v.ToggleMode(m.ctx)
		case "n", "j":
			m.step(1)
		case "p", "k":
			m.step(-1)
		case "+", "=":
			m.apply(viewer.Event{Type: viewer.ZoomIn})
		case "-", "_":
			m.apply(viewer.Event{Type: viewer.ZoomOut})
		case "left":
			m.apply(viewer.Event{Type: viewer.Orbit, DX: -keyStep})
		case "right":
			m.apply(viewer.Event{Type: viewer.Orbit, DX: keyStep})
		case "up":
			m.apply(viewer.Event{Type: viewer.Orbit, DY: -keyStep})
		case "down":
			m.apply(viewer.Event{Type: viewer.Orbit, DY: keyStep})
		case "r":
			m.apply(viewer.Event{Type: viewer.Retry})
		}

	case tea.MouseMsg:
		m.mouse(msg)

	case tea.BlurMsg:
		// A button released outside the terminal never reports; end the drag.
		m.apply(viewer.Event{Type: viewer.Blur})
	}
	return m, nil
}

// step moves the selection through the nodes in snapshot order.
func (m *viewModel) step(d int) {
	if len(m.order) == 0 {
		return
	}
	m.cursor = (m.cursor + d + len(m.order)) % len(m.order)
	m.apply(viewer.Event{Type: viewer.Select, ID: m.order[m.cursor]})
}

// mouse translates terminal cells to viewport points: one unit per column
// and CellAspect units per row, measured from the canvas origin.
func (m *viewModel) mouse(msg tea.MouseMsg) {
	x := float64(msg.X)
	y := (float64(msg.Y-1) + 0.5) * spatial.CellAspect
	switch {
	case msg.Button == tea.MouseButtonWheelUp:
		m.apply(viewer.Event{Type: viewer.Wheel, DY: -1})
	case msg.Button == tea.MouseButtonWheelDown:
		m.apply(viewer.Event{Type: viewer.Wheel, DY: 1})
	case msg.Action == tea.MouseActionPress && msg.Button == tea.MouseButtonLeft:
		m.apply(viewer.Event{Type: viewer.PointerDown, X: x, Y: y})
		m.syncCursor()
	case msg.Action == tea.MouseActionMotion:
		m.apply(viewer.Event{Type: viewer.PointerMove, X: x, Y: y})
	case msg.Action == tea.MouseActionRelease:
		m.apply(viewer.Event{Type: viewer.PointerUp, X: x, Y: y})
	}
}

// syncCursor follows a selection made by clicking.
func (m *viewModel) syncCursor() {
	sel := m.v.Controller().State().SelectedID
	for i, id := range m.order {
		if id == sel {
			m.cursor = i
			return
		}
	}
}

func (m *viewModel) View() string {
	res := m.v.Result()
	var b strings.Builder

	b.WriteString(tuiTitleStyle.Render(m.title))
	b.WriteString(" ")
	b.WriteString(tuiModeStyle.Render(strings.ToUpper(string(res.State.Mode))))
	if res.State.Mode == view.Mode2D {
		b.WriteString(tuiHelpStyle.Render(fmt.Sprintf("  zoom %.1fx", res.State.Zoom)))
	} else {
		b.WriteString(tuiHelpStyle.Render(fmt.Sprintf("  distance %.0f", res.State.CameraDistance)))
	}
	b.WriteByte('\n')

	b.WriteString(m.canvas(res))
	b.WriteByte('\n')

	b.WriteString(m.info(res))
	b.WriteByte('\n')
	b.WriteString(tuiHelpStyle.Render("tab mode · n/p select · arrows pan/orbit · +/- zoom · drag pan · r retry · q quit"))
	return b.String()
}

func (m *viewModel) canvas(res viewer.Result) string {
	if res.State.Mode == view.Mode2D {
		return paintCells(planarCells(m.v.Planar(), res.State.SelectedID, m.cols, m.rows))
	}
	if res.Status == spatial.StatusDegraded {
		return degradedCanvas(m.cols, m.rows)
	}
	if !m.v.Spatial().Running() {
		if _, err := m.v.Render3D(m.ctx); err != nil {
			return degradedCanvas(m.cols, m.rows)
		}
	}
	if cd, ok := m.device(); ok {
		return paintCells(cd.Cells())
	}
	return degradedCanvas(m.cols, m.rows)
}

func (m *viewModel) device() (*spatial.CellDevice, bool) {
	cd, ok := m.v.Device().(*spatial.CellDevice)
	return cd, ok
}

func degradedCanvas(cols, rows int) string {
	msg := spatial.DegradedMessage + ". Press r to retry."
	return lipgloss.Place(cols, rows, lipgloss.Center, lipgloss.Center, tuiErrStyle.Render(msg))
}

func (m *viewModel) info(res viewer.Result) string {
	var parts []string
	if sel := res.Selection; sel != nil {
		st := style.Of(sel.Category)
		parts = append(parts,
			categoryStyle(sel.Category).Render(st.Glyph+" "+st.Name),
			StyleValue.Render(sel.Label),
			fmt.Sprintf("out %d", sel.Outgoing),
			fmt.Sprintf("in %d", sel.Incoming),
		)
	} else {
		parts = append(parts, "no selection")
	}
	if m.notice != "" {
		parts = append(parts, m.notice)
	}
	line := strings.Join(parts, StyleDim.Render(" · "))
	if m.err != "" {
		line += "  " + tuiErrStyle.Render(m.err)
	}
	return line
}
