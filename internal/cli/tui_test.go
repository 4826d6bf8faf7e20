package cli

import (
	"context"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matzehuels/codeflow/pkg/graph"
	"github.com/matzehuels/codeflow/pkg/layout"
	"github.com/matzehuels/codeflow/pkg/render/spatial"
	"github.com/matzehuels/codeflow/pkg/view"
	"github.com/matzehuels/codeflow/pkg/viewer"
)

func tuiFixture() graph.Snapshot {
	return graph.Snapshot{
		Nodes: []graph.Node{
			{ID: "app", Label: "App.tsx", Type: graph.TypeFile},
			{ID: "auth", Label: "useAuth", Type: graph.TypeFunction},
			{ID: "api", Label: "/api/users", Type: graph.TypeRoute},
		},
		Edges: []graph.Edge{
			{Source: "app", Target: "auth", Type: graph.EdgeImport},
			{Source: "auth", Target: "api", Type: graph.EdgeDependency},
		},
	}
}

func layoutSnapshot(ctx context.Context, s graph.Snapshot) *layout.Result {
	return layout.New().Layout(ctx, s)
}

func newTestModel(t *testing.T) *viewModel {
	t.Helper()
	ctx := context.Background()
	s := tuiFixture()
	dev := spatial.NewCellDevice(100, 30)
	w, h := dev.Viewport()
	v := viewer.New(s, layoutSnapshot(ctx, s), viewer.WithDevice(dev), viewer.WithViewport(w, h))
	t.Cleanup(func() { v.Close(ctx) })

	m := newViewModel(ctx, "graph.json", v, layoutSnapshot, nil, nil)
	m.Update(tea.WindowSizeMsg{Width: 100, Height: 30 + chromeRows})
	return m
}

func keyRunes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestViewModelResize(t *testing.T) {
	m := newTestModel(t)
	m.Update(tea.WindowSizeMsg{Width: 60, Height: 20})

	assert.Equal(t, 60, m.cols)
	assert.Equal(t, 20-chromeRows, m.rows)
	w, h := m.v.Viewport()
	assert.Equal(t, 60.0, w)
	assert.Equal(t, float64(20-chromeRows)*spatial.CellAspect, h)
}

func TestViewModelStepSelection(t *testing.T) {
	m := newTestModel(t)

	m.Update(keyRunes("n"))
	assert.Equal(t, "app", m.v.Controller().State().SelectedID)
	m.Update(keyRunes("n"))
	assert.Equal(t, "auth", m.v.Controller().State().SelectedID)
	m.Update(keyRunes("p"))
	m.Update(keyRunes("p"))
	assert.Equal(t, "api", m.v.Controller().State().SelectedID, "stepping wraps around")

	out := m.View()
	assert.Contains(t, out, "/api/users")
	assert.Contains(t, out, "in 1")
}

func TestViewModelToggleMode(t *testing.T) {
	m := newTestModel(t)
	assert.Contains(t, m.View(), "2D")

	m.Update(tea.KeyMsg{Type: tea.KeyTab})
	assert.Equal(t, view.Mode3D, m.v.Controller().State().Mode)
	out := m.View()
	assert.Contains(t, out, "3D")
	assert.Contains(t, out, "distance")

	m.Update(keyRunes("m"))
	assert.Equal(t, view.Mode2D, m.v.Controller().State().Mode)
}

func TestViewModelZoomKeys(t *testing.T) {
	m := newTestModel(t)
	m.Update(keyRunes("+"))
	assert.InDelta(t, view.DefaultZoom+view.ZoomStep, m.v.Controller().State().Zoom, 1e-9)
	m.Update(keyRunes("-"))
	assert.InDelta(t, view.DefaultZoom, m.v.Controller().State().Zoom, 1e-9)
}

func TestViewModelMouseDragPans(t *testing.T) {
	m := newTestModel(t)

	m.Update(tea.MouseMsg{X: 0, Y: 1, Action: tea.MouseActionPress, Button: tea.MouseButtonLeft})
	require.True(t, m.v.Controller().State().Dragging)
	m.Update(tea.MouseMsg{X: 20, Y: 6, Action: tea.MouseActionMotion, Button: tea.MouseButtonLeft})
	m.Update(tea.MouseMsg{X: 20, Y: 6, Action: tea.MouseActionRelease, Button: tea.MouseButtonLeft})

	st := m.v.Controller().State()
	assert.False(t, st.Dragging)
	assert.Equal(t, view.Point{X: 20, Y: 10}, st.Pan)
}

func TestViewModelBlurEndsDrag(t *testing.T) {
	m := newTestModel(t)

	m.Update(tea.MouseMsg{X: 0, Y: 1, Action: tea.MouseActionPress, Button: tea.MouseButtonLeft})
	require.True(t, m.v.Controller().State().Dragging)
	m.Update(tea.BlurMsg{})
	assert.False(t, m.v.Controller().State().Dragging)
	assert.Zero(t, m.v.Controller().Window().Len(), "drag listeners are released")

	m.Update(tea.MouseMsg{X: 30, Y: 9, Action: tea.MouseActionMotion, Button: tea.MouseButtonLeft})
	assert.Equal(t, view.Point{}, m.v.Controller().State().Pan, "moves after blur are ignored")
}

func TestViewModelQuit(t *testing.T) {
	m := newTestModel(t)
	_, cmd := m.Update(keyRunes("q"))
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
}

func TestViewModelReload(t *testing.T) {
	m := newTestModel(t)
	m.Update(keyRunes("n"))

	s := tuiFixture()
	s.Nodes = append(s.Nodes, graph.Node{ID: "db", Label: "db.ts", Type: graph.TypeFile})
	m.Update(reloadMsg{snap: s})

	assert.Len(t, m.order, 4)
	assert.Contains(t, m.notice, "4 nodes")
	assert.Equal(t, -1, m.cursor, "a new snapshot resets the view")
	assert.Empty(t, m.v.Controller().State().SelectedID)
}

func TestPlanarCellsDrawsNodes(t *testing.T) {
	m := newTestModel(t)
	out := plainCells(planarCells(m.v.Planar(), "auth", m.cols, m.rows))

	lines := strings.Split(out, "\n")
	assert.Len(t, lines, m.rows)
	for _, l := range lines {
		assert.Equal(t, m.cols, len([]rune(l)))
	}
	assert.Contains(t, out, "useAuth")
	assert.Contains(t, out, "◉", "selected node is marked")
	assert.Contains(t, out, "●")
}

func TestPaintCellsKeepsText(t *testing.T) {
	cells := [][]spatial.Cell{
		{{Rune: 'a'}, {Rune: 'b', Color: "#ff0000"}},
		{{Rune: 'c', Bold: true}, {Rune: 'd'}},
	}
	assert.Equal(t, "ab\ncd", plainCells(cells))
	out := paintCells(cells)
	assert.Contains(t, out, "a")
	assert.Contains(t, out, "d")
	assert.Equal(t, 2, len(strings.Split(out, "\n")))
}
