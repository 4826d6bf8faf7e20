package planar

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/matzehuels/codeflow/pkg/style"
	"github.com/matzehuels/codeflow/pkg/view"
)

const (
	background = "#0a0e1a"
	panelFill  = "rgba(15,23,42,0.9)"
	panelLine  = "rgba(59,130,246,0.3)"
	mutedText  = "#64748b"
	captionInk = "#94a3b8"
	fontFamily = "'JetBrains Mono', monospace"
)

const defs = `  <defs>
    <linearGradient id="blueGrad" x1="0%" y1="0%" x2="100%" y2="100%"><stop offset="0%" stop-color="#3b82f6"/><stop offset="100%" stop-color="#8b5cf6"/></linearGradient>
    <linearGradient id="greenGrad" x1="0%" y1="0%" x2="100%" y2="100%"><stop offset="0%" stop-color="#10b981"/><stop offset="100%" stop-color="#06b6d4"/></linearGradient>
    <filter id="glow"><feGaussianBlur stdDeviation="4" result="coloredBlur"/><feMerge><feMergeNode in="coloredBlur"/><feMergeNode in="SourceGraphic"/></feMerge></filter>
    <marker id="arrow-default" markerWidth="10" markerHeight="10" refX="9" refY="3" orient="auto" markerUnits="strokeWidth"><polygon points="0 0, 10 3, 0 6" fill="` + style.DefaultEdgeColor + `" opacity="0.6"/></marker>
    <marker id="arrow-dependency" markerWidth="10" markerHeight="10" refX="9" refY="3" orient="auto" markerUnits="strokeWidth"><polygon points="0 0, 10 3, 0 6" fill="` + style.DependencyEdgeColor + `" opacity="0.6"/></marker>
  </defs>
`

// SVG draws the scene under the current view state.
func (r *Renderer) SVG() []byte {
	w, h := r.Viewport()
	t := r.Transform()
	st := r.ctrl.State()
	r.mu.Lock()
	withPanel, withLegend := r.infoPanel, r.legend
	r.mu.Unlock()

	var buf bytes.Buffer
	fmt.Fprintf(&buf, `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %.1f %.1f" width="%.0f" height="%.0f" font-family="%s">`+"\n",
		w, h, w, h, fontFamily)
	buf.WriteString(defs)
	fmt.Fprintf(&buf, `  <rect class="background" width="%.1f" height="%.1f" fill="%s"/>`+"\n", w, h, background)

	fmt.Fprintf(&buf, `  <g class="scene" transform="%s">`+"\n", t.SVG())
	renderEdges(&buf, r.scene)
	renderNodes(&buf, r.scene, st.SelectedID)
	buf.WriteString("  </g>\n")

	if withPanel {
		if sel, ok := r.ctrl.Selection(); ok {
			renderInfoPanel(&buf, sel, w, h)
		}
	}
	if withLegend {
		renderLegend(&buf, h)
	}
	buf.WriteString("</svg>\n")
	return buf.Bytes()
}

func renderEdges(buf *bytes.Buffer, s *Scene) {
	buf.WriteString(`    <g class="connections">` + "\n")
	for _, e := range s.Edges {
		marker := "arrow-default"
		if e.Color == style.DependencyEdgeColor {
			marker = "arrow-dependency"
		}
		fmt.Fprintf(buf, `      <path class="connection-line" d="M %s %s Q %s %s %s %s" stroke="%s" stroke-opacity="0.7" stroke-width="4" fill="none" marker-end="url(#%s)" data-source="%s" data-target="%s"/>`+"\n",
			num(e.From.X), num(e.From.Y), num(e.Ctrl.X), num(e.Ctrl.Y), num(e.To.X), num(e.To.Y),
			e.Color, marker, style.EscapeXML(e.Source), style.EscapeXML(e.Target))
	}
	buf.WriteString("    </g>\n")
}

func renderNodes(buf *bytes.Buffer, s *Scene, selected string) {
	buf.WriteString(`    <g class="nodes">` + "\n")
	for i, n := range s.Nodes {
		class := "node-group"
		if n.ID == selected {
			class += " selected"
		}
		color := n.Style.Color
		fmt.Fprintf(buf, `      <g class="%s" data-id="%s" transform="translate(%s, %s)">`+"\n",
			class, style.EscapeXML(n.ID), num(n.Center.X), num(n.Center.Y))
		fmt.Fprintf(buf, `        <circle class="node-glow" r="%s" fill="%s" filter="url(#glow)" opacity="0.5"/>`+"\n", num(GlowRadius), color)
		borderWidth, borderOpacity := "2", "0.3"
		if n.ID == selected {
			borderWidth, borderOpacity = "4", "1"
		}
		fmt.Fprintf(buf, `        <circle class="node-border" r="%s" fill="none" stroke="%s" stroke-width="%s" opacity="%s"/>`+"\n",
			num(BorderRadius), color, borderWidth, borderOpacity)
		fmt.Fprintf(buf, `        <circle class="node-circle" r="%s" fill="%s" opacity="0.9" filter="url(#glow)"/>`+"\n",
			num(NodeRadius), discFill(n.Style))
		buf.WriteString("        " + style.IconAt(n.Style.Category, i, -IconSize/2, -IconSize/2, IconSize) + "\n")
		fmt.Fprintf(buf, `        <text class="node-label" y="%s" font-size="20" font-weight="700" text-anchor="middle" fill="#fff">%s</text>`+"\n",
			num(LabelOffset), style.EscapeXML(style.TruncateLabel(n.Label)))
		fmt.Fprintf(buf, `        <text class="node-sublabel" y="%s" font-size="17" font-weight="600" text-anchor="middle" fill="%s">%s</text>`+"\n",
			num(CaptionOffset), captionInk, style.EscapeXML(caption(n)))
		buf.WriteString("      </g>\n")
	}
	buf.WriteString("    </g>\n")
}

// discFill paints solid categories in their color and the rest with a
// gradient matching their family.
func discFill(s style.Style) string {
	switch s.Category {
	case style.Folder, style.Test, style.Route, style.Class, style.CSS:
		return s.Color
	case style.Function:
		return "url(#greenGrad)"
	default:
		return "url(#blueGrad)"
	}
}

func caption(n SceneNode) string {
	if n.Type != "" {
		return string(n.Type)
	}
	return string(n.Style.Category)
}

const (
	panelWidth  = 260.0
	panelRow    = 28.0
	panelMargin = 16.0
	panelPad    = 16.0
)

func renderInfoPanel(buf *bytes.Buffer, sel view.Selection, w, h float64) {
	rows := [][2]string{
		{"Type", typeName(sel)},
		{"Category", style.Of(sel.Category).Name},
		{"Outgoing", strconv.Itoa(sel.Outgoing)},
		{"Incoming", strconv.Itoa(sel.Incoming)},
	}
	ph := panelPad*2 + panelRow*float64(len(rows)+1)
	x, y := w-panelWidth-panelMargin, h-ph-panelMargin

	fmt.Fprintf(buf, `  <g class="info-panel" transform="translate(%s, %s)">`+"\n", num(x), num(y))
	fmt.Fprintf(buf, `    <rect width="%s" height="%s" rx="12" fill="%s" stroke="%s"/>`+"\n", num(panelWidth), num(ph), panelFill, panelLine)
	fmt.Fprintf(buf, `    <text x="%s" y="%s" font-size="15" font-weight="700" fill="%s">%s</text>`+"\n",
		num(panelPad), num(panelPad+panelRow*0.6), style.DefaultEdgeColor, style.EscapeXML(sel.Label))
	for i, row := range rows {
		ry := panelPad + panelRow*float64(i+1) + panelRow*0.6
		fmt.Fprintf(buf, `    <text x="%s" y="%s" font-size="13" fill="%s">%s</text>`+"\n", num(panelPad), num(ry), mutedText, row[0])
		fmt.Fprintf(buf, `    <text x="%s" y="%s" font-size="13" font-weight="600" text-anchor="end" fill="#fff">%s</text>`+"\n",
			num(panelWidth-panelPad), num(ry), style.EscapeXML(row[1]))
	}
	buf.WriteString("  </g>\n")
}

func typeName(sel view.Selection) string {
	if sel.Type != "" {
		return string(sel.Type)
	}
	return "-"
}

func renderLegend(buf *bytes.Buffer, h float64) {
	const row, sw = 20.0, 14.0
	lh := panelPad*2 + row*float64(len(style.Categories)+1)
	fmt.Fprintf(buf, `  <g class="legend" transform="translate(%s, %s)">`+"\n", num(panelMargin), num(h-lh-panelMargin))
	fmt.Fprintf(buf, `    <rect width="150" height="%s" rx="12" fill="%s" stroke="%s"/>`+"\n", num(lh), panelFill, panelLine)
	fmt.Fprintf(buf, `    <text x="%s" y="%s" font-size="12" font-weight="700" fill="#fff">Legend</text>`+"\n", num(panelPad), num(panelPad+12))
	for i, c := range style.Categories {
		s := style.Of(c)
		y := panelPad + row*float64(i+1)
		fmt.Fprintf(buf, `    <rect x="%s" y="%s" width="%s" height="%s" rx="4" fill="%s"/>`+"\n", num(panelPad), num(y), num(sw), num(sw), s.Color)
		fmt.Fprintf(buf, `    <text x="%s" y="%s" font-size="12" fill="#fff">%s</text>`+"\n", num(panelPad+sw+8), num(y+11), s.Name)
	}
	buf.WriteString("  </g>\n")
}

func fmtTransform(tx, ty, s float64) string {
	return fmt.Sprintf("translate(%s, %s) scale(%s)", num(tx), num(ty), strconv.FormatFloat(s, 'f', 4, 64))
}

// num formats a coordinate with at most two decimals.
func num(v float64) string {
	s := strconv.FormatFloat(v, 'f', 2, 64)
	s = strings.TrimRight(s, "0")
	s = strings.TrimSuffix(s, ".")
	if s == "-0" {
		return "0"
	}
	return s
}
