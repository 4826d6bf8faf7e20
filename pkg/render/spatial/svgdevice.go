package spatial

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/matzehuels/codeflow/pkg/style"
)

const (
	background = "#0a0e1a"
	fontFamily = "'JetBrains Mono', monospace"
	// IconPixels is the on-screen size of icon billboards.
	IconPixels = 48.0
)

// SVGDevice rasterizes frames into SVG documents.
type SVGDevice struct {
	mu     sync.Mutex
	table  handleTable
	width  float64
	height float64
	last   []byte
	frames int
}

// NewSVGDevice creates a device with a w x h viewport.
func NewSVGDevice(w, h float64) *SVGDevice {
	return &SVGDevice{table: newHandleTable(), width: w, height: h}
}

func (d *SVGDevice) CreateGeometry(g Geometry) (Handle, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.table.addGeometry(g), nil
}

func (d *SVGDevice) CreateMaterial(m Material) (Handle, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.table.addMaterial(m), nil
}

func (d *SVGDevice) CreateOverlay(o Overlay) (Handle, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.table.addOverlay(o), nil
}

func (d *SVGDevice) Release(h Handle) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.table.release(h)
}

func (d *SVGDevice) Live() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.table.live()
}

func (d *SVGDevice) Resize(w, h float64) error {
	if w <= 0 || h <= 0 {
		return fmt.Errorf("resize: invalid size %gx%g", w, h)
	}
	d.mu.Lock()
	d.width, d.height = w, h
	d.mu.Unlock()
	return nil
}

// Bytes returns the SVG of the last drawn frame, or nil.
func (d *SVGDevice) Bytes() []byte {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.last
}

// Frames returns how many frames were drawn.
func (d *SVGDevice) Frames() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.frames
}

func (d *SVGDevice) Draw(f Frame) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.table.check(f); err != nil {
		return err
	}

	var buf bytes.Buffer
	fmt.Fprintf(&buf, `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %.1f %.1f" width="%.0f" height="%.0f" font-family="%s">`+"\n",
		d.width, d.height, d.width, d.height, fontFamily)
	buf.WriteString(`  <defs><radialGradient id="sphereHighlight" cx="35%" cy="35%" r="50%"><stop offset="0%" stop-color="rgba(255,255,255,0.35)"/><stop offset="70%" stop-color="rgba(255,255,255,0)"/></radialGradient></defs>` + "\n")
	fmt.Fprintf(&buf, `  <rect width="%.1f" height="%.1f" fill="%s"/>`+"\n", d.width, d.height, background)

	buf.WriteString(`  <g class="edges">` + "\n")
	for _, l := range f.Lines {
		m := d.table.materials[l.Material]
		pts := make([]string, len(l.Points))
		for i, p := range l.Points {
			pts[i] = num(p.X) + "," + num(p.Y)
		}
		fmt.Fprintf(&buf, `    <polyline points="%s" fill="none" stroke="%s" stroke-opacity="%s" stroke-width="2"/>`+"\n",
			strings.Join(pts, " "), m.Color, num(m.Opacity))
	}
	buf.WriteString("  </g>\n")

	buf.WriteString(`  <g class="spheres">` + "\n")
	for _, s := range f.Discs {
		m := d.table.materials[s.Material]
		fmt.Fprintf(&buf, `    <g class="sphere" data-id="%s">`, style.EscapeXML(s.NodeID))
		fmt.Fprintf(&buf, `<circle cx="%s" cy="%s" r="%s" fill="%s" fill-opacity="%s"/>`,
			num(s.Center.X), num(s.Center.Y), num(s.Radius), m.Color, num(s.Shade))
		fmt.Fprintf(&buf, `<circle cx="%s" cy="%s" r="%s" fill="url(#sphereHighlight)"/>`,
			num(s.Center.X), num(s.Center.Y), num(s.Radius))
		if s.Selected {
			fmt.Fprintf(&buf, `<circle cx="%s" cy="%s" r="%s" fill="none" stroke="#fff" stroke-width="2"/>`,
				num(s.Center.X), num(s.Center.Y), num(s.Radius+3))
		}
		buf.WriteString("</g>\n")
	}
	buf.WriteString("  </g>\n")

	buf.WriteString(`  <g class="overlays">` + "\n")
	for i, s := range f.Sprites {
		o := d.table.overlays[s.Overlay]
		switch o.Kind {
		case IconBillboard:
			buf.WriteString("    " + style.IconAt(o.Category, i, s.At.X-s.Size/2, s.At.Y-s.Size/2, s.Size) + "\n")
		case LabelBillboard:
			fmt.Fprintf(&buf, `    <text x="%s" y="%s" font-size="14" font-weight="700" text-anchor="middle" fill="#fff">%s</text>`+"\n",
				num(s.At.X), num(s.At.Y+6), style.EscapeXML(o.Text))
			fmt.Fprintf(&buf, `    <text x="%s" y="%s" font-size="11" font-weight="600" text-anchor="middle" fill="#94a3b8">%s</text>`+"\n",
				num(s.At.X), num(s.At.Y+21), style.EscapeXML(o.Caption))
		}
	}
	buf.WriteString("  </g>\n</svg>\n")

	d.last = buf.Bytes()
	d.frames++
	return nil
}

// DegradedSVG draws the placeholder shown while the 3D view is unavailable.
func DegradedSVG(w, h float64, message string) []byte {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %.1f %.1f" width="%.0f" height="%.0f" font-family="%s">`+"\n",
		w, h, w, h, fontFamily)
	fmt.Fprintf(&buf, `  <rect width="%.1f" height="%.1f" fill="%s"/>`+"\n", w, h, background)
	fmt.Fprintf(&buf, `  <g class="degraded" transform="translate(%s, %s)">`+"\n", num(w/2), num(h/2))
	fmt.Fprintf(&buf, `    <text y="-8" font-size="16" font-weight="700" text-anchor="middle" fill="#64748b">%s</text>`+"\n", style.EscapeXML(message))
	buf.WriteString(`    <g class="retry"><rect x="-40" y="10" width="80" height="30" rx="6" fill="rgba(59,130,246,0.2)" stroke="#3b82f6"/>`)
	buf.WriteString(`<text y="30" font-size="13" font-weight="700" text-anchor="middle" fill="#3b82f6">Retry</text></g>` + "\n")
	buf.WriteString("  </g>\n</svg>\n")
	return buf.Bytes()
}

func num(v float64) string {
	s := strconv.FormatFloat(v, 'f', 2, 64)
	s = strings.TrimRight(s, "0")
	s = strings.TrimSuffix(s, ".")
	if s == "-0" {
		return "0"
	}
	return s
}
