// Package pipeline provides the snapshot → layout → render pipeline shared
// by the CLI and the HTTP server.
//
// Centralizing this logic keeps static exports consistent across entry points:
// the same options produce the same bytes whether they come from flags or a
// request.
//
// # Architecture
//
// The pipeline has two stages:
//
//  1. Layout: position the snapshot's nodes (memoized on the content hash)
//  2. Render: draw the laid-out graph in one or more modes and formats
//
// Modes are rendered concurrently. Each mode first produces SVG, which is
// then converted to PNG or PDF on request.
//
// # Usage
//
//	runner := pipeline.NewRunner(memo, c, nil, logger)
//	res, err := runner.Execute(ctx, snap, pipeline.Options{
//	    Modes:   []string{pipeline.Mode2D, pipeline.Mode3D},
//	    Formats: []string{pipeline.FormatSVG},
//	})
//	svg := res.Artifacts[pipeline.ArtifactName(pipeline.Mode2D, pipeline.FormatSVG)]
package pipeline

import (
	"io"
	"slices"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/codeflow/pkg/cache"
	"github.com/matzehuels/codeflow/pkg/errors"
	"github.com/matzehuels/codeflow/pkg/graph"
	"github.com/matzehuels/codeflow/pkg/layout"
	"github.com/matzehuels/codeflow/pkg/render/planar"
	"github.com/matzehuels/codeflow/pkg/view"
)

// =============================================================================
// Default Values - Single Source of Truth for CLI and Server
// =============================================================================

const (
	// DefaultWidth is the default viewport width in pixels.
	DefaultWidth = planar.DefaultWidth

	// DefaultHeight is the default viewport height in pixels.
	DefaultHeight = planar.DefaultHeight

	// DefaultPNGScale is the raster scale for PNG output.
	DefaultPNGScale = 2.0

	// TTLRender is how long rendered artifacts stay in the shared cache.
	TTLRender = 24 * time.Hour
)

// Render modes.
const (
	Mode2D  = string(view.Mode2D)
	Mode3D  = string(view.Mode3D)
	ModeDOT = "dot"

	// ModeBoth expands to 2D and 3D.
	ModeBoth = "both"
)

// Output formats.
const (
	FormatSVG = "svg"
	FormatPNG = "png"
	FormatPDF = "pdf"
	FormatDOT = "dot"
)

// ValidFormats is the set of supported output formats.
var ValidFormats = map[string]bool{
	FormatSVG: true,
	FormatPNG: true,
	FormatPDF: true,
	FormatDOT: true,
}

// ValidModes is the set of supported render modes.
var ValidModes = map[string]bool{
	Mode2D:  true,
	Mode3D:  true,
	ModeDOT: true,
}

// =============================================================================
// Options - Pipeline Configuration
// =============================================================================

// Options contains all configuration for a render. It supports JSON for
// server requests.
type Options struct {
	Modes   []string `json:"modes,omitempty"`
	Formats []string `json:"formats,omitempty"`

	Width  float64 `json:"width,omitempty"`
	Height float64 `json:"height,omitempty"`

	// Selected highlights a node and, in 2D, opens its info panel.
	Selected string `json:"selected,omitempty"`

	// Zoom is the 2D zoom factor; 0 means the default.
	Zoom float64 `json:"zoom,omitempty"`

	// Distance is the 3D camera distance; 0 means the default.
	Distance float64 `json:"distance,omitempty"`

	// Azimuth and Elevation place the 3D camera, in degrees.
	Azimuth   float64 `json:"azimuth,omitempty"`
	Elevation float64 `json:"elevation,omitempty"`

	// Refresh skips the artifact cache.
	Refresh bool `json:"refresh,omitempty"`

	Logger *log.Logger `json:"-"`
}

// Result contains the outputs of a pipeline run.
type Result struct {
	Snapshot graph.Snapshot
	Layout   *layout.Result

	// Artifacts holds rendered outputs keyed by [ArtifactName].
	Artifacts map[string][]byte

	Stats     Stats
	CacheInfo CacheInfo
}

// Stats contains run statistics.
type Stats struct {
	NodeCount  int
	EdgeCount  int
	LayoutTime time.Duration
	RenderTime time.Duration
}

// CacheInfo counts artifacts served from the shared cache.
type CacheInfo struct {
	RenderHits int
}

// ArtifactName names the output of mode in format, e.g. "2d.svg". DOT text
// does not depend on the mode and is always named "graph.dot".
func ArtifactName(mode, format string) string {
	if format == FormatDOT {
		return "graph.dot"
	}
	return mode + "." + format
}

// =============================================================================
// Validation Functions
// =============================================================================

// ValidateFormat checks that a format is valid.
func ValidateFormat(format string) error {
	if !ValidFormats[format] {
		return errors.New(errors.ErrCodeInvalidFormat, "invalid format: %q (must be one of: svg, png, pdf, dot)", format)
	}
	return nil
}

// ValidateFormats checks that all formats are valid.
func ValidateFormats(formats []string) error {
	for _, f := range formats {
		if err := ValidateFormat(f); err != nil {
			return err
		}
	}
	return nil
}

// ValidateMode checks that a mode is valid.
func ValidateMode(mode string) error {
	if !ValidModes[mode] {
		return errors.New(errors.ErrCodeInvalidMode, "invalid mode: %q (must be one of: 2d, 3d, dot)", mode)
	}
	return nil
}

// ExpandModes resolves "both" and removes duplicates, keeping order.
func ExpandModes(modes []string) []string {
	var out []string
	for _, m := range modes {
		if m == ModeBoth {
			out = append(out, Mode2D, Mode3D)
			continue
		}
		out = append(out, m)
	}
	return slices.Compact(out)
}

// =============================================================================
// Options Methods
// =============================================================================

// ValidateAndSetDefaults expands modes, checks every mode and format, and
// fills defaults. It is idempotent.
func (o *Options) ValidateAndSetDefaults() error {
	if len(o.Modes) == 0 {
		o.Modes = []string{Mode2D}
	}
	o.Modes = ExpandModes(o.Modes)
	for _, m := range o.Modes {
		if err := ValidateMode(m); err != nil {
			return err
		}
	}
	if len(o.Formats) == 0 {
		o.Formats = []string{FormatSVG}
	}
	if err := ValidateFormats(o.Formats); err != nil {
		return err
	}
	if o.Width <= 0 {
		o.Width = DefaultWidth
	}
	if o.Height <= 0 {
		o.Height = DefaultHeight
	}
	if o.Logger == nil {
		o.Logger = log.New(io.Discard)
	}
	return nil
}

// RenderKeyOpts returns cache key options for one artifact.
func (o *Options) RenderKeyOpts(mode, format string) cache.RenderKeyOpts {
	return cache.RenderKeyOpts{
		Mode:      mode,
		Format:    format,
		Width:     int(o.Width),
		Height:    int(o.Height),
		Selected:  o.Selected,
		Zoom:      o.Zoom,
		Distance:  o.Distance,
		Azimuth:   o.Azimuth,
		Elevation: o.Elevation,
	}
}
