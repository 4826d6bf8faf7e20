package pipeline

import (
	"context"
	"fmt"
	"math"

	"github.com/matzehuels/codeflow/pkg/errors"
	"github.com/matzehuels/codeflow/pkg/graph"
	"github.com/matzehuels/codeflow/pkg/layout"
	"github.com/matzehuels/codeflow/pkg/render"
	"github.com/matzehuels/codeflow/pkg/render/nodelink"
	"github.com/matzehuels/codeflow/pkg/render/planar"
	"github.com/matzehuels/codeflow/pkg/render/spatial"
	"github.com/matzehuels/codeflow/pkg/view"
)

// RenderMode renders s in one mode and returns its artifacts keyed by
// [ArtifactName]. opts must already be validated.
func RenderMode(ctx context.Context, s graph.Snapshot, res *layout.Result, mode string, opts Options) (map[string][]byte, error) {
	artifacts := make(map[string][]byte, len(opts.Formats))
	var svg []byte
	for _, format := range opts.Formats {
		if format == FormatDOT {
			artifacts[ArtifactName(mode, format)] = []byte(nodelink.ToDOT(s, nodelink.Options{Layout: res}))
			continue
		}
		if svg == nil {
			var err error
			if svg, err = SVG(ctx, s, res, mode, opts); err != nil {
				return nil, err
			}
		}
		data, err := convert(ctx, s, res, mode, format, svg)
		if err != nil {
			return nil, fmt.Errorf("render %s %s: %w", mode, format, err)
		}
		artifacts[ArtifactName(mode, format)] = data
	}
	return artifacts, nil
}

func convert(ctx context.Context, s graph.Snapshot, res *layout.Result, mode, format string, svg []byte) ([]byte, error) {
	switch {
	case format == FormatSVG:
		return svg, nil
	case mode == ModeDOT:
		// Graphviz rasterizes its own output directly.
		dot := nodelink.ToDOT(s, nodelink.Options{Layout: res})
		if format == FormatPNG {
			return nodelink.RenderPNG(ctx, dot, DefaultPNGScale)
		}
		return nodelink.RenderPDF(ctx, dot)
	case format == FormatPNG:
		return render.ToPNG(svg, DefaultPNGScale)
	case format == FormatPDF:
		return render.ToPDF(svg)
	default:
		return nil, errors.New(errors.ErrCodeInvalidFormat, "unsupported format %q", format)
	}
}

// SVG renders s in mode as a static SVG document.
func SVG(ctx context.Context, s graph.Snapshot, res *layout.Result, mode string, opts Options) ([]byte, error) {
	switch mode {
	case Mode2D:
		return planarSVG(s, res, opts), nil
	case Mode3D:
		return spatialSVG(ctx, s, res, opts)
	case ModeDOT:
		return nodelink.RenderSVG(ctx, nodelink.ToDOT(s, nodelink.Options{Layout: res}))
	default:
		return nil, ValidateMode(mode)
	}
}

// Controller returns a controller loaded with s and positioned by opts.
func Controller(s graph.Snapshot, mode view.Mode, opts Options) *view.Controller {
	ctrl := view.New(nil)
	ctrl.Load(s)
	if mode != view.Mode2D {
		// SetMode only fails for unknown modes.
		_ = ctrl.SetMode(mode)
	}
	if opts.Selected != "" {
		ctrl.Select(opts.Selected)
	}
	if opts.Zoom > 0 {
		ctrl.SetZoom(opts.Zoom)
	}
	if opts.Distance > 0 {
		ctrl.SetCameraDistance(opts.Distance)
	}
	return ctrl
}

func planarSVG(s graph.Snapshot, res *layout.Result, opts Options) []byte {
	ctrl := Controller(s, view.Mode2D, opts)
	defer ctrl.Teardown()
	r := planar.New(planar.NewScene(s, res), ctrl, planar.WithViewport(opts.Width, opts.Height))
	return r.SVG()
}

func spatialSVG(ctx context.Context, s graph.Snapshot, res *layout.Result, opts Options) ([]byte, error) {
	ctrl := Controller(s, view.Mode3D, opts)
	defer ctrl.Teardown()

	dev := spatial.NewSVGDevice(opts.Width, opts.Height)
	r := spatial.NewRenderer(spatial.NewScene(s, res), ctrl, dev, opts.Width, opts.Height)
	sup := spatial.NewSupervisor(r, spatial.WithSupervisorLogger(opts.Logger))
	defer sup.Stop(ctx)

	// Init places the camera at its initial position; orbit it afterwards.
	if sup.Init(ctx) != spatial.StatusRunning {
		_, cause := sup.Status()
		return nil, errors.Wrap(errors.ErrCodeRenderUnavailable, cause, spatial.DegradedMessage)
	}
	if opts.Azimuth != 0 || opts.Elevation != 0 {
		err := sup.Do(ctx, func(r *spatial.Renderer) error {
			r.SetAngles(Radians(opts.Azimuth), math.Pi/2-Radians(opts.Elevation))
			return nil
		})
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeRenderUnavailable, err, spatial.DegradedMessage)
		}
	}
	if _, err := sup.RenderOnce(ctx); err != nil {
		return nil, errors.Wrap(errors.ErrCodeRenderUnavailable, err, spatial.DegradedMessage)
	}
	return dev.Bytes(), nil
}

// Radians converts degrees to radians.
func Radians(deg float64) float64 { return deg * math.Pi / 180 }
