package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/codeflow/pkg/graph"
	"github.com/matzehuels/codeflow/pkg/pipeline"
)

// renderFlags holds the command-line flags for the render command.
type renderFlags struct {
	output  string
	modes   string
	formats string
	noCache bool
	opts    pipeline.Options
}

// renderCommand creates the render command.
func (c *CLI) renderCommand() *cobra.Command {
	var f renderFlags

	cmd := &cobra.Command{
		Use:   "render [graph.json]",
		Short: "Render a snapshot as 2D, 3D or Graphviz output",
		Long: `Render a snapshot as 2D, 3D or Graphviz output.

Modes:
  2d    flat node-link view with legend and info panel
  3d    perspective scene seen from an orbit camera
  dot   Graphviz rendering of the same graph
  both  2d and 3d

Each mode is written in every requested format next to the input, e.g.
graph.2d.svg and graph.3d.png. With a single mode and format, -o names the
file; otherwise it is the base path.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f.opts.Modes = parseList(f.modes, pipeline.Mode2D)
			f.opts.Formats = parseList(f.formats, pipeline.FormatSVG)
			return c.runRender(cmd.Context(), args[0], f)
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&f.output, "output", "o", "", "output file (single mode and format) or base path")
	flags.StringVarP(&f.modes, "mode", "m", "", "render mode(s): 2d (default), 3d, both, dot (comma-separated)")
	flags.StringVarP(&f.formats, "format", "f", "", "output format(s): svg (default), png, pdf, dot (comma-separated)")
	flags.Float64Var(&f.opts.Width, "width", pipeline.DefaultWidth, "viewport width")
	flags.Float64Var(&f.opts.Height, "height", pipeline.DefaultHeight, "viewport height")
	flags.StringVar(&f.opts.Selected, "select", "", "node id to highlight")
	flags.Float64Var(&f.opts.Zoom, "zoom", 0, "2D zoom factor (default 1)")
	flags.Float64Var(&f.opts.Distance, "distance", 0, "3D camera distance (default 800)")
	flags.Float64Var(&f.opts.Azimuth, "orbit-x", 0, "3D camera azimuth in degrees")
	flags.Float64Var(&f.opts.Elevation, "orbit-y", 0, "3D camera elevation in degrees")
	flags.BoolVar(&f.opts.Refresh, "refresh", false, "ignore cached renderings")
	flags.BoolVar(&f.noCache, "no-cache", false, "disable caching")

	return cmd
}

func (c *CLI) runRender(ctx context.Context, input string, f renderFlags) error {
	opts := f.opts
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return err
	}
	snap, err := graph.ReadSnapshotFile(input)
	if err != nil {
		return err
	}

	runner, err := c.newRunner(ctx, f.noCache)
	if err != nil {
		return fmt.Errorf("initialize runner: %w", err)
	}
	defer runner.Close()

	spinner := newSpinner(ctx, os.Stderr, fmt.Sprintf("Rendering %s...", strings.Join(opts.Modes, ", ")))
	spinner.Start()
	opts.Logger = c.Logger
	res, err := runner.Execute(ctx, snap, opts)
	if err != nil {
		spinner.StopWithError("Render failed")
		return err
	}
	spinner.Stop()
	if err := ctx.Err(); err != nil {
		return err
	}

	paths := outputPaths(input, f.output, opts.Modes, opts.Formats)
	names := make([]string, 0, len(paths))
	for name := range paths {
		names = append(names, name)
	}
	slices.Sort(names)

	printSuccess("Rendered %s", filepath.Base(input))
	for _, name := range names {
		data, ok := res.Artifacts[name]
		if !ok {
			continue
		}
		if err := os.WriteFile(paths[name], data, 0o644); err != nil {
			return fmt.Errorf("write %s: %w", paths[name], err)
		}
		c.Logger.Debug("wrote artifact", "path", paths[name], "bytes", len(data))
		printFile(paths[name])
	}
	printStats(graphStats{
		nodes:     res.Stats.NodeCount,
		edges:     res.Stats.EdgeCount,
		crossings: res.Layout.Crossings,
		backEdges: res.Layout.BackEdges,
		fallback:  res.Layout.Fallback,
		cached:    res.CacheInfo.RenderHits > 0,
	})
	if res.Layout.Fallback {
		printWarning("layout fell back to the grid positioner")
	}
	return nil
}

// outputPaths maps artifact names to output files. A single artifact is
// written to output verbatim when given; otherwise files are named
// <base>.<artifact>, e.g. graph.2d.svg, and DOT text as <base>.dot.
func outputPaths(input, output string, modes, formats []string) map[string]string {
	names := make(map[string]bool)
	for _, m := range modes {
		for _, f := range formats {
			names[pipeline.ArtifactName(m, f)] = true
		}
	}
	paths := make(map[string]string, len(names))
	if len(names) == 1 && output != "" {
		for name := range names {
			paths[name] = output
		}
		return paths
	}
	base := basePath(output, input)
	for name := range names {
		suffix := name
		if name == pipeline.ArtifactName("", pipeline.FormatDOT) {
			suffix = pipeline.FormatDOT
		}
		paths[name] = base + "." + suffix
	}
	return paths
}

// basePath strips a known format extension from output, or the extension of
// input when output is empty.
func basePath(output, input string) string {
	if output == "" {
		return strings.TrimSuffix(input, filepath.Ext(input))
	}
	ext := filepath.Ext(output)
	if pipeline.ValidFormats[strings.TrimPrefix(ext, ".")] {
		return strings.TrimSuffix(output, ext)
	}
	return output
}
