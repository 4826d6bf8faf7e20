package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/codeflow/pkg/graph"
	"github.com/matzehuels/codeflow/pkg/layout"
)

// layoutFile is the JSON document written by the layout command.
type layoutFile struct {
	SnapshotHash string         `json:"snapshot_hash"`
	Layout       *layout.Result `json:"layout"`
}

// layoutCommand creates the layout command.
func (c *CLI) layoutCommand() *cobra.Command {
	var (
		output  string
		noCache bool
	)

	cmd := &cobra.Command{
		Use:   "layout [graph.json]",
		Short: "Compute the layered layout of a snapshot",
		Long: `Compute the layered layout of a snapshot.

The input is a {nodes, edges} document in JSON or YAML. The output is a JSON
file with every node's position, the canvas size, the crossing count of the
chosen ordering and whether the grid fallback was used.

Layouts are memoized in the configured cache, so repeated runs are instant.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runLayout(cmd.Context(), args[0], output, noCache)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default: <input>.layout.json, - for stdout)")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable caching")

	return cmd
}

func (c *CLI) runLayout(ctx context.Context, input, output string, noCache bool) error {
	snap, err := graph.ReadSnapshotFile(input)
	if err != nil {
		return err
	}
	if err := snap.Validate(); err != nil {
		c.Logger.Warn("snapshot is not well formed, using the grid fallback", "err", err)
	}

	runner, err := c.newRunner(ctx, noCache)
	if err != nil {
		return fmt.Errorf("initialize runner: %w", err)
	}
	defer runner.Close()

	prog := newProgress(c.Logger)
	res := runner.Layout(ctx, snap)
	prog.done("Laid out "+filepath.Base(input), "nodes", len(res.Nodes))
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := json.MarshalIndent(layoutFile{SnapshotHash: snap.Hash(), Layout: res}, "", "  ")
	if err != nil {
		return err
	}
	if output == "-" {
		_, err := os.Stdout.Write(append(data, '\n'))
		return err
	}
	if output == "" {
		output = strings.TrimSuffix(input, filepath.Ext(input)) + ".layout.json"
	}
	if err := os.WriteFile(output, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write output %s: %w", output, err)
	}

	printSuccess("Layout complete")
	printFile(output)
	printStats(graphStats{
		nodes:     len(snap.Nodes),
		edges:     len(snap.Edges),
		crossings: res.Crossings,
		backEdges: res.BackEdges,
		fallback:  res.Fallback,
	})
	printNewline()
	printNextStep("Render", appName+" render "+input)
	return nil
}
