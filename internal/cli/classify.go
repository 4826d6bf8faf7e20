package cli

import (
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/matzehuels/codeflow/pkg/graph"
	"github.com/matzehuels/codeflow/pkg/style"
)

// classifyCommand creates the classify command.
func (c *CLI) classifyCommand() *cobra.Command {
	var category string

	cmd := &cobra.Command{
		Use:   "classify [graph.json]",
		Short: "List nodes with their visual category and edge counts",
		Long: `List every node with the category that decides its color and icon, and
its outgoing and incoming edge counts.

Categories come from the node type when it is folder, function, route, class
or component, and from the label otherwise (tests, styles, React sources,
JavaScript, plain files).`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			snap, err := graph.ReadSnapshotFile(args[0])
			if err != nil {
				return err
			}
			return writeClassification(os.Stdout, snap, style.Category(category))
		},
	}

	cmd.Flags().StringVar(&category, "category", "", "only list nodes of this category")
	return cmd
}

// writeClassification renders the node table to w.
func writeClassification(w io.Writer, snap graph.Snapshot, only style.Category) error {
	var (
		rows [][]string
		cats []style.Category
	)
	counts := make(map[style.Category]int)
	for _, n := range snap.Nodes {
		cat := style.ClassifyNode(n)
		counts[cat]++
		if only != "" && cat != only {
			continue
		}
		out, in := snap.EdgeCounts(n.ID)
		st := style.Of(cat)
		rows = append(rows, []string{
			n.ID,
			style.TruncateLabel(n.DisplayLabel()),
			string(n.Type),
			st.Glyph + " " + st.Name,
			strconv.Itoa(out),
			strconv.Itoa(in),
		})
		cats = append(cats, cat)
	}

	headerStyle := lipgloss.NewStyle().Foreground(colorGray).Bold(true)
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers("ID", "Label", "Type", "Category", "Out", "In").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			base := lipgloss.NewStyle().Padding(0, 1)
			switch col {
			case 3:
				return base.Inherit(categoryStyle(cats[row]))
			case 4, 5:
				return base.Foreground(colorGray).Align(lipgloss.Right)
			}
			return base
		})

	if _, err := fmt.Fprintln(w, t.Render()); err != nil {
		return err
	}
	_, err := fmt.Fprintln(w, StyleDim.Render(summarize(counts, len(snap.Nodes), len(snap.Edges))))
	return err
}

// summarize returns e.g. "5 nodes, 4 edges: 2 Function, 1 Route, 2 File".
func summarize(counts map[style.Category]int, nodes, edges int) string {
	s := fmt.Sprintf("%d nodes, %d edges", nodes, edges)
	sep := ": "
	for _, cat := range style.Categories {
		if n := counts[cat]; n > 0 {
			s += fmt.Sprintf("%s%d %s", sep, n, style.Of(cat).Name)
			sep = ", "
		}
	}
	return s
}
