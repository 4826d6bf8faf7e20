package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/matzehuels/codeflow/pkg/graph"
	"github.com/matzehuels/codeflow/pkg/render/spatial"
	"github.com/matzehuels/codeflow/pkg/session"
	"github.com/matzehuels/codeflow/pkg/viewer"
	"github.com/matzehuels/codeflow/pkg/watch"
)

// resumeTTL is how long a saved terminal view is kept.
const resumeTTL = 30 * 24 * time.Hour

type viewFlags struct {
	mode     string
	selected string
	watch    bool
	fresh    bool
	noCache  bool
}

// viewCommand creates the interactive terminal viewer.
func (c *CLI) viewCommand() *cobra.Command {
	var f viewFlags

	cmd := &cobra.Command{
		Use:   "view [graph.json]",
		Short: "Explore a snapshot interactively in the terminal",
		Long: `Explore a snapshot interactively in the terminal.

Switch between the flat 2D view and the 3D scene with tab. Drag with the
mouse or use the arrow keys to pan (2D) or orbit (3D), scroll or press +/-
to zoom, and click a node or press n/p to select it.

The view of each file is saved on exit and restored next time unless the
file changed or --fresh is given. With --watch the view reloads whenever
the file is rewritten.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runView(cmd.Context(), args[0], f)
		},
	}

	cmd.Flags().StringVarP(&f.mode, "mode", "m", "", "initial mode: 2d or 3d")
	cmd.Flags().StringVar(&f.selected, "select", "", "node id to select initially")
	cmd.Flags().BoolVarP(&f.watch, "watch", "w", false, "reload when the file changes")
	cmd.Flags().BoolVar(&f.fresh, "fresh", false, "ignore the saved view")
	cmd.Flags().BoolVar(&f.noCache, "no-cache", false, "disable caching")

	return cmd
}

func (c *CLI) runView(ctx context.Context, input string, f viewFlags) error {
	snap, err := graph.ReadSnapshotFile(input)
	if err != nil {
		return err
	}
	runner, err := c.newRunner(ctx, f.noCache)
	if err != nil {
		return fmt.Errorf("initialize runner: %w", err)
	}
	defer runner.Close()

	abs, err := filepath.Abs(input)
	if err != nil {
		return err
	}
	id := session.IDFor(abs)
	store, err := session.NewFileStore("")
	if err != nil {
		c.Logger.Warn("saved views disabled", "err", err)
	} else if err := store.Cleanup(ctx); err != nil {
		c.Logger.Debug("saved view cleanup failed", "err", err)
	}

	dev := spatial.NewCellDevice(80, 24-chromeRows)
	w, h := dev.Viewport()
	frames := make(chan struct{}, 1)
	signal := notifyFrame(frames)
	opts := []viewer.Option{
		viewer.WithDevice(dev),
		viewer.WithViewport(w, h),
		viewer.WithFrameInterval(c.Config.Server.FrameInterval.Duration),
		viewer.WithFrameHandler(signal),
		viewer.WithStatusHandler(func(spatial.Status, error) { signal() }),
		viewer.WithLogger(c.Logger),
	}
	if store != nil && !f.fresh {
		if sess, err := store.Get(ctx, id); err == nil {
			opts = append(opts, viewer.WithState(sess.State))
		}
	}

	v := viewer.New(snap, runner.Layout(ctx, snap), opts...)
	if f.mode != "" {
		if _, err := v.Apply(ctx, viewer.Event{Type: viewer.SetMode, Mode: f.mode}); err != nil {
			return err
		}
	}
	if f.selected != "" {
		v.Apply(ctx, viewer.Event{Type: viewer.Select, ID: f.selected})
	}

	var reloads chan graph.Snapshot
	if f.watch {
		reloads = make(chan graph.Snapshot, 1)
		if err := c.watchSnapshot(ctx, input, reloads); err != nil {
			return err
		}
	}

	// The alternate screen owns the terminal; logs would corrupt it.
	c.Logger.SetOutput(io.Discard)
	defer c.Logger.SetOutput(os.Stderr)

	v.Start(ctx)
	m := newViewModel(ctx, filepath.Base(input), v, runner.Layout, frames, reloads)
	_, runErr := tea.NewProgram(m, tea.WithAltScreen(), tea.WithMouseCellMotion(), tea.WithReportFocus(), tea.WithContext(ctx)).Run()
	v.Close(context.WithoutCancel(ctx))

	if store != nil {
		sess := session.New(v.Snapshot(), resumeTTL)
		sess.ID = id
		sess.State = v.Controller().State()
		if err := store.Set(context.WithoutCancel(ctx), sess); err != nil {
			c.Logger.Warn("could not save view", "err", err)
		}
	}
	if runErr != nil && !errors.Is(runErr, tea.ErrProgramKilled) {
		return runErr
	}
	return nil
}

// watchSnapshot forwards every distinct version of input to reloads. Only the
// newest pending snapshot is kept.
func (c *CLI) watchSnapshot(ctx context.Context, input string, reloads chan graph.Snapshot) error {
	w, err := watch.New(input, func(s graph.Snapshot) {
		select {
		case <-reloads:
		default:
		}
		reloads <- s
	},
		watch.WithLogger(c.Logger),
		watch.WithErrorHandler(func(err error) { c.Logger.Debug("reload failed", "err", err) }),
	)
	if err != nil {
		return fmt.Errorf("watch %s: %w", input, err)
	}
	go func() {
		if err := w.Run(ctx); err != nil {
			c.Logger.Debug("watcher stopped", "err", err)
		}
	}()
	return nil
}
