package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/matzehuels/codeflow/pkg/buildinfo"
	"github.com/matzehuels/codeflow/pkg/observability"
	"github.com/matzehuels/codeflow/pkg/observability/prom"
	"github.com/matzehuels/codeflow/pkg/server"
	"github.com/matzehuels/codeflow/pkg/session"
)

// serveCommand creates the serve command.
func (c *CLI) serveCommand() *cobra.Command {
	var (
		addr     string
		sessions string
		live     int
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP service",
		Long: `Run the HTTP service.

The service lays out and renders posted snapshots and hosts interactive view
sessions driven by pointer events over HTTP or a websocket. Prometheus metrics
are served on /metrics.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := c.Config.Server
			if addr != "" {
				cfg.Addr = addr
			}
			if sessions != "" {
				cfg.Sessions = sessions
			}
			return c.runServe(cmd.Context(), cfg.Addr, cfg.Sessions, live)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config, :8080)")
	cmd.Flags().StringVar(&sessions, "sessions", "", "session store: memory or redis (default from config)")
	cmd.Flags().IntVar(&live, "live-sessions", server.DefaultLiveSessions, "sessions kept with an in-memory viewer")

	return cmd
}

func (c *CLI) runServe(ctx context.Context, addr, sessions string, live int) error {
	cfg := c.Config.Server
	cfg.Addr = addr

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := prom.New(reg)
	observability.SetLayoutHooks(m)
	observability.SetCacheHooks(m)
	observability.SetRenderHooks(m)
	observability.SetHTTPHooks(m)
	defer observability.Reset()

	store, err := c.newSessionStore(ctx, sessions)
	if err != nil {
		return err
	}

	runner, err := c.newRunner(ctx, false)
	if err != nil {
		store.Close()
		return fmt.Errorf("initialize runner: %w", err)
	}
	defer runner.Close()

	srv, err := server.New(cfg,
		server.WithLogger(c.Logger),
		server.WithStore(store),
		server.WithRunner(runner),
		server.WithGatherer(reg),
		server.WithLiveSessions(live),
	)
	if err != nil {
		store.Close()
		return err
	}
	c.Logger.Info("starting server", "version", buildinfo.Short(), "addr", cfg.Addr, "sessions", sessions, "cache", c.Config.Cache.Backend)
	return srv.ListenAndServe(ctx)
}

// newSessionStore opens the server's session store. The memory store is
// swept periodically until ctx ends.
func (c *CLI) newSessionStore(ctx context.Context, kind string) (session.Store, error) {
	switch kind {
	case "redis":
		st, err := session.NewRedisStore(ctx, c.Config.Cache.RedisAddr)
		if err != nil {
			return nil, fmt.Errorf("open redis session store: %w", err)
		}
		return st, nil
	default:
		st := session.NewMemoryStore()
		go sweepSessions(ctx, st, c.Config.Server.SessionTTL.Duration/2, c.Logger)
		return st, nil
	}
}

// sweepSessions removes expired sessions from st every interval.
func sweepSessions(ctx context.Context, st *session.MemoryStore, interval time.Duration, logger *log.Logger) {
	if interval <= 0 {
		interval = session.DefaultTTL / 2
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := st.Cleanup(ctx); n > 0 {
				logger.Debug("expired sessions removed", "count", n)
			}
		}
	}
}
