// Package cli implements the codeflow command-line interface.
//
// # Commands
//
//   - layout: compute the layered layout of a snapshot as JSON
//   - render: write 2D, 3D or Graphviz renderings to SVG, PNG, PDF or DOT
//   - view: explore a snapshot interactively in the terminal
//   - serve: run the HTTP service
//   - classify: list nodes with their category and edge counts
//   - config: print or create the configuration file
//   - cache: inspect and clear the artifact cache
//
// # Logging
//
// All commands support --verbose (-v) for debug-level logging. Without it the
// level comes from the configuration file.
package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/codeflow/pkg/buildinfo"
	"github.com/matzehuels/codeflow/pkg/cache"
	"github.com/matzehuels/codeflow/pkg/config"
	"github.com/matzehuels/codeflow/pkg/layout"
	"github.com/matzehuels/codeflow/pkg/pipeline"
)

// =============================================================================
// Constants
// =============================================================================

// appName is the application name used for display.
const appName = "codeflow"

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger
	Config config.Config

	configPath string
	verbose    bool
}

// New creates a new CLI instance with a default logger and the built-in
// configuration.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{
		Logger: newLogger(w, level),
		Config: config.Default(),
	}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          appName,
		Short:        "Codeflow draws codebase graphs in 2D and 3D",
		Long:         `Codeflow lays out codebase graphs (files, functions, routes, classes and components) as layered diagrams and renders them as flat 2D node-link views or orbitable 3D scenes.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.loadConfig()
		},
	}

	root.SetVersionTemplate(buildinfo.Template())
	root.PersistentFlags().StringVar(&c.configPath, "config", "", "config file (default "+config.DefaultPath()+")")
	root.PersistentFlags().BoolVarP(&c.verbose, "verbose", "v", false, "enable verbose logging")

	root.AddCommand(c.layoutCommand())
	root.AddCommand(c.renderCommand())
	root.AddCommand(c.viewCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.classifyCommand())
	root.AddCommand(c.configCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// loadConfig reads the configuration file and applies its log level unless
// --verbose was given.
func (c *CLI) loadConfig() error {
	path := c.configPath
	if path == "" {
		path = config.DefaultPath()
	}
	cfg, err := config.Load(path)
	if err != nil {
		return fmt.Errorf("load config %s: %w", path, err)
	}
	c.Config = cfg
	if c.verbose {
		c.SetLogLevel(log.DebugLevel)
	} else {
		c.SetLogLevel(cfg.Log.ParseLevel())
	}
	c.Logger.Debug("config loaded", "path", path, "cache", cfg.Cache.Backend)
	return nil
}

// =============================================================================
// Runner Factory
// =============================================================================

// newRunner creates a pipeline runner from the configuration. noCache
// disables the artifact cache regardless of the configured backend.
func (c *CLI) newRunner(ctx context.Context, noCache bool) (*pipeline.Runner, error) {
	backend := c.Config.Cache.Backend
	if noCache {
		backend = "none"
	}
	ac, err := newCache(ctx, c.Config.Cache, backend)
	if err != nil {
		return nil, err
	}
	engine := layout.New(layout.WithOptions(c.Config.LayoutOptions()), layout.WithLogger(c.Logger))
	memo, err := layout.NewMemo(engine, c.Config.Layout.MemoSize,
		layout.WithBackend(ac, c.Config.Cache.TTL.Duration),
		layout.WithMemoLogger(c.Logger),
	)
	if err != nil {
		ac.Close()
		return nil, err
	}
	return pipeline.NewRunner(memo, ac, nil, c.Logger), nil
}

// newCache opens the artifact cache backend.
func newCache(ctx context.Context, cfg config.CacheConfig, backend string) (cache.Cache, error) {
	switch backend {
	case "none":
		return cache.NewNullCache(), nil
	case "memory":
		c, err := cache.NewMemoryCache(0)
		if err != nil {
			return nil, err
		}
		return cache.Instrument(c, "memory"), nil
	case "redis":
		c, err := cache.NewRedisCache(ctx, cache.RedisConfig{Addr: cfg.RedisAddr, Prefix: appName + ":"})
		if err != nil {
			return nil, err
		}
		return cache.Instrument(c, "redis"), nil
	default:
		c, err := cache.NewFileCache(cfg.Dir)
		if err != nil {
			return nil, fmt.Errorf("open cache: %w", err)
		}
		return cache.Instrument(c, "file"), nil
	}
}

// =============================================================================
// Options Helpers
// =============================================================================

// parseList splits a comma-separated flag value, falling back to def.
func parseList(s, def string) []string {
	if s == "" {
		return []string{def}
	}
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
