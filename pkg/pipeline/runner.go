package pipeline

import (
	"context"
	"fmt"
	"maps"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/matzehuels/codeflow/pkg/cache"
	"github.com/matzehuels/codeflow/pkg/graph"
	"github.com/matzehuels/codeflow/pkg/layout"
)

// Runner encapsulates pipeline execution with caching. Both the CLI and the
// server use it to avoid duplicating caching logic.
//
// The Runner is stateless apart from the memo, cache and logger. Multiple
// goroutines can safely use the same Runner with different options.
type Runner struct {
	Memo   *layout.Memo
	Cache  cache.Cache
	Keyer  cache.Keyer
	Logger *log.Logger
}

// NewRunner creates a runner. A nil memo uses a default engine, a nil cache
// disables artifact caching and a nil keyer uses [cache.DefaultKeyer].
func NewRunner(memo *layout.Memo, c cache.Cache, keyer cache.Keyer, logger *log.Logger) *Runner {
	if memo == nil {
		// NewMemo only fails for a non-positive LRU size, which it replaces.
		memo, _ = layout.NewMemo(nil, 0)
	}
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if c == nil {
		c = cache.NewNullCache()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{Memo: memo, Cache: c, Keyer: keyer, Logger: logger}
}

// Layout returns the memoized layout of s.
func (r *Runner) Layout(ctx context.Context, s graph.Snapshot) *layout.Result {
	return r.Memo.Layout(ctx, s)
}

// Execute lays out s and renders every requested mode concurrently.
func (r *Runner) Execute(ctx context.Context, s graph.Snapshot, opts Options) (*Result, error) {
	if opts.Logger == nil {
		opts.Logger = r.Logger
	}
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, err
	}

	result := &Result{
		Snapshot:  s,
		Artifacts: make(map[string][]byte),
	}
	result.Stats.NodeCount = len(s.Nodes)
	result.Stats.EdgeCount = len(s.Edges)

	layoutStart := time.Now()
	result.Layout = r.Layout(ctx, s)
	result.Stats.LayoutTime = time.Since(layoutStart)
	r.Logger.Debug("computed layout",
		"nodes", len(result.Layout.Nodes),
		"fallback", result.Layout.Fallback,
		"crossings", result.Layout.Crossings,
		"duration", result.Stats.LayoutTime)

	renderStart := time.Now()
	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	for _, mode := range opts.Modes {
		g.Go(func() error {
			artifacts, hits, err := r.renderCached(gctx, s, result.Layout, mode, opts)
			if err != nil {
				return err
			}
			mu.Lock()
			maps.Copy(result.Artifacts, artifacts)
			result.CacheInfo.RenderHits += hits
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	result.Stats.RenderTime = time.Since(renderStart)

	r.Logger.Debug("rendered outputs",
		"modes", opts.Modes,
		"formats", opts.Formats,
		"cache_hits", result.CacheInfo.RenderHits,
		"duration", result.Stats.RenderTime)
	return result, nil
}

// renderCached serves mode from the cache when every format is present and
// renders it otherwise.
func (r *Runner) renderCached(ctx context.Context, s graph.Snapshot, res *layout.Result, mode string, opts Options) (map[string][]byte, int, error) {
	hash := s.Hash()
	if !opts.Refresh {
		cached := make(map[string][]byte, len(opts.Formats))
		for _, format := range opts.Formats {
			key := r.Keyer.RenderKey(hash, opts.RenderKeyOpts(mode, format))
			data, hit, err := r.Cache.Get(ctx, key)
			if err != nil || !hit {
				break
			}
			cached[ArtifactName(mode, format)] = data
		}
		if len(cached) == len(opts.Formats) {
			return cached, len(cached), nil
		}
	}

	artifacts, err := RenderMode(ctx, s, res, mode, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("render %s: %w", mode, err)
	}
	for _, format := range opts.Formats {
		key := r.Keyer.RenderKey(hash, opts.RenderKeyOpts(mode, format))
		if err := r.Cache.Set(ctx, key, artifacts[ArtifactName(mode, format)], TTLRender); err != nil {
			r.Logger.Debug("render cache write failed", "mode", mode, "format", format, "err", err)
		}
	}
	return artifacts, 0, nil
}

// Close releases the artifact cache.
func (r *Runner) Close() error {
	if r.Cache != nil {
		return r.Cache.Close()
	}
	return nil
}
