package layout

import (
	"context"
	"encoding/json"
	"io"
	"time"

	"github.com/charmbracelet/log"
	lru "github.com/hashicorp/golang-lru"
	"golang.org/x/sync/singleflight"

	"github.com/matzehuels/codeflow/pkg/cache"
	"github.com/matzehuels/codeflow/pkg/graph"
)

// DefaultMemoSize is the number of layouts kept in process.
const DefaultMemoSize = 64

// Memo caches layouts by snapshot content hash. Lookups go to an in-process
// LRU first, then to the optional shared backend; concurrent requests for the
// same snapshot share one computation.
//
// Returned results are shared between callers and must not be modified.
type Memo struct {
	engine  *Engine
	recent  *lru.Cache
	backend cache.Cache
	keyer   cache.Keyer
	ttl     time.Duration
	group   singleflight.Group
	logger  *log.Logger
}

// MemoOption configures a [Memo].
type MemoOption func(*Memo)

// WithBackend stores computed layouts in c with the given ttl.
func WithBackend(c cache.Cache, ttl time.Duration) MemoOption {
	return func(m *Memo) {
		if c != nil {
			m.backend = c
			m.ttl = ttl
		}
	}
}

// WithKeyer overrides how backend keys are derived.
func WithKeyer(k cache.Keyer) MemoOption {
	return func(m *Memo) {
		if k != nil {
			m.keyer = k
		}
	}
}

// WithMemoLogger sets the debug logger.
func WithMemoLogger(l *log.Logger) MemoOption {
	return func(m *Memo) {
		if l != nil {
			m.logger = l
		}
	}
}

// NewMemo creates a memo of size entries in front of engine.
func NewMemo(engine *Engine, size int, opts ...MemoOption) (*Memo, error) {
	if engine == nil {
		engine = New()
	}
	if size <= 0 {
		size = DefaultMemoSize
	}
	recent, err := lru.New(size)
	if err != nil {
		return nil, err
	}
	m := &Memo{
		engine:  engine,
		recent:  recent,
		backend: cache.NewNullCache(),
		keyer:   cache.NewDefaultKeyer(),
		logger:  log.New(io.Discard),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// Engine returns the wrapped engine.
func (m *Memo) Engine() *Engine { return m.engine }

// Layout returns the layout of s, computing it only if no equal snapshot was
// laid out before. Backend failures are logged and otherwise ignored.
func (m *Memo) Layout(ctx context.Context, s graph.Snapshot) *Result {
	key := m.key(s.Hash())
	if v, ok := m.recent.Get(key); ok {
		return v.(*Result)
	}

	v, _, _ := m.group.Do(key, func() (any, error) {
		if res, ok := m.load(ctx, key); ok {
			m.recent.Add(key, res)
			return res, nil
		}
		res := m.engine.Layout(ctx, s)
		m.recent.Add(key, res)
		m.store(ctx, key, res)
		return res, nil
	})
	return v.(*Result)
}

// Forget drops the cached layout of s from both tiers.
func (m *Memo) Forget(ctx context.Context, s graph.Snapshot) {
	key := m.key(s.Hash())
	m.recent.Remove(key)
	if err := m.backend.Delete(ctx, key); err != nil {
		m.logger.Debug("layout cache delete failed", "err", err)
	}
}

// Len returns the number of layouts held in process.
func (m *Memo) Len() int { return m.recent.Len() }

func (m *Memo) key(hash string) string {
	o := m.engine.Options()
	return m.keyer.LayoutKey(hash, cache.LayoutKeyOpts{
		NodeSep: o.NodeSep,
		RankSep: o.RankSep,
		Passes:  o.Passes,
	})
}

func (m *Memo) load(ctx context.Context, key string) (*Result, bool) {
	data, hit, err := m.backend.Get(ctx, key)
	if err != nil {
		m.logger.Debug("layout cache read failed", "err", err)
		return nil, false
	}
	if !hit {
		return nil, false
	}
	var res Result
	if err := json.Unmarshal(data, &res); err != nil {
		m.logger.Debug("discarding corrupt cached layout", "key", key, "err", err)
		return nil, false
	}
	return &res, true
}

func (m *Memo) store(ctx context.Context, key string, res *Result) {
	data, err := json.Marshal(res)
	if err != nil {
		return
	}
	if err := m.backend.Set(ctx, key, data, m.ttl); err != nil {
		m.logger.Debug("layout cache write failed", "err", err)
	}
}
