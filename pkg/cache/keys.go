package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
)

// Keyer derives cache keys for codeflow artifacts.
type Keyer interface {
	// LayoutKey returns the key of a layout for a snapshot hash.
	LayoutKey(snapshotHash string, opts LayoutKeyOpts) string

	// RenderKey returns the key of a rendered artifact for a snapshot hash.
	RenderKey(snapshotHash string, opts RenderKeyOpts) string
}

// LayoutKeyOpts are the layout options that change the computed positions.
type LayoutKeyOpts struct {
	NodeSep float64 `json:"node_sep"`
	RankSep float64 `json:"rank_sep"`
	Passes  int     `json:"passes"`
}

// RenderKeyOpts are the render options that change the output bytes.
type RenderKeyOpts struct {
	Mode      string  `json:"mode"`
	Format    string  `json:"format"`
	Width     int     `json:"width"`
	Height    int     `json:"height"`
	Selected  string  `json:"selected,omitempty"`
	Zoom      float64 `json:"zoom,omitempty"`
	Distance  float64 `json:"distance,omitempty"`
	Azimuth   float64 `json:"azimuth,omitempty"`
	Elevation float64 `json:"elevation,omitempty"`
}

// DefaultKeyer produces keys of the form "kind:<snapshot>:<sha256(opts)>".
type DefaultKeyer struct{}

// NewDefaultKeyer creates the default keyer.
func NewDefaultKeyer() Keyer { return DefaultKeyer{} }

// LayoutKey implements [Keyer].
func (DefaultKeyer) LayoutKey(snapshotHash string, opts LayoutKeyOpts) string {
	return digestKey("layout", snapshotHash, opts)
}

// RenderKey implements [Keyer].
func (DefaultKeyer) RenderKey(snapshotHash string, opts RenderKeyOpts) string {
	return digestKey("render", snapshotHash, opts)
}

// ScopedKeyer wraps a Keyer with a prefix, used to namespace keys in a shared
// redis instance.
type ScopedKeyer struct {
	inner  Keyer
	prefix string
}

// NewScopedKeyer creates a keyer with a prefix. A nil inner keyer defaults to
// [DefaultKeyer].
func NewScopedKeyer(inner Keyer, prefix string) Keyer {
	if inner == nil {
		inner = NewDefaultKeyer()
	}
	return &ScopedKeyer{
		inner:  inner,
		prefix: prefix,
	}
}

// LayoutKey implements [Keyer].
func (k *ScopedKeyer) LayoutKey(snapshotHash string, opts LayoutKeyOpts) string {
	return k.prefix + k.inner.LayoutKey(snapshotHash, opts)
}

// RenderKey implements [Keyer].
func (k *ScopedKeyer) RenderKey(snapshotHash string, opts RenderKeyOpts) string {
	return k.prefix + k.inner.RenderKey(snapshotHash, opts)
}

// digestKey joins kind, the snapshot hash and the sha256 of the JSON-encoded
// options.
func digestKey(kind, snapshotHash string, opts any) string {
	data, _ := json.Marshal(opts)
	return kind + ":" + snapshotHash + ":" + Hash(data)
}

// Hash returns the hex sha256 of data.
func Hash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
