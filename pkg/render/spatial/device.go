package spatial

import (
	"errors"
	"fmt"
	"sync"

	"github.com/matzehuels/codeflow/pkg/style"
	"github.com/matzehuels/codeflow/pkg/view"
)

// Handle identifies a device-owned resource. The zero handle is never issued.
type Handle uint64

// GeometryKind is the shape of a geometry resource.
type GeometryKind int

// Geometry kinds.
const (
	SphereGeometry GeometryKind = iota
	LineGeometry
)

// Geometry describes a mesh or line to upload.
type Geometry struct {
	Kind     GeometryKind
	Radius   float64
	Segments int
	Points   []Vec3
}

// Material describes surface shading.
type Material struct {
	Color    string
	Emissive float64
	Opacity  float64
}

// Overlay describes a billboard layer element.
type Overlay struct {
	Kind     BillboardKind
	Category style.Category
	Text     string
	Caption  string
}

// Disc is a projected sphere.
type Disc struct {
	Geometry Handle
	Material Handle
	NodeID   string
	Center   view.Point
	Radius   float64
	Depth    float64
	// Shade is the lit intensity in [0, 1].
	Shade    float64
	Selected bool
}

// Line is a projected polyline.
type Line struct {
	Geometry Handle
	Material Handle
	Points   []view.Point
	Depth    float64
}

// Sprite is a projected billboard.
type Sprite struct {
	Overlay Handle
	At      view.Point
	Size    float64
	Depth   float64
}

// Frame is everything one render pass draws, back to front.
type Frame struct {
	Width, Height float64
	Lines         []Line
	Discs         []Disc
	Sprites       []Sprite
}

// Device is a render target whose resources must be released explicitly.
// Devices are not safe for concurrent use; the renderer serializes access.
type Device interface {
	CreateGeometry(Geometry) (Handle, error)
	CreateMaterial(Material) (Handle, error)
	CreateOverlay(Overlay) (Handle, error)
	// Release frees a handle. Releasing an unknown handle is an error.
	Release(Handle) error
	// Resize sets the viewport and overlay layer size.
	Resize(w, h float64) error
	Draw(Frame) error
	// Live returns the number of unreleased handles.
	Live() int
}

// ErrUnknownHandle is returned for handles a device did not issue or already
// released.
var ErrUnknownHandle = errors.New("unknown device handle")

type resourceKind int

const (
	geometryResource resourceKind = iota + 1
	materialResource
	overlayResource
)

// handleTable issues handles and remembers the resource behind each.
type handleTable struct {
	next       Handle
	geometries map[Handle]Geometry
	materials  map[Handle]Material
	overlays   map[Handle]Overlay
}

func newHandleTable() handleTable {
	return handleTable{
		geometries: make(map[Handle]Geometry),
		materials:  make(map[Handle]Material),
		overlays:   make(map[Handle]Overlay),
	}
}

func (t *handleTable) issue() Handle {
	t.next++
	return t.next
}

func (t *handleTable) addGeometry(g Geometry) Handle {
	h := t.issue()
	t.geometries[h] = g
	return h
}

func (t *handleTable) addMaterial(m Material) Handle {
	h := t.issue()
	t.materials[h] = m
	return h
}

func (t *handleTable) addOverlay(o Overlay) Handle {
	h := t.issue()
	t.overlays[h] = o
	return h
}

func (t *handleTable) kind(h Handle) resourceKind {
	if _, ok := t.geometries[h]; ok {
		return geometryResource
	}
	if _, ok := t.materials[h]; ok {
		return materialResource
	}
	if _, ok := t.overlays[h]; ok {
		return overlayResource
	}
	return 0
}

func (t *handleTable) release(h Handle) error {
	switch t.kind(h) {
	case geometryResource:
		delete(t.geometries, h)
	case materialResource:
		delete(t.materials, h)
	case overlayResource:
		delete(t.overlays, h)
	default:
		return fmt.Errorf("release %d: %w", h, ErrUnknownHandle)
	}
	return nil
}

func (t *handleTable) live() int {
	return len(t.geometries) + len(t.materials) + len(t.overlays)
}

// check verifies every handle a frame references is live.
func (t *handleTable) check(f Frame) error {
	for _, l := range f.Lines {
		if t.kind(l.Geometry) != geometryResource || t.kind(l.Material) != materialResource {
			return fmt.Errorf("draw line: %w", ErrUnknownHandle)
		}
	}
	for _, d := range f.Discs {
		if t.kind(d.Geometry) != geometryResource || t.kind(d.Material) != materialResource {
			return fmt.Errorf("draw disc %s: %w", d.NodeID, ErrUnknownHandle)
		}
	}
	for _, s := range f.Sprites {
		if t.kind(s.Overlay) != overlayResource {
			return fmt.Errorf("draw sprite: %w", ErrUnknownHandle)
		}
	}
	return nil
}

// ResourceSet tracks handles acquired from one device so they can be
// released together, newest first.
type ResourceSet struct {
	mu      sync.Mutex
	dev     Device
	handles []Handle
}

// NewResourceSet creates an empty set bound to dev.
func NewResourceSet(dev Device) *ResourceSet {
	return &ResourceSet{dev: dev}
}

// Track records h. It returns h so acquisition can be written inline.
func (r *ResourceSet) Track(h Handle) Handle {
	r.mu.Lock()
	r.handles = append(r.handles, h)
	r.mu.Unlock()
	return h
}

// Len returns the number of tracked handles.
func (r *ResourceSet) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.handles)
}

// ReleaseAll releases every tracked handle in reverse acquisition order and
// forgets them, even when some releases fail. It returns the number released
// and the joined errors.
func (r *ResourceSet) ReleaseAll() (int, error) {
	r.mu.Lock()
	handles := r.handles
	r.handles = nil
	r.mu.Unlock()

	var errs []error
	released := 0
	for i := len(handles) - 1; i >= 0; i-- {
		if err := r.dev.Release(handles[i]); err != nil {
			errs = append(errs, err)
			continue
		}
		released++
	}
	return released, errors.Join(errs...)
}
