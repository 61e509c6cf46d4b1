// Package octreeio serializes occupancy.Tree values to and from the
// binary octree format: a short plain-text header followed by a
// depth-first binary body. It also offers a lossy 2-bit-per-child
// compact variant, optional LZF compression of the body, and advisory
// file locking for processes sharing a map file on disk.
package octreeio

import (
	"octomap/pkg/occupancy"
	"octomap/pkg/octree"
)

// Constructor builds an empty tree of a registered type at the given
// resolution and depth, ready for a deserializer to populate.
type Constructor func(resolution float64, depth uint8) *occupancy.Tree

type registryEntry struct {
	cow bool
	new Constructor
}

// Registry maps a binary header's "id" string to the constructor that
// builds a matching empty tree: decoding never switches on a Go type,
// only on the string the file itself carries.
type Registry struct {
	entries map[string]registryEntry
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]registryEntry)}
}

// DefaultRegistry returns a Registry pre-populated with the two tree
// types this module implements. Other payload variants (OcTreeStamped,
// ColorOcTree, and the like) are out of scope here, but an importer can
// Register its own constructor under a new name without modifying this
// package.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register("OcTree", false, func(res float64, depth uint8) *occupancy.Tree {
		return occupancy.New(octree.Config{Resolution: res, Depth: depth, CoW: false}, occupancy.DefaultParams())
	})
	r.Register("OcTree+CoW", true, func(res float64, depth uint8) *occupancy.Tree {
		return occupancy.New(octree.Config{Resolution: res, Depth: depth, CoW: true}, occupancy.DefaultParams())
	})
	return r
}

// Register adds or replaces the constructor for name.
func (r *Registry) Register(name string, cow bool, ctor Constructor) {
	r.entries[name] = registryEntry{cow: cow, new: ctor}
}

// Lookup returns the constructor registered under name, if any.
func (r *Registry) Lookup(name string) (Constructor, bool) {
	e, ok := r.entries[name]
	if !ok {
		return nil, false
	}
	return e.new, true
}

// TypeNameFor returns the name a tree with the given CoW setting should
// be written under, preferring "OcTree"/"OcTree+CoW" when both are
// registered (the common case) and falling back to the first entry whose
// cow flag matches otherwise.
func (r *Registry) TypeNameFor(cow bool) (string, bool) {
	want := "OcTree"
	if cow {
		want = "OcTree+CoW"
	}
	if e, ok := r.entries[want]; ok && e.cow == cow {
		return want, true
	}
	for name, e := range r.entries {
		if e.cow == cow {
			return name, true
		}
	}
	return "", false
}
