package asset

import (
	"fmt"
	"slices"

	"github.com/ivlev/montage/internal/errs"
)

// Lookup resolves asset ids. Timeline validation and composition only need
// this much of a registry.
type Lookup interface {
	Get(id string) (Asset, error)
}

// Registry maps stable ids to assets. Uniqueness of ids is its only
// invariant; it knows nothing about timelines.
type Registry struct {
	assets map[string]Asset
	order  []string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{assets: make(map[string]Asset)}
}

// Register validates and stores a.
func (r *Registry) Register(a Asset) error {
	if err := a.Validate(); err != nil {
		return err
	}
	if _, exists := r.assets[a.ID]; exists {
		return fmt.Errorf("%w: %q", errs.ErrDuplicateAsset, a.ID)
	}
	r.assets[a.ID] = a
	r.order = append(r.order, a.ID)
	return nil
}

// Get returns a copy of the asset with the given id.
func (r *Registry) Get(id string) (Asset, error) {
	a, ok := r.assets[id]
	if !ok {
		return Asset{}, fmt.Errorf("%w: %q", errs.ErrAssetNotFound, id)
	}
	return a, nil
}

// ReplaceStyle swaps the text style of a registered text or subtitle asset.
// Nothing else of a registered asset can change.
func (r *Registry) ReplaceStyle(id string, style TextStyle) error {
	a, ok := r.assets[id]
	if !ok {
		return fmt.Errorf("%w: %q", errs.ErrAssetNotFound, id)
	}
	if a.Kind != KindText && a.Kind != KindSubtitle {
		return fmt.Errorf("%w: %s asset %q has no text style", errs.ErrInvalidAsset, a.Kind, id)
	}
	a.Style = style
	r.assets[id] = a
	return nil
}

// Has reports whether id is registered.
func (r *Registry) Has(id string) bool {
	_, ok := r.assets[id]
	return ok
}

// Deregister removes the asset and returns it. Removing references to it is
// the caller's job.
func (r *Registry) Deregister(id string) (Asset, error) {
	a, ok := r.assets[id]
	if !ok {
		return Asset{}, fmt.Errorf("%w: %q", errs.ErrAssetNotFound, id)
	}
	delete(r.assets, id)
	r.order = slices.DeleteFunc(r.order, func(v string) bool { return v == id })
	return a, nil
}

// IDs returns the registered ids in registration order.
func (r *Registry) IDs() []string {
	return slices.Clone(r.order)
}

// Assets returns all assets in registration order.
func (r *Registry) Assets() []Asset {
	out := make([]Asset, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.assets[id])
	}
	return out
}

// Len returns the number of registered assets.
func (r *Registry) Len() int {
	return len(r.order)
}

// Clone returns an independent copy, used to freeze a registry for a resolve.
func (r *Registry) Clone() *Registry {
	c := NewRegistry()
	for _, id := range r.order {
		c.assets[id] = r.assets[id]
	}
	c.order = slices.Clone(r.order)
	return c
}
