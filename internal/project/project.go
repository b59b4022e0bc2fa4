// Package project owns one asset registry and one timeline and keeps them
// consistent: removing an asset removes every reference to it.
package project

import (
	"context"
	"fmt"

	"github.com/ivlev/montage/internal/asset"
	"github.com/ivlev/montage/internal/compose"
	"github.com/ivlev/montage/internal/config"
	"github.com/ivlev/montage/internal/timeline"
)

// Project is a single-owner editing context. It is not safe for concurrent
// mutation; take a Snapshot to hand it to another goroutine.
type Project struct {
	config config.Project
	assets *asset.Registry
	tl     *timeline.Timeline
	err    error // first failure of a With* chain
}

// New creates an empty project.
func New(cfg config.Project) (*Project, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	reg := asset.NewRegistry()
	return &Project{config: cfg, assets: reg, tl: timeline.New(reg)}, nil
}

// Config returns the output contract.
func (p *Project) Config() config.Project {
	return p.config
}

// Assets exposes the registry for lookups.
func (p *Project) Assets() asset.Lookup {
	return p.assets
}

// AssetList returns the assets in registration order.
func (p *Project) AssetList() []asset.Asset {
	return p.assets.Assets()
}

// Timeline exposes the timeline for reading. Mutate through the project.
func (p *Project) Timeline() *timeline.Timeline {
	return p.tl
}

// Duration is the timeline duration.
func (p *Project) Duration() float64 {
	return p.tl.Duration()
}

// AddAsset registers a.
func (p *Project) AddAsset(a asset.Asset) error {
	return p.assets.Register(a)
}

// AddEvent validates ev against the registry and appends it.
func (p *Project) AddEvent(ev timeline.Event) error {
	return p.tl.Add(ev)
}

// AddEvents appends all events or none.
func (p *Project) AddEvents(evs ...timeline.Event) error {
	staged := p.tl.Clone(p.assets)
	for i, ev := range evs {
		if err := staged.Add(ev); err != nil {
			return fmt.Errorf("event %d: %w", i, err)
		}
	}
	p.tl = staged
	return nil
}

// RemoveEvent deletes the top-level event at index.
func (p *Project) RemoveEvent(index int) error {
	return p.tl.Remove(index)
}

// RemoveAsset deregisters id and drops every reference to it, returning the
// removed reference ids.
func (p *Project) RemoveAsset(id string) ([]string, error) {
	if _, err := p.assets.Deregister(id); err != nil {
		return nil, err
	}
	return p.tl.RemoveAsset(id), nil
}

// WithAsset registers a and returns p for chaining. The first failure sticks
// and is reported by Err; later calls are no-ops.
func (p *Project) WithAsset(a asset.Asset) *Project {
	if p.err == nil {
		p.err = p.AddAsset(a)
	}
	return p
}

// WithAssets is WithAsset for several assets.
func (p *Project) WithAssets(as ...asset.Asset) *Project {
	for _, a := range as {
		p.WithAsset(a)
	}
	return p
}

// WithEvent appends ev and returns p for chaining.
func (p *Project) WithEvent(ev timeline.Event) *Project {
	if p.err == nil {
		p.err = p.AddEvent(ev)
	}
	return p
}

// WithEvents is WithEvent for several events.
func (p *Project) WithEvents(evs ...timeline.Event) *Project {
	for _, ev := range evs {
		p.WithEvent(ev)
	}
	return p
}

// WithSubtitleStyle applies style to every subtitle asset.
func (p *Project) WithSubtitleStyle(style asset.TextStyle) *Project {
	if p.err != nil {
		return p
	}
	for _, a := range p.assets.Assets() {
		if a.Kind != asset.KindSubtitle {
			continue
		}
		if err := p.assets.ReplaceStyle(a.ID, style); err != nil {
			p.err = err
			return p
		}
	}
	return p
}

// Err returns the first failure of a With* chain.
func (p *Project) Err() error {
	return p.err
}

// Snapshot returns a deep copy that later mutations of p do not affect.
func (p *Project) Snapshot() *Project {
	reg := p.assets.Clone()
	return &Project{config: p.config, assets: reg, tl: p.tl.Clone(reg), err: p.err}
}

// Resolve computes the render plan of a snapshot of p.
func (p *Project) Resolve(ctx context.Context, opts ...compose.Option) (*compose.Plan, error) {
	snap := p.Snapshot()
	return compose.Resolve(ctx, snap.tl, snap.assets, snap.config, opts...)
}
