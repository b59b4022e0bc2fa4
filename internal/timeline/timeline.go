// Package timeline holds the ordered event sequence of a project: bare
// asset references and scenes that group them under a time anchor.
package timeline

import (
	"errors"
	"fmt"
	"iter"

	"github.com/google/uuid"

	"github.com/ivlev/montage/internal/asset"
	"github.com/ivlev/montage/internal/errs"
)

// Event is a top-level timeline entry: an AssetReference or a Scene.
type Event interface {
	event()
}

type entry struct {
	scene *Scene           // as authored, ids filled in; nil for a bare reference
	refs  []AssetReference // project-absolute
}

// Timeline is an insertion-ordered list of events validated against an
// asset lookup. It is not safe for concurrent mutation.
type Timeline struct {
	assets   asset.Lookup
	entries  []entry
	duration float64
}

// New creates an empty timeline validating references against assets.
func New(assets asset.Lookup) *Timeline {
	return &Timeline{assets: assets}
}

// Add validates ev and appends it. Scenes are flattened and every member is
// checked before anything is stored, so a failed Add leaves the timeline as
// it was.
func (tl *Timeline) Add(ev Event) error {
	e, err := tl.prepare(ev)
	if err != nil {
		return err
	}
	tl.entries = append(tl.entries, e)
	tl.recompute()
	return nil
}

func (tl *Timeline) prepare(ev Event) (entry, error) {
	switch v := ev.(type) {
	case AssetReference:
		return tl.prepareRefs(nil, []AssetReference{v.clone()})
	case *AssetReference:
		if v == nil {
			break
		}
		return tl.prepareRefs(nil, []AssetReference{v.clone()})
	case Scene:
		sc := v.clone()
		return tl.prepareScene(&sc)
	case *Scene:
		if v == nil {
			break
		}
		sc := v.clone()
		return tl.prepareScene(&sc)
	}
	return entry{}, fmt.Errorf("%w: %T", errs.ErrInvalidEventType, ev)
}

func (tl *Timeline) prepareScene(sc *Scene) (entry, error) {
	for i := range sc.References {
		if sc.References[i].ID == "" {
			sc.References[i].ID = uuid.NewString()
		}
	}
	flat, err := sc.Flatten()
	if err != nil {
		return entry{}, err
	}
	e, err := tl.prepareRefs(sc, flat)
	if err != nil {
		return entry{}, fmt.Errorf("scene %q: %w", sc.Title, err)
	}
	return e, nil
}

func (tl *Timeline) prepareRefs(sc *Scene, refs []AssetReference) (entry, error) {
	seen := tl.referenceIDs()
	for i := range refs {
		if refs[i].ID == "" {
			refs[i].ID = uuid.NewString()
		}
		if err := refs[i].Validate(tl.assets); err != nil {
			return entry{}, err
		}
		if _, dup := seen[refs[i].ID]; dup {
			return entry{}, fmt.Errorf("%w: %q", errs.ErrDuplicateReference, refs[i].ID)
		}
		seen[refs[i].ID] = struct{}{}
	}
	return entry{scene: sc, refs: refs}, nil
}

func (tl *Timeline) referenceIDs() map[string]struct{} {
	ids := make(map[string]struct{})
	for _, e := range tl.entries {
		for _, r := range e.refs {
			ids[r.ID] = struct{}{}
		}
	}
	return ids
}

// Remove deletes the top-level event at index.
func (tl *Timeline) Remove(index int) error {
	if index < 0 || index >= len(tl.entries) {
		return fmt.Errorf("%w: %d of %d events", errs.ErrIndexOutOfRange, index, len(tl.entries))
	}
	tl.entries = append(tl.entries[:index:index], tl.entries[index+1:]...)
	tl.recompute()
	return nil
}

// RemoveAsset drops every reference to assetID and returns the removed
// reference ids in timeline order. Bare references go away entirely; scenes
// stay in place, possibly empty, so event indexes of other scenes are kept.
func (tl *Timeline) RemoveAsset(assetID string) []string {
	var removed []string
	kept := tl.entries[:0:0]
	for _, e := range tl.entries {
		var refs []AssetReference
		for _, r := range e.refs {
			if r.AssetID == assetID {
				removed = append(removed, r.ID)
				continue
			}
			refs = append(refs, r)
		}
		if e.scene == nil && len(refs) == 0 {
			continue
		}
		if e.scene != nil && len(refs) != len(e.refs) {
			sc := e.scene.clone()
			sc.References = sc.References[:0]
			for _, r := range e.scene.References {
				if r.AssetID != assetID {
					sc.References = append(sc.References, r.clone())
				}
			}
			e.scene = &sc
		}
		e.refs = refs
		kept = append(kept, e)
	}
	tl.entries = kept
	tl.recompute()
	return removed
}

// Len returns the number of top-level events.
func (tl *Timeline) Len() int {
	return len(tl.entries)
}

// Duration is the latest reference end, 0 for an empty timeline.
func (tl *Timeline) Duration() float64 {
	return tl.duration
}

func (tl *Timeline) recompute() {
	d := 0.0
	for _, e := range tl.entries {
		for _, r := range e.refs {
			d = max(d, r.End)
		}
	}
	tl.duration = d
}

// All yields every flattened reference with its position in insertion order.
// Yielded values are copies.
func (tl *Timeline) All() iter.Seq2[int, AssetReference] {
	return func(yield func(int, AssetReference) bool) {
		i := 0
		for _, e := range tl.entries {
			for _, r := range e.refs {
				if !yield(i, r.clone()) {
					return
				}
				i++
			}
		}
	}
}

// References returns a copy of the flattened references.
func (tl *Timeline) References() []AssetReference {
	var out []AssetReference
	for _, r := range tl.All() {
		out = append(out, r)
	}
	return out
}

// Events returns copies of the top-level events as authored: scenes keep
// scene-relative member times.
func (tl *Timeline) Events() []Event {
	out := make([]Event, 0, len(tl.entries))
	for _, e := range tl.entries {
		if e.scene != nil {
			out = append(out, e.scene.clone())
			continue
		}
		out = append(out, e.refs[0].clone())
	}
	return out
}

// Validate re-checks every reference against assets. A reference whose asset
// is gone is reported as dangling.
func (tl *Timeline) Validate(assets asset.Lookup) error {
	for _, r := range tl.All() {
		if err := r.Validate(assets); err != nil {
			if errors.Is(err, errs.ErrUnknownAsset) {
				return fmt.Errorf("%w: %w", errs.ErrDanglingReference, err)
			}
			return err
		}
	}
	return nil
}

// Clone returns an independent copy validating against assets.
func (tl *Timeline) Clone(assets asset.Lookup) *Timeline {
	c := &Timeline{assets: assets, duration: tl.duration}
	c.entries = make([]entry, len(tl.entries))
	for i, e := range tl.entries {
		ce := entry{refs: make([]AssetReference, len(e.refs))}
		for j, r := range e.refs {
			ce.refs[j] = r.clone()
		}
		if e.scene != nil {
			sc := e.scene.clone()
			ce.scene = &sc
		}
		c.entries[i] = ce
	}
	return c
}
