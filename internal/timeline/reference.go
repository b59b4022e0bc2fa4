package timeline

import (
	"fmt"
	"math"
	"slices"

	"github.com/ivlev/montage/internal/asset"
	"github.com/ivlev/montage/internal/effects"
	"github.com/ivlev/montage/internal/errs"
	"github.com/ivlev/montage/internal/position"
)

// durationTolerance absorbs float noise when comparing a reference interval
// against an asset duration.
const durationTolerance = 1e-6

// Crop selects a window [From, To) of a time-bound source, in source seconds.
type Crop struct {
	From float64 `yaml:"from"`
	To   float64 `yaml:"to"`
}

// Params are optional per-reference rendering parameters.
type Params struct {
	Volume *float64         `yaml:"volume,omitempty"`
	Crop   *Crop            `yaml:"crop,omitempty"`
	Style  *asset.TextStyle `yaml:"style,omitempty"`
}

// AssetReference places one asset on the timeline. AssetID is a lookup key
// into the registry, never an owning pointer.
type AssetReference struct {
	ID       string            `yaml:"id,omitempty"`
	AssetID  string            `yaml:"asset_id"`
	Start    float64           `yaml:"start"`
	End      float64           `yaml:"end"`
	ZIndex   *int              `yaml:"z_index,omitempty"`
	Position position.Position `yaml:"position,omitempty"`
	Effects  []effects.Effect  `yaml:"effects,omitempty"`
	Params   Params            `yaml:"params,omitempty"`
}

func (AssetReference) event() {}

// NewReference starts a reference to assetID over [start, end).
func NewReference(assetID string, start, end float64) AssetReference {
	return AssetReference{AssetID: assetID, Start: start, End: end}
}

// WithZIndex returns a copy with an explicit layer rank.
func (r AssetReference) WithZIndex(z int) AssetReference {
	r.ZIndex = &z
	return r
}

// WithPosition returns a copy placed at p.
func (r AssetReference) WithPosition(p position.Position) AssetReference {
	r.Position = p
	return r
}

// WithEffects returns a copy with fx appended to the effect stack.
func (r AssetReference) WithEffects(fx ...effects.Effect) AssetReference {
	r.Effects = append(slices.Clone(r.Effects), fx...)
	return r
}

// WithVolume returns a copy with an explicit volume.
func (r AssetReference) WithVolume(v float64) AssetReference {
	r.Params.Volume = &v
	return r
}

// WithCrop returns a copy reading the source window [from, to).
func (r AssetReference) WithCrop(from, to float64) AssetReference {
	r.Params.Crop = &Crop{From: from, To: to}
	return r
}

// WithStyle returns a copy overriding the text style of its asset.
func (r AssetReference) WithStyle(s asset.TextStyle) AssetReference {
	r.Params.Style = &s
	return r
}

// Duration is End - Start.
func (r AssetReference) Duration() float64 {
	return r.End - r.Start
}

// Z returns the layer rank, 0 when unset.
func (r AssetReference) Z() int {
	if r.ZIndex == nil {
		return 0
	}
	return *r.ZIndex
}

// Volume returns the explicit volume or 1.
func (r AssetReference) Volume() float64 {
	if r.Params.Volume == nil {
		return 1
	}
	return *r.Params.Volume
}

// SourceOffset is where playback starts inside the source.
func (r AssetReference) SourceOffset() float64 {
	if r.Params.Crop == nil {
		return 0
	}
	return r.Params.Crop.From
}

// Contains reports whether t lies in [Start, End).
func (r AssetReference) Contains(t float64) bool {
	return t >= r.Start && t < r.End
}

// ActiveEffects returns the effect stack with every window clamped to the
// reference duration.
func (r AssetReference) ActiveEffects() ([]effects.Effect, error) {
	out := make([]effects.Effect, 0, len(r.Effects))
	for _, e := range r.Effects {
		clamped, err := e.ClampTo(r.Duration())
		if err != nil {
			return nil, fmt.Errorf("reference %s: %w", r.label(), err)
		}
		out = append(out, clamped)
	}
	return out, nil
}

func (r AssetReference) clone() AssetReference {
	c := r
	if r.ZIndex != nil {
		z := *r.ZIndex
		c.ZIndex = &z
	}
	if r.Params.Volume != nil {
		v := *r.Params.Volume
		c.Params.Volume = &v
	}
	if r.Params.Crop != nil {
		crop := *r.Params.Crop
		c.Params.Crop = &crop
	}
	if r.Params.Style != nil {
		s := *r.Params.Style
		c.Params.Style = &s
	}
	c.Effects = slices.Clone(r.Effects)
	return c
}

func (r AssetReference) label() string {
	if r.ID != "" {
		return fmt.Sprintf("%s (asset %q)", r.ID, r.AssetID)
	}
	return fmt.Sprintf("to asset %q", r.AssetID)
}

// Validate checks r on its own and against the asset it points to.
func (r AssetReference) Validate(assets asset.Lookup) error {
	if !finite(r.Start, r.End) || r.Start < 0 || r.End <= r.Start {
		return fmt.Errorf("%w: reference %s spans [%.3f, %.3f)", errs.ErrInvalidInterval, r.label(), r.Start, r.End)
	}

	a, err := assets.Get(r.AssetID)
	if err != nil {
		return fmt.Errorf("%w: reference %s", errs.ErrUnknownAsset, r.label())
	}

	if !r.Position.IsZero() {
		if err := r.Position.Validate(); err != nil {
			return fmt.Errorf("reference %s: %w", r.label(), err)
		}
	}
	if v := r.Params.Volume; v != nil && (!finite(*v) || *v < 0) {
		return fmt.Errorf("%w: reference %s has volume %v", errs.ErrInvalidAsset, r.label(), *r.Params.Volume)
	}

	if a.Kind.TimeBound() {
		available := a.Duration
		if c := r.Params.Crop; c != nil {
			if !finite(c.From, c.To) || c.From < 0 || c.To <= c.From || c.To > a.Duration+durationTolerance {
				return fmt.Errorf("%w: reference %s crops [%.3f, %.3f) of a %.3fs asset",
					errs.ErrInvalidInterval, r.label(), c.From, c.To, a.Duration)
			}
			available = c.To - c.From
		}
		if r.Duration() > available+durationTolerance {
			return fmt.Errorf("%w: reference %s lasts %.3fs, asset has %.3fs",
				errs.ErrDurationExceeded, r.label(), r.Duration(), available)
		}
	}

	if _, err := r.ActiveEffects(); err != nil {
		return err
	}
	return nil
}

func finite(vs ...float64) bool {
	for _, v := range vs {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
